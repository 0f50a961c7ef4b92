package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/mbzzzzz/axis-crm-v1-sub003/internal/billing"
	"github.com/mbzzzzz/axis-crm-v1-sub003/models"
)

// TemplateStore is the GORM-backed implementation of billing.TemplateStore.
// OwnerID, when non-zero, scopes every query to one account; the scheduled
// sweep runs with zero and covers all accounts.
type TemplateStore struct {
	DB      *gorm.DB
	OwnerID uint
}

func NewTemplateStore(db *gorm.DB, ownerID uint) *TemplateStore {
	return &TemplateStore{DB: db, OwnerID: ownerID}
}

func (s *TemplateStore) scoped(ctx context.Context) *gorm.DB {
	q := s.DB.WithContext(ctx)
	if s.OwnerID != 0 {
		q = q.Where("owner_id = ?", s.OwnerID)
	}
	return q
}

func (s *TemplateStore) ListDue(ctx context.Context, asOf time.Time) ([]models.RecurringInvoiceTemplate, error) {
	var templates []models.RecurringInvoiceTemplate
	err := s.scoped(ctx).
		Where("active = ?", true).
		Where("start_date <= ?", asOf).
		Where("(end_date IS NULL OR end_date >= ?)", asOf).
		Order("id asc").
		Find(&templates).Error
	if err != nil {
		return nil, fmt.Errorf("listing due templates: %w", err)
	}
	return templates, nil
}

func (s *TemplateStore) Get(ctx context.Context, id uint) (models.RecurringInvoiceTemplate, error) {
	var tmpl models.RecurringInvoiceTemplate
	err := s.scoped(ctx).First(&tmpl, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return tmpl, billing.ErrNotFound
	}
	if err != nil {
		return tmpl, fmt.Errorf("fetching template %d: %w", id, err)
	}
	return tmpl, nil
}

// CreateAndAdvance inserts the generated invoices and moves the template's
// generation cursor in a single transaction. The cursor update only matches
// when the row still holds the cursor value the caller read, so two
// overlapping runs cannot both generate for the same periods: the loser sees
// zero rows updated and the whole unit rolls back.
func (s *TemplateStore) CreateAndAdvance(ctx context.Context, tmpl models.RecurringInvoiceTemplate, invoices []models.Invoice, newCursor time.Time) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(invoices) > 0 {
			if err := tx.Create(&invoices).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					// A duplicate invoice number means another run already
					// generated this period.
					return billing.ErrConflict
				}
				return fmt.Errorf("creating invoices for template %d: %w", tmpl.ID, err)
			}
		}

		q := tx.Model(&models.RecurringInvoiceTemplate{}).Where("id = ?", tmpl.ID)
		if tmpl.LastGeneratedPeriodStart == nil {
			q = q.Where("last_generated_period_start IS NULL")
		} else {
			q = q.Where("last_generated_period_start = ?", *tmpl.LastGeneratedPeriodStart)
		}

		res := q.Update("last_generated_period_start", datatypes.Date(newCursor))
		if res.Error != nil {
			return fmt.Errorf("advancing cursor for template %d: %w", tmpl.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return billing.ErrConflict
		}
		return nil
	})
}

// InvoiceStore is the GORM-backed implementation of billing.InvoiceStore.
type InvoiceStore struct {
	DB      *gorm.DB
	OwnerID uint
}

func NewInvoiceStore(db *gorm.DB, ownerID uint) *InvoiceStore {
	return &InvoiceStore{DB: db, OwnerID: ownerID}
}

func (s *InvoiceStore) scoped(ctx context.Context) *gorm.DB {
	q := s.DB.WithContext(ctx)
	if s.OwnerID != 0 {
		q = q.Where("owner_id = ?", s.OwnerID)
	}
	return q
}

func (s *InvoiceStore) Get(ctx context.Context, id uint) (models.Invoice, error) {
	var inv models.Invoice
	err := s.scoped(ctx).First(&inv, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return inv, billing.ErrNotFound
	}
	if err != nil {
		return inv, fmt.Errorf("fetching invoice %d: %w", id, err)
	}
	return inv, nil
}

func (s *InvoiceStore) ListOverdueUnpaid(ctx context.Context, asOf time.Time) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := s.scoped(ctx).
		Where("due_date < ?", asOf).
		Where("payment_status IN ?", []models.PaymentStatus{
			models.PaymentStatusUnpaid, models.PaymentStatusPartiallyPaid,
		}).
		Order("due_date asc").
		Find(&invoices).Error
	if err != nil {
		return nil, fmt.Errorf("listing overdue invoices: %w", err)
	}
	return invoices, nil
}

// ApplyLateFee adds the fee to the invoice total and stamps the application
// date in one conditional UPDATE. The WHERE on the previous applied-at value
// is the optimistic lock: a concurrent apply that committed first leaves
// nothing for this one to match.
func (s *InvoiceStore) ApplyLateFee(ctx context.Context, invoiceID uint, fee float64, expected *time.Time, appliedAt time.Time) error {
	q := s.DB.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("id = ?", invoiceID)
	if expected == nil {
		q = q.Where("late_fee_applied_at IS NULL")
	} else {
		q = q.Where("late_fee_applied_at = ?", datatypes.Date(*expected))
	}

	res := q.Updates(map[string]interface{}{
		"total_amount":        gorm.Expr("total_amount + ?", fee),
		"late_fee_applied_at": datatypes.Date(appliedAt),
	})
	if res.Error != nil {
		return fmt.Errorf("applying late fee to invoice %d: %w", invoiceID, res.Error)
	}
	if res.RowsAffected == 0 {
		return billing.ErrConflict
	}
	return nil
}

// PolicyStore is the GORM-backed implementation of billing.PolicyResolver.
type PolicyStore struct {
	DB *gorm.DB
}

func NewPolicyStore(db *gorm.DB) *PolicyStore {
	return &PolicyStore{DB: db}
}

// Resolve returns the tenant-specific policy when one exists, otherwise the
// owner's account default, otherwise (nil, nil). Only a genuine lookup
// failure is an error; "no policy" is a defined outcome.
func (s *PolicyStore) Resolve(ctx context.Context, ownerID uint, tenantID uint) (*models.LateFeePolicy, error) {
	var policy models.LateFeePolicy
	err := s.DB.WithContext(ctx).
		Where("owner_id = ? AND tenant_id = ?", ownerID, tenantID).
		Order("id desc").
		First(&policy).Error
	if err == nil {
		return &policy, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("fetching tenant policy: %w", err)
	}

	err = s.DB.WithContext(ctx).
		Where("owner_id = ? AND tenant_id IS NULL", ownerID).
		Order("id desc").
		First(&policy).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching account default policy: %w", err)
	}
	return &policy, nil
}
