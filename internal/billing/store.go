package billing

import (
	"context"
	"errors"
	"time"

	"github.com/mbzzzzz/axis-crm-v1-sub003/models"
)

var (
	// ErrNotFound signals that an entity does not exist. For policy lookups
	// this is a business outcome ("no policy configured"), never a failure.
	ErrNotFound = errors.New("billing: not found")

	// ErrConflict signals that a conditional update lost a race with a
	// concurrent run (generation cursor moved, or a fee was applied first).
	ErrConflict = errors.New("billing: concurrent update conflict")

	// ErrValidation signals malformed input or entity state (e.g. an invoice
	// with no due date). Reported to the caller, never silently absorbed.
	ErrValidation = errors.New("billing: validation failed")
)

// TemplateStore is the persistence contract the generator depends on.
type TemplateStore interface {
	// ListDue returns active templates whose start date has been reached and
	// whose end date (if any) has not passed as of the given date.
	ListDue(ctx context.Context, asOf time.Time) ([]models.RecurringInvoiceTemplate, error)

	// Get fetches a single template by id.
	Get(ctx context.Context, id uint) (models.RecurringInvoiceTemplate, error)

	// CreateAndAdvance persists the given invoices and advances the
	// template's generation cursor to newCursor in one atomic unit. The
	// cursor update is conditional on the template still holding the cursor
	// value carried by tmpl; ErrConflict is returned (and nothing persisted)
	// when a concurrent run advanced it first.
	CreateAndAdvance(ctx context.Context, tmpl models.RecurringInvoiceTemplate, invoices []models.Invoice, newCursor time.Time) error
}

// InvoiceStore is the persistence contract the late-fee evaluator depends on.
type InvoiceStore interface {
	// Get fetches a single invoice by id, ErrNotFound when absent.
	Get(ctx context.Context, id uint) (models.Invoice, error)

	// ListOverdueUnpaid returns invoices with a due date before asOf that are
	// neither paid nor void.
	ListOverdueUnpaid(ctx context.Context, asOf time.Time) ([]models.Invoice, error)

	// ApplyLateFee adds fee to the invoice total and stamps the late-fee
	// application date, conditional on late_fee_applied_at still holding the
	// value the caller read (expected). ErrConflict on a lost race.
	ApplyLateFee(ctx context.Context, invoiceID uint, fee float64, expected *time.Time, appliedAt time.Time) error
}

// PolicyResolver resolves the effective late-fee policy for a tenant:
// the tenant-specific policy when one exists, otherwise the owner's account
// default, otherwise (nil, nil).
type PolicyResolver interface {
	Resolve(ctx context.Context, ownerID uint, tenantID uint) (*models.LateFeePolicy, error)
}
