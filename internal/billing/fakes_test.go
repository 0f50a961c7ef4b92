package billing

import (
	"context"
	"time"

	"gorm.io/datatypes"

	"github.com/mbzzzzz/axis-crm-v1-sub003/models"
)

// In-memory store fakes mirroring the conditional-update semantics of the
// real GORM stores.

type fakeTemplates struct {
	templates map[uint]*models.RecurringInvoiceTemplate
	invoices  []models.Invoice

	listErr    error
	advanceErr map[uint]error // consumed on first use

	createAndAdvanceCalls int
}

func newFakeTemplates(tmpls ...models.RecurringInvoiceTemplate) *fakeTemplates {
	f := &fakeTemplates{
		templates:  map[uint]*models.RecurringInvoiceTemplate{},
		advanceErr: map[uint]error{},
	}
	for i := range tmpls {
		t := tmpls[i]
		f.templates[t.ID] = &t
	}
	return f
}

func (f *fakeTemplates) ListDue(ctx context.Context, asOf time.Time) ([]models.RecurringInvoiceTemplate, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.RecurringInvoiceTemplate
	for _, t := range f.templates {
		if t.Active != nil && !*t.Active {
			continue
		}
		if t.StartDate.After(asOf) {
			continue
		}
		if t.EndDate != nil && t.EndDate.Before(asOf) {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (f *fakeTemplates) Get(ctx context.Context, id uint) (models.RecurringInvoiceTemplate, error) {
	t, ok := f.templates[id]
	if !ok {
		return models.RecurringInvoiceTemplate{}, ErrNotFound
	}
	return *t, nil
}

func (f *fakeTemplates) CreateAndAdvance(ctx context.Context, tmpl models.RecurringInvoiceTemplate, invoices []models.Invoice, newCursor time.Time) error {
	f.createAndAdvanceCalls++
	if err, ok := f.advanceErr[tmpl.ID]; ok {
		delete(f.advanceErr, tmpl.ID)
		return err
	}

	current, ok := f.templates[tmpl.ID]
	if !ok {
		return ErrNotFound
	}
	if !sameCursor(current.LastGeneratedPeriodStart, tmpl.LastGeneratedPeriodStart) {
		return ErrConflict
	}

	f.invoices = append(f.invoices, invoices...)
	cursor := datatypes.Date(newCursor)
	current.LastGeneratedPeriodStart = &cursor
	return nil
}

func sameCursor(a, b *datatypes.Date) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return SameDay(time.Time(*a), time.Time(*b))
}

type fakeInvoices struct {
	byID map[uint]*models.Invoice

	getErr   error
	listErr  error
	applyErr error // consumed on first use
}

func newFakeInvoices(invoices ...models.Invoice) *fakeInvoices {
	f := &fakeInvoices{byID: map[uint]*models.Invoice{}}
	for i := range invoices {
		inv := invoices[i]
		f.byID[inv.ID] = &inv
	}
	return f
}

func (f *fakeInvoices) Get(ctx context.Context, id uint) (models.Invoice, error) {
	if f.getErr != nil {
		return models.Invoice{}, f.getErr
	}
	inv, ok := f.byID[id]
	if !ok {
		return models.Invoice{}, ErrNotFound
	}
	return *inv, nil
}

func (f *fakeInvoices) ListOverdueUnpaid(ctx context.Context, asOf time.Time) ([]models.Invoice, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.Invoice
	for _, inv := range f.byID {
		if inv.PaymentStatus.Settled() {
			continue
		}
		if !time.Time(inv.DueDate).Before(asOf) {
			continue
		}
		out = append(out, *inv)
	}
	return out, nil
}

func (f *fakeInvoices) ApplyLateFee(ctx context.Context, invoiceID uint, fee float64, expected *time.Time, appliedAt time.Time) error {
	if f.applyErr != nil {
		err := f.applyErr
		f.applyErr = nil
		return err
	}

	inv, ok := f.byID[invoiceID]
	if !ok {
		return ErrNotFound
	}

	switch {
	case expected == nil && inv.LateFeeAppliedAt != nil:
		return ErrConflict
	case expected != nil && (inv.LateFeeAppliedAt == nil || !SameDay(time.Time(*inv.LateFeeAppliedAt), *expected)):
		return ErrConflict
	}

	inv.TotalAmount += fee
	stamp := datatypes.Date(DateOnly(appliedAt))
	inv.LateFeeAppliedAt = &stamp
	return nil
}

type fakePolicies struct {
	byTenant   map[uint]*models.LateFeePolicy
	accountDef *models.LateFeePolicy
	err        error
}

func (f *fakePolicies) Resolve(ctx context.Context, ownerID uint, tenantID uint) (*models.LateFeePolicy, error) {
	if f.err != nil {
		return nil, f.err
	}
	if p, ok := f.byTenant[tenantID]; ok {
		return p, nil
	}
	return f.accountDef, nil
}
