package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/mbzzzzz/axis-crm-v1-sub003/models"
)

func boolPtr(v bool) *bool { return &v }

func monthlyTemplate(id uint, start time.Time) models.RecurringInvoiceTemplate {
	return models.RecurringInvoiceTemplate{
		Model:     gorm.Model{ID: id},
		OwnerID:   1,
		TenantID:  7,
		Frequency: models.FrequencyMonthly,
		Amount:    1200,
		Currency:  "USD",
		StartDate: start,
		Active:    boolPtr(true),
	}
}

func TestGeneratorRun(t *testing.T) {
	ctx := context.Background()

	t.Run("catch_up_generates_one_invoice_per_missed_period", func(t *testing.T) {
		// Last generated three months ago; one run today must produce
		// exactly three invoices, oldest first.
		tmpl := monthlyTemplate(1, date(2024, time.January, 1))
		cursor := datatypes.Date(date(2024, time.January, 1))
		tmpl.LastGeneratedPeriodStart = &cursor

		store := newFakeTemplates(tmpl)
		summary := NewGenerator(store).Run(ctx, date(2024, time.April, 10))

		assert.Equal(t, 1, summary.TemplatesProcessed)
		assert.Equal(t, 3, summary.InvoicesCreated)
		assert.Empty(t, summary.Errors)

		require.Len(t, store.invoices, 3)
		assert.Equal(t, date(2024, time.February, 1), time.Time(store.invoices[0].InvoiceDate))
		assert.Equal(t, date(2024, time.March, 1), time.Time(store.invoices[1].InvoiceDate))
		assert.Equal(t, date(2024, time.April, 1), time.Time(store.invoices[2].InvoiceDate))

		inv := store.invoices[0]
		assert.Equal(t, models.PaymentStatusUnpaid, inv.PaymentStatus)
		assert.Equal(t, 1200.0, inv.TotalAmount)
		require.NotNil(t, inv.SourceTemplateID)
		assert.Equal(t, uint(1), *inv.SourceTemplateID)
		assert.Equal(t, "REC-1-20240201", inv.InvoiceNumber)
		assert.NotEmpty(t, inv.AmountInWords)

		require.NotNil(t, store.templates[1].LastGeneratedPeriodStart)
		assert.Equal(t, date(2024, time.April, 1), DateOnly(time.Time(*store.templates[1].LastGeneratedPeriodStart)))
	})

	t.Run("second_run_with_same_as_of_creates_nothing", func(t *testing.T) {
		store := newFakeTemplates(monthlyTemplate(1, date(2024, time.January, 1)))
		gen := NewGenerator(store)
		asOf := date(2024, time.March, 10)

		first := gen.Run(ctx, asOf)
		assert.Equal(t, 3, first.InvoicesCreated)

		second := gen.Run(ctx, asOf)
		assert.Equal(t, 0, second.InvoicesCreated)
		assert.Empty(t, second.Errors)
		assert.Len(t, store.invoices, 3)

		// An earlier as-of on an already advanced cursor is also a no-op.
		third := gen.Run(ctx, date(2024, time.February, 1))
		assert.Equal(t, 0, third.InvoicesCreated)
	})

	t.Run("month_end_anchor_clamps_to_short_months", func(t *testing.T) {
		store := newFakeTemplates(monthlyTemplate(1, date(2024, time.January, 31)))
		summary := NewGenerator(store).Run(ctx, date(2024, time.March, 1))

		assert.Equal(t, 2, summary.InvoicesCreated)
		require.Len(t, store.invoices, 2)
		assert.Equal(t, date(2024, time.January, 31), time.Time(store.invoices[0].InvoiceDate))
		assert.Equal(t, date(2024, time.February, 29), time.Time(store.invoices[1].InvoiceDate))
	})

	t.Run("due_date_offset_is_applied", func(t *testing.T) {
		tmpl := monthlyTemplate(1, date(2024, time.January, 1))
		tmpl.DueDateOffsetDays = 14

		store := newFakeTemplates(tmpl)
		NewGenerator(store).Run(ctx, date(2024, time.January, 1))

		require.Len(t, store.invoices, 1)
		assert.Equal(t, date(2024, time.January, 1), time.Time(store.invoices[0].InvoiceDate))
		assert.Equal(t, date(2024, time.January, 15), time.Time(store.invoices[0].DueDate))
	})

	t.Run("one_failing_template_does_not_block_others", func(t *testing.T) {
		broken := monthlyTemplate(1, date(2024, time.January, 1))
		healthy := monthlyTemplate(2, date(2024, time.January, 1))

		store := newFakeTemplates(broken, healthy)
		store.advanceErr[1] = errors.New("store unavailable")

		summary := NewGenerator(store).Run(ctx, date(2024, time.January, 10))

		assert.Equal(t, 2, summary.TemplatesProcessed)
		assert.Equal(t, 1, summary.InvoicesCreated)
		require.Len(t, summary.Errors, 1)
		assert.Equal(t, uint(1), summary.Errors[0].TemplateID)
	})

	t.Run("cursor_conflict_is_retried_with_fresh_read", func(t *testing.T) {
		tmpl := monthlyTemplate(1, date(2024, time.January, 1))
		store := newFakeTemplates(tmpl)

		// First CreateAndAdvance loses the race; meanwhile the "other run"
		// has generated January and February. The retry re-reads and only
		// fills March.
		store.advanceErr[1] = ErrConflict
		cursor := datatypes.Date(date(2024, time.February, 1))
		store.templates[1].LastGeneratedPeriodStart = &cursor

		summary := NewGenerator(store).Run(ctx, date(2024, time.March, 10))

		assert.Empty(t, summary.Errors)
		assert.Equal(t, 1, summary.InvoicesCreated)
		require.Len(t, store.invoices, 1)
		assert.Equal(t, date(2024, time.March, 1), time.Time(store.invoices[0].InvoiceDate))
	})

	t.Run("repeated_conflict_is_recorded_as_skip", func(t *testing.T) {
		tmpl := monthlyTemplate(1, date(2024, time.January, 1))
		store := &conflictingTemplates{fakeTemplates: newFakeTemplates(tmpl)}

		summary := NewGenerator(store).Run(ctx, date(2024, time.January, 10))

		assert.Equal(t, 0, summary.InvoicesCreated)
		require.Len(t, summary.Errors, 1)
		assert.Contains(t, summary.Errors[0].Error, "conflict")
	})

	t.Run("formula_overrides_base_amount", func(t *testing.T) {
		tmpl := monthlyTemplate(1, date(2024, time.January, 1))
		tmpl.AmountFormula = "BaseAmount * 1.10"

		store := newFakeTemplates(tmpl)
		NewGenerator(store).Run(ctx, date(2024, time.January, 1))

		require.Len(t, store.invoices, 1)
		assert.InDelta(t, 1320.0, store.invoices[0].TotalAmount, 0.0001)
	})

	t.Run("formula_period_number_is_the_schedule_ordinal", func(t *testing.T) {
		// March is period 3 of a January-anchored monthly schedule and must
		// be priced as period 3 whether it arrives in a three-invoice
		// catch-up batch or alone after January and February were generated
		// on time.
		catchUp := monthlyTemplate(1, date(2024, time.January, 1))
		catchUp.AmountFormula = "BaseAmount * PeriodNumber"

		catchUpStore := newFakeTemplates(catchUp)
		NewGenerator(catchUpStore).Run(ctx, date(2024, time.March, 10))
		require.Len(t, catchUpStore.invoices, 3)
		assert.InDelta(t, 1200.0, catchUpStore.invoices[0].TotalAmount, 0.0001)
		assert.InDelta(t, 3600.0, catchUpStore.invoices[2].TotalAmount, 0.0001)

		incremental := monthlyTemplate(1, date(2024, time.January, 1))
		incremental.AmountFormula = "BaseAmount * PeriodNumber"
		cursor := datatypes.Date(date(2024, time.February, 1))
		incremental.LastGeneratedPeriodStart = &cursor

		incStore := newFakeTemplates(incremental)
		NewGenerator(incStore).Run(ctx, date(2024, time.March, 10))
		require.Len(t, incStore.invoices, 1)
		assert.InDelta(t, 3600.0, incStore.invoices[0].TotalAmount, 0.0001)
	})

	t.Run("bad_formula_is_a_template_error", func(t *testing.T) {
		tmpl := monthlyTemplate(1, date(2024, time.January, 1))
		tmpl.AmountFormula = "BaseAmount *"

		store := newFakeTemplates(tmpl)
		summary := NewGenerator(store).Run(ctx, date(2024, time.January, 1))

		assert.Equal(t, 0, summary.InvoicesCreated)
		require.Len(t, summary.Errors, 1)
		assert.Empty(t, store.invoices)
	})

	t.Run("unknown_frequency_is_a_template_error", func(t *testing.T) {
		tmpl := monthlyTemplate(1, date(2024, time.January, 1))
		tmpl.Frequency = "fortnightly"

		store := newFakeTemplates(tmpl)
		summary := NewGenerator(store).Run(ctx, date(2024, time.January, 1))

		require.Len(t, summary.Errors, 1)
		assert.Equal(t, 0, summary.InvoicesCreated)
	})

	t.Run("cancelled_context_returns_partial_summary", func(t *testing.T) {
		store := newFakeTemplates(
			monthlyTemplate(1, date(2024, time.January, 1)),
			monthlyTemplate(2, date(2024, time.January, 1)),
		)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		summary := NewGenerator(store).Run(cancelled, date(2024, time.January, 10))

		assert.Equal(t, 0, summary.TemplatesProcessed)
		require.NotEmpty(t, summary.Errors)
		assert.Equal(t, 0, store.createAndAdvanceCalls)
	})

	t.Run("list_failure_is_reported_not_swallowed", func(t *testing.T) {
		store := newFakeTemplates()
		store.listErr = errors.New("store unavailable")

		summary := NewGenerator(store).Run(ctx, date(2024, time.January, 10))
		require.Len(t, summary.Errors, 1)
		assert.Contains(t, summary.Errors[0].Error, "store unavailable")
	})
}

// conflictingTemplates makes every CreateAndAdvance lose its race.
type conflictingTemplates struct {
	*fakeTemplates
}

func (c *conflictingTemplates) CreateAndAdvance(ctx context.Context, tmpl models.RecurringInvoiceTemplate, invoices []models.Invoice, newCursor time.Time) error {
	return ErrConflict
}
