package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/Knetic/govaluate"
	"github.com/divan/num2words"
	"gorm.io/datatypes"

	"github.com/mbzzzzz/axis-crm-v1-sub003/models"
)

// TemplateError records a template the generation run could not process.
// The run keeps going; one broken template must not block the rest.
type TemplateError struct {
	TemplateID uint   `json:"templateId"`
	Error      string `json:"error"`
}

// Summary is the result of one generation run. It is always returned, even
// when the run was cut short by cancellation or partial failures.
type Summary struct {
	TemplatesProcessed int             `json:"templatesProcessed"`
	InvoicesCreated    int             `json:"invoicesCreated"`
	Errors             []TemplateError `json:"errors"`
}

// Generator materializes invoices from recurring templates. It holds no
// state between runs; everything is re-derived from each template's
// generation cursor, which is what makes repeated triggers safe.
type Generator struct {
	Templates TemplateStore
}

func NewGenerator(templates TemplateStore) *Generator {
	return &Generator{Templates: templates}
}

// Run generates every invoice due as of asOf across all eligible templates.
//
// For each template the missed periods are computed oldest-first (catch-up:
// a scheduler paused for three months yields three invoices in one run),
// built into invoices, and persisted together with the cursor advance as one
// atomic unit. A cursor conflict means another run got there first; the
// template is re-read and retried once before being recorded as skipped.
func (g *Generator) Run(ctx context.Context, asOf time.Time) Summary {
	asOf = DateOnly(asOf)
	summary := Summary{Errors: []TemplateError{}}

	templates, err := g.Templates.ListDue(ctx, asOf)
	if err != nil {
		summary.Errors = append(summary.Errors, TemplateError{Error: fmt.Sprintf("listing due templates: %v", err)})
		return summary
	}

	for _, tmpl := range templates {
		if ctx.Err() != nil {
			slog.Warn("Generation run cancelled, returning partial summary",
				"templates_processed", summary.TemplatesProcessed)
			summary.Errors = append(summary.Errors, TemplateError{Error: ctx.Err().Error()})
			return summary
		}

		created, err := g.processTemplate(ctx, tmpl, asOf)
		if err != nil {
			summary.Errors = append(summary.Errors, TemplateError{TemplateID: tmpl.ID, Error: err.Error()})
		}
		summary.TemplatesProcessed++
		summary.InvoicesCreated += created
	}

	slog.Info("Recurring generation run finished",
		"as_of", asOf.Format("2006-01-02"),
		"templates_processed", summary.TemplatesProcessed,
		"invoices_created", summary.InvoicesCreated,
		"errors", len(summary.Errors))
	return summary
}

func (g *Generator) processTemplate(ctx context.Context, tmpl models.RecurringInvoiceTemplate, asOf time.Time) (int, error) {
	created, err := g.generateForTemplate(ctx, tmpl, asOf)
	if !errors.Is(err, ErrConflict) {
		return created, err
	}

	// Lost a cursor race with a concurrent run: re-read and try once more.
	// Whatever the other run already generated is excluded by the fresh
	// cursor, so the retry only covers genuinely missing periods.
	fresh, getErr := g.Templates.Get(ctx, tmpl.ID)
	if getErr != nil {
		return 0, fmt.Errorf("re-reading template after conflict: %w", getErr)
	}
	created, err = g.generateForTemplate(ctx, fresh, asOf)
	if errors.Is(err, ErrConflict) {
		return 0, fmt.Errorf("skipped after repeated cursor conflict: %w", err)
	}
	return created, err
}

func (g *Generator) generateForTemplate(ctx context.Context, tmpl models.RecurringInvoiceTemplate, asOf time.Time) (int, error) {
	if !tmpl.Frequency.Valid() {
		return 0, fmt.Errorf("%w: unknown frequency %q", ErrValidation, tmpl.Frequency)
	}

	periods := DuePeriods(tmpl, asOf)
	if len(periods) == 0 {
		return 0, nil
	}

	invoices := make([]models.Invoice, 0, len(periods))
	for _, p := range periods {
		amount, err := g.periodAmount(tmpl, p.Number)
		if err != nil {
			return 0, err
		}
		invoices = append(invoices, buildInvoice(tmpl, p.Start, amount))
	}

	newCursor := periods[len(periods)-1].Start
	if err := g.Templates.CreateAndAdvance(ctx, tmpl, invoices, newCursor); err != nil {
		return 0, err
	}
	return len(invoices), nil
}

// periodAmount resolves the charge for one period: the template amount, or
// the template's formula evaluated with the amount and period number as
// parameters (e.g. "BaseAmount * 1.05" for an indexed rent). periodNumber
// is the period's absolute ordinal on the schedule, so replays and catch-up
// runs price a calendar period identically.
func (g *Generator) periodAmount(tmpl models.RecurringInvoiceTemplate, periodNumber int) (float64, error) {
	if tmpl.AmountFormula == "" {
		return tmpl.Amount, nil
	}

	expr, err := govaluate.NewEvaluableExpression(tmpl.AmountFormula)
	if err != nil {
		return 0, fmt.Errorf("%w: bad amount formula %q: %v", ErrValidation, tmpl.AmountFormula, err)
	}

	result, err := expr.Evaluate(map[string]interface{}{
		"BaseAmount":   tmpl.Amount,
		"PeriodNumber": float64(periodNumber),
	})
	if err != nil {
		return 0, fmt.Errorf("%w: evaluating amount formula: %v", ErrValidation, err)
	}

	amount, ok := result.(float64)
	if !ok {
		return 0, fmt.Errorf("%w: amount formula did not produce a number", ErrValidation)
	}
	if amount < 0 {
		return 0, fmt.Errorf("%w: amount formula produced a negative amount", ErrValidation)
	}
	return amount, nil
}

func buildInvoice(tmpl models.RecurringInvoiceTemplate, periodStart time.Time, amount float64) models.Invoice {
	dueDate := periodStart.AddDate(0, 0, tmpl.DueDateOffsetDays)
	tenantID := tmpl.TenantID
	templateID := tmpl.ID

	return models.Invoice{
		OwnerID:          tmpl.OwnerID,
		TenantID:         &tenantID,
		PropertyID:       tmpl.PropertyID,
		InvoiceNumber:    RecurringInvoiceNumber(tmpl.ID, periodStart),
		InvoiceDate:      datatypes.Date(periodStart),
		DueDate:          datatypes.Date(dueDate),
		TotalAmount:      amount,
		AmountInWords:    AmountInWords(amount, tmpl.Currency),
		Currency:         tmpl.Currency,
		PaymentStatus:    models.PaymentStatusUnpaid,
		SourceTemplateID: &templateID,
		Notes:            tmpl.Description,
	}
}

// RecurringInvoiceNumber builds the deterministic number for a generated
// invoice. Determinism matters: a replay that somehow slips past the cursor
// guard hits the per-owner unique index instead of double-billing.
func RecurringInvoiceNumber(templateID uint, periodStart time.Time) string {
	return fmt.Sprintf("REC-%d-%s", templateID, periodStart.Format("20060102"))
}

// AmountInWords renders the rounded amount as English words for the printed
// invoice, e.g. "one thousand two hundred USD".
func AmountInWords(amount float64, currency string) string {
	return fmt.Sprintf("%s %s", num2words.Convert(int(math.Round(amount))), currency)
}
