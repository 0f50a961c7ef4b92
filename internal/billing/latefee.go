package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mbzzzzz/axis-crm-v1-sub003/models"
)

// Structured reasons for a "no fee" outcome. These are legitimate business
// states, not failures, and are returned to the caller verbatim.
const (
	ReasonAlreadyPaid       = "already paid"
	ReasonAlreadyApplied    = "fee already applied today"
	ReasonNoTenant          = "no tenant"
	ReasonNoPolicy          = "no policy configured"
	ReasonWithinGracePeriod = "within grace period"
	ReasonZeroFee           = "policy yields no fee"
	ReasonOverdue           = "overdue beyond grace period"
)

// Evaluation is the outcome of one late-fee decision for one invoice.
type Evaluation struct {
	ShouldApply bool                  `json:"shouldApply"`
	DaysOverdue int                   `json:"daysOverdue"`
	FeeAmount   float64               `json:"feeAmount"`
	Policy      *models.LateFeePolicy `json:"policyUsed,omitempty"`
	Reason      string                `json:"reason"`
}

// Calculate runs the late-fee decision ladder for an invoice against an
// already-resolved policy (nil = none configured). It is a pure function of
// its inputs; both the preview endpoint and the batch apply sweep go through
// it, so the two can never diverge in numeric behavior.
func Calculate(inv models.Invoice, policy *models.LateFeePolicy, asOf time.Time) (Evaluation, error) {
	due := time.Time(inv.DueDate)
	if due.IsZero() {
		return Evaluation{}, fmt.Errorf("%w: invoice %d has no due date", ErrValidation, inv.ID)
	}

	asOf = DateOnly(asOf)
	ev := Evaluation{}
	if d := DaysBetween(due, asOf); d > 0 {
		ev.DaysOverdue = d
	}

	if inv.PaymentStatus.Settled() {
		ev.Reason = ReasonAlreadyPaid
		return ev, nil
	}
	if inv.LateFeeAppliedAt != nil && SameDay(time.Time(*inv.LateFeeAppliedAt), asOf) {
		ev.Reason = ReasonAlreadyApplied
		return ev, nil
	}
	if inv.TenantID == nil {
		ev.Reason = ReasonNoTenant
		return ev, nil
	}
	if policy == nil {
		ev.Reason = ReasonNoPolicy
		return ev, nil
	}
	if ev.DaysOverdue <= policy.GracePeriodDays {
		ev.Reason = ReasonWithinGracePeriod
		return ev, nil
	}

	fee, err := feeAmount(inv, *policy)
	if err != nil {
		return Evaluation{}, err
	}
	ev.Policy = policy
	if fee <= 0 {
		ev.Reason = ReasonZeroFee
		return ev, nil
	}

	ev.ShouldApply = true
	ev.FeeAmount = fee
	ev.Reason = ReasonOverdue
	return ev, nil
}

// feeAmount computes the raw fee for a policy. The switch over the policy
// type is exhaustive on purpose: a new fee type added to the model surfaces
// here as an explicit error until it is handled.
func feeAmount(inv models.Invoice, policy models.LateFeePolicy) (float64, error) {
	var fee float64
	switch policy.Type {
	case models.LateFeeTypeFlat:
		fee = policy.AmountOrRate
	case models.LateFeeTypePercentage:
		fee = inv.TotalAmount * policy.AmountOrRate
		if policy.MaxFeeCap != nil && fee > *policy.MaxFeeCap {
			fee = *policy.MaxFeeCap
		}
	default:
		return 0, fmt.Errorf("%w: unsupported late fee type %q", ErrValidation, policy.Type)
	}
	if fee < 0 {
		fee = 0
	}
	return fee, nil
}

// SweepError records an invoice the fee sweep could not process.
type SweepError struct {
	InvoiceID uint   `json:"invoiceId"`
	Error     string `json:"error"`
}

// SweepSummary is the result of one batch fee-application run.
type SweepSummary struct {
	InvoicesProcessed int          `json:"invoicesProcessed"`
	FeesApplied       int          `json:"feesApplied"`
	TotalFeeAmount    float64      `json:"totalFeeAmount"`
	Errors            []SweepError `json:"errors"`
}

// Evaluator decides and (in apply mode) persists late fees.
type Evaluator struct {
	Invoices InvoiceStore
	Policies PolicyResolver
}

func NewEvaluator(invoices InvoiceStore, policies PolicyResolver) *Evaluator {
	return &Evaluator{Invoices: invoices, Policies: policies}
}

// Preview evaluates the invoice without mutating anything (dry run).
func (e *Evaluator) Preview(ctx context.Context, invoiceID uint, asOf time.Time) (Evaluation, error) {
	inv, err := e.Invoices.Get(ctx, invoiceID)
	if err != nil {
		return Evaluation{}, err
	}
	return e.evaluate(ctx, inv, asOf)
}

// Apply evaluates the invoice and, when a fee is due, persists the new total
// and the application date. The persisted update is conditional on the
// applied-at value the evaluation was based on; a lost race is retried once
// with fresh reads and then resolved as "fee already applied today".
func (e *Evaluator) Apply(ctx context.Context, invoiceID uint, asOf time.Time) (Evaluation, error) {
	asOf = DateOnly(asOf)

	for attempt := 0; ; attempt++ {
		inv, err := e.Invoices.Get(ctx, invoiceID)
		if err != nil {
			return Evaluation{}, err
		}

		ev, err := e.evaluate(ctx, inv, asOf)
		if err != nil || !ev.ShouldApply {
			return ev, err
		}

		var expected *time.Time
		if inv.LateFeeAppliedAt != nil {
			t := time.Time(*inv.LateFeeAppliedAt)
			expected = &t
		}

		err = e.Invoices.ApplyLateFee(ctx, inv.ID, ev.FeeAmount, expected, asOf)
		if err == nil {
			slog.Info("Late fee applied",
				"invoice_id", inv.ID, "fee", ev.FeeAmount, "days_overdue", ev.DaysOverdue)
			return ev, nil
		}
		if !errors.Is(err, ErrConflict) {
			return Evaluation{}, err
		}
		if attempt >= 1 {
			// A concurrent run won both races; after a same-day apply the
			// re-evaluation would have said so, so treat it as applied.
			ev.ShouldApply = false
			ev.FeeAmount = 0
			ev.Reason = ReasonAlreadyApplied
			return ev, nil
		}
	}
}

// Sweep applies late fees across every overdue unpaid invoice. One invoice's
// failure is recorded and skipped; the batch keeps going, and a partial
// summary is always returned.
func (e *Evaluator) Sweep(ctx context.Context, asOf time.Time) SweepSummary {
	asOf = DateOnly(asOf)
	summary := SweepSummary{Errors: []SweepError{}}

	invoices, err := e.Invoices.ListOverdueUnpaid(ctx, asOf)
	if err != nil {
		summary.Errors = append(summary.Errors, SweepError{Error: fmt.Sprintf("listing overdue invoices: %v", err)})
		return summary
	}

	for _, inv := range invoices {
		if ctx.Err() != nil {
			summary.Errors = append(summary.Errors, SweepError{Error: ctx.Err().Error()})
			return summary
		}

		ev, err := e.Apply(ctx, inv.ID, asOf)
		summary.InvoicesProcessed++
		if err != nil {
			summary.Errors = append(summary.Errors, SweepError{InvoiceID: inv.ID, Error: err.Error()})
			continue
		}
		if ev.ShouldApply {
			summary.FeesApplied++
			summary.TotalFeeAmount += ev.FeeAmount
		}
	}

	slog.Info("Late fee sweep finished",
		"as_of", asOf.Format("2006-01-02"),
		"invoices_processed", summary.InvoicesProcessed,
		"fees_applied", summary.FeesApplied)
	return summary
}

// evaluate resolves the effective policy (only when the decision ladder gets
// that far) and runs the pure calculation. A missing policy is a business
// outcome; any other resolver failure propagates as a retryable error.
func (e *Evaluator) evaluate(ctx context.Context, inv models.Invoice, asOf time.Time) (Evaluation, error) {
	var policy *models.LateFeePolicy
	if e.needsPolicy(inv, asOf) {
		p, err := e.Policies.Resolve(ctx, inv.OwnerID, *inv.TenantID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return Evaluation{}, fmt.Errorf("resolving late fee policy: %w", err)
		}
		policy = p
	}
	return Calculate(inv, policy, asOf)
}

// needsPolicy mirrors the early rungs of the decision ladder: when one of
// them short-circuits the evaluation, a policy lookup outage must not turn a
// defined outcome into an error. That includes the due-date check, which
// must fail fast as a validation error rather than a resolver one.
func (e *Evaluator) needsPolicy(inv models.Invoice, asOf time.Time) bool {
	if time.Time(inv.DueDate).IsZero() {
		return false
	}
	if inv.PaymentStatus.Settled() || inv.TenantID == nil {
		return false
	}
	if inv.LateFeeAppliedAt != nil && SameDay(time.Time(*inv.LateFeeAppliedAt), DateOnly(asOf)) {
		return false
	}
	return true
}
