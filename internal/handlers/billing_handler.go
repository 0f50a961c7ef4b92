package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mbzzzzz/axis-crm-v1-sub003/config"
	"github.com/mbzzzzz/axis-crm-v1-sub003/internal/billing"
	"github.com/mbzzzzz/axis-crm-v1-sub003/internal/middleware"
	"github.com/mbzzzzz/axis-crm-v1-sub003/internal/storage"
	"github.com/mbzzzzz/axis-crm-v1-sub003/models"
)

// Batch runs get a generous but bounded deadline so one stuck template or
// invoice cannot hold the whole sweep past the job window.
const batchRunTimeout = 5 * time.Minute

// parseAsOf reads the optional as_of query parameter (YYYY-MM-DD); the
// current date is used when absent.
func parseAsOf(c *gin.Context) (time.Time, bool) {
	raw := c.Query("as_of")
	if raw == "" {
		return time.Now().UTC(), true
	}
	asOf, err := time.Parse("2006-01-02", raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid as_of date, expected YYYY-MM-DD"})
		return time.Time{}, false
	}
	return asOf, true
}

// RunRecurringGenerationHandler triggers a recurring-invoice generation run.
// Reached either by the external scheduler (cron secret, all accounts) or by
// an authenticated owner replaying generation for their own templates. The
// summary is returned with 200 even under partial failure so operators can
// see which templates need attention.
func RunRecurringGenerationHandler(c *gin.Context) {
	asOf, ok := parseAsOf(c)
	if !ok {
		return
	}

	ownerID, _ := middleware.OwnerID(c) // zero for cron-triggered runs: all accounts

	ctx, cancel := context.WithTimeout(c.Request.Context(), batchRunTimeout)
	defer cancel()

	generator := billing.NewGenerator(storage.NewTemplateStore(config.DB, ownerID))
	summary := generator.Run(ctx, asOf)

	c.JSON(http.StatusOK, summary)
}

// LateFeeSweepHandler triggers a batch late-fee application across all
// overdue unpaid invoices. Scheduled-trigger only.
func LateFeeSweepHandler(c *gin.Context) {
	asOf, ok := parseAsOf(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), batchRunTimeout)
	defer cancel()

	evaluator := billing.NewEvaluator(
		storage.NewInvoiceStore(config.DB, 0),
		storage.NewPolicyStore(config.DB),
	)
	summary := evaluator.Sweep(ctx, asOf)

	c.JSON(http.StatusOK, summary)
}

// PreviewLateFeeHandler runs the late-fee calculation for one invoice
// without persisting anything (dry run, used by the UI preview).
func PreviewLateFeeHandler(c *gin.Context) {
	evaluateLateFee(c, false)
}

// ApplyLateFeeHandler runs the same calculation and, when a fee is due,
// persists the new total and the application date.
func ApplyLateFeeHandler(c *gin.Context) {
	evaluateLateFee(c, true)
}

func evaluateLateFee(c *gin.Context, apply bool) {
	invoiceID, err := strconv.Atoi(c.Param("id"))
	if err != nil || invoiceID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid invoice ID"})
		return
	}

	asOf, ok := parseAsOf(c)
	if !ok {
		return
	}

	ownerID, ok := middleware.OwnerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	evaluator := billing.NewEvaluator(
		storage.NewInvoiceStore(config.DB, ownerID),
		storage.NewPolicyStore(config.DB),
	)

	var ev billing.Evaluation
	if apply {
		ev, err = evaluator.Apply(c.Request.Context(), uint(invoiceID), asOf)
	} else {
		ev, err = evaluator.Preview(c.Request.Context(), uint(invoiceID), asOf)
	}

	switch {
	case errors.Is(err, billing.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Invoice not found"})
		return
	case errors.Is(err, billing.ErrValidation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Late fee evaluation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"shouldApply":   ev.ShouldApply,
		"daysOverdue":   ev.DaysOverdue,
		"feeAmount":     ev.FeeAmount,
		"policySummary": policySummary(ev.Policy),
		"reason":        ev.Reason,
	})
}

func policySummary(p *models.LateFeePolicy) gin.H {
	if p == nil {
		return nil
	}
	return gin.H{
		"id":              p.ID,
		"type":            p.Type,
		"amountOrRate":    p.AmountOrRate,
		"gracePeriodDays": p.GracePeriodDays,
		"maxFeeCap":       p.MaxFeeCap,
		"tenantSpecific":  p.TenantID != nil,
	}
}
