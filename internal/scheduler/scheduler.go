package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/mbzzzzz/axis-crm-v1-sub003/config"
	"github.com/mbzzzzz/axis-crm-v1-sub003/internal/billing"
	"github.com/mbzzzzz/axis-crm-v1-sub003/internal/storage"
)

// runHour is the local hour at which the daily billing jobs fire.
const runHour = 2

const jobTimeout = 10 * time.Minute

// Start launches the in-process daily billing scheduler: recurring invoice
// generation followed by the late fee sweep. An external cron hitting the
// /cron endpoints can replace or double with this loop safely — both paths
// go through the same per-entity conditional updates, so duplicate triggers
// cannot double-generate or double-charge.
func Start() {
	go func() {
		slog.Info("Billing scheduler started", "run_hour", runHour)
		ticker := time.NewTicker(1 * time.Minute)
		defer ticker.Stop()

		var lastRun time.Time
		for range ticker.C {
			now := time.Now()
			if now.Hour() != runHour || billing.SameDay(lastRun, now) {
				continue
			}
			lastRun = now
			runDailyJobs(now)
		}
	}()
}

func runDailyJobs(asOf time.Time) {
	slog.Info("Running scheduled billing jobs", "as_of", asOf.Format("2006-01-02"))

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	generator := billing.NewGenerator(storage.NewTemplateStore(config.DB, 0))
	genSummary := generator.Run(ctx, asOf)
	if len(genSummary.Errors) > 0 {
		slog.Warn("Recurring generation finished with errors", "errors", genSummary.Errors)
	}

	evaluator := billing.NewEvaluator(storage.NewInvoiceStore(config.DB, 0), storage.NewPolicyStore(config.DB))
	sweepSummary := evaluator.Sweep(ctx, asOf)
	if len(sweepSummary.Errors) > 0 {
		slog.Warn("Late fee sweep finished with errors", "errors", sweepSummary.Errors)
	}
}
