// billingctl is the operations CLI for the billing engine: it runs the same
// generation and late-fee jobs the scheduler does, against the configured
// database, for manual replays and backfills.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mbzzzzz/axis-crm-v1-sub003/config"
	"github.com/mbzzzzz/axis-crm-v1-sub003/internal/billing"
	"github.com/mbzzzzz/axis-crm-v1-sub003/internal/storage"
)

var asOfFlag string

var rootCmd = &cobra.Command{
	Use:   "billingctl",
	Short: "Axis CRM billing engine operations CLI",
	Long: `billingctl runs the billing lifecycle jobs by hand: recurring invoice
generation and the late fee sweep. Both jobs are idempotent, so replaying a
run for a date that already executed creates nothing new.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.LoadEnv()
		config.ConnectDB()
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run recurring invoice generation",
	RunE: func(cmd *cobra.Command, args []string) error {
		asOf, err := parseAsOf()
		if err != nil {
			return err
		}
		generator := billing.NewGenerator(storage.NewTemplateStore(config.DB, 0))
		return printSummary(generator.Run(context.Background(), asOf))
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run the late fee sweep over overdue invoices",
	RunE: func(cmd *cobra.Command, args []string) error {
		asOf, err := parseAsOf()
		if err != nil {
			return err
		}
		evaluator := billing.NewEvaluator(storage.NewInvoiceStore(config.DB, 0), storage.NewPolicyStore(config.DB))
		return printSummary(evaluator.Sweep(context.Background(), asOf))
	},
}

func parseAsOf() (time.Time, error) {
	if asOfFlag == "" {
		return time.Now().UTC(), nil
	}
	asOf, err := time.Parse("2006-01-02", asOfFlag)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --as-of date %q, expected YYYY-MM-DD", asOfFlag)
	}
	return asOf, nil
}

func printSummary(summary interface{}) error {
	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&asOfFlag, "as-of", "", "Run date (YYYY-MM-DD), defaults to today")
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(sweepCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
