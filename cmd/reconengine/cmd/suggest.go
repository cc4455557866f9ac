package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bank-reconciliation-engine/internal/matcher"
	"bank-reconciliation-engine/internal/models"
	"bank-reconciliation-engine/internal/reconciler"
	"bank-reconciliation-engine/internal/reporter"
	"bank-reconciliation-engine/internal/store"
)

var (
	dbPath         string
	companyID      string
	entryKind      string
	maxSuggestions int
	dateTolerance  int
	outputFormat   string
	outputFile     string
)

// suggestCmd represents the suggest command
var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Propose matches for unreconciled bank transactions",
	Long: `Suggest loads the company's unreconciled bank transactions and open
payables and receivables and proposes ranked, explainable matches.

Nothing is booked: each suggestion names the entries it would settle, a
confidence score and the reasons behind it, for a human to confirm.

Examples:
  # Suggest matches for all open entries
  reconengine suggest --db ledger.db --company acme-ltda

  # Payables only, JSON report to a file
  reconengine suggest --db ledger.db --company acme-ltda \
    --kind payable --output-format json --output-file report.json

  # Widen the due date window for this run
  reconengine suggest --db ledger.db --company acme-ltda --date-tolerance 10`,

	PreRunE: validateSuggestFlags,
	RunE:    runSuggest,
}

func init() {
	rootCmd.AddCommand(suggestCmd)

	suggestCmd.Flags().StringVar(&dbPath, "db", "", "path to the SQLite database (required)")
	suggestCmd.Flags().StringVarP(&companyID, "company", "c", "", "company id (required)")
	suggestCmd.Flags().StringVarP(&entryKind, "kind", "k", "", "restrict to 'payable' or 'receivable'")
	suggestCmd.Flags().IntVarP(&maxSuggestions, "max-suggestions", "m", 0, "cap on ranked suggestions (0 = default)")
	suggestCmd.Flags().IntVarP(&dateTolerance, "date-tolerance", "d", 0, "due date tolerance in days (0 = company setting)")
	suggestCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "output format: console, json, csv")
	suggestCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "output file path (default: stdout)")

	suggestCmd.MarkFlagRequired("db")
	suggestCmd.MarkFlagRequired("company")

	viper.BindPFlag("db", suggestCmd.Flags().Lookup("db"))
	viper.BindPFlag("company", suggestCmd.Flags().Lookup("company"))
	viper.BindPFlag("output-format", suggestCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("output-file", suggestCmd.Flags().Lookup("output-file"))
}

func validateSuggestFlags(cmd *cobra.Command, args []string) error {
	if v := viper.GetString("db"); v != "" {
		dbPath = v
	}
	if v := viper.GetString("company"); v != "" {
		companyID = v
	}

	if dbPath == "" {
		return fmt.Errorf("db is required")
	}
	if companyID == "" {
		return fmt.Errorf("company is required")
	}

	if entryKind != "" && !models.EntryKind(entryKind).IsValid() {
		return fmt.Errorf("invalid kind %q: use 'payable' or 'receivable'", entryKind)
	}

	if !reporter.OutputFormat(outputFormat).IsValid() {
		return fmt.Errorf("invalid output format %q: use console, json or csv", outputFormat)
	}

	return nil
}

func runSuggest(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	handler := NewCLIErrorHandler(log)

	db, err := store.Open(dbPath, log)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}
	defer db.Close()

	service, err := reconciler.NewService(db, matcher.DefaultConfig(), log)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	result, err := service.Run(context.Background(), &reconciler.RunRequest{
		CompanyID:         companyID,
		Kind:              models.EntryKind(entryKind),
		MaxSuggestions:    maxSuggestions,
		DateToleranceDays: dateTolerance,
	})
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	return writeReport(result)
}

func writeReport(result *reconciler.RunResult) error {
	config := reporter.DefaultReportConfig()
	config.Format = reporter.OutputFormat(outputFormat)

	rep, err := reporter.New(config)
	if err != nil {
		return err
	}

	out := os.Stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	return rep.Write(out, result)
}
