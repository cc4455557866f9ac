// Package reporter renders suggestion run results for humans and machines.
//
// Supported output formats:
//   - Console: human-readable output for terminal review
//   - JSON: structured output for programmatic consumption
//   - CSV: flat per-suggestion rows for spreadsheet triage
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"bank-reconciliation-engine/internal/models"
	"bank-reconciliation-engine/internal/reconciler"
)

// OutputFormat represents the supported report output formats.
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid checks if the output format is supported.
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// ReportConfig holds configuration options for report generation.
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	// IncludeUnmatched adds the unmatched transaction section.
	IncludeUnmatched bool `json:"include_unmatched"`

	// IncludeReasons prints the per-suggestion match reasons on console
	// output.
	IncludeReasons bool `json:"include_reasons"`

	// MaxReasonWidth truncates long reason lines on console output.
	MaxReasonWidth int `json:"max_reason_width"`
}

// DefaultReportConfig returns a default report configuration.
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:           FormatConsole,
		IncludeUnmatched: true,
		IncludeReasons:   true,
		MaxReasonWidth:   100,
	}
}

// Validate validates the report configuration.
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}

	if c.MaxReasonWidth < 20 {
		return fmt.Errorf("max reason width must be at least 20 characters, got %d", c.MaxReasonWidth)
	}

	return nil
}

// Reporter renders run results in the configured format.
type Reporter struct {
	config *ReportConfig
}

// New creates a reporter with the given configuration, applying defaults
// when nil.
func New(config *ReportConfig) (*Reporter, error) {
	if config == nil {
		config = DefaultReportConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}

	return &Reporter{config: config}, nil
}

// Write renders the result to w in the configured format.
func (r *Reporter) Write(w io.Writer, result *reconciler.RunResult) error {
	if result == nil {
		return fmt.Errorf("result is required")
	}

	switch r.config.Format {
	case FormatJSON:
		return r.writeJSON(w, result)
	case FormatCSV:
		return r.writeCSV(w, result)
	default:
		return r.writeConsole(w, result)
	}
}

func (r *Reporter) writeJSON(w io.Writer, result *reconciler.RunResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

func (r *Reporter) writeCSV(w io.Writer, result *reconciler.RunResult) error {
	cw := csv.NewWriter(w)

	header := []string{
		"transaction_id", "match_type", "confidence_score", "confidence_level",
		"requires_review", "entry_ids", "total_matched", "difference", "rule_id",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, s := range result.Suggestions {
		record := []string{
			s.TransactionID,
			s.MatchType.String(),
			fmt.Sprintf("%d", s.Score),
			s.Level.String(),
			fmt.Sprintf("%t", s.RequiresReview),
			strings.Join(s.EntryIDs(), ";"),
			s.TotalMatched.StringFixed(2),
			s.Difference.StringFixed(2),
			s.RuleID,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func (r *Reporter) writeConsole(w io.Writer, result *reconciler.RunResult) error {
	var b strings.Builder

	b.WriteString(strings.Repeat("=", 72) + "\n")
	b.WriteString("RECONCILIATION SUGGESTIONS\n")
	b.WriteString(strings.Repeat("=", 72) + "\n")
	b.WriteString(fmt.Sprintf("Run:       %s\n", result.RunID))
	b.WriteString(fmt.Sprintf("Company:   %s\n", result.CompanyID))
	b.WriteString(fmt.Sprintf("Completed: %s (%s)\n\n",
		result.CompletedAt.Format("2006-01-02 15:04:05"), result.Duration().Round(1e6)))

	r.writeSummary(&b, result.Summary)

	if len(result.Suggestions) > 0 {
		b.WriteString("\nSUGGESTIONS\n")
		b.WriteString(strings.Repeat("-", 72) + "\n")
		for i, s := range result.Suggestions {
			r.writeSuggestion(&b, i+1, s)
		}
	}

	if r.config.IncludeUnmatched && len(result.Unmatched) > 0 {
		b.WriteString("\nUNMATCHED TRANSACTIONS\n")
		b.WriteString(strings.Repeat("-", 72) + "\n")
		for _, u := range result.Unmatched {
			line := fmt.Sprintf("  %s  %s  %12s  %s\n",
				u.ID, u.Date.Format("2006-01-02"), u.Amount.StringFixed(2), u.Description)
			b.WriteString(line)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func (r *Reporter) writeSummary(b *strings.Builder, summary models.Summary) {
	b.WriteString("SUMMARY\n")
	b.WriteString(strings.Repeat("-", 72) + "\n")
	b.WriteString(fmt.Sprintf("  Transactions analyzed: %d\n", summary.TransactionsAnalyzed))
	b.WriteString(fmt.Sprintf("  Suggestions:           %d (high %d / medium %d / low %d)\n",
		summary.TotalSuggestions, summary.HighConfidence, summary.MediumConfidence, summary.LowConfidence))
	b.WriteString(fmt.Sprintf("  Aggregations found:    %d\n", summary.AggregationsFound))
	b.WriteString(fmt.Sprintf("  Unmatched:             %d\n", summary.Unmatched))
	b.WriteString(fmt.Sprintf("  Rules active:          %d\n", summary.RulesActive))
}

func (r *Reporter) writeSuggestion(b *strings.Builder, n int, s *models.Suggestion) {
	review := ""
	if s.RequiresReview {
		review = "  [REVIEW]"
	}

	b.WriteString(fmt.Sprintf("%3d. %s  score %d (%s)  %s%s\n",
		n, s.TransactionID, s.Score, s.Level, s.MatchType, review))

	for _, entry := range s.Entries {
		b.WriteString(fmt.Sprintf("       -> %s %s  %s  due %s  %s\n",
			entry.Kind, entry.EntryID, entry.AmountUsed.StringFixed(2),
			entry.DueDate.Format("2006-01-02"), entry.CounterpartyName))
	}

	if !s.Difference.IsZero() {
		b.WriteString(fmt.Sprintf("       difference: %s\n", s.Difference.StringFixed(2)))
	}

	if r.config.IncludeReasons {
		for _, reason := range s.Reasons {
			b.WriteString("       " + truncate(reason, r.config.MaxReasonWidth) + "\n")
		}
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
