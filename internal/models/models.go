package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// EntryKind distinguishes open payables from open receivables.
type EntryKind string

const (
	// EntryPayable is an open obligation the business owes.
	EntryPayable EntryKind = "payable"
	// EntryReceivable is an open obligation the business is owed.
	EntryReceivable EntryKind = "receivable"
)

// String returns the string representation of the entry kind.
func (k EntryKind) String() string {
	return string(k)
}

// IsValid checks if the entry kind is valid.
func (k EntryKind) IsValid() bool {
	return k == EntryPayable || k == EntryReceivable
}

// ConfidenceLevel classifies a suggestion for review prioritization.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// String returns the string representation of the confidence level.
func (c ConfidenceLevel) String() string {
	return string(c)
}

// MatchType identifies which strategy produced a suggestion.
type MatchType string

const (
	// MatchReference is an exact internal-reference-number hit, the
	// strongest evidence available: name-independent and verbatim.
	MatchReference MatchType = "reference"

	// MatchExactOneToOne pairs one transaction with one entry on both an
	// accepted counterparty name and an exact amount.
	MatchExactOneToOne MatchType = "exact_1_1"

	// MatchAggregation settles several open entries with one transaction.
	MatchAggregation MatchType = "aggregation_1_n"

	// MatchValueOnly is an exact-amount hit with no name evidence.
	MatchValueOnly MatchType = "value_only"

	// MatchRule comes from an operator-configured statement rule.
	MatchRule MatchType = "rule"
)

// String returns the string representation of the match type.
func (m MatchType) String() string {
	return string(m)
}

// IsValid checks if the match type is valid.
func (m MatchType) IsValid() bool {
	switch m {
	case MatchReference, MatchExactOneToOne, MatchAggregation, MatchValueOnly, MatchRule:
		return true
	}
	return false
}

// BankTransaction is one unreconciled bank-statement line. Negative amounts
// are debits (outflows), positive amounts are credits (inflows). Immutable
// input to a run.
type BankTransaction struct {
	ID             string          `json:"id"`
	Date           time.Time       `json:"date"`
	Description    string          `json:"description"`
	Amount         decimal.Decimal `json:"amount"`
	SettlementCode string          `json:"settlement_code,omitempty"`
}

// Validate performs basic validation on the transaction.
func (t *BankTransaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("transaction id cannot be empty")
	}

	if t.Amount.IsZero() {
		return fmt.Errorf("transaction amount cannot be zero")
	}

	if t.Date.IsZero() {
		return fmt.Errorf("transaction date cannot be zero")
	}

	return nil
}

// IsDebit reports whether the transaction is an outflow.
func (t *BankTransaction) IsDebit() bool {
	return t.Amount.IsNegative()
}

// AbsAmount returns the unsigned transaction amount.
func (t *BankTransaction) AbsAmount() decimal.Decimal {
	return t.Amount.Abs()
}

// String returns a short representation for logs.
func (t *BankTransaction) String() string {
	return fmt.Sprintf("BankTransaction{ID: %s, Amount: %s, Date: %s}",
		t.ID, t.Amount.String(), t.Date.Format("2006-01-02"))
}

// FinancialEntry is one open payable or receivable ledger entry. Amounts are
// always positive; the kind carries the direction. Externally owned and
// immutable for the duration of a run.
type FinancialEntry struct {
	ID               string          `json:"id"`
	Amount           decimal.Decimal `json:"amount"`
	DueDate          time.Time       `json:"due_date"`
	CounterpartyID   string          `json:"counterparty_id,omitempty"`
	CounterpartyName string          `json:"counterparty_name,omitempty"`
	DocumentNumber   string          `json:"document_number,omitempty"`
	ReferenceNumber  string          `json:"reference_number,omitempty"`
	Kind             EntryKind       `json:"kind"`
}

// Validate performs basic validation on the entry.
func (e *FinancialEntry) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("entry id cannot be empty")
	}

	if !e.Amount.IsPositive() {
		return fmt.Errorf("entry amount must be positive, got %s", e.Amount.String())
	}

	if e.DueDate.IsZero() {
		return fmt.Errorf("entry due date cannot be zero")
	}

	if !e.Kind.IsValid() {
		return fmt.Errorf("invalid entry kind: %s", e.Kind)
	}

	return nil
}

// String returns a short representation for logs.
func (e *FinancialEntry) String() string {
	return fmt.Sprintf("FinancialEntry{ID: %s, Amount: %s, Due: %s, Kind: %s}",
		e.ID, e.Amount.String(), e.DueDate.Format("2006-01-02"), e.Kind)
}

// Entity is a known counterparty (supplier or customer). Read-only reference
// data.
type Entity struct {
	ID        string `json:"id"`
	LegalName string `json:"legal_name,omitempty"`
	TradeName string `json:"trade_name,omitempty"`
	TaxID     string `json:"tax_id,omitempty"`
}

// DisplayName prefers the trade name, falling back to the legal name.
func (e *Entity) DisplayName() string {
	if e.TradeName != "" {
		return e.TradeName
	}
	return e.LegalName
}

// ExtractRule is an operator-configured exception rule matched against
// statement descriptions by substring.
type ExtractRule struct {
	ID             string `json:"id"`
	SearchText     string `json:"search_text"`
	CounterpartyID string `json:"counterparty_id,omitempty"`
	Active         bool   `json:"active"`
}

// Validate performs basic validation on the rule.
func (r *ExtractRule) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("rule id cannot be empty")
	}

	if strings.TrimSpace(r.SearchText) == "" {
		return fmt.Errorf("rule search text cannot be empty")
	}

	return nil
}

// RunSettings are the per-tenant matching tolerances.
type RunSettings struct {
	DateToleranceDays     int     `json:"date_tolerance_days"`
	ValueTolerancePercent float64 `json:"value_tolerance_percent"`
}

// DefaultRunSettings returns the stock tolerances used when a tenant has no
// settings row.
func DefaultRunSettings() RunSettings {
	return RunSettings{
		DateToleranceDays:     5,
		ValueTolerancePercent: 0,
	}
}

// SuggestionEntry is one ledger entry inside a suggestion, with the portion
// of its amount the match would consume.
type SuggestionEntry struct {
	EntryID          string          `json:"entry_id"`
	Kind             EntryKind       `json:"kind"`
	Amount           decimal.Decimal `json:"amount"`
	AmountUsed       decimal.Decimal `json:"amount_used"`
	CounterpartyName string          `json:"counterparty_name,omitempty"`
	DueDate          time.Time       `json:"due_date"`
	DocumentNumber   string          `json:"document_number,omitempty"`
}

// Suggestion is one ranked, human-confirmable match proposal. The engine
// never applies a suggestion; confirmation is an external write.
type Suggestion struct {
	TransactionID  string            `json:"transaction_id"`
	Entries        []SuggestionEntry `json:"entries"`
	Score          int               `json:"confidence_score"`
	Level          ConfidenceLevel   `json:"confidence_level"`
	MatchType      MatchType         `json:"match_type"`
	Reasons        []string          `json:"match_reasons"`
	TotalMatched   decimal.Decimal   `json:"total_matched"`
	Difference     decimal.Decimal   `json:"difference"`
	RuleID         string            `json:"rule_id,omitempty"`
	RequiresReview bool              `json:"requires_review"`
	ExtractedName  string            `json:"extracted_name,omitempty"`
	MatchedEntity  string            `json:"matched_entity,omitempty"`
}

// EntryIDs returns the ids of all entries referenced by the suggestion.
func (s *Suggestion) EntryIDs() []string {
	ids := make([]string, len(s.Entries))
	for i, e := range s.Entries {
		ids[i] = e.EntryID
	}
	return ids
}

// UnmatchedTransaction is a statement line no strategy could match, surfaced
// for manual handling.
type UnmatchedTransaction struct {
	ID            string          `json:"id"`
	Date          time.Time       `json:"date"`
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"`
	ExtractedName string          `json:"extracted_name,omitempty"`
}

// Summary aggregates the outcome of one run.
type Summary struct {
	TotalSuggestions     int `json:"total_suggestions"`
	HighConfidence       int `json:"high_confidence"`
	MediumConfidence     int `json:"medium_confidence"`
	LowConfidence        int `json:"low_confidence"`
	Unmatched            int `json:"unmatched"`
	TransactionsAnalyzed int `json:"transactions_analyzed"`
	RulesActive          int `json:"rules_active"`
	AggregationsFound    int `json:"aggregations_found"`
}

// ParseAmount parses a decimal amount from a string, tolerating currency
// symbols and thousand separators.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount string cannot be empty")
	}

	s = strings.ReplaceAll(s, "R$", "")
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal format '%s': %w", s, err)
	}

	return d, nil
}

// ParseDate parses a date from a string using the formats seen in statement
// and ledger exports.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date string cannot be empty")
	}

	formats := []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02",
		"02/01/2006",
	}

	var lastErr error
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date '%s': %w", s, lastErr)
}

// DayOffset returns the whole-day difference between two dates, ignoring the
// time of day. Positive when a is after b.
func DayOffset(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(da.Sub(db).Hours() / 24)
}
