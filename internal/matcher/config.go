// Package matcher implements the bank reconciliation matching engine: given
// a snapshot of unreconciled bank transactions and open ledger entries, it
// proposes ranked, explainable match suggestions for human confirmation.
//
// The engine runs a fixed strategy pipeline per transaction:
//  1. Reference-number match (verbatim internal reference in the statement)
//  2. Exact 1:1 name+value match against a recognized counterparty
//  3. Aggregation (1:N) subset-sum match for the same counterparty
//  4. Value-only fallback when no name evidence exists
//  5. Operator-configured statement rules
//
// All successful outcomes are collected and the highest-scoring one wins.
// Entries consumed by a suggestion are unavailable to later transactions in
// the same run; the engine never mutates ledger state.
//
// Example usage:
//
//	engine := matcher.NewEngine(matcher.DefaultConfig(), log)
//	result, err := engine.Suggest(snapshot, 100)
package matcher

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Config holds the matching tolerances and scoring parameters.
//
// The numeric values are operational heuristics inherited from production
// tuning, not derived business rules. They are configuration, not constants,
// precisely so they can be re-tuned without touching the pipeline.
type Config struct {
	// DateToleranceDays widens the near-future candidate window beyond the
	// grace days. Overridable per tenant and per request.
	DateToleranceDays int `json:"date_tolerance_days"`

	// ValueTolerancePercent optionally widens the amount tolerance to a
	// percentage of the transaction amount. Zero keeps the absolute
	// tolerance only.
	ValueTolerancePercent float64 `json:"value_tolerance_percent"`

	// NearFutureGraceDays is the minimum number of days after the
	// transaction date an entry may be due and still be a candidate.
	NearFutureGraceDays int `json:"near_future_grace_days"`

	// AmountTolerance is the absolute tolerance for exact-value and
	// subset-sum comparisons.
	AmountTolerance decimal.Decimal `json:"amount_tolerance"`

	// MinSimilarity is the acceptance threshold for a counterparty name
	// match.
	MinSimilarity float64 `json:"min_similarity"`

	// NameConflictSimilarity is the threshold below which an extracted name
	// actively contradicts a candidate's counterparty on value-only matches.
	NameConflictSimilarity float64 `json:"name_conflict_similarity"`

	// MaxAggregationEntries caps the entries per aggregation combination.
	MaxAggregationEntries int `json:"max_aggregation_entries"`

	// MaxAggregationCombos caps the combinations the subset-sum search may
	// record before stopping.
	MaxAggregationCombos int `json:"max_aggregation_combos"`

	// RuleValueTolerancePercent is the relative amount band for rule-based
	// matches.
	RuleValueTolerancePercent float64 `json:"rule_value_tolerance_percent"`

	// Scoring holds the per-strategy score and level parameters.
	Scoring ScoringParams `json:"scoring"`
}

// ScoringParams are the per-strategy confidence scores, penalties and level
// thresholds.
type ScoringParams struct {
	Reference int `json:"reference"`

	// Exact 1:1 scores by similarity tier.
	ExactStrong int `json:"exact_strong"`
	ExactGood   int `json:"exact_good"`
	ExactWeak   int `json:"exact_weak"`

	// Aggregation scores by similarity tier.
	AggregationStrong int `json:"aggregation_strong"`
	AggregationGood   int `json:"aggregation_good"`
	AggregationWeak   int `json:"aggregation_weak"`

	ValueOnly int `json:"value_only"`
	Rule      int `json:"rule"`

	// StrongSimilarity and GoodSimilarity delimit the tier boundaries.
	StrongSimilarity float64 `json:"strong_similarity"`
	GoodSimilarity   float64 `json:"good_similarity"`

	// AdvancePenaltyPerDay is subtracted per day an entry's due date lies
	// after the transaction date (payment in advance), floored at
	// AdvancePenaltyFloor. Offsets beyond AdvanceReviewDays force review.
	AdvancePenaltyPerDay int `json:"advance_penalty_per_day"`
	AdvancePenaltyFloor  int `json:"advance_penalty_floor"`
	AdvanceReviewDays    int `json:"advance_review_days"`

	// HighThreshold and MediumThreshold drive the default level mapping.
	// ExactHighThreshold is the high boundary on the penalized exact path.
	HighThreshold      int `json:"high_threshold"`
	MediumThreshold    int `json:"medium_threshold"`
	ExactHighThreshold int `json:"exact_high_threshold"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() *Config {
	return &Config{
		DateToleranceDays:         5,
		ValueTolerancePercent:     0,
		NearFutureGraceDays:       3,
		AmountTolerance:           decimal.NewFromFloat(0.01),
		MinSimilarity:             0.5,
		NameConflictSimilarity:    0.3,
		MaxAggregationEntries:     10,
		MaxAggregationCombos:      5,
		RuleValueTolerancePercent: 5.0,
		Scoring: ScoringParams{
			Reference:            99,
			ExactStrong:          98,
			ExactGood:            92,
			ExactWeak:            85,
			AggregationStrong:    92,
			AggregationGood:      85,
			AggregationWeak:      75,
			ValueOnly:            60,
			Rule:                 95,
			StrongSimilarity:     0.9,
			GoodSimilarity:       0.7,
			AdvancePenaltyPerDay: 2,
			AdvancePenaltyFloor:  40,
			AdvanceReviewDays:    7,
			HighThreshold:        90,
			MediumThreshold:      60,
			ExactHighThreshold:   80,
		},
	}
}

// Validate checks the configuration for out-of-range values.
func (c *Config) Validate() error {
	if c.DateToleranceDays < 0 {
		return fmt.Errorf("date tolerance days cannot be negative: %d", c.DateToleranceDays)
	}

	if c.ValueTolerancePercent < 0 || c.ValueTolerancePercent > 100 {
		return fmt.Errorf("value tolerance percent must be between 0 and 100: %f", c.ValueTolerancePercent)
	}

	if c.NearFutureGraceDays < 0 {
		return fmt.Errorf("near-future grace days cannot be negative: %d", c.NearFutureGraceDays)
	}

	if c.AmountTolerance.IsNegative() {
		return fmt.Errorf("amount tolerance cannot be negative: %s", c.AmountTolerance.String())
	}

	if c.MinSimilarity < 0 || c.MinSimilarity > 1 {
		return fmt.Errorf("minimum similarity must be between 0 and 1: %f", c.MinSimilarity)
	}

	if c.NameConflictSimilarity < 0 || c.NameConflictSimilarity > c.MinSimilarity {
		return fmt.Errorf("name conflict similarity must be between 0 and the minimum similarity: %f", c.NameConflictSimilarity)
	}

	if c.MaxAggregationEntries < 2 {
		return fmt.Errorf("max aggregation entries must be at least 2: %d", c.MaxAggregationEntries)
	}

	if c.MaxAggregationCombos <= 0 {
		return fmt.Errorf("max aggregation combos must be positive: %d", c.MaxAggregationCombos)
	}

	if c.RuleValueTolerancePercent < 0 || c.RuleValueTolerancePercent > 100 {
		return fmt.Errorf("rule value tolerance percent must be between 0 and 100: %f", c.RuleValueTolerancePercent)
	}

	return c.Scoring.Validate()
}

// Validate checks the scoring parameters for out-of-range values.
func (sp *ScoringParams) Validate() error {
	scores := []struct {
		name  string
		value int
	}{
		{"reference", sp.Reference},
		{"exact_strong", sp.ExactStrong},
		{"exact_good", sp.ExactGood},
		{"exact_weak", sp.ExactWeak},
		{"aggregation_strong", sp.AggregationStrong},
		{"aggregation_good", sp.AggregationGood},
		{"aggregation_weak", sp.AggregationWeak},
		{"value_only", sp.ValueOnly},
		{"rule", sp.Rule},
	}

	for _, s := range scores {
		if s.value < 0 || s.value > 100 {
			return fmt.Errorf("score %s must be between 0 and 100: %d", s.name, s.value)
		}
	}

	if sp.StrongSimilarity < sp.GoodSimilarity {
		return fmt.Errorf("strong similarity tier must not be below the good tier")
	}

	if sp.AdvancePenaltyPerDay < 0 {
		return fmt.Errorf("advance penalty per day cannot be negative: %d", sp.AdvancePenaltyPerDay)
	}

	if sp.AdvancePenaltyFloor < 0 || sp.AdvancePenaltyFloor > 100 {
		return fmt.Errorf("advance penalty floor must be between 0 and 100: %d", sp.AdvancePenaltyFloor)
	}

	if sp.HighThreshold <= sp.MediumThreshold {
		return fmt.Errorf("high threshold must be above medium threshold")
	}

	return nil
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}

	clone := *c
	return &clone
}

// CandidateWindowDays returns how many days after the transaction date an
// entry may still be due and remain a candidate. The per-tenant date
// tolerance extends the fixed grace window, never shrinks it.
func (c *Config) CandidateWindowDays() int {
	if c.DateToleranceDays > c.NearFutureGraceDays {
		return c.DateToleranceDays
	}
	return c.NearFutureGraceDays
}

// EffectiveAmountTolerance returns the amount tolerance for the given
// transaction amount, widened by the relative tolerance when configured.
func (c *Config) EffectiveAmountTolerance(txAmount decimal.Decimal) decimal.Decimal {
	if c.ValueTolerancePercent <= 0 {
		return c.AmountTolerance
	}

	relative := txAmount.Abs().Mul(decimal.NewFromFloat(c.ValueTolerancePercent / 100.0))
	if relative.GreaterThan(c.AmountTolerance) {
		return relative
	}
	return c.AmountTolerance
}

// String returns a human-readable description of the configuration.
func (c *Config) String() string {
	return fmt.Sprintf("Config{DateTolerance: %d days, Grace: %d days, AmountTolerance: %s, MinSimilarity: %.2f, AggCaps: %d/%d}",
		c.DateToleranceDays, c.NearFutureGraceDays, c.AmountTolerance.String(), c.MinSimilarity,
		c.MaxAggregationEntries, c.MaxAggregationCombos)
}
