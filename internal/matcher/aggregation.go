package matcher

import (
	"sort"

	"bank-reconciliation-engine/internal/models"

	"github.com/shopspring/decimal"
)

// AggregationSolver searches for subsets of open entries whose amounts sum to
// a target, within an absolute tolerance. The search is a bounded
// depth-first backtrack; the caps on combination size and result count are
// load-bearing runtime bounds, not cosmetics.
type AggregationSolver struct {
	// MaxEntries caps the number of entries in one combination.
	MaxEntries int
	// MaxCombos caps how many combinations are recorded before the search
	// stops.
	MaxCombos int
	// Tolerance is the absolute amount tolerance for a valid sum.
	Tolerance decimal.Decimal
}

// NewAggregationSolver creates a solver with the engine's configured caps.
func NewAggregationSolver(cfg *Config) *AggregationSolver {
	return &AggregationSolver{
		MaxEntries: cfg.MaxAggregationEntries,
		MaxCombos:  cfg.MaxAggregationCombos,
		Tolerance:  cfg.AmountTolerance,
	}
}

// Combinations returns up to MaxCombos subsets of entries summing to target
// within the tolerance. Entries are tried in descending amount order and each
// combination advances past its chosen entries, so no entry repeats within a
// combination and no permutation is emitted twice. Single-entry sums are
// included; callers treating only size >= 2 as aggregations filter them out.
func (s *AggregationSolver) Combinations(target decimal.Decimal, entries []*models.FinancialEntry) [][]*models.FinancialEntry {
	sorted := make([]*models.FinancialEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Amount.GreaterThan(sorted[j].Amount)
	})

	var results [][]*models.FinancialEntry
	var path []*models.FinancialEntry

	var backtrack func(remaining decimal.Decimal, start int)
	backtrack = func(remaining decimal.Decimal, start int) {
		if len(results) >= s.MaxCombos {
			return
		}

		if remaining.Abs().LessThanOrEqual(s.Tolerance) {
			combo := make([]*models.FinancialEntry, len(path))
			copy(combo, path)
			results = append(results, combo)
			return
		}
		if len(path) >= s.MaxEntries {
			return
		}
		if start >= len(sorted) {
			return
		}
		if remaining.LessThan(s.Tolerance.Neg()) {
			return
		}

		for i := start; i < len(sorted); i++ {
			entry := sorted[i]

			// An entry larger than what remains cannot be part of a
			// valid sum from here.
			if entry.Amount.GreaterThan(remaining.Add(s.Tolerance)) {
				continue
			}

			path = append(path, entry)
			backtrack(remaining.Sub(entry.Amount), i+1)
			path = path[:len(path)-1]
		}
	}

	backtrack(target, 0)

	return results
}

// SumAmounts totals the amounts of a combination.
func SumAmounts(entries []*models.FinancialEntry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Amount)
	}
	return total
}
