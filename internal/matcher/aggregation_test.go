package matcher

import (
	"testing"

	"github.com/shopspring/decimal"

	"bank-reconciliation-engine/internal/models"
)

func TestCombinationsFindsPair(t *testing.T) {
	solver := NewAggregationSolver(DefaultConfig())

	entries := []*models.FinancialEntry{
		testEntry("A", 300, 10, "cp-1", models.EntryPayable),
		testEntry("B", 200, 11, "cp-1", models.EntryPayable),
		testEntry("C", 150, 12, "cp-1", models.EntryPayable),
	}

	combos := solver.Combinations(decimal.NewFromFloat(500), entries)
	if len(combos) == 0 {
		t.Fatal("Expected at least one combination")
	}

	found := false
	for _, combo := range combos {
		if len(combo) == 2 && containsEntry(combo, "A") && containsEntry(combo, "B") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected combination {A, B}, got %v", comboIDs(combos))
	}
}

func TestCombinationsNoEntryReuseWithinCombo(t *testing.T) {
	solver := NewAggregationSolver(DefaultConfig())

	// 250 + 250 would need the same entry twice
	entries := []*models.FinancialEntry{
		testEntry("A", 250, 10, "cp-1", models.EntryPayable),
	}

	combos := solver.Combinations(decimal.NewFromFloat(500), entries)
	if len(combos) != 0 {
		t.Errorf("Expected no combinations, got %v", comboIDs(combos))
	}
}

func TestCombinationsRespectsTolerance(t *testing.T) {
	solver := NewAggregationSolver(DefaultConfig())

	entries := []*models.FinancialEntry{
		testEntry("A", 300, 10, "cp-1", models.EntryPayable),
		testEntry("B", 200.005, 11, "cp-1", models.EntryPayable),
	}

	// 500.005 is within the 0.01 tolerance of 500
	combos := solver.Combinations(decimal.NewFromFloat(500), entries)
	if len(combos) == 0 {
		t.Error("Expected sum inside tolerance to be accepted")
	}

	entries[1].Amount = decimal.NewFromFloat(200.02)
	combos = solver.Combinations(decimal.NewFromFloat(500), entries)
	for _, combo := range combos {
		if len(combo) == 2 {
			t.Error("Expected sum outside tolerance to be rejected")
		}
	}
}

func TestCombinationsCapsResults(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxAggregationCombos = 2
	solver := NewAggregationSolver(cfg)

	// Many 100+400 style pairs sum to 500
	entries := []*models.FinancialEntry{
		testEntry("A1", 400, 10, "cp-1", models.EntryPayable),
		testEntry("A2", 400, 10, "cp-1", models.EntryPayable),
		testEntry("B1", 100, 10, "cp-1", models.EntryPayable),
		testEntry("B2", 100, 10, "cp-1", models.EntryPayable),
		testEntry("B3", 100, 10, "cp-1", models.EntryPayable),
	}

	combos := solver.Combinations(decimal.NewFromFloat(500), entries)
	if len(combos) > cfg.MaxAggregationCombos {
		t.Errorf("Expected at most %d combinations, got %d", cfg.MaxAggregationCombos, len(combos))
	}
}

func TestCombinationsCapsComboSize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxAggregationEntries = 3
	solver := NewAggregationSolver(cfg)

	// Only a 5-entry combination reaches the target
	entries := []*models.FinancialEntry{
		testEntry("A", 100, 10, "cp-1", models.EntryPayable),
		testEntry("B", 100, 10, "cp-1", models.EntryPayable),
		testEntry("C", 100, 10, "cp-1", models.EntryPayable),
		testEntry("D", 100, 10, "cp-1", models.EntryPayable),
		testEntry("E", 100, 10, "cp-1", models.EntryPayable),
	}

	combos := solver.Combinations(decimal.NewFromFloat(500), entries)
	for _, combo := range combos {
		if len(combo) > cfg.MaxAggregationEntries {
			t.Errorf("Expected combinations capped at %d entries, got %d", cfg.MaxAggregationEntries, len(combo))
		}
	}
}

func TestCombinationsDeterministicOrder(t *testing.T) {
	solver := NewAggregationSolver(DefaultConfig())

	entries := []*models.FinancialEntry{
		testEntry("A", 300, 10, "cp-1", models.EntryPayable),
		testEntry("B", 200, 11, "cp-1", models.EntryPayable),
		testEntry("C", 500, 12, "cp-1", models.EntryPayable),
	}

	first := comboIDs(solver.Combinations(decimal.NewFromFloat(500), entries))
	second := comboIDs(solver.Combinations(decimal.NewFromFloat(500), entries))

	if len(first) != len(second) {
		t.Fatalf("Expected identical runs, got %v vs %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("Expected identical runs, got %v vs %v", first, second)
		}
	}
}

func TestSumAmounts(t *testing.T) {
	entries := []*models.FinancialEntry{
		testEntry("A", 100.50, 10, "cp-1", models.EntryPayable),
		testEntry("B", 200.25, 11, "cp-1", models.EntryPayable),
	}

	total := SumAmounts(entries)
	if !total.Equal(decimal.NewFromFloat(300.75)) {
		t.Errorf("Expected 300.75, got %s", total.String())
	}
}

func containsEntry(combo []*models.FinancialEntry, id string) bool {
	for _, e := range combo {
		if e.ID == id {
			return true
		}
	}
	return false
}

func comboIDs(combos [][]*models.FinancialEntry) []string {
	var out []string
	for _, combo := range combos {
		for _, e := range combo {
			out = append(out, e.ID)
		}
		out = append(out, "|")
	}
	return out
}
