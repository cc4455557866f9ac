package matcher

import (
	"testing"

	"github.com/shopspring/decimal"

	"bank-reconciliation-engine/internal/models"
)

func testRules() []*models.ExtractRule {
	return []*models.ExtractRule{
		{ID: "rule-1", SearchText: "ALUGUEL GALPAO", CounterpartyID: "cp-1", Active: true},
		{ID: "rule-2", SearchText: "FOLHA PAGAMENTO", CounterpartyID: "cp-2", Active: true},
	}
}

func TestRuleMatch(t *testing.T) {
	m := NewRuleMatcher(DefaultConfig())

	pool := []*models.FinancialEntry{
		testEntry("P1", 5000, 10, "cp-1", models.EntryPayable),
	}

	hit := m.Match("DEB AUTOR ALUGUEL GALPAO 04/2026", decimal.NewFromFloat(5000), testRules(), pool)
	if hit == nil {
		t.Fatal("Expected a rule hit")
	}
	if hit.Rule.ID != "rule-1" || hit.Entry.ID != "P1" {
		t.Errorf("Expected rule-1/P1, got %s/%s", hit.Rule.ID, hit.Entry.ID)
	}
}

func TestRuleMatchAmountBand(t *testing.T) {
	m := NewRuleMatcher(DefaultConfig())

	// 5% band on 5000 admits up to 250 of difference
	pool := []*models.FinancialEntry{
		testEntry("IN_BAND", 5200, 10, "cp-1", models.EntryPayable),
	}
	hit := m.Match("ALUGUEL GALPAO", decimal.NewFromFloat(5000), testRules(), pool)
	if hit == nil || hit.Entry.ID != "IN_BAND" {
		t.Fatal("Expected entry inside the band to match")
	}

	pool = []*models.FinancialEntry{
		testEntry("OUT_OF_BAND", 5300, 10, "cp-1", models.EntryPayable),
	}
	if hit := m.Match("ALUGUEL GALPAO", decimal.NewFromFloat(5000), testRules(), pool); hit != nil {
		t.Errorf("Expected entry outside the band to be rejected, got %s", hit.Entry.ID)
	}
}

func TestRuleMatchIgnoresInactive(t *testing.T) {
	m := NewRuleMatcher(DefaultConfig())

	rules := []*models.ExtractRule{
		{ID: "rule-1", SearchText: "ALUGUEL GALPAO", CounterpartyID: "cp-1", Active: false},
	}
	pool := []*models.FinancialEntry{
		testEntry("P1", 5000, 10, "cp-1", models.EntryPayable),
	}

	if hit := m.Match("ALUGUEL GALPAO", decimal.NewFromFloat(5000), rules, pool); hit != nil {
		t.Error("Expected inactive rule to be skipped")
	}
}

func TestRuleMatchFirstRuleOnly(t *testing.T) {
	m := NewRuleMatcher(DefaultConfig())

	// The first matching rule pins cp-1, whose only entry is out of band.
	// The second rule also matches the description but must not be tried.
	rules := []*models.ExtractRule{
		{ID: "rule-1", SearchText: "PAGAMENTO", CounterpartyID: "cp-1", Active: true},
		{ID: "rule-2", SearchText: "FOLHA PAGAMENTO", CounterpartyID: "cp-2", Active: true},
	}
	pool := []*models.FinancialEntry{
		testEntry("P1", 9000, 10, "cp-1", models.EntryPayable),
		testEntry("P2", 5000, 10, "cp-2", models.EntryPayable),
	}

	if hit := m.Match("FOLHA PAGAMENTO 04/2026", decimal.NewFromFloat(5000), rules, pool); hit != nil {
		t.Errorf("Expected no hit once the first matching rule fails, got %s", hit.Rule.ID)
	}
}

func TestRuleMatchNormalizesSearchText(t *testing.T) {
	m := NewRuleMatcher(DefaultConfig())

	rules := []*models.ExtractRule{
		{ID: "rule-1", SearchText: "aluguel galpão", CounterpartyID: "cp-1", Active: true},
	}
	pool := []*models.FinancialEntry{
		testEntry("P1", 5000, 10, "cp-1", models.EntryPayable),
	}

	hit := m.Match("DEB ALUGUEL GALPAO ABRIL", decimal.NewFromFloat(5000), rules, pool)
	if hit == nil {
		t.Error("Expected accent-insensitive rule matching")
	}
}
