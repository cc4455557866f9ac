package matcher

import (
	"strings"

	"bank-reconciliation-engine/internal/models"
	"bank-reconciliation-engine/internal/textnorm"

	"github.com/shopspring/decimal"
)

// RuleHit is a successful statement-rule match.
type RuleHit struct {
	Rule  *models.ExtractRule
	Entry *models.FinancialEntry
}

// RuleMatcher matches statement descriptions against operator-configured
// exception rules. A rule fires when its normalized search text is a
// substring of the normalized description; with a pinned counterparty, the
// first of that counterparty's candidates inside the relative amount band is
// taken.
type RuleMatcher struct {
	cfg *Config
}

// NewRuleMatcher creates a rule matcher with the given configuration.
func NewRuleMatcher(cfg *Config) *RuleMatcher {
	return &RuleMatcher{cfg: cfg}
}

// Match evaluates the rules in order against the description. Only the first
// rule whose search text appears in the description is considered; if that
// rule yields no usable entry the remaining rules are not tried, matching the
// operator's expectation that rules are mutually exclusive carve-outs.
func (m *RuleMatcher) Match(description string, txAmount decimal.Decimal, rules []*models.ExtractRule, pool []*models.FinancialEntry) *RuleHit {
	if description == "" {
		return nil
	}

	normalizedDesc := textnorm.Normalize(description)
	band := txAmount.Mul(decimal.NewFromFloat(m.cfg.RuleValueTolerancePercent / 100.0))

	for _, rule := range rules {
		if !rule.Active {
			continue
		}

		if !strings.Contains(normalizedDesc, textnorm.Normalize(rule.SearchText)) {
			continue
		}

		if rule.CounterpartyID != "" {
			for _, entry := range pool {
				if entry.CounterpartyID != rule.CounterpartyID {
					continue
				}

				diff := entry.Amount.Sub(txAmount).Abs()
				if diff.LessThanOrEqual(band) {
					return &RuleHit{Rule: rule, Entry: entry}
				}
			}
		}

		return nil
	}

	return nil
}
