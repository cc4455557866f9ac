// Package extract pulls counterparty names out of bank-statement
// descriptions. Extraction is an ordered list of pattern rules tried in
// priority order; the first rule that matches wins and later rules are never
// consulted. Each rule can scrub its capture before the shared cleanup pass.
package extract

import (
	"regexp"
	"strings"
)

// minNameLength discards captures too short to be a usable name.
const minNameLength = 3

// Rule is one (pattern, cleanup) extraction step.
type Rule struct {
	// Name identifies the rule in logs and tests.
	Name string

	// Pattern captures the candidate name in group 1.
	Pattern *regexp.Regexp

	// TrimLeading strips leading digits, separators and colons from the
	// capture before cleanup. Used by rules whose capture may start with a
	// bank code.
	TrimLeading bool
}

var (
	leadingJunk     = regexp.MustCompile(`^[\d\s\-:]+`)
	trailingJunk    = regexp.MustCompile(`[*\-\s]+$`)
	referenceDigits = regexp.MustCompile(`\d{6,}`)
	legalSuffix     = regexp.MustCompile(`(?i)\s+(LTDA|ME|EPP|EIRELI|S/A|SA)\.?$`)
)

// DefaultRules returns the extraction rules in priority order: instant
// transfers with a code prefix, instant transfers with an inline name, wire
// transfers, generic transfers, then card-settlement merchants.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:    "instant_transfer_coded",
			Pattern: regexp.MustCompile(`(?i)PIX\s+(?:ENVIADO|RECEBIDO)\s*-\s*(?:Cp\s*:?\s*)?[\d\-]*-?\s*(.+)`),
		},
		{
			Name:        "instant_transfer_direct",
			Pattern:     regexp.MustCompile(`(?i)PIX\s+(?:ENVIADO|RECEBIDO)\s+(?:DE\s+|PARA\s+)?(.+)`),
			TrimLeading: true,
		},
		{
			Name:    "wire_transfer",
			Pattern: regexp.MustCompile(`(?i)TED\s+[\d\s]+(.+)`),
		},
		{
			Name:        "generic_transfer",
			Pattern:     regexp.MustCompile(`(?i)TRANSF(?:ERENCIA)?\s+(?:PIX\s+)?(?:DE\s+|PARA\s+)?(.+)`),
			TrimLeading: true,
		},
		{
			Name:    "card_settlement",
			Pattern: regexp.MustCompile(`(?i)PAG\*(.+)`),
		},
	}
}

// Extractor extracts counterparty names using an ordered rule list.
type Extractor struct {
	rules []Rule
}

// New creates an extractor with the given rules, or the defaults when none
// are provided.
func New(rules ...Rule) *Extractor {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Extractor{rules: rules}
}

// Name extracts a counterparty name from a statement description. The second
// return value is false when no rule matched or the capture was unusable.
func (e *Extractor) Name(description string) (string, bool) {
	if strings.TrimSpace(description) == "" {
		return "", false
	}

	for _, rule := range e.rules {
		m := rule.Pattern.FindStringSubmatch(description)
		if m == nil || m[1] == "" {
			continue
		}

		candidate := strings.TrimSpace(m[1])
		if rule.TrimLeading {
			candidate = strings.TrimSpace(leadingJunk.ReplaceAllString(candidate, ""))
		}

		name := cleanup(candidate)
		if len(name) < minNameLength {
			return "", false
		}
		return name, true
	}

	return "", false
}

// cleanup applies the shared post-match scrub: trailing punctuation, long
// digit runs (reference numbers) and a trailing legal-entity suffix token.
func cleanup(name string) string {
	name = strings.TrimSpace(trailingJunk.ReplaceAllString(name, ""))
	name = strings.TrimSpace(referenceDigits.ReplaceAllString(name, ""))
	name = strings.TrimSpace(legalSuffix.ReplaceAllString(name, ""))
	return name
}
