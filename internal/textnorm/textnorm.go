// Package textnorm canonicalizes free text and scores name similarity for
// counterparty matching. Similarity is a three-tier heuristic over normalized
// tokens, not an edit distance: bank-statement descriptions truncate and
// reorder names, which token overlap tolerates and edit distance does not.
package textnorm

import (
	"strings"
	"unicode"
)

// MinAcceptedSimilarity is the threshold below which a name comparison is
// treated as no match by downstream consumers.
const MinAcceptedSimilarity = 0.5

// Normalize canonicalizes text for comparison: uppercase, diacritics removed,
// everything but letters, digits and spaces stripped, whitespace collapsed.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	lastSpace := true
	for _, r := range s {
		r = unicode.ToUpper(stripDiacritic(r))

		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}

	return strings.TrimRight(b.String(), " ")
}

// stripDiacritic maps accented Latin letters to their base letter. Covers the
// accents that occur in statement descriptions; anything else passes through.
func stripDiacritic(r rune) rune {
	switch r {
	case 'á', 'à', 'â', 'ã', 'ä', 'Á', 'À', 'Â', 'Ã', 'Ä':
		if unicode.IsUpper(r) {
			return 'A'
		}
		return 'a'
	case 'é', 'è', 'ê', 'ë', 'É', 'È', 'Ê', 'Ë':
		if unicode.IsUpper(r) {
			return 'E'
		}
		return 'e'
	case 'í', 'ì', 'î', 'ï', 'Í', 'Ì', 'Î', 'Ï':
		if unicode.IsUpper(r) {
			return 'I'
		}
		return 'i'
	case 'ó', 'ò', 'ô', 'õ', 'ö', 'Ó', 'Ò', 'Ô', 'Õ', 'Ö':
		if unicode.IsUpper(r) {
			return 'O'
		}
		return 'o'
	case 'ú', 'ù', 'û', 'ü', 'Ú', 'Ù', 'Û', 'Ü':
		if unicode.IsUpper(r) {
			return 'U'
		}
		return 'u'
	case 'ç', 'Ç':
		if unicode.IsUpper(r) {
			return 'C'
		}
		return 'c'
	case 'ñ', 'Ñ':
		if unicode.IsUpper(r) {
			return 'N'
		}
		return 'n'
	}
	return r
}

// Similarity scores how alike two names are, in [0,1]:
//
//	1.0  - identical after normalization
//	0.95 - one normalized string contains the other
//	else - fraction of tokens shared, over the larger token set
//
// Tokens of length <= 2 are dropped before comparison; two tokens also count
// as shared when both have length >= 4 and one contains the other.
func Similarity(a, b string) float64 {
	normA := Normalize(a)
	normB := Normalize(b)

	if normA == normB {
		return 1.0
	}
	if normA == "" || normB == "" {
		return 0
	}
	if strings.Contains(normA, normB) || strings.Contains(normB, normA) {
		return 0.95
	}

	tokensA := significantTokens(normA)
	tokensB := significantTokens(normB)

	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	matching := 0
	for _, ta := range tokensA {
		for _, tb := range tokensB {
			if tokensRelated(ta, tb) {
				matching++
				break
			}
		}
	}

	denom := len(tokensA)
	if len(tokensB) > denom {
		denom = len(tokensB)
	}

	return float64(matching) / float64(denom)
}

func significantTokens(norm string) []string {
	fields := strings.Fields(norm)
	tokens := fields[:0]
	for _, f := range fields {
		if len(f) > 2 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

func tokensRelated(a, b string) bool {
	if a == b {
		return true
	}
	if len(a) >= 4 && len(b) >= 4 {
		return strings.Contains(a, b) || strings.Contains(b, a)
	}
	return false
}
