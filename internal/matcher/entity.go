package matcher

import (
	"bank-reconciliation-engine/internal/models"
	"bank-reconciliation-engine/internal/textnorm"
)

// EntityMatch is the best counterparty found for an extracted name.
type EntityMatch struct {
	Entity      *models.Entity
	MatchedName string
	Similarity  float64
}

// BestEntityMatch finds the known counterparty whose legal or trade name is
// most similar to the extracted name. Both names of every entity are scored
// independently; the single best (entity, name, similarity) triple wins.
// Returns nil when nothing reaches the minimum similarity.
func BestEntityMatch(extractedName string, entities []*models.Entity, minSimilarity float64) *EntityMatch {
	if extractedName == "" {
		return nil
	}

	var best *EntityMatch

	for _, entity := range entities {
		if entity.LegalName != "" {
			sim := textnorm.Similarity(extractedName, entity.LegalName)
			if sim >= minSimilarity && (best == nil || sim > best.Similarity) {
				best = &EntityMatch{Entity: entity, MatchedName: entity.LegalName, Similarity: sim}
			}
		}

		if entity.TradeName != "" {
			sim := textnorm.Similarity(extractedName, entity.TradeName)
			if sim >= minSimilarity && (best == nil || sim > best.Similarity) {
				best = &EntityMatch{Entity: entity, MatchedName: entity.TradeName, Similarity: sim}
			}
		}
	}

	return best
}
