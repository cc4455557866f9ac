package matcher

import (
	"bank-reconciliation-engine/internal/models"
)

// levelFor maps a score to a confidence level with the default thresholds.
func (sp *ScoringParams) levelFor(score int) models.ConfidenceLevel {
	switch {
	case score >= sp.HighThreshold:
		return models.ConfidenceHigh
	case score >= sp.MediumThreshold:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

// exactLevelFor maps a penalized exact-match score to a level. The high
// boundary is lower than the default one: an exact name+value pairing stays
// high confidence even after a small advance-payment penalty.
func (sp *ScoringParams) exactLevelFor(score int) models.ConfidenceLevel {
	switch {
	case score >= sp.ExactHighThreshold:
		return models.ConfidenceHigh
	case score >= sp.MediumThreshold:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

// exactScoreFor returns the base exact-1:1 score for a name similarity.
func (sp *ScoringParams) exactScoreFor(similarity float64) int {
	switch {
	case similarity >= sp.StrongSimilarity:
		return sp.ExactStrong
	case similarity >= sp.GoodSimilarity:
		return sp.ExactGood
	default:
		return sp.ExactWeak
	}
}

// aggregationScoreFor returns the aggregation score for a name similarity.
func (sp *ScoringParams) aggregationScoreFor(similarity float64) int {
	switch {
	case similarity >= sp.StrongSimilarity:
		return sp.AggregationStrong
	case similarity >= sp.GoodSimilarity:
		return sp.AggregationGood
	default:
		return sp.AggregationWeak
	}
}

// applyAdvancePenalty penalizes an exact match whose entry falls due after
// the transaction date: the payment would have been made in advance, which
// is unusual and lowers confidence. Returns the adjusted score and whether
// the offset is large enough to force review. On-time and overdue entries
// are untouched.
func (sp *ScoringParams) applyAdvancePenalty(score, dayOffset int) (int, bool) {
	if dayOffset <= 0 {
		return score, false
	}

	score -= sp.AdvancePenaltyPerDay * dayOffset
	if score < sp.AdvancePenaltyFloor {
		score = sp.AdvancePenaltyFloor
	}

	return score, dayOffset > sp.AdvanceReviewDays
}
