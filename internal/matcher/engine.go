package matcher

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"bank-reconciliation-engine/internal/extract"
	"bank-reconciliation-engine/internal/models"
	"bank-reconciliation-engine/internal/textnorm"
	"bank-reconciliation-engine/pkg/logger"
)

// Snapshot is the immutable input to one matching run: everything is bulk
// loaded before matching begins and no storage is touched during scoring.
type Snapshot struct {
	Transactions []*models.BankTransaction
	Payables     []*models.FinancialEntry
	Receivables  []*models.FinancialEntry
	Entities     []*models.Entity
	Rules        []*models.ExtractRule
	Settings     models.RunSettings
}

// Result is the ranked outcome of one matching run.
type Result struct {
	Suggestions []*models.Suggestion           `json:"suggestions"`
	Unmatched   []*models.UnmatchedTransaction `json:"unmatched_transactions"`
	Summary     models.Summary                 `json:"summary"`
}

// Engine runs the strategy pipeline over a snapshot and assembles ranked
// suggestions. It holds no run state; the used-entry accumulator lives for
// the duration of one Suggest call.
type Engine struct {
	cfg       *Config
	log       logger.Logger
	extractor *extract.Extractor
}

// NewEngine creates a matching engine with the given configuration.
func NewEngine(cfg *Config, log logger.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid matcher configuration: %w", err)
	}

	return &Engine{
		cfg:       cfg,
		log:       logger.OrDiscard(log).WithComponent("matcher"),
		extractor: extract.New(),
	}, nil
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() *Config {
	return e.cfg.Clone()
}

// Suggest processes the snapshot's transactions strictly in order and
// returns ranked suggestions, the unmatched transactions and a run summary.
//
// Processing is sequential on purpose: the first transaction to claim an
// entry wins, and that claim must be reproducible. Given an unchanged
// snapshot, two runs produce identical output.
func (e *Engine) Suggest(snap *Snapshot, maxSuggestions int) (*Result, error) {
	if snap == nil {
		return nil, fmt.Errorf("snapshot is required")
	}

	cfg := e.runConfig(snap.Settings)
	finder := NewCandidateFinder(cfg)
	solver := NewAggregationSolver(cfg)
	ruleMatcher := NewRuleMatcher(cfg)

	var suggestions []*models.Suggestion
	var unmatched []*models.UnmatchedTransaction
	used := newUsedSet()

	for _, tx := range snap.Transactions {
		extractedName, _ := e.extractor.Name(tx.Description)

		if err := tx.Validate(); err != nil {
			// Anomalous records go to the unmatched list; a bad row must
			// not sink the batch.
			e.log.WithError(err).WithField("transaction_id", tx.ID).
				Warn("skipping malformed transaction")
			unmatched = append(unmatched, unmatchedFrom(tx, extractedName))
			continue
		}

		outcomes := e.evaluate(tx, extractedName, snap, cfg, finder, solver, ruleMatcher, used)

		if best := bestOutcome(outcomes); best != nil {
			used.consume(best.EntryIDs()...)
			suggestions = append(suggestions, best)
			continue
		}

		unmatched = append(unmatched, unmatchedFrom(tx, extractedName))
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Score > suggestions[j].Score
	})

	if maxSuggestions > 0 && len(suggestions) > maxSuggestions {
		suggestions = suggestions[:maxSuggestions]
	}

	result := &Result{
		Suggestions: suggestions,
		Unmatched:   unmatched,
		Summary:     e.summarize(suggestions, unmatched, snap),
	}

	e.log.WithFields(logger.Fields{
		"transactions": len(snap.Transactions),
		"suggestions":  len(suggestions),
		"unmatched":    len(unmatched),
	}).Info("matching run complete")

	return result, nil
}

// runConfig applies the per-tenant settings on top of the engine defaults.
func (e *Engine) runConfig(settings models.RunSettings) *Config {
	cfg := e.cfg.Clone()
	if settings.DateToleranceDays > 0 {
		cfg.DateToleranceDays = settings.DateToleranceDays
	}
	if settings.ValueTolerancePercent > 0 {
		cfg.ValueTolerancePercent = settings.ValueTolerancePercent
	}
	return cfg
}

// evaluate runs the strategy pipeline for a single transaction and collects
// every successful outcome. Strategies never fail the run; one that cannot
// apply simply contributes nothing.
func (e *Engine) evaluate(
	tx *models.BankTransaction,
	extractedName string,
	snap *Snapshot,
	cfg *Config,
	finder *CandidateFinder,
	solver *AggregationSolver,
	ruleMatcher *RuleMatcher,
	used usedSet,
) []*models.Suggestion {
	var outcomes []*models.Suggestion

	txAmount := tx.AbsAmount()
	pool := finder.Pool(tx, snap.Payables, snap.Receivables, used)

	// Strategy 1: verbatim internal reference number. Name-independent and
	// the strongest evidence available, so it searches the whole sign pool
	// regardless of due dates.
	if s := e.matchReference(tx, txAmount, pool, cfg); s != nil {
		outcomes = append(outcomes, s)
	}

	// Strategies 2 and 3 need a recognized counterparty.
	var entityMatch *EntityMatch
	if extractedName != "" {
		entityMatch = BestEntityMatch(extractedName, snap.Entities, cfg.MinSimilarity)
	}

	if entityMatch != nil {
		entityCandidates := finder.Select(tx, entityMatch.Entity.ID, pool)

		if s := e.matchExact(tx, txAmount, extractedName, entityMatch, entityCandidates, cfg); s != nil {
			outcomes = append(outcomes, s)
		}

		if len(entityCandidates) >= 2 {
			outcomes = append(outcomes,
				e.matchAggregations(tx, txAmount, extractedName, entityMatch, entityCandidates, cfg, solver)...)
		}
	}

	// Strategy 4: value-only fallback, only when nothing name-based (or
	// reference-based) matched.
	if len(outcomes) == 0 {
		if s := e.matchValueOnly(tx, txAmount, extractedName, finder.Select(tx, "", pool), cfg); s != nil {
			outcomes = append(outcomes, s)
		}
	}

	// Strategy 5: operator rules as the last resort.
	if len(outcomes) == 0 {
		if hit := ruleMatcher.Match(tx.Description, txAmount, snap.Rules, pool); hit != nil {
			outcomes = append(outcomes, e.buildRuleSuggestion(tx, txAmount, hit, cfg))
		}
	}

	return outcomes
}

// matchReference finds an unconsumed entry whose internal reference number
// appears verbatim in the transaction's settlement code or description. The
// first hit in ledger order wins.
func (e *Engine) matchReference(tx *models.BankTransaction, txAmount decimal.Decimal, pool []*models.FinancialEntry, cfg *Config) *models.Suggestion {
	searchIn := strings.TrimSpace(tx.SettlementCode + " " + tx.Description)
	if searchIn == "" {
		return nil
	}

	for _, entry := range pool {
		if entry.ReferenceNumber == "" || !strings.Contains(searchIn, entry.ReferenceNumber) {
			continue
		}

		return &models.Suggestion{
			TransactionID: tx.ID,
			Entries:       suggestionEntries(entry),
			Score:         cfg.Scoring.Reference,
			Level:         models.ConfidenceHigh,
			MatchType:     models.MatchReference,
			Reasons: []string{
				fmt.Sprintf("reference number %s found in transaction", entry.ReferenceNumber),
			},
			TotalMatched:   entry.Amount,
			Difference:     txAmount.Sub(entry.Amount).Abs(),
			RequiresReview: false,
		}
	}

	return nil
}

// matchExact pairs the transaction with the first same-amount entry among
// the recognized counterparty's candidates. Candidates arrive overdue first,
// then near future, so settling an overdue entry is preferred over an
// identical advance payment.
func (e *Engine) matchExact(
	tx *models.BankTransaction,
	txAmount decimal.Decimal,
	extractedName string,
	entityMatch *EntityMatch,
	candidates []*models.FinancialEntry,
	cfg *Config,
) *models.Suggestion {
	tolerance := cfg.EffectiveAmountTolerance(txAmount)

	for _, entry := range candidates {
		if txAmount.Sub(entry.Amount).Abs().GreaterThanOrEqual(tolerance) {
			continue
		}

		diff := txAmount.Sub(entry.Amount).Abs()

		amountReason := "amounts match exactly"
		if !diff.IsZero() {
			amountReason = fmt.Sprintf("amounts match within tolerance (difference %s)", diff.String())
		}

		score := cfg.Scoring.exactScoreFor(entityMatch.Similarity)
		reasons := []string{
			fmt.Sprintf("extracted name '%s' matches '%s' (similarity %.0f%%)",
				extractedName, entityMatch.MatchedName, entityMatch.Similarity*100),
			amountReason,
		}

		offset := models.DayOffset(entry.DueDate, tx.Date)
		score, requiresReview := cfg.Scoring.applyAdvancePenalty(score, offset)
		if offset > 0 {
			reasons = append(reasons,
				fmt.Sprintf("entry due %d day(s) after the transaction (advance payment)", offset))
		}

		return &models.Suggestion{
			TransactionID:  tx.ID,
			Entries:        suggestionEntries(entry),
			Score:          score,
			Level:          cfg.Scoring.exactLevelFor(score),
			MatchType:      models.MatchExactOneToOne,
			Reasons:        reasons,
			TotalMatched:   entry.Amount,
			Difference:     diff,
			RequiresReview: requiresReview,
			ExtractedName:  extractedName,
			MatchedEntity:  entityMatch.Entity.DisplayName(),
		}
	}

	return nil
}

// matchAggregations proposes multi-entry settlements for the recognized
// counterparty. Every combination of two or more entries summing to the
// transaction amount becomes its own outcome; aggregations always require
// review because confirming one books several ledger entries at once.
func (e *Engine) matchAggregations(
	tx *models.BankTransaction,
	txAmount decimal.Decimal,
	extractedName string,
	entityMatch *EntityMatch,
	candidates []*models.FinancialEntry,
	cfg *Config,
	solver *AggregationSolver,
) []*models.Suggestion {
	var outcomes []*models.Suggestion

	for _, combo := range solver.Combinations(txAmount, candidates) {
		if len(combo) < 2 {
			continue
		}

		total := SumAmounts(combo)
		score := cfg.Scoring.aggregationScoreFor(entityMatch.Similarity)

		level := models.ConfidenceMedium
		if score >= cfg.Scoring.HighThreshold {
			level = models.ConfidenceHigh
		}

		outcomes = append(outcomes, &models.Suggestion{
			TransactionID: tx.ID,
			Entries:       suggestionEntries(combo...),
			Score:         score,
			Level:         level,
			MatchType:     models.MatchAggregation,
			Reasons: []string{
				fmt.Sprintf("%d entries for '%s' sum to the transaction amount",
					len(combo), entityMatch.MatchedName),
			},
			TotalMatched:   total,
			Difference:     txAmount.Sub(total).Abs(),
			RequiresReview: true,
			ExtractedName:  extractedName,
			MatchedEntity:  entityMatch.Entity.DisplayName(),
		})
	}

	return outcomes
}

// matchValueOnly pairs the transaction with the first same-amount candidate
// regardless of counterparty. A candidate whose counterparty name clearly
// contradicts the extracted name is skipped rather than proposed.
func (e *Engine) matchValueOnly(
	tx *models.BankTransaction,
	txAmount decimal.Decimal,
	extractedName string,
	candidates []*models.FinancialEntry,
	cfg *Config,
) *models.Suggestion {
	tolerance := cfg.EffectiveAmountTolerance(txAmount)

	for _, entry := range candidates {
		if txAmount.Sub(entry.Amount).Abs().GreaterThanOrEqual(tolerance) {
			continue
		}

		if extractedName != "" && entry.CounterpartyName != "" {
			if textnorm.Similarity(extractedName, entry.CounterpartyName) < cfg.NameConflictSimilarity {
				continue
			}
		}

		return &models.Suggestion{
			TransactionID: tx.ID,
			Entries:       suggestionEntries(entry),
			Score:         cfg.Scoring.ValueOnly,
			Level:         models.ConfidenceLow,
			MatchType:     models.MatchValueOnly,
			Reasons: []string{
				"amount and date window match, counterparty unverified",
			},
			TotalMatched:   entry.Amount,
			Difference:     txAmount.Sub(entry.Amount).Abs(),
			RequiresReview: true,
			ExtractedName:  extractedName,
		}
	}

	return nil
}

// buildRuleSuggestion turns a rule hit into a suggestion pinned to the
// rule's counterparty.
func (e *Engine) buildRuleSuggestion(tx *models.BankTransaction, txAmount decimal.Decimal, hit *RuleHit, cfg *Config) *models.Suggestion {
	return &models.Suggestion{
		TransactionID: tx.ID,
		Entries:       suggestionEntries(hit.Entry),
		Score:         cfg.Scoring.Rule,
		Level:         models.ConfidenceHigh,
		MatchType:     models.MatchRule,
		Reasons: []string{
			fmt.Sprintf("statement rule '%s' matched the description", hit.Rule.SearchText),
		},
		TotalMatched:   hit.Entry.Amount,
		Difference:     txAmount.Sub(hit.Entry.Amount).Abs(),
		RuleID:         hit.Rule.ID,
		RequiresReview: false,
	}
}

// bestOutcome picks the highest-scoring outcome. Ties keep the earlier
// outcome, which preserves the strategy pipeline's precedence order.
func bestOutcome(outcomes []*models.Suggestion) *models.Suggestion {
	var best *models.Suggestion
	for _, s := range outcomes {
		if best == nil || s.Score > best.Score {
			best = s
		}
	}
	return best
}

func (e *Engine) summarize(suggestions []*models.Suggestion, unmatched []*models.UnmatchedTransaction, snap *Snapshot) models.Summary {
	summary := models.Summary{
		TotalSuggestions:     len(suggestions),
		Unmatched:            len(unmatched),
		TransactionsAnalyzed: len(snap.Transactions),
	}

	for _, rule := range snap.Rules {
		if rule.Active {
			summary.RulesActive++
		}
	}

	for _, s := range suggestions {
		switch s.Level {
		case models.ConfidenceHigh:
			summary.HighConfidence++
		case models.ConfidenceMedium:
			summary.MediumConfidence++
		default:
			summary.LowConfidence++
		}

		if s.MatchType == models.MatchAggregation {
			summary.AggregationsFound++
		}
	}

	return summary
}

func unmatchedFrom(tx *models.BankTransaction, extractedName string) *models.UnmatchedTransaction {
	return &models.UnmatchedTransaction{
		ID:            tx.ID,
		Date:          tx.Date,
		Description:   tx.Description,
		Amount:        tx.Amount,
		ExtractedName: extractedName,
	}
}

func suggestionEntries(entries ...*models.FinancialEntry) []models.SuggestionEntry {
	out := make([]models.SuggestionEntry, len(entries))
	for i, entry := range entries {
		out[i] = models.SuggestionEntry{
			EntryID:          entry.ID,
			Kind:             entry.Kind,
			Amount:           entry.Amount,
			AmountUsed:       entry.Amount,
			CounterpartyName: entry.CounterpartyName,
			DueDate:          entry.DueDate,
			DocumentNumber:   entry.DocumentNumber,
		}
	}
	return out
}
