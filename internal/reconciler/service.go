// Package reconciler coordinates one suggestion run: it validates the
// request, bulk loads the tenant's snapshot from storage and hands it to
// the matching engine. It owns no matching logic of its own.
package reconciler

import (
	"context"
	"time"

	"github.com/google/uuid"

	"bank-reconciliation-engine/internal/matcher"
	"bank-reconciliation-engine/internal/models"
	"bank-reconciliation-engine/pkg/errors"
	"bank-reconciliation-engine/pkg/logger"
)

// DefaultMaxSuggestions caps the ranked suggestion list when the request
// does not say otherwise.
const DefaultMaxSuggestions = 100

// DataSource is the read surface the service needs from storage. All loads
// happen up front; matching itself never touches the source.
type DataSource interface {
	UnreconciledTransactions(ctx context.Context, companyID string) ([]*models.BankTransaction, error)
	OpenEntries(ctx context.Context, companyID string, kind models.EntryKind) ([]*models.FinancialEntry, error)
	Entities(ctx context.Context, companyID string) ([]*models.Entity, error)
	ActiveRules(ctx context.Context, companyID string) ([]*models.ExtractRule, error)
	Settings(ctx context.Context, companyID string) (models.RunSettings, error)
}

// RunRequest describes one suggestion run.
type RunRequest struct {
	// CompanyID selects the tenant. Required.
	CompanyID string `json:"company_id"`

	// Kind optionally restricts matching to payables or receivables.
	// Empty means both.
	Kind models.EntryKind `json:"kind,omitempty"`

	// MaxSuggestions caps the ranked list. Zero applies the default.
	MaxSuggestions int `json:"max_suggestions,omitempty"`

	// DateToleranceDays overrides the tenant's stored tolerance for this
	// run when positive.
	DateToleranceDays int `json:"date_tolerance_days,omitempty"`
}

// Validate checks the request before any data access happens.
func (r *RunRequest) Validate() error {
	if r.CompanyID == "" {
		return errors.PreconditionError(errors.CodeMissingCompanyID,
			"company_id is required")
	}

	if r.Kind != "" && !r.Kind.IsValid() {
		return errors.ValidationError(errors.CodeInvalidRequest, "kind", string(r.Kind)).
			WithSuggestion("use 'payable', 'receivable' or leave empty for both")
	}

	if r.MaxSuggestions < 0 {
		return errors.ValidationError(errors.CodeInvalidRequest, "max_suggestions", r.MaxSuggestions)
	}

	if r.DateToleranceDays < 0 {
		return errors.ValidationError(errors.CodeInvalidRequest, "date_tolerance_days", r.DateToleranceDays)
	}

	return nil
}

// RunResult is the outcome of one run with its metadata.
type RunResult struct {
	RunID       string                         `json:"run_id"`
	CompanyID   string                         `json:"company_id"`
	StartedAt   time.Time                      `json:"started_at"`
	CompletedAt time.Time                      `json:"completed_at"`
	Suggestions []*models.Suggestion           `json:"suggestions"`
	Unmatched   []*models.UnmatchedTransaction `json:"unmatched_transactions"`
	Summary     models.Summary                 `json:"summary"`
}

// Duration returns the elapsed wall time of the run.
func (r *RunResult) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}

// Service runs suggestion runs against a data source.
type Service struct {
	source DataSource
	engine *matcher.Engine
	log    logger.Logger
}

// NewService wires a service from a data source and matcher configuration.
func NewService(source DataSource, cfg *matcher.Config, log logger.Logger) (*Service, error) {
	if source == nil {
		return nil, errors.New(errors.CategoryPrecondition, errors.CodeStoreUnavailable,
			"data source is required")
	}

	log = logger.OrDiscard(log)

	engine, err := matcher.NewEngine(cfg, log)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, errors.CodeInvalidConfig,
			"invalid matcher configuration")
	}

	return &Service{
		source: source,
		engine: engine,
		log:    log.WithComponent("reconciler"),
	}, nil
}

// Run executes one suggestion run. It is read-only with respect to the data
// source; confirming a suggestion is a separate concern.
func (s *Service) Run(ctx context.Context, req *RunRequest) (*RunResult, error) {
	if req == nil {
		return nil, errors.PreconditionError(errors.CodeInvalidRequest, "request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	startedAt := time.Now()

	log := s.log.WithFields(logger.Fields{
		"run_id":     runID,
		"company_id": req.CompanyID,
	})
	log.Info("starting suggestion run")

	snap, err := s.loadSnapshot(ctx, req)
	if err != nil {
		return nil, err
	}

	maxSuggestions := req.MaxSuggestions
	if maxSuggestions == 0 {
		maxSuggestions = DefaultMaxSuggestions
	}

	result, err := s.engine.Suggest(snap, maxSuggestions)
	if err != nil {
		return nil, errors.InternalError("matching", err).
			WithContext("run_id", runID)
	}

	completedAt := time.Now()
	log.WithFields(logger.Fields{
		"suggestions": len(result.Suggestions),
		"unmatched":   len(result.Unmatched),
		"duration":    completedAt.Sub(startedAt).String(),
	}).Info("suggestion run complete")

	return &RunResult{
		RunID:       runID,
		CompanyID:   req.CompanyID,
		StartedAt:   startedAt,
		CompletedAt: completedAt,
		Suggestions: result.Suggestions,
		Unmatched:   result.Unmatched,
		Summary:     result.Summary,
	}, nil
}

// loadSnapshot bulk loads everything one run needs. Load failures carry the
// source that failed so the operator knows where to look.
func (s *Service) loadSnapshot(ctx context.Context, req *RunRequest) (*matcher.Snapshot, error) {
	settings, err := s.source.Settings(ctx, req.CompanyID)
	if err != nil {
		return nil, errors.DataAccessError(errors.CodeSettingsLoad, "run_settings", err)
	}
	if req.DateToleranceDays > 0 {
		settings.DateToleranceDays = req.DateToleranceDays
	}

	transactions, err := s.source.UnreconciledTransactions(ctx, req.CompanyID)
	if err != nil {
		return nil, errors.DataAccessError(errors.CodeTransactionsLoad, "bank_transactions", err)
	}
	transactions = filterBySign(transactions, req.Kind)

	entries, err := s.source.OpenEntries(ctx, req.CompanyID, req.Kind)
	if err != nil {
		return nil, errors.DataAccessError(errors.CodeEntriesLoad, "financial_entries", err)
	}

	var payables, receivables []*models.FinancialEntry
	for _, entry := range entries {
		switch entry.Kind {
		case models.EntryPayable:
			payables = append(payables, entry)
		case models.EntryReceivable:
			receivables = append(receivables, entry)
		}
	}

	entities, err := s.source.Entities(ctx, req.CompanyID)
	if err != nil {
		return nil, errors.DataAccessError(errors.CodeEntitiesLoad, "entities", err)
	}

	rules, err := s.source.ActiveRules(ctx, req.CompanyID)
	if err != nil {
		return nil, errors.DataAccessError(errors.CodeRulesLoad, "extract_rules", err)
	}

	s.log.WithFields(logger.Fields{
		"transactions": len(transactions),
		"payables":     len(payables),
		"receivables":  len(receivables),
		"entities":     len(entities),
		"rules":        len(rules),
	}).Debug("snapshot loaded")

	return &matcher.Snapshot{
		Transactions: transactions,
		Payables:     payables,
		Receivables:  receivables,
		Entities:     entities,
		Rules:        rules,
		Settings:     settings,
	}, nil
}

// filterBySign keeps transactions whose cash direction matches the requested
// entry kind: debits settle payables, credits settle receivables. An empty
// kind keeps everything.
func filterBySign(transactions []*models.BankTransaction, kind models.EntryKind) []*models.BankTransaction {
	if kind == "" {
		return transactions
	}

	wantDebit := kind == models.EntryPayable
	filtered := make([]*models.BankTransaction, 0, len(transactions))
	for _, tx := range transactions {
		if tx.IsDebit() == wantDebit {
			filtered = append(filtered, tx)
		}
	}
	return filtered
}
