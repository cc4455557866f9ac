package matcher

import (
	"sort"

	"bank-reconciliation-engine/internal/models"
)

// usedSet tracks ledger entries already consumed by a suggestion within a
// single run. It is an explicit accumulator created at run start and threaded
// through the sequential per-transaction processing, never shared state.
type usedSet map[string]struct{}

func newUsedSet() usedSet {
	return make(usedSet)
}

func (u usedSet) consume(ids ...string) {
	for _, id := range ids {
		u[id] = struct{}{}
	}
}

func (u usedSet) has(id string) bool {
	_, ok := u[id]
	return ok
}

// CandidateFinder selects the eligible ledger entries for a transaction.
type CandidateFinder struct {
	cfg *Config
}

// NewCandidateFinder creates a candidate finder with the given configuration.
func NewCandidateFinder(cfg *Config) *CandidateFinder {
	return &CandidateFinder{cfg: cfg}
}

// Pool returns the sign-matched, not-yet-consumed entries for a transaction:
// debits draw from payables, credits from receivables. Load order is
// preserved.
func (f *CandidateFinder) Pool(tx *models.BankTransaction, payables, receivables []*models.FinancialEntry, used usedSet) []*models.FinancialEntry {
	source := receivables
	if tx.IsDebit() {
		source = payables
	}

	pool := make([]*models.FinancialEntry, 0, len(source))
	for _, e := range source {
		if !used.has(e.ID) {
			pool = append(pool, e)
		}
	}
	return pool
}

// Select narrows a pool to the entries eligible for due-date-sensitive
// strategies and orders them by preference. When counterpartyID is non-empty
// only that counterparty's entries are considered.
//
// Eligible entries are partitioned into overdue (due on or before the
// transaction date) and near-future (due within the candidate window after
// it); entries due later are excluded. Overdue entries come first, closest
// due date to the transaction date leading; near-future entries follow in
// due-date order.
func (f *CandidateFinder) Select(tx *models.BankTransaction, counterpartyID string, pool []*models.FinancialEntry) []*models.FinancialEntry {
	windowDays := f.cfg.CandidateWindowDays()

	var overdue, nearFuture []*models.FinancialEntry
	for _, e := range pool {
		if counterpartyID != "" && e.CounterpartyID != counterpartyID {
			continue
		}

		offset := models.DayOffset(e.DueDate, tx.Date)
		switch {
		case offset <= 0:
			overdue = append(overdue, e)
		case offset <= windowDays:
			nearFuture = append(nearFuture, e)
		}
	}

	sort.SliceStable(overdue, func(i, j int) bool {
		di := -models.DayOffset(overdue[i].DueDate, tx.Date)
		dj := -models.DayOffset(overdue[j].DueDate, tx.Date)
		return di < dj
	})

	sort.SliceStable(nearFuture, func(i, j int) bool {
		return nearFuture[i].DueDate.Before(nearFuture[j].DueDate)
	})

	return append(overdue, nearFuture...)
}
