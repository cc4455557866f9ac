// Package store persists tenant data in SQLite and feeds snapshots to the
// matching engine. The engine never writes through this package during a run;
// inserts exist for loading fixtures and for the import tooling.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"bank-reconciliation-engine/internal/models"
	"bank-reconciliation-engine/pkg/logger"
)

const schemaVersion = 1

// maxTransactionsPerRun caps how many unreconciled statement lines a single
// run analyzes. Newest lines are loaded first.
const maxTransactionsPerRun = 500

const schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_meta (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS entities (
	id          TEXT PRIMARY KEY,
	company_id  TEXT NOT NULL,
	legal_name  TEXT NOT NULL DEFAULT '',
	trade_name  TEXT NOT NULL DEFAULT '',
	tax_id      TEXT NOT NULL DEFAULT '',
	created_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS bank_transactions (
	id               TEXT PRIMARY KEY,
	company_id       TEXT NOT NULL,
	date             TEXT NOT NULL,
	description      TEXT NOT NULL DEFAULT '',
	amount           TEXT NOT NULL,
	settlement_code  TEXT NOT NULL DEFAULT '',
	reconciled       INTEGER NOT NULL DEFAULT 0,
	created_at       TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS financial_entries (
	id                TEXT PRIMARY KEY,
	company_id        TEXT NOT NULL,
	kind              TEXT NOT NULL CHECK (kind IN ('payable', 'receivable')),
	amount            TEXT NOT NULL,
	due_date          TEXT NOT NULL,
	counterparty_id   TEXT NOT NULL DEFAULT '' REFERENCES entities(id) ON DELETE SET DEFAULT,
	document_number   TEXT NOT NULL DEFAULT '',
	reference_number  TEXT NOT NULL DEFAULT '',
	status            TEXT NOT NULL DEFAULT 'open',
	created_at        TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS extract_rules (
	id               TEXT PRIMARY KEY,
	company_id       TEXT NOT NULL,
	search_text      TEXT NOT NULL,
	counterparty_id  TEXT NOT NULL DEFAULT '',
	active           INTEGER NOT NULL DEFAULT 1,
	created_at       TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS run_settings (
	company_id               TEXT PRIMARY KEY,
	date_tolerance_days      INTEGER NOT NULL DEFAULT 5,
	value_tolerance_percent  REAL NOT NULL DEFAULT 0,
	updated_at               TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_bank_transactions_company_date
	ON bank_transactions(company_id, reconciled, date);
CREATE INDEX IF NOT EXISTS idx_financial_entries_company_status
	ON financial_entries(company_id, status, kind);
CREATE INDEX IF NOT EXISTS idx_entities_company ON entities(company_id);
CREATE INDEX IF NOT EXISTS idx_extract_rules_company ON extract_rules(company_id, active);
`

// Store wraps the SQLite database behind the loader interfaces the
// reconciler consumes.
type Store struct {
	db  *sql.DB
	log logger.Logger
}

// Open opens (or creates) the database at path and ensures the schema is at
// the current version. Use ":memory:" for an in-memory database.
func Open(path string, log logger.Logger) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite
	db.SetConnMaxLifetime(0)

	s := &Store{db: db, log: logger.OrDiscard(log).WithComponent("store")}

	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for maintenance tooling.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) migrate() error {
	ver, err := s.currentVersion()
	if err != nil {
		return fmt.Errorf("check schema version: %w", err)
	}

	if ver >= schemaVersion {
		return nil
	}

	s.log.WithFields(logger.Fields{"from": ver, "to": schemaVersion}).Info("migrating schema")

	return s.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(schemaV1); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
		if _, err := tx.Exec(`DELETE FROM schema_meta`); err != nil {
			return err
		}
		if _, err := tx.Exec(`INSERT INTO schema_meta (version) VALUES (?)`, schemaVersion); err != nil {
			return err
		}
		return nil
	})
}

func (s *Store) currentVersion() (int, error) {
	var exists int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'schema_meta'`,
	).Scan(&exists)
	if err != nil {
		return 0, err
	}
	if exists == 0 {
		return 0, nil
	}

	var ver int
	err = s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_meta`).Scan(&ver)
	if err != nil {
		return 0, err
	}
	return ver, nil
}

func (s *Store) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// UnreconciledTransactions loads the newest unreconciled statement lines for
// the company, capped at the per-run limit.
func (s *Store) UnreconciledTransactions(ctx context.Context, companyID string) ([]*models.BankTransaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, description, amount, settlement_code
		FROM bank_transactions
		WHERE company_id = ? AND reconciled = 0
		ORDER BY date DESC, id DESC
		LIMIT ?`, companyID, maxTransactionsPerRun)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []*models.BankTransaction
	for rows.Next() {
		var tx models.BankTransaction
		var date, amount string
		if err := rows.Scan(&tx.ID, &date, &tx.Description, &amount, &tx.SettlementCode); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if tx.Date, err = models.ParseDate(date); err != nil {
			s.log.WithError(err).WithField("transaction_id", tx.ID).Warn("unparseable transaction date")
		}
		if tx.Amount, err = models.ParseAmount(amount); err != nil {
			s.log.WithError(err).WithField("transaction_id", tx.ID).Warn("unparseable transaction amount")
		}
		out = append(out, &tx)
	}
	return out, rows.Err()
}

// OpenEntries loads open ledger entries for the company with the counterparty
// name joined in. An empty kind loads both payables and receivables.
func (s *Store) OpenEntries(ctx context.Context, companyID string, kind models.EntryKind) ([]*models.FinancialEntry, error) {
	query := `
		SELECT f.id, f.kind, f.amount, f.due_date, f.counterparty_id,
		       COALESCE(NULLIF(e.trade_name, ''), e.legal_name, '') AS counterparty_name,
		       f.document_number, f.reference_number
		FROM financial_entries f
		LEFT JOIN entities e ON e.id = f.counterparty_id
		WHERE f.company_id = ? AND f.status = 'open'`
	args := []any{companyID}

	if kind != "" {
		query += ` AND f.kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY f.due_date ASC, f.id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var out []*models.FinancialEntry
	for rows.Next() {
		var entry models.FinancialEntry
		var kindStr, amount, due string
		if err := rows.Scan(&entry.ID, &kindStr, &amount, &due, &entry.CounterpartyID,
			&entry.CounterpartyName, &entry.DocumentNumber, &entry.ReferenceNumber); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entry.Kind = models.EntryKind(kindStr)
		if entry.DueDate, err = models.ParseDate(due); err != nil {
			s.log.WithError(err).WithField("entry_id", entry.ID).Warn("unparseable entry due date")
		}
		if entry.Amount, err = models.ParseAmount(amount); err != nil {
			s.log.WithError(err).WithField("entry_id", entry.ID).Warn("unparseable entry amount")
		}
		out = append(out, &entry)
	}
	return out, rows.Err()
}

// Entities loads the company's known counterparties.
func (s *Store) Entities(ctx context.Context, companyID string) ([]*models.Entity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, legal_name, trade_name, tax_id
		FROM entities
		WHERE company_id = ?
		ORDER BY legal_name ASC, id ASC`, companyID)
	if err != nil {
		return nil, fmt.Errorf("query entities: %w", err)
	}
	defer rows.Close()

	var out []*models.Entity
	for rows.Next() {
		var e models.Entity
		if err := rows.Scan(&e.ID, &e.LegalName, &e.TradeName, &e.TaxID); err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// ActiveRules loads the company's active statement rules in creation order.
func (s *Store) ActiveRules(ctx context.Context, companyID string) ([]*models.ExtractRule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, search_text, counterparty_id, active
		FROM extract_rules
		WHERE company_id = ? AND active = 1
		ORDER BY created_at ASC, id ASC`, companyID)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	var out []*models.ExtractRule
	for rows.Next() {
		var r models.ExtractRule
		if err := rows.Scan(&r.ID, &r.SearchText, &r.CounterpartyID, &r.Active); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// Settings loads the company's matching tolerances, falling back to the
// defaults when the company has no settings row.
func (s *Store) Settings(ctx context.Context, companyID string) (models.RunSettings, error) {
	settings := models.DefaultRunSettings()

	err := s.db.QueryRowContext(ctx, `
		SELECT date_tolerance_days, value_tolerance_percent
		FROM run_settings
		WHERE company_id = ?`, companyID).
		Scan(&settings.DateToleranceDays, &settings.ValueTolerancePercent)
	if err == sql.ErrNoRows {
		return models.DefaultRunSettings(), nil
	}
	if err != nil {
		return settings, fmt.Errorf("query settings: %w", err)
	}

	return settings, nil
}

// SaveSettings upserts the company's matching tolerances.
func (s *Store) SaveSettings(ctx context.Context, companyID string, settings models.RunSettings) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO run_settings (company_id, date_tolerance_days, value_tolerance_percent, updated_at)
		VALUES (?, ?, ?, datetime('now'))
		ON CONFLICT(company_id) DO UPDATE SET
			date_tolerance_days = excluded.date_tolerance_days,
			value_tolerance_percent = excluded.value_tolerance_percent,
			updated_at = excluded.updated_at`,
		companyID, settings.DateToleranceDays, settings.ValueTolerancePercent)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// InsertTransaction stores one statement line. A blank id gets a generated
// one; the final id is returned.
func (s *Store) InsertTransaction(ctx context.Context, companyID string, tx *models.BankTransaction) (string, error) {
	id := orNewID(tx.ID)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bank_transactions (id, company_id, date, description, amount, settlement_code)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, companyID, formatDate(tx.Date), tx.Description, tx.Amount.String(), tx.SettlementCode)
	if err != nil {
		return "", fmt.Errorf("insert transaction: %w", err)
	}
	return id, nil
}

// InsertEntry stores one open ledger entry.
func (s *Store) InsertEntry(ctx context.Context, companyID string, entry *models.FinancialEntry) (string, error) {
	id := orNewID(entry.ID)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO financial_entries
			(id, company_id, kind, amount, due_date, counterparty_id, document_number, reference_number)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, companyID, string(entry.Kind), entry.Amount.String(), formatDate(entry.DueDate),
		entry.CounterpartyID, entry.DocumentNumber, entry.ReferenceNumber)
	if err != nil {
		return "", fmt.Errorf("insert entry: %w", err)
	}
	return id, nil
}

// InsertEntity stores one counterparty.
func (s *Store) InsertEntity(ctx context.Context, companyID string, entity *models.Entity) (string, error) {
	id := orNewID(entity.ID)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO entities (id, company_id, legal_name, trade_name, tax_id)
		VALUES (?, ?, ?, ?, ?)`,
		id, companyID, entity.LegalName, entity.TradeName, entity.TaxID)
	if err != nil {
		return "", fmt.Errorf("insert entity: %w", err)
	}
	return id, nil
}

// InsertRule stores one statement rule.
func (s *Store) InsertRule(ctx context.Context, companyID string, rule *models.ExtractRule) (string, error) {
	id := orNewID(rule.ID)
	active := 0
	if rule.Active {
		active = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO extract_rules (id, company_id, search_text, counterparty_id, active)
		VALUES (?, ?, ?, ?, ?)`,
		id, companyID, rule.SearchText, rule.CounterpartyID, active)
	if err != nil {
		return "", fmt.Errorf("insert rule: %w", err)
	}
	return id, nil
}

func orNewID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

func formatDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
