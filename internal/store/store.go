// Package store provides the persistence layer for fuseboard.
//
// SQLite holds the financial records the pipeline reads (budget lines,
// cashflow entries, contracts, invoices) and the outputs it writes back
// (fusion snapshots, tactical decisions). Monetary amounts travel as
// decimal strings, never floats: the database column is TEXT and the Go
// side is decimal.Decimal, so cents survive every round trip.
//
// # Thread Safety
//
// Store is safe for concurrent use. The underlying sql.DB handles
// connection pooling and serialization. Individual operations are atomic;
// read-modify-write sequences need external synchronization.
//
// # Transactions
//
// The batch save methods run in a transaction. Everything else is a single
// statement and implicitly atomic.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/maelcolin/fuseboard/internal/logging"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)
)

// Store handles persistence of financial records and pipeline outputs.
type Store struct {
	db *sql.DB
}

// NewStore creates a SQLite store at the given path. The database is
// created if it doesn't exist and the schema is applied automatically.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL mode for better concurrent access
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS budget_lines (
		fiscal_year INTEGER NOT NULL,
		category TEXT NOT NULL,
		planned TEXT NOT NULL,
		actual TEXT NOT NULL DEFAULT '0',
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (fiscal_year, category)
	);

	CREATE TABLE IF NOT EXISTS cashflow_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		entry_date DATETIME NOT NULL,
		direction TEXT NOT NULL CHECK (direction IN ('in', 'out')),
		amount TEXT NOT NULL,
		label TEXT,
		projected INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_cashflow_date ON cashflow_entries(entry_date);

	CREATE TABLE IF NOT EXISTS contracts (
		reference TEXT PRIMARY KEY,
		title TEXT,
		counterparty TEXT,
		annual_value TEXT,
		total_value TEXT,
		start_date DATETIME,
		end_date DATETIME,
		status TEXT NOT NULL DEFAULT 'active'
	);

	CREATE INDEX IF NOT EXISTS idx_contracts_end ON contracts(end_date);

	CREATE TABLE IF NOT EXISTS invoices (
		number TEXT PRIMARY KEY,
		contract_ref TEXT,
		invoice_date DATETIME NOT NULL,
		amount TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_invoices_contract ON invoices(contract_ref);

	CREATE TABLE IF NOT EXISTS fusion_snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		generated_at DATETIME NOT NULL,
		overall_score REAL NOT NULL,
		signal_count INTEGER NOT NULL,
		conflict_count INTEGER NOT NULL,
		payload TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_generated ON fusion_snapshots(generated_at DESC);

	CREATE TABLE IF NOT EXISTS decisions (
		id TEXT NOT NULL,
		generated_at DATETIME NOT NULL,
		title TEXT NOT NULL,
		category TEXT,
		priority TEXT NOT NULL,
		score REAL NOT NULL,
		rationale TEXT,
		actions TEXT,
		resolved INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (id, generated_at)
	);

	CREATE INDEX IF NOT EXISTS idx_decisions_open ON decisions(resolved, score);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// BudgetLine is one planned-versus-actual budget category for a fiscal year.
type BudgetLine struct {
	FiscalYear int
	Category   string
	Planned    decimal.Decimal
	Actual     decimal.Decimal
}

// SaveBudgetLines upserts budget lines keyed by (fiscal year, category).
// Returns the number of rows written.
func (s *Store) SaveBudgetLines(lines []BudgetLine) (int, error) {
	if len(lines) == 0 {
		return 0, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	// Rollback is safe to call even after commit - it's a no-op
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO budget_lines (fiscal_year, category, planned, actual, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(fiscal_year, category) DO UPDATE SET
			planned = excluded.planned,
			actual = excluded.actual,
			updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	var saved int
	for _, line := range lines {
		if _, err := stmt.Exec(line.FiscalYear, line.Category, line.Planned.String(), line.Actual.String()); err != nil {
			logging.Debug("Failed to save budget line", "category", line.Category, "error", err)
			continue
		}
		saved++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return saved, nil
}

// BudgetLines returns the budget lines for a fiscal year, ordered by
// category.
func (s *Store) BudgetLines(fiscalYear int) ([]BudgetLine, error) {
	rows, err := s.db.Query(`
		SELECT fiscal_year, category, planned, actual
		FROM budget_lines
		WHERE fiscal_year = ?
		ORDER BY category
	`, fiscalYear)
	if err != nil {
		return nil, fmt.Errorf("failed to query budget lines: %w", err)
	}
	defer rows.Close()

	var lines []BudgetLine
	for rows.Next() {
		var line BudgetLine
		var planned, actual string
		if err := rows.Scan(&line.FiscalYear, &line.Category, &planned, &actual); err != nil {
			return nil, fmt.Errorf("failed to scan budget line: %w", err)
		}
		if line.Planned, err = parseAmount(planned); err != nil {
			return nil, err
		}
		if line.Actual, err = parseAmount(actual); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// CashflowEntry is one dated cash movement. Direction is "in" or "out";
// Projected marks forecast entries as opposed to realized ones.
type CashflowEntry struct {
	ID        int64
	Date      time.Time
	Direction string
	Amount    decimal.Decimal
	Label     string
	Projected bool
}

// SaveCashflowEntries inserts cashflow entries. Returns the number of rows
// written.
func (s *Store) SaveCashflowEntries(entries []CashflowEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO cashflow_entries (entry_date, direction, amount, label, projected)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	var saved int
	for _, e := range entries {
		if _, err := stmt.Exec(e.Date, e.Direction, e.Amount.String(), e.Label, e.Projected); err != nil {
			logging.Debug("Failed to save cashflow entry", "label", e.Label, "error", err)
			continue
		}
		saved++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return saved, nil
}

// MonthlyNet is the signed net cashflow of one month, split into projected
// and realized totals.
type MonthlyNet struct {
	Month     string // "2006-01"
	Projected decimal.Decimal
	Actual    decimal.Decimal
}

// MonthlyNets folds all cashflow entries into per-month nets, oldest month
// first. Outflows subtract; the arithmetic stays in decimal the whole way.
func (s *Store) MonthlyNets() ([]MonthlyNet, error) {
	rows, err := s.db.Query(`
		SELECT entry_date, direction, amount, projected
		FROM cashflow_entries
		ORDER BY entry_date
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cashflow entries: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]*MonthlyNet)
	var order []string
	for rows.Next() {
		var date time.Time
		var direction, amount string
		var projected bool
		if err := rows.Scan(&date, &direction, &amount, &projected); err != nil {
			return nil, fmt.Errorf("failed to scan cashflow entry: %w", err)
		}

		d, err := parseAmount(amount)
		if err != nil {
			return nil, err
		}
		if direction == "out" {
			d = d.Neg()
		}

		month := date.Format("2006-01")
		m, ok := totals[month]
		if !ok {
			m = &MonthlyNet{Month: month}
			totals[month] = m
			order = append(order, month)
		}
		if projected {
			m.Projected = m.Projected.Add(d)
		} else {
			m.Actual = m.Actual.Add(d)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	nets := make([]MonthlyNet, len(order))
	for i, month := range order {
		nets[i] = *totals[month]
	}
	return nets, nil
}

// Contract is a supplier or customer agreement. TotalValue is the full
// envelope over the contract's life; zero means uncapped.
type Contract struct {
	Reference    string
	Title        string
	Counterparty string
	AnnualValue  decimal.Decimal
	TotalValue   decimal.Decimal
	Start        time.Time
	End          time.Time
	Status       string
}

// SaveContracts upserts contracts keyed by reference. Returns the number of
// rows written.
func (s *Store) SaveContracts(contracts []Contract) (int, error) {
	if len(contracts) == 0 {
		return 0, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO contracts (reference, title, counterparty, annual_value, total_value, start_date, end_date, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(reference) DO UPDATE SET
			title = excluded.title,
			counterparty = excluded.counterparty,
			annual_value = excluded.annual_value,
			total_value = excluded.total_value,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			status = excluded.status
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	var saved int
	for _, c := range contracts {
		status := c.Status
		if status == "" {
			status = "active"
		}
		if _, err := stmt.Exec(c.Reference, c.Title, c.Counterparty, c.AnnualValue.String(), c.TotalValue.String(), c.Start, c.End, status); err != nil {
			logging.Debug("Failed to save contract", "reference", c.Reference, "error", err)
			continue
		}
		saved++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return saved, nil
}

// Contracts returns all contracts ordered by reference.
func (s *Store) Contracts() ([]Contract, error) {
	rows, err := s.db.Query(`
		SELECT reference, title, counterparty, annual_value, total_value, start_date, end_date, status
		FROM contracts
		ORDER BY reference
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query contracts: %w", err)
	}
	defer rows.Close()
	return scanContracts(rows)
}

// ExpiringContracts returns active contracts ending within the window from
// now, soonest first.
func (s *Store) ExpiringContracts(now time.Time, within time.Duration) ([]Contract, error) {
	rows, err := s.db.Query(`
		SELECT reference, title, counterparty, annual_value, total_value, start_date, end_date, status
		FROM contracts
		WHERE status = 'active' AND end_date >= ? AND end_date <= ?
		ORDER BY end_date
	`, now, now.Add(within))
	if err != nil {
		return nil, fmt.Errorf("failed to query expiring contracts: %w", err)
	}
	defer rows.Close()
	return scanContracts(rows)
}

func scanContracts(rows *sql.Rows) ([]Contract, error) {
	var contracts []Contract
	for rows.Next() {
		var c Contract
		var annual, total string
		var err error
		if err = rows.Scan(&c.Reference, &c.Title, &c.Counterparty, &annual, &total, &c.Start, &c.End, &c.Status); err != nil {
			return nil, fmt.Errorf("failed to scan contract: %w", err)
		}
		if c.AnnualValue, err = parseAmount(annual); err != nil {
			return nil, err
		}
		if c.TotalValue, err = parseAmount(total); err != nil {
			return nil, err
		}
		contracts = append(contracts, c)
	}
	return contracts, rows.Err()
}

// Invoice is one billed amount, optionally tied to a contract.
type Invoice struct {
	Number      string
	ContractRef string
	Date        time.Time
	Amount      decimal.Decimal
}

// SaveInvoices upserts invoices keyed by number. Returns the number of rows
// written.
func (s *Store) SaveInvoices(invoices []Invoice) (int, error) {
	if len(invoices) == 0 {
		return 0, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO invoices (number, contract_ref, invoice_date, amount)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(number) DO UPDATE SET
			contract_ref = excluded.contract_ref,
			invoice_date = excluded.invoice_date,
			amount = excluded.amount
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	var saved int
	for _, inv := range invoices {
		if _, err := stmt.Exec(inv.Number, inv.ContractRef, inv.Date, inv.Amount.String()); err != nil {
			logging.Debug("Failed to save invoice", "number", inv.Number, "error", err)
			continue
		}
		saved++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return saved, nil
}

// ContractUsage pairs a contract's envelope with the total invoiced against
// it so far.
type ContractUsage struct {
	Reference string
	Envelope  decimal.Decimal
	Invoiced  decimal.Decimal
}

// ContractUsages returns usage for every contract that has a non-zero
// envelope, ordered by reference. Contracts without an envelope have no
// ceiling to measure against and are skipped.
func (s *Store) ContractUsages() ([]ContractUsage, error) {
	contracts, err := s.Contracts()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`SELECT contract_ref, amount FROM invoices WHERE contract_ref != ''`)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}
	defer rows.Close()

	invoiced := make(map[string]decimal.Decimal)
	for rows.Next() {
		var ref, amount string
		if err := rows.Scan(&ref, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		d, err := parseAmount(amount)
		if err != nil {
			return nil, err
		}
		invoiced[ref] = invoiced[ref].Add(d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var usages []ContractUsage
	for _, c := range contracts {
		if c.TotalValue.IsZero() {
			continue
		}
		usages = append(usages, ContractUsage{
			Reference: c.Reference,
			Envelope:  c.TotalValue,
			Invoiced:  invoiced[c.Reference],
		})
	}
	return usages, nil
}

// FusionSnapshot is one persisted aggregation pass. Payload carries the full
// result as JSON; the scalar columns exist so history queries never need to
// parse it.
type FusionSnapshot struct {
	ID            int64
	GeneratedAt   time.Time
	OverallScore  float64
	SignalCount   int
	ConflictCount int
	Payload       []byte
}

// SaveSnapshot appends a fusion snapshot and returns its row ID.
func (s *Store) SaveSnapshot(snap FusionSnapshot) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO fusion_snapshots (generated_at, overall_score, signal_count, conflict_count, payload)
		VALUES (?, ?, ?, ?, ?)
	`, snap.GeneratedAt, snap.OverallScore, snap.SignalCount, snap.ConflictCount, string(snap.Payload))
	if err != nil {
		return 0, fmt.Errorf("failed to save snapshot: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get snapshot id: %w", err)
	}
	return id, nil
}

// RecentSnapshots returns the latest snapshots, newest first.
func (s *Store) RecentSnapshots(limit int) ([]FusionSnapshot, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT id, generated_at, overall_score, signal_count, conflict_count, payload
		FROM fusion_snapshots
		ORDER BY generated_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []FusionSnapshot
	for rows.Next() {
		var snap FusionSnapshot
		var payload string
		if err := rows.Scan(&snap.ID, &snap.GeneratedAt, &snap.OverallScore, &snap.SignalCount, &snap.ConflictCount, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snap.Payload = []byte(payload)
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// DecisionRecord is a persisted tactical decision. The (ID, GeneratedAt)
// pair is unique: the same TD number recurs across runs.
type DecisionRecord struct {
	ID          string
	GeneratedAt time.Time
	Title       string
	Category    string
	Priority    string
	Score       float64
	Rationale   string
	Actions     []string
	Resolved    bool
}

// SaveDecisions upserts one run's decisions. Returns the number of rows
// written.
func (s *Store) SaveDecisions(decisions []DecisionRecord) (int, error) {
	if len(decisions) == 0 {
		return 0, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO decisions (id, generated_at, title, category, priority, score, rationale, actions, resolved)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, generated_at) DO UPDATE SET
			title = excluded.title,
			category = excluded.category,
			priority = excluded.priority,
			score = excluded.score,
			rationale = excluded.rationale,
			actions = excluded.actions
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	var saved int
	for _, d := range decisions {
		actions, err := json.Marshal(d.Actions)
		if err != nil {
			logging.Debug("Failed to encode decision actions", "id", d.ID, "error", err)
			continue
		}
		if _, err := stmt.Exec(d.ID, d.GeneratedAt, d.Title, d.Category, d.Priority, d.Score, d.Rationale, string(actions), d.Resolved); err != nil {
			logging.Debug("Failed to save decision", "id", d.ID, "error", err)
			continue
		}
		saved++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return saved, nil
}

// OpenDecisions returns unresolved decisions, most urgent (lowest score)
// first.
func (s *Store) OpenDecisions(limit int) ([]DecisionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, generated_at, title, category, priority, score, rationale, actions, resolved
		FROM decisions
		WHERE resolved = 0
		ORDER BY score ASC, id ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer rows.Close()

	var decisions []DecisionRecord
	for rows.Next() {
		var d DecisionRecord
		var actions string
		if err := rows.Scan(&d.ID, &d.GeneratedAt, &d.Title, &d.Category, &d.Priority, &d.Score, &d.Rationale, &actions, &d.Resolved); err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		if actions != "" {
			if err := json.Unmarshal([]byte(actions), &d.Actions); err != nil {
				return nil, fmt.Errorf("failed to decode decision actions: %w", err)
			}
		}
		decisions = append(decisions, d)
	}
	return decisions, rows.Err()
}

// ResolveDecision marks every occurrence of a decision ID as resolved.
func (s *Store) ResolveDecision(id string) error {
	res, err := s.db.Exec(`UPDATE decisions SET resolved = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to resolve decision: %w", err)
	}
	rows, err := res.RowsAffected()
	if err == nil && rows == 0 {
		return fmt.Errorf("decision %s not found", id)
	}
	return nil
}

// Stats summarizes table sizes for the stats command and the dashboard
// footer.
type Stats struct {
	BudgetLines     int
	CashflowEntries int
	Contracts       int
	Invoices        int
	Snapshots       int
	OpenDecisions   int
}

// Stats counts rows across all tables.
func (s *Store) Stats() (Stats, error) {
	var st Stats
	counts := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM budget_lines`, &st.BudgetLines},
		{`SELECT COUNT(*) FROM cashflow_entries`, &st.CashflowEntries},
		{`SELECT COUNT(*) FROM contracts`, &st.Contracts},
		{`SELECT COUNT(*) FROM invoices`, &st.Invoices},
		{`SELECT COUNT(*) FROM fusion_snapshots`, &st.Snapshots},
		{`SELECT COUNT(*) FROM decisions WHERE resolved = 0`, &st.OpenDecisions},
	}
	for _, c := range counts {
		if err := s.db.QueryRow(c.query).Scan(c.dest); err != nil {
			return Stats{}, fmt.Errorf("failed to count rows: %w", err)
		}
	}
	return st, nil
}

// parseAmount converts a stored decimal string back to a Decimal. Empty
// strings read as zero so optional money columns scan cleanly.
func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse amount %q: %w", s, err)
	}
	return d, nil
}
