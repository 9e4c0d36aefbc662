/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements the timecard and policy persistence interfaces using SQLite.
  The statements come from store/record; PostgreSQL runs the same ones with
  a different placeholder format.

INTERFACES IMPLEMENTED:
  timecard.EntryStore:   Time entries with their breaks
  timecard.ProfileStore: Employee profiles
  policy.Store:          Append-only policy versions

LOCKED ENTRIES:
  SaveEntry refuses to overwrite an entry that left pending approval
  (timecard.ErrEntryLocked). Status changes go through UpdateStatus and the
  state machine only.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. SQLite allows a single writer; with
  PostgreSQL the database handles this instead.

WAL MODE:
  File databases are opened with WAL (Write-Ahead Logging) so readers don't
  block the writer.

USAGE:
  store, err := sqlite.New("./data/labor.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  validator := compliance.NewValidator(store, store, registry, time.UTC)

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - store/record: Tables and shared statements
  - timecard/store: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/labor-engine/policy"
	"github.com/warp/labor-engine/store/record"
	"github.com/warp/labor-engine/timecard"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex
	q   record.Queries
	now func() time.Time
}

var (
	_ timecard.EntryStore   = (*Store)(nil)
	_ timecard.ProfileStore = (*Store)(nil)
	_ policy.Store          = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	dsn := dbPath + "?_foreign_keys=on&_journal_mode=WAL"
	if dbPath == ":memory:" {
		dsn = "file::memory:?_foreign_keys=on"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db, q: record.NewQueries(sq.Question), now: time.Now}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS time_entries (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		clock_in TIMESTAMP NOT NULL,
		clock_out TIMESTAMP,
		status TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		exempt_from_overtime BOOLEAN NOT NULL DEFAULT FALSE,
		employee_type TEXT NOT NULL DEFAULT '',
		employee_age INTEGER,
		school_day BOOLEAN NOT NULL DEFAULT FALSE,
		school_year BOOLEAN NOT NULL DEFAULT FALSE,
		state TEXT NOT NULL DEFAULT '',
		reduced_rest_period BOOLEAN NOT NULL DEFAULT FALSE,
		employee_consent BOOLEAN NOT NULL DEFAULT FALSE,
		premium_pay_rate TEXT,
		meal_break_waived BOOLEAN NOT NULL DEFAULT FALSE,
		waiver_consent BOOLEAN NOT NULL DEFAULT FALSE,
		total_hours TEXT NOT NULL DEFAULT '0',
		regular_hours TEXT NOT NULL DEFAULT '0',
		overtime_hours TEXT NOT NULL DEFAULT '0',
		double_time_hours TEXT NOT NULL DEFAULT '0',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	-- Range loads per employee (hot path)
	CREATE INDEX IF NOT EXISTS idx_time_entries_employee_clock_in
		ON time_entries(employee_id, clock_in);

	CREATE TABLE IF NOT EXISTS entry_breaks (
		id TEXT PRIMARY KEY,
		entry_id TEXT NOT NULL REFERENCES time_entries(id) ON DELETE CASCADE,
		break_type TEXT NOT NULL,
		start_at TIMESTAMP NOT NULL,
		end_at TIMESTAMP NOT NULL,
		paid BOOLEAN NOT NULL DEFAULT FALSE
	);

	CREATE INDEX IF NOT EXISTS idx_entry_breaks_entry
		ON entry_breaks(entry_id);

	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL DEFAULT '',
		employee_type TEXT NOT NULL DEFAULT '',
		exempt BOOLEAN NOT NULL DEFAULT FALSE,
		annual_salary TEXT,
		birth_date TIMESTAMP,
		created_at TIMESTAMP NOT NULL
	);

	-- Policies (append-only versions)
	CREATE TABLE IF NOT EXISTS policies (
		id TEXT PRIMARY KEY,
		jurisdiction TEXT NOT NULL DEFAULT '',
		policy_type TEXT NOT NULL,
		version INTEGER NOT NULL,
		effective_at TIMESTAMP NOT NULL,
		document TEXT NOT NULL,
		UNIQUE(jurisdiction, policy_type, version)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ENTRY STORE (timecard.EntryStore interface)
// =============================================================================

// SaveEntry inserts or replaces a pending entry and its breaks.
func (s *Store) SaveEntry(ctx context.Context, e timecard.TimeEntry) (timecard.TimeEntry, error) {
	if err := e.Validate(); err != nil {
		return timecard.TimeEntry{}, err
	}
	e = timecard.AssignIDs(e)

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return timecard.TimeEntry{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var existing string
	err = s.q.EntryStatus(e.ID).RunWith(tx).QueryRowContext(ctx).Scan(&existing)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return timecard.TimeEntry{}, fmt.Errorf("failed to read entry %s: %w", e.ID, err)
	case timecard.Status(existing).Locked():
		return timecard.TimeEntry{}, timecard.ErrEntryLocked
	}

	now := s.now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now

	if _, err := s.q.UpsertEntry(e).RunWith(tx).ExecContext(ctx); err != nil {
		return timecard.TimeEntry{}, fmt.Errorf("failed to save entry %s: %w", e.ID, err)
	}
	if _, err := s.q.DeleteBreaks(e.ID).RunWith(tx).ExecContext(ctx); err != nil {
		return timecard.TimeEntry{}, fmt.Errorf("failed to replace breaks of %s: %w", e.ID, err)
	}
	if ib, ok := s.q.InsertBreaks(e); ok {
		if _, err := ib.RunWith(tx).ExecContext(ctx); err != nil {
			return timecard.TimeEntry{}, fmt.Errorf("failed to save breaks of %s: %w", e.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return timecard.TimeEntry{}, fmt.Errorf("failed to commit entry %s: %w", e.ID, err)
	}
	return s.getEntry(ctx, s.db, e.ID)
}

// GetEntry returns an entry with its breaks.
func (s *Store) GetEntry(ctx context.Context, id string) (timecard.TimeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getEntry(ctx, s.db, id)
}

// UpdateStatus applies a state-machine transition.
func (s *Store) UpdateStatus(ctx context.Context, id string, to timecard.Status) (timecard.TimeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return timecard.TimeEntry{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	e, err := s.getEntry(ctx, tx, id)
	if err != nil {
		return timecard.TimeEntry{}, err
	}
	if err := e.Transition(to); err != nil {
		return timecard.TimeEntry{}, err
	}
	e.UpdatedAt = s.now().UTC()
	if _, err := s.q.UpdateStatus(id, to, e.UpdatedAt).RunWith(tx).ExecContext(ctx); err != nil {
		return timecard.TimeEntry{}, fmt.Errorf("failed to update status of %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return timecard.TimeEntry{}, fmt.Errorf("failed to commit status of %s: %w", id, err)
	}
	return e, nil
}

// LoadEntries returns an employee's entries intersecting [from, to].
func (s *Store) LoadEntries(ctx context.Context, employeeID string, from, to time.Time) ([]timecard.TimeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.q.SelectEntries(employeeID, from, to).RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load entries: %w", err)
	}
	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}
	if err := s.attachBreaks(ctx, s.db, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) getEntry(ctx context.Context, db sq.BaseRunner, id string) (timecard.TimeEntry, error) {
	e, err := record.ScanEntry(s.q.SelectEntry(id).RunWith(db).QueryRowContext(ctx))
	if errors.Is(err, sql.ErrNoRows) {
		return timecard.TimeEntry{}, fmt.Errorf("entry %s: %w", id, timecard.ErrEntryNotFound)
	}
	if err != nil {
		return timecard.TimeEntry{}, fmt.Errorf("failed to get entry %s: %w", id, err)
	}
	entries := []timecard.TimeEntry{e}
	if err := s.attachBreaks(ctx, db, entries); err != nil {
		return timecard.TimeEntry{}, err
	}
	return entries[0], nil
}

func (s *Store) attachBreaks(ctx context.Context, db sq.BaseRunner, entries []timecard.TimeEntry) error {
	if len(entries) == 0 {
		return nil
	}
	rows, err := s.q.SelectBreaks(record.EntryIDs(entries)).RunWith(db).QueryContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to load breaks: %w", err)
	}
	defer rows.Close()

	byEntry := make(map[string][]timecard.Break)
	for rows.Next() {
		entryID, b, err := record.ScanBreak(rows)
		if err != nil {
			return fmt.Errorf("failed to scan break: %w", err)
		}
		byEntry[entryID] = append(byEntry[entryID], b)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	record.AttachBreaks(entries, byEntry)
	return nil
}

// =============================================================================
// PROFILE STORE (timecard.ProfileStore interface)
// =============================================================================

// SaveProfile inserts or replaces an employee profile.
func (s *Store) SaveProfile(ctx context.Context, p timecard.Profile) error {
	if strings.TrimSpace(p.ID) == "" {
		return timecard.ErrMissingEmployeeID
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.q.UpsertEmployee(p).RunWith(s.db).ExecContext(ctx); err != nil {
		return fmt.Errorf("failed to save employee %s: %w", p.ID, err)
	}
	return nil
}

// GetProfile returns an employee profile.
func (s *Store) GetProfile(ctx context.Context, employeeID string) (timecard.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, err := record.ScanEmployee(s.q.SelectEmployee(employeeID).RunWith(s.db).QueryRowContext(ctx))
	if errors.Is(err, sql.ErrNoRows) {
		return timecard.Profile{}, fmt.Errorf("employee %s: %w", employeeID, timecard.ErrEmployeeNotFound)
	}
	if err != nil {
		return timecard.Profile{}, fmt.Errorf("failed to get employee %s: %w", employeeID, err)
	}
	return p, nil
}

// =============================================================================
// POLICY STORE (policy.Store interface)
// =============================================================================

// SavePolicy appends a policy version.
func (s *Store) SavePolicy(ctx context.Context, p policy.Policy) error {
	ib, err := s.q.InsertPolicy(p)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := ib.RunWith(s.db).ExecContext(ctx); err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: %s", policy.ErrDuplicateVersion, p.ID)
		}
		return fmt.Errorf("failed to save policy %s: %w", p.ID, err)
	}
	return nil
}

// LoadPolicies returns every stored policy version.
func (s *Store) LoadPolicies(ctx context.Context) ([]policy.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.q.SelectPolicies().RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load policies: %w", err)
	}
	defer rows.Close()

	var policies []policy.Policy
	for rows.Next() {
		p, err := record.ScanPolicy(rows)
		if err != nil {
			return nil, err
		}
		policies = append(policies, p)
	}
	return policies, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

// scanEntries reads and closes rows before breaks are queried: an in-memory
// database has a single connection.
func scanEntries(rows *sql.Rows) ([]timecard.TimeEntry, error) {
	defer rows.Close()

	var entries []timecard.TimeEntry
	for rows.Next() {
		e, err := record.ScanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
