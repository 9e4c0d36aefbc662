/*
Package postgres provides a PostgreSQL-backed implementation of the storage
interfaces.

PURPOSE:
  Same contract as store/sqlite on a pgx connection pool. Statements are the
  shared store/record builders with dollar placeholders; schema changes are
  goose migrations embedded in the binary. New takes any DB; the server
  passes a *pgxpool.Pool.

INTERFACES IMPLEMENTED:
  timecard.EntryStore:   Time entries with their breaks
  timecard.ProfileStore: Employee profiles
  policy.Store:          Append-only policy versions

CONCURRENCY:
  The lock check and the write in SaveEntry and UpdateStatus run in one
  transaction with SELECT ... FOR UPDATE; no process-level lock is held.

SEE ALSO:
  - store/record: Tables and shared statements
  - migrations/: goose migrations
*/
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/warp/labor-engine/config"
	"github.com/warp/labor-engine/policy"
	"github.com/warp/labor-engine/store/record"
	"github.com/warp/labor-engine/timecard"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store implements all storage interfaces using PostgreSQL.
type Store struct {
	pool DB
	q    record.Queries
	now  func() time.Time
}

var (
	_ timecard.EntryStore   = (*Store)(nil)
	_ timecard.ProfileStore = (*Store)(nil)
	_ policy.Store          = (*Store)(nil)
)

// querier is implemented by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB is the part of *pgxpool.Pool the store uses.
type DB interface {
	querier
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// sqlizer is any squirrel builder.
type sqlizer interface {
	ToSql() (string, []any, error)
}

// NewPool creates a connection pool from the database config, applies the
// pool settings and pings the database.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// Migrate applies every pending embedded migration.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrationsFS())
	if err != nil {
		return fmt.Errorf("goose new provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

func migrationsFS() fs.FS {
	sub, err := fs.Sub(migrations, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// New wraps a migrated pool.
func New(pool DB) *Store {
	return &Store{pool: pool, q: record.NewQueries(sq.Dollar), now: time.Now}
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// =============================================================================
// ENTRY STORE
// =============================================================================

// SaveEntry inserts or replaces a pending entry and its breaks.
func (s *Store) SaveEntry(ctx context.Context, e timecard.TimeEntry) (timecard.TimeEntry, error) {
	if err := e.Validate(); err != nil {
		return timecard.TimeEntry{}, err
	}
	e = timecard.AssignIDs(e)

	var saved timecard.TimeEntry
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var existing string
		err := queryRow(ctx, tx, s.q.EntryStatus(e.ID).Suffix("FOR UPDATE"), &existing)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
		case err != nil:
			return fmt.Errorf("read entry %s: %w", e.ID, err)
		case timecard.Status(existing).Locked():
			return timecard.ErrEntryLocked
		}

		now := s.now().UTC()
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		e.UpdatedAt = now

		if err := exec(ctx, tx, s.q.UpsertEntry(e)); err != nil {
			return mapError(err, "entry", e.ID)
		}
		if err := exec(ctx, tx, s.q.DeleteBreaks(e.ID)); err != nil {
			return mapError(err, "entry", e.ID)
		}
		if ib, ok := s.q.InsertBreaks(e); ok {
			if err := exec(ctx, tx, ib); err != nil {
				return mapError(err, "entry", e.ID)
			}
		}
		saved, err = s.getEntry(ctx, tx, e.ID)
		return err
	})
	if err != nil {
		return timecard.TimeEntry{}, err
	}
	return saved, nil
}

// GetEntry returns an entry with its breaks.
func (s *Store) GetEntry(ctx context.Context, id string) (timecard.TimeEntry, error) {
	return s.getEntry(ctx, s.pool, id)
}

// UpdateStatus applies a state-machine transition.
func (s *Store) UpdateStatus(ctx context.Context, id string, to timecard.Status) (timecard.TimeEntry, error) {
	var updated timecard.TimeEntry
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var current string
		err := queryRow(ctx, tx, s.q.EntryStatus(id).Suffix("FOR UPDATE"), &current)
		if err != nil {
			return mapError(err, "entry", id)
		}
		e, err := s.getEntry(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := e.Transition(to); err != nil {
			return err
		}
		e.UpdatedAt = s.now().UTC()
		if err := exec(ctx, tx, s.q.UpdateStatus(id, to, e.UpdatedAt)); err != nil {
			return mapError(err, "entry", id)
		}
		updated = e
		return nil
	})
	if err != nil {
		return timecard.TimeEntry{}, err
	}
	return updated, nil
}

// LoadEntries returns an employee's entries intersecting [from, to].
func (s *Store) LoadEntries(ctx context.Context, employeeID string, from, to time.Time) ([]timecard.TimeEntry, error) {
	query, args, err := s.q.SelectEntries(employeeID, from, to).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build entries query: %w", err)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load entries of %s: %w", employeeID, err)
	}
	entries, err := collect(rows, record.ScanEntry)
	if err != nil {
		return nil, fmt.Errorf("scan entries of %s: %w", employeeID, err)
	}
	if err := s.attachBreaks(ctx, s.pool, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) getEntry(ctx context.Context, q querier, id string) (timecard.TimeEntry, error) {
	query, args, err := s.q.SelectEntry(id).ToSql()
	if err != nil {
		return timecard.TimeEntry{}, fmt.Errorf("build entry query: %w", err)
	}
	e, err := record.ScanEntry(q.QueryRow(ctx, query, args...))
	if err != nil {
		return timecard.TimeEntry{}, mapError(err, "entry", id)
	}
	entries := []timecard.TimeEntry{e}
	if err := s.attachBreaks(ctx, q, entries); err != nil {
		return timecard.TimeEntry{}, err
	}
	return entries[0], nil
}

func (s *Store) attachBreaks(ctx context.Context, q querier, entries []timecard.TimeEntry) error {
	if len(entries) == 0 {
		return nil
	}
	query, args, err := s.q.SelectBreaks(record.EntryIDs(entries)).ToSql()
	if err != nil {
		return fmt.Errorf("build breaks query: %w", err)
	}
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("load breaks: %w", err)
	}
	defer rows.Close()

	byEntry := make(map[string][]timecard.Break)
	for rows.Next() {
		entryID, b, err := record.ScanBreak(rows)
		if err != nil {
			return fmt.Errorf("scan break: %w", err)
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
// PROFILE STORE
// =============================================================================

// SaveProfile inserts or replaces an employee profile.
func (s *Store) SaveProfile(ctx context.Context, p timecard.Profile) error {
	if strings.TrimSpace(p.ID) == "" {
		return timecard.ErrMissingEmployeeID
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	if err := exec(ctx, s.pool, s.q.UpsertEmployee(p)); err != nil {
		return mapError(err, "employee", p.ID)
	}
	return nil
}

// GetProfile returns an employee profile.
func (s *Store) GetProfile(ctx context.Context, employeeID string) (timecard.Profile, error) {
	query, args, err := s.q.SelectEmployee(employeeID).ToSql()
	if err != nil {
		return timecard.Profile{}, fmt.Errorf("build employee query: %w", err)
	}
	p, err := record.ScanEmployee(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return timecard.Profile{}, mapError(err, "employee", employeeID)
	}
	return p, nil
}

// =============================================================================
// POLICY STORE
// =============================================================================

// SavePolicy appends a policy version.
func (s *Store) SavePolicy(ctx context.Context, p policy.Policy) error {
	ib, err := s.q.InsertPolicy(p)
	if err != nil {
		return err
	}
	if err := exec(ctx, s.pool, ib); err != nil {
		return mapError(err, "policy", p.ID)
	}
	return nil
}

// LoadPolicies returns every stored policy version.
func (s *Store) LoadPolicies(ctx context.Context) ([]policy.Policy, error) {
	query, args, err := s.q.SelectPolicies().ToSql()
	if err != nil {
		return nil, fmt.Errorf("build policies query: %w", err)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load policies: %w", err)
	}
	return collect(rows, record.ScanPolicy)
}

// =============================================================================
// HELPERS
// =============================================================================

func exec(ctx context.Context, q querier, b sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build statement: %w", err)
	}
	_, err = q.Exec(ctx, query, args...)
	return err
}

func queryRow(ctx context.Context, q querier, b sqlizer, dest ...any) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return q.QueryRow(ctx, query, args...).Scan(dest...)
}

func collect[T any](rows pgx.Rows, scan func(record.Scanner) (T, error)) ([]T, error) {
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// mapError converts pgx errors to domain errors. Context errors pass through
// wrapped.
func mapError(err error, entity, id string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		switch entity {
		case "entry":
			return fmt.Errorf("%s %s: %w", entity, id, timecard.ErrEntryNotFound)
		case "employee":
			return fmt.Errorf("%s %s: %w", entity, id, timecard.ErrEmployeeNotFound)
		case "policy":
			return fmt.Errorf("%s %s: %w", entity, id, policy.ErrPolicyNotFound)
		}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			if entity == "policy" {
				return fmt.Errorf("%s %s: %w", entity, id, policy.ErrDuplicateVersion)
			}
		case "23514": // check_violation
			return fmt.Errorf("%s %s: %w", entity, id, timecard.ErrInvalidTimeRange)
		}
	}
	return fmt.Errorf("%s %s: %w", entity, id, err)
}
