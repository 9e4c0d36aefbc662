/*
store.go - Data-access interfaces the engine depends on

PURPOSE:
  The engine is synchronous math over a snapshot of entries. It reads that
  snapshot through these small interfaces; the calling layer owns
  persistence, isolation and retries.

KEY INTERFACES:
  EntryLoader:       Entries for one employee intersecting a time range
  EmployeeDirectory: Profile lookup (state, exemption, salary)
  EntryStore:        Loader + writes, implemented by every store

CONSISTENCY:
  Aggregations (weekly totals, consecutive-day lookback) are only as
  consistent as the snapshot the loader returns. Implementations must read
  committed data; the engine never locks, caches or retries.

IMPLEMENTATIONS:
  - timecard/store/memory.go: In-memory for tests and dev
  - store/sqlite/sqlite.go:   SQLite
  - store/postgres:           PostgreSQL
*/
package timecard

import (
	"context"
	"time"
)

// EntryLoader loads time entries for an employee.
type EntryLoader interface {
	// LoadEntries returns every entry of the employee that intersects
	// [from, to], ordered by clock-in. Breaks are included.
	LoadEntries(ctx context.Context, employeeID string, from, to time.Time) ([]TimeEntry, error)
}

// EmployeeDirectory looks up employee profiles.
type EmployeeDirectory interface {
	// GetProfile returns ErrEmployeeNotFound when the employee is unknown.
	GetProfile(ctx context.Context, employeeID string) (Profile, error)
}

// EntryStore is the full persistence contract for time entries.
type EntryStore interface {
	EntryLoader

	// SaveEntry inserts or replaces an entry and its breaks, assigning IDs
	// where missing. Returns ErrEntryLocked when the stored entry is no
	// longer pending.
	SaveEntry(ctx context.Context, entry TimeEntry) (TimeEntry, error)

	// GetEntry returns ErrEntryNotFound when the entry doesn't exist.
	GetEntry(ctx context.Context, id string) (TimeEntry, error)

	// UpdateStatus applies a state-machine transition.
	UpdateStatus(ctx context.Context, id string, to Status) (TimeEntry, error)
}

// ProfileStore persists employee profiles.
type ProfileStore interface {
	EmployeeDirectory
	SaveProfile(ctx context.Context, p Profile) error
}
