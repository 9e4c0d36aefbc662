// Package store provides an in-memory implementation of the timecard and
// policy persistence interfaces.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/warp/labor-engine/policy"
	"github.com/warp/labor-engine/timecard"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu         sync.RWMutex
	entries    map[string]timecard.TimeEntry
	byEmployee map[string][]string
	profiles   map[string]timecard.Profile
	policies   []policy.Policy
}

func NewMemory() *Memory {
	return &Memory{
		entries:    make(map[string]timecard.TimeEntry),
		byEmployee: make(map[string][]string),
		profiles:   make(map[string]timecard.Profile),
	}
}

// SaveEntry inserts or replaces a pending entry.
func (m *Memory) SaveEntry(_ context.Context, e timecard.TimeEntry) (timecard.TimeEntry, error) {
	if err := e.Validate(); err != nil {
		return timecard.TimeEntry{}, err
	}
	e = timecard.AssignIDs(e)

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.entries[e.ID]; ok {
		if existing.Status.Locked() {
			return timecard.TimeEntry{}, timecard.ErrEntryLocked
		}
		if existing.EmployeeID != e.EmployeeID {
			m.unindexLocked(existing.EmployeeID, e.ID)
			m.byEmployee[e.EmployeeID] = append(m.byEmployee[e.EmployeeID], e.ID)
		}
	} else {
		m.byEmployee[e.EmployeeID] = append(m.byEmployee[e.EmployeeID], e.ID)
	}
	m.entries[e.ID] = cloneEntry(e)
	return cloneEntry(e), nil
}

func (m *Memory) GetEntry(_ context.Context, id string) (timecard.TimeEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[id]
	if !ok {
		return timecard.TimeEntry{}, timecard.ErrEntryNotFound
	}
	return cloneEntry(e), nil
}

func (m *Memory) UpdateStatus(_ context.Context, id string, to timecard.Status) (timecard.TimeEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return timecard.TimeEntry{}, timecard.ErrEntryNotFound
	}
	if err := e.Transition(to); err != nil {
		return timecard.TimeEntry{}, err
	}
	m.entries[id] = e
	return cloneEntry(e), nil
}

func (m *Memory) LoadEntries(_ context.Context, employeeID string, from, to time.Time) ([]timecard.TimeEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []timecard.TimeEntry
	for _, id := range m.byEmployee[employeeID] {
		e := m.entries[id]
		if e.Intersects(from, to) {
			result = append(result, cloneEntry(e))
		}
	}
	return timecard.SortEntries(result), nil
}

func (m *Memory) SaveProfile(_ context.Context, p timecard.Profile) error {
	if p.ID == "" {
		return timecard.ErrMissingEmployeeID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.ID] = p
	return nil
}

func (m *Memory) GetProfile(_ context.Context, employeeID string) (timecard.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[employeeID]
	if !ok {
		return timecard.Profile{}, timecard.ErrEmployeeNotFound
	}
	return p, nil
}

// SavePolicy appends a policy version. Versions are unique per
// jurisdiction and type.
func (m *Memory) SavePolicy(_ context.Context, p policy.Policy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.policies {
		if existing.ID == p.ID ||
			(existing.Jurisdiction == p.Jurisdiction && existing.Type == p.Type && existing.Version == p.Version) {
			return fmt.Errorf("%w: %s", policy.ErrDuplicateVersion, p.ID)
		}
	}
	m.policies = append(m.policies, p)
	return nil
}

// LoadPolicies returns every saved version in insertion order.
func (m *Memory) LoadPolicies(_ context.Context) ([]policy.Policy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]policy.Policy(nil), m.policies...), nil
}

func (m *Memory) unindexLocked(employeeID, id string) {
	ids := m.byEmployee[employeeID]
	for i, existing := range ids {
		if existing == id {
			m.byEmployee[employeeID] = append(ids[:i:i], ids[i+1:]...)
			return
		}
	}
}

// cloneEntry copies the break slice so callers never alias stored state.
func cloneEntry(e timecard.TimeEntry) timecard.TimeEntry {
	if e.Breaks != nil {
		e.Breaks = append([]timecard.Break(nil), e.Breaks...)
	}
	if e.ClockOut != nil {
		out := *e.ClockOut
		e.ClockOut = &out
	}
	return e
}

var (
	_ timecard.EntryStore   = (*Memory)(nil)
	_ timecard.ProfileStore = (*Memory)(nil)
	_ policy.Store          = (*Memory)(nil)
)
