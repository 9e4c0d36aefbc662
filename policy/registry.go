package policy

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/labor-engine/timecard"
)

// =============================================================================
// REGISTRY - Append-only versioned policy store
// =============================================================================

// Resolver resolves the rules in force for a jurisdiction at an instant.
type Resolver interface {
	Resolve(jurisdiction string, at time.Time) RuleSet
}

// Store persists policy versions. Stored versions are never updated.
type Store interface {
	SavePolicy(ctx context.Context, p Policy) error
	LoadPolicies(ctx context.Context) ([]Policy, error)
}

type key struct {
	Jurisdiction string
	Type         Type
}

// Registry holds every policy version ever added. Versions are never edited
// or removed.
type Registry struct {
	mu        sync.RWMutex
	publishMu sync.Mutex // serializes Publish
	versions  map[key][]Policy
	byID      map[string]Policy
}

var _ Resolver = (*Registry)(nil)

func NewRegistry(policies ...Policy) (*Registry, error) {
	r := &Registry{
		versions: make(map[key][]Policy),
		byID:     make(map[string]Policy),
	}
	for _, p := range policies {
		if _, err := r.Add(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Restore builds a registry from every stored version. When the store is
// empty it saves and registers seed instead.
func Restore(ctx context.Context, s Store, seed ...Policy) (*Registry, error) {
	stored, err := s.LoadPolicies(ctx)
	if err != nil {
		return nil, fmt.Errorf("load policies: %w", err)
	}
	if len(stored) > 0 {
		return NewRegistry(stored...)
	}
	r, err := NewRegistry()
	if err != nil {
		return nil, err
	}
	for _, p := range seed {
		if _, err := r.Publish(ctx, s, p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Publish adds p to the registry and persists the stored form. A failed
// save leaves the registry unchanged.
func (r *Registry) Publish(ctx context.Context, s Store, p Policy) (Policy, error) {
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	r.publishMu.Lock()
	defer r.publishMu.Unlock()

	added, err := r.Add(p)
	if err != nil {
		return Policy{}, err
	}
	if err := s.SavePolicy(ctx, added); err != nil {
		r.remove(added)
		return Policy{}, fmt.Errorf("save policy %s: %w", added.ID, err)
	}
	return added, nil
}

// Sync adds stored versions the registry doesn't hold yet, such as versions
// published by another instance sharing the store. It returns how many
// versions were added.
func (r *Registry) Sync(ctx context.Context, s Store) (int, error) {
	stored, err := s.LoadPolicies(ctx)
	if err != nil {
		return 0, fmt.Errorf("load policies: %w", err)
	}
	r.publishMu.Lock()
	defer r.publishMu.Unlock()

	added := 0
	for _, p := range stored {
		r.mu.RLock()
		_, known := r.byID[p.ID]
		r.mu.RUnlock()
		if known {
			continue
		}
		if _, err := r.Add(p); err != nil {
			return added, fmt.Errorf("sync policy %s: %w", p.ID, err)
		}
		added++
	}
	return added, nil
}

func (r *Registry) remove(p Policy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, p.ID)
	k := key{Jurisdiction: p.Jurisdiction, Type: p.Type}
	versions := r.versions[k]
	for i, v := range versions {
		if v.ID == p.ID {
			r.versions[k] = append(versions[:i:i], versions[i+1:]...)
			break
		}
	}
}

// Add registers a new policy version. A zero Version is assigned the next
// version for its (jurisdiction, type). Adding an existing version fails
// with ErrDuplicateVersion.
func (r *Registry) Add(p Policy) (Policy, error) {
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	p.Jurisdiction = strings.ToUpper(strings.TrimSpace(p.Jurisdiction))
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p = clonePolicy(p)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[p.ID]; ok {
		return Policy{}, fmt.Errorf("%w: id %s", ErrDuplicateVersion, p.ID)
	}
	k := key{Jurisdiction: p.Jurisdiction, Type: p.Type}
	existing := r.versions[k]
	if p.Version == 0 {
		p.Version = 1
		for _, v := range existing {
			if v.Version >= p.Version {
				p.Version = v.Version + 1
			}
		}
	}
	for _, v := range existing {
		if v.Version == p.Version {
			return Policy{}, fmt.Errorf("%w: %s %s v%d", ErrDuplicateVersion, jurisdictionName(p.Jurisdiction), p.Type, p.Version)
		}
	}

	i := sort.Search(len(existing), func(i int) bool {
		e := existing[i]
		if e.EffectiveAt.Equal(p.EffectiveAt) {
			return e.Version > p.Version
		}
		return e.EffectiveAt.After(p.EffectiveAt)
	})
	existing = append(existing, Policy{})
	copy(existing[i+1:], existing[i:])
	existing[i] = p
	r.versions[k] = existing
	r.byID[p.ID] = p
	return clonePolicy(p), nil
}

// Get returns a policy by ID.
func (r *Registry) Get(id string) (Policy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	if !ok {
		return Policy{}, fmt.Errorf("%w: %s", ErrPolicyNotFound, id)
	}
	return clonePolicy(p), nil
}

// Effective returns the version of a policy type in force for exactly this
// jurisdiction at the instant: the latest EffectiveAt not after at, highest
// version on ties.
func (r *Registry) Effective(t Type, jurisdiction string, at time.Time) (Policy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.effectiveLocked(t, strings.ToUpper(strings.TrimSpace(jurisdiction)), at)
	if !ok {
		return Policy{}, fmt.Errorf("%w: %s %s at %s", ErrPolicyNotFound, jurisdictionName(jurisdiction), t, at.Format(time.RFC3339))
	}
	return clonePolicy(p), nil
}

func (r *Registry) effectiveLocked(t Type, jurisdiction string, at time.Time) (Policy, bool) {
	versions := r.versions[key{Jurisdiction: jurisdiction, Type: t}]
	for i := len(versions) - 1; i >= 0; i-- {
		if !versions[i].EffectiveAt.After(at) {
			return versions[i], true
		}
	}
	return Policy{}, false
}

// Resolve builds the full rule set for a jurisdiction at an instant. Each
// category comes from the jurisdiction if it has a version in force, else
// from the federal baseline, else from Defaults().
func (r *Registry) Resolve(jurisdiction string, at time.Time) RuleSet {
	jurisdiction = strings.ToUpper(strings.TrimSpace(jurisdiction))
	rs := Defaults()
	rs.Jurisdiction = jurisdiction

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range []Type{TypeOvertime, TypeBreak, TypeRest, TypeMinor, TypeRecordKeeping} {
		if p, ok := r.effectiveLocked(t, "", at); ok {
			rs.apply(p)
		}
		if jurisdiction == "" {
			continue
		}
		if p, ok := r.effectiveLocked(t, jurisdiction, at); ok {
			rs.apply(p)
		}
	}
	return rs
}

// List returns every version ordered by jurisdiction, type, then version.
func (r *Registry) List() []Policy {
	r.mu.RLock()
	out := make([]Policy, 0, len(r.byID))
	for _, p := range r.byID {
		out = append(out, clonePolicy(p))
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Jurisdiction != b.Jurisdiction {
			return a.Jurisdiction < b.Jurisdiction
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.Version < b.Version
	})
	return out
}

func jurisdictionName(j string) string {
	if j == "" {
		return "federal"
	}
	return j
}

// clonePolicy copies the rules so neither the caller nor the registry can
// mutate the other's view.
func clonePolicy(p Policy) Policy {
	if p.Overtime != nil {
		v := *p.Overtime
		p.Overtime = &v
	}
	if p.Break != nil {
		v := *p.Break
		p.Break = &v
	}
	if p.Rest != nil {
		v := *p.Rest
		if v.TwoWeekCaps != nil {
			caps := make(map[timecard.EmployeeType]decimal.Decimal, len(v.TwoWeekCaps))
			for t, c := range v.TwoWeekCaps {
				caps[t] = c
			}
			v.TwoWeekCaps = caps
		}
		p.Rest = &v
	}
	if p.Minor != nil {
		v := *p.Minor
		p.Minor = &v
	}
	if p.RecordKeeping != nil {
		v := *p.RecordKeeping
		p.RecordKeeping = &v
	}
	return p
}
