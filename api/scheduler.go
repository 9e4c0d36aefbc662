/*
scheduler.go - Periodic policy synchronization

PURPOSE:
  Several server instances may share one PostgreSQL store. A policy
  published through one instance is saved to the store and registered in
  that instance's registry only. The scheduler periodically loads stored
  versions into the local registry so every instance resolves the same
  rules.

DESIGN:
  - Runs a background goroutine with a configurable check interval
  - Runs once immediately on start
  - Sync only adds versions; the registry never edits or removes one

CONFIGURATION:
  - Interval: engine.policy_sync_interval (0 disables the scheduler)

USAGE:
  scheduler := NewPolicySyncScheduler(store, registry, interval, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - policy/registry.go: Registry.Sync
  - handlers.go: CreatePolicy (publishing)
*/
package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/warp/labor-engine/policy"
)

// PolicySyncScheduler reloads stored policy versions on an interval.
type PolicySyncScheduler struct {
	Store    policy.Store
	Registry *policy.Registry
	Interval time.Duration
	Logger   *slog.Logger

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex // guards ticker and stop

	runMu   sync.Mutex // guards lastRun
	lastRun time.Time
}

// NewPolicySyncScheduler creates a new scheduler.
func NewPolicySyncScheduler(store policy.Store, registry *policy.Registry, interval time.Duration, logger *slog.Logger) *PolicySyncScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PolicySyncScheduler{
		Store:    store,
		Registry: registry,
		Interval: interval,
		Logger:   logger,
	}
}

// Start begins the scheduler. A non-positive interval leaves it disabled.
func (s *PolicySyncScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Interval <= 0 {
		s.Logger.Info("policy sync disabled")
		return
	}
	if s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(s.Interval)
	s.stop = make(chan struct{})
	s.wg.Add(1)
	go s.run(s.ticker, s.stop)

	s.Logger.Info("policy sync started", slog.Duration("interval", s.Interval))
}

// Stop stops the scheduler and waits for a running sync to finish.
func (s *PolicySyncScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		close(s.stop)
		s.wg.Wait()
		s.ticker = nil
		s.Logger.Info("policy sync stopped")
	}
}

func (s *PolicySyncScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer s.wg.Done()

	s.RunNow(context.Background())

	for {
		select {
		case <-ticker.C:
			s.RunNow(context.Background())
		case <-stop:
			return
		}
	}
}

// RunNow syncs immediately and returns how many versions were added.
func (s *PolicySyncScheduler) RunNow(ctx context.Context) int {
	added, err := s.Registry.Sync(ctx, s.Store)

	s.runMu.Lock()
	s.lastRun = time.Now()
	s.runMu.Unlock()

	if err != nil {
		s.Logger.Error("policy sync failed", slog.String("error", err.Error()), slog.Int("added", added))
		return added
	}
	if added > 0 {
		s.Logger.Info("policy sync added versions", slog.Int("added", added))
	}
	return added
}

// NextRunTime returns when the next scheduled sync will occur.
func (s *PolicySyncScheduler) NextRunTime() time.Time {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.lastRun.IsZero() {
		return time.Now()
	}
	return s.lastRun.Add(s.Interval)
}
