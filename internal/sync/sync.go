// Package sync periodically exports sanitized model configs as JSONL to
// external destinations.
package sync

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alfredjeanlab/cfgseed/internal/policy"
	"github.com/alfredjeanlab/cfgseed/internal/store"
)

// Destination is the interface for a sync target (S3, git, etc.).
type Destination interface {
	// Name identifies the destination in logs.
	Name() string
	// Write delivers the export to the destination.
	Write(ctx context.Context, snap *Snapshot) error
}

// Scheduler runs periodic syncs to one or more destinations.
type Scheduler struct {
	store        store.Store
	policy       policy.Source
	destinations []Destination
	interval     time.Duration
	logger       *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler that exports from the store to the given
// destinations at the specified interval. Each run sanitizes with the policy
// current at its start.
func NewScheduler(s store.Store, src policy.Source, destinations []Destination, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		store:        s,
		policy:       src,
		destinations: destinations,
		interval:     interval,
		logger:       logger,
	}
}

// Start begins periodic sync. It runs an initial sync immediately, then
// on each tick.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

// Stop cancels the scheduler and waits for the current sync (if any) to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	s.SyncOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SyncOnce(ctx)
		}
	}
}

// SyncOnce exports once and writes to every destination. It returns the
// number of destinations that failed; failures are logged.
func (s *Scheduler) SyncOnce(ctx context.Context) int {
	snap, err := Export(ctx, s.store, s.policy.Current(), s.logger)
	if err != nil {
		s.logger.Error("sync export failed", "error", err)
		return len(s.destinations)
	}

	failed := 0
	for _, dest := range s.destinations {
		if err := dest.Write(ctx, snap); err != nil {
			failed++
			s.logger.Error("sync destination write failed", "destination", dest.Name(), "error", err)
		}
	}

	s.logger.Info("sync completed",
		"destinations", len(s.destinations),
		"failed", failed,
		"configs", snap.Configs,
		"accounts", snap.Accounts,
		"policy_version", snap.PolicyVersion,
		"bytes", len(snap.Data))
	return failed
}
