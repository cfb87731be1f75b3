package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/stacklok/toolhive-assetsync/internal/checker"
	"github.com/stacklok/toolhive-assetsync/internal/config"
	"github.com/stacklok/toolhive-assetsync/internal/engine"
	"github.com/stacklok/toolhive-assetsync/internal/naming"
	"github.com/stacklok/toolhive-assetsync/internal/status"
	"github.com/stacklok/toolhive-assetsync/internal/syncerr"
)

// Coordinator manages background synchronization of the configured resources
type Coordinator interface {
	// Start begins background sync coordination.
	// Blocks until context is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop gracefully stops the coordinator
	Stop() error

	// RunOnce checks every resource once and syncs those that need it.
	// The returned error joins the failures of individual resources.
	RunOnce(ctx context.Context) error

	// GetStatus returns a copy of the status of key, or nil when key is not watched
	GetStatus(key naming.ResourceKey) *status.SyncStatus

	// GetAllStatus returns a copy of the status of every watched resource
	GetAllStatus() map[naming.ResourceKey]*status.SyncStatus
}

// defaultCoordinator is the default implementation of Coordinator
type defaultCoordinator struct {
	syncer engine.Syncer
	config *config.WatchConfig
	keys   []naming.ResourceKey

	statusPersistence status.StatusPersistence
	newBackOff        backOffFactory

	// Lifecycle management
	mu         sync.Mutex
	cancelFunc context.CancelFunc
	done       chan struct{}

	statusMu sync.Mutex
	statuses map[naming.ResourceKey]*status.SyncStatus
}

// Option is a function that configures the coordinator
type Option func(*defaultCoordinator)

// WithStatusPersistence saves every status transition through p
func WithStatusPersistence(p status.StatusPersistence) Option {
	return func(c *defaultCoordinator) {
		c.statusPersistence = p
	}
}

// WithBackOff replaces the exponential backoff used between network retries
func WithBackOff(factory backOffFactory) Option {
	return func(c *defaultCoordinator) {
		c.newBackOff = factory
	}
}

// New creates a new coordinator with injected dependencies
func New(syncer engine.Syncer, cfg *config.WatchConfig, opts ...Option) Coordinator {
	if cfg == nil {
		cfg = &config.WatchConfig{}
	}
	c := &defaultCoordinator{
		syncer:   syncer,
		config:   cfg,
		keys:     cfg.Keys(),
		done:     make(chan struct{}),
		statuses: make(map[naming.ResourceKey]*status.SyncStatus),
	}
	c.newBackOff = exponentialBackOff(cfg.Retry)

	for _, opt := range opts {
		opt(c)
	}

	for _, key := range c.keys {
		c.statuses[key] = &status.SyncStatus{Phase: status.SyncPhasePending}
	}
	return c
}

// calculatePollingInterval returns base with a random jitter of up to ±10% applied,
// so several instances watching the same remote do not fetch in lockstep
func calculatePollingInterval(base time.Duration) time.Duration {
	jitter := base / 10
	if jitter <= 0 {
		return base
	}
	//nolint:gosec // G404: Non-cryptographic randomness is sufficient for polling jitter
	jitterOffset := time.Duration(rand.Int64N(int64(2*jitter))) - jitter
	return base + jitterOffset
}

// Start begins background sync coordination
func (c *defaultCoordinator) Start(ctx context.Context) error {
	slog.Info("Starting background sync coordinator", "resource_count", len(c.keys))

	coordCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancelFunc = cancel
	c.mu.Unlock()
	defer func() {
		cancel()
		close(c.done)
		slog.Info("Background sync coordinator shutting down")
	}()

	c.loadStatus(coordCtx)

	pollingInterval := calculatePollingInterval(c.config.GetInterval())
	slog.Info("Configured coordinator sync interval",
		"base_interval", c.config.GetInterval(),
		"actual_interval", pollingInterval)

	ticker := time.NewTicker(pollingInterval)
	defer ticker.Stop()

	// Initial round on startup
	_ = c.runRound(coordCtx)

	for {
		select {
		case <-ticker.C:
			_ = c.runRound(coordCtx)

			// Recalculate interval with new jitter for next iteration
			ticker.Reset(calculatePollingInterval(c.config.GetInterval()))
		case <-coordCtx.Done():
			slog.Info("Sync coordinator stopping")
			return nil
		}
	}
}

// Stop gracefully stops the coordinator
func (c *defaultCoordinator) Stop() error {
	c.mu.Lock()
	cancel := c.cancelFunc
	c.mu.Unlock()

	if cancel != nil {
		slog.Info("Stopping sync coordinator")
		cancel()
		// Wait for coordinator to finish
		<-c.done
	}
	return nil
}

// RunOnce checks every resource once
func (c *defaultCoordinator) RunOnce(ctx context.Context) error {
	return c.runRound(ctx)
}

// runRound processes every resource with bounded concurrency
func (c *defaultCoordinator) runRound(ctx context.Context) error {
	errs := make([]error, len(c.keys))

	var g errgroup.Group
	g.SetLimit(c.config.GetConcurrency())
	for i, key := range c.keys {
		g.Go(func() error {
			// Failures are collected, never returned, so one resource cannot cancel the others
			errs[i] = c.checkResource(ctx, key)
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

// checkResource asks whether key moved and syncs it when it did
func (c *defaultCoordinator) checkResource(ctx context.Context, key naming.ResourceKey) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	result, err := retry(ctx, c, key, "check", func() (*checker.Result, error) {
		return c.syncer.CheckForUpdate(ctx, key.Locale, key.Type)
	})
	now := time.Now()
	if err != nil {
		c.withStatus(ctx, key, func(s *status.SyncStatus) {
			s.LastCheckTime = &now
			markFailed(s, err)
		})
		slog.Error("Update check failed", "resource", key.String(), "error", err)
		return err
	}

	slog.Debug("Update check finished",
		"resource", key.String(),
		"update_available", result.IsUpdateAvailable,
		"local", result.LocalSHA,
		"remote", result.RemoteSHA)

	if !result.IsUpdateAvailable {
		c.updateStatusForSkippedSync(ctx, key, result.LocalSHA, now)
		return nil
	}
	return c.performSync(ctx, key, result.RemoteSHA, now)
}

// performSync executes a sync operation and updates status for key
func (c *defaultCoordinator) performSync(ctx context.Context, key naming.ResourceKey, target string, checked time.Time) error {
	var attemptCount int
	c.withStatus(ctx, key, func(s *status.SyncStatus) {
		s.Phase = status.SyncPhaseSyncing
		s.Message = "Sync in progress"
		s.LastAttempt = &checked
		s.LastCheckTime = &checked
		s.AttemptCount++
		attemptCount = s.AttemptCount
	})

	slog.Info("Starting sync operation", "resource", key.String(), "attempt", attemptCount)

	// Outside the status lock, this can take a long time
	outcome, err := retry(ctx, c, key, "sync", func() (engine.UpdateStatus, error) {
		return c.syncer.Sync(ctx, key.Locale, key.Type, nil)
	})

	revision := target
	if err == nil {
		revision = c.syncedRevision(key, target)
	}

	now := time.Now()
	c.withStatus(ctx, key, func(s *status.SyncStatus) {
		if err != nil {
			markFailed(s, err)
			return
		}
		s.Phase = status.SyncPhaseComplete
		s.Message = "Sync completed: " + outcome.String()
		s.ErrorCode = ""
		s.LastSyncTime = &now
		s.LastRevision = revision
		s.AttemptCount = 0
	})

	if err != nil {
		slog.Error("Sync failed", "resource", key.String(), "error", err)
		return err
	}
	slog.Info("Sync completed successfully",
		"resource", key.String(),
		"outcome", outcome.String(),
		"revision", shortRevision(revision))
	return nil
}

// syncedRevision reads back the revision the sync checked out.
// The branch may have moved between the check and the sync; checked is used when no record is readable.
func (c *defaultCoordinator) syncedRevision(key naming.ResourceKey, checked string) string {
	record, err := c.syncer.Record(key.Locale, key.Type)
	if err != nil {
		slog.Warn("Failed to read revision after sync", "resource", key.String(), "error", err)
		return checked
	}
	if record == nil || record.Revision == "" {
		return checked
	}
	return record.Revision
}

// updateStatusForSkippedSync records a check that found nothing to do
func (c *defaultCoordinator) updateStatusForSkippedSync(
	ctx context.Context, key naming.ResourceKey, revision string, checked time.Time,
) {
	c.withStatus(ctx, key, func(s *status.SyncStatus) {
		s.Phase = status.SyncPhaseComplete
		s.Message = "Sync skipped: up to date"
		s.ErrorCode = ""
		s.LastCheckTime = &checked
		s.LastRevision = revision
		s.AttemptCount = 0
	})
}

// GetStatus returns a copy of the status of key
func (c *defaultCoordinator) GetStatus(key naming.ResourceKey) *status.SyncStatus {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()

	s, ok := c.statuses[key]
	if !ok {
		return nil
	}
	cp := *s
	return &cp
}

// GetAllStatus returns a copy of every status
func (c *defaultCoordinator) GetAllStatus() map[naming.ResourceKey]*status.SyncStatus {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()

	all := make(map[naming.ResourceKey]*status.SyncStatus, len(c.statuses))
	for key, s := range c.statuses {
		cp := *s
		all[key] = &cp
	}
	return all
}

// loadStatus seeds the in-memory statuses from persistence
func (c *defaultCoordinator) loadStatus(ctx context.Context) {
	if c.statusPersistence == nil {
		return
	}
	persisted, err := c.statusPersistence.LoadAllStatus(ctx)
	if err != nil {
		slog.Warn("Failed to load persisted sync status", "error", err)
		return
	}

	c.statusMu.Lock()
	defer c.statusMu.Unlock()
	for _, key := range c.keys {
		s, ok := persisted[key]
		if !ok {
			continue
		}
		// A sync interrupted by a restart is not running anymore
		if s.Phase == status.SyncPhaseSyncing {
			s.Phase = status.SyncPhaseFailed
			s.Message = "Sync interrupted"
		}
		c.statuses[key] = s
	}
}

// withStatus runs fn on the status of key under the status lock and persists the result
func (c *defaultCoordinator) withStatus(ctx context.Context, key naming.ResourceKey, fn func(s *status.SyncStatus)) {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()

	s, ok := c.statuses[key]
	if !ok {
		s = &status.SyncStatus{Phase: status.SyncPhasePending}
		c.statuses[key] = s
	}
	fn(s)

	if c.statusPersistence != nil {
		// The context may already be cancelled on shutdown; the final status must still be written
		if err := c.statusPersistence.SaveStatus(context.WithoutCancel(ctx), key, s); err != nil {
			slog.Warn("Failed to persist sync status", "resource", key.String(), "error", err)
		}
	}
}

func markFailed(s *status.SyncStatus, err error) {
	s.Phase = status.SyncPhaseFailed
	s.Message = err.Error()
	s.ErrorCode = syncerr.CodeOf(err).String()
}

func shortRevision(revision string) string {
	if len(revision) > 8 {
		return revision[:8]
	}
	return revision
}
