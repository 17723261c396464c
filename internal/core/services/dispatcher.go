package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/custodia-labs/inlet/internal/core/ports/driven"
	"github.com/custodia-labs/inlet/internal/core/ports/driving"
	"github.com/custodia-labs/inlet/internal/logger"
)

const (
	// DefaultRunWorkers bounds concurrently executing runs.
	DefaultRunWorkers = 2

	// DefaultRunLockTTL is how long a run lock lives before a crashed
	// holder's lock can be stolen.
	DefaultRunLockTTL = time.Hour
)

// Ensure RunDispatcher implements the interface.
var _ driving.Dispatcher = (*RunDispatcher)(nil)

// RunDispatcher launches indexing runs on a bounded worker pool,
// holding a storage-backed per-connector lock for the duration of each
// run so concurrent triggers of the same connector never overlap.
type RunDispatcher struct {
	indexer driving.Indexer
	locks   driven.RunLockStore
	pool    *ants.Pool
	ttl     time.Duration

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// DispatcherOption configures the dispatcher.
type DispatcherOption func(*dispatcherConfig)

type dispatcherConfig struct {
	workers int
	ttl     time.Duration
}

// WithRunWorkers bounds concurrently executing runs.
func WithRunWorkers(n int) DispatcherOption {
	return func(c *dispatcherConfig) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithRunLockTTL sets the run lock expiry.
func WithRunLockTTL(ttl time.Duration) DispatcherOption {
	return func(c *dispatcherConfig) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// NewRunDispatcher creates a background run dispatcher.
func NewRunDispatcher(indexer driving.Indexer, locks driven.RunLockStore, opts ...DispatcherOption) (*RunDispatcher, error) {
	cfg := dispatcherConfig{
		workers: DefaultRunWorkers,
		ttl:     DefaultRunLockTTL,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	pool, err := ants.NewPool(cfg.workers)
	if err != nil {
		return nil, fmt.Errorf("create run pool: %w", err)
	}

	return &RunDispatcher{
		indexer: indexer,
		locks:   locks,
		pool:    pool,
		ttl:     cfg.ttl,
	}, nil
}

// Dispatch schedules a background run. The connector's run lock is
// acquired before scheduling, so a second dispatch for the same
// connector fails with domain.ErrRunInProgress until the first run
// finishes or its lock expires.
func (d *RunDispatcher) Dispatch(connectorID, searchSpaceID int64) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return fmt.Errorf("dispatcher is closed")
	}
	d.wg.Add(1)
	d.mu.Unlock()

	ctx := context.Background()

	token, err := d.locks.Acquire(ctx, connectorID, d.ttl)
	if err != nil {
		d.wg.Done()
		return fmt.Errorf("acquire run lock: %w", err)
	}

	task := func() {
		defer d.wg.Done()
		defer func() {
			if err := d.locks.Release(context.Background(), connectorID, token); err != nil {
				logger.Warn("Failed to release run lock for connector %d: %v", connectorID, err)
			}
		}()

		report, err := d.indexer.Run(ctx, connectorID, searchSpaceID)
		if err != nil {
			logger.Error("Indexing run failed for connector %d: %v", connectorID, err)
			return
		}
		logger.Info("Run finished for connector %d: %d documents persisted, %d skips",
			connectorID, report.DocumentsPersisted, len(report.Skips))
	}

	if err := d.pool.Submit(task); err != nil {
		d.wg.Done()
		if relErr := d.locks.Release(ctx, connectorID, token); relErr != nil {
			logger.Warn("Failed to release run lock for connector %d: %v", connectorID, relErr)
		}
		return fmt.Errorf("schedule run: %w", err)
	}

	return nil
}

// Close stops accepting dispatches and waits for in-flight runs.
func (d *RunDispatcher) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	d.wg.Wait()
	d.pool.Release()
	return nil
}
