// Package services holds the core application services: the indexing
// runner, document assembly, background dispatch and connector
// administration.
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/custodia-labs/inlet/internal/core/domain"
	"github.com/custodia-labs/inlet/internal/core/ports/driven"
	"github.com/custodia-labs/inlet/internal/core/ports/driving"
	"github.com/custodia-labs/inlet/internal/logger"
)

// DefaultContainerWorkers bounds concurrent containers within one run.
const DefaultContainerWorkers = 4

// Ensure ConnectorRunner implements the interface.
var _ driving.Indexer = (*ConnectorRunner)(nil)

// ConnectorRunner executes one indexing run for one connector: plan
// the window, enumerate containers, render and assemble each container
// into a document, persist per container, then advance the watermark
// if anything was persisted.
type ConnectorRunner struct {
	connectors driven.ConnectorStore
	documents  driven.DocumentStore
	reports    driven.RunReportStore
	factory    driven.SourceClientFactory
	registry   driven.NormaliserRegistry
	assembler  *DocumentAssembler

	workers int
	now     func() time.Time
}

// RunnerOption configures the runner.
type RunnerOption func(*ConnectorRunner)

// WithContainerWorkers bounds concurrent container processing.
func WithContainerWorkers(n int) RunnerOption {
	return func(r *ConnectorRunner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithClock overrides the run clock. Used by tests.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *ConnectorRunner) { r.now = now }
}

// NewConnectorRunner creates an indexing runner.
func NewConnectorRunner(
	connectors driven.ConnectorStore,
	documents driven.DocumentStore,
	reports driven.RunReportStore,
	factory driven.SourceClientFactory,
	registry driven.NormaliserRegistry,
	assembler *DocumentAssembler,
	opts ...RunnerOption,
) *ConnectorRunner {
	r := &ConnectorRunner{
		connectors: connectors,
		documents:  documents,
		reports:    reports,
		factory:    factory,
		registry:   registry,
		assembler:  assembler,
		workers:    DefaultContainerWorkers,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes one indexing run. Container failures are isolated into
// skip records; only infrastructure failures return an error. On
// cancellation the partial report is returned alongside the context
// error.
func (r *ConnectorRunner) Run(ctx context.Context, connectorID, searchSpaceID int64) (*domain.RunReport, error) {
	connector, err := r.connectors.Get(ctx, connectorID)
	if err != nil {
		return nil, fmt.Errorf("get connector: %w", err)
	}

	client, err := r.factory.Create(connector)
	if err != nil {
		return nil, fmt.Errorf("create source client: %w", err)
	}

	normaliser, ok := r.registry.For(connector.Type)
	if !ok {
		return nil, fmt.Errorf("%w: no normaliser for %s", domain.ErrUnsupportedType, connector.Type)
	}

	startedAt := r.now().UTC()
	window := domain.PlanWindow(connector.LastSyncedAt, startedAt, client.LookbackGrace())

	logger.Info("Indexing connector %d (%s): window %s to %s",
		connector.ID, connector.Type,
		window.From.Format(time.RFC3339), window.To.Format(time.RFC3339))

	containers, err := client.ListContainers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}

	report := &domain.RunReport{
		ConnectorID:   connectorID,
		SearchSpaceID: searchSpaceID,
		Window:        window,
		StartedAt:     startedAt,
	}

	pool, err := ants.NewPool(r.workers)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	var unscheduled []driven.Container
	for i, container := range containers {
		if ctx.Err() != nil {
			unscheduled = containers[i:]
			break
		}

		container := container
		wg.Add(1)
		task := func() {
			defer wg.Done()

			persisted, skipReason := r.processContainer(ctx, connector, searchSpaceID,
				client, normaliser, container, window, startedAt)

			mu.Lock()
			defer mu.Unlock()
			if persisted {
				report.DocumentsPersisted++
			}
			if skipReason != "" {
				report.AddSkip(container.ID, container.Name, skipReason)
			}
		}

		if err := pool.Submit(task); err != nil {
			// Pool rejected the task (released under us); run inline.
			task()
		}
	}
	wg.Wait()

	// A cancelled run still finalizes its report so committed work stays
	// visible in the audit trail. The watermark does not advance: the
	// unscheduled containers' span must be re-covered by the next run.
	runErr := ctx.Err()
	finishCtx := ctx
	if runErr != nil {
		finishCtx = context.WithoutCancel(ctx)
		for _, c := range unscheduled {
			report.AddSkip(c.ID, c.Name, "run cancelled")
		}
	}

	if runErr == nil && report.DocumentsPersisted > 0 {
		if err := r.connectors.AdvanceWatermark(finishCtx, connectorID, window.To); err != nil {
			return nil, fmt.Errorf("advance watermark: %w", err)
		}
		report.WatermarkAdvanced = true
	}

	report.FinishedAt = r.now().UTC()

	if err := r.reports.Save(finishCtx, report); err != nil {
		// A lost audit row is not fatal.
		logger.Warn("Failed to save run report for connector %d: %v", connectorID, err)
	}

	logger.Info("Indexed connector %d: %d documents, %d skips, watermark advanced: %v",
		connectorID, report.DocumentsPersisted, len(report.Skips), report.WatermarkAdvanced)

	return report, runErr
}

// processContainer runs the fetch-render-assemble-persist pipeline for
// one container. Returns whether a document was persisted and a skip
// reason ("" when the container either persisted or had nothing to
// index).
func (r *ConnectorRunner) processContainer(
	ctx context.Context,
	connector *domain.Connector,
	searchSpaceID int64,
	client driven.SourceClient,
	normaliser driven.Normaliser,
	container driven.Container,
	window domain.SyncWindow,
	now time.Time,
) (persisted bool, skipReason string) {
	if !container.Accessible {
		return false, "container inaccessible"
	}

	items, err := client.FetchItems(ctx, container.ID, window)
	if err != nil {
		logger.Warn("Fetch failed for container %s (%s): %v", container.ID, container.Name, err)
		return false, fmt.Sprintf("fetch failed: %v", err)
	}

	body, itemCount := normaliser.Render(container.Name, items)
	if itemCount == 0 {
		logger.Debug("Container %s (%s): nothing to index in window", container.ID, container.Name)
		return false, ""
	}

	doc, err := r.assembler.Assemble(ctx, AssemblyInput{
		Connector:     connector,
		SearchSpaceID: searchSpaceID,
		Container:     container,
		Window:        window,
		Body:          body,
		ItemCount:     itemCount,
		Now:           now,
	})
	if err != nil {
		logger.Warn("Assembly failed for container %s (%s): %v", container.ID, container.Name, err)
		return false, fmt.Sprintf("assembly failed: %v", err)
	}

	if err := r.documents.SaveDocument(ctx, doc); err != nil {
		logger.Warn("Persist failed for container %s (%s): %v", container.ID, container.Name, err)
		return false, fmt.Sprintf("persist failed: %v", err)
	}

	logger.Debug("Persisted document %s for container %s (%d items, %d chunks)",
		doc.ID, container.Name, itemCount, len(doc.Chunks))
	return true, ""
}
