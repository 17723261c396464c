package driving

import (
	"context"

	"github.com/custodia-labs/inlet/internal/core/domain"
)

// Indexer runs the indexing pipeline for one connector+destination
// pair synchronously. Used directly by tests and wrapped by the
// Dispatcher for background execution.
type Indexer interface {
	// Run executes one indexing run and returns its report.
	// Container- and item-level failures are recorded in the report;
	// only infrastructure errors (missing credential, enumeration
	// failure, storage unavailable) are returned as err. A cancelled
	// run returns its partial report alongside the context error.
	Run(ctx context.Context, connectorID, searchSpaceID int64) (*domain.RunReport, error)
}

// Dispatcher launches indexing runs as independent units of work,
// decoupled from the triggering request's lifetime.
type Dispatcher interface {
	// Dispatch starts a background run. Returns immediately after the
	// run is scheduled; fails with domain.ErrRunInProgress when the
	// connector already has a run in flight.
	Dispatch(connectorID, searchSpaceID int64) error

	// Close stops accepting dispatches and waits for in-flight runs.
	Close() error
}

// IndexPreview is the human-readable ack returned by the trigger
// surface when a run is started.
type IndexPreview struct {
	Message       string `json:"message"`
	ConnectorID   int64  `json:"connector_id"`
	SearchSpaceID int64  `json:"search_space_id"`
	IndexingFrom  string `json:"indexing_from"`
	IndexingTo    string `json:"indexing_to"`
}
