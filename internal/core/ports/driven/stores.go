package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/inlet/internal/core/domain"
)

// ConnectorStore persists connector configurations and watermarks.
type ConnectorStore interface {
	// Create stores a new connector. Fails with domain.ErrAlreadyExists
	// when the owner already has a connector of the same type.
	Create(ctx context.Context, c *domain.Connector) error

	// Get retrieves a connector by ID.
	Get(ctx context.Context, id int64) (*domain.Connector, error)

	// ListByOwner returns all connectors for an owner.
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Connector, error)

	// Update persists name/config changes. The watermark is not
	// touched here; only AdvanceWatermark moves it.
	Update(ctx context.Context, c *domain.Connector) error

	// Delete removes a connector.
	Delete(ctx context.Context, id int64) error

	// AdvanceWatermark sets last_synced_at. Called only by a run that
	// persisted at least one document.
	AdvanceWatermark(ctx context.Context, id int64, to time.Time) error
}

// DocumentStore persists document+chunks aggregates.
type DocumentStore interface {
	// SaveDocument atomically stores a document and all its chunks in
	// one transaction. Either everything is committed or nothing is.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document with its chunks.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// ListBySearchSpace returns documents in a search space.
	ListBySearchSpace(ctx context.Context, searchSpaceID int64) ([]domain.Document, error)

	// DeleteDocument removes a document and its chunks.
	DeleteDocument(ctx context.Context, id string) error
}

// RunReportStore persists run reports for audit.
type RunReportStore interface {
	// Save stores a completed run's report.
	Save(ctx context.Context, report *domain.RunReport) error

	// ListByConnector returns reports for a connector, newest first.
	ListByConnector(ctx context.Context, connectorID int64, limit int) ([]domain.RunReport, error)
}

// RunLockStore provides per-connector mutual exclusion so two runs of
// the same connector never overlap.
type RunLockStore interface {
	// Acquire takes the connector's run lock, returning an opaque
	// token. Fails with domain.ErrRunInProgress while another
	// unexpired holder exists; expired locks are stolen.
	Acquire(ctx context.Context, connectorID int64, ttl time.Duration) (token string, err error)

	// Release frees the lock if token still holds it.
	Release(ctx context.Context, connectorID int64, token string) error
}
