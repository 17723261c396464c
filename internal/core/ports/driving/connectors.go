package driving

import (
	"context"

	"github.com/custodia-labs/inlet/internal/core/domain"
)

// ConnectorAdmin manages connector configurations for an owner.
type ConnectorAdmin interface {
	// Create registers a new connector. Enforces at most one connector
	// of a given type per owner.
	Create(ctx context.Context, c *domain.Connector) error

	// Get returns the connector if it exists and belongs to ownerID.
	Get(ctx context.Context, ownerID string, id int64) (*domain.Connector, error)

	// List returns the owner's connectors.
	List(ctx context.Context, ownerID string) ([]domain.Connector, error)

	// Update modifies name/config of an owned connector.
	Update(ctx context.Context, ownerID string, c *domain.Connector) error

	// Delete removes an owned connector.
	Delete(ctx context.Context, ownerID string, id int64) error
}
