package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/inlet/internal/core/domain"
	"github.com/custodia-labs/inlet/internal/core/ports/driven"
	"github.com/custodia-labs/inlet/internal/core/ports/driving"
)

// Ensure ConnectorService implements the interface.
var _ driving.ConnectorAdmin = (*ConnectorService)(nil)

// ConnectorService manages connector configurations. Ownership is
// enforced here so adapters never reach the store with another owner's
// connector ID.
type ConnectorService struct {
	store driven.ConnectorStore
}

// NewConnectorService creates a connector admin service.
func NewConnectorService(store driven.ConnectorStore) *ConnectorService {
	return &ConnectorService{store: store}
}

// Create registers a new connector for its owner. At most one
// connector of a given type per owner.
func (s *ConnectorService) Create(ctx context.Context, c *domain.Connector) error {
	if !c.Type.Valid() {
		return fmt.Errorf("%w: unknown connector type %q", domain.ErrInvalidInput, c.Type)
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: connector name is required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(c.OwnerID) == "" {
		return fmt.Errorf("%w: owner is required", domain.ErrInvalidInput)
	}

	return s.store.Create(ctx, c)
}

// Get returns the connector if it exists and belongs to ownerID.
// A connector owned by someone else reads as not found.
func (s *ConnectorService) Get(ctx context.Context, ownerID string, id int64) (*domain.Connector, error) {
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

// List returns the owner's connectors.
func (s *ConnectorService) List(ctx context.Context, ownerID string) ([]domain.Connector, error) {
	return s.store.ListByOwner(ctx, ownerID)
}

// Update modifies name and config of an owned connector. The type and
// the watermark are immutable through this path.
func (s *ConnectorService) Update(ctx context.Context, ownerID string, c *domain.Connector) error {
	existing, err := s.Get(ctx, ownerID, c.ID)
	if err != nil {
		return err
	}
	if c.Type != "" && c.Type != existing.Type {
		return fmt.Errorf("%w: connector type cannot be changed", domain.ErrInvalidInput)
	}

	if strings.TrimSpace(c.Name) != "" {
		existing.Name = c.Name
	}
	if c.Config != nil {
		existing.Config = c.Config
	}

	return s.store.Update(ctx, existing)
}

// Delete removes an owned connector.
func (s *ConnectorService) Delete(ctx context.Context, ownerID string, id int64) error {
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}
