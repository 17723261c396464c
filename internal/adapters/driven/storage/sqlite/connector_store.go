package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/inlet/internal/core/domain"
	"github.com/custodia-labs/inlet/internal/core/ports/driven"
)

// connectorStore implements driven.ConnectorStore.
type connectorStore struct {
	store *Store
}

var _ driven.ConnectorStore = (*connectorStore)(nil)

// Create stores a new connector and fills in its assigned ID.
func (s *connectorStore) Create(ctx context.Context, c *domain.Connector) error {
	configJSON, err := json.Marshal(c.Config)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	res, err := s.store.db.ExecContext(ctx, `
		INSERT INTO connectors (owner_id, type, name, config, last_synced_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, c.OwnerID, c.Type, c.Name, string(configJSON), c.LastSyncedAt, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: owner %s already has a %s connector",
				domain.ErrAlreadyExists, c.OwnerID, c.Type)
		}
		return fmt.Errorf("creating connector: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting connector id: %w", err)
	}
	c.ID = id
	return nil
}

// Get retrieves a connector by ID.
func (s *connectorStore) Get(ctx context.Context, id int64) (*domain.Connector, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, owner_id, type, name, config, last_synced_at, created_at, updated_at
		FROM connectors WHERE id = ?
	`, id)

	return scanConnector(row)
}

// ListByOwner returns all connectors for an owner.
func (s *connectorStore) ListByOwner(ctx context.Context, ownerID string) ([]domain.Connector, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, owner_id, type, name, config, last_synced_at, created_at, updated_at
		FROM connectors WHERE owner_id = ?
		ORDER BY id
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("querying connectors: %w", err)
	}
	defer rows.Close()

	var connectors []domain.Connector //nolint:prealloc // size unknown from query
	for rows.Next() {
		c, err := scanConnector(rows)
		if err != nil {
			return nil, err
		}
		connectors = append(connectors, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating connectors: %w", err)
	}

	return connectors, nil
}

// Update persists name and config changes. The watermark is only moved
// by AdvanceWatermark.
func (s *connectorStore) Update(ctx context.Context, c *domain.Connector) error {
	configJSON, err := json.Marshal(c.Config)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	c.UpdatedAt = time.Now().UTC()

	res, err := s.store.db.ExecContext(ctx, `
		UPDATE connectors SET name = ?, config = ?, updated_at = ?
		WHERE id = ?
	`, c.Name, string(configJSON), c.UpdatedAt, c.ID)
	if err != nil {
		return fmt.Errorf("updating connector: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a connector.
func (s *connectorStore) Delete(ctx context.Context, id int64) error {
	res, err := s.store.db.ExecContext(ctx, "DELETE FROM connectors WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting connector: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AdvanceWatermark sets last_synced_at.
func (s *connectorStore) AdvanceWatermark(ctx context.Context, id int64, to time.Time) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE connectors SET last_synced_at = ?, updated_at = ?
		WHERE id = ?
	`, to.UTC(), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("advancing watermark: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking watermark result: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// scanner abstracts sql.Row and sql.Rows for shared scan helpers.
type scanner interface {
	Scan(dest ...any) error
}

func scanConnector(row scanner) (*domain.Connector, error) {
	var c domain.Connector
	var configJSON string
	var lastSyncedAt sql.NullTime

	if err := row.Scan(&c.ID, &c.OwnerID, &c.Type, &c.Name, &configJSON,
		&lastSyncedAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning connector: %w", err)
	}

	if err := json.Unmarshal([]byte(configJSON), &c.Config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if lastSyncedAt.Valid {
		t := lastSyncedAt.Time.UTC()
		c.LastSyncedAt = &t
	}

	return &c, nil
}
