package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/inlet/internal/core/domain"
	"github.com/custodia-labs/inlet/internal/core/ports/driven"
)

// runReportStore implements driven.RunReportStore.
type runReportStore struct {
	store *Store
}

var _ driven.RunReportStore = (*runReportStore)(nil)

// Save stores a completed run's report.
func (s *runReportStore) Save(ctx context.Context, report *domain.RunReport) error {
	skips := report.Skips
	if skips == nil {
		skips = []domain.Skip{}
	}
	skipsJSON, err := json.Marshal(skips)
	if err != nil {
		return fmt.Errorf("marshalling skips: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO run_reports (connector_id, search_space_id, window_from, window_to,
			documents_persisted, skips, watermark_advanced, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, report.ConnectorID, report.SearchSpaceID,
		report.Window.From.UTC(), report.Window.To.UTC(),
		report.DocumentsPersisted, string(skipsJSON), report.WatermarkAdvanced,
		report.StartedAt.UTC(), report.FinishedAt.UTC())
	if err != nil {
		return fmt.Errorf("saving run report: %w", err)
	}
	return nil
}

// ListByConnector returns reports for a connector, newest first.
func (s *runReportStore) ListByConnector(ctx context.Context, connectorID int64, limit int) ([]domain.RunReport, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT connector_id, search_space_id, window_from, window_to,
			documents_persisted, skips, watermark_advanced, started_at, finished_at
		FROM run_reports WHERE connector_id = ?
		ORDER BY started_at DESC
		LIMIT ?
	`, connectorID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying run reports: %w", err)
	}
	defer rows.Close()

	var reports []domain.RunReport //nolint:prealloc // size unknown from query
	for rows.Next() {
		var report domain.RunReport
		var skipsJSON string
		if err := rows.Scan(&report.ConnectorID, &report.SearchSpaceID,
			&report.Window.From, &report.Window.To,
			&report.DocumentsPersisted, &skipsJSON, &report.WatermarkAdvanced,
			&report.StartedAt, &report.FinishedAt); err != nil {
			return nil, fmt.Errorf("scanning run report: %w", err)
		}
		if err := json.Unmarshal([]byte(skipsJSON), &report.Skips); err != nil {
			return nil, fmt.Errorf("unmarshaling skips: %w", err)
		}
		reports = append(reports, report)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating run reports: %w", err)
	}

	return reports, nil
}

// runLockStore implements driven.RunLockStore.
type runLockStore struct {
	store *Store
}

var _ driven.RunLockStore = (*runLockStore)(nil)

// Acquire takes the connector's run lock. An unexpired lock held by
// another run fails with ErrRunInProgress; expired locks are stolen.
func (s *runLockStore) Acquire(ctx context.Context, connectorID int64, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	now := time.Now().UTC()

	res, err := s.store.db.ExecContext(ctx, `
		INSERT INTO run_locks (connector_id, token, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT(connector_id) DO UPDATE SET
			token = excluded.token,
			expires_at = excluded.expires_at
		WHERE run_locks.expires_at <= ?
	`, connectorID, token, now.Add(ttl), now)
	if err != nil {
		return "", fmt.Errorf("acquiring run lock: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("checking lock result: %w", err)
	}
	if affected == 0 {
		return "", fmt.Errorf("%w: connector %d", domain.ErrRunInProgress, connectorID)
	}

	return token, nil
}

// Release frees the lock if token still holds it.
func (s *runLockStore) Release(ctx context.Context, connectorID int64, token string) error {
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM run_locks WHERE connector_id = ? AND token = ?", connectorID, token)
	if err != nil {
		return fmt.Errorf("releasing run lock: %w", err)
	}
	return nil
}
