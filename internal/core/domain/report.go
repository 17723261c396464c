package domain

import "time"

// Skip records one container or item that an indexing run could not
// process, with enough context to identify the offender.
type Skip struct {
	// ContainerID identifies the skipped container (or the item's
	// container for item-level skips).
	ContainerID string

	// ContainerName is the human-readable container name, if known.
	ContainerName string

	// Reason is a short human-readable failure reason.
	Reason string
}

// RunReport is the outcome of one indexing run. Returned to the
// dispatcher and logged; also persisted for audit.
type RunReport struct {
	// ConnectorID identifies the connector that ran.
	ConnectorID int64

	// SearchSpaceID is the destination the run wrote into.
	SearchSpaceID int64

	// Window is the time range the run covered.
	Window SyncWindow

	// DocumentsPersisted is the number of documents durably committed.
	DocumentsPersisted int

	// Skips lists containers/items that failed, with reasons.
	Skips []Skip

	// WatermarkAdvanced reports whether the run moved last_synced_at.
	WatermarkAdvanced bool

	// StartedAt and FinishedAt bound the run's execution.
	StartedAt  time.Time
	FinishedAt time.Time
}

// AddSkip appends a skip record.
func (r *RunReport) AddSkip(containerID, containerName, reason string) {
	r.Skips = append(r.Skips, Skip{
		ContainerID:   containerID,
		ContainerName: containerName,
		Reason:        reason,
	})
}
