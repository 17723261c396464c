package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/inlet/internal/core/domain"
)

// Container is a provider-specific grouping of items: a chat channel,
// a wiki page, a repository, an issue.
type Container struct {
	// ID is the provider-native container identifier.
	ID string

	// Name is the human-readable container name.
	Name string

	// Accessible reports whether the integration can read the
	// container's contents. Inaccessible containers are enumerated so
	// the run can record them as skips rather than failing.
	Accessible bool
}

// Block is one node of a tree-shaped item (wiki page content).
type Block struct {
	// Type is the provider block type (paragraph, heading_1, code, ...).
	Type string

	// Content is the block's own text content.
	Content string

	// Children are nested blocks, one indentation level deeper.
	Children []Block
}

// RawItem is the provider-native representation of one fetchable unit.
// Flat sources (chat messages, issues) populate Text; tree-shaped
// sources (wiki pages) populate Blocks. Ephemeral: exists only during
// a run and is never persisted directly.
type RawItem struct {
	// ID is the provider-native item identifier.
	ID string

	// ContainerID identifies the container the item belongs to.
	ContainerID string

	// Author is the item's author display name, if the provider has one.
	Author string

	// Timestamp is when the item was created or last edited.
	Timestamp time.Time

	// Text is the flat text content.
	Text string

	// Blocks is the nested content tree, nil for flat sources.
	Blocks []Block
}

// SourceClient fetches content from one provider on behalf of one
// connector. Implementations authenticate with the connector's
// credential, respect the provider's rate limits, and filter noise
// items (bot/system/join-leave events) before returning.
type SourceClient interface {
	// Provider returns the connector type this client serves.
	Provider() domain.ConnectorType

	// LookbackGrace returns the defensive re-cover span for this
	// provider when the watermark falls on the run's calendar day.
	LookbackGrace() time.Duration

	// ListContainers enumerates the containers the credential can see.
	// Fails with domain.ErrAuthInvalid on a rejected credential and
	// domain.ErrRateLimited on throttling. A total failure here aborts
	// the run; individual inaccessible containers are returned with
	// Accessible=false instead of failing.
	ListContainers(ctx context.Context) ([]Container, error)

	// FetchItems returns the container's items inside the window,
	// bounded by a per-container item cap. Containers the credential
	// cannot read fail with domain.ErrContainerInaccessible.
	FetchItems(ctx context.Context, containerID string, window domain.SyncWindow) ([]RawItem, error)
}

// SourceClientFactory builds a SourceClient for a connector.
// Construction fails fast with domain.ErrMissingCredential when a
// required config key is absent, and domain.ErrNotIndexable for
// search-API connector types.
type SourceClientFactory interface {
	Create(connector *domain.Connector) (SourceClient, error)
}
