package domain

import "time"

// DocumentType mirrors the connector type that produced a document.
type DocumentType string

const (
	DocumentSlack  DocumentType = "slack_connector"
	DocumentNotion DocumentType = "notion_connector"
	DocumentGitHub DocumentType = "github_connector"
	DocumentLinear DocumentType = "linear_connector"
)

// DocumentTypeFor maps a connector type to its document type.
func DocumentTypeFor(t ConnectorType) DocumentType {
	switch t {
	case ConnectorSlack:
		return DocumentSlack
	case ConnectorNotion:
		return DocumentNotion
	case ConnectorGitHub:
		return DocumentGitHub
	case ConnectorLinear:
		return DocumentLinear
	}
	return DocumentType(t)
}

// Document is the canonical persisted artifact produced by one
// container in one indexing run. It is assembled fully in memory and
// persisted as one unit together with its chunks; a document is never
// partially written.
type Document struct {
	// ID is the unique identifier (UUID).
	ID string

	// SearchSpaceID is the destination search space.
	SearchSpaceID int64

	// Title is the provider-prefixed human-readable title,
	// e.g. "Slack - #general".
	Title string

	// Type matches the provider kind.
	Type DocumentType

	// Metadata holds provider-specific facts: container id and name,
	// time range covered, item count, indexed-at timestamp.
	Metadata map[string]any

	// Content is the full rendered markdown body.
	Content string

	// Summary is the generated summary text, the document's primary
	// search content.
	Summary string

	// SummaryEmbedding is the embedding vector of the summary.
	SummaryEmbedding []float32

	// Chunks are the ordered searchable pieces of the body.
	Chunks []Chunk

	// CreatedAt is when the document was indexed.
	CreatedAt time.Time
}

// Chunk is one searchable unit within a document.
type Chunk struct {
	// ID is the unique identifier (UUID).
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Content is the chunk text.
	Content string

	// Position is the ordinal position within the document.
	Position int

	// Embedding is the vector representation of the chunk text.
	Embedding []float32
}
