package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/inlet/internal/core/domain"
	"github.com/custodia-labs/inlet/internal/core/ports/driven"
)

// metadataTimeLayout renders envelope timestamps.
const metadataTimeLayout = "2006-01-02 15:04:05"

// AssemblyInput carries everything needed to turn one container's
// rendered body into a persistable document.
type AssemblyInput struct {
	Connector     *domain.Connector
	SearchSpaceID int64
	Container     driven.Container
	Window        domain.SyncWindow
	Body          string
	ItemCount     int
	Now           time.Time
}

// DocumentAssembler turns one rendered container body into a complete
// Document: envelope, summary, summary embedding, body chunks. The
// document is built fully in memory; persistence is the caller's job.
type DocumentAssembler struct {
	summarizer driven.Summarizer
	embedder   driven.Embedder
	chunker    driven.Chunker
}

// NewDocumentAssembler creates a document assembler.
func NewDocumentAssembler(
	summarizer driven.Summarizer,
	embedder driven.Embedder,
	chunker driven.Chunker,
) *DocumentAssembler {
	return &DocumentAssembler{
		summarizer: summarizer,
		embedder:   embedder,
		chunker:    chunker,
	}
}

// Assemble builds the document for one container. Any capability
// failure wraps domain.ErrAssembly so the runner can record the
// container as a skip without losing the cause.
func (a *DocumentAssembler) Assemble(ctx context.Context, in AssemblyInput) (*domain.Document, error) {
	metadata := assemblyMetadata(in)
	envelope := domain.Envelope(metadata, in.Body)

	summary, err := a.summarizer.Summarize(ctx, envelope)
	if err != nil {
		return nil, fmt.Errorf("%w: summarize %s: %w", domain.ErrAssembly, in.Container.Name, err)
	}

	summaryEmbedding, err := a.embedder.Embed(ctx, summary)
	if err != nil {
		return nil, fmt.Errorf("%w: embed summary for %s: %w", domain.ErrAssembly, in.Container.Name, err)
	}

	textChunks, err := a.chunker.Chunk(ctx, in.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: chunk %s: %w", domain.ErrAssembly, in.Container.Name, err)
	}

	docID := uuid.NewString()
	chunks := make([]domain.Chunk, len(textChunks))
	for i, tc := range textChunks {
		chunks[i] = domain.Chunk{
			ID:         uuid.NewString(),
			DocumentID: docID,
			Content:    tc.Text,
			Position:   i,
			Embedding:  tc.Embedding,
		}
	}

	return &domain.Document{
		ID:               docID,
		SearchSpaceID:    in.SearchSpaceID,
		Title:            fmt.Sprintf("%s - %s", in.Connector.Type.DisplayName(), in.Container.Name),
		Type:             domain.DocumentTypeFor(in.Connector.Type),
		Metadata:         metadataMap(metadata),
		Content:          in.Body,
		Summary:          summary,
		SummaryEmbedding: summaryEmbedding,
		Chunks:           chunks,
		CreatedAt:        in.Now.UTC(),
	}, nil
}

// assemblyMetadata builds the ordered envelope metadata. Order is fixed
// so identical inputs produce identical envelopes.
func assemblyMetadata(in AssemblyInput) []domain.MetadataField {
	return []domain.MetadataField{
		{Key: "CONTAINER_ID", Value: in.Container.ID},
		{Key: "CONTAINER_NAME", Value: in.Container.Name},
		{Key: "START_DATE", Value: in.Window.From.UTC().Format(metadataTimeLayout)},
		{Key: "END_DATE", Value: in.Window.To.UTC().Format(metadataTimeLayout)},
		{Key: "ITEM_COUNT", Value: strconv.Itoa(in.ItemCount)},
		{Key: "INDEXED_AT", Value: in.Now.UTC().Format(metadataTimeLayout)},
	}
}

// metadataMap derives the persisted metadata from the envelope fields.
func metadataMap(fields []domain.MetadataField) map[string]any {
	m := make(map[string]any, len(fields))
	for _, f := range fields {
		m[f.Key] = f.Value
	}
	return m
}
