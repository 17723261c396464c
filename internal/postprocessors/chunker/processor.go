// Package chunker provides fixed-size text chunking with embeddings.
package chunker

import (
	"context"
	"fmt"

	"github.com/custodia-labs/inlet/internal/core/ports/driven"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// Ensure Processor implements the interface.
var _ driven.Chunker = (*Processor)(nil)

// Processor splits text into fixed-size overlapping chunks and embeds
// each one, so callers receive ready (text, vector) pairs.
type Processor struct {
	embedder  driven.Embedder
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(embedder driven.Embedder, opts ...Option) *Processor {
	p := &Processor{
		embedder:  embedder,
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Chunk splits text into overlapping pieces and embeds each piece.
// Empty text produces no chunks.
func (p *Processor) Chunk(ctx context.Context, text string) ([]driven.TextChunk, error) {
	if text == "" {
		return nil, nil
	}

	textLen := len(text)
	estimated := (textLen / (p.chunkSize - p.overlap)) + 1
	chunks := make([]driven.TextChunk, 0, estimated)

	start := 0
	for start < textLen {
		end := start + p.chunkSize
		if end > textLen {
			end = textLen
		}

		piece := text[start:end]
		embedding, err := p.embedder.Embed(ctx, piece)
		if err != nil {
			return nil, fmt.Errorf("embedding chunk %d: %w", len(chunks), err)
		}

		chunks = append(chunks, driven.TextChunk{
			Text:      piece,
			Embedding: embedding,
		})

		start += p.chunkSize - p.overlap
		if p.chunkSize <= p.overlap {
			break
		}
	}

	return chunks, nil
}
