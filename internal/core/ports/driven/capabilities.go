package driven

import "context"

// Summarizer generates a summary for one canonical document envelope.
// May be slow or remote; no retry is built in here, retry policy
// belongs to the caller.
type Summarizer interface {
	// Summarize produces summary text for the given envelope.
	Summarize(ctx context.Context, envelope string) (string, error)
}

// Embedder generates vector embeddings from text.
type Embedder interface {
	// Embed generates a fixed-length vector for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int
}

// TextChunk is one chunk of a document body with its embedding.
type TextChunk struct {
	Text      string
	Embedding []float32
}

// Chunker splits a document body into ordered embedded chunks.
// A very short body may legitimately produce zero chunks.
type Chunker interface {
	Chunk(ctx context.Context, text string) ([]TextChunk, error)
}
