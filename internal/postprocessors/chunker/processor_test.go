package chunker

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEmbedder returns a fixed-length vector per call and records the
// texts it was asked to embed.
type stubEmbedder struct {
	texts []string
	fail  bool
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if s.fail {
		return nil, errors.New("embedder down")
	}
	s.texts = append(s.texts, text)
	return []float32{float32(len(text))}, nil
}

func (s *stubEmbedder) Dimensions() int { return 1 }

func TestChunk_SplitsWithOverlap(t *testing.T) {
	embedder := &stubEmbedder{}
	p := New(embedder, WithChunkSize(10), WithOverlap(2))

	text := strings.Repeat("abcdefgh", 4) // 32 chars
	chunks, err := p.Chunk(context.Background(), text)
	require.NoError(t, err)

	// Stride 8: starts at 0, 8, 16, 24 -> 4 chunks.
	require.Len(t, chunks, 4)
	assert.Equal(t, text[0:10], chunks[0].Text)
	assert.Equal(t, text[8:18], chunks[1].Text)

	// Consecutive chunks share the overlap.
	assert.Equal(t, chunks[0].Text[8:], chunks[1].Text[:2])

	// Each chunk carries its embedding.
	for _, c := range chunks {
		require.Len(t, c.Embedding, 1)
		assert.Equal(t, float32(len(c.Text)), c.Embedding[0])
	}
}

func TestChunk_ShortTextSingleChunk(t *testing.T) {
	p := New(&stubEmbedder{})

	chunks, err := p.Chunk(context.Background(), "short")
	require.NoError(t, err)

	require.Len(t, chunks, 1)
	assert.Equal(t, "short", chunks[0].Text)
}

func TestChunk_EmptyTextNoChunks(t *testing.T) {
	embedder := &stubEmbedder{}
	p := New(embedder)

	chunks, err := p.Chunk(context.Background(), "")
	require.NoError(t, err)

	assert.Empty(t, chunks)
	assert.Empty(t, embedder.texts, "nothing is embedded for empty text")
}

func TestChunk_EmbedderFailurePropagates(t *testing.T) {
	p := New(&stubEmbedder{fail: true})

	_, err := p.Chunk(context.Background(), "some text")
	assert.Error(t, err)
}

func TestNew_OverlapClampedBelowChunkSize(t *testing.T) {
	p := New(&stubEmbedder{}, WithChunkSize(100), WithOverlap(100))

	assert.Equal(t, 25, p.overlap)
}
