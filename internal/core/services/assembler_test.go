package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/inlet/internal/core/domain"
	"github.com/custodia-labs/inlet/internal/core/ports/driven"
)

// stubSummarizer records the envelope it was given.
type stubSummarizer struct {
	envelope string
	summary  string
	err      error
}

func (s *stubSummarizer) Summarize(_ context.Context, envelope string) (string, error) {
	s.envelope = envelope
	return s.summary, s.err
}

// stubEmbedder returns a fixed vector.
type stubEmbedder struct {
	err error
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []float32{float32(len(text))}, nil
}

func (s *stubEmbedder) Dimensions() int { return 1 }

// stubChunker splits on newlines.
type stubChunker struct {
	err error
}

func (s *stubChunker) Chunk(_ context.Context, text string) ([]driven.TextChunk, error) {
	if s.err != nil {
		return nil, s.err
	}
	var chunks []driven.TextChunk
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		if line == "" {
			continue
		}
		chunks = append(chunks, driven.TextChunk{Text: line, Embedding: []float32{1}})
	}
	return chunks, nil
}

func testInput() AssemblyInput {
	return AssemblyInput{
		Connector: &domain.Connector{
			ID:   1,
			Type: domain.ConnectorSlack,
		},
		SearchSpaceID: 7,
		Container:     driven.Container{ID: "C1", Name: "general", Accessible: true},
		Window: domain.SyncWindow{
			From: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
			To:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		},
		Body:      "line one\nline two\n",
		ItemCount: 2,
		Now:       time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC),
	}
}

func TestAssemble_BuildsCompleteDocument(t *testing.T) {
	summarizer := &stubSummarizer{summary: "two lines of chatter"}
	a := NewDocumentAssembler(summarizer, &stubEmbedder{}, &stubChunker{})

	doc, err := a.Assemble(context.Background(), testInput())
	require.NoError(t, err)

	assert.Equal(t, "Slack - general", doc.Title)
	assert.Equal(t, domain.DocumentSlack, doc.Type)
	assert.Equal(t, int64(7), doc.SearchSpaceID)
	assert.Equal(t, "two lines of chatter", doc.Summary)
	assert.NotEmpty(t, doc.SummaryEmbedding)
	assert.NotEmpty(t, doc.ID)

	require.Len(t, doc.Chunks, 2)
	assert.Equal(t, "line one", doc.Chunks[0].Content)
	assert.Equal(t, 0, doc.Chunks[0].Position)
	assert.Equal(t, 1, doc.Chunks[1].Position)
	assert.Equal(t, doc.ID, doc.Chunks[0].DocumentID)

	assert.Equal(t, "C1", doc.Metadata["CONTAINER_ID"])
	assert.Equal(t, "2", doc.Metadata["ITEM_COUNT"])
}

func TestAssemble_EnvelopeIsCanonical(t *testing.T) {
	summarizer := &stubSummarizer{summary: "s"}
	a := NewDocumentAssembler(summarizer, &stubEmbedder{}, &stubChunker{})

	_, err := a.Assemble(context.Background(), testInput())
	require.NoError(t, err)

	want := domain.Envelope([]domain.MetadataField{
		{Key: "CONTAINER_ID", Value: "C1"},
		{Key: "CONTAINER_NAME", Value: "general"},
		{Key: "START_DATE", Value: "2025-05-01 00:00:00"},
		{Key: "END_DATE", Value: "2025-06-01 00:00:00"},
		{Key: "ITEM_COUNT", Value: "2"},
		{Key: "INDEXED_AT", Value: "2025-06-01 12:30:00"},
	}, "line one\nline two\n")
	assert.Equal(t, want, summarizer.envelope)

	// Identical input yields an identical envelope.
	first := summarizer.envelope
	_, err = a.Assemble(context.Background(), testInput())
	require.NoError(t, err)
	assert.Equal(t, first, summarizer.envelope)
}

func TestAssemble_ZeroChunksIsValid(t *testing.T) {
	a := NewDocumentAssembler(&stubSummarizer{summary: "s"}, &stubEmbedder{}, &stubChunker{})

	in := testInput()
	in.Body = "\n"
	in.ItemCount = 1

	doc, err := a.Assemble(context.Background(), in)
	require.NoError(t, err)
	assert.Empty(t, doc.Chunks)
	assert.Equal(t, "s", doc.Summary)
}

func TestAssemble_CapabilityFailuresWrapAssemblyError(t *testing.T) {
	boom := errors.New("model offline")

	cases := []struct {
		name string
		a    *DocumentAssembler
	}{
		{"summarizer", NewDocumentAssembler(&stubSummarizer{err: boom}, &stubEmbedder{}, &stubChunker{})},
		{"embedder", NewDocumentAssembler(&stubSummarizer{summary: "s"}, &stubEmbedder{err: boom}, &stubChunker{})},
		{"chunker", NewDocumentAssembler(&stubSummarizer{summary: "s"}, &stubEmbedder{}, &stubChunker{err: boom})},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.a.Assemble(context.Background(), testInput())
			assert.ErrorIs(t, err, domain.ErrAssembly)
			assert.ErrorIs(t, err, boom)
		})
	}
}
