package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/inlet/internal/core/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestConnectorStore_CreateAndGet(t *testing.T) {
	store := newTestStore(t)
	cs := store.ConnectorStore()
	ctx := context.Background()

	c := &domain.Connector{
		OwnerID: "owner-1",
		Type:    domain.ConnectorSlack,
		Name:    "Work Slack",
		Config:  map[string]string{domain.KeySlackBotToken: "xoxb-1"},
	}
	require.NoError(t, cs.Create(ctx, c))
	assert.NotZero(t, c.ID)

	got, err := cs.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Work Slack", got.Name)
	assert.Equal(t, domain.ConnectorSlack, got.Type)
	assert.Equal(t, "xoxb-1", got.Credential(domain.KeySlackBotToken))
	assert.Nil(t, got.LastSyncedAt)
}

func TestConnectorStore_OnePerTypePerOwner(t *testing.T) {
	store := newTestStore(t)
	cs := store.ConnectorStore()
	ctx := context.Background()

	first := &domain.Connector{OwnerID: "owner-1", Type: domain.ConnectorSlack, Name: "A"}
	require.NoError(t, cs.Create(ctx, first))

	dup := &domain.Connector{OwnerID: "owner-1", Type: domain.ConnectorSlack, Name: "B"}
	err := cs.Create(ctx, dup)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	// Same type for another owner is fine.
	other := &domain.Connector{OwnerID: "owner-2", Type: domain.ConnectorSlack, Name: "C"}
	assert.NoError(t, cs.Create(ctx, other))
}

func TestConnectorStore_AdvanceWatermark(t *testing.T) {
	store := newTestStore(t)
	cs := store.ConnectorStore()
	ctx := context.Background()

	c := &domain.Connector{OwnerID: "owner-1", Type: domain.ConnectorNotion, Name: "Wiki"}
	require.NoError(t, cs.Create(ctx, c))

	to := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, cs.AdvanceWatermark(ctx, c.ID, to))

	got, err := cs.Get(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastSyncedAt)
	assert.True(t, got.LastSyncedAt.Equal(to))

	assert.ErrorIs(t, cs.AdvanceWatermark(ctx, 9999, to), domain.ErrNotFound)
}

func TestConnectorStore_UpdateDoesNotTouchWatermark(t *testing.T) {
	store := newTestStore(t)
	cs := store.ConnectorStore()
	ctx := context.Background()

	c := &domain.Connector{OwnerID: "owner-1", Type: domain.ConnectorGitHub, Name: "Code"}
	require.NoError(t, cs.Create(ctx, c))

	to := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, cs.AdvanceWatermark(ctx, c.ID, to))

	c.Name = "Renamed"
	c.LastSyncedAt = nil // caller state must not clear the stored watermark
	require.NoError(t, cs.Update(ctx, c))

	got, err := cs.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	require.NotNil(t, got.LastSyncedAt)
	assert.True(t, got.LastSyncedAt.Equal(to))
}

func TestDocumentStore_SaveRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ds := store.DocumentStore()
	ctx := context.Background()

	doc := &domain.Document{
		ID:               uuid.NewString(),
		SearchSpaceID:    7,
		Title:            "Slack - general",
		Type:             domain.DocumentSlack,
		Metadata:         map[string]any{"channel_id": "C1"},
		Content:          "# Slack Channel: general\n",
		Summary:          "Chatter about the release.",
		SummaryEmbedding: []float32{0.1, -0.5, 3},
		CreatedAt:        time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Chunks: []domain.Chunk{
			{ID: uuid.NewString(), Content: "part one", Position: 0, Embedding: []float32{1, 2}},
			{ID: uuid.NewString(), Content: "part two", Position: 1, Embedding: []float32{3, 4}},
		},
	}
	require.NoError(t, ds.SaveDocument(ctx, doc))

	got, err := ds.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.Title, got.Title)
	assert.Equal(t, "C1", got.Metadata["channel_id"])
	assert.Equal(t, []float32{0.1, -0.5, 3}, got.SummaryEmbedding)
	require.Len(t, got.Chunks, 2)
	assert.Equal(t, "part one", got.Chunks[0].Content)
	assert.Equal(t, []float32{3, 4}, got.Chunks[1].Embedding)
}

func TestDocumentStore_ResaveReplacesChunks(t *testing.T) {
	store := newTestStore(t)
	ds := store.DocumentStore()
	ctx := context.Background()

	doc := &domain.Document{
		ID:            uuid.NewString(),
		SearchSpaceID: 7,
		Title:         "Notion - Roadmap",
		Type:          domain.DocumentNotion,
		Content:       "v1",
		CreatedAt:     time.Now().UTC(),
		Chunks: []domain.Chunk{
			{ID: uuid.NewString(), Content: "old-a", Position: 0},
			{ID: uuid.NewString(), Content: "old-b", Position: 1},
		},
	}
	require.NoError(t, ds.SaveDocument(ctx, doc))

	doc.Content = "v2"
	doc.Chunks = []domain.Chunk{{ID: uuid.NewString(), Content: "new-a", Position: 0}}
	require.NoError(t, ds.SaveDocument(ctx, doc))

	got, err := ds.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Content)
	require.Len(t, got.Chunks, 1)
	assert.Equal(t, "new-a", got.Chunks[0].Content)
}

func TestDocumentStore_DeleteCascadesChunks(t *testing.T) {
	store := newTestStore(t)
	ds := store.DocumentStore()
	ctx := context.Background()

	doc := &domain.Document{
		ID:            uuid.NewString(),
		SearchSpaceID: 7,
		Title:         "T",
		Type:          domain.DocumentLinear,
		Content:       "body",
		CreatedAt:     time.Now().UTC(),
		Chunks:        []domain.Chunk{{ID: uuid.NewString(), Content: "c", Position: 0}},
	}
	require.NoError(t, ds.SaveDocument(ctx, doc))
	require.NoError(t, ds.DeleteDocument(ctx, doc.ID))

	_, err := ds.GetDocument(ctx, doc.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	var count int
	require.NoError(t, store.db.QueryRow(
		"SELECT COUNT(*) FROM chunks WHERE document_id = ?", doc.ID).Scan(&count))
	assert.Zero(t, count)
}

func TestRunReportStore_SaveAndList(t *testing.T) {
	store := newTestStore(t)
	rs := store.RunReportStore()
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		report := &domain.RunReport{
			ConnectorID:        42,
			SearchSpaceID:      7,
			Window:             domain.SyncWindow{From: base, To: base.Add(24 * time.Hour)},
			DocumentsPersisted: i,
			WatermarkAdvanced:  i > 0,
			StartedAt:          base.Add(time.Duration(i) * time.Hour),
			FinishedAt:         base.Add(time.Duration(i)*time.Hour + time.Minute),
		}
		if i == 2 {
			report.AddSkip("C9", "secret", "container inaccessible")
		}
		require.NoError(t, rs.Save(ctx, report))
	}

	reports, err := rs.ListByConnector(ctx, 42, 2)
	require.NoError(t, err)
	require.Len(t, reports, 2)

	// Newest first.
	assert.Equal(t, 2, reports[0].DocumentsPersisted)
	require.Len(t, reports[0].Skips, 1)
	assert.Equal(t, "secret", reports[0].Skips[0].ContainerName)
	assert.Empty(t, reports[1].Skips)
}

func TestRunLockStore_MutualExclusion(t *testing.T) {
	store := newTestStore(t)
	ls := store.RunLockStore()
	ctx := context.Background()

	token, err := ls.Acquire(ctx, 1, time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	_, err = ls.Acquire(ctx, 1, time.Minute)
	assert.ErrorIs(t, err, domain.ErrRunInProgress)

	// A different connector is independent.
	_, err = ls.Acquire(ctx, 2, time.Minute)
	assert.NoError(t, err)

	require.NoError(t, ls.Release(ctx, 1, token))
	_, err = ls.Acquire(ctx, 1, time.Minute)
	assert.NoError(t, err)
}

func TestRunLockStore_ExpiredLockIsStolen(t *testing.T) {
	store := newTestStore(t)
	ls := store.RunLockStore()
	ctx := context.Background()

	stale, err := ls.Acquire(ctx, 1, -time.Second)
	require.NoError(t, err)

	token, err := ls.Acquire(ctx, 1, time.Minute)
	require.NoError(t, err)
	assert.NotEqual(t, stale, token)

	// The stale holder's release is a no-op against the new token.
	require.NoError(t, ls.Release(ctx, 1, stale))
	_, err = ls.Acquire(ctx, 1, time.Minute)
	assert.ErrorIs(t, err, domain.ErrRunInProgress)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	dir := t.TempDir()

	first, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := NewStore(dir)
	require.NoError(t, err)
	assert.NoError(t, second.Close())
}
