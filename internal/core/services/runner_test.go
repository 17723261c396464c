package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/inlet/internal/core/domain"
	"github.com/custodia-labs/inlet/internal/core/ports/driven"
	"github.com/custodia-labs/inlet/internal/normalisers"
)

// mockConnectorStore serves one connector and records watermark moves.
type mockConnectorStore struct {
	mu         sync.Mutex
	connector  *domain.Connector
	advancedTo *time.Time
}

func (m *mockConnectorStore) Create(context.Context, *domain.Connector) error { return nil }
func (m *mockConnectorStore) Update(context.Context, *domain.Connector) error { return nil }
func (m *mockConnectorStore) Delete(context.Context, int64) error             { return nil }

func (m *mockConnectorStore) ListByOwner(context.Context, string) ([]domain.Connector, error) {
	return nil, nil
}

func (m *mockConnectorStore) Get(_ context.Context, id int64) (*domain.Connector, error) {
	if m.connector == nil || m.connector.ID != id {
		return nil, domain.ErrNotFound
	}
	c := *m.connector
	return &c, nil
}

func (m *mockConnectorStore) AdvanceWatermark(_ context.Context, _ int64, to time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.advancedTo = &to
	return nil
}

// mockDocumentStore collects saved documents; failures configurable per
// container id (read from document metadata).
type mockDocumentStore struct {
	mu      sync.Mutex
	saved   []*domain.Document
	failFor map[string]bool
}

func (m *mockDocumentStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	containerID, _ := doc.Metadata["CONTAINER_ID"].(string)
	if m.failFor[containerID] {
		return errors.New("disk full")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, doc)
	return nil
}

func (m *mockDocumentStore) GetDocument(context.Context, string) (*domain.Document, error) {
	return nil, domain.ErrNotFound
}

func (m *mockDocumentStore) ListBySearchSpace(context.Context, int64) ([]domain.Document, error) {
	return nil, nil
}

func (m *mockDocumentStore) DeleteDocument(context.Context, string) error { return nil }

// mockReportStore collects saved reports.
type mockReportStore struct {
	mu    sync.Mutex
	saved []*domain.RunReport
}

func (m *mockReportStore) Save(_ context.Context, r *domain.RunReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, r)
	return nil
}

func (m *mockReportStore) ListByConnector(context.Context, int64, int) ([]domain.RunReport, error) {
	return nil, nil
}

// mockSourceClient serves canned containers and items.
type mockSourceClient struct {
	mu        sync.Mutex
	provider  domain.ConnectorType
	grace     time.Duration
	listErr   error
	contList  []driven.Container
	items     map[string][]driven.RawItem
	fetchErr  map[string]error
	fetchHook func(containerID string)
	seenWins  []domain.SyncWindow
}

func (m *mockSourceClient) Provider() domain.ConnectorType { return m.provider }

func (m *mockSourceClient) LookbackGrace() time.Duration {
	if m.grace > 0 {
		return m.grace
	}
	return domain.DefaultLookbackGrace
}

func (m *mockSourceClient) ListContainers(context.Context) ([]driven.Container, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.contList, nil
}

func (m *mockSourceClient) FetchItems(_ context.Context, containerID string, window domain.SyncWindow) ([]driven.RawItem, error) {
	m.mu.Lock()
	m.seenWins = append(m.seenWins, window)
	m.mu.Unlock()
	if m.fetchHook != nil {
		m.fetchHook(containerID)
	}
	if err := m.fetchErr[containerID]; err != nil {
		return nil, err
	}
	return m.items[containerID], nil
}

// mockFactory hands out a fixed client.
type mockFactory struct {
	client driven.SourceClient
	err    error
}

func (m *mockFactory) Create(*domain.Connector) (driven.SourceClient, error) {
	return m.client, m.err
}

func chatItems(texts ...string) []driven.RawItem {
	items := make([]driven.RawItem, len(texts))
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	for i, text := range texts {
		items[i] = driven.RawItem{
			Author:    "alice",
			Text:      text,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}
	}
	return items
}

type runnerFixture struct {
	runner     *ConnectorRunner
	connectors *mockConnectorStore
	documents  *mockDocumentStore
	reports    *mockReportStore
	client     *mockSourceClient
	now        time.Time
}

func newRunnerFixture(t *testing.T, lastSynced *time.Time) *runnerFixture {
	t.Helper()

	now := time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)
	connectors := &mockConnectorStore{
		connector: &domain.Connector{
			ID:           1,
			OwnerID:      "owner-1",
			Type:         domain.ConnectorSlack,
			Name:         "Work Slack",
			Config:       map[string]string{domain.KeySlackBotToken: "xoxb"},
			LastSyncedAt: lastSynced,
		},
	}
	documents := &mockDocumentStore{failFor: map[string]bool{}}
	reports := &mockReportStore{}
	client := &mockSourceClient{
		provider: domain.ConnectorSlack,
		items:    map[string][]driven.RawItem{},
		fetchErr: map[string]error{},
	}
	assembler := NewDocumentAssembler(&stubSummarizer{summary: "s"}, &stubEmbedder{}, &stubChunker{})

	runner := NewConnectorRunner(
		connectors, documents, reports,
		&mockFactory{client: client},
		normalisers.NewRegistry(),
		assembler,
		WithClock(func() time.Time { return now }),
		WithContainerWorkers(2),
	)

	return &runnerFixture{
		runner:     runner,
		connectors: connectors,
		documents:  documents,
		reports:    reports,
		client:     client,
		now:        now,
	}
}

func TestRun_PersistsAndAdvancesWatermark(t *testing.T) {
	last := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	f := newRunnerFixture(t, &last)
	f.client.contList = []driven.Container{
		{ID: "C1", Name: "general", Accessible: true},
		{ID: "C2", Name: "random", Accessible: true},
	}
	f.client.items["C1"] = chatItems("hello")
	f.client.items["C2"] = chatItems("world", "again")

	report, err := f.runner.Run(context.Background(), 1, 7)
	require.NoError(t, err)

	assert.Equal(t, 2, report.DocumentsPersisted)
	assert.Empty(t, report.Skips)
	assert.True(t, report.WatermarkAdvanced)

	require.NotNil(t, f.connectors.advancedTo)
	assert.True(t, f.connectors.advancedTo.Equal(report.Window.To))

	// Window resumed from the watermark.
	assert.True(t, report.Window.From.Equal(last))
	assert.True(t, report.Window.To.Equal(f.now))

	require.Len(t, f.documents.saved, 2)
	require.Len(t, f.reports.saved, 1)
}

func TestRun_NeverSyncedCoversInitialLookback(t *testing.T) {
	f := newRunnerFixture(t, nil)
	f.client.contList = []driven.Container{{ID: "C1", Name: "general", Accessible: true}}
	f.client.items["C1"] = chatItems("hi")

	report, err := f.runner.Run(context.Background(), 1, 7)
	require.NoError(t, err)

	assert.True(t, report.Window.From.Equal(f.now.Add(-domain.DefaultInitialLookback)))
	assert.True(t, report.Window.To.Equal(f.now))
}

func TestRun_SameDayWatermarkUsesGrace(t *testing.T) {
	last := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC) // same day as run start
	f := newRunnerFixture(t, &last)
	f.client.grace = 7 * 24 * time.Hour
	f.client.contList = []driven.Container{{ID: "C1", Name: "general", Accessible: true}}
	f.client.items["C1"] = chatItems("hi")

	report, err := f.runner.Run(context.Background(), 1, 7)
	require.NoError(t, err)

	assert.True(t, report.Window.From.Equal(f.now.Add(-7*24*time.Hour)))
}

func TestRun_ContainerFailuresAreIsolated(t *testing.T) {
	last := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	f := newRunnerFixture(t, &last)
	f.client.contList = []driven.Container{
		{ID: "C1", Name: "good", Accessible: true},
		{ID: "C2", Name: "secret", Accessible: false},
		{ID: "C3", Name: "broken", Accessible: true},
		{ID: "C4", Name: "full-disk", Accessible: true},
	}
	f.client.items["C1"] = chatItems("survives")
	f.client.fetchErr["C3"] = domain.ErrContainerInaccessible
	f.client.items["C4"] = chatItems("doomed")
	f.documents.failFor["C4"] = true

	report, err := f.runner.Run(context.Background(), 1, 7)
	require.NoError(t, err)

	assert.Equal(t, 1, report.DocumentsPersisted)
	require.Len(t, report.Skips, 3)

	skippedIDs := map[string]bool{}
	for _, skip := range report.Skips {
		skippedIDs[skip.ContainerID] = true
	}
	assert.True(t, skippedIDs["C2"])
	assert.True(t, skippedIDs["C3"])
	assert.True(t, skippedIDs["C4"])

	// One persisted document is enough to advance the watermark.
	assert.True(t, report.WatermarkAdvanced)
}

func TestRun_NothingPersistedLeavesWatermark(t *testing.T) {
	last := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	f := newRunnerFixture(t, &last)
	f.client.contList = []driven.Container{
		{ID: "C1", Name: "quiet", Accessible: true}, // no items in window
		{ID: "C2", Name: "secret", Accessible: false},
	}

	report, err := f.runner.Run(context.Background(), 1, 7)
	require.NoError(t, err)

	assert.Zero(t, report.DocumentsPersisted)
	assert.False(t, report.WatermarkAdvanced)
	assert.Nil(t, f.connectors.advancedTo, "watermark must not move when nothing persisted")

	// An empty container is not a skip, only the inaccessible one is.
	require.Len(t, report.Skips, 1)
	assert.Equal(t, "C2", report.Skips[0].ContainerID)
}

func TestRun_CancelledBeforeSchedulingFinalizesReport(t *testing.T) {
	last := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	f := newRunnerFixture(t, &last)
	f.client.contList = []driven.Container{
		{ID: "C1", Name: "general", Accessible: true},
		{ID: "C2", Name: "random", Accessible: true},
	}
	f.client.items["C1"] = chatItems("hello")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := f.runner.Run(ctx, 1, 7)
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)

	assert.Zero(t, report.DocumentsPersisted)
	require.Len(t, report.Skips, 2)
	assert.Equal(t, "run cancelled", report.Skips[0].Reason)
	assert.Equal(t, "run cancelled", report.Skips[1].Reason)

	assert.False(t, report.WatermarkAdvanced)
	assert.Nil(t, f.connectors.advancedTo)
	require.Len(t, f.reports.saved, 1, "the report is still persisted")
}

func TestRun_CancelledMidRunKeepsCommittedWork(t *testing.T) {
	last := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	f := newRunnerFixture(t, &last)
	f.client.contList = []driven.Container{{ID: "C1", Name: "general", Accessible: true}}
	f.client.items["C1"] = chatItems("hello")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.client.fetchHook = func(string) { cancel() }

	report, err := f.runner.Run(ctx, 1, 7)
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)

	// The container in flight at cancellation still persisted and the
	// report records it.
	assert.Equal(t, 1, report.DocumentsPersisted)
	require.Len(t, f.documents.saved, 1)
	require.Len(t, f.reports.saved, 1)

	// The watermark stays put so the interrupted span is re-covered.
	assert.False(t, report.WatermarkAdvanced)
	assert.Nil(t, f.connectors.advancedTo)
}

func TestRun_EnumerationFailureAborts(t *testing.T) {
	f := newRunnerFixture(t, nil)
	f.client.listErr = domain.ErrAuthInvalid

	_, err := f.runner.Run(context.Background(), 1, 7)
	assert.ErrorIs(t, err, domain.ErrAuthInvalid)
	assert.Nil(t, f.connectors.advancedTo)
	assert.Empty(t, f.reports.saved)
}

func TestRun_FactoryFailurePropagates(t *testing.T) {
	f := newRunnerFixture(t, nil)

	runner := NewConnectorRunner(
		f.connectors, f.documents, f.reports,
		&mockFactory{err: domain.ErrMissingCredential},
		normalisers.NewRegistry(),
		NewDocumentAssembler(&stubSummarizer{summary: "s"}, &stubEmbedder{}, &stubChunker{}),
	)

	_, err := runner.Run(context.Background(), 1, 7)
	assert.ErrorIs(t, err, domain.ErrMissingCredential)
}

func TestRun_UnknownConnector(t *testing.T) {
	f := newRunnerFixture(t, nil)

	_, err := f.runner.Run(context.Background(), 999, 7)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRun_DocumentCarriesWindowMetadata(t *testing.T) {
	last := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	f := newRunnerFixture(t, &last)
	f.client.contList = []driven.Container{{ID: "C1", Name: "general", Accessible: true}}
	f.client.items["C1"] = chatItems("hello")

	_, err := f.runner.Run(context.Background(), 1, 7)
	require.NoError(t, err)

	require.Len(t, f.documents.saved, 1)
	doc := f.documents.saved[0]
	assert.Equal(t, "Slack - general", doc.Title)
	assert.Equal(t, "2025-06-01 00:00:00", doc.Metadata["START_DATE"])
	assert.Equal(t, "2025-06-10 15:00:00", doc.Metadata["END_DATE"])
	assert.Equal(t, "1", doc.Metadata["ITEM_COUNT"])
	assert.Contains(t, doc.Content, "# Slack Channel: general")
}
