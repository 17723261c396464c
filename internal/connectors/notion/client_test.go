package notion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/inlet/internal/core/domain"
)

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestListContainers_ExtractsTitles(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/search", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, apiVersion, r.Header.Get("Notion-Version"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"property": "object", "value": "page"}, body["filter"])

		writeJSON(t, w, map[string]any{
			"results": []map[string]any{
				{
					"id": "p1",
					"properties": map[string]any{
						"title": map[string]any{
							"type":  "title",
							"title": []map[string]any{{"plain_text": "Road"}, {"plain_text": "map"}},
						},
					},
				},
				{"id": "p2", "properties": map[string]any{}},
			},
			"has_more": false,
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New("secret", WithBaseURL(srv.URL))
	containers, err := c.ListContainers(context.Background())
	require.NoError(t, err)

	require.Len(t, containers, 2)
	assert.Equal(t, "Roadmap", containers[0].Name)
	assert.Equal(t, "Untitled", containers[1].Name)
	assert.True(t, containers[0].Accessible)
}

func TestFetchItems_BuildsBlockTrees(t *testing.T) {
	edited := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/pages/p1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"id": "p1", "last_edited_time": edited})
	})
	mux.HandleFunc("/v1/blocks/p1/children", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"results": []map[string]any{
				{
					"id": "b1", "type": "heading_1", "has_children": false,
					"heading_1": map[string]any{
						"rich_text": []map[string]any{{"plain_text": "Q3"}},
					},
				},
				{
					"id": "b2", "type": "paragraph", "has_children": true,
					"paragraph": map[string]any{
						"rich_text": []map[string]any{{"plain_text": "ship "}, {"plain_text": "it"}},
					},
				},
			},
			"has_more": false,
		})
	})
	mux.HandleFunc("/v1/blocks/b2/children", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"results": []map[string]any{
				{
					"id": "b3", "type": "bulleted_list_item", "has_children": false,
					"bulleted_list_item": map[string]any{
						"rich_text": []map[string]any{{"plain_text": "alpha"}},
					},
				},
			},
			"has_more": false,
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New("secret", WithBaseURL(srv.URL))
	window := domain.SyncWindow{From: edited.Add(-time.Hour), To: edited.Add(time.Hour)}

	items, err := c.FetchItems(context.Background(), "p1", window)
	require.NoError(t, err)

	require.Len(t, items, 2)
	assert.Equal(t, "heading_1", items[0].Blocks[0].Type)
	assert.Equal(t, "Q3", items[0].Blocks[0].Content)

	para := items[1].Blocks[0]
	assert.Equal(t, "ship it", para.Content)
	require.Len(t, para.Children, 1)
	assert.Equal(t, "alpha", para.Children[0].Content)
}

func TestFetchItems_PageOutsideWindow(t *testing.T) {
	edited := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/pages/p1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"id": "p1", "last_edited_time": edited})
	})
	mux.HandleFunc("/v1/blocks/", func(w http.ResponseWriter, r *http.Request) {
		t.Error("block children must not be fetched for an unchanged page")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New("secret", WithBaseURL(srv.URL))
	window := domain.SyncWindow{
		From: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
	}

	items, err := c.FetchItems(context.Background(), "p1", window)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestFetchItems_ForbiddenPage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/pages/p1", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		writeJSON(t, w, map[string]any{"code": "object_not_found", "message": "gone"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New("secret", WithBaseURL(srv.URL))
	_, err := c.FetchItems(context.Background(), "p1", domain.SyncWindow{To: time.Now()})

	assert.ErrorIs(t, err, domain.ErrContainerInaccessible)
	apiErr, ok := IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, "object_not_found", apiErr.Code)
}

func TestCall_Unauthorized(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/search", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		writeJSON(t, w, map[string]any{"code": "unauthorized", "message": "bad token"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New("bad", WithBaseURL(srv.URL))
	_, err := c.ListContainers(context.Background())

	assert.ErrorIs(t, err, domain.ErrAuthInvalid)
}
