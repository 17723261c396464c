package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/custodia-labs/inlet/internal/core/domain"
	"github.com/custodia-labs/inlet/internal/core/ports/driving"
)

// previewTimeLayout renders trigger-ack timestamps.
const previewTimeLayout = "2006-01-02 15:04:05"

// connectorRequest is the create/update payload.
type connectorRequest struct {
	Type   string            `json:"type,omitempty"`
	Name   string            `json:"name"`
	Config map[string]string `json:"config"`
}

// connectorResponse is the connector wire representation.
type connectorResponse struct {
	ID           int64             `json:"id"`
	Type         string            `json:"type"`
	Name         string            `json:"name"`
	Config       map[string]string `json:"config"`
	LastSyncedAt *time.Time        `json:"last_synced_at"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// indexRequest is the trigger payload.
type indexRequest struct {
	SearchSpaceID int64 `json:"search_space_id"`
}

func toConnectorResponse(c *domain.Connector) connectorResponse {
	return connectorResponse{
		ID:           c.ID,
		Type:         string(c.Type),
		Name:         c.Name,
		Config:       c.Config,
		LastSyncedAt: c.LastSyncedAt,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func (s *Server) handleCreateConnector(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.owner(w, r)
	if !ok {
		return
	}

	var req connectorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	c := &domain.Connector{
		OwnerID: owner,
		Type:    domain.ConnectorType(req.Type),
		Name:    req.Name,
		Config:  req.Config,
	}
	if err := s.admin.Create(r.Context(), c); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, toConnectorResponse(c))
}

func (s *Server) handleListConnectors(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.owner(w, r)
	if !ok {
		return
	}

	connectors, err := s.admin.List(r.Context(), owner)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	out := make([]connectorResponse, 0, len(connectors))
	for i := range connectors {
		out = append(out, toConnectorResponse(&connectors[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetConnector(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.owner(w, r)
	if !ok {
		return
	}
	id, ok := connectorID(w, r)
	if !ok {
		return
	}

	c, err := s.admin.Get(r.Context(), owner, id)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toConnectorResponse(c))
}

func (s *Server) handleUpdateConnector(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.owner(w, r)
	if !ok {
		return
	}
	id, ok := connectorID(w, r)
	if !ok {
		return
	}

	var req connectorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	c := &domain.Connector{
		ID:     id,
		Type:   domain.ConnectorType(req.Type),
		Name:   req.Name,
		Config: req.Config,
	}
	if err := s.admin.Update(r.Context(), owner, c); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	updated, err := s.admin.Get(r.Context(), owner, id)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toConnectorResponse(updated))
}

func (s *Server) handleDeleteConnector(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.owner(w, r)
	if !ok {
		return
	}
	id, ok := connectorID(w, r)
	if !ok {
		return
	}

	if err := s.admin.Delete(r.Context(), owner, id); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleTriggerIndex starts a background run and acknowledges with the
// window preview the run will cover.
func (s *Server) handleTriggerIndex(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.owner(w, r)
	if !ok {
		return
	}
	id, ok := connectorID(w, r)
	if !ok {
		return
	}

	var req indexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.SearchSpaceID <= 0 {
		writeError(w, http.StatusBadRequest, "search_space_id is required")
		return
	}

	c, err := s.admin.Get(r.Context(), owner, id)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	// Search-API connectors are queried live, never indexed.
	if !c.Type.Indexable() {
		err := fmt.Errorf("%w: connector type %q cannot be indexed", domain.ErrNotIndexable, c.Type)
		writeError(w, statusFor(err), err.Error())
		return
	}

	if err := s.dispatcher.Dispatch(c.ID, req.SearchSpaceID); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	// Preview the planned window. Providers with a wider same-day grace
	// re-cover more than shown here.
	window := domain.PlanWindow(c.LastSyncedAt, s.now().UTC(), domain.DefaultLookbackGrace)

	indexingFrom := "365 days ago"
	if c.LastSyncedAt != nil {
		indexingFrom = window.From.Format(previewTimeLayout)
	}

	writeJSON(w, http.StatusOK, driving.IndexPreview{
		Message:       "Indexing started",
		ConnectorID:   c.ID,
		SearchSpaceID: req.SearchSpaceID,
		IndexingFrom:  indexingFrom,
		IndexingTo:    window.To.Format(previewTimeLayout),
	})
}

// handleListRuns returns the connector's recent run reports.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.owner(w, r)
	if !ok {
		return
	}
	id, ok := connectorID(w, r)
	if !ok {
		return
	}

	// Ownership check before touching reports.
	if _, err := s.admin.Get(r.Context(), owner, id); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	reports, err := s.reports.ListByConnector(r.Context(), id, limit)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	if reports == nil {
		reports = []domain.RunReport{}
	}
	writeJSON(w, http.StatusOK, reports)
}

// owner extracts the caller identity, writing 401 when absent.
func (s *Server) owner(w http.ResponseWriter, r *http.Request) (string, bool) {
	owner := r.Header.Get(ownerHeader)
	if owner == "" {
		writeError(w, http.StatusUnauthorized, ownerHeader+" header is required")
		return "", false
	}
	return owner, true
}

// connectorID parses the path parameter, writing 400 when malformed.
func connectorID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "connectorID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid connector id")
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
