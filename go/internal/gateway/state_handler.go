package gateway

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/sustainifly/go/internal/models"
	"github.com/mcdev12/sustainifly/go/internal/region"
)

// StateProvider exposes live session snapshots.
type StateProvider interface {
	Snapshot(id uuid.UUID) (models.Snapshot, bool)
}

// RegionsResponse is the catalog as served over HTTP.
type RegionsResponse struct {
	Regions  []models.Region `json:"regions"`
	Fallback region.Fallback `json:"fallback"`
}

// StateHandler handles HTTP requests for session state and the region catalog.
type StateHandler struct {
	stateProvider StateProvider
	catalog       *region.Catalog
}

// NewStateHandler creates a new state handler.
func NewStateHandler(provider StateProvider, catalog *region.Catalog) *StateHandler {
	return &StateHandler{
		stateProvider: provider,
		catalog:       catalog,
	}
}

// HandleGetSessionState handles GET /api/sessions/{id}/state
func (h *StateHandler) HandleGetSessionState(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid session ID format", http.StatusBadRequest)
		return
	}

	snap, ok := h.stateProvider.Snapshot(id)
	if !ok {
		log.Debug().Str("session_id", id.String()).Msg("state requested for unknown session")
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// HandleGetRegions handles GET /api/regions
func (h *StateHandler) HandleGetRegions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, RegionsResponse{
		Regions:  h.catalog.Regions(),
		Fallback: h.catalog.Fallback(),
	})
}

// RegisterStateRoutes registers state-related HTTP routes.
func (h *StateHandler) RegisterStateRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/sessions/{id}/state", h.HandleGetSessionState)
	mux.HandleFunc("GET /api/regions", h.HandleGetRegions)
}
