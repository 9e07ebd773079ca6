package handlers

import (
	"net/http"

	"github.com/ideamesh/backend/internal/catalog"
)

// ModelsHandler serves the model catalog to clients so the UI can offer
// model pickers without hardcoding ids.
type ModelsHandler struct {
	Catalog *catalog.Catalog
}

type modelEntry struct {
	ID           string   `json:"id"`
	Provider     string   `json:"provider"`
	Type         string   `json:"type"`
	DisplayName  string   `json:"displayName,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`
	Default      bool     `json:"default,omitempty"`
}

// ListModels handles GET /api/v1/models.
func (h *ModelsHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	models := h.Catalog.List()
	entries := make([]modelEntry, 0, len(models))
	for _, m := range models {
		entries = append(entries, modelEntry{
			ID:           m.ID,
			Provider:     string(m.Provider),
			Type:         string(m.Type),
			DisplayName:  m.DisplayName,
			Capabilities: m.Capabilities,
			Default:      m.Default,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"models": entries})
}
