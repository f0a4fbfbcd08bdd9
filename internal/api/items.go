package api

import (
	"net/http"

	"github.com/erazemk/requisitions/internal/model"
	"github.com/erazemk/requisitions/internal/workflow"
)

// ItemsHandler handles item endpoints.
type ItemsHandler struct {
	Service *workflow.Service
}

// Types handles GET /api/items/types.
func (h *ItemsHandler) Types(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, model.ItemTypes)
}

// GetHistory handles GET /api/items/{id}/history.
func (h *ItemsHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.Service.ItemHistory(r.Context(), principal(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if history == nil {
		history = []model.Reassignment{}
	}
	jsonResponse(w, http.StatusOK, history)
}
