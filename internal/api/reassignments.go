package api

import (
	"net/http"

	"github.com/erazemk/requisitions/internal/workflow"
)

// ReassignmentsHandler handles the receiver side of item reassignments.
type ReassignmentsHandler struct {
	Service *workflow.Service
}

// List handles GET /api/reassignments.
func (h *ReassignmentsHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.ListReassignedToMe(r.Context(), principal(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, items)
}

// Accept handles POST /api/reassignments/{itemID}/accept.
func (h *ReassignmentsHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, workflow.Accept)
}

// Reject handles POST /api/reassignments/{itemID}/reject.
func (h *ReassignmentsHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, workflow.Reject)
}

func (h *ReassignmentsHandler) resolve(w http.ResponseWriter, r *http.Request, decision workflow.Decision) {
	res, err := h.Service.ResolveReassignment(r.Context(), principal(r), r.PathValue("itemID"), decision)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, res)
}
