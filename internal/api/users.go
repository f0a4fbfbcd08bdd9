package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/requisitions/internal/model"
	"github.com/erazemk/requisitions/internal/store"
)

// UsersHandler handles user directory endpoints.
type UsersHandler struct {
	DB *sql.DB
}

type receiverEntry struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Receivers handles GET /api/receivers.
func (h *UsersHandler) Receivers(w http.ResponseWriter, r *http.Request) {
	users, err := store.ListUsersByRole(r.Context(), h.DB, model.RoleReceiver)
	if err != nil {
		slog.Error("failed to list receivers", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list receivers")
		return
	}

	receivers := make([]receiverEntry, 0, len(users))
	for _, u := range users {
		receivers = append(receivers, receiverEntry{ID: u.ID, Username: u.Username})
	}
	jsonResponse(w, http.StatusOK, receivers)
}
