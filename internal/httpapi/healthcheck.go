package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"nimbus-server/internal/session"
	"nimbus-server/internal/utils"
)

type healthchecker interface {
	handleHealth(w http.ResponseWriter, r *http.Request)
}

type healthcheckerImpl struct {
	sessions *session.Store
}

func NewHealthchecker(sessions *session.Store) healthchecker {
	return &healthcheckerImpl{sessions: sessions}
}

func (h *healthcheckerImpl) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Ping(r.Context()); err != nil {
		slog.Error("failed to check session database connectivity", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to check session database connectivity")
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "nimbus-server",
	})
}

func registerHealthcheck(router *mux.Router, sessions *session.Store) {
	healthchecker := NewHealthchecker(sessions)
	router.HandleFunc("/health", healthchecker.handleHealth).Methods(http.MethodGet)
}
