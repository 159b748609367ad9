// Package httpapi assembles the HTTP surface: root banner, healthcheck, the
// /api subrouter features mount on, and the server with its middleware chain.
package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"nimbus-server/internal/session"
	"nimbus-server/internal/utils"
)

// NewRouter builds the root router and returns it together with the /api
// subrouter that feature modules register their routes on.
func NewRouter(version string, sessions *session.Store) (*mux.Router, *mux.Router) {
	root := mux.NewRouter()
	root.HandleFunc("/", handleBanner(version)).Methods(http.MethodGet)
	registerHealthcheck(root, sessions)

	api := root.PathPrefix("/api").Subrouter()
	return root, api
}

func handleBanner(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		utils.WriteJSON(w, http.StatusOK, map[string]string{
			"message": "Nimbus weather stations API",
			"version": version,
			"status":  "online",
		})
	}
}
