package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"nimbus-server/internal/session"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	sessions, err := session.Open("")
	if err != nil {
		t.Fatalf("open session store: %v", err)
	}
	t.Cleanup(func() { sessions.Close() })

	root, api := NewRouter("test", sessions)
	api.HandleFunc("/echo", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}).Methods(http.MethodGet)
	return root
}

func TestBanner(t *testing.T) {
	root := newTestRouter(t)

	rec := httptest.NewRecorder()
	root.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"version":"test"`) || !strings.Contains(body, `"status":"online"`) {
		t.Errorf("body = %s", body)
	}
}

func TestHealth(t *testing.T) {
	root := newTestRouter(t)

	rec := httptest.NewRecorder()
	root.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("health = %d %s", rec.Code, rec.Body.String())
	}
}

func TestAPISubrouterPrefix(t *testing.T) {
	root := newTestRouter(t)

	rec := httptest.NewRecorder()
	root.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/echo", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d; want teapot from mounted route", rec.Code)
	}

	// The same path without the prefix does not exist.
	rec = httptest.NewRecorder()
	root.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/echo", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d; want 404", rec.Code)
	}
}
