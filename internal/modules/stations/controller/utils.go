package controller

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
)

const dateLayout = "2006-01-02"

func pathStationID(r *http.Request) (int, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("invalid station id")
	}
	return id, nil
}

// parseDateQuery reads the required date param in YYYY-MM-DD form.
func parseDateQuery(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return time.Time{}, errors.New("missing 'date' (expected YYYY-MM-DD)")
	}
	d, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, errors.New("invalid 'date' (expected YYYY-MM-DD)")
	}
	return d, nil
}

// parseVariablesQuery splits the optional comma-separated variables param.
func parseVariablesQuery(r *http.Request) []string {
	raw := r.URL.Query().Get("variables")
	if raw == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func parseOptionalTime(r *http.Request, key string) (time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		// Bare dates are accepted too.
		t, err = time.Parse(dateLayout, raw)
		if err != nil {
			return time.Time{}, errors.New("invalid '" + key + "' (expected RFC3339 or YYYY-MM-DD)")
		}
	}
	return t.UTC(), nil
}

func parseSnapshotQuery(r *http.Request) (time.Time, int, error) {
	raw := r.URL.Query().Get("timestamp")
	if raw == "" {
		return time.Time{}, 0, errors.New("missing 'timestamp' (expected RFC3339)")
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, 0, errors.New("invalid 'timestamp' (expected RFC3339)")
	}

	tolerance := 30
	if s := r.URL.Query().Get("tolerance_minutes"); s != "" {
		n, convErr := strconv.Atoi(s)
		if convErr != nil || n <= 0 {
			return time.Time{}, 0, errors.New("invalid 'tolerance_minutes' (expected positive integer)")
		}
		tolerance = n
	}
	return ts.UTC(), tolerance, nil
}
