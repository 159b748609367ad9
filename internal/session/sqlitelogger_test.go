package session

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"testing"
)

// captureHandler records log records for assertion in tests.
type captureHandler struct {
	mu      sync.Mutex
	records []map[string]slog.Value
}

func (h *captureHandler) Enabled(_ context.Context, _ slog.Level) bool { return true }

func (h *captureHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	m := map[string]slog.Value{"msg": slog.StringValue(r.Message)}
	r.Attrs(func(a slog.Attr) bool {
		m[a.Key] = a.Value
		return true
	})
	h.records = append(h.records, m)
	return nil
}

func (h *captureHandler) WithAttrs(attrs []slog.Attr) slog.Handler { return h }
func (h *captureHandler) WithGroup(name string) slog.Handler       { return h }

func (h *captureHandler) recordsFor(msg string) []map[string]slog.Value {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []map[string]slog.Value
	for _, m := range h.records {
		if m["msg"].String() == msg {
			out = append(out, m)
		}
	}
	return out
}

func TestLoggingConnectorLogsStatements(t *testing.T) {
	handler := &captureHandler{}
	db := sql.OpenDB(newLoggingConnector(":memory:", slog.New(handler)))
	defer func() { _ = db.Close() }()

	if _, err := db.Exec(`CREATE TABLE t (id INTEGER, name TEXT)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	recs := handler.recordsFor("session sql")
	if len(recs) == 0 {
		t.Fatal("expected a log record for Exec")
	}
	got := recs[len(recs)-1]
	if got["op"].String() != "exec" || got["sql"].String() != `CREATE TABLE t (id INTEGER, name TEXT)` {
		t.Errorf("record = %v", got)
	}

	if _, err := db.Exec(`INSERT INTO t (id, name) VALUES (?, ?)`, 1, "nubi"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	recs = handler.recordsFor("session sql")
	got = recs[len(recs)-1]
	if _, hasArgs := got["args"]; !hasArgs {
		t.Error("expected args attribute in log")
	}

	var one int
	if err := db.QueryRow(`SELECT 1`).Scan(&one); err != nil {
		t.Fatalf("query row: %v", err)
	}
	recs = handler.recordsFor("session sql")
	got = recs[len(recs)-1]
	if got["op"].String() != "query" || got["sql"].String() != `SELECT 1` {
		t.Errorf("record = %v", got)
	}
}

func TestLoggingConnectorNilLoggerUsesDefault(t *testing.T) {
	db := sql.OpenDB(newLoggingConnector(":memory:", nil))
	defer func() { _ = db.Close() }()
	if err := db.Ping(); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
