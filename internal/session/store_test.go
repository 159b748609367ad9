package session

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestMenuDefaultsToNone(t *testing.T) {
	s := openTestStore(t)
	menu, err := s.Menu(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Menu: %v", err)
	}
	if menu != MenuNone {
		t.Errorf("menu = %q; want %q", menu, MenuNone)
	}
}

func TestSetMenuUpserts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.SetMenu(ctx, "s1", MenuStations); err != nil {
		t.Fatalf("SetMenu: %v", err)
	}
	if menu, _ := s.Menu(ctx, "s1"); menu != MenuStations {
		t.Errorf("menu = %q; want %q", menu, MenuStations)
	}

	if err := s.SetMenu(ctx, "s1", MenuConcepts); err != nil {
		t.Fatalf("SetMenu update: %v", err)
	}
	if menu, _ := s.Menu(ctx, "s1"); menu != MenuConcepts {
		t.Errorf("menu after update = %q; want %q", menu, MenuConcepts)
	}
}

func TestMenuIsPerSession(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.SetMenu(ctx, "s1", MenuStations); err != nil {
		t.Fatalf("SetMenu: %v", err)
	}
	if menu, _ := s.Menu(ctx, "s2"); menu != MenuNone {
		t.Errorf("other session menu = %q; want %q", menu, MenuNone)
	}
}

func TestHistoryOrderAndLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, msg := range []string{"hola", "lista de estaciones", "2"} {
		if err := s.Append(ctx, "s1", "user", msg); err != nil {
			t.Fatalf("Append: %v", err)
		}
		if err := s.Append(ctx, "s1", "assistant", "re: "+msg); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	all, err := s.History(ctx, "s1", 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(all) != 6 {
		t.Fatalf("got %d messages, want 6", len(all))
	}
	if all[0].Content != "hola" || all[5].Content != "re: 2" {
		t.Errorf("history out of order: first %q last %q", all[0].Content, all[5].Content)
	}

	last, err := s.History(ctx, "s1", 2)
	if err != nil {
		t.Fatalf("History limited: %v", err)
	}
	if len(last) != 2 || last[0].Content != "2" || last[1].Content != "re: 2" {
		t.Errorf("limited history = %+v", last)
	}
}

func TestOpenFileBacked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open file: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	if err := s.SetMenu(ctx, "s1", MenuStations); err != nil {
		t.Fatalf("SetMenu: %v", err)
	}
	if menu, _ := s.Menu(ctx, "s1"); menu != MenuStations {
		t.Errorf("menu = %q", menu)
	}
}
