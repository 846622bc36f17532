package jsonfile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"planner/internal/store"
	"planner/internal/store/storetest"
)

func TestContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s, err := Open(filepath.Join(t.TempDir(), "data", "events_data.json"))
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		return s
	})
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open("  "); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestReadsLegacyWrapperAndKeepsMalformedDates(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "events_data.json")
	body := `{"events": [
	  {"id": "a", "title": "Assembly", "date": "2025-10-06", "notes": ""},
	  {"id": "b", "title": "Broken", "date": "13/45/2025", "notes": "imported"}
	]}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	events, err := s.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("load all: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(events))
	}
	if events[1].Date != "13/45/2025" {
		t.Fatalf("malformed date = %q, want it kept verbatim", events[1].Date)
	}
}

func TestWritesFlatArrayWithPrivatePerms(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "events_data.json")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := s.Add(context.Background(), "Sports day", "2025-06-20", ""); err != nil {
		t.Fatalf("add: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(data) == 0 || data[0] != '[' {
		t.Fatalf("file does not start with a JSON array: %q", data)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("perm = %o, want 600", perm)
	}
}

func TestCorruptFileIsUnavailable(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "events_data.json")
	if err := os.WriteFile(path, []byte("[{not json"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := s.LoadAll(context.Background()); !errors.Is(err, store.ErrUnavailable) {
		t.Fatalf("load all err = %v, want ErrUnavailable", err)
	}
}

func TestNonStringFieldsLoadAsRawText(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "events_data.json")
	body := `[
	  {"id": "ok", "title": "Assembly", "date": "2025-10-07", "notes": ""},
	  {"id": "bad", "title": "Imported", "date": 20251008, "notes": null},
	  "not an object"
	]`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	events, err := s.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("load all: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(events))
	}
	bad := events[1]
	if bad.ID != "bad" || bad.Date != "20251008" || bad.Notes != "" {
		t.Fatalf("numeric-date record = %+v", bad)
	}
	if _, err := bad.ParsedDate(); err == nil {
		t.Fatal("numeric date parsed, want error")
	}
}
