// Package jsonfile stores events as a flat JSON array on disk.
//
// Every read reloads the file, so hand edits and other writers are picked up
// without a restart. Writes go through a temp file + rename.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	appLog "planner/internal/log"
	"planner/internal/model"
	"planner/internal/store"
)

// Store is a JSON-file backed store.Store.
type Store struct {
	path string
	mu   sync.RWMutex
}

var _ store.Store = (*Store)(nil)

// Open returns a store for path, creating the parent directory. The file
// itself is created on first write.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("storage path is required")
	}
	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, store.Unavailable("create data dir", err)
	}
	return &Store{path: path}, nil
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

func (s *Store) Close() error { return nil }

// LoadAll returns a copy of every stored event in file order.
func (s *Store) LoadAll(ctx context.Context) ([]model.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read()
}

func (s *Store) Get(ctx context.Context, id string) (model.Event, error) {
	events, err := s.LoadAll(ctx)
	if err != nil {
		return model.Event{}, err
	}
	for _, ev := range events {
		if ev.ID == id {
			return ev, nil
		}
	}
	return model.Event{}, store.ErrNotFound
}

func (s *Store) Add(ctx context.Context, title, date, notes string) (string, error) {
	ev, err := store.Prepare(store.NewID(), title, date, notes)
	if err != nil {
		return "", err
	}
	err = s.mutate(ctx, func(events []model.Event) ([]model.Event, error) {
		return append(events, ev), nil
	})
	if err != nil {
		return "", err
	}
	return ev.ID, nil
}

func (s *Store) Update(ctx context.Context, id, title, date, notes string) error {
	ev, err := store.Prepare(id, title, date, notes)
	if err != nil {
		return err
	}
	return s.mutate(ctx, func(events []model.Event) ([]model.Event, error) {
		for i := range events {
			if events[i].ID == id {
				events[i] = ev
				return events, nil
			}
		}
		return nil, store.ErrNotFound
	})
}

func (s *Store) Remove(ctx context.Context, id string) error {
	return s.mutate(ctx, func(events []model.Event) ([]model.Event, error) {
		out := events[:0]
		found := false
		for _, ev := range events {
			if ev.ID == id {
				found = true
				continue
			}
			out = append(out, ev)
		}
		if !found {
			return nil, store.ErrNotFound
		}
		return out, nil
	})
}

func (s *Store) Upsert(ctx context.Context, incoming []model.Event) error {
	if len(incoming) == 0 {
		return nil
	}
	return s.mutate(ctx, func(events []model.Event) ([]model.Event, error) {
		index := make(map[string]int, len(events))
		for i, ev := range events {
			index[ev.ID] = i
		}
		for _, ev := range incoming {
			if ev.ID == "" {
				ev.ID = store.NewID()
			}
			if i, ok := index[ev.ID]; ok {
				events[i] = ev
				continue
			}
			index[ev.ID] = len(events)
			events = append(events, ev)
		}
		return events, nil
	})
}

func (s *Store) Prune(ctx context.Context, prefix string, keep []string) (int, error) {
	if prefix == "" {
		return 0, store.ErrEmptyPrefix
	}
	kept := make(map[string]bool, len(keep))
	for _, id := range keep {
		kept[id] = true
	}
	removed := 0
	err := s.mutate(ctx, func(events []model.Event) ([]model.Event, error) {
		out := events[:0]
		for _, ev := range events {
			if strings.HasPrefix(ev.ID, prefix) && !kept[ev.ID] {
				removed++
				continue
			}
			out = append(out, ev)
		}
		return out, nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// mutate applies fn to the current contents under the write lock and
// persists the result. fn owns the slice it is given.
func (s *Store) mutate(ctx context.Context, fn func([]model.Event) ([]model.Event, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	events, err := s.read()
	if err != nil {
		return err
	}
	events, err = fn(events)
	if err != nil {
		return err
	}
	return s.write(events)
}

// fileWrapper is the {"events": [...]} shape used by older exports.
type fileWrapper struct {
	Events []json.RawMessage `json:"events"`
}

func (s *Store) read() ([]model.Event, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []model.Event{}, nil
		}
		return nil, store.Unavailable("read events file", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return []model.Event{}, nil
	}

	var raw []json.RawMessage
	if data[0] == '{' {
		var w fileWrapper
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, store.Unavailable("decode events file", err)
		}
		raw = w.Events
	} else if err := json.Unmarshal(data, &raw); err != nil {
		return nil, store.Unavailable("decode events file", err)
	}

	events := make([]model.Event, 0, len(raw))
	for i, rec := range raw {
		ev, err := decodeRecord(rec)
		if err != nil {
			appLog.Warn("events file record skipped", "path", s.path, "index", i, "err", err)
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

// decodeRecord reads one stored event. Field values that are not JSON
// strings are kept as their raw text, so a record such as
// {"date": 20251008} loads with an unparseable date and is skipped by the
// calendar instead of failing the whole file.
func decodeRecord(rec json.RawMessage) (model.Event, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(rec, &fields); err != nil {
		return model.Event{}, fmt.Errorf("record is not an object: %w", err)
	}
	return model.Event{
		ID:    fieldText(fields["id"]),
		Title: fieldText(fields["title"]),
		Date:  fieldText(fields["date"]),
		Notes: fieldText(fields["notes"]),
	}, nil
}

func fieldText(v json.RawMessage) string {
	v = bytes.TrimSpace(v)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	return string(v)
}

func (s *Store) write(events []model.Event) error {
	if events == nil {
		events = []model.Event{}
	}
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return store.Unavailable("encode events", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".planner-events-*.tmp")
	if err != nil {
		return store.Unavailable("create temp file", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return store.Unavailable("write temp file", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return store.Unavailable("sync temp file", err)
	}
	if err := tmp.Close(); err != nil {
		return store.Unavailable("close temp file", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return store.Unavailable("chmod temp file", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return store.Unavailable("replace events file", err)
	}

	appLog.Debug("events file written", "path", s.path, "count", len(events))
	return nil
}
