// Package storetest holds the behavior every store.Store backend must share.
package storetest

import (
	"context"
	"errors"
	"testing"

	"planner/internal/model"
	"planner/internal/store"
)

// Run exercises the store contract against stores produced by open. Each
// subtest gets a fresh, empty store.
func Run(t *testing.T, open func(t *testing.T) store.Store) {
	t.Helper()

	t.Run("empty store loads nothing", func(t *testing.T) {
		s := open(t)
		events, err := s.LoadAll(context.Background())
		if err != nil {
			t.Fatalf("load all: %v", err)
		}
		if len(events) != 0 {
			t.Fatalf("len(events) = %d, want 0", len(events))
		}
	})

	t.Run("add keeps insertion order", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		titles := []string{"Mark writing books", "Send home learning", "Upload reading levels"}
		ids := make([]string, 0, len(titles))
		for _, title := range titles {
			id, err := s.Add(ctx, title, "2025-10-07", "")
			if err != nil {
				t.Fatalf("add %q: %v", title, err)
			}
			if id == "" {
				t.Fatal("expected non-empty id")
			}
			ids = append(ids, id)
		}
		events, err := s.LoadAll(ctx)
		if err != nil {
			t.Fatalf("load all: %v", err)
		}
		if len(events) != len(titles) {
			t.Fatalf("len(events) = %d, want %d", len(events), len(titles))
		}
		for i, ev := range events {
			if ev.ID != ids[i] || ev.Title != titles[i] {
				t.Fatalf("events[%d] = %+v, want id %q title %q", i, ev, ids[i], titles[i])
			}
		}
	})

	t.Run("add rejects invalid input", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		if _, err := s.Add(ctx, "", "2025-10-07", ""); !errors.Is(err, model.ErrInvalidEvent) {
			t.Fatalf("empty title err = %v, want ErrInvalidEvent", err)
		}
		if _, err := s.Add(ctx, "Trip", "2025-02-30", ""); !errors.Is(err, model.ErrInvalidEvent) {
			t.Fatalf("bad date err = %v, want ErrInvalidEvent", err)
		}
	})

	t.Run("update and get", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		id, err := s.Add(ctx, "Parents evening", "2025-10-09", "hall")
		if err != nil {
			t.Fatalf("add: %v", err)
		}
		if err := s.Update(ctx, id, "Parents evening (moved)", "2025-10-16", "library"); err != nil {
			t.Fatalf("update: %v", err)
		}
		got, err := s.Get(ctx, id)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		want := model.Event{ID: id, Title: "Parents evening (moved)", Date: "2025-10-16", Notes: "library"}
		if got != want {
			t.Fatalf("get = %+v, want %+v", got, want)
		}
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		if _, err := s.Get(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("get err = %v, want ErrNotFound", err)
		}
		if err := s.Update(ctx, "missing", "x", "2025-01-01", ""); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("update err = %v, want ErrNotFound", err)
		}
		if err := s.Remove(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("remove err = %v, want ErrNotFound", err)
		}
	})

	t.Run("remove", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		keep, err := s.Add(ctx, "Keep", "2025-10-07", "")
		if err != nil {
			t.Fatalf("add keep: %v", err)
		}
		drop, err := s.Add(ctx, "Drop", "2025-10-08", "")
		if err != nil {
			t.Fatalf("add drop: %v", err)
		}
		if err := s.Remove(ctx, drop); err != nil {
			t.Fatalf("remove: %v", err)
		}
		events, err := s.LoadAll(ctx)
		if err != nil {
			t.Fatalf("load all: %v", err)
		}
		if len(events) != 1 || events[0].ID != keep {
			t.Fatalf("events after remove = %+v, want only %q", events, keep)
		}
	})

	t.Run("upsert replaces in place and appends new", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		first, err := s.Add(ctx, "First", "2025-10-06", "")
		if err != nil {
			t.Fatalf("add: %v", err)
		}
		if _, err := s.Add(ctx, "Second", "2025-10-07", ""); err != nil {
			t.Fatalf("add: %v", err)
		}
		err = s.Upsert(ctx, []model.Event{
			{ID: first, Title: "First (edited)", Date: "2025-10-06"},
			{ID: "ics-abc", Title: "Imported", Date: "not-a-date"},
		})
		if err != nil {
			t.Fatalf("upsert: %v", err)
		}
		events, err := s.LoadAll(ctx)
		if err != nil {
			t.Fatalf("load all: %v", err)
		}
		if len(events) != 3 {
			t.Fatalf("len(events) = %d, want 3", len(events))
		}
		if events[0].Title != "First (edited)" || events[1].Title != "Second" || events[2].ID != "ics-abc" {
			t.Fatalf("events after upsert = %+v", events)
		}
		if events[2].Date != "not-a-date" {
			t.Fatalf("imported date = %q, want it stored verbatim", events[2].Date)
		}
	})

	t.Run("prune removes only stale ids under the prefix", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		own, err := s.Add(ctx, "Own event", "2025-10-06", "")
		if err != nil {
			t.Fatalf("add: %v", err)
		}
		err = s.Upsert(ctx, []model.Event{
			{ID: "ics-aa-1", Title: "Kept", Date: "2025-10-07"},
			{ID: "ics-aa-2", Title: "Deleted upstream", Date: "2025-10-08"},
			{ID: "ics-bb-1", Title: "Other source", Date: "2025-10-09"},
		})
		if err != nil {
			t.Fatalf("upsert: %v", err)
		}

		n, err := s.Prune(ctx, "ics-aa-", []string{"ics-aa-1"})
		if err != nil {
			t.Fatalf("prune: %v", err)
		}
		if n != 1 {
			t.Fatalf("removed = %d, want 1", n)
		}
		events, err := s.LoadAll(ctx)
		if err != nil {
			t.Fatalf("load all: %v", err)
		}
		got := make([]string, 0, len(events))
		for _, ev := range events {
			got = append(got, ev.ID)
		}
		want := []string{own, "ics-aa-1", "ics-bb-1"}
		if len(got) != len(want) {
			t.Fatalf("ids after prune = %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("ids after prune = %v, want %v", got, want)
			}
		}

		if _, err := s.Prune(ctx, "", nil); !errors.Is(err, store.ErrEmptyPrefix) {
			t.Fatalf("empty prefix err = %v, want ErrEmptyPrefix", err)
		}
	})

	t.Run("snapshot is a copy", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		if _, err := s.Add(ctx, "Original", "2025-10-07", ""); err != nil {
			t.Fatalf("add: %v", err)
		}
		events, err := s.LoadAll(ctx)
		if err != nil {
			t.Fatalf("load all: %v", err)
		}
		events[0].Title = "Mutated"
		again, err := s.LoadAll(ctx)
		if err != nil {
			t.Fatalf("load all: %v", err)
		}
		if again[0].Title != "Original" {
			t.Fatalf("store observed caller mutation: %q", again[0].Title)
		}
	})
}
