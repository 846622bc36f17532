package ics

import (
	"context"
	"errors"
	"fmt"

	appLog "planner/internal/log"
	"planner/internal/model"
)

// Target is the store side of an import.
type Target interface {
	Upsert(ctx context.Context, events []model.Event) error
	Prune(ctx context.Context, prefix string, keep []string) (int, error)
}

// SyncResult summarizes one import run.
type SyncResult struct {
	Sources  int
	Imported int
	// Removed counts events dropped because their VEVENT is gone upstream.
	Removed int
	Failed  []string
}

// Sync fetches and parses every source, upserts the events and prunes the
// source's previously imported events that the feed no longer lists. A
// failing source does not stop the others and is never pruned; its id is
// listed in Failed and the joined errors are returned alongside the result.
// Store errors abort.
func Sync(ctx context.Context, f *Fetcher, sources []Source, dst Target) (SyncResult, error) {
	res := SyncResult{Sources: len(sources)}
	if len(sources) == 0 {
		return res, nil
	}

	fetched, fetchErrs := f.FetchAll(ctx, sources)
	errs := append([]error(nil), fetchErrs...)
	ok := make(map[string]bool, len(fetched))

	for _, fr := range fetched {
		events, err := ParseICS(fr.Source, fr.Body)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", fr.Source.ID, err))
			continue
		}
		if err := dst.Upsert(ctx, events); err != nil {
			return res, fmt.Errorf("store imported events from %s: %w", fr.Source.ID, err)
		}
		keep := make([]string, 0, len(events))
		for _, ev := range events {
			keep = append(keep, ev.ID)
		}
		removed, err := dst.Prune(ctx, SourcePrefix(fr.Source.ID), keep)
		if err != nil {
			return res, fmt.Errorf("prune events from %s: %w", fr.Source.ID, err)
		}
		if removed > 0 {
			appLog.Info("ics events removed upstream", "id", fr.Source.ID, "removed", removed)
		}
		ok[fr.Source.ID] = true
		res.Imported += len(events)
		res.Removed += removed
	}

	for _, src := range sources {
		if !ok[src.ID] {
			res.Failed = append(res.Failed, src.ID)
		}
	}

	appLog.Info("ics sync completed",
		"sources", res.Sources,
		"imported", res.Imported,
		"removed", res.Removed,
		"failed", len(res.Failed),
	)
	return res, errors.Join(errs...)
}
