// Package store defines the event persistence contract shared by the JSON
// file and SQLite backends.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"planner/internal/model"
)

var (
	// ErrNotFound is returned by Get, Update and Remove for an unknown id.
	ErrNotFound = errors.New("event not found")
	// ErrUnavailable wraps backend failures (I/O, corrupt file, closed db).
	ErrUnavailable = errors.New("event store unavailable")
)

// Reader is the read side used by calendar aggregation.
//
// LoadAll returns a point-in-time snapshot in insertion order. The caller
// owns the returned slice.
type Reader interface {
	LoadAll(ctx context.Context) ([]model.Event, error)
}

// Store is the full CRUD contract.
type Store interface {
	Reader
	Get(ctx context.Context, id string) (model.Event, error)
	Add(ctx context.Context, title, date, notes string) (string, error)
	Update(ctx context.Context, id, title, date, notes string) error
	Remove(ctx context.Context, id string) error
	// Upsert inserts or replaces events by id, keeping the position of
	// existing ones. It is used by ICS import.
	Upsert(ctx context.Context, events []model.Event) error
	// Prune removes events whose id starts with prefix and is not in keep,
	// returning how many were removed. An empty prefix is an error. It is
	// used by ICS import to drop events deleted upstream.
	Prune(ctx context.Context, prefix string, keep []string) (int, error)
	Close() error
}

// ErrEmptyPrefix rejects a Prune that would match every event.
var ErrEmptyPrefix = errors.New("prune prefix is empty")

// NewID returns a fresh opaque event id.
func NewID() string {
	return uuid.NewString()
}

// Prepare builds a validated event from user input.
func Prepare(id, title, date, notes string) (model.Event, error) {
	ev := model.Event{ID: id, Title: title, Date: date, Notes: notes}
	ev.Normalize()
	if err := ev.Validate(); err != nil {
		return model.Event{}, err
	}
	return ev, nil
}

// Unavailable wraps err as ErrUnavailable keeping the original cause.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}

// SortByDate orders events by date, then title, then id. Events with
// malformed dates compare by their raw string, which keeps the order total.
func SortByDate(events []model.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.Title != b.Title {
			return a.Title < b.Title
		}
		return a.ID < b.ID
	})
}
