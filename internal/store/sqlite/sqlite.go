// Package sqlite provides a SQLite-backed event store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"planner/internal/model"
	"planner/internal/store"
	"planner/internal/store/sqlite/migrations"
)

// Store persists events in SQLite. Insertion order is kept in the position
// column so LoadAll matches the JSON backend.
type Store struct {
	sqlDB *sql.DB
}

var _ store.Store = (*Store)(nil)

// Open opens a SQLite event store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := "file:" + cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) LoadAll(ctx context.Context) ([]model.Event, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, title, date, notes FROM events ORDER BY position ASC`)
	if err != nil {
		return nil, store.Unavailable("query events", err)
	}
	defer rows.Close()

	events := make([]model.Event, 0)
	for rows.Next() {
		var ev model.Event
		if err := rows.Scan(&ev.ID, &ev.Title, &ev.Date, &ev.Notes); err != nil {
			return nil, store.Unavailable("scan event", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Unavailable("iterate events", err)
	}
	return events, nil
}

func (s *Store) Get(ctx context.Context, id string) (model.Event, error) {
	if err := s.ready(ctx); err != nil {
		return model.Event{}, err
	}
	var ev model.Event
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, title, date, notes FROM events WHERE id = ?`, id,
	).Scan(&ev.ID, &ev.Title, &ev.Date, &ev.Notes)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Event{}, store.ErrNotFound
	}
	if err != nil {
		return model.Event{}, store.Unavailable("get event", err)
	}
	return ev, nil
}

func (s *Store) Add(ctx context.Context, title, date, notes string) (string, error) {
	ev, err := store.Prepare(store.NewID(), title, date, notes)
	if err != nil {
		return "", err
	}
	if err := s.ready(ctx); err != nil {
		return "", err
	}
	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO events (id, title, date, notes, position)
		 VALUES (?, ?, ?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM events))`,
		ev.ID, ev.Title, ev.Date, ev.Notes,
	)
	if err != nil {
		return "", store.Unavailable("insert event", err)
	}
	return ev.ID, nil
}

func (s *Store) Update(ctx context.Context, id, title, date, notes string) error {
	ev, err := store.Prepare(id, title, date, notes)
	if err != nil {
		return err
	}
	if err := s.ready(ctx); err != nil {
		return err
	}
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE events SET title = ?, date = ?, notes = ? WHERE id = ?`,
		ev.Title, ev.Date, ev.Notes, ev.ID,
	)
	if err != nil {
		return store.Unavailable("update event", err)
	}
	return requireAffected(res)
}

func (s *Store) Remove(ctx context.Context, id string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return store.Unavailable("delete event", err)
	}
	return requireAffected(res)
}

func (s *Store) Upsert(ctx context.Context, events []model.Event) error {
	if len(events) == 0 {
		return nil
	}
	if err := s.ready(ctx); err != nil {
		return err
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return store.Unavailable("begin upsert", err)
	}
	for _, ev := range events {
		if ev.ID == "" {
			ev.ID = store.NewID()
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO events (id, title, date, notes, position)
			 VALUES (?, ?, ?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM events))
			 ON CONFLICT(id) DO UPDATE SET
			   title = excluded.title,
			   date = excluded.date,
			   notes = excluded.notes`,
			ev.ID, ev.Title, ev.Date, ev.Notes,
		)
		if err != nil {
			_ = tx.Rollback()
			return store.Unavailable("upsert event", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return store.Unavailable("commit upsert", err)
	}
	return nil
}

func (s *Store) Prune(ctx context.Context, prefix string, keep []string) (int, error) {
	if prefix == "" {
		return 0, store.ErrEmptyPrefix
	}
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	kept := make(map[string]bool, len(keep))
	for _, id := range keep {
		kept[id] = true
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return 0, store.Unavailable("begin prune", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx,
		`SELECT id FROM events WHERE substr(id, 1, length(?)) = ?`, prefix, prefix)
	if err != nil {
		return 0, store.Unavailable("query prune candidates", err)
	}
	var stale []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, store.Unavailable("scan prune candidate", err)
		}
		if !kept[id] {
			stale = append(stale, id)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, store.Unavailable("iterate prune candidates", err)
	}
	rows.Close()

	for _, id := range stale {
		if _, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id); err != nil {
			return 0, store.Unavailable("prune event", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, store.Unavailable("commit prune", err)
	}
	return len(stale), nil
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return store.Unavailable("sqlite", errors.New("storage is not configured"))
	}
	return nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return store.Unavailable("rows affected", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
