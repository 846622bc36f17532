package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"planner/internal/capture"
	"planner/internal/config"
	"planner/internal/datemath"
	"planner/internal/ics"
	"planner/internal/schedule"
	"planner/internal/store"
	"planner/internal/store/jsonfile"
	"planner/internal/store/sqlite"
)

const (
	syncJobName    = "ics-sync"
	captureJobName = "capture"
)

// openStore opens the backend named by cfg.Driver.
func openStore(cfg config.StorageConfig) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverJSON, "":
		return jsonfile.Open(cfg.Path)
	case config.DriverSQLite:
		return sqlite.Open(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown storage driver %q (want %q or %q)", cfg.Driver, config.DriverJSON, config.DriverSQLite)
	}
}

func icsSources(conf *config.Config) []ics.Source {
	out := make([]ics.Source, 0, len(conf.ICS))
	for _, c := range conf.ICS {
		out = append(out, ics.Source{ID: c.SourceID(), URL: c.URL})
	}
	return out
}

// importSource resolves a -import argument, reusing the configured id when
// the same URL is already subscribed so re-imports replace instead of
// duplicating.
func importSource(conf *config.Config, raw string) ics.Source {
	for _, src := range icsSources(conf) {
		if src.URL == raw {
			return src
		}
	}
	return ics.Source{ID: raw, URL: raw}
}

func importOnce(ctx context.Context, conf *config.Config, raw string, dst ics.Target) (ics.SyncResult, error) {
	f := ics.NewFetcher(conf.ICSCacheDir, nil)
	return ics.Sync(ctx, f, []ics.Source{importSource(conf, raw)}, dst)
}

func newSyncJob(conf *config.Config, dst ics.Target) schedule.Job {
	f := ics.NewFetcher(conf.ICSCacheDir, nil)
	sources := icsSources(conf)
	return schedule.Job{
		Name:    syncJobName,
		Spec:    conf.SyncCron,
		Timeout: 2 * time.Minute,
		Run: func(ctx context.Context) error {
			_, err := ics.Sync(ctx, f, sources, dst)
			return err
		},
	}
}

func newCaptureJob(conf *config.Config, c capture.Capturer, now func() time.Time) schedule.Job {
	return schedule.Job{
		Name:    captureJobName,
		Spec:    conf.Capture.Cron,
		Timeout: 2 * capture.DefaultTimeout,
		Run: func(ctx context.Context) error {
			return c.Capture(ctx, capture.Options{
				URL:        printURL(conf.Listen, conf.Capture.Page, datemath.FromTime(now())),
				OutputPath: conf.Capture.OutputPath,
				Width:      conf.Capture.Width,
				Height:     conf.Capture.Height,
			})
		},
	}
}

// baseURL turns a listen address into a loopback URL the capture browser
// can reach.
func baseURL(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return "http://" + listen
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// printURL is the printable page for day; page is "week" or "planner".
func printURL(listen, page string, day datemath.Date) string {
	return baseURL(listen) + "/print/" + page + "/" + day.String()
}

// waitReady polls url until it answers 200 or ctx is done.
func waitReady(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client := &http.Client{Timeout: time.Second}
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		if resp, err := client.Do(req); err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("server at %s not ready: %w", url, ctx.Err())
		case <-ticker.C:
		}
	}
}
