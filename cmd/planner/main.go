package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/automaxprocs/maxprocs"

	"planner/internal/capture"
	"planner/internal/config"
	appLog "planner/internal/log"
	"planner/internal/schedule"
	"planner/internal/web"
)

const version = "0.1.0"

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	once       bool
	importSrc  string
	capture    bool
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	appLog.SetFormat(conf.LogFormat)

	if _, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		appLog.Debug("maxprocs", "msg", fmt.Sprintf(format, args...))
	})); err != nil {
		appLog.Warn("failed to set GOMAXPROCS", "err", err)
	}

	appLog.Info("planner starting", "version", version)
	appLog.Info("effective config",
		"listen", conf.Listen,
		"storage_driver", conf.Storage.Driver,
		"storage_path", conf.Storage.Path,
		"week_days", conf.WeekDays,
		"upcoming_days", conf.UpcomingDays,
		"ics_count", len(conf.ICS),
		"sync_cron", conf.SyncCron,
		"capture_enabled", conf.Capture.Enabled,
		"once", flags.once,
		"import", flags.importSrc != "",
		"capture", flags.capture,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, conf, flags); err != nil {
		appLog.Error("planner exited with error", err)
		os.Exit(1)
	}
	appLog.Info("planner exiting")
}

func run(ctx context.Context, conf *config.Config, flags flagConfig) error {
	st, err := openStore(conf.Storage)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			appLog.Error("failed to close store", err)
		}
	}()

	if flags.importSrc != "" {
		_, err := importOnce(ctx, conf, flags.importSrc, st)
		return err
	}

	srv, err := web.NewServer(conf, st)
	if err != nil {
		return err
	}

	sched := schedule.New(ctx)
	syncJob := newSyncJob(conf, st)
	captureJob := newCaptureJob(conf, capture.Chromium{}, time.Now)
	if err := sched.Add(syncJob); err != nil {
		return err
	}
	if conf.Capture.Enabled {
		if err := sched.Add(captureJob); err != nil {
			return err
		}
	}

	switch {
	case flags.once:
		return runOnce(ctx, conf, srv, syncJob, captureJob)
	case flags.capture:
		return runOnce(ctx, conf, srv, captureJob)
	}

	sched.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		sched.Stop(stopCtx)
	}()
	return srv.ListenAndServe(ctx)
}

// runOnce serves the printable pages just long enough to run jobs in order,
// whatever their cron specs say.
func runOnce(ctx context.Context, conf *config.Config, srv *web.Server, jobs ...schedule.Job) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.ListenAndServe(ctx) }()

	var errs []error
	if err := waitReady(ctx, baseURL(conf.Listen)+"/health"); err != nil {
		errs = append(errs, err)
	} else {
		for _, job := range jobs {
			errs = append(errs, schedule.RunOnce(ctx, job))
		}
	}

	cancel()
	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Run one ICS sync and page capture, then exit")
	flag.StringVar(&cfg.importSrc, "import", "", "Import one ICS file or URL into the store, then exit")
	flag.BoolVar(&cfg.capture, "capture", false, "Capture the configured printable page to PNG, then exit")

	flag.Parse()

	return cfg
}
