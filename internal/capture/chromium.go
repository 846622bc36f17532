// Package capture snapshots the printable planner pages to PNG with a
// headless Chromium driven by chromedp.
package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"

	appLog "planner/internal/log"
)

// A4 portrait at 150 dpi.
const (
	DefaultWidth   = 1240
	DefaultHeight  = 1754
	DefaultTimeout = 30 * time.Second
)

// ReadySelector is set by printable pages once the layout is final.
const ReadySelector = `[data-ready="true"]`

// Options defines one capture.
type Options struct {
	// URL of the page, e.g. "http://127.0.0.1:5000/print/week/2025-10-06".
	URL string
	// OutputPath receives the PNG; parent directories are created.
	OutputPath string

	Width   int
	Height  int
	Timeout time.Duration
}

func (o *Options) applyDefaults() {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
}

// Capturer takes a snapshot; the scheduler and CLI depend on this so tests
// can run without a browser.
type Capturer interface {
	Capture(ctx context.Context, opts Options) error
}

// Chromium is the chromedp-backed Capturer.
type Chromium struct{}

// Capture navigates to opts.URL, waits for ReadySelector and writes a full
// page screenshot to opts.OutputPath.
func (Chromium) Capture(parentCtx context.Context, opts Options) error {
	if opts.URL == "" {
		return fmt.Errorf("capture: URL is required")
	}
	if opts.OutputPath == "" {
		return fmt.Errorf("capture: OutputPath is required")
	}
	opts.applyDefaults()

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()
	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(ReadySelector, chromedp.ByQuery),
		chromedp.FullScreenshot(&png, 100),
	}
	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if err := writeFileAtomic(opts.OutputPath, png); err != nil {
		return fmt.Errorf("capture: failed to write PNG: %w", err)
	}
	appLog.Info("page captured", "url", opts.URL, "output", opts.OutputPath, "bytes", len(png))
	return nil
}

// writeFileAtomic keeps /preview.png readers from seeing a half-written file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".capture-*.png")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
