package capture

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestCaptureValidatesOptions(t *testing.T) {
	t.Parallel()

	if err := (Chromium{}).Capture(context.Background(), Options{OutputPath: "x.png"}); err == nil {
		t.Fatal("expected error for missing URL")
	}
	if err := (Chromium{}).Capture(context.Background(), Options{URL: "http://127.0.0.1/"}); err == nil {
		t.Fatal("expected error for missing output path")
	}
}

func TestApplyDefaults(t *testing.T) {
	t.Parallel()

	o := Options{Width: 800}
	o.applyDefaults()
	if o.Width != 800 || o.Height != DefaultHeight || o.Timeout != DefaultTimeout {
		t.Fatalf("defaults = %+v", o)
	}
}

func TestWriteFileAtomicCreatesDirs(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "preview.png")
	if err := writeFileAtomic(path, []byte("png")); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "png" {
		t.Fatalf("content = %q", got)
	}
}
