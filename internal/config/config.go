package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. PLANNER_LISTEN.
const EnvPrefix = "PLANNER_"

const (
	DriverJSON   = "json"
	DriverSQLite = "sqlite"
)

// ICSConfig describes a single ICS subscription imported into the planner.
type ICSConfig struct {
	// URL is the ICS endpoint, or a local file path.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
}

// StorageConfig selects the event store backend.
type StorageConfig struct {
	// Driver is "json" (flat events file, default) or "sqlite".
	Driver string `yaml:"driver" json:"driver" env:"DRIVER"`
	// Path is the events file or database path.
	Path string `yaml:"path" json:"path" env:"PATH"`
}

// Printable pages the capture job can snapshot.
const (
	CapturePageWeek    = "week"
	CapturePagePlanner = "planner"
)

// CaptureConfig controls the PNG snapshot of a printable page.
type CaptureConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled" env:"ENABLED"`
	// Page is "week" (overview, default) or "planner" (timetable).
	Page string `yaml:"page" json:"page" env:"PAGE"`
	// Cron is a cron-style schedule (e.g. "0 6 * * 1").
	Cron string `yaml:"cron" json:"cron" env:"CRON"`
	// OutputPath is where the PNG is written and served from /preview.png.
	OutputPath string `yaml:"output_path" json:"output_path" env:"OUTPUT_PATH"`
	Width      int    `yaml:"width" json:"width" env:"WIDTH"`
	Height     int    `yaml:"height" json:"height" env:"HEIGHT"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" json:"listen" env:"LISTEN"`

	// Title and Owner head the printable pages (e.g. school and class name).
	Title string `yaml:"title" json:"title" env:"TITLE"`
	Owner string `yaml:"owner" json:"owner" env:"OWNER"`

	// WeekDays is 5 (Mon–Fri work week) or 7.
	WeekDays int `yaml:"week_days" json:"week_days" env:"WEEK_DAYS"`

	// UpcomingDays is the length of the look-ahead window after a period.
	UpcomingDays int `yaml:"upcoming_days" json:"upcoming_days" env:"UPCOMING_DAYS"`

	// WeeklySlots is the timetable printed on the planner page, keyed by
	// weekday name ("Monday" ... "Sunday").
	WeeklySlots map[string][]Slot `yaml:"weekly_slots" json:"weekly_slots"`

	Storage StorageConfig `yaml:"storage" json:"storage" envPrefix:"STORAGE_"`

	// ICS is the list of subscriptions imported by the sync job.
	ICS []ICSConfig `yaml:"ics" json:"ics"`

	// SyncCron schedules the ICS import. Empty disables scheduled sync.
	SyncCron string `yaml:"sync_cron" json:"sync_cron" env:"SYNC_CRON"`

	// ICSCacheDir holds per-subscription HTTP cache files.
	ICSCacheDir string `yaml:"ics_cache_dir" json:"ics_cache_dir" env:"ICS_CACHE_DIR"`

	Capture CaptureConfig `yaml:"capture" json:"capture" envPrefix:"CAPTURE_"`

	LogLevel  string `yaml:"log_level" json:"log_level" env:"LOG_LEVEL"`
	LogFormat string `yaml:"log_format" json:"log_format" env:"LOG_FORMAT"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:       "127.0.0.1:5000",
		Title:        "Planner",
		WeekDays:     5,
		UpcomingDays: 7,
		Storage: StorageConfig{
			Driver: DriverJSON,
			Path:   "events_data.json",
		},
		ICS:         []ICSConfig{},
		ICSCacheDir: "./cache/ics-cache",
		WeeklySlots: map[string][]Slot{},
		Capture: CaptureConfig{
			Enabled:    false,
			Page:       CapturePageWeek,
			Cron:       "0 6 * * 1",
			OutputPath: "./cache/preview.png",
			Width:      1240,
			Height:     1754,
		},
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Normalize fills in missing/zero values with defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()

	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Title == "" {
		c.Title = def.Title
	}
	if c.WeekDays != 5 && c.WeekDays != 7 {
		c.WeekDays = def.WeekDays
	}
	if c.UpcomingDays <= 0 {
		c.UpcomingDays = def.UpcomingDays
	}

	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	switch c.Storage.Driver {
	case DriverJSON, DriverSQLite:
	default:
		c.Storage.Driver = DriverJSON
	}
	if c.Storage.Path == "" {
		if c.Storage.Driver == DriverSQLite {
			c.Storage.Path = "planner.db"
		} else {
			c.Storage.Path = def.Storage.Path
		}
	}

	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
	if c.ICSCacheDir == "" {
		c.ICSCacheDir = def.ICSCacheDir
	}

	c.WeeklySlots = normalizeSlots(c.WeeklySlots)

	c.Capture.Page = strings.ToLower(strings.TrimSpace(c.Capture.Page))
	if c.Capture.Page != CapturePagePlanner {
		c.Capture.Page = CapturePageWeek
	}
	if c.Capture.Cron == "" {
		c.Capture.Cron = def.Capture.Cron
	}
	if c.Capture.OutputPath == "" {
		c.Capture.OutputPath = def.Capture.OutputPath
	}
	if c.Capture.Width <= 0 {
		c.Capture.Width = def.Capture.Width
	}
	if c.Capture.Height <= 0 {
		c.Capture.Height = def.Capture.Height
	}

	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = def.LogFormat
	}
}

// Load loads configuration from the given YAML path and applies
// PLANNER_* environment overrides.
//
// Behavior:
//   - A .env file in the working directory is loaded first if present.
//   - If the config file does not exist, a default one is written (0600).
//   - Environment variables win over file values.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg, err := readFile(path)
	if err != nil {
		return cfg, err
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return cfg, nil
}

// ApplyEnv overlays PLANNER_* environment variables onto cfg.
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func readFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &cfg, nil
}

// Save writes the configuration atomically via temp file + rename with
// 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".planner-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func (c *Config) Save(path string) error {
	return Save(path, c)
}

// SourceID returns the subscription's ID, falling back to Name then URL.
func (s ICSConfig) SourceID() string {
	switch {
	case s.ID != "":
		return s.ID
	case s.Name != "":
		return s.Name
	default:
		return s.URL
	}
}
