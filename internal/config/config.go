package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Telegram      TelegramConfig `toml:"telegram"`
	Tracker       TrackerConfig  `toml:"tracker"`
	Vocab         VocabConfig    `toml:"vocab"`
	Notifications NotifyConfig   `toml:"notifications"`
	Log           LogConfig      `toml:"log"`
}

type TelegramConfig struct {
	Token   string `toml:"token"`
	ChatID  int64  `toml:"chat_id"`
	BaseURL string `toml:"base_url"`
	// PollTimeout is the long-polling timeout passed to getUpdates.
	PollTimeout int `toml:"poll_timeout_seconds"`
}

// MaxPollTimeout keeps getUpdates well inside the HTTP client timeout.
const MaxPollTimeout = 84

type TrackerConfig struct {
	Name         string `toml:"name"`
	Timezone     string `toml:"timezone"`
	GraceMinutes int    `toml:"grace_minutes"`
	Backend      string `toml:"backend"` // "xlsx" or "sqlite"
	WorkbookPath string `toml:"workbook_path"`
	DatabasePath string `toml:"database_path"`
	RetryDelay   int    `toml:"retry_delay_seconds"`
}

type VocabConfig struct {
	Token      string `toml:"token"`
	Workbook   string `toml:"workbook_path"`
	StatePath  string `toml:"state_path"`
	SlangSheet string `toml:"slang_sheet"`
}

type NotifyConfig struct {
	Enabled bool `toml:"enabled"`
}

type LogConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
	File  string `toml:"file"`
}

func DefaultConfig() Config {
	return Config{
		Telegram: TelegramConfig{
			BaseURL:     "https://api.telegram.org",
			PollTimeout: 30,
		},
		Tracker: TrackerConfig{
			Name:         "Mo",
			Timezone:     "Africa/Cairo",
			GraceMinutes: 5,
			Backend:      "xlsx",
			WorkbookPath: "Activity_Log.xlsx",
			DatabasePath: "slotlog.db",
			RetryDelay:   1,
		},
		Vocab: VocabConfig{
			Workbook:   "B1_B2_German_Vocab_with_Slang.xlsx",
			StatePath:  "vocab_state.json",
			SlangSheet: "Slang_Colloquial",
		},
		Notifications: NotifyConfig{
			Enabled: false,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "slotlog"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the default config file, falling back to defaults when it does
// not exist. Environment variables override both.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("SLOTLOG_TELEGRAM_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}
	if v := os.Getenv("SLOTLOG_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("parsing SLOTLOG_CHAT_ID: %w", err)
		}
		cfg.Telegram.ChatID = id
	}
	if v := os.Getenv("SLOTLOG_TELEGRAM_BASE_URL"); v != "" {
		cfg.Telegram.BaseURL = v
	}
	if v := os.Getenv("SLOTLOG_VOCAB_TOKEN"); v != "" {
		cfg.Vocab.Token = v
	}
	if v := os.Getenv("SLOTLOG_TIMEZONE"); v != "" {
		cfg.Tracker.Timezone = v
	}
	if v := os.Getenv("SLOTLOG_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	return nil
}

// Validate checks the settings shared by every daemon.
func (c *Config) Validate() error {
	var errs []error
	if c.Telegram.ChatID == 0 {
		errs = append(errs, errors.New("telegram.chat_id is required"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	switch c.Tracker.Backend {
	case "xlsx", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("tracker.backend must be xlsx or sqlite, got %q", c.Tracker.Backend))
	}
	if c.Telegram.PollTimeout < 0 || c.Telegram.PollTimeout > MaxPollTimeout {
		errs = append(errs, fmt.Errorf("telegram.poll_timeout_seconds must be between 0 and %d", MaxPollTimeout))
	}
	if c.Tracker.GraceMinutes < 1 || c.Tracker.GraceMinutes >= 30 {
		errs = append(errs, fmt.Errorf("tracker.grace_minutes must be between 1 and 29"))
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	return errors.Join(errs...)
}

// Location resolves the tracker timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Tracker.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Tracker.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", c.Tracker.Timezone, err)
	}
	return loc, nil
}

func (c *Config) Grace() time.Duration {
	return time.Duration(c.Tracker.GraceMinutes) * time.Minute
}

func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Tracker.RetryDelay) * time.Second
}

// Resolve makes relative data paths relative to dir.
func (c *Config) Resolve(dir string) {
	for _, p := range []*string{&c.Tracker.WorkbookPath, &c.Tracker.DatabasePath, &c.Vocab.Workbook, &c.Vocab.StatePath} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}

func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// WriteDefault writes a starter config file to path unless one exists.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	out, err := toml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, out, 0600)
}
