package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const appName = "controlants"

// MinRefreshIntervalSec is the smallest accepted TUI auto-refresh interval.
const MinRefreshIntervalSec = 10

// Environment variables that override the file.
const (
	EnvAPIURL   = "CONTROLANTS_API_URL"
	EnvSession  = "CONTROLANTS_SESSION"
	EnvLogLevel = "CONTROLANTS_LOG_LEVEL"
	EnvAMQPURL  = "CONTROLANTS_AMQP_URL"
)

// Themes lists the accepted [appearance] theme names.
var Themes = []string{"flexoki-dark", "catppuccin-mocha", "tokyo-night", "terminal"}

// Config holds all controlants configuration.
type Config struct {
	API        APIConfig        `toml:"api"`
	Appearance AppearanceConfig `toml:"appearance"`
	TUI        TUIConfig        `toml:"tui"`
	Log        LogConfig        `toml:"log"`
	Watch      WatchConfig      `toml:"watch"`
	Notify     NotifyConfig     `toml:"notify"`
}

// APIConfig holds backend connection settings.
type APIConfig struct {
	BaseURL       string `toml:"base_url"`
	SessionCookie string `toml:"session_cookie,omitempty"`
	CSRFCookie    string `toml:"csrf_cookie,omitempty"`
	CSRFHeader    string `toml:"csrf_header,omitempty"`
	TimeoutSec    int    `toml:"timeout_sec"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// TUIConfig holds dashboard behavior.
type TUIConfig struct {
	AutoRefresh        bool `toml:"auto_refresh"`
	RefreshIntervalSec int  `toml:"refresh_interval_sec"`
}

// LogConfig holds logging settings. File is only used by the TUI.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file,omitempty"`
}

// WatchConfig holds settings for the background budget watcher.
type WatchConfig struct {
	Schedule     string `toml:"schedule"`
	Addr         string `toml:"addr"`
	EventsBuffer int    `toml:"events_buffer"`
}

// NotifyConfig holds the optional AMQP sink for watch events.
type NotifyConfig struct {
	AMQPURL    string `toml:"amqp_url,omitempty"`
	Exchange   string `toml:"exchange"`
	RoutingKey string `toml:"routing_key"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL:    "http://localhost:8000/api/",
			TimeoutSec: 15,
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
		TUI: TUIConfig{
			AutoRefresh:        true,
			RefreshIntervalSec: 60,
		},
		Log: LogConfig{
			Level: "info",
		},
		Watch: WatchConfig{
			Schedule:     "@every 5m",
			Addr:         "127.0.0.1:8787",
			EventsBuffer: 200,
		},
		Notify: NotifyConfig{
			Exchange:   "controlants.events",
			RoutingKey: "budget.changed",
		},
	}
}

// Dir returns the XDG-compliant config directory.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", appName)
}

// Path returns the full path to the config file.
func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

// CacheDir returns the XDG-compliant cache directory holding the watch
// journal and the TUI log.
func CacheDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", appName)
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	return LoadFrom(Path())
}

// LoadFrom reads the config at path over the defaults.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // user-chosen config path
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	return SaveTo(Path(), cfg)
}

// SaveTo writes the config to path with owner-only permissions; the file
// may hold a session cookie.
func SaveTo(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) //nolint:gosec // user-chosen config path
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(Path())
	return err == nil
}

// GetBaseURL returns the API base URL from env var or config, in that order.
func GetBaseURL(cfg Config) string {
	if v := os.Getenv(EnvAPIURL); v != "" {
		return v
	}
	return cfg.API.BaseURL
}

// GetSessionCookie returns the session cookie from env var or config.
func GetSessionCookie(cfg Config) string {
	if v := os.Getenv(EnvSession); v != "" {
		return v
	}
	return cfg.API.SessionCookie
}

// GetLogLevel returns the log level from env var or config.
func GetLogLevel(cfg Config) string {
	if v := os.Getenv(EnvLogLevel); v != "" {
		return v
	}
	return cfg.Log.Level
}

// GetAMQPURL returns the AMQP broker URL from env var or config.
// Empty means notifications are disabled.
func GetAMQPURL(cfg Config) string {
	if v := os.Getenv(EnvAMQPURL); v != "" {
		return v
	}
	return cfg.Notify.AMQPURL
}

// LogFile returns the TUI log path.
func LogFile(cfg Config) string {
	if cfg.Log.File != "" {
		return cfg.Log.File
	}
	return filepath.Join(CacheDir(), appName+".log")
}

// WatchDBPath returns the watch journal location.
func WatchDBPath() string {
	return filepath.Join(CacheDir(), "watch.db")
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error

	if u, err := url.Parse(GetBaseURL(c)); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("api.base_url %q must be an http(s) URL", GetBaseURL(c)))
	}
	if c.API.TimeoutSec < 0 {
		errs = append(errs, fmt.Errorf("api.timeout_sec must not be negative, got %d", c.API.TimeoutSec))
	}
	if !knownTheme(c.Appearance.Theme) {
		errs = append(errs, fmt.Errorf("appearance.theme %q is not one of %s", c.Appearance.Theme, strings.Join(Themes, ", ")))
	}
	if c.TUI.RefreshIntervalSec < MinRefreshIntervalSec {
		errs = append(errs, fmt.Errorf("tui.refresh_interval_sec must be at least %d, got %d", MinRefreshIntervalSec, c.TUI.RefreshIntervalSec))
	}
	if _, err := logrus.ParseLevel(GetLogLevel(c)); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if _, err := cron.ParseStandard(c.Watch.Schedule); err != nil {
		errs = append(errs, fmt.Errorf("watch.schedule %q: %w", c.Watch.Schedule, err))
	}
	if c.Watch.EventsBuffer <= 0 {
		errs = append(errs, fmt.Errorf("watch.events_buffer must be positive, got %d", c.Watch.EventsBuffer))
	}
	if GetAMQPURL(c) != "" && c.Notify.Exchange == "" {
		errs = append(errs, errors.New("notify.exchange is required when amqp_url is set"))
	}

	return errors.Join(errs...)
}

func knownTheme(name string) bool {
	for _, t := range Themes {
		if t == name {
			return true
		}
	}
	return false
}
