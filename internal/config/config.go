// Package config loads cricpulse settings from a TOML file, a .env file and
// the environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/pfrederiksen/cricpulse/internal/engine"
	"github.com/pfrederiksen/cricpulse/internal/logger"
	"github.com/pfrederiksen/cricpulse/internal/notifier"
	"github.com/pfrederiksen/cricpulse/internal/source"
	"github.com/pfrederiksen/cricpulse/internal/store"
)

// Environment variables that override the file.
const (
	EnvAPIURL            = "CRICPULSE_API_URL"
	EnvStoreDriver       = "CRICPULSE_STORE_DRIVER"
	EnvStoreDSN          = "CRICPULSE_STORE_DSN"
	EnvListen            = "CRICPULSE_LISTEN"
	EnvLogLevel          = "CRICPULSE_LOG_LEVEL"
	EnvWebhookURL        = "CRICPULSE_WEBHOOK_URL"
	EnvTelegramToken     = "TELEGRAM_BOT_TOKEN"
	EnvTelegramChatID    = "TELEGRAM_CHAT_ID"
	EnvTwitterAPIKey     = "TWITTER_API_KEY"
	EnvTwitterAPISecret  = "TWITTER_API_SECRET"
	EnvTwitterToken      = "TWITTER_ACCESS_TOKEN"
	EnvTwitterSecret     = "TWITTER_ACCESS_SECRET"
	defaultListenAddress = "127.0.0.1:7420"
)

// Duration is a time.Duration written as a Go duration string ("20s").
type Duration time.Duration

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalText formats the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the duration as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the full cricpulse configuration.
type Config struct {
	API    APIConfig    `toml:"api"`
	Sync   SyncConfig   `toml:"sync"`
	Store  StoreConfig  `toml:"store"`
	Server ServerConfig `toml:"server"`
	Log    LogConfig    `toml:"log"`
	Notify NotifyConfig `toml:"notify"`
}

type APIConfig struct {
	BaseURL string   `toml:"base_url"`
	Timeout Duration `toml:"timeout"`
}

type SyncConfig struct {
	Interval Duration `toml:"interval"`
}

type StoreConfig struct {
	Driver        string   `toml:"driver"`
	DSN           string   `toml:"dsn"`
	WatchInterval Duration `toml:"watch_interval"`
}

type ServerConfig struct {
	Listen string `toml:"listen"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

// NotifyConfig configures the alert sinks. A sink is enabled when its
// required settings are present.
type NotifyConfig struct {
	DryRun      bool           `toml:"dry_run"`
	SinkTimeout Duration       `toml:"sink_timeout"`
	Telegram    TelegramConfig `toml:"telegram"`
	Webhook     WebhookConfig  `toml:"webhook"`
	Twitter     TwitterConfig  `toml:"twitter"`
}

type TelegramConfig struct {
	BotToken string `toml:"bot_token"`
	ChatID   string `toml:"chat_id"`
}

type WebhookConfig struct {
	URL string `toml:"url"`
}

type TwitterConfig struct {
	APIKey       string `toml:"api_key"`
	APISecret    string `toml:"api_secret"`
	AccessToken  string `toml:"access_token"`
	AccessSecret string `toml:"access_secret"`
}

// Credentials converts the section into notifier credentials.
func (t TwitterConfig) Credentials() notifier.TwitterCredentials {
	return notifier.TwitterCredentials{
		APIKey:       t.APIKey,
		APISecret:    t.APISecret,
		AccessToken:  t.AccessToken,
		AccessSecret: t.AccessSecret,
	}
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		API: APIConfig{
			BaseURL: source.DefaultBaseURL,
			Timeout: Duration(source.DefaultTimeout),
		},
		Sync: SyncConfig{Interval: Duration(engine.DefaultInterval)},
		Store: StoreConfig{
			Driver:        "sqlite",
			DSN:           DefaultDBPath(),
			WatchInterval: Duration(store.DefaultWatchInterval),
		},
		Server: ServerConfig{Listen: defaultListenAddress},
		Log:    LogConfig{Level: "INFO"},
		Notify: NotifyConfig{SinkTimeout: Duration(notifier.DefaultSinkTimeout)},
	}
}

// Load reads path (or the default path when empty), loads .env from the
// working directory if present, applies environment overrides and validates
// the result. A missing config file yields defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	resolved := path
	if strings.TrimSpace(resolved) == "" {
		resolved = DefaultConfigPath()
	}
	if err := cfg.readFile(resolved, path != ""); err != nil {
		return Config{}, err
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	cfg.ApplyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// readFile merges the TOML file at path into c. A missing file is an error
// only when the path was given explicitly.
func (c *Config) readFile(path string, explicit bool) error {
	file, err := os.Open(expandHome(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides settings from the environment. getenv is os.Getenv in
// production.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.API.BaseURL, EnvAPIURL)
	set(&c.Store.Driver, EnvStoreDriver)
	set(&c.Store.DSN, EnvStoreDSN)
	set(&c.Server.Listen, EnvListen)
	set(&c.Log.Level, EnvLogLevel)
	set(&c.Notify.Webhook.URL, EnvWebhookURL)
	set(&c.Notify.Telegram.BotToken, EnvTelegramToken)
	set(&c.Notify.Telegram.ChatID, EnvTelegramChatID)
	set(&c.Notify.Twitter.APIKey, EnvTwitterAPIKey)
	set(&c.Notify.Twitter.APISecret, EnvTwitterAPISecret)
	set(&c.Notify.Twitter.AccessToken, EnvTwitterToken)
	set(&c.Notify.Twitter.AccessSecret, EnvTwitterSecret)
}

// Validate checks the settings that would otherwise fail late.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.API.BaseURL) == "" {
		errs = append(errs, errors.New("api.base_url is required"))
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, errors.New("api.timeout must be positive"))
	}
	if c.Sync.Interval <= 0 {
		errs = append(errs, errors.New("sync.interval must be positive"))
	}
	if !validDriver(c.Store.Driver) {
		errs = append(errs, fmt.Errorf("store.driver %q is not one of %s", c.Store.Driver, strings.Join(store.Drivers, ", ")))
	}
	if c.Store.Driver != "memory" && strings.TrimSpace(c.Store.DSN) == "" {
		errs = append(errs, fmt.Errorf("store.dsn is required for driver %q", c.Store.Driver))
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Notify.SinkTimeout < 0 {
		errs = append(errs, errors.New("notify.sink_timeout must not be negative"))
	}
	return errors.Join(errs...)
}

func validDriver(d string) bool {
	for _, known := range store.Drivers {
		if d == known {
			return true
		}
	}
	return false
}

// StoreDSN returns the DSN with a leading ~/ expanded for file-based drivers.
func (c Config) StoreDSN() string {
	switch c.Store.Driver {
	case "sqlite", "file":
		return expandHome(c.Store.DSN)
	}
	return c.Store.DSN
}

// Encode writes c as TOML with secrets masked.
func (c Config) Encode(w io.Writer) error {
	masked := c
	mask := func(s *string) {
		if *s != "" {
			*s = "********"
		}
	}
	mask(&masked.Notify.Telegram.BotToken)
	mask(&masked.Notify.Twitter.APISecret)
	mask(&masked.Notify.Twitter.AccessSecret)
	mask(&masked.Notify.Twitter.AccessToken)

	enc := toml.NewEncoder(w)
	if err := enc.Encode(masked); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}

func expandHome(path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed != "~" && !strings.HasPrefix(trimmed, "~/") {
		return trimmed
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return trimmed
	}
	return filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
}
