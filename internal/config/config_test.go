package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pfrederiksen/cricpulse/internal/source"
)

// isolate points XDG paths at temp dirs and clears overriding variables.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	for _, key := range []string{
		EnvAPIURL, EnvStoreDriver, EnvStoreDSN, EnvListen, EnvLogLevel, EnvWebhookURL,
		EnvTelegramToken, EnvTelegramChatID,
		EnvTwitterAPIKey, EnvTwitterAPISecret, EnvTwitterToken, EnvTwitterSecret,
	} {
		t.Setenv(key, "")
	}
	return dir
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoad_MissingDefaultFile(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.BaseURL != source.DefaultBaseURL {
		t.Errorf("BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.Sync.Interval.Std() != 20*time.Second {
		t.Errorf("Interval = %v, want 20s", cfg.Sync.Interval.Std())
	}
	if cfg.API.Timeout.Std() != 15*time.Second {
		t.Errorf("Timeout = %v, want 15s", cfg.API.Timeout.Std())
	}
	wantDB := filepath.Join(dir, "data", "cricpulse", "state.db")
	if cfg.Store.Driver != "sqlite" || cfg.Store.DSN != wantDB {
		t.Errorf("Store = %+v, want sqlite at %s", cfg.Store, wantDB)
	}
	if cfg.Server.Listen != "127.0.0.1:7420" || cfg.Log.Level != "INFO" {
		t.Errorf("Server/Log = %+v %+v", cfg.Server, cfg.Log)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	isolate(t)
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("Load() of a missing explicit file error = nil")
	}
}

func TestLoad_File(t *testing.T) {
	dir := isolate(t)
	path := writeConfig(t, dir, `
[api]
base_url = "http://localhost:9000"
timeout = "5s"

[sync]
interval = "1m"

[store]
driver = "postgres"
dsn = "postgres://localhost/cricpulse"

[log]
level = "debug"

[notify]
dry_run = true

[notify.telegram]
bot_token = "123:abc"
chat_id = "-100"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.BaseURL != "http://localhost:9000" || cfg.API.Timeout.Std() != 5*time.Second {
		t.Errorf("API = %+v", cfg.API)
	}
	if cfg.Sync.Interval.Std() != time.Minute {
		t.Errorf("Interval = %v", cfg.Sync.Interval.Std())
	}
	if cfg.Store.Driver != "postgres" || cfg.Store.DSN != "postgres://localhost/cricpulse" {
		t.Errorf("Store = %+v", cfg.Store)
	}
	if !cfg.Notify.DryRun || cfg.Notify.Telegram.ChatID != "-100" {
		t.Errorf("Notify = %+v", cfg.Notify)
	}
	// Untouched sections keep their defaults.
	if cfg.Server.Listen != "127.0.0.1:7420" {
		t.Errorf("Listen = %q", cfg.Server.Listen)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := isolate(t)
	path := writeConfig(t, dir, `
[api]
base_url = "http://from-file"
`)
	t.Setenv(EnvAPIURL, "http://from-env")
	t.Setenv(EnvStoreDriver, "memory")
	t.Setenv(EnvTwitterAPIKey, "key")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.BaseURL != "http://from-env" {
		t.Errorf("BaseURL = %q, want env value", cfg.API.BaseURL)
	}
	if cfg.Store.Driver != "memory" {
		t.Errorf("Driver = %q", cfg.Store.Driver)
	}
	if cfg.Notify.Twitter.Credentials().APIKey != "key" {
		t.Errorf("Twitter = %+v", cfg.Notify.Twitter)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad toml", "[api\n", "parse config"},
		{"bad duration", "[sync]\ninterval = \"soon\"\n", "parse config"},
		{"zero interval", "[sync]\ninterval = \"0s\"\n", "sync.interval"},
		{"unknown driver", "[store]\ndriver = \"redis\"\n", "store.driver"},
		{"unknown level", "[log]\nlevel = \"loud\"\n", "log.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			_, err := Load(writeConfig(t, dir, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"memory needs no dsn", func(c *Config) { c.Store.Driver, c.Store.DSN = "memory", "" }, false},
		{"file driver", func(c *Config) { c.Store.Driver, c.Store.DSN = "file", "/tmp/x" }, false},
		{"sqlite needs dsn", func(c *Config) { c.Store.DSN = "" }, true},
		{"empty base url", func(c *Config) { c.API.BaseURL = " " }, true},
		{"negative timeout", func(c *Config) { c.API.Timeout = Duration(-time.Second) }, true},
		{"negative sink timeout", func(c *Config) { c.Notify.SinkTimeout = Duration(-time.Second) }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestStoreDSN_ExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg := Default()
	cfg.Store.DSN = "~/cricpulse/state.db"
	if got, want := cfg.StoreDSN(), filepath.Join(home, "cricpulse", "state.db"); got != want {
		t.Errorf("StoreDSN() = %q, want %q", got, want)
	}

	cfg.Store.Driver = "postgres"
	cfg.Store.DSN = "postgres://~user@host/db"
	if got := cfg.StoreDSN(); got != cfg.Store.DSN {
		t.Errorf("postgres DSN rewritten to %q", got)
	}
}

func TestEncode_MasksSecrets(t *testing.T) {
	isolate(t)
	cfg := Default()
	cfg.Notify.Telegram.BotToken = "123:secret"
	cfg.Notify.Twitter.AccessSecret = "shh"

	var buf bytes.Buffer
	if err := cfg.Encode(&buf); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "123:secret") || strings.Contains(out, "shh") {
		t.Errorf("Encode() leaked a secret:\n%s", out)
	}
	if !strings.Contains(out, "interval = '20s'") && !strings.Contains(out, `interval = "20s"`) {
		t.Errorf("Encode() durations not written as strings:\n%s", out)
	}
	if cfg.Notify.Telegram.BotToken != "123:secret" {
		t.Error("Encode() modified the receiver")
	}
}
