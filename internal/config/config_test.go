// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// isolate points HOME at an empty directory and clears RAGCHAT_* variables.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range []string{
		"RAGCHAT_API_URL", "RAGCHAT_CHAT_BACKEND", "RAGCHAT_TIMEOUT",
		"RAGCHAT_LOG_LEVEL", "RAGCHAT_LOG_FILE", "RAGCHAT_JOURNAL",
	} {
		t.Setenv(key, "")
	}
	return home
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
}

// TestConfig_ConcurrentAccess tests that Global() and SetGlobal() can be
// called concurrently.
// Run with: go test -race -v ./internal/config/
func TestConfig_ConcurrentAccess(t *testing.T) {
	isolate(t)
	ResetGlobalForTesting()
	defer ResetGlobalForTesting()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)

		go func() {
			defer wg.Done()
			c := Default()
			c.API.ChatBackend = "qlora"
			SetGlobal(c)
		}()

		go func() {
			defer wg.Done()
			if cfg := Global(); cfg == nil {
				t.Error("Global() returned nil")
			}
		}()
	}
	wg.Wait()
}

// TestConfig_GlobalInitialization tests that Global() loads defaults on first access.
func TestConfig_GlobalInitialization(t *testing.T) {
	isolate(t)
	ResetGlobalForTesting()
	defer ResetGlobalForTesting()

	cfg := Global()
	if cfg == nil {
		t.Fatal("Global() returned nil")
	}
	if cfg.API.BaseURL != DefaultBaseURL {
		t.Errorf("API.BaseURL = %q, want %q", cfg.API.BaseURL, DefaultBaseURL)
	}
}

// TestConfig_SetGlobalOverwrites tests that SetGlobal replaces the instance.
func TestConfig_SetGlobalOverwrites(t *testing.T) {
	isolate(t)
	ResetGlobalForTesting()
	defer ResetGlobalForTesting()

	_ = Global()

	custom := Default()
	custom.API.BaseURL = "http://localhost:8000"
	SetGlobal(custom)

	if got := Global().API.BaseURL; got != "http://localhost:8000" {
		t.Errorf("Global().API.BaseURL = %q, want %q", got, "http://localhost:8000")
	}
}

// TestConfig_Default tests that Default() returns a valid config.
func TestConfig_Default(t *testing.T) {
	cfg := Default()

	if cfg.API.ChatBackend != "rag" {
		t.Errorf("API.ChatBackend = %q, want %q", cfg.API.ChatBackend, "rag")
	}
	if cfg.API.Timeout != 0 {
		t.Errorf("API.Timeout = %v, want 0", cfg.API.Timeout)
	}
	if cfg.Training.ResetDelay.Std() != 3*time.Second {
		t.Errorf("Training.ResetDelay = %v, want 3s", cfg.Training.ResetDelay)
	}
	if !cfg.Training.CloseOnSuccess {
		t.Error("Training.CloseOnSuccess = false, want true")
	}
	if cfg.Journal.Enabled {
		t.Error("journal should be disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}

// TestConfig_Validate tests configuration validation.
func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		field   string
		wantErr bool
	}{
		{"valid default config", func(c *Config) {}, "", false},
		{"http base url", func(c *Config) { c.API.BaseURL = "http://127.0.0.1:8000" }, "", false},
		{"base url without scheme", func(c *Config) { c.API.BaseURL = "api.example.com" }, "api.base_url", true},
		{"ftp base url", func(c *Config) { c.API.BaseURL = "ftp://example.com" }, "api.base_url", true},
		{"qlora backend", func(c *Config) { c.API.ChatBackend = "qlora" }, "", false},
		{"unknown backend", func(c *Config) { c.API.ChatBackend = "openai" }, "api.chat_backend", true},
		{"negative timeout", func(c *Config) { c.API.Timeout = Duration(-time.Second) }, "api.timeout", true},
		{"zero reset delay", func(c *Config) { c.Training.ResetDelay = 0 }, "training.reset_delay", true},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "log.level", true},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format", true},
		{"invalid theme", func(c *Config) { c.UI.Theme = "neon" }, "ui.theme", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				return
			}

			var verrs ValidateErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("Validate() error type = %T, want ValidateErrors", err)
			}
			if verrs[0].Field != tt.field {
				t.Errorf("Field = %q, want %q", verrs[0].Field, tt.field)
			}
		})
	}
}

func TestLoad_DefaultsWithoutFiles(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.BaseURL != DefaultBaseURL {
		t.Errorf("API.BaseURL = %q, want %q", cfg.API.BaseURL, DefaultBaseURL)
	}
}

func TestLoad_TOMLBeforeJSON(t *testing.T) {
	home := isolate(t)
	writeFile(t, filepath.Join(home, ".ragchat", "config.toml"), `
[api]
base_url = "http://toml.local:8000"
chat_backend = "qlora"
timeout = "45s"

[training]
reset_delay = "5s"
close_on_success = false

[ui]
markdown = false
`)
	writeFile(t, filepath.Join(home, ".ragchat", "config.json"), `{"api":{"base_url":"http://json.local"}}`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.BaseURL != "http://toml.local:8000" {
		t.Errorf("API.BaseURL = %q, want toml value", cfg.API.BaseURL)
	}
	if cfg.API.ChatBackend != "qlora" {
		t.Errorf("API.ChatBackend = %q, want %q", cfg.API.ChatBackend, "qlora")
	}
	if cfg.API.Timeout.Std() != 45*time.Second {
		t.Errorf("API.Timeout = %v, want 45s", cfg.API.Timeout)
	}
	if cfg.Training.ResetDelay.Std() != 5*time.Second {
		t.Errorf("Training.ResetDelay = %v, want 5s", cfg.Training.ResetDelay)
	}
	if cfg.Training.CloseOnSuccess {
		t.Error("Training.CloseOnSuccess = true, want false from file")
	}
	if cfg.UI.Markdown {
		t.Error("UI.Markdown = true, want false")
	}
	// Untouched sections keep defaults.
	if cfg.UI.Theme != "dark" {
		t.Errorf("UI.Theme = %q, want %q", cfg.UI.Theme, "dark")
	}
}

func TestLoad_JSONFallback(t *testing.T) {
	home := isolate(t)
	writeFile(t, filepath.Join(home, ".ragchat", "config.json"), `{"api":{"base_url":"http://json.local","timeout":"2s"}}`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.BaseURL != "http://json.local" {
		t.Errorf("API.BaseURL = %q, want %q", cfg.API.BaseURL, "http://json.local")
	}
	if cfg.API.Timeout.Std() != 2*time.Second {
		t.Errorf("API.Timeout = %v, want 2s", cfg.API.Timeout)
	}
}

func TestLoadFromPath_Errors(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
		wantSub string
	}{
		{"unknown key", "a.toml", "[api]\nbase_uri = \"http://x\"\n", "unknown keys"},
		{"bad toml", "b.toml", "[api\n", "failed to decode TOML"},
		{"bad json", "c.json", "{", "failed to decode JSON"},
		{"invalid value", "d.toml", "[api]\nchat_backend = \"gpt\"\n", "api.chat_backend"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			writeFile(t, path, tt.content)

			_, err := LoadFromPath(path)
			if err == nil {
				t.Fatal("LoadFromPath() error = nil")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error = %q, want substring %q", err.Error(), tt.wantSub)
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("RAGCHAT_API_URL", "http://env.local")
	t.Setenv("RAGCHAT_CHAT_BACKEND", "QLORA")
	t.Setenv("RAGCHAT_TIMEOUT", "30")
	t.Setenv("RAGCHAT_LOG_LEVEL", "DEBUG")
	t.Setenv("RAGCHAT_LOG_FILE", "-")
	t.Setenv("RAGCHAT_JOURNAL", "true")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.API.BaseURL != "http://env.local" {
		t.Errorf("API.BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.API.ChatBackend != "qlora" {
		t.Errorf("API.ChatBackend = %q", cfg.API.ChatBackend)
	}
	if cfg.API.Timeout.Std() != 30*time.Second {
		t.Errorf("API.Timeout = %v", cfg.API.Timeout)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
	if cfg.Log.File != "-" {
		t.Errorf("Log.File = %q", cfg.Log.File)
	}
	if !cfg.Journal.Enabled {
		t.Error("Journal.Enabled = false")
	}
}

func TestApplyEnvOverrides_BadTimeoutIgnored(t *testing.T) {
	isolate(t)
	t.Setenv("RAGCHAT_TIMEOUT", "soon")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.API.Timeout != 0 {
		t.Errorf("API.Timeout = %v, want 0", cfg.API.Timeout)
	}
}

func TestEnvBeatsFile(t *testing.T) {
	home := isolate(t)
	writeFile(t, filepath.Join(home, ".ragchat", "config.toml"), "[api]\nbase_url = \"http://file.local\"\n")
	t.Setenv("RAGCHAT_API_URL", "http://env.local")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.BaseURL != "http://env.local" {
		t.Errorf("API.BaseURL = %q, want env value", cfg.API.BaseURL)
	}
}

func TestLoadDotEnv(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	writeFile(t, path, "RAGCHAT_API_URL=http://dotenv.local\nRAGCHAT_CHAT_BACKEND=qlora\n")

	// Already-set variables win over the file.
	t.Setenv("RAGCHAT_CHAT_BACKEND", "rag")
	os.Unsetenv("RAGCHAT_API_URL")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
	if got := os.Getenv("RAGCHAT_API_URL"); got != "http://dotenv.local" {
		t.Errorf("RAGCHAT_API_URL = %q", got)
	}
	if got := os.Getenv("RAGCHAT_CHAT_BACKEND"); got != "rag" {
		t.Errorf("RAGCHAT_CHAT_BACKEND = %q, want %q", got, "rag")
	}

	if err := LoadDotEnv(filepath.Join(dir, "missing.env")); err != nil {
		t.Errorf("LoadDotEnv(missing) error = %v, want nil", err)
	}
}

func TestSaveTOML_RoundTrip(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.API.BaseURL = "http://saved.local"
	cfg.API.Timeout = Duration(90 * time.Second)
	cfg.Journal.Enabled = true

	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("permissions = %o, want 600", perm)
	}

	data, _ := os.ReadFile(path)
	if !strings.HasPrefix(string(data), "# ragchat configuration file") {
		t.Error("saved file is missing its header")
	}
	if !strings.Contains(string(data), `timeout = "1m30s"`) {
		t.Errorf("saved file does not encode the timeout as a duration string:\n%s", data)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}
	if loaded.API.BaseURL != "http://saved.local" || !loaded.Journal.Enabled || loaded.API.Timeout != cfg.API.Timeout {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
}

func TestPathsResolveUnderHome(t *testing.T) {
	home := isolate(t)
	cfg := Default()

	if got, want := cfg.LogPath(), filepath.Join(home, ".ragchat", "ragchat.log"); got != want {
		t.Errorf("LogPath() = %q, want %q", got, want)
	}
	cfg.Log.File = "off"
	if got := cfg.LogPath(); got != "" {
		t.Errorf("LogPath() with off = %q, want empty", got)
	}

	jp, err := cfg.JournalPath()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(home, ".ragchat", "journal.db"); jp != want {
		t.Errorf("JournalPath() = %q, want %q", jp, want)
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"", 0, false},
		{"3s", 3 * time.Second, false},
		{"1m", time.Minute, false},
		{"10", 10 * time.Second, false},
		{"0.5", 500 * time.Millisecond, false},
		{"later", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDuration(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDuration(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseDuration(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

// TestConfig_GetSet tests Get and Set methods with dot notation.
func TestConfig_GetSet(t *testing.T) {
	cfg := Default()

	val, err := cfg.Get("api.chat_backend")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if val != "rag" {
		t.Errorf("Get('api.chat_backend') = %v, want 'rag'", val)
	}

	if val, _ := cfg.Get("training.reset_delay"); val != "3s" {
		t.Errorf("Get('training.reset_delay') = %v, want '3s'", val)
	}

	if err := cfg.Set("ui.theme", "light"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if cfg.UI.Theme != "light" {
		t.Errorf("UI.Theme after Set = %q, want 'light'", cfg.UI.Theme)
	}

	if err := cfg.Set("api.timeout", "1m"); err != nil {
		t.Fatalf("Set(api.timeout) error = %v", err)
	}
	if cfg.API.Timeout.Std() != time.Minute {
		t.Errorf("API.Timeout after Set = %v, want 1m", cfg.API.Timeout)
	}

	if err := cfg.Set("journal.enabled", "yes"); err != nil {
		t.Fatalf("Set(journal.enabled) error = %v", err)
	}
	if !cfg.Journal.Enabled {
		t.Error("Journal.Enabled after Set = false")
	}

	if _, err := cfg.Get("invalid.key"); err == nil {
		t.Error("Get() with invalid key should return error")
	}
	if err := cfg.Set("api.base_url.host", "x"); err == nil {
		t.Error("Set() through a non-struct field should return error")
	}
}

func TestGetAllKeys_Resolve(t *testing.T) {
	cfg := Default()
	for _, key := range GetAllKeys() {
		if _, err := cfg.Get(key); err != nil {
			t.Errorf("Get(%q) error = %v", key, err)
		}
	}
}
