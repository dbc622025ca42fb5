package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("OPERAFLOW_CONFIG_DIR", dir)

	cfg, err := Load(filepath.Join(dir, "config.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AutosaveInterval() != 30*time.Second {
		t.Fatalf("expected 30s autosave interval, got %s", cfg.AutosaveInterval())
	}
	if cfg.HistoryLimit != 50 {
		t.Fatalf("expected history limit 50, got %d", cfg.HistoryLimit)
	}
	if cfg.DBPath != filepath.Join(dir, "operaflow.db") {
		t.Fatalf("unexpected db path %q", cfg.DBPath)
	}
}

func TestSaveLoadRoundTripAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("OPERAFLOW_CONFIG_DIR", dir)
	path := filepath.Join(dir, "nested", "config.json")

	in := Default()
	in.DBPath = "/tmp/planning.db"
	in.AutosaveIntervalMS = 5000
	in.JWTSecret = "never-written"
	if err := Save(path, in); err != nil {
		t.Fatalf("save: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(raw) == "" || containsSecret(string(raw)) {
		t.Fatalf("secret must not be persisted: %s", raw)
	}

	t.Setenv("OPERAFLOW_AUTOSAVE_INTERVAL_MS", "1500")
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.DBPath != "/tmp/planning.db" {
		t.Fatalf("expected db path from file, got %q", got.DBPath)
	}
	if got.AutosaveInterval() != 1500*time.Millisecond {
		t.Fatalf("expected env override 1.5s, got %s", got.AutosaveInterval())
	}
}

func TestLoadRejectsBadEnv(t *testing.T) {
	for _, v := range []string{"zero", "0", "-3"} {
		t.Run(v, func(t *testing.T) {
			t.Setenv("OPERAFLOW_CONFIG_DIR", t.TempDir())
			t.Setenv("OPERAFLOW_HISTORY_LIMIT", v)
			if _, err := Load(""); err == nil {
				t.Fatalf("expected error for OPERAFLOW_HISTORY_LIMIT=%q", v)
			}
		})
	}
}

func TestEnvOverridesFileValues(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("OPERAFLOW_CONFIG_DIR", dir)
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"db_path": "/srv/file.db", "web_addr": ":9000", "log_level": "debug"}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	t.Setenv("OPERAFLOW_DB", "/srv/env.db")
	t.Setenv("OPERAFLOW_WEB_ADDR", "")
	t.Setenv("OPERAFLOW_JWT_SECRET", "s3cret")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != "/srv/env.db" {
		t.Fatalf("OPERAFLOW_DB must win over the file, got %q", cfg.DBPath)
	}
	if cfg.WebAddr != ":9000" {
		t.Fatalf("an empty variable must not clear the file value, got %q", cfg.WebAddr)
	}
	if cfg.LogLevel != "debug" || cfg.LogFormat != "text" {
		t.Fatalf("expected file level and default format, got %q / %q", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.JWTSecret != "s3cret" {
		t.Fatalf("expected secret from env, got %q", cfg.JWTSecret)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("OPERAFLOW_CONFIG_DIR", dir)
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"db_path":`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func containsSecret(s string) bool {
	for i := 0; i+len("never-written") <= len(s); i++ {
		if s[i:i+len("never-written")] == "never-written" {
			return true
		}
	}
	return false
}
