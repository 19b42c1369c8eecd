package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	if cfg.Server.Port != 4310 {
		t.Errorf("expected default port 4310, got %d", cfg.Server.Port)
	}
	if cfg.Storage.Backend != "badger" {
		t.Errorf("expected default backend badger, got %s", cfg.Storage.Backend)
	}
	if cfg.Blob.Container != "reports" {
		t.Errorf("expected default container reports, got %s", cfg.Blob.Container)
	}
	if cfg.Blob.SignedTTLHrs != 48 {
		t.Errorf("expected default signed TTL 48, got %d", cfg.Blob.SignedTTLHrs)
	}
	if cfg.Scheduler.DueLimit != 50 {
		t.Errorf("expected default due limit 50, got %d", cfg.Scheduler.DueLimit)
	}
	if cfg.Scheduler.RetentionDays != 0 {
		t.Errorf("retention should be disabled by default, got %d", cfg.Scheduler.RetentionDays)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected default log level info, got %s", cfg.Logging.Level)
	}
}

func TestLoadFromFiles_NoFiles(t *testing.T) {
	cfg, err := LoadFromFiles()
	if err != nil {
		t.Fatalf("LoadFromFiles with no files should not error: %v", err)
	}
	if cfg.Server.Port != 4310 {
		t.Errorf("expected default port 4310, got %d", cfg.Server.Port)
	}
}

func TestLoadFromFiles_ValidTOML(t *testing.T) {
	dir := t.TempDir()
	tomlPath := filepath.Join(dir, "test.toml")

	content := `
environment = "prod"

[server]
port = 9090
host = "0.0.0.0"

[storage]
backend = "file"

[storage.file]
path = "/tmp/test-store.json"

[scheduler]
due_limit = 10
retention_days = 30

[logging]
level = "debug"
`
	if err := os.WriteFile(tomlPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFiles(tomlPath)
	if err != nil {
		t.Fatalf("LoadFromFiles failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Storage.Backend != "file" {
		t.Errorf("expected backend file, got %s", cfg.Storage.Backend)
	}
	if cfg.Storage.File.Path != "/tmp/test-store.json" {
		t.Errorf("unexpected file store path: %s", cfg.Storage.File.Path)
	}
	if cfg.Scheduler.DueLimit != 10 {
		t.Errorf("expected due limit 10, got %d", cfg.Scheduler.DueLimit)
	}
	if cfg.Scheduler.RetentionDays != 30 {
		t.Errorf("expected retention 30, got %d", cfg.Scheduler.RetentionDays)
	}
	if cfg.IsDevMode() {
		t.Error("prod environment should not report dev mode")
	}
}

func TestLoadFromFiles_PartialOverride(t *testing.T) {
	dir := t.TempDir()
	tomlPath := filepath.Join(dir, "partial.toml")

	content := `
[server]
port = 8000
`
	if err := os.WriteFile(tomlPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFiles(tomlPath)
	if err != nil {
		t.Fatalf("LoadFromFiles failed: %v", err)
	}

	if cfg.Server.Port != 8000 {
		t.Errorf("expected port 8000, got %d", cfg.Server.Port)
	}
	// Unspecified fields keep defaults
	if cfg.Storage.Backend != "badger" {
		t.Errorf("expected default backend badger, got %s", cfg.Storage.Backend)
	}
}

func TestLoadFromFiles_MissingFile(t *testing.T) {
	_, err := LoadFromFiles("/nonexistent/path.toml")
	if err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SCOUT_SERVER_PORT", "7777")
	t.Setenv("SCOUT_STORAGE_BACKEND", "file")
	t.Setenv("SCOUT_RETENTION_DAYS", "14")

	cfg, err := LoadFromFiles()
	if err != nil {
		t.Fatalf("LoadFromFiles failed: %v", err)
	}

	if cfg.Server.Port != 7777 {
		t.Errorf("expected env port 7777, got %d", cfg.Server.Port)
	}
	if cfg.Storage.Backend != "file" {
		t.Errorf("expected env backend file, got %s", cfg.Storage.Backend)
	}
	if cfg.Scheduler.RetentionDays != 14 {
		t.Errorf("expected env retention 14, got %d", cfg.Scheduler.RetentionDays)
	}
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := NewDefaultConfig()

	ApplyFlagOverrides(cfg, 1234, "example.com")
	if cfg.Server.Port != 1234 {
		t.Errorf("expected flag port 1234, got %d", cfg.Server.Port)
	}
	if cfg.Server.Host != "example.com" {
		t.Errorf("expected flag host example.com, got %s", cfg.Server.Host)
	}

	// Zero values leave config untouched
	ApplyFlagOverrides(cfg, 0, "")
	if cfg.Server.Port != 1234 || cfg.Server.Host != "example.com" {
		t.Error("zero flag values should not override config")
	}
}

func TestValidate(t *testing.T) {
	cfg := NewDefaultConfig()
	if issues := cfg.Validate(); len(issues) != 0 {
		t.Errorf("default config should validate, got %v", issues)
	}

	cfg.Storage.Backend = "cosmos"
	issues := cfg.Validate()
	if len(issues) == 0 {
		t.Error("unknown backend should fail validation")
	}

	cfg = NewDefaultConfig()
	cfg.Blob.Container = ""
	if issues := cfg.Validate(); len(issues) == 0 {
		t.Error("missing blob container should fail validation")
	}

	cfg = NewDefaultConfig()
	cfg.Storage.Backend = "file"
	cfg.Storage.File.Path = ""
	if issues := cfg.Validate(); len(issues) == 0 {
		t.Error("file backend without path should fail validation")
	}
}
