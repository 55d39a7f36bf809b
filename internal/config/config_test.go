package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	dir, err := os.MkdirTemp("", "mazkir-config-test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	cfg, warnings, err := Load(filepath.Join(dir, "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(warnings) == 0 {
		t.Errorf("missing file should warn")
	}
	if cfg.Store.Path != "mazkir_users_memory.json" {
		t.Errorf("unexpected default store path: %q", cfg.Store.Path)
	}
	if cfg.Scheduler.Interval != time.Minute {
		t.Errorf("unexpected default interval: %s", cfg.Scheduler.Interval)
	}
	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("unexpected default model: %q", cfg.LLM.Model)
	}
}

func TestLoadPartialFileFillsDefaults(t *testing.T) {
	dir, err := os.MkdirTemp("", "mazkir-config-test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "mazkir.yaml")
	content := `store:
  path: /var/lib/mazkir/users.json
scheduler:
  interval: 30s
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, _, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Store.Path != "/var/lib/mazkir/users.json" {
		t.Errorf("file value not applied: %q", cfg.Store.Path)
	}
	if cfg.Scheduler.Interval != 30*time.Second {
		t.Errorf("file interval not applied: %s", cfg.Scheduler.Interval)
	}
	if cfg.Scheduler.StopTimeout != 10*time.Second {
		t.Errorf("missing stop_timeout should default, got %s", cfg.Scheduler.StopTimeout)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("missing level should default, got %q", cfg.Logging.Level)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir, err := os.MkdirTemp("", "mazkir-config-test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "mazkir.yaml")
	cfg := DefaultConfig()
	cfg.Store.Path = "custom.json"
	cfg.Scheduler.WatchStore = true

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, _, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Store.Path != "custom.json" {
		t.Errorf("store path lost in round trip: %q", loaded.Store.Path)
	}
	if !loaded.Scheduler.WatchStore {
		t.Errorf("watch_store lost in round trip")
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	if errs := Validate(cfg); len(errs) != 0 {
		t.Errorf("default config should validate, got %v", errs)
	}

	cfg.Store.Path = ""
	cfg.Scheduler.Interval = 100 * time.Millisecond
	cfg.Logging.Level = "verbose"
	cfg.Logging.Format = "xml"

	errs := Validate(cfg)
	if len(errs) != 4 {
		t.Errorf("expected 4 validation errors, got %d: %v", len(errs), errs)
	}
}
