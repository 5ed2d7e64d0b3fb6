package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bryanchriswhite/wincast/internal/capture"
)

func TestNewManager_MissingFileUsesDefaults(t *testing.T) {
	m, err := NewManager(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg := m.Get()
	if cfg.FPS != capture.DefaultFPS {
		t.Fatalf("FPS = %d, want %d", cfg.FPS, capture.DefaultFPS)
	}
	if cfg.Viewer.Width != 1280 || cfg.Viewer.Height != 720 {
		t.Fatalf("unexpected viewer defaults: %+v", cfg.Viewer)
	}
	if cfg.API.Enabled {
		t.Fatal("API should be disabled by default")
	}
}

func TestNewManager_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("fps: 30\nlog_level: debug\nviewer:\n  width: 640\napi:\n  enabled: true\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg := m.Get()
	if cfg.FPS != 30 {
		t.Fatalf("FPS = %d, want 30", cfg.FPS)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.Viewer.Width != 640 {
		t.Fatalf("Viewer.Width = %d, want 640", cfg.Viewer.Width)
	}
	// Fields absent from the file keep their defaults.
	if cfg.Viewer.Height != 720 {
		t.Fatalf("Viewer.Height = %d, want default 720", cfg.Viewer.Height)
	}
	if !cfg.API.Enabled {
		t.Fatal("API.Enabled should be true")
	}
	if cfg.API.Port != 8266 {
		t.Fatalf("API.Port = %d, want default 8266", cfg.API.Port)
	}
}

func TestNewManager_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("fps: [not a number\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewManager(path); err == nil {
		t.Fatal("expected error for malformed config")
	}
}

func TestSave_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg := m.Get()
	cfg.FPS = 24
	m.Set(cfg)

	if err := m.Save(); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	reloaded, err := NewManager(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if got := reloaded.Get().FPS; got != 24 {
		t.Fatalf("reloaded FPS = %d, want 24", got)
	}
}
