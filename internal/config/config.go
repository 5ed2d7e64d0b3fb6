// Package config loads and persists the wincast configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/bryanchriswhite/wincast/internal/capture"
	"github.com/bryanchriswhite/wincast/internal/logger"
)

// Config is the application configuration.
type Config struct {
	// FPS is the target capture rate shared by all sessions.
	FPS int `yaml:"fps"`

	// FocusPollMs is the focus watcher's polling period in milliseconds.
	FocusPollMs int `yaml:"focus_poll_ms"`

	LogLevel  string `yaml:"log_level"`
	LogPretty bool   `yaml:"log_pretty"`

	Viewer ViewerConfig `yaml:"viewer"`
	API    APIConfig    `yaml:"api"`
}

// ViewerConfig sizes the viewer window.
type ViewerConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// APIConfig configures the local status API.
type APIConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Manager owns the configuration file.
type Manager struct {
	mu   sync.RWMutex
	path string
	cfg  *Config
}

// NewManager loads the configuration from path, falling back to
// ~/.config/wincast/config.yaml when path is empty. A missing file yields
// defaults; a malformed file is an error.
func NewManager(path string) (*Manager, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		path = filepath.Join(home, ".config", "wincast", "config.yaml")
	}

	m := &Manager{path: path, cfg: defaults()}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

func defaults() *Config {
	return &Config{
		FPS:         capture.DefaultFPS,
		FocusPollMs: 200,
		LogLevel:    "info",
		LogPretty:   true,
		Viewer: ViewerConfig{
			Width:  1280,
			Height: 720,
		},
		API: APIConfig{
			Enabled: false,
			Port:    8266,
		},
	}
}

func (m *Manager) load() error {
	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		logger.WithComponent("config").Debug().
			Str("path", m.path).
			Msg("no config file, using defaults")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", m.path, err)
	}
	if cfg.FPS <= 0 {
		cfg.FPS = capture.DefaultFPS
	}

	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()

	logger.WithComponent("config").Info().
		Str("path", m.path).
		Msg("configuration loaded")
	return nil
}

// Get returns a copy of the current configuration.
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return *m.cfg
}

// Set replaces the current configuration.
func (m *Manager) Set(cfg Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	*m.cfg = cfg
}

// Save writes the current configuration back to disk, creating the parent
// directory if needed.
func (m *Manager) Save() error {
	m.mu.RLock()
	data, err := yaml.Marshal(m.cfg)
	m.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(m.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Path returns the configuration file location.
func (m *Manager) Path() string {
	return m.path
}
