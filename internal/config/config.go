// Package config provides configuration management for the input-sharing
// service.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"sync"
)

// Config represents the application configuration
type Config struct {
	// LogLevel is one of "debug", "info", "warn", "error"
	LogLevel string `json:"log_level,omitempty"`

	// Role determines if this machine is a "host" (captures input) or an
	// "agent" (injects input)
	Role string `json:"role"`

	// ListenAddr is the address the host serves agents on
	ListenAddr string `json:"listen_addr,omitempty"`

	// HostAddr is the Address:Port of the host machine (mandatory for agents)
	HostAddr string `json:"host_addr,omitempty"`

	// Token is an optional authentication token agents present on connect
	Token string `json:"token,omitempty"`

	// ConsumeInput swallows captured input from the local machine while
	// forwarding is active
	ConsumeInput bool `json:"consume_input"`

	// CaptureMouse and CaptureKeyboard select the captured categories
	CaptureMouse    bool `json:"capture_mouse"`
	CaptureKeyboard bool `json:"capture_keyboard"`

	// DeviceName is the name the agent registers its virtual device under
	DeviceName string `json:"device_name,omitempty"`
}

// DefaultConfig returns a new Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		LogLevel:        "info",
		Role:            "host",
		ListenAddr:      "0.0.0.0:18080",
		ConsumeInput:    false,
		CaptureMouse:    true,
		CaptureKeyboard: true,
		DeviceName:      "kvmlink virtual input",
	}
}

// Manager handles loading and saving configuration
type Manager struct {
	mu         sync.Mutex
	configPath string
	config     *Config
	onChanged  func()
}

// NewManager creates a new configuration manager
func NewManager() (*Manager, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	return &Manager{
		configPath: configPath,
		config:     DefaultConfig(),
	}, nil
}

// NewManagerAt creates a manager bound to an explicit config file path.
func NewManagerAt(path string) *Manager {
	return &Manager{
		configPath: path,
		config:     DefaultConfig(),
	}
}

// getConfigPath returns the path to the configuration file
func getConfigPath() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "kvmlink")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		configDir = filepath.Join(appData, "kvmlink")
	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, ".config", "kvmlink")
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", err
	}

	return filepath.Join(configDir, "config.json"), nil
}

// Load reads the configuration from disk
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.configPath)
	if os.IsNotExist(err) {
		// No config file, use defaults
		return nil
	}
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, m.config); err != nil {
		return err
	}
	if m.onChanged != nil {
		m.onChanged()
	}
	return nil
}

// Save writes the configuration to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(m.configPath, data, 0644)
}

// Get returns a copy of the current configuration. Mutating it has no effect
// until the copy is passed back through Set.
func (m *Manager) Get() *Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *m.config
	return &c
}

// Set updates the configuration from a copy of config.
func (m *Manager) Set(config *Config) {
	m.mu.Lock()
	c := *config
	m.config = &c
	m.mu.Unlock()
	if m.onChanged != nil {
		m.onChanged()
	}
}

// RegisterChangeCallback registers a callback invoked after config changes
func (m *Manager) RegisterChangeCallback(cb func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChanged = cb
}
