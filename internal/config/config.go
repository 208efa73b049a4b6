// Package config provides configuration management for the capture bridge.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog/log"
)

// ErrInvalidConfig is returned when a loaded configuration fails validation
var ErrInvalidConfig = errors.New("config: invalid configuration")

const (
	RoleHost = "host"
	RoleCore = "core"
)

// Config represents the application configuration
type Config struct {
	Capture CaptureConfig `toml:"capture"`
	Devices DevicesConfig `toml:"devices"`
	Network NetworkConfig `toml:"network"`
	UI      UIConfig      `toml:"ui"`
}

// CaptureConfig controls when the pointer is captured and released
type CaptureConfig struct {
	// OnStart captures the pointer as soon as the host is ready
	OnStart bool `toml:"on_start"`

	// ReleaseHotkey is the combination that releases capture (e.g. "Ctrl+End")
	ReleaseHotkey string `toml:"release_hotkey"`

	// MiddleButtonRelease releases capture on a middle click
	MiddleButtonRelease bool `toml:"middle_button_release"`
}

// DevicesConfig selects the evdev devices to grab
type DevicesConfig struct {
	// Keyboard is an evdev path, empty autodetects
	Keyboard string `toml:"keyboard"`

	// Mouse is an evdev path, empty autodetects
	Mouse string `toml:"mouse"`

	// Watch releases capture when the grabbed mouse disappears
	Watch bool `toml:"watch"`
}

// NetworkConfig contains the transport between host and emulator core
type NetworkConfig struct {
	// Role is "host" (captures input) or "core" (receives it)
	Role string `toml:"role"`

	// UDPPort is the port the host sends events from
	UDPPort int `toml:"udp_port"`

	// HostAddr is the host's "ip:port" UDP address, used by cores
	HostAddr string `toml:"host_addr"`

	// CoreAddr is an optional core "ip:port" to log on startup
	CoreAddr string `toml:"core_addr,omitempty"`

	// APIEnabled enables the HTTP control API
	APIEnabled bool `toml:"api_enabled"`

	// APIPort is the port for the API server
	APIPort int `toml:"api_port"`

	// APIToken is an optional bearer token for API requests
	APIToken string `toml:"api_token,omitempty"`
}

// UIConfig contains desktop integration settings
type UIConfig struct {
	// Tray shows the system tray icon
	Tray bool `toml:"tray"`
}

// DefaultConfig returns a new Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Capture: CaptureConfig{
			OnStart:             false,
			ReleaseHotkey:       "Ctrl+End",
			MiddleButtonRelease: true,
		},
		Devices: DevicesConfig{
			Watch: true,
		},
		Network: NetworkConfig{
			Role:       RoleHost,
			UDPPort:    18081,
			APIEnabled: true,
			APIPort:    18080,
		},
		UI: UIConfig{
			Tray: false,
		},
	}
}

// Validate checks the fields that have a fixed set of values
func (c *Config) Validate() error {
	switch c.Network.Role {
	case RoleHost, RoleCore:
	default:
		return fmt.Errorf("%w: network.role %q", ErrInvalidConfig, c.Network.Role)
	}
	if c.Network.UDPPort < 0 || c.Network.UDPPort > 65535 {
		return fmt.Errorf("%w: network.udp_port %d", ErrInvalidConfig, c.Network.UDPPort)
	}
	if c.Network.APIPort < 0 || c.Network.APIPort > 65535 {
		return fmt.Errorf("%w: network.api_port %d", ErrInvalidConfig, c.Network.APIPort)
	}
	return nil
}

// Manager handles loading and saving configuration
type Manager struct {
	mu         sync.Mutex
	configPath string
	config     *Config
	onChanged  func()
}

// NewManager creates a configuration manager for path. An empty path uses
// the per-OS default location.
func NewManager(path string) (*Manager, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	return &Manager{
		configPath: path,
		config:     DefaultConfig(),
	}, nil
}

// DefaultPath returns the per-OS path of the configuration file
func DefaultPath() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "emubridge")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		configDir = filepath.Join(appData, "emubridge")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config")
		}
		configDir = filepath.Join(configDir, "emubridge")
	}

	return filepath.Join(configDir, "config.toml"), nil
}

// Path returns the file the manager reads and writes
func (m *Manager) Path() string {
	return m.configPath
}

// Load reads the configuration from disk. A missing file is created with
// the defaults.
func (m *Manager) Load() error {
	m.mu.Lock()

	if _, err := os.Stat(m.configPath); os.IsNotExist(err) {
		m.config = DefaultConfig()
		err := m.saveLocked()
		m.mu.Unlock()
		if err != nil {
			return err
		}
		log.Info().Str("component", "config").Str("path", m.configPath).Msg("Wrote default configuration")
		return nil
	}

	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(m.configPath, cfg); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("config: decode %s: %w", m.configPath, err)
	}
	if err := cfg.Validate(); err != nil {
		m.mu.Unlock()
		return err
	}
	m.config = cfg
	cb := m.onChanged
	m.mu.Unlock()

	log.Debug().Str("component", "config").Str("path", m.configPath).Msg("Loaded configuration")
	if cb != nil {
		cb()
	}
	return nil
}

// Save writes the configuration to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked()
}

func (m *Manager) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(m.configPath), 0755); err != nil {
		return fmt.Errorf("config: create dir: %w", err)
	}

	f, err := os.Create(m.configPath)
	if err != nil {
		return fmt.Errorf("config: create %s: %w", m.configPath, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(m.config); err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}

	log.Debug().Str("component", "config").Str("path", m.configPath).Msg("Saved configuration")
	return nil
}

// Get returns a copy of the current configuration
func (m *Manager) Get() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.config
}

// Set replaces the configuration and notifies the change callback
func (m *Manager) Set(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	m.config = &cfg
	cb := m.onChanged
	m.mu.Unlock()

	if cb != nil {
		cb()
	}
	return nil
}

// RegisterChangeCallback registers a function to be called when config changes
func (m *Manager) RegisterChangeCallback(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChanged = fn
}
