// Package config persists the sender's settings and arbitrates between
// file values, defaults and CLI flag overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Velaseriat/vp-link/internal/logger"
)

// Config is the persisted application configuration.
type Config struct {
	ReceiverIP string `json:"receiver_ip" yaml:"receiver_ip"`
	Port       int    `json:"port" yaml:"port"`
	APIPort    int    `json:"api_port" yaml:"api_port"`
	LogLevel   string `json:"log_level" yaml:"log_level"`

	Capture CaptureConfig `json:"capture" yaml:"capture"`
	Follow  FollowConfig  `json:"follow" yaml:"follow"`
	Encode  EncodeConfig  `json:"encode" yaml:"encode"`
}

// CaptureConfig selects the captured region and pacing.
type CaptureConfig struct {
	X         int `json:"x" yaml:"x"`
	Y         int `json:"y" yaml:"y"`
	Width     int `json:"width" yaml:"width"`
	Height    int `json:"height" yaml:"height"`
	FPS       int `json:"fps" yaml:"fps"`
	FrameSkip int `json:"frame_skip" yaml:"frame_skip"`
}

// FollowConfig tunes the pointer-follow controller.
type FollowConfig struct {
	Enabled     bool    `json:"enabled" yaml:"enabled"`
	Smoothing   float64 `json:"smoothing" yaml:"smoothing"`
	DeadzonePct float64 `json:"deadzone_pct" yaml:"deadzone_pct"`
	Policy      string  `json:"policy" yaml:"policy"`

	// ResampleInterval is the minimum interval in seconds between
	// follow-state diagnostics ticks.
	ResampleInterval float64 `json:"resample_interval" yaml:"resample_interval"`
}

// EncodeConfig selects the video encoder for streaming.
type EncodeConfig struct {
	Encoder     string `json:"encoder" yaml:"encoder"`
	BitrateKbps int    `json:"bitrate_kbps" yaml:"bitrate_kbps"`
}

// Manager loads, validates and persists the configuration. All access
// goes through a viper instance so CLI overrides and the config
// command share one view of the settings.
type Manager struct {
	configPath string
	v          *viper.Viper
	mu         sync.RWMutex
}

// NewManager opens the config at configFile, or the default
// ~/.config/vp-link/config.yaml when empty. A missing file is created
// with defaults.
func NewManager(configFile string) (*Manager, error) {
	actualPath := configFile
	if actualPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		actualPath = filepath.Join(homeDir, ".config", "vp-link", "config.yaml")
	}
	if err := os.MkdirAll(filepath.Dir(actualPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(actualPath)

	m := &Manager{configPath: actualPath, v: v}

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			logger.WithComponent("config").Info().
				Str("path", actualPath).
				Msg("Config file not found, creating new config")
			if err := m.Save(); err != nil {
				return nil, fmt.Errorf("failed to create default config: %w", err)
			}
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	logger.WithComponent("config").Info().
		Str("path", actualPath).
		Msg("Config loaded")
	return m, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("receiver_ip", "")
	v.SetDefault("port", 5004)
	v.SetDefault("api_port", 0)
	v.SetDefault("log_level", "info")

	v.SetDefault("capture.x", 0)
	v.SetDefault("capture.y", 0)
	v.SetDefault("capture.width", 1280)
	v.SetDefault("capture.height", 720)
	v.SetDefault("capture.fps", 60)
	v.SetDefault("capture.frame_skip", 0)

	v.SetDefault("follow.enabled", false)
	v.SetDefault("follow.smoothing", 8.0)
	v.SetDefault("follow.deadzone_pct", 0.0)
	v.SetDefault("follow.policy", "deadzone")
	v.SetDefault("follow.resample_interval", 0.5)

	v.SetDefault("encode.encoder", "x265enc")
	v.SetDefault("encode.bitrate_kbps", 8000)
}

// Get materializes the current settings into a Config.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return &Config{
		ReceiverIP: m.v.GetString("receiver_ip"),
		Port:       m.v.GetInt("port"),
		APIPort:    m.v.GetInt("api_port"),
		LogLevel:   m.v.GetString("log_level"),
		Capture: CaptureConfig{
			X:         m.v.GetInt("capture.x"),
			Y:         m.v.GetInt("capture.y"),
			Width:     m.v.GetInt("capture.width"),
			Height:    m.v.GetInt("capture.height"),
			FPS:       m.v.GetInt("capture.fps"),
			FrameSkip: m.v.GetInt("capture.frame_skip"),
		},
		Follow: FollowConfig{
			Enabled:          m.v.GetBool("follow.enabled"),
			Smoothing:        m.v.GetFloat64("follow.smoothing"),
			DeadzonePct:      m.v.GetFloat64("follow.deadzone_pct"),
			Policy:           m.v.GetString("follow.policy"),
			ResampleInterval: m.v.GetFloat64("follow.resample_interval"),
		},
		Encode: EncodeConfig{
			Encoder:     m.v.GetString("encode.encoder"),
			BitrateKbps: m.v.GetInt("encode.bitrate_kbps"),
		},
	}
}

// Update replaces the stored settings and persists them.
func (m *Manager) Update(cfg *Config) error {
	m.mu.Lock()
	m.v.Set("receiver_ip", cfg.ReceiverIP)
	m.v.Set("port", cfg.Port)
	m.v.Set("api_port", cfg.APIPort)
	m.v.Set("log_level", cfg.LogLevel)
	m.v.Set("capture.x", cfg.Capture.X)
	m.v.Set("capture.y", cfg.Capture.Y)
	m.v.Set("capture.width", cfg.Capture.Width)
	m.v.Set("capture.height", cfg.Capture.Height)
	m.v.Set("capture.fps", cfg.Capture.FPS)
	m.v.Set("capture.frame_skip", cfg.Capture.FrameSkip)
	m.v.Set("follow.enabled", cfg.Follow.Enabled)
	m.v.Set("follow.smoothing", cfg.Follow.Smoothing)
	m.v.Set("follow.deadzone_pct", cfg.Follow.DeadzonePct)
	m.v.Set("follow.policy", cfg.Follow.Policy)
	m.v.Set("follow.resample_interval", cfg.Follow.ResampleInterval)
	m.v.Set("encode.encoder", cfg.Encode.Encoder)
	m.v.Set("encode.bitrate_kbps", cfg.Encode.BitrateKbps)
	m.mu.Unlock()
	return m.Save()
}

// Save writes the current settings to disk as YAML.
func (m *Manager) Save() error {
	cfg := m.Get()

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(m.configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	logger.WithComponent("config").Debug().
		Str("path", m.configPath).
		Msg("Config saved")
	return nil
}

// GetViper exposes the backing viper instance for flag binding and the
// config get/set command.
func (m *Manager) GetViper() *viper.Viper {
	return m.v
}

// GetConfigPath returns the path of the config file in use.
func (m *Manager) GetConfigPath() string {
	return m.configPath
}

// GetConfigDir returns the directory holding the config file, which
// also holds session artifacts like the capture restore token.
func (m *Manager) GetConfigDir() string {
	return filepath.Dir(m.configPath)
}

// Validate rejects settings the pipeline cannot run with. The encoder
// name is checked downstream where the encoder table lives.
func (c *Config) Validate() error {
	if c.Capture.Width <= 0 || c.Capture.Height <= 0 {
		return fmt.Errorf("invalid output size %dx%d", c.Capture.Width, c.Capture.Height)
	}
	if c.Capture.X < 0 || c.Capture.Y < 0 {
		return fmt.Errorf("invalid capture origin (%d, %d)", c.Capture.X, c.Capture.Y)
	}
	if c.Capture.FPS <= 0 {
		return fmt.Errorf("invalid capture fps %d", c.Capture.FPS)
	}
	if c.Capture.FrameSkip < 0 {
		return fmt.Errorf("invalid frame skip %d", c.Capture.FrameSkip)
	}
	if c.Follow.Smoothing <= 0 {
		return fmt.Errorf("smoothing must be positive, got %v", c.Follow.Smoothing)
	}
	if c.Follow.DeadzonePct < 0 || c.Follow.DeadzonePct > 100 {
		return fmt.Errorf("deadzone percentage must be in [0, 100], got %v", c.Follow.DeadzonePct)
	}
	switch c.Follow.Policy {
	case "", "deadzone", "boundary":
	default:
		return fmt.Errorf("unknown follow policy %q (use deadzone or boundary)", c.Follow.Policy)
	}
	if c.Follow.ResampleInterval < 0 {
		return fmt.Errorf("resample interval must not be negative, got %v", c.Follow.ResampleInterval)
	}
	if c.Encode.BitrateKbps <= 0 {
		return fmt.Errorf("bitrate must be positive, got %d", c.Encode.BitrateKbps)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.APIPort < 0 || c.APIPort > 65535 {
		return fmt.Errorf("invalid api port %d", c.APIPort)
	}
	return nil
}
