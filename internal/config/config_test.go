package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewManagerCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file was not created: %v", err)
	}

	cfg := m.Get()
	if cfg.Capture.Width != 1280 || cfg.Capture.Height != 720 {
		t.Errorf("default size = %dx%d, want 1280x720", cfg.Capture.Width, cfg.Capture.Height)
	}
	if cfg.Capture.FPS != 60 {
		t.Errorf("default fps = %d, want 60", cfg.Capture.FPS)
	}
	if cfg.Follow.Smoothing != 8.0 {
		t.Errorf("default smoothing = %v, want 8.0", cfg.Follow.Smoothing)
	}
	if cfg.Encode.Encoder != "x265enc" || cfg.Encode.BitrateKbps != 8000 {
		t.Errorf("default encoder = %s @ %d kbps, want x265enc @ 8000", cfg.Encode.Encoder, cfg.Encode.BitrateKbps)
	}
	if cfg.Follow.Enabled {
		t.Error("follow should default to disabled")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestManagerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	cfg := m.Get()
	cfg.ReceiverIP = "192.168.1.50"
	cfg.Capture.Width = 1920
	cfg.Capture.Height = 1080
	cfg.Follow.Enabled = true
	cfg.Follow.DeadzonePct = 20
	cfg.Encode.Encoder = "x264enc"
	if err := m.Update(cfg); err != nil {
		t.Fatalf("Update: %v", err)
	}

	reloaded, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager reload: %v", err)
	}
	got := reloaded.Get()
	if got.ReceiverIP != "192.168.1.50" {
		t.Errorf("receiver_ip = %q after reload", got.ReceiverIP)
	}
	if got.Capture.Width != 1920 || got.Capture.Height != 1080 {
		t.Errorf("size = %dx%d after reload", got.Capture.Width, got.Capture.Height)
	}
	if !got.Follow.Enabled || got.Follow.DeadzonePct != 20 {
		t.Errorf("follow = %+v after reload", got.Follow)
	}
	if got.Encode.Encoder != "x264enc" {
		t.Errorf("encoder = %q after reload", got.Encode.Encoder)
	}
	// Untouched settings keep their defaults.
	if got.Capture.FPS != 60 {
		t.Errorf("fps = %d after reload, want default 60", got.Capture.FPS)
	}
}

func TestManagerReadsHandWrittenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("capture:\n  width: 640\n  height: 360\nfollow:\n  enabled: true\n")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}

	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	cfg := m.Get()
	if cfg.Capture.Width != 640 || cfg.Capture.Height != 360 {
		t.Errorf("size = %dx%d, want 640x360 from file", cfg.Capture.Width, cfg.Capture.Height)
	}
	if !cfg.Follow.Enabled {
		t.Error("follow.enabled not read from file")
	}
	if cfg.Encode.Encoder != "x265enc" {
		t.Errorf("encoder = %q, want default x265enc", cfg.Encode.Encoder)
	}
}

func TestConfigValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Port: 5004,
			Capture: CaptureConfig{
				Width: 1280, Height: 720, FPS: 60,
			},
			Follow: FollowConfig{
				Smoothing: 8, Policy: "deadzone",
			},
			Encode: EncodeConfig{Encoder: "x265enc", BitrateKbps: 8000},
		}
	}
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"boundary policy is valid", func(c *Config) { c.Follow.Policy = "boundary" }, false},
		{"zero width", func(c *Config) { c.Capture.Width = 0 }, true},
		{"negative origin", func(c *Config) { c.Capture.X = -1 }, true},
		{"zero fps", func(c *Config) { c.Capture.FPS = 0 }, true},
		{"negative frame skip", func(c *Config) { c.Capture.FrameSkip = -1 }, true},
		{"zero smoothing", func(c *Config) { c.Follow.Smoothing = 0 }, true},
		{"deadzone above 100", func(c *Config) { c.Follow.DeadzonePct = 120 }, true},
		{"unknown policy", func(c *Config) { c.Follow.Policy = "magnetic" }, true},
		{"zero bitrate", func(c *Config) { c.Encode.BitrateKbps = 0 }, true},
		{"port out of range", func(c *Config) { c.Port = 70000 }, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
