package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Width != 1920 || cfg.Height != 1080 || cfg.FPS != 30 {
		t.Errorf("Expected 1920x1080@30, got %dx%d@%v", cfg.Width, cfg.Height, cfg.FPS)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected defaults to validate, got %v", err)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("FRAMEFORGE_WIDTH", "1280")
	t.Setenv("FRAMEFORGE_HEIGHT", "720")
	t.Setenv("FRAMEFORGE_FPS", "59.94")
	t.Setenv("FRAMEFORGE_STATS", "true")
	t.Setenv("FRAMEFORGE_WORKERS", "not-a-number")

	cfg := Default()
	workers := cfg.Workers
	cfg.FromEnv()

	if cfg.Width != 1280 || cfg.Height != 720 {
		t.Errorf("Expected 1280x720, got %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.FPS != 59.94 {
		t.Errorf("Expected fps 59.94, got %v", cfg.FPS)
	}
	if !cfg.ShowStats {
		t.Error("Expected stats enabled")
	}
	if cfg.Workers != workers {
		t.Errorf("Expected invalid workers to keep %d, got %d", workers, cfg.Workers)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("FRAMEFORGE_TEST_LISTEN=0.0.0.0:9000\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("FRAMEFORGE_TEST_LISTEN") })

	if err := Load(path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := GetEnv("FRAMEFORGE_TEST_LISTEN", ""); got != "0.0.0.0:9000" {
		t.Errorf("Expected value from .env, got %q", got)
	}
	if err := Load(filepath.Join(dir, "missing.env")); err != nil {
		t.Errorf("Expected missing .env to be ignored, got %v", err)
	}
}

func TestApplyPreset(t *testing.T) {
	tests := []struct {
		preset string
		w, h   int
	}{
		{"16:9", 1920, 1080},
		{"9:16", 1080, 1920},
		{"4:5", 1080, 1350},
		{"", 640, 480},
	}
	for _, tt := range tests {
		cfg := &Config{Width: 640, Height: 480, Preset: tt.preset}
		if err := cfg.ApplyPreset(); err != nil {
			t.Errorf("ApplyPreset(%q) failed: %v", tt.preset, err)
		}
		if cfg.Width != tt.w || cfg.Height != tt.h {
			t.Errorf("ApplyPreset(%q): expected %dx%d, got %dx%d", tt.preset, tt.w, tt.h, cfg.Width, cfg.Height)
		}
	}
	if err := (&Config{Preset: "21:9"}).ApplyPreset(); err == nil {
		t.Error("Expected error for unknown preset")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		mut  func(*Config)
	}{
		{"zero width", func(c *Config) { c.Width = 0 }},
		{"odd height", func(c *Config) { c.Height = 721 }},
		{"zero fps", func(c *Config) { c.FPS = 0 }},
		{"negative workers", func(c *Config) { c.Workers = -1 }},
		{"negative duration", func(c *Config) { c.Duration = -2 }},
	}
	for _, tt := range tests {
		cfg := Default()
		tt.mut(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tt.name)
		}
	}
}

func TestDefaultQuality(t *testing.T) {
	if DefaultQuality("h264_videotoolbox") != 75 || DefaultQuality("h264_nvenc") != 28 || DefaultQuality("libx264") != 23 {
		t.Error("Expected per-encoder default quality")
	}
}

func TestOutputName(t *testing.T) {
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	got := OutputName("output", "/tmp/My Demo.yaml", now)
	want := filepath.Join("output", "My_Demo_2026-03-04_05-06-07.mp4")
	if got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
}
