// Package config holds render and export settings. Values come from defaults,
// then a .env file and FRAMEFORGE_* environment variables, then CLI flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const EnvPrefix = "FRAMEFORGE_"

type Config struct {
	ProjectPath  string
	OutputVideo  string
	Width        int
	Height       int
	FPS          float64
	Duration     float64 // seconds, 0 for the timeline length
	Preset       string
	Workers      int
	Window       int
	VideoEncoder string // empty for auto-detection
	Quality      int    // 0 for the encoder default
	AudioPath    string
	ShowStats    bool
	BuildVersion string

	FontSans      string
	FontSerif     string
	FontMono      string
	AtlasCapacity int

	Listen    string
	LogLevel  string
	LogFormat string
}

// Default returns the recording defaults: 1920x1080 at 30 fps.
func Default() *Config {
	return &Config{
		Width:        1920,
		Height:       1080,
		FPS:          30,
		Workers:      runtime.NumCPU(),
		BuildVersion: "dev",
		Listen:       "127.0.0.1:8080",
		LogLevel:     "info",
		LogFormat:    "text",
	}
}

// Load reads .env files into the environment. With no paths, ".env" is used.
// Missing files are not an error.
func Load(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// FromEnv overrides fields with FRAMEFORGE_* variables that are set.
func (c *Config) FromEnv() {
	c.ProjectPath = GetEnv(EnvPrefix+"PROJECT", c.ProjectPath)
	c.OutputVideo = GetEnv(EnvPrefix+"OUTPUT", c.OutputVideo)
	c.Width = GetEnvInt(EnvPrefix+"WIDTH", c.Width)
	c.Height = GetEnvInt(EnvPrefix+"HEIGHT", c.Height)
	c.FPS = GetEnvFloat(EnvPrefix+"FPS", c.FPS)
	c.Preset = GetEnv(EnvPrefix+"PRESET", c.Preset)
	c.Workers = GetEnvInt(EnvPrefix+"WORKERS", c.Workers)
	c.Window = GetEnvInt(EnvPrefix+"WINDOW", c.Window)
	c.VideoEncoder = GetEnv(EnvPrefix+"ENCODER", c.VideoEncoder)
	c.Quality = GetEnvInt(EnvPrefix+"QUALITY", c.Quality)
	c.AudioPath = GetEnv(EnvPrefix+"AUDIO", c.AudioPath)
	c.ShowStats = GetEnvBool(EnvPrefix+"STATS", c.ShowStats)
	c.FontSans = GetEnv(EnvPrefix+"FONT_SANS", c.FontSans)
	c.FontSerif = GetEnv(EnvPrefix+"FONT_SERIF", c.FontSerif)
	c.FontMono = GetEnv(EnvPrefix+"FONT_MONO", c.FontMono)
	c.AtlasCapacity = GetEnvInt(EnvPrefix+"ATLAS_CAPACITY", c.AtlasCapacity)
	c.Listen = GetEnv(EnvPrefix+"LISTEN", c.Listen)
	c.LogLevel = GetEnv(EnvPrefix+"LOG_LEVEL", c.LogLevel)
	c.LogFormat = GetEnv(EnvPrefix+"LOG_FORMAT", c.LogFormat)
}

// ApplyPreset replaces the output size with a named aspect preset.
func (c *Config) ApplyPreset() error {
	switch c.Preset {
	case "":
	case "16:9":
		c.Width, c.Height = 1920, 1080
	case "9:16":
		c.Width, c.Height = 1080, 1920
	case "4:5":
		c.Width, c.Height = 1080, 1350
	default:
		return fmt.Errorf("unknown preset %q (16:9, 9:16, 4:5)", c.Preset)
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("invalid size %dx%d", c.Width, c.Height))
	}
	// yuv420p needs even dimensions.
	if c.Width%2 != 0 || c.Height%2 != 0 {
		errs = append(errs, fmt.Errorf("size %dx%d must be even", c.Width, c.Height))
	}
	if c.FPS <= 0 {
		errs = append(errs, fmt.Errorf("invalid fps %v", c.FPS))
	}
	if c.Workers < 0 || c.Window < 0 {
		errs = append(errs, errors.New("workers and window must not be negative"))
	}
	if c.Duration < 0 {
		errs = append(errs, fmt.Errorf("invalid duration %v", c.Duration))
	}
	return errors.Join(errs...)
}

// DefaultQuality is the quality used when none is configured.
func DefaultQuality(encoder string) int {
	switch encoder {
	case "h264_videotoolbox":
		return 75 // Хорошее качество для VideoToolbox
	case "h264_nvenc":
		return 28 // Эквивалент CRF для NVENC
	default:
		return 23 // Стандартный CRF для x264
	}
}

// OutputName derives an output path in dir from the project file name and
// the current time.
func OutputName(dir, projectPath string, now time.Time) string {
	baseName := filepath.Base(projectPath)
	nameOnly := strings.TrimSuffix(baseName, filepath.Ext(baseName))
	cleanName := strings.ReplaceAll(nameOnly, " ", "_")
	if cleanName == "" || cleanName == "." {
		cleanName = "frameforge"
	}
	timestamp := now.Format("2006-01-02_15-04-05")
	return filepath.Join(dir, fmt.Sprintf("%s_%s.mp4", cleanName, timestamp))
}

// GetEnv returns the value of the environment variable named by key, or fallback
// if the variable is unset or empty.
func GetEnv(key, fallback string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return fallback
}

// GetEnvInt returns the integer value of the environment variable named by key,
// or fallback if the variable is unset, empty, or not a valid integer.
func GetEnvInt(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return fallback
}

func GetEnvFloat(key string, fallback float64) float64 {
	if s := os.Getenv(key); s != "" {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return fallback
}

func GetEnvBool(key string, fallback bool) bool {
	if s := os.Getenv(key); s != "" {
		if b, err := strconv.ParseBool(s); err == nil {
			return b
		}
	}
	return fallback
}
