package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"leftright/internal/models"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is looked up in the target directory when no --config is given.
const DefaultFileName = ".leftright.yaml"

var (
	ErrDirectoryMissing = errors.New("directory does not exist")
	ErrNotADirectory    = errors.New("path is not a directory")
	ErrInvalidValue     = errors.New("invalid configuration value")
)

// Config holds everything the app reads at startup.
type Config struct {
	Dir          string          `yaml:"dir"`
	Categories   []string        `yaml:"categories"`
	Workers      int             `yaml:"workers"`
	MaxDimension int             `yaml:"max_dimension"`
	PreloadAhead int             `yaml:"preload_ahead"`
	Watch        bool            `yaml:"watch"`
	LogLevel     string          `yaml:"log_level"`
	LogFile      string          `yaml:"log_file"`
	Animation    AnimationConfig `yaml:"animation"`
	Window       WindowConfig    `yaml:"window"`
}

// AnimationConfig shapes the card that flies into a bucket.
type AnimationConfig struct {
	Duration   time.Duration `yaml:"duration"`
	StartScale float32       `yaml:"start_scale"`
	EndScale   float32       `yaml:"end_scale"`
}

type WindowConfig struct {
	Width     float32 `yaml:"width"`
	Height    float32 `yaml:"height"`
	MinWidth  float32 `yaml:"min_width"`
	MinHeight float32 `yaml:"min_height"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	return &Config{
		Dir:          ".",
		Workers:      4,
		MaxDimension: 1200,
		PreloadAhead: 2,
		Watch:        true,
		LogLevel:     "info",
		Animation: AnimationConfig{
			Duration:   500 * time.Millisecond,
			StartScale: 1.2,
			EndScale:   0.6,
		},
		Window: WindowConfig{
			Width:     800,
			Height:    600,
			MinWidth:  400,
			MinHeight: 300,
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides mirrors the LOG_LEVEL / DEBUG convention.
func (c *Config) applyEnvOverrides() {
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.LogLevel = strings.ToLower(level)
		return
	}
	if os.Getenv("DEBUG") == "1" {
		c.LogLevel = "debug"
	}
}

// Validate checks the directory and numeric settings. The directory path is
// made absolute on success.
func (c *Config) Validate() error {
	info, err := os.Stat(c.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrDirectoryMissing, c.Dir)
		}
		return fmt.Errorf("failed to stat %s: %w", c.Dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotADirectory, c.Dir)
	}

	abs, err := filepath.Abs(c.Dir)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", c.Dir, err)
	}
	c.Dir = abs

	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1, got %d", ErrInvalidValue, c.Workers)
	}
	if c.MaxDimension < 16 {
		return fmt.Errorf("%w: max_dimension must be at least 16, got %d", ErrInvalidValue, c.MaxDimension)
	}
	if c.PreloadAhead < 0 {
		return fmt.Errorf("%w: preload_ahead must not be negative", ErrInvalidValue)
	}
	if c.Animation.Duration <= 0 {
		return fmt.Errorf("%w: animation duration must be positive", ErrInvalidValue)
	}
	if c.Animation.StartScale <= 0 || c.Animation.EndScale <= 0 {
		return fmt.Errorf("%w: animation scales must be positive", ErrInvalidValue)
	}

	switch level := strings.ToLower(strings.TrimSpace(c.LogLevel)); level {
	case "debug", "info", "warn", "error":
		c.LogLevel = level
	default:
		return fmt.Errorf("%w: log level must be debug, info, warn or error, got %q", ErrInvalidValue, c.LogLevel)
	}

	if len(c.Categories) > 0 {
		names, err := models.ParseCategories(strings.Join(c.Categories, ","))
		if err != nil {
			return err
		}
		c.Categories = names
	}

	return nil
}

// HasCategories reports whether the setup screen can be skipped.
func (c *Config) HasCategories() bool {
	return len(c.Categories) > 0
}
