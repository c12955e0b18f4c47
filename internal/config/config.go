// Package config holds the scenesmith configuration tree.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all scenesmith configuration.
type Config struct {
	// Path to the precomputed vocabulary inventory.
	VocabPath string `yaml:"vocab_path"`

	// Directory receiving the generated script and narration frames.
	OutputDir string `yaml:"output_dir"`

	Gemini   GeminiConfig   `yaml:"gemini"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Layout   LayoutConfig   `yaml:"layout"`
	Render   RenderConfig   `yaml:"render"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// GeminiConfig configures the generative model collaborator.
type GeminiConfig struct {
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	TTSModel string `yaml:"tts_model"`
	Voice    string `yaml:"voice"`
}

// PipelineConfig bounds the generation and repair cycles.
type PipelineConfig struct {
	// Attempts at getting a storyboard that validates.
	StoryboardRetries int `yaml:"storyboard_retries"`

	// Execute-diagnose-fix budget for the scene script.
	RepairAttempts int `yaml:"repair_attempts"`

	// Wall-clock bound across the whole repair cycle; empty disables it.
	RepairDeadline string `yaml:"repair_deadline"`

	// Synthesize per-scene narration audio.
	Narrate bool `yaml:"narrate"`

	// Invoke the external renderer after the dry run passes.
	RenderEnabled bool `yaml:"render_enabled"`
}

// LayoutConfig tunes the compiler's row layout.
type LayoutConfig struct {
	MaxPerRow int     `yaml:"max_per_row"`
	RowBudget float64 `yaml:"row_budget"`
	Buffer    float64 `yaml:"buffer"`
}

// RenderConfig configures the external renderer invocation.
type RenderConfig struct {
	Binary  string   `yaml:"binary"`
	Args    []string `yaml:"args"`
	Timeout string   `yaml:"timeout"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		VocabPath: "allowed_classes.csv",
		OutputDir: ".",

		Gemini: GeminiConfig{
			Model:    "gemini-2.5-flash",
			TTSModel: "gemini-2.5-flash-preview-tts",
			Voice:    "Zephyr",
		},

		Pipeline: PipelineConfig{
			StoryboardRetries: 3,
			RepairAttempts:    5,
			RepairDeadline:    "",
			Narrate:           false,
			RenderEnabled:     false,
		},

		Layout: LayoutConfig{
			MaxPerRow: 5,
			RowBudget: 12,
			Buffer:    0.5,
		},

		Render: RenderConfig{
			Binary:  "scenesmith-render",
			Args:    []string{"--preview", "--quality", "low"},
			Timeout: "10m",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks the budgets a run cannot function without.
func (c *Config) Validate() error {
	if c.Pipeline.StoryboardRetries < 1 {
		return fmt.Errorf("pipeline.storyboard_retries must be at least 1")
	}
	if c.Pipeline.RepairAttempts < 1 {
		return fmt.Errorf("pipeline.repair_attempts must be at least 1")
	}
	if c.Layout.MaxPerRow < 1 {
		return fmt.Errorf("layout.max_per_row must be at least 1")
	}
	if c.Layout.RowBudget <= 0 {
		return fmt.Errorf("layout.row_budget must be positive")
	}
	if _, err := c.RepairDeadline(); err != nil {
		return err
	}
	if _, err := c.RenderTimeout(); err != nil {
		return err
	}
	return nil
}

// RepairDeadline parses the optional repair deadline. Zero means disabled.
func (c *Config) RepairDeadline() (time.Duration, error) {
	return parseDuration("pipeline.repair_deadline", c.Pipeline.RepairDeadline)
}

// RenderTimeout parses the renderer timeout. Zero means no limit.
func (c *Config) RenderTimeout() (time.Duration, error) {
	return parseDuration("render.timeout", c.Render.Timeout)
}

func parseDuration(field, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", field, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", field)
	}
	return d, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Gemini.APIKey = key
	}
	if path := os.Getenv("SCENESMITH_VOCAB"); path != "" {
		c.VocabPath = path
	}
}
