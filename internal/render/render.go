// Package render hands the finished scene script to the external
// renderer. Rendering is deliberately out of process: the pipeline's
// job ends at a script that survived its dry run.
package render

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"go.uber.org/zap"
)

// Renderer renders a scene script written to disk.
type Renderer interface {
	Render(ctx context.Context, scriptPath string) error
}

// Config selects the renderer binary and its invocation.
type Config struct {
	Binary  string        `yaml:"binary"`
	Args    []string      `yaml:"args"` // fixed preview-quality arguments, prepended to the script path
	WorkDir string        `yaml:"work_dir"`
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultConfig returns the standard preview-quality invocation.
func DefaultConfig() Config {
	return Config{
		Binary:  "scenesmith-render",
		Args:    []string{"--preview", "--quality", "low"},
		Timeout: 10 * time.Minute,
	}
}

// CommandRenderer shells out to the configured binary.
type CommandRenderer struct {
	cfg    Config
	logger *zap.Logger
}

// NewCommandRenderer builds a renderer from config.
func NewCommandRenderer(cfg Config, logger *zap.Logger) *CommandRenderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Binary == "" {
		cfg.Binary = DefaultConfig().Binary
	}
	return &CommandRenderer{cfg: cfg, logger: logger}
}

// Render invokes the renderer on scriptPath. A non-zero exit comes back
// as an error carrying the renderer's combined output; it is never
// swallowed.
func (r *CommandRenderer) Render(ctx context.Context, scriptPath string) error {
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	args := append(append([]string(nil), r.cfg.Args...), scriptPath)
	cmd := exec.CommandContext(ctx, r.cfg.Binary, args...)
	cmd.Dir = r.cfg.WorkDir

	r.logger.Info("invoking renderer",
		zap.String("binary", r.cfg.Binary),
		zap.Strings("args", args))

	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("renderer failed: %w\n%s", err, out)
	}
	r.logger.Info("render complete", zap.String("script", scriptPath))
	return nil
}
