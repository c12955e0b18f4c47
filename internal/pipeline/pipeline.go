// Package pipeline drives one topic through the whole chain: storyboard
// generation, compilation, dry-run repair, narration synthesis, and the
// final render hand-off. Nothing here outlives a single run.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"scenesmith/internal/audio"
	"scenesmith/internal/compile"
	"scenesmith/internal/llm"
	"scenesmith/internal/render"
	"scenesmith/internal/repair"
	"scenesmith/internal/sandbox"
	"scenesmith/internal/storyboard"
	"scenesmith/internal/vocab"
	"scenesmith/scenekit"
)

// Options bounds one run.
type Options struct {
	StoryboardRetries int
	RepairAttempts    int
	RepairDeadline    time.Duration // zero disables the wall-clock bound
	Layout            compile.Layout
	OutputDir         string
	Narrate           bool
}

// DefaultOptions returns the standard budgets.
func DefaultOptions() Options {
	return Options{
		StoryboardRetries: 3,
		RepairAttempts:    repair.DefaultMaxAttempts,
		Layout:            compile.DefaultLayout(),
		OutputDir:         ".",
	}
}

// Deps are the collaborators a Driver composes. Speech and Renderer are
// optional; a nil value disables that stage.
type Deps struct {
	Client   llm.Client
	Speech   llm.SpeechClient
	Vocab    *vocab.Table
	Renderer render.Renderer
	Logger   *zap.Logger
}

// Result is what one successful run leaves behind.
type Result struct {
	RunID      string
	Storyboard *storyboard.Storyboard
	Source     string
	ScriptPath string
	AudioPaths []string
}

// Driver owns the collaborators for repeated runs.
type Driver struct {
	deps     Deps
	opts     Options
	compiler *compile.Compiler
	dryRun   func(ctx context.Context, source string) (*scenekit.Stage, error)
	logger   *zap.Logger
}

// New builds a Driver. The compiler and sandbox are constructed around
// the supplied vocabulary so generated and repaired scripts face the
// same allow-list.
func New(deps Deps, opts Options) *Driver {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	executor := sandbox.NewExecutor(deps.Vocab, logger)
	return &Driver{
		deps:     deps,
		opts:     opts,
		compiler: compile.New(deps.Vocab, opts.Layout, logger),
		dryRun:   executor.DryRun,
		logger:   logger,
	}
}

// Run takes a topic to a rendered scene. It returns the run artifacts
// together with any error; a failed render still reports the script it
// produced.
func (d *Driver) Run(ctx context.Context, topic string) (*Result, error) {
	runID := uuid.NewString()
	logger := d.logger.With(zap.String("run_id", runID), zap.String("topic", topic))
	logger.Info("pipeline run starting")

	sb, source, err := d.generateStoryboard(ctx, topic, logger)
	if err != nil {
		return nil, err
	}

	var stage *scenekit.Stage
	final, err := d.repairLoop(logger, &stage).Run(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("scene script never passed its dry run: %w", err)
	}

	scriptPath := filepath.Join(d.opts.OutputDir, compile.ScriptFileName)
	if err := os.WriteFile(scriptPath, []byte(final), 0o644); err != nil {
		return nil, fmt.Errorf("persist scene script: %w", err)
	}
	logger.Info("scene script written", zap.String("path", scriptPath))

	result := &Result{
		RunID:      runID,
		Storyboard: sb,
		Source:     final,
		ScriptPath: scriptPath,
	}

	if d.opts.Narrate && d.deps.Speech != nil {
		result.AudioPaths = d.synthesizeNarration(ctx, stage, logger)
	}

	if d.deps.Renderer != nil {
		if err := d.deps.Renderer.Render(ctx, scriptPath); err != nil {
			return result, fmt.Errorf("render: %w", err)
		}
		logger.Info("render finished")
	}

	return result, nil
}

// generateStoryboard asks the model for a storyboard until one both
// validates and compiles, within the retry budget. A storyboard that
// references out-of-vocabulary kinds is treated the same as malformed
// output: regenerated, never patched.
func (d *Driver) generateStoryboard(ctx context.Context, topic string, logger *zap.Logger) (*storyboard.Storyboard, string, error) {
	prompt := llm.StoryboardPrompt(topic, d.deps.Vocab)

	var lastErr error
	for attempt := 1; attempt <= d.opts.StoryboardRetries; attempt++ {
		raw, err := d.deps.Client.Complete(ctx, prompt)
		if err != nil {
			lastErr = err
			logger.Warn("storyboard request failed", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}

		sb, err := storyboard.Parse(raw, logger)
		if err != nil {
			lastErr = err
			logger.Warn("storyboard rejected", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}

		source, err := d.compiler.Compile(sb)
		if err != nil {
			lastErr = err
			logger.Warn("storyboard did not compile", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}

		logger.Info("storyboard accepted",
			zap.Int("attempt", attempt),
			zap.String("title", sb.Title),
			zap.Int("scenes", len(sb.Scenes)))
		return sb, source, nil
	}
	return nil, "", fmt.Errorf("no usable storyboard after %d attempts: %w", d.opts.StoryboardRetries, lastErr)
}

// repairLoop wires the sandbox and the model into a bounded repair
// cycle. The accepted stage lands in *stage for the narration step.
func (d *Driver) repairLoop(logger *zap.Logger, stage **scenekit.Stage) *repair.Loop {
	execute := func(ctx context.Context, source string) error {
		s, err := d.dryRun(ctx, source)
		if err != nil {
			return err
		}
		*stage = s
		return nil
	}
	fix := func(ctx context.Context, source string, history []repair.Attempt) (string, error) {
		diagnostics := make([]string, len(history))
		for i, att := range history {
			diagnostics[i] = att.Diagnostic
		}
		raw, err := d.deps.Client.Complete(ctx, llm.RepairPrompt(source, diagnostics))
		if err != nil {
			return "", err
		}
		return llm.ParseFixResponse(raw)
	}
	return repair.NewLoop(execute, fix,
		repair.WithMaxAttempts(d.opts.RepairAttempts),
		repair.WithDeadline(d.opts.RepairDeadline),
		repair.WithLogger(logger),
	)
}

// synthesizeNarration writes one audio frame per narrated scene. A
// failed synthesis skips that frame with a warning; narration is an
// enhancement, not a reason to discard a working scene.
func (d *Driver) synthesizeNarration(ctx context.Context, stage *scenekit.Stage, logger *zap.Logger) []string {
	var paths []string
	for i, scene := range stage.Scenes() {
		if scene.Narration == "" {
			continue
		}
		pcm, err := d.deps.Speech.Speak(ctx, scene.Narration)
		if err != nil {
			logger.Warn("narration synthesis failed", zap.Int("scene", i), zap.Error(err))
			continue
		}
		path, err := audio.WriteFrame(d.opts.OutputDir, i, pcm)
		if err != nil {
			logger.Warn("narration frame not written", zap.Int("scene", i), zap.Error(err))
			continue
		}
		paths = append(paths, path)
	}
	return paths
}
