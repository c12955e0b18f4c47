package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"scenesmith/internal/compile"
	"scenesmith/internal/config"
	"scenesmith/internal/llm"
	"scenesmith/internal/pipeline"
	"scenesmith/internal/render"
	"scenesmith/internal/vocab"
)

var (
	// Global flags
	configPath string
	verbose    bool
	apiKey     string
	outputDir  string

	// generate flags
	narrate  bool
	doRender bool

	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "scenesmith",
	Short: "scenesmith - topic to animation scene script, hardened end to end",
	Long: `scenesmith turns a natural-language topic into an executable animation
scene script.

The generative model only proposes; everything it produces is forced
through a sanitizer, an allow-list compiler with deterministic layout,
and a sandboxed dry run with a bounded self-repair cycle before the
external renderer ever sees it.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		zapCfg.Encoding = "console"
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// generateCmd runs the full pipeline for one topic.
var generateCmd = &cobra.Command{
	Use:   "generate [topic]",
	Short: "Generate, repair and optionally render a scene script for a topic",
	Long: `Generates a storyboard for the topic, compiles it into a scene script,
dry-runs it in the sandbox with the self-repair cycle, and writes the
accepted script to generated_scene.go.

Example:
  scenesmith generate "the pythagorean theorem" --narrate --render`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

// vocabCmd inspects the loaded allow-list.
var vocabCmd = &cobra.Command{
	Use:   "vocab",
	Short: "Show the vocabulary allow-list the compiler enforces",
	RunE:  runVocab,
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if apiKey != "" {
		cfg.Gemini.APIKey = apiKey
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	if narrate {
		cfg.Pipeline.Narrate = true
	}
	if doRender {
		cfg.Pipeline.RenderEnabled = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	topic := strings.Join(args, " ")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Gemini.APIKey == "" {
		return fmt.Errorf("no API key: set GEMINI_API_KEY or --api-key")
	}

	table, err := vocab.Load(cfg.VocabPath)
	if err != nil {
		return fmt.Errorf("load vocabulary: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := llm.NewGeminiClient(ctx, llm.Config{
		APIKey:   cfg.Gemini.APIKey,
		Model:    cfg.Gemini.Model,
		TTSModel: cfg.Gemini.TTSModel,
		Voice:    cfg.Gemini.Voice,
	})
	if err != nil {
		return err
	}

	deps := pipeline.Deps{
		Client: client,
		Vocab:  table,
		Logger: logger,
	}
	if cfg.Pipeline.Narrate {
		deps.Speech = client
	}
	if cfg.Pipeline.RenderEnabled {
		timeout, _ := cfg.RenderTimeout()
		deps.Renderer = render.NewCommandRenderer(render.Config{
			Binary:  cfg.Render.Binary,
			Args:    cfg.Render.Args,
			WorkDir: cfg.OutputDir,
			Timeout: timeout,
		}, logger)
	}

	deadline, _ := cfg.RepairDeadline()
	opts := pipeline.Options{
		StoryboardRetries: cfg.Pipeline.StoryboardRetries,
		RepairAttempts:    cfg.Pipeline.RepairAttempts,
		RepairDeadline:    deadline,
		Layout: compile.Layout{
			MaxPerRow: cfg.Layout.MaxPerRow,
			RowBudget: cfg.Layout.RowBudget,
			Buffer:    cfg.Layout.Buffer,
		},
		OutputDir: cfg.OutputDir,
		Narrate:   cfg.Pipeline.Narrate,
	}

	result, err := pipeline.New(deps, opts).Run(ctx, topic)
	if err != nil {
		return err
	}

	fmt.Printf("✓ %s\n", result.Storyboard.Title)
	fmt.Printf("  scenes: %d\n", len(result.Storyboard.Scenes))
	fmt.Printf("  script: %s\n", result.ScriptPath)
	for _, p := range result.AudioPaths {
		fmt.Printf("  audio:  %s\n", p)
	}
	return nil
}

func runVocab(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	table, err := vocab.Load(cfg.VocabPath)
	if err != nil {
		return fmt.Errorf("load vocabulary: %w", err)
	}

	scenes, objects, operations := table.Counts()
	fmt.Printf("vocabulary: %s\n", cfg.VocabPath)
	fmt.Printf("  scenes (%d):     %s\n", scenes, strings.Join(table.Scenes(), ", "))
	fmt.Printf("  objects (%d):    %s\n", objects, strings.Join(table.Objects(), ", "))
	fmt.Printf("  operations (%d): %s\n", operations, strings.Join(table.Operations(), ", "))
	return nil
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "scenesmith.yaml", "path to the config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "Gemini API key (overrides config and env)")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "output directory for generated artifacts")

	generateCmd.Flags().BoolVar(&narrate, "narrate", false, "synthesize per-scene narration audio")
	generateCmd.Flags().BoolVar(&doRender, "render", false, "invoke the external renderer on the accepted script")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(vocabCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
