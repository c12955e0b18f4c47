// Package sandbox dry-runs generated scene scripts in an embedded
// interpreter. Interpreting the script instead of shelling out to the
// compiler keeps the repair loop fast and keeps model-written code away
// from the filesystem, the network and process execution: only a small
// import allow-list and the scenekit surface are reachable.
package sandbox

import (
	"context"
	"fmt"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"go.uber.org/zap"

	"scenesmith/scenekit"
)

// defaultImports lists packages a scene script may import. Compiled
// scripts only ever import scenekit; the extras cover what a repair
// response plausibly adds for arithmetic or formatting.
var defaultImports = map[string]bool{
	"scenesmith/scenekit": true,
	"fmt":                 true,
	"math":                true,
	"strings":             true,
	"strconv":             true,
	"sort":                true,
}

// Executor dry-runs scene scripts. Each run gets a fresh interpreter so
// one attempt's state can never leak into the next.
type Executor struct {
	vocab   scenekit.Vocabulary
	logger  *zap.Logger
	allowed map[string]bool
}

// NewExecutor creates an executor. vocab may be nil to skip run-time
// kind checks (the compiler has already enforced the allow-list, but
// repaired scripts come straight from the model).
func NewExecutor(vocab scenekit.Vocabulary, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{vocab: vocab, logger: logger, allowed: defaultImports}
}

// DryRun interprets source, calls its BuildScene entry point against a
// fresh Stage and returns the recorded program. Any failure — forbidden
// import, syntax error, missing entry point, panic inside the script —
// comes back as an error whose message doubles as the repair diagnostic.
func (e *Executor) DryRun(ctx context.Context, source string) (*scenekit.Stage, error) {
	if err := e.checkImports(source); err != nil {
		return nil, err
	}

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("load stdlib symbols: %w", err)
	}
	if err := i.Use(Symbols()); err != nil {
		return nil, fmt.Errorf("load scenekit symbols: %w", err)
	}

	if _, err := i.EvalWithContext(ctx, source); err != nil {
		return nil, fmt.Errorf("script does not compile: %w", err)
	}

	v, err := i.Eval("main.BuildScene")
	if err != nil {
		return nil, fmt.Errorf("script defines no BuildScene: %w", err)
	}
	build, ok := v.Interface().(func(*scenekit.Stage))
	if !ok {
		return nil, fmt.Errorf("BuildScene has wrong signature %T, want func(*scenekit.Stage)", v.Interface())
	}

	stage := scenekit.NewStage(e.vocab)

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("script panicked: %v", r)
				return
			}
			done <- nil
		}()
		build(stage)
	}()

	select {
	case err := <-done:
		if err != nil {
			return nil, err
		}
	case <-ctx.Done():
		return nil, fmt.Errorf("dry run aborted: %w", ctx.Err())
	}

	if len(stage.Scenes()) == 0 {
		return nil, fmt.Errorf("BuildScene produced no scenes")
	}
	e.logger.Debug("dry run succeeded", zap.Int("scenes", len(stage.Scenes())))
	return stage, nil
}

// checkImports scans the source's import statements against the
// allow-list before anything is evaluated.
func (e *Executor) checkImports(source string) error {
	var forbidden []string
	inBlock := false
	for _, line := range strings.Split(source, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "import ("):
			inBlock = true
		case inBlock && trimmed == ")":
			inBlock = false
		case inBlock, strings.HasPrefix(trimmed, "import "):
			if pkg, ok := importPath(trimmed); ok && !e.allowed[pkg] {
				forbidden = append(forbidden, pkg)
			}
		}
	}
	if len(forbidden) > 0 {
		return fmt.Errorf("forbidden imports: %s", strings.Join(forbidden, ", "))
	}
	return nil
}

// importPath pulls the quoted path out of one import line, tolerating
// an alias prefix.
func importPath(line string) (string, bool) {
	start := strings.IndexByte(line, '"')
	if start < 0 {
		return "", false
	}
	end := strings.IndexByte(line[start+1:], '"')
	if end < 0 {
		return "", false
	}
	return line[start+1 : start+1+end], true
}
