// Package repair drives the bounded execute-diagnose-fix cycle over
// generated scene scripts. The loop never trusts a fix: every candidate
// is re-executed, every failure is recorded, and the full failure
// history rides along with each correction request so the model cannot
// reintroduce a mistake it already made.
package repair

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Attempt records one failed execution cycle.
type Attempt struct {
	Index      int    // 1-based attempt number
	Source     string // the source that was executed
	Diagnostic string // why it failed
}

// ExhaustedError reports that the loop ran out of budget. Attempts
// holds the complete failure history in order.
type ExhaustedError struct {
	Attempts []Attempt
	Cause    error // non-nil when a deadline, not the attempt count, stopped the loop
}

func (e *ExhaustedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("repair stopped after %d attempts: %v", len(e.Attempts), e.Cause)
	}
	return fmt.Sprintf("repair exhausted after %d attempts", len(e.Attempts))
}

func (e *ExhaustedError) Unwrap() error { return e.Cause }

// ExecuteFunc dry-runs one candidate source. A nil return accepts it.
type ExecuteFunc func(ctx context.Context, source string) error

// FixFunc produces the next candidate from the failing source and the
// complete history of prior attempts.
type FixFunc func(ctx context.Context, source string, history []Attempt) (string, error)

// DefaultMaxAttempts bounds the cycle when no option overrides it.
const DefaultMaxAttempts = 5

// Loop is a configured repair cycle. Construct with NewLoop.
type Loop struct {
	execute     ExecuteFunc
	fix         FixFunc
	maxAttempts int
	deadline    time.Duration
	logger      *zap.Logger
}

// Option configures a Loop.
type Option func(*Loop)

// WithMaxAttempts overrides the attempt budget.
func WithMaxAttempts(n int) Option {
	return func(l *Loop) { l.maxAttempts = n }
}

// WithDeadline adds a wall-clock bound across the whole cycle, on top
// of the attempt budget. Zero disables it.
func WithDeadline(d time.Duration) Option {
	return func(l *Loop) { l.deadline = d }
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Loop) { l.logger = logger }
}

// NewLoop builds a repair loop around an executor and a fixer.
func NewLoop(execute ExecuteFunc, fix FixFunc, opts ...Option) *Loop {
	l := &Loop{
		execute:     execute,
		fix:         fix,
		maxAttempts: DefaultMaxAttempts,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run executes source and, on failure, cycles through fix-and-retry
// until a candidate passes, the attempt budget is spent, or the
// deadline expires. It returns the accepted source. On exhaustion the
// returned error is an *ExhaustedError carrying every recorded attempt.
func (l *Loop) Run(ctx context.Context, source string) (string, error) {
	if l.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.deadline)
		defer cancel()
	}

	var history []Attempt
	for attempt := 1; attempt <= l.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", &ExhaustedError{Attempts: history, Cause: err}
		}

		execErr := l.execute(ctx, source)
		if execErr == nil {
			l.logger.Info("script accepted",
				zap.Int("attempt", attempt),
				zap.Int("failures", len(history)))
			return source, nil
		}

		history = append(history, Attempt{
			Index:      attempt,
			Source:     source,
			Diagnostic: execErr.Error(),
		})
		l.logger.Warn("script attempt failed",
			zap.Int("attempt", attempt),
			zap.String("diagnostic", execErr.Error()))

		if attempt == l.maxAttempts {
			break
		}

		fixed, err := l.fix(ctx, source, history)
		if err != nil {
			// A fix we cannot use still spends the budget: the next
			// cycle re-executes the unchanged source.
			l.logger.Warn("fix response unusable", zap.Error(err))
			continue
		}
		source = fixed
	}

	return "", &ExhaustedError{Attempts: history}
}
