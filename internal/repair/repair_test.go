package repair

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func alwaysFail(ctx context.Context, source string) error {
	return fmt.Errorf("boom: %s", source)
}

func TestRunAcceptsFirstTry(t *testing.T) {
	fixCalled := false
	loop := NewLoop(
		func(ctx context.Context, source string) error { return nil },
		func(ctx context.Context, source string, history []Attempt) (string, error) {
			fixCalled = true
			return source, nil
		},
	)

	out, err := loop.Run(context.Background(), "v1")
	require.NoError(t, err)
	assert.Equal(t, "v1", out)
	assert.False(t, fixCalled, "fixer must not run when the first attempt passes")
}

func TestRunAcceptsAfterFix(t *testing.T) {
	execute := func(ctx context.Context, source string) error {
		if source == "v3" {
			return nil
		}
		return errors.New("not yet")
	}
	fix := func(ctx context.Context, source string, history []Attempt) (string, error) {
		return fmt.Sprintf("v%d", len(history)+2), nil
	}

	out, err := NewLoop(execute, fix).Run(context.Background(), "v1")
	require.NoError(t, err)
	assert.Equal(t, "v3", out)
}

// A pathological executor must terminate with exactly maxAttempts
// recorded diagnostics.
func TestRunTerminates(t *testing.T) {
	fixes := 0
	fix := func(ctx context.Context, source string, history []Attempt) (string, error) {
		fixes++
		return source, nil
	}

	_, err := NewLoop(alwaysFail, fix, WithMaxAttempts(3)).Run(context.Background(), "v1")

	var exhausted *ExhaustedError
	require.True(t, errors.As(err, &exhausted), "got %v", err)
	assert.Len(t, exhausted.Attempts, 3)
	assert.Equal(t, 2, fixes, "no fix is requested after the final attempt")
}

// Each correction request must carry every prior diagnostic.
func TestRunHistoryIsMonotonic(t *testing.T) {
	var seen [][]Attempt
	fix := func(ctx context.Context, source string, history []Attempt) (string, error) {
		seen = append(seen, append([]Attempt(nil), history...))
		return source + "'", nil
	}

	_, err := NewLoop(alwaysFail, fix, WithMaxAttempts(4)).Run(context.Background(), "v1")
	require.Error(t, err)

	require.Len(t, seen, 3)
	for i, history := range seen {
		assert.Len(t, history, i+1)
		for j, att := range history {
			assert.Equal(t, j+1, att.Index)
			assert.Contains(t, att.Diagnostic, "boom")
		}
	}
}

// An unusable fix spends a budget slot by re-executing the same source.
func TestRunUnusableFixConsumesBudget(t *testing.T) {
	var executed []string
	execute := func(ctx context.Context, source string) error {
		executed = append(executed, source)
		return errors.New("still broken")
	}
	fix := func(ctx context.Context, source string, history []Attempt) (string, error) {
		return "", errors.New("response was prose, not code")
	}

	_, err := NewLoop(execute, fix, WithMaxAttempts(3)).Run(context.Background(), "v1")

	var exhausted *ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Len(t, exhausted.Attempts, 3)
	assert.Equal(t, []string{"v1", "v1", "v1"}, executed)
}

func TestRunDeadline(t *testing.T) {
	execute := func(ctx context.Context, source string) error {
		time.Sleep(20 * time.Millisecond)
		return errors.New("slow failure")
	}
	fix := func(ctx context.Context, source string, history []Attempt) (string, error) {
		return source, nil
	}

	start := time.Now()
	_, err := NewLoop(execute, fix,
		WithMaxAttempts(1000),
		WithDeadline(50*time.Millisecond),
	).Run(context.Background(), "v1")
	elapsed := time.Since(start)

	var exhausted *ExhaustedError
	require.True(t, errors.As(err, &exhausted), "got %v", err)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, len(exhausted.Attempts), 1000)
	assert.Less(t, elapsed, 2*time.Second)
}
