package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubClassifier marks every error whose message equals "transient" retryable.
type stubClassifier struct{}

func (stubClassifier) IsTransient(err error) bool {
	return err != nil && err.Error() == "transient"
}

func fastBackoff(attempts int) *ExponentialBackoff {
	return NewExponentialBackoff(attempts,
		WithInitialDelay(time.Millisecond),
		WithMaxDelay(2*time.Millisecond),
		WithJitter(0),
	)
}

func TestExecutor_SuccessOnFirstAttempt(t *testing.T) {
	executor := NewExecutor(stubClassifier{}, fastBackoff(3))

	calls := 0
	err := executor.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestExecutor_RetriesTransientUntilSuccess(t *testing.T) {
	executor := NewExecutor(stubClassifier{}, fastBackoff(5))

	calls := 0
	err := executor.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestExecutor_FatalErrorNotRetried(t *testing.T) {
	executor := NewExecutor(stubClassifier{}, fastBackoff(5))

	fatal := errors.New("fatal")
	calls := 0
	err := executor.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return fatal
	})

	assert.Equal(t, fatal, err)
	assert.Equal(t, 1, calls)
}

func TestExecutor_ExhaustsRetryBudget(t *testing.T) {
	executor := NewExecutor(stubClassifier{}, fastBackoff(3))

	calls := 0
	err := executor.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("transient")
	})

	require.Error(t, err)
	assert.Equal(t, "transient", err.Error())
	// 1 initial attempt + 3 retries
	assert.Equal(t, 4, calls)
}

func TestExecutor_ZeroAttemptsMeansNoRetries(t *testing.T) {
	executor := NewExecutor(stubClassifier{}, fastBackoff(0))

	calls := 0
	err := executor.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("transient")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestExecutor_ContextCancellationStopsRetries(t *testing.T) {
	strategy := NewExponentialBackoff(10,
		WithInitialDelay(time.Hour), // would block without cancellation
		WithJitter(0),
	)
	executor := NewExecutor(stubClassifier{}, strategy)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := executor.Execute(ctx, func(ctx context.Context) error {
		return errors.New("transient")
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestExecutor_OnRetryCallback(t *testing.T) {
	var attempts []int
	executor := NewExecutor(stubClassifier{}, fastBackoff(3)).
		WithOnRetry(func(attempt int, err error, delay time.Duration) {
			attempts = append(attempts, attempt)
		})

	_ = executor.Execute(context.Background(), func(ctx context.Context) error {
		return errors.New("transient")
	})

	assert.Equal(t, []int{0, 1, 2}, attempts)
}

func TestExecutor_WithOnRetryDoesNotMutateOriginal(t *testing.T) {
	original := NewExecutor(stubClassifier{}, fastBackoff(1))
	configured := original.WithOnRetry(func(int, error, time.Duration) {})

	assert.NotSame(t, original, configured)
	assert.Nil(t, original.onRetry)
}

func TestNewExecutor_PanicsOnNilDependencies(t *testing.T) {
	assert.Panics(t, func() {
		NewExecutor(nil, fastBackoff(1))
	})
	assert.Panics(t, func() {
		NewExecutor(stubClassifier{}, nil)
	})
}
