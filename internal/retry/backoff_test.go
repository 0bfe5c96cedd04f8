package retry

import (
	"testing"
	"time"
)

func TestExponentialBackoff_DefaultValues(t *testing.T) {
	strategy := NewExponentialBackoff(3)

	if strategy.InitialDelay() != 1*time.Second {
		t.Errorf("Expected InitialDelay=1s, got %v", strategy.InitialDelay())
	}
	if strategy.MaxDelay() != 30*time.Second {
		t.Errorf("Expected MaxDelay=30s, got %v", strategy.MaxDelay())
	}
	if strategy.Multiplier() != 2.0 {
		t.Errorf("Expected Multiplier=2.0, got %v", strategy.Multiplier())
	}
	if strategy.Jitter() != 0.1 {
		t.Errorf("Expected Jitter=0.1, got %v", strategy.Jitter())
	}
	if strategy.MaxAttempts() != 3 {
		t.Errorf("Expected MaxAttempts=3, got %v", strategy.MaxAttempts())
	}
}

func TestExponentialBackoff_NextDelay_WithoutJitter(t *testing.T) {
	strategy := NewExponentialBackoff(5,
		WithInitialDelay(100*time.Millisecond),
		WithMultiplier(2.0),
		WithJitter(0), // Disable jitter for deterministic testing
	)

	tests := []struct {
		attempt       int
		expectedDelay time.Duration
	}{
		{attempt: 0, expectedDelay: 100 * time.Millisecond},  // 100 * 2^0
		{attempt: 1, expectedDelay: 200 * time.Millisecond},  // 100 * 2^1
		{attempt: 2, expectedDelay: 400 * time.Millisecond},  // 100 * 2^2
		{attempt: 3, expectedDelay: 800 * time.Millisecond},  // 100 * 2^3
		{attempt: 4, expectedDelay: 1600 * time.Millisecond}, // 100 * 2^4
	}

	for _, tt := range tests {
		delay := strategy.NextDelay(tt.attempt)
		if delay != tt.expectedDelay {
			t.Errorf("NextDelay(%d) = %v, want %v", tt.attempt, delay, tt.expectedDelay)
		}
	}
}

func TestExponentialBackoff_NextDelay_MaxDelayCap(t *testing.T) {
	strategy := NewExponentialBackoff(10,
		WithInitialDelay(100*time.Millisecond),
		WithMultiplier(2.0),
		WithMaxDelay(1*time.Second),
		WithJitter(0),
	)

	// Attempt 10: 100ms * 2^10 = 102.4s, should be capped at 1s
	delay := strategy.NextDelay(10)
	if delay != 1*time.Second {
		t.Errorf("NextDelay(10) = %v, want %v (should be capped at MaxDelay)", delay, 1*time.Second)
	}
}

func TestExponentialBackoff_NextDelay_WithJitter(t *testing.T) {
	// With jitter=0.1:
	// jv=0.0 => randomOffset=-1.0 => factor=0.9 => 100ms*0.9=90ms
	// jv=0.5 => randomOffset=0.0  => factor=1.0 => 100ms
	// jv=1.0 => randomOffset=1.0  => factor=1.1 => 110ms
	tests := []struct {
		jitterValue   float64
		expectedDelay time.Duration
	}{
		{jitterValue: 0.0, expectedDelay: 90 * time.Millisecond},
		{jitterValue: 0.5, expectedDelay: 100 * time.Millisecond},
		{jitterValue: 1.0, expectedDelay: 110 * time.Millisecond},
	}

	for _, tt := range tests {
		strategy := NewExponentialBackoff(3,
			WithInitialDelay(100*time.Millisecond),
			WithMultiplier(2.0),
			WithJitter(0.1),
			WithJitterFunc(func() float64 { return tt.jitterValue }), // Deterministic jitter
		)

		delay := strategy.NextDelay(0)
		if delay != tt.expectedDelay {
			t.Errorf("NextDelay with jv=%v = %v, want %v", tt.jitterValue, delay, tt.expectedDelay)
		}
	}
}
