package cache

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(maxFailures, halfOpen int) (*CircuitBreaker, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	cb := NewCircuitBreaker(&CircuitBreakerConfig{
		MaxFailures:      maxFailures,
		Timeout:          time.Minute,
		HalfOpenMaxCalls: halfOpen,
	})
	cb.now = clock.now
	return cb, clock
}

var errBoom = errors.New("boom")

func succeed(context.Context) error { return nil }
func fail(context.Context) error    { return errBoom }

func TestCircuitBreakerBasicFlow(t *testing.T) {
	cb, _ := newTestBreaker(3, 2)

	if cb.GetState() != CircuitBreakerClosed {
		t.Errorf("Expected initial state to be Closed, got %v", cb.GetState())
	}

	if err := cb.Execute(context.Background(), succeed); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if cb.GetState() != CircuitBreakerClosed {
		t.Errorf("Expected state to remain Closed after success, got %v", cb.GetState())
	}
}

func TestCircuitBreakerFailureTransition(t *testing.T) {
	cb, _ := newTestBreaker(2, 2)
	ctx := context.Background()

	if err := cb.Execute(ctx, fail); !errors.Is(err, errBoom) {
		t.Errorf("Expected the call's error, got %v", err)
	}
	if cb.GetState() != CircuitBreakerClosed {
		t.Errorf("Expected state to be Closed after first failure, got %v", cb.GetState())
	}

	cb.Execute(ctx, fail)
	if cb.GetState() != CircuitBreakerOpen {
		t.Errorf("Expected state to be Open after reaching failure threshold, got %v", cb.GetState())
	}
}

func TestCircuitBreakerSuccessResetsFailures(t *testing.T) {
	cb, _ := newTestBreaker(2, 2)
	ctx := context.Background()

	cb.Execute(ctx, fail)
	cb.Execute(ctx, succeed)
	cb.Execute(ctx, fail)

	if cb.GetState() != CircuitBreakerClosed {
		t.Errorf("Expected non-consecutive failures to keep the breaker closed, got %v", cb.GetState())
	}
}

func TestCircuitBreakerOpenState(t *testing.T) {
	cb, _ := newTestBreaker(1, 2)
	ctx := context.Background()

	cb.Execute(ctx, fail)

	called := false
	err := cb.Execute(ctx, func(context.Context) error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrCircuitBreakerOpen) {
		t.Errorf("Expected ErrCircuitBreakerOpen, got %v", err)
	}
	if called {
		t.Error("Expected the call to be skipped while open")
	}
}

func TestCircuitBreakerHalfOpenRecovery(t *testing.T) {
	cb, clock := newTestBreaker(1, 2)
	ctx := context.Background()

	cb.Execute(ctx, fail)
	clock.advance(time.Minute)

	if err := cb.Execute(ctx, succeed); err != nil {
		t.Fatalf("Expected probe to run, got %v", err)
	}
	if cb.GetState() != CircuitBreakerHalfOpen {
		t.Errorf("Expected Half-Open after first probe, got %v", cb.GetState())
	}

	cb.Execute(ctx, succeed)
	if cb.GetState() != CircuitBreakerClosed {
		t.Errorf("Expected Closed after enough probes, got %v", cb.GetState())
	}
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	cb, clock := newTestBreaker(1, 3)
	ctx := context.Background()

	cb.Execute(ctx, fail)
	clock.advance(2 * time.Minute)
	cb.Execute(ctx, fail)

	if cb.GetState() != CircuitBreakerOpen {
		t.Errorf("Expected Open after failed probe, got %v", cb.GetState())
	}
	if err := cb.Execute(ctx, succeed); !errors.Is(err, ErrCircuitBreakerOpen) {
		t.Errorf("Expected the new open window to reject calls, got %v", err)
	}
}

func TestCircuitBreakerHalfOpenLimitsProbes(t *testing.T) {
	cb, clock := newTestBreaker(1, 1)
	ctx := context.Background()

	cb.Execute(ctx, fail)
	clock.advance(time.Minute)

	var inner error
	outer := cb.Execute(ctx, func(ctx context.Context) error {
		inner = cb.Execute(ctx, succeed)
		return nil
	})

	if outer != nil {
		t.Errorf("Expected the probe to succeed, got %v", outer)
	}
	if !errors.Is(inner, ErrCircuitBreakerOpen) {
		t.Errorf("Expected a second concurrent probe to be rejected, got %v", inner)
	}
}

func TestCircuitBreakerStats(t *testing.T) {
	cb, _ := newTestBreaker(5, 2)

	for i := 0; i < 3; i++ {
		cb.Execute(context.Background(), func(context.Context) error {
			return fmt.Errorf("failure %d", i)
		})
	}

	stats := cb.GetStats()
	if stats["state"] != "closed" {
		t.Errorf("Expected state 'closed', got %v", stats["state"])
	}
	if stats["failure_count"] != 3 {
		t.Errorf("Expected failure_count 3, got %v", stats["failure_count"])
	}
	if stats["max_failures"] != 5 {
		t.Errorf("Expected max_failures 5, got %v", stats["max_failures"])
	}
}

func TestCircuitBreakerState_String(t *testing.T) {
	tests := map[CircuitBreakerState]string{
		CircuitBreakerClosed:   "closed",
		CircuitBreakerOpen:     "open",
		CircuitBreakerHalfOpen: "half-open",
	}
	for state, want := range tests {
		if got := state.String(); got != want {
			t.Errorf("Expected %q, got %q", want, got)
		}
	}
}
