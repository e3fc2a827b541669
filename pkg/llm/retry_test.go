package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     time.Second,
	}
}

func TestExecuteRetriesUntilSuccess(t *testing.T) {
	p := testPolicy()
	calls := 0
	err := p.Execute(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("timeout")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestExecuteStopsOnNonRetryable(t *testing.T) {
	p := testPolicy()
	calls := 0
	err := p.Execute(context.Background(), func() error {
		calls++
		return errors.New("unauthorized")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestExecuteExhaustsAttempts(t *testing.T) {
	p := testPolicy()
	calls := 0
	err := p.Execute(context.Background(), func() error {
		calls++
		return ErrSchema
	})
	if !errors.Is(err, ErrSchema) {
		t.Fatalf("err = %v, want ErrSchema", err)
	}
	if calls != p.MaxAttempts {
		t.Errorf("calls = %d, want %d", calls, p.MaxAttempts)
	}
}

func TestExecuteCanceledDuringBackoff(t *testing.T) {
	p := testPolicy()
	p.InitialDelay = 5 * time.Second

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	start := time.Now()
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := p.Execute(ctx, func() error {
		calls++
		return errors.New("timeout")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Execute blocked %v after cancel", elapsed)
	}
}

func TestNextDelayCapped(t *testing.T) {
	p := &RetryPolicy{InitialDelay: time.Second, Multiplier: 10, MaxDelay: 3 * time.Second}
	if d := p.NextDelay(1); d != time.Second {
		t.Errorf("NextDelay(1) = %v, want 1s", d)
	}
	if d := p.NextDelay(3); d != 3*time.Second {
		t.Errorf("NextDelay(3) = %v, want 3s", d)
	}
}
