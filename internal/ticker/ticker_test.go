package ticker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type countingProcessor struct {
	ticks atomic.Int64
}

func (c *countingProcessor) Tick(context.Context) error {
	c.ticks.Add(1)
	return nil
}

func TestTickerFires(t *testing.T) {
	proc := &countingProcessor{}
	tk := New(proc, "* * * * * *", nil)
	if err := tk.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer tk.Stop()

	deadline := time.After(3 * time.Second)
	for proc.ticks.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("ticker never fired")
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func TestTickerRejectsBadSchedule(t *testing.T) {
	tk := New(&countingProcessor{}, "not a schedule", nil)
	if err := tk.Start(context.Background()); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
	tk.Stop()
}
