package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestUntilNextMidnight(t *testing.T) {
	loc := time.UTC
	cases := []struct {
		name string
		now  time.Time
		want time.Duration
	}{
		{"exact midnight", time.Date(2026, 8, 31, 0, 0, 0, 0, loc), 24 * time.Hour},
		{"one second in", time.Date(2026, 8, 31, 0, 0, 1, 0, loc), 24*time.Hour - time.Second},
		{"last second", time.Date(2026, 8, 31, 23, 59, 59, 0, loc), time.Second},
		{"noon", time.Date(2026, 8, 31, 12, 0, 0, 0, loc), 12 * time.Hour},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := untilNextMidnight(tc.now); got != tc.want {
				t.Fatalf("untilNextMidnight(%v) = %v, want %v", tc.now, got, tc.want)
			}
		})
	}
}

type shifterFunc func(ctx context.Context) error

func (f shifterFunc) ShiftWindow(ctx context.Context) error { return f(ctx) }

func TestShiftLogsAndSwallowsErrors(t *testing.T) {
	called := 0
	s := NewScheduler(shifterFunc(func(context.Context) error {
		called++
		return errors.New("deadlock")
	}), nil)
	// A failing shift must not panic or propagate; the next boundary
	// retries.
	s.shift(context.Background())
	if called != 1 {
		t.Fatalf("shifter called %d times, want 1", called)
	}
}

func TestStopTerminatesTask(t *testing.T) {
	s := NewScheduler(shifterFunc(func(context.Context) error { return nil }), nil)
	s.Start(context.Background())
	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
}
