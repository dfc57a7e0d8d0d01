package provider

import (
	"context"
	"testing"
	"time"
)

// recordedSleeps swaps the pacer's sleep for a recorder that also advances
// the fake clock, so the tests observe exact wait durations without
// wall-clock delays.
func recordedSleeps(p *Pacer, now *time.Time) *[]time.Duration {
	var sleeps []time.Duration
	p.WithClock(func() time.Time { return *now })
	p.WithSleep(func(_ context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		*now = now.Add(d)
		return nil
	})
	return &sleeps
}

func TestPacer_FirstCallNeverWaits(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	pacer := NewPacer(time.Second)
	sleeps := recordedSleeps(pacer, &now)

	if err := pacer.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(*sleeps) != 0 {
		t.Errorf("first call should not sleep, slept %v", *sleeps)
	}
}

func TestPacer_SecondCallWaitsRemainingInterval(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	pacer := NewPacer(time.Second)
	sleeps := recordedSleeps(pacer, &now)

	pacer.Wait(context.Background())

	// 300ms elapsed, so 700ms of the interval remains.
	now = now.Add(300 * time.Millisecond)
	pacer.Wait(context.Background())

	if len(*sleeps) != 1 || (*sleeps)[0] != 700*time.Millisecond {
		t.Errorf("expected one 700ms sleep, got %v", *sleeps)
	}
}

func TestPacer_NoWaitWhenIntervalElapsed(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	pacer := NewPacer(time.Second)
	sleeps := recordedSleeps(pacer, &now)

	pacer.Wait(context.Background())

	now = now.Add(2 * time.Second)
	pacer.Wait(context.Background())

	if len(*sleeps) != 0 {
		t.Errorf("expected no sleep after the interval elapsed, got %v", *sleeps)
	}
}

func TestPacer_CanceledContextAborts(t *testing.T) {
	pacer := NewPacer(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	if err := pacer.Wait(ctx); err != nil {
		t.Fatalf("first call should not wait: %v", err)
	}

	cancel()
	if err := pacer.Wait(ctx); err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
