package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseInterval(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"15m", 15 * time.Minute, true},
		{"1h", time.Hour, true},
		{"4H", 4 * time.Hour, true},
		{" 1d ", 24 * time.Hour, true},
		{"1w", 7 * 24 * time.Hour, true},
		{"", 0, false},
		{"m", 0, false},
		{"0m", 0, false},
		{"-5m", 0, false},
		{"15x", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseInterval(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestNextWakeAlignsToBoundary(t *testing.T) {
	s := NewAlignedScheduler(context.Background(), 15*time.Minute, 0)
	now := time.Date(2026, 3, 2, 10, 7, 30, 0, time.UTC)
	wakeAt, wait := s.nextWake(now)
	assert.Equal(t, time.Date(2026, 3, 2, 10, 15, 0, 0, time.UTC), wakeAt)
	assert.Equal(t, 7*time.Minute+30*time.Second, wait)
}

func TestNextWakeAppliesOffset(t *testing.T) {
	s := NewAlignedScheduler(context.Background(), time.Hour, 2*time.Minute)
	now := time.Date(2026, 3, 2, 10, 59, 0, 0, time.UTC)
	wakeAt, _ := s.nextWake(now)
	assert.Equal(t, time.Date(2026, 3, 2, 11, 2, 0, 0, time.UTC), wakeAt)
}

func TestStartStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewAlignedScheduler(ctx, time.Hour, 0)

	done := make(chan struct{})
	go func() {
		s.Start(func() {})
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}
