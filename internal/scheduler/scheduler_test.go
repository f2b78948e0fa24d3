package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseIntervalDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"15m": 15 * time.Minute,
		" 1H": time.Hour,
		"30d": 30 * 24 * time.Hour,
		"2w":  14 * 24 * time.Hour,
	}
	for in, want := range cases {
		got, ok := ParseIntervalDuration(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "d", "0d", "-1h", "5s", "abc"} {
		_, ok := ParseIntervalDuration(bad)
		assert.False(t, ok, bad)
	}
}

func TestAlignedScheduler_NextRun(t *testing.T) {
	s := NewAlignedScheduler(context.Background(), "", time.Hour, 5*time.Minute)
	now := time.Date(2024, 3, 1, 10, 20, 0, 0, time.UTC)
	wake, wait := s.nextRun(now)
	assert.Equal(t, time.Date(2024, 3, 1, 11, 5, 0, 0, time.UTC), wake)
	assert.Equal(t, 45*time.Minute, wait)
	assert.Equal(t, "AlignedScheduler", s.Name)
}

func TestAlignedScheduler_RunsUntilCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewAlignedScheduler(ctx, "test", 5*time.Millisecond, 0)
	s.RunImmediately = true

	var runs atomic.Int32
	done := make(chan struct{})
	go func() {
		s.Start(func() { runs.Add(1) })
		close(done)
	}()

	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}

func TestAlignedScheduler_InvalidInterval(t *testing.T) {
	s := NewAlignedScheduler(context.Background(), "bad", 0, 0)
	called := false
	s.Start(func() { called = true })
	assert.False(t, called)
}
