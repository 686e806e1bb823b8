package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"spotanalitics/internal/market"
)

func TestNextRun(t *testing.T) {
	s := NewAlignedScheduler(time.Hour, time.Minute)
	now := time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC)
	at, wait := s.NextRun(now)
	assert.Equal(t, time.Date(2024, 1, 1, 11, 1, 0, 0, time.UTC), at)
	assert.Equal(t, 31*time.Minute, wait)

	now = time.Date(2024, 1, 1, 10, 0, 30, 0, time.UTC)
	at, _ = s.NextRun(now)
	assert.Equal(t, time.Date(2024, 1, 1, 10, 1, 0, 0, time.UTC), at)

	now = time.Date(2024, 1, 1, 10, 1, 0, 0, time.UTC)
	at, _ = s.NextRun(now)
	assert.Equal(t, time.Date(2024, 1, 1, 11, 1, 0, 0, time.UTC), at)
}

func TestRunIsSequential(t *testing.T) {
	s := NewAlignedScheduler(time.Hour, 0)
	s.RunImmediately = true
	ticks := make(chan time.Time)
	s.afterFn = func(time.Duration) (<-chan time.Time, func() bool) { return ticks, func() bool { return true } }

	ctx, cancel := context.WithCancel(context.Background())
	running := 0
	maxRunning := 0
	runs := 0
	done := make(chan struct{})
	go func() {
		s.Run(ctx, func(context.Context) {
			running++
			if running > maxRunning {
				maxRunning = running
			}
			runs++
			running--
		})
		close(done)
	}()
	ticks <- time.Now()
	ticks <- time.Now()
	cancel()
	<-done

	assert.Equal(t, 3, runs)
	assert.Equal(t, 1, maxRunning)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	s := NewAlignedScheduler(time.Hour, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	s.Run(ctx, func(context.Context) { called = true })
	assert.False(t, called)
}

func TestParseIntervalDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"1m": time.Minute, "15m": 15 * time.Minute, "1h": time.Hour, "1d": 24 * time.Hour,
		"1w": 7 * 24 * time.Hour, "30s": 30 * time.Second, "1h30m": 90 * time.Minute,
	}
	for in, want := range cases {
		got, ok := ParseIntervalDuration(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "m", "0m", "-1h", "abc"} {
		_, ok := ParseIntervalDuration(bad)
		assert.False(t, ok, bad)
	}
}

func TestDropUnclosed(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 30, 0, time.UTC)
	open := now.Truncate(time.Minute)
	klines := []market.Candle{
		{OpenTime: open.Add(-time.Minute).UnixMilli(), CloseTime: open.UnixMilli() - 1},
		{OpenTime: open.UnixMilli(), CloseTime: open.Add(time.Minute).UnixMilli() - 1},
	}
	got := DropUnclosedAt(klines, time.Minute, now, 0)
	assert.Len(t, got, 1)

	got = DropUnclosedAt(klines, time.Minute, now.Add(time.Minute), 0)
	assert.Len(t, got, 2)
}
