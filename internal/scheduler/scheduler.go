package scheduler

import (
	"context"
	"time"

	"spotanalitics/internal/logger"
)

// AlignedScheduler fires the task at every interval boundary plus Offset.
// The task runs inline on the scheduling goroutine, so runs never overlap.
// Boundaries missed while a run is still going are skipped, not replayed.
type AlignedScheduler struct {
	Name           string
	Interval       time.Duration
	Offset         time.Duration
	RunImmediately bool

	nowFn   func() time.Time
	afterFn func(time.Duration) (<-chan time.Time, func() bool)
}

func NewAlignedScheduler(interval, offset time.Duration) *AlignedScheduler {
	return &AlignedScheduler{
		Interval: interval,
		Offset:   offset,
		nowFn:    time.Now,
		afterFn:  newTimer,
	}
}

func newTimer(d time.Duration) (<-chan time.Time, func() bool) {
	t := time.NewTimer(d)
	return t.C, t.Stop
}

// Run blocks until ctx is done.
func (s *AlignedScheduler) Run(ctx context.Context, task func(context.Context)) {
	if s == nil {
		return
	}
	if task == nil {
		logger.Warnf("AlignedScheduler: task is nil, exit")
		return
	}
	if s.Interval <= 0 {
		logger.Warnf("AlignedScheduler: invalid interval=%s, exit", s.Interval)
		return
	}
	if s.Offset < 0 {
		logger.Warnf("AlignedScheduler: negative offset=%s, clamp to 0", s.Offset)
		s.Offset = 0
	}
	if s.nowFn == nil {
		s.nowFn = time.Now
	}
	if s.afterFn == nil {
		s.afterFn = newTimer
	}
	prefix := "AlignedScheduler"
	if s.Name != "" {
		prefix += "[" + s.Name + "]"
	}

	startAt := s.nowFn().UTC()
	logger.Infof("%s: started interval=%s offset=%s run_immediately=%v at=%s",
		prefix, s.Interval, s.Offset, s.RunImmediately, startAt.Format(time.RFC3339))

	if s.RunImmediately {
		if ctx.Err() != nil {
			return
		}
		task(ctx)
	}

	for {
		now := s.nowFn().UTC()
		wakeAt, wait := s.NextRun(now)
		logger.Infof("%s: next run at %s (in %s) | uptime=%s",
			prefix, wakeAt.Format(time.RFC3339), wait.Truncate(time.Second), now.Sub(startAt).Truncate(time.Second))

		ch, stop := s.afterFn(wait)
		select {
		case <-ctx.Done():
			stop()
			logger.Infof("%s: ctx done, exit", prefix)
			return
		case <-ch:
		}
		task(ctx)
	}
}

// NextRun returns the next fire time after now and how long to wait for it.
func (s *AlignedScheduler) NextRun(now time.Time) (time.Time, time.Duration) {
	now = now.UTC()
	wakeAt := now.Truncate(s.Interval).Add(s.Offset)
	for !wakeAt.After(now) {
		wakeAt = wakeAt.Add(s.Interval)
	}
	return wakeAt, wakeAt.Sub(now)
}
