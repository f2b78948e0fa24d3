package scheduler

import (
	"context"
	"time"

	"shantu/internal/logger"
)

// AlignedScheduler 在每个 Interval 边界之后 Offset 时刻执行一次任务，直到 ctx 取消。
type AlignedScheduler struct {
	Name           string
	Interval       time.Duration
	Offset         time.Duration
	RunImmediately bool

	ctx   context.Context
	nowFn func() time.Time
}

func NewAlignedScheduler(ctx context.Context, name string, interval, offset time.Duration) *AlignedScheduler {
	if ctx == nil {
		ctx = context.Background()
	}
	if name == "" {
		name = "AlignedScheduler"
	}
	return &AlignedScheduler{
		Name:     name,
		Interval: interval,
		Offset:   offset,
		ctx:      ctx,
		nowFn:    time.Now,
	}
}

// Start blocks until the context is done.
func (s *AlignedScheduler) Start(task func()) {
	if s == nil {
		return
	}
	if task == nil {
		logger.Warnf("%s: task is nil, exit", s.Name)
		return
	}
	if s.Interval <= 0 {
		logger.Warnf("%s: invalid interval=%s, exit", s.Name, s.Interval)
		return
	}
	if s.Offset < 0 {
		logger.Warnf("%s: negative offset=%s, clamp to 0", s.Name, s.Offset)
		s.Offset = 0
	}
	if s.ctx == nil {
		s.ctx = context.Background()
	}
	if s.nowFn == nil {
		s.nowFn = time.Now
	}

	startAt := s.nowFn().UTC()
	logger.Infof("%s: started interval=%s offset=%s run_immediately=%v at=%s",
		s.Name, s.Interval, s.Offset, s.RunImmediately, startAt.Format(time.RFC3339))

	if s.RunImmediately {
		task()
	}

	for {
		now := s.nowFn().UTC()
		wakeAt, wait := s.nextRun(now)
		logger.Debugf("%s: 下一次执行=%s (in %s) uptime=%s",
			s.Name, wakeAt.Format(time.RFC3339), wait.Truncate(time.Millisecond), now.Sub(startAt).Truncate(time.Second))

		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-s.ctx.Done():
				timer.Stop()
				logger.Infof("%s: ctx done, exit", s.Name)
				return
			case <-timer.C:
			}
		} else if s.ctx.Err() != nil {
			return
		}
		task()
	}
}

func (s *AlignedScheduler) nextRun(now time.Time) (wakeAt time.Time, wait time.Duration) {
	now = now.UTC()
	wakeAt = now.Truncate(s.Interval).Add(s.Interval).Add(s.Offset)
	return wakeAt, wakeAt.Sub(now)
}
