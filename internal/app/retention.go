package app

import (
	"context"
	"time"

	"shantu/internal/logger"
	"shantu/internal/scheduler"
)

type chartPruner interface {
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// pruneCharts 删除超过保留期的归档图表。
func pruneCharts(ctx context.Context, store chartPruner, retention time.Duration, now time.Time) {
	if store == nil || retention <= 0 {
		return
	}
	cutoff := now.Add(-retention)
	n, err := store.Prune(ctx, cutoff)
	if err != nil {
		logger.Warnf("图表归档清理失败: %v", err)
		return
	}
	if n > 0 {
		logger.Infof("图表归档清理: 删除 %d 张早于 %s 的图表", n, cutoff.Format(time.RFC3339))
	}
}

// runRetention 按 interval 周期清理归档，直到 ctx 取消。
func runRetention(ctx context.Context, store chartPruner, retention, interval time.Duration) {
	if store == nil || retention <= 0 || interval <= 0 {
		return
	}
	s := scheduler.NewAlignedScheduler(ctx, "ChartRetention", interval, 0)
	s.RunImmediately = true
	s.Start(func() {
		pruneCharts(ctx, store, retention, time.Now())
	})
}
