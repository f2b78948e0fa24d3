package visual

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shantu/internal/pkg/circuit"
)

// GuardedRasterizer 在连续栅格化失败后短路，避免每个请求都去等 Chrome 超时。
type GuardedRasterizer struct {
	next    Rasterizer
	breaker *circuit.CircuitBreaker
}

func NewGuardedRasterizer(next Rasterizer, threshold int, cooldown time.Duration) *GuardedRasterizer {
	return &GuardedRasterizer{
		next:    next,
		breaker: circuit.NewCircuitBreaker("rasterizer", threshold, cooldown),
	}
}

func (g *GuardedRasterizer) Rasterize(ctx context.Context, page []byte, target string, width, height int) ([]byte, error) {
	var png []byte
	err := g.breaker.Do(func() error {
		var err error
		png, err = g.next.Rasterize(ctx, page, target, width, height)
		return err
	}, func(error) bool {
		// 调用方取消不算浏览器故障
		return ctx != nil && ctx.Err() != nil
	})
	if errors.Is(err, circuit.ErrOpen) {
		return nil, fmt.Errorf("rasterizer unavailable: %w", err)
	}
	return png, err
}

// State reports the breaker state, mostly for the startup summary and tests.
func (g *GuardedRasterizer) State() circuit.State {
	return g.breaker.State()
}

func (g *GuardedRasterizer) EnsureHeadlessAvailable(ctx context.Context) error {
	probe, ok := g.next.(interface {
		EnsureHeadlessAvailable(context.Context) error
	})
	if !ok {
		return nil
	}
	return probe.EnsureHeadlessAvailable(ctx)
}
