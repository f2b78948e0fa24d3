package visual

import (
	"context"
	"errors"
	"testing"
	"time"

	"shantu/internal/pkg/circuit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestGuardedRasterizer_OpensAfterFailures(t *testing.T) {
	next := new(MockRasterizer)
	next.On("Rasterize", mock.Anything, mock.Anything, "chart", 600, 400).Return(nil, errors.New("chrome crashed")).Times(2)
	g := NewGuardedRasterizer(next, 2, time.Hour)

	for i := 0; i < 2; i++ {
		_, err := g.Rasterize(context.Background(), []byte("<html/>"), "chart", 600, 400)
		assert.ErrorContains(t, err, "chrome crashed")
	}
	assert.Equal(t, circuit.StateOpen, g.State())

	_, err := g.Rasterize(context.Background(), []byte("<html/>"), "chart", 600, 400)
	assert.ErrorIs(t, err, circuit.ErrOpen)
	next.AssertNumberOfCalls(t, "Rasterize", 2)
}

func TestGuardedRasterizer_CancelDoesNotTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	next := new(MockRasterizer)
	next.On("Rasterize", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, context.Canceled)
	g := NewGuardedRasterizer(next, 1, time.Hour)

	for i := 0; i < 3; i++ {
		_, err := g.Rasterize(ctx, nil, "chart", 600, 400)
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, circuit.StateClosed, g.State())
}

func TestGuardedRasterizer_PassesThrough(t *testing.T) {
	next := new(MockRasterizer)
	next.On("Rasterize", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]byte("png"), nil)
	g := NewGuardedRasterizer(next, 1, time.Minute)

	out, err := g.Rasterize(context.Background(), nil, "chart", 600, 400)
	assert.NoError(t, err)
	assert.Equal(t, []byte("png"), out)
	// MockRasterizer has no probe, so availability is assumed.
	assert.NoError(t, g.EnsureHeadlessAvailable(context.Background()))
}
