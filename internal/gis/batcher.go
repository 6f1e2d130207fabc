package gis

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/flightmesh/telemetry-ingest/internal/metrics"
	"github.com/flightmesh/telemetry-ingest/internal/ring"
)

// Batcher drains one ring on a fixed cadence and ships each batch to the
// spatial service. On a failed push it invalidates the client and drops the
// drained batch: this tier prefers freshness over delivery, and a wedged
// peer must not turn into a retry storm inside the loop.
type Batcher[T any] struct {
	name       string
	ring       *ring.Ring[T]
	cadence    time.Duration
	maxItems   int
	push       func(context.Context, []T) error
	invalidate func()
	logger     *zap.Logger
}

// NewBatcher wires a batcher to its ring and client method. maxItems is the
// size budget of one push, already divided down to records.
func NewBatcher[T any](
	name string,
	r *ring.Ring[T],
	cadence time.Duration,
	maxItems int,
	push func(context.Context, []T) error,
	invalidate func(),
	logger *zap.Logger,
) *Batcher[T] {
	if maxItems < 1 {
		maxItems = 1
	}
	return &Batcher[T]{
		name:       name,
		ring:       r,
		cadence:    cadence,
		maxItems:   maxItems,
		push:       push,
		invalidate: invalidate,
		logger:     logger.Named("gis.batcher").With(zap.String("ring", name)),
	}
}

// Run loops until the context is cancelled. One Run per ring.
func (b *Batcher[T]) Run(ctx context.Context) {
	b.logger.Info("batch loop starting",
		zap.Duration("cadence", b.cadence),
		zap.Int("max_items", b.maxItems))

	start := time.Now()
	for {
		elapsed := time.Since(start)
		if elapsed > b.cadence {
			b.logger.Warn("batch iteration exceeded cadence", zap.Duration("elapsed", elapsed))
		} else {
			select {
			case <-ctx.Done():
				b.logger.Info("batch loop stopping")
				return
			case <-time.After(b.cadence - elapsed):
			}
		}
		if ctx.Err() != nil {
			b.logger.Info("batch loop stopping")
			return
		}
		start = time.Now()

		batch := b.ring.Drain(b.maxItems)
		if len(batch) == 0 {
			continue
		}
		metrics.BatchSize.WithLabelValues(b.name).Observe(float64(len(batch)))

		pushStart := time.Now()
		if err := b.push(ctx, batch); err != nil {
			b.logger.Warn("push failed, dropping batch",
				zap.Int("items", len(batch)), zap.Error(err))
			metrics.GisPushFailuresTotal.WithLabelValues(b.name).Inc()
			b.invalidate()
			continue
		}
		metrics.GisPushDuration.WithLabelValues(b.name).Observe(time.Since(pushStart).Seconds())
		b.logger.Debug("push succeeded",
			zap.Int("items", len(batch)),
			zap.Duration("took", time.Since(pushStart)))
	}
}
