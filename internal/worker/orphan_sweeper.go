// Package worker hosts background jobs that run alongside the HTTP server.
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/velles/storefront/internal/domain/order"
)

// OrphanSweeper periodically deletes orders that never received a delivery or
// pickup record. Checkout attaches fulfillment right after creating the
// order, so any order still bare after the grace period is a leftover from a
// crashed checkout whose compensating delete also failed.
type OrphanSweeper struct {
	orders   order.Repository
	lg       *zap.Logger
	interval time.Duration
	grace    time.Duration
}

// NewOrphanSweeper creates a sweeper that scans every interval and removes
// orders older than grace.
func NewOrphanSweeper(orders order.Repository, lg *zap.Logger, interval, grace time.Duration) *OrphanSweeper {
	return &OrphanSweeper{
		orders:   orders,
		lg:       lg,
		interval: interval,
		grace:    grace,
	}
}

// Run blocks until ctx is cancelled, sweeping on every tick.
func (w *OrphanSweeper) Run(ctx context.Context) {
	w.lg.Info("orphan sweeper started",
		zap.Duration("interval", w.interval),
		zap.Duration("grace", w.grace))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.lg.Info("orphan sweeper stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *OrphanSweeper) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-w.grace)
	numbers, err := w.orders.DeleteOrphans(ctx, cutoff)
	if err != nil {
		w.lg.Error("orphan sweep failed", zap.Error(err))
		return
	}
	if len(numbers) > 0 {
		w.lg.Info("orphan orders removed",
			zap.Int("count", len(numbers)),
			zap.Strings("order_numbers", numbers))
	}
}
