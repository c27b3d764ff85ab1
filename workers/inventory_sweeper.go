package workers

import (
	"context"
	"time"

	"lesson-league-system/logging"
)

// InventoryPurger deletes expired inventory entries and reports how many.
type InventoryPurger interface {
	PurgeExpiredInventory(ctx context.Context) (int64, error)
}

// InventorySweeper periodically purges expired timed boosts.
type InventorySweeper struct {
	purger   InventoryPurger
	interval time.Duration
}

func NewInventorySweeper(purger InventoryPurger, interval time.Duration) *InventorySweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &InventorySweeper{purger: purger, interval: interval}
}

// Start runs the sweep loop in a goroutine until ctx is cancelled.
func (w *InventorySweeper) Start(ctx context.Context) {
	logging.Info().Dur("interval", w.interval).Msg("🔁 [SWEEPER] starting inventory expiry sweeper")
	go w.Run(ctx)
}

// Run sweeps once immediately and then on every tick. It blocks until ctx is done.
func (w *InventorySweeper) Run(ctx context.Context) {
	w.sweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.sweep(ctx)
		case <-ctx.Done():
			logging.Info().Msg("⏹️ [SWEEPER] inventory sweeper stopped")
			return
		}
	}
}

func (w *InventorySweeper) sweep(ctx context.Context) {
	n, err := w.purger.PurgeExpiredInventory(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logging.Error().Err(err).Msg("❌ [SWEEPER] purge failed")
		}
		return
	}
	if n > 0 {
		logging.Info().Int64("purged", n).Msg("[SWEEPER] expired inventory purged")
	}
}
