package portfolio

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RefreshAll re-launches the price fetch of every row.
func (t *Tracker) RefreshAll() {
	t.mu.Lock()
	for _, r := range t.rows {
		t.startFetchLocked(r)
	}
	count := len(t.rows)
	t.mu.Unlock()

	t.logger.Debug("Refreshing prices", zap.Int("rows", count))
	t.notify()
}

// Run refreshes all prices every interval until ctx is done.
// A non-positive interval disables periodic refresh and returns immediately.
func (t *Tracker) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	t.logger.Info("Starting price refresh loop", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("Stopping price refresh loop")
			return
		case <-ticker.C:
			t.RefreshAll()
		}
	}
}
