package session

import (
	"context"
	"log/slog"
	"time"
)

// PurgeEvery removes expired sessions every interval until ctx is done.
// Failed purges are logged and retried at the next tick.
func (m *Manager) PurgeEvery(ctx context.Context, interval time.Duration, logger *slog.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := m.PurgeExpired(ctx)
			if err != nil {
				logger.Error("failed to purge expired sessions", "error", err)
				continue
			}

			if n > 0 {
				logger.Info("purged expired sessions", "count", n)
			}
		}
	}
}
