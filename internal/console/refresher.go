package console

import (
	"context"
	"time"

	"github.com/kursadbilgin/dispatch-console/internal/backend"
	"github.com/kursadbilgin/dispatch-console/internal/observability"
	"go.uber.org/zap"
)

// runRefresher reloads the list every RefreshInterval until ctx is cancelled.
func (c *Console) runRefresher(ctx context.Context) {
	defer close(c.refreshDone)

	ticker := time.NewTicker(c.opts.RefreshInterval)
	defer ticker.Stop()

	logger := c.log(observability.WithTrigger(ctx, TriggerTimer))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.load(ctx, TriggerTimer); err != nil {
				if ctx.Err() != nil {
					return
				}
				if backend.IsTransient(err) {
					logger.Warn("periodic reload failed, retrying on next tick", zap.Error(err))
					continue
				}
				logger.Error("periodic reload failed", zap.Error(err))
			}
		}
	}
}
