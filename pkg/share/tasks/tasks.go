// Package tasks contains the scheduled sweeps that keep share state
// converged: periodic verification, remediation of unhealthy items and
// revocation of expired shares. Each task also runs as a one-shot for CLI
// invocation.
package tasks

import (
	"context"
	"time"

	"github.com/lakegate/lakegate/internal/logger"
)

// runEvery runs fn immediately and then on every tick until ctx is
// cancelled. Sweep errors are logged, not fatal; the next tick retries.
func runEvery(ctx context.Context, task string, interval time.Duration, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		logger.ErrorCtx(ctx, "task sweep failed", logger.KeyTask, task, logger.KeyError, err.Error())
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := fn(ctx); err != nil {
				logger.ErrorCtx(ctx, "task sweep failed", logger.KeyTask, task, logger.KeyError, err.Error())
			}
		}
	}
}
