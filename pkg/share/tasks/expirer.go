package tasks

import (
	"context"
	"time"

	"github.com/lakegate/lakegate/internal/logger"
	"github.com/lakegate/lakegate/internal/telemetry"
	"github.com/lakegate/lakegate/pkg/share/service"
)

// DefaultExpireInterval is how often the expirer checks for expired shares.
const DefaultExpireInterval = time.Hour

// Expirer revokes shares that passed their expiry date. The actual state
// transitions live in the service so expiry follows the same revoke path
// as a user-initiated revocation.
type Expirer struct {
	svc      *service.Service
	interval time.Duration
	now      func() time.Time
}

// NewExpirer returns an expirer sweeping at the given interval. A zero
// interval uses the default.
func NewExpirer(svc *service.Service, interval time.Duration) *Expirer {
	if interval <= 0 {
		interval = DefaultExpireInterval
	}
	return &Expirer{svc: svc, interval: interval, now: func() time.Time { return time.Now().UTC() }}
}

// Run sweeps until the context is cancelled.
func (e *Expirer) Run(ctx context.Context) error {
	return runEvery(ctx, "expire", e.interval, func(ctx context.Context) error {
		_, err := e.RunOnce(ctx)
		return err
	})
}

// RunOnce sends every expired share to revocation and returns how many
// were revoked.
func (e *Expirer) RunOnce(ctx context.Context) (revoked int, err error) {
	ctx, span := telemetry.StartTaskSpan(ctx, "expirer")
	defer func() {
		span.SetAttributes(telemetry.TaskCount(revoked))
		telemetry.EndSpan(span, err)
	}()

	revoked, err = e.svc.ExpireShares(ctx, e.now())
	if err != nil {
		return revoked, err
	}

	logger.InfoCtx(ctx, "expiry sweep complete",
		logger.KeyTask, "expire",
		logger.KeyCount, revoked)
	return revoked, nil
}
