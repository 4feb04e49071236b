package tasks

import (
	"context"
	"time"

	"github.com/lakegate/lakegate/internal/logger"
	"github.com/lakegate/lakegate/internal/telemetry"
	"github.com/lakegate/lakegate/pkg/share/dispatch"
	"github.com/lakegate/lakegate/pkg/share/models"
	"github.com/lakegate/lakegate/pkg/share/store"
)

// DefaultReapplyInterval is how often the reapplier sweeps for unhealthy
// items.
const DefaultReapplyInterval = 12 * time.Hour

// Reapplier finds shares with unhealthy items and dispatches remediation
// runs that re-execute the grant path for them.
type Reapplier struct {
	store      *store.GORMStore
	dispatcher dispatch.Dispatcher
	interval   time.Duration
}

// NewReapplier returns a reapplier sweeping at the given interval. A zero
// interval uses the default.
func NewReapplier(st *store.GORMStore, dispatcher dispatch.Dispatcher, interval time.Duration) *Reapplier {
	if interval <= 0 {
		interval = DefaultReapplyInterval
	}
	return &Reapplier{store: st, dispatcher: dispatcher, interval: interval}
}

// Run sweeps until the context is cancelled.
func (r *Reapplier) Run(ctx context.Context) error {
	return runEvery(ctx, "reapply", r.interval, func(ctx context.Context) error {
		_, err := r.RunOnce(ctx)
		return err
	})
}

// RunOnce flags every unhealthy item for remediation and dispatches one
// reapply run per affected share.
func (r *Reapplier) RunOnce(ctx context.Context) (dispatched int, err error) {
	ctx, span := telemetry.StartTaskSpan(ctx, "reapplier")
	defer func() {
		span.SetAttributes(telemetry.TaskCount(dispatched))
		telemetry.EndSpan(span, err)
	}()

	shareURIs, err := r.store.ListSharesWithSucceededItems(ctx)
	if err != nil {
		return 0, err
	}

	for _, shareURI := range shareURIs {
		items, err := r.store.ListItemsByHealth(ctx, shareURI, models.ShareItemHealthStatusUnhealthy)
		if err != nil {
			return dispatched, err
		}
		if len(items) == 0 {
			continue
		}

		itemURIs := make([]string, 0, len(items))
		for _, item := range items {
			itemURIs = append(itemURIs, item.ShareItemURI)
		}
		if err := r.store.MarkItemsHealth(ctx, itemURIs, models.ShareItemHealthStatusPendingReApply); err != nil {
			return dispatched, err
		}
		if err := r.dispatcher.Dispatch(ctx, dispatch.HandlerReapply, shareURI); err != nil {
			return dispatched, err
		}
		dispatched++
	}

	logger.InfoCtx(ctx, "remediation sweep complete",
		logger.KeyTask, "reapply",
		logger.KeyCount, dispatched)
	return dispatched, nil
}
