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

// DefaultVerifyInterval is how often the verifier sweeps all shares.
const DefaultVerifyInterval = 6 * time.Hour

// Verifier periodically dispatches verification runs for every share that
// has succeeded items. The runs themselves are executed by the worker.
type Verifier struct {
	store      *store.GORMStore
	dispatcher dispatch.Dispatcher
	interval   time.Duration
}

// NewVerifier returns a verifier sweeping at the given interval. A zero
// interval uses the default.
func NewVerifier(st *store.GORMStore, dispatcher dispatch.Dispatcher, interval time.Duration) *Verifier {
	if interval <= 0 {
		interval = DefaultVerifyInterval
	}
	return &Verifier{store: st, dispatcher: dispatcher, interval: interval}
}

// Run sweeps until the context is cancelled.
func (v *Verifier) Run(ctx context.Context) error {
	return runEvery(ctx, "verify", v.interval, func(ctx context.Context) error {
		_, err := v.RunOnce(ctx)
		return err
	})
}

// RunOnce dispatches one verification run per share with succeeded items
// and returns how many were dispatched.
func (v *Verifier) RunOnce(ctx context.Context) (dispatched int, err error) {
	ctx, span := telemetry.StartTaskSpan(ctx, "verifier")
	defer func() {
		span.SetAttributes(telemetry.TaskCount(dispatched))
		telemetry.EndSpan(span, err)
	}()

	shareURIs, err := v.store.ListSharesWithSucceededItems(ctx)
	if err != nil {
		return 0, err
	}

	for _, shareURI := range shareURIs {
		items, err := v.store.ListItems(ctx, shareURI, models.ShareItemStatusShareSucceeded)
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
		if err := v.store.MarkItemsHealth(ctx, itemURIs, models.ShareItemHealthStatusPendingVerify); err != nil {
			return dispatched, err
		}
		if err := v.dispatcher.Dispatch(ctx, dispatch.HandlerVerify, shareURI); err != nil {
			return dispatched, err
		}
		dispatched++
	}

	logger.InfoCtx(ctx, "verification sweep complete",
		logger.KeyTask, "verify",
		logger.KeyCount, dispatched)
	return dispatched, nil
}
