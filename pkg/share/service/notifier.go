package service

import (
	"context"

	"github.com/lakegate/lakegate/internal/logger"
	"github.com/lakegate/lakegate/pkg/share/models"
	"github.com/lakegate/lakegate/pkg/share/store"
)

// Notifier persists share lifecycle notifications. Delivery is fire and
// forget: failures are logged and never abort the operation that produced
// the event.
type Notifier struct {
	store *store.GORMStore
}

// NewNotifier returns a store-backed notifier.
func NewNotifier(s *store.GORMStore) *Notifier {
	return &Notifier{store: s}
}

// Notify records one notification per recipient.
func (n *Notifier) Notify(ctx context.Context, notificationType models.NotificationType, share *models.ShareObject, message string, recipients ...string) {
	if len(recipients) == 0 {
		return
	}
	err := n.store.CreateNotifications(ctx, notificationType, share.ShareURI, "share_object", message, recipients)
	if err != nil {
		logger.WarnCtx(ctx, "failed to persist notification",
			logger.KeyShareURI, share.ShareURI,
			"notification_type", string(notificationType),
			logger.KeyError, err.Error())
	}
}
