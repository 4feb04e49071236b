package service

import (
	"context"
	"fmt"
	"time"

	"github.com/lakegate/lakegate/internal/logger"
	"github.com/lakegate/lakegate/pkg/share/dispatch"
	"github.com/lakegate/lakegate/pkg/share/models"
	"github.com/lakegate/lakegate/pkg/share/statemachine"
)

// Expiry settings supported on datasets.
const (
	ExpirySettingMonthly   = "Monthly"
	ExpirySettingQuarterly = "Quarterly"
)

// expiryDate computes the share expiry for the requested number of periods.
// Expiry always lands on a period boundary: the last day of the final
// calendar month or quarter, not a rolling offset from the request date.
func expiryDate(setting string, periods int, now time.Time) (time.Time, error) {
	switch setting {
	case ExpirySettingMonthly:
		// Last day of the month `periods` months out.
		firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return firstOfMonth.AddDate(0, periods+1, -1), nil

	case ExpirySettingQuarterly:
		quarterStartMonth := time.Month(((int(now.Month())-1)/3)*3 + 1)
		quarterStart := time.Date(now.Year(), quarterStartMonth, 1, 0, 0, 0, 0, time.UTC)
		return quarterStart.AddDate(0, 3*(periods+1), -1), nil

	default:
		return time.Time{}, fmt.Errorf("unknown expiry setting: %s", setting)
	}
}

// ExpireShares revokes every processed share past its expiry date. Called
// by the expiry sweep; no principal is involved, expiry is a system
// decision. Returns the number of shares sent to revocation.
func (s *Service) ExpireShares(ctx context.Context, now time.Time) (int, error) {
	shares, err := s.store.ListExpiredShares(ctx, now)
	if err != nil {
		return 0, err
	}

	revoked := 0
	for _, share := range shares {
		items, err := s.store.ListItems(ctx, share.ShareURI, models.RevokableItemStatuses()...)
		if err != nil {
			return revoked, err
		}
		if len(items) == 0 {
			continue
		}

		next, err := statemachine.ObjectTransition(share.Status, models.ShareObjectActionRevokeItems)
		if err != nil {
			logger.WarnCtx(ctx, "expired share cannot be revoked",
				logger.KeyShareURI, share.ShareURI,
				logger.KeyStatus, string(share.Status),
				logger.KeyError, err.Error())
			continue
		}
		if err := s.store.UpdateShareStatus(ctx, share.ShareURI, next); err != nil {
			return revoked, err
		}

		itemURIs := make([]string, 0, len(items))
		for _, item := range items {
			itemURIs = append(itemURIs, item.ShareItemURI)
		}
		if err := s.store.UpdateItemsStatusForURIs(ctx, itemURIs, models.ShareItemStatusRevokeApproved); err != nil {
			return revoked, err
		}

		s.notifier.Notify(ctx, models.NotificationShareObjectRevoked, share,
			fmt.Sprintf("Share %s expired on %s and is being revoked", share.ShareURI, share.ExpiryDate.Format("2006-01-02")),
			share.GroupURI, share.Owner)

		if err := s.dispatcher.Dispatch(ctx, dispatch.HandlerRevoke, share.ShareURI); err != nil {
			return revoked, fmt.Errorf("failed to dispatch revoke for expired share %s: %w", share.ShareURI, err)
		}

		logger.InfoCtx(ctx, "expired share sent to revocation",
			logger.ShareAttrs(share.ShareURI, share.DatasetURI)...)
		revoked++
	}
	return revoked, nil
}

// validateExpirationPeriod checks the requested period against the
// dataset's bounds.
func validateExpirationPeriod(dataset *models.Dataset, periods int) error {
	if !dataset.EnableExpiration {
		return nil
	}
	if periods < dataset.ExpiryMinDuration {
		return fmt.Errorf("expiration period %d below dataset minimum %d", periods, dataset.ExpiryMinDuration)
	}
	if dataset.ExpiryMaxDuration > 0 && periods > dataset.ExpiryMaxDuration {
		return fmt.Errorf("expiration period %d above dataset maximum %d", periods, dataset.ExpiryMaxDuration)
	}
	return nil
}
