package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/lakegate/lakegate/pkg/share/models"
)

// AcquireLock takes the advisory lease for lockKey on behalf of the given
// holder. It returns ErrAcquireLockFailure when another holder owns a
// non-expired lease. Expired leases are stolen.
func (s *GORMStore) AcquireLock(ctx context.Context, lockKey, holderURI, holderType string, ttl time.Duration) error {
	now := time.Now().UTC()
	lock := models.ResourceLock{
		LockKey:        lockKey,
		AcquiredByURI:  holderURI,
		AcquiredByType: holderType,
		AcquiredAt:     now,
		ExpiresAt:      now.Add(ttl),
	}

	return s.withTransaction(ctx, func(tx *gorm.DB) error {
		var existing models.ResourceLock
		err := tx.First(&existing, "lock_key = ?", lockKey).Error
		switch {
		case err == nil:
			if !existing.Expired(now) && existing.AcquiredByURI != holderURI {
				return fmt.Errorf("%w: %s held by %s until %s",
					models.ErrAcquireLockFailure, lockKey,
					existing.AcquiredByURI, existing.ExpiresAt.Format(time.RFC3339))
			}
			// Expired or re-entrant acquire: take over the row. The steal
			// condition is repeated in the UPDATE because under READ
			// COMMITTED two stealers can both see the expired row; only
			// the one whose conditional write matches wins.
			res := tx.Model(&models.ResourceLock{}).
				Where("lock_key = ? AND (expires_at < ? OR acquired_by_uri = ?)",
					lockKey, now, holderURI).
				Updates(map[string]any{
					"acquired_by_uri":  holderURI,
					"acquired_by_type": holderType,
					"acquired_at":      now,
					"expires_at":       now.Add(ttl),
				})
			if res.Error != nil {
				return fmt.Errorf("failed to steal lock: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("%w: %s stolen concurrently", models.ErrAcquireLockFailure, lockKey)
			}
			return nil

		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(&lock).Error; err != nil {
				if isUniqueConstraintError(err) {
					return fmt.Errorf("%w: %s", models.ErrAcquireLockFailure, lockKey)
				}
				return fmt.Errorf("failed to acquire lock: %w", err)
			}
			return nil

		default:
			return fmt.Errorf("failed to read lock: %w", err)
		}
	})
}

// ReleaseLock frees the lease if the given holder owns it. Releasing a
// lock that is absent or owned by someone else is a no-op so that crashed
// runs stay safe to clean up after.
func (s *GORMStore) ReleaseLock(ctx context.Context, lockKey, holderURI string) error {
	err := s.db.WithContext(ctx).
		Where("lock_key = ? AND acquired_by_uri = ?", lockKey, holderURI).
		Delete(&models.ResourceLock{}).Error
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// GetLock returns the current lease for lockKey, or nil when free.
func (s *GORMStore) GetLock(ctx context.Context, lockKey string) (*models.ResourceLock, error) {
	var lock models.ResourceLock
	err := s.db.WithContext(ctx).First(&lock, "lock_key = ?", lockKey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read lock: %w", err)
	}
	return &lock, nil
}
