package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/lakegate/lakegate/pkg/share/models"
)

// CreateShare persists a new share object.
func (s *GORMStore) CreateShare(ctx context.Context, share *models.ShareObject) error {
	if err := s.db.WithContext(ctx).Create(share).Error; err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: %s", models.ErrShareAlreadyExists, share.ShareURI)
		}
		return fmt.Errorf("failed to create share: %w", err)
	}
	return nil
}

// GetShare returns a share object by URI. Soft-deleted shares are not
// returned.
func (s *GORMStore) GetShare(ctx context.Context, shareURI string) (*models.ShareObject, error) {
	var share models.ShareObject
	err := s.db.WithContext(ctx).First(&share, "share_uri = ?", shareURI).Error
	if err != nil {
		return nil, convertNotFoundError(err, fmt.Errorf("%w: %s", models.ErrShareNotFound, shareURI))
	}
	return &share, nil
}

// GetShareWithItems returns a share object with its items preloaded.
// Soft-deleted items are excluded.
func (s *GORMStore) GetShareWithItems(ctx context.Context, shareURI string) (*models.ShareObject, error) {
	var share models.ShareObject
	err := s.db.WithContext(ctx).
		Preload("Items").
		First(&share, "share_uri = ?", shareURI).Error
	if err != nil {
		return nil, convertNotFoundError(err, fmt.Errorf("%w: %s", models.ErrShareNotFound, shareURI))
	}
	return &share, nil
}

// FindShare looks up an existing share for the same dataset, environment,
// group and principal. Used to enforce one share per tuple.
func (s *GORMStore) FindShare(ctx context.Context, datasetURI, environmentURI, groupURI, principalID string) (*models.ShareObject, error) {
	var share models.ShareObject
	err := s.db.WithContext(ctx).
		Where("dataset_uri = ? AND environment_uri = ? AND group_uri = ? AND principal_id = ?",
			datasetURI, environmentURI, groupURI, principalID).
		First(&share).Error
	if err != nil {
		return nil, convertNotFoundError(err, models.ErrShareNotFound)
	}
	return &share, nil
}

// UpdateShareStatus sets the status of a share object.
func (s *GORMStore) UpdateShareStatus(ctx context.Context, shareURI string, status models.ShareObjectStatus) error {
	result := s.db.WithContext(ctx).
		Model(&models.ShareObject{}).
		Where("share_uri = ?", shareURI).
		Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update share status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", models.ErrShareNotFound, shareURI)
	}
	return nil
}

// UpdateShare persists the given share object fields.
func (s *GORMStore) UpdateShare(ctx context.Context, share *models.ShareObject) error {
	if err := s.db.WithContext(ctx).Save(share).Error; err != nil {
		return fmt.Errorf("failed to update share: %w", err)
	}
	return nil
}

// DeleteShare soft-deletes a share object. The row survives for audit
// queries but disappears from normal reads.
func (s *GORMStore) DeleteShare(ctx context.Context, shareURI string) error {
	result := s.db.WithContext(ctx).Delete(&models.ShareObject{}, "share_uri = ?", shareURI)
	if result.Error != nil {
		return fmt.Errorf("failed to delete share: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", models.ErrShareNotFound, shareURI)
	}
	return nil
}

// ShareFilter narrows ListShares results. Zero-valued fields are ignored.
type ShareFilter struct {
	DatasetURI     string
	EnvironmentURI string
	GroupURI       string
	Status         models.ShareObjectStatus
}

// ListShares returns share objects matching the filter, most recent first.
func (s *GORMStore) ListShares(ctx context.Context, filter ShareFilter) ([]*models.ShareObject, error) {
	query := s.db.WithContext(ctx).Model(&models.ShareObject{})
	if filter.DatasetURI != "" {
		query = query.Where("dataset_uri = ?", filter.DatasetURI)
	}
	if filter.EnvironmentURI != "" {
		query = query.Where("environment_uri = ?", filter.EnvironmentURI)
	}
	if filter.GroupURI != "" {
		query = query.Where("group_uri = ?", filter.GroupURI)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var shares []*models.ShareObject
	if err := query.Order("created_at DESC").Find(&shares).Error; err != nil {
		return nil, fmt.Errorf("failed to list shares: %w", err)
	}
	return shares, nil
}

// ListExpiredShares returns active shares whose expiry date has passed.
// Only shares in Processed state with a set expiry are candidates.
func (s *GORMStore) ListExpiredShares(ctx context.Context, now time.Time) ([]*models.ShareObject, error) {
	var shares []*models.ShareObject
	err := s.db.WithContext(ctx).
		Where("status = ? AND expiry_date IS NOT NULL AND expiry_date <= ?",
			models.ShareObjectStatusProcessed, now).
		Find(&shares).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list expired shares: %w", err)
	}
	return shares, nil
}

// ListSharesWithSucceededItems returns the URIs of shares that have at least
// one item in Share_Succeeded state. Used by the verification sweep.
func (s *GORMStore) ListSharesWithSucceededItems(ctx context.Context) ([]string, error) {
	var uris []string
	err := s.db.WithContext(ctx).
		Model(&models.ShareObjectItem{}).
		Distinct("share_uri").
		Where("status = ?", models.ShareItemStatusShareSucceeded).
		Pluck("share_uri", &uris).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list shares with succeeded items: %w", err)
	}
	return uris, nil
}

// withTransaction runs fn inside a database transaction.
func (s *GORMStore) withTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}
