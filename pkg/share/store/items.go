package store

import (
	"context"
	"fmt"
	"time"

	"github.com/lakegate/lakegate/pkg/share/models"
)

// CreateItem persists a new share item.
func (s *GORMStore) CreateItem(ctx context.Context, item *models.ShareObjectItem) error {
	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		return fmt.Errorf("failed to create share item: %w", err)
	}
	return nil
}

// GetItem returns a share item by URI.
func (s *GORMStore) GetItem(ctx context.Context, itemURI string) (*models.ShareObjectItem, error) {
	var item models.ShareObjectItem
	err := s.db.WithContext(ctx).First(&item, "share_item_uri = ?", itemURI).Error
	if err != nil {
		return nil, convertNotFoundError(err, fmt.Errorf("%w: %s", models.ErrShareItemNotFound, itemURI))
	}
	return &item, nil
}

// FindItemByTarget returns the item of a share referencing the given
// dataset entity, if any.
func (s *GORMStore) FindItemByTarget(ctx context.Context, shareURI, itemURI string) (*models.ShareObjectItem, error) {
	var item models.ShareObjectItem
	err := s.db.WithContext(ctx).
		Where("share_uri = ? AND item_uri = ?", shareURI, itemURI).
		First(&item).Error
	if err != nil {
		return nil, convertNotFoundError(err, models.ErrShareItemNotFound)
	}
	return &item, nil
}

// UpdateItemStatus sets the status of a single share item.
func (s *GORMStore) UpdateItemStatus(ctx context.Context, itemURI string, status models.ShareItemStatus) error {
	result := s.db.WithContext(ctx).
		Model(&models.ShareObjectItem{}).
		Where("share_item_uri = ?", itemURI).
		Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update item status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", models.ErrShareItemNotFound, itemURI)
	}
	return nil
}

// UpdateItemStatuses moves every item of a share from one status to
// another in a single statement. Used by the object state machine when an
// object action cascades to items.
func (s *GORMStore) UpdateItemStatuses(ctx context.Context, shareURI string, from, to models.ShareItemStatus) error {
	err := s.db.WithContext(ctx).
		Model(&models.ShareObjectItem{}).
		Where("share_uri = ? AND status = ?", shareURI, from).
		Update("status", to).Error
	if err != nil {
		return fmt.Errorf("failed to update item statuses: %w", err)
	}
	return nil
}

// UpdateItemsStatusForURIs moves the named items to the given status.
func (s *GORMStore) UpdateItemsStatusForURIs(ctx context.Context, itemURIs []string, status models.ShareItemStatus) error {
	if len(itemURIs) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).
		Model(&models.ShareObjectItem{}).
		Where("share_item_uri IN ?", itemURIs).
		Update("status", status).Error
	if err != nil {
		return fmt.Errorf("failed to update item statuses: %w", err)
	}
	return nil
}

// UpdateItemHealth records the outcome of a verification or re-apply pass
// for a single item.
func (s *GORMStore) UpdateItemHealth(ctx context.Context, itemURI string, health models.ShareItemHealthStatus, message string, at time.Time) error {
	result := s.db.WithContext(ctx).
		Model(&models.ShareObjectItem{}).
		Where("share_item_uri = ?", itemURI).
		Updates(map[string]any{
			"health_status":          health,
			"health_message":         message,
			"last_verification_time": at,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update item health: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", models.ErrShareItemNotFound, itemURI)
	}
	return nil
}

// MarkItemsHealth sets the health status of the named items without
// touching the verification timestamp. Used to flag items PendingVerify or
// PendingReApply before a background pass picks them up.
func (s *GORMStore) MarkItemsHealth(ctx context.Context, itemURIs []string, health models.ShareItemHealthStatus) error {
	if len(itemURIs) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).
		Model(&models.ShareObjectItem{}).
		Where("share_item_uri IN ?", itemURIs).
		Update("health_status", health).Error
	if err != nil {
		return fmt.Errorf("failed to mark item health: %w", err)
	}
	return nil
}

// ListItems returns the items of a share, optionally restricted to a set
// of statuses.
func (s *GORMStore) ListItems(ctx context.Context, shareURI string, statuses ...models.ShareItemStatus) ([]*models.ShareObjectItem, error) {
	query := s.db.WithContext(ctx).Where("share_uri = ?", shareURI)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}

	var items []*models.ShareObjectItem
	if err := query.Order("created_at ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list share items: %w", err)
	}
	return items, nil
}

// ListItemsByType returns the items of a share with the given type and
// statuses. Processors use this to select the slice of work they own.
func (s *GORMStore) ListItemsByType(ctx context.Context, shareURI string, itemType models.ShareableType, statuses ...models.ShareItemStatus) ([]*models.ShareObjectItem, error) {
	query := s.db.WithContext(ctx).Where("share_uri = ? AND item_type = ?", shareURI, itemType)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}

	var items []*models.ShareObjectItem
	if err := query.Order("created_at ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list share items: %w", err)
	}
	return items, nil
}

// ListItemsByHealth returns the items of a share with the given health
// status.
func (s *GORMStore) ListItemsByHealth(ctx context.Context, shareURI string, health models.ShareItemHealthStatus) ([]*models.ShareObjectItem, error) {
	var items []*models.ShareObjectItem
	err := s.db.WithContext(ctx).
		Where("share_uri = ? AND health_status = ?", shareURI, health).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list share items: %w", err)
	}
	return items, nil
}

// CountItemsInStatus returns the number of items of a share in any of the
// given statuses.
func (s *GORMStore) CountItemsInStatus(ctx context.Context, shareURI string, statuses ...models.ShareItemStatus) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.ShareObjectItem{}).
		Where("share_uri = ? AND status IN ?", shareURI, statuses).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count share items: %w", err)
	}
	return count, nil
}

// DeleteItem soft-deletes a share item.
func (s *GORMStore) DeleteItem(ctx context.Context, itemURI string) error {
	result := s.db.WithContext(ctx).Delete(&models.ShareObjectItem{}, "share_item_uri = ?", itemURI)
	if result.Error != nil {
		return fmt.Errorf("failed to delete share item: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", models.ErrShareItemNotFound, itemURI)
	}
	return nil
}

// SetItemDataFilter records which attached filter scopes a share item.
func (s *GORMStore) SetItemDataFilter(ctx context.Context, itemURI string, filterURI *string) error {
	result := s.db.WithContext(ctx).
		Model(&models.ShareObjectItem{}).
		Where("share_item_uri = ?", itemURI).
		Update("attached_data_filter_uri", filterURI)
	if result.Error != nil {
		return fmt.Errorf("failed to set item data filter: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", models.ErrShareItemNotFound, itemURI)
	}
	return nil
}

// CreateDataFilter attaches a row-level data filter to a share item.
func (s *GORMStore) CreateDataFilter(ctx context.Context, filter *models.ShareObjectItemDataFilter) error {
	if err := s.db.WithContext(ctx).Create(filter).Error; err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: %s", models.ErrDuplicateDataFilter, filter.Label)
		}
		return fmt.Errorf("failed to create data filter: %w", err)
	}
	return nil
}

// GetDataFilter returns a data filter by URI.
func (s *GORMStore) GetDataFilter(ctx context.Context, filterURI string) (*models.ShareObjectItemDataFilter, error) {
	var filter models.ShareObjectItemDataFilter
	err := s.db.WithContext(ctx).First(&filter, "attached_data_filter_uri = ?", filterURI).Error
	if err != nil {
		return nil, convertNotFoundError(err, fmt.Errorf("%w: %s", models.ErrDataFilterNotFound, filterURI))
	}
	return &filter, nil
}

// ListDataFilters returns the data filters attached to a share item.
func (s *GORMStore) ListDataFilters(ctx context.Context, itemURI string) ([]*models.ShareObjectItemDataFilter, error) {
	var filters []*models.ShareObjectItemDataFilter
	err := s.db.WithContext(ctx).
		Where("share_item_uri = ?", itemURI).
		Find(&filters).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list data filters: %w", err)
	}
	return filters, nil
}

// DeleteDataFilter removes a data filter from a share item.
func (s *GORMStore) DeleteDataFilter(ctx context.Context, filterURI string) error {
	result := s.db.WithContext(ctx).
		Delete(&models.ShareObjectItemDataFilter{}, "attached_data_filter_uri = ?", filterURI)
	if result.Error != nil {
		return fmt.Errorf("failed to delete data filter: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", models.ErrDataFilterNotFound, filterURI)
	}
	return nil
}
