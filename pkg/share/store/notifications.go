package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/lakegate/lakegate/pkg/share/models"
)

// CreateNotifications persists one notification per recipient.
func (s *GORMStore) CreateNotifications(ctx context.Context, notificationType models.NotificationType, targetURI, targetType, message string, recipients []string) error {
	for _, recipient := range recipients {
		notification := models.Notification{
			ID:         uuid.NewString(),
			Type:       notificationType,
			TargetURI:  targetURI,
			TargetType: targetType,
			Recipient:  recipient,
			Message:    message,
		}
		if err := s.db.WithContext(ctx).Create(&notification).Error; err != nil {
			return fmt.Errorf("failed to create notification: %w", err)
		}
	}
	return nil
}

// ListNotifications returns the notifications of a recipient, most recent
// first.
func (s *GORMStore) ListNotifications(ctx context.Context, recipient string, unreadOnly bool) ([]*models.Notification, error) {
	query := s.db.WithContext(ctx).Where("recipient = ?", recipient)
	if unreadOnly {
		query = query.Where("read = ?", false)
	}

	var notifications []*models.Notification
	if err := query.Order("created_at DESC").Find(&notifications).Error; err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

// MarkNotificationRead flags a notification as read.
func (s *GORMStore) MarkNotificationRead(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ?", id).
		Update("read", true).Error
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}
