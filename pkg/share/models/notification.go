package models

import "time"

// NotificationType classifies share lifecycle events delivered to users.
type NotificationType string

const (
	NotificationShareObjectSubmitted         NotificationType = "SHARE_OBJECT_SUBMITTED"
	NotificationShareObjectApproved          NotificationType = "SHARE_OBJECT_APPROVED"
	NotificationShareObjectRejected          NotificationType = "SHARE_OBJECT_REJECTED"
	NotificationShareObjectRevoked           NotificationType = "SHARE_OBJECT_REVOKED"
	NotificationShareObjectDeleted           NotificationType = "SHARE_OBJECT_DELETED"
	NotificationShareObjectExtensionRequest  NotificationType = "SHARE_OBJECT_EXTENSION_REQUESTED"
	NotificationShareObjectExtensionApproved NotificationType = "SHARE_OBJECT_EXTENSION_APPROVED"
	NotificationShareObjectExtensionRejected NotificationType = "SHARE_OBJECT_EXTENSION_REJECTED"
	NotificationShareObjectExpiresSoon       NotificationType = "SHARE_OBJECT_EXPIRES_SOON"
)

// Notification is a persisted fire-and-forget event. Delivery failures are
// logged and never block the orchestrator.
type Notification struct {
	ID         string           `gorm:"primaryKey;size:36" json:"id"`
	Type       NotificationType `gorm:"not null;size:100" json:"type"`
	TargetURI  string           `gorm:"not null;size:36;index" json:"target_uri"`
	TargetType string           `gorm:"not null;size:50" json:"target_type"`
	Recipient  string           `gorm:"not null;size:255;index" json:"recipient"`
	Message    string           `gorm:"size:2048" json:"message"`
	Read       bool             `gorm:"default:false" json:"read"`
	CreatedAt  time.Time        `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for Notification.
func (Notification) TableName() string {
	return "notifications"
}
