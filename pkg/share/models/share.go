package models

import (
	"time"

	"gorm.io/gorm"
)

// ShareObject is one sharing relationship between a dataset and a principal
// in a target environment. All status changes go through the object state
// machine; rows are soft-deleted to retain audit history.
type ShareObject struct {
	ShareURI       string `gorm:"primaryKey;size:36" json:"share_uri"`
	DatasetURI     string `gorm:"not null;size:36;index" json:"dataset_uri"`
	EnvironmentURI string `gorm:"not null;size:36;index" json:"environment_uri"`

	// GroupURI is the requesting team; the principal is what actually
	// receives the grants in the target account.
	GroupURI          string        `gorm:"not null;size:255" json:"group_uri"`
	PrincipalID       string        `gorm:"not null;size:255;index" json:"principal_id"`
	PrincipalType     PrincipalType `gorm:"not null;size:50" json:"principal_type"`
	PrincipalRoleName string        `gorm:"size:255" json:"principal_role_name"`

	Permissions StringList        `gorm:"type:text" json:"permissions"`
	Status      ShareObjectStatus `gorm:"not null;size:50;index" json:"status"`
	Owner       string            `gorm:"not null;size:255" json:"owner"`

	RequestPurpose string `gorm:"size:1024" json:"request_purpose,omitempty"`
	RejectPurpose  string `gorm:"size:1024" json:"reject_purpose,omitempty"`

	// Expiration. ExpiryDate must be nil while NonExpirable is set.
	ExpiryDate            *time.Time `json:"expiry_date,omitempty"`
	RequestedExpiryDate   *time.Time `json:"requested_expiry_date,omitempty"`
	LastExtensionDate     *time.Time `json:"last_extension_date,omitempty"`
	ExtensionReason       string     `gorm:"size:1024" json:"extension_reason,omitempty"`
	NonExpirable          bool       `gorm:"default:false" json:"non_expirable"`
	ShareExpirationPeriod int        `gorm:"default:0" json:"share_expiration_period"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Items []ShareObjectItem `gorm:"foreignKey:ShareURI" json:"items,omitempty"`
}

// TableName returns the table name for ShareObject.
func (ShareObject) TableName() string {
	return "share_objects"
}

// IsExpired reports whether the share has passed its expiry date.
func (s *ShareObject) IsExpired(now time.Time) bool {
	if s.NonExpirable || s.ExpiryDate == nil {
		return false
	}
	return now.After(*s.ExpiryDate)
}

// ShareObjectItem is one concrete resource attached to a share object.
// Health fields are meaningful only after the item has reached
// Share_Succeeded at least once.
type ShareObjectItem struct {
	ShareItemURI string        `gorm:"primaryKey;size:36" json:"share_item_uri"`
	ShareURI     string        `gorm:"not null;size:36;index" json:"share_uri"`
	ItemType     ShareableType `gorm:"not null;size:50;index" json:"item_type"`
	ItemURI      string        `gorm:"not null;size:36;index" json:"item_uri"`
	ItemName     string        `gorm:"not null;size:255" json:"item_name"`

	Permission SharePermission `gorm:"size:50" json:"permission"`
	Status     ShareItemStatus `gorm:"not null;size:50;index" json:"status"`
	Owner      string          `gorm:"size:255" json:"owner"`

	HealthStatus         ShareItemHealthStatus `gorm:"size:50" json:"health_status,omitempty"`
	HealthMessage        string                `gorm:"size:2048" json:"health_message,omitempty"`
	LastVerificationTime *time.Time            `json:"last_verification_time,omitempty"`

	AttachedDataFilterURI *string `gorm:"size:36" json:"attached_data_filter_uri,omitempty"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName returns the table name for ShareObjectItem.
func (ShareObjectItem) TableName() string {
	return "share_object_items"
}

// ShareObjectItemDataFilter is an optional row/column subset scoped to one
// share item. Filter definitions themselves are owned by the dataset; this
// record only references them.
type ShareObjectItemDataFilter struct {
	AttachedDataFilterURI string     `gorm:"primaryKey;size:36" json:"attached_data_filter_uri"`
	ShareItemURI          string     `gorm:"not null;size:36;uniqueIndex:idx_item_filter_label,priority:1" json:"share_item_uri"`
	Label                 string     `gorm:"not null;size:255;uniqueIndex:idx_item_filter_label,priority:2" json:"label"`
	DataFilterURIs        StringList `gorm:"type:text" json:"data_filter_uris"`
	DataFilterNames       StringList `gorm:"type:text" json:"data_filter_names"`
	CreatedAt             time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for ShareObjectItemDataFilter.
func (ShareObjectItemDataFilter) TableName() string {
	return "share_object_item_data_filters"
}
