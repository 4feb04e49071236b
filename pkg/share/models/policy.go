package models

import "time"

// Share-object resource permissions attached to requester and approver
// groups when a share is created.
const (
	PermissionGetShareObject     = "GET_SHARE_OBJECT"
	PermissionSubmitShareObject  = "SUBMIT_SHARE_OBJECT"
	PermissionApproveShareObject = "APPROVE_SHARE_OBJECT"
	PermissionRejectShareObject  = "REJECT_SHARE_OBJECT"
	PermissionDeleteShareObject  = "DELETE_SHARE_OBJECT"
	PermissionAddItem            = "ADD_ITEM"
	PermissionRemoveItem         = "REMOVE_ITEM"
	PermissionCreateShareObject  = "CREATE_SHARE_OBJECT"
)

// ShareObjectRequesterPermissions are granted to the requesting group.
func ShareObjectRequesterPermissions() []string {
	return []string{
		PermissionGetShareObject,
		PermissionSubmitShareObject,
		PermissionDeleteShareObject,
		PermissionAddItem,
		PermissionRemoveItem,
	}
}

// ShareObjectApproverPermissions are granted to the dataset admin and
// steward groups.
func ShareObjectApproverPermissions() []string {
	return []string{
		PermissionGetShareObject,
		PermissionApproveShareObject,
		PermissionRejectShareObject,
	}
}

// ResourcePolicy is one (group, resource, permission) grant backing the
// authorization collaborator.
type ResourcePolicy struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	GroupURI    string    `gorm:"not null;size:255;uniqueIndex:idx_policy,priority:1" json:"group_uri"`
	ResourceURI string    `gorm:"not null;size:36;uniqueIndex:idx_policy,priority:2" json:"resource_uri"`
	Permission  string    `gorm:"not null;size:100;uniqueIndex:idx_policy,priority:3" json:"permission"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for ResourcePolicy.
func (ResourcePolicy) TableName() string {
	return "resource_policies"
}
