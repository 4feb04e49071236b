package models

// ShareObjectStatus is the lifecycle status of a share request.
type ShareObjectStatus string

const (
	ShareObjectStatusDraft                 ShareObjectStatus = "Draft"
	ShareObjectStatusSubmitted             ShareObjectStatus = "Submitted"
	ShareObjectStatusApproved              ShareObjectStatus = "Approved"
	ShareObjectStatusRejected              ShareObjectStatus = "Rejected"
	ShareObjectStatusShareInProgress       ShareObjectStatus = "Share_In_Progress"
	ShareObjectStatusProcessed             ShareObjectStatus = "Processed"
	ShareObjectStatusRevokeInProgress      ShareObjectStatus = "Revoke_In_Progress"
	ShareObjectStatusRevoked               ShareObjectStatus = "Revoked"
	ShareObjectStatusSubmittedForExtension ShareObjectStatus = "Submitted_For_Extension"
	ShareObjectStatusExtensionRejected     ShareObjectStatus = "Extension_Rejected"
	ShareObjectStatusDeleted               ShareObjectStatus = "Deleted"
)

// ShareObjectStatuses lists every valid object status.
func ShareObjectStatuses() []ShareObjectStatus {
	return []ShareObjectStatus{
		ShareObjectStatusDraft,
		ShareObjectStatusSubmitted,
		ShareObjectStatusApproved,
		ShareObjectStatusRejected,
		ShareObjectStatusShareInProgress,
		ShareObjectStatusProcessed,
		ShareObjectStatusRevokeInProgress,
		ShareObjectStatusRevoked,
		ShareObjectStatusSubmittedForExtension,
		ShareObjectStatusExtensionRejected,
		ShareObjectStatusDeleted,
	}
}

// Valid reports whether s is a defined object status.
func (s ShareObjectStatus) Valid() bool {
	for _, v := range ShareObjectStatuses() {
		if s == v {
			return true
		}
	}
	return false
}

// ShareItemStatus is the lifecycle status of a single shared resource.
type ShareItemStatus string

const (
	ShareItemStatusPendingApproval  ShareItemStatus = "PendingApproval"
	ShareItemStatusPendingExtension ShareItemStatus = "PendingExtension"
	ShareItemStatusShareApproved    ShareItemStatus = "Share_Approved"
	ShareItemStatusShareRejected    ShareItemStatus = "Share_Rejected"
	ShareItemStatusShareInProgress  ShareItemStatus = "Share_In_Progress"
	ShareItemStatusShareSucceeded   ShareItemStatus = "Share_Succeeded"
	ShareItemStatusShareFailed      ShareItemStatus = "Share_Failed"
	ShareItemStatusRevokeApproved   ShareItemStatus = "Revoke_Approved"
	ShareItemStatusRevokeInProgress ShareItemStatus = "Revoke_In_Progress"
	ShareItemStatusRevokeFailed     ShareItemStatus = "Revoke_Failed"
	ShareItemStatusRevokeSucceeded  ShareItemStatus = "Revoke_Succeeded"
	ShareItemStatusDeleted          ShareItemStatus = "Deleted"
)

// ShareItemStatuses lists every valid item status.
func ShareItemStatuses() []ShareItemStatus {
	return []ShareItemStatus{
		ShareItemStatusPendingApproval,
		ShareItemStatusPendingExtension,
		ShareItemStatusShareApproved,
		ShareItemStatusShareRejected,
		ShareItemStatusShareInProgress,
		ShareItemStatusShareSucceeded,
		ShareItemStatusShareFailed,
		ShareItemStatusRevokeApproved,
		ShareItemStatusRevokeInProgress,
		ShareItemStatusRevokeFailed,
		ShareItemStatusRevokeSucceeded,
		ShareItemStatusDeleted,
	}
}

// Valid reports whether s is a defined item status.
func (s ShareItemStatus) Valid() bool {
	for _, v := range ShareItemStatuses() {
		if s == v {
			return true
		}
	}
	return false
}

// SharedItemStatuses are the item statuses in which the underlying grant is
// (or may be) live in the target account. Items in these states block
// deletion of the parent share object.
func SharedItemStatuses() []ShareItemStatus {
	return []ShareItemStatus{
		ShareItemStatusShareApproved,
		ShareItemStatusShareInProgress,
		ShareItemStatusShareSucceeded,
		ShareItemStatusRevokeApproved,
		ShareItemStatusRevokeInProgress,
		ShareItemStatusRevokeFailed,
	}
}

// RevokableItemStatuses are the item statuses from which a revoke may be
// requested.
func RevokableItemStatuses() []ShareItemStatus {
	return []ShareItemStatus{
		ShareItemStatusShareSucceeded,
		ShareItemStatusRevokeFailed,
	}
}

// ShareItemHealthStatus tracks whether a succeeded grant still matches the
// state read back from the target service.
type ShareItemHealthStatus string

const (
	ShareItemHealthStatusHealthy        ShareItemHealthStatus = "Healthy"
	ShareItemHealthStatusUnhealthy      ShareItemHealthStatus = "Unhealthy"
	ShareItemHealthStatusPendingVerify  ShareItemHealthStatus = "PendingVerify"
	ShareItemHealthStatusPendingReApply ShareItemHealthStatus = "PendingReApply"
)

// ShareableType tags the kind of resource a share item points at. Each type
// maps to exactly one registered processor.
type ShareableType string

const (
	ShareableTypeTable           ShareableType = "Table"
	ShareableTypeStorageLocation ShareableType = "StorageLocation"
	ShareableTypeBucket          ShareableType = "Bucket"
	ShareableTypeWarehouseTable  ShareableType = "WarehouseTable"
)

// PrincipalType identifies what kind of principal receives the grants.
type PrincipalType string

const (
	PrincipalTypeGroup           PrincipalType = "Group"
	PrincipalTypeConsumptionRole PrincipalType = "ConsumptionRole"
)

// SharePermission is a requested access level on the dataset's resources.
type SharePermission string

const (
	SharePermissionRead   SharePermission = "Read"
	SharePermissionWrite  SharePermission = "Write"
	SharePermissionModify SharePermission = "Modify"
)

// ShareObjectAction names a guarded transition on the object state machine.
type ShareObjectAction string

const (
	ShareObjectActionCreate           ShareObjectAction = "Create"
	ShareObjectActionSubmit           ShareObjectAction = "Submit"
	ShareObjectActionApprove          ShareObjectAction = "Approve"
	ShareObjectActionReject           ShareObjectAction = "Reject"
	ShareObjectActionRevokeItems      ShareObjectAction = "RevokeItems"
	ShareObjectActionStart            ShareObjectAction = "Start"
	ShareObjectActionFinish           ShareObjectAction = "Finish"
	ShareObjectActionFinishPending    ShareObjectAction = "FinishPending"
	ShareObjectActionDelete           ShareObjectAction = "Delete"
	ShareObjectActionAddItem          ShareObjectAction = "AddItem"
	ShareObjectActionExtension        ShareObjectAction = "Extension"
	ShareObjectActionExtensionApprove ShareObjectAction = "ExtensionApprove"
	ShareObjectActionExtensionReject  ShareObjectAction = "ExtensionReject"
	ShareObjectActionCancelExtension  ShareObjectAction = "CancelExtension"
)

// ShareItemAction names a guarded transition on the item state machine.
type ShareItemAction string

const (
	ShareItemActionAddItem    ShareItemAction = "AddItem"
	ShareItemActionRemoveItem ShareItemAction = "RemoveItem"
	ShareItemActionSuccess    ShareItemAction = "Success"
	ShareItemActionFailure    ShareItemAction = "Failure"
)
