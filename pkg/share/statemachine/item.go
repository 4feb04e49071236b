package statemachine

import (
	"fmt"

	"github.com/lakegate/lakegate/pkg/share/models"
)

type itemStatus = models.ShareItemStatus

// itemObjectTransitions are item edges driven by object-level actions.
// Object actions apply to every item in the share; the self-targets keep
// already-provisioned items in place during Submit/Approve/Reject.
var itemObjectTransitions = map[models.ShareObjectAction]transition[itemStatus]{
	models.ShareObjectActionSubmit: {
		name: string(models.ShareObjectActionSubmit),
		targets: map[itemStatus][]itemStatus{
			models.ShareItemStatusPendingApproval: {
				models.ShareItemStatusShareRejected,
				models.ShareItemStatusShareFailed,
			},
			models.ShareItemStatusRevokeApproved:   {},
			models.ShareItemStatusRevokeFailed:     {},
			models.ShareItemStatusShareApproved:    {},
			models.ShareItemStatusShareSucceeded:   {},
			models.ShareItemStatusRevokeSucceeded:  {},
			models.ShareItemStatusShareInProgress:  {},
			models.ShareItemStatusRevokeInProgress: {},
		},
	},
	models.ShareObjectActionApprove: {
		name: string(models.ShareObjectActionApprove),
		targets: map[itemStatus][]itemStatus{
			models.ShareItemStatusShareApproved:    {models.ShareItemStatusPendingApproval},
			models.ShareItemStatusRevokeApproved:   {},
			models.ShareItemStatusRevokeFailed:     {},
			models.ShareItemStatusShareSucceeded:   {},
			models.ShareItemStatusRevokeSucceeded:  {},
			models.ShareItemStatusShareInProgress:  {},
			models.ShareItemStatusRevokeInProgress: {},
		},
	},
	models.ShareObjectActionReject: {
		name: string(models.ShareObjectActionReject),
		targets: map[itemStatus][]itemStatus{
			models.ShareItemStatusShareRejected:    {models.ShareItemStatusPendingApproval},
			models.ShareItemStatusRevokeApproved:   {},
			models.ShareItemStatusRevokeFailed:     {},
			models.ShareItemStatusShareSucceeded:   {},
			models.ShareItemStatusRevokeSucceeded:  {},
			models.ShareItemStatusShareInProgress:  {},
			models.ShareItemStatusRevokeInProgress: {},
		},
	},
	models.ShareObjectActionStart: {
		name: string(models.ShareObjectActionStart),
		targets: map[itemStatus][]itemStatus{
			models.ShareItemStatusShareInProgress:  {models.ShareItemStatusShareApproved},
			models.ShareItemStatusRevokeInProgress: {models.ShareItemStatusRevokeApproved},
			models.ShareItemStatusPendingApproval:  {},
			models.ShareItemStatusPendingExtension: {},
			models.ShareItemStatusShareRejected:    {},
			models.ShareItemStatusShareSucceeded:   {},
			models.ShareItemStatusShareFailed:      {},
			models.ShareItemStatusRevokeSucceeded:  {},
			models.ShareItemStatusRevokeFailed:     {},
		},
	},
	models.ShareObjectActionRevokeItems: {
		name: string(models.ShareObjectActionRevokeItems),
		targets: map[itemStatus][]itemStatus{
			models.ShareItemStatusRevokeApproved: {
				models.ShareItemStatusShareSucceeded,
				models.ShareItemStatusRevokeFailed,
			},
		},
	},
	models.ShareObjectActionDelete: {
		name: string(models.ShareObjectActionDelete),
		targets: map[itemStatus][]itemStatus{
			models.ShareItemStatusDeleted: {
				models.ShareItemStatusPendingApproval,
				models.ShareItemStatusShareRejected,
				models.ShareItemStatusShareFailed,
				models.ShareItemStatusRevokeSucceeded,
			},
		},
	},
	models.ShareObjectActionExtension: {
		name: string(models.ShareObjectActionExtension),
		targets: map[itemStatus][]itemStatus{
			models.ShareItemStatusPendingExtension: {models.ShareItemStatusShareSucceeded},
			models.ShareItemStatusPendingApproval:  {},
			models.ShareItemStatusShareRejected:    {},
			models.ShareItemStatusShareFailed:      {},
			models.ShareItemStatusRevokeSucceeded:  {},
			models.ShareItemStatusRevokeFailed:     {},
		},
	},
	models.ShareObjectActionExtensionApprove: {
		name: string(models.ShareObjectActionExtensionApprove),
		targets: map[itemStatus][]itemStatus{
			models.ShareItemStatusShareSucceeded:  {models.ShareItemStatusPendingExtension},
			models.ShareItemStatusPendingApproval: {},
			models.ShareItemStatusShareRejected:   {},
			models.ShareItemStatusShareFailed:     {},
			models.ShareItemStatusRevokeSucceeded: {},
			models.ShareItemStatusRevokeFailed:    {},
		},
	},
	models.ShareObjectActionExtensionReject: {
		name: string(models.ShareObjectActionExtensionReject),
		targets: map[itemStatus][]itemStatus{
			models.ShareItemStatusShareSucceeded:  {models.ShareItemStatusPendingExtension},
			models.ShareItemStatusPendingApproval: {},
			models.ShareItemStatusShareRejected:   {},
			models.ShareItemStatusShareFailed:     {},
			models.ShareItemStatusRevokeSucceeded: {},
			models.ShareItemStatusRevokeFailed:    {},
		},
	},
	models.ShareObjectActionCancelExtension: {
		name: string(models.ShareObjectActionCancelExtension),
		targets: map[itemStatus][]itemStatus{
			models.ShareItemStatusShareSucceeded:  {models.ShareItemStatusPendingExtension},
			models.ShareItemStatusPendingApproval: {},
			models.ShareItemStatusShareRejected:   {},
			models.ShareItemStatusShareFailed:     {},
			models.ShareItemStatusRevokeSucceeded: {},
			models.ShareItemStatusRevokeFailed:    {},
		},
	},
}

// itemTransitions are item-scoped actions.
var itemTransitions = map[models.ShareItemAction]transition[itemStatus]{
	models.ShareItemActionAddItem: {
		name: string(models.ShareItemActionAddItem),
		targets: map[itemStatus][]itemStatus{
			models.ShareItemStatusPendingApproval: {models.ShareItemStatusDeleted},
		},
	},
	models.ShareItemActionSuccess: {
		name: string(models.ShareItemActionSuccess),
		targets: map[itemStatus][]itemStatus{
			models.ShareItemStatusShareSucceeded:  {models.ShareItemStatusShareInProgress},
			models.ShareItemStatusRevokeSucceeded: {models.ShareItemStatusRevokeInProgress},
		},
	},
	models.ShareItemActionFailure: {
		name: string(models.ShareItemActionFailure),
		targets: map[itemStatus][]itemStatus{
			models.ShareItemStatusShareFailed: {
				models.ShareItemStatusShareInProgress,
				models.ShareItemStatusShareApproved,
			},
			models.ShareItemStatusRevokeFailed: {
				models.ShareItemStatusRevokeInProgress,
				models.ShareItemStatusRevokeApproved,
			},
		},
	},
	models.ShareItemActionRemoveItem: {
		name: string(models.ShareItemActionRemoveItem),
		targets: map[itemStatus][]itemStatus{
			models.ShareItemStatusDeleted: {
				models.ShareItemStatusPendingApproval,
				models.ShareItemStatusShareRejected,
				models.ShareItemStatusShareFailed,
				models.ShareItemStatusRevokeSucceeded,
			},
		},
	},
}

// ItemTransitionForObjectAction computes the item status reached when an
// object-level action cascades onto an item in state current. Object
// actions without an item table (Finish, FinishPending) leave items
// untouched.
func ItemTransitionForObjectAction(current models.ShareItemStatus, action models.ShareObjectAction) (models.ShareItemStatus, error) {
	t, ok := itemObjectTransitions[action]
	if !ok {
		return current, nil
	}
	return t.run(current)
}

// ItemTransition computes the item status reached by an item-scoped action.
func ItemTransition(current models.ShareItemStatus, action models.ShareItemAction) (models.ShareItemStatus, error) {
	t, ok := itemTransitions[action]
	if !ok {
		return "", fmt.Errorf("%w: unknown item action %s", models.ErrInvalidTransition, action)
	}
	return t.run(current)
}
