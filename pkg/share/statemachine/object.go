package statemachine

import (
	"fmt"

	"github.com/lakegate/lakegate/pkg/share/models"
)

type objStatus = models.ShareObjectStatus

// objectTransitions is the full edge set of the share object state machine.
// Built once at package init and never mutated.
var objectTransitions = map[models.ShareObjectAction]transition[objStatus]{
	models.ShareObjectActionSubmit: {
		name: string(models.ShareObjectActionSubmit),
		targets: map[objStatus][]objStatus{
			models.ShareObjectStatusSubmitted: {
				models.ShareObjectStatusDraft,
				models.ShareObjectStatusRejected,
				models.ShareObjectStatusExtensionRejected,
			},
		},
	},
	models.ShareObjectActionApprove: {
		name: string(models.ShareObjectActionApprove),
		targets: map[objStatus][]objStatus{
			models.ShareObjectStatusApproved: {models.ShareObjectStatusSubmitted},
		},
	},
	models.ShareObjectActionReject: {
		name: string(models.ShareObjectActionReject),
		targets: map[objStatus][]objStatus{
			models.ShareObjectStatusRejected: {models.ShareObjectStatusSubmitted},
		},
	},
	models.ShareObjectActionRevokeItems: {
		name: string(models.ShareObjectActionRevokeItems),
		targets: map[objStatus][]objStatus{
			models.ShareObjectStatusRevoked: {
				models.ShareObjectStatusDraft,
				models.ShareObjectStatusSubmitted,
				models.ShareObjectStatusRejected,
				models.ShareObjectStatusProcessed,
				models.ShareObjectStatusExtensionRejected,
			},
		},
	},
	models.ShareObjectActionStart: {
		name: string(models.ShareObjectActionStart),
		targets: map[objStatus][]objStatus{
			models.ShareObjectStatusShareInProgress:  {models.ShareObjectStatusApproved},
			models.ShareObjectStatusRevokeInProgress: {models.ShareObjectStatusRevoked},
		},
	},
	models.ShareObjectActionFinish: {
		name: string(models.ShareObjectActionFinish),
		targets: map[objStatus][]objStatus{
			models.ShareObjectStatusProcessed: {
				models.ShareObjectStatusShareInProgress,
				models.ShareObjectStatusRevokeInProgress,
			},
		},
	},
	models.ShareObjectActionFinishPending: {
		name: string(models.ShareObjectActionFinishPending),
		targets: map[objStatus][]objStatus{
			models.ShareObjectStatusDraft: {models.ShareObjectStatusRevokeInProgress},
		},
	},
	models.ShareObjectActionDelete: {
		name: string(models.ShareObjectActionDelete),
		targets: map[objStatus][]objStatus{
			models.ShareObjectStatusDeleted: {
				models.ShareObjectStatusRejected,
				models.ShareObjectStatusDraft,
				models.ShareObjectStatusSubmitted,
				models.ShareObjectStatusProcessed,
				models.ShareObjectStatusRevoked,
				models.ShareObjectStatusExtensionRejected,
			},
		},
	},
	models.ShareObjectActionAddItem: {
		name: string(models.ShareObjectActionAddItem),
		targets: map[objStatus][]objStatus{
			models.ShareObjectStatusDraft: {
				models.ShareObjectStatusSubmitted,
				models.ShareObjectStatusRejected,
				models.ShareObjectStatusProcessed,
				models.ShareObjectStatusExtensionRejected,
			},
		},
	},
	models.ShareObjectActionExtension: {
		name: string(models.ShareObjectActionExtension),
		targets: map[objStatus][]objStatus{
			models.ShareObjectStatusSubmittedForExtension: {
				models.ShareObjectStatusProcessed,
				models.ShareObjectStatusExtensionRejected,
				models.ShareObjectStatusDraft,
			},
		},
	},
	models.ShareObjectActionExtensionApprove: {
		name: string(models.ShareObjectActionExtensionApprove),
		targets: map[objStatus][]objStatus{
			models.ShareObjectStatusProcessed: {models.ShareObjectStatusSubmittedForExtension},
		},
	},
	models.ShareObjectActionExtensionReject: {
		name: string(models.ShareObjectActionExtensionReject),
		targets: map[objStatus][]objStatus{
			models.ShareObjectStatusExtensionRejected: {models.ShareObjectStatusSubmittedForExtension},
		},
	},
	models.ShareObjectActionCancelExtension: {
		name: string(models.ShareObjectActionCancelExtension),
		targets: map[objStatus][]objStatus{
			models.ShareObjectStatusProcessed: {models.ShareObjectStatusSubmittedForExtension},
		},
	},
}

// ObjectTransition computes the share object status reached by applying
// action from current. Returns current unchanged when the object is already
// in the action's target state, or ErrInvalidTransition for illegal edges.
func ObjectTransition(current models.ShareObjectStatus, action models.ShareObjectAction) (models.ShareObjectStatus, error) {
	t, ok := objectTransitions[action]
	if !ok {
		return "", fmt.Errorf("%w: unknown object action %s", models.ErrInvalidTransition, action)
	}
	return t.run(current)
}

// ObjectActionAllowedFrom reports whether current is a source state of
// action. It is stricter than ObjectTransition: a share already sitting at
// the action's target is not allowed, so user-facing operations like submit
// reject repeats instead of silently no-opping.
func ObjectActionAllowedFrom(current models.ShareObjectStatus, action models.ShareObjectAction) bool {
	t, ok := objectTransitions[action]
	if !ok {
		return false
	}
	return t.isSource(current)
}
