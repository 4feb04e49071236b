package statemachine

import (
	"errors"
	"testing"

	"github.com/lakegate/lakegate/pkg/share/models"
)

func TestObjectTransition(t *testing.T) {
	tests := []struct {
		name    string
		current models.ShareObjectStatus
		action  models.ShareObjectAction
		want    models.ShareObjectStatus
		wantErr bool
	}{
		{"submit draft", models.ShareObjectStatusDraft, models.ShareObjectActionSubmit, models.ShareObjectStatusSubmitted, false},
		{"resubmit rejected", models.ShareObjectStatusRejected, models.ShareObjectActionSubmit, models.ShareObjectStatusSubmitted, false},
		{"submit extension rejected", models.ShareObjectStatusExtensionRejected, models.ShareObjectActionSubmit, models.ShareObjectStatusSubmitted, false},
		{"submit twice is no-op", models.ShareObjectStatusSubmitted, models.ShareObjectActionSubmit, models.ShareObjectStatusSubmitted, false},
		{"submit processed is illegal", models.ShareObjectStatusProcessed, models.ShareObjectActionSubmit, "", true},

		{"approve submitted", models.ShareObjectStatusSubmitted, models.ShareObjectActionApprove, models.ShareObjectStatusApproved, false},
		{"approve twice is no-op", models.ShareObjectStatusApproved, models.ShareObjectActionApprove, models.ShareObjectStatusApproved, false},
		{"approve draft is illegal", models.ShareObjectStatusDraft, models.ShareObjectActionApprove, "", true},

		{"reject submitted", models.ShareObjectStatusSubmitted, models.ShareObjectActionReject, models.ShareObjectStatusRejected, false},
		{"reject approved is illegal", models.ShareObjectStatusApproved, models.ShareObjectActionReject, "", true},

		{"revoke items from processed", models.ShareObjectStatusProcessed, models.ShareObjectActionRevokeItems, models.ShareObjectStatusRevoked, false},
		{"revoke items from draft", models.ShareObjectStatusDraft, models.ShareObjectActionRevokeItems, models.ShareObjectStatusRevoked, false},

		{"start approved run", models.ShareObjectStatusApproved, models.ShareObjectActionStart, models.ShareObjectStatusShareInProgress, false},
		{"start revoke run", models.ShareObjectStatusRevoked, models.ShareObjectActionStart, models.ShareObjectStatusRevokeInProgress, false},
		{"start draft is illegal", models.ShareObjectStatusDraft, models.ShareObjectActionStart, "", true},

		{"finish share run", models.ShareObjectStatusShareInProgress, models.ShareObjectActionFinish, models.ShareObjectStatusProcessed, false},
		{"finish revoke run", models.ShareObjectStatusRevokeInProgress, models.ShareObjectActionFinish, models.ShareObjectStatusProcessed, false},
		{"finish pending returns to draft", models.ShareObjectStatusRevokeInProgress, models.ShareObjectActionFinishPending, models.ShareObjectStatusDraft, false},

		{"delete processed", models.ShareObjectStatusProcessed, models.ShareObjectActionDelete, models.ShareObjectStatusDeleted, false},
		{"delete in-progress is illegal", models.ShareObjectStatusShareInProgress, models.ShareObjectActionDelete, "", true},

		{"add item returns processed to draft", models.ShareObjectStatusProcessed, models.ShareObjectActionAddItem, models.ShareObjectStatusDraft, false},
		{"add item in draft is no-op", models.ShareObjectStatusDraft, models.ShareObjectActionAddItem, models.ShareObjectStatusDraft, false},

		{"request extension", models.ShareObjectStatusProcessed, models.ShareObjectActionExtension, models.ShareObjectStatusSubmittedForExtension, false},
		{"approve extension", models.ShareObjectStatusSubmittedForExtension, models.ShareObjectActionExtensionApprove, models.ShareObjectStatusProcessed, false},
		{"reject extension", models.ShareObjectStatusSubmittedForExtension, models.ShareObjectActionExtensionReject, models.ShareObjectStatusExtensionRejected, false},
		{"cancel extension", models.ShareObjectStatusSubmittedForExtension, models.ShareObjectActionCancelExtension, models.ShareObjectStatusProcessed, false},
		{"extension from draft is illegal via approve", models.ShareObjectStatusDraft, models.ShareObjectActionExtensionApprove, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ObjectTransition(tt.current, tt.action)
			if tt.wantErr {
				if !errors.Is(err, models.ErrInvalidTransition) {
					t.Fatalf("expected ErrInvalidTransition, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestObjectActionAllowedFrom(t *testing.T) {
	tests := []struct {
		name    string
		current models.ShareObjectStatus
		action  models.ShareObjectAction
		want    bool
	}{
		{"submit from draft", models.ShareObjectStatusDraft, models.ShareObjectActionSubmit, true},
		{"submit from rejected", models.ShareObjectStatusRejected, models.ShareObjectActionSubmit, true},
		{"submit from submitted is not a source", models.ShareObjectStatusSubmitted, models.ShareObjectActionSubmit, false},
		{"submit from processed", models.ShareObjectStatusProcessed, models.ShareObjectActionSubmit, false},
		{"approve from submitted", models.ShareObjectStatusSubmitted, models.ShareObjectActionApprove, true},
		{"approve from approved is not a source", models.ShareObjectStatusApproved, models.ShareObjectActionApprove, false},
		{"unknown action", models.ShareObjectStatusDraft, models.ShareObjectAction("Teleport"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ObjectActionAllowedFrom(tt.current, tt.action); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestItemTransitionForObjectAction(t *testing.T) {
	tests := []struct {
		name    string
		current models.ShareItemStatus
		action  models.ShareObjectAction
		want    models.ShareItemStatus
		wantErr bool
	}{
		{"submit moves rejected item back to pending", models.ShareItemStatusShareRejected, models.ShareObjectActionSubmit, models.ShareItemStatusPendingApproval, false},
		{"submit moves failed item back to pending", models.ShareItemStatusShareFailed, models.ShareObjectActionSubmit, models.ShareItemStatusPendingApproval, false},
		{"submit leaves succeeded item alone", models.ShareItemStatusShareSucceeded, models.ShareObjectActionSubmit, models.ShareItemStatusShareSucceeded, false},
		{"submit leaves revoke-approved item alone", models.ShareItemStatusRevokeApproved, models.ShareObjectActionSubmit, models.ShareItemStatusRevokeApproved, false},

		{"approve pending item", models.ShareItemStatusPendingApproval, models.ShareObjectActionApprove, models.ShareItemStatusShareApproved, false},
		{"approve leaves succeeded item alone", models.ShareItemStatusShareSucceeded, models.ShareObjectActionApprove, models.ShareItemStatusShareSucceeded, false},
		{"reject pending item", models.ShareItemStatusPendingApproval, models.ShareObjectActionReject, models.ShareItemStatusShareRejected, false},

		{"start approved item", models.ShareItemStatusShareApproved, models.ShareObjectActionStart, models.ShareItemStatusShareInProgress, false},
		{"start revoke-approved item", models.ShareItemStatusRevokeApproved, models.ShareObjectActionStart, models.ShareItemStatusRevokeInProgress, false},

		{"revoke succeeded item", models.ShareItemStatusShareSucceeded, models.ShareObjectActionRevokeItems, models.ShareItemStatusRevokeApproved, false},
		{"revoke retry after failure", models.ShareItemStatusRevokeFailed, models.ShareObjectActionRevokeItems, models.ShareItemStatusRevokeApproved, false},
		{"revoke pending item is illegal", models.ShareItemStatusPendingApproval, models.ShareObjectActionRevokeItems, "", true},

		{"delete pending item", models.ShareItemStatusPendingApproval, models.ShareObjectActionDelete, models.ShareItemStatusDeleted, false},
		{"delete revoked item", models.ShareItemStatusRevokeSucceeded, models.ShareObjectActionDelete, models.ShareItemStatusDeleted, false},
		{"delete succeeded item is illegal", models.ShareItemStatusShareSucceeded, models.ShareObjectActionDelete, "", true},

		{"extension marks succeeded item", models.ShareItemStatusShareSucceeded, models.ShareObjectActionExtension, models.ShareItemStatusPendingExtension, false},
		{"extension approve restores item", models.ShareItemStatusPendingExtension, models.ShareObjectActionExtensionApprove, models.ShareItemStatusShareSucceeded, false},
		{"extension reject restores item", models.ShareItemStatusPendingExtension, models.ShareObjectActionExtensionReject, models.ShareItemStatusShareSucceeded, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ItemTransitionForObjectAction(tt.current, tt.action)
			if tt.wantErr {
				if !errors.Is(err, models.ErrInvalidTransition) {
					t.Fatalf("expected ErrInvalidTransition, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestItemTransition(t *testing.T) {
	tests := []struct {
		name    string
		current models.ShareItemStatus
		action  models.ShareItemAction
		want    models.ShareItemStatus
		wantErr bool
	}{
		{"re-add deleted item", models.ShareItemStatusDeleted, models.ShareItemActionAddItem, models.ShareItemStatusPendingApproval, false},
		{"add pending item is no-op", models.ShareItemStatusPendingApproval, models.ShareItemActionAddItem, models.ShareItemStatusPendingApproval, false},

		{"grant success", models.ShareItemStatusShareInProgress, models.ShareItemActionSuccess, models.ShareItemStatusShareSucceeded, false},
		{"revoke success", models.ShareItemStatusRevokeInProgress, models.ShareItemActionSuccess, models.ShareItemStatusRevokeSucceeded, false},
		{"success from pending is illegal", models.ShareItemStatusPendingApproval, models.ShareItemActionSuccess, "", true},

		{"grant failure", models.ShareItemStatusShareInProgress, models.ShareItemActionFailure, models.ShareItemStatusShareFailed, false},
		{"grant failure before start", models.ShareItemStatusShareApproved, models.ShareItemActionFailure, models.ShareItemStatusShareFailed, false},
		{"revoke failure", models.ShareItemStatusRevokeInProgress, models.ShareItemActionFailure, models.ShareItemStatusRevokeFailed, false},

		{"remove pending item", models.ShareItemStatusPendingApproval, models.ShareItemActionRemoveItem, models.ShareItemStatusDeleted, false},
		{"remove failed item", models.ShareItemStatusShareFailed, models.ShareItemActionRemoveItem, models.ShareItemStatusDeleted, false},
		{"remove succeeded item is illegal", models.ShareItemStatusShareSucceeded, models.ShareItemActionRemoveItem, "", true},
		{"remove in-progress item is illegal", models.ShareItemStatusShareInProgress, models.ShareItemActionRemoveItem, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ItemTransition(tt.current, tt.action)
			if tt.wantErr {
				if !errors.Is(err, models.ErrInvalidTransition) {
					t.Fatalf("expected ErrInvalidTransition, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}
