package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/lakegate/lakegate/internal/logger"
	"github.com/lakegate/lakegate/pkg/share/dispatch"
	"github.com/lakegate/lakegate/pkg/share/models"
	"github.com/lakegate/lakegate/pkg/share/statemachine"
	"github.com/lakegate/lakegate/pkg/share/store"
)

// CreateShareInput describes a new share request.
type CreateShareInput struct {
	DatasetURI     string
	EnvironmentURI string
	GroupURI       string

	PrincipalID       string
	PrincipalType     models.PrincipalType
	PrincipalRoleName string

	Permissions      []string
	RequestPurpose   string
	ExpirationPeriod int
	NonExpirable     bool
}

// CreateShare creates a share object in Draft and attaches the requester
// and approver resource policies.
func (s *Service) CreateShare(ctx context.Context, principal Principal, input CreateShareInput) (*models.ShareObject, error) {
	dataset, err := s.store.GetDataset(ctx, input.DatasetURI)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetEnvironment(ctx, input.EnvironmentURI); err != nil {
		return nil, err
	}

	// The requesting group must be onboarded onto the target environment.
	group, err := s.store.GetEnvironmentGroup(ctx, input.GroupURI, input.EnvironmentURI)
	if err != nil {
		return nil, err
	}

	principalID := input.PrincipalID
	roleName := input.PrincipalRoleName
	if input.PrincipalType == models.PrincipalTypeGroup {
		principalID = group.IAMRoleARN
		roleName = group.IAMRoleName
	}

	existing, err := s.store.FindShare(ctx, input.DatasetURI, input.EnvironmentURI, input.GroupURI, principalID)
	if err == nil {
		return nil, fmt.Errorf("%w: %s", models.ErrShareAlreadyExists, existing.ShareURI)
	}
	if !errors.Is(err, models.ErrShareNotFound) {
		return nil, err
	}

	if dataset.EnableExpiration && !input.NonExpirable {
		if err := validateExpirationPeriod(dataset, input.ExpirationPeriod); err != nil {
			return nil, err
		}
	}

	share := &models.ShareObject{
		ShareURI:              uuid.NewString(),
		DatasetURI:            input.DatasetURI,
		EnvironmentURI:        input.EnvironmentURI,
		GroupURI:              input.GroupURI,
		PrincipalID:           principalID,
		PrincipalType:         input.PrincipalType,
		PrincipalRoleName:     roleName,
		Permissions:           models.StringList(input.Permissions),
		Status:                models.ShareObjectStatusDraft,
		Owner:                 principal.Username,
		RequestPurpose:        input.RequestPurpose,
		NonExpirable:          input.NonExpirable,
		ShareExpirationPeriod: input.ExpirationPeriod,
	}
	if err := s.store.CreateShare(ctx, share); err != nil {
		return nil, err
	}

	if err := s.store.AttachResourcePolicy(ctx, input.GroupURI, share.ShareURI, models.ShareObjectRequesterPermissions()); err != nil {
		return nil, err
	}
	for _, approver := range s.approverGroups(dataset) {
		if err := s.store.AttachResourcePolicy(ctx, approver, share.ShareURI, models.ShareObjectApproverPermissions()); err != nil {
			return nil, err
		}
	}

	logger.InfoCtx(ctx, "share created", logger.ShareAttrs(share.ShareURI, share.DatasetURI)...)
	return share, nil
}

// GetShare returns a share with its items after an authorization check.
func (s *Service) GetShare(ctx context.Context, principal Principal, shareURI string) (*models.ShareObject, error) {
	if err := s.authorizer.Check(ctx, principal, shareURI, models.PermissionGetShareObject); err != nil {
		return nil, err
	}
	return s.store.GetShareWithItems(ctx, shareURI)
}

// ListShares lists shares visible through the filter.
func (s *Service) ListShares(ctx context.Context, filter store.ShareFilter) ([]*models.ShareObject, error) {
	return s.store.ListShares(ctx, filter)
}

// SubmitShare moves a draft to Submitted and notifies the approvers. With
// dataset auto-approval the share is immediately approved and dispatched.
func (s *Service) SubmitShare(ctx context.Context, principal Principal, shareURI string) (*models.ShareObject, error) {
	if err := s.authorizer.Check(ctx, principal, shareURI, models.PermissionSubmitShareObject); err != nil {
		return nil, err
	}

	share, err := s.store.GetShare(ctx, shareURI)
	if err != nil {
		return nil, err
	}
	// A resubmit of an already-submitted share is a user error, not a no-op.
	if !statemachine.ObjectActionAllowedFrom(share.Status, models.ShareObjectActionSubmit) {
		return nil, fmt.Errorf("%w: action %s from state %s",
			models.ErrInvalidTransition, models.ShareObjectActionSubmit, share.Status)
	}

	pending, err := s.store.CountItemsInStatus(ctx, shareURI, models.ShareItemStatusPendingApproval)
	if err != nil {
		return nil, err
	}
	if pending == 0 {
		return nil, fmt.Errorf("%w: add items before submitting share %s",
			models.ErrShareItemsNotFound, shareURI)
	}

	share, err = s.transitionObject(ctx, shareURI, models.ShareObjectActionSubmit)
	if err != nil {
		return nil, err
	}

	dataset, err := s.store.GetDataset(ctx, share.DatasetURI)
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, models.NotificationShareObjectSubmitted, share,
		fmt.Sprintf("Share request %s submitted by %s", share.ShareURI, principal.Username),
		s.approverGroups(dataset)...)

	if dataset.AutoApprovalEnabled {
		return s.approve(ctx, principal, share, dataset)
	}
	return share, nil
}

// ApproveShare approves a submitted share and dispatches provisioning.
func (s *Service) ApproveShare(ctx context.Context, principal Principal, shareURI string) (*models.ShareObject, error) {
	if err := s.authorizer.Check(ctx, principal, shareURI, models.PermissionApproveShareObject); err != nil {
		return nil, err
	}

	share, err := s.store.GetShare(ctx, shareURI)
	if err != nil {
		return nil, err
	}
	dataset, err := s.store.GetDataset(ctx, share.DatasetURI)
	if err != nil {
		return nil, err
	}
	return s.approve(ctx, principal, share, dataset)
}

func (s *Service) approve(ctx context.Context, principal Principal, share *models.ShareObject, dataset *models.Dataset) (*models.ShareObject, error) {
	share, err := s.transitionObject(ctx, share.ShareURI, models.ShareObjectActionApprove)
	if err != nil {
		return nil, err
	}

	// Expiry starts counting at approval, on period boundaries.
	if dataset.EnableExpiration && !share.NonExpirable && share.ExpiryDate == nil && share.ShareExpirationPeriod > 0 {
		expiry, err := expiryDate(dataset.ExpirySetting, share.ShareExpirationPeriod, s.now())
		if err != nil {
			return nil, err
		}
		share.ExpiryDate = &expiry
		if err := s.store.UpdateShare(ctx, share); err != nil {
			return nil, err
		}
	}

	s.notifier.Notify(ctx, models.NotificationShareObjectApproved, share,
		fmt.Sprintf("Share request %s approved by %s", share.ShareURI, principal.Username),
		share.GroupURI, share.Owner)

	if err := s.dispatcher.Dispatch(ctx, dispatch.HandlerApprove, share.ShareURI); err != nil {
		return nil, fmt.Errorf("failed to dispatch share run: %w", err)
	}
	return share, nil
}

// RejectShare rejects a submitted share with a reason.
func (s *Service) RejectShare(ctx context.Context, principal Principal, shareURI, reason string) (*models.ShareObject, error) {
	if err := s.authorizer.Check(ctx, principal, shareURI, models.PermissionRejectShareObject); err != nil {
		return nil, err
	}

	share, err := s.transitionObject(ctx, shareURI, models.ShareObjectActionReject)
	if err != nil {
		return nil, err
	}

	if reason != "" {
		share.RejectPurpose = reason
		if err := s.store.UpdateShare(ctx, share); err != nil {
			return nil, err
		}
	}

	s.notifier.Notify(ctx, models.NotificationShareObjectRejected, share,
		fmt.Sprintf("Share request %s rejected by %s", share.ShareURI, principal.Username),
		share.GroupURI, share.Owner)
	return share, nil
}

// RevokeItems marks the named items for revocation and dispatches the
// revoke run. Requesters and approvers may both revoke.
func (s *Service) RevokeItems(ctx context.Context, principal Principal, shareURI string, itemURIs []string) (*models.ShareObject, error) {
	if err := s.authorizer.Check(ctx, principal, shareURI, models.PermissionSubmitShareObject); err != nil {
		if approverErr := s.authorizer.Check(ctx, principal, shareURI, models.PermissionApproveShareObject); approverErr != nil {
			return nil, err
		}
	}
	if len(itemURIs) == 0 {
		return nil, fmt.Errorf("%w: no items to revoke", models.ErrShareItemsNotFound)
	}

	share, err := s.store.GetShare(ctx, shareURI)
	if err != nil {
		return nil, err
	}

	// Validate every item before mutating anything.
	for _, itemURI := range itemURIs {
		item, err := s.store.GetItem(ctx, itemURI)
		if err != nil {
			return nil, err
		}
		if item.ShareURI != shareURI {
			return nil, fmt.Errorf("%w: %s does not belong to share %s", models.ErrShareItemNotFound, itemURI, shareURI)
		}
		if _, err := statemachine.ItemTransitionForObjectAction(item.Status, models.ShareObjectActionRevokeItems); err != nil {
			return nil, err
		}
	}

	next, err := statemachine.ObjectTransition(share.Status, models.ShareObjectActionRevokeItems)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateShareStatus(ctx, shareURI, next); err != nil {
		return nil, err
	}
	share.Status = next

	if err := s.store.UpdateItemsStatusForURIs(ctx, itemURIs, models.ShareItemStatusRevokeApproved); err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, models.NotificationShareObjectRevoked, share,
		fmt.Sprintf("%d item(s) of share %s marked for revocation by %s", len(itemURIs), share.ShareURI, principal.Username),
		share.GroupURI, share.Owner)

	if err := s.dispatcher.Dispatch(ctx, dispatch.HandlerRevoke, shareURI); err != nil {
		return nil, fmt.Errorf("failed to dispatch revoke run: %w", err)
	}
	return share, nil
}

// DeleteShare soft-deletes a share. Shares with live grants must be
// revoked first.
func (s *Service) DeleteShare(ctx context.Context, principal Principal, shareURI string) error {
	if err := s.authorizer.Check(ctx, principal, shareURI, models.PermissionDeleteShareObject); err != nil {
		return err
	}

	share, err := s.store.GetShare(ctx, shareURI)
	if err != nil {
		return err
	}

	live, err := s.store.CountItemsInStatus(ctx, shareURI, models.SharedItemStatuses()...)
	if err != nil {
		return err
	}
	if live > 0 {
		return fmt.Errorf("cannot delete share %s: %d item(s) still shared or in flight", shareURI, live)
	}

	if _, err := statemachine.ObjectTransition(share.Status, models.ShareObjectActionDelete); err != nil {
		return err
	}

	items, err := s.store.ListItems(ctx, shareURI)
	if err != nil {
		return err
	}
	for _, item := range items {
		if err := s.store.DeleteItem(ctx, item.ShareItemURI); err != nil {
			return err
		}
	}
	if err := s.store.DeleteShare(ctx, shareURI); err != nil {
		return err
	}

	if err := s.store.DetachResourcePolicies(ctx, share.GroupURI, shareURI); err != nil {
		return err
	}

	s.notifier.Notify(ctx, models.NotificationShareObjectDeleted, share,
		fmt.Sprintf("Share %s deleted by %s", share.ShareURI, principal.Username),
		share.GroupURI, share.Owner)

	logger.InfoCtx(ctx, "share deleted", logger.ShareAttrs(share.ShareURI, share.DatasetURI)...)
	return nil
}

// RequestExtension asks for more time on an expiring share.
func (s *Service) RequestExtension(ctx context.Context, principal Principal, shareURI string, periods int, reason string) (*models.ShareObject, error) {
	if err := s.authorizer.Check(ctx, principal, shareURI, models.PermissionSubmitShareObject); err != nil {
		return nil, err
	}

	share, err := s.store.GetShare(ctx, shareURI)
	if err != nil {
		return nil, err
	}
	if share.NonExpirable {
		return nil, fmt.Errorf("share %s does not expire", shareURI)
	}

	dataset, err := s.store.GetDataset(ctx, share.DatasetURI)
	if err != nil {
		return nil, err
	}
	if err := validateExpirationPeriod(dataset, periods); err != nil {
		return nil, err
	}

	share, err = s.transitionObject(ctx, shareURI, models.ShareObjectActionExtension)
	if err != nil {
		return nil, err
	}

	requested, err := expiryDate(dataset.ExpirySetting, periods, s.now())
	if err != nil {
		return nil, err
	}
	share.RequestedExpiryDate = &requested
	share.ExtensionReason = reason
	if err := s.store.UpdateShare(ctx, share); err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, models.NotificationShareObjectExtensionRequest, share,
		fmt.Sprintf("Extension of share %s requested by %s", share.ShareURI, principal.Username),
		s.approverGroups(dataset)...)
	return share, nil
}

// ApproveExtension accepts the requested expiry date.
func (s *Service) ApproveExtension(ctx context.Context, principal Principal, shareURI string) (*models.ShareObject, error) {
	if err := s.authorizer.Check(ctx, principal, shareURI, models.PermissionApproveShareObject); err != nil {
		return nil, err
	}

	share, err := s.transitionObject(ctx, shareURI, models.ShareObjectActionExtensionApprove)
	if err != nil {
		return nil, err
	}

	now := s.now()
	share.ExpiryDate = share.RequestedExpiryDate
	share.RequestedExpiryDate = nil
	share.LastExtensionDate = &now
	share.ExtensionReason = ""
	if err := s.store.UpdateShare(ctx, share); err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, models.NotificationShareObjectExtensionApproved, share,
		fmt.Sprintf("Extension of share %s approved by %s", share.ShareURI, principal.Username),
		share.GroupURI, share.Owner)
	return share, nil
}

// RejectExtension declines the requested expiry date; the current one
// stands.
func (s *Service) RejectExtension(ctx context.Context, principal Principal, shareURI, reason string) (*models.ShareObject, error) {
	if err := s.authorizer.Check(ctx, principal, shareURI, models.PermissionRejectShareObject); err != nil {
		return nil, err
	}

	share, err := s.transitionObject(ctx, shareURI, models.ShareObjectActionExtensionReject)
	if err != nil {
		return nil, err
	}

	share.RequestedExpiryDate = nil
	share.RejectPurpose = reason
	if err := s.store.UpdateShare(ctx, share); err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, models.NotificationShareObjectExtensionRejected, share,
		fmt.Sprintf("Extension of share %s rejected by %s", share.ShareURI, principal.Username),
		share.GroupURI, share.Owner)
	return share, nil
}

// CancelExtension withdraws a pending extension request.
func (s *Service) CancelExtension(ctx context.Context, principal Principal, shareURI string) (*models.ShareObject, error) {
	if err := s.authorizer.Check(ctx, principal, shareURI, models.PermissionSubmitShareObject); err != nil {
		return nil, err
	}

	share, err := s.transitionObject(ctx, shareURI, models.ShareObjectActionCancelExtension)
	if err != nil {
		return nil, err
	}

	share.RequestedExpiryDate = nil
	share.ExtensionReason = ""
	if err := s.store.UpdateShare(ctx, share); err != nil {
		return nil, err
	}
	return share, nil
}

// UpdateRequestPurpose edits the free-text purpose of a share request.
func (s *Service) UpdateRequestPurpose(ctx context.Context, principal Principal, shareURI, purpose string) (*models.ShareObject, error) {
	if err := s.authorizer.Check(ctx, principal, shareURI, models.PermissionGetShareObject); err != nil {
		return nil, err
	}

	share, err := s.store.GetShare(ctx, shareURI)
	if err != nil {
		return nil, err
	}
	share.RequestPurpose = purpose
	if err := s.store.UpdateShare(ctx, share); err != nil {
		return nil, err
	}
	return share, nil
}

// transitionObject applies an object action and cascades to every item
// the action moves.
func (s *Service) transitionObject(ctx context.Context, shareURI string, action models.ShareObjectAction) (*models.ShareObject, error) {
	share, err := s.store.GetShare(ctx, shareURI)
	if err != nil {
		return nil, err
	}

	next, err := statemachine.ObjectTransition(share.Status, action)
	if err != nil {
		return nil, err
	}

	items, err := s.store.ListItems(ctx, shareURI)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		itemNext, err := statemachine.ItemTransitionForObjectAction(item.Status, action)
		if err != nil {
			return nil, fmt.Errorf("item %s: %w", item.ShareItemURI, err)
		}
		if itemNext == item.Status {
			continue
		}
		if err := s.store.UpdateItemStatus(ctx, item.ShareItemURI, itemNext); err != nil {
			return nil, err
		}
	}

	if next != share.Status {
		if err := s.store.UpdateShareStatus(ctx, shareURI, next); err != nil {
			return nil, err
		}
		logger.InfoCtx(ctx, "share transitioned",
			logger.KeyShareURI, shareURI,
			logger.KeyAction, string(action),
			logger.KeyStatus, string(next))
	}
	share.Status = next
	return share, nil
}

func (s *Service) approverGroups(dataset *models.Dataset) []string {
	groups := []string{dataset.AdminGroupURI}
	if dataset.StewardsGroupURI != "" && dataset.StewardsGroupURI != dataset.AdminGroupURI {
		groups = append(groups, dataset.StewardsGroupURI)
	}
	return groups
}
