package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/lakegate/lakegate/internal/logger"
	"github.com/lakegate/lakegate/pkg/share/dispatch"
	"github.com/lakegate/lakegate/pkg/share/models"
	"github.com/lakegate/lakegate/pkg/share/statemachine"
	"github.com/lakegate/lakegate/pkg/share/store"
)

// AddItemInput describes a resource to attach to a share.
type AddItemInput struct {
	ItemType   models.ShareableType
	ItemURI    string
	ItemName   string
	Permission models.SharePermission
}

// AddItem attaches a resource to a share. Adding to a processed share
// moves the object back to Draft so the new item goes through approval.
func (s *Service) AddItem(ctx context.Context, principal Principal, shareURI string, input AddItemInput) (*models.ShareObjectItem, error) {
	if err := s.authorizer.Check(ctx, principal, shareURI, models.PermissionAddItem); err != nil {
		return nil, err
	}

	// Only types with a registered processor are shareable.
	if _, err := s.registry.Get(input.ItemType); err != nil {
		return nil, err
	}

	share, err := s.store.GetShare(ctx, shareURI)
	if err != nil {
		return nil, err
	}

	// Cross-account only for catalog tables: the target principal reaches
	// same-account tables directly, a share would mask that.
	if input.ItemType == models.ShareableTypeTable {
		dataset, err := s.store.GetDataset(ctx, share.DatasetURI)
		if err != nil {
			return nil, err
		}
		sourceEnv, err := s.store.GetEnvironment(ctx, dataset.EnvironmentURI)
		if err != nil {
			return nil, err
		}
		targetEnv, err := s.store.GetEnvironment(ctx, share.EnvironmentURI)
		if err != nil {
			return nil, err
		}
		if sourceEnv.AccountID == targetEnv.AccountID && sourceEnv.Region == targetEnv.Region {
			return nil, fmt.Errorf("%w: table %s is already reachable in account %s",
				models.ErrSameAccountShare, input.ItemName, targetEnv.AccountID)
		}
	}

	// Re-adding a previously removed target revives the row instead of
	// duplicating it.
	if existing, err := s.store.FindItemByTarget(ctx, shareURI, input.ItemURI); err == nil {
		next, err := statemachine.ItemTransition(existing.Status, models.ShareItemActionAddItem)
		if err != nil {
			return nil, err
		}
		if next != existing.Status {
			if err := s.store.UpdateItemStatus(ctx, existing.ShareItemURI, next); err != nil {
				return nil, err
			}
			existing.Status = next
		}
		if _, err := s.transitionObject(ctx, shareURI, models.ShareObjectActionAddItem); err != nil {
			return nil, err
		}
		return existing, nil
	}

	if _, err := statemachine.ObjectTransition(share.Status, models.ShareObjectActionAddItem); err != nil {
		return nil, err
	}

	item := &models.ShareObjectItem{
		ShareItemURI: uuid.NewString(),
		ShareURI:     shareURI,
		ItemType:     input.ItemType,
		ItemURI:      input.ItemURI,
		ItemName:     input.ItemName,
		Permission:   input.Permission,
		Status:       models.ShareItemStatusPendingApproval,
		Owner:        principal.Username,
	}
	if err := s.store.CreateItem(ctx, item); err != nil {
		return nil, err
	}

	if _, err := s.transitionObject(ctx, shareURI, models.ShareObjectActionAddItem); err != nil {
		return nil, err
	}

	logger.InfoCtx(ctx, "share item added",
		logger.ItemAttrs(shareURI, item.ShareItemURI, string(item.ItemType))...)
	return item, nil
}

// RemoveItem detaches a resource that is not currently shared.
func (s *Service) RemoveItem(ctx context.Context, principal Principal, shareURI, itemURI string) error {
	if err := s.authorizer.Check(ctx, principal, shareURI, models.PermissionRemoveItem); err != nil {
		return err
	}

	item, err := s.store.GetItem(ctx, itemURI)
	if err != nil {
		return err
	}
	if item.ShareURI != shareURI {
		return fmt.Errorf("%w: %s does not belong to share %s", models.ErrShareItemNotFound, itemURI, shareURI)
	}

	if _, err := statemachine.ItemTransition(item.Status, models.ShareItemActionRemoveItem); err != nil {
		return err
	}

	filters, err := s.store.ListDataFilters(ctx, itemURI)
	if err != nil {
		return err
	}
	for _, filter := range filters {
		if err := s.store.DeleteDataFilter(ctx, filter.AttachedDataFilterURI); err != nil {
			return err
		}
	}

	if err := s.store.UpdateItemStatus(ctx, itemURI, models.ShareItemStatusDeleted); err != nil {
		return err
	}
	return s.store.DeleteItem(ctx, itemURI)
}

// AttachDataFilterInput scopes a table item to a subset of rows/columns.
type AttachDataFilterInput struct {
	Label           string
	DataFilterURIs  []string
	DataFilterNames []string
}

// AttachDataFilter attaches a row-level filter to a table item. Labels are
// unique per item.
func (s *Service) AttachDataFilter(ctx context.Context, principal Principal, shareURI, itemURI string, input AttachDataFilterInput) (*models.ShareObjectItemDataFilter, error) {
	if err := s.authorizer.Check(ctx, principal, shareURI, models.PermissionAddItem); err != nil {
		return nil, err
	}

	item, err := s.store.GetItem(ctx, itemURI)
	if err != nil {
		return nil, err
	}
	if item.ShareURI != shareURI {
		return nil, fmt.Errorf("%w: %s does not belong to share %s", models.ErrShareItemNotFound, itemURI, shareURI)
	}
	if item.ItemType != models.ShareableTypeTable {
		return nil, fmt.Errorf("data filters apply to table items only, got %s", item.ItemType)
	}

	filter := &models.ShareObjectItemDataFilter{
		AttachedDataFilterURI: uuid.NewString(),
		ShareItemURI:          itemURI,
		Label:                 input.Label,
		DataFilterURIs:        models.StringList(input.DataFilterURIs),
		DataFilterNames:       models.StringList(input.DataFilterNames),
	}
	if err := s.store.CreateDataFilter(ctx, filter); err != nil {
		return nil, err
	}

	uri := filter.AttachedDataFilterURI
	if err := s.store.SetItemDataFilter(ctx, itemURI, &uri); err != nil {
		return nil, err
	}
	return filter, nil
}

// RemoveDataFilter detaches a data filter from a table item.
func (s *Service) RemoveDataFilter(ctx context.Context, principal Principal, shareURI, itemURI, filterURI string) error {
	if err := s.authorizer.Check(ctx, principal, shareURI, models.PermissionRemoveItem); err != nil {
		return err
	}

	item, err := s.store.GetItem(ctx, itemURI)
	if err != nil {
		return err
	}
	if item.ShareURI != shareURI {
		return fmt.Errorf("%w: %s does not belong to share %s", models.ErrShareItemNotFound, itemURI, shareURI)
	}

	filter, err := s.store.GetDataFilter(ctx, filterURI)
	if err != nil {
		return err
	}
	if filter.ShareItemURI != itemURI {
		return fmt.Errorf("%w: %s is not attached to item %s", models.ErrDataFilterNotFound, filterURI, itemURI)
	}

	if err := s.store.DeleteDataFilter(ctx, filterURI); err != nil {
		return err
	}
	if item.AttachedDataFilterURI != nil && *item.AttachedDataFilterURI == filterURI {
		return s.store.SetItemDataFilter(ctx, itemURI, nil)
	}
	return nil
}

// VerifyItems flags the named items (or every succeeded item when none are
// named) for verification and dispatches the verify run.
func (s *Service) VerifyItems(ctx context.Context, principal Principal, shareURI string, itemURIs []string) error {
	if err := s.authorizer.Check(ctx, principal, shareURI, models.PermissionGetShareObject); err != nil {
		return err
	}

	uris, err := s.resolveSucceededItems(ctx, shareURI, itemURIs)
	if err != nil {
		return err
	}
	if err := s.store.MarkItemsHealth(ctx, uris, models.ShareItemHealthStatusPendingVerify); err != nil {
		return err
	}
	return s.dispatcher.Dispatch(ctx, dispatch.HandlerVerify, shareURI)
}

// ReapplyItems flags unhealthy items for remediation and dispatches the
// re-apply run.
func (s *Service) ReapplyItems(ctx context.Context, principal Principal, shareURI string, itemURIs []string) error {
	if err := s.authorizer.Check(ctx, principal, shareURI, models.PermissionApproveShareObject); err != nil {
		return err
	}

	uris, err := s.resolveSucceededItems(ctx, shareURI, itemURIs)
	if err != nil {
		return err
	}
	if err := s.store.MarkItemsHealth(ctx, uris, models.ShareItemHealthStatusPendingReApply); err != nil {
		return err
	}
	return s.dispatcher.Dispatch(ctx, dispatch.HandlerReapply, shareURI)
}

// ReapplyDataset dispatches one re-apply run per share of the dataset that
// holds unhealthy items. Reserved for the dataset's admin and steward teams;
// the bulk trigger exists for backend incidents that drift many shares at
// once.
func (s *Service) ReapplyDataset(ctx context.Context, principal Principal, datasetURI string) (int, error) {
	dataset, err := s.store.GetDataset(ctx, datasetURI)
	if err != nil {
		return 0, err
	}

	allowed := false
	for _, group := range s.approverGroups(dataset) {
		if slices.Contains(principal.Groups, group) {
			allowed = true
			break
		}
	}
	if !allowed {
		return 0, fmt.Errorf("%w: %s requires dataset administration on %s",
			models.ErrUnauthorized, principal.Username, datasetURI)
	}

	shares, err := s.store.ListShares(ctx, store.ShareFilter{DatasetURI: datasetURI})
	if err != nil {
		return 0, err
	}

	dispatched := 0
	for _, share := range shares {
		items, err := s.store.ListItemsByHealth(ctx, share.ShareURI, models.ShareItemHealthStatusUnhealthy)
		if err != nil {
			return dispatched, err
		}
		if len(items) == 0 {
			continue
		}

		itemURIs := make([]string, 0, len(items))
		for _, item := range items {
			itemURIs = append(itemURIs, item.ShareItemURI)
		}
		if err := s.store.MarkItemsHealth(ctx, itemURIs, models.ShareItemHealthStatusPendingReApply); err != nil {
			return dispatched, err
		}
		if err := s.dispatcher.Dispatch(ctx, dispatch.HandlerReapply, share.ShareURI); err != nil {
			return dispatched, err
		}
		dispatched++
	}

	logger.InfoCtx(ctx, "dataset remediation dispatched",
		logger.KeyDataset, datasetURI,
		logger.KeyCount, dispatched)
	return dispatched, nil
}

func (s *Service) resolveSucceededItems(ctx context.Context, shareURI string, itemURIs []string) ([]string, error) {
	if len(itemURIs) > 0 {
		for _, itemURI := range itemURIs {
			item, err := s.store.GetItem(ctx, itemURI)
			if err != nil {
				return nil, err
			}
			if item.ShareURI != shareURI {
				return nil, fmt.Errorf("%w: %s does not belong to share %s", models.ErrShareItemNotFound, itemURI, shareURI)
			}
		}
		return itemURIs, nil
	}

	items, err := s.store.ListItems(ctx, shareURI, models.ShareItemStatusShareSucceeded)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: share %s has no succeeded items", models.ErrShareItemsNotFound, shareURI)
	}
	uris := make([]string, 0, len(items))
	for _, item := range items {
		uris = append(uris, item.ShareItemURI)
	}
	return uris, nil
}
