package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/lakegate/lakegate/internal/logger"
	"github.com/lakegate/lakegate/internal/telemetry"
	"github.com/lakegate/lakegate/pkg/share/dispatch"
	"github.com/lakegate/lakegate/pkg/share/models"
	"github.com/lakegate/lakegate/pkg/share/processor"
	"github.com/lakegate/lakegate/pkg/share/statemachine"
)

const lockHolderType = "share_task"

// RegisterHandlers binds the provisioning runs to their dispatch names.
func (s *Service) RegisterHandlers(registry *dispatch.Registry) {
	registry.Register(dispatch.HandlerApprove, s.ApproveShareRun)
	registry.Register(dispatch.HandlerRevoke, s.RevokeShareRun)
	registry.Register(dispatch.HandlerVerify, s.VerifyShareRun)
	registry.Register(dispatch.HandlerReapply, s.ReapplyShareRun)
	registry.Register(dispatch.HandlerCleanup, s.CleanupShareRun)
}

// withShareLock runs fn while holding the share's advisory lock. A held
// lock means another run is in flight; the caller gets
// models.ErrAcquireLockFailure and must not touch the share.
func (s *Service) withShareLock(ctx context.Context, shareURI string, fn func(ctx context.Context) error) error {
	lockKey := "share:" + shareURI
	holder := uuid.NewString()

	if err := s.store.AcquireLock(ctx, lockKey, holder, lockHolderType, s.lockTTL); err != nil {
		if errors.Is(err, models.ErrAcquireLockFailure) {
			s.metrics.RecordLockFailure()
		}
		return err
	}
	defer func() {
		if err := s.store.ReleaseLock(context.WithoutCancel(ctx), lockKey, holder); err != nil {
			logger.WarnCtx(ctx, "failed to release share lock",
				logger.KeyLockKey, lockKey,
				logger.KeyError, err.Error())
		}
	}()

	return fn(ctx)
}

// buildShareContext resolves everything a processor needs for one run.
func (s *Service) buildShareContext(ctx context.Context, share *models.ShareObject) (processor.ShareContext, error) {
	dataset, err := s.store.GetDataset(ctx, share.DatasetURI)
	if err != nil {
		return processor.ShareContext{}, err
	}
	sourceEnv, err := s.store.GetEnvironment(ctx, dataset.EnvironmentURI)
	if err != nil {
		return processor.ShareContext{}, err
	}
	targetEnv, err := s.store.GetEnvironment(ctx, share.EnvironmentURI)
	if err != nil {
		return processor.ShareContext{}, err
	}

	items, err := s.store.ListItems(ctx, share.ShareURI)
	if err != nil {
		return processor.ShareContext{}, err
	}
	filters := make(map[string]*models.ShareObjectItemDataFilter)
	for _, item := range items {
		if item.AttachedDataFilterURI == nil {
			continue
		}
		filter, err := s.store.GetDataFilter(ctx, *item.AttachedDataFilterURI)
		if err != nil {
			return processor.ShareContext{}, fmt.Errorf("item %s: %w", item.ShareItemURI, err)
		}
		filters[item.ShareItemURI] = filter
	}

	return processor.ShareContext{
		Share:             share,
		Dataset:           dataset,
		SourceEnvironment: sourceEnv,
		TargetEnvironment: targetEnv,
		PrincipalRoleARN:  share.PrincipalID,
		PrincipalRoleName: share.PrincipalRoleName,
		DataFilters:       filters,
	}, nil
}

// ApproveShareRun executes the grant pipeline for an approved share. It is
// safe to re-run: already-succeeded items are not reprocessed and
// processors converge on existing infrastructure.
func (s *Service) ApproveShareRun(ctx context.Context, shareURI string) error {
	return s.runShare(ctx, shareURI, dispatch.HandlerApprove, s.approveShareRun)
}

// runShare wraps one processing run with the share advisory lock, a trace
// span and run metrics.
func (s *Service) runShare(ctx context.Context, shareURI, handler string, run func(ctx context.Context, shareURI string) error) error {
	return s.withShareLock(ctx, shareURI, func(ctx context.Context) error {
		ctx, span := telemetry.StartRunSpan(ctx, strings.TrimPrefix(handler, "share."), shareURI)
		start := s.now()
		err := run(ctx, shareURI)
		s.metrics.RecordRun(handler, err == nil, s.now().Sub(start))
		telemetry.EndSpan(span, err)
		return err
	})
}

func (s *Service) approveShareRun(ctx context.Context, shareURI string) error {
	share, err := s.transitionObject(ctx, shareURI, models.ShareObjectActionStart)
	if err != nil {
		return err
	}

	shareCtx, err := s.buildShareContext(ctx, share)
	if err != nil {
		return err
	}

	anyFailed := false
	for _, itemType := range s.registry.Types() {
		failed, err := s.processTypeGrant(ctx, shareCtx, itemType)
		if err != nil {
			return err
		}
		anyFailed = anyFailed || failed
	}

	if _, err := s.transitionObject(ctx, shareURI, models.ShareObjectActionFinish); err != nil {
		return err
	}

	if anyFailed {
		logger.WarnCtx(ctx, "share run finished with failed items",
			logger.ShareAttrs(shareURI, share.DatasetURI)...)
	} else {
		logger.InfoCtx(ctx, "share run finished",
			logger.ShareAttrs(shareURI, share.DatasetURI)...)
	}
	return nil
}

// processTypeGrant runs one processor over the share's in-progress items
// of its type. A panicking or erroring processor fails its own items and
// nothing else.
func (s *Service) processTypeGrant(ctx context.Context, shareCtx processor.ShareContext, itemType models.ShareableType) (failed bool, err error) {
	items, err := s.store.ListItemsByType(ctx, shareCtx.Share.ShareURI, itemType, models.ShareItemStatusShareInProgress)
	if err != nil {
		return false, err
	}
	if len(items) == 0 {
		return false, nil
	}

	proc, err := s.registry.Get(itemType)
	if err != nil {
		return false, err
	}

	outcomes, procErr := s.runProcessor(ctx, "grant", itemType, func() ([]processor.ItemOutcome, error) {
		return proc.ProcessApprovedShares(ctx, shareCtx, items)
	})
	if procErr != nil {
		// The whole type failed before producing outcomes. Fail every item
		// so the run can finish and be retried.
		if err := s.failItems(ctx, items, models.ShareItemActionFailure, procErr.Error()); err != nil {
			return true, err
		}
		return true, nil
	}

	for _, outcome := range outcomes {
		s.metrics.RecordItemOutcome(string(itemType), "grant", outcome.Success)

		action := models.ShareItemActionSuccess
		if !outcome.Success {
			action = models.ShareItemActionFailure
			failed = true
		}
		if err := s.applyItemOutcome(ctx, outcome, action); err != nil {
			return failed, err
		}
	}
	return failed, nil
}

// RevokeShareRun executes the revoke pipeline. The terminal object state
// depends on what is left: Revoked when nothing remains shared, Draft when
// unapproved items remain, Processed otherwise.
func (s *Service) RevokeShareRun(ctx context.Context, shareURI string) error {
	return s.runShare(ctx, shareURI, dispatch.HandlerRevoke, s.revokeShareRun)
}

func (s *Service) revokeShareRun(ctx context.Context, shareURI string) error {
	share, err := s.transitionObject(ctx, shareURI, models.ShareObjectActionStart)
	if err != nil {
		return err
	}

	shareCtx, err := s.buildShareContext(ctx, share)
	if err != nil {
		return err
	}

	for _, itemType := range s.registry.Types() {
		if err := s.processTypeRevoke(ctx, shareCtx, itemType); err != nil {
			return err
		}
	}

	return s.finishRevokeRun(ctx, shareCtx)
}

func (s *Service) processTypeRevoke(ctx context.Context, shareCtx processor.ShareContext, itemType models.ShareableType) error {
	items, err := s.store.ListItemsByType(ctx, shareCtx.Share.ShareURI, itemType, models.ShareItemStatusRevokeInProgress)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	proc, err := s.registry.Get(itemType)
	if err != nil {
		return err
	}

	outcomes, procErr := s.runProcessor(ctx, "revoke", itemType, func() ([]processor.ItemOutcome, error) {
		return proc.ProcessRevokedShares(ctx, shareCtx, items)
	})
	if procErr != nil {
		return s.failItems(ctx, items, models.ShareItemActionFailure, procErr.Error())
	}

	for _, outcome := range outcomes {
		s.metrics.RecordItemOutcome(string(itemType), "revoke", outcome.Success)

		action := models.ShareItemActionSuccess
		if !outcome.Success {
			action = models.ShareItemActionFailure
		}
		if err := s.applyItemOutcome(ctx, outcome, action); err != nil {
			return err
		}
	}
	return nil
}

// finishRevokeRun derives the terminal object state from the item set and
// triggers cleanup when the share is fully revoked.
func (s *Service) finishRevokeRun(ctx context.Context, shareCtx processor.ShareContext) error {
	shareURI := shareCtx.Share.ShareURI

	pending, err := s.store.CountItemsInStatus(ctx, shareURI,
		models.ShareItemStatusPendingApproval, models.ShareItemStatusPendingExtension)
	if err != nil {
		return err
	}
	if pending > 0 {
		_, err := s.transitionObject(ctx, shareURI, models.ShareObjectActionFinishPending)
		return err
	}

	stillShared, err := s.store.CountItemsInStatus(ctx, shareURI, models.SharedItemStatuses()...)
	if err != nil {
		return err
	}

	if stillShared > 0 {
		_, err := s.transitionObject(ctx, shareURI, models.ShareObjectActionFinish)
		return err
	}

	// Everything is revoked. The share settles in Revoked rather than
	// Processed, and residual per-share infrastructure is removed.
	if err := s.store.UpdateShareStatus(ctx, shareURI, models.ShareObjectStatusRevoked); err != nil {
		return err
	}
	logger.InfoCtx(ctx, "share fully revoked",
		logger.ShareAttrs(shareURI, shareCtx.Share.DatasetURI)...)

	for _, itemType := range s.registry.Types() {
		proc, err := s.registry.Get(itemType)
		if err != nil {
			return err
		}
		if err := proc.CleanupShares(ctx, shareCtx); err != nil {
			logger.WarnCtx(ctx, "share cleanup failed",
				logger.KeyShareURI, shareURI,
				logger.KeyProcessor, string(itemType),
				logger.KeyError, err.Error())
		}
	}
	return nil
}

// VerifyShareRun audits every succeeded item against the target
// infrastructure and records per-item health. It never mutates grants.
func (s *Service) VerifyShareRun(ctx context.Context, shareURI string) error {
	return s.runShare(ctx, shareURI, dispatch.HandlerVerify, s.verifyShareRun)
}

func (s *Service) verifyShareRun(ctx context.Context, shareURI string) error {
	share, err := s.store.GetShare(ctx, shareURI)
	if err != nil {
		return err
	}
	shareCtx, err := s.buildShareContext(ctx, share)
	if err != nil {
		return err
	}

	for _, itemType := range s.registry.Types() {
		items, err := s.store.ListItemsByType(ctx, shareURI, itemType, models.ShareItemStatusShareSucceeded)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			continue
		}

		proc, err := s.registry.Get(itemType)
		if err != nil {
			return err
		}

		outcomes, procErr := s.runProcessor(ctx, "verify", itemType, func() ([]processor.ItemOutcome, error) {
			return proc.VerifyShares(ctx, shareCtx, items)
		})
		if procErr != nil {
			logger.ErrorCtx(ctx, "verification failed",
				logger.KeyShareURI, shareURI,
				logger.KeyProcessor, string(itemType),
				logger.KeyError, procErr.Error())
			continue
		}

		unhealthy := 0
		now := s.now()
		for _, outcome := range outcomes {
			health := models.ShareItemHealthStatusHealthy
			message := ""
			if !outcome.Healthy {
				health = models.ShareItemHealthStatusUnhealthy
				message = outcome.Message
				unhealthy++
			}
			if err := s.store.UpdateItemHealth(ctx, outcome.ItemURI, health, message, now); err != nil {
				return err
			}
		}
		s.metrics.SetUnhealthyItems(string(itemType), unhealthy)
	}
	return nil
}

// ReapplyShareRun re-runs the grant path for items flagged PendingReApply
// and re-records their health. Failure notifications stay quiet while the
// remediation pass runs.
func (s *Service) ReapplyShareRun(ctx context.Context, shareURI string) error {
	return s.runShare(ctx, shareURI, dispatch.HandlerReapply, s.reapplyShareRun)
}

func (s *Service) reapplyShareRun(ctx context.Context, shareURI string) error {
	share, err := s.store.GetShare(ctx, shareURI)
	if err != nil {
		return err
	}
	shareCtx, err := s.buildShareContext(ctx, share)
	if err != nil {
		return err
	}
	shareCtx.Reapply = true

	flagged, err := s.store.ListItemsByHealth(ctx, shareURI, models.ShareItemHealthStatusPendingReApply)
	if err != nil {
		return err
	}
	byType := make(map[models.ShareableType][]*models.ShareObjectItem)
	for _, item := range flagged {
		byType[item.ItemType] = append(byType[item.ItemType], item)
	}

	now := s.now()
	for itemType, items := range byType {
		proc, err := s.registry.Get(itemType)
		if err != nil {
			return err
		}

		outcomes, procErr := s.runProcessor(ctx, "reapply", itemType, func() ([]processor.ItemOutcome, error) {
			return proc.ProcessApprovedShares(ctx, shareCtx, items)
		})
		if procErr != nil {
			for _, item := range items {
				if err := s.store.UpdateItemHealth(ctx, item.ShareItemURI,
					models.ShareItemHealthStatusUnhealthy, procErr.Error(), now); err != nil {
					return err
				}
			}
			continue
		}

		for _, outcome := range outcomes {
			health := models.ShareItemHealthStatusHealthy
			message := ""
			if !outcome.Success {
				health = models.ShareItemHealthStatusUnhealthy
				message = outcome.Message
			}
			if err := s.store.UpdateItemHealth(ctx, outcome.ItemURI, health, message, now); err != nil {
				return err
			}
		}
	}
	return nil
}

// CleanupShareRun removes residual per-share infrastructure. Dispatched
// for fully revoked shares whose inline cleanup failed.
func (s *Service) CleanupShareRun(ctx context.Context, shareURI string) error {
	return s.runShare(ctx, shareURI, dispatch.HandlerCleanup, s.cleanupShareRun)
}

func (s *Service) cleanupShareRun(ctx context.Context, shareURI string) error {
	share, err := s.store.GetShare(ctx, shareURI)
	if err != nil {
		return err
	}
	shareCtx, err := s.buildShareContext(ctx, share)
	if err != nil {
		return err
	}

	for _, itemType := range s.registry.Types() {
		proc, err := s.registry.Get(itemType)
		if err != nil {
			return err
		}
		if err := proc.CleanupShares(ctx, shareCtx); err != nil {
			return fmt.Errorf("cleanup for %s: %w", itemType, err)
		}
	}
	return nil
}

// runProcessor invokes a processor call under its own span and converts
// panics into errors so one faulty processor cannot take down the whole run.
func (s *Service) runProcessor(ctx context.Context, operation string, itemType models.ShareableType, call func() ([]processor.ItemOutcome, error)) (outcomes []processor.ItemOutcome, err error) {
	ctx, span := telemetry.StartProcessorSpan(ctx, operation, string(itemType))
	defer func() {
		telemetry.EndSpan(span, err)
	}()
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorCtx(ctx, "processor panicked",
				logger.KeyProcessor, string(itemType),
				logger.KeyError, fmt.Sprint(r))
			outcomes = nil
			err = fmt.Errorf("processor %s panicked: %v", itemType, r)
		}
	}()
	return call()
}

func (s *Service) applyItemOutcome(ctx context.Context, outcome processor.ItemOutcome, action models.ShareItemAction) error {
	item, err := s.store.GetItem(ctx, outcome.ItemURI)
	if err != nil {
		return err
	}

	next, err := statemachine.ItemTransition(item.Status, action)
	if err != nil {
		return fmt.Errorf("item %s: %w", item.ShareItemURI, err)
	}
	if err := s.store.UpdateItemStatus(ctx, item.ShareItemURI, next); err != nil {
		return err
	}

	// Successful grants start out healthy; failures carry the message.
	if next == models.ShareItemStatusShareSucceeded {
		return s.store.UpdateItemHealth(ctx, item.ShareItemURI,
			models.ShareItemHealthStatusHealthy, "", s.now())
	}
	if action == models.ShareItemActionFailure && outcome.Message != "" {
		return s.store.UpdateItemHealth(ctx, item.ShareItemURI,
			models.ShareItemHealthStatusUnhealthy, outcome.Message, s.now())
	}
	return nil
}

func (s *Service) failItems(ctx context.Context, items []*models.ShareObjectItem, action models.ShareItemAction, message string) error {
	for _, item := range items {
		next, err := statemachine.ItemTransition(item.Status, action)
		if err != nil {
			return err
		}
		if err := s.store.UpdateItemStatus(ctx, item.ShareItemURI, next); err != nil {
			return err
		}
		if err := s.store.UpdateItemHealth(ctx, item.ShareItemURI,
			models.ShareItemHealthStatusUnhealthy, message, s.now()); err != nil {
			return err
		}
	}
	return nil
}
