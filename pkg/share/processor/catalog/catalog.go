// Package catalog grants cross-account access to catalog tables. Grants go
// through Lake Formation in the source account; the target account gets a
// resource-link database and table so the principal can query the shared
// data under its own catalog.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	gluetypes "github.com/aws/aws-sdk-go-v2/service/glue/types"
	"github.com/aws/aws-sdk-go-v2/service/lakeformation"
	lftypes "github.com/aws/aws-sdk-go-v2/service/lakeformation/types"
	"github.com/aws/aws-sdk-go-v2/service/ram"
	ramtypes "github.com/aws/aws-sdk-go-v2/service/ram/types"
	"github.com/aws/smithy-go"

	"github.com/lakegate/lakegate/internal/logger"
	"github.com/lakegate/lakegate/pkg/share/awsclients"
	"github.com/lakegate/lakegate/pkg/share/models"
	"github.com/lakegate/lakegate/pkg/share/processor"
)

// sharedDatabaseSuffix marks the resource-link database created in the
// target account.
const sharedDatabaseSuffix = "_shared"

// Processor implements table shares.
type Processor struct {
	clients awsclients.Factory
}

// New returns a catalog processor using the given client factory.
func New(clients awsclients.Factory) *Processor {
	return &Processor{clients: clients}
}

func (p *Processor) Type() models.ShareableType {
	return models.ShareableTypeTable
}

func (p *Processor) ProcessApprovedShares(ctx context.Context, share processor.ShareContext, items []*models.ShareObjectItem) ([]processor.ItemOutcome, error) {
	if share.SameAccount() {
		return nil, fmt.Errorf("%w: %s", models.ErrSameAccountShare, share.Share.ShareURI)
	}

	sourceLF, err := p.clients.LakeFormation(ctx, share.SourceEnvironment)
	if err != nil {
		return nil, fmt.Errorf("failed to build Lake Formation client: %w", err)
	}
	targetGlue, err := p.clients.Glue(ctx, share.TargetEnvironment)
	if err != nil {
		return nil, fmt.Errorf("failed to build Glue client: %w", err)
	}
	targetRAM, err := p.clients.RAM(ctx, share.TargetEnvironment)
	if err != nil {
		return nil, fmt.Errorf("failed to build RAM client: %w", err)
	}

	outcomes := make([]processor.ItemOutcome, 0, len(items))
	for _, item := range items {
		err := p.grantItem(ctx, sourceLF, targetGlue, targetRAM, share, item)
		outcome := processor.ItemOutcome{ItemURI: item.ShareItemURI, Success: err == nil}
		if err != nil {
			outcome.Message = err.Error()
			logger.ErrorCtx(ctx, "table grant failed",
				logger.KeyItemURI, item.ShareItemURI,
				logger.KeyError, err.Error())
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

func (p *Processor) ProcessRevokedShares(ctx context.Context, share processor.ShareContext, items []*models.ShareObjectItem) ([]processor.ItemOutcome, error) {
	sourceLF, err := p.clients.LakeFormation(ctx, share.SourceEnvironment)
	if err != nil {
		return nil, fmt.Errorf("failed to build Lake Formation client: %w", err)
	}
	targetGlue, err := p.clients.Glue(ctx, share.TargetEnvironment)
	if err != nil {
		return nil, fmt.Errorf("failed to build Glue client: %w", err)
	}

	outcomes := make([]processor.ItemOutcome, 0, len(items))
	for _, item := range items {
		err := p.revokeItem(ctx, sourceLF, targetGlue, share, item)
		outcome := processor.ItemOutcome{ItemURI: item.ShareItemURI, Success: err == nil}
		if err != nil {
			outcome.Message = err.Error()
			logger.ErrorCtx(ctx, "table revoke failed",
				logger.KeyItemURI, item.ShareItemURI,
				logger.KeyError, err.Error())
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

func (p *Processor) VerifyShares(ctx context.Context, share processor.ShareContext, items []*models.ShareObjectItem) ([]processor.ItemOutcome, error) {
	sourceLF, err := p.clients.LakeFormation(ctx, share.SourceEnvironment)
	if err != nil {
		return nil, fmt.Errorf("failed to build Lake Formation client: %w", err)
	}
	targetGlue, err := p.clients.Glue(ctx, share.TargetEnvironment)
	if err != nil {
		return nil, fmt.Errorf("failed to build Glue client: %w", err)
	}

	outcomes := make([]processor.ItemOutcome, 0, len(items))
	for _, item := range items {
		healthy := true
		message := ""

		granted, err := p.hasGrant(ctx, sourceLF, share, item)
		if err != nil {
			return nil, fmt.Errorf("failed to list permissions: %w", err)
		}
		if !granted {
			healthy = false
			message = fmt.Sprintf("principal %s has no Lake Formation grant on table %s", share.PrincipalRoleARN, item.ItemName)
		}

		if healthy {
			exists, err := p.resourceLinkExists(ctx, targetGlue, share, item)
			if err != nil {
				return nil, fmt.Errorf("failed to check resource link: %w", err)
			}
			if !exists {
				healthy = false
				message = fmt.Sprintf("resource link for table %s missing in target account", item.ItemName)
			}
		}

		outcomes = append(outcomes, processor.ItemOutcome{
			ItemURI: item.ShareItemURI,
			Success: true,
			Healthy: healthy,
			Message: message,
		})
	}
	return outcomes, nil
}

// CleanupShares drops the resource-link database once every table of the
// share is revoked.
func (p *Processor) CleanupShares(ctx context.Context, share processor.ShareContext) error {
	targetGlue, err := p.clients.Glue(ctx, share.TargetEnvironment)
	if err != nil {
		return fmt.Errorf("failed to build Glue client: %w", err)
	}

	_, err = targetGlue.DeleteDatabase(ctx, &glue.DeleteDatabaseInput{
		Name: aws.String(p.sharedDatabaseName(share)),
	})
	if err != nil && !isEntityNotFound(err) {
		return fmt.Errorf("failed to delete shared database: %w", err)
	}
	return nil
}

func (p *Processor) sharedDatabaseName(share processor.ShareContext) string {
	return share.Dataset.GlueDatabaseName + sharedDatabaseSuffix
}

// itemResources returns the Lake Formation resources a grant or revoke for
// the item operates on. With a data filter attached the grant goes through
// the filter's data cells filters instead of the whole table.
func (p *Processor) itemResources(share processor.ShareContext, item *models.ShareObjectItem) []*lftypes.Resource {
	filter := share.DataFilters[item.ShareItemURI]
	if filter == nil || len(filter.DataFilterNames) == 0 {
		return []*lftypes.Resource{{
			Table: &lftypes.TableResource{
				CatalogId:    aws.String(share.SourceEnvironment.AccountID),
				DatabaseName: aws.String(share.Dataset.GlueDatabaseName),
				Name:         aws.String(item.ItemName),
			},
		}}
	}

	resources := make([]*lftypes.Resource, 0, len(filter.DataFilterNames))
	for _, name := range filter.DataFilterNames {
		resources = append(resources, &lftypes.Resource{
			DataCellsFilter: &lftypes.DataCellsFilterResource{
				TableCatalogId: aws.String(share.SourceEnvironment.AccountID),
				DatabaseName:   aws.String(share.Dataset.GlueDatabaseName),
				TableName:      aws.String(item.ItemName),
				Name:           aws.String(name),
			},
		})
	}
	return resources
}

func (p *Processor) grantItem(ctx context.Context, sourceLF awsclients.LakeFormationClient, targetGlue awsclients.GlueClient, targetRAM awsclients.RAMClient, share processor.ShareContext, item *models.ShareObjectItem) error {
	// Grant in the source account first. Lake Formation creates the RAM
	// share behind the scenes.
	permissions := []lftypes.Permission{lftypes.PermissionDescribe, lftypes.PermissionSelect}
	for _, resource := range p.itemResources(share, item) {
		_, err := sourceLF.GrantPermissions(ctx, &lakeformation.GrantPermissionsInput{
			Principal: &lftypes.DataLakePrincipal{
				DataLakePrincipalIdentifier: aws.String(share.PrincipalRoleARN),
			},
			Resource:    resource,
			Permissions: permissions,
		})
		if err != nil && !isAlreadyGranted(err) {
			return fmt.Errorf("failed to grant table permissions: %w", err)
		}
	}

	if err := p.acceptPendingInvitations(ctx, targetRAM); err != nil {
		return fmt.Errorf("failed to accept RAM invitation: %w", err)
	}

	if err := p.ensureSharedDatabase(ctx, targetGlue, share); err != nil {
		return err
	}
	return p.ensureResourceLink(ctx, targetGlue, share, item)
}

func (p *Processor) revokeItem(ctx context.Context, sourceLF awsclients.LakeFormationClient, targetGlue awsclients.GlueClient, share processor.ShareContext, item *models.ShareObjectItem) error {
	_, err := targetGlue.DeleteTable(ctx, &glue.DeleteTableInput{
		DatabaseName: aws.String(p.sharedDatabaseName(share)),
		Name:         aws.String(item.ItemName),
	})
	if err != nil && !isEntityNotFound(err) {
		return fmt.Errorf("failed to delete resource link: %w", err)
	}

	for _, resource := range p.itemResources(share, item) {
		_, err := sourceLF.RevokePermissions(ctx, &lakeformation.RevokePermissionsInput{
			Principal: &lftypes.DataLakePrincipal{
				DataLakePrincipalIdentifier: aws.String(share.PrincipalRoleARN),
			},
			Resource:    resource,
			Permissions: []lftypes.Permission{lftypes.PermissionDescribe, lftypes.PermissionSelect},
		})
		if err != nil && !isGrantMissing(err) {
			return fmt.Errorf("failed to revoke table permissions: %w", err)
		}
	}
	return nil
}

// hasGrant reports whether the principal holds a grant on every resource
// of the item, the data cells filters when one is attached or the table
// itself otherwise.
func (p *Processor) hasGrant(ctx context.Context, sourceLF awsclients.LakeFormationClient, share processor.ShareContext, item *models.ShareObjectItem) (bool, error) {
	for _, resource := range p.itemResources(share, item) {
		out, err := sourceLF.ListPermissions(ctx, &lakeformation.ListPermissionsInput{
			Resource: resource,
		})
		if err != nil {
			return false, err
		}
		granted := false
		for _, grant := range out.PrincipalResourcePermissions {
			if grant.Principal != nil &&
				aws.ToString(grant.Principal.DataLakePrincipalIdentifier) == share.PrincipalRoleARN {
				granted = true
				break
			}
		}
		if !granted {
			return false, nil
		}
	}
	return true, nil
}

func (p *Processor) resourceLinkExists(ctx context.Context, targetGlue awsclients.GlueClient, share processor.ShareContext, item *models.ShareObjectItem) (bool, error) {
	_, err := targetGlue.GetTable(ctx, &glue.GetTableInput{
		DatabaseName: aws.String(p.sharedDatabaseName(share)),
		Name:         aws.String(item.ItemName),
	})
	if err != nil {
		if isEntityNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (p *Processor) ensureSharedDatabase(ctx context.Context, targetGlue awsclients.GlueClient, share processor.ShareContext) error {
	name := p.sharedDatabaseName(share)
	_, err := targetGlue.GetDatabase(ctx, &glue.GetDatabaseInput{Name: aws.String(name)})
	if err == nil {
		return nil
	}
	if !isEntityNotFound(err) {
		return fmt.Errorf("failed to check shared database: %w", err)
	}

	_, err = targetGlue.CreateDatabase(ctx, &glue.CreateDatabaseInput{
		DatabaseInput: &gluetypes.DatabaseInput{
			Name: aws.String(name),
		},
	})
	if err != nil && !isAlreadyExists(err) {
		return fmt.Errorf("failed to create shared database: %w", err)
	}
	return nil
}

func (p *Processor) ensureResourceLink(ctx context.Context, targetGlue awsclients.GlueClient, share processor.ShareContext, item *models.ShareObjectItem) error {
	_, err := targetGlue.CreateTable(ctx, &glue.CreateTableInput{
		DatabaseName: aws.String(p.sharedDatabaseName(share)),
		TableInput: &gluetypes.TableInput{
			Name: aws.String(item.ItemName),
			TargetTable: &gluetypes.TableIdentifier{
				CatalogId:    aws.String(share.SourceEnvironment.AccountID),
				DatabaseName: aws.String(share.Dataset.GlueDatabaseName),
				Name:         aws.String(item.ItemName),
			},
		},
	})
	if err != nil && !isAlreadyExists(err) {
		return fmt.Errorf("failed to create resource link: %w", err)
	}
	return nil
}

func (p *Processor) acceptPendingInvitations(ctx context.Context, targetRAM awsclients.RAMClient) error {
	out, err := targetRAM.GetResourceShareInvitations(ctx, &ram.GetResourceShareInvitationsInput{})
	if err != nil {
		return err
	}
	for _, invitation := range out.ResourceShareInvitations {
		if invitation.Status != ramtypes.ResourceShareInvitationStatusPending {
			continue
		}
		_, err := targetRAM.AcceptResourceShareInvitation(ctx, &ram.AcceptResourceShareInvitationInput{
			ResourceShareInvitationArn: invitation.ResourceShareInvitationArn,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func isEntityNotFound(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "EntityNotFoundException"
}

func isAlreadyExists(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "AlreadyExistsException"
}

func isAlreadyGranted(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "AlreadyExistsException"
}

func isGrantMissing(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "InvalidInputException"
}
