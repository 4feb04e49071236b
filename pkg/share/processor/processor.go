// Package processor defines the pluggable per-type provisioning interface
// and the registry mapping shareable types to their implementations.
package processor

import (
	"context"

	"github.com/lakegate/lakegate/pkg/share/models"
)

// ShareContext carries everything a processor needs to provision one share:
// the share itself, the dataset being shared and the environments on both
// sides. Built once per run by the sharing service and passed read-only.
type ShareContext struct {
	Share             *models.ShareObject
	Dataset           *models.Dataset
	SourceEnvironment *models.Environment
	TargetEnvironment *models.Environment

	// PrincipalRoleARN is the IAM role that receives the grants. For Group
	// principals it is the environment group's role; for ConsumptionRole
	// principals it is the principal itself.
	PrincipalRoleARN  string
	PrincipalRoleName string

	// DataFilters maps a share item URI to its attached filter, when one
	// exists. Table grants scope access through these instead of granting
	// the whole table.
	DataFilters map[string]*models.ShareObjectItemDataFilter

	// Reapply suppresses failure notifications and health downgrades while
	// a remediation pass re-runs the grant path.
	Reapply bool
}

// SameAccount reports whether source and target environments live in the
// same account and region. Same-account table shares are rejected upstream.
func (c *ShareContext) SameAccount() bool {
	return c.SourceEnvironment.AccountID == c.TargetEnvironment.AccountID &&
		c.SourceEnvironment.Region == c.TargetEnvironment.Region
}

// ItemOutcome is the per-item result of a processor pass. Processors never
// fail a whole run because of one item; they report outcomes and let the
// sharing service fold them into item statuses.
type ItemOutcome struct {
	ItemURI string
	Success bool

	// Message carries the failure or verification detail shown to users.
	Message string

	// Healthy is meaningful only for verification passes.
	Healthy bool
}

// Processor provisions, revokes and audits grants for one shareable type.
// Implementations must be idempotent: re-running a grant or revoke against
// already-converged infrastructure succeeds without change.
type Processor interface {
	// Type returns the shareable type this processor owns.
	Type() models.ShareableType

	// ProcessApprovedShares grants access for the given items. One outcome
	// per item, in any order.
	ProcessApprovedShares(ctx context.Context, share ShareContext, items []*models.ShareObjectItem) ([]ItemOutcome, error)

	// ProcessRevokedShares removes access for the given items.
	ProcessRevokedShares(ctx context.Context, share ShareContext, items []*models.ShareObjectItem) ([]ItemOutcome, error)

	// VerifyShares reads back the target infrastructure and reports whether
	// each item's grant still holds. It never mutates anything.
	VerifyShares(ctx context.Context, share ShareContext, items []*models.ShareObjectItem) ([]ItemOutcome, error)

	// CleanupShares removes residual resources after all items of a share
	// are revoked. Best effort; errors are logged, not fatal.
	CleanupShares(ctx context.Context, share ShareContext) error
}
