package service

import (
	"context"
	"fmt"

	"github.com/lakegate/lakegate/pkg/share/models"
	"github.com/lakegate/lakegate/pkg/share/store"
)

// Principal is the authenticated caller of a share operation.
type Principal struct {
	Username string
	Groups   []string
}

// Authorizer decides whether a principal may perform an operation on a
// resource. The default implementation reads resource policies from the
// store; deployments with an external policy engine swap it out.
type Authorizer interface {
	Check(ctx context.Context, principal Principal, resourceURI, permission string) error
}

type policyAuthorizer struct {
	store *store.GORMStore
}

// NewPolicyAuthorizer returns the resource-policy backed authorizer.
func NewPolicyAuthorizer(s *store.GORMStore) Authorizer {
	return &policyAuthorizer{store: s}
}

func (a *policyAuthorizer) Check(ctx context.Context, principal Principal, resourceURI, permission string) error {
	ok, err := a.store.HasResourcePermission(ctx, principal.Groups, resourceURI, permission)
	if err != nil {
		return fmt.Errorf("failed to check permission: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s requires %s on %s",
			models.ErrUnauthorized, principal.Username, permission, resourceURI)
	}
	return nil
}
