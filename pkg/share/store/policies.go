package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/lakegate/lakegate/pkg/share/models"
)

// AttachResourcePolicy grants the given permissions on a resource to a
// group. Existing grants are left untouched.
func (s *GORMStore) AttachResourcePolicy(ctx context.Context, groupURI, resourceURI string, permissions []string) error {
	for _, permission := range permissions {
		policy := models.ResourcePolicy{
			ID:          uuid.NewString(),
			GroupURI:    groupURI,
			ResourceURI: resourceURI,
			Permission:  permission,
		}
		if err := s.db.WithContext(ctx).Create(&policy).Error; err != nil {
			if isUniqueConstraintError(err) {
				continue
			}
			return fmt.Errorf("failed to attach resource policy: %w", err)
		}
	}
	return nil
}

// DetachResourcePolicies removes every grant a group holds on a resource.
func (s *GORMStore) DetachResourcePolicies(ctx context.Context, groupURI, resourceURI string) error {
	err := s.db.WithContext(ctx).
		Where("group_uri = ? AND resource_uri = ?", groupURI, resourceURI).
		Delete(&models.ResourcePolicy{}).Error
	if err != nil {
		return fmt.Errorf("failed to detach resource policies: %w", err)
	}
	return nil
}

// HasResourcePermission reports whether any of the groups holds the
// permission on the resource.
func (s *GORMStore) HasResourcePermission(ctx context.Context, groupURIs []string, resourceURI, permission string) (bool, error) {
	if len(groupURIs) == 0 {
		return false, nil
	}
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.ResourcePolicy{}).
		Where("group_uri IN ? AND resource_uri = ? AND permission = ?", groupURIs, resourceURI, permission).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check resource permission: %w", err)
	}
	return count > 0, nil
}
