package store

import (
	"context"
	"fmt"

	"github.com/lakegate/lakegate/pkg/share/models"
)

// CreateDataset persists a dataset catalog entry.
func (s *GORMStore) CreateDataset(ctx context.Context, dataset *models.Dataset) error {
	if err := s.db.WithContext(ctx).Create(dataset).Error; err != nil {
		return fmt.Errorf("failed to create dataset: %w", err)
	}
	return nil
}

// GetDataset returns a dataset by URI.
func (s *GORMStore) GetDataset(ctx context.Context, datasetURI string) (*models.Dataset, error) {
	var dataset models.Dataset
	err := s.db.WithContext(ctx).First(&dataset, "dataset_uri = ?", datasetURI).Error
	if err != nil {
		return nil, convertNotFoundError(err, fmt.Errorf("%w: %s", models.ErrDatasetNotFound, datasetURI))
	}
	return &dataset, nil
}

// CreateEnvironment persists an environment.
func (s *GORMStore) CreateEnvironment(ctx context.Context, env *models.Environment) error {
	if err := s.db.WithContext(ctx).Create(env).Error; err != nil {
		return fmt.Errorf("failed to create environment: %w", err)
	}
	return nil
}

// GetEnvironment returns an environment by URI.
func (s *GORMStore) GetEnvironment(ctx context.Context, environmentURI string) (*models.Environment, error) {
	var env models.Environment
	err := s.db.WithContext(ctx).First(&env, "environment_uri = ?", environmentURI).Error
	if err != nil {
		return nil, convertNotFoundError(err, fmt.Errorf("%w: %s", models.ErrEnvironmentNotFound, environmentURI))
	}
	return &env, nil
}

// CreateEnvironmentGroup onboards a team onto an environment.
func (s *GORMStore) CreateEnvironmentGroup(ctx context.Context, group *models.EnvironmentGroup) error {
	if err := s.db.WithContext(ctx).Create(group).Error; err != nil {
		return fmt.Errorf("failed to create environment group: %w", err)
	}
	return nil
}

// GetEnvironmentGroup returns the membership of a group in an environment.
func (s *GORMStore) GetEnvironmentGroup(ctx context.Context, groupURI, environmentURI string) (*models.EnvironmentGroup, error) {
	var group models.EnvironmentGroup
	err := s.db.WithContext(ctx).
		Where("group_uri = ? AND environment_uri = ?", groupURI, environmentURI).
		First(&group).Error
	if err != nil {
		return nil, convertNotFoundError(err, fmt.Errorf("%w: %s in %s", models.ErrGroupNotFound, groupURI, environmentURI))
	}
	return &group, nil
}
