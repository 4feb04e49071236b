package models

import (
	"time"

	"gorm.io/gorm"
)

// Environment is one linked cloud account/region pair. Shares grant access
// from a dataset's source environment into a requesting team's target
// environment.
type Environment struct {
	EnvironmentURI string `gorm:"primaryKey;size:36" json:"environment_uri"`
	Name           string `gorm:"not null;size:255" json:"name"`
	AccountID      string `gorm:"not null;size:20;index" json:"account_id"`
	Region         string `gorm:"not null;size:50" json:"region"`

	// AdminRoleARN is assumed by the orchestrator to operate in the account.
	AdminRoleARN string `gorm:"size:512" json:"admin_role_arn"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName returns the table name for Environment.
func (Environment) TableName() string {
	return "environments"
}

// EnvironmentGroup is a team onboarded onto an environment, with the IAM
// role that represents it there.
type EnvironmentGroup struct {
	ID             string `gorm:"primaryKey;size:36" json:"id"`
	GroupURI       string `gorm:"not null;size:255;uniqueIndex:idx_env_group,priority:1" json:"group_uri"`
	EnvironmentURI string `gorm:"not null;size:36;uniqueIndex:idx_env_group,priority:2" json:"environment_uri"`
	IAMRoleARN     string `gorm:"size:512" json:"iam_role_arn"`
	IAMRoleName    string `gorm:"size:255" json:"iam_role_name"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for EnvironmentGroup.
func (EnvironmentGroup) TableName() string {
	return "environment_groups"
}
