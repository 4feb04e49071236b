package models

import (
	"time"

	"gorm.io/gorm"
)

// Dataset is the catalog entry a share request targets. The orchestrator
// reads datasets but does not manage them; ingestion and profiling live in
// other services.
type Dataset struct {
	DatasetURI     string `gorm:"primaryKey;size:36" json:"dataset_uri"`
	Name           string `gorm:"not null;size:255" json:"name"`
	EnvironmentURI string `gorm:"not null;size:36;index" json:"environment_uri"`

	// AdminGroupURI owns the dataset and approves share requests.
	// StewardsGroupURI may additionally approve; it defaults to the admins.
	AdminGroupURI    string `gorm:"not null;size:255" json:"admin_group_uri"`
	StewardsGroupURI string `gorm:"size:255" json:"stewards_group_uri"`

	// GlueDatabaseName and S3BucketName locate the dataset's physical
	// resources in the source account.
	GlueDatabaseName string `gorm:"size:255" json:"glue_database_name"`
	S3BucketName     string `gorm:"size:255" json:"s3_bucket_name"`
	Region           string `gorm:"size:50" json:"region"`

	// AutoApprovalEnabled makes Submit immediately trigger Approve.
	AutoApprovalEnabled bool `gorm:"default:false" json:"auto_approval_enabled"`

	// Expiration policy applied to shares of this dataset.
	EnableExpiration  bool   `gorm:"default:false" json:"enable_expiration"`
	ExpirySetting     string `gorm:"size:50" json:"expiry_setting"` // Monthly, Quarterly
	ExpiryMinDuration int    `gorm:"default:0" json:"expiry_min_duration"`
	ExpiryMaxDuration int    `gorm:"default:0" json:"expiry_max_duration"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName returns the table name for Dataset.
func (Dataset) TableName() string {
	return "datasets"
}
