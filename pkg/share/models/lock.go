package models

import "time"

// ResourceLock is an advisory lease keyed by share URI. Provisioning runs
// execute in separate worker processes, so mutual exclusion lives in the
// database rather than in process memory: acquire is a conditional insert,
// steal is only possible once ExpiresAt has passed.
type ResourceLock struct {
	LockKey        string    `gorm:"primaryKey;size:255" json:"lock_key"`
	AcquiredByURI  string    `gorm:"not null;size:36" json:"acquired_by_uri"`
	AcquiredByType string    `gorm:"not null;size:50" json:"acquired_by_type"`
	AcquiredAt     time.Time `gorm:"not null" json:"acquired_at"`
	ExpiresAt      time.Time `gorm:"not null;index" json:"expires_at"`
}

// TableName returns the table name for ResourceLock.
func (ResourceLock) TableName() string {
	return "resource_locks"
}

// Expired reports whether the lease can be stolen.
func (l *ResourceLock) Expired(now time.Time) bool {
	return now.After(l.ExpiresAt)
}
