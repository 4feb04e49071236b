package models

// AllModels returns all GORM models for auto-migration.
func AllModels() []any {
	return []any{
		&ShareObject{},
		&ShareObjectItem{},
		&ShareObjectItemDataFilter{},
		&Dataset{},
		&Environment{},
		&EnvironmentGroup{},
		&ResourceLock{},
		&ResourcePolicy{},
		&Notification{},
	}
}
