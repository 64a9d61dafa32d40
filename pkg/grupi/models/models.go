package models

import "gorm.io/gorm"

// AllModels returns all models for migration
// Note: reference data (tracks, districts, etc.) must be migrated before the
// models that point at it
func AllModels() []interface{} {
	return []interface{}{
		&Track{},
		&Course{},
		&District{},
		&Campus{},
		&IntegrativeProject{},
		&Tag{},
		&User{},
		&Profile{},
		&ProjectGroup{},
		&Membership{},
		&JoinRequest{},
		&OTP{},
	}
}

// AutoMigrate runs GORM auto-migration for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}
