package models

import (
	"time"
)

// User represents a student account, keyed by institutional email.
// Accounts are created inactive and activated by OTP verification.
type User struct {
	ID              uint      `gorm:"primarykey" json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Email           string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash    string    `json:"-"`
	FirstName       string    `gorm:"not null" json:"first_name"`
	LastName        string    `gorm:"not null" json:"last_name"`
	IsActive        bool      `gorm:"default:false" json:"is_active"`
	IsEmailVerified bool      `gorm:"default:false" json:"is_email_verified"`

	// Relationships
	Profile *Profile `gorm:"foreignKey:UserID" json:"profile,omitempty"`
}
