package models

import "time"

// OTPPurpose distinguishes what a passcode unlocks.
type OTPPurpose string

const (
	OTPPurposeRegistration  OTPPurpose = "registration"
	OTPPurposePasswordReset OTPPurpose = "password_reset"
)

// OTP is a single-use 6-digit passcode. At most one live row per user: a new
// issuance deletes the old row inside the same transaction. A consumed code
// is deleted outright, so re-validation hits NotFound.
type OTP struct {
	ID             uint       `gorm:"primarykey" json:"id"`
	CreatedAt      time.Time  `json:"created_at"`
	UserID         uint       `gorm:"uniqueIndex;not null" json:"user_id"`
	Code           string     `gorm:"not null" json:"-"`
	Purpose        OTPPurpose `gorm:"type:varchar(20);not null" json:"purpose"`
	ExpiresAt      time.Time  `gorm:"not null" json:"expires_at"`
	FailedAttempts int        `gorm:"default:0" json:"failed_attempts"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}
