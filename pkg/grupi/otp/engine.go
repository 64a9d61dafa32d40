package otp

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/grupi/grupi-server/pkg/grupi/mailer"
	"github.com/grupi/grupi-server/pkg/grupi/models"
	"gorm.io/gorm"
)

var (
	// ErrNotFound means no passcode has been issued (or it was already
	// consumed or superseded).
	ErrNotFound = errors.New("no passcode found")

	// ErrInvalidCode means the submitted code did not match. The attempt
	// was counted.
	ErrInvalidCode = errors.New("incorrect passcode")

	// ErrBlocked covers both expiry and too many failed attempts: the code
	// is permanently dead and the flow must be restarted.
	ErrBlocked = errors.New("passcode expired or blocked")

	// ErrDelivery means the code was issued but the notification could not
	// be delivered. The issuance stands.
	ErrDelivery = errors.New("passcode issued but delivery failed")
)

// RateLimitedError is returned when a new code is requested before the
// cooldown since the previous issuance has elapsed.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("passcode already issued, retry in %ds", int(e.RetryAfter.Seconds()))
}

// Config holds the engine's time and attempt limits.
type Config struct {
	TTL         time.Duration
	Cooldown    time.Duration
	MaxAttempts int
}

// Engine issues and validates single-use 6-digit passcodes. Each user has at
// most one live code; issuing a new one supersedes the old inside a single
// transaction.
type Engine struct {
	db     *gorm.DB
	mailer mailer.Mailer
	cfg    Config

	// Now is swappable so tests can control the clock.
	Now func() time.Time
}

// NewEngine creates an OTP engine.
func NewEngine(db *gorm.DB, m mailer.Mailer, cfg Config) *Engine {
	return &Engine{db: db, mailer: m, cfg: cfg, Now: time.Now}
}

// Issue generates, stores and emails a new passcode for the user. It fails
// with *RateLimitedError if the previous code is younger than the cooldown.
// ErrDelivery is returned when the code was stored but the email failed;
// callers should surface the delivery problem without undoing the issuance.
func (e *Engine) Issue(user models.User, purpose models.OTPPurpose) error {
	now := e.Now()

	var existing models.OTP
	err := e.db.Where("user_id = ?", user.ID).First(&existing).Error
	if err == nil {
		if age := now.Sub(existing.CreatedAt); age < e.cfg.Cooldown {
			return &RateLimitedError{RetryAfter: e.cfg.Cooldown - age}
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	code, err := generateCode()
	if err != nil {
		return err
	}

	record := models.OTP{
		UserID:    user.ID,
		Code:      code,
		Purpose:   purpose,
		CreatedAt: now,
		ExpiresAt: now.Add(e.cfg.TTL),
	}

	err = e.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.OTP{}).Error; err != nil {
			return err
		}
		return tx.Create(&record).Error
	})
	if err != nil {
		return err
	}

	// Delivery is outside the transaction: a failed email never rolls the
	// issuance back.
	subject, body := composeMessage(purpose, code, e.cfg.TTL)
	msg := mailer.Message{
		ToEmail: user.Email,
		ToName:  user.FirstName + " " + user.LastName,
		Subject: subject,
		Body:    body,
	}
	if err := e.mailer.Send(msg); err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	return nil
}

// Validate checks a submitted code against the user's live passcode for the
// given purpose. A correct code is consumed (deleted) and can never validate
// twice; a wrong code costs one attempt.
func (e *Engine) Validate(user models.User, purpose models.OTPPurpose, submitted string) error {
	var record models.OTP
	if err := e.db.Where("user_id = ? AND purpose = ?", user.ID, purpose).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	if record.FailedAttempts >= e.cfg.MaxAttempts || e.Now().After(record.ExpiresAt) {
		return ErrBlocked
	}

	if subtle.ConstantTimeCompare([]byte(record.Code), []byte(submitted)) != 1 {
		record.FailedAttempts++
		if err := e.db.Model(&record).Update("failed_attempts", record.FailedAttempts).Error; err != nil {
			return err
		}
		return ErrInvalidCode
	}

	// Single use: consume the row.
	return e.db.Delete(&record).Error
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func composeMessage(purpose models.OTPPurpose, code string, ttl time.Duration) (subject, body string) {
	minutes := int(ttl.Minutes())
	switch purpose {
	case models.OTPPurposePasswordReset:
		subject = "Your password reset code"
		body = fmt.Sprintf("Use the code %s to reset your password. It expires in %d minutes.\nIf you did not request this, you can ignore this email.", code, minutes)
	default:
		subject = "Confirm your account"
		body = fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, minutes)
	}
	return subject, body
}
