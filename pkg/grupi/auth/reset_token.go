package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/grupi/grupi-server/pkg/grupi/models"
)

const resetSubject = "password_reset"

// ResetClaims is the short-lived grant handed out after a successful
// password-reset OTP validation. The grant is bound to a fingerprint of the
// user's current password hash, so it stops working the moment the password
// changes: one effective use.
type ResetClaims struct {
	UserID              uint   `json:"user_id"`
	PasswordFingerprint string `json:"pwf"`
	jwt.RegisteredClaims
}

// GenerateResetToken creates a reset grant for the user, valid for ttl.
func GenerateResetToken(user models.User, ttl time.Duration) (string, error) {
	claims := &ResetClaims{
		UserID:              user.ID,
		PasswordFingerprint: passwordFingerprint(user.PasswordHash),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   resetSubject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "grupi",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(getJWTSecret())
}

// ValidateResetToken checks signature, expiry and scope, returning the claims.
// Callers must still compare the fingerprint against the user's current hash.
func ValidateResetToken(tokenString string) (*ResetClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ResetClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return getJWTSecret(), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*ResetClaims)
	if !ok || !token.Valid || claims.Subject != resetSubject {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// FingerprintMatches reports whether a grant is still bound to the user's
// current password hash.
func FingerprintMatches(claims *ResetClaims, user models.User) bool {
	return claims.PasswordFingerprint == passwordFingerprint(user.PasswordHash)
}

func passwordFingerprint(hash string) string {
	sum := sha256.Sum256([]byte(hash))
	return hex.EncodeToString(sum[:8])
}
