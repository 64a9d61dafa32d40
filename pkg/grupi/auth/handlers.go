package auth

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/grupi/grupi-server/pkg/grupi/config"
	"github.com/grupi/grupi-server/pkg/grupi/models"
	"github.com/grupi/grupi-server/pkg/grupi/otp"
	"gorm.io/gorm"
)

// Handler handles account registration, verification, login and password
// reset.
type Handler struct {
	db  *gorm.DB
	otp *otp.Engine
	cfg *config.Config
}

// NewHandler creates a new auth handler
func NewHandler(db *gorm.DB, engine *otp.Engine, cfg *config.Config) *Handler {
	return &Handler{db: db, otp: engine, cfg: cfg}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Email                string `json:"email" binding:"required,email"`
	Password             string `json:"password" binding:"required,min=8"`
	FirstName            string `json:"first_name" binding:"required"`
	LastName             string `json:"last_name" binding:"required"`
	IntegrativeProjectID uint   `json:"integrative_project_id" binding:"required"`
	CourseID             uint   `json:"course_id" binding:"required"`
	CampusID             *uint  `json:"campus_id"`
}

// VerifyRequest carries an email plus the submitted passcode.
type VerifyRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required,len=6"`
}

// EmailRequest is used by the resend and password-reset endpoints.
type EmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// CompleteResetRequest finishes a password reset with the grant token.
type CompleteResetRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse represents the authentication response
type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// UserResponse represents user data in responses
type UserResponse struct {
	ID        uint   `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// genericAccepted is the uniform response for enumeration-sensitive flows:
// identical whether or not the account exists.
func genericAccepted(c *gin.Context) {
	c.JSON(http.StatusAccepted, gin.H{"detail": "If the address is eligible, a code has been sent."})
}

// handleIssueErr maps OTP issuance failures onto responses. Rate limits are
// surfaced with a machine-readable retry-after; delivery failures are logged
// and folded into the generic response so the issuance stands.
func handleIssueErr(c *gin.Context, err error) {
	var rl *otp.RateLimitedError
	switch {
	case err == nil:
		genericAccepted(c)
	case errors.As(err, &rl):
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":       "A code was sent recently",
			"retry_after": int(rl.RetryAfter.Seconds()),
		})
	case errors.Is(err, otp.ErrDelivery):
		log.Printf("otp delivery failed: %v", err)
		genericAccepted(c)
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue code"})
	}
}

// Register creates an inactive account with its profile and sends a
// verification code. The response never reveals whether the email was
// already registered.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !strings.HasSuffix(email, "@"+h.cfg.AllowedEmailDomain) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Registration requires a @" + h.cfg.AllowedEmailDomain + " address"})
		return
	}

	var course models.Course
	if err := h.db.First(&course, req.CourseID).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown course"})
		return
	}
	if err := h.db.First(&models.IntegrativeProject{}, req.IntegrativeProjectID).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown integrative project"})
		return
	}
	var campus *models.Campus
	if req.CampusID != nil {
		campus = &models.Campus{}
		if err := h.db.First(campus, *req.CampusID).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown campus"})
			return
		}
	}

	var existing models.User
	if err := h.db.Where("email = ?", email).First(&existing).Error; err == nil {
		// Same shape as the success path: don't leak that the account exists.
		genericAccepted(c)
		return
	}

	hashedPassword, err := HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process password"})
		return
	}

	user := models.User{
		Email:        email,
		PasswordHash: hashedPassword,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		profile := models.Profile{
			UserID:               user.ID,
			IntegrativeProjectID: req.IntegrativeProjectID,
			CourseID:             req.CourseID,
			TrackID:              course.TrackID,
		}
		if campus != nil {
			profile.CampusID = &campus.ID
			profile.DistrictID = &campus.DistrictID
		}
		return tx.Create(&profile).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})
		return
	}

	handleIssueErr(c, h.otp.Issue(user, models.OTPPurposeRegistration))
}

// Verify activates an account with the emailed passcode.
func (h *Handler) Verify(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := h.db.Where("email = ?", strings.ToLower(req.Email)).First(&user).Error; err != nil {
		// Same outcome as a missing code.
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired code, restart the flow"})
		return
	}

	switch err := h.otp.Validate(user, models.OTPPurposeRegistration, req.Code); {
	case errors.Is(err, otp.ErrInvalidCode):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Incorrect code"})
		return
	case errors.Is(err, otp.ErrNotFound), errors.Is(err, otp.ErrBlocked):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired code, restart the flow"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify code"})
		return
	}

	updates := map[string]interface{}{"is_active": true, "is_email_verified": true}
	if err := h.db.Model(&user).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to activate account"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"detail": "Account verified. You can now log in."})
}

// ResendVerification re-issues a registration code for unverified accounts.
func (h *Handler) ResendVerification(c *gin.Context) {
	var req EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := h.db.Where("email = ?", strings.ToLower(req.Email)).First(&user).Error; err != nil || user.IsEmailVerified {
		genericAccepted(c)
		return
	}

	handleIssueErr(c, h.otp.Issue(user, models.OTPPurposeRegistration))
}

// Login handles user login
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := h.db.Where("email = ?", strings.ToLower(req.Email)).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	if !CheckPassword(req.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	if !user.IsActive {
		c.JSON(http.StatusForbidden, gin.H{"error": "Account not verified"})
		return
	}

	token, err := GenerateToken(user.ID, user.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, AuthResponse{
		Token: token,
		User: UserResponse{
			ID:        user.ID,
			Email:     user.Email,
			FirstName: user.FirstName,
			LastName:  user.LastName,
		},
	})
}

// RequestPasswordReset issues a reset code. Uniform response regardless of
// whether the account exists.
func (h *Handler) RequestPasswordReset(c *gin.Context) {
	var req EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := h.db.Where("email = ?", strings.ToLower(req.Email)).First(&user).Error; err != nil {
		genericAccepted(c)
		return
	}

	handleIssueErr(c, h.otp.Issue(user, models.OTPPurposePasswordReset))
}

// ConfirmPasswordReset trades a valid reset code for a short-lived grant
// token scoped to a single password change.
func (h *Handler) ConfirmPasswordReset(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := h.db.Where("email = ?", strings.ToLower(req.Email)).First(&user).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired code, restart the flow"})
		return
	}

	switch err := h.otp.Validate(user, models.OTPPurposePasswordReset, req.Code); {
	case errors.Is(err, otp.ErrInvalidCode):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Incorrect code"})
		return
	case errors.Is(err, otp.ErrNotFound), errors.Is(err, otp.ErrBlocked):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired code, restart the flow"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify code"})
		return
	}

	grant, err := GenerateResetToken(user, h.cfg.ResetGrantTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate reset token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"reset_token": grant})
}

// CompletePasswordReset sets a new password using the grant token. The grant
// is bound to the old password hash, so it cannot be replayed after the
// change.
func (h *Handler) CompletePasswordReset(c *gin.Context) {
	var req CompleteResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claims, err := ValidateResetToken(req.Token)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Reset token invalid or expired"})
		return
	}

	var user models.User
	if err := h.db.First(&user, claims.UserID).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Reset token invalid or expired"})
		return
	}

	if !FingerprintMatches(claims, user) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Reset token invalid or expired"})
		return
	}

	hashedPassword, err := HashPassword(req.NewPassword)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process password"})
		return
	}

	if err := h.db.Model(&user).Update("password_hash", hashedPassword).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"detail": "Password updated. You can now log in."})
}

// Me returns the current authenticated user
func (h *Handler) Me(c *gin.Context) {
	userID, exists := GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	})
}

// RegisterRoutes registers auth routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/register", h.Register)
	rg.POST("/verify", h.Verify)
	rg.POST("/verify/resend", h.ResendVerification)
	rg.POST("/login", h.Login)
	rg.POST("/password-reset", h.RequestPasswordReset)
	rg.POST("/password-reset/confirm", h.ConfirmPasswordReset)
	rg.POST("/password-reset/complete", h.CompletePasswordReset)
	rg.GET("/me", AuthMiddleware(), h.Me)
}
