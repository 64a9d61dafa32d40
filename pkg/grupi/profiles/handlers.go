package profiles

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/grupi/grupi-server/pkg/grupi/auth"
	"github.com/grupi/grupi-server/pkg/grupi/models"
	"gorm.io/gorm"
)

// maxProfileTags caps tags at the input boundary; storage itself does not
// care.
const maxProfileTags = 10

// Handler handles profile requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new profiles handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// UpdateProfileRequest represents a self-service profile update
type UpdateProfileRequest struct {
	IntegrativeProjectID *uint   `json:"integrative_project_id"`
	CourseID             *uint   `json:"course_id"`
	CampusID             *uint   `json:"campus_id"`
	TagIDs               *[]uint `json:"tag_ids"`
}

// ProfileResponse represents a profile in API responses
type ProfileResponse struct {
	ID                 uint     `json:"id"`
	UserID             uint     `json:"user_id"`
	Email              string   `json:"email"`
	FirstName          string   `json:"first_name"`
	LastName           string   `json:"last_name"`
	IntegrativeProject int      `json:"integrative_project"`
	Track              string   `json:"track"`
	Course             string   `json:"course"`
	District           string   `json:"district,omitempty"`
	Campus             string   `json:"campus,omitempty"`
	Tags               []string `json:"tags"`
}

func (h *Handler) loadProfileResponse(userID uint) (ProfileResponse, error) {
	var profile models.Profile
	err := h.db.
		Preload("User").
		Preload("IntegrativeProject").
		Preload("Track").
		Preload("Course").
		Preload("District").
		Preload("Campus").
		Preload("Tags").
		Where("user_id = ?", userID).
		First(&profile).Error
	if err != nil {
		return ProfileResponse{}, err
	}

	resp := ProfileResponse{
		ID:                 profile.ID,
		UserID:             profile.UserID,
		Email:              profile.User.Email,
		FirstName:          profile.User.FirstName,
		LastName:           profile.User.LastName,
		IntegrativeProject: profile.IntegrativeProject.Number,
		Track:              profile.Track.Name,
		Course:             profile.Course.Name,
		Tags:               make([]string, 0, len(profile.Tags)),
	}
	if profile.District != nil {
		resp.District = profile.District.Name
	}
	if profile.Campus != nil {
		resp.Campus = profile.Campus.Name
	}
	for _, t := range profile.Tags {
		resp.Tags = append(resp.Tags, t.Name)
	}
	return resp, nil
}

// GetMine returns the caller's profile
func (h *Handler) GetMine(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	resp, err := h.loadProfileResponse(userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// UpdateMine updates the caller's own profile. Track and district are
// re-derived from the chosen course and campus.
func (h *Handler) UpdateMine(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var profile models.Profile
	if err := h.db.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.IntegrativeProjectID != nil {
		if err := h.db.First(&models.IntegrativeProject{}, *req.IntegrativeProjectID).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown integrative project"})
			return
		}
		profile.IntegrativeProjectID = *req.IntegrativeProjectID
	}
	if req.CourseID != nil {
		var course models.Course
		if err := h.db.First(&course, *req.CourseID).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown course"})
			return
		}
		profile.CourseID = course.ID
		profile.TrackID = course.TrackID
	}
	if req.CampusID != nil {
		var campus models.Campus
		if err := h.db.First(&campus, *req.CampusID).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown campus"})
			return
		}
		profile.CampusID = &campus.ID
		profile.DistrictID = &campus.DistrictID
	}

	var tags []models.Tag
	if req.TagIDs != nil {
		if len(*req.TagIDs) > maxProfileTags {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Too many tags"})
			return
		}
		if err := h.db.Where("id IN ?", *req.TagIDs).Find(&tags).Error; err != nil || len(tags) != len(*req.TagIDs) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown tag"})
			return
		}
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&profile).Error; err != nil {
			return err
		}
		if req.TagIDs != nil {
			return tx.Model(&profile).Association("Tags").Replace(tags)
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}

	resp, err := h.loadProfileResponse(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch profile"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetMyTags returns the caller's profile tags
func (h *Handler) GetMyTags(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var profile models.Profile
	if err := h.db.Preload("Tags").Where("user_id = ?", userID).First(&profile).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
		return
	}

	c.JSON(http.StatusOK, profile.Tags)
}

// Get returns the profile of a user by ID
func (h *Handler) Get(c *gin.Context) {
	targetID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	resp, err := h.loadProfileResponse(uint(targetID))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RegisterRoutes registers profile routes. The caller's own profile lives at
// the singular /profile path, away from the :userId wildcard gin would
// otherwise conflict with.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/profile", h.GetMine)
	rg.PATCH("/profile", h.UpdateMine)
	rg.GET("/profile/tags", h.GetMyTags)
	rg.GET("/profiles/:userId", h.Get)
}
