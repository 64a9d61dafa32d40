package groups

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/grupi/grupi-server/pkg/grupi/auth"
	"github.com/grupi/grupi-server/pkg/grupi/models"
	"github.com/grupi/grupi-server/pkg/grupi/permissions"
	"gorm.io/gorm"
)

// Handler handles project-group requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new groups handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// CreateGroupRequest represents the request to create a group
type CreateGroupRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Moderated   *bool  `json:"moderated"`
	TagIDs      []uint `json:"tag_ids"`
}

// UpdateGroupRequest represents the request to update a group
type UpdateGroupRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	TagIDs      *[]uint `json:"tag_ids"`
}

// MemberEntry represents one member in a group response
type MemberEntry struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// GroupResponse represents a group in API responses
type GroupResponse struct {
	ID                 uint          `json:"id"`
	Name               string        `json:"name"`
	Description        string        `json:"description"`
	Creator            string        `json:"creator"`
	IntegrativeProject int           `json:"integrative_project"`
	Track              string        `json:"track"`
	Course             string        `json:"course"`
	District           string        `json:"district,omitempty"`
	Campus             string        `json:"campus,omitempty"`
	Moderated          bool          `json:"moderated"`
	Tags               []string      `json:"tags"`
	Members            []MemberEntry `json:"members"`
}

func (h *Handler) buildGroupResponse(group models.ProjectGroup) (GroupResponse, error) {
	if err := h.db.
		Preload("Creator").
		Preload("IntegrativeProject").
		Preload("Track").
		Preload("Course").
		Preload("District").
		Preload("Campus").
		Preload("Tags").
		Preload("Memberships.User").
		First(&group, group.ID).Error; err != nil {
		return GroupResponse{}, err
	}

	resp := GroupResponse{
		ID:                 group.ID,
		Name:               group.Name,
		Description:        group.Description,
		Creator:            group.Creator.Email,
		IntegrativeProject: group.IntegrativeProject.Number,
		Track:              group.Track.Name,
		Course:             group.Course.Name,
		Moderated:          group.Moderated,
		Tags:               make([]string, 0, len(group.Tags)),
		Members:            make([]MemberEntry, 0, len(group.Memberships)),
	}
	if group.District != nil {
		resp.District = group.District.Name
	}
	if group.Campus != nil {
		resp.Campus = group.Campus.Name
	}
	for _, t := range group.Tags {
		resp.Tags = append(resp.Tags, t.Name)
	}
	for _, m := range group.Memberships {
		resp.Members = append(resp.Members, MemberEntry{
			UserID: m.UserID,
			Email:  m.User.Email,
			Role:   string(m.Role),
		})
	}
	return resp, nil
}

// loadTags resolves tag IDs, enforcing the per-group cap.
func (h *Handler) loadTags(tagIDs []uint) ([]models.Tag, error) {
	if len(tagIDs) > models.MaxGroupTags {
		return nil, errTooManyTags
	}
	if len(tagIDs) == 0 {
		return []models.Tag{}, nil
	}
	var tags []models.Tag
	if err := h.db.Where("id IN ?", tagIDs).Find(&tags).Error; err != nil {
		return nil, err
	}
	if len(tags) != len(tagIDs) {
		return nil, errUnknownTag
	}
	return tags, nil
}

var (
	errTooManyTags = errors.New("a group cannot have more than 5 tags")
	errUnknownTag  = errors.New("unknown tag")
)

// List returns all project groups
func (h *Handler) List(c *gin.Context) {
	var groups []models.ProjectGroup
	if err := h.db.Find(&groups).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch groups"})
		return
	}

	out := make([]GroupResponse, 0, len(groups))
	for _, g := range groups {
		resp, err := h.buildGroupResponse(g)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch groups"})
			return
		}
		out = append(out, resp)
	}

	c.JSON(http.StatusOK, out)
}

// Create creates a new group with the caller as its admin. The group's
// academic placement is copied from the caller's profile at this instant and
// never follows later profile changes.
func (h *Handler) Create(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tags, err := h.loadTags(req.TagIDs)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// One group per user, anywhere in the system.
	var existing models.Membership
	if err := h.db.Where("user_id = ?", userID).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "You already belong to a group and cannot create another"})
		return
	}

	var profile models.Profile
	if err := h.db.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Profile not found"})
		return
	}

	var nameTaken models.ProjectGroup
	if err := h.db.Where("name = ?", req.Name).First(&nameTaken).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Group name already taken"})
		return
	}

	moderated := true
	if req.Moderated != nil {
		moderated = *req.Moderated
	}

	group := models.ProjectGroup{
		Name:                 req.Name,
		Description:          req.Description,
		CreatorID:            userID,
		IntegrativeProjectID: profile.IntegrativeProjectID,
		CourseID:             profile.CourseID,
		TrackID:              profile.TrackID,
		CampusID:             profile.CampusID,
		DistrictID:           profile.DistrictID,
		Moderated:            moderated,
		Tags:                 tags,
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&group).Error; err != nil {
			return err
		}
		membership := models.Membership{
			UserID:  userID,
			GroupID: group.ID,
			Role:    models.RoleAdmin,
		}
		return tx.Create(&membership).Error
	})
	if err != nil {
		// A concurrent create or join may have won the membership unique
		// index; nothing partial survives the rollback.
		c.JSON(http.StatusConflict, gin.H{"error": "Conflicting update, please retry"})
		return
	}

	resp, err := h.buildGroupResponse(group)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch group"})
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Get returns a specific group
func (h *Handler) Get(c *gin.Context) {
	groupID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid group ID"})
		return
	}

	var group models.ProjectGroup
	if err := h.db.First(&group, groupID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
		return
	}

	resp, err := h.buildGroupResponse(group)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch group"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetMine returns the group the caller belongs to
func (h *Handler) GetMine(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var membership models.Membership
	if err := h.db.Where("user_id = ?", userID).First(&membership).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "You are not in a group"})
		return
	}

	resp, err := h.buildGroupResponse(models.ProjectGroup{ID: membership.GroupID})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch group"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Update updates a group's name, description or tags (group admin only)
func (h *Handler) Update(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	groupID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid group ID"})
		return
	}

	var group models.ProjectGroup
	if err := h.db.First(&group, groupID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
		return
	}

	var membership models.Membership
	if err := h.db.Where("user_id = ?", userID).First(&membership).Error; err != nil || !permissions.CanModifyGroup(&membership, group) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the group admin can perform this action"})
		return
	}

	var req UpdateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var tags []models.Tag
	if req.TagIDs != nil {
		tags, err = h.loadTags(*req.TagIDs)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	if req.Name != "" {
		group.Name = req.Name
	}
	if req.Description != nil {
		group.Description = *req.Description
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&group).Error; err != nil {
			return err
		}
		if req.TagIDs != nil {
			return tx.Model(&group).Association("Tags").Replace(tags)
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Conflicting update, please retry"})
		return
	}

	resp, err := h.buildGroupResponse(group)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch group"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Delete deletes a group and everything hanging off it (group admin only)
func (h *Handler) Delete(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	groupID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid group ID"})
		return
	}

	var group models.ProjectGroup
	if err := h.db.First(&group, groupID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
		return
	}

	var membership models.Membership
	if err := h.db.Where("user_id = ?", userID).First(&membership).Error; err != nil || !permissions.CanModifyGroup(&membership, group) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the group admin can perform this action"})
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ?", group.ID).Delete(&models.JoinRequest{}).Error; err != nil {
			return err
		}
		if err := tx.Where("group_id = ?", group.ID).Delete(&models.Membership{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&group).Association("Tags").Clear(); err != nil {
			return err
		}
		return tx.Delete(&group).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete group"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"detail": "Group deleted"})
}

// Leave removes the caller's membership. The group admin can never leave;
// the group must be deleted instead so it is never orphaned.
func (h *Handler) Leave(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var membership models.Membership
	if err := h.db.Where("user_id = ?", userID).First(&membership).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "You are not in a group"})
		return
	}

	if membership.Role == models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "The admin cannot leave the group. Delete the group instead."})
		return
	}

	if err := h.db.Delete(&membership).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to leave group"})
		return
	}

	c.Status(http.StatusNoContent)
}

// RegisterRoutes registers group routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.Get)
	rg.PATCH("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
}

// RegisterSelfRoutes registers the caller-relative actions. These live at the
// top level because gin does not allow a static segment next to the :id
// wildcard under /groups.
func (h *Handler) RegisterSelfRoutes(rg *gin.RouterGroup) {
	rg.GET("/my-group", h.GetMine)
	rg.POST("/leave-group", h.Leave)
}
