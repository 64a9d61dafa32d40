package joinrequests

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

// Handler handles the join-request lifecycle: a user asks to enter a group,
// and either joins immediately (open group) or waits for the group admin to
// approve or reject (moderated group).
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new join-requests handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// RequestResponse represents a join request in API responses
type RequestResponse struct {
	ID        uint   `json:"id"`
	UserID    uint   `json:"user_id"`
	Email     string `json:"email,omitempty"`
	GroupID   uint   `json:"group_id"`
	GroupName string `json:"group_name,omitempty"`
	Status    string `json:"status"`
}

// Join handles a user's attempt to enter a group. Open groups admit
// immediately; moderated groups queue a pending request. There is one
// request row per (user, group): a previously rejected or approved row is
// re-opened in place on a new attempt.
func (h *Handler) Join(c *gin.Context) {
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

	// One group per user, anywhere in the system.
	var existing models.Membership
	if err := h.db.Where("user_id = ?", userID).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "You already belong to a group"})
		return
	}

	var request models.JoinRequest
	hasRow := h.db.Where("user_id = ? AND group_id = ?", userID, group.ID).First(&request).Error == nil
	if hasRow && request.Status == models.RequestPending {
		c.JSON(http.StatusConflict, gin.H{"error": "You already have a pending request for this group"})
		return
	}

	if group.Moderated {
		err = h.db.Transaction(func(tx *gorm.DB) error {
			if hasRow {
				return tx.Model(&request).Update("status", models.RequestPending).Error
			}
			request = models.JoinRequest{UserID: userID, GroupID: group.ID, Status: models.RequestPending}
			return tx.Create(&request).Error
		})
		if err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": "Conflicting update, please retry"})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"detail": "Request queued for approval"})
		return
	}

	// Open group: membership and approved request land together or not at
	// all. The unique index on memberships arbitrates concurrent joins.
	err = h.db.Transaction(func(tx *gorm.DB) error {
		membership := models.Membership{UserID: userID, GroupID: group.ID, Role: models.RoleMember}
		if err := tx.Create(&membership).Error; err != nil {
			return err
		}
		if hasRow {
			return tx.Model(&request).Update("status", models.RequestApproved).Error
		}
		request = models.JoinRequest{UserID: userID, GroupID: group.ID, Status: models.RequestApproved}
		return tx.Create(&request).Error
	})
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Conflicting update, please retry"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"detail": "You joined the group"})
}

// List returns the pending requests for the group the caller administers.
func (h *Handler) List(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var membership models.Membership
	if err := h.db.Where("user_id = ? AND role = ?", userID, models.RoleAdmin).First(&membership).Error; err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only group admins can list join requests"})
		return
	}

	var requests []models.JoinRequest
	if err := h.db.Preload("User").
		Where("group_id = ? AND status = ?", membership.GroupID, models.RequestPending).
		Find(&requests).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch join requests"})
		return
	}

	out := make([]RequestResponse, len(requests))
	for i, r := range requests {
		out[i] = RequestResponse{
			ID:      r.ID,
			UserID:  r.UserID,
			Email:   r.User.Email,
			GroupID: r.GroupID,
			Status:  string(r.Status),
		}
	}
	c.JSON(http.StatusOK, out)
}

// ListMine returns the caller's own requests.
func (h *Handler) ListMine(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var requests []models.JoinRequest
	if err := h.db.Preload("Group").Where("user_id = ?", userID).Find(&requests).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch join requests"})
		return
	}

	out := make([]RequestResponse, len(requests))
	for i, r := range requests {
		out[i] = RequestResponse{
			ID:        r.ID,
			UserID:    r.UserID,
			GroupID:   r.GroupID,
			GroupName: r.Group.Name,
			Status:    string(r.Status),
		}
	}
	c.JSON(http.StatusOK, out)
}

// errRequesterTaken signals that the requester joined another group since the
// request was made; the request is auto-rejected instead of approved.
var errRequesterTaken = errors.New("requester already belongs to a group")

// Approve turns a pending request into a membership (group admin only). The
// one-group-per-user rule is re-checked inside the transaction: a requester
// who joined elsewhere in the meantime gets auto-rejected, never a second
// membership.
func (h *Handler) Approve(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	request, ok := h.authorizeDecision(c, userID)
	if !ok {
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		// Re-read under the transaction so two concurrent approvals cannot
		// both see PENDING.
		var fresh models.JoinRequest
		if err := tx.First(&fresh, request.ID).Error; err != nil {
			return err
		}
		if fresh.Status != models.RequestPending {
			return errAlreadyProcessed
		}
		var taken models.Membership
		if err := tx.Where("user_id = ?", fresh.UserID).First(&taken).Error; err == nil {
			return errRequesterTaken
		}
		membership := models.Membership{UserID: fresh.UserID, GroupID: fresh.GroupID, Role: models.RoleMember}
		if err := tx.Create(&membership).Error; err != nil {
			return err
		}
		return tx.Model(&fresh).Update("status", models.RequestApproved).Error
	})

	switch {
	case errors.Is(err, errAlreadyProcessed):
		c.JSON(http.StatusConflict, gin.H{"error": "Request was already processed"})
	case errors.Is(err, errRequesterTaken):
		// The rejection itself must survive, so it is committed separately.
		if dbErr := h.db.Model(&models.JoinRequest{}).Where("id = ?", request.ID).
			Update("status", models.RequestRejected).Error; dbErr != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update request"})
			return
		}
		c.JSON(http.StatusConflict, gin.H{
			"error":  "Requester already joined another group; the request was rejected",
			"status": string(models.RequestRejected),
		})
	case err != nil:
		c.JSON(http.StatusConflict, gin.H{"error": "Conflicting update, please retry"})
	default:
		c.JSON(http.StatusOK, gin.H{"detail": "Request approved", "status": string(models.RequestApproved)})
	}
}

var errAlreadyProcessed = errors.New("request already processed")

// Reject marks a pending request rejected (group admin only). Terminal
// states are immutable: re-rejecting is a conflict, not a no-op.
func (h *Handler) Reject(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	request, ok := h.authorizeDecision(c, userID)
	if !ok {
		return
	}

	if request.Status != models.RequestPending {
		c.JSON(http.StatusConflict, gin.H{"error": "Request was already processed"})
		return
	}

	if err := h.db.Model(&request).Update("status", models.RequestRejected).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update request"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"detail": "Request rejected", "status": string(models.RequestRejected)})
}

// authorizeDecision loads the request from the :id param and checks that the
// caller administers its group.
func (h *Handler) authorizeDecision(c *gin.Context, userID uint) (models.JoinRequest, bool) {
	requestID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request ID"})
		return models.JoinRequest{}, false
	}

	var request models.JoinRequest
	if err := h.db.First(&request, requestID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Join request not found"})
		return models.JoinRequest{}, false
	}

	var membership models.Membership
	err = h.db.Where("user_id = ?", userID).First(&membership).Error
	if err != nil || !permissions.CanDecideJoinRequest(&membership, request) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the group admin can decide join requests"})
		return models.JoinRequest{}, false
	}

	return request, true
}

// RegisterRoutes registers the join-request decision routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/me", h.ListMine)
	rg.POST("/:id/approve", h.Approve)
	rg.POST("/:id/reject", h.Reject)
}

// RegisterJoinRoute registers the join action under the groups resource
func (h *Handler) RegisterJoinRoute(rg *gin.RouterGroup) {
	rg.POST("/:id/join", h.Join)
}
