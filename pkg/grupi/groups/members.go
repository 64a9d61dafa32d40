package groups

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/grupi/grupi-server/pkg/grupi/auth"
	"github.com/grupi/grupi-server/pkg/grupi/models"
	"github.com/grupi/grupi-server/pkg/grupi/permissions"
)

// ListMembers returns all members of a group
func (h *Handler) ListMembers(c *gin.Context) {
	groupID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid group ID"})
		return
	}

	if err := h.db.First(&models.ProjectGroup{}, groupID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
		return
	}

	var memberships []models.Membership
	if err := h.db.Preload("User").Where("group_id = ?", groupID).Find(&memberships).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch members"})
		return
	}

	members := make([]MemberEntry, len(memberships))
	for i, m := range memberships {
		members[i] = MemberEntry{
			UserID: m.UserID,
			Email:  m.User.Email,
			Role:   string(m.Role),
		}
	}

	c.JSON(http.StatusOK, members)
}

// RemoveMember removes a user from a group. A member may remove themself and
// the group admin may remove anyone else; the admin themself is untouchable
// by this path.
func (h *Handler) RemoveMember(c *gin.Context) {
	actorID, _ := auth.GetUserID(c)
	groupID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid group ID"})
		return
	}
	targetID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var group models.ProjectGroup
	if err := h.db.First(&group, groupID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
		return
	}

	var target models.Membership
	if err := h.db.Where("user_id = ? AND group_id = ?", targetID, groupID).First(&target).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Member not found"})
		return
	}

	switch permissions.CanRemoveMembership(actorID, target, group) {
	case permissions.RemovalDeniedAdminProtected:
		c.JSON(http.StatusForbidden, gin.H{"error": "The admin cannot be removed or leave. Delete the group instead."})
		return
	case permissions.RemovalDeniedForbidden:
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the group admin can remove other members"})
		return
	}

	if err := h.db.Delete(&target).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove member"})
		return
	}

	c.Status(http.StatusNoContent)
}

// RegisterMemberRoutes registers member management routes
func (h *Handler) RegisterMemberRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/members", h.ListMembers)
	rg.DELETE("/:id/members/:userId", h.RemoveMember)
}
