// Package permissions holds the role- and relationship-derived authorization
// rules as pure functions over already-loaded records. Handlers load the
// records; nothing here touches the database.
package permissions

import "github.com/grupi/grupi-server/pkg/grupi/models"

// CanModifyGroup reports whether a membership authorizes update/delete on its
// group. Only the group's ADMIN qualifies.
func CanModifyGroup(membership *models.Membership, group models.ProjectGroup) bool {
	if membership == nil {
		return false
	}
	return membership.GroupID == group.ID && membership.Role == models.RoleAdmin
}

// RemovalDecision explains why a membership removal was denied.
type RemovalDecision int

const (
	RemovalAllowed RemovalDecision = iota
	// RemovalDeniedAdminProtected: the group creator can never be removed or
	// leave; the group must be deleted instead.
	RemovalDeniedAdminProtected
	// RemovalDeniedForbidden: the actor is neither the target nor the
	// group's creator.
	RemovalDeniedForbidden
)

// CanRemoveMembership decides whether actorID may remove target from group:
// members may remove themselves, the creator may remove anyone else, and the
// creator is categorically protected.
func CanRemoveMembership(actorID uint, target models.Membership, group models.ProjectGroup) RemovalDecision {
	if target.UserID == group.CreatorID {
		return RemovalDeniedAdminProtected
	}
	if actorID == target.UserID {
		return RemovalAllowed
	}
	if actorID == group.CreatorID {
		return RemovalAllowed
	}
	return RemovalDeniedForbidden
}

// CanDecideJoinRequest reports whether a membership authorizes approving or
// rejecting a join request for its group.
func CanDecideJoinRequest(membership *models.Membership, request models.JoinRequest) bool {
	if membership == nil {
		return false
	}
	return membership.GroupID == request.GroupID && membership.Role == models.RoleAdmin
}
