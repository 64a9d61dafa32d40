package models

import "time"

// Role is a user's role within their project group.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

// Membership ties a user to their project group. The unique index on UserID
// alone enforces the one-group-per-user rule system-wide: the database is the
// arbiter when two join attempts race. Rows are hard-deleted so the index
// only ever sees live memberships.
type Membership struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	GroupID   uint      `gorm:"index;not null" json:"group_id"`
	Role      Role      `gorm:"type:varchar(10);default:'MEMBER'" json:"role"`

	// Relationships
	User  User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Group ProjectGroup `gorm:"foreignKey:GroupID" json:"group,omitempty"`
}
