package models

import "time"

// RequestStatus is the lifecycle state of a join request.
type RequestStatus string

const (
	RequestPending  RequestStatus = "PENDING"
	RequestApproved RequestStatus = "APPROVED"
	RequestRejected RequestStatus = "REJECTED"
)

// JoinRequest records a user's attempt to enter a group. There is at most
// one row per (user, group); its status transitions in place, so a rejected
// user who requests again re-opens the same row rather than inserting a
// duplicate. That keeps the no-two-pending rule a plain unique index.
type JoinRequest struct {
	ID        uint          `gorm:"primarykey" json:"id"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	UserID    uint          `gorm:"not null;uniqueIndex:idx_request_user_group" json:"user_id"`
	GroupID   uint          `gorm:"not null;uniqueIndex:idx_request_user_group" json:"group_id"`
	Status    RequestStatus `gorm:"type:varchar(10);default:'PENDING'" json:"status"`

	// Relationships
	User  User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Group ProjectGroup `gorm:"foreignKey:GroupID" json:"group,omitempty"`
}
