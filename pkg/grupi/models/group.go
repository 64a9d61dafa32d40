package models

import "time"

// MaxGroupTags caps how many tags a group may carry.
const MaxGroupTags = 5

// ProjectGroup is a student project group. Its academic fields are copied
// from the creator's profile at creation time and never follow later profile
// changes.
type ProjectGroup struct {
	ID                   uint      `gorm:"primarykey" json:"id"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
	Name                 string    `gorm:"uniqueIndex;not null" json:"name"`
	Description          string    `json:"description"`
	CreatorID            uint      `gorm:"not null" json:"creator_id"`
	IntegrativeProjectID uint      `gorm:"not null" json:"integrative_project_id"`
	CourseID             uint      `gorm:"not null" json:"course_id"`
	TrackID              uint      `gorm:"not null" json:"track_id"`
	CampusID             *uint     `json:"campus_id"`
	DistrictID           *uint     `json:"district_id"`
	Moderated            bool      `gorm:"default:true" json:"moderated"`

	// Relationships
	Creator            User               `gorm:"foreignKey:CreatorID" json:"-"`
	IntegrativeProject IntegrativeProject `gorm:"foreignKey:IntegrativeProjectID" json:"integrative_project,omitempty"`
	Course             Course             `gorm:"foreignKey:CourseID" json:"course,omitempty"`
	Track              Track              `gorm:"foreignKey:TrackID" json:"track,omitempty"`
	Campus             *Campus            `gorm:"foreignKey:CampusID" json:"campus,omitempty"`
	District           *District          `gorm:"foreignKey:DistrictID" json:"district,omitempty"`
	Tags               []Tag              `gorm:"many2many:group_tags;" json:"tags,omitempty"`
	Memberships        []Membership       `gorm:"foreignKey:GroupID" json:"memberships,omitempty"`
}
