package models

import "time"

// Profile carries a student's academic placement. Exactly one per user,
// created atomically with the User at registration. TrackID and DistrictID
// are derived from the chosen course and campus when the profile is written,
// so reads never need to walk the reference-data joins.
type Profile struct {
	ID                   uint      `gorm:"primarykey" json:"id"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
	UserID               uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	IntegrativeProjectID uint      `gorm:"not null" json:"integrative_project_id"`
	CourseID             uint      `gorm:"not null" json:"course_id"`
	TrackID              uint      `gorm:"not null" json:"track_id"`
	CampusID             *uint     `json:"campus_id"`
	DistrictID           *uint     `json:"district_id"`

	// Relationships
	User               User               `gorm:"foreignKey:UserID" json:"-"`
	IntegrativeProject IntegrativeProject `gorm:"foreignKey:IntegrativeProjectID" json:"integrative_project,omitempty"`
	Course             Course             `gorm:"foreignKey:CourseID" json:"course,omitempty"`
	Track              Track              `gorm:"foreignKey:TrackID" json:"track,omitempty"`
	Campus             *Campus            `gorm:"foreignKey:CampusID" json:"campus,omitempty"`
	District           *District          `gorm:"foreignKey:DistrictID" json:"district,omitempty"`
	Tags               []Tag              `gorm:"many2many:profile_tags;" json:"tags,omitempty"`
}
