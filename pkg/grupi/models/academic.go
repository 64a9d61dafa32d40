package models

import "time"

// Track is an academic track (area of study) that courses belong to.
type Track struct {
	ID   uint   `gorm:"primarykey" json:"id"`
	Name string `gorm:"uniqueIndex;not null" json:"name"`
}

// Course is a degree course within a track.
type Course struct {
	ID      uint   `gorm:"primarykey" json:"id"`
	Name    string `gorm:"uniqueIndex;not null" json:"name"`
	TrackID uint   `gorm:"not null" json:"track_id"`

	Track Track `gorm:"foreignKey:TrackID" json:"track,omitempty"`
}

// District is a regional district (numbered 1-14) that campuses belong to.
type District struct {
	ID     uint   `gorm:"primarykey" json:"id"`
	Number int    `gorm:"uniqueIndex;not null" json:"number"`
	Name   string `gorm:"uniqueIndex;not null" json:"name"`
}

// Campus is a physical campus within a district.
type Campus struct {
	ID         uint   `gorm:"primarykey" json:"id"`
	Name       string `gorm:"not null" json:"name"`
	DistrictID uint   `gorm:"not null" json:"district_id"`

	District District `gorm:"foreignKey:DistrictID" json:"district,omitempty"`
}

// IntegrativeProject is one of the numbered integrative projects (1-6)
// a student works through during the program.
type IntegrativeProject struct {
	ID     uint `gorm:"primarykey" json:"id"`
	Number int  `gorm:"uniqueIndex;not null" json:"number"`
}

// Tag is a skill or interest label shared by profiles and groups.
type Tag struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`
}
