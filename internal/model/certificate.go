package model

import (
	"time"
)

// Certificate records one issuance per enrollment. The unique index on
// EnrollmentID backs the exactly-once guarantee when progress first
// reaches 100.
type Certificate struct {
	BaseModel
	EnrollmentID uint      `gorm:"uniqueIndex;not null" json:"enrollmentId"`
	UserID       uint      `gorm:"index" json:"userId"`
	CourseID     uint      `gorm:"index" json:"courseId"`
	Number       string    `gorm:"size:40;uniqueIndex;not null" json:"number"`
	FileURL      string    `gorm:"size:255" json:"fileUrl,omitempty"`
	IssuedAt     time.Time `json:"issuedAt"`
}

func (Certificate) TableName() string {
	return "certificates"
}
