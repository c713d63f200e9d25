package model

import (
	"time"
)

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationExpired  InvitationStatus = "expired"
)

// Invitation is created by an org admin and consumed when the invited
// email registers. Seat availability is checked at acceptance time,
// not at send time; an invitation that hits an exhausted ledger stays
// pending so the admin can retry after freeing seats.
type Invitation struct {
	BaseModel
	OrgID       uint             `gorm:"index;not null" json:"orgId"`
	Email       string           `gorm:"size:100;index;not null" json:"email"`
	Role        OrgRole          `gorm:"size:20;not null" json:"role"`
	CourseID    *uint            `gorm:"index" json:"courseId,omitempty"`
	Token       string           `gorm:"size:36;uniqueIndex;not null" json:"-"`
	Status      InvitationStatus `gorm:"size:20;not null" json:"status"`
	InvitedByID uint             `json:"invitedById"`
	ExpiresAt   time.Time        `gorm:"index" json:"expiresAt"`
	AcceptedAt  *time.Time       `json:"acceptedAt,omitempty"`
}

func (Invitation) TableName() string {
	return "invitations"
}
