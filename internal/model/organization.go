package model

// Organization is a billing/administrative grouping of learners.
type Organization struct {
	BaseModel
	Name         string `gorm:"size:255;not null" json:"name"`
	ContactEmail string `gorm:"size:100" json:"contactEmail"`
}

func (Organization) TableName() string {
	return "organizations"
}

// OrgMembership binds a user to exactly one role within one
// organization.
type OrgMembership struct {
	BaseModel
	OrgID  uint    `gorm:"index:idx_org_user,unique" json:"orgId"`
	UserID uint    `gorm:"index:idx_org_user,unique" json:"userId"`
	Role   OrgRole `gorm:"size:20;not null" json:"role"`
}

func (OrgMembership) TableName() string {
	return "org_memberships"
}

// SeatAllocation is the per-(org, course) seat ledger. Used never
// exceeds Total; the reservation path enforces that with a conditional
// update, not a read-then-write.
type SeatAllocation struct {
	BaseModel
	OrgID    uint `gorm:"index:idx_org_course,unique" json:"orgId"`
	CourseID uint `gorm:"index:idx_org_course,unique" json:"courseId"`
	Total    int  `gorm:"not null" json:"total"`
	Used     int  `gorm:"default:0" json:"used"`
}

func (SeatAllocation) TableName() string {
	return "seat_allocations"
}

func (s *SeatAllocation) Available() int {
	return s.Total - s.Used
}
