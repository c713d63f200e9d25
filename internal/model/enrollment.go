package model

import (
	"time"
)

// Enrollment binds a learner to a course, optionally within an
// organization. ProgressPct only ever moves up (the repository
// enforces the max guard); re-certification supersedes the old row
// instead of resetting it.
type Enrollment struct {
	BaseModel
	UserID      uint       `gorm:"index:idx_enroll_user_course" json:"userId"`
	CourseID    uint       `gorm:"index:idx_enroll_user_course" json:"courseId"`
	OrgID       *uint      `gorm:"index" json:"orgId,omitempty"`
	ProgressPct float64    `gorm:"default:0" json:"progressPct"`
	Passed      bool       `gorm:"default:false" json:"passed"`
	PassedAt    *time.Time `json:"passedAt,omitempty"`
	Superseded  bool       `gorm:"default:false" json:"superseded"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}

// ModuleProgress is the persisted phase pointer for one
// (enrollment, module) pair. Requests may land on any instance, so the
// machine's state lives here rather than in memory.
type ModuleProgress struct {
	BaseModel
	EnrollmentID   uint       `gorm:"index:idx_enrollment_module,unique" json:"enrollmentId"`
	ModuleID       uint       `gorm:"index:idx_enrollment_module,unique" json:"moduleId"`
	Phase          Phase      `gorm:"size:20;not null" json:"phase"`
	PhaseStartedAt time.Time  `json:"phaseStartedAt"`
	GuideDoneAt    *time.Time `json:"guideDoneAt,omitempty"`
	VideoDoneAt    *time.Time `json:"videoDoneAt,omitempty"`
	GameDoneAt     *time.Time `json:"gameDoneAt,omitempty"`
	QuizDoneAt     *time.Time `json:"quizDoneAt,omitempty"`
	QuizScore      int        `gorm:"default:0" json:"quizScore"`
	QuizTotal      int        `gorm:"default:0" json:"quizTotal"`
}

func (ModuleProgress) TableName() string {
	return "module_progress"
}
