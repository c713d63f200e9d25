package model

import (
	"fmt"
)

type ModuleKind string

const (
	KindVideo    ModuleKind = "video"
	KindGame     ModuleKind = "game"
	KindHybrid   ModuleKind = "hybrid"
	KindQuizOnly ModuleKind = "quiz-only"
)

// Course is a certification track (e.g. the forklift operator course).
// Immutable once published; authoring happens on drafts.
type Course struct {
	BaseModel
	Slug        string   `gorm:"size:100;uniqueIndex;not null" json:"slug"`
	Title       string   `gorm:"size:255;not null" json:"title"`
	Description string   `gorm:"type:text" json:"description"`
	Published   bool     `gorm:"default:false" json:"published"`
	Modules     []Module `gorm:"foreignKey:CourseID" json:"modules"`
}

func (Course) TableName() string {
	return "courses"
}

// Module is one step within a course. Kind is an explicit tag; which
// content references must be populated follows from the kind rather
// than being inferred from field presence.
type Module struct {
	BaseModel
	CourseID  uint           `gorm:"index:idx_course_order,unique" json:"courseId"`
	Order     int            `gorm:"column:position;index:idx_course_order,unique;not null" json:"order"`
	Title     string         `gorm:"size:255;not null" json:"title"`
	Kind      ModuleKind     `gorm:"size:20;not null" json:"kind"`
	GuideRef  string         `gorm:"size:255" json:"guideRef,omitempty"`
	VideoRef  string         `gorm:"size:255" json:"videoRef,omitempty"`
	GameRef   string         `gorm:"size:255" json:"gameRef,omitempty"`
	Questions []QuizQuestion `gorm:"foreignKey:ModuleID" json:"questions,omitempty"`
}

func (Module) TableName() string {
	return "modules"
}

type QuizQuestion struct {
	BaseModel
	ModuleID     uint     `gorm:"index" json:"moduleId"`
	Order        int      `gorm:"column:position;default:0" json:"order"`
	Prompt       string   `gorm:"type:text;not null" json:"prompt"`
	Choices      []string `gorm:"serializer:json" json:"choices"`
	CorrectIndex int      `gorm:"not null" json:"-"`
}

func (QuizQuestion) TableName() string {
	return "quiz_questions"
}

// ValidationError marks a malformed course definition, so the API
// layer can report it as a client error rather than a server fault.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func invalidf(format string, args ...interface{}) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// ValidateCourse rejects malformed module lists before a course can be
// published. A learner must never enroll against a list that would
// make the percentage math or unlock gating lie.
func ValidateCourse(c *Course) error {
	if len(c.Modules) == 0 {
		return invalidf("course %q has no modules", c.Slug)
	}

	seen := make(map[int]bool, len(c.Modules))
	for i := range c.Modules {
		m := &c.Modules[i]
		if seen[m.Order] {
			return invalidf("module %q: duplicate order %d", m.Title, m.Order)
		}
		seen[m.Order] = true
		if err := validateModule(m); err != nil {
			return err
		}
	}

	// Orders must be contiguous 1..n, no gaps.
	for i := 1; i <= len(c.Modules); i++ {
		if !seen[i] {
			return invalidf("course %q: module orders are not contiguous, missing %d", c.Slug, i)
		}
	}
	return nil
}

func validateModule(m *Module) error {
	switch m.Kind {
	case KindVideo:
		if m.VideoRef == "" {
			return invalidf("module %q: kind video requires a video reference", m.Title)
		}
		if m.GameRef != "" {
			return invalidf("module %q: kind video must not carry a game reference", m.Title)
		}
	case KindGame:
		if m.GameRef == "" {
			return invalidf("module %q: kind game requires a game reference", m.Title)
		}
		if m.VideoRef != "" {
			return invalidf("module %q: kind game must not carry a video reference", m.Title)
		}
	case KindHybrid:
		if m.VideoRef == "" || m.GameRef == "" {
			return invalidf("module %q: kind hybrid requires video and game references", m.Title)
		}
	case KindQuizOnly:
		if m.VideoRef != "" || m.GameRef != "" {
			return invalidf("module %q: kind quiz-only must not carry content references", m.Title)
		}
		if len(m.Questions) == 0 {
			return invalidf("module %q: kind quiz-only requires quiz questions", m.Title)
		}
	default:
		return invalidf("module %q: unknown kind %q", m.Title, m.Kind)
	}

	if len(m.PhaseSequence()) == 0 {
		return invalidf("module %q has no phases", m.Title)
	}

	for _, q := range m.Questions {
		if len(q.Choices) < 2 {
			return invalidf("module %q: question %q needs at least two choices", m.Title, q.Prompt)
		}
		if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Choices) {
			return invalidf("module %q: question %q has correct index out of range", m.Title, q.Prompt)
		}
	}
	return nil
}
