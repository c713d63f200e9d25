package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/koolranch/flat-earth-training/internal/model"
	"github.com/koolranch/flat-earth-training/internal/repository"
	"github.com/koolranch/flat-earth-training/internal/util"
	"github.com/koolranch/flat-earth-training/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const courseCacheTTL = 10 * time.Minute

type CourseService struct {
	CourseRepo     *repository.CourseRepository
	EnrollmentRepo *repository.EnrollmentRepository
	Redis          *redis.Client
}

func NewCourseService(courseRepo *repository.CourseRepository, enrollmentRepo *repository.EnrollmentRepository, rdb *redis.Client) *CourseService {
	return &CourseService{
		CourseRepo:     courseRepo,
		EnrollmentRepo: enrollmentRepo,
		Redis:          rdb,
	}
}

// ModuleView is one module as the learner sees it in the course page:
// content plus the unlock/complete flags derived from their progress.
type ModuleView struct {
	ID       uint             `json:"id"`
	Order    int              `json:"order"`
	Title    string           `json:"title"`
	Kind     model.ModuleKind `json:"kind"`
	Phases   []model.Phase    `json:"phases"`
	Unlocked bool             `json:"unlocked"`
	Complete bool             `json:"complete"`
}

type CourseView struct {
	ID          uint         `json:"id"`
	Slug        string       `json:"slug"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	ProgressPct float64      `json:"progressPct"`
	Passed      bool         `json:"passed"`
	Modules     []ModuleView `json:"modules"`
}

func (s *CourseService) Catalog() ([]model.Course, error) {
	return s.CourseRepo.ListPublished()
}

// GetCourseView builds the per-learner course page. The course
// definition itself comes through the redis cache; the learner flags
// are computed per request.
func (s *CourseService) GetCourseView(userID uint, slug string) (*CourseView, error) {
	course, err := s.loadPublished(slug)
	if err != nil {
		return nil, err
	}

	enrollment, err := s.EnrollmentRepo.FindActive(nil, userID, course.ID)
	if err != nil {
		return nil, err
	}
	if enrollment == nil {
		return nil, util.ErrNotEnrolled
	}

	n := len(course.Modules)
	view := &CourseView{
		ID:          course.ID,
		Slug:        course.Slug,
		Title:       course.Title,
		Description: course.Description,
		ProgressPct: enrollment.ProgressPct,
		Passed:      enrollment.Passed,
		Modules:     make([]ModuleView, 0, n),
	}
	for _, m := range course.Modules {
		view.Modules = append(view.Modules, ModuleView{
			ID:       m.ID,
			Order:    m.Order,
			Title:    m.Title,
			Kind:     m.Kind,
			Phases:   m.PhaseSequence(),
			Unlocked: IsUnlocked(enrollment.ProgressPct, m.Order, n),
			Complete: IsComplete(enrollment.ProgressPct, m.Order, n),
		})
	}
	return view, nil
}

// ActiveEnrollment resolves the caller's current enrollment in a
// published course by slug.
func (s *CourseService) ActiveEnrollment(userID uint, slug string) (*model.Enrollment, error) {
	course, err := s.loadPublished(slug)
	if err != nil {
		return nil, err
	}
	enrollment, err := s.EnrollmentRepo.FindActive(nil, userID, course.ID)
	if err != nil {
		return nil, err
	}
	if enrollment == nil {
		return nil, util.ErrNotEnrolled
	}
	return enrollment, nil
}

// loadPublished fetches a published course, going through redis so the
// (immutable once published) module list is not re-read per request.
func (s *CourseService) loadPublished(slug string) (*model.Course, error) {
	cacheKey := "course:" + slug

	if s.Redis != nil {
		val, err := s.Redis.Get(context.Background(), cacheKey).Result()
		if err == nil {
			var cached model.Course
			if err := json.Unmarshal([]byte(val), &cached); err == nil {
				return &cached, nil
			}
		}
	}

	course, err := s.CourseRepo.FindBySlug(slug)
	if err != nil {
		return nil, err
	}
	if course == nil {
		return nil, util.ErrCourseNotFound
	}
	if !course.Published {
		return nil, util.ErrCourseNotPublished
	}

	if s.Redis != nil {
		if raw, err := json.Marshal(course); err == nil {
			if err := s.Redis.Set(context.Background(), cacheKey, raw, courseCacheTTL).Err(); err != nil {
				logger.Log.Warn("course cache write failed", zap.String("slug", slug), zap.Error(err))
			}
		}
	}
	return course, nil
}

// Enroll creates an individual (no-org) enrollment for a learner who
// self-registers into a published course.
func (s *CourseService) Enroll(userID uint, slug string) (*model.Enrollment, error) {
	course, err := s.loadPublished(slug)
	if err != nil {
		return nil, err
	}

	existing, err := s.EnrollmentRepo.FindActive(nil, userID, course.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, util.ErrAlreadyEnrolled
	}

	enrollment := &model.Enrollment{UserID: userID, CourseID: course.ID}
	if err := s.EnrollmentRepo.Create(enrollment); err != nil {
		return nil, err
	}
	return enrollment, nil
}

// Recertify supersedes a passed enrollment and opens a fresh one, so
// the three-year renewal starts from zero while history is kept.
func (s *CourseService) Recertify(userID uint, slug string) (*model.Enrollment, error) {
	course, err := s.loadPublished(slug)
	if err != nil {
		return nil, err
	}

	current, err := s.EnrollmentRepo.FindActive(nil, userID, course.ID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, util.ErrNotEnrolled
	}

	if err := s.EnrollmentRepo.Supersede(current.ID); err != nil {
		return nil, err
	}

	enrollment := &model.Enrollment{UserID: userID, CourseID: course.ID, OrgID: current.OrgID}
	if err := s.EnrollmentRepo.Create(enrollment); err != nil {
		return nil, err
	}
	return enrollment, nil
}

// --- authoring (site staff) ---

func (s *CourseService) CreateCourse(course *model.Course) error {
	course.Published = false
	return s.CourseRepo.Create(course)
}

func (s *CourseService) UpdateCourse(course *model.Course) error {
	existing, err := s.CourseRepo.FindByID(course.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return util.ErrCourseNotFound
	}
	if err := s.CourseRepo.Save(course); err != nil {
		return err
	}
	s.invalidate(existing.Slug)
	return nil
}

// Publish validates the module list and flips the published flag. A
// malformed list (gapped order, kind/field mismatch) is fatal to
// publishing; it can never reach a learner.
func (s *CourseService) Publish(courseID uint) error {
	course, err := s.CourseRepo.FindByID(courseID)
	if err != nil {
		return err
	}
	if course == nil {
		return util.ErrCourseNotFound
	}

	if err := model.ValidateCourse(course); err != nil {
		return err
	}

	if err := s.CourseRepo.SetPublished(courseID, true); err != nil {
		return err
	}
	s.invalidate(course.Slug)
	return nil
}

func (s *CourseService) invalidate(slug string) {
	if s.Redis != nil {
		s.Redis.Del(context.Background(), "course:"+slug)
	}
}
