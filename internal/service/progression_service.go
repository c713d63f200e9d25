package service

import (
	"time"

	"github.com/koolranch/flat-earth-training/internal/config"
	"github.com/koolranch/flat-earth-training/internal/model"
	"github.com/koolranch/flat-earth-training/internal/repository"
	"github.com/koolranch/flat-earth-training/internal/util"
	"github.com/koolranch/flat-earth-training/pkg/logger"
	"github.com/koolranch/flat-earth-training/pkg/monitoring"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// progressEpsilon absorbs float64 rounding in threshold comparisons so
// a learner sitting exactly on a boundary is never locked out.
const progressEpsilon = 1e-6

// PerModule is each module's share of the course percentage.
func PerModule(moduleCount int) float64 {
	return 100.0 / float64(moduleCount)
}

// UnlockThreshold is the minimum progress before the module at 1-based
// position i becomes accessible.
func UnlockThreshold(i, moduleCount int) float64 {
	return float64(i-1) * PerModule(moduleCount)
}

// CompletionPct is the progress value reached by completing the module
// at position i. The final module clamps to exactly 100 so the course
// always terminates at 100 regardless of divisibility.
func CompletionPct(i, moduleCount int) float64 {
	if i >= moduleCount {
		return 100
	}
	return float64(i) * PerModule(moduleCount)
}

func IsUnlocked(progress float64, i, moduleCount int) bool {
	return progress >= UnlockThreshold(i, moduleCount)-progressEpsilon
}

func IsComplete(progress float64, i, moduleCount int) bool {
	return progress >= CompletionPct(i, moduleCount)-progressEpsilon
}

type ProgressionService struct {
	CourseRepo     *repository.CourseRepository
	EnrollmentRepo *repository.EnrollmentRepository
	CertSvc        *CertificateService
	Cfg            *config.Config
	DB             *gorm.DB
}

func NewProgressionService(
	courseRepo *repository.CourseRepository,
	enrollmentRepo *repository.EnrollmentRepository,
	certSvc *CertificateService,
	cfg *config.Config,
	db *gorm.DB,
) *ProgressionService {
	return &ProgressionService{
		CourseRepo:     courseRepo,
		EnrollmentRepo: enrollmentRepo,
		CertSvc:        certSvc,
		Cfg:            cfg,
		DB:             db,
	}
}

// ModuleState is what the client renders for one module attempt. It
// carries the module's content references and quiz questions so the
// learner can work every phase from this one response.
type ModuleState struct {
	ModuleID    uint               `json:"moduleId"`
	Order       int                `json:"order"`
	Phase       model.Phase        `json:"phase"`
	Phases      []model.Phase      `json:"phases"`
	GuideRef    string             `json:"guideRef,omitempty"`
	VideoRef    string             `json:"videoRef,omitempty"`
	GameRef     string             `json:"gameRef,omitempty"`
	Questions   []QuizQuestionView `json:"questions,omitempty"`
	QuizScore   int                `json:"quizScore,omitempty"`
	QuizTotal   int                `json:"quizTotal,omitempty"`
	ProgressPct float64            `json:"progressPct"`
	Passed      bool               `json:"passed"`
}

// QuizQuestionView is a question as the learner sees it. The correct
// index stays server-side; grading happens on submit.
type QuizQuestionView struct {
	ID      uint     `json:"id"`
	Order   int      `json:"order"`
	Prompt  string   `json:"prompt"`
	Choices []string `json:"choices"`
}

// PhaseEvent is a completion signal reported by the client for the
// phase it just finished. Quiz events carry the submitted answers.
type PhaseEvent struct {
	Phase   model.Phase `json:"phase" binding:"required"`
	Answers []int       `json:"answers,omitempty"`
}

// StartModule places the learner at the module's first present phase,
// creating the persisted phase pointer on first contact. The module
// must be unlocked by the learner's current progress.
func (s *ProgressionService) StartModule(userID, moduleID uint) (*ModuleState, error) {
	module, _, enrollment, err := s.resolve(userID, moduleID)
	if err != nil {
		return nil, err
	}

	mp, err := s.ensureModuleProgress(enrollment, module)
	if err != nil {
		return nil, err
	}

	return s.state(module, mp, enrollment), nil
}

// HandlePhaseEvent advances the phase machine by one step. Transitions
// are forward-only: the signal must name the currently active phase.
// Replays of phases already behind the pointer, and any signal against
// a completed module, are absorbed without effect (idempotent for
// flaky clients).
func (s *ProgressionService) HandlePhaseEvent(userID, moduleID uint, event PhaseEvent) (*ModuleState, error) {
	module, course, enrollment, err := s.resolve(userID, moduleID)
	if err != nil {
		return nil, err
	}

	mp, err := s.ensureModuleProgress(enrollment, module)
	if err != nil {
		return nil, err
	}

	if mp.Phase == model.PhaseComplete {
		return s.state(module, mp, enrollment), nil
	}
	if event.Phase != mp.Phase {
		// A retried signal for a phase the learner already finished is
		// harmless; anything else is out of order.
		if module.HasPhase(event.Phase) && model.PhaseBefore(event.Phase, mp.Phase) {
			return s.state(module, mp, enrollment), nil
		}
		return nil, util.ErrPhaseNotActive
	}

	now := time.Now()
	switch event.Phase {
	case model.PhaseGuide:
		minDwell := time.Duration(s.Cfg.Training.GuideMinSeconds) * time.Second
		if now.Sub(mp.PhaseStartedAt) < minDwell {
			return nil, util.ErrGuideTooFast
		}
		mp.GuideDoneAt = &now
	case model.PhaseVideo:
		mp.VideoDoneAt = &now
	case model.PhaseGame:
		mp.GameDoneAt = &now
	case model.PhaseQuiz:
		if len(event.Answers) != len(module.Questions) {
			return nil, util.ErrQuizIncomplete
		}
		mp.QuizScore = scoreQuiz(module.Questions, event.Answers)
		mp.QuizTotal = len(module.Questions)
		mp.QuizDoneAt = &now
	default:
		return nil, util.ErrPhaseNotActive
	}

	mp.Phase = module.NextPhase(event.Phase)
	mp.PhaseStartedAt = now

	if mp.Phase == model.PhaseComplete {
		// The pointer flip commits together with the aggregator. If
		// anything in there fails, the phase stays where it was and the
		// signal can be retried.
		if err := s.completeModule(enrollment, module, course, mp); err != nil {
			return nil, err
		}
	} else if err := s.EnrollmentRepo.SaveModuleProgress(nil, mp); err != nil {
		return nil, err
	}

	return s.state(module, mp, enrollment), nil
}

// completeModule persists the phase pointer and runs the progress
// aggregator in one transaction: raise progress_pct to this module's
// threshold under the monotonic max guard, and fire certification
// exactly once when the row first reaches 100.
func (s *ProgressionService) completeModule(enrollment *model.Enrollment, module *model.Module, course *model.Course, mp *model.ModuleProgress) error {
	pct := CompletionPct(module.Order, len(course.Modules))

	var issued *model.Certificate
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.EnrollmentRepo.SaveModuleProgress(tx, mp); err != nil {
			return err
		}

		advanced, err := s.EnrollmentRepo.RaiseProgress(tx, enrollment.ID, pct)
		if err != nil {
			return err
		}
		if !advanced {
			// Duplicate or out-of-order report: absorbed, nothing else
			// to do.
			return nil
		}
		enrollment.ProgressPct = pct

		if pct < 100-progressEpsilon {
			return nil
		}

		first, err := s.EnrollmentRepo.MarkPassed(tx, enrollment.ID)
		if err != nil {
			return err
		}
		if !first {
			return nil
		}
		enrollment.Passed = true

		cert, err := s.CertSvc.Issue(tx, enrollment, course)
		if err != nil {
			return err
		}
		issued = cert
		return nil
	})
	if err != nil {
		return err
	}

	monitoring.ModuleCompletions.WithLabelValues(course.Slug).Inc()
	logger.Log.Info("module complete",
		zap.Uint("enrollment", enrollment.ID),
		zap.Uint("module", module.ID),
		zap.Float64("progress", enrollment.ProgressPct))

	if issued != nil {
		monitoring.CertificatesIssued.WithLabelValues(course.Slug).Inc()
		// Artifact rendering and mail happen outside the transaction;
		// both are best-effort.
		s.CertSvc.Deliver(issued, enrollment, course)
	}
	return nil
}

func (s *ProgressionService) resolve(userID, moduleID uint) (*model.Module, *model.Course, *model.Enrollment, error) {
	module, course, err := s.CourseRepo.FindModule(moduleID)
	if err != nil {
		return nil, nil, nil, err
	}
	if module == nil || course == nil {
		return nil, nil, nil, util.ErrModuleNotFound
	}
	if !course.Published {
		return nil, nil, nil, util.ErrCourseNotPublished
	}

	enrollment, err := s.EnrollmentRepo.FindActive(nil, userID, course.ID)
	if err != nil {
		return nil, nil, nil, err
	}
	if enrollment == nil {
		return nil, nil, nil, util.ErrNotEnrolled
	}

	if !IsUnlocked(enrollment.ProgressPct, module.Order, len(course.Modules)) {
		return nil, nil, nil, util.ErrModuleLocked
	}
	return module, course, enrollment, nil
}

func (s *ProgressionService) ensureModuleProgress(enrollment *model.Enrollment, module *model.Module) (*model.ModuleProgress, error) {
	mp, err := s.EnrollmentRepo.FindModuleProgress(enrollment.ID, module.ID)
	if err != nil {
		return nil, err
	}
	if mp != nil {
		return mp, nil
	}

	mp = &model.ModuleProgress{
		EnrollmentID:   enrollment.ID,
		ModuleID:       module.ID,
		Phase:          module.InitialPhase(),
		PhaseStartedAt: time.Now(),
	}
	if err := s.EnrollmentRepo.CreateModuleProgress(mp); err != nil {
		return nil, err
	}
	return mp, nil
}

func (s *ProgressionService) state(module *model.Module, mp *model.ModuleProgress, enrollment *model.Enrollment) *ModuleState {
	questions := make([]QuizQuestionView, 0, len(module.Questions))
	for _, q := range module.Questions {
		questions = append(questions, QuizQuestionView{
			ID:      q.ID,
			Order:   q.Order,
			Prompt:  q.Prompt,
			Choices: q.Choices,
		})
	}

	return &ModuleState{
		ModuleID:    module.ID,
		Order:       module.Order,
		Phase:       mp.Phase,
		Phases:      module.PhaseSequence(),
		GuideRef:    module.GuideRef,
		VideoRef:    module.VideoRef,
		GameRef:     module.GameRef,
		Questions:   questions,
		QuizScore:   mp.QuizScore,
		QuizTotal:   mp.QuizTotal,
		ProgressPct: enrollment.ProgressPct,
		Passed:      enrollment.Passed,
	}
}

// scoreQuiz counts correct answers; evaluation beyond the count is a
// collaborator concern.
func scoreQuiz(questions []model.QuizQuestion, answers []int) int {
	score := 0
	for i, q := range questions {
		if i < len(answers) && answers[i] == q.CorrectIndex {
			score++
		}
	}
	return score
}
