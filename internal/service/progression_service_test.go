package service

import (
	"math"
	"testing"
	"time"

	"github.com/koolranch/flat-earth-training/internal/model"
	"github.com/koolranch/flat-earth-training/internal/repository"
	"github.com/koolranch/flat-earth-training/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThresholdMath(t *testing.T) {
	// Seven modules never divide 100 evenly; the math must still gate
	// and terminate cleanly.
	n := 7
	per := PerModule(n)
	assert.InDelta(t, 14.2857, per, 0.001)

	assert.Equal(t, 0.0, UnlockThreshold(1, n))
	assert.InDelta(t, 6*per, UnlockThreshold(7, n), 1e-9)

	// Completing module i unlocks exactly module i+1, nothing further.
	for i := 1; i < n; i++ {
		reached := CompletionPct(i, n)
		assert.True(t, IsUnlocked(reached, i+1, n), "module %d should unlock %d", i, i+1)
		if i+2 <= n {
			assert.False(t, IsUnlocked(reached, i+2, n), "module %d must not unlock %d", i, i+2)
		}
	}

	// The final module always lands on exactly 100.
	assert.Equal(t, 100.0, CompletionPct(n, n))
	assert.Equal(t, 100.0, CompletionPct(5, 5))
	assert.Equal(t, 100.0, CompletionPct(3, 3))

	// Float accumulation around a boundary stays inside the epsilon.
	almost := 2 * (100.0 / 3.0)
	assert.True(t, IsUnlocked(math.Nextafter(almost, 0), 3, 3))
}

func TestStartModuleRequiresUnlock(t *testing.T) {
	db := newTestDB(t)
	cfg := testConfig(t)
	svc := newProgressionService(t, db, cfg)

	user := createUser(t, db, "op@example.com")
	course := createCourse(t, db, "forklift", 3)
	enroll(t, db, user.ID, course.ID, nil)

	// Module 1 opens at zero progress.
	state, err := svc.StartModule(user.ID, course.Modules[0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.PhaseVideo, state.Phase)

	// Module 2 stays locked until module 1 completes.
	_, err = svc.StartModule(user.ID, course.Modules[1].ID)
	assert.ErrorIs(t, err, util.ErrModuleLocked)
}

func TestStartModuleRequiresEnrollment(t *testing.T) {
	db := newTestDB(t)
	cfg := testConfig(t)
	svc := newProgressionService(t, db, cfg)

	createUser(t, db, "enrolled@example.com")
	stranger := createUser(t, db, "stranger@example.com")
	course := createCourse(t, db, "forklift", 3)

	_, err := svc.StartModule(stranger.ID, course.Modules[0].ID)
	assert.ErrorIs(t, err, util.ErrNotEnrolled)
}

func TestWrongPhaseSignalRejected(t *testing.T) {
	db := newTestDB(t)
	cfg := testConfig(t)
	svc := newProgressionService(t, db, cfg)

	user := createUser(t, db, "op@example.com")
	course := createCourse(t, db, "forklift", 3)
	enroll(t, db, user.ID, course.ID, nil)

	_, err := svc.StartModule(user.ID, course.Modules[0].ID)
	require.NoError(t, err)

	// The module is in its video phase; a quiz signal is out of order.
	_, err = svc.HandlePhaseEvent(user.ID, course.Modules[0].ID, PhaseEvent{Phase: model.PhaseQuiz})
	assert.ErrorIs(t, err, util.ErrPhaseNotActive)
}

func TestGuideDwellEnforced(t *testing.T) {
	db := newTestDB(t)
	cfg := testConfig(t)
	cfg.Training.GuideMinSeconds = 90
	svc := newProgressionService(t, db, cfg)

	user := createUser(t, db, "op@example.com")
	course := &model.Course{Slug: "guided", Title: "Guided", Published: true, Modules: []model.Module{
		{Order: 1, Title: "Reading", Kind: model.KindVideo, GuideRef: "guides/intro.md", VideoRef: "videos/intro.mp4"},
	}}
	require.NoError(t, db.Create(course).Error)
	enroll(t, db, user.ID, course.ID, nil)

	state, err := svc.StartModule(user.ID, course.Modules[0].ID)
	require.NoError(t, err)
	require.Equal(t, model.PhaseGuide, state.Phase)

	// An instant completion signal cannot prove the material was read.
	_, err = svc.HandlePhaseEvent(user.ID, course.Modules[0].ID, PhaseEvent{Phase: model.PhaseGuide})
	assert.ErrorIs(t, err, util.ErrGuideTooFast)
}

func TestQuizRequiresAllAnswers(t *testing.T) {
	db := newTestDB(t)
	cfg := testConfig(t)
	svc := newProgressionService(t, db, cfg)

	user := createUser(t, db, "op@example.com")
	course := createCourse(t, db, "forklift", 1)
	enroll(t, db, user.ID, course.ID, nil)

	quiz := course.Modules[0]
	_, err := svc.StartModule(user.ID, quiz.ID)
	require.NoError(t, err)

	_, err = svc.HandlePhaseEvent(user.ID, quiz.ID, PhaseEvent{Phase: model.PhaseQuiz, Answers: []int{0}})
	assert.ErrorIs(t, err, util.ErrQuizIncomplete)

	state, err := svc.HandlePhaseEvent(user.ID, quiz.ID, PhaseEvent{Phase: model.PhaseQuiz, Answers: []int{0, 1}})
	require.NoError(t, err)
	assert.Equal(t, model.PhaseComplete, state.Phase)
	assert.Equal(t, 1, state.QuizScore)
	assert.Equal(t, 2, state.QuizTotal)
}

func TestFullCourseIssuesCertificateExactlyOnce(t *testing.T) {
	db := newTestDB(t)
	cfg := testConfig(t)
	svc := newProgressionService(t, db, cfg)

	user := createUser(t, db, "op@example.com")
	course := createCourse(t, db, "forklift", 3)
	enrollment := enroll(t, db, user.ID, course.ID, nil)

	_, err := svc.CertSvc.ForEnrollment(enrollment.ID)
	assert.ErrorIs(t, err, util.ErrCertificateNotFound)

	for i, m := range course.Modules {
		_, err := svc.StartModule(user.ID, m.ID)
		require.NoError(t, err)

		event := PhaseEvent{Phase: model.PhaseVideo}
		if m.Kind == model.KindQuizOnly {
			event = PhaseEvent{Phase: model.PhaseQuiz, Answers: []int{0, 0}}
		}
		state, err := svc.HandlePhaseEvent(user.ID, m.ID, event)
		require.NoError(t, err)
		assert.Equal(t, model.PhaseComplete, state.Phase)
		assert.InDelta(t, CompletionPct(i+1, 3), state.ProgressPct, 1e-9)
	}

	var refreshed model.Enrollment
	require.NoError(t, db.First(&refreshed, enrollment.ID).Error)
	assert.Equal(t, 100.0, refreshed.ProgressPct)
	assert.True(t, refreshed.Passed)
	require.NotNil(t, refreshed.PassedAt)

	var certs []model.Certificate
	require.NoError(t, db.Where("enrollment_id = ?", enrollment.ID).Find(&certs).Error)
	require.Len(t, certs, 1)
	assert.Contains(t, certs[0].Number, "FLT-")

	found, err := svc.CertSvc.ForEnrollment(enrollment.ID)
	require.NoError(t, err)
	assert.Equal(t, certs[0].Number, found.Number)

	// A replayed final signal is absorbed without a second certificate.
	state, err := svc.HandlePhaseEvent(user.ID, course.Modules[2].ID, PhaseEvent{Phase: model.PhaseQuiz, Answers: []int{0, 0}})
	require.NoError(t, err)
	assert.Equal(t, model.PhaseComplete, state.Phase)

	require.NoError(t, db.Where("enrollment_id = ?", enrollment.ID).Find(&certs).Error)
	assert.Len(t, certs, 1)
}

func TestStartModuleDeliversContent(t *testing.T) {
	db := newTestDB(t)
	cfg := testConfig(t)
	svc := newProgressionService(t, db, cfg)

	user := createUser(t, db, "op@example.com")
	course := createCourse(t, db, "forklift", 2)
	enroll(t, db, user.ID, course.ID, nil)

	state, err := svc.StartModule(user.ID, course.Modules[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "videos/lesson.mp4", state.VideoRef)
	assert.Empty(t, state.Questions)

	_, err = svc.HandlePhaseEvent(user.ID, course.Modules[0].ID, PhaseEvent{Phase: model.PhaseVideo})
	require.NoError(t, err)

	// The quiz module response must carry everything needed to render
	// and answer the quiz, minus the answer key.
	state, err = svc.StartModule(user.ID, course.Modules[1].ID)
	require.NoError(t, err)
	require.Len(t, state.Questions, 2)
	assert.Equal(t, "Seatbelt required?", state.Questions[0].Prompt)
	assert.Equal(t, []string{"yes", "no"}, state.Questions[0].Choices)
}

func TestReplayedPhaseSignalAbsorbed(t *testing.T) {
	db := newTestDB(t)
	cfg := testConfig(t)
	svc := newProgressionService(t, db, cfg)

	user := createUser(t, db, "op@example.com")
	course := &model.Course{Slug: "guided", Title: "Guided", Published: true, Modules: []model.Module{
		{Order: 1, Title: "Reading", Kind: model.KindVideo, GuideRef: "guides/intro.md", VideoRef: "videos/intro.mp4"},
	}}
	require.NoError(t, db.Create(course).Error)
	enroll(t, db, user.ID, course.ID, nil)

	moduleID := course.Modules[0].ID
	_, err := svc.StartModule(user.ID, moduleID)
	require.NoError(t, err)

	state, err := svc.HandlePhaseEvent(user.ID, moduleID, PhaseEvent{Phase: model.PhaseGuide})
	require.NoError(t, err)
	require.Equal(t, model.PhaseVideo, state.Phase)

	// A client retry of the guide signal lands behind the pointer and
	// changes nothing.
	state, err = svc.HandlePhaseEvent(user.ID, moduleID, PhaseEvent{Phase: model.PhaseGuide})
	require.NoError(t, err)
	assert.Equal(t, model.PhaseVideo, state.Phase)

	// A signal for a phase this module does not present is still out of
	// order.
	_, err = svc.HandlePhaseEvent(user.ID, moduleID, PhaseEvent{Phase: model.PhaseQuiz})
	assert.ErrorIs(t, err, util.ErrPhaseNotActive)
}

func TestAggregatorFailureLeavesModuleRetryable(t *testing.T) {
	db := newTestDB(t)
	cfg := testConfig(t)
	svc := newProgressionService(t, db, cfg)

	user := createUser(t, db, "op@example.com")
	course := createCourse(t, db, "forklift", 1)
	enrollment := enroll(t, db, user.ID, course.ID, nil)

	quiz := course.Modules[0]
	_, err := svc.StartModule(user.ID, quiz.ID)
	require.NoError(t, err)

	// A conflicting row on the certificate unique index makes the
	// aggregator transaction fail at issuance.
	blocker := &model.Certificate{
		EnrollmentID: enrollment.ID,
		UserID:       user.ID,
		CourseID:     course.ID,
		Number:       "FLT-BLOCKER",
		IssuedAt:     time.Now(),
	}
	require.NoError(t, db.Create(blocker).Error)

	_, err = svc.HandlePhaseEvent(user.ID, quiz.ID, PhaseEvent{Phase: model.PhaseQuiz, Answers: []int{0, 0}})
	require.Error(t, err)

	// Nothing committed: the phase pointer did not flip and progress
	// did not move, so the same signal can be retried.
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	mp, err := enrollmentRepo.FindModuleProgress(enrollment.ID, quiz.ID)
	require.NoError(t, err)
	require.NotNil(t, mp)
	assert.Equal(t, model.PhaseQuiz, mp.Phase)

	var refreshed model.Enrollment
	require.NoError(t, db.First(&refreshed, enrollment.ID).Error)
	assert.Equal(t, 0.0, refreshed.ProgressPct)
	assert.False(t, refreshed.Passed)

	require.NoError(t, db.Unscoped().Delete(blocker).Error)

	state, err := svc.HandlePhaseEvent(user.ID, quiz.ID, PhaseEvent{Phase: model.PhaseQuiz, Answers: []int{0, 0}})
	require.NoError(t, err)
	assert.Equal(t, model.PhaseComplete, state.Phase)
	assert.Equal(t, 100.0, state.ProgressPct)
	assert.True(t, state.Passed)

	require.NoError(t, db.First(&refreshed, enrollment.ID).Error)
	assert.Equal(t, 100.0, refreshed.ProgressPct)
	assert.True(t, refreshed.Passed)
}

func TestProgressNeverRegresses(t *testing.T) {
	db := newTestDB(t)
	enrollmentRepo := repository.NewEnrollmentRepository(db)

	user := createUser(t, db, "op@example.com")
	course := createCourse(t, db, "forklift", 5)
	enrollment := enroll(t, db, user.ID, course.ID, nil)

	advanced, err := enrollmentRepo.RaiseProgress(nil, enrollment.ID, 40)
	require.NoError(t, err)
	assert.True(t, advanced)

	// A stale or duplicate report for an earlier module matches zero
	// rows and leaves the higher value in place.
	advanced, err = enrollmentRepo.RaiseProgress(nil, enrollment.ID, 20)
	require.NoError(t, err)
	assert.False(t, advanced)

	advanced, err = enrollmentRepo.RaiseProgress(nil, enrollment.ID, 40)
	require.NoError(t, err)
	assert.False(t, advanced)

	var refreshed model.Enrollment
	require.NoError(t, db.First(&refreshed, enrollment.ID).Error)
	assert.Equal(t, 40.0, refreshed.ProgressPct)
}

func TestMarkPassedFiresOnce(t *testing.T) {
	db := newTestDB(t)
	enrollmentRepo := repository.NewEnrollmentRepository(db)

	user := createUser(t, db, "op@example.com")
	course := createCourse(t, db, "forklift", 1)
	enrollment := enroll(t, db, user.ID, course.ID, nil)

	first, err := enrollmentRepo.MarkPassed(nil, enrollment.ID)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := enrollmentRepo.MarkPassed(nil, enrollment.ID)
	require.NoError(t, err)
	assert.False(t, again)
}
