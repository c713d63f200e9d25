package service

import (
	"testing"

	"github.com/koolranch/flat-earth-training/internal/config"
	"github.com/koolranch/flat-earth-training/internal/model"
	"github.com/koolranch/flat-earth-training/internal/repository"
	"github.com/koolranch/flat-earth-training/pkg/database"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestDB opens an isolated in-memory database with the full schema.
// A single connection keeps sqlite's per-connection memory store from
// splitting the schema across the pool.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	return db
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Storage:  config.StorageConfig{Type: "local", LocalPath: t.TempDir()},
		Training: config.TrainingConfig{GuideMinSeconds: 0, InviteTTLHours: 336},
	}
}

func createUser(t *testing.T, db *gorm.DB, email string) *model.User {
	t.Helper()
	user := &model.User{Name: "Test Operator", Email: email, Password: "x"}
	require.NoError(t, db.Create(user).Error)
	return user
}

// createCourse installs a published course whose modules are all
// single-phase videos except the last, which is a two-question quiz.
func createCourse(t *testing.T, db *gorm.DB, slug string, moduleCount int) *model.Course {
	t.Helper()

	course := &model.Course{Slug: slug, Title: "Operator Training", Published: true}
	for i := 1; i < moduleCount; i++ {
		course.Modules = append(course.Modules, model.Module{
			Order:    i,
			Title:    "Lesson",
			Kind:     model.KindVideo,
			VideoRef: "videos/lesson.mp4",
		})
	}
	course.Modules = append(course.Modules, model.Module{
		Order: moduleCount,
		Title: "Final Knowledge Check",
		Kind:  model.KindQuizOnly,
		Questions: []model.QuizQuestion{
			{Order: 1, Prompt: "Seatbelt required?", Choices: []string{"yes", "no"}, CorrectIndex: 0},
			{Order: 2, Prompt: "Horn at intersections?", Choices: []string{"yes", "no"}, CorrectIndex: 0},
		},
	})

	require.NoError(t, db.Create(course).Error)
	return course
}

func enroll(t *testing.T, db *gorm.DB, userID, courseID uint, orgID *uint) *model.Enrollment {
	t.Helper()
	e := &model.Enrollment{UserID: userID, CourseID: courseID, OrgID: orgID}
	require.NoError(t, db.Create(e).Error)
	return e
}

func newProgressionService(t *testing.T, db *gorm.DB, cfg *config.Config) *ProgressionService {
	t.Helper()

	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	certRepo := repository.NewCertificateRepository(db)
	userRepo := repository.NewUserRepository(db)

	storage := NewStorageService(cfg)
	email := NewEmailService(cfg)
	certSvc := NewCertificateService(certRepo, userRepo, storage, email)

	return NewProgressionService(courseRepo, enrollmentRepo, certSvc, cfg, db)
}
