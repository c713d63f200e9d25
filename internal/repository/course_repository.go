package repository

import (
	"errors"

	"github.com/koolranch/flat-earth-training/internal/model"

	"gorm.io/gorm"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

func (r *CourseRepository) preloadModules(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Modules", func(db *gorm.DB) *gorm.DB {
			return db.Order("modules.position ASC")
		}).
		Preload("Modules.Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("quiz_questions.position ASC")
		})
}

func (r *CourseRepository) FindBySlug(slug string) (*model.Course, error) {
	var course model.Course
	err := r.preloadModules(r.DB).Where("slug = ?", slug).First(&course).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &course, err
}

func (r *CourseRepository) FindByID(id uint) (*model.Course, error) {
	var course model.Course
	err := r.preloadModules(r.DB).First(&course, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &course, err
}

// FindModule loads one module together with its owning course and the
// course's full ordered module list (needed for unlock math).
func (r *CourseRepository) FindModule(moduleID uint) (*model.Module, *model.Course, error) {
	var module model.Module
	err := r.DB.Preload("Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("quiz_questions.position ASC")
	}).First(&module, moduleID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	course, err := r.FindByID(module.CourseID)
	if err != nil {
		return nil, nil, err
	}
	return &module, course, nil
}

func (r *CourseRepository) ListPublished() ([]model.Course, error) {
	var courses []model.Course
	err := r.DB.Where("published = ?", true).Order("title ASC").Find(&courses).Error
	return courses, err
}

func (r *CourseRepository) Create(course *model.Course) error {
	return r.DB.Create(course).Error
}

func (r *CourseRepository) Save(course *model.Course) error {
	return r.DB.Session(&gorm.Session{FullSaveAssociations: true}).Save(course).Error
}

func (r *CourseRepository) SetPublished(courseID uint, published bool) error {
	return r.DB.Model(&model.Course{}).Where("id = ?", courseID).
		Update("published", published).Error
}
