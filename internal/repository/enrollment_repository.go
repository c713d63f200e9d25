package repository

import (
	"errors"
	"time"

	"github.com/koolranch/flat-earth-training/internal/model"

	"gorm.io/gorm"
)

type EnrollmentRepository struct {
	DB *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{DB: db}
}

func (r *EnrollmentRepository) Create(enrollment *model.Enrollment) error {
	return r.DB.Create(enrollment).Error
}

func (r *EnrollmentRepository) FindByID(id uint) (*model.Enrollment, error) {
	var e model.Enrollment
	err := r.DB.First(&e, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &e, err
}

// FindActive returns the learner's current (non-superseded) enrollment
// for a course, or nil. Reads through tx when the caller is inside a
// transaction; pass nil otherwise.
func (r *EnrollmentRepository) FindActive(tx *gorm.DB, userID, courseID uint) (*model.Enrollment, error) {
	if tx == nil {
		tx = r.DB
	}
	var e model.Enrollment
	err := tx.Where("user_id = ? AND course_id = ? AND superseded = ?", userID, courseID, false).
		Order("id DESC").First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &e, err
}

func (r *EnrollmentRepository) ListByUser(userID uint) ([]model.Enrollment, error) {
	var list []model.Enrollment
	err := r.DB.Where("user_id = ? AND superseded = ?", userID, false).Find(&list).Error
	return list, err
}

func (r *EnrollmentRepository) ListByOrg(orgID uint) ([]model.Enrollment, error) {
	var list []model.Enrollment
	err := r.DB.Where("org_id = ? AND superseded = ?", orgID, false).Find(&list).Error
	return list, err
}

// RaiseProgress applies the monotonic max guard as one conditional
// UPDATE: the row only moves when pct is strictly above the stored
// value, so duplicate or out-of-order completion reports are absorbed
// and concurrent writers cannot lose an update. Returns whether this
// call actually advanced the row.
func (r *EnrollmentRepository) RaiseProgress(tx *gorm.DB, enrollmentID uint, pct float64) (bool, error) {
	if tx == nil {
		tx = r.DB
	}
	res := tx.Model(&model.Enrollment{}).
		Where("id = ? AND progress_pct < ?", enrollmentID, pct).
		Update("progress_pct", pct)
	return res.RowsAffected > 0, res.Error
}

// MarkPassed flips the pass flag once. The WHERE guard keeps the
// passed_at timestamp from being rewritten by a duplicate report.
func (r *EnrollmentRepository) MarkPassed(tx *gorm.DB, enrollmentID uint) (bool, error) {
	if tx == nil {
		tx = r.DB
	}
	now := time.Now()
	res := tx.Model(&model.Enrollment{}).
		Where("id = ? AND passed = ?", enrollmentID, false).
		Updates(map[string]interface{}{"passed": true, "passed_at": now})
	return res.RowsAffected > 0, res.Error
}

// Supersede retires an old enrollment so a recertification run gets a
// fresh row while history stays queryable.
func (r *EnrollmentRepository) Supersede(enrollmentID uint) error {
	return r.DB.Model(&model.Enrollment{}).Where("id = ?", enrollmentID).
		Update("superseded", true).Error
}

// --- module progress ---

func (r *EnrollmentRepository) FindModuleProgress(enrollmentID, moduleID uint) (*model.ModuleProgress, error) {
	var mp model.ModuleProgress
	err := r.DB.Where("enrollment_id = ? AND module_id = ?", enrollmentID, moduleID).First(&mp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &mp, err
}

func (r *EnrollmentRepository) CreateModuleProgress(mp *model.ModuleProgress) error {
	return r.DB.Create(mp).Error
}

func (r *EnrollmentRepository) SaveModuleProgress(tx *gorm.DB, mp *model.ModuleProgress) error {
	if tx == nil {
		tx = r.DB
	}
	return tx.Save(mp).Error
}

func (r *EnrollmentRepository) ListModuleProgress(enrollmentID uint) ([]model.ModuleProgress, error) {
	var list []model.ModuleProgress
	err := r.DB.Where("enrollment_id = ?", enrollmentID).Find(&list).Error
	return list, err
}
