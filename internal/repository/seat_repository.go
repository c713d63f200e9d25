package repository

import (
	"errors"

	"github.com/koolranch/flat-earth-training/internal/model"
	"github.com/koolranch/flat-earth-training/internal/util"

	"gorm.io/gorm"
)

type SeatRepository struct {
	DB *gorm.DB
}

func NewSeatRepository(db *gorm.DB) *SeatRepository {
	return &SeatRepository{DB: db}
}

func (r *SeatRepository) Find(orgID, courseID uint) (*model.SeatAllocation, error) {
	var s model.SeatAllocation
	err := r.DB.Where("org_id = ? AND course_id = ?", orgID, courseID).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &s, err
}

func (r *SeatRepository) ListByOrg(orgID uint) ([]model.SeatAllocation, error) {
	var list []model.SeatAllocation
	err := r.DB.Where("org_id = ?", orgID).Find(&list).Error
	return list, err
}

// Reserve consumes one seat. The check-then-act race between two
// concurrent acceptances collapses into a single conditional UPDATE:
// whichever statement runs second sees used == total and matches zero
// rows, which surfaces as ErrSeatsExhausted.
func (r *SeatRepository) Reserve(tx *gorm.DB, orgID, courseID uint) error {
	if tx == nil {
		tx = r.DB
	}
	res := tx.Model(&model.SeatAllocation{}).
		Where("org_id = ? AND course_id = ? AND used < total", orgID, courseID).
		Update("used", gorm.Expr("used + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return util.ErrSeatsExhausted
	}
	return nil
}

// Release frees one seat, e.g. when a member is removed before
// finishing a course.
func (r *SeatRepository) Release(tx *gorm.DB, orgID, courseID uint) error {
	if tx == nil {
		tx = r.DB
	}
	return tx.Model(&model.SeatAllocation{}).
		Where("org_id = ? AND course_id = ? AND used > 0", orgID, courseID).
		Update("used", gorm.Expr("used - 1")).Error
}

// SetTotal adjusts capacity but never below seats already in use.
func (r *SeatRepository) SetTotal(orgID, courseID uint, total int) error {
	existing, err := r.Find(orgID, courseID)
	if err != nil {
		return err
	}
	if existing == nil {
		return r.DB.Create(&model.SeatAllocation{OrgID: orgID, CourseID: courseID, Total: total}).Error
	}

	res := r.DB.Model(&model.SeatAllocation{}).
		Where("org_id = ? AND course_id = ? AND used <= ?", orgID, courseID, total).
		Update("total", total)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return util.ErrSeatsBelowUsed
	}
	return nil
}
