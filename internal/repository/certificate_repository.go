package repository

import (
	"errors"

	"github.com/koolranch/flat-earth-training/internal/model"

	"gorm.io/gorm"
)

type CertificateRepository struct {
	DB *gorm.DB
}

func NewCertificateRepository(db *gorm.DB) *CertificateRepository {
	return &CertificateRepository{DB: db}
}

func (r *CertificateRepository) Create(tx *gorm.DB, cert *model.Certificate) error {
	if tx == nil {
		tx = r.DB
	}
	return tx.Create(cert).Error
}

func (r *CertificateRepository) FindByEnrollment(enrollmentID uint) (*model.Certificate, error) {
	var cert model.Certificate
	err := r.DB.Where("enrollment_id = ?", enrollmentID).First(&cert).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &cert, err
}

func (r *CertificateRepository) ListByUser(userID uint) ([]model.Certificate, error) {
	var list []model.Certificate
	err := r.DB.Where("user_id = ?", userID).Order("issued_at DESC").Find(&list).Error
	return list, err
}

func (r *CertificateRepository) ListByCourse(courseID uint) ([]model.Certificate, error) {
	var list []model.Certificate
	err := r.DB.Where("course_id = ?", courseID).Order("issued_at DESC").Find(&list).Error
	return list, err
}

// ListByOrg joins through enrollments so org admins see certificates
// earned on their seats.
func (r *CertificateRepository) ListByOrg(orgID uint) ([]model.Certificate, error) {
	var list []model.Certificate
	err := r.DB.
		Joins("JOIN enrollments ON enrollments.id = certificates.enrollment_id").
		Where("enrollments.org_id = ?", orgID).
		Order("certificates.issued_at DESC").
		Find(&list).Error
	return list, err
}
