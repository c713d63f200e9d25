package repository

import (
	"errors"

	"github.com/koolranch/flat-earth-training/internal/model"

	"gorm.io/gorm"
)

type OrganizationRepository struct {
	DB *gorm.DB
}

func NewOrganizationRepository(db *gorm.DB) *OrganizationRepository {
	return &OrganizationRepository{DB: db}
}

func (r *OrganizationRepository) Create(org *model.Organization) error {
	return r.DB.Create(org).Error
}

func (r *OrganizationRepository) FindByID(id uint) (*model.Organization, error) {
	var org model.Organization
	err := r.DB.First(&org, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &org, err
}

// FindMembership reads through tx when the caller is inside a
// transaction; pass nil otherwise.
func (r *OrganizationRepository) FindMembership(tx *gorm.DB, orgID, userID uint) (*model.OrgMembership, error) {
	if tx == nil {
		tx = r.DB
	}
	var m model.OrgMembership
	err := tx.Where("org_id = ? AND user_id = ?", orgID, userID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &m, err
}

func (r *OrganizationRepository) CreateMembership(tx *gorm.DB, m *model.OrgMembership) error {
	if tx == nil {
		tx = r.DB
	}
	return tx.Create(m).Error
}

func (r *OrganizationRepository) UpdateRole(orgID, userID uint, role model.OrgRole) error {
	return r.DB.Model(&model.OrgMembership{}).
		Where("org_id = ? AND user_id = ?", orgID, userID).
		Update("role", role).Error
}

func (r *OrganizationRepository) DeleteMembership(orgID, userID uint) error {
	return r.DB.Where("org_id = ? AND user_id = ?", orgID, userID).
		Delete(&model.OrgMembership{}).Error
}

func (r *OrganizationRepository) ListMemberships(orgID uint) ([]model.OrgMembership, error) {
	var list []model.OrgMembership
	err := r.DB.Where("org_id = ?", orgID).Find(&list).Error
	return list, err
}

func (r *OrganizationRepository) CountByRole(orgID uint, role model.OrgRole) (int64, error) {
	var count int64
	err := r.DB.Model(&model.OrgMembership{}).
		Where("org_id = ? AND role = ?", orgID, role).Count(&count).Error
	return count, err
}
