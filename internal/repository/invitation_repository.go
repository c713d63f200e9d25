package repository

import (
	"errors"
	"time"

	"github.com/koolranch/flat-earth-training/internal/model"

	"gorm.io/gorm"
)

type InvitationRepository struct {
	DB *gorm.DB
}

func NewInvitationRepository(db *gorm.DB) *InvitationRepository {
	return &InvitationRepository{DB: db}
}

func (r *InvitationRepository) Create(inv *model.Invitation) error {
	return r.DB.Create(inv).Error
}

func (r *InvitationRepository) FindByToken(token string) (*model.Invitation, error) {
	var inv model.Invitation
	err := r.DB.Where("token = ?", token).First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &inv, err
}

func (r *InvitationRepository) ListByOrg(orgID uint) ([]model.Invitation, error) {
	var list []model.Invitation
	err := r.DB.Where("org_id = ?", orgID).Order("id DESC").Find(&list).Error
	return list, err
}

// MarkAccepted transitions pending → accepted. The status guard in the
// WHERE clause makes double-acceptance of the same token a no-op for
// the loser.
func (r *InvitationRepository) MarkAccepted(tx *gorm.DB, invitationID uint) (bool, error) {
	if tx == nil {
		tx = r.DB
	}
	now := time.Now()
	res := tx.Model(&model.Invitation{}).
		Where("id = ? AND status = ?", invitationID, model.InvitationPending).
		Updates(map[string]interface{}{"status": model.InvitationAccepted, "accepted_at": now})
	return res.RowsAffected > 0, res.Error
}

// ExpireOverdue sweeps pending invitations past their deadline.
func (r *InvitationRepository) ExpireOverdue() (int64, error) {
	res := r.DB.Model(&model.Invitation{}).
		Where("status = ? AND expires_at < ?", model.InvitationPending, time.Now()).
		Update("status", model.InvitationExpired)
	return res.RowsAffected, res.Error
}
