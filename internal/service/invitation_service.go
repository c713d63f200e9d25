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
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type InvitationService struct {
	InvitationRepo *repository.InvitationRepository
	OrgRepo        *repository.OrganizationRepository
	SeatRepo       *repository.SeatRepository
	EnrollmentRepo *repository.EnrollmentRepository
	UserRepo       *repository.UserRepository
	Email          *EmailService
	Cfg            *config.Config
	DB             *gorm.DB
}

func NewInvitationService(
	invitationRepo *repository.InvitationRepository,
	orgRepo *repository.OrganizationRepository,
	seatRepo *repository.SeatRepository,
	enrollmentRepo *repository.EnrollmentRepository,
	userRepo *repository.UserRepository,
	email *EmailService,
	cfg *config.Config,
	db *gorm.DB,
) *InvitationService {
	return &InvitationService{
		InvitationRepo: invitationRepo,
		OrgRepo:        orgRepo,
		SeatRepo:       seatRepo,
		EnrollmentRepo: enrollmentRepo,
		UserRepo:       userRepo,
		Email:          email,
		Cfg:            cfg,
		DB:             db,
	}
}

// Invite creates a pending invitation. Seat availability is not
// checked here: seats can free up (or be bought) between send and
// accept, so the gate lives in Accept.
func (s *InvitationService) Invite(orgID, inviterID uint, email string, role model.OrgRole, courseID *uint) (*model.Invitation, error) {
	org, err := s.OrgRepo.FindByID(orgID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, util.ErrMembershipNotFound
	}

	inv := &model.Invitation{
		OrgID:       orgID,
		Email:       email,
		Role:        model.NormalizeRole(string(role)),
		CourseID:    courseID,
		Token:       model.GenerateToken(),
		Status:      model.InvitationPending,
		InvitedByID: inviterID,
		ExpiresAt:   time.Now().Add(time.Duration(s.Cfg.Training.InviteTTLHours) * time.Hour),
	}
	if err := s.InvitationRepo.Create(inv); err != nil {
		return nil, err
	}

	s.Email.SendInvitation(email, org.Name, inv.Token)
	return inv, nil
}

// AcceptResult is what the accept endpoint returns: the seated user
// and, when a course was attached, the created enrollment.
type AcceptResult struct {
	User       *model.User       `json:"user"`
	Enrollment *model.Enrollment `json:"enrollment,omitempty"`
}

// Accept converts a pending invitation into a membership (and an
// enrollment when a course is attached). Seat reservation and
// enrollment creation run in one transaction with the status flip, so
// two racing acceptances of the last seat cannot both land: the loser
// gets ErrSeatsExhausted, everything rolls back, and the invitation
// stays pending for a later retry.
func (s *InvitationService) Accept(token, name, password string) (*AcceptResult, error) {
	inv, err := s.InvitationRepo.FindByToken(token)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, util.ErrInvitationNotFound
	}

	switch inv.Status {
	case model.InvitationAccepted:
		return nil, util.ErrInvitationAccepted
	case model.InvitationExpired:
		return nil, util.ErrInvitationExpired
	}
	if time.Now().After(inv.ExpiresAt) {
		// The sweep has not caught this one yet; expire it now.
		s.DB.Model(inv).Update("status", model.InvitationExpired)
		return nil, util.ErrInvitationExpired
	}

	result := &AcceptResult{}
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		user, err := s.findOrCreateUser(tx, inv.Email, name, password)
		if err != nil {
			return err
		}
		result.User = user

		membership, err := s.OrgRepo.FindMembership(tx, inv.OrgID, user.ID)
		if err != nil {
			return err
		}
		if membership == nil {
			if err := s.OrgRepo.CreateMembership(tx, &model.OrgMembership{
				OrgID:  inv.OrgID,
				UserID: user.ID,
				Role:   inv.Role,
			}); err != nil {
				return err
			}
		}

		if inv.CourseID != nil {
			existing, err := s.EnrollmentRepo.FindActive(tx, user.ID, *inv.CourseID)
			if err != nil {
				return err
			}
			if existing != nil {
				return util.ErrAlreadyEnrolled
			}

			if err := s.SeatRepo.Reserve(tx, inv.OrgID, *inv.CourseID); err != nil {
				return err
			}

			orgID := inv.OrgID
			enrollment := &model.Enrollment{
				UserID:   user.ID,
				CourseID: *inv.CourseID,
				OrgID:    &orgID,
			}
			if err := tx.Create(enrollment).Error; err != nil {
				return err
			}
			result.Enrollment = enrollment
		}

		flipped, err := s.InvitationRepo.MarkAccepted(tx, inv.ID)
		if err != nil {
			return err
		}
		if !flipped {
			// Someone else accepted this token concurrently.
			return util.ErrInvitationAccepted
		}
		return nil
	})
	if err != nil {
		if err == util.ErrSeatsExhausted {
			monitoring.SeatReservations.WithLabelValues("exhausted").Inc()
			logger.Log.Warn("invitation acceptance hit exhausted seats",
				zap.Uint("org", inv.OrgID), zap.Uint("invitation", inv.ID))
		}
		return nil, err
	}

	monitoring.SeatReservations.WithLabelValues("reserved").Inc()
	return result, nil
}

func (s *InvitationService) ListByOrg(orgID uint) ([]model.Invitation, error) {
	return s.InvitationRepo.ListByOrg(orgID)
}

// ExpireOverdue is driven by the cron schedule in app setup.
func (s *InvitationService) ExpireOverdue() {
	n, err := s.InvitationRepo.ExpireOverdue()
	if err != nil {
		logger.Log.Error("invitation expiry sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		logger.Log.Info("expired invitations", zap.Int64("count", n))
	}
}

func (s *InvitationService) findOrCreateUser(tx *gorm.DB, email, name, password string) (*model.User, error) {
	var existing model.User
	err := tx.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Name:      name,
		Email:     email,
		Password:  string(hashed),
		LastLogin: time.Now(),
		LastSeen:  time.Now(),
	}
	if err := tx.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}
