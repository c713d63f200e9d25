package service

import (
	"github.com/koolranch/flat-earth-training/internal/model"
	"github.com/koolranch/flat-earth-training/internal/repository"
	"github.com/koolranch/flat-earth-training/internal/util"

	"gorm.io/gorm"
)

type OrgService struct {
	OrgRepo        *repository.OrganizationRepository
	SeatRepo       *repository.SeatRepository
	EnrollmentRepo *repository.EnrollmentRepository
	UserRepo       *repository.UserRepository
	CertRepo       *repository.CertificateRepository
	DB             *gorm.DB
}

func NewOrgService(
	orgRepo *repository.OrganizationRepository,
	seatRepo *repository.SeatRepository,
	enrollmentRepo *repository.EnrollmentRepository,
	userRepo *repository.UserRepository,
	certRepo *repository.CertificateRepository,
	db *gorm.DB,
) *OrgService {
	return &OrgService{
		OrgRepo:        orgRepo,
		SeatRepo:       seatRepo,
		EnrollmentRepo: enrollmentRepo,
		UserRepo:       userRepo,
		CertRepo:       certRepo,
		DB:             db,
	}
}

// CreateOrganization creates the org and seats its creator as owner in
// one transaction.
func (s *OrgService) CreateOrganization(name, contactEmail string, creatorID uint) (*model.Organization, error) {
	org := &model.Organization{Name: name, ContactEmail: contactEmail}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(org).Error; err != nil {
			return err
		}
		return s.OrgRepo.CreateMembership(tx, &model.OrgMembership{
			OrgID:  org.ID,
			UserID: creatorID,
			Role:   model.RoleOwner,
		})
	})
	if err != nil {
		return nil, err
	}
	return org, nil
}

type MemberView struct {
	UserID uint          `json:"userId"`
	Name   string        `json:"name"`
	Email  string        `json:"email"`
	Role   model.OrgRole `json:"role"`
}

func (s *OrgService) Members(orgID uint) ([]MemberView, error) {
	memberships, err := s.OrgRepo.ListMemberships(orgID)
	if err != nil {
		return nil, err
	}

	views := make([]MemberView, 0, len(memberships))
	for _, m := range memberships {
		user, err := s.UserRepo.FindByID(m.UserID)
		if err != nil {
			return nil, err
		}
		if user == nil {
			continue
		}
		views = append(views, MemberView{
			UserID: m.UserID,
			Name:   user.Name,
			Email:  user.Email,
			Role:   m.Role,
		})
	}
	return views, nil
}

// AssignRole changes a member's role. The last owner cannot be
// demoted, otherwise the org would be unmanageable.
func (s *OrgService) AssignRole(orgID, userID uint, role model.OrgRole) error {
	role = model.NormalizeRole(string(role))

	membership, err := s.OrgRepo.FindMembership(nil, orgID, userID)
	if err != nil {
		return err
	}
	if membership == nil {
		return util.ErrMembershipNotFound
	}

	if membership.Role == model.RoleOwner && role != model.RoleOwner {
		owners, err := s.OrgRepo.CountByRole(orgID, model.RoleOwner)
		if err != nil {
			return err
		}
		if owners <= 1 {
			return util.ErrLastOwner
		}
	}

	return s.OrgRepo.UpdateRole(orgID, userID, role)
}

func (s *OrgService) RemoveMember(orgID, userID uint) error {
	membership, err := s.OrgRepo.FindMembership(nil, orgID, userID)
	if err != nil {
		return err
	}
	if membership == nil {
		return util.ErrMembershipNotFound
	}
	if membership.Role == model.RoleOwner {
		owners, err := s.OrgRepo.CountByRole(orgID, model.RoleOwner)
		if err != nil {
			return err
		}
		if owners <= 1 {
			return util.ErrLastOwner
		}
	}
	return s.OrgRepo.DeleteMembership(orgID, userID)
}

func (s *OrgService) SeatLedger(orgID uint) ([]model.SeatAllocation, error) {
	return s.SeatRepo.ListByOrg(orgID)
}

func (s *OrgService) SetSeats(orgID, courseID uint, total int) error {
	return s.SeatRepo.SetTotal(orgID, courseID, total)
}

// RosterEntry is one learner row in the org progress roster.
type RosterEntry struct {
	UserID      uint    `json:"userId"`
	Name        string  `json:"name"`
	Email       string  `json:"email"`
	CourseID    uint    `json:"courseId"`
	ProgressPct float64 `json:"progressPct"`
	Passed      bool    `json:"passed"`
}

// Roster lists every active enrollment in the org with its progress,
// the admin's window into stalled learners.
func (s *OrgService) Roster(orgID uint) ([]RosterEntry, error) {
	enrollments, err := s.EnrollmentRepo.ListByOrg(orgID)
	if err != nil {
		return nil, err
	}

	entries := make([]RosterEntry, 0, len(enrollments))
	for _, e := range enrollments {
		user, err := s.UserRepo.FindByID(e.UserID)
		if err != nil {
			return nil, err
		}
		if user == nil {
			continue
		}
		entries = append(entries, RosterEntry{
			UserID:      e.UserID,
			Name:        user.Name,
			Email:       user.Email,
			CourseID:    e.CourseID,
			ProgressPct: e.ProgressPct,
			Passed:      e.Passed,
		})
	}
	return entries, nil
}

// Certificates lists every certificate earned on the org's seats.
func (s *OrgService) Certificates(orgID uint) ([]model.Certificate, error) {
	return s.CertRepo.ListByOrg(orgID)
}
