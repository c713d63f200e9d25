package service

import (
	"testing"

	"github.com/koolranch/flat-earth-training/internal/model"
	"github.com/koolranch/flat-earth-training/internal/repository"
	"github.com/koolranch/flat-earth-training/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newOrgService(t *testing.T, db *gorm.DB) *OrgService {
	t.Helper()
	return NewOrgService(
		repository.NewOrganizationRepository(db),
		repository.NewSeatRepository(db),
		repository.NewEnrollmentRepository(db),
		repository.NewUserRepository(db),
		repository.NewCertificateRepository(db),
		db,
	)
}

func TestCreateOrganizationSeatsCreatorAsOwner(t *testing.T) {
	db := newTestDB(t)
	svc := newOrgService(t, db)
	creator := createUser(t, db, "boss@acme.com")

	org, err := svc.CreateOrganization("Acme Logistics", "office@acme.com", creator.ID)
	require.NoError(t, err)

	var membership model.OrgMembership
	require.NoError(t, db.Where("org_id = ? AND user_id = ?", org.ID, creator.ID).First(&membership).Error)
	assert.Equal(t, model.RoleOwner, membership.Role)
}

func TestAssignRoleNormalizesUnknown(t *testing.T) {
	db := newTestDB(t)
	svc := newOrgService(t, db)
	owner := createUser(t, db, "boss@acme.com")
	member := createUser(t, db, "op@acme.com")

	org, err := svc.CreateOrganization("Acme Logistics", "", owner.ID)
	require.NoError(t, err)
	require.NoError(t, db.Create(&model.OrgMembership{OrgID: org.ID, UserID: member.ID, Role: model.RoleMember}).Error)

	require.NoError(t, svc.AssignRole(org.ID, member.ID, model.OrgRole("superadmin")))

	var membership model.OrgMembership
	require.NoError(t, db.Where("org_id = ? AND user_id = ?", org.ID, member.ID).First(&membership).Error)
	assert.Equal(t, model.RoleViewer, membership.Role)
}

func TestLastOwnerCannotBeDemotedOrRemoved(t *testing.T) {
	db := newTestDB(t)
	svc := newOrgService(t, db)
	owner := createUser(t, db, "boss@acme.com")

	org, err := svc.CreateOrganization("Acme Logistics", "", owner.ID)
	require.NoError(t, err)

	err = svc.AssignRole(org.ID, owner.ID, model.RoleAdmin)
	assert.ErrorIs(t, err, util.ErrLastOwner)

	err = svc.RemoveMember(org.ID, owner.ID)
	assert.ErrorIs(t, err, util.ErrLastOwner)

	// A second owner releases the guard.
	second := createUser(t, db, "cofounder@acme.com")
	require.NoError(t, db.Create(&model.OrgMembership{OrgID: org.ID, UserID: second.ID, Role: model.RoleOwner}).Error)
	require.NoError(t, svc.AssignRole(org.ID, owner.ID, model.RoleAdmin))
}

func TestAssignRoleUnknownMember(t *testing.T) {
	db := newTestDB(t)
	svc := newOrgService(t, db)
	owner := createUser(t, db, "boss@acme.com")

	org, err := svc.CreateOrganization("Acme Logistics", "", owner.ID)
	require.NoError(t, err)

	err = svc.AssignRole(org.ID, 9999, model.RoleMember)
	assert.ErrorIs(t, err, util.ErrMembershipNotFound)
}
