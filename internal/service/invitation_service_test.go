package service

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/koolranch/flat-earth-training/internal/model"
	"github.com/koolranch/flat-earth-training/internal/repository"
	"github.com/koolranch/flat-earth-training/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type invitationFixture struct {
	svc      *InvitationService
	seatRepo *repository.SeatRepository
	org      *model.Organization
	owner    *model.User
	course   *model.Course
	db       *gorm.DB
}

func newInvitationFixture(t *testing.T, seats int) *invitationFixture {
	t.Helper()

	db := newTestDB(t)
	cfg := testConfig(t)

	orgRepo := repository.NewOrganizationRepository(db)
	seatRepo := repository.NewSeatRepository(db)

	svc := NewInvitationService(
		repository.NewInvitationRepository(db),
		orgRepo,
		seatRepo,
		repository.NewEnrollmentRepository(db),
		repository.NewUserRepository(db),
		NewEmailService(cfg),
		cfg,
		db,
	)

	owner := createUser(t, db, "owner@acme.com")
	org := &model.Organization{Name: "Acme Logistics"}
	require.NoError(t, db.Create(org).Error)
	require.NoError(t, db.Create(&model.OrgMembership{OrgID: org.ID, UserID: owner.ID, Role: model.RoleOwner}).Error)

	course := createCourse(t, db, "forklift", 3)
	require.NoError(t, db.Create(&model.SeatAllocation{OrgID: org.ID, CourseID: course.ID, Total: seats}).Error)

	return &invitationFixture{svc: svc, seatRepo: seatRepo, org: org, owner: owner, course: course, db: db}
}

func (f *invitationFixture) invite(t *testing.T, email string, withCourse bool) *model.Invitation {
	t.Helper()
	var courseID *uint
	if withCourse {
		courseID = &f.course.ID
	}
	inv, err := f.svc.Invite(f.org.ID, f.owner.ID, email, model.RoleMember, courseID)
	require.NoError(t, err)
	return inv
}

func TestAcceptSeatsMemberAndEnrolls(t *testing.T) {
	f := newInvitationFixture(t, 2)
	inv := f.invite(t, "new@acme.com", true)

	result, err := f.svc.Accept(inv.Token, "New Operator", "password123")
	require.NoError(t, err)
	require.NotNil(t, result.User)
	require.NotNil(t, result.Enrollment)

	assert.Equal(t, "new@acme.com", result.User.Email)
	require.NotNil(t, result.Enrollment.OrgID)
	assert.Equal(t, f.org.ID, *result.Enrollment.OrgID)

	var membership model.OrgMembership
	require.NoError(t, f.db.Where("org_id = ? AND user_id = ?", f.org.ID, result.User.ID).First(&membership).Error)
	assert.Equal(t, model.RoleMember, membership.Role)

	seat, err := f.seatRepo.Find(f.org.ID, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, seat.Used)

	var refreshed model.Invitation
	require.NoError(t, f.db.First(&refreshed, inv.ID).Error)
	assert.Equal(t, model.InvitationAccepted, refreshed.Status)
}

func TestAcceptWithoutCourseReservesNoSeat(t *testing.T) {
	f := newInvitationFixture(t, 1)
	inv := f.invite(t, "viewer@acme.com", false)

	result, err := f.svc.Accept(inv.Token, "Office Viewer", "password123")
	require.NoError(t, err)
	assert.Nil(t, result.Enrollment)

	seat, err := f.seatRepo.Find(f.org.ID, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, seat.Used)
}

func TestAcceptExistingMemberAddsNoDuplicateMembership(t *testing.T) {
	f := newInvitationFixture(t, 1)

	existing := createUser(t, f.db, "member@acme.com")
	require.NoError(t, f.db.Create(&model.OrgMembership{OrgID: f.org.ID, UserID: existing.ID, Role: model.RoleViewer}).Error)

	inv := f.invite(t, "member@acme.com", true)
	result, err := f.svc.Accept(inv.Token, "Existing Member", "password123")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, result.User.ID)
	require.NotNil(t, result.Enrollment)

	var memberships int64
	require.NoError(t, f.db.Model(&model.OrgMembership{}).
		Where("org_id = ? AND user_id = ?", f.org.ID, existing.ID).Count(&memberships).Error)
	assert.EqualValues(t, 1, memberships)

	seat, err := f.seatRepo.Find(f.org.ID, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, seat.Used)
}

func TestLastSeatRaceAdmitsExactlyOne(t *testing.T) {
	f := newInvitationFixture(t, 1)
	first := f.invite(t, "first@acme.com", true)
	second := f.invite(t, "second@acme.com", true)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i, token := range []string{first.Token, second.Token} {
		wg.Add(1)
		go func(name, token string) {
			defer wg.Done()
			_, err := f.svc.Accept(token, name, "password123")
			errs <- err
		}(fmt.Sprintf("Operator %d", i+1), token)
	}
	wg.Wait()
	close(errs)

	var admitted, exhausted int
	for err := range errs {
		switch {
		case err == nil:
			admitted++
		case errors.Is(err, util.ErrSeatsExhausted):
			exhausted++
		default:
			t.Fatalf("unexpected accept error: %v", err)
		}
	}
	assert.Equal(t, 1, admitted)
	assert.Equal(t, 1, exhausted)

	seat, err := f.seatRepo.Find(f.org.ID, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, seat.Used)

	var enrollments int64
	require.NoError(t, f.db.Model(&model.Enrollment{}).Where("org_id = ?", f.org.ID).Count(&enrollments).Error)
	assert.EqualValues(t, 1, enrollments)
}

func TestLastSeatGoesToExactlyOneAcceptance(t *testing.T) {
	f := newInvitationFixture(t, 1)
	first := f.invite(t, "first@acme.com", true)
	second := f.invite(t, "second@acme.com", true)

	_, err := f.svc.Accept(first.Token, "First Operator", "password123")
	require.NoError(t, err)

	// The seat ledger is at capacity; the second acceptance loses the
	// conditional update and everything it did rolls back.
	_, err = f.svc.Accept(second.Token, "Second Operator", "password123")
	assert.ErrorIs(t, err, util.ErrSeatsExhausted)

	seat, err := f.seatRepo.Find(f.org.ID, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, seat.Used)

	var refreshed model.Invitation
	require.NoError(t, f.db.First(&refreshed, second.ID).Error)
	assert.Equal(t, model.InvitationPending, refreshed.Status)

	var enrollments int64
	require.NoError(t, f.db.Model(&model.Enrollment{}).Where("org_id = ?", f.org.ID).Count(&enrollments).Error)
	assert.EqualValues(t, 1, enrollments)

	// No membership for the loser either: the transaction is all or
	// nothing.
	var memberships int64
	require.NoError(t, f.db.Model(&model.OrgMembership{}).Where("org_id = ?", f.org.ID).Count(&memberships).Error)
	assert.EqualValues(t, 2, memberships) // owner + first operator
}

func TestSeatTopUpUnblocksPendingInvitation(t *testing.T) {
	f := newInvitationFixture(t, 1)
	first := f.invite(t, "first@acme.com", true)
	second := f.invite(t, "second@acme.com", true)

	_, err := f.svc.Accept(first.Token, "First Operator", "password123")
	require.NoError(t, err)
	_, err = f.svc.Accept(second.Token, "Second Operator", "password123")
	require.ErrorIs(t, err, util.ErrSeatsExhausted)

	// Buying another seat lets the still-pending invitation through.
	require.NoError(t, f.seatRepo.SetTotal(f.org.ID, f.course.ID, 2))

	result, err := f.svc.Accept(second.Token, "Second Operator", "password123")
	require.NoError(t, err)
	require.NotNil(t, result.Enrollment)

	seat, err := f.seatRepo.Find(f.org.ID, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, seat.Used)
}

func TestSeatTotalCannotDropBelowUsed(t *testing.T) {
	f := newInvitationFixture(t, 2)
	inv := f.invite(t, "op@acme.com", true)
	_, err := f.svc.Accept(inv.Token, "Operator", "password123")
	require.NoError(t, err)

	err = f.seatRepo.SetTotal(f.org.ID, f.course.ID, 0)
	assert.ErrorIs(t, err, util.ErrSeatsBelowUsed)

	require.NoError(t, f.seatRepo.SetTotal(f.org.ID, f.course.ID, 1))
}

func TestAcceptTwiceRejected(t *testing.T) {
	f := newInvitationFixture(t, 2)
	inv := f.invite(t, "op@acme.com", true)

	_, err := f.svc.Accept(inv.Token, "Operator", "password123")
	require.NoError(t, err)

	_, err = f.svc.Accept(inv.Token, "Operator", "password123")
	assert.ErrorIs(t, err, util.ErrInvitationAccepted)
}

func TestAcceptExpiredInvitation(t *testing.T) {
	f := newInvitationFixture(t, 2)
	inv := f.invite(t, "late@acme.com", true)

	require.NoError(t, f.db.Model(inv).Update("expires_at", time.Now().Add(-time.Hour)).Error)

	_, err := f.svc.Accept(inv.Token, "Late Operator", "password123")
	assert.ErrorIs(t, err, util.ErrInvitationExpired)

	var refreshed model.Invitation
	require.NoError(t, f.db.First(&refreshed, inv.ID).Error)
	assert.Equal(t, model.InvitationExpired, refreshed.Status)
}

func TestExpireOverdueSweep(t *testing.T) {
	f := newInvitationFixture(t, 2)
	overdue := f.invite(t, "overdue@acme.com", false)
	fresh := f.invite(t, "fresh@acme.com", false)

	require.NoError(t, f.db.Model(overdue).Update("expires_at", time.Now().Add(-time.Hour)).Error)

	f.svc.ExpireOverdue()

	var a, b model.Invitation
	require.NoError(t, f.db.First(&a, overdue.ID).Error)
	require.NoError(t, f.db.First(&b, fresh.ID).Error)
	assert.Equal(t, model.InvitationExpired, a.Status)
	assert.Equal(t, model.InvitationPending, b.Status)
}

func TestInviteUnknownRoleCoercesToViewer(t *testing.T) {
	f := newInvitationFixture(t, 1)

	inv, err := f.svc.Invite(f.org.ID, f.owner.ID, "odd@acme.com", model.OrgRole("superadmin"), nil)
	require.NoError(t, err)
	assert.Equal(t, model.RoleViewer, inv.Role)
}

func TestInviteTTLFromConfig(t *testing.T) {
	f := newInvitationFixture(t, 1)
	f.svc.Cfg.Training.InviteTTLHours = 24

	inv := f.invite(t, "short@acme.com", false)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), inv.ExpiresAt, time.Minute)
}
