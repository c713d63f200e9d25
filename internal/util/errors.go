package util

import "errors"

var (
	ErrEmailRegistered     = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrCourseNotFound      = errors.New("course not found")
	ErrCourseNotPublished  = errors.New("course not published")
	ErrModuleNotFound      = errors.New("module not found")
	ErrNotEnrolled         = errors.New("not enrolled in this course")
	ErrModuleLocked        = errors.New("module locked: previous modules incomplete")
	ErrPhaseNotActive      = errors.New("signal does not match the active phase")
	ErrGuideTooFast        = errors.New("guide minimum reading time not met")
	ErrQuizIncomplete      = errors.New("quiz submission must answer every question")
	ErrSeatsExhausted      = errors.New("no seats available for this course")
	ErrSeatsBelowUsed      = errors.New("seat total cannot drop below seats in use")
	ErrInvitationNotFound  = errors.New("invitation not found")
	ErrInvitationExpired   = errors.New("invitation expired")
	ErrInvitationAccepted  = errors.New("invitation already accepted")
	ErrMembershipNotFound  = errors.New("membership not found")
	ErrLastOwner           = errors.New("organization must keep at least one owner")
	ErrAlreadyEnrolled     = errors.New("already enrolled in this course")
	ErrCertificateNotFound = errors.New("certificate not found")
)
