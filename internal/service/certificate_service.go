package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/koolranch/flat-earth-training/internal/model"
	"github.com/koolranch/flat-earth-training/internal/repository"
	"github.com/koolranch/flat-earth-training/internal/util"
	"github.com/koolranch/flat-earth-training/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CertificateService struct {
	CertRepo *repository.CertificateRepository
	UserRepo *repository.UserRepository
	Storage  *StorageService
	Email    *EmailService
}

func NewCertificateService(
	certRepo *repository.CertificateRepository,
	userRepo *repository.UserRepository,
	storage *StorageService,
	email *EmailService,
) *CertificateService {
	return &CertificateService{
		CertRepo: certRepo,
		UserRepo: userRepo,
		Storage:  storage,
		Email:    email,
	}
}

// Issue creates the certificate record inside the caller's
// transaction. The unique index on enrollment_id is the backstop
// against double issuance.
func (s *CertificateService) Issue(tx *gorm.DB, enrollment *model.Enrollment, course *model.Course) (*model.Certificate, error) {
	cert := &model.Certificate{
		EnrollmentID: enrollment.ID,
		UserID:       enrollment.UserID,
		CourseID:     course.ID,
		Number:       certificateNumber(),
		IssuedAt:     time.Now(),
	}
	if err := s.CertRepo.Create(tx, cert); err != nil {
		return nil, err
	}
	return cert, nil
}

// Deliver renders and stores the wallet-card artifact and notifies the
// learner. Both steps are best-effort: a storage or mail hiccup must
// never roll back a completed certification.
func (s *CertificateService) Deliver(cert *model.Certificate, enrollment *model.Enrollment, course *model.Course) {
	user, err := s.UserRepo.FindByID(enrollment.UserID)
	if err != nil || user == nil {
		logger.Log.Error("certificate delivery: user lookup failed",
			zap.Uint("certificate", cert.ID), zap.Error(err))
		return
	}

	card := renderWalletCard(user.Name, course.Title, cert.Number, cert.IssuedAt)
	filename := fmt.Sprintf("certificates/%s.html", cert.Number)
	url, err := s.Storage.Upload(context.Background(), filename, bytes.NewReader(card), int64(len(card)), "text/html")
	if err != nil {
		logger.Log.Error("certificate artifact upload failed",
			zap.String("number", cert.Number), zap.Error(err))
	} else {
		cert.FileURL = url
		if err := s.CertRepo.DB.Model(cert).Update("file_url", url).Error; err != nil {
			logger.Log.Error("certificate url update failed", zap.Error(err))
		}
	}

	s.Email.SendCertificate(user.Email, user.Name, course.Title, cert.Number)
}

func (s *CertificateService) ListForUser(userID uint) ([]model.Certificate, error) {
	return s.CertRepo.ListByUser(userID)
}

// ForEnrollment returns the certificate earned on one enrollment, or
// ErrCertificateNotFound when the course has not been passed yet.
func (s *CertificateService) ForEnrollment(enrollmentID uint) (*model.Certificate, error) {
	cert, err := s.CertRepo.FindByEnrollment(enrollmentID)
	if err != nil {
		return nil, err
	}
	if cert == nil {
		return nil, util.ErrCertificateNotFound
	}
	return cert, nil
}

func certificateNumber() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
	return "FLT-" + raw[:10]
}

func renderWalletCard(name, courseTitle, number string, issued time.Time) []byte {
	return []byte(fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Helvetica, Arial, sans-serif;">
  <div style="border: 2px solid #00004D; border-radius: 8px; max-width: 420px; padding: 24px;">
    <h2 style="margin-top: 0;">Operator Certification</h2>
    <p><strong>%s</strong></p>
    <p>%s</p>
    <p>Certificate %s &middot; Issued %s</p>
    <p style="font-size: 11px; color: #666;">Valid three years from issue. Employer evaluation required per 29 CFR 1910.178(l).</p>
  </div>
</body>
</html>
`, name, courseTitle, number, issued.Format("January 2, 2006")))
}
