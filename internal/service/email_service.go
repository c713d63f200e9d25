package service

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/koolranch/flat-earth-training/internal/config"
	"github.com/koolranch/flat-earth-training/pkg/logger"

	"go.uber.org/zap"
)

// EmailService sends transactional mail over plain SMTP. Delivery is
// always best-effort; callers never block a transaction on it.
type EmailService struct {
	Cfg *config.Config
}

func NewEmailService(cfg *config.Config) *EmailService {
	return &EmailService{Cfg: cfg}
}

func (s *EmailService) send(to []string, subject, htmlBody string) {
	smtpCfg := s.Cfg.SMTP
	if smtpCfg.Host == "" {
		logger.Log.Debug("smtp not configured, skipping mail", zap.String("subject", subject))
		return
	}

	msg := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n"
	msg += fmt.Sprintf("From: Flat Earth Equipment <%s>\r\n", smtpCfg.Sender)
	msg += fmt.Sprintf("To: %s\r\n", strings.Join(to, ","))
	msg += fmt.Sprintf("Subject: %s\r\n\r\n", subject)
	msg += htmlBody

	auth := smtp.PlainAuth("", smtpCfg.Sender, smtpCfg.Password, smtpCfg.Host)
	addr := fmt.Sprintf("%s:%d", smtpCfg.Host, smtpCfg.Port)

	if err := smtp.SendMail(addr, auth, smtpCfg.Sender, to, []byte(msg)); err != nil {
		logger.Log.Error("email send failed", zap.String("subject", subject), zap.Error(err))
		return
	}
	logger.Log.Info("email sent", zap.String("subject", subject), zap.Strings("to", to))
}

func emailTemplate(title, bodyContent string) string {
	return fmt.Sprintf(`
	<!DOCTYPE html>
	<html>
	<head>
		<style>
			body { font-family: 'Helvetica Neue', Helvetica, Arial, sans-serif; background-color: #F6F6F6; margin: 0; padding: 0; }
			.container { max-width: 600px; margin: 40px auto; background: #FFFFFF; border-radius: 8px; overflow: hidden; }
			.header { background-color: #00004D; padding: 30px; text-align: center; }
			.header h1 { color: #FFFFFF; margin: 0; font-size: 24px; letter-spacing: 1px; }
			.content { padding: 40px 30px; color: #00004D; line-height: 1.6; }
			.footer { background-color: #F6F6F6; padding: 20px; text-align: center; font-size: 12px; color: #666666; }
			.btn { display: inline-block; padding: 12px 24px; background-color: #E3A008; color: #FFFFFF; text-decoration: none; border-radius: 4px; font-weight: bold; margin-top: 20px; }
		</style>
	</head>
	<body>
		<div class="container">
			<div class="header">
				<h1>FLAT EARTH EQUIPMENT</h1>
			</div>
			<div class="content">
				<h2>%s</h2>
				%s
			</div>
			<div class="footer">
				&copy; 2026 Flat Earth Equipment. All rights reserved.
			</div>
		</div>
	</body>
	</html>
	`, title, bodyContent)
}

// SendInvitation mails the accept link for a pending invitation.
func (s *EmailService) SendInvitation(to, orgName string, token string) {
	link := fmt.Sprintf("%s/invitations/accept?token=%s", s.Cfg.Server.BaseURL, token)
	body := fmt.Sprintf(`
		<p>%s has invited you to their training team.</p>
		<p>Accept the invitation to claim your seat and start your certification.</p>
		<a class="btn" href="%s">Accept Invitation</a>
	`, orgName, link)
	go s.send([]string{to}, "You're invited to join "+orgName, emailTemplate("Training Invitation", body))
}

// SendCertificate notifies a learner their certificate is ready.
func (s *EmailService) SendCertificate(to, name, courseTitle, number string) {
	body := fmt.Sprintf(`
		<p>Congratulations %s!</p>
		<p>You have completed <strong>%s</strong>.</p>
		<p>Your certificate number is <strong>%s</strong>. Your employer must still complete a practical evaluation before you operate independently.</p>
	`, name, courseTitle, number)
	go s.send([]string{to}, "Your certificate is ready", emailTemplate("Certification Complete", body))
}
