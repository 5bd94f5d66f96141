package services

import (
	"fmt"

	"github.com/taskhub/task-management-api/internal/config"
	"gopkg.in/gomail.v2"
)

// EmailService sends transactional mail. Implementations must be safe to
// call from request handlers; delivery failures are reported as errors and
// the caller decides whether they are fatal.
type EmailService interface {
	SendOTPEmail(email, otp string) error
	SendTaskSharedEmail(email, taskTitle string) error
}

type smtpEmailService struct {
	dialer *gomail.Dialer
	from   string
}

// NewEmailService creates an SMTP-backed EmailService
func NewEmailService(cfg *config.Config) EmailService {
	dialer := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)
	return &smtpEmailService{
		dialer: dialer,
		from:   cfg.SMTPFrom,
	}
}

func (s *smtpEmailService) SendOTPEmail(email, otp string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", email)
	m.SetHeader("Subject", "Your OTP Code")
	m.SetBody("text/plain", fmt.Sprintf("Your OTP code is %s. It will expire in 5 minutes.", otp))

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send OTP email: %w", err)
	}

	return nil
}

func (s *smtpEmailService) SendTaskSharedEmail(email, taskTitle string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", email)
	m.SetHeader("Subject", "Task Shared with You")
	m.SetBody("text/plain", fmt.Sprintf("The task %q has been shared with you. Check your task manager for details.", taskTitle))

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send share email: %w", err)
	}

	return nil
}
