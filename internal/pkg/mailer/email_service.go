package mailer

import (
	"fmt"
	"time"

	"ai-chat-be/internal/pkg/logger"

	"gopkg.in/gomail.v2"
)

type IEmailService interface {
	SendOTP(toEmail, otp string, ttl time.Duration) error
}

type emailService struct {
	dialer      *gomail.Dialer
	senderEmail string
	senderName  string
	logger      logger.ILogger
}

func NewEmailService(host string, port int, username, password, senderName string, log logger.ILogger) IEmailService {
	d := gomail.NewDialer(host, port, username, password)

	return &emailService{
		dialer:      d,
		senderEmail: username,
		senderName:  senderName,
		logger:      log,
	}
}

func (s *emailService) SendOTP(toEmail, otp string, ttl time.Duration) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.senderEmail, s.senderName)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", "Your Verification Code")

	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<p>Your verification code is:</p>
			<h1 style="color: #4CAF50; letter-spacing: 5px;">%s</h1>
			<p>This code will expire in %d minutes.</p>
			<p>If you didn't request this, please ignore this email.</p>
		</div>
	`, otp, int(ttl.Minutes()))

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		s.logger.Error("MAILER", "Failed to send OTP", map[string]interface{}{
			"to":    toEmail,
			"error": err.Error(),
		})
		return err
	}

	s.logger.Info("MAILER", "OTP sent", map[string]interface{}{"to": toEmail})
	return nil
}

// noopEmailService stands in when SMTP is not configured.
type noopEmailService struct {
	logger logger.ILogger
}

func NewNoopEmailService(log logger.ILogger) IEmailService {
	return &noopEmailService{logger: log}
}

func (s *noopEmailService) SendOTP(toEmail, otp string, ttl time.Duration) error {
	s.logger.Debug("MAILER", "SMTP not configured, OTP mail skipped", map[string]interface{}{"to": toEmail})
	return nil
}
