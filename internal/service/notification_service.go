package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/qcom/authapi/internal/config"
	"github.com/qcom/authapi/internal/models"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// Notifier delivers account messages to a user.
type Notifier interface {
	SendWelcome(ctx context.Context, user *models.User) error
	SendOTP(ctx context.Context, user *models.User, otp *models.OTP) error
}

// MailDialer is satisfied by *gomail.Dialer.
type MailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPNotifier sends plain-text emails.
type SMTPNotifier struct {
	dialer MailDialer
	from   string
	logger *logrus.Logger
	now    func() time.Time
}

func NewSMTPNotifier(dialer MailDialer, from string, logger *logrus.Logger) *SMTPNotifier {
	return &SMTPNotifier{
		dialer: dialer,
		from:   from,
		logger: logger,
		now:    time.Now,
	}
}

// NewNotifier returns an SMTP notifier when a host is configured and a
// log-only notifier otherwise.
func NewNotifier(cfg *config.SMTPConfig, logger *logrus.Logger) Notifier {
	if cfg.Host == "" {
		logger.Warn("SMTP_HOST not set, notifications will only be logged")
		return NewLogNotifier(logger)
	}
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	return NewSMTPNotifier(dialer, cfg.From, logger)
}

func (n *SMTPNotifier) SendWelcome(_ context.Context, user *models.User) error {
	m := n.message(user, "Welcome aboard", welcomeBody(user))
	if err := n.dialer.DialAndSend(m); err != nil {
		n.logger.WithError(err).WithField("user_id", user.ID).Error("Failed to send welcome email")
		return fmt.Errorf("failed to send welcome email: %w", err)
	}
	return nil
}

func (n *SMTPNotifier) SendOTP(_ context.Context, user *models.User, otp *models.OTP) error {
	m := n.message(user, "Your one-time password", otpBody(user, otp, n.now()))
	if err := n.dialer.DialAndSend(m); err != nil {
		n.logger.WithError(err).WithField("user_id", user.ID).Error("Failed to send OTP email")
		return fmt.Errorf("failed to send OTP email: %w", err)
	}
	return nil
}

func (n *SMTPNotifier) message(user *models.User, subject, body string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetAddressHeader("To", user.Email, user.Name)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	return m
}

func welcomeBody(user *models.User) string {
	return fmt.Sprintf("Hello %s,\n\nYour account has been created. Request a one-time password to sign in.\n\nThank you for joining us!", user.Name)
}

func otpBody(user *models.User, otp *models.OTP, now time.Time) string {
	minutes := int(math.Ceil(otp.ExpiresAt.Sub(now).Minutes()))
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("Hello %s,\n\nYour one-time password is %s.\nIt expires in %d minute(s).\n\nIf you did not request it, you can ignore this email.", user.Name, otp.Code, minutes)
}

// LogNotifier writes notifications to the log instead of sending them.
type LogNotifier struct {
	logger *logrus.Logger
}

func NewLogNotifier(logger *logrus.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendWelcome(_ context.Context, user *models.User) error {
	n.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"email":   user.Email,
	}).Info("Welcome notification (logged for development)")
	return nil
}

func (n *LogNotifier) SendOTP(_ context.Context, user *models.User, otp *models.OTP) error {
	n.logger.WithFields(logrus.Fields{
		"user_id":    user.ID,
		"email":      user.Email,
		"otp":        otp.Code,
		"expires_at": otp.ExpiresAt,
	}).Info("OTP generated (logged for development)")
	return nil
}
