package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/qcom/authapi/internal/config"
	"github.com/qcom/authapi/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, m...)
	return nil
}

func discardLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func render(t *testing.T, m *gomail.Message) string {
	t.Helper()
	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)
	return buf.String()
}

func TestSMTPNotifier_SendWelcome(t *testing.T) {
	d := &fakeDialer{}
	n := NewSMTPNotifier(d, "no-reply@example.com", discardLogger())

	err := n.SendWelcome(context.Background(), &models.User{ID: "u1", Name: "Alice", Email: "a@x.com"})
	require.NoError(t, err)
	require.Len(t, d.sent, 1)

	assert.Equal(t, []string{"no-reply@example.com"}, d.sent[0].GetHeader("From"))
	assert.Equal(t, []string{"Welcome aboard"}, d.sent[0].GetHeader("Subject"))
	assert.Contains(t, d.sent[0].GetHeader("To")[0], "a@x.com")
	assert.Contains(t, render(t, d.sent[0]), "Hello Alice")
}

func TestSMTPNotifier_SendOTP(t *testing.T) {
	d := &fakeDialer{}
	n := NewSMTPNotifier(d, "no-reply@example.com", discardLogger())
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return now }

	otp := &models.OTP{Code: "482913", ExpiresAt: now.Add(5 * time.Minute)}
	require.NoError(t, n.SendOTP(context.Background(), &models.User{Name: "Alice", Email: "a@x.com"}, otp))
	require.Len(t, d.sent, 1)

	body := render(t, d.sent[0])
	assert.Contains(t, body, "482913")
	assert.Contains(t, body, "5 minute(s)")
}

func TestSMTPNotifier_DialError(t *testing.T) {
	n := NewSMTPNotifier(&fakeDialer{err: errors.New("connection refused")}, "f@x.com", discardLogger())

	err := n.SendWelcome(context.Background(), &models.User{Email: "a@x.com"})
	assert.Error(t, err)

	err = n.SendOTP(context.Background(), &models.User{Email: "a@x.com"}, &models.OTP{Code: "123456", ExpiresAt: time.Now()})
	assert.Error(t, err)
}

func TestLogNotifier_LogsOTP(t *testing.T) {
	logger, hook := test.NewNullLogger()
	n := NewLogNotifier(logger)

	require.NoError(t, n.SendOTP(context.Background(), &models.User{ID: "u1", Email: "a@x.com"}, &models.OTP{Code: "482913"}))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "482913", entry.Data["otp"])
	assert.Equal(t, logrus.InfoLevel, entry.Level)
}

func TestNewNotifier_SelectsImplementation(t *testing.T) {
	logger := discardLogger()

	_, isLog := NewNotifier(&config.SMTPConfig{}, logger).(*LogNotifier)
	assert.True(t, isLog)

	_, isSMTP := NewNotifier(&config.SMTPConfig{Host: "smtp.example.com", Port: 2525}, logger).(*SMTPNotifier)
	assert.True(t, isSMTP)
}
