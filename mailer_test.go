package tasks_test

import (
	"context"
	"testing"

	tasks "github.com/goliatone/go-tasks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSMTPMailerValidatesConfig(t *testing.T) {
	_, err := tasks.NewSMTPMailer(tasks.SMTPConfig{From: "noreply@example.com"})
	assert.Error(t, err, "host is required")

	_, err = tasks.NewSMTPMailer(tasks.SMTPConfig{Host: "smtp.example.com"})
	assert.Error(t, err, "sender is required")

	mailer, err := tasks.NewSMTPMailer(tasks.SMTPConfig{
		Host: "smtp.example.com",
		Port: 587,
		From: "noreply@example.com",
	})
	require.NoError(t, err)
	assert.NotNil(t, mailer)
}

type captureLogger struct {
	lines []string
}

func (c *captureLogger) Debug(format string, args ...any) { c.lines = append(c.lines, format) }
func (c *captureLogger) Info(format string, args ...any)  { c.lines = append(c.lines, format) }
func (c *captureLogger) Error(format string, args ...any) { c.lines = append(c.lines, format) }

func TestLogMailerNeverFails(t *testing.T) {
	logger := &captureLogger{}
	mailer := tasks.NewLogMailer(logger)

	err := mailer.Send(context.Background(), "alice@example.com", "Verify your email", "code 123456", "<p>123456</p>")
	require.NoError(t, err)
	assert.NotEmpty(t, logger.lines)
}
