// file: internal/services/email_service_test.go
package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"sidequest/internal/models"
)

func TestSendEmail(t *testing.T) {
	service := NewEmailService(zap.NewNop(), "")

	err := service.SendEmail(context.Background(), &SendEmailRequest{
		To:      []string{"test@example.com"},
		Subject: "Welcome",
		Body:    "hello",
	})
	assert.NoError(t, err, "SendEmail should not return an error")
}

func TestSendEmail_RejectsBadRecipient(t *testing.T) {
	service := NewEmailService(zap.NewNop(), "")

	err := service.SendEmail(context.Background(), &SendEmailRequest{
		To:      []string{"not-an-address"},
		Subject: "Welcome",
	})
	assert.True(t, IsValidationError(err))

	err = service.SendEmail(context.Background(), &SendEmailRequest{Subject: "x"})
	assert.True(t, IsValidationError(err))
}

func TestSendNotificationEmail(t *testing.T) {
	service := NewEmailService(zap.NewNop(), "")

	err := service.SendNotificationEmail(context.Background(), "player@example.com", &models.Notification{
		Title:   "Badge unlocked",
		Message: "You earned First Steps",
	})
	assert.NoError(t, err)
}
