// file: internal/services/email_service.go
package services

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"sidequest/internal/models"
)

// emailService implements the EmailService interface. Messages are logged;
// no outbound transport is configured.
type emailService struct {
	logger *zap.Logger
	from   string
}

// NewEmailService creates a new instance of EmailService
func NewEmailService(logger *zap.Logger, from string) EmailService {
	if from == "" {
		from = "SideQuest <no-reply@sidequest.app>"
	}
	return &emailService{
		logger: logger,
		from:   from,
	}
}

// SendEmail sends a basic email
func (s *emailService) SendEmail(ctx context.Context, req *SendEmailRequest) error {
	if req == nil || len(req.To) == 0 {
		return NewValidationError("at least one recipient is required", nil)
	}
	for _, to := range req.To {
		if _, err := mail.ParseAddress(to); err != nil {
			return NewValidationError(fmt.Sprintf("invalid recipient %q", to), err)
		}
	}
	if strings.TrimSpace(req.Subject) == "" {
		return NewValidationError("subject is required", nil)
	}

	s.logger.Info("Sending email",
		zap.String("from", s.from),
		zap.Strings("to", req.To),
		zap.String("subject", req.Subject),
		zap.Bool("html", req.IsHTML),
		zap.Int("body_length", len(req.Body)),
	)
	return nil
}

// SendNotificationEmail mirrors an in-app notification by email
func (s *emailService) SendNotificationEmail(ctx context.Context, to string, n *models.Notification) error {
	if n == nil {
		return NewValidationError("notification is required", nil)
	}
	return s.SendEmail(ctx, &SendEmailRequest{
		To:      []string{to},
		Subject: "SideQuest: " + n.Title,
		Body:    n.Message,
	})
}
