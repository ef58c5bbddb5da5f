package email

import (
	"context"
	"fmt"

	"github.com/referlink/backend/pkg/domain"
	"github.com/referlink/backend/pkg/logger"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Service sends notification emails. With a SendGrid key it delivers for
// real; without one it logs the message and reports success, which keeps
// development and tests quiet.
type Service struct {
	fromEmail   string
	fromName    string
	sendGridKey string
	useSendGrid bool
	log         logger.Logger
}

// NewService creates a new email service.
// If sendGridAPIKey is empty, emails are logged instead of sent.
func NewService(fromEmail, fromName, sendGridAPIKey string, log logger.Logger) *Service {
	if log == nil {
		log = logger.Default()
	}
	useSendGrid := sendGridAPIKey != ""
	if useSendGrid {
		log.Info("email service initialized with SendGrid")
	} else {
		log.Warn("email service in console-only mode (set SENDGRID_API_KEY for production)")
	}

	return &Service{
		fromEmail:   fromEmail,
		fromName:    fromName,
		sendGridKey: sendGridAPIKey,
		useSendGrid: useSendGrid,
		log:         log,
	}
}

// SendEmail delivers one notification email. Implements
// domain.EmailProvider.
func (s *Service) SendEmail(ctx context.Context, to, toName, subject, bodyHTML, actionURL string) (*domain.DeliveryResult, error) {
	if to == "" {
		return nil, fmt.Errorf("recipient email address is required")
	}

	if !s.useSendGrid {
		s.log.Info("email (console mode, not sent)",
			"to", to, "subject", subject, "action_url", actionURL)
		return &domain.DeliveryResult{Success: true, MessageID: "console"}, nil
	}

	from := mail.NewEmail(s.fromName, s.fromEmail)
	recipient := mail.NewEmail(toName, to)
	message := mail.NewSingleEmail(from, subject, recipient, plainText(subject, actionURL), bodyHTML)

	client := sendgrid.NewSendClient(s.sendGridKey)
	response, err := client.Send(message)
	if err != nil {
		return nil, fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		return &domain.DeliveryResult{
			Success: false,
			Error:   fmt.Sprintf("sendgrid returned status %d", response.StatusCode),
		}, nil
	}

	messageID := ""
	if ids, ok := response.Headers["X-Message-Id"]; ok && len(ids) > 0 {
		messageID = ids[0]
	}
	return &domain.DeliveryResult{Success: true, MessageID: messageID}, nil
}

func plainText(subject, actionURL string) string {
	if actionURL == "" {
		return subject
	}
	return subject + "\n\n" + actionURL
}
