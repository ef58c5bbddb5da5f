package sms

import (
	"context"
	"errors"
	"strings"

	"github.com/referlink/backend/pkg/domain"
	"github.com/referlink/backend/pkg/logger"
)

// ErrInvalidPhoneNumber is returned when phone number format is invalid
var ErrInvalidPhoneNumber = errors.New("invalid phone number format")

// Provider is the wire-level SMS collaborator (Twilio or similar).
// Delivery mechanics live outside this engine.
type Provider interface {
	Send(ctx context.Context, to, from, body string) (sid string, err error)
}

// Service adapts a wire provider to domain.SMSProvider. With no provider
// configured it logs the message and reports success.
type Service struct {
	provider   Provider
	fromNumber string
	log        logger.Logger
}

// NewService creates a new SMS service. provider may be nil for
// console-only mode.
func NewService(provider Provider, fromNumber string, log logger.Logger) *Service {
	if log == nil {
		log = logger.Default()
	}
	if provider == nil {
		log.Warn("sms service in console-only mode (no provider configured)")
	}
	return &Service{
		provider:   provider,
		fromNumber: fromNumber,
		log:        log,
	}
}

// SendSMS delivers one message. The destination must already be E.164.
// Implements domain.SMSProvider.
func (s *Service) SendSMS(ctx context.Context, to, message string) (*domain.DeliveryResult, error) {
	if !strings.HasPrefix(to, "+") {
		return nil, ErrInvalidPhoneNumber
	}

	if s.provider == nil {
		s.log.Info("sms (console mode, not sent)", "to", to, "message", message)
		return &domain.DeliveryResult{Success: true, MessageID: "console"}, nil
	}

	sid, err := s.provider.Send(ctx, to, s.fromNumber, message)
	if err != nil {
		return nil, err
	}
	return &domain.DeliveryResult{Success: true, MessageID: sid}, nil
}
