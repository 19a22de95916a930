package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"event-checkout/internal/config"
	"event-checkout/internal/logger"
	"event-checkout/internal/models"
)

// NewEmailService picks the ticket email transport: Resend when an API key is
// configured, SMTP when a host is configured, otherwise the logging mock.
func NewEmailService(resendCfg config.ResendConfig, smtpCfg config.SMTPConfig, log *zap.Logger) EmailService {
	log = logger.OrNop(log)

	switch {
	case resendCfg.APIKey != "":
		log.Info("Email service: using Resend API")
		return NewResendEmailService(ResendConfig{
			APIKey:    resendCfg.APIKey,
			FromEmail: resendCfg.FromEmail,
			FromName:  resendCfg.FromName,
		})
	case smtpCfg.Host != "":
		log.Info("Email service: using SMTP", zap.String("host", smtpCfg.Host))
		return NewSMTPEmailService(EmailConfig{
			SMTPHost:     smtpCfg.Host,
			SMTPPort:     smtpCfg.Port,
			SMTPUsername: smtpCfg.Username,
			SMTPPassword: smtpCfg.Password,
			FromEmail:    resendCfg.FromEmail,
			FromName:     resendCfg.FromName,
		})
	default:
		log.Info("Email service: using mock (no Resend API key or SMTP host provided)")
		return NewMockEmailService(log)
	}
}

// MockEmailService logs ticket emails instead of sending them
type MockEmailService struct {
	logger *zap.Logger
}

// NewMockEmailService creates a new mock email service
func NewMockEmailService(log *zap.Logger) *MockEmailService {
	return &MockEmailService{logger: logger.OrNop(log)}
}

// SendTickets logs the email it would have sent
func (s *MockEmailService) SendTickets(ctx context.Context, email TicketEmail) error {
	if email.RecipientEmail == "" {
		return fmt.Errorf("recipient email is required")
	}

	s.logger.Info("Mock email: tickets sent",
		zap.String("to", email.RecipientEmail),
		zap.String("name", email.RecipientName),
		zap.String("order", orderSummary(email.Order)),
		zap.String("attachment", email.Attachment.Filename),
		zap.Int("attachment_bytes", len(email.Attachment.Content)))
	return nil
}

func orderSummary(order *models.Order) string {
	return fmt.Sprintf("%s, %d ticket(s), %s %s", order.Reference, order.TicketCount(), order.Currency, order.Total.StringFixed(2))
}
