package services

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/wneessen/go-mail"
)

// EmailConfig represents SMTP email configuration
type EmailConfig struct {
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	FromName     string
}

// SMTPEmailService sends ticket emails through an SMTP relay
type SMTPEmailService struct {
	config EmailConfig
	send   func(ctx context.Context, msg *mail.Msg) error
}

// NewSMTPEmailService creates a new SMTP email service
func NewSMTPEmailService(config EmailConfig) *SMTPEmailService {
	if config.SMTPPort == "" {
		config.SMTPPort = "587"
	}
	s := &SMTPEmailService{config: config}
	s.send = s.dialAndSend
	return s
}

// SendTickets emails the ticket PDF as a multipart message
func (s *SMTPEmailService) SendTickets(ctx context.Context, email TicketEmail) error {
	if email.RecipientEmail == "" {
		return fmt.Errorf("recipient email is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := s.buildMessage(email)
	if err != nil {
		return err
	}
	if err := s.send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// buildMessage assembles a text/html alternative body followed by the attachment
func (s *SMTPEmailService) buildMessage(email TicketEmail) (*mail.Msg, error) {
	order := email.Order

	msg := mail.NewMsg()
	if err := msg.FromFormat(s.config.FromName, s.config.FromEmail); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(email.RecipientEmail); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(fmt.Sprintf("Your tickets for %s - Order %s", order.Event.Title, order.Reference))
	msg.SetBodyString(mail.TypeTextPlain, ticketEmailText(email))
	msg.AddAlternativeString(mail.TypeTextHTML, ticketEmailHTML(email))

	if len(email.Attachment.Content) > 0 {
		err := msg.AttachReader(email.Attachment.Filename, bytes.NewReader(email.Attachment.Content),
			mail.WithFileContentType(mail.ContentType(email.Attachment.ContentType)))
		if err != nil {
			return nil, fmt.Errorf("failed to attach tickets: %w", err)
		}
	}
	return msg, nil
}

func (s *SMTPEmailService) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	port, err := strconv.Atoi(s.config.SMTPPort)
	if err != nil {
		return fmt.Errorf("invalid SMTP port %q: %w", s.config.SMTPPort, err)
	}

	opts := []mail.Option{
		mail.WithPort(port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if s.config.SMTPUsername != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.config.SMTPUsername),
			mail.WithPassword(s.config.SMTPPassword))
	}

	client, err := mail.NewClient(s.config.SMTPHost, opts...)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, msg)
}

var _ EmailService = (*SMTPEmailService)(nil)
