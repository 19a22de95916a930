package services

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
)

// ResendConfig represents Resend email service configuration
type ResendConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
	// BaseURL overrides the API endpoint, e.g. for a local test server
	BaseURL string
}

// ResendEmailService handles email sending via Resend API
type ResendEmailService struct {
	config ResendConfig
	client *resend.Client
}

// NewResendEmailService creates a new Resend email service
func NewResendEmailService(config ResendConfig) *ResendEmailService {
	client := resend.NewCustomClient(&http.Client{Timeout: 30 * time.Second}, config.APIKey)
	if config.BaseURL != "" {
		if base, err := url.Parse(strings.TrimSuffix(config.BaseURL, "/") + "/"); err == nil {
			client.BaseURL = base
		}
	}
	return &ResendEmailService{config: config, client: client}
}

// getFromField constructs the from field properly
func (s *ResendEmailService) getFromField() string {
	if s.config.FromName != "" {
		return fmt.Sprintf("%s <%s>", s.config.FromName, s.config.FromEmail)
	}
	return s.config.FromEmail
}

// SendTickets emails the ticket PDF to the buyer
func (s *ResendEmailService) SendTickets(ctx context.Context, email TicketEmail) error {
	if email.RecipientEmail == "" {
		return fmt.Errorf("recipient email is required")
	}

	order := email.Order
	params := &resend.SendEmailRequest{
		From:    s.getFromField(),
		To:      []string{email.RecipientEmail},
		Subject: fmt.Sprintf("Your tickets for %s - Order %s", order.Event.Title, order.Reference),
		Html:    ticketEmailHTML(email),
		Text:    ticketEmailText(email),
		Tags: []resend.Tag{
			{Name: "category", Value: "tickets"},
		},
	}
	if len(email.Attachment.Content) > 0 {
		params.Attachments = []*resend.Attachment{{
			Filename:    email.Attachment.Filename,
			Content:     email.Attachment.Content,
			ContentType: email.Attachment.ContentType,
		}}
	}

	if _, err := s.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func ticketEmailHTML(email TicketEmail) string {
	order := email.Order

	var rows strings.Builder
	for _, line := range order.Lines {
		rows.WriteString(fmt.Sprintf("<tr><td>%s</td><td>%d</td><td>%s %s</td></tr>",
			html.EscapeString(line.Name), line.Quantity, order.Currency, line.LineTotal().StringFixed(2)))
	}

	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Your Tickets</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #4F46E5; color: white; padding: 20px; text-align: center; }
        .content { padding: 20px; background-color: #f9f9f9; }
        table { width: 100%%; border-collapse: collapse; }
        td { padding: 6px 0; border-bottom: 1px solid #e5e5e5; }
        .footer { text-align: center; padding: 20px; color: #666; font-size: 12px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Your tickets are attached</h1>
        </div>
        <div class="content">
            <p>Hi %s,</p>
            <p>Thanks for your purchase. Your tickets for <strong>%s</strong> on %s are attached to this email.</p>
            <p><strong>Order:</strong> %s</p>
            <table>%s</table>
            <p><strong>Service fee:</strong> %s %s<br><strong>Total:</strong> %s %s</p>
            <p>Present the QR code on each ticket at the entrance.</p>
        </div>
        <div class="footer">
            <p>Keep this email for your records.</p>
        </div>
    </div>
</body>
</html>`,
		html.EscapeString(email.RecipientName),
		html.EscapeString(order.Event.Title),
		order.Event.StartDate.Format("Monday, 2 January 2006 at 15:04"),
		order.Reference,
		rows.String(),
		order.Currency, order.ServiceFee.StringFixed(2),
		order.Currency, order.Total.StringFixed(2))
}

func ticketEmailText(email TicketEmail) string {
	order := email.Order

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", email.RecipientName)
	fmt.Fprintf(&b, "Your tickets for %s on %s are attached.\n\n", order.Event.Title, order.Event.StartDate.Format("Monday, 2 January 2006 at 15:04"))
	fmt.Fprintf(&b, "Order: %s\n", order.Reference)
	for _, line := range order.Lines {
		fmt.Fprintf(&b, "  %d x %s  %s %s\n", line.Quantity, line.Name, order.Currency, line.LineTotal().StringFixed(2))
	}
	fmt.Fprintf(&b, "Service fee: %s %s\n", order.Currency, order.ServiceFee.StringFixed(2))
	fmt.Fprintf(&b, "Total: %s %s\n\n", order.Currency, order.Total.StringFixed(2))
	b.WriteString("Present the QR code on each ticket at the entrance.\n")
	return b.String()
}

var _ EmailService = (*ResendEmailService)(nil)

