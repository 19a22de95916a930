package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type resendPayload struct {
	From        string   `json:"from"`
	To          []string `json:"to"`
	Subject     string   `json:"subject"`
	HTML        string   `json:"html"`
	Text        string   `json:"text"`
	Attachments []struct {
		Filename    string          `json:"filename"`
		ContentType string          `json:"content_type"`
		Content     json.RawMessage `json:"content"`
	} `json:"attachments"`
}

func TestResendEmailService_SendTickets(t *testing.T) {
	var received resendPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"email_123"}`))
	}))
	defer server.Close()

	svc := NewResendEmailService(ResendConfig{
		APIKey:    "re_test",
		FromEmail: "tickets@example.com",
		FromName:  "Event Tickets",
		BaseURL:   server.URL,
	})

	order := testOrder(line("standard", "Standard", 150, 2))
	err := svc.SendTickets(context.Background(), TicketEmail{
		Order:          order,
		RecipientEmail: "thandi@example.com",
		RecipientName:  "Thandi Mokoena",
		Attachment:     Attachment{Filename: "tickets.pdf", ContentType: "application/pdf", Content: []byte("%PDF-1.3")},
	})
	require.NoError(t, err)

	assert.Equal(t, "Event Tickets <tickets@example.com>", received.From)
	assert.Equal(t, []string{"thandi@example.com"}, received.To)
	assert.Contains(t, received.Subject, order.Reference)
	assert.Contains(t, received.HTML, "315.00")
	assert.Contains(t, received.Text, "2 x Standard")
	require.Len(t, received.Attachments, 1)
	assert.Equal(t, "tickets.pdf", received.Attachments[0].Filename)
	assert.Equal(t, "application/pdf", received.Attachments[0].ContentType)
	assert.NotEmpty(t, received.Attachments[0].Content)
}

func TestResendEmailService_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"statusCode":422,"name":"validation_error","message":"invalid from address"}`))
	}))
	defer server.Close()

	svc := NewResendEmailService(ResendConfig{APIKey: "re_test", FromEmail: "bad", BaseURL: server.URL})
	err := svc.SendTickets(context.Background(), TicketEmail{
		Order:          testOrder(line("standard", "Standard", 150, 1)),
		RecipientEmail: "thandi@example.com",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid from address")
}

func TestResendEmailService_RequiresRecipient(t *testing.T) {
	svc := NewResendEmailService(ResendConfig{APIKey: "re_test"})
	err := svc.SendTickets(context.Background(), TicketEmail{Order: testOrder()})
	assert.Error(t, err)
}
