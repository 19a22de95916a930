package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"event-checkout/internal/models"
	"event-checkout/internal/repositories"
)

func newDeliveryFixture(t *testing.T) (*DeliveryService, *MockTicketEmailService, *repositories.MemoryOrderRepository, *models.Order) {
	t.Helper()
	store := repositories.NewMemoryOrderRepository()
	email := new(MockTicketEmailService)
	order := testOrder(line("standard", "Standard", 150, 2))
	require.NoError(t, store.Save(context.Background(), order))

	svc := NewDeliveryService(NewPDFService(nil, nil), email, store, nil)
	return svc, email, store, order
}

func TestDeliveryService_Download(t *testing.T) {
	svc, email, store, order := newDeliveryFixture(t)
	order.SetDownloadStatus(models.DownloadUnavailable)

	doc, err := svc.Deliver(context.Background(), order, ChannelDownload)
	require.NoError(t, err)
	assert.Len(t, doc.Tickets, 2)

	stored, err := store.Get(context.Background(), order.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.DownloadAvailable, *stored.DeliveryStatus.Download)
	assert.Equal(t, models.OrderCompleted, stored.Status)
	email.AssertNotCalled(t, "SendTickets", mock.Anything, mock.Anything)
}

func TestDeliveryService_DownloadTwiceIsIdentical(t *testing.T) {
	svc, _, _, order := newDeliveryFixture(t)

	first, err := svc.Deliver(context.Background(), order, ChannelDownload)
	require.NoError(t, err)
	second, err := svc.Deliver(context.Background(), order, ChannelDownload)
	require.NoError(t, err)

	assert.Equal(t, first.Tickets, second.Tickets)
	assert.Equal(t, first.PDF, second.PDF)
}

func TestDeliveryService_EmailSent(t *testing.T) {
	svc, email, store, order := newDeliveryFixture(t)

	email.On("SendTickets", mock.Anything, mock.MatchedBy(func(e TicketEmail) bool {
		return e.RecipientEmail == "thandi@example.com" &&
			e.RecipientName == "Thandi Mokoena" &&
			e.Attachment.ContentType == "application/pdf" &&
			e.Attachment.Filename == "tickets-"+order.Reference+".pdf" &&
			len(e.Attachment.Content) > 0
	})).Return(nil).Once()

	_, err := svc.Deliver(context.Background(), order, ChannelEmail)
	require.NoError(t, err)

	stored, err := store.Get(context.Background(), order.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.EmailSent, *stored.DeliveryStatus.Email)
	email.AssertExpectations(t)
}

func TestDeliveryService_EmailFailure(t *testing.T) {
	svc, email, store, order := newDeliveryFixture(t)
	email.On("SendTickets", mock.Anything, mock.Anything).Return(errors.New("smtp timeout"))

	_, err := svc.Deliver(context.Background(), order, ChannelEmail)
	require.Error(t, err)
	assert.Equal(t, models.KindDelivery, models.KindOf(err))
	assert.Contains(t, err.Error(), "smtp timeout")

	stored, err := store.Get(context.Background(), order.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.EmailFailed, *stored.DeliveryStatus.Email)
	assert.Equal(t, models.OrderCompleted, stored.Status)
	assert.Equal(t, order.Reference, stored.Reference)
}

func TestDeliveryService_RenderFailureMarksEmailFailed(t *testing.T) {
	store := repositories.NewMemoryOrderRepository()
	email := new(MockTicketEmailService)
	order := testOrder()
	require.NoError(t, store.Save(context.Background(), order))

	svc := NewDeliveryService(NewPDFService(nil, nil), email, store, nil)
	_, err := svc.Deliver(context.Background(), order, ChannelEmail)
	assert.Equal(t, models.KindDelivery, models.KindOf(err))

	stored, _ := store.Get(context.Background(), order.Reference)
	assert.Equal(t, models.EmailFailed, *stored.DeliveryStatus.Email)
	email.AssertNotCalled(t, "SendTickets", mock.Anything, mock.Anything)
}

func TestDeliveryService_StoreFailureAfterSendIsNotSurfaced(t *testing.T) {
	email := new(MockTicketEmailService)
	email.On("SendTickets", mock.Anything, mock.Anything).Return(nil)
	svc := NewDeliveryService(NewPDFService(nil, nil), email, failingOrderStore{}, nil)

	order := testOrder(line("vip", "VIP", 300, 1))
	doc, err := svc.Deliver(context.Background(), order, ChannelEmail)
	require.NoError(t, err)
	assert.Len(t, doc.Tickets, 1)
	assert.Equal(t, models.EmailSent, *order.DeliveryStatus.Email)
}

func TestDeliveryService_UnknownChannel(t *testing.T) {
	svc, _, _, order := newDeliveryFixture(t)

	_, err := svc.Deliver(context.Background(), order, DeliveryChannel("fax"))
	assert.Equal(t, models.KindValidation, models.KindOf(err))
}
