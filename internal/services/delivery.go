package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"event-checkout/internal/logger"
	"event-checkout/internal/metrics"
	"event-checkout/internal/models"
)

// DeliveryChannel is a way of handing tickets to the buyer
type DeliveryChannel string

const (
	ChannelDownload DeliveryChannel = "download"
	ChannelEmail    DeliveryChannel = "email"
)

// DeliveryService renders tickets and hands them over by download or email
type DeliveryService struct {
	renderer TicketRenderer
	email    EmailService
	orders   OrderStore
	logger   *zap.Logger
}

// NewDeliveryService creates a new delivery service
func NewDeliveryService(renderer TicketRenderer, email EmailService, orders OrderStore, log *zap.Logger) *DeliveryService {
	return &DeliveryService{
		renderer: renderer,
		email:    email,
		orders:   orders,
		logger:   logger.OrNop(log),
	}
}

// Deliver renders the order's tickets and delivers them over channel, recording
// the outcome in the order's delivery status. It never changes the order status.
// Calling it again re-renders and resends.
func (s *DeliveryService) Deliver(ctx context.Context, order *models.Order, channel DeliveryChannel) (*Document, error) {
	if channel != ChannelDownload && channel != ChannelEmail {
		return nil, models.NewError(models.KindValidation, fmt.Sprintf("unknown delivery channel %q", channel), nil)
	}

	doc, err := s.renderer.Render(ctx, order)
	if err != nil {
		metrics.DeliveriesTotal.WithLabelValues(string(channel), "render_failed").Inc()
		if channel == ChannelEmail {
			order.SetEmailStatus(models.EmailFailed)
			s.persist(ctx, order)
		}
		return nil, asDeliveryError(err, "failed to render tickets")
	}

	switch channel {
	case ChannelDownload:
		order.SetDownloadStatus(models.DownloadAvailable)
		s.persist(ctx, order)

	case ChannelEmail:
		err := s.email.SendTickets(ctx, TicketEmail{
			Order:          order,
			RecipientEmail: order.Billing.Email,
			RecipientName:  order.Billing.Name,
			Attachment: Attachment{
				Filename:    doc.Filename(),
				ContentType: "application/pdf",
				Content:     doc.PDF,
			},
		})
		if err != nil {
			s.logger.Error("Ticket email failed",
				zap.String("reference", order.Reference),
				zap.String("recipient", order.Billing.Email),
				zap.Error(err))
			metrics.DeliveriesTotal.WithLabelValues(string(channel), "failed").Inc()
			order.SetEmailStatus(models.EmailFailed)
			s.persist(ctx, order)
			return nil, models.NewError(models.KindDelivery, "failed to send ticket email", err)
		}
		order.SetEmailStatus(models.EmailSent)
		s.persist(ctx, order)
	}

	metrics.DeliveriesTotal.WithLabelValues(string(channel), "success").Inc()
	s.logger.Info("Tickets delivered",
		zap.String("reference", order.Reference),
		zap.String("channel", string(channel)),
		zap.Int("tickets", len(doc.Tickets)),
		zap.Int("pages", doc.Pages))

	return doc, nil
}

// persist saves delivery status; a failure here is logged and not returned
func (s *DeliveryService) persist(ctx context.Context, order *models.Order) {
	if err := s.orders.Save(ctx, order); err != nil {
		s.logger.Warn("Failed to save delivery status",
			zap.String("reference", order.Reference),
			zap.Error(err))
	}
}

func asDeliveryError(err error, message string) error {
	if models.KindOf(err) == models.KindDelivery {
		return err
	}
	return models.NewError(models.KindDelivery, message, err)
}
