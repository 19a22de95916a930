package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"event-checkout/internal/logger"
	"event-checkout/internal/metrics"
	"event-checkout/internal/models"
)

// NotificationTypeTicketPurchase tags the notification raised after checkout
const NotificationTypeTicketPurchase = "ticket_purchase"

// CheckoutRequest is what the buyer submits to pay for a selection
type CheckoutRequest struct {
	Amount         decimal.Decimal       `json:"amount"`
	Currency       string                `json:"currency" validate:"omitempty,len=3,alpha"`
	PaymentMethod  models.PaymentMethod  `json:"payment_method" validate:"required,oneof=card eft mobile"`
	EventID        string                `json:"event_id" validate:"required"`
	EventTitle     string                `json:"event_title" validate:"max=255"`
	Lines          []models.SelectedLine `json:"lines" validate:"dive"`
	BillingDetails models.BillingDetails `json:"billing_details"`
	UserID         string                `json:"user_id"`
	DeliveryMethod models.DeliveryMethod `json:"delivery_method" validate:"required,oneof=email download both"`
	IdempotencyKey string                `json:"-" validate:"max=255"`
}

// CheckoutResult is the outcome of a successful payment. DeliveryError is set
// when the order completed but emailing the tickets failed.
type CheckoutResult struct {
	Reference     string        `json:"reference"`
	Order         *models.Order `json:"order"`
	DeliveryError string        `json:"delivery_error,omitempty"`
	Replayed      bool          `json:"replayed,omitempty"`
}

// PaymentProcessorDeps are the collaborators of the payment processor.
// Idempotency may be nil to disable request deduplication.
type PaymentProcessorDeps struct {
	Orders        OrderStore
	Events        EventStore
	UserEvents    UserEventStore
	Notifications NotificationService
	Delivery      TicketDeliverer
	Idempotency   IdempotencyStore
	Logger        *zap.Logger
}

// PaymentProcessorConfig tunes the payment processor
type PaymentProcessorConfig struct {
	Currency          string
	SideEffectTimeout time.Duration
}

// PaymentProcessor turns a validated checkout into a completed, persisted order.
// Payment is simulated and always settles once validation passes.
type PaymentProcessor struct {
	orders            OrderStore
	events            EventStore
	userEvents        UserEventStore
	notifications     NotificationService
	delivery          TicketDeliverer
	idempotency       IdempotencyStore
	currency          string
	sideEffectTimeout time.Duration
	logger            *zap.Logger
	now               func() time.Time
}

// NewPaymentProcessor creates a new payment processor
func NewPaymentProcessor(deps PaymentProcessorDeps, cfg PaymentProcessorConfig) *PaymentProcessor {
	if cfg.Currency == "" {
		cfg.Currency = "ZAR"
	}
	if cfg.SideEffectTimeout <= 0 {
		cfg.SideEffectTimeout = 5 * time.Second
	}
	return &PaymentProcessor{
		orders:            deps.Orders,
		events:            deps.Events,
		userEvents:        deps.UserEvents,
		notifications:     deps.Notifications,
		delivery:          deps.Delivery,
		idempotency:       deps.Idempotency,
		currency:          strings.ToUpper(cfg.Currency),
		sideEffectTimeout: cfg.SideEffectTimeout,
		logger:            logger.OrNop(deps.Logger),
		now:               time.Now,
	}
}

// Process validates the request, settles payment, saves the order and runs the
// post-payment side effects. Errors are *models.CheckoutError. Once the order is
// saved the call succeeds; later failures are logged or reported in DeliveryError.
func (p *PaymentProcessor) Process(ctx context.Context, req CheckoutRequest) (result *CheckoutResult, err error) {
	start := time.Now()
	defer func() {
		outcome := metrics.OutcomeSuccess
		if err != nil {
			outcome = string(models.KindOf(err))
		}
		metrics.CheckoutsTotal.WithLabelValues(outcome).Inc()
		metrics.CheckoutDuration.Observe(time.Since(start).Seconds())
	}()

	if req.IdempotencyKey == "" || p.idempotency == nil {
		return p.process(ctx, req)
	}

	key := req.IdempotencyKey
	reference, err := p.idempotency.Begin(ctx, key, req.Fingerprint())
	if err != nil {
		switch models.KindOf(err) {
		case models.KindDuplicateRequest, models.KindValidation:
			return nil, err
		}
		return nil, models.NewError(models.KindInternal, "idempotency store unavailable", err)
	}
	if reference != "" {
		order, err := p.orders.Get(ctx, reference)
		if err != nil {
			return nil, models.NewError(models.KindInternal, "failed to load replayed order", err)
		}
		p.logger.Info("Checkout replayed", zap.String("reference", reference))
		return &CheckoutResult{Reference: reference, Order: order, Replayed: true}, nil
	}

	result, err = p.process(ctx, req)
	detached := context.WithoutCancel(ctx)
	if err != nil {
		if relErr := p.idempotency.Release(detached, key); relErr != nil {
			p.logger.Warn("Failed to release idempotency key", zap.Error(relErr))
		}
		return nil, err
	}
	if cErr := p.idempotency.Complete(detached, key, result.Reference); cErr != nil {
		p.logger.Warn("Failed to complete idempotency key",
			zap.String("reference", result.Reference),
			zap.Error(cErr))
	}
	return result, nil
}

func (p *PaymentProcessor) process(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	if err := models.ValidateStruct(&req); err != nil {
		return nil, models.NewError(models.KindValidation, err.Error(), nil)
	}
	if req.Amount.IsNegative() {
		return nil, models.NewError(models.KindValidation, "amount cannot be negative", nil)
	}

	lines, err := selectedLines(req.Lines)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, models.NewError(models.KindEmptyCart, "no tickets selected", nil)
	}

	if err := checkAmount(models.CalculateTotals(lines), req.Amount); err != nil {
		return nil, err
	}

	event, err := p.events.GetByID(ctx, req.EventID)
	if err != nil {
		return nil, models.NewError(models.KindInternal, "failed to look up event", err)
	}
	if event == nil {
		return nil, models.NewError(models.KindEventNotFound, fmt.Sprintf("event %s not found", req.EventID), nil)
	}

	lines, err = priceLines(event, lines)
	if err != nil {
		return nil, err
	}
	totals := models.CalculateTotals(lines)
	if err := checkAmount(totals, req.Amount); err != nil {
		return nil, err
	}

	order := p.buildOrder(req, event, lines, totals)
	if err := order.MarkCompleted(); err != nil {
		return nil, models.NewError(models.KindInternal, "failed to settle order", err)
	}

	if err := p.orders.Save(ctx, order); err != nil {
		p.logger.Error("Failed to save order",
			zap.String("reference", order.Reference),
			zap.Error(err))
		return nil, models.NewError(models.KindInternal, "failed to save order", err)
	}

	p.logger.Info("Order completed",
		zap.String("reference", order.Reference),
		zap.String("event_id", order.EventID),
		zap.String("user_id", order.UserID),
		zap.Int("tickets", order.TicketCount()),
		zap.String("total", order.Total.StringFixed(2)),
		zap.String("payment_method", string(order.PaymentMethod)))

	// The buyer has paid; nothing after this point may abort on client disconnect
	detached := context.WithoutCancel(ctx)
	p.runSideEffects(detached, order)

	result := &CheckoutResult{Reference: order.Reference, Order: order}
	if order.DeliveryMethod.IncludesEmail() && p.delivery != nil {
		if _, err := p.delivery.Deliver(detached, order, ChannelEmail); err != nil {
			result.DeliveryError = err.Error()
		}
	}

	return result, nil
}

func (p *PaymentProcessor) buildOrder(req CheckoutRequest, event *models.Event, lines []models.SelectedLine, totals models.Totals) *models.Order {
	now := p.now().UTC()

	snapshot := event.Snapshot()
	if snapshot.Title == "" {
		snapshot.Title = req.EventTitle
	}

	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = p.currency
	}

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = models.GuestUserID
	}

	return &models.Order{
		Reference:      models.GenerateReference(now),
		EventID:        event.ID,
		Event:          snapshot,
		UserID:         userID,
		Lines:          lines,
		Subtotal:       totals.Subtotal,
		ServiceFeeRate: models.ServiceFeeRate,
		ServiceFee:     totals.ServiceFee,
		Total:          totals.Total,
		Currency:       currency,
		PaymentMethod:  req.PaymentMethod,
		PaymentDate:    now,
		Status:         models.OrderPending,
		DeliveryMethod: req.DeliveryMethod,
		DeliveryStatus: req.DeliveryMethod.InitialDeliveryStatus(),
		Billing:        req.BillingDetails,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// runSideEffects performs the best-effort updates that follow a completed order.
// They run concurrently, each under its own timeout, and never fail the checkout.
func (p *PaymentProcessor) runSideEffects(ctx context.Context, order *models.Order) {
	var g errgroup.Group

	run := func(name string, fn func(context.Context) error) {
		g.Go(func() error {
			effectCtx, cancel := context.WithTimeout(ctx, p.sideEffectTimeout)
			defer cancel()

			if err := fn(effectCtx); err != nil {
				metrics.SideEffectFailuresTotal.WithLabelValues(name).Inc()
				p.logger.Warn("Post-payment side effect failed",
					zap.String("effect", name),
					zap.String("reference", order.Reference),
					zap.Error(err))
			}
			return nil
		})
	}

	if p.events != nil {
		run("increment_attendees", func(ctx context.Context) error {
			return p.events.IncrementAttendees(ctx, order.EventID, order.TicketCount())
		})
	}

	if order.UserID != models.GuestUserID {
		if p.userEvents != nil {
			run("set_attendance", func(ctx context.Context) error {
				return p.userEvents.SetAttendance(ctx, order.UserID, order.EventID, models.AttendanceAttending)
			})
		}
		if p.notifications != nil {
			run("notify", func(ctx context.Context) error {
				return p.notifications.Create(ctx, purchaseNotification(order))
			})
		}
	}

	_ = g.Wait()
}

func purchaseNotification(order *models.Order) models.Notification {
	return models.Notification{
		ID:        uuid.NewString(),
		UserID:    order.UserID,
		Title:     "Tickets confirmed",
		Message:   fmt.Sprintf("Your %d ticket(s) for %s are confirmed. Order %s.", order.TicketCount(), order.Event.Title, order.Reference),
		Type:      NotificationTypeTicketPurchase,
		ActionURL: "/orders/" + order.Reference,
		CreatedAt: order.PaymentDate,
	}
}

// selectedLines drops zero quantities. Each tier may appear once so ticket ids
// stay unique within the order.
func selectedLines(lines []models.SelectedLine) ([]models.SelectedLine, error) {
	seen := make(map[string]bool, len(lines))
	var selected []models.SelectedLine
	for _, line := range lines {
		if seen[line.TierID] {
			return nil, models.NewError(models.KindValidation, fmt.Sprintf("ticket tier %q appears more than once", line.TierID), nil)
		}
		seen[line.TierID] = true
		if line.Quantity > 0 {
			selected = append(selected, line)
		}
	}
	return selected, nil
}

// priceLines replaces client prices with the event's published tier prices.
// Events without tiers keep the submitted lines.
func priceLines(event *models.Event, lines []models.SelectedLine) ([]models.SelectedLine, error) {
	priced := make([]models.SelectedLine, len(lines))
	for i, line := range lines {
		if len(event.Tiers) > 0 {
			tier, ok := event.Tier(line.TierID)
			if !ok {
				return nil, models.NewError(models.KindValidation, fmt.Sprintf("unknown ticket tier %q", line.TierID), nil)
			}
			if limit := tier.Limit(); line.Quantity > limit {
				return nil, models.NewError(models.KindValidation,
					fmt.Sprintf("at most %d %s ticket(s) per order", limit, tier.Name), nil)
			}
			line.Name = tier.Name
			line.UnitPrice = tier.UnitPrice
		}
		if line.UnitPrice.IsNegative() {
			return nil, models.NewError(models.KindValidation, fmt.Sprintf("tier %q has a negative price", line.TierID), nil)
		}
		if line.Name == "" {
			line.Name = line.TierID
		}
		priced[i] = line
	}
	return priced, nil
}

// Fingerprint identifies the content of a request, so a reused idempotency key
// can be told apart from a retry of the same checkout.
func (r CheckoutRequest) Fingerprint() string {
	lines := make([]string, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = fmt.Sprintf("%s:%d:%s", l.TierID, l.Quantity, l.UnitPrice.StringFixed(2))
	}
	sort.Strings(lines)

	h := sha256.New()
	for _, part := range []string{
		r.Amount.StringFixed(2),
		strings.ToUpper(r.Currency),
		string(r.PaymentMethod),
		r.EventID,
		strings.Join(lines, ","),
		strings.ToLower(strings.TrimSpace(r.BillingDetails.Email)),
		strings.TrimSpace(r.UserID),
		string(r.DeliveryMethod),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func checkAmount(totals models.Totals, amount decimal.Decimal) error {
	if totals.WithinTolerance(amount) {
		return nil
	}
	return models.NewError(models.KindAmountMismatch,
		fmt.Sprintf("amount %s does not match order total %s", amount.StringFixed(2), totals.Total.StringFixed(2)), nil)
}
