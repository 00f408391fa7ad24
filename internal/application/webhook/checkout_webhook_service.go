package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	appinventory "github.com/storefront/fulfillment/internal/application/inventory"
	"github.com/storefront/fulfillment/internal/domain/billing"
	"github.com/storefront/fulfillment/internal/domain/order"
	"github.com/storefront/fulfillment/internal/domain/shared"
	"github.com/storefront/fulfillment/internal/infrastructure/telemetry"
	"github.com/stripe/stripe-go/v81"
	stripewebhook "github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"
)

// Stripe event types handled by the checkout webhook
const (
	EventCheckoutSessionCompleted      = "checkout.session.completed"
	EventCheckoutAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"
	EventCheckoutSessionExpired        = "checkout.session.expired"
)

// Webhook sources reported to the recorder
const (
	SourceStripe      = "stripe"
	SourceShipStation = "shipstation"
	SourceTracker     = "tracker"
)

// ConfirmationSender sends the order confirmation email
type ConfirmationSender interface {
	SendOrderConfirmation(ctx context.Context, o *order.Order) error
}

// WebhookRecorder receives webhook outcomes
type WebhookRecorder interface {
	RecordWebhook(ctx context.Context, source, outcome string)
}

// CheckoutWebhookService reconciles payment processor checkout events with
// orders, stock and invoices
type CheckoutWebhookService struct {
	webhookSecret  string
	orderRepo      order.Repository
	customerRepo   billing.CustomerRepository
	invoiceRepo    billing.InvoiceRepository
	gateway        billing.PaymentGateway
	ledger         *appinventory.LedgerService
	expiry         *appinventory.ReservationExpiryService
	idempotency    shared.IdempotencyStore
	idempotencyTTL time.Duration
	locker         shared.KeyedLocker
	confirmations  ConfirmationSender
	eventPublisher shared.EventPublisher
	recorder       WebhookRecorder
	now            func() time.Time
	logger         *zap.Logger
}

// CheckoutWebhookServiceConfig contains configuration for CheckoutWebhookService
type CheckoutWebhookServiceConfig struct {
	WebhookSecret  string
	OrderRepo      order.Repository
	CustomerRepo   billing.CustomerRepository
	InvoiceRepo    billing.InvoiceRepository
	Gateway        billing.PaymentGateway
	Ledger         *appinventory.LedgerService
	Expiry         *appinventory.ReservationExpiryService
	Idempotency    shared.IdempotencyStore
	IdempotencyTTL time.Duration
	Locker         shared.KeyedLocker
	Confirmations  ConfirmationSender
	EventPublisher shared.EventPublisher
	Recorder       WebhookRecorder
	Logger         *zap.Logger
}

// NewCheckoutWebhookService creates a new CheckoutWebhookService
func NewCheckoutWebhookService(cfg CheckoutWebhookServiceConfig) *CheckoutWebhookService {
	ttl := cfg.IdempotencyTTL
	if ttl <= 0 {
		ttl = shared.DefaultIdempotencyConfig().TTL
	}
	return &CheckoutWebhookService{
		webhookSecret:  cfg.WebhookSecret,
		orderRepo:      cfg.OrderRepo,
		customerRepo:   cfg.CustomerRepo,
		invoiceRepo:    cfg.InvoiceRepo,
		gateway:        cfg.Gateway,
		ledger:         cfg.Ledger,
		expiry:         cfg.Expiry,
		idempotency:    cfg.Idempotency,
		idempotencyTTL: ttl,
		locker:         cfg.Locker,
		confirmations:  cfg.Confirmations,
		eventPublisher: cfg.EventPublisher,
		recorder:       cfg.Recorder,
		now:            time.Now,
		logger:         cfg.Logger,
	}
}

// ProcessWebhook verifies and processes a payment webhook event. A
// verification failure returns shared.ErrInvalidSignature and nothing else
// happens. Processing errors mean the order was not recorded; they are
// returned with a result and the event marker is dropped so a redelivery can
// retry. Side-effect failures only add checkout warnings.
func (s *CheckoutWebhookService) ProcessWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	event, err := stripewebhook.ConstructEventWithOptions(payload, signature, s.webhookSecret,
		stripewebhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		s.logger.Warn("Failed to verify webhook signature", zap.Error(err))
		s.record(ctx, "invalid_signature")
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidSignature, err)
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "webhook", "stripe",
		telemetry.WithAttribute(telemetry.SpanAttrWebhook, SourceStripe),
		telemetry.WithAttribute(telemetry.SpanAttrEventID, event.ID),
	)
	defer span.End()

	s.logger.Info("Processing Stripe webhook event",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)))

	result := &WebhookResult{
		EventID:   event.ID,
		EventType: string(event.Type),
		Processed: true,
	}

	idempotencyKey := "stripe:" + event.ID
	if s.idempotency != nil {
		first, err := s.idempotency.MarkProcessed(ctx, idempotencyKey, s.idempotencyTTL)
		if err != nil {
			s.logger.Warn("Idempotency check failed, processing anyway",
				zap.String("event_id", event.ID),
				zap.Error(err))
		} else if !first {
			s.logger.Info("Duplicate webhook event ignored", zap.String("event_id", event.ID))
			result.Duplicate = true
			result.Message = "Event already processed"
			s.record(ctx, StatusDuplicate)
			return result, nil
		}
	}

	switch event.Type {
	case EventCheckoutSessionCompleted, EventCheckoutAsyncPaymentSucceeded:
		var session stripe.CheckoutSession
		if err = json.Unmarshal(event.Data.Raw, &session); err != nil {
			err = fmt.Errorf("failed to unmarshal checkout session: %w", err)
			break
		}
		result.Checkout, err = s.HandleCheckoutCompleted(ctx, &session)
	case EventCheckoutSessionExpired:
		var session stripe.CheckoutSession
		if err = json.Unmarshal(event.Data.Raw, &session); err != nil {
			err = fmt.Errorf("failed to unmarshal checkout session: %w", err)
			break
		}
		result.Checkout, err = s.HandleCheckoutExpired(ctx, &session)
	default:
		s.logger.Debug("Unhandled webhook event type",
			zap.String("event_type", string(event.Type)))
		result.Message = "Event type not handled"
		s.record(ctx, StatusIgnored)
		return result, nil
	}

	if err != nil {
		s.logger.Error("Failed to process webhook event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		if s.idempotency != nil {
			if ferr := s.idempotency.Forget(ctx, idempotencyKey); ferr != nil {
				s.logger.Warn("Failed to clear idempotency marker",
					zap.String("event_id", event.ID),
					zap.Error(ferr))
			}
		}
		result.Processed = false
		result.Message = err.Error()
		telemetry.RecordError(span, err)
		s.record(ctx, "failed")
		return result, err
	}

	s.record(ctx, StatusProcessed)
	return result, nil
}

// HandleCheckoutCompleted turns a paid session into a paid order. The session
// id is the idempotency key: a second delivery finds the paid order and
// creates nothing. Stock commit, invoice and email are independent side
// effects; their failures end up in Warnings.
func (s *CheckoutWebhookService) HandleCheckoutCompleted(ctx context.Context, session *stripe.CheckoutSession) (*CheckoutResult, error) {
	result := &CheckoutResult{SessionID: session.ID}

	if session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid &&
		session.PaymentStatus != stripe.CheckoutSessionPaymentStatusNoPaymentRequired {
		s.logger.Info("Checkout session not paid yet",
			zap.String("session_id", session.ID),
			zap.String("payment_status", string(session.PaymentStatus)))
		result.Status = StatusPending
		return result, nil
	}

	unlock, err := s.lock(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	o, err := s.findSessionOrder(ctx, session)
	if err != nil {
		return nil, err
	}

	now := s.now()
	paymentIntentID := ""
	if session.PaymentIntent != nil {
		paymentIntentID = session.PaymentIntent.ID
	}

	if o != nil {
		if o.PaymentStatus == order.PaymentStatusPaid || (o.Status != order.StatusPending && o.Status != "") {
			s.logger.Info("Checkout session already reconciled",
				zap.String("session_id", session.ID),
				zap.String("order_id", o.ID.String()),
				zap.String("status", string(o.Status)))
			result.OrderID, result.OrderNumber = o.ID, o.OrderNumber
			result.Status = StatusDuplicate
			return result, nil
		}

		if o.SessionID() == "" {
			o.AttachCheckoutSession(session.ID, o.ReservationExpiresAt)
		}
		if _, err := o.MarkPaid(paymentIntentID, session.AmountTotal, now); err != nil {
			return nil, err
		}
		s.attachCustomer(ctx, o, session, result)
		if err := s.orderRepo.Save(ctx, o); err != nil {
			return nil, fmt.Errorf("failed to save paid order: %w", err)
		}
	} else {
		o, err = s.newPaidOrder(ctx, session, paymentIntentID, now, result)
		if err != nil {
			return nil, err
		}
		if err := s.orderRepo.Create(ctx, o); err != nil {
			if errors.Is(err, shared.ErrAlreadyExists) {
				s.logger.Info("Order for session created concurrently",
					zap.String("session_id", session.ID))
				result.Status = StatusDuplicate
				return result, nil
			}
			return nil, fmt.Errorf("failed to create order: %w", err)
		}
		result.Created = true
	}

	result.OrderID, result.OrderNumber = o.ID, o.OrderNumber
	result.Status = StatusProcessed

	result.Ledger = s.ledger.Commit(ctx, o.ID, o.LedgerItems())
	if !result.Ledger.AllApplied() {
		result.warn(fmt.Sprintf("inventory commit skipped %d line(s)", len(result.Ledger.Skipped)))
	}

	s.ensureInvoice(ctx, o, session, result)

	if s.confirmations != nil {
		if err := s.confirmations.SendOrderConfirmation(ctx, o); err != nil {
			s.logger.Warn("Failed to send order confirmation",
				zap.String("order_id", o.ID.String()),
				zap.Error(err))
			result.warn("confirmation email failed")
		}
	}

	s.publishEvents(ctx, o)

	s.logger.Info("Checkout session reconciled",
		zap.String("session_id", session.ID),
		zap.String("order_id", o.ID.String()),
		zap.Bool("created", result.Created),
		zap.Int("warnings", len(result.Warnings)))
	return result, nil
}

// HandleCheckoutExpired cancels the pending order of an abandoned session and
// releases its hold
func (s *CheckoutWebhookService) HandleCheckoutExpired(ctx context.Context, session *stripe.CheckoutSession) (*CheckoutResult, error) {
	result := &CheckoutResult{SessionID: session.ID, Status: StatusIgnored}

	unlock, err := s.lock(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	o, err := s.findSessionOrder(ctx, session)
	if err != nil {
		return nil, err
	}
	if o == nil {
		s.logger.Debug("No order for expired session", zap.String("session_id", session.ID))
		return result, nil
	}
	result.OrderID, result.OrderNumber = o.ID, o.OrderNumber
	if o.Status != order.StatusPending {
		return result, nil
	}

	skipped, err := s.expiry.ExpireOrder(ctx, o)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		result.warn(fmt.Sprintf("inventory release skipped %d line(s)", skipped))
	}
	result.Status = StatusProcessed
	return result, nil
}

func (s *CheckoutWebhookService) lock(ctx context.Context, sessionID string) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	unlock, err := s.locker.Lock(ctx, "checkout:"+sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock session %s: %w", sessionID, err)
	}
	return unlock, nil
}

// findSessionOrder looks the order up by session id, then by the order id
// stored in session metadata. A missing order is (nil, nil).
func (s *CheckoutWebhookService) findSessionOrder(ctx context.Context, session *stripe.CheckoutSession) (*order.Order, error) {
	o, err := s.orderRepo.FindByStripeSessionID(ctx, session.ID)
	if err == nil {
		return o, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("failed to find order by session: %w", err)
	}

	raw := session.Metadata[billing.MetadataOrderID]
	if raw == "" {
		return nil, nil
	}
	id, perr := uuid.Parse(raw)
	if perr != nil {
		s.logger.Warn("Invalid order id in session metadata",
			zap.String("session_id", session.ID),
			zap.String("order_id", raw))
		return nil, nil
	}
	o, err = s.orderRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find order by metadata: %w", err)
	}
	if sid := o.SessionID(); sid != "" && sid != session.ID {
		s.logger.Warn("Metadata order belongs to another session",
			zap.String("session_id", session.ID),
			zap.String("order_session_id", sid))
		return nil, nil
	}
	return o, nil
}

func (s *CheckoutWebhookService) newPaidOrder(ctx context.Context, session *stripe.CheckoutSession, paymentIntentID string, now time.Time, result *CheckoutResult) (*order.Order, error) {
	lines := s.sessionLines(ctx, session, result)

	items := make([]order.LineItem, 0, len(lines))
	for _, line := range lines {
		unit := line.UnitAmountCents
		if unit == 0 && line.Quantity > 0 && line.AmountTotalCents > 0 {
			unit = line.AmountTotalCents / line.Quantity
		}
		items = append(items, order.LineItem{
			ProductID:      line.ProductID,
			VariantSKU:     line.VariantSKU,
			Name:           line.Description,
			Quantity:       int(line.Quantity),
			UnitPriceCents: unit,
		})
	}

	number := session.Metadata[billing.MetadataOrderNumber]
	if number == "" {
		number = order.GenerateOrderNumber(now)
	}
	o, err := order.NewOrder(number, items, string(session.Currency))
	if err != nil {
		return nil, err
	}
	o.AttachCheckoutSession(session.ID, nil)
	if _, err := o.MarkPaid(paymentIntentID, session.AmountTotal, now); err != nil {
		return nil, err
	}
	s.attachCustomer(ctx, o, session, result)
	return o, nil
}

// sessionLines reads the cart from metadata, falling back to the line-items API
func (s *CheckoutWebhookService) sessionLines(ctx context.Context, session *stripe.CheckoutSession, result *CheckoutResult) []billing.SessionLineItem {
	lines, err := billing.DecodeMetadataItems(session.Metadata[billing.MetadataItems])
	if err != nil {
		s.logger.Warn("Invalid items metadata on session",
			zap.String("session_id", session.ID),
			zap.Error(err))
	}
	if len(lines) > 0 || s.gateway == nil {
		return lines
	}

	lines, err = s.gateway.ListSessionLineItems(ctx, session.ID)
	if err != nil {
		s.logger.Warn("Failed to list session line items",
			zap.String("session_id", session.ID),
			zap.Error(err))
		result.warn("line items unavailable")
		return nil
	}
	return lines
}

func (s *CheckoutWebhookService) attachCustomer(ctx context.Context, o *order.Order, session *stripe.CheckoutSession, result *CheckoutResult) {
	email, name := session.CustomerEmail, ""
	if session.CustomerDetails != nil {
		if session.CustomerDetails.Email != "" {
			email = session.CustomerDetails.Email
		}
		name = session.CustomerDetails.Name
	}
	if email == "" {
		email = o.CustomerEmail
	}
	if name == "" {
		name = o.CustomerName
	}
	if email == "" || s.customerRepo == nil {
		return
	}

	customer, err := s.ensureCustomer(ctx, email, name)
	if err != nil {
		s.logger.Warn("Failed to resolve customer",
			zap.String("session_id", session.ID),
			zap.Error(err))
		result.warn("customer not linked")
		o.CustomerEmail = billing.NormalizeEmail(email)
		return
	}
	o.SetCustomer(customer.ID, customer.Email, name)
}

func (s *CheckoutWebhookService) ensureCustomer(ctx context.Context, email, name string) (*billing.Customer, error) {
	email = billing.NormalizeEmail(email)
	c, err := s.customerRepo.FindByEmail(ctx, email)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	c, err = billing.NewCustomer(email, name)
	if err != nil {
		return nil, err
	}
	if err := s.customerRepo.Create(ctx, c); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return s.customerRepo.FindByEmail(ctx, email)
		}
		return nil, err
	}
	return c, nil
}

func (s *CheckoutWebhookService) ensureInvoice(ctx context.Context, o *order.Order, session *stripe.CheckoutSession, result *CheckoutResult) {
	if s.invoiceRepo == nil {
		return
	}
	existing, err := s.invoiceRepo.FindBySessionID(ctx, session.ID)
	if err == nil {
		result.InvoiceNumber = existing.InvoiceNumber
		return
	}
	if !errors.Is(err, shared.ErrNotFound) {
		s.logger.Warn("Failed to look up invoice", zap.String("session_id", session.ID), zap.Error(err))
		result.warn("invoice lookup failed")
		return
	}

	inv, err := billing.NewInvoice(o.ID, o.OrderNumber, session.ID, o.TotalCents, o.Currency)
	if err != nil {
		result.warn("invoice not created")
		return
	}
	inv.CustomerID = o.CustomerID
	if err := s.invoiceRepo.Create(ctx, inv); err != nil && !errors.Is(err, shared.ErrAlreadyExists) {
		s.logger.Warn("Failed to create invoice",
			zap.String("session_id", session.ID),
			zap.String("order_id", o.ID.String()),
			zap.Error(err))
		result.warn("invoice not created")
		return
	}
	result.InvoiceNumber = inv.InvoiceNumber
}

func (s *CheckoutWebhookService) publishEvents(ctx context.Context, o *order.Order) {
	if s.eventPublisher != nil {
		if err := s.eventPublisher.Publish(ctx, o.GetDomainEvents()...); err != nil {
			s.logger.Warn("Failed to publish order events",
				zap.String("order_id", o.ID.String()),
				zap.Error(err))
		}
	}
	o.ClearDomainEvents()
}

func (s *CheckoutWebhookService) record(ctx context.Context, outcome string) {
	if s.recorder != nil {
		s.recorder.RecordWebhook(ctx, SourceStripe, outcome)
	}
}
