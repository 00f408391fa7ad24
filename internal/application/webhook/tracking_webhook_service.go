package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/storefront/fulfillment/internal/domain/order"
	"github.com/storefront/fulfillment/internal/domain/shared"
	"github.com/storefront/fulfillment/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// HeaderTrackerSignature carries the optional tracker HMAC
const HeaderTrackerSignature = "X-Hmac-Signature"

// TrackingWebhookService applies carrier tracking updates to orders
type TrackingWebhookService struct {
	secret         string
	orderRepo      order.Repository
	eventPublisher shared.EventPublisher
	recorder       WebhookRecorder
	now            func() time.Time
	logger         *zap.Logger
}

// NewTrackingWebhookService creates a new TrackingWebhookService. An empty
// secret disables signature checks.
func NewTrackingWebhookService(secret string, orderRepo order.Repository, logger *zap.Logger) *TrackingWebhookService {
	return &TrackingWebhookService{
		secret:    secret,
		orderRepo: orderRepo,
		now:       time.Now,
		logger:    logger,
	}
}

// SetEventPublisher sets the event publisher for domain events
func (s *TrackingWebhookService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetRecorder sets the metrics recorder
func (s *TrackingWebhookService) SetRecorder(recorder WebhookRecorder) {
	s.recorder = recorder
}

// VerifySignature checks the tracker HMAC header when a secret is configured
func (s *TrackingWebhookService) VerifySignature(body []byte, header http.Header) error {
	if s.secret == "" {
		return nil
	}
	if err := VerifyHMAC(s.secret, body, header.Values(HeaderTrackerSignature)...); err != nil {
		s.record(context.Background(), "invalid_signature")
		return err
	}
	return nil
}

// ProcessTrackingEvent maps a tracker status onto the order found by
// tracking number. Unknown tracking numbers leave the result pending.
func (s *TrackingWebhookService) ProcessTrackingEvent(ctx context.Context, body []byte) (*TrackingResult, error) {
	var payload TrackerPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, shared.NewDomainError("INVALID_PAYLOAD", "Invalid tracker payload")
	}

	tracker := payload.Result
	code := strings.TrimSpace(tracker.TrackingCode)

	ctx, span := telemetry.StartServiceSpan(ctx, "webhook", "tracker",
		telemetry.WithAttribute(telemetry.SpanAttrWebhook, SourceTracker),
		telemetry.WithAttribute(telemetry.SpanAttrTracking, code),
	)
	defer span.End()
	result := &TrackingResult{TrackingCode: code}
	if code == "" || strings.TrimSpace(tracker.Status) == "" {
		result.Status = StatusIgnored
		s.record(ctx, StatusIgnored)
		return result, nil
	}

	o, err := s.orderRepo.FindByTrackingNumber(ctx, code)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Info("No order for tracking code", zap.String("tracking_code", code))
			result.Status = StatusPending
			s.record(ctx, StatusPending)
			return result, nil
		}
		s.record(ctx, "failed")
		return nil, fmt.Errorf("failed to find order by tracking number: %w", err)
	}
	result.OrderID = o.ID

	ev, patch := o.ApplyTrackingStatus(tracker.Status, tracker.StatusDetail, SourceTracker, s.now())
	if eta, ok := parseShipDate(tracker.EstDeliveryDate); ok {
		patch.EstimatedDelivery = &eta
	}
	if url := strings.TrimSpace(tracker.PublicURL); url != "" && o.Fulfillment.TrackingURL == "" {
		patch.TrackingURL = &url
	}
	fields := o.ApplyFulfillmentPatch(patch)

	if err := s.orderRepo.PatchFulfillment(ctx, o.ID, patch); err != nil {
		s.record(ctx, "failed")
		return nil, fmt.Errorf("failed to patch fulfillment for %s: %w", o.OrderNumber, err)
	}
	if err := s.orderRepo.AppendTrackingEvent(ctx, ev); err != nil {
		s.logger.Warn("Failed to append tracking event",
			zap.String("order_id", o.ID.String()),
			zap.Error(err))
		result.Warnings = append(result.Warnings, "tracking event not stored")
	}

	event := payload.Description
	if event == "" {
		event = "tracker.updated"
	}
	entry := order.NewShippingLogEntry(o.ID, SourceTracker, event,
		fmt.Sprintf("%s: %s", code, ev.Status), fields)
	if err := s.orderRepo.AppendShippingLog(ctx, entry); err != nil {
		s.logger.Warn("Failed to append shipping log",
			zap.String("order_id", o.ID.String()),
			zap.Error(err))
		result.Warnings = append(result.Warnings, "shipping log not written")
	}

	if s.eventPublisher != nil {
		if err := s.eventPublisher.Publish(ctx, o.GetDomainEvents()...); err != nil {
			s.logger.Warn("Failed to publish order events",
				zap.String("order_id", o.ID.String()),
				zap.Error(err))
		}
	}
	o.ClearDomainEvents()

	result.Status = StatusUpdated
	result.FulfillmentStatus = string(ev.Status)
	result.Patched = fields
	s.record(ctx, StatusUpdated)

	s.logger.Info("Tracking update applied",
		zap.String("order_id", o.ID.String()),
		zap.String("tracking_code", code),
		zap.String("status", string(ev.Status)))
	return result, nil
}

func (s *TrackingWebhookService) record(ctx context.Context, outcome string) {
	if s.recorder != nil {
		s.recorder.RecordWebhook(ctx, SourceTracker, outcome)
	}
}
