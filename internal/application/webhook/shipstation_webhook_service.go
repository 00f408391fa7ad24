package webhook

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/fulfillment/internal/domain/order"
	"github.com/storefront/fulfillment/internal/domain/shared"
	"github.com/storefront/fulfillment/internal/domain/shipping"
	"go.uber.org/zap"
)

// Signature headers sent by ShipStation
const (
	HeaderShipStationHMAC      = "X-ShipStation-Hmac-Sha256"
	HeaderShipStationSignature = "X-ShipStation-Signature"
)

// ShipmentFetcher loads the shipments behind a ShipStation resource URL
type ShipmentFetcher interface {
	FetchShipments(ctx context.Context, resourceURL string) ([]ShipStationShipment, error)
}

// LabelArchiver stores a shipping label PDF and returns its URL
type LabelArchiver interface {
	StoreLabel(ctx context.Context, orderNumber, trackingNumber string, pdf []byte) (string, error)
}

var shipDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.0000000",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ShipStationWebhookService applies ShipStation SHIP_NOTIFY events to orders
type ShipStationWebhookService struct {
	secret         string
	orderRepo      order.Repository
	fetcher        ShipmentFetcher
	archiver       LabelArchiver
	eventPublisher shared.EventPublisher
	recorder       WebhookRecorder
	logger         *zap.Logger
}

// NewShipStationWebhookService creates a new ShipStationWebhookService.
// fetcher and archiver may be nil.
func NewShipStationWebhookService(
	secret string,
	orderRepo order.Repository,
	fetcher ShipmentFetcher,
	archiver LabelArchiver,
	logger *zap.Logger,
) *ShipStationWebhookService {
	return &ShipStationWebhookService{
		secret:    secret,
		orderRepo: orderRepo,
		fetcher:   fetcher,
		archiver:  archiver,
		logger:    logger,
	}
}

// SetEventPublisher sets the event publisher for domain events
func (s *ShipStationWebhookService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetRecorder sets the metrics recorder
func (s *ShipStationWebhookService) SetRecorder(recorder WebhookRecorder) {
	s.recorder = recorder
}

// VerifySignature checks the HMAC headers against the raw body
func (s *ShipStationWebhookService) VerifySignature(body []byte, header http.Header) error {
	var candidates []string
	candidates = append(candidates, header.Values(HeaderShipStationHMAC)...)
	candidates = append(candidates, header.Values(HeaderShipStationSignature)...)
	if err := VerifyHMAC(s.secret, body, candidates...); err != nil {
		s.record(context.Background(), "invalid_signature")
		return err
	}
	return nil
}

// ProcessShipNotify applies every shipment of a notification. Shipments are
// read inline or fetched from the resource URL.
func (s *ShipStationWebhookService) ProcessShipNotify(ctx context.Context, body []byte) (*ShipNotifyResult, error) {
	var payload ShipNotifyPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, shared.NewDomainError("INVALID_PAYLOAD", "Invalid ShipStation payload")
	}

	shipments := payload.Shipments
	if len(shipments) == 0 && payload.ResourceURL != "" && s.fetcher != nil {
		fetched, err := s.fetcher.FetchShipments(ctx, payload.ResourceURL)
		if err != nil {
			s.record(ctx, "failed")
			return nil, fmt.Errorf("failed to fetch shipments: %w", err)
		}
		shipments = fetched
	}

	result := &ShipNotifyResult{Shipments: make([]ShipmentOutcome, 0, len(shipments))}
	if len(shipments) == 0 {
		result.Status = StatusIgnored
		s.record(ctx, StatusIgnored)
		return result, nil
	}

	resolved := 0
	for _, shipment := range shipments {
		if shipment.Voided {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("shipment %d is voided", shipment.ShipmentID))
			continue
		}
		outcome, err := s.applyShipment(ctx, shipment, result)
		if err != nil {
			s.record(ctx, "failed")
			return nil, err
		}
		if outcome.Resolved {
			resolved++
			result.Patched = mergeFields(result.Patched, outcome.Patched)
		}
		result.Shipments = append(result.Shipments, outcome)
	}

	if resolved == 0 {
		result.Status = StatusPending
	} else {
		result.Status = StatusUpdated
	}
	s.record(ctx, result.Status)
	return result, nil
}

func (s *ShipStationWebhookService) applyShipment(ctx context.Context, shipment ShipStationShipment, result *ShipNotifyResult) (ShipmentOutcome, error) {
	outcome := ShipmentOutcome{Reference: shipmentReference(shipment)}

	o, err := s.resolveOrder(ctx, shipment)
	if err != nil {
		return outcome, err
	}
	if o == nil {
		s.logger.Info("No order for ShipStation shipment",
			zap.String("reference", outcome.Reference))
		return outcome, nil
	}
	outcome.Resolved = true
	outcome.OrderID, outcome.OrderNumber = o.ID, o.OrderNumber

	patch := s.buildPatch(ctx, o, shipment, result, &outcome)
	fields := o.RecordShipment(patch)
	if len(fields) == 0 {
		return outcome, nil
	}
	outcome.Patched = fields

	if err := s.orderRepo.PatchFulfillment(ctx, o.ID, patch); err != nil {
		return outcome, fmt.Errorf("failed to patch fulfillment for %s: %w", o.OrderNumber, err)
	}

	entry := order.NewShippingLogEntry(o.ID, SourceShipStation, "SHIP_NOTIFY",
		fmt.Sprintf("Shipment %s recorded", outcome.Reference), fields)
	if err := s.orderRepo.AppendShippingLog(ctx, entry); err != nil {
		s.logger.Warn("Failed to append shipping log",
			zap.String("order_id", o.ID.String()),
			zap.Error(err))
		result.Warnings = append(result.Warnings, "shipping log not written for "+o.OrderNumber)
	}

	s.publishEvents(ctx, o)

	s.logger.Info("ShipStation shipment applied",
		zap.String("order_id", o.ID.String()),
		zap.Strings("fields", fields))
	return outcome, nil
}

// resolveOrder tries customField1 as the order id, then the order number.
// A missing order is (nil, nil).
func (s *ShipStationWebhookService) resolveOrder(ctx context.Context, shipment ShipStationShipment) (*order.Order, error) {
	if raw := strings.TrimSpace(shipment.AdvancedOptions.CustomField1); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			o, err := s.orderRepo.FindByID(ctx, id)
			if err == nil {
				return o, nil
			}
			if !errors.Is(err, shared.ErrNotFound) {
				return nil, fmt.Errorf("failed to find order %s: %w", id, err)
			}
		}
	}

	number := strings.TrimSpace(shipment.OrderNumber)
	if number == "" {
		return nil, nil
	}
	o, err := s.orderRepo.FindByOrderNumber(ctx, number)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find order %s: %w", number, err)
	}
	return o, nil
}

func (s *ShipStationWebhookService) buildPatch(ctx context.Context, o *order.Order, shipment ShipStationShipment, result *ShipNotifyResult, outcome *ShipmentOutcome) order.FulfillmentPatch {
	var patch order.FulfillmentPatch

	if code := strings.TrimSpace(shipment.CarrierCode); code != "" {
		carrier := shipping.CarrierDisplayName(code)
		patch.Carrier = &carrier
	}
	if service := strings.TrimSpace(shipment.ServiceCode); service != "" {
		patch.Service = &service
	}
	if tracking := strings.TrimSpace(shipment.TrackingNumber); tracking != "" {
		patch.TrackingNumber = &tracking
		if url := shipping.TrackingURL(shipment.CarrierCode, tracking); url != "" {
			patch.TrackingURL = &url
		}
	}
	if shipment.LabelData != "" && s.archiver != nil {
		if url, err := s.archiveLabel(ctx, o, shipment); err != nil {
			s.logger.Warn("Failed to archive shipping label",
				zap.String("order_id", o.ID.String()),
				zap.Error(err))
			result.Warnings = append(result.Warnings, "label not archived for "+o.OrderNumber)
		} else {
			patch.LabelURL = &url
			outcome.LabelArchived = true
		}
	}
	if oz, ok := weightInOunces(shipment.Weight); ok {
		patch.WeightOz = &oz
	}
	if shipDate, ok := parseShipDate(shipment.ShipDate); ok {
		patch.ShipDate = &shipDate
	}
	if shipment.OrderID > 0 {
		id := strconv.FormatInt(shipment.OrderID, 10)
		patch.ShipStationOrderID = &id
	}
	if key := strings.TrimSpace(shipment.OrderKey); key != "" {
		patch.ShipStationOrderKey = &key
	}

	// a later tracking status is never moved back
	if !patch.IsEmpty() && (o.Fulfillment.Status == "" || o.Fulfillment.Status == order.FulfillmentUnfulfilled) {
		status := order.FulfillmentLabelCreated
		patch.Status = &status
	}
	return patch
}

func (s *ShipStationWebhookService) archiveLabel(ctx context.Context, o *order.Order, shipment ShipStationShipment) (string, error) {
	pdf, err := base64.StdEncoding.DecodeString(shipment.LabelData)
	if err != nil {
		return "", fmt.Errorf("decode label: %w", err)
	}
	return s.archiver.StoreLabel(ctx, o.OrderNumber, shipment.TrackingNumber, pdf)
}

func (s *ShipStationWebhookService) publishEvents(ctx context.Context, o *order.Order) {
	if s.eventPublisher != nil {
		if err := s.eventPublisher.Publish(ctx, o.GetDomainEvents()...); err != nil {
			s.logger.Warn("Failed to publish order events",
				zap.String("order_id", o.ID.String()),
				zap.Error(err))
		}
	}
	o.ClearDomainEvents()
}

func (s *ShipStationWebhookService) record(ctx context.Context, outcome string) {
	if s.recorder != nil {
		s.recorder.RecordWebhook(ctx, SourceShipStation, outcome)
	}
}

func shipmentReference(shipment ShipStationShipment) string {
	switch {
	case shipment.OrderNumber != "":
		return shipment.OrderNumber
	case shipment.ShipmentID > 0:
		return strconv.FormatInt(shipment.ShipmentID, 10)
	default:
		return shipment.TrackingNumber
	}
}

func weightInOunces(w *ShipStationWeight) (float64, bool) {
	if w == nil || w.Value <= 0 {
		return 0, false
	}
	switch strings.ToLower(strings.TrimSpace(w.Units)) {
	case "ounces", "ounce", "oz", "":
		return w.Value, true
	case "pounds", "pound", "lb", "lbs":
		return w.Value * 16, true
	case "grams", "gram", "g":
		return w.Value / 28.349523125, true
	}
	return 0, false
}

func parseShipDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range shipDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func mergeFields(dst, src []string) []string {
	for _, f := range src {
		if !slices.Contains(dst, f) {
			dst = append(dst, f)
		}
	}
	return dst
}
