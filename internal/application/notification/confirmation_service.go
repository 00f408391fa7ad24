package notification

import (
	"context"
	"fmt"
	"strings"

	"github.com/storefront/fulfillment/internal/domain/order"
	"go.uber.org/zap"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Message is an outbound email
type Message struct {
	To       string
	Subject  string
	TextBody string
}

// Mailer delivers email
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// ConfirmationService composes and sends order confirmation emails
type ConfirmationService struct {
	mailer    Mailer
	storeName string
	printer   *message.Printer
	logger    *zap.Logger
}

// NewConfirmationService creates a new ConfirmationService
func NewConfirmationService(mailer Mailer, storeName string, logger *zap.Logger) *ConfirmationService {
	if storeName == "" {
		storeName = "Our store"
	}
	return &ConfirmationService{
		mailer:    mailer,
		storeName: storeName,
		printer:   message.NewPrinter(language.AmericanEnglish),
		logger:    logger,
	}
}

// SendOrderConfirmation emails the order summary to the customer. Orders
// without an email address are skipped.
func (s *ConfirmationService) SendOrderConfirmation(ctx context.Context, o *order.Order) error {
	to := strings.TrimSpace(o.CustomerEmail)
	if to == "" {
		s.logger.Debug("No customer email on order, skipping confirmation",
			zap.String("order_id", o.ID.String()))
		return nil
	}

	msg := Message{
		To:       to,
		Subject:  fmt.Sprintf("%s order confirmation %s", s.storeName, o.OrderNumber),
		TextBody: s.ComposeConfirmation(o),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("send confirmation for %s: %w", o.OrderNumber, err)
	}

	s.logger.Info("Order confirmation sent",
		zap.String("order_id", o.ID.String()),
		zap.String("order_number", o.OrderNumber))
	return nil
}

// ComposeConfirmation renders the plain-text confirmation body
func (s *ConfirmationService) ComposeConfirmation(o *order.Order) string {
	var b strings.Builder

	greeting := "Hello"
	if o.CustomerName != "" {
		greeting = "Hello " + o.CustomerName
	}
	fmt.Fprintf(&b, "%s,\n\nThank you for your order %s.\n\n", greeting, o.OrderNumber)

	for _, item := range o.Items {
		name := item.Name
		if name == "" {
			name = item.SKU
		}
		line := item.UnitPriceCents * int64(item.Quantity)
		fmt.Fprintf(&b, "  %d x %s  %s\n", item.Quantity, name, s.formatMoney(line, o.Currency))
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "Subtotal: %s\n", s.formatMoney(o.SubtotalCents, o.Currency))
	if o.ShippingLabel != "" {
		fmt.Fprintf(&b, "%s: %s\n", o.ShippingLabel, s.formatMoney(o.ShippingCents, o.Currency))
	}
	fmt.Fprintf(&b, "Total: %s\n", s.formatMoney(o.TotalCents, o.Currency))

	if addr := o.ShippingAddress; addr != nil {
		b.WriteString("\nShipping to:\n")
		for _, part := range []string{addr.Name, addr.Line1, addr.Line2} {
			if part != "" {
				fmt.Fprintf(&b, "  %s\n", part)
			}
		}
		fmt.Fprintf(&b, "  %s, %s %s\n", addr.City, addr.State, addr.PostalCode)
	}

	fmt.Fprintf(&b, "\nWe will email you again when your order ships.\n\n%s\n", s.storeName)
	return b.String()
}

func (s *ConfirmationService) formatMoney(cents int64, code string) string {
	unit, err := currency.ParseISO(strings.ToUpper(code))
	if err != nil {
		unit = currency.USD
	}
	return s.printer.Sprint(currency.Symbol(unit.Amount(float64(cents) / 100)))
}
