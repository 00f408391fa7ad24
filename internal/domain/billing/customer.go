package billing

import (
	"context"
	"net/mail"
	"strings"

	"github.com/storefront/fulfillment/internal/domain/shared"
)

// Customer is a buyer identified by email
type Customer struct {
	shared.BaseEntity
	Email            string
	Name             string
	Phone            string
	StripeCustomerID string
}

// NormalizeEmail lower-cases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NewCustomer creates a customer with a validated email
func NewCustomer(email, name string) (*Customer, error) {
	email = NormalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, shared.NewDomainError("INVALID_EMAIL", "Customer email is not valid")
	}
	return &Customer{
		BaseEntity: shared.NewBaseEntity(),
		Email:      email,
		Name:       strings.TrimSpace(name),
	}, nil
}

// CustomerRepository defines the interface for customer persistence
type CustomerRepository interface {
	FindByEmail(ctx context.Context, email string) (*Customer, error)

	// Create inserts a customer; shared.ErrAlreadyExists if the email is taken
	Create(ctx context.Context, c *Customer) error
}
