package order

import (
	"errors"
	"fmt"

	"github.com/storefront/fulfillment/internal/domain/shared"
)

// Status is the top-level order lifecycle state
type Status string

const (
	StatusPending     Status = "pending"
	StatusPaid        Status = "paid"
	StatusUnfulfilled Status = "unfulfilled"
	StatusProcessing  Status = "processing"
	StatusFulfilled   Status = "fulfilled"
	StatusCancelled   Status = "cancelled"
	StatusRefunded    Status = "refunded"
)

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsValid returns true if the status is known
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusUnfulfilled, StatusProcessing,
		StatusFulfilled, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// IsTerminal returns true once no other status can follow
func (s Status) IsTerminal() bool {
	return s == StatusCancelled || s == StatusRefunded
}

// ReleasesStock reports whether entering this status hands reserved stock back
func (s Status) ReleasesStock() bool {
	return s == StatusCancelled || s == StatusRefunded
}

// PaymentStatus tracks the payment side of an order
type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "unpaid"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusExpired  PaymentStatus = "expired"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// ErrInvalidTransition is returned when the guard rejects a status change
var ErrInvalidTransition = shared.NewDomainError("INVALID_TRANSITION", "Order status transition not allowed")

// CanTransition checks a requested status change. Only known-bad jumps are
// rejected; everything else, including any change from an empty status, passes.
func CanTransition(current, next Status) error {
	if current == "" {
		return nil
	}
	switch {
	case current == StatusCancelled && next != StatusCancelled,
		current == StatusRefunded && next != StatusRefunded,
		current == StatusFulfilled && next == StatusPending,
		current == StatusPending && next == StatusFulfilled:
		return shared.NewDomainError(ErrInvalidTransition.Code,
			fmt.Sprintf("Cannot change order status from %s to %s", current, next))
	}
	return nil
}

// IsInvalidTransition reports whether err came from the transition guard
func IsInvalidTransition(err error) bool {
	var de *shared.DomainError
	return errors.As(err, &de) && de.Code == ErrInvalidTransition.Code
}
