package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/storefront/fulfillment/internal/domain/billing"
	"github.com/storefront/fulfillment/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormCustomerRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormCustomerRepository(db)
	ctx := context.Background()

	c, err := billing.NewCustomer("Ada@Example.com", "Ada Lovelace")
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, c))

	found, err := repo.FindByEmail(ctx, "  ADA@example.com ")
	require.NoError(t, err)
	assert.Equal(t, c.ID, found.ID)
	assert.Equal(t, "Ada Lovelace", found.Name)

	dup, err := billing.NewCustomer("ada@example.com", "Someone Else")
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Create(ctx, dup), shared.ErrAlreadyExists)

	_, err = repo.FindByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormInvoiceRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormInvoiceRepository(db)
	ctx := context.Background()

	orderID := uuid.New()
	inv, err := billing.NewInvoice(orderID, "ORD-20260510-0000BEEF", "cs_test_1", 4660, "usd")
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, inv))

	found, err := repo.FindBySessionID(ctx, "cs_test_1")
	require.NoError(t, err)
	assert.Equal(t, "INV-ORD-20260510-0000BEEF", found.InvoiceNumber)
	assert.Equal(t, orderID, found.OrderID)
	assert.Equal(t, int64(4660), found.AmountCents)
	assert.Equal(t, billing.InvoiceStatusPaid, found.Status)

	second, err := billing.NewInvoice(orderID, "ORD-20260510-0000BEEF", "cs_test_1", 4660, "usd")
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Create(ctx, second), shared.ErrAlreadyExists)

	_, err = repo.FindBySessionID(ctx, "cs_missing")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
