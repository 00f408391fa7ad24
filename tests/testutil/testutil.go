// Package testutil holds shared mocks, fixtures and polling helpers for the
// fulfillment tests.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/fulfillment/internal/domain/catalog"
	"github.com/storefront/fulfillment/internal/domain/inventory"
	"github.com/storefront/fulfillment/internal/domain/order"
	"github.com/storefront/fulfillment/internal/domain/shipping"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// MockDB wraps a GORM database with sqlmock for testing.
type MockDB struct {
	DB    *gorm.DB
	Mock  sqlmock.Sqlmock
	SqlDB *sql.DB
}

// NewMockDB opens GORM over sqlmock. The connection is closed on cleanup.
func NewMockDB(t *testing.T) *MockDB {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err, "Failed to create sqlmock")

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err, "Failed to open GORM connection")

	t.Cleanup(func() { _ = mockDB.Close() })
	return &MockDB{DB: gormDB, Mock: mock, SqlDB: mockDB}
}

// ExpectationsWereMet verifies that all expectations were met.
func (m *MockDB) ExpectationsWereMet(t *testing.T) {
	t.Helper()
	require.NoError(t, m.Mock.ExpectationsWereMet(), "Unmet database expectations")
}

// NewTestUUID generates a deterministic UUID from seed.
func NewTestUUID(seed string) uuid.UUID {
	namespace := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	return uuid.NewSHA1(namespace, []byte(seed))
}

// FakeSKU returns a random upper-case SKU such as "SKU-4F9A21".
func FakeSKU() string {
	return "SKU-" + strings.ToUpper(gofakeit.LetterN(2)+gofakeit.DigitN(4))
}

// NewTestProduct builds a product with a random name and SKU and the given
// stock on hand.
func NewTestProduct(t *testing.T, priceCents int64, inStock int64) *catalog.Product {
	t.Helper()

	p, err := catalog.NewProduct(gofakeit.ProductName(), FakeSKU(), priceCents)
	require.NoError(t, err)
	weight := gofakeit.Float64Range(0.5, 20)
	p.ShippingWeightLb = &weight
	p.BoxDimensions = "10x8x4"
	p.QuantityInStock = decimal.NewFromInt(inStock)
	return p
}

// NewTestOrder builds a pending order for items with a random customer.
func NewTestOrder(t *testing.T, items ...order.LineItem) *order.Order {
	t.Helper()

	o, err := order.NewOrder(order.GenerateOrderNumber(time.Now()), items, "usd")
	require.NoError(t, err)
	o.CustomerEmail = gofakeit.Email()
	o.CustomerName = gofakeit.Name()
	o.ShippingAddress = NewTestAddress()
	o.ClearDomainEvents()
	return o
}

// OrderLine returns an order line for product p.
func OrderLine(p *catalog.Product, qty int) order.LineItem {
	return order.LineItem{
		ProductID:      p.ID,
		SKU:            p.SKU,
		Name:           p.Name,
		Quantity:       qty,
		UnitPriceCents: p.EffectivePriceCents(),
	}
}

// LedgerLine returns a ledger line for product p.
func LedgerLine(p *catalog.Product, qty float64) inventory.LineItem {
	return inventory.LineItem{ProductID: p.ID, Quantity: qty}
}

// NewTestAddress returns a random US residential address.
func NewTestAddress() *shipping.Address {
	addr := gofakeit.Address()
	return &shipping.Address{
		Name:        gofakeit.Name(),
		Line1:       addr.Street,
		City:        addr.City,
		State:       gofakeit.StateAbr(),
		PostalCode:  gofakeit.Zip(),
		Country:     "US",
		Residential: true,
	}
}

// SessionID returns a random checkout session id in the processor's format.
func SessionID() string {
	return fmt.Sprintf("cs_test_%s", gofakeit.LetterN(24))
}

// ContextWithTimeout returns a context cancelled on cleanup.
func ContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// RequireEventually polls condition until it holds or timeout elapses.
func RequireEventually(t *testing.T, condition func() bool, timeout, interval time.Duration, msgAndArgs ...interface{}) {
	t.Helper()
	require.Eventually(t, condition, timeout, interval, msgAndArgs...)
}
