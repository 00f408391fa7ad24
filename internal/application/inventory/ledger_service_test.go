package inventory

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/fulfillment/internal/domain/inventory"
	"github.com/storefront/fulfillment/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type ledgerFixture struct {
	stock  *testutil.MockStockRepository
	txs    *testutil.MockTransactionRepository
	orders *testutil.MockOrderRepository
	svc    *LedgerService
}

func newLedgerFixture() *ledgerFixture {
	f := &ledgerFixture{
		stock:  new(testutil.MockStockRepository),
		txs:    new(testutil.MockTransactionRepository),
		orders: new(testutil.MockOrderRepository),
	}
	f.svc = NewLedgerService(f.stock, f.txs, f.orders, zap.NewNop())
	return f
}

// adjustmentOf matches a StockAdjustment by value, comparing deltas numerically
func adjustmentOf(productID uuid.UUID, variantSKU string, inStock, reserved int64) interface{} {
	return mock.MatchedBy(func(a inventory.StockAdjustment) bool {
		return a.ProductID == productID &&
			a.VariantSKU == variantSKU &&
			a.InStockDelta.Equal(decimal.NewFromInt(inStock)) &&
			a.ReservedDelta.Equal(decimal.NewFromInt(reserved))
	})
}

type recordedLines struct {
	op      string
	applied int
	skipped int
}

type fakeRecorder struct {
	calls []recordedLines
}

func (r *fakeRecorder) RecordLedgerLines(_ context.Context, op string, applied, skipped int) {
	r.calls = append(r.calls, recordedLines{op, applied, skipped})
}

func TestLedgerService_Reserve(t *testing.T) {
	f := newLedgerFixture()
	rec := &fakeRecorder{}
	f.svc.SetRecorder(rec)
	ctx := context.Background()

	good := uuid.New()
	items := []inventory.LineItem{
		{ProductID: good, VariantSKU: "V-1", Quantity: 2},
		{ProductID: uuid.Nil, Quantity: 1},
		{ProductID: uuid.New(), Quantity: math.NaN()},
	}

	f.stock.On("Adjust", ctx, adjustmentOf(good, "V-1", 0, 2)).Return(nil).Once()
	f.txs.On("Append", ctx, mock.MatchedBy(func(tx *inventory.Transaction) bool {
		return tx.Type == inventory.TransactionTypeReservation &&
			tx.Reason == inventory.ReasonCheckoutHold &&
			tx.OrderRef == "ORD-1" &&
			tx.Quantity.Equal(decimal.NewFromInt(2))
	})).Return(nil).Once()

	report := f.svc.Reserve(ctx, "ORD-1", items)

	assert.Equal(t, inventory.OperationReserve, report.Operation)
	assert.Equal(t, 1, report.Applied)
	assert.Len(t, report.Skipped, 2)
	assert.Equal(t, inventory.SkipMissingProduct, report.Skipped[0].Reason)
	assert.Equal(t, 2, report.Skipped[1].Index)
	assert.Equal(t, []recordedLines{{"reserve", 1, 2}}, rec.calls)
	f.stock.AssertExpectations(t)
	f.txs.AssertExpectations(t)
}

func TestLedgerService_Reserve_StoreFailureDoesNotBlockOtherLines(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()

	broken := uuid.New()
	healthy := uuid.New()

	f.stock.On("Adjust", ctx, mock.MatchedBy(func(a inventory.StockAdjustment) bool { return a.ProductID == broken })).
		Return(errors.New("connection reset"))
	f.stock.On("Adjust", ctx, mock.MatchedBy(func(a inventory.StockAdjustment) bool { return a.ProductID == healthy })).
		Return(nil)
	f.txs.On("Append", ctx, mock.Anything).Return(nil)

	report := f.svc.Reserve(ctx, "ORD-2", []inventory.LineItem{
		{ProductID: broken, Quantity: 1},
		{ProductID: healthy, Quantity: 1},
	})

	assert.Equal(t, 1, report.Applied)
	assert.Len(t, report.Skipped, 1)
	assert.Equal(t, inventory.SkipStoreFailure, report.Skipped[0].Reason)
	f.txs.AssertNumberOfCalls(t, "Append", 1)
}

func TestLedgerService_Commit(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()
	orderID := uuid.New()
	productID := uuid.New()

	f.stock.On("Adjust", ctx, adjustmentOf(productID, "", -3, -3)).Return(nil)
	f.txs.On("Append", ctx, mock.MatchedBy(func(tx *inventory.Transaction) bool {
		return tx.Type == inventory.TransactionTypeSale &&
			tx.Quantity.Equal(decimal.NewFromInt(-3)) &&
			tx.OrderRef == orderID.String() &&
			tx.DedupeKey != nil
	})).Return(nil)

	t.Run("commits and initializes fulfillment", func(t *testing.T) {
		f.orders.On("InitFulfillment", ctx, orderID).Return(nil).Once()

		report := f.svc.Commit(ctx, orderID, []inventory.LineItem{{ProductID: productID, Quantity: 3}})
		assert.Equal(t, 1, report.Applied)
		assert.True(t, report.AllApplied())
	})

	t.Run("fulfillment init failure is swallowed", func(t *testing.T) {
		f.orders.On("InitFulfillment", ctx, orderID).Return(errors.New("write failed")).Once()

		report := f.svc.Commit(ctx, orderID, []inventory.LineItem{{ProductID: productID, Quantity: 3}})
		assert.Equal(t, 1, report.Applied)
	})

	f.orders.AssertExpectations(t)
}

func TestLedgerService_Release(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()
	productID := uuid.New()

	f.stock.On("Adjust", ctx, adjustmentOf(productID, "", 1, -1)).Return(nil)

	t.Run("default reason", func(t *testing.T) {
		f.txs.On("Append", ctx, mock.MatchedBy(func(tx *inventory.Transaction) bool {
			return tx.Type == inventory.TransactionTypeRelease && tx.Reason == inventory.ReasonOrderCancelled
		})).Return(nil).Once()

		report := f.svc.Release(ctx, "ORD-3", []inventory.LineItem{{ProductID: productID, Quantity: 1}}, "")
		assert.Equal(t, 1, report.Applied)
	})

	t.Run("expired reason", func(t *testing.T) {
		f.txs.On("Append", ctx, mock.MatchedBy(func(tx *inventory.Transaction) bool {
			return tx.Reason == inventory.ReasonExpired
		})).Return(nil).Once()

		report := f.svc.Release(ctx, "ORD-3", []inventory.LineItem{{ProductID: productID, Quantity: 1}}, inventory.ReasonExpired)
		assert.Equal(t, 1, report.Applied)
	})

	t.Run("audit failure still counts as applied", func(t *testing.T) {
		f.txs.On("Append", ctx, mock.Anything).Return(errors.New("disk full")).Once()

		report := f.svc.Release(ctx, "ORD-3", []inventory.LineItem{{ProductID: productID, Quantity: 1}}, "")
		assert.Equal(t, 1, report.Applied)
		assert.Empty(t, report.Skipped)
	})

	f.txs.AssertExpectations(t)
}

func TestLedgerService_Restock(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()
	productID := uuid.New()

	f.stock.On("Adjust", ctx, adjustmentOf(productID, "BLUE", 2, 0)).Return(nil).Once()
	f.txs.On("Append", ctx, mock.MatchedBy(func(tx *inventory.Transaction) bool {
		return tx.Type == inventory.TransactionTypeReturn &&
			tx.Reason == inventory.ReasonOrderCancelled &&
			tx.Quantity.Equal(decimal.NewFromInt(2))
	})).Return(nil).Once()

	report := f.svc.Restock(ctx, "ORD-4", []inventory.LineItem{{ProductID: productID, VariantSKU: "BLUE", Quantity: 2}}, "")

	assert.Equal(t, inventory.OperationRestock, report.Operation)
	assert.Equal(t, 1, report.Applied)
	f.stock.AssertExpectations(t)
	f.txs.AssertExpectations(t)
}
