package persistence

import (
	"context"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/fulfillment/internal/domain/inventory"
	"github.com/storefront/fulfillment/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormStockRepository_Adjust(t *testing.T) {
	db := setupTestDB(t)
	products := NewGormProductRepository(db)
	repo := NewGormStockRepository(db)
	ctx := context.Background()

	p := newTestProduct(t, "TEE", 20)
	_, err := p.AddVariant("TEE-L", "Large")
	require.NoError(t, err)
	p.Variants[0].QuantityInStock = decimal.NewFromInt(8)
	require.NoError(t, products.Save(ctx, p))

	t.Run("variant row takes the delta", func(t *testing.T) {
		item := inventory.LineItem{ProductID: p.ID, VariantSKU: "tee-l"}
		require.NoError(t, repo.Adjust(ctx, inventory.ReserveAdjustment(item, decimal.NewFromInt(2))))

		found, err := products.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(2).Equal(found.Variants[0].QuantityReserved))
		assert.True(t, found.QuantityReserved.IsZero())
	})

	t.Run("unknown variant falls back to product", func(t *testing.T) {
		item := inventory.LineItem{ProductID: p.ID, VariantSKU: "TEE-XXL"}
		require.NoError(t, repo.Adjust(ctx, inventory.CommitAdjustment(item, decimal.NewFromInt(1))))

		found, err := products.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(19).Equal(found.QuantityInStock))
		assert.True(t, decimal.NewFromInt(-1).Equal(found.QuantityReserved))
	})

	t.Run("missing product", func(t *testing.T) {
		err := repo.Adjust(ctx, inventory.StockAdjustment{ProductID: uuid.New(), InStockDelta: decimal.NewFromInt(1), ReservedDelta: decimal.Zero})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormStockRepository_Adjust_Concurrent(t *testing.T) {
	db := setupTestDB(t)
	products := NewGormProductRepository(db)
	repo := NewGormStockRepository(db)
	ctx := context.Background()

	p := newTestProduct(t, "POSTER", 50)
	require.NoError(t, products.Save(ctx, p))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			item := inventory.LineItem{ProductID: p.ID}
			assert.NoError(t, repo.Adjust(ctx, inventory.CommitAdjustment(item, decimal.NewFromInt(1))))
		}()
	}
	wg.Wait()

	found, err := products.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(40).Equal(found.QuantityInStock), found.QuantityInStock.String())
}

func TestGormStockRepository_Adjust_PostgresSQL(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()
	repo := NewGormStockRepository(db.DB)
	productID := uuid.New()

	mock.ExpectExec(`UPDATE "products" SET "quantity_in_stock"=quantity_in_stock \+ \$1,"quantity_reserved"=quantity_reserved \+ \$2,"updated_at"=\$3 WHERE id = \$4`).
		WithArgs(decimal.NewFromInt(3), decimal.NewFromInt(-3), sqlmock.AnyArg(), productID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Adjust(context.Background(), inventory.StockAdjustment{
		ProductID:     productID,
		InStockDelta:  decimal.NewFromInt(3),
		ReservedDelta: decimal.NewFromInt(-3),
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
