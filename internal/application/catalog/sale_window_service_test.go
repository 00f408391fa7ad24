package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/storefront/fulfillment/internal/domain/catalog"
	"github.com/storefront/fulfillment/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func saleProduct(t *testing.T, sku string, onSale bool, start, end *time.Time) catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct("Widget "+sku, sku, 2500)
	require.NoError(t, err)
	require.NoError(t, p.SetSaleWindow(1999, start, end))
	p.OnSale = onSale
	return *p
}

func TestSaleWindowService_SyncSaleFlags(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 11, 27, 8, 0, 0, 0, time.UTC)
	yesterday := now.Add(-24 * time.Hour)
	tomorrow := now.Add(24 * time.Hour)
	lastWeek := now.Add(-7 * 24 * time.Hour)

	opened := saleProduct(t, "OPEN-1", false, &yesterday, &tomorrow)
	closed := saleProduct(t, "CLOSED-1", true, &lastWeek, &yesterday)
	steady := saleProduct(t, "STEADY-1", true, &yesterday, &tomorrow)
	broken := saleProduct(t, "BROKEN-1", false, &yesterday, nil)

	repo := new(testutil.MockProductRepository)
	svc := NewSaleWindowService(repo, zap.NewNop())
	svc.now = func() time.Time { return now }

	repo.On("FindSaleFlagCandidates", ctx, now, defaultSaleSweepBatchSize).
		Return([]catalog.Product{opened, closed, steady, broken}, nil)
	repo.On("SetOnSale", ctx, opened.ID, true).Return(nil).Once()
	repo.On("SetOnSale", ctx, closed.ID, false).Return(nil).Once()
	repo.On("SetOnSale", ctx, broken.ID, true).Return(errors.New("deadlock detected")).Once()

	stats, err := svc.SyncSaleFlags(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Candidates)
	assert.Equal(t, 1, stats.Activated)
	assert.Equal(t, 1, stats.Deactivated)
	assert.Equal(t, 1, stats.Failed)
	repo.AssertExpectations(t)
	repo.AssertNumberOfCalls(t, "SetOnSale", 3)
}

func TestSaleWindowService_SyncSaleFlags_RepositoryError(t *testing.T) {
	ctx := context.Background()
	repo := new(testutil.MockProductRepository)
	svc := NewSaleWindowService(repo, zap.NewNop())
	now := time.Now()
	svc.now = func() time.Time { return now }

	repo.On("FindSaleFlagCandidates", ctx, now, defaultSaleSweepBatchSize).Return(nil, errors.New("timeout"))

	stats, err := svc.SyncSaleFlags(ctx)
	assert.Error(t, err)
	assert.Nil(t, stats)
}
