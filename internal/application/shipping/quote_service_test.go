package shipping

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/fulfillment/internal/domain/catalog"
	"github.com/storefront/fulfillment/internal/domain/shared"
	"github.com/storefront/fulfillment/internal/domain/shipping"
	"github.com/storefront/fulfillment/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newProduct(t *testing.T, sku string, weight float64, dims, class string) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct("Product "+sku, sku, 4900)
	require.NoError(t, err)
	p.ShippingWeightLb = &weight
	p.BoxDimensions = dims
	p.ShippingClass = class
	return p
}

type quoteCall struct {
	strategy string
	empty    bool
}

type fakeQuoteRecorder struct {
	calls []quoteCall
}

func (r *fakeQuoteRecorder) RecordQuote(_ context.Context, strategy string, empty bool) {
	r.calls = append(r.calls, quoteCall{strategy, empty})
}

func TestQuoteService_QuoteCart_VolumetricGround(t *testing.T) {
	ctx := context.Background()
	products := new(testutil.MockProductRepository)
	svc := NewQuoteService(products, nil, Config{}, zap.NewNop())
	rec := &fakeQuoteRecorder{}
	svc.SetRecorder(rec)

	a := newProduct(t, "A", 5, "10x10x10", "")
	products.On("FindBySKU", ctx, "A").Return(a, nil)

	plan, quote := svc.QuoteCart(ctx, []CartLine{{SKU: "A", Quantity: 1}})

	require.Len(t, plan.Packages, 1)
	assert.InDelta(t, 1000.0/139.0, plan.ChargeableWeight, 0.001)
	assert.False(t, plan.Freight)
	assert.False(t, plan.Oversize)
	assert.Equal(t, shipping.LabelGround, quote.Label)
	assert.Equal(t, int64(1160), quote.AmountCents)
	assert.Equal(t, 3, quote.MinDays)
	assert.Equal(t, 5, quote.MaxDays)
	assert.Equal(t, []quoteCall{{StrategyFormula, false}}, rec.calls)
}

func TestQuoteService_ResolveLines(t *testing.T) {
	ctx := context.Background()

	t.Run("lookup by id then sku with variant override", func(t *testing.T) {
		products := new(testutil.MockProductRepository)
		svc := NewQuoteService(products, nil, Config{}, zap.NewNop())

		byID := newProduct(t, "RACK-1", 80, "72x24x12", "Freight")
		parent := newProduct(t, "SHIRT", 0.5, "12x10x2", "")
		variant, err := parent.AddVariant("SHIRT-XL", "XL")
		require.NoError(t, err)
		heavier := 0.8
		variant.ShippingWeightLb = &heavier

		products.On("FindByID", ctx, byID.ID).Return(byID, nil).Once()
		products.On("FindBySKU", ctx, "SHIRT-XL").Return(parent, nil).Once()

		lines := svc.ResolveLines(ctx, []CartLine{
			{ProductID: byID.ID, Quantity: 1},
			{ProductID: byID.ID, Quantity: 2},
			{SKU: "SHIRT-XL", Quantity: 3},
		})

		require.Len(t, lines, 3)
		assert.Equal(t, "RACK-1", lines[0].SKU)
		assert.Equal(t, shipping.ClassFreight, lines[0].Attributes.Class)
		assert.Equal(t, 80.0, lines[1].Attributes.WeightLb)
		assert.Equal(t, 0.8, lines[2].Attributes.WeightLb)
		assert.False(t, lines[2].Attributes.Defaulted)
		products.AssertExpectations(t)
	})

	t.Run("lookup failure degrades to defaults", func(t *testing.T) {
		products := new(testutil.MockProductRepository)
		svc := NewQuoteService(products, nil, Config{}, zap.NewNop())
		missing := uuid.New()

		products.On("FindByID", ctx, missing).Return(nil, shared.ErrNotFound)
		products.On("FindBySKU", ctx, "GHOST").Return(nil, errors.New("connection refused"))

		lines := svc.ResolveLines(ctx, []CartLine{
			{ProductID: missing, Quantity: 1},
			{SKU: "GHOST", Quantity: 1},
			{Quantity: 1},
		})

		require.Len(t, lines, 3)
		for _, line := range lines {
			assert.True(t, line.Attributes.Defaulted)
			assert.Equal(t, 1.0, line.Attributes.WeightLb)
			assert.Equal(t, shipping.Dimensions{Length: 12, Width: 10, Height: 4}, line.Attributes.Dims)
		}
	})
}

func TestQuoteService_QuoteCart_InstallOnly(t *testing.T) {
	ctx := context.Background()
	products := new(testutil.MockProductRepository)
	svc := NewQuoteService(products, nil, Config{}, zap.NewNop())

	install := newProduct(t, "INSTALL", 0, "", "Install Only")
	products.On("FindBySKU", ctx, "INSTALL").Return(install, nil)

	plan, quote := svc.QuoteCart(ctx, []CartLine{{SKU: "INSTALL", Quantity: 2}})
	assert.True(t, plan.InstallOnlyCart)
	assert.False(t, plan.RequiresShipping)
	assert.Equal(t, shipping.LabelInstallOnly, quote.Label)
	assert.Zero(t, quote.AmountCents)
}

func TestQuoteService_EstimateRates(t *testing.T) {
	ctx := context.Background()
	shipTo := shipping.Address{Line1: "1 Main St", City: "Austin", State: "TX", PostalCode: "78701", Country: "US"}
	cfg := Config{
		ShipFrom:    shipping.Address{Line1: "500 Dock Rd", City: "Reno", State: "NV", PostalCode: "89502", Country: "US"},
		CarrierIDs:  []string{"se-100", "not-a-carrier"},
		RateTimeout: time.Second,
		FallbackCarriers: []shipping.CarrierAccount{
			{ID: "se-900", Code: "stamps_com", Name: "USPS"},
		},
	}

	newSvc := func(t *testing.T) (*QuoteService, *testutil.MockRateProvider, *fakeQuoteRecorder) {
		products := new(testutil.MockProductRepository)
		products.On("FindBySKU", mock.Anything, "A").Return(newProduct(t, "A", 5, "10x10x10", ""), nil)
		rates := new(testutil.MockRateProvider)
		svc := NewQuoteService(products, rates, cfg, zap.NewNop())
		rec := &fakeQuoteRecorder{}
		svc.SetRecorder(rec)
		return svc, rates, rec
	}

	t.Run("sorted rates with best first", func(t *testing.T) {
		svc, rates, rec := newSvc(t)
		rates.On("GetRates", mock.Anything, mock.MatchedBy(func(req shipping.RateRequest) bool {
			return len(req.Packages) == 1 &&
				req.ShipTo.PostalCode == "78701" &&
				req.ShipFrom.PostalCode == "89502" &&
				assert.ObjectsAreEqual([]string{"se-200"}, req.CarrierIDs)
		})).Return([]shipping.Rate{
			{Carrier: "UPS", ServiceCode: "ups_ground", AmountCents: 1899, Currency: "usd", DeliveryDays: 4},
			{Carrier: "FedEx", ServiceCode: "fedex_ground", AmountCents: 1450, Currency: "usd", DeliveryDays: 5},
		}, nil)

		_, estimate := svc.EstimateRates(ctx, RateEstimateRequest{
			Lines:      []CartLine{{SKU: "A", Quantity: 1}},
			ShipTo:     shipTo,
			CarrierIDs: []string{"se-200"},
		})

		require.NotNil(t, estimate.Best)
		assert.Equal(t, "fedex_ground", estimate.Best.ServiceCode)
		assert.Equal(t, int64(1450), estimate.Rates[0].AmountCents)
		assert.Equal(t, int64(1899), estimate.Rates[1].AmountCents)
		assert.Equal(t, []quoteCall{{StrategyLive, false}}, rec.calls)
	})

	t.Run("configured ids when caller sends none", func(t *testing.T) {
		svc, rates, _ := newSvc(t)
		rates.On("GetRates", mock.Anything, mock.MatchedBy(func(req shipping.RateRequest) bool {
			return assert.ObjectsAreEqual([]string{"se-100"}, req.CarrierIDs)
		})).Return([]shipping.Rate{{Carrier: "UPS", AmountCents: 999}}, nil)

		_, estimate := svc.EstimateRates(ctx, RateEstimateRequest{
			Lines:  []CartLine{{SKU: "A", Quantity: 1}},
			ShipTo: shipTo,
		})
		assert.False(t, estimate.IsEmpty())
	})

	t.Run("provider error yields empty estimate", func(t *testing.T) {
		svc, rates, rec := newSvc(t)
		rates.On("GetRates", mock.Anything, mock.Anything).Return(nil, context.DeadlineExceeded)

		_, estimate := svc.EstimateRates(ctx, RateEstimateRequest{Lines: []CartLine{{SKU: "A", Quantity: 1}}, ShipTo: shipTo})
		assert.True(t, estimate.IsEmpty())
		assert.Nil(t, estimate.Best)
		assert.NotNil(t, estimate.Rates)
		assert.Equal(t, []quoteCall{{StrategyLive, true}}, rec.calls)
	})

	t.Run("empty rate list yields empty estimate", func(t *testing.T) {
		svc, rates, _ := newSvc(t)
		rates.On("GetRates", mock.Anything, mock.Anything).Return([]shipping.Rate{}, nil)

		_, estimate := svc.EstimateRates(ctx, RateEstimateRequest{Lines: []CartLine{{SKU: "A", Quantity: 1}}, ShipTo: shipTo})
		assert.True(t, estimate.IsEmpty())
	})

	t.Run("no packages skips the provider", func(t *testing.T) {
		svc, rates, _ := newSvc(t)

		_, estimate := svc.EstimateRates(ctx, RateEstimateRequest{ShipTo: shipTo})
		assert.True(t, estimate.IsEmpty())
		rates.AssertNotCalled(t, "GetRates", mock.Anything, mock.Anything)
	})
}
