package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appshipping "github.com/storefront/fulfillment/internal/application/shipping"
	"github.com/storefront/fulfillment/internal/domain/shipping"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockQuoter struct {
	mock.Mock
}

func (m *mockQuoter) QuoteCart(ctx context.Context, lines []appshipping.CartLine) (shipping.Plan, shipping.Quote) {
	args := m.Called(ctx, lines)
	return args.Get(0).(shipping.Plan), args.Get(1).(shipping.Quote)
}

func (m *mockQuoter) EstimateRates(ctx context.Context, req appshipping.RateEstimateRequest) (shipping.Plan, shipping.RateEstimate) {
	args := m.Called(ctx, req)
	return args.Get(0).(shipping.Plan), args.Get(1).(shipping.RateEstimate)
}

func newShippingRouter(q ShippingQuoter) *gin.Engine {
	h := NewShippingHandler(q, nil)
	router := gin.New()
	router.POST("/shipping/quote", h.Quote)
	router.POST("/shipping/rates", h.Rates)
	return router
}

func postBody(router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestShippingHandler_Quote(t *testing.T) {
	productID := uuid.New()
	plan := shipping.Plan{RequiresShipping: true, PackageCount: 1, TotalWeight: 5, ChargeableWeight: 7.19}
	quote := shipping.Quote{AmountCents: 1099, Label: "Ground", MinDays: 3, MaxDays: 5, RequiresShipping: true}

	q := new(mockQuoter)
	q.On("QuoteCart", mock.Anything, []appshipping.CartLine{
		{ProductID: productID, Quantity: 2},
		{SKU: "WIDGET-1", Quantity: 1},
	}).Return(plan, quote)

	w := postBody(newShippingRouter(q), "/shipping/quote", map[string]any{
		"items": []map[string]any{
			{"product_id": productID.String(), "quantity": 2},
			{"sku": " WIDGET-1 ", "quantity": 1},
		},
	})

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data QuoteResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, quote, resp.Data.Quote)
	assert.Equal(t, 1, resp.Data.Plan.PackageCount)
	q.AssertExpectations(t)
}

func TestShippingHandler_Quote_Validation(t *testing.T) {
	q := new(mockQuoter)
	router := newShippingRouter(q)

	for name, body := range map[string]any{
		"no items":          map[string]any{"items": []any{}},
		"no product or sku": map[string]any{"items": []map[string]any{{"quantity": 1}}},
		"zero quantity":     map[string]any{"items": []map[string]any{{"sku": "A", "quantity": 0}}},
	} {
		t.Run(name, func(t *testing.T) {
			w := postBody(router, "/shipping/quote", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
	q.AssertNotCalled(t, "QuoteCart", mock.Anything, mock.Anything)
}

func TestShippingHandler_Rates(t *testing.T) {
	plan := shipping.Plan{RequiresShipping: true, PackageCount: 1}
	body := map[string]any{
		"items":       []map[string]any{{"sku": "A", "quantity": 1}},
		"ship_to":     map[string]any{"postal_code": "78701", "city": "Austin", "state": "TX"},
		"carrier_ids": []string{"se-123", "bogus"},
	}

	t.Run("live rates", func(t *testing.T) {
		estimate := shipping.NewRateEstimate([]shipping.Rate{
			{Carrier: "ups", ServiceCode: "ups_ground", AmountCents: 1500, Currency: "usd"},
			{Carrier: "usps", ServiceCode: "usps_priority", AmountCents: 1200, Currency: "usd"},
		})
		q := new(mockQuoter)
		q.On("EstimateRates", mock.Anything, mock.MatchedBy(func(req appshipping.RateEstimateRequest) bool {
			return req.ShipTo.PostalCode == "78701" && req.ShipTo.Country == "US" &&
				len(req.CarrierIDs) == 2 && len(req.Lines) == 1
		})).Return(plan, estimate)

		w := postBody(newShippingRouter(q), "/shipping/rates", body)

		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Data RatesResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Data.Estimate.Best)
		assert.Equal(t, int64(1200), resp.Data.Estimate.Best.AmountCents)
		assert.Nil(t, resp.Data.Fallback)
		q.AssertNotCalled(t, "QuoteCart", mock.Anything, mock.Anything)
	})

	t.Run("empty estimate carries formula fallback", func(t *testing.T) {
		fallback := shipping.Quote{AmountCents: 999, Label: "Ground", RequiresShipping: true}
		q := new(mockQuoter)
		q.On("EstimateRates", mock.Anything, mock.Anything).Return(plan, shipping.NewRateEstimate(nil))
		q.On("QuoteCart", mock.Anything, mock.Anything).Return(plan, fallback)

		w := postBody(newShippingRouter(q), "/shipping/rates", body)

		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Data RatesResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Empty(t, resp.Data.Estimate.Rates)
		require.NotNil(t, resp.Data.Fallback)
		assert.Equal(t, int64(999), resp.Data.Fallback.AmountCents)
	})

	t.Run("bad postal code", func(t *testing.T) {
		q := new(mockQuoter)
		w := postBody(newShippingRouter(q), "/shipping/rates", map[string]any{
			"items":   []map[string]any{{"sku": "A", "quantity": 1}},
			"ship_to": map[string]any{"postal_code": "<script>"},
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
