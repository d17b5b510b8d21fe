package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	app "github.com/shopkart/fulfillment/internal/application/fulfillment"
	domain "github.com/shopkart/fulfillment/internal/domain/fulfillment"
	"github.com/shopkart/fulfillment/internal/infrastructure/carrier"
	"github.com/shopkart/fulfillment/internal/interfaces/http/router"
)

type mockFulfillmentService struct {
	mock.Mock
}

func (m *mockFulfillmentService) FulfillOrder(ctx context.Context, orderID uuid.UUID) (*app.FulfillmentResult, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*app.FulfillmentResult), args.Error(1)
}

func (m *mockFulfillmentService) GetTracking(ctx context.Context, orderID uuid.UUID) (*app.TrackingResponse, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*app.TrackingResponse), args.Error(1)
}

func (m *mockFulfillmentService) CreateReversePickup(ctx context.Context, orderID uuid.UUID) (*app.FulfillmentResult, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*app.FulfillmentResult), args.Error(1)
}

func (m *mockFulfillmentService) GetShippingRates(ctx context.Context, deliveryPincode string, isCOD bool) ([]carrier.RateQuote, error) {
	args := m.Called(ctx, deliveryPincode, isCOD)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]carrier.RateQuote), args.Error(1)
}

func setupFulfillmentRouter(t *testing.T) (*gin.Engine, *mockFulfillmentService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	service := &mockFulfillmentService{}
	router.NewRouter(engine).
		Register(NewFulfillmentHandler(service)).
		Setup()
	return engine, service
}

func doRequest(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	engine.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestFulfillmentHandler_FulfillOrder(t *testing.T) {
	t.Run("successful booking", func(t *testing.T) {
		engine, service := setupFulfillmentRouter(t)
		orderID := uuid.New()
		service.On("FulfillOrder", mock.Anything, orderID).Return(&app.FulfillmentResult{
			OrderID:        orderID,
			Success:        true,
			ShipmentStatus: domain.ShipmentStatusBooked,
			ShipmentID:     "99123",
			AWBCode:        "AWB1",
		}, nil)

		w := doRequest(engine, http.MethodPost, "/api/v1/orders/"+orderID.String()+"/fulfill")

		assert.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, true, body["success"])
		data := body["data"].(map[string]any)
		assert.Equal(t, "99123", data["shipment_id"])
	})

	t.Run("carrier failure is HTTP 200 with success=false", func(t *testing.T) {
		engine, service := setupFulfillmentRouter(t)
		orderID := uuid.New()
		service.On("FulfillOrder", mock.Anything, orderID).Return(&app.FulfillmentResult{
			OrderID:        orderID,
			Success:        false,
			ShipmentStatus: domain.ShipmentStatusFailed,
			FailureReason:  domain.ReasonCarrierUnavailable,
		}, nil)

		w := doRequest(engine, http.MethodPost, "/api/v1/orders/"+orderID.String()+"/fulfill")

		assert.Equal(t, http.StatusOK, w.Code)
		data := decodeBody(t, w)["data"].(map[string]any)
		assert.Equal(t, false, data["success"])
		assert.Equal(t, domain.ReasonCarrierUnavailable, data["failure_reason"])
	})

	t.Run("unknown order", func(t *testing.T) {
		engine, service := setupFulfillmentRouter(t)
		orderID := uuid.New()
		service.On("FulfillOrder", mock.Anything, orderID).Return(nil, domain.ErrOrderNotFound)

		w := doRequest(engine, http.MethodPost, "/api/v1/orders/"+orderID.String()+"/fulfill")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("unpaid order", func(t *testing.T) {
		engine, service := setupFulfillmentRouter(t)
		orderID := uuid.New()
		service.On("FulfillOrder", mock.Anything, orderID).Return(nil, domain.ErrOrderNotPaid)

		w := doRequest(engine, http.MethodPost, "/api/v1/orders/"+orderID.String()+"/fulfill")
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("concurrent attempt", func(t *testing.T) {
		engine, service := setupFulfillmentRouter(t)
		orderID := uuid.New()
		service.On("FulfillOrder", mock.Anything, orderID).Return(nil, domain.ErrShipmentInProgress)

		w := doRequest(engine, http.MethodPost, "/api/v1/orders/"+orderID.String()+"/fulfill")
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("malformed order id", func(t *testing.T) {
		engine, service := setupFulfillmentRouter(t)

		w := doRequest(engine, http.MethodPost, "/api/v1/orders/not-a-uuid/fulfill")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		service.AssertNotCalled(t, "FulfillOrder", mock.Anything, mock.Anything)
	})
}

func TestFulfillmentHandler_GetTracking(t *testing.T) {
	t.Run("booked order", func(t *testing.T) {
		engine, service := setupFulfillmentRouter(t)
		orderID := uuid.New()
		service.On("GetTracking", mock.Anything, orderID).Return(&app.TrackingResponse{
			OrderID:       orderID,
			ShipmentID:    "99123",
			CurrentStatus: "In Transit",
		}, nil)

		w := doRequest(engine, http.MethodGet, "/api/v1/orders/"+orderID.String()+"/tracking")

		assert.Equal(t, http.StatusOK, w.Code)
		data := decodeBody(t, w)["data"].(map[string]any)
		assert.Equal(t, "In Transit", data["current_status"])
	})

	t.Run("no shipment yet", func(t *testing.T) {
		engine, service := setupFulfillmentRouter(t)
		orderID := uuid.New()
		service.On("GetTracking", mock.Anything, orderID).Return(nil, domain.ErrShipmentNotBooked)

		w := doRequest(engine, http.MethodGet, "/api/v1/orders/"+orderID.String()+"/tracking")
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("carrier unreachable", func(t *testing.T) {
		engine, service := setupFulfillmentRouter(t)
		orderID := uuid.New()
		service.On("GetTracking", mock.Anything, orderID).
			Return(nil, &domain.CarrierAPIError{StatusCode: http.StatusServiceUnavailable})

		w := doRequest(engine, http.MethodGet, "/api/v1/orders/"+orderID.String()+"/tracking")
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})
}

func TestFulfillmentHandler_CreateReversePickup(t *testing.T) {
	engine, service := setupFulfillmentRouter(t)
	orderID := uuid.New()
	service.On("CreateReversePickup", mock.Anything, orderID).Return(&app.FulfillmentResult{
		OrderID:    orderID,
		Success:    true,
		ShipmentID: "88001",
	}, nil)

	w := doRequest(engine, http.MethodPost, "/api/v1/orders/"+orderID.String()+"/reverse-pickup")

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decodeBody(t, w)["data"].(map[string]any)
	assert.Equal(t, "88001", data["shipment_id"])
}

func TestFulfillmentHandler_GetShippingRates(t *testing.T) {
	t.Run("quotes returned", func(t *testing.T) {
		engine, service := setupFulfillmentRouter(t)
		service.On("GetShippingRates", mock.Anything, "110001", false).Return([]carrier.RateQuote{
			{CourierName: "BlueDart", Cost: 62, EstimatedDays: 2},
		}, nil)

		w := doRequest(engine, http.MethodGet, "/api/v1/shipping/rates?pincode=110001")

		assert.Equal(t, http.StatusOK, w.Code)
		data := decodeBody(t, w)["data"].(map[string]any)
		rates := data["rates"].([]any)
		require.Len(t, rates, 1)
	})

	t.Run("invalid pincode is rejected before the service", func(t *testing.T) {
		engine, service := setupFulfillmentRouter(t)

		w := doRequest(engine, http.MethodGet, "/api/v1/shipping/rates?pincode=11x")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		service.AssertNotCalled(t, "GetShippingRates", mock.Anything, mock.Anything, mock.Anything)
	})
}
