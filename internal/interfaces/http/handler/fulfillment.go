package handler

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	app "github.com/shopkart/fulfillment/internal/application/fulfillment"
	domain "github.com/shopkart/fulfillment/internal/domain/fulfillment"
	"github.com/shopkart/fulfillment/internal/infrastructure/carrier"
	"github.com/shopkart/fulfillment/internal/interfaces/http/dto"
)

// FulfillmentService is the application surface this handler exposes
type FulfillmentService interface {
	FulfillOrder(ctx context.Context, orderID uuid.UUID) (*app.FulfillmentResult, error)
	GetTracking(ctx context.Context, orderID uuid.UUID) (*app.TrackingResponse, error)
	CreateReversePickup(ctx context.Context, orderID uuid.UUID) (*app.FulfillmentResult, error)
	GetShippingRates(ctx context.Context, deliveryPincode string, isCOD bool) ([]carrier.RateQuote, error)
}

// FulfillmentHandler handles shipment-related API endpoints
type FulfillmentHandler struct {
	BaseHandler
	service FulfillmentService
}

// NewFulfillmentHandler creates a new FulfillmentHandler
func NewFulfillmentHandler(service FulfillmentService) *FulfillmentHandler {
	return &FulfillmentHandler{service: service}
}

// RegisterRoutes registers fulfillment routes
func (h *FulfillmentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/orders")
	{
		orders.POST("/:id/fulfill", h.FulfillOrder)
		orders.GET("/:id/tracking", h.GetTracking)
		orders.POST("/:id/reverse-pickup", h.CreateReversePickup)
	}
	rg.GET("/shipping/rates", h.GetShippingRates)
}

// FulfillOrder triggers a shipment attempt for a paid order.
//
// A carrier-side failure is reported in the response body with success=false
// and HTTP 200: the attempt completed, the order is FAILED and retryable.
// Error statuses are reserved for requests that could not be processed.
func (h *FulfillmentHandler) FulfillOrder(c *gin.Context) {
	orderID, ok := h.orderID(c)
	if !ok {
		return
	}

	result, err := h.service.FulfillOrder(c.Request.Context(), orderID)
	if err != nil {
		h.mapError(c, err)
		return
	}
	h.Success(c, result)
}

// GetTracking returns live carrier tracking for a booked order
func (h *FulfillmentHandler) GetTracking(c *gin.Context) {
	orderID, ok := h.orderID(c)
	if !ok {
		return
	}

	tracking, err := h.service.GetTracking(c.Request.Context(), orderID)
	if err != nil {
		h.mapError(c, err)
		return
	}
	h.Success(c, tracking)
}

// CreateReversePickup books a return shipment for a booked order
func (h *FulfillmentHandler) CreateReversePickup(c *gin.Context) {
	orderID, ok := h.orderID(c)
	if !ok {
		return
	}

	result, err := h.service.CreateReversePickup(c.Request.Context(), orderID)
	if err != nil {
		h.mapError(c, err)
		return
	}
	h.Created(c, result)
}

// shippingRatesRequest holds the rate query parameters
type shippingRatesRequest struct {
	Pincode string `form:"pincode" binding:"required,len=6,numeric"`
	COD     bool   `form:"cod"`
}

// GetShippingRates quotes all couriers for a delivery pincode
func (h *FulfillmentHandler) GetShippingRates(c *gin.Context) {
	var req shippingRatesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "pincode must be a 6 digit postal code")
		return
	}

	quotes, err := h.service.GetShippingRates(c.Request.Context(), req.Pincode, req.COD)
	if err != nil {
		h.mapError(c, err)
		return
	}
	h.Success(c, gin.H{"pincode": req.Pincode, "cod": req.COD, "rates": quotes})
}

func (h *FulfillmentHandler) orderID(c *gin.Context) (uuid.UUID, bool) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "order id must be a valid UUID")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		h.BadRequest(c, "order id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *FulfillmentHandler) mapError(c *gin.Context, err error) {
	var apiErr *domain.CarrierAPIError
	var cfgErr *domain.ConfigurationError
	switch {
	case errors.As(err, &cfgErr):
		h.ErrorWithCode(c, dto.ErrCodeUpstreamUnavailable, cfgErr.Message)
	case errors.Is(err, domain.ErrOrderNotFound):
		h.NotFound(c, "order not found")
	case errors.Is(err, domain.ErrOrderNotPaid):
		h.ErrorWithCode(c, dto.ErrCodeInvalidState, "order is not paid")
	case errors.Is(err, domain.ErrShipmentInProgress):
		h.Conflict(c, "a shipment attempt is already in progress")
	case errors.Is(err, domain.ErrShipmentNotBooked):
		h.ErrorWithCode(c, dto.ErrCodeInvalidState, "order has no booked shipment")
	case errors.As(err, &apiErr):
		h.ErrorWithCode(c, dto.ErrCodeUpstreamUnavailable, "carrier request failed")
	default:
		h.InternalError(c, "internal error")
	}
}
