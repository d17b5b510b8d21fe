package fulfillment

import (
	"github.com/google/uuid"

	domain "github.com/shopkart/fulfillment/internal/domain/fulfillment"
	"github.com/shopkart/fulfillment/internal/infrastructure/carrier"
)

// FulfillmentResult is the outcome of one shipment attempt. A failed attempt
// is a normal outcome, not an error: the order is marked FAILED and remains
// retryable.
type FulfillmentResult struct {
	OrderID        uuid.UUID             `json:"order_id"`
	Success        bool                  `json:"success"`
	AlreadyBooked  bool                  `json:"already_booked,omitempty"`
	ShipmentStatus domain.ShipmentStatus `json:"shipment_status"`
	ShipmentID     string                `json:"shipment_id,omitempty"`
	AWBCode        string                `json:"awb_code,omitempty"`
	CourierName    string                `json:"courier_name,omitempty"`
	ShippingCost   float64               `json:"shipping_cost"`
	RateKnown      bool                  `json:"rate_known"`
	FailureReason  string                `json:"failure_reason,omitempty"`
	Violations     []string              `json:"violations,omitempty"`
}

// TrackingResponse is the tracking view returned to API callers
type TrackingResponse struct {
	OrderID          uuid.UUID               `json:"order_id"`
	ShipmentID       string                  `json:"shipment_id"`
	CurrentStatus    string                  `json:"current_status"`
	AWBCode          string                  `json:"awb_code,omitempty"`
	CourierName      string                  `json:"courier_name,omitempty"`
	ExpectedDelivery string                  `json:"expected_delivery,omitempty"`
	Events           []carrier.TrackingEvent `json:"events,omitempty"`
}

func bookedResult(order *domain.Order, alreadyBooked bool) *FulfillmentResult {
	result := &FulfillmentResult{
		OrderID:        order.ID,
		Success:        true,
		AlreadyBooked:  alreadyBooked,
		ShipmentStatus: domain.ShipmentStatusBooked,
		ShippingCost:   order.InternalShippingCost.InexactFloat64(),
		RateKnown:      !order.InternalShippingCost.IsZero(),
	}
	if order.CarrierShipmentID != nil {
		result.ShipmentID = *order.CarrierShipmentID
	}
	if order.CourierName != nil {
		result.CourierName = *order.CourierName
	}
	if order.Metadata.Shipping != nil {
		result.AWBCode = order.Metadata.Shipping.AWBCode
	}
	return result
}

func failedResult(orderID uuid.UUID, reason string) *FulfillmentResult {
	return &FulfillmentResult{
		OrderID:        orderID,
		Success:        false,
		ShipmentStatus: domain.ShipmentStatusFailed,
		FailureReason:  reason,
	}
}
