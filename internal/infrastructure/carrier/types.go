package carrier

import (
	"encoding/json"
	"time"
)

// loginRequest is the body sent to the carrier login endpoint
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResponse is the carrier login response. ExpiresIn is in seconds and
// some deployments omit it.
type loginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

// createOrderResponse is the carrier's shipment-creation response body.
// Identifier fields arrive as numbers or strings depending on the endpoint
// version, hence json.Number.
type createOrderResponse struct {
	OrderID     json.Number `json:"order_id"`
	ShipmentID  json.Number `json:"shipment_id"`
	AWBCode     string      `json:"awb_code"`
	CourierName string      `json:"courier_name"`
	Status      string      `json:"status"`
}

// assignAWBResponse is the response of the assign-tracking-number endpoint
type assignAWBResponse struct {
	AWBAssignStatus int `json:"awb_assign_status"`
	Response        struct {
		Data struct {
			AWBCode     string `json:"awb_code"`
			CourierName string `json:"courier_name"`
		} `json:"data"`
	} `json:"response"`
}

// trackingResponse is the fetch-shipment tracking response
type trackingResponse struct {
	TrackingData struct {
		ShipmentStatus int    `json:"shipment_status"`
		CurrentStatus  string `json:"current_status"`
		AWBCode        string `json:"awb_code"`
		CourierName    string `json:"courier_name"`
		ExpectedDate   string `json:"etd"`
		TrackURL       string `json:"track_url"`
		ShipmentTrack  []struct {
			Status   string `json:"status"`
			Location string `json:"location"`
			Date     string `json:"date"`
		} `json:"shipment_track"`
	} `json:"tracking_data"`
}

// serviceabilityResponse is the rate/serviceability query response
type serviceabilityResponse struct {
	Data struct {
		AvailableCourierCompanies []courierOption `json:"available_courier_companies"`
	} `json:"data"`
}

type courierOption struct {
	CourierName           string  `json:"courier_name"`
	FreightCharge         float64 `json:"freight_charge"`
	CODCharges            float64 `json:"cod_charges"`
	EstimatedDeliveryDays int     `json:"estimated_delivery_days"`
}

// CreateOrderResult is the outcome of a shipment-creation call. Non-2xx
// responses are returned as a value carrying the status and raw body so the
// caller can classify and persist the failure with full diagnostic detail.
type CreateOrderResult struct {
	HTTPStatus  int
	ShipmentID  string
	AWBCode     string
	CourierName string
	RawBody     string
}

// Accepted reports whether the HTTP status is one the fulfillment flow may
// treat as a candidate success. Body-level gates are applied by the caller.
func (r *CreateOrderResult) Accepted() bool {
	return r.HTTPStatus == 200 || r.HTTPStatus == 201
}

// AWBResult is the outcome of an assign-tracking-number call
type AWBResult struct {
	AWBCode     string
	CourierName string
}

// TrackingEvent is one scan in a shipment's tracking history
type TrackingEvent struct {
	Status   string
	Location string
	Date     string
}

// TrackingResult is the outcome of a fetch-shipment call
type TrackingResult struct {
	CurrentStatus    string
	AWBCode          string
	CourierName      string
	ExpectedDelivery string
	TrackingURL      string
	Events           []TrackingEvent
}

// RateQuote is one courier option priced for a shipment
type RateQuote struct {
	CourierName   string  `json:"courier_name"`
	Cost          float64 `json:"cost"`
	EstimatedDays int     `json:"estimated_days"`
}

// RateResult is the outcome of a shipping rate calculation. It is advisory:
// callers must never block an order flow on Success being false.
type RateResult struct {
	Success       bool
	Cost          float64
	CourierName   string
	EstimatedDays int
}

// CachedToken is a bearer token with its absolute expiry instant
type CachedToken struct {
	Token  string    `json:"token"`
	Expiry time.Time `json:"expiry"`
}

// ValidAt reports whether the token can still be used at the given instant.
// A safety buffer guards against clock skew and in-flight request latency.
func (t CachedToken) ValidAt(now time.Time) bool {
	return t.Token != "" && now.Before(t.Expiry.Add(-tokenExpirySafetyBuffer))
}
