package fulfillment

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaidStatus is the value both order_status and payment_status must hold
// before a shipment may be attempted.
const PaidStatus = "paid"

// ShipmentStatus represents the shipment state of an order
type ShipmentStatus string

const (
	// ShipmentStatusNone means no shipment attempt has been recorded yet.
	// It is stored as an empty string.
	ShipmentStatusNone    ShipmentStatus = ""
	ShipmentStatusPending ShipmentStatus = "PENDING"
	ShipmentStatusBooked  ShipmentStatus = "BOOKED"
	ShipmentStatusFailed  ShipmentStatus = "FAILED"
)

// IsValid checks if the status is a valid ShipmentStatus
func (s ShipmentStatus) IsValid() bool {
	switch s {
	case ShipmentStatusNone, ShipmentStatusPending, ShipmentStatusBooked, ShipmentStatusFailed:
		return true
	}
	return false
}

// String returns the string representation of ShipmentStatus
func (s ShipmentStatus) String() string {
	return string(s)
}

// TimelineEvent is one entry in the append-only shipping timeline
type TimelineEvent struct {
	Status       ShipmentStatus `json:"status"`
	Timestamp    time.Time      `json:"timestamp"`
	Courier      string         `json:"courier,omitempty"`
	TrackingCode string         `json:"trackingCode,omitempty"`
	Error        string         `json:"error,omitempty"`
}

// ShippingInfo is the shipping sub-object kept in the order metadata
type ShippingInfo struct {
	AWBCode          string `json:"awb_code,omitempty"`
	Courier          string `json:"courier,omitempty"`
	TrackingURL      string `json:"tracking_url,omitempty"`
	ExpectedDelivery string `json:"expected_delivery,omitempty"`
}

// Metadata is the free-form metadata map attached to an order. Only the
// shipping sub-object and the timeline are interpreted here; anything else
// written by other subsystems is preserved as-is.
type Metadata struct {
	Shipping *ShippingInfo    `json:"shipping,omitempty"`
	Timeline []TimelineEvent  `json:"shipping_timeline,omitempty"`
	Extra    map[string]any   `json:"extra,omitempty"`
}

// Address holds a shipping or billing address. Billing defaults to shipping
// when no distinct billing address exists.
type Address struct {
	FullName     string
	Phone        string
	AddressLine1 string
	AddressLine2 string
	City         string
	State        string
	Pincode      string
	Country      string
}

// HasRequiredFields reports whether all fields needed to build a shipment
// payload are present.
func (a Address) HasRequiredFields() bool {
	return strings.TrimSpace(a.FullName) != "" &&
		strings.TrimSpace(a.Phone) != "" &&
		strings.TrimSpace(a.AddressLine1) != "" &&
		strings.TrimSpace(a.City) != "" &&
		strings.TrimSpace(a.State) != "" &&
		strings.TrimSpace(a.Pincode) != ""
}

// Validate checks the address fields the carrier is strict about. It returns
// an InvalidAddressError naming the first offending field.
func (a Address) Validate() error {
	if strings.TrimSpace(a.FullName) == "" {
		return &InvalidAddressError{Field: "name"}
	}
	if strings.TrimSpace(a.AddressLine1) == "" {
		return &InvalidAddressError{Field: "address_line1"}
	}
	if NormalizePhone(a.Phone) == "" {
		return &InvalidAddressError{Field: "phone"}
	}
	if NormalizePincode(a.Pincode) == "" {
		return &InvalidAddressError{Field: "pincode"}
	}
	return nil
}

// OrderItem is a line item on a shippable order
type OrderItem struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	ProductID uuid.UUID
	Name      string
	SKU       string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Order is the fulfillment view of a storefront order. The catalog and
// checkout surfaces own most of its lifecycle; this service only reads the
// payment state and owns the shipment fields.
type Order struct {
	ID            uuid.UUID
	OrderNumber   string
	OrderStatus   string
	PaymentStatus string

	// Denormalized shipping address, filled in at checkout. May be
	// incomplete, in which case the address referenced by
	// ShippingAddressID is the fallback.
	ShippingName     string
	ShippingPhone    string
	ShippingLine1    string
	ShippingLine2    string
	ShippingCity     string
	ShippingState    string
	ShippingPincode  string
	ShippingCountry  string
	ShippingAddressID *uuid.UUID
	BillingAddressID  *uuid.UUID

	ShipmentStatus       ShipmentStatus
	CarrierShipmentID    *string
	CourierName          *string
	InternalShippingCost decimal.Decimal
	FailureReason        string

	Metadata Metadata

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsPaid reports whether both order_status and payment_status are "paid".
func (o *Order) IsPaid() bool {
	return strings.EqualFold(o.OrderStatus, PaidStatus) &&
		strings.EqualFold(o.PaymentStatus, PaidStatus)
}

// IsBooked reports whether the order already has a confirmed carrier
// shipment. BOOKED is terminal.
func (o *Order) IsBooked() bool {
	return o.ShipmentStatus == ShipmentStatusBooked &&
		o.CarrierShipmentID != nil && *o.CarrierShipmentID != ""
}

// CanAttemptShipment reports whether a (re)attempt is permitted. Only the
// FAILED state and the absent state allow a fresh attempt.
func (o *Order) CanAttemptShipment() bool {
	return o.ShipmentStatus == ShipmentStatusNone || o.ShipmentStatus == ShipmentStatusFailed
}

// DenormalizedShippingAddress assembles the address from the order's own
// columns. The second return value is false when required fields are missing
// and the caller must fall back to an address lookup.
func (o *Order) DenormalizedShippingAddress() (Address, bool) {
	addr := Address{
		FullName:     o.ShippingName,
		Phone:        o.ShippingPhone,
		AddressLine1: o.ShippingLine1,
		AddressLine2: o.ShippingLine2,
		City:         o.ShippingCity,
		State:        o.ShippingState,
		Pincode:      o.ShippingPincode,
		Country:      o.ShippingCountry,
	}
	return addr, addr.HasRequiredFields()
}

// MarkBooked records a confirmed carrier shipment and appends a BOOKED
// timeline event.
func (o *Order) MarkBooked(shipmentID, awbCode, courierName string, cost decimal.Decimal, now time.Time) {
	o.ShipmentStatus = ShipmentStatusBooked
	o.CarrierShipmentID = &shipmentID
	if courierName != "" {
		o.CourierName = &courierName
	}
	o.InternalShippingCost = cost
	o.FailureReason = ""
	if o.Metadata.Shipping == nil {
		o.Metadata.Shipping = &ShippingInfo{}
	}
	o.Metadata.Shipping.AWBCode = awbCode
	o.Metadata.Shipping.Courier = courierName
	o.AppendTimeline(TimelineEvent{
		Status:       ShipmentStatusBooked,
		Timestamp:    now,
		Courier:      courierName,
		TrackingCode: awbCode,
	})
	o.UpdatedAt = now
}

// MarkFailed records a failed shipment attempt with its reason and appends a
// FAILED timeline event. FAILED is retryable.
func (o *Order) MarkFailed(reason string, now time.Time) {
	o.ShipmentStatus = ShipmentStatusFailed
	o.FailureReason = reason
	o.AppendTimeline(TimelineEvent{
		Status:    ShipmentStatusFailed,
		Timestamp: now,
		Error:     reason,
	})
	o.UpdatedAt = now
}

// AppendTimeline appends an event to the shipping timeline. The timeline is
// append-only; existing entries are never rewritten.
func (o *Order) AppendTimeline(event TimelineEvent) {
	o.Metadata.Timeline = append(o.Metadata.Timeline, event)
}
