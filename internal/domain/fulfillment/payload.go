package fulfillment

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"
)

// Payment methods the carrier accepts
const (
	PaymentMethodPrepaid = "Prepaid"
	PaymentMethodCOD     = "COD"
)

var (
	phonePattern   = regexp.MustCompile(`^\d{10}$`)
	pincodePattern = regexp.MustCompile(`^\d{6}$`)
)

// PackageSpec holds the physical package dimensions used for a shipment.
// Values come from configuration with hard-coded fallbacks and are never
// zero or negative by the time they reach the builder.
type PackageSpec struct {
	WeightKg  float64
	LengthCm  float64
	BreadthCm float64
	HeightCm  float64
}

// PayloadItem is one carrier-shaped line item
type PayloadItem struct {
	Name         string  `json:"name"`
	SKU          string  `json:"sku"`
	Units        int     `json:"units"`
	SellingPrice float64 `json:"selling_price"`
}

// ShipmentPayload is the carrier-shaped shipment creation request. It is a
// value type and is never mutated after construction.
type ShipmentPayload struct {
	OrderID        string `json:"order_id"`
	OrderDate      string `json:"order_date"`
	PickupLocation string `json:"pickup_location"`

	BillingCustomerName string `json:"billing_customer_name"`
	BillingLastName     string `json:"billing_last_name"`
	BillingAddress      string `json:"billing_address"`
	BillingAddress2     string `json:"billing_address_2,omitempty"`
	BillingCity         string `json:"billing_city"`
	BillingPincode      string `json:"billing_pincode"`
	BillingState        string `json:"billing_state"`
	BillingCountry      string `json:"billing_country"`
	BillingPhone        string `json:"billing_phone"`

	// When the shipping address equals the billing address the shipping
	// block is omitted entirely and ShippingIsBilling is set.
	ShippingIsBilling    bool   `json:"shipping_is_billing"`
	ShippingCustomerName string `json:"shipping_customer_name,omitempty"`
	ShippingLastName     string `json:"shipping_last_name,omitempty"`
	ShippingAddress      string `json:"shipping_address,omitempty"`
	ShippingAddress2     string `json:"shipping_address_2,omitempty"`
	ShippingCity         string `json:"shipping_city,omitempty"`
	ShippingPincode      string `json:"shipping_pincode,omitempty"`
	ShippingState        string `json:"shipping_state,omitempty"`
	ShippingCountry      string `json:"shipping_country,omitempty"`
	ShippingPhone        string `json:"shipping_phone,omitempty"`

	OrderItems    []PayloadItem `json:"order_items"`
	PaymentMethod string        `json:"payment_method"`
	SubTotal      float64       `json:"sub_total"`
	CODAmount     float64       `json:"cod"`

	Length  float64 `json:"length"`
	Breadth float64 `json:"breadth"`
	Height  float64 `json:"height"`
	Weight  float64 `json:"weight"`
}

// BuildShipmentPayload normalizes an order, its items, and its addresses into
// the carrier's shipment-creation shape. Shipment creation only happens after
// payment, so payment_method is always Prepaid and cod is always zero.
func BuildShipmentPayload(order *Order, items []OrderItem, shipping, billing Address, pkg PackageSpec, pickupLocation string) ShipmentPayload {
	billingFirst, billingLast := SplitFullName(billing.FullName)

	payload := ShipmentPayload{
		OrderID:        order.OrderNumber,
		OrderDate:      order.CreatedAt.Format("2006-01-02 15:04"),
		PickupLocation: strings.TrimSpace(pickupLocation),

		BillingCustomerName: billingFirst,
		BillingLastName:     billingLast,
		BillingAddress:      strings.TrimSpace(billing.AddressLine1),
		BillingAddress2:     strings.TrimSpace(billing.AddressLine2),
		BillingCity:         strings.TrimSpace(billing.City),
		BillingPincode:      NormalizePincode(billing.Pincode),
		BillingState:        strings.TrimSpace(billing.State),
		BillingCountry:      countryOrDefault(billing.Country),
		BillingPhone:        NormalizePhone(billing.Phone),

		PaymentMethod: PaymentMethodPrepaid,
		CODAmount:     0,

		Weight:  ChargeableWeight(pkg.WeightKg, pkg.LengthCm, pkg.BreadthCm, pkg.HeightCm),
		Length:  pkg.LengthCm,
		Breadth: pkg.BreadthCm,
		Height:  pkg.HeightCm,
	}

	if order.OrderNumber == "" {
		payload.OrderID = order.ID.String()
	}

	if !shipping.Equal(billing) {
		shippingFirst, shippingLast := SplitFullName(shipping.FullName)
		payload.ShippingIsBilling = false
		payload.ShippingCustomerName = shippingFirst
		payload.ShippingLastName = shippingLast
		payload.ShippingAddress = strings.TrimSpace(shipping.AddressLine1)
		payload.ShippingAddress2 = strings.TrimSpace(shipping.AddressLine2)
		payload.ShippingCity = strings.TrimSpace(shipping.City)
		payload.ShippingPincode = NormalizePincode(shipping.Pincode)
		payload.ShippingState = strings.TrimSpace(shipping.State)
		payload.ShippingCountry = countryOrDefault(shipping.Country)
		payload.ShippingPhone = NormalizePhone(shipping.Phone)
	} else {
		payload.ShippingIsBilling = true
	}

	var subTotal float64
	for _, item := range items {
		price := item.UnitPrice.InexactFloat64()
		if price < 0 {
			price = 0
		}
		units := item.Quantity
		if units < 0 {
			units = 0
		}
		payload.OrderItems = append(payload.OrderItems, PayloadItem{
			Name:         strings.TrimSpace(item.Name),
			SKU:          strings.TrimSpace(item.SKU),
			Units:        units,
			SellingPrice: price,
		})
		subTotal += price * float64(units)
	}
	payload.SubTotal = subTotal

	return payload
}

// Equal reports whether two addresses are the same after trimming. Used to
// decide shipping_is_billing.
func (a Address) Equal(b Address) bool {
	eq := func(x, y string) bool { return strings.TrimSpace(x) == strings.TrimSpace(y) }
	return eq(a.FullName, b.FullName) &&
		NormalizePhone(a.Phone) == NormalizePhone(b.Phone) &&
		eq(a.AddressLine1, b.AddressLine1) &&
		eq(a.AddressLine2, b.AddressLine2) &&
		eq(a.City, b.City) &&
		eq(a.State, b.State) &&
		NormalizePincode(a.Pincode) == NormalizePincode(b.Pincode)
}

// ValidatePayload applies the carrier's business rules and returns every
// violated rule, not just the first. Callers log and surface all of them.
func ValidatePayload(p ShipmentPayload) []string {
	var violations []string

	requireString := func(field, value string) {
		if strings.TrimSpace(value) == "" {
			violations = append(violations, field+" is required")
		}
	}

	requireString("order_id", p.OrderID)
	requireString("order_date", p.OrderDate)
	requireString("pickup_location", p.PickupLocation)
	requireString("billing_customer_name", p.BillingCustomerName)
	requireString("billing_last_name", p.BillingLastName)
	requireString("billing_address", p.BillingAddress)
	requireString("billing_city", p.BillingCity)
	requireString("billing_state", p.BillingState)
	requireString("billing_country", p.BillingCountry)

	if !phonePattern.MatchString(p.BillingPhone) {
		violations = append(violations, "billing_phone must be exactly 10 digits")
	}
	if !pincodePattern.MatchString(p.BillingPincode) {
		violations = append(violations, "billing_pincode must be exactly 6 digits")
	}

	if !p.ShippingIsBilling {
		requireString("shipping_customer_name", p.ShippingCustomerName)
		requireString("shipping_address", p.ShippingAddress)
		requireString("shipping_city", p.ShippingCity)
		requireString("shipping_state", p.ShippingState)
		requireString("shipping_country", p.ShippingCountry)
		if !phonePattern.MatchString(p.ShippingPhone) {
			violations = append(violations, "shipping_phone must be exactly 10 digits")
		}
		if !pincodePattern.MatchString(p.ShippingPincode) {
			violations = append(violations, "shipping_pincode must be exactly 6 digits")
		}
	}

	if len(p.OrderItems) == 0 {
		violations = append(violations, "order_items must not be empty")
	}
	for i, item := range p.OrderItems {
		if strings.TrimSpace(item.Name) == "" {
			violations = append(violations, fmt.Sprintf("order_items[%d].name is required", i))
		}
		if strings.TrimSpace(item.SKU) == "" {
			violations = append(violations, fmt.Sprintf("order_items[%d].sku is required", i))
		}
		if item.Units <= 0 {
			violations = append(violations, fmt.Sprintf("order_items[%d].units must be > 0", i))
		}
		if item.SellingPrice <= 0 {
			violations = append(violations, fmt.Sprintf("order_items[%d].selling_price must be > 0", i))
		}
	}

	if p.PaymentMethod != PaymentMethodPrepaid && p.PaymentMethod != PaymentMethodCOD {
		violations = append(violations, "payment_method must be Prepaid or COD")
	}

	requirePositive := func(field string, value float64) {
		if !(value > 0) {
			violations = append(violations, field+" must be > 0")
		}
	}
	requirePositive("weight", p.Weight)
	requirePositive("length", p.Length)
	requirePositive("breadth", p.Breadth)
	requirePositive("height", p.Height)

	return violations
}

// requiredPayloadFields are the keys the sanity pass insists on in the
// serialized payload, beyond the shipping block which is conditional.
var requiredPayloadFields = []string{
	"order_id", "order_date", "pickup_location",
	"billing_customer_name", "billing_last_name", "billing_address",
	"billing_city", "billing_pincode", "billing_state", "billing_country",
	"billing_phone", "payment_method",
}

// SanityCheckPayload walks the final serialized payload immediately before
// transmission and rejects undefined, null, empty-required, or non-finite
// values. This is defense in depth against normalization bugs, distinct from
// the business-rule validation in ValidatePayload.
func SanityCheckPayload(p ShipmentPayload) error {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"weight", p.Weight}, {"length", p.Length},
		{"breadth", p.Breadth}, {"height", p.Height},
		{"sub_total", p.SubTotal}, {"cod", p.CODAmount},
	} {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("payload field %s is not a finite number", f.name)
		}
	}
	for _, item := range p.OrderItems {
		if math.IsNaN(item.SellingPrice) || math.IsInf(item.SellingPrice, 0) {
			return fmt.Errorf("payload item %q has a non-finite selling_price", item.SKU)
		}
	}

	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("payload is not serializable: %w", err)
	}
	var serialized map[string]any
	if err := json.Unmarshal(raw, &serialized); err != nil {
		return fmt.Errorf("payload did not round-trip: %w", err)
	}

	required := requiredPayloadFields
	if isBilling, ok := serialized["shipping_is_billing"].(bool); ok && !isBilling {
		required = append(append([]string{}, required...),
			"shipping_customer_name", "shipping_address", "shipping_city",
			"shipping_pincode", "shipping_state", "shipping_country", "shipping_phone")
	}

	for _, key := range required {
		value, present := serialized[key]
		if !present || value == nil {
			return fmt.Errorf("payload field %s is missing", key)
		}
		if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
			return fmt.Errorf("payload field %s is empty", key)
		}
	}
	return nil
}

func countryOrDefault(country string) string {
	country = strings.TrimSpace(country)
	if country == "" {
		return "India"
	}
	return country
}

// SerializedSize returns the payload's JSON size in bytes, used only for
// request logging.
func (p ShipmentPayload) SerializedSize() int {
	raw, err := json.Marshal(p)
	if err != nil {
		return 0
	}
	return len(raw)
}
