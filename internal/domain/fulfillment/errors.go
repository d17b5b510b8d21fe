package fulfillment

import (
	"errors"
	"fmt"
)

// Failure reasons persisted on the order when a shipment attempt fails.
const (
	ReasonMissingShippingAddress  = "MISSING_SHIPPING_ADDRESS"
	ReasonCarrierDisabled         = "CARRIER_DISABLED"
	ReasonPayloadValidationFailed = "PAYLOAD_VALIDATION_FAILED"
	ReasonPayloadSanityFailed     = "PAYLOAD_SANITY_FAILED"
	ReasonAmbiguousResponse       = "AMBIGUOUS_CARRIER_RESPONSE"
	ReasonAuthenticationFailed    = "AUTHENTICATION_FAILED"
	ReasonCarrierRejected         = "CARRIER_REJECTED"
	ReasonCarrierUnavailable      = "CARRIER_UNAVAILABLE"
)

// Sentinel errors shared across the fulfillment flow
var (
	ErrOrderNotFound          = errors.New("order not found")
	ErrAddressNotFound        = errors.New("address not found")
	ErrOrderNotPaid           = errors.New("order is not paid")
	ErrShipmentInProgress     = errors.New("shipment attempt already in progress")
	ErrShipmentNotBooked      = errors.New("order has no booked shipment")
	ErrMissingShippingAddress = errors.New("no usable shipping address")
)

// ConfigurationError indicates missing or invalid configuration detected
// before any network call is made.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Message
}

// NewConfigurationError creates a ConfigurationError
func NewConfigurationError(message string) *ConfigurationError {
	return &ConfigurationError{Message: message}
}

// AuthenticationError indicates the carrier rejected our credentials,
// including the case where a forced token refresh did not help.
type AuthenticationError struct {
	Reason string
}

func (e *AuthenticationError) Error() string {
	return "carrier authentication failed: " + e.Reason
}

// InvalidAddressError identifies the specific address field that failed
// validation.
type InvalidAddressError struct {
	Field string
}

func (e *InvalidAddressError) Error() string {
	return "invalid address field: " + e.Field
}

// Reason returns the failure reason persisted on the order.
func (e *InvalidAddressError) Reason() string {
	return "INVALID_ADDRESS:" + e.Field
}

// CarrierAPIError is a non-2xx carrier response. It carries the status code
// and raw body so callers can classify and persist the failure.
type CarrierAPIError struct {
	StatusCode int
	Body       string
}

func (e *CarrierAPIError) Error() string {
	return fmt.Sprintf("carrier API error: HTTP %d: %s", e.StatusCode, e.Body)
}
