package carrier

import (
	"errors"
	"strings"
)

// Default endpoint paths on the carrier API. Each can be overridden through
// configuration for sandbox or proxy setups.
const (
	DefaultBaseURL = "https://api.logistics-partner.example/v1"

	authPath           = "/auth/login"
	createOrderPath    = "/orders/create/adhoc"
	assignAWBPath      = "/courier/assign/awb"
	trackShipmentPath  = "/courier/track/shipment/"
	createReturnPath   = "/orders/create/return"
	serviceabilityPath = "/courier/serviceability/"
)

// Errors for carrier configuration
var (
	ErrConfigMissingEmail    = errors.New("carrier: email is required")
	ErrConfigMissingPassword = errors.New("carrier: password is required")
)

// Config holds the carrier API connection settings
type Config struct {
	// Email and Password are the account credentials used by the login
	// endpoint to obtain a bearer token
	Email    string
	Password string
	// BaseURL is the root of the carrier REST API
	BaseURL string
	// AuthURL overrides the login endpoint when set
	AuthURL string
	// CreateOrderURL overrides the shipment-creation endpoint when set
	CreateOrderURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

// Validate validates the carrier configuration and fills URL defaults
func (c *Config) Validate() error {
	if c.Email == "" {
		return ErrConfigMissingEmail
	}
	if c.Password == "" {
		return ErrConfigMissingPassword
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}

func (c *Config) authURL() string {
	if c.AuthURL != "" {
		return c.AuthURL
	}
	return c.BaseURL + authPath
}

func (c *Config) createOrderURL() string {
	if c.CreateOrderURL != "" {
		return c.CreateOrderURL
	}
	return c.BaseURL + createOrderPath
}
