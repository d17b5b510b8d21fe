package carrier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/shopkart/fulfillment/internal/domain/fulfillment"
)

// maxResponseSize limits response body reads to prevent memory exhaustion
const maxResponseSize = 10 * 1024 * 1024 // 10MB

// Client performs shipment operations against the carrier REST API. Every
// call carries a bearer token from the TokenManager; a 401 forces a single
// token refresh and one retry, and a second 401 is a terminal
// AuthenticationError.
type Client struct {
	config     *Config
	tokens     *TokenManager
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a carrier API client
func NewClient(config *Config, tokens *TokenManager, logger *zap.Logger) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Client{
		config:     config,
		tokens:     tokens,
		httpClient: &http.Client{Timeout: time.Duration(config.TimeoutSeconds) * time.Second},
		logger:     logger,
	}, nil
}

// CreateOrder creates an adhoc shipment order for the given payload. Non-2xx
// carrier responses are returned as a CreateOrderResult value, not an error,
// so the caller can classify and persist the failure. A malformed (non-JSON)
// 2xx body is an error.
func (c *Client) CreateOrder(ctx context.Context, payload fulfillment.ShipmentPayload) (*CreateOrderResult, error) {
	status, raw, err := c.doAuthorized(ctx, http.MethodPost, c.config.createOrderURL(), payload)
	if err != nil {
		return nil, err
	}
	return c.parseCreateOrderResult(status, raw)
}

// CreateReversePickup creates a return shipment, used when a delivered order
// is sent back to the warehouse. Same response contract as CreateOrder.
func (c *Client) CreateReversePickup(ctx context.Context, payload fulfillment.ShipmentPayload) (*CreateOrderResult, error) {
	status, raw, err := c.doAuthorized(ctx, http.MethodPost, c.config.BaseURL+createReturnPath, payload)
	if err != nil {
		return nil, err
	}
	return c.parseCreateOrderResult(status, raw)
}

// GenerateAWB asks the carrier to assign a tracking number to a shipment
func (c *Client) GenerateAWB(ctx context.Context, shipmentID string) (*AWBResult, error) {
	body := map[string]string{"shipment_id": shipmentID}
	status, raw, err := c.doAuthorized(ctx, http.MethodPost, c.config.BaseURL+assignAWBPath, body)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, &fulfillment.CarrierAPIError{StatusCode: status, Body: string(raw)}
	}

	var resp assignAWBResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("carrier: failed to parse AWB response: %w", err)
	}
	return &AWBResult{
		AWBCode:     resp.Response.Data.AWBCode,
		CourierName: resp.Response.Data.CourierName,
	}, nil
}

// TrackShipment fetches the current tracking state of a shipment
func (c *Client) TrackShipment(ctx context.Context, shipmentID string) (*TrackingResult, error) {
	trackURL := c.config.BaseURL + trackShipmentPath + url.PathEscape(shipmentID)
	status, raw, err := c.doAuthorized(ctx, http.MethodGet, trackURL, nil)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, &fulfillment.CarrierAPIError{StatusCode: status, Body: string(raw)}
	}

	var resp trackingResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("carrier: failed to parse tracking response: %w", err)
	}

	result := &TrackingResult{
		CurrentStatus:    resp.TrackingData.CurrentStatus,
		AWBCode:          resp.TrackingData.AWBCode,
		CourierName:      resp.TrackingData.CourierName,
		ExpectedDelivery: resp.TrackingData.ExpectedDate,
		TrackingURL:      resp.TrackingData.TrackURL,
	}
	for _, scan := range resp.TrackingData.ShipmentTrack {
		result.Events = append(result.Events, TrackingEvent{
			Status:   scan.Status,
			Location: scan.Location,
			Date:     scan.Date,
		})
	}
	return result, nil
}

// doAuthorized performs a bearer-authorized request with the single
// retry-on-401 contract shared by every carrier call.
func (c *Client) doAuthorized(ctx context.Context, method, requestURL string, body any) (int, []byte, error) {
	token, err := c.tokens.Authenticate(ctx)
	if err != nil {
		return 0, nil, err
	}

	status, raw, err := c.do(ctx, method, requestURL, token, body)
	if err != nil {
		return 0, nil, err
	}

	if status == http.StatusUnauthorized {
		c.logger.Warn("carrier rejected token, forcing refresh", zap.String("url", requestURL))
		token, err = c.tokens.ForceRefresh(ctx)
		if err != nil {
			return 0, nil, err
		}
		status, raw, err = c.do(ctx, method, requestURL, token, body)
		if err != nil {
			return 0, nil, err
		}
		if status == http.StatusUnauthorized {
			return 0, nil, &fulfillment.AuthenticationError{
				Reason: "carrier rejected a freshly refreshed token",
			}
		}
	}

	return status, raw, nil
}

// do performs one HTTP request and reads the response
func (c *Client) do(ctx context.Context, method, requestURL, token string, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("carrier: failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("carrier: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("carrier: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return 0, nil, fmt.Errorf("carrier: failed to read response: %w", err)
	}
	return resp.StatusCode, raw, nil
}

// parseCreateOrderResult converts a shipment-creation response into a result
// value. 2xx bodies must be JSON; everything else is carried through raw.
func (c *Client) parseCreateOrderResult(status int, raw []byte) (*CreateOrderResult, error) {
	result := &CreateOrderResult{
		HTTPStatus: status,
		RawBody:    string(raw),
	}

	if status < 200 || status > 299 {
		return result, nil
	}

	var resp createOrderResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("carrier: failed to parse create-order response: %w", err)
	}

	result.ShipmentID = resp.ShipmentID.String()
	if result.ShipmentID == "0" {
		result.ShipmentID = ""
	}
	result.AWBCode = resp.AWBCode
	result.CourierName = resp.CourierName
	return result, nil
}
