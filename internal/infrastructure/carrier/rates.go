package carrier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/shopkart/fulfillment/internal/domain/fulfillment"
)

// RateCalculator queries the carrier serviceability API to pick a courier and
// compute the internal (non-customer-facing) shipping cost for an order.
// Every failure mode degrades to an unsuccessful advisory result; callers
// must never block the surrounding order flow on it.
type RateCalculator struct {
	client        *Client
	pickupPincode string
	logger        *zap.Logger
}

// NewRateCalculator creates a RateCalculator. pickupPincode is the fixed
// origin used for every quote.
func NewRateCalculator(client *Client, pickupPincode string, logger *zap.Logger) *RateCalculator {
	return &RateCalculator{
		client:        client,
		pickupPincode: pickupPincode,
		logger:        logger,
	}
}

// CalculateShippingRate quotes the cheapest courier for a delivery pincode.
// Ties are broken by first-seen order. The COD surcharge is added only when
// isCOD is set. Malformed pincodes fail fast without a network call.
func (r *RateCalculator) CalculateShippingRate(ctx context.Context, deliveryPincode string, pkg fulfillment.PackageSpec, isCOD bool) RateResult {
	quotes, err := r.fetchQuotes(ctx, deliveryPincode, pkg, isCOD)
	if err != nil {
		r.logger.Warn("shipping rate lookup failed",
			zap.String("delivery_pincode", deliveryPincode),
			zap.Error(err))
		return RateResult{Success: false, Cost: 0}
	}
	if len(quotes) == 0 {
		r.logger.Warn("no couriers serve the delivery pincode",
			zap.String("delivery_pincode", deliveryPincode))
		return RateResult{Success: false, Cost: 0}
	}

	cheapest := quotes[0]
	for _, quote := range quotes[1:] {
		if quote.Cost < cheapest.Cost {
			cheapest = quote
		}
	}
	return RateResult{
		Success:       true,
		Cost:          cheapest.Cost,
		CourierName:   cheapest.CourierName,
		EstimatedDays: cheapest.EstimatedDays,
	}
}

// GetAllShippingRates returns every available courier sorted ascending by
// cost, for analytics and courier-selection use cases.
func (r *RateCalculator) GetAllShippingRates(ctx context.Context, deliveryPincode string, pkg fulfillment.PackageSpec, isCOD bool) ([]RateQuote, error) {
	quotes, err := r.fetchQuotes(ctx, deliveryPincode, pkg, isCOD)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(quotes, func(i, j int) bool { return quotes[i].Cost < quotes[j].Cost })
	return quotes, nil
}

// fetchQuotes validates inputs and calls the serviceability endpoint
func (r *RateCalculator) fetchQuotes(ctx context.Context, deliveryPincode string, pkg fulfillment.PackageSpec, isCOD bool) ([]RateQuote, error) {
	if fulfillment.NormalizePincode(deliveryPincode) == "" {
		return nil, fmt.Errorf("carrier: invalid delivery pincode %q", deliveryPincode)
	}
	if r.pickupPincode == "" {
		return nil, fulfillment.NewConfigurationError("pickup pincode is not configured")
	}

	weight := fulfillment.ChargeableWeight(pkg.WeightKg, pkg.LengthCm, pkg.BreadthCm, pkg.HeightCm)

	query := url.Values{}
	query.Set("pickup_postcode", r.pickupPincode)
	query.Set("delivery_postcode", fulfillment.NormalizePincode(deliveryPincode))
	query.Set("weight", strconv.FormatFloat(weight, 'f', 2, 64))
	if isCOD {
		query.Set("cod", "1")
	} else {
		query.Set("cod", "0")
	}

	requestURL := r.client.config.BaseURL + serviceabilityPath + "?" + query.Encode()
	status, raw, err := r.client.doAuthorized(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, &fulfillment.CarrierAPIError{StatusCode: status, Body: string(raw)}
	}

	var resp serviceabilityResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("carrier: failed to parse serviceability response: %w", err)
	}

	quotes := make([]RateQuote, 0, len(resp.Data.AvailableCourierCompanies))
	for _, option := range resp.Data.AvailableCourierCompanies {
		cost := option.FreightCharge
		if isCOD {
			cost += option.CODCharges
		}
		quotes = append(quotes, RateQuote{
			CourierName:   option.CourierName,
			Cost:          cost,
			EstimatedDays: option.EstimatedDeliveryDays,
		})
	}
	return quotes, nil
}
