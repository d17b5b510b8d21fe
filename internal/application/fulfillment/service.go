package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	domain "github.com/shopkart/fulfillment/internal/domain/fulfillment"
	"github.com/shopkart/fulfillment/internal/infrastructure/carrier"
	"github.com/shopkart/fulfillment/internal/infrastructure/config"
)

// ShipmentClient is the carrier surface the orchestrator depends on
type ShipmentClient interface {
	CreateOrder(ctx context.Context, payload domain.ShipmentPayload) (*carrier.CreateOrderResult, error)
	CreateReversePickup(ctx context.Context, payload domain.ShipmentPayload) (*carrier.CreateOrderResult, error)
	GenerateAWB(ctx context.Context, shipmentID string) (*carrier.AWBResult, error)
	TrackShipment(ctx context.Context, shipmentID string) (*carrier.TrackingResult, error)
}

// RateProvider quotes shipping costs. Quotes are advisory: the orchestrator
// proceeds with a zero cost when no quote is available.
type RateProvider interface {
	CalculateShippingRate(ctx context.Context, deliveryPincode string, pkg domain.PackageSpec, isCOD bool) carrier.RateResult
	GetAllShippingRates(ctx context.Context, deliveryPincode string, pkg domain.PackageSpec, isCOD bool) ([]carrier.RateQuote, error)
}

// Service orchestrates the post-payment shipment flow: it loads and gates the
// order, resolves addresses, builds and validates the carrier payload, quotes
// the shipping cost, books the shipment, and persists the outcome.
//
// Carrier-side failures are normal outcomes: the order is marked FAILED and
// stays retryable, and the caller gets a result, not an error. Errors are
// reserved for precondition and infrastructure problems.
type Service struct {
	orders   domain.OrderRepository
	audit    domain.AuditLogger
	client   ShipmentClient
	rates    RateProvider
	enabled  bool
	shipping config.ShippingConfig
	backoff  carrier.BackoffPolicy
	logger   *zap.Logger
	clock    func() time.Time
}

// NewService creates the fulfillment orchestrator
func NewService(
	orders domain.OrderRepository,
	audit domain.AuditLogger,
	client ShipmentClient,
	rates RateProvider,
	carrierEnabled bool,
	shipping config.ShippingConfig,
	logger *zap.Logger,
) *Service {
	return &Service{
		orders:   orders,
		audit:    audit,
		client:   client,
		rates:    rates,
		enabled:  carrierEnabled,
		shipping: shipping,
		backoff:  carrier.DefaultBackoff,
		logger:   logger,
		clock:    time.Now,
	}
}

// SetClock overrides the time source, for tests
func (s *Service) SetClock(clock func() time.Time) {
	s.clock = clock
}

// FulfillOrder runs one shipment attempt for a paid order. It is safe to call
// repeatedly: a booked order short-circuits to its existing booking without
// touching the carrier, and a failed order gets a fresh attempt.
func (s *Service) FulfillOrder(ctx context.Context, orderID uuid.UUID) (*FulfillmentResult, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	log := s.logger.With(
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber))

	if order.IsBooked() {
		log.Info("shipment already booked, returning existing booking")
		return bookedResult(order, true), nil
	}

	if !order.IsPaid() {
		return nil, domain.ErrOrderNotPaid
	}
	if !order.CanAttemptShipment() {
		return nil, domain.ErrShipmentInProgress
	}

	// Fail closed when the integration is switched off: the attempt is
	// recorded so operators can see orders that piled up while disabled.
	if !s.enabled {
		return s.failAttempt(ctx, order, domain.ReasonCarrierDisabled, nil, log), nil
	}

	shipping, billing, err := s.resolveAddresses(ctx, order)
	if err != nil {
		var invalidAddr *domain.InvalidAddressError
		switch {
		case errors.Is(err, domain.ErrMissingShippingAddress):
			return s.failAttempt(ctx, order, domain.ReasonMissingShippingAddress, nil, log), nil
		case errors.As(err, &invalidAddr):
			return s.failAttempt(ctx, order, invalidAddr.Reason(), nil, log), nil
		default:
			return nil, err
		}
	}

	items, err := s.orders.FindItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	pkg := s.packageSpec()
	payload := domain.BuildShipmentPayload(order, items, shipping, billing, pkg, s.shipping.PickupLocation)

	if violations := domain.ValidatePayload(payload); len(violations) > 0 {
		log.Warn("shipment payload failed validation", zap.Strings("violations", violations))
		// The persisted reason carries the full violation list so an
		// operator can see which rules failed without the audit trail.
		reason := domain.ReasonPayloadValidationFailed + ": " + strings.Join(violations, "; ")
		result := s.failAttempt(ctx, order, reason, map[string]any{
			"violations": violations,
		}, log)
		result.Violations = violations
		return result, nil
	}

	if err := domain.SanityCheckPayload(payload); err != nil {
		log.Error("shipment payload failed the pre-transmission sanity check", zap.Error(err))
		return s.failAttempt(ctx, order, domain.ReasonPayloadSanityFailed, map[string]any{
			"error": err.Error(),
		}, log), nil
	}

	// Advisory cost quote. Never blocks the booking.
	rate := s.rates.CalculateShippingRate(ctx, shipping.Pincode, pkg, false)
	if !rate.Success {
		log.Warn("proceeding without a shipping rate", zap.String("delivery_pincode", shipping.Pincode))
	}

	log.Info("creating carrier shipment",
		zap.Int("payload_bytes", payload.SerializedSize()),
		zap.Float64("quoted_cost", rate.Cost))

	created, err := s.client.CreateOrder(ctx, payload)
	if err != nil {
		reason, details := classifyCarrierError(err)
		return s.failAttempt(ctx, order, reason, details, log), nil
	}

	if !created.Accepted() {
		reason := domain.ReasonCarrierRejected
		if created.HTTPStatus >= 500 {
			reason = domain.ReasonCarrierUnavailable
		}
		return s.failAttempt(ctx, order, reason, map[string]any{
			"http_status": created.HTTPStatus,
			"body":        truncate(created.RawBody, 2048),
		}, log), nil
	}

	// A 2xx without a shipment identifier is ambiguous, and an AWB alone
	// does not prove a booking. Never record BOOKED on guesswork.
	if created.ShipmentID == "" {
		log.Error("carrier accepted the request but returned no shipment id",
			zap.Int("http_status", created.HTTPStatus))
		return s.failAttempt(ctx, order, domain.ReasonAmbiguousResponse, map[string]any{
			"http_status": created.HTTPStatus,
			"body":        truncate(created.RawBody, 2048),
		}, log), nil
	}

	// Some responses confirm the shipment without assigning a tracking
	// number; request one explicitly. The booking stands either way, the
	// carrier can assign an AWB later on its own.
	awbCode := created.AWBCode
	courierName := created.CourierName
	if awbCode == "" {
		var awb *carrier.AWBResult
		awbErr := carrier.RetryWithBackoff(ctx, s.backoff, carrier.IsRetryable, func(ctx context.Context) error {
			var callErr error
			awb, callErr = s.client.GenerateAWB(ctx, created.ShipmentID)
			return callErr
		})
		if awbErr != nil {
			log.Warn("tracking number assignment failed, booking without AWB",
				zap.String("shipment_id", created.ShipmentID), zap.Error(awbErr))
		} else {
			awbCode = awb.AWBCode
			if awb.CourierName != "" {
				courierName = awb.CourierName
			}
		}
	}

	cost := decimal.Zero
	if rate.Success {
		cost = decimal.NewFromFloat(rate.Cost)
	}
	order.MarkBooked(created.ShipmentID, awbCode, courierName, cost, s.clock())

	won, err := s.orders.MarkBooked(ctx, order)
	if err != nil {
		return nil, err
	}
	if !won {
		// A concurrent attempt booked first. Its booking stands; ours is
		// surfaced to operators through the audit trail.
		log.Warn("lost booking race, keeping the earlier booking",
			zap.String("duplicate_shipment_id", created.ShipmentID))
		s.recordAudit(ctx, order.ID, domain.AuditShipmentBooked, map[string]any{
			"duplicate":   true,
			"shipment_id": created.ShipmentID,
		}, log)

		stored, err := s.orders.FindByID(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		return bookedResult(stored, true), nil
	}

	s.recordAudit(ctx, order.ID, domain.AuditShipmentBooked, map[string]any{
		"shipment_id":  created.ShipmentID,
		"awb_code":     awbCode,
		"courier":      courierName,
		"quoted_cost":  rate.Cost,
		"rate_success": rate.Success,
	}, log)

	log.Info("shipment booked",
		zap.String("shipment_id", created.ShipmentID),
		zap.String("awb_code", awbCode),
		zap.String("courier", courierName))

	result := bookedResult(order, false)
	result.RateKnown = rate.Success
	return result, nil
}

// GetTracking fetches live tracking for a booked order
func (s *Service) GetTracking(ctx context.Context, orderID uuid.UUID) (*TrackingResponse, error) {
	if s.client == nil {
		return nil, domain.NewConfigurationError("carrier integration is disabled")
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.IsBooked() {
		return nil, domain.ErrShipmentNotBooked
	}

	tracking, err := s.client.TrackShipment(ctx, *order.CarrierShipmentID)
	if err != nil {
		return nil, err
	}

	return &TrackingResponse{
		OrderID:          order.ID,
		ShipmentID:       *order.CarrierShipmentID,
		CurrentStatus:    tracking.CurrentStatus,
		AWBCode:          tracking.AWBCode,
		CourierName:      tracking.CourierName,
		ExpectedDelivery: tracking.ExpectedDelivery,
		Events:           tracking.Events,
	}, nil
}

// CreateReversePickup books a return shipment for a previously booked order
func (s *Service) CreateReversePickup(ctx context.Context, orderID uuid.UUID) (*FulfillmentResult, error) {
	if s.client == nil {
		return nil, domain.NewConfigurationError("carrier integration is disabled")
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.IsBooked() {
		return nil, domain.ErrShipmentNotBooked
	}

	shipping, billing, err := s.resolveAddresses(ctx, order)
	if err != nil {
		return nil, err
	}
	items, err := s.orders.FindItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	payload := domain.BuildShipmentPayload(order, items, shipping, billing, s.packageSpec(), s.shipping.PickupLocation)
	payload.OrderID = payload.OrderID + "-R"

	created, err := s.client.CreateReversePickup(ctx, payload)
	if err != nil {
		return nil, err
	}
	if !created.Accepted() || created.ShipmentID == "" {
		return nil, &domain.CarrierAPIError{StatusCode: created.HTTPStatus, Body: created.RawBody}
	}

	s.recordAudit(ctx, order.ID, domain.AuditShipmentBooked, map[string]any{
		"return":      true,
		"shipment_id": created.ShipmentID,
	}, s.logger)

	return &FulfillmentResult{
		OrderID:        order.ID,
		Success:        true,
		ShipmentStatus: order.ShipmentStatus,
		ShipmentID:     created.ShipmentID,
		AWBCode:        created.AWBCode,
		CourierName:    created.CourierName,
	}, nil
}

// GetShippingRates quotes all available couriers for a delivery pincode using
// the configured default package.
func (s *Service) GetShippingRates(ctx context.Context, deliveryPincode string, isCOD bool) ([]carrier.RateQuote, error) {
	if s.rates == nil {
		return nil, domain.NewConfigurationError("carrier integration is disabled")
	}
	return s.rates.GetAllShippingRates(ctx, deliveryPincode, s.packageSpec(), isCOD)
}

// resolveAddresses produces the shipping and billing addresses for an order.
// The order's denormalized columns win; the stored address referenced by
// ShippingAddressID is the fallback. Billing defaults to shipping unless a
// distinct billing address is on file.
func (s *Service) resolveAddresses(ctx context.Context, order *domain.Order) (shipping, billing domain.Address, err error) {
	shipping, ok := order.DenormalizedShippingAddress()
	if !ok {
		if order.ShippingAddressID == nil {
			return shipping, billing, domain.ErrMissingShippingAddress
		}
		stored, lookupErr := s.orders.FindAddressByID(ctx, *order.ShippingAddressID)
		if lookupErr != nil {
			if errors.Is(lookupErr, domain.ErrAddressNotFound) {
				return shipping, billing, domain.ErrMissingShippingAddress
			}
			return shipping, billing, lookupErr
		}
		shipping = *stored
		if !shipping.HasRequiredFields() {
			return shipping, billing, domain.ErrMissingShippingAddress
		}
	}

	if err := shipping.Validate(); err != nil {
		return shipping, billing, err
	}

	billing = shipping
	if order.BillingAddressID != nil {
		stored, lookupErr := s.orders.FindAddressByID(ctx, *order.BillingAddressID)
		if lookupErr == nil && stored.HasRequiredFields() && stored.Validate() == nil {
			billing = *stored
		}
	}
	return shipping, billing, nil
}

// failAttempt marks the order FAILED, writes the audit record, and returns
// the failure result. It never returns an error: persistence problems here
// are logged and swallowed so the failure still reaches the caller.
func (s *Service) failAttempt(ctx context.Context, order *domain.Order, reason string, details map[string]any, log *zap.Logger) *FulfillmentResult {
	order.MarkFailed(reason, s.clock())
	if err := s.orders.MarkFailed(ctx, order); err != nil {
		log.Error("failed to persist shipment failure", zap.String("reason", reason), zap.Error(err))
	}

	auditType := domain.AuditShipmentFailed
	if strings.HasPrefix(reason, domain.ReasonPayloadValidationFailed) {
		auditType = domain.AuditShipmentValidationFailed
	}
	if details == nil {
		details = map[string]any{}
	}
	details["reason"] = reason
	s.recordAudit(ctx, order.ID, auditType, details, log)

	log.Warn("shipment attempt failed", zap.String("reason", reason))
	return failedResult(order.ID, reason)
}

// recordAudit writes an audit record, logging instead of failing on error
func (s *Service) recordAudit(ctx context.Context, orderID uuid.UUID, eventType domain.AuditEventType, details map[string]any, log *zap.Logger) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, domain.AuditEvent{
		OrderID: orderID,
		Type:    eventType,
		Details: details,
	}); err != nil {
		log.Error("failed to write audit record", zap.String("event_type", string(eventType)), zap.Error(err))
	}
}

func (s *Service) packageSpec() domain.PackageSpec {
	return domain.PackageSpec{
		WeightKg:  s.shipping.DefaultWeightKg,
		LengthCm:  s.shipping.DefaultLengthCm,
		BreadthCm: s.shipping.DefaultBreadthCm,
		HeightCm:  s.shipping.DefaultHeightCm,
	}
}

// classifyCarrierError maps a transport-level failure to a persisted reason
// plus audit detail.
func classifyCarrierError(err error) (string, map[string]any) {
	var authErr *domain.AuthenticationError
	if errors.As(err, &authErr) {
		return domain.ReasonAuthenticationFailed, map[string]any{"error": authErr.Reason}
	}
	var cfgErr *domain.ConfigurationError
	if errors.As(err, &cfgErr) {
		return domain.ReasonCarrierDisabled, map[string]any{"error": cfgErr.Message}
	}
	var apiErr *domain.CarrierAPIError
	if errors.As(err, &apiErr) {
		reason := domain.ReasonCarrierRejected
		if apiErr.StatusCode >= 500 {
			reason = domain.ReasonCarrierUnavailable
		}
		return reason, map[string]any{
			"http_status": apiErr.StatusCode,
			"body":        truncate(apiErr.Body, 2048),
		}
	}
	return domain.ReasonCarrierUnavailable, map[string]any{"error": err.Error()}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return fmt.Sprintf("%s... (%d bytes total)", s[:max], len(s))
}
