package fulfillment

import (
	"context"

	"github.com/google/uuid"
)

// OrderRepository defines the persistence surface the orchestrator needs.
// The storage backend is treated as a generic record store; this service
// only owns the shipment fields.
type OrderRepository interface {
	// FindByID loads an order
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindItems loads the line items for an order
	FindItems(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error)

	// FindAddressByID loads a stored address, used as a fallback when the
	// order's denormalized address fields are incomplete
	FindAddressByID(ctx context.Context, id uuid.UUID) (*Address, error)

	// MarkBooked persists a successful booking with a conditional update:
	// the shipment fields are written only when the stored shipment_status
	// is not already BOOKED. It returns false when another invocation won
	// the race, in which case nothing was written.
	MarkBooked(ctx context.Context, order *Order) (bool, error)

	// MarkFailed persists a failed attempt, its reason, and the appended
	// timeline event. A FAILED order remains retryable.
	MarkFailed(ctx context.Context, order *Order) error
}

// AuditEventType classifies audit records written by the orchestrator
type AuditEventType string

const (
	AuditShipmentBooked           AuditEventType = "SHIPMENT_BOOKED"
	AuditShipmentValidationFailed AuditEventType = "SHIPMENT_VALIDATION_FAILED"
	AuditShipmentFailed           AuditEventType = "SHIPMENT_FAILED"
)

// AuditEvent is one structured audit record with enough context for manual
// investigation.
type AuditEvent struct {
	OrderID uuid.UUID
	Type    AuditEventType
	Details map[string]any
}

// AuditLogger records audit events. Failures to write audit records must not
// fail the fulfillment flow.
type AuditLogger interface {
	Record(ctx context.Context, event AuditEvent) error
}
