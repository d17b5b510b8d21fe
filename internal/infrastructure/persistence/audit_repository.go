package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopkart/fulfillment/internal/domain/fulfillment"
	"github.com/shopkart/fulfillment/internal/infrastructure/persistence/models"
)

// GormAuditLogger implements fulfillment.AuditLogger using GORM
type GormAuditLogger struct {
	db *gorm.DB
}

// NewGormAuditLogger creates a new GormAuditLogger
func NewGormAuditLogger(db *gorm.DB) *GormAuditLogger {
	return &GormAuditLogger{db: db}
}

// Record writes one audit row. Callers treat failures as non-fatal.
func (l *GormAuditLogger) Record(ctx context.Context, event fulfillment.AuditEvent) error {
	row := models.ShipmentAuditLogModel{
		ID:        uuid.New(),
		OrderID:   event.OrderID,
		EventType: string(event.Type),
		Details:   event.Details,
		CreatedAt: time.Now(),
	}
	return l.db.WithContext(ctx).Create(&row).Error
}

// FindByOrder returns the audit rows for an order, newest first
func (l *GormAuditLogger) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]models.ShipmentAuditLogModel, error) {
	var rows []models.ShipmentAuditLogModel
	if err := l.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Ensure GormAuditLogger implements fulfillment.AuditLogger
var _ fulfillment.AuditLogger = (*GormAuditLogger)(nil)
