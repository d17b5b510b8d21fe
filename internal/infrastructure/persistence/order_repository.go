package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopkart/fulfillment/internal/domain/fulfillment"
	"github.com/shopkart/fulfillment/internal/infrastructure/persistence/models"
)

// GormOrderRepository implements fulfillment.OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindByID finds an order by its ID
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*fulfillment.Order, error) {
	var model models.OrderModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fulfillment.ErrOrderNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindItems loads the line items for an order
func (r *GormOrderRepository) FindItems(ctx context.Context, orderID uuid.UUID) ([]fulfillment.OrderItem, error) {
	var rows []models.OrderItemModel
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	items := make([]fulfillment.OrderItem, 0, len(rows))
	for i := range rows {
		items = append(items, rows[i].ToDomain())
	}
	return items, nil
}

// FindAddressByID loads a stored address
func (r *GormOrderRepository) FindAddressByID(ctx context.Context, id uuid.UUID) (*fulfillment.Address, error) {
	var model models.AddressModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fulfillment.ErrAddressNotFound
		}
		return nil, err
	}
	addr := model.ToDomain()
	return &addr, nil
}

// MarkBooked persists a successful booking with a conditional update so that
// concurrent attempts cannot overwrite an existing booking. Returns false
// when the stored row was already BOOKED and nothing was written.
func (r *GormOrderRepository) MarkBooked(ctx context.Context, order *fulfillment.Order) (bool, error) {
	var model models.OrderModel
	model.FromDomain(order)

	result := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("id = ? AND shipment_status <> ?", order.ID, string(fulfillment.ShipmentStatusBooked)).
		Select("ShipmentStatus", "CarrierShipmentID", "CourierName",
			"InternalShippingCost", "FailureReason", "Metadata", "UpdatedAt").
		Updates(&model)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	// Nothing matched: either the row is gone or another attempt already
	// booked it. Distinguish the two for the caller.
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("id = ?", order.ID).
		Count(&count).Error; err != nil {
		return false, err
	}
	if count == 0 {
		return false, fulfillment.ErrOrderNotFound
	}
	return false, nil
}

// MarkFailed persists a failed attempt and its timeline event. A FAILED row
// that raced against a concurrent successful booking is left BOOKED.
func (r *GormOrderRepository) MarkFailed(ctx context.Context, order *fulfillment.Order) error {
	var model models.OrderModel
	model.FromDomain(order)

	result := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("id = ? AND shipment_status <> ?", order.ID, string(fulfillment.ShipmentStatusBooked)).
		Select("ShipmentStatus", "FailureReason", "Metadata", "UpdatedAt").
		Updates(&model)
	return result.Error
}

// Ensure GormOrderRepository implements fulfillment.OrderRepository
var _ fulfillment.OrderRepository = (*GormOrderRepository)(nil)
