package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/shopkart/fulfillment/internal/domain/fulfillment"
	"github.com/shopkart/fulfillment/internal/infrastructure/persistence/models"
)

func setupOrderTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.OrderModel{},
		&models.OrderItemModel{},
		&models.AddressModel{},
		&models.ShipmentAuditLogModel{},
	))
	return db
}

func seedOrder(t *testing.T, db *gorm.DB, mutate func(*models.OrderModel)) uuid.UUID {
	t.Helper()
	model := models.OrderModel{
		ID:              uuid.New(),
		OrderNumber:     "SO-" + uuid.NewString()[:8],
		OrderStatus:     "paid",
		PaymentStatus:   "paid",
		ShippingName:    "Asha Rao",
		ShippingPhone:   "9876543210",
		ShippingLine1:   "12 MG Road",
		ShippingCity:    "Bengaluru",
		ShippingState:   "Karnataka",
		ShippingPincode: "560001",
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	if mutate != nil {
		mutate(&model)
	}
	require.NoError(t, db.Create(&model).Error)
	return model.ID
}

func TestGormOrderRepository_FindByID(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	t.Run("finds existing order", func(t *testing.T) {
		id := seedOrder(t, db, nil)
		order, err := repo.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, order.ID)
		assert.True(t, order.IsPaid())
		assert.Equal(t, fulfillment.ShipmentStatusNone, order.ShipmentStatus)
	})

	t.Run("missing order returns sentinel", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, fulfillment.ErrOrderNotFound)
	})

	t.Run("metadata round trip", func(t *testing.T) {
		id := seedOrder(t, db, func(m *models.OrderModel) {
			m.Metadata = fulfillment.Metadata{
				Shipping: &fulfillment.ShippingInfo{AWBCode: "AWB1"},
				Timeline: []fulfillment.TimelineEvent{
					{Status: fulfillment.ShipmentStatusFailed, Timestamp: time.Now().UTC(), Error: "CARRIER_5XX"},
				},
			}
		})
		order, err := repo.FindByID(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, order.Metadata.Shipping)
		assert.Equal(t, "AWB1", order.Metadata.Shipping.AWBCode)
		require.Len(t, order.Metadata.Timeline, 1)
		assert.Equal(t, "CARRIER_5XX", order.Metadata.Timeline[0].Error)
	})
}

func TestGormOrderRepository_FindItems(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()
	orderID := seedOrder(t, db, nil)

	base := time.Now()
	for i, name := range []string{"Widget", "Gadget"} {
		require.NoError(t, db.Create(&models.OrderItemModel{
			ID:        uuid.New(),
			OrderID:   orderID,
			ProductID: uuid.New(),
			Name:      name,
			SKU:       "SKU-" + name,
			Quantity:  i + 1,
			UnitPrice: decimal.NewFromInt(int64(100 * (i + 1))),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}).Error)
	}

	items, err := repo.FindItems(ctx, orderID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Widget", items[0].Name)
	assert.Equal(t, "Gadget", items[1].Name)

	items, err = repo.FindItems(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestGormOrderRepository_FindAddressByID(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	id := uuid.New()
	require.NoError(t, db.Create(&models.AddressModel{
		ID:           id,
		FullName:     "Asha Rao",
		Phone:        "9876543210",
		AddressLine1: "12 MG Road",
		City:         "Bengaluru",
		State:        "Karnataka",
		Pincode:      "560001",
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}).Error)

	addr, err := repo.FindAddressByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "560001", addr.Pincode)

	_, err = repo.FindAddressByID(ctx, uuid.New())
	assert.ErrorIs(t, err, fulfillment.ErrAddressNotFound)
}

func TestGormOrderRepository_MarkBooked(t *testing.T) {
	ctx := context.Background()

	t.Run("first booking wins", func(t *testing.T) {
		db := setupOrderTestDB(t)
		repo := NewGormOrderRepository(db)
		id := seedOrder(t, db, nil)

		order, err := repo.FindByID(ctx, id)
		require.NoError(t, err)
		order.MarkBooked("99123", "AWB1", "Delhivery", decimal.NewFromInt(62), time.Now())

		won, err := repo.MarkBooked(ctx, order)
		require.NoError(t, err)
		assert.True(t, won)

		stored, err := repo.FindByID(ctx, id)
		require.NoError(t, err)
		assert.True(t, stored.IsBooked())
		require.NotNil(t, stored.CarrierShipmentID)
		assert.Equal(t, "99123", *stored.CarrierShipmentID)
		assert.True(t, stored.InternalShippingCost.Equal(decimal.NewFromInt(62)))
		require.Len(t, stored.Metadata.Timeline, 1)
	})

	t.Run("second booking loses the race", func(t *testing.T) {
		db := setupOrderTestDB(t)
		repo := NewGormOrderRepository(db)
		id := seedOrder(t, db, nil)

		first, err := repo.FindByID(ctx, id)
		require.NoError(t, err)
		first.MarkBooked("99123", "AWB1", "Delhivery", decimal.NewFromInt(62), time.Now())
		won, err := repo.MarkBooked(ctx, first)
		require.NoError(t, err)
		require.True(t, won)

		// A concurrent attempt that also reached booking must not overwrite
		second, err := repo.FindByID(ctx, id)
		require.NoError(t, err)
		second.MarkBooked("99999", "AWB2", "BlueDart", decimal.NewFromInt(80), time.Now())

		won, err = repo.MarkBooked(ctx, second)
		require.NoError(t, err)
		assert.False(t, won)

		stored, err := repo.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "99123", *stored.CarrierShipmentID)
	})

	t.Run("missing order", func(t *testing.T) {
		db := setupOrderTestDB(t)
		repo := NewGormOrderRepository(db)

		order := &fulfillment.Order{ID: uuid.New()}
		order.MarkBooked("99123", "AWB1", "Delhivery", decimal.Zero, time.Now())
		_, err := repo.MarkBooked(ctx, order)
		assert.ErrorIs(t, err, fulfillment.ErrOrderNotFound)
	})
}

func TestGormOrderRepository_MarkFailed(t *testing.T) {
	ctx := context.Background()

	t.Run("persists reason and timeline", func(t *testing.T) {
		db := setupOrderTestDB(t)
		repo := NewGormOrderRepository(db)
		id := seedOrder(t, db, nil)

		order, err := repo.FindByID(ctx, id)
		require.NoError(t, err)
		order.MarkFailed("CARRIER_5XX", time.Now())
		require.NoError(t, repo.MarkFailed(ctx, order))

		stored, err := repo.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, fulfillment.ShipmentStatusFailed, stored.ShipmentStatus)
		assert.Equal(t, "CARRIER_5XX", stored.FailureReason)
		assert.True(t, stored.CanAttemptShipment())
		require.Len(t, stored.Metadata.Timeline, 1)
	})

	t.Run("never downgrades a booked order", func(t *testing.T) {
		db := setupOrderTestDB(t)
		repo := NewGormOrderRepository(db)
		id := seedOrder(t, db, nil)

		booked, err := repo.FindByID(ctx, id)
		require.NoError(t, err)
		booked.MarkBooked("99123", "AWB1", "Delhivery", decimal.Zero, time.Now())
		won, err := repo.MarkBooked(ctx, booked)
		require.NoError(t, err)
		require.True(t, won)

		late, err := repo.FindByID(ctx, id)
		require.NoError(t, err)
		late.MarkFailed("CARRIER_5XX", time.Now())
		require.NoError(t, repo.MarkFailed(ctx, late))

		stored, err := repo.FindByID(ctx, id)
		require.NoError(t, err)
		assert.True(t, stored.IsBooked())
		assert.Empty(t, stored.FailureReason)
	})
}

func TestGormAuditLogger(t *testing.T) {
	db := setupOrderTestDB(t)
	auditor := NewGormAuditLogger(db)
	ctx := context.Background()
	orderID := uuid.New()

	require.NoError(t, auditor.Record(ctx, fulfillment.AuditEvent{
		OrderID: orderID,
		Type:    fulfillment.AuditShipmentFailed,
		Details: map[string]any{"reason": "CARRIER_5XX", "http_status": 503},
	}))
	require.NoError(t, auditor.Record(ctx, fulfillment.AuditEvent{
		OrderID: orderID,
		Type:    fulfillment.AuditShipmentBooked,
		Details: map[string]any{"shipment_id": "99123"},
	}))

	rows, err := auditor.FindByOrder(ctx, orderID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, orderID, row.OrderID)
	}
}
