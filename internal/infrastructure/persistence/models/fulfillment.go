package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shopkart/fulfillment/internal/domain/fulfillment"
)

// OrderModel is the persistence mapping of an order. The checkout service
// owns most of these columns; this service reads them and writes only the
// shipment fields and the metadata shipping sub-objects.
type OrderModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key"`
	OrderNumber   string    `gorm:"size:64;uniqueIndex;not null"`
	OrderStatus   string    `gorm:"size:32;not null;index"`
	PaymentStatus string    `gorm:"size:32;not null"`

	ShippingName      string `gorm:"size:255"`
	ShippingPhone     string `gorm:"size:32"`
	ShippingLine1     string `gorm:"size:255"`
	ShippingLine2     string `gorm:"size:255"`
	ShippingCity      string `gorm:"size:128"`
	ShippingState     string `gorm:"size:128"`
	ShippingPincode   string `gorm:"size:16"`
	ShippingCountry   string `gorm:"size:64"`
	ShippingAddressID *uuid.UUID `gorm:"type:uuid"`
	BillingAddressID  *uuid.UUID `gorm:"type:uuid"`

	ShipmentStatus       string          `gorm:"size:16;index"`
	CarrierShipmentID    *string         `gorm:"size:64"`
	CourierName          *string         `gorm:"size:128"`
	InternalShippingCost decimal.Decimal `gorm:"type:decimal(12,2)"`
	FailureReason        string          `gorm:"type:text"`

	Metadata fulfillment.Metadata `gorm:"type:jsonb;serializer:json"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for OrderModel
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts OrderModel to a domain Order
func (m *OrderModel) ToDomain() *fulfillment.Order {
	return &fulfillment.Order{
		ID:                m.ID,
		OrderNumber:       m.OrderNumber,
		OrderStatus:       m.OrderStatus,
		PaymentStatus:     m.PaymentStatus,
		ShippingName:      m.ShippingName,
		ShippingPhone:     m.ShippingPhone,
		ShippingLine1:     m.ShippingLine1,
		ShippingLine2:     m.ShippingLine2,
		ShippingCity:      m.ShippingCity,
		ShippingState:     m.ShippingState,
		ShippingPincode:   m.ShippingPincode,
		ShippingCountry:   m.ShippingCountry,
		ShippingAddressID: m.ShippingAddressID,
		BillingAddressID:  m.BillingAddressID,

		ShipmentStatus:       fulfillment.ShipmentStatus(m.ShipmentStatus),
		CarrierShipmentID:    m.CarrierShipmentID,
		CourierName:          m.CourierName,
		InternalShippingCost: m.InternalShippingCost,
		FailureReason:        m.FailureReason,
		Metadata:             m.Metadata,

		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// FromDomain populates OrderModel from a domain Order
func (m *OrderModel) FromDomain(o *fulfillment.Order) {
	m.ID = o.ID
	m.OrderNumber = o.OrderNumber
	m.OrderStatus = o.OrderStatus
	m.PaymentStatus = o.PaymentStatus
	m.ShippingName = o.ShippingName
	m.ShippingPhone = o.ShippingPhone
	m.ShippingLine1 = o.ShippingLine1
	m.ShippingLine2 = o.ShippingLine2
	m.ShippingCity = o.ShippingCity
	m.ShippingState = o.ShippingState
	m.ShippingPincode = o.ShippingPincode
	m.ShippingCountry = o.ShippingCountry
	m.ShippingAddressID = o.ShippingAddressID
	m.BillingAddressID = o.BillingAddressID
	m.ShipmentStatus = string(o.ShipmentStatus)
	m.CarrierShipmentID = o.CarrierShipmentID
	m.CourierName = o.CourierName
	m.InternalShippingCost = o.InternalShippingCost
	m.FailureReason = o.FailureReason
	m.Metadata = o.Metadata
	m.CreatedAt = o.CreatedAt
	m.UpdatedAt = o.UpdatedAt
}

// OrderItemModel is the persistence mapping of an order line item
type OrderItemModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null"`
	Name      string          `gorm:"size:255;not null"`
	SKU       string          `gorm:"size:64"`
	Quantity  int             `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CreatedAt time.Time       `gorm:"not null"`
}

// TableName returns the table name for OrderItemModel
func (OrderItemModel) TableName() string {
	return "order_items"
}

// ToDomain converts OrderItemModel to a domain OrderItem
func (m *OrderItemModel) ToDomain() fulfillment.OrderItem {
	return fulfillment.OrderItem{
		ID:        m.ID,
		OrderID:   m.OrderID,
		ProductID: m.ProductID,
		Name:      m.Name,
		SKU:       m.SKU,
		Quantity:  m.Quantity,
		UnitPrice: m.UnitPrice,
	}
}

// AddressModel is the persistence mapping of a stored customer address
type AddressModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key"`
	FullName     string    `gorm:"size:255"`
	Phone        string    `gorm:"size:32"`
	AddressLine1 string    `gorm:"size:255"`
	AddressLine2 string    `gorm:"size:255"`
	City         string    `gorm:"size:128"`
	State        string    `gorm:"size:128"`
	Pincode      string    `gorm:"size:16"`
	Country      string    `gorm:"size:64"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// TableName returns the table name for AddressModel
func (AddressModel) TableName() string {
	return "addresses"
}

// ToDomain converts AddressModel to a domain Address
func (m *AddressModel) ToDomain() fulfillment.Address {
	return fulfillment.Address{
		FullName:     m.FullName,
		Phone:        m.Phone,
		AddressLine1: m.AddressLine1,
		AddressLine2: m.AddressLine2,
		City:         m.City,
		State:        m.State,
		Pincode:      m.Pincode,
		Country:      m.Country,
	}
}

// ShipmentAuditLogModel is one structured audit record written during the
// fulfillment flow.
type ShipmentAuditLogModel struct {
	ID        uuid.UUID      `gorm:"type:uuid;primary_key"`
	OrderID   uuid.UUID      `gorm:"type:uuid;not null;index"`
	EventType string         `gorm:"size:64;not null;index"`
	Details   map[string]any `gorm:"type:jsonb;serializer:json"`
	CreatedAt time.Time      `gorm:"not null"`
}

// TableName returns the table name for ShipmentAuditLogModel
func (ShipmentAuditLogModel) TableName() string {
	return "shipment_audit_logs"
}
