package fulfillment

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrder_IsPaid(t *testing.T) {
	tests := []struct {
		name          string
		orderStatus   string
		paymentStatus string
		want          bool
	}{
		{"both paid", "paid", "paid", true},
		{"order pending", "pending", "paid", false},
		{"payment pending", "paid", "pending", false},
		{"case insensitive", "Paid", "PAID", true},
		{"both empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := &Order{OrderStatus: tt.orderStatus, PaymentStatus: tt.paymentStatus}
			assert.Equal(t, tt.want, order.IsPaid())
		})
	}
}

func TestOrder_CanAttemptShipment(t *testing.T) {
	assert.True(t, (&Order{ShipmentStatus: ShipmentStatusNone}).CanAttemptShipment())
	assert.True(t, (&Order{ShipmentStatus: ShipmentStatusFailed}).CanAttemptShipment())
	assert.False(t, (&Order{ShipmentStatus: ShipmentStatusPending}).CanAttemptShipment())
	assert.False(t, (&Order{ShipmentStatus: ShipmentStatusBooked}).CanAttemptShipment())
}

func TestOrder_IsBooked(t *testing.T) {
	shipmentID := "SHP-991"

	t.Run("booked with shipment id", func(t *testing.T) {
		order := &Order{ShipmentStatus: ShipmentStatusBooked, CarrierShipmentID: &shipmentID}
		assert.True(t, order.IsBooked())
	})

	t.Run("booked status without id is not terminal", func(t *testing.T) {
		order := &Order{ShipmentStatus: ShipmentStatusBooked}
		assert.False(t, order.IsBooked())
	})

	t.Run("failed is not booked", func(t *testing.T) {
		order := &Order{ShipmentStatus: ShipmentStatusFailed, CarrierShipmentID: &shipmentID}
		assert.False(t, order.IsBooked())
	})
}

func TestOrder_MarkBooked(t *testing.T) {
	order := testOrder()
	now := time.Now()

	order.MarkBooked("SHP-991", "AWB123456", "Delhivery", decimal.NewFromFloat(62.5), now)

	assert.Equal(t, ShipmentStatusBooked, order.ShipmentStatus)
	require.NotNil(t, order.CarrierShipmentID)
	assert.Equal(t, "SHP-991", *order.CarrierShipmentID)
	require.NotNil(t, order.CourierName)
	assert.Equal(t, "Delhivery", *order.CourierName)
	assert.True(t, order.InternalShippingCost.Equal(decimal.NewFromFloat(62.5)))
	assert.Empty(t, order.FailureReason)

	require.NotNil(t, order.Metadata.Shipping)
	assert.Equal(t, "AWB123456", order.Metadata.Shipping.AWBCode)

	require.Len(t, order.Metadata.Timeline, 1)
	event := order.Metadata.Timeline[0]
	assert.Equal(t, ShipmentStatusBooked, event.Status)
	assert.Equal(t, "AWB123456", event.TrackingCode)
	assert.Equal(t, "Delhivery", event.Courier)
}

func TestOrder_MarkFailed(t *testing.T) {
	order := testOrder()
	now := time.Now()

	order.MarkFailed("MISSING_SHIPPING_ADDRESS", now)
	order.MarkFailed("INVALID_ADDRESS:phone", now.Add(time.Minute))

	assert.Equal(t, ShipmentStatusFailed, order.ShipmentStatus)
	assert.Equal(t, "INVALID_ADDRESS:phone", order.FailureReason)

	// timeline is append-only
	require.Len(t, order.Metadata.Timeline, 2)
	assert.Equal(t, "MISSING_SHIPPING_ADDRESS", order.Metadata.Timeline[0].Error)
	assert.Equal(t, "INVALID_ADDRESS:phone", order.Metadata.Timeline[1].Error)
}

func TestOrder_DenormalizedShippingAddress(t *testing.T) {
	t.Run("complete fields resolve", func(t *testing.T) {
		order := &Order{
			ShippingName:    "Priya Sharma",
			ShippingPhone:   "9876543210",
			ShippingLine1:   "42 MG Road",
			ShippingCity:    "Bengaluru",
			ShippingState:   "Karnataka",
			ShippingPincode: "560001",
		}
		addr, ok := order.DenormalizedShippingAddress()
		require.True(t, ok)
		assert.Equal(t, "Priya Sharma", addr.FullName)
	})

	t.Run("missing city falls through", func(t *testing.T) {
		order := &Order{
			ShippingName:    "Priya Sharma",
			ShippingPhone:   "9876543210",
			ShippingLine1:   "42 MG Road",
			ShippingPincode: "560001",
		}
		_, ok := order.DenormalizedShippingAddress()
		assert.False(t, ok)
	})
}

func TestAddress_Validate(t *testing.T) {
	t.Run("valid address", func(t *testing.T) {
		assert.NoError(t, testAddress().Validate())
	})

	tests := []struct {
		name      string
		mutate    func(*Address)
		wantField string
	}{
		{"empty name", func(a *Address) { a.FullName = " " }, "name"},
		{"empty line1", func(a *Address) { a.AddressLine1 = "" }, "address_line1"},
		{"short phone", func(a *Address) { a.Phone = "12345" }, "phone"},
		{"bad pincode", func(a *Address) { a.Pincode = "ABC" }, "pincode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr := testAddress()
			tt.mutate(&addr)
			err := addr.Validate()
			require.Error(t, err)
			var invalidErr *InvalidAddressError
			require.ErrorAs(t, err, &invalidErr)
			assert.Equal(t, tt.wantField, invalidErr.Field)
			assert.Equal(t, "INVALID_ADDRESS:"+tt.wantField, invalidErr.Reason())
		})
	}
}
