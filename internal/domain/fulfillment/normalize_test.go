package fulfillment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitFullName(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantFirst string
		wantLast  string
	}{
		{"two words", "Priya Sharma", "Priya", "Sharma"},
		{"three words", "Anil Kumar Gupta", "Anil", "Kumar Gupta"},
		{"single word gets placeholder", "Madonna", "Madonna", "."},
		{"surrounding whitespace", "  Ravi   Verma  ", "Ravi", "Verma"},
		{"empty", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, last := SplitFullName(tt.input)
			assert.Equal(t, tt.wantFirst, first)
			assert.Equal(t, tt.wantLast, last)
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"country code and spaces", "+91 98765 43210", "9876543210"},
		{"bare ten digits", "9876543210", "9876543210"},
		{"dashes", "98765-43210", "9876543210"},
		{"leading zero trunk prefix", "09876543210", "9876543210"},
		{"too short", "12345", ""},
		{"empty", "", ""},
		{"letters only", "call me", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePhone(tt.input))
		})
	}
}

func TestNormalizePincode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bare six digits", "560001", "560001"},
		{"internal space", "560 001", "560001"},
		{"five digits", "56001", ""},
		{"seven digits", "5600011", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePincode(tt.input))
		})
	}
}

func TestChargeableWeight(t *testing.T) {
	t.Run("volumetric wins", func(t *testing.T) {
		// 40*30*10/5000 = 2.4 > 1.5
		assert.InDelta(t, 2.4, ChargeableWeight(1.5, 40, 30, 10), 1e-9)
	})

	t.Run("physical wins", func(t *testing.T) {
		// 10*10*10/5000 = 0.2 < 5.0
		assert.InDelta(t, 5.0, ChargeableWeight(5.0, 10, 10, 10), 1e-9)
	})

	t.Run("equal weights", func(t *testing.T) {
		assert.InDelta(t, 1.0, ChargeableWeight(1.0, 10, 50, 10), 1e-9)
	})
}
