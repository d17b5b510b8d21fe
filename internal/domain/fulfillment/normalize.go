package fulfillment

import (
	"strings"
	"unicode"
)

// placeholderLastName is used when a customer supplied a single-word name.
// The carrier rejects payloads without a last name.
const placeholderLastName = "."

// volumetricDivisor is the industry-standard divisor for converting
// cubic centimeters to kg when computing volumetric weight.
const volumetricDivisor = 5000.0

// SplitFullName splits a free-text full name into first and last tokens.
// Single-word names get a placeholder last name.
func SplitFullName(fullName string) (first, last string) {
	fields := strings.Fields(strings.TrimSpace(fullName))
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return fields[0], placeholderLastName
	default:
		return fields[0], strings.Join(fields[1:], " ")
	}
}

// NormalizePhone reduces a phone number to a bare 10-digit string. Country
// codes and formatting are stripped; the last 10 digits win. Returns ""
// when fewer than 10 digits are present.
func NormalizePhone(phone string) string {
	digits := keepDigits(phone)
	if len(digits) < 10 {
		return ""
	}
	return digits[len(digits)-10:]
}

// NormalizePincode reduces a pincode to a bare 6-digit string. Returns ""
// when the input does not contain exactly 6 digits.
func NormalizePincode(pincode string) string {
	digits := keepDigits(pincode)
	if len(digits) != 6 {
		return ""
	}
	return digits
}

// ChargeableWeight returns the greater of the physical weight and the
// volumetric weight (length * breadth * height / 5000), all in kg/cm.
func ChargeableWeight(weightKg, lengthCm, breadthCm, heightCm float64) float64 {
	volumetric := (lengthCm * breadthCm * heightCm) / volumetricDivisor
	if volumetric > weightKg {
		return volumetric
	}
	return weightKg
}

func keepDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
