package payments

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatCardNumber(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"sixteen digits", "4111111111111111", "4111 1111 1111 1111"},
		{"already spaced", "4111 1111 1111 1111", "4111 1111 1111 1111"},
		{"hyphenated", "4111-1111-1111-1111", "4111 1111 1111 1111"},
		{"amex fifteen digits", "378282246310005", "3782 8224 6310 005"},
		{"short fragment", "41111", "4111 1"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatCardNumber(tt.input)
			assert.Equal(t, tt.want, got)

			// Stripping the grouping must reproduce the digits.
			assert.Equal(t, digitsOnly(tt.input), strings.ReplaceAll(got, " ", ""))
		})
	}
}

func TestMaskCardNumber(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"sixteen digits", "4111111111111111", "•••• •••• •••• 1111"},
		{"spaced input", "4111 1111 1111 1111", "•••• •••• •••• 1111"},
		{"amex fifteen digits", "378282246310005", "•••• •••• •••0 005"},
		{"exactly four", "1111", "1111"},
		{"too short passes through", "411", "411"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MaskCardNumber(tt.input))
		})
	}
}

func TestMaskBankAccount(t *testing.T) {
	assert.Equal(t, "••••••6789", MaskBankAccount("0123456789"))
	assert.Equal(t, "••••5678", MaskBankAccount("12345678"))
	assert.Equal(t, "123", MaskBankAccount("123"))
	assert.Equal(t, "", MaskBankAccount(""))
}

func TestDetectCardType(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  CardType
	}{
		{"visa", "4111111111111111", CardVisa},
		{"mastercard 55", "5555555555554444", CardMastercard},
		{"mastercard 2-series", "2223000048400011", CardMastercard},
		{"amex 34", "340000000000009", CardAmex},
		{"amex 37", "378282246310005", CardAmex},
		{"discover 6011", "6011111111111117", CardDiscover},
		{"discover 65", "6500000000000002", CardDiscover},
		{"discover 644", "6445644564456445", CardDiscover},
		{"jcb", "3530111333300000", CardJCB},
		{"maestro not classified", "6759649826438453", CardUnknown},
		{"diners not classified", "30569309025904", CardUnknown},
		{"empty", "", CardUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectCardType(tt.input))
		})
	}
}

func TestFormatCurrency(t *testing.T) {
	tests := []struct {
		name     string
		amount   float64
		currency string
		want     string
	}{
		{"naira with grouping", 10250, "NGN", "₦10,250.00"},
		{"naira fee", 250, "NGN", "₦250.00"},
		{"dollars fractional", 3.8, "USD", "$3.80"},
		{"dollars large", 1234567.89, "USD", "$1,234,567.89"},
		{"euro", 99, "EUR", "€99.00"},
		{"pounds", 0.5, "GBP", "£0.50"},
		{"yen no minor units", 1234567, "JPY", "¥1,234,567"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatCurrency(tt.amount, tt.currency))
		})
	}
}
