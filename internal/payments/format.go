package payments

import (
	"strings"

	"github.com/dev-analyshd/main-albash-sub001/internal/common/money"
)

// Bullet used when masking stored instrument numbers.
const maskRune = '•'

// CardType is the display classification of a card number.
type CardType string

const (
	CardVisa       CardType = "Visa"
	CardMastercard CardType = "Mastercard"
	CardAmex       CardType = "Amex"
	CardDiscover   CardType = "Discover"
	CardJCB        CardType = "JCB"
	CardUnknown    CardType = "Unknown"
)

// FormatCardNumber groups the digits of a card number into blocks of
// four separated by spaces. Non-digit characters are dropped, so
// stripping spaces from the result reproduces the digit string.
func FormatCardNumber(input string) string {
	digits := digitsOnly(input)

	var b strings.Builder
	for i := 0; i < len(digits); i++ {
		if i > 0 && i%4 == 0 {
			b.WriteByte(' ')
		}
		b.WriteByte(digits[i])
	}
	return b.String()
}

// MaskCardNumber replaces all but the last four digits with bullets,
// grouped like a formatted card number: "•••• •••• •••• 1111".
// Inputs shorter than four characters are returned unchanged.
func MaskCardNumber(input string) string {
	digits := digitsOnly(input)
	if len(digits) < 4 {
		return input
	}

	masked := make([]rune, 0, len(digits))
	for i := 0; i < len(digits)-4; i++ {
		masked = append(masked, maskRune)
	}
	for i := len(digits) - 4; i < len(digits); i++ {
		masked = append(masked, rune(digits[i]))
	}

	var b strings.Builder
	for i, r := range masked {
		if i > 0 && i%4 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// MaskBankAccount replaces all but the last four characters with
// bullets. Inputs shorter than four characters are returned unchanged.
func MaskBankAccount(input string) string {
	if len(input) < 4 {
		return input
	}
	return strings.Repeat(string(maskRune), len(input)-4) + input[len(input)-4:]
}

// DetectCardType classifies a card number by its issuer prefix.
// It does not verify the checksum; pair with ValidateCardNumber.
func DetectCardType(input string) CardType {
	digits := digitsOnly(input)

	switch {
	case hasPrefix(digits, "4"):
		return CardVisa
	case inPrefixRange(digits, 2, 51, 55), inPrefixRange(digits, 4, 2221, 2720):
		return CardMastercard
	case hasPrefix(digits, "34"), hasPrefix(digits, "37"):
		return CardAmex
	case hasPrefix(digits, "6011"), hasPrefix(digits, "65"), inPrefixRange(digits, 3, 644, 649):
		return CardDiscover
	case inPrefixRange(digits, 4, 3528, 3589):
		return CardJCB
	default:
		return CardUnknown
	}
}

// FormatCurrency renders a major-unit amount as a currency string with
// symbol and thousands separators for the given ISO code, e.g.
// FormatCurrency(10250, "NGN") == "₦10,250.00". Unknown codes fall
// back to the money package's minor-unit rendering.
func FormatCurrency(amountMajor float64, currency string) string {
	return money.NewFromMajor(amountMajor, money.Currency(currency)).Format()
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if isDigit(s[i]) {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func hasPrefix(digits, prefix string) bool {
	return strings.HasPrefix(digits, prefix)
}

// inPrefixRange checks whether the first width digits form a number in
// [lo, hi]. Shorter inputs never match.
func inPrefixRange(digits string, width, lo, hi int) bool {
	if len(digits) < width {
		return false
	}
	n := 0
	for i := 0; i < width; i++ {
		if !isDigit(digits[i]) {
			return false
		}
		n = n*10 + int(digits[i]-'0')
	}
	return n >= lo && n <= hi
}
