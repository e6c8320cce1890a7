// Package payments provides the instrument validators, display
// formatters, and fee calculator behind the wallet and checkout
// surfaces. Everything here is pure: validators degrade to false on
// malformed input and never panic.
package payments

import (
	"strings"
)

// Chain identifies a crypto network for address validation.
type Chain string

const (
	ChainEthereum Chain = "ethereum"
)

// ValidateCardNumber reports whether the input is a plausible card
// number: 13-19 digits passing the Luhn mod-10 checksum. Spaces and
// hyphens are stripped before checking.
func ValidateCardNumber(input string) bool {
	number := stripSeparators(input)
	if len(number) < 13 || len(number) > 19 {
		return false
	}

	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		c := number[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// ValidateBankAccountNumber reports whether the input looks like a
// bank account number: all digits, at least 8 of them.
func ValidateBankAccountNumber(input string) bool {
	number := stripSeparators(input)
	if len(number) < 8 {
		return false
	}
	for i := 0; i < len(number); i++ {
		if number[i] < '0' || number[i] > '9' {
			return false
		}
	}
	return true
}

// ValidateCryptoAddress reports whether the input is a well-formed
// address for the given chain. Only ethereum is supported; unsupported
// chains return false. EIP-55 checksum verification is out of scope.
func ValidateCryptoAddress(input string, chain Chain) bool {
	switch chain {
	case ChainEthereum:
		if len(input) != 42 || !strings.HasPrefix(input, "0x") {
			return false
		}
		for i := 2; i < len(input); i++ {
			c := input[i]
			if !isHexDigit(c) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// ValidateIBAN reports whether the input passes the ISO 7064 mod-97
// IBAN checksum. The input is normalized (spaces stripped, uppercased),
// shape-checked (2 letters, 2 digits, up to 30 alphanumerics), the
// first four characters are rotated to the end, letters map to numbers
// (A=10..Z=35), and the resulting numeral reduced mod 97 must equal 1.
func ValidateIBAN(input string) bool {
	iban := strings.ToUpper(strings.ReplaceAll(input, " ", ""))

	if len(iban) < 5 || len(iban) > 34 {
		return false
	}
	if !isUpperLetter(iban[0]) || !isUpperLetter(iban[1]) {
		return false
	}
	if !isDigit(iban[2]) || !isDigit(iban[3]) {
		return false
	}
	for i := 4; i < len(iban); i++ {
		c := iban[i]
		if !isUpperLetter(c) && !isDigit(c) {
			return false
		}
	}

	rearranged := iban[4:] + iban[:4]

	// Iterative mod-97 over the expanded numeral, so arbitrary IBAN
	// lengths fit without big-integer arithmetic.
	remainder := 0
	for i := 0; i < len(rearranged); i++ {
		c := rearranged[i]
		if isDigit(c) {
			remainder = (remainder*10 + int(c-'0')) % 97
		} else {
			v := int(c-'A') + 10
			remainder = (remainder*100 + v) % 97
		}
	}

	return remainder == 1
}

func stripSeparators(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == ' ' || c == '-' {
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isUpperLetter(c byte) bool {
	return c >= 'A' && c <= 'Z'
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
