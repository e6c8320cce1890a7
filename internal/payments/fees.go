package payments

import (
	"errors"
	"fmt"

	"github.com/dev-analyshd/main-albash-sub001/internal/common/money"
)

// Method identifies how a payment is collected.
type Method string

const (
	MethodCard        Method = "card"
	MethodBank        Method = "bank"
	MethodCrypto      Method = "crypto"
	MethodPaystack    Method = "paystack"
	MethodFlutterwave Method = "flutterwave"
)

// ParseMethod validates a wire value into a Method.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodCard, MethodBank, MethodCrypto, MethodPaystack, MethodFlutterwave:
		return Method(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMethod, s)
	}
}

// Fee calculation errors. Unknown methods fail loudly rather than
// silently quoting a zero fee.
var (
	ErrUnknownMethod = errors.New("unknown payment method")
	ErrInvalidAmount = errors.New("amount must be positive")
)

// FeeSchedule holds the per-method fee rates. Rates are basis points
// (10000 = 100%); fixed components are minor units of the charged
// currency. Defaults match the production schedule; override per
// environment through the environment.
type FeeSchedule struct {
	CardDomesticBPS        int64 `envconfig:"FEE_CARD_NGN_BPS" default:"150"`
	CardDomesticFixedMinor int64 `envconfig:"FEE_CARD_NGN_FIXED_MINOR" default:"10000"`
	CardIntlBPS            int64 `envconfig:"FEE_CARD_INTL_BPS" default:"290"`
	CardIntlFixedMinor     int64 `envconfig:"FEE_CARD_INTL_FIXED_MINOR" default:"30"`
	FlutterwaveDomesticBPS int64 `envconfig:"FEE_FLUTTERWAVE_NGN_BPS" default:"140"`
	FlutterwaveIntlBPS     int64 `envconfig:"FEE_FLUTTERWAVE_INTL_BPS" default:"380"`
}

// DefaultFeeSchedule returns the production schedule.
func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{
		CardDomesticBPS:        150,
		CardDomesticFixedMinor: 10000,
		CardIntlBPS:            290,
		CardIntlFixedMinor:     30,
		FlutterwaveDomesticBPS: 140,
		FlutterwaveIntlBPS:     380,
	}
}

// Quote is the fee breakdown for a prospective charge. It is a value
// type recomputed on demand, never persisted.
type Quote struct {
	Amount money.Money `json:"amount"`
	Fee    money.Money `json:"fee"`
	Total  money.Money `json:"total"`
	Method Method      `json:"method"`
}

// Calculator computes fee quotes from an explicit schedule. It is
// stateless beyond its configuration and safe for concurrent use.
type Calculator struct {
	schedule FeeSchedule
}

// NewCalculator creates a Calculator from a schedule.
func NewCalculator(schedule FeeSchedule) *Calculator {
	return &Calculator{schedule: schedule}
}

// Calculate returns the fee and total for charging amount via method.
// Percentage components round half-away-from-zero on the minor-unit
// value (the scheme processors themselves use); the total is the exact
// minor-unit sum of amount and rounded fee.
//
// Card and Paystack collections share a schedule: domestic (NGN)
// charges pay a lower rate plus a flat naira component, everything
// else pays the international rate plus a 30-minor-unit component.
// Bank transfers carry no platform fee. Crypto carries no platform fee
// either; network gas is paid by the sender outside the platform.
func (c *Calculator) Calculate(amount money.Money, method Method) (Quote, error) {
	if !amount.IsPositive() {
		return Quote{}, fmt.Errorf("%w: got %d minor units", ErrInvalidAmount, amount.AmountMinor)
	}

	domestic := amount.Currency == money.NGN

	var fee money.Money
	switch method {
	case MethodCard, MethodPaystack:
		if domestic {
			fee = amount.Percentage(c.schedule.CardDomesticBPS)
			fee = fee.MustAdd(money.New(c.schedule.CardDomesticFixedMinor, amount.Currency))
		} else {
			fee = amount.Percentage(c.schedule.CardIntlBPS)
			fee = fee.MustAdd(money.New(c.schedule.CardIntlFixedMinor, amount.Currency))
		}
	case MethodFlutterwave:
		if domestic {
			fee = amount.Percentage(c.schedule.FlutterwaveDomesticBPS)
		} else {
			fee = amount.Percentage(c.schedule.FlutterwaveIntlBPS)
		}
	case MethodBank, MethodCrypto:
		fee = money.Zero(amount.Currency)
	default:
		return Quote{}, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}

	return Quote{
		Amount: amount,
		Fee:    fee,
		Total:  amount.MustAdd(fee),
		Method: method,
	}, nil
}
