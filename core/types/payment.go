package types

import (
	"fmt"
	"strings"
)

// PaymentType identifies the currency a buyer tenders for a purchase.
type PaymentType uint8

const (
	PaymentNative PaymentType = iota
	PaymentTokenA
	PaymentTokenB
)

// NumPaymentTypes is the length of an accepted-payment-type vector.
const NumPaymentTypes = 3

// Valid reports whether the payment type is one of the supported currencies.
func (p PaymentType) Valid() bool {
	switch p {
	case PaymentNative, PaymentTokenA, PaymentTokenB:
		return true
	default:
		return false
	}
}

func (p PaymentType) String() string {
	switch p {
	case PaymentNative:
		return "native"
	case PaymentTokenA:
		return "tokenA"
	case PaymentTokenB:
		return "tokenB"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(p))
	}
}

// ParsePaymentType accepts the canonical names (case-insensitive) or the
// numeric index.
func ParsePaymentType(raw string) (PaymentType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "native", "0":
		return PaymentNative, nil
	case "tokena", "token_a", "1":
		return PaymentTokenA, nil
	case "tokenb", "token_b", "2":
		return PaymentTokenB, nil
	default:
		return 0, fmt.Errorf("unsupported payment type: %s", raw)
	}
}
