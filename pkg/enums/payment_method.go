package enums

import "fmt"

// PaymentMethod is the payment rail used to settle a transaction.
type PaymentMethod string

const (
	PaymentMethodMTNMoMo     PaymentMethod = "mtn_momo"
	PaymentMethodOrangeMoney PaymentMethod = "orange_money"
	PaymentMethodCard        PaymentMethod = "card"
	PaymentMethodExternal    PaymentMethod = "external"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodMTNMoMo,
	PaymentMethodOrangeMoney,
	PaymentMethodCard,
	PaymentMethodExternal,
}

// String implements fmt.Stringer.
func (m PaymentMethod) String() string {
	return string(m)
}

// IsValid reports whether the value is a known PaymentMethod.
func (m PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == m {
			return true
		}
	}
	return false
}

// RequiresPolling reports whether the rail settles asynchronously and needs a
// status poll after initiation. Card rails resolve via redirect + webhook.
func (m PaymentMethod) RequiresPolling() bool {
	return m == PaymentMethodMTNMoMo || m == PaymentMethodOrangeMoney
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
