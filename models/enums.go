package models

import "errors"

type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "Cash"
	PaymentMethodCard   PaymentMethod = "Card"
	PaymentMethodMobile PaymentMethod = "Mobile"
	PaymentMethodCredit PaymentMethod = "Credit"
)

func (m PaymentMethod) Validate() error {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodMobile, PaymentMethodCredit:
		return nil
	}
	return errors.New("invalid payment method")
}

// Stock level classification thresholds used by store stats. Levels are judged
// on the allocation's own quantity field, not derived remaining; see
// GetStoreStats before changing these.
const (
	lowStockCeiling = 10
)
