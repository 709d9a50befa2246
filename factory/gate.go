package factory

import (
	"github.com/ruteri/issuance-factory/interfaces"
)

// AuthorizePayment checks a payment notification against the config and returns
// the linked registry the item must be created in. Checks run in a fixed order
// and the first violation is reported:
//
//  1. the payment medium is the configured currency
//  2. the registry is linked
//  3. the supply cap has not been reached
//  4. the amount equals the unit price exactly
func AuthorizePayment(notification interfaces.PaymentNotification, cfg *interfaces.Config) (interfaces.Address, error) {
	if !notification.Medium.Equal(cfg.PaymentCurrency) {
		return interfaces.Address{}, ErrUnauthorizedPaymentMedium
	}

	registry, linked := cfg.Registry.Address()
	if !linked {
		return interfaces.Address{}, ErrRegistryNotLinked
	}

	if cfg.NextItemID >= cfg.MaxItems {
		return interfaces.Address{}, ErrSupplyExhausted
	}

	if !notification.Amount.Equal(cfg.UnitPrice) {
		return interfaces.Address{}, ErrWrongPaymentAmount
	}

	return registry, nil
}
