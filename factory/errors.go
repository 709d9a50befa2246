package factory

import "errors"

var (
	// ErrInvalidUnitPrice is returned by Initialize when the unit price is zero.
	ErrInvalidUnitPrice = errors.New("invalid unit price: must be greater than zero")

	// ErrInvalidMaxItems is returned by Initialize when the supply cap is zero.
	ErrInvalidMaxItems = errors.New("invalid max items: must be greater than zero")

	// ErrInvalidItemExtension is returned by Initialize when the item extension is not JSON.
	ErrInvalidItemExtension = errors.New("invalid item extension: not valid JSON")

	// ErrAlreadyInitialized is returned by Initialize when a config already exists.
	ErrAlreadyInitialized = errors.New("factory already initialized")

	// ErrNotInitialized is returned when an operation runs before Initialize succeeded.
	ErrNotInitialized = errors.New("factory not initialized")

	ErrUnauthorizedPaymentMedium = errors.New("unauthorized payment medium")
	ErrRegistryNotLinked         = errors.New("item registry not linked")
	ErrSupplyExhausted           = errors.New("supply exhausted")
	ErrWrongPaymentAmount        = errors.New("wrong payment amount")

	ErrUnexpectedCorrelationToken = errors.New("unexpected correlation token")
	ErrAlreadyLinked              = errors.New("item registry already linked")

	// ErrDecodeFailure is returned when a completion payload does not carry a
	// valid registry address.
	ErrDecodeFailure = errors.New("malformed creation result")

	// ErrCreationFailed is returned when the environment reports that the
	// registry could not be created.
	ErrCreationFailed = errors.New("registry creation failed")

	// ErrUnsupportedMigration is returned for every migration request.
	ErrUnsupportedMigration = errors.New("unsupported migration")
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrInvalidUnitPrice, "invalid_unit_price"},
	{ErrInvalidMaxItems, "invalid_max_tokens"},
	{ErrInvalidItemExtension, "invalid_item_extension"},
	{ErrAlreadyInitialized, "already_initialized"},
	{ErrNotInitialized, "not_initialized"},
	{ErrUnauthorizedPaymentMedium, "unauthorized_payment_medium"},
	{ErrRegistryNotLinked, "registry_not_linked"},
	{ErrSupplyExhausted, "supply_exhausted"},
	{ErrWrongPaymentAmount, "wrong_payment_amount"},
	{ErrUnexpectedCorrelationToken, "unexpected_correlation_token"},
	{ErrAlreadyLinked, "already_linked"},
	{ErrDecodeFailure, "decode_failure"},
	{ErrCreationFailed, "creation_failed"},
	{ErrUnsupportedMigration, "unsupported_migration"},
}

// ErrorCode returns the stable machine-readable code of a factory error, or
// "internal" for errors that are not part of the factory taxonomy.
func ErrorCode(err error) string {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return "internal"
}

// ErrorForCode is the inverse of ErrorCode. It returns nil for unknown codes.
func ErrorForCode(code string) error {
	for _, ec := range errorCodes {
		if ec.code == code {
			return ec.err
		}
	}
	return nil
}
