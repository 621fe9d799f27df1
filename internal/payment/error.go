package payment

import "errors"

var (
	// ErrServiceUnavailable covers transport failures reaching the
	// processor as well as the processor reporting a system error.
	ErrServiceUnavailable = errors.New("payment service is unavailable")

	// ErrPayloadValidation covers malformed payloads in either
	// direction, including checksum mismatches.
	ErrPayloadValidation = errors.New("payment payload validation failed")

	ErrPaymentCreationFailed = errors.New("payment creation failed or was cancelled")
	ErrDuplicateOrder        = errors.New("order with the same id already exists")
	ErrUnknownReturnCode     = errors.New("payment status code was not recognized")
)
