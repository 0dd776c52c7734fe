package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	ErrSubjectNotFound = errors.New("booking subject not found")

	ErrInvalidStatus = errors.New("invalid booking status")

	ErrInvalidPaymentStatus = errors.New("invalid payment status")

	ErrTerminalState = errors.New("booking is completed and cannot change status")

	ErrNotCancellable = errors.New("booking can no longer be cancelled")

	ErrForbidden = errors.New("actor does not own this booking")

	ErrDuplicateReference = errors.New("booking reference already in use")

	ErrUpstreamUnavailable = errors.New("booking subject resolver unavailable")

	ErrInvalidFilter = errors.New("invalid booking filter")

	ErrInvalidKind = errors.New("invalid booking type")
)
