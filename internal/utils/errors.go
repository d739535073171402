package utils

import "errors"

// Domain-level errors used by the service layer to provide
// fine-grained failure reasons.
var (
	ErrValidation        = errors.New("validation_error")
	ErrInvalidOtp        = errors.New("invalid_otp")
	ErrOtpExpired        = errors.New("otp_expired")
	ErrInvalidTransition = errors.New("invalid_transition")
	ErrNotFound          = errors.New("not_found")
	ErrForbidden         = errors.New("forbidden")

	// For rate limiting (resend cooldown and hourly caps)
	ErrRateLimitExceeded = errors.New("rate_limit_exceeded")

	// For optimistic-lock loops that exhaust their retries
	ErrRowVersionConflict = errors.New("row_version_conflict")

	// For external service failures (e.g., SendGrid, Cloudinary)
	ErrExternalServiceFailure = errors.New("external_service_failure")
)
