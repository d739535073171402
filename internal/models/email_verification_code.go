package models

import (
	"time"

	"github.com/google/uuid"
)

// EmailVerificationCode for employer_email_verification_codes table.
// At most one unconsumed code is honored per employer; issuing a new
// code deletes any prior row.
type EmailVerificationCode struct {
	ID               uuid.UUID
	EmployerID       uuid.UUID
	EmployerEmail    string
	VerificationCode string
	ExpiresAt        time.Time
	Attempts         int
	CreatedAt        time.Time
}
