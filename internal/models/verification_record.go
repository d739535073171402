package models

import (
	"time"

	"github.com/google/uuid"
)

type IDCardStatusType string

const (
	IDCardStatusAbsent   IDCardStatusType = "ABSENT"
	IDCardStatusPending  IDCardStatusType = "PENDING"
	IDCardStatusApproved IDCardStatusType = "APPROVED"
	IDCardStatusRejected IDCardStatusType = "REJECTED"
)

// Trust levels derived from the verification record.
const (
	LevelUnverified       = 0
	LevelIdentityVerified = 1
	LevelBusinessVerified = 2
)

// VerificationRecord is the per-employer verification state. One row per
// employer account, created unverified at registration time. The `Level`
// column is derived state and must only ever be written by recomputing
// it from the other fields (see ComputeLevel).
type VerificationRecord struct {
	Versioned

	ID            uuid.UUID `json:"id"`
	EmployerID    uuid.UUID `json:"employer_id"`
	EmployerEmail string    `json:"employer_email"`

	// CompanyKey groups employer accounts belonging to the same legal
	// company. Used for inherited business verification.
	CompanyKey *string `json:"company_key,omitempty"`

	EmailVerified  bool `json:"email_verified"`
	DomainVerified bool `json:"domain_verified"`

	IDCardStatus          IDCardStatusType `json:"id_card_status"`
	IDCardFileRef         *string          `json:"id_card_file_ref,omitempty"`
	IDCardRejectionReason *string          `json:"id_card_rejection_reason,omitempty"`
	IDCardUploadedAt      *time.Time       `json:"id_card_uploaded_at,omitempty"`

	InheritedFromCompany bool `json:"inherited_from_company"`

	Level int `json:"level"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ----- concurrency helpers -----
func (r *VerificationRecord) GetID() string { return r.ID.String() }

// ComputeLevel derives the trust level from the record's current fields
// and the employer's legal documents. Level 1 requires a verified email
// and an approved ID card; level 2 additionally requires at least one
// approved legal document or an inherited company verification.
func ComputeLevel(rec *VerificationRecord, docs []*EmployerDocument) int {
	if !rec.EmailVerified || rec.IDCardStatus != IDCardStatusApproved {
		return LevelUnverified
	}
	if rec.InheritedFromCompany {
		return LevelBusinessVerified
	}
	for _, d := range docs {
		if d.Status == DocumentStatusApproved {
			return LevelBusinessVerified
		}
	}
	return LevelIdentityVerified
}
