package dtos

import (
	"time"

	"github.com/google/uuid"
)

// ----------------------
// Record provisioning
// ----------------------

type RegisterRecordRequest struct {
	Email      string  `json:"email" validate:"required,email"`
	CompanyKey *string `json:"company_key,omitempty"`
}
type RegisterRecordResponse struct {
	Message string `json:"message"`
}

// ----------------------
// OTP
// ----------------------

type SendOtpResponse struct {
	Message string `json:"message"`
}

type VerifyOtpRequest struct {
	Otp string `json:"otp" validate:"required,len=6,numeric"`
}
type VerifyOtpResponse struct {
	Message string `json:"message"`
	Level   int    `json:"level"`
}

// ----------------------
// Uploads
// ----------------------

// Files arrive base64-encoded in the JSON body; transport-level
// multipart handling is the gateway's concern, not ours.
type UploadIDCardRequest struct {
	FileBase64  string `json:"file_base64" validate:"required"`
	ContentType string `json:"content_type" validate:"required"`
}
type UploadIDCardResponse struct {
	Status string `json:"status"`
}

type UploadDocumentRequest struct {
	DocType     string `json:"doc_type" validate:"required"`
	FileBase64  string `json:"file_base64" validate:"required"`
	ContentType string `json:"content_type" validate:"required"`
}
type UploadDocumentResponse struct {
	DocumentID uuid.UUID `json:"document_id"`
	Status     string    `json:"status"`
}

// ----------------------
// Status snapshot
// ----------------------

type IDCardView struct {
	Status          string     `json:"status"`
	FileURL         *string    `json:"file_url,omitempty"`
	RejectionReason *string    `json:"rejection_reason,omitempty"`
	UploadedAt      *time.Time `json:"uploaded_at,omitempty"`
}

type DocumentView struct {
	ID              uuid.UUID `json:"id"`
	Type            string    `json:"type"`
	Status          string    `json:"status"`
	FileURL         string    `json:"file_url"`
	RejectionReason *string   `json:"rejection_reason,omitempty"`
	UploadedAt      time.Time `json:"uploaded_at"`
}

type VerificationStatusResponse struct {
	EmployerID           uuid.UUID      `json:"employer_id"`
	EmailVerified        bool           `json:"email_verified"`
	DomainVerified       bool           `json:"domain_verified"`
	IDCard               IDCardView     `json:"id_card"`
	Documents            []DocumentView `json:"documents"`
	InheritedFromCompany bool           `json:"inherited_from_company"`
	Level                int            `json:"level"`
}
