package models

import (
	"time"

	"github.com/google/uuid"
)

type DocumentType string

const (
	DocumentTypeGST   DocumentType = "GST"
	DocumentTypeCIN   DocumentType = "CIN"
	DocumentTypeMSME  DocumentType = "MSME"
	DocumentTypeOther DocumentType = "OTHER"
)

func ParseDocumentType(s string) (DocumentType, bool) {
	switch DocumentType(s) {
	case DocumentTypeGST, DocumentTypeCIN, DocumentTypeMSME, DocumentTypeOther:
		return DocumentType(s), true
	default:
		return "", false
	}
}

type DocumentStatusType string

const (
	DocumentStatusPending  DocumentStatusType = "PENDING"
	DocumentStatusApproved DocumentStatusType = "APPROVED"
	DocumentStatusRejected DocumentStatusType = "REJECTED"

	// A pending document that was replaced by a newer upload of the same
	// type. Terminal, never counted toward any level.
	DocumentStatusSuperseded DocumentStatusType = "SUPERSEDED"
)

// EmployerDocument is one uploaded legal document (GST/CIN/MSME/other).
// Immutable once created except for Status and RejectionReason, which
// only an admin decision (or superseding upload) may change, and only
// while Status is PENDING.
type EmployerDocument struct {
	ID              uuid.UUID          `json:"id"`
	EmployerID      uuid.UUID          `json:"employer_id"`
	Type            DocumentType       `json:"type"`
	FileRef         string             `json:"file_ref"`
	Status          DocumentStatusType `json:"status"`
	RejectionReason *string            `json:"rejection_reason,omitempty"`
	UploadedAt      time.Time          `json:"uploaded_at"`
}
