package dtos

import "github.com/google/uuid"

// ----------------------
// Admin review surface
// ----------------------

type PendingVerificationItem struct {
	EmployerID    uuid.UUID      `json:"employer_id"`
	EmployerEmail string         `json:"employer_email"`
	Level         int            `json:"level"`
	IDCard        IDCardView     `json:"id_card"`
	Documents     []DocumentView `json:"documents"`
}

type PendingVerificationsResponse struct {
	Items []PendingVerificationItem `json:"items"`
	Total int                       `json:"total"`
}

// DecisionRequest carries an admin approve/reject for an ID card or a
// legal document. RejectionReason is required when Status is REJECTED.
type DecisionRequest struct {
	Status          string  `json:"status" validate:"required,oneof=APPROVED REJECTED"`
	RejectionReason *string `json:"rejection_reason,omitempty"`
}

type DecisionResponse struct {
	Message string                     `json:"message"`
	Record  VerificationStatusResponse `json:"record"`
}
