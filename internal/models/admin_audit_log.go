package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type AuditAction string

const (
	AuditApprove AuditAction = "APPROVE"
	AuditReject  AuditAction = "REJECT"
)

type AuditTargetType string

const (
	TargetIDCard   AuditTargetType = "ID_CARD"
	TargetDocument AuditTargetType = "DOCUMENT"
)

type AdminAuditLog struct {
	ID         uuid.UUID       `json:"id"`
	AdminID    uuid.UUID       `json:"admin_id"`
	Action     AuditAction     `json:"action"`
	TargetID   uuid.UUID       `json:"target_id"`
	TargetType AuditTargetType `json:"target_type"`
	Details    json.RawMessage `json:"details,omitempty"` // JSONB field for decision context
	CreatedAt  time.Time       `json:"created_at"`
}
