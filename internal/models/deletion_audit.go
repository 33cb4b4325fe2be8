package models

import (
	"time"

	"github.com/google/uuid"
)

// DeletionAudit records the outcome of one dashboard delete.
type DeletionAudit struct {
	ID          int64      `json:"id"`
	Path        string     `json:"path"`
	RequestID   string     `json:"request_id"`
	CaregiverID *uuid.UUID `json:"caregiver_id,omitempty"`
	Succeeded   bool       `json:"succeeded"`
	Existed     bool       `json:"existed"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
