package models

import (
	"time"

	"github.com/google/uuid"
)

type Session struct {
	ID          string    `json:"id"`
	CaregiverID uuid.UUID `json:"caregiver_id"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
}
