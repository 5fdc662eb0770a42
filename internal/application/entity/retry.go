package entity

import (
	"time"

	"github.com/gofrs/uuid"
)

type RetryStatus string

const (
	RetryPending    RetryStatus = "pending"
	RetryProcessing RetryStatus = "processing"
	RetryCompleted  RetryStatus = "completed"
)

type Retry struct {
	ID         int64       `json:"id"`
	EventID    uuid.UUID   `json:"event_id"`
	EndpointID *uuid.UUID  `json:"endpoint_id,omitempty"`
	ClinicID   uuid.UUID   `json:"clinic_id"`
	RetryAt    time.Time   `json:"retry_at"`
	Status     RetryStatus `json:"status"`
	CreatedAt  time.Time   `json:"created_at"`
}
