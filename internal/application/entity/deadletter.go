package entity

import (
	"encoding/json"
	"time"

	"github.com/gofrs/uuid"
)

// DeadLetter is the terminal archive of an event that used up its retry budget.
type DeadLetter struct {
	ID           int64           `json:"id"`
	EventID      uuid.UUID       `json:"event_id"`
	EventType    EventType       `json:"event_type"`
	ClinicID     uuid.UUID       `json:"clinic_id"`
	EndpointID   *uuid.UUID      `json:"endpoint_id,omitempty"`
	Payload      json.RawMessage `json:"payload" swaggertype:"object"`
	Attempts     int             `json:"attempts"`
	LastAttempt  *time.Time      `json:"last_attempt,omitempty"`
	ErrorMessage string          `json:"error_message"`
	CreatedAt    time.Time       `json:"created_at"`
}

type DeadLetterFilter struct {
	ClinicID *uuid.UUID
	Limit    uint64
}

// DeadLetterNotice is published to the broker once per dead-lettered event.
type DeadLetterNotice struct {
	EventID      uuid.UUID `json:"event_id"`
	EventType    EventType `json:"event_type"`
	ClinicID     uuid.UUID `json:"clinic_id"`
	Attempts     int       `json:"attempts"`
	ErrorMessage string    `json:"error_message"`
}
