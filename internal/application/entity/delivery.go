package entity

import (
	"time"

	"github.com/gofrs/uuid"
)

type DeliveryStatus string

const (
	DeliverySending   DeliveryStatus = "sending"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryFailed    DeliveryStatus = "failed"
)

// DeliveryLog is the single audit row of one (event, endpoint) pair.
type DeliveryLog struct {
	ID           int64          `json:"id"`
	EventID      uuid.UUID      `json:"event_id"`
	EndpointID   *uuid.UUID     `json:"endpoint_id,omitempty"`
	ClinicID     uuid.UUID      `json:"clinic_id"`
	Status       DeliveryStatus `json:"status"`
	ResponseCode *int           `json:"response_code,omitempty"`
	ResponseBody *string        `json:"response_body,omitempty"`
	RetryCount   int            `json:"retry_count"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

type DeliveryLogFilter struct {
	EventID  *uuid.UUID
	ClinicID *uuid.UUID
	Status   DeliveryStatus
	Limit    uint64
}

// Attempt is returned when an attempt is started. EndpointAttempt is the
// 1-based number of this attempt for the (event, endpoint) pair.
type Attempt struct {
	EventAttempts   int
	EndpointAttempt int
	StartedAt       time.Time
}

// AttemptOutcome is what gets written back after the POST returns.
type AttemptOutcome struct {
	ClinicID   uuid.UUID
	EventID    uuid.UUID
	EndpointID *uuid.UUID
	Delivered  bool
	HTTPStatus int
	Response   string
}
