package entity

import (
	"encoding/json"
	"time"

	"github.com/gofrs/uuid"
)

type EventStatus string

const (
	EventPending    EventStatus = "pending"
	EventInProgress EventStatus = "in_progress"
	EventDelivered  EventStatus = "delivered"
	EventFailed     EventStatus = "failed"
)

type TriggerSource string

const (
	SourceUI         TriggerSource = "ui"
	SourceAPI        TriggerSource = "api"
	SourceAutomation TriggerSource = "automation"
	SourceSystem     TriggerSource = "system"
)

func (s TriggerSource) Valid() bool {
	switch s {
	case SourceUI, SourceAPI, SourceAutomation, SourceSystem:
		return true
	default:
		return false
	}
}

// Event is one domain fact of a clinic waiting to be broadcast.
type Event struct {
	ID            uuid.UUID       `json:"id"`
	ClinicID      uuid.UUID       `json:"clinic_id"`
	EventType     EventType       `json:"event_type"`
	EventVersion  string          `json:"event_version"`
	Payload       json.RawMessage `json:"payload" swaggertype:"object"`
	TriggerSource TriggerSource   `json:"trigger_source"`
	Timestamp     time.Time       `json:"timestamp"`
	Status        EventStatus     `json:"status"`
	Attempts      int             `json:"attempts"`
	LastAttempt   *time.Time      `json:"last_attempt,omitempty"`
	LastResponse  *string         `json:"last_response,omitempty"`
	HTTPStatus    *int            `json:"http_status,omitempty"`
}

// SweepResult counts the outcomes of one bulk processing run.
type SweepResult struct {
	Processed int `json:"processed" example:"3"`
	Delivered int `json:"delivered" example:"2"`
	Failed    int `json:"failed" example:"1"`
}

// DeliveryResult is the outcome of a single event dispatch, one entry per target.
type DeliveryResult struct {
	EventID   uuid.UUID      `json:"event_id"`
	Delivered bool           `json:"delivered"`
	Targets   []TargetResult `json:"targets"`
	Error     string         `json:"error,omitempty"`
}

type TargetResult struct {
	EndpointID *uuid.UUID `json:"endpoint_id,omitempty"`
	URL        string     `json:"url"`
	Delivered  bool       `json:"delivered"`
	HTTPStatus int        `json:"http_status"`
	Attempt    int        `json:"attempt"`
	Error      string     `json:"error,omitempty"`
}
