package entity

import (
	"encoding/json"
)

const (
	EventIDPrefix = "evt_"

	// milliseconds, always UTC
	EnvelopeTimeLayout = "2006-01-02T15:04:05.000Z07:00"
)

// Envelope is the body of the outbound POST.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     EventType       `json:"event_type"`
	EventVersion  string          `json:"event_version"`
	ClinicID      string          `json:"clinic_id"`
	TriggerSource TriggerSource   `json:"trigger_source"`
	Timestamp     string          `json:"timestamp"`
	Payload       json.RawMessage `json:"payload"`
}

func NewEnvelope(e Event, defaultVersion string) Envelope {
	version := e.EventVersion
	if version == "" {
		version = defaultVersion
	}
	payload := e.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}

	return Envelope{
		EventID:       EventIDPrefix + e.ID.String(),
		EventType:     e.EventType,
		EventVersion:  version,
		ClinicID:      e.ClinicID.String(),
		TriggerSource: e.TriggerSource,
		Timestamp:     e.Timestamp.UTC().Format(EnvelopeTimeLayout),
		Payload:       payload,
	}
}

