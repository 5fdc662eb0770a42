package entity

import (
	"slices"

	"github.com/gofrs/uuid"
)

// Wildcard in an endpoint's event_types selects every type, same as an empty filter.
const Wildcard = "*"

// Endpoint is a delivery target registered by a clinic.
type Endpoint struct {
	ID          uuid.UUID `json:"id"`
	ClinicID    uuid.UUID `json:"clinic_id"`
	URL         string    `json:"url"`
	Secret      *string   `json:"-"`
	IsActive    bool      `json:"is_active"`
	EventTypes  []string  `json:"event_types,omitempty"`
	Description string    `json:"description,omitempty"`
}

// Accepts reports whether the endpoint should receive events of type t.
func (e Endpoint) Accepts(t EventType) bool {
	if !e.IsActive {
		return false
	}
	if len(e.EventTypes) == 0 {
		return true
	}
	return slices.Contains(e.EventTypes, string(t)) || slices.Contains(e.EventTypes, Wildcard)
}

// LegacyWebhook is the deprecated single url stored on the clinic row.
type LegacyWebhook struct {
	ClinicID uuid.UUID
	URL      *string
	Secret   *string
}

func (l LegacyWebhook) Configured() bool {
	return l.URL != nil && *l.URL != ""
}

// Target is a resolved destination. EndpointID is nil for the legacy url.
type Target struct {
	EndpointID *uuid.UUID
	ClinicID   uuid.UUID
	URL        string
	Secret     string
}

func (t Target) String() string {
	if t.EndpointID == nil {
		return "legacy"
	}
	return t.EndpointID.String()
}

func TargetFromEndpoint(e Endpoint) Target {
	id := e.ID
	t := Target{EndpointID: &id, ClinicID: e.ClinicID, URL: e.URL}
	if e.Secret != nil {
		t.Secret = *e.Secret
	}
	return t
}

func TargetFromLegacy(l LegacyWebhook) Target {
	t := Target{ClinicID: l.ClinicID}
	if l.URL != nil {
		t.URL = *l.URL
	}
	if l.Secret != nil {
		t.Secret = *l.Secret
	}
	return t
}
