package entity

import (
	"bytes"
	"encoding/json"
	"fmt"

	playgroundvalidator "github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"

	"github.com/agenciaspace/clinione-sub001/internal/appers"
	"github.com/agenciaspace/clinione-sub001/pkg/validator"
)

// EventType is a namespaced domain.action name. The set is closed, see eventSchemas.
type EventType string

const (
	AppointmentCreated       EventType = "appointment.created"
	AppointmentUpdated       EventType = "appointment.updated"
	AppointmentDeleted       EventType = "appointment.deleted"
	AppointmentStatusChanged EventType = "appointment.status_changed"

	PatientCreated EventType = "patient.created"
	PatientUpdated EventType = "patient.updated"
	PatientDeleted EventType = "patient.deleted"

	DoctorCreated EventType = "doctor.created"
	DoctorUpdated EventType = "doctor.updated"
	DoctorDeleted EventType = "doctor.deleted"

	ClinicUpdated         EventType = "clinic.updated"
	ClinicSettingsUpdated EventType = "clinic.settings_updated"

	TransactionCreated EventType = "transaction.created"
	TransactionUpdated EventType = "transaction.updated"

	UserCreated     EventType = "user.created"
	UserUpdated     EventType = "user.updated"
	UserRoleChanged EventType = "user.role_changed"
)

type AppointmentPayload struct {
	ID        string `json:"id" validate:"required"`
	PatientID string `json:"patient_id,omitempty"`
	DoctorID  string `json:"doctor_id,omitempty"`
	Date      string `json:"date,omitempty" validate:"rfc3339_optional"`
	Status    string `json:"status,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

type AppointmentStatusPayload struct {
	ID        string `json:"id" validate:"required"`
	OldStatus string `json:"old_status" validate:"required"`
	NewStatus string `json:"new_status" validate:"required"`
}

type PatientPayload struct {
	ID    string `json:"id,omitempty" validate:"required_without=Name"`
	Name  string `json:"name,omitempty" validate:"required_without=ID"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
	Phone string `json:"phone,omitempty"`
}

type DoctorPayload struct {
	ID        string `json:"id,omitempty" validate:"required_without=Name"`
	Name      string `json:"name,omitempty" validate:"required_without=ID"`
	Specialty string `json:"specialty,omitempty"`
	Email     string `json:"email,omitempty" validate:"omitempty,email"`
}

// DeletedPayload is shared by every *.deleted type.
type DeletedPayload struct {
	ID string `json:"id" validate:"required"`
}

type ClinicPayload struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
}

type ClinicSettingsPayload struct {
	Settings map[string]any `json:"settings" validate:"required"`
}

type TransactionPayload struct {
	ID     string   `json:"id" validate:"required"`
	Amount *float64 `json:"amount" validate:"required"`
	Type   string   `json:"type,omitempty"`
	Status string   `json:"status,omitempty"`
}

type UserPayload struct {
	ID    string `json:"id" validate:"required"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
	Role  string `json:"role,omitempty"`
}

type UserRolePayload struct {
	ID      string `json:"id" validate:"required"`
	OldRole string `json:"old_role" validate:"required"`
	NewRole string `json:"new_role" validate:"required"`
}

var eventSchemas = map[EventType]func() any{
	AppointmentCreated:       func() any { return &AppointmentPayload{} },
	AppointmentUpdated:       func() any { return &AppointmentPayload{} },
	AppointmentDeleted:       func() any { return &DeletedPayload{} },
	AppointmentStatusChanged: func() any { return &AppointmentStatusPayload{} },
	PatientCreated:           func() any { return &PatientPayload{} },
	PatientUpdated:           func() any { return &PatientPayload{} },
	PatientDeleted:           func() any { return &DeletedPayload{} },
	DoctorCreated:            func() any { return &DoctorPayload{} },
	DoctorUpdated:            func() any { return &DoctorPayload{} },
	DoctorDeleted:            func() any { return &DeletedPayload{} },
	ClinicUpdated:            func() any { return &ClinicPayload{} },
	ClinicSettingsUpdated:    func() any { return &ClinicSettingsPayload{} },
	TransactionCreated:       func() any { return &TransactionPayload{} },
	TransactionUpdated:       func() any { return &TransactionPayload{} },
	UserCreated:              func() any { return &UserPayload{} },
	UserUpdated:              func() any { return &UserPayload{} },
	UserRoleChanged:          func() any { return &UserRolePayload{} },
}

func init() {
	_ = validator.Validate.RegisterValidation("event_type", func(fl playgroundvalidator.FieldLevel) bool {
		return EventType(fl.Field().String()).Known()
	})
	_ = validator.Validate.RegisterValidation("trigger_source", func(fl playgroundvalidator.FieldLevel) bool {
		return TriggerSource(fl.Field().String()).Valid()
	})
}

func (t EventType) Known() bool {
	_, ok := eventSchemas[t]
	return ok
}

// EventTypes lists the taxonomy, used by the swagger docs and tests.
func EventTypes() []EventType {
	out := make([]EventType, 0, len(eventSchemas))
	for t := range eventSchemas {
		out = append(out, t)
	}
	return out
}

// ValidatePayload checks raw against the schema registered for t. Unknown fields are allowed.
func ValidatePayload(t EventType, raw json.RawMessage) error {
	newSchema, ok := eventSchemas[t]
	if !ok {
		return fmt.Errorf("%w: %q", appers.ErrUnknownEventType, t)
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return fmt.Errorf("%w: payload must be a JSON object", appers.ErrInvalidPayload)
	}

	schema := newSchema()
	if err := json.Unmarshal(trimmed, schema); err != nil {
		return fmt.Errorf("%w: %w", appers.ErrInvalidPayload, err)
	}
	if err := validator.Validate.Struct(schema); err != nil {
		return fmt.Errorf("%w: %w", appers.ErrInvalidPayload, err)
	}

	return nil
}

// Trigger is a validated request to enqueue an event.
type Trigger struct {
	EventType     EventType
	ClinicID      uuid.UUID
	TriggerSource TriggerSource
	Payload       json.RawMessage
}

// NewTrigger builds a Trigger from a typed payload (one of the *Payload structs,
// a map or a json.RawMessage) and validates it against the type's schema.
func NewTrigger(t EventType, clinicID uuid.UUID, source TriggerSource, payload any) (Trigger, error) {
	if !t.Known() {
		return Trigger{}, fmt.Errorf("%w: %q", appers.ErrUnknownEventType, t)
	}
	if !source.Valid() {
		return Trigger{}, fmt.Errorf("%w: trigger_source %q", appers.ErrInvalidPayload, source)
	}
	if clinicID == uuid.Nil {
		return Trigger{}, fmt.Errorf("%w: clinic_id is required", appers.ErrInvalidPayload)
	}

	var raw json.RawMessage
	switch p := payload.(type) {
	case json.RawMessage:
		raw = p
	case []byte:
		raw = p
	default:
		b, err := json.Marshal(payload)
		if err != nil {
			return Trigger{}, fmt.Errorf("%w: %w", appers.ErrInvalidPayload, err)
		}
		raw = b
	}

	if err := ValidatePayload(t, raw); err != nil {
		return Trigger{}, err
	}

	return Trigger{EventType: t, ClinicID: clinicID, TriggerSource: source, Payload: raw}, nil
}

// TriggerRequest is the wire form of a trigger, used by the HTTP API and the change stream.
type TriggerRequest struct {
	EventType     string          `json:"event_type" validate:"required,event_type" example:"patient.created"`
	ClinicID      string          `json:"clinic_id" validate:"required,uuid" example:"2f1c6d3e-8a4b-4c55-9d2e-1f0a7b6c5d4e"`
	TriggerSource string          `json:"trigger_source" validate:"omitempty,trigger_source" example:"api"`
	Payload       json.RawMessage `json:"payload" validate:"required" swaggertype:"object"`
}

// ToTrigger validates the request and converts it. An empty trigger source defaults to system.
func (r TriggerRequest) ToTrigger() (Trigger, error) {
	if r.EventType != "" && !EventType(r.EventType).Known() {
		return Trigger{}, fmt.Errorf("%w: %q", appers.ErrUnknownEventType, r.EventType)
	}
	if err := validator.Validate.Struct(r); err != nil {
		return Trigger{}, fmt.Errorf("%w: %w", appers.ErrInvalidPayload, err)
	}
	clinicID, err := uuid.FromString(r.ClinicID)
	if err != nil {
		return Trigger{}, fmt.Errorf("%w: %w", appers.ErrInvalidPayload, err)
	}
	source := TriggerSource(r.TriggerSource)
	if source == "" {
		source = SourceSystem
	}

	return NewTrigger(EventType(r.EventType), clinicID, source, r.Payload)
}
