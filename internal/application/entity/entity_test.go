package entity

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenciaspace/clinione-sub001/internal/appers"
)

func TestEndpointAccepts(t *testing.T) {
	tests := []struct {
		name     string
		endpoint Endpoint
		want     bool
	}{
		{"no filter", Endpoint{IsActive: true}, true},
		{"listed", Endpoint{IsActive: true, EventTypes: []string{"patient.created"}}, true},
		{"not listed", Endpoint{IsActive: true, EventTypes: []string{"appointment.created"}}, false},
		{"wildcard", Endpoint{IsActive: true, EventTypes: []string{"*"}}, true},
		{"inactive", Endpoint{IsActive: false}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.endpoint.Accepts(PatientCreated))
		})
	}
}

func TestTargets(t *testing.T) {
	secret := "s3cr3t"
	ep := Endpoint{ID: uuid.Must(uuid.NewV4()), ClinicID: uuid.Must(uuid.NewV4()), URL: "https://example.com/hook", Secret: &secret}

	target := TargetFromEndpoint(ep)
	require.NotNil(t, target.EndpointID)
	assert.Equal(t, ep.ID, *target.EndpointID)
	assert.Equal(t, secret, target.Secret)
	assert.Equal(t, ep.ID.String(), target.String())

	url := "https://legacy.example.com"
	legacy := TargetFromLegacy(LegacyWebhook{ClinicID: ep.ClinicID, URL: &url})
	assert.Nil(t, legacy.EndpointID)
	assert.Empty(t, legacy.Secret)
	assert.Equal(t, "legacy", legacy.String())

	empty := ""
	assert.False(t, LegacyWebhook{URL: &empty}.Configured())
	assert.False(t, LegacyWebhook{}.Configured())
}

func TestValidatePayload(t *testing.T) {
	tests := []struct {
		name    string
		typ     EventType
		payload string
		wantErr error
	}{
		{"patient by name", PatientCreated, `{"name":"Ana"}`, nil},
		{"patient empty", PatientCreated, `{}`, appers.ErrInvalidPayload},
		{"unknown fields kept", PatientUpdated, `{"id":"p-1","insurance":"gold"}`, nil},
		{"status change", AppointmentStatusChanged, `{"id":"a-1","old_status":"scheduled","new_status":"confirmed"}`, nil},
		{"status change missing new", AppointmentStatusChanged, `{"id":"a-1","old_status":"scheduled"}`, appers.ErrInvalidPayload},
		{"appointment bad date", AppointmentCreated, `{"id":"a-1","date":"10/03/2025"}`, appers.ErrInvalidPayload},
		{"appointment date", AppointmentCreated, `{"id":"a-1","date":"2025-03-10T09:00:00-03:00"}`, nil},
		{"transaction zero amount", TransactionCreated, `{"id":"t-1","amount":0}`, nil},
		{"transaction no amount", TransactionCreated, `{"id":"t-1"}`, appers.ErrInvalidPayload},
		{"role change", UserRoleChanged, `{"id":"u-1","old_role":"staff","new_role":"admin"}`, nil},
		{"settings", ClinicSettingsUpdated, `{"settings":{"timezone":"America/Sao_Paulo"}}`, nil},
		{"array payload", ClinicUpdated, `[1,2]`, appers.ErrInvalidPayload},
		{"unknown type", EventType("patient.exploded"), `{}`, appers.ErrUnknownEventType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePayload(tt.typ, json.RawMessage(tt.payload))
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestEventTypesAreKnown(t *testing.T) {
	types := EventTypes()
	assert.Len(t, types, 17)
	for _, et := range types {
		assert.True(t, et.Known(), et)
	}
}

func TestNewTrigger(t *testing.T) {
	clinic := uuid.Must(uuid.NewV4())

	tr, err := NewTrigger(PatientCreated, clinic, SourceAPI, PatientPayload{Name: "Ana"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Ana"}`, string(tr.Payload))
	assert.Equal(t, SourceAPI, tr.TriggerSource)

	_, err = NewTrigger(PatientCreated, clinic, TriggerSource("cron"), PatientPayload{Name: "Ana"})
	assert.ErrorIs(t, err, appers.ErrInvalidPayload)

	_, err = NewTrigger(PatientCreated, uuid.Nil, SourceAPI, PatientPayload{Name: "Ana"})
	assert.ErrorIs(t, err, appers.ErrInvalidPayload)

	_, err = NewTrigger(EventType("clinic.deleted"), clinic, SourceAPI, map[string]any{})
	assert.ErrorIs(t, err, appers.ErrUnknownEventType)
}

func TestTriggerRequest_ToTrigger(t *testing.T) {
	clinic := uuid.Must(uuid.NewV4())

	tr, err := TriggerRequest{
		EventType: "doctor.deleted",
		ClinicID:  clinic.String(),
		Payload:   json.RawMessage(`{"id":"d-1"}`),
	}.ToTrigger()
	require.NoError(t, err)
	assert.Equal(t, DoctorDeleted, tr.EventType)
	assert.Equal(t, clinic, tr.ClinicID)
	assert.Equal(t, SourceSystem, tr.TriggerSource)

	_, err = TriggerRequest{EventType: "doctor.fired", ClinicID: clinic.String(), Payload: json.RawMessage(`{}`)}.ToTrigger()
	assert.ErrorIs(t, err, appers.ErrUnknownEventType)

	_, err = TriggerRequest{EventType: "doctor.deleted", ClinicID: "clinic-1", Payload: json.RawMessage(`{"id":"d-1"}`)}.ToTrigger()
	assert.ErrorIs(t, err, appers.ErrInvalidPayload)
}

func TestNewEnvelope(t *testing.T) {
	sp := time.FixedZone("BRT", -3*60*60)
	evt := Event{
		ID:            uuid.Must(uuid.NewV4()),
		ClinicID:      uuid.Must(uuid.NewV4()),
		EventType:     PatientCreated,
		TriggerSource: SourceUI,
		Timestamp:     time.Date(2025, 3, 10, 9, 0, 0, 123456789, sp),
	}

	env := NewEnvelope(evt, "1.0")

	assert.Equal(t, "evt_"+evt.ID.String(), env.EventID)
	assert.Equal(t, "1.0", env.EventVersion)
	assert.Equal(t, "2025-03-10T12:00:00.123Z", env.Timestamp)
	assert.JSONEq(t, `{}`, string(env.Payload))

	evt.EventVersion = "2.0"
	assert.Equal(t, "2.0", NewEnvelope(evt, "1.0").EventVersion)
}
