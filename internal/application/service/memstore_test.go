package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/uuid"

	"github.com/agenciaspace/clinione-sub001/internal/appers"
	"github.com/agenciaspace/clinione-sub001/internal/application/entity"
)

// memStore implements repo.Repo and repo.Transactions with the same keys as the SQL:
// one delivery log per (event, endpoint, clinic), one dead letter per event that closes
// the event's pending retries and blocks new ones.
type memStore struct {
	mu sync.Mutex

	events      map[uuid.UUID]*entity.Event
	claimedAt   map[uuid.UUID]time.Time
	endpoints   []entity.Endpoint
	legacy      map[uuid.UUID]entity.LegacyWebhook
	logs        []*entity.DeliveryLog
	retries     []*entity.Retry
	deadLetters []*entity.DeadLetter

	startAttemptErr error
	nextID          int64
}

func newMemStore() *memStore {
	return &memStore{
		events:    make(map[uuid.UUID]*entity.Event),
		claimedAt: make(map[uuid.UUID]time.Time),
		legacy:    make(map[uuid.UUID]entity.LegacyWebhook),
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func sameEndpoint(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (m *memStore) InsertEvent(_ context.Context, evt *entity.Event) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[evt.ID]; ok {
		return false, nil
	}
	cp := *evt
	m.events[evt.ID] = &cp
	return true, nil
}

func (m *memStore) GetEvent(_ context.Context, id uuid.UUID) (*entity.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	evt, ok := m.events[id]
	if !ok {
		return nil, appers.ErrEventNotFound
	}
	cp := *evt
	return &cp, nil
}

func (m *memStore) MarkEventFailed(_ context.Context, clinicID, eventID uuid.UUID, httpStatus int, response string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	evt, ok := m.events[eventID]
	if !ok || evt.ClinicID != clinicID {
		return appers.ErrEventNotFound
	}
	evt.Status = entity.EventFailed
	evt.HTTPStatus = &httpStatus
	evt.LastResponse = &response
	delete(m.claimedAt, eventID)
	return nil
}

func (m *memStore) ListActiveEndpoints(_ context.Context, clinicID uuid.UUID) ([]entity.Endpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.Endpoint
	for _, ep := range m.endpoints {
		if ep.ClinicID == clinicID && ep.IsActive {
			out = append(out, ep)
		}
	}
	return out, nil
}

func (m *memStore) GetEndpoint(_ context.Context, clinicID, endpointID uuid.UUID) (*entity.Endpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ep := range m.endpoints {
		if ep.ID == endpointID && ep.ClinicID == clinicID {
			cp := ep
			return &cp, nil
		}
	}
	return nil, appers.ErrEndpointNotFound
}

func (m *memStore) GetLegacyWebhook(_ context.Context, clinicID uuid.UUID) (entity.LegacyWebhook, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.legacy[clinicID]; ok {
		return l, nil
	}
	return entity.LegacyWebhook{ClinicID: clinicID}, nil
}

func (m *memStore) ListDeliveryLogs(_ context.Context, f entity.DeliveryLogFilter) ([]entity.DeliveryLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]entity.DeliveryLog, 0)
	for _, l := range m.logs {
		if f.EventID != nil && l.EventID != *f.EventID {
			continue
		}
		if f.ClinicID != nil && l.ClinicID != *f.ClinicID {
			continue
		}
		out = append(out, *l)
	}
	return out, nil
}

func (m *memStore) InsertRetry(_ context.Context, r *entity.Retry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deadLocked(r.EventID) {
		return appers.ErrEventDeadLettered
	}
	r.ID = m.id()
	r.Status = entity.RetryPending
	cp := *r
	m.retries = append(m.retries, &cp)
	return nil
}

func (m *memStore) CompleteRetry(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.retries {
		if r.ID == id {
			r.Status = entity.RetryCompleted
		}
	}
	return nil
}

func (m *memStore) InsertDeadLetter(_ context.Context, d *entity.DeadLetter) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.retries {
		if r.EventID == d.EventID && r.Status == entity.RetryPending {
			r.Status = entity.RetryCompleted
		}
	}
	for _, existing := range m.deadLetters {
		if existing.EventID == d.EventID {
			return false, nil
		}
	}
	d.ID = m.id()
	cp := *d
	m.deadLetters = append(m.deadLetters, &cp)
	return true, nil
}

func (m *memStore) IsDeadLettered(_ context.Context, eventID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deadLocked(eventID), nil
}

func (m *memStore) deadLocked(eventID uuid.UUID) bool {
	for _, d := range m.deadLetters {
		if d.EventID == eventID {
			return true
		}
	}
	return false
}

func (m *memStore) ListDeadLetters(_ context.Context, f entity.DeadLetterFilter) ([]entity.DeadLetter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]entity.DeadLetter, 0)
	for _, d := range m.deadLetters {
		if f.ClinicID != nil && d.ClinicID != *f.ClinicID {
			continue
		}
		out = append(out, *d)
	}
	return out, nil
}

func (m *memStore) HealthCheck(context.Context) error { return nil }

func (m *memStore) ClaimPendingEvents(_ context.Context, limit int, staleBefore, now time.Time) ([]entity.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var picked []*entity.Event
	for _, evt := range m.events {
		if m.deadLocked(evt.ID) {
			continue
		}
		stale := evt.Status == entity.EventInProgress && m.claimedAt[evt.ID].Before(staleBefore)
		if evt.Status == entity.EventPending || stale {
			picked = append(picked, evt)
		}
	}
	sort.Slice(picked, func(i, j int) bool { return picked[i].Timestamp.Before(picked[j].Timestamp) })
	if len(picked) > limit {
		picked = picked[:limit]
	}

	out := make([]entity.Event, 0, len(picked))
	for _, evt := range picked {
		evt.Status = entity.EventInProgress
		m.claimedAt[evt.ID] = now
		out = append(out, *evt)
	}
	return out, nil
}

func (m *memStore) ClaimDueRetries(_ context.Context, limit int, now time.Time) ([]entity.Retry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var picked []*entity.Retry
	for _, r := range m.retries {
		if r.Status == entity.RetryPending && r.RetryAt.Before(now) && !m.deadLocked(r.EventID) {
			picked = append(picked, r)
		}
	}
	sort.Slice(picked, func(i, j int) bool { return picked[i].RetryAt.Before(picked[j].RetryAt) })
	if len(picked) > limit {
		picked = picked[:limit]
	}

	out := make([]entity.Retry, 0, len(picked))
	for _, r := range picked {
		r.Status = entity.RetryProcessing
		out = append(out, *r)
	}
	return out, nil
}

func (m *memStore) StartAttempt(_ context.Context, target entity.Target, evt *entity.Event, at time.Time) (entity.Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startAttemptErr != nil {
		return entity.Attempt{}, m.startAttemptErr
	}

	stored, ok := m.events[evt.ID]
	if !ok || stored.ClinicID != target.ClinicID {
		return entity.Attempt{}, appers.ErrEventNotFound
	}
	stored.Attempts++
	stored.Status = entity.EventInProgress
	startedAt := at
	stored.LastAttempt = &startedAt
	m.claimedAt[evt.ID] = at

	for _, l := range m.logs {
		if l.EventID == evt.ID && l.ClinicID == target.ClinicID && sameEndpoint(l.EndpointID, target.EndpointID) {
			l.RetryCount++
			l.Status = entity.DeliverySending
			l.UpdatedAt = at
			return entity.Attempt{EventAttempts: stored.Attempts, EndpointAttempt: l.RetryCount + 1, StartedAt: at}, nil
		}
	}

	m.logs = append(m.logs, &entity.DeliveryLog{
		ID:         m.id(),
		EventID:    evt.ID,
		EndpointID: target.EndpointID,
		ClinicID:   target.ClinicID,
		Status:     entity.DeliverySending,
		CreatedAt:  at,
		UpdatedAt:  at,
	})
	return entity.Attempt{EventAttempts: stored.Attempts, EndpointAttempt: 1, StartedAt: at}, nil
}

func (m *memStore) FinishAttempt(_ context.Context, out entity.AttemptOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	evt, ok := m.events[out.EventID]
	if !ok || evt.ClinicID != out.ClinicID {
		return appers.ErrEventNotFound
	}
	status, resp := out.HTTPStatus, out.Response
	evt.HTTPStatus = &status
	evt.LastResponse = &resp
	evt.Status = entity.EventFailed
	logStatus := entity.DeliveryFailed
	if out.Delivered {
		evt.Status = entity.EventDelivered
		logStatus = entity.DeliveryDelivered
	}
	delete(m.claimedAt, out.EventID)

	for _, l := range m.logs {
		if l.EventID == out.EventID && l.ClinicID == out.ClinicID && sameEndpoint(l.EndpointID, out.EndpointID) {
			l.Status = logStatus
			l.ResponseCode = &status
			l.ResponseBody = &resp
		}
	}
	return nil
}

// helpers for assertions

func (m *memStore) event(id uuid.UUID) entity.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.events[id]
}

func (m *memStore) pendingRetries(eventID uuid.UUID) []entity.Retry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.Retry
	for _, r := range m.retries {
		if r.EventID == eventID && r.Status == entity.RetryPending {
			out = append(out, *r)
		}
	}
	return out
}

func (m *memStore) allRetries() []entity.Retry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]entity.Retry, 0, len(m.retries))
	for _, r := range m.retries {
		out = append(out, *r)
	}
	return out
}

func (m *memStore) deadLetterCount(eventID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, d := range m.deadLetters {
		if d.EventID == eventID {
			n++
		}
	}
	return n
}
