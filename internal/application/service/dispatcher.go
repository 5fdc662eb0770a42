package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/gofrs/uuid"

	"github.com/agenciaspace/clinione-sub001/internal/appers"
	"github.com/agenciaspace/clinione-sub001/internal/application/common"
	"github.com/agenciaspace/clinione-sub001/internal/application/entity"
	"github.com/agenciaspace/clinione-sub001/pkg/signer"
)

const (
	HeaderEventType  = "X-Event-Type"
	HeaderDeliveryID = "X-Delivery-Id"

	defaultUserAgent     = "Clinio-Webhooks/1.0"
	defaultResponseLimit = 500
	defaultTimeout       = 10 * time.Second
)

// ProcessEvent dispatches one event, to endpointID only when it is set,
// otherwise to every endpoint the resolution policy selects.
func (s *ServiceImpl) ProcessEvent(ctx context.Context, eventID uuid.UUID, endpointID *uuid.UUID) (entity.DeliveryResult, error) {
	s.logger.Debugf("[event: %s] ProcessEvent started", eventID)

	evt, err := s.repo.GetEvent(ctx, eventID)
	if err != nil {
		return entity.DeliveryResult{EventID: eventID}, err
	}

	dead, err := s.repo.IsDeadLettered(ctx, eventID)
	if err != nil {
		return entity.DeliveryResult{EventID: eventID}, err
	}
	if dead {
		s.logger.Warnf("[event: %s] refusing to process a dead-lettered event", eventID)
		return entity.DeliveryResult{EventID: eventID}, appers.ErrEventDeadLettered
	}

	return s.dispatch(ctx, evt, endpointID)
}

func (s *ServiceImpl) dispatch(ctx context.Context, evt *entity.Event, endpointID *uuid.UUID) (entity.DeliveryResult, error) {
	result := entity.DeliveryResult{EventID: evt.ID}

	var targets []entity.Target
	if endpointID != nil {
		ep, err := s.repo.GetEndpoint(ctx, evt.ClinicID, *endpointID)
		if err != nil {
			return result, err
		}
		if !ep.IsActive {
			s.logger.Warnf("[event: %s endpoint: %s] endpoint is inactive", evt.ID, ep.ID)
			return result, appers.ErrEndpointNotFound
		}
		targets = []entity.Target{entity.TargetFromEndpoint(*ep)}
	} else {
		var err error
		targets, err = s.ResolveEndpoints(ctx, evt)
		if errors.Is(err, appers.ErrNoEndpointConfigured) {
			result.Error = s.failUnconfigured(ctx, evt)
			return result, nil
		}
		if err != nil {
			return result, err
		}
	}

	result.Delivered = true
	for _, target := range targets {
		tr := s.Deliver(ctx, evt, target)
		result.Targets = append(result.Targets, tr)
		if !tr.Delivered {
			result.Delivered = false
		}
	}

	return result, nil
}

// ResolveEndpoints selects the clinic's active endpoints accepting the event type,
// falling back to the legacy clinic url. ErrNoEndpointConfigured when neither exists.
func (s *ServiceImpl) ResolveEndpoints(ctx context.Context, evt *entity.Event) ([]entity.Target, error) {
	endpoints, err := s.repo.ListActiveEndpoints(ctx, evt.ClinicID)
	if err != nil {
		return nil, err
	}

	targets := make([]entity.Target, 0, len(endpoints))
	for _, ep := range endpoints {
		if ep.ClinicID != evt.ClinicID || !ep.Accepts(evt.EventType) {
			continue
		}
		targets = append(targets, entity.TargetFromEndpoint(ep))
	}
	if len(targets) > 0 {
		return targets, nil
	}

	legacy, err := s.repo.GetLegacyWebhook(ctx, evt.ClinicID)
	if err != nil {
		return nil, err
	}
	if !legacy.Configured() {
		return nil, appers.ErrNoEndpointConfigured
	}

	s.logger.Debugf("[event: %s clinic: %s] using legacy clinic webhook", evt.ID, evt.ClinicID)
	return []entity.Target{entity.TargetFromLegacy(legacy)}, nil
}

// failUnconfigured marks the event failed without counting an attempt or scheduling a retry.
func (s *ServiceImpl) failUnconfigured(ctx context.Context, evt *entity.Event) string {
	msg := fmt.Sprintf("%s %s", appers.ErrNoEndpointConfigured.Error(), evt.ClinicID)
	s.logger.Warnf("[event: %s clinic: %s] %s", evt.ID, evt.ClinicID, msg)

	if err := s.repo.MarkEventFailed(ctx, evt.ClinicID, evt.ID, 0, msg); err != nil {
		s.logger.Errorf("[event: %s] mark failed: %v", evt.ID, err)
	}
	evt.Status = entity.EventFailed
	if s.m != nil {
		s.m.Delivery.ConfigErrorsTotal.Inc()
	}
	return msg
}

// Deliver makes one attempt of evt to target and records the outcome. A failed
// attempt schedules a retry, or dead-letters the event once the budget is used up.
func (s *ServiceImpl) Deliver(ctx context.Context, evt *entity.Event, target entity.Target) entity.TargetResult {
	res := entity.TargetResult{EndpointID: target.EndpointID, URL: target.URL}

	body, encodeErr := s.encode(evt)

	var signature string
	if encodeErr == nil {
		var err error
		signature, err = s.signer.Sign(body, target.Secret)
		if err != nil {
			s.logger.Warnf("[event: %s endpoint: %s] signing failed, sending unsigned: %v", evt.ID, target, err)
			signature = ""
			if s.m != nil {
				s.m.Delivery.SignatureErrorsTotal.Inc()
			}
		}
	}

	startedAt := s.now()
	persisted := true
	attempt, err := s.transactions.StartAttempt(ctx, target, evt, startedAt)
	if errors.Is(err, appers.ErrEventNotFound) {
		res.Error = err.Error()
		return res
	}
	if err != nil {
		// keep going, the row will be reconciled by the next attempt.
		// The pair's attempt number is unknown, so the budget is not checked for this one.
		s.logger.Errorf("[event: %s endpoint: %s] start attempt not persisted: %v", evt.ID, target, err)
		persisted = false
		attempt = entity.Attempt{EventAttempts: evt.Attempts + 1, StartedAt: startedAt}
	}
	evt.Attempts = attempt.EventAttempts
	evt.LastAttempt = &startedAt
	evt.Status = entity.EventInProgress
	res.Attempt = attempt.EndpointAttempt

	var (
		status   int
		response string
		result   string
	)
	if encodeErr != nil {
		response, result = encodeErr.Error(), "transport_error"
	} else {
		status, response, err = s.post(ctx, evt, target, body, signature)
		switch {
		case err != nil:
			response, result = err.Error(), "transport_error"
		case status >= http.StatusOK && status < http.StatusMultipleChoices:
			result = "delivered"
		default:
			result = "http_error"
		}
	}
	response = common.Truncate(response, s.responseLimit())
	delivered := result == "delivered"

	if s.m != nil {
		s.m.Delivery.AttemptsTotal.WithLabelValues(result).Inc()
		s.m.Delivery.AttemptDuration.WithLabelValues(result).Observe(s.now().Sub(startedAt).Seconds())
	}

	out := entity.AttemptOutcome{
		ClinicID:   target.ClinicID,
		EventID:    evt.ID,
		EndpointID: target.EndpointID,
		Delivered:  delivered,
		HTTPStatus: status,
		Response:   response,
	}
	if err := s.transactions.FinishAttempt(ctx, out); err != nil {
		s.logger.Errorf("[event: %s endpoint: %s] outcome not persisted: %v", evt.ID, target, err)
	}

	evt.HTTPStatus = &status
	evt.LastResponse = &response
	res.HTTPStatus = status
	res.Delivered = delivered

	if delivered {
		evt.Status = entity.EventDelivered
		s.logger.Infof("[event: %s endpoint: %s] delivered, status=%d attempt=%d", evt.ID, target, status, attempt.EndpointAttempt)
		return res
	}

	evt.Status = entity.EventFailed
	res.Error = response
	s.logger.Warnf("[event: %s endpoint: %s] delivery failed, status=%d attempt=%d: %s", evt.ID, target, status, attempt.EndpointAttempt, response)

	if persisted && attempt.EndpointAttempt >= s.maxAttempts() {
		s.DeadLetter(ctx, evt, target, attempt.EndpointAttempt, failureMessage(status, response))
		return res
	}
	s.ScheduleRetry(ctx, evt.ID, target, attempt.EndpointAttempt)

	return res
}

// encode serializes the envelope once, the same bytes are signed and sent.
func (s *ServiceImpl) encode(evt *entity.Event) ([]byte, error) {
	env := entity.NewEnvelope(*evt, s.cfg.Delivery.EventVersion)

	body, err := signer.CanonicalizeWithRaw(env, "payload", env.Payload)
	if err == nil {
		return body, nil
	}
	s.logger.Warnf("[event: %s] canonical encoding failed, using plain json: %v", evt.ID, err)

	body, err = json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return body, nil
}

func (s *ServiceImpl) post(ctx context.Context, evt *entity.Event, target entity.Target, body []byte, signature string) (int, string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.URL, bytes.NewReader(body))
	if err != nil {
		return 0, "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", s.userAgent())
	req.Header.Set(HeaderEventType, string(evt.EventType))
	req.Header.Set(HeaderDeliveryID, evt.ID.String())
	if signature != "" {
		req.Header.Set(signer.Header, signature)
	}

	resp, err := s.client.Do(ctx, req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	limit := int64(s.responseLimit()) + utf8.UTFMax
	raw, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		s.logger.Debugf("[event: %s endpoint: %s] reading response body: %v", evt.ID, target, err)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	return resp.StatusCode, string(raw), nil
}

func failureMessage(status int, response string) string {
	if status == 0 {
		return response
	}
	if response == "" {
		return fmt.Sprintf("HTTP %d", status)
	}
	return fmt.Sprintf("HTTP %d: %s", status, response)
}

func (s *ServiceImpl) timeout() time.Duration {
	if s.cfg.Delivery.Timeout > 0 {
		return s.cfg.Delivery.Timeout
	}
	return defaultTimeout
}

func (s *ServiceImpl) userAgent() string {
	if s.cfg.Delivery.UserAgent != "" {
		return s.cfg.Delivery.UserAgent
	}
	return defaultUserAgent
}

func (s *ServiceImpl) responseLimit() int {
	if s.cfg.Delivery.ResponseLimit > 0 {
		return s.cfg.Delivery.ResponseLimit
	}
	return defaultResponseLimit
}
