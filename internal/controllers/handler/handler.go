package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	playgroundvalidator "github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofrs/uuid"
	"go.uber.org/zap"

	"github.com/agenciaspace/clinione-sub001/internal/appers"
	"github.com/agenciaspace/clinione-sub001/internal/application/common"
	"github.com/agenciaspace/clinione-sub001/internal/application/entity"
	"github.com/agenciaspace/clinione-sub001/internal/application/use-cases"
	"github.com/agenciaspace/clinione-sub001/internal/controllers/listener"
)

const maxDeadLetterLimit = 500

type Handler interface {
	TriggerEvent(c *fiber.Ctx) error
	ProcessPending(c *fiber.Ctx) error
	ProcessRetries(c *fiber.Ctx) error
	ProcessEvent(c *fiber.Ctx) error
	GetEvent(c *fiber.Ctx) error
	ListDeliveries(c *fiber.Ctx) error
	ListDeadLetters(c *fiber.Ctx) error
	ListSubscriptions(c *fiber.Ctx) error
	ActivateSubscription(c *fiber.Ctx) error
	DeactivateSubscription(c *fiber.Ctx) error
	HealthCheck(c *fiber.Ctx) error
}

type HandlerImpl struct {
	usecase       use_cases.UseCaser
	subscriptions listener.Subscriptions
	logger        *zap.SugaredLogger
}

func NewWebhookHandler(usecase use_cases.UseCaser, subscriptions listener.Subscriptions, logger *zap.SugaredLogger) *HandlerImpl {
	return &HandlerImpl{
		usecase:       usecase,
		subscriptions: subscriptions,
		logger:        logger,
	}
}

type TriggerResponse struct {
	ID uuid.UUID `json:"id" example:"5d0c1f36-5f3e-4c55-9a53-0a4e8f3b9c21"`
}

// formatValidationErrors turns validator errors into one readable line per field.
func formatValidationErrors(err error) fiber.Map {
	var details []string
	var validationErrors playgroundvalidator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			field := e.Field()
			var message string
			switch e.Tag() {
			case "required":
				message = fmt.Sprintf("field '%s' is required", field)
			case "required_without":
				message = fmt.Sprintf("field '%s' is required when '%s' is missing", field, e.Param())
			case "uuid":
				message = fmt.Sprintf("field '%s' must be a UUID", field)
			case "email":
				message = fmt.Sprintf("field '%s' must be an email address", field)
			case "event_type":
				message = fmt.Sprintf("field '%s' is not a known event type", field)
			case "trigger_source":
				message = fmt.Sprintf("field '%s' must be one of ui, api, automation, system", field)
			case "rfc3339", "rfc3339_optional":
				message = fmt.Sprintf("field '%s' must be RFC3339 (e.g. 2026-01-20T15:00:00Z)", field)
			default:
				message = fmt.Sprintf("field '%s' failed validation: %s", field, e.Tag())
			}
			details = append(details, message)
		}
	} else {
		details = append(details, err.Error())
	}
	return fiber.Map{
		"error":   "validation failed",
		"details": details,
	}
}

func parseUUID(name, raw string) (uuid.UUID, error) {
	id, err := uuid.FromString(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s must be a UUID", name)
	}
	return id, nil
}

// HealthCheck godoc
// @Summary     Service health
// @Description Checks PostgreSQL and, when enabled, Kafka.
// @Produce     json
// @Success     200   {object} entity.HealthCheckResponse "all dependencies are up"
// @Failure     503   {object} entity.HealthCheckResponse "a dependency is down"
// @tags        Health
// @Router      /health [get]
func (h *HandlerImpl) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	health := h.usecase.HealthCheck(ctx)

	resp := entity.HealthCheckResponse{
		Status:  health.Database && health.Kafka,
		Message: "success",
		Version: common.Version,
		Checks: entity.HealthCheckResponseData{
			Database: entity.HealthCheckItem{Status: health.Database, Enabled: true, Type: "postgresql"},
			Kafka:    entity.HealthCheckItem{Status: health.Kafka, Enabled: health.KafkaEnabled, Type: "kafka"},
		},
	}
	if !health.Database {
		resp.Checks.Database.Error = "Database connection failed"
		resp.Message = "Some services are unavailable"
	}
	if !health.Kafka {
		resp.Checks.Kafka.Error = "Kafka connection failed"
		resp.Message = "Some services are unavailable"
	}

	if !resp.Status {
		return c.Status(fiber.StatusServiceUnavailable).JSON(resp)
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

// TriggerEvent godoc
// @Summary     Trigger a webhook event
// @Description Validates the event against the taxonomy and stores it as pending. Delivery happens asynchronously
// @Description unless deliver_now is set, in which case the first attempt is made before responding.
// @Accept      json
// @Produce     json
// @Param       body         body     entity.TriggerRequest  true   "Event"
// @Param       deliver_now  query    bool                   false  "Attempt delivery right away"
// @Success     202  {object} TriggerResponse
// @Failure     400
// @Failure     500
// @tags        Events
// @Router      /v1/events [post]
func (h *HandlerImpl) TriggerEvent(c *fiber.Ctx) error {
	var req entity.TriggerRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Warnf("error parsing body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	trigger, err := req.ToTrigger()
	if err != nil {
		h.logger.Warnf("trigger rejected: %v", err)
		if errors.Is(err, appers.ErrUnknownEventType) {
			return appers.SanitizeError(c, err)
		}
		return c.Status(fiber.StatusBadRequest).JSON(formatValidationErrors(err))
	}

	id, err := h.usecase.TriggerWebhook(c.UserContext(), trigger, c.QueryBool("deliver_now"))
	if err != nil {
		return appers.SanitizeError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(TriggerResponse{ID: id})
}

// ProcessPending godoc
// @Summary     Process pending events
// @Description Claims a batch of pending events and attempts delivery.
// @Produce     json
// @Success     200  {object} entity.SweepResult
// @Failure     500
// @tags        Processing
// @Router      /v1/process-pending [post]
func (h *HandlerImpl) ProcessPending(c *fiber.Ctx) error {
	res, err := h.usecase.ProcessPendingEvents(c.UserContext())
	if err != nil {
		return appers.SanitizeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(res)
}

// ProcessRetries godoc
// @Summary     Process due retries
// @Description Claims retries whose time has come and resubmits them.
// @Produce     json
// @Success     200  {object} entity.SweepResult
// @Failure     500
// @tags        Processing
// @Router      /v1/process-retries [post]
func (h *HandlerImpl) ProcessRetries(c *fiber.Ctx) error {
	res, err := h.usecase.ProcessRetries(c.UserContext())
	if err != nil {
		return appers.SanitizeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(res)
}

// ProcessEvent godoc
// @Summary     Process one event
// @Description Forces a delivery attempt of the event, to one endpoint when endpoint_id is given.
// @Produce     json
// @Param       id           path     string  true   "Event ID"
// @Param       endpoint_id  query    string  false  "Endpoint ID"
// @Success     200  {object} entity.DeliveryResult
// @Failure     400
// @Failure     404
// @Failure     409
// @Failure     500
// @tags        Processing
// @Router      /v1/events/{id}/process [post]
func (h *HandlerImpl) ProcessEvent(c *fiber.Ctx) error {
	eventID, err := parseUUID("id", c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var endpointID *uuid.UUID
	if raw := c.Query("endpoint_id"); raw != "" {
		id, err := parseUUID("endpoint_id", raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		endpointID = &id
	}

	res, err := h.usecase.ProcessEvent(c.UserContext(), eventID, endpointID)
	if err != nil {
		return appers.SanitizeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(res)
}

// GetEvent godoc
// @Summary     Get an event
// @Produce     json
// @Param       id   path     string  true  "Event ID"
// @Success     200  {object} entity.Event
// @Failure     400
// @Failure     404
// @tags        Events
// @Router      /v1/events/{id} [get]
func (h *HandlerImpl) GetEvent(c *fiber.Ctx) error {
	id, err := parseUUID("id", c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	evt, err := h.usecase.GetEvent(c.UserContext(), id)
	if err != nil {
		return appers.SanitizeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(evt)
}

// ListDeliveries godoc
// @Summary     Delivery log of an event
// @Description One row per endpoint the event was sent to.
// @Produce     json
// @Param       id   path     string  true  "Event ID"
// @Success     200  {array}  entity.DeliveryLog
// @Failure     400
// @Failure     404
// @tags        Events
// @Router      /v1/events/{id}/deliveries [get]
func (h *HandlerImpl) ListDeliveries(c *fiber.Ctx) error {
	id, err := parseUUID("id", c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	logs, err := h.usecase.ListDeliveries(c.UserContext(), id)
	if err != nil {
		return appers.SanitizeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(logs)
}

// ListDeadLetters godoc
// @Summary     Dead letters
// @Description Events that used up their delivery attempts, newest first.
// @Produce     json
// @Param       clinic_id  query    string  false  "Clinic ID"
// @Param       limit      query    int     false  "Max rows (default 100, max 500)"
// @Success     200  {array}  entity.DeadLetter
// @Failure     400
// @tags        Dead letters
// @Router      /v1/dead-letters [get]
func (h *HandlerImpl) ListDeadLetters(c *fiber.Ctx) error {
	var clinicID *uuid.UUID
	if raw := c.Query("clinic_id"); raw != "" {
		id, err := parseUUID("clinic_id", raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		clinicID = &id
	}

	var limit uint64
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || n == 0 || n > maxDeadLetterLimit {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": fmt.Sprintf("limit must be between 1 and %d", maxDeadLetterLimit),
			})
		}
		limit = n
	}

	dls, err := h.usecase.ListDeadLetters(c.UserContext(), clinicID, limit)
	if err != nil {
		return appers.SanitizeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(dls)
}

// ListSubscriptions godoc
// @Summary     Change stream subscriptions
// @Produce     json
// @Success     200  {object} listener.SubscriptionState
// @tags        Subscriptions
// @Router      /v1/subscriptions [get]
func (h *HandlerImpl) ListSubscriptions(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(h.subscriptions.Snapshot())
}

// ActivateSubscription godoc
// @Summary     Activate a clinic
// @Description Change events of the clinic start producing webhooks.
// @Param       clinic_id  path  string  true  "Clinic ID"
// @Success     204
// @Failure     400
// @tags        Subscriptions
// @Router      /v1/subscriptions/{clinic_id} [put]
func (h *HandlerImpl) ActivateSubscription(c *fiber.Ctx) error {
	id, err := parseUUID("clinic_id", c.Params("clinic_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	h.subscriptions.Activate(id)
	return c.SendStatus(fiber.StatusNoContent)
}

// DeactivateSubscription godoc
// @Summary     Deactivate a clinic
// @Description Change events of the clinic are ignored. Events already stored are still delivered.
// @Param       clinic_id  path  string  true  "Clinic ID"
// @Success     204
// @Failure     400
// @tags        Subscriptions
// @Router      /v1/subscriptions/{clinic_id} [delete]
func (h *HandlerImpl) DeactivateSubscription(c *fiber.Ctx) error {
	id, err := parseUUID("clinic_id", c.Params("clinic_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	h.subscriptions.Deactivate(id)
	return c.SendStatus(fiber.StatusNoContent)
}
