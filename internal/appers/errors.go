package appers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

type ErrorResp struct {
	StatusCode int    `json:"statusCode,omitempty"`
	StatusDesc string `json:"statusDesc,omitempty"`
}

func (e ErrorResp) Error() string {
	return e.StatusDesc
}

var (
	ErrEventNotFound = ErrorResp{
		http.StatusNotFound,
		"event not found",
	}
	ErrEndpointNotFound = ErrorResp{
		http.StatusNotFound,
		"endpoint not found",
	}
	ErrEventDeadLettered = ErrorResp{
		http.StatusConflict,
		"event is dead-lettered",
	}
	ErrNoEndpointConfigured = ErrorResp{
		http.StatusUnprocessableEntity,
		"no webhook endpoint configured for clinic",
	}
	ErrUnknownEventType = ErrorResp{
		StatusCode: http.StatusBadRequest,
		StatusDesc: "unknown event type",
	}
	ErrInvalidPayload = ErrorResp{
		StatusCode: http.StatusBadRequest,
		StatusDesc: "invalid payload",
	}
)

func SanitizeError(c *fiber.Ctx, err error) error {
	var errResp ErrorResp

	if ok := errors.As(err, &errResp); ok {
		return c.Status(errResp.StatusCode).JSON(fiber.Map{
			"message": err.Error(),
		})
	} else {
		return NewErr(c, http.StatusInternalServerError, err)
	}
}

func NewErr(ctx *fiber.Ctx, status int, err error) error {
	return ctx.Status(status).JSON(fiber.Map{
		"message": err.Error(),
	})
}
