package api

import (
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/abhisek/lumora/internal/course"
	"github.com/abhisek/lumora/internal/quiz"
	"github.com/abhisek/lumora/internal/store"
	"github.com/abhisek/lumora/internal/transcript"
)

// envelope is the body of every API response.
type envelope struct {
	Status  string            `json:"status"`
	Message string            `json:"message,omitempty"`
	Data    any               `json:"data,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func ok(c *fiber.Ctx, data any) error {
	return c.Status(fiber.StatusOK).JSON(envelope{Status: "success", Data: data})
}

func created(c *fiber.Ctx, data any) error {
	return c.Status(fiber.StatusCreated).JSON(envelope{Status: "success", Data: data})
}

func fail(c *fiber.Ctx, code int, msg string) error {
	return c.Status(code).JSON(envelope{Status: "error", Message: msg})
}

func invalidFields(c *fiber.Ctx, err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return fail(c, fiber.StatusBadRequest, "invalid input")
	}
	fields := make(map[string]string, len(ve))
	for _, fe := range ve {
		fields[fe.Field()] = fe.Tag()
	}
	return c.Status(fiber.StatusUnprocessableEntity).JSON(envelope{
		Status:  "error",
		Message: "validation failed",
		Errors:  fields,
	})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var (
		fe      *fiber.Error
		verr    *quiz.ValidationError
		storage *store.StorageError
	)
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, course.ErrVideoLocked):
		return fiber.StatusForbidden
	case errors.Is(err, store.ErrNotFound), errors.Is(err, course.ErrVideoNotInCourse):
		return fiber.StatusNotFound
	case errors.Is(err, course.ErrInvalid), errors.Is(err, transcript.ErrEmpty),
		errors.Is(err, quiz.ErrBadSubmission), errors.As(err, &verr):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, quiz.ErrNoGenerator), errors.Is(err, transcript.ErrNoTranscriber), errors.Is(err, errNoAssistant):
		return fiber.StatusServiceUnavailable
	case errors.As(err, &storage):
		return fiber.StatusInternalServerError
	}
	return fiber.StatusInternalServerError
}

// errorHandler renders handler errors in the response envelope. Server
// errors are logged and their details withheld from the client.
func errorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := statusFor(err)
		msg := err.Error()
		if code >= fiber.StatusInternalServerError && code != fiber.StatusServiceUnavailable {
			logger.Error("request failed", "method", c.Method(), "path", c.Path(), "err", err)
			msg = "internal error"
		}
		return fail(c, code, msg)
	}
}
