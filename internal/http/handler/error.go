package handler

import (
	"errors"
	"io"

	"github.com/gofiber/fiber/v2"

	"rentscore/internal/apperror"
	"rentscore/internal/http/middleware"
	"rentscore/internal/intake"
	"rentscore/internal/render"
	"rentscore/internal/workflow"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeError writes a standardized JSON error response. message must be safe to
// show; internal error text never goes here.
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

// writeAppError maps an *apperror.Error onto the envelope. Other errors become a
// generic internal error.
func writeAppError(c *fiber.Ctx, err error, fallback string) error {
	e, ok := apperror.As(err)
	if !ok {
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", fallback)
	}
	return writeError(c, e.StatusCode, codeFor(e.Type), apperror.Message(err, fallback))
}

func codeFor(t apperror.ErrorType) string {
	switch t {
	case apperror.TypeValidation:
		return "INVALID_FILE"
	case apperror.TypeNetwork:
		return "UPSTREAM_UNREACHABLE"
	case apperror.TypeUpstream:
		return "UPSTREAM_ERROR"
	case apperror.TypePayload:
		return "UPSTREAM_BAD_PAYLOAD"
	case apperror.TypeConflict:
		return "IN_PROGRESS"
	case apperror.TypeNotFound:
		return "NOT_FOUND"
	default:
		return "INTERNAL_ERROR"
	}
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		if _, ok := apperror.As(err); ok {
			return writeAppError(c, err, "internal server error")
		}

		status := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			// Bodies far beyond the statement limit are cut off before routing, so
			// there is no session to move into the error phase. Browsers still get
			// the upload page with the size message.
			if !wantsJSON(c) {
				return sendHTML(c, status, tooLargePage)
			}
			return writeError(c, status, "FILE_TOO_LARGE", intake.MsgTooLarge)
		default:
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}

func tooLargePage(w io.Writer) error {
	return render.WriteIntakeHTML(w, render.Intake(workflow.Snapshot{
		Phase:      workflow.PhaseError,
		Message:    intake.MsgTooLarge,
		Validation: true,
	}))
}
