package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"rentscore/internal/logging"
)

// RequestLogger logs each HTTP request as one JSON line with request_id, method,
// path, status and latency (milliseconds). Query strings and bodies are never
// logged; the analyze form carries the PDF password.
func RequestLogger(log *logging.Logger) fiber.Handler {
	log = log.With("http")

	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		rid, _ := c.Locals(RequestIDLocalKey).(string)
		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
		fields := map[string]any{
			"request_id": rid,
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     status,
			"latency":    float64(time.Since(start).Microseconds()) / 1000,
		}
		if status >= fiber.StatusInternalServerError {
			log.Warn("http_request", fields)
		} else {
			log.Info("http_request", fields)
		}
		return err
	}
}
