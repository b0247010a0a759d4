package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// NewLogger logs every request with its status. Client errors are warnings, server errors are
// errors.
func NewLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		startTime := time.Now()
		err := c.Next()

		msg := "HTTP request"
		if err != nil {
			msg = err.Error()
			if fiberError, ok := err.(*fiber.Error); ok {
				c.Status(fiberError.Code)
			} else {
				c.Status(fiber.StatusInternalServerError)
			}
		}

		code := c.Response().StatusCode()

		ipAddress := c.IP()
		if forwarded := c.IPs(); len(forwarded) > 0 {
			ipAddress = forwarded[0]
		}

		requestContext := log.With().
			Int("status", code).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("ip", ipAddress).
			Dur("latency", time.Since(startTime)).
			Str("user-agent", c.Get(fiber.HeaderUserAgent))
		if source := c.Query("source"); source != "" {
			requestContext = requestContext.Str("source", source)
		}
		requestLogger := requestContext.Logger()

		var event *zerolog.Event
		switch {
		case code >= fiber.StatusInternalServerError:
			event = requestLogger.Error()
		case code >= fiber.StatusBadRequest:
			event = requestLogger.Warn()
		default:
			event = requestLogger.Info()
		}
		event.Msg(msg)

		return nil
	}
}
