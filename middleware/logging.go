package middleware

import (
	"time"

	"lesson-league-system/logging"
	"lesson-league-system/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

// RequestLogger logs one line per request and records its latency. Errors
// from the chain are rendered here so the logged status is the final one.
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		if chainErr := c.Next(); chainErr != nil {
			if err := c.App().Config().ErrorHandler(c, chainErr); err != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}
		elapsed := time.Since(start)
		status := c.Response().StatusCode()

		route := c.Route().Path
		if status == fiber.StatusNotFound {
			// unmatched requests report their raw path as the route; keep cardinality bounded
			route = "not_found"
		}
		metrics.ObserveHTTP(c.Method(), route, status, elapsed)

		ev := logging.Debug()
		if status >= fiber.StatusInternalServerError {
			ev = logging.Warn()
		}
		ev.Str("request_id", requestID(c)).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("latency", elapsed).
			Str("user_id", UserID(c)).
			Msg("[HTTP]")
		return nil
	}
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals(requestid.ConfigDefault.ContextKey).(string); ok {
		return id
	}
	return c.GetRespHeader(fiber.HeaderXRequestID)
}
