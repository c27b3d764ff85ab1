package middleware

import (
	"errors"

	"lesson-league-system/logging"
	"lesson-league-system/services"

	"github.com/gofiber/fiber/v2"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Classify maps an error to its HTTP status and response body.
func Classify(err error) (int, ErrorResponse) {
	var appErr *services.AppError
	if errors.As(err, &appErr) {
		switch {
		case errors.Is(appErr, services.ErrAuthentication):
			return fiber.StatusUnauthorized, ErrorResponse{"authentication_error", appErr.Message}
		case errors.Is(appErr, services.ErrNotFound):
			return fiber.StatusNotFound, ErrorResponse{"not_found", appErr.Message}
		case errors.Is(appErr, services.ErrValidation):
			return fiber.StatusBadRequest, ErrorResponse{"validation_error", appErr.Message}
		case errors.Is(appErr, services.ErrUpstreamGeneration):
			return fiber.StatusInternalServerError, ErrorResponse{"upstream_generation_error", appErr.Message}
		}
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		switch fe.Code {
		case fiber.StatusNotFound:
			return fe.Code, ErrorResponse{"not_found", fe.Message}
		case fiber.StatusUnauthorized, fiber.StatusForbidden:
			return fe.Code, ErrorResponse{"authentication_error", fe.Message}
		}
		if fe.Code >= 400 && fe.Code < 500 {
			return fe.Code, ErrorResponse{"validation_error", fe.Message}
		}
		return fe.Code, ErrorResponse{"internal_error", fe.Message}
	}

	return fiber.StatusInternalServerError, ErrorResponse{"internal_error", "Internal server error"}
}

// ErrorHandler is the fiber.Config ErrorHandler. Unknown errors are logged
// and answered with a generic 500.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status, body := Classify(err)
	if status >= fiber.StatusInternalServerError {
		logging.Error().Err(err).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Msg("❌ [HTTP] request failed")
	}
	return c.Status(status).JSON(body)
}
