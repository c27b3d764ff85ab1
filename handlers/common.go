package handlers

import (
	"strconv"

	"lesson-league-system/middleware"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
)

// NewApp builds the Fiber app shared by the server and the route tests.
// Params and query values are handed to services that keep them (progress
// rows, friend lists), so they must not alias Fiber's reused buffers.
func NewApp(bodyLimit int) *fiber.App {
	return fiber.New(fiber.Config{
		AppName:      "lesson-league-system",
		Immutable:    true,
		BodyLimit:    bodyLimit,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
		ErrorHandler: middleware.ErrorHandler,
	})
}

// parseBody decodes the JSON body into v or answers 400.
func parseBody(c *fiber.Ctx, v interface{}) error {
	if err := c.BodyParser(v); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	return nil
}

// scoreParam reads the required ?score= query parameter.
func scoreParam(c *fiber.Ctx) (int, error) {
	raw := c.Query("score")
	if raw == "" {
		return 0, fiber.NewError(fiber.StatusBadRequest, "score query parameter is required")
	}
	score, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, "score must be an integer")
	}
	return score, nil
}

func userID(c *fiber.Ctx) string {
	return middleware.UserID(c)
}
