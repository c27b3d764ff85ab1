package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupHealthRoutes registers the liveness check and the Prometheus endpoint.
func SetupHealthRoutes(app *fiber.App, api fiber.Router) {
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy", "message": "Lesson League API is running"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
}
