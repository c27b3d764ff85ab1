package handlers

import (
	"lesson-league-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupPracticeRoutes(api fiber.Router, auth fiber.Handler, practice *services.PracticeService) {
	api.Get("/practice/mistakes", auth, func(c *fiber.Ctx) error {
		mistakes, err := practice.Mistakes(c.UserContext(), userID(c))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"mistakes": mistakes, "total": len(mistakes)})
	})

	api.Post("/practice/session", auth, func(c *fiber.Ctx) error {
		session, err := practice.Session(c.UserContext(), userID(c))
		if err != nil {
			return err
		}
		return c.JSON(session)
	})
}
