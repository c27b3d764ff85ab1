package handlers

import (
	"lesson-league-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupAuthRoutes(api fiber.Router, auth fiber.Handler, accounts *services.AccountService) {
	// 🔓 Public
	api.Post("/auth/register", func(c *fiber.Ctx) error {
		var req services.RegisterRequest
		if err := parseBody(c, &req); err != nil {
			return err
		}
		res, err := accounts.Register(c.UserContext(), req)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	})

	api.Post("/auth/login", func(c *fiber.Ctx) error {
		var req services.LoginRequest
		if err := parseBody(c, &req); err != nil {
			return err
		}
		res, err := accounts.Login(c.UserContext(), req)
		if err != nil {
			return err
		}
		return c.JSON(res)
	})

	// 🔐 Secured
	api.Get("/user/profile", auth, func(c *fiber.Ctx) error {
		profile, err := accounts.Profile(c.UserContext(), userID(c))
		if err != nil {
			return err
		}
		return c.JSON(profile)
	})

	api.Post("/user/update-preferences", auth, func(c *fiber.Ctx) error {
		var req services.PreferencesRequest
		if err := parseBody(c, &req); err != nil {
			return err
		}
		profile, err := accounts.UpdatePreferences(c.UserContext(), userID(c), req)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"message": "Preferences updated", "user": profile})
	})
}
