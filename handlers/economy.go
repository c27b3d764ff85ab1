package handlers

import (
	"lesson-league-system/services"

	"github.com/gofiber/fiber/v2"
)

type purchaseRequest struct {
	ItemID string `json:"item_id"`
}

// SetupEconomyRoutes registers streaks, hearts and the shop.
func SetupEconomyRoutes(api fiber.Router, auth fiber.Handler, economy *services.EconomyService) {
	api.Post("/streak/update", auth, func(c *fiber.Ctx) error {
		streak, err := economy.UpdateStreak(c.UserContext(), userID(c))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"streak": streak})
	})

	api.Post("/hearts/refill", auth, func(c *fiber.Ctx) error {
		st, err := economy.RefillHearts(c.UserContext(), userID(c))
		if err != nil {
			return err
		}
		return c.JSON(st)
	})

	api.Post("/hearts/deduct", auth, func(c *fiber.Ctx) error {
		st, err := economy.DeductHeart(c.UserContext(), userID(c))
		if err != nil {
			return err
		}
		return c.JSON(st)
	})

	// 🛒 Shop
	api.Get("/shop", auth, func(c *fiber.Ctx) error {
		items, err := economy.ListShop(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"items": items})
	})

	api.Post("/shop/purchase", auth, func(c *fiber.Ctx) error {
		var req purchaseRequest
		if err := parseBody(c, &req); err != nil {
			return err
		}
		res, err := economy.Purchase(c.UserContext(), userID(c), req.ItemID)
		if err != nil {
			return err
		}
		return c.JSON(res)
	})

	api.Get("/shop/inventory", auth, func(c *fiber.Ctx) error {
		inv, err := economy.Inventory(c.UserContext(), userID(c))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"inventory": inv})
	})
}
