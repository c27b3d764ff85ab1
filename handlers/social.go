package handlers

import (
	"lesson-league-system/services"

	"github.com/gofiber/fiber/v2"
)

// SetupSocialRoutes registers the leaderboard, friends and leagues.
func SetupSocialRoutes(api fiber.Router, auth fiber.Handler, social *services.SocialService, leagues *services.LeagueService) {
	// 🔓 Public
	api.Get("/leaderboard", func(c *fiber.Ctx) error {
		board, err := social.Leaderboard(c.UserContext(), c.QueryInt("limit", services.DefaultLeaderboardLimit))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"leaderboard": board})
	})

	// 🔐 Friends
	api.Get("/friends", auth, func(c *fiber.Ctx) error {
		friends, err := social.Friends(c.UserContext(), userID(c))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"friends": friends})
	})

	api.Post("/friends/add", auth, func(c *fiber.Ctx) error {
		var req services.AddFriendRequest
		if err := parseBody(c, &req); err != nil {
			return err
		}
		friend, err := social.AddFriend(c.UserContext(), userID(c), req)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"message": "Friend added", "friend": friend})
	})

	api.Delete("/friends/:id", auth, func(c *fiber.Ctx) error {
		if err := social.RemoveFriend(c.UserContext(), userID(c), c.Params("id")); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"message": "Friend removed"})
	})

	// 🏆 Leagues
	api.Get("/league/standings", auth, func(c *fiber.Ctx) error {
		st, err := leagues.Standings(c.UserContext(), userID(c))
		if err != nil {
			return err
		}
		return c.JSON(st)
	})

	api.Post("/league/join", auth, func(c *fiber.Ctx) error {
		st, err := leagues.Join(c.UserContext(), userID(c))
		if err != nil {
			return err
		}
		return c.JSON(st)
	})
}
