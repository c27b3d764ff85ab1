// handlers/progression_routes.go
package handlers

import (
	"lesson-league-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupProgressionRoutes(api fiber.Router, auth fiber.Handler, progress *services.ProgressService, progression *services.ProgressionService, achievements *services.AchievementService) {
	api.Post("/lessons/:id/complete", auth, func(c *fiber.Ctx) error {
		score, err := scoreParam(c)
		if err != nil {
			return err
		}
		res, err := progress.CompleteLesson(c.UserContext(), userID(c), c.Params("id"), score)
		if err != nil {
			return err
		}
		return c.JSON(res)
	})

	api.Post("/stories/:id/complete", auth, func(c *fiber.Ctx) error {
		score, err := scoreParam(c)
		if err != nil {
			return err
		}
		res, err := progress.CompleteStory(c.UserContext(), userID(c), c.Params("id"), score)
		if err != nil {
			return err
		}
		return c.JSON(res)
	})

	api.Get("/skill-tree", auth, func(c *fiber.Ctx) error {
		tree, err := progress.SkillTree(c.UserContext(), userID(c))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"skill_tree": tree})
	})

	api.Get("/daily-goal", auth, func(c *fiber.Ctx) error {
		goal, err := progression.DailyGoal(c.UserContext(), userID(c))
		if err != nil {
			return err
		}
		return c.JSON(goal)
	})

	// ✅ Achievements
	api.Get("/achievements", auth, func(c *fiber.Ctx) error {
		list, err := achievements.List(c.UserContext(), userID(c))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"achievements": list})
	})

	api.Post("/achievements/check", auth, func(c *fiber.Ctx) error {
		awarded, err := achievements.Evaluate(c.UserContext(), userID(c))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"new_achievements": awarded, "count": len(awarded)})
	})
}
