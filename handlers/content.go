package handlers

import (
	"lesson-league-system/services"
	"lesson-league-system/utils"

	"github.com/gofiber/fiber/v2"
)

// SetupContentRoutes registers lessons, stories and exercise grading.
// Curriculum import additionally passes admin; maxImportBytes caps uploads.
func SetupContentRoutes(api fiber.Router, auth, admin fiber.Handler, content *services.ContentService, exercises *services.ExerciseService, maxImportBytes int64) {
	lessons := api.Group("/lessons")

	lessons.Get("/", auth, func(c *fiber.Ctx) error {
		list, err := content.ListLessons(c.UserContext(), userID(c))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"lessons": list})
	})

	lessons.Post("/generate", auth, func(c *fiber.Ctx) error {
		var req services.GenerateRequest
		if err := parseBody(c, &req); err != nil {
			return err
		}
		lesson, created, err := content.GenerateLesson(c.UserContext(), req)
		if err != nil {
			return err
		}
		if !created {
			return c.JSON(fiber.Map{"message": "Lesson already exists", "lesson": lesson})
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Lesson created successfully", "lesson": lesson})
	})

	lessons.Post("/import", auth, admin, func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "file is required")
		}
		f, err := utils.OpenUpload(fh, maxImportBytes, ".xlsx")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		defer f.Close()

		res, err := content.ImportCurriculum(c.UserContext(), f)
		if err != nil {
			return err
		}
		return c.JSON(res)
	})

	lessons.Get("/:id", auth, func(c *fiber.Ctx) error {
		lesson, err := content.GetLesson(c.UserContext(), c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(lesson)
	})

	api.Post("/exercises/submit", auth, func(c *fiber.Ctx) error {
		var req services.SubmitRequest
		if err := parseBody(c, &req); err != nil {
			return err
		}
		res, err := exercises.Submit(c.UserContext(), userID(c), req)
		if err != nil {
			return err
		}
		return c.JSON(res)
	})

	stories := api.Group("/stories")

	stories.Get("/", auth, func(c *fiber.Ctx) error {
		list, err := content.ListStories(c.UserContext(), userID(c))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"stories": list})
	})

	stories.Post("/generate", auth, func(c *fiber.Ctx) error {
		var req services.GenerateRequest
		if err := parseBody(c, &req); err != nil {
			return err
		}
		story, created, err := content.GenerateStory(c.UserContext(), req)
		if err != nil {
			return err
		}
		if !created {
			return c.JSON(fiber.Map{"message": "Story already exists", "story": story})
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Story created successfully", "story": story})
	})

	stories.Get("/:id", auth, func(c *fiber.Ctx) error {
		story, err := content.GetStory(c.UserContext(), c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(story)
	})
}
