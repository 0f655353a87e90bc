// Package handlers exposes the REST surface: auth, conversation CRUD, the
// message relay endpoint, and a liveness check.
package handlers

import (
	"github.com/gofiber/fiber/v2"
)

func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"ok": true})
}

// ErrorHandler is the app-level Fiber error handler: anything uncaught becomes
// a JSON message with the fiber error's status, defaulting to 500. Internal
// detail stays in the log, not the response.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"message": err.Error(),
	})
}
