package routes

import (
	"errors"

	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/registry"
	"github.com/gofiber/fiber/v2"
)

func sendError(c *fiber.Ctx, status int, message string) error {
	c.Status(status)
	return c.JSON(fiber.Map{
		"error": message,
	})
}

// sendRegistryError maps registry failures onto a status, 503 while the dataset is loading
func sendRegistryError(c *fiber.Ctx, err error) error {
	if errors.Is(err, registry.ErrNotReady) {
		return sendError(c, fiber.StatusServiceUnavailable, "Dataset is still loading")
	}
	return sendError(c, fiber.StatusInternalServerError, err.Error())
}
