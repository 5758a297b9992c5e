package routes

import (
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/registry"
	"github.com/gofiber/fiber/v2"
)

const apiVersion = "v1"

func APIVersion(r *registry.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"version":            apiVersion,
			"datasetVersionCode": r.Config.Dataset.VersionCode,
		})
	}
}
