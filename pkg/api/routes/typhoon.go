package routes

import (
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/registry"
	"github.com/gofiber/fiber/v2"
)

func TyphoonRouter(router fiber.Router, r *registry.Registry) {
	router.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(r.Typhoon.Get(c.Context(), requestLanguage(c)))
	})
}
