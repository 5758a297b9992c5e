package routes

import (
	"context"

	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/registry"
	"github.com/gofiber/fiber/v2"
)

func statusResponse(r *registry.Registry) fiber.Map {
	status := r.Manager.Status()
	response := fiber.Map{
		"state":        status.State,
		"progress":     status.Progress,
		"isProcessing": status.State.IsProcessing(),
	}
	if idx := r.Manager.Index(); idx != nil {
		response["routes"] = idx.RouteCount()
		response["stops"] = idx.StopCount()
	}
	return response
}

func GetStatus(r *registry.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(statusResponse(r))
	}
}

// PostUpdate starts a dataset refresh in the background and reports the state it started from
func PostUpdate(r *registry.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		r.Manager.CheckUpdateAsync(context.Background(), c.QueryBool("suppressCheck", false))

		c.Status(fiber.StatusAccepted)
		return c.JSON(statusResponse(r))
	}
}
