package routes

import (
	"strings"

	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/registry"
	"github.com/gofiber/fiber/v2"
)

func NearbyRouter(router fiber.Router, r *registry.Registry) {
	router.Get("/", getNearby(r))
}

func getNearby(r *registry.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lat := c.QueryFloat("lat", 0)
		lng := c.QueryFloat("lng", 0)
		if lat == 0 || lng == 0 {
			return sendError(c, fiber.StatusBadRequest, "lat and lng are required")
		}

		excluded := map[string]bool{}
		if exclude := c.Query("exclude"); exclude != "" {
			for _, routeNumber := range strings.Split(exclude, ",") {
				excluded[strings.TrimSpace(routeNumber)] = true
			}
		}

		result, err := r.NearbyRoutes(lat, lng, excluded, c.QueryBool("interchange", false))
		if err != nil {
			return sendRegistryError(c, err)
		}

		dtos := make([]SearchResultDTO, len(result.Result))
		for i, entry := range result.Result {
			dtos[i] = newSearchResultDTO(entry)
		}
		reduced, err := reduce(dtos, "basic")
		if err != nil {
			return sendError(c, fiber.StatusInternalServerError, "Sheriff could not reduce nearby routes")
		}

		response := fiber.Map{
			"routes":          reduced,
			"closestStopId":   result.ClosestStopID,
			"closestDistance": result.ClosestDistance,
		}
		if result.ClosestStop != nil {
			response["closestStop"] = bilingual(result.ClosestStop.Name)
		}
		return c.JSON(response)
	}
}
