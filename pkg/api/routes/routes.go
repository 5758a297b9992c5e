package routes

import (
	"strings"

	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/registry"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/search"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/transit"
	"github.com/gofiber/fiber/v2"
)

func RoutesRouter(router fiber.Router, r *registry.Registry) {
	router.Get("/search", searchRoutes(r))
	router.Get("/next-char", nextChar(r))
	router.Get("/:key", getRoute(r))
	router.Get("/:key/stops", getRouteStops(r))
	router.Get("/:key/destinations", getRouteDestinations(r))
}

func searchRoutes(r *registry.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input := c.Query("q")
		if input == "" {
			return sendError(c, fiber.StatusBadRequest, "A route number must be given with q")
		}

		results, err := r.Search(strings.ToUpper(input), c.QueryBool("exact", false))
		if err != nil {
			return sendRegistryError(c, err)
		}

		dtos := make([]SearchResultDTO, len(results))
		for i, result := range results {
			dtos[i] = newSearchResultDTO(result)
		}

		reduced, err := reduce(dtos, "basic")
		if err != nil {
			return sendError(c, fiber.StatusInternalServerError, "Sheriff could not reduce search results")
		}
		return c.JSON(reduced)
	}
}

func nextChar(r *registry.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		engine, err := r.Engine()
		if err != nil {
			return sendRegistryError(c, err)
		}

		result := engine.GetPossibleNextChar(strings.ToUpper(c.Query("q")))
		return c.JSON(fiber.Map{
			"characters":    result.Characters,
			"hasExactMatch": result.HasExactMatch,
		})
	}
}

// lookupRoute resolves the :key parameter, falling back to the nearest key
func lookupRoute(c *fiber.Ctx, r *registry.Registry) (*search.Engine, *transit.Route, string, error) {
	engine, err := r.Engine()
	if err != nil {
		return nil, nil, "", sendRegistryError(c, err)
	}

	route, key, found := engine.FindRouteByKey(c.Params("key"), c.Query("route"))
	if !found {
		return nil, nil, "", sendError(c, fiber.StatusNotFound, "Could not find Route matching key")
	}
	return engine, route, key, nil
}

// routeOperator is ?co= when the route runs on it, otherwise the route's first operator
func routeOperator(c *fiber.Ctx, route *transit.Route) (transit.Operator, bool) {
	if co := transit.Operator(c.Query("co")); co != "" {
		return co, route.HasBound(co)
	}
	return route.FirstOperator()
}

func getRoute(r *registry.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		_, route, key, err := lookupRoute(c, r)
		if route == nil {
			return err
		}

		reduced, err := reduce(newRouteDTO(key, route), "basic", "detailed")
		if err != nil {
			return sendError(c, fiber.StatusInternalServerError, "Sheriff could not reduce Route")
		}
		return c.JSON(reduced)
	}
}

func getRouteStops(r *registry.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		_, route, key, err := lookupRoute(c, r)
		if route == nil {
			return err
		}

		co, ok := routeOperator(c, route)
		if !ok {
			return sendError(c, fiber.StatusBadRequest, "Route does not run on the requested operator")
		}

		stops, err := r.BranchMergedStops(route, co)
		if err != nil {
			return sendRegistryError(c, err)
		}

		dtos := make([]StopDTO, len(stops))
		for i, stop := range stops {
			dtos[i] = newStopDTO(stop)
		}

		return c.JSON(fiber.Map{
			"key":   key,
			"co":    co,
			"stops": dtos,
		})
	}
}

func getRouteDestinations(r *registry.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		engine, route, _, err := lookupRoute(c, r)
		if route == nil {
			return err
		}

		co, ok := routeOperator(c, route)
		if !ok {
			return sendError(c, fiber.StatusBadRequest, "Route does not run on the requested operator")
		}
		lang := requestLanguage(c)

		origins, destinations := engine.GetAllOriginsAndDestinations(route.RouteNumber, route.BoundOrNlbID(co), co, route.GMBRegion)
		response := fiber.Map{
			"origins":      localise(origins, lang),
			"destinations": localise(destinations, lang),
		}

		if stopID := c.Query("stop"); stopID != "" {
			direction, all := engine.GetAllDestinationsByDirection(route.RouteNumber, co, route.NlbID.String(), route.GMBRegion, route, stopID)
			response["direction"] = localise(direction, lang)
			response["all"] = localise(all, lang)
			response["special"] = engine.GetStopSpecialDestinations(stopID, co, route, true).Get(lang)
		}

		return c.JSON(response)
	}
}

func localise(texts []transit.BilingualText, lang transit.Language) []string {
	localised := make([]string, len(texts))
	for i, text := range texts {
		localised[i] = text.Get(lang)
	}
	return localised
}
