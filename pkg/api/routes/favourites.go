package routes

import (
	"time"

	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/registry"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/search"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/transit"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/util"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

type favouriteRequest struct {
	RouteKey string `json:"routeKey" validate:"required"`
	Co       string `json:"co" validate:"required"`
	Index    int    `json:"index" validate:"gte=1"`
	Mode     string `json:"mode" validate:"omitempty,oneof=FIXED CLOSEST"`
}

type favouriteDTO struct {
	Index     int               `json:"index"`
	RouteKey  string            `json:"routeKey"`
	Co        string            `json:"co"`
	StopID    string            `json:"stopId"`
	StopIndex int               `json:"stopIndex"`
	StopName  map[string]string `json:"stopName,omitempty"`
	Mode      string            `json:"mode"`
	ETA       any               `json:"eta,omitempty"`
}

func newFavouriteDTO(r *registry.Registry, index int, favourite *transit.FavouriteRouteStop) favouriteDTO {
	dto := favouriteDTO{
		Index:     index,
		Co:        string(favourite.Co),
		StopID:    favourite.StopID,
		StopIndex: favourite.Index,
		Mode:      string(favourite.FavouriteStopMode),
	}
	if favourite.Stop != nil {
		dto.StopName = bilingual(favourite.Stop.Name)
	}
	if engine, err := r.Engine(); err == nil {
		dto.RouteKey = favouriteRouteKey(engine, favourite)
	}
	return dto
}

// favouriteRouteKey finds the key of the stored route, which is a copy of the dataset's
func favouriteRouteKey(engine *search.Engine, favourite *transit.FavouriteRouteStop) string {
	if key, found := engine.RouteKey(favourite.Route); found {
		return key
	}

	stored := favourite.Route
	matchedKey := ""
	engine.Index.EachRoute(func(key string, route *transit.Route) bool {
		if route.RouteNumber == stored.RouteNumber && route.BoundOrNlbID(favourite.Co) == stored.BoundOrNlbID(favourite.Co) &&
			route.ServiceType == stored.ServiceType && route.GMBRegion == stored.GMBRegion {
			matchedKey = key
			return false
		}
		return true
	})
	return matchedKey
}

// FavouritesRouter serves favourites; mutations go through auth, which may be nil
func FavouritesRouter(router fiber.Router, r *registry.Registry, auth fiber.Handler) {
	router.Get("/", listFavourites(r))
	router.Get("/eta", favouriteETAs(r))

	if auth == nil {
		auth = func(c *fiber.Ctx) error { return c.Next() }
	}
	router.Put("/:index", auth, putFavourite(r))
	router.Delete("/:index", auth, deleteFavourite(r))
}

func listFavourites(r *registry.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		preferences := r.Manager.Preferences()

		dtos := []favouriteDTO{}
		for _, index := range util.SortedKeys(preferences.FavouriteRouteStops) {
			dtos = append(dtos, newFavouriteDTO(r, index, preferences.FavouriteRouteStops[index]))
		}
		return c.JSON(dtos)
	}
}

func favouriteETAs(r *registry.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		timeout := r.Aggregator.Timeout
		if timeout <= 0 {
			timeout = defaultETATimeout
		}

		results := r.FavouriteETAs(c.Context(), requestLanguage(c), timeout+time.Second)

		dtos := make([]favouriteDTO, len(results))
		for i, result := range results {
			dtos[i] = newFavouriteDTO(r, result.Index, result.Favourite)
			dtos[i].ETA = result.Result
		}
		return c.JSON(dtos)
	}
}

func putFavourite(r *registry.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		favouriteIndex, err := c.ParamsInt("index")
		if err != nil || favouriteIndex < 1 {
			return sendError(c, fiber.StatusBadRequest, "Favourite index must be a positive number")
		}

		var request favouriteRequest
		if err := c.BodyParser(&request); err != nil {
			return sendError(c, fiber.StatusBadRequest, "Request body is not valid JSON")
		}
		if err := validate.Struct(request); err != nil {
			return sendError(c, fiber.StatusBadRequest, err.Error())
		}

		engine, err := r.Engine()
		if err != nil {
			return sendRegistryError(c, err)
		}
		route, exists := engine.Index.Route(request.RouteKey)
		co := transit.Operator(request.Co)
		if !exists || !route.HasBound(co) {
			return sendError(c, fiber.StatusNotFound, "Could not find Route matching key and operator")
		}

		stops, err := r.BranchMergedStops(route, co)
		if err != nil {
			return sendRegistryError(c, err)
		}
		if request.Index > len(stops) {
			return sendError(c, fiber.StatusBadRequest, "Stop index is past the end of the route")
		}
		stop := stops[request.Index-1]

		mode := transit.FavouriteStopModeFixed
		if request.Mode != "" {
			mode = transit.FavouriteStopMode(request.Mode)
		}

		favourite := transit.FavouriteRouteStop{
			StopID:            stop.StopID,
			Co:                co,
			Index:             request.Index,
			Stop:              stop.Stop,
			Route:             stop.Route,
			FavouriteStopMode: mode,
		}
		if err := r.SetFavourite(c.Context(), favouriteIndex, favourite); err != nil {
			return sendError(c, fiber.StatusInternalServerError, err.Error())
		}

		return c.JSON(newFavouriteDTO(r, favouriteIndex, &favourite))
	}
}

func deleteFavourite(r *registry.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		favouriteIndex, err := c.ParamsInt("index")
		if err != nil {
			return sendError(c, fiber.StatusBadRequest, "Favourite index must be a number")
		}
		if err := r.ClearFavourite(c.Context(), favouriteIndex); err != nil {
			return sendError(c, fiber.StatusInternalServerError, err.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
