package api

import (
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/api/routes"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/registry"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/gofiber/fiber/v2"
)

// AppOptions carries the optional collaborators of the web API
type AppOptions struct {
	ETACache cache.CacheInterface[string]
	Auth     fiber.Handler
}

func NewApp(r *registry.Registry, options AppOptions) *fiber.App {
	webApp := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	webApp.Use(NewLogger())
	webApp.Use(routes.NegotiateLanguage(r.Language()))

	webApp.Get("/version", routes.APIVersion(r))
	webApp.Get("/status", routes.GetStatus(r))
	webApp.Post("/update", routes.PostUpdate(r))

	routes.RoutesRouter(webApp.Group("/routes"), r)
	routes.NearbyRouter(webApp.Group("/nearby"), r)
	routes.ETARouter(webApp.Group("/eta"), r, options.ETACache)
	routes.TyphoonRouter(webApp.Group("/typhoon"), r)
	routes.FavouritesRouter(webApp.Group("/favourites"), r, options.Auth)

	return webApp
}
