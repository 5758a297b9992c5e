package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/registry"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/transit"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

const defaultETATimeout = 10 * time.Second

// ETARouter serves ETA queries. etaCache may be nil, otherwise successful results are reused for
// repeated identical queries until the cache expires them.
func ETARouter(router fiber.Router, r *registry.Registry, etaCache cache.CacheInterface[string]) {
	router.Get("/", getETA(r, etaCache))
}

func etaCacheKey(key string, co transit.Operator, stopID string, stopIndex int, lang transit.Language) string {
	return fmt.Sprintf("hkbuseta:eta:%s:%s:%s:%d:%s", key, co, stopID, stopIndex, lang)
}

func getETA(r *registry.Registry, etaCache cache.CacheInterface[string]) fiber.Handler {
	return func(c *fiber.Ctx) error {
		stopID := c.Query("stop")
		co := transit.Operator(c.Query("co"))
		stopIndex := c.QueryInt("index", 0)
		if stopID == "" || co == "" || c.Query("route") == "" {
			return sendError(c, fiber.StatusBadRequest, "stop, co and route are required")
		}

		engine, err := r.Engine()
		if err != nil {
			return sendRegistryError(c, err)
		}
		route, key, found := engine.FindRouteByKey(c.Query("route"), "")
		if !found {
			return sendError(c, fiber.StatusNotFound, "Could not find Route matching key")
		}
		if !route.HasBound(co) {
			return sendError(c, fiber.StatusBadRequest, "Route does not run on the requested operator")
		}

		lang := requestLanguage(c)
		cacheKey := etaCacheKey(key, co, stopID, stopIndex, lang)

		if etaCache != nil {
			if cached, err := etaCache.Get(c.Context(), cacheKey); err == nil {
				c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
				c.Set("X-Cache", "HIT")
				return c.SendString(cached)
			}
		}

		timeout := r.Aggregator.Timeout
		if timeout <= 0 {
			timeout = defaultETATimeout
		}
		result := r.QueryETA(context.Background(), stopID, stopIndex, co, route, lang).GetWithTimeout(timeout)

		encoded, err := json.Marshal(result)
		if err != nil {
			return sendError(c, fiber.StatusInternalServerError, err.Error())
		}

		if etaCache != nil && !result.IsConnectionError {
			if err := etaCache.Set(c.Context(), cacheKey, string(encoded)); err != nil {
				log.Error().Err(err).Str("key", cacheKey).Msg("Failed to cache ETA result")
			}
		}

		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(encoded)
	}
}

// NewETACache caches encoded ETA results in cacheStore
func NewETACache(cacheStore store.StoreInterface) *cache.Cache[string] {
	return cache.New[string](cacheStore)
}
