package api

import (
	"context"
	"time"

	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/api/routes"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/redis_client"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/registry"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/rs/zerolog/log"
)

const etaCacheTTL = 5 * time.Second

// SetupServer loads the dataset, then serves the web API on listen until it fails
func SetupServer(r *registry.Registry, listen string) error {
	options := AppOptions{}

	if redis_client.Client != nil {
		options.ETACache = routes.NewETACache(redisstore.NewRedis(redis_client.Client, store.WithExpiration(etaCacheTTL)))
	}

	if r.Config.API.Auth0Domain != "" {
		auth, err := EnsureValidToken(r.Config.API.Auth0Domain, r.Config.API.Auth0Audience)
		if err != nil {
			return err
		}
		options.Auth = auth
	} else {
		log.Warn().Msg("Favourite changes are not authenticated, set HKBUSETA_AUTH0_DOMAIN to require a token")
	}

	if err := r.EnsureDataReady(context.Background(), false); err != nil {
		log.Error().Err(err).Msg("Dataset is not ready, serving while it retries")
		r.Manager.CheckUpdateAsync(context.Background(), false)
	}

	webApp := NewApp(r, options)

	log.Info().Str("listen", listen).Msg("Web API listening")
	return webApp.Listen(listen)
}
