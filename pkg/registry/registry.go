// Package registry wires the dataset lifecycle, search and ETA aggregation into one service object
// shared by the CLI commands and the web API.
package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/config"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/dataaggregator"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/dataaggregator/global"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/dataimporter/manager"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/datastore"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/events"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/httpclient"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/redis_client"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/search"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/transit"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/typhoon"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
	"golang.org/x/exp/slices"
)

const datasetRetryElapsed = 30 * time.Second

var ErrNotReady = errors.New("dataset is not loaded")

type Registry struct {
	Config     config.AppConfig
	Manager    *manager.Manager
	Typhoon    *typhoon.Cache
	Aggregator *dataaggregator.Aggregator
	Events     events.Sink
	Now        func() time.Time
}

// Options lets callers replace the connected collaborators, mostly for tests
type Options struct {
	Store          datastore.Store
	Fetcher        httpclient.Fetcher
	DatasetFetcher httpclient.Fetcher
	Events         events.Sink
	Now            func() time.Time
	HasConnection  func(ctx context.Context) bool
}

// New builds the registry from configuration, connecting the store, redis and the event queue as configured
func New(cfg config.AppConfig) (*Registry, error) {
	store, err := datastore.New(cfg.Store, cfg.DataDirectory)
	if err != nil {
		return nil, fmt.Errorf("setup store: %w", err)
	}

	var sink events.Sink = events.NoopSink{}
	if cfg.Events || cfg.Typhoon.Shared {
		if redis_client.Client == nil {
			if err := redis_client.Connect(); err != nil {
				return nil, fmt.Errorf("connect redis: %w", err)
			}
		}
	}
	if cfg.Events {
		queueSink, err := events.NewQueueSink(redis_client.QueueConnection)
		if err != nil {
			return nil, fmt.Errorf("open events queue: %w", err)
		}
		sink = queueSink
	}

	client := httpclient.New(cfg.HTTP.UserAgent, config.MustDuration(cfg.HTTP.Timeout, 20*time.Second))
	dataSet := manager.DataSet{
		BaseURL:     cfg.Dataset.BaseURL,
		VersionCode: cfg.Dataset.VersionCode,
		Gzip:        cfg.Dataset.Gzip,
	}

	registry := NewWith(cfg, Options{
		Store:          store,
		Fetcher:        client,
		DatasetFetcher: httpclient.WithRetry(client, datasetRetryElapsed),
		Events:         sink,
		HasConnection:  manager.ProbeConnection(dataSet, config.MustDuration(cfg.Dataset.ChecksumTimeout, manager.DefaultChecksumTimeout)),
	})

	if cfg.Typhoon.Shared {
		registry.Typhoon.ShareWith(redis_client.Client)
	}

	return registry, nil
}

// NewWith builds the registry around already constructed collaborators
func NewWith(cfg config.AppConfig, options Options) *Registry {
	now := options.Now
	if now == nil {
		now = time.Now
	}
	sink := options.Events
	if sink == nil {
		sink = events.NoopSink{}
	}
	datasetFetcher := options.DatasetFetcher
	if datasetFetcher == nil {
		datasetFetcher = options.Fetcher
	}

	lifecycle := manager.New(options.Store, datasetFetcher, manager.DataSet{
		BaseURL:     cfg.Dataset.BaseURL,
		VersionCode: cfg.Dataset.VersionCode,
		Gzip:        cfg.Dataset.Gzip,
	})
	lifecycle.ChecksumTimeout = config.MustDuration(cfg.Dataset.ChecksumTimeout, manager.DefaultChecksumTimeout)
	lifecycle.HasConnection = options.HasConnection
	lifecycle.Now = now

	typhoonCache := typhoon.New(options.Fetcher, config.MustDuration(cfg.Typhoon.TTL, typhoon.DefaultTTL), now)
	typhoonCache.Disabled = cfg.Typhoon.Disabled

	restriction := transit.BackgroundRestriction(cfg.ETA.BackgroundRestriction)
	if restriction == "" {
		restriction = transit.BackgroundRestrictionNone
	}

	aggregator := &dataaggregator.Aggregator{
		Typhoon:     typhoonCache,
		Events:      sink,
		Restriction: func() transit.BackgroundRestriction { return restriction },
		Timeout:     config.MustDuration(cfg.ETA.Timeout, 10*time.Second),
		Now:         now,
	}
	global.Setup(aggregator, options.Fetcher)

	return &Registry{
		Config:     cfg,
		Manager:    lifecycle,
		Typhoon:    typhoonCache,
		Aggregator: aggregator,
		Events:     sink,
		Now:        now,
	}
}

// Language is the configured default language
func (r *Registry) Language() transit.Language {
	return transit.ParseLanguage(r.Config.Language)
}

func (r *Registry) EnsureDataReady(ctx context.Context, suppressCheck bool) error {
	return r.Manager.EnsureDataReady(ctx, suppressCheck)
}

// Engine is a search engine over the current snapshot
func (r *Registry) Engine() (*search.Engine, error) {
	engine := r.Manager.Engine()
	if engine == nil {
		return nil, ErrNotReady
	}
	return engine, nil
}

// Search finds routes by route number, exactly or by prefix
func (r *Registry) Search(input string, exact bool) ([]transit.RouteSearchResultEntry, error) {
	engine, err := r.Engine()
	if err != nil {
		return nil, err
	}
	return engine.FindRoutes(input, exact, nil, nil), nil
}

func (r *Registry) NearbyRoutes(lat float64, lng float64, excludedRouteNumbers map[string]bool, isInterchangeSearch bool) (search.NearbyRoutesResult, error) {
	engine, err := r.Engine()
	if err != nil {
		return search.NearbyRoutesResult{}, err
	}
	return engine.GetNearbyRoutes(lat, lng, excludedRouteNumbers, isInterchangeSearch), nil
}

// BranchMergedStops lists the stops of every branch of the route's direction on co in travel order
func (r *Registry) BranchMergedStops(route *transit.Route, co transit.Operator) ([]transit.StopData, error) {
	engine, err := r.Engine()
	if err != nil {
		return nil, err
	}
	return engine.GetAllStops(route.RouteNumber, route.BoundOrNlbID(co), co, route.GMBRegion), nil
}

// QueryETA starts an ETA lookup. Before the dataset is loaded the query resolves to a connection error.
func (r *Registry) QueryETA(ctx context.Context, stopID string, stopIndex int, co transit.Operator, route *transit.Route, language transit.Language) *dataaggregator.Pending {
	engine, err := r.Engine()
	if err != nil {
		log.Warn().Str("stop", stopID).Msg("ETA queried before the dataset was loaded")
		return dataaggregator.Resolved(r.Aggregator.ConnectionError(co, language))
	}
	return r.Aggregator.Query(ctx, engine, stopID, stopIndex, co, route, language)
}

func (r *Registry) SetFavourite(ctx context.Context, favouriteIndex int, favourite transit.FavouriteRouteStop) error {
	return r.Manager.SetFavourite(ctx, favouriteIndex, favourite)
}

func (r *Registry) ClearFavourite(ctx context.Context, favouriteIndex int) error {
	return r.Manager.ClearFavourite(ctx, favouriteIndex)
}

type FavouriteETA struct {
	Index     int
	Favourite *transit.FavouriteRouteStop
	Result    *transit.ETAQueryResult
}

// FavouriteETAs queries every favourite concurrently, in favourite index order
func (r *Registry) FavouriteETAs(ctx context.Context, language transit.Language, timeout time.Duration) []FavouriteETA {
	preferences := r.Manager.Preferences()

	p := pool.NewWithResults[FavouriteETA]().WithMaxGoroutines(8)
	for favouriteIndex, favourite := range preferences.FavouriteRouteStops {
		favouriteIndex, favourite := favouriteIndex, favourite
		p.Go(func() FavouriteETA {
			pending := r.QueryETA(ctx, favourite.StopID, favourite.Index, favourite.Co, favourite.Route, language)
			result := FavouriteETA{Index: favouriteIndex, Favourite: favourite}
			if timeout > 0 {
				result.Result = pending.GetWithTimeout(timeout)
			} else {
				result.Result = pending.Get()
			}
			return result
		})
	}

	results := p.Wait()
	slices.SortFunc(results, func(a FavouriteETA, b FavouriteETA) int {
		return a.Index - b.Index
	})
	return results
}
