package dataaggregator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/dataaggregator/query"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/dataaggregator/source"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/events"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/search"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/transit"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/typhoon"
	"github.com/rs/zerolog/log"
)

const ETAQueryEvent = "eta_query"

type Aggregator struct {
	Sources []DataSource

	Typhoon     *typhoon.Cache
	Events      events.Sink
	Restriction func() transit.BackgroundRestriction
	Timeout     time.Duration
	Now         func() time.Time
}

func (a *Aggregator) RegisterSource(source DataSource) {
	a.Sources = append(a.Sources, source)

	log.Debug().Str("name", source.GetName()).Msg("Registering new Data Source")
}

// Lookup asks each source supporting the operator in registration order until one does not defer
func (a *Aggregator) Lookup(ctx context.Context, q query.ETA) (*transit.ETAQueryResult, error) {
	for _, dataSource := range a.Sources {
		if !slices.Contains(dataSource.Supports(), q.Co) {
			continue
		}

		result, err := dataSource.Lookup(ctx, q)
		if errors.Is(err, source.UnsupportedSourceError) {
			continue
		}
		return result, err
	}

	return nil, fmt.Errorf("failed to find a matching Data Source for %s", q.Co)
}

func (a *Aggregator) now() time.Time {
	if a.Now == nil {
		return time.Now()
	}
	return a.Now()
}

func (a *Aggregator) restriction() transit.BackgroundRestriction {
	if a.Restriction == nil {
		return transit.BackgroundRestrictionNone
	}
	return a.Restriction()
}

// ConnectionError is the result reported when a query cannot complete
func (a *Aggregator) ConnectionError(co transit.Operator, language transit.Language) *transit.ETAQueryResult {
	return source.ConnectionError(a.restriction(), co, language, a.now())
}

// Query starts an ETA lookup in the background. The returned Pending always resolves.
func (a *Aggregator) Query(ctx context.Context, engine *search.Engine, stopID string, stopIndex int, co transit.Operator, route *transit.Route, language transit.Language) *Pending {
	q := query.ETA{
		StopID:    stopID,
		StopIndex: stopIndex,
		Co:        co,
		Route:     route,
		Language:  language,
		Engine:    engine,
	}

	if a.Events != nil {
		a.Events.Log(ETAQueryEvent, map[string]string{
			"by_stop":  q.String(),
			"by_bound": q.ByBound(),
			"by_route": q.ByRoute(),
		})
	}

	var cancel context.CancelFunc
	if a.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, a.Timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}

	pending := newPending(cancel, func() *transit.ETAQueryResult {
		return a.ConnectionError(co, language)
	})

	go func() {
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("query", q.String()).Msg("ETA lookup panicked")
				pending.fail()
			}
		}()

		if a.Typhoon != nil {
			q.Typhoon = a.Typhoon.Get(ctx, language)
		} else {
			q.Typhoon = transit.NoTyphoonInfo(a.now().UnixMilli())
		}
		q.Now = a.now()

		result, err := a.Lookup(ctx, q)
		if err != nil || result == nil {
			log.Error().Err(err).Str("query", q.String()).Msg("ETA lookup failed")
			pending.fail()
			return
		}

		pending.resolve(result)
	}()

	return pending
}
