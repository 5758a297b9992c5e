package manager

import (
	"context"

	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/index"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/search"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/transit"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/util"
	"github.com/rs/zerolog/log"
)

type RepairOutcome int

const (
	RepairKeep RepairOutcome = iota
	RepairReplace
	RepairDelete
)

// RepairFavourite re-resolves a favourite against a new dataset. The stop keeps its id when the new
// route still calls there, otherwise the old position is clamped onto the new stop list.
func RepairFavourite(engine *search.Engine, favourite *transit.FavouriteRouteStop) (*transit.FavouriteRouteStop, RepairOutcome) {
	oldRoute := favourite.Route
	co := favourite.Co

	candidates := engine.FindRoutes(oldRoute.RouteNumber, true, func(route *transit.Route) bool {
		if !route.HasBound(co) {
			return false
		}
		switch co {
		case transit.OperatorGMB:
			if route.GMBRegion != oldRoute.GMBRegion {
				return false
			}
		case transit.OperatorNLB:
			return route.NlbID == oldRoute.NlbID
		}
		return route.Bound[co] == oldRoute.Bound[co]
	}, nil)
	if len(candidates) == 0 {
		return nil, RepairDelete
	}

	newRoute := candidates[0].Route
	stops := engine.GetAllStops(newRoute.RouteNumber, newRoute.BoundOrNlbID(co), co, newRoute.GMBRegion)
	if len(stops) == 0 {
		return favourite, RepairKeep
	}

	stopIndex := 0
	for i, stop := range stops {
		if stop.StopID == favourite.StopID {
			stopIndex = i + 1
			break
		}
	}
	if stopIndex < 1 {
		stopIndex = min(max(favourite.Index, 1), len(stops))
	}
	stopData := stops[stopIndex-1]

	return &transit.FavouriteRouteStop{
		StopID:            stopData.StopID,
		Co:                co,
		Index:             stopIndex,
		Stop:              stopData.Stop,
		Route:             stopData.Route,
		FavouriteStopMode: favourite.FavouriteStopMode,
		FavouriteID:       favourite.FavouriteID,
	}, RepairReplace
}

// repairFavourites resolves every favourite against idx, then applies the changes and saves once
func (m *Manager) repairFavourites(ctx context.Context, idx *index.Index, progress float64) error {
	favourites := m.favourites()
	if len(favourites) == 0 {
		return nil
	}

	engine := search.New(idx, m.Now)
	progressPerFavourite := 0.15 / float64(len(favourites))

	replacements := map[int]*transit.FavouriteRouteStop{}
	var deletions []int

	for _, favouriteIndex := range util.SortedKeys(favourites) {
		repaired, outcome := RepairFavourite(engine, favourites[favouriteIndex])
		switch outcome {
		case RepairReplace:
			replacements[favouriteIndex] = repaired
		case RepairDelete:
			log.Info().Int("favourite", favouriteIndex).Str("route", favourites[favouriteIndex].Route.RouteNumber).Msg("Favourite route no longer exists")
			deletions = append(deletions, favouriteIndex)
		}

		progress += progressPerFavourite
		m.setProgress(progress)
	}

	if len(replacements) == 0 && len(deletions) == 0 {
		return nil
	}

	m.preferencesMutex.Lock()
	defer m.preferencesMutex.Unlock()

	preferences := m.loadedPreferences()
	for favouriteIndex, favourite := range replacements {
		preferences.FavouriteRouteStops[favouriteIndex] = favourite
	}
	for _, favouriteIndex := range deletions {
		delete(preferences.FavouriteRouteStops, favouriteIndex)
		preferences.RemoveFavouriteFromTiles(favouriteIndex)
	}

	return m.savePreferences(ctx)
}
