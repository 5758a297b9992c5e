package manager

import (
	"context"
	"errors"
	"fmt"

	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/datastore"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/transit"
	"github.com/jinzhu/copier"
	"github.com/rs/zerolog/log"
)

// loadPreferences reads the stored preferences, saving defaults when none are usable
func (m *Manager) loadPreferences(ctx context.Context) error {
	m.preferencesMutex.Lock()
	defer m.preferencesMutex.Unlock()

	if m.preferences != nil {
		return nil
	}

	data, err := m.Store.Get(ctx, datastore.PreferencesFile)
	if err == nil {
		preferences, decodeErr := transit.DecodePreferences(data)
		if decodeErr == nil {
			m.preferences = preferences
			return nil
		}
		log.Error().Err(decodeErr).Msg("Stored preferences are unreadable, resetting")
	} else if !errors.Is(err, datastore.ErrNotFound) {
		log.Error().Err(err).Msg("Failed to read preferences")
	}

	m.preferences = transit.DefaultPreferences()
	return m.savePreferences(ctx)
}

// loadedPreferences must be called with preferencesMutex held
func (m *Manager) loadedPreferences() *transit.Preferences {
	if m.preferences == nil {
		m.preferences = transit.DefaultPreferences()
	}
	return m.preferences
}

// savePreferences must be called with preferencesMutex held
func (m *Manager) savePreferences(ctx context.Context) error {
	data, err := m.loadedPreferences().Encode(m.now())
	if err != nil {
		return err
	}
	if err := m.Store.Put(ctx, datastore.PreferencesFile, data); err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}

// mutatePreferences applies fn and persists the result as one step
func (m *Manager) mutatePreferences(ctx context.Context, fn func(preferences *transit.Preferences)) error {
	m.preferencesMutex.Lock()
	defer m.preferencesMutex.Unlock()

	fn(m.loadedPreferences())
	return m.savePreferences(ctx)
}

// Preferences returns a deep copy of the current preferences
func (m *Manager) Preferences() *transit.Preferences {
	m.preferencesMutex.Lock()
	defer m.preferencesMutex.Unlock()

	preferences := &transit.Preferences{}
	if err := copier.CopyWithOption(preferences, m.loadedPreferences(), copier.Option{DeepCopy: true}); err != nil {
		log.Error().Err(err).Msg("Failed to copy preferences")
	}
	return preferences
}

func (m *Manager) favourites() map[int]*transit.FavouriteRouteStop {
	return m.Preferences().FavouriteRouteStops
}

func (m *Manager) SetFavourite(ctx context.Context, favouriteIndex int, favourite transit.FavouriteRouteStop) error {
	if favourite.Route == nil {
		return errors.New("favourite needs a route")
	}
	return m.mutatePreferences(ctx, func(preferences *transit.Preferences) {
		preferences.FavouriteRouteStops[favouriteIndex] = &favourite
		preferences.RemoveFavouriteFromTiles(favouriteIndex)
	})
}

// ClearFavourite also removes the favourite from every ETA tile
func (m *Manager) ClearFavourite(ctx context.Context, favouriteIndex int) error {
	return m.mutatePreferences(ctx, func(preferences *transit.Preferences) {
		delete(preferences.FavouriteRouteStops, favouriteIndex)
		preferences.RemoveFavouriteFromTiles(favouriteIndex)
	})
}

// IsFavourite reports whether any favourite refers to the stop of route
func (m *Manager) IsFavourite(stopID string, co transit.Operator, index int, stop *transit.Stop, route *transit.Route) bool {
	m.preferencesMutex.Lock()
	defer m.preferencesMutex.Unlock()

	for _, favourite := range m.loadedPreferences().FavouriteRouteStops {
		if favourite.Matches(stopID, co, index, stop, route) {
			return true
		}
	}
	return false
}

func (m *Manager) SetEtaTileConfiguration(ctx context.Context, tileID int, favouriteIndexes []int) error {
	return m.mutatePreferences(ctx, func(preferences *transit.Preferences) {
		preferences.EtaTileConfigurations[tileID] = append([]int(nil), favouriteIndexes...)
	})
}

func (m *Manager) ClearEtaTileConfiguration(ctx context.Context, tileID int) error {
	return m.mutatePreferences(ctx, func(preferences *transit.Preferences) {
		delete(preferences.EtaTileConfigurations, tileID)
	})
}

func (m *Manager) AddLastLookupRoute(ctx context.Context, routeNumber string, co transit.Operator, meta string) error {
	lookup := transit.LastLookupRoute{RouteNumber: routeNumber, Co: co, Meta: meta, Time: m.now().UnixMilli()}
	if !lookup.Valid() {
		return errors.New("lookup needs a route number and operator")
	}
	return m.mutatePreferences(ctx, func(preferences *transit.Preferences) {
		preferences.AddLastLookupRoute(lookup)
	})
}

func (m *Manager) ClearLastLookupRoutes(ctx context.Context) error {
	return m.mutatePreferences(ctx, func(preferences *transit.Preferences) {
		preferences.LastLookupRoutes = []transit.LastLookupRoute{}
	})
}

func (m *Manager) SetRouteSortModePreference(ctx context.Context, listType string, sortMode string) error {
	return m.mutatePreferences(ctx, func(preferences *transit.Preferences) {
		preferences.RouteSortModePreference[listType] = sortMode
	})
}

func (m *Manager) SetLanguage(ctx context.Context, language transit.Language) error {
	return m.mutatePreferences(ctx, func(preferences *transit.Preferences) {
		preferences.Language = language
	})
}
