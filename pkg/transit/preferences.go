package transit

import (
	"encoding/json"
	"time"
)

type FavouriteStopMode string

const (
	FavouriteStopModeFixed   FavouriteStopMode = "FIXED"
	FavouriteStopModeClosest FavouriteStopMode = "CLOSEST"
)

type FavouriteRouteStop struct {
	StopID            string            `json:"stopId"`
	Co                Operator          `json:"co"`
	Index             int               `json:"index"`
	Stop              *Stop             `json:"stop"`
	Route             *Route            `json:"route"`
	FavouriteStopMode FavouriteStopMode `json:"favouriteStopMode"`
	FavouriteID       int               `json:"favouriteId,omitempty"`
}

// Matches reports whether the favourite refers to the given stop of the given route
func (f *FavouriteRouteStop) Matches(stopID string, co Operator, index int, stop *Stop, route *Route) bool {
	if co != f.Co {
		return false
	}
	if route.RouteNumber != f.Route.RouteNumber {
		return false
	}
	if route.Bound[co] != f.Route.Bound[co] {
		return false
	}
	if f.FavouriteStopMode == FavouriteStopModeFixed {
		if index != f.Index || stopID != f.StopID {
			return false
		}
		return f.Stop != nil && stop != nil && stop.Name.Zh == f.Stop.Name.Zh
	}
	return true
}

const MaxLastLookupRoutes = 50

type LastLookupRoute struct {
	RouteNumber string   `json:"routeNumber"`
	Co          Operator `json:"co"`
	Meta        string   `json:"meta"`
	Time        int64    `json:"time"`
}

func (l LastLookupRoute) Valid() bool {
	return l.RouteNumber != "" && l.Co != ""
}

func (l LastLookupRoute) sameAs(other LastLookupRoute) bool {
	return l.RouteNumber == other.RouteNumber && l.Co == other.Co && l.Meta == other.Meta
}

type Preferences struct {
	ReferenceChecksum       string                      `json:"referenceChecksum"`
	LastSaved               int64                       `json:"lastSaved"`
	Language                Language                    `json:"language"`
	FavouriteRouteStops     map[int]*FavouriteRouteStop `json:"favouriteRouteStops"`
	EtaTileConfigurations   map[int][]int               `json:"etaTileConfigurations"`
	LastLookupRoutes        []LastLookupRoute           `json:"lastLookupRoutes"`
	RouteSortModePreference map[string]string           `json:"routeSortModePreference"`
}

func DefaultPreferences() *Preferences {
	return &Preferences{
		Language:                LanguageChinese,
		FavouriteRouteStops:     map[int]*FavouriteRouteStop{},
		EtaTileConfigurations:   map[int][]int{},
		LastLookupRoutes:        []LastLookupRoute{},
		RouteSortModePreference: map[string]string{},
	}
}

// DecodePreferences parses stored preferences, dropping invalid lookup history entries
func DecodePreferences(data []byte) (*Preferences, error) {
	preferences := DefaultPreferences()
	if err := json.Unmarshal(data, preferences); err != nil {
		return nil, err
	}

	if preferences.FavouriteRouteStops == nil {
		preferences.FavouriteRouteStops = map[int]*FavouriteRouteStop{}
	}
	if preferences.EtaTileConfigurations == nil {
		preferences.EtaTileConfigurations = map[int][]int{}
	}
	if preferences.RouteSortModePreference == nil {
		preferences.RouteSortModePreference = map[string]string{}
	}

	validLookups := []LastLookupRoute{}
	for _, lookup := range preferences.LastLookupRoutes {
		if lookup.Valid() {
			validLookups = append(validLookups, lookup)
		}
	}
	preferences.LastLookupRoutes = validLookups

	for index, favourite := range preferences.FavouriteRouteStops {
		if favourite == nil || favourite.Route == nil {
			delete(preferences.FavouriteRouteStops, index)
		}
	}

	return preferences, nil
}

func (p *Preferences) Encode(now time.Time) ([]byte, error) {
	p.LastSaved = now.UnixMilli()
	return json.Marshal(p)
}

// RemoveFavouriteFromTiles drops index from every ETA tile, deleting tiles left empty
func (p *Preferences) RemoveFavouriteFromTiles(index int) {
	for tileID, favourites := range p.EtaTileConfigurations {
		updated := make([]int, 0, len(favourites))
		for _, favourite := range favourites {
			if favourite != index {
				updated = append(updated, favourite)
			}
		}
		if len(updated) == len(favourites) {
			continue
		}
		if len(updated) == 0 {
			delete(p.EtaTileConfigurations, tileID)
		} else {
			p.EtaTileConfigurations[tileID] = updated
		}
	}
}

// AddLastLookupRoute moves the lookup to the end of the history, trimming the oldest entries
func (p *Preferences) AddLastLookupRoute(lookup LastLookupRoute) {
	updated := make([]LastLookupRoute, 0, len(p.LastLookupRoutes)+1)
	for _, existing := range p.LastLookupRoutes {
		if !existing.sameAs(lookup) {
			updated = append(updated, existing)
		}
	}
	updated = append(updated, lookup)
	if len(updated) > MaxLastLookupRoutes {
		updated = updated[len(updated)-MaxLastLookupRoutes:]
	}
	p.LastLookupRoutes = updated
}
