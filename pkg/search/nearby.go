package search

import (
	"math"
	"strings"

	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/transit"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/util"
	"golang.org/x/exp/slices"
)

const nearbyRadiusKm = 0.3

type NearbyRoutesResult struct {
	Result          []transit.RouteSearchResultEntry
	ClosestStopID   string
	ClosestStop     *transit.Stop
	ClosestDistance float64
	Lat             float64
	Lng             float64
}

// GetNearbyRoutes finds the routes calling at stops within 300 metres of the origin, keeping the nearest
// stop for every route number, operator and direction
func (e *Engine) GetNearbyRoutes(lat float64, lng float64, excludedRouteNumbers map[string]bool, isInterchangeSearch bool) NearbyRoutesResult {
	origin := transit.Coordinates{Lat: lat, Lng: lng}

	var nearbyStops []transit.StopInfo
	result := NearbyRoutesResult{ClosestDistance: math.MaxFloat64, Lat: lat, Lng: lng}

	for _, stopID := range e.Index.StopIDs() {
		stop, _ := e.Index.Stop(stopID)
		distance := origin.Distance(stop.Location)
		if distance < result.ClosestDistance {
			result.ClosestStopID = stopID
			result.ClosestStop = stop
			result.ClosestDistance = distance
		}
		if distance <= nearbyRadiusKm {
			co, ok := transit.FirstStopCo(stopID)
			if !ok {
				continue
			}
			nearbyStops = append(nearbyStops, transit.StopInfo{StopID: stopID, Data: stop, Distance: distance, Co: co})
		}
	}

	nearbyRoutes := map[string]*transit.RouteSearchResultEntry{}
	var order []string

	for i := range nearbyStops {
		nearbyStop := &nearbyStops[i]
		stopID := nearbyStop.StopID

		for _, key := range e.Index.RouteKeysAtStop(stopID) {
			route, _ := e.Index.Route(key)
			if excludedRouteNumbers[route.RouteNumber] || route.CtbIsCircular {
				continue
			}

			co, ok := firstOperatorServing(route, stopID)
			if !ok {
				continue
			}

			searchKey := route.SearchKey(co)
			existing, exists := nearbyRoutes[searchKey]
			if !exists {
				nearbyRoutes[searchKey] = &transit.RouteSearchResultEntry{
					RouteKey:            key,
					Route:               route,
					Co:                  co,
					StopInfo:            nearbyStop,
					Origin:              &origin,
					IsInterchangeSearch: isInterchangeSearch,
				}
				order = append(order, searchKey)
				continue
			}

			if existing.StopInfo.Distance <= nearbyStop.Distance {
				continue
			}
			if replacesNearby(route, existing.Route) {
				existing.RouteKey = key
				existing.StopInfo = nearbyStop
				existing.Route = route
				existing.Co = co
				existing.Origin = &origin
				existing.IsInterchangeSearch = isInterchangeSearch
			}
		}
	}

	if len(nearbyRoutes) == 0 {
		result.Result = []transit.RouteSearchResultEntry{}
		if result.ClosestStop == nil {
			result.ClosestDistance = 0
		}
		return result
	}

	hongKongTime := util.HongKongTime(e.Now())
	hour := hongKongTime.Hour()
	isNight := hour >= 1 && hour <= 4
	isHoliday := e.Index.IsHoliday(hongKongTime)

	entries := make([]transit.RouteSearchResultEntry, 0, len(order))
	for _, searchKey := range order {
		entries = append(entries, *nearbyRoutes[searchKey])
	}

	slices.SortStableFunc(entries, func(a transit.RouteSearchResultEntry, b transit.RouteSearchResultEntry) int {
		if diff := nearbyScore(a.Route, isInterchangeSearch, isNight, isHoliday) - nearbyScore(b.Route, isInterchangeSearch, isNight, isHoliday); diff != 0 {
			return diff
		}
		if diff := strings.Compare(a.Route.RouteNumber, b.Route.RouteNumber); diff != 0 {
			return diff
		}
		if diff := a.Route.ServiceType.IntOr(0) - b.Route.ServiceType.IntOr(0); diff != 0 {
			return diff
		}
		if diff := a.Co.Ordinal() - b.Co.Ordinal(); diff != 0 {
			return diff
		}
		return lineTieBreak(a.Route) - lineTieBreak(b.Route)
	})

	result.Result = util.DistinctBy(entries, func(entry transit.RouteSearchResultEntry) string {
		return entry.RouteKey
	})

	return result
}

func firstOperatorServing(route *transit.Route, stopID string) (transit.Operator, bool) {
	for _, co := range transit.Operators() {
		if !route.HasBound(co) {
			continue
		}
		if slices.Contains(route.Stops[co], stopID) {
			return co, true
		}
	}
	return "", false
}

// replacesNearby applies the service type then GTFS id preference; a non numeric service type always replaces
func replacesNearby(candidate *transit.Route, existing *transit.Route) bool {
	candidateType, candidateOk := candidate.ServiceType.Int()
	existingType, existingOk := existing.ServiceType.Int()
	if !candidateOk || !existingOk {
		return true
	}

	if candidateType < existingType {
		return true
	}
	if candidateType == existingType {
		return util.ParseIntOrMax(candidate.GtfsID.String()) < util.ParseIntOrMax(existing.GtfsID.String())
	}
	return false
}

var nightServiceSuffixRoutes = map[string]bool{"270S": true, "271S": true, "293S": true, "701S": true, "796S": true}

func nearbyScore(route *transit.Route, isInterchangeSearch bool, isNight bool, isHoliday bool) int {
	routeNumber := route.RouteNumber
	if routeNumber == "" {
		return 0
	}
	first := routeNumber[:1]
	last := routeNumber[len(routeNumber)-1:]

	score := util.ParseIntOrZero(util.DigitsOnly(routeNumber))
	if route.HasBound(transit.OperatorGMB) {
		score += 1000
	} else if route.HasBound(transit.OperatorMTR) {
		if isInterchangeSearch {
			score -= 2000
		} else {
			score += 2000
		}
	}

	if first == "N" || nightServiceSuffixRoutes[routeNumber] {
		if isNight {
			score -= 10000
		} else {
			score += 10000
		}
	}
	if last == "S" && routeNumber != "89S" && routeNumber != "796S" {
		score += 3000
	}
	if !isHoliday && (first == "R" || last == "R") {
		score += 100000
	}

	return score
}

func lineTieBreak(route *transit.Route) int {
	if route.HasBound(transit.OperatorMTR) {
		return -transit.MTRLineSortingIndex(route.RouteNumber)
	}
	return -10
}
