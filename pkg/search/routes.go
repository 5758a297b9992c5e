package search

import (
	"math"
	"strings"

	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/transit"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/util"
	"github.com/agnivade/levenshtein"
	"golang.org/x/exp/slices"
)

type RoutePredicate func(route *transit.Route) bool
type OperatorPredicate func(route *transit.Route, co transit.Operator) bool

// FindRoutes matches route numbers equal to (exact) or starting with input, returning one entry per
// route number, operator and direction. Nil predicates accept everything.
func (e *Engine) FindRoutes(input string, exact bool, predicate RoutePredicate, coPredicate OperatorPredicate) []transit.RouteSearchResultEntry {
	matches := func(routeNumber string) bool {
		if exact {
			return routeNumber == input
		}
		return strings.HasPrefix(routeNumber, input)
	}

	matchingRoutes := map[string]*transit.RouteSearchResultEntry{}
	var order []string

	e.Index.EachRoute(func(key string, route *transit.Route) bool {
		if route.CtbIsCircular {
			return true
		}
		if !matches(route.RouteNumber) || (predicate != nil && !predicate(route)) {
			return true
		}

		co, ok := route.FirstOperator()
		if !ok {
			return true
		}
		if coPredicate != nil && !coPredicate(route, co) {
			return true
		}

		searchKey := route.SearchKey(co)
		existing, exists := matchingRoutes[searchKey]
		if !exists {
			matchingRoutes[searchKey] = &transit.RouteSearchResultEntry{RouteKey: key, Route: route, Co: co}
			order = append(order, searchKey)
			return true
		}

		if preferRoute(route, existing.Route) {
			existing.RouteKey = key
			existing.Route = route
			existing.Co = co
		}

		return true
	})

	results := make([]transit.RouteSearchResultEntry, 0, len(order))
	for _, searchKey := range order {
		results = append(results, *matchingRoutes[searchKey])
	}

	slices.SortStableFunc(results, compareRouteResults)

	return results
}

// preferRoute reports whether candidate has priority over existing: lower service type, then lower GTFS id.
// Non numeric service types never displace an entry.
func preferRoute(candidate *transit.Route, existing *transit.Route) bool {
	candidateType, ok := candidate.ServiceType.Int()
	if !ok {
		return false
	}
	existingType, ok := existing.ServiceType.Int()
	if !ok {
		return false
	}

	if candidateType < existingType {
		return true
	}
	if candidateType == existingType {
		return util.ParseIntOrMax(candidate.GtfsID.String()) < util.ParseIntOrMax(existing.GtfsID.String())
	}
	return false
}

func compareRouteResults(a transit.RouteSearchResultEntry, b transit.RouteSearchResultEntry) int {
	routeA := a.Route
	routeB := b.Route

	coA := routeA.HighestOperator()
	coB := routeB.HighestOperator()
	if coDiff := coA.Ordinal() - coB.Ordinal(); coDiff != 0 {
		return coDiff
	}

	if coA.IsTrain() && coB.IsTrain() {
		lineDiff := transit.MTRLineSortingIndex(routeA.RouteNumber) - transit.MTRLineSortingIndex(routeB.RouteNumber)
		if lineDiff != 0 {
			return lineDiff
		}
		return -strings.Compare(routeA.Bound[coA], routeB.Bound[coB])
	}

	if routeNumberDiff := strings.Compare(routeA.RouteNumber, routeB.RouteNumber); routeNumberDiff != 0 {
		return routeNumberDiff
	}

	if coA == transit.OperatorNLB {
		return util.ParseIntOrZero(routeA.NlbID.String()) - util.ParseIntOrZero(routeB.NlbID.String())
	}
	if coA == transit.OperatorGMB {
		gtfsDiff := util.ParseIntOrZero(routeA.GtfsID.String()) - util.ParseIntOrZero(routeB.GtfsID.String())
		if gtfsDiff != 0 {
			return gtfsDiff
		}
	}

	typeDiff := routeA.ServiceType.IntOr(0) - routeB.ServiceType.IntOr(0)
	if typeDiff == 0 {
		if coA == transit.OperatorCTB {
			return 0
		}
		return -strings.Compare(routeA.Bound[coA], routeB.Bound[coB])
	}
	return typeDiff
}

// FindRouteByKey returns the route stored under key, or else the route whose key is nearest by
// case-insensitive edit distance, optionally limited to routes numbered routeNumber
func (e *Engine) FindRouteByKey(key string, routeNumber string) (*transit.Route, string, bool) {
	if route, exists := e.Index.Route(key); exists {
		return route, key, true
	}

	inputKey := strings.ToLower(key)

	var nearestRoute *transit.Route
	nearestKey := ""
	distance := math.MaxInt

	e.Index.EachRoute(func(routeKey string, route *transit.Route) bool {
		if routeNumber != "" && !strings.EqualFold(route.RouteNumber, routeNumber) {
			return true
		}
		if editDistance := levenshtein.ComputeDistance(strings.ToLower(routeKey), inputKey); editDistance < distance {
			nearestRoute = route
			nearestKey = routeKey
			distance = editDistance
		}
		return true
	})

	return nearestRoute, nearestKey, nearestRoute != nil
}

type PossibleNextCharResult struct {
	Characters    []string
	HasExactMatch bool
}

// GetPossibleNextChar lists the characters that can follow input in any bus route number
func (e *Engine) GetPossibleNextChar(input string) PossibleNextCharResult {
	characters := map[string]bool{}
	exactMatch := false

	for _, routeNumber := range e.Index.BusRouteNumbers() {
		if !strings.HasPrefix(routeNumber, input) {
			continue
		}
		if len(routeNumber) > len(input) {
			next := []rune(routeNumber[len(input):])[0]
			characters[string(next)] = true
		} else {
			exactMatch = true
		}
	}

	return PossibleNextCharResult{Characters: util.SortedKeys(characters), HasExactMatch: exactMatch}
}
