package search

import (
	"strings"

	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/transit"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/util"
	"golang.org/x/exp/slices"
)

var outOfStationNames = map[string]string{
	"ETS": "尖沙咀",
	"TST": "尖東",
	"HOK": "中環",
	"CEN": "香港",
}

// IsLrtStopOnOrAfter reports whether a stop named targetNameZh is reached from thisStopID on route
func (e *Engine) IsLrtStopOnOrAfter(thisStopID string, targetNameZh string, route *transit.Route) bool {
	if route.LrtCircular != nil && route.LrtCircular.Zh == targetNameZh {
		return true
	}

	stops := route.Stops[transit.OperatorLRT]
	index := util.IndexOf(stops, thisStopID)
	if index < 0 {
		return false
	}
	for _, stopID := range stops[index:] {
		if stop, exists := e.Index.Stop(stopID); exists && stop.Name.Zh == targetNameZh {
			return true
		}
	}
	return false
}

func (e *Engine) mtrLineRoutes(line string, bound string, fn func(stops []string) bool) {
	e.Index.EachRoute(func(_ string, route *transit.Route) bool {
		if route.RouteNumber != line || !strings.HasSuffix(route.Bound[transit.OperatorMTR], bound) {
			return true
		}
		return fn(route.Stops[transit.OperatorMTR])
	})
}

// IsMtrStopOnOrAfter reports whether some branch of line in bound reaches stopID at or after relativeTo
func (e *Engine) IsMtrStopOnOrAfter(stopID string, relativeTo string, line string, bound string) bool {
	found := false
	e.mtrLineRoutes(line, bound, func(stops []string) bool {
		relativeIndex := util.IndexOf(stops, relativeTo)
		if relativeIndex >= 0 && relativeIndex <= util.IndexOf(stops, stopID) {
			found = true
			return false
		}
		return true
	})
	return found
}

// IsMtrStopEndOfLine reports whether no branch of line in bound continues past stopID
func (e *Engine) IsMtrStopEndOfLine(stopID string, line string, bound string) bool {
	endOfLine := true
	e.mtrLineRoutes(line, bound, func(stops []string) bool {
		index := util.IndexOf(stops, stopID)
		if index >= 0 && index+1 < len(stops) {
			endOfLine = false
			return false
		}
		return true
	})
	return endOfLine
}

// GetMtrStationInterchange lists the other lines reachable from stopID, split by whether the
// transfer is inside the station
func (e *Engine) GetMtrStationInterchange(stopID string, lineName string) transit.MTRStationInterchange {
	var lines []string
	var outOfStationLines []string
	hasLightRail := false

	if stopID == "KOW" || stopID == "AUS" {
		outOfStationLines = append(outOfStationLines, "HighSpeed")
	}
	isOutOfStationPaid := !slices.Contains([]string{"ETS", "TST", "KOW", "AUS"}, stopID)

	stop, exists := e.Index.Stop(stopID)
	if !exists {
		return transit.MTRStationInterchange{OutOfStationLines: outOfStationLines, IsOutOfStationPaid: isOutOfStationPaid}
	}
	stationName := stop.Name.Zh
	outOfStationName, hasOutOfStation := outOfStationNames[stopID]

	e.Index.EachRoute(func(_ string, route *transit.Route) bool {
		if route.RouteNumber == lineName {
			return true
		}
		if mtrStops, exists := route.Stops[transit.OperatorMTR]; exists {
			names := e.stopNamesZh(mtrStops)
			if slices.Contains(names, stationName) {
				lines = append(lines, route.RouteNumber)
			} else if hasOutOfStation && slices.Contains(names, outOfStationName) {
				outOfStationLines = append(outOfStationLines, route.RouteNumber)
			}
		} else if lrtStops, exists := route.Stops[transit.OperatorLRT]; exists && !hasLightRail {
			hasLightRail = slices.Contains(e.stopNamesZh(lrtStops), stationName)
		}
		return true
	})

	return transit.MTRStationInterchange{
		Lines:              sortMtrLines(lines),
		OutOfStationLines:  sortMtrLines(outOfStationLines),
		IsOutOfStationPaid: isOutOfStationPaid,
		HasLightRail:       hasLightRail,
	}
}

func (e *Engine) stopNamesZh(stopIDs []string) []string {
	names := make([]string, 0, len(stopIDs))
	for _, stopID := range stopIDs {
		if stop, exists := e.Index.Stop(stopID); exists {
			names = append(names, stop.Name.Zh)
		}
	}
	return names
}

func sortMtrLines(lines []string) []string {
	lines = util.RemoveDuplicateStrings(lines, nil)
	slices.SortStableFunc(lines, func(a string, b string) int {
		return transit.MTRLineSortingIndex(a) - transit.MTRLineSortingIndex(b)
	})
	return lines
}
