package search

import (
	"strings"

	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/branchedlist"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/transit"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/util"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/slices"
)

// GetAllStops merges the stop lists of every branch of routeNumber running in the given direction.
// bound is the NLB route id for NLB. Branches are numbered by ascending service type.
func (e *Engine) GetAllStops(routeNumber string, bound string, co transit.Operator, gmbRegion transit.GMBRegion) []transit.StopData {
	type branch struct {
		stops       []transit.StopData
		serviceType int
	}
	var branches []branch

	e.Index.EachRoute(func(key string, route *transit.Route) bool {
		if !sameDirection(route, routeNumber, bound, co, gmbRegion) {
			return true
		}

		serviceType := route.ServiceType.IntOr(1)
		var stops []transit.StopData
		for _, stopID := range route.Stops[co] {
			stop, exists := e.Index.Stop(stopID)
			if !exists {
				log.Debug().Str("route", key).Str("stop", stopID).Msg("Route references unknown stop")
				continue
			}
			stops = append(stops, transit.StopData{StopID: stopID, ServiceType: serviceType, Stop: stop, Route: route})
		}
		branches = append(branches, branch{stops: stops, serviceType: serviceType})

		return true
	})

	slices.SortStableFunc(branches, func(a branch, b branch) int {
		return a.serviceType - b.serviceType
	})

	result := branchedlist.New[string, transit.StopData](0, preferStopData)
	for branchID, b := range branches {
		branchStops := branchedlist.New[string, transit.StopData](branchID, nil)
		for _, stopData := range b.stops {
			branchStops.Add(stopData.StopID, stopData)
		}
		result.Merge(branchStops)
	}

	entries := result.Entries()
	stops := make([]transit.StopData, len(entries))
	for i, entry := range entries {
		stopData := entry.Value
		stopData.BranchIDs = entry.BranchIDs
		stops[i] = stopData
	}
	return stops
}

func preferStopData(a transit.StopData, b transit.StopData) transit.StopData {
	if a.ServiceType == b.ServiceType {
		if util.ParseIntOrMax(a.Route.GtfsID.String()) > util.ParseIntOrMax(b.Route.GtfsID.String()) {
			return b
		}
		return a
	}
	if a.ServiceType > b.ServiceType {
		return b
	}
	return a
}

// GetAllOriginsAndDestinations lists the distinct origins and destinations of every branch, primary
// branches first. Origins on the main branch's path are left out.
func (e *Engine) GetAllOriginsAndDestinations(routeNumber string, bound string, co transit.Operator, gmbRegion transit.GMBRegion) ([]transit.BilingualText, []transit.BilingualText) {
	type origin struct {
		name        transit.BilingualText
		serviceType int
		firstStop   string
	}
	type destination struct {
		name        transit.BilingualText
		serviceType int
	}

	var origins []origin
	var destinations []destination
	mainRouteServiceType := int(^uint(0) >> 1)
	var mainRouteStops []string

	e.Index.EachRoute(func(key string, route *transit.Route) bool {
		if !sameDirection(route, routeNumber, bound, co, gmbRegion) {
			return true
		}

		serviceType := route.ServiceType.IntOr(1)
		stops := route.Stops[co]
		if mainRouteServiceType > serviceType || (mainRouteServiceType == serviceType && len(stops) > len(mainRouteStops)) {
			mainRouteServiceType = serviceType
			mainRouteStops = stops
		}

		firstStop := ""
		if len(stops) > 0 {
			firstStop = stops[0]
		}
		existingOrigin := slices.IndexFunc(origins, func(o origin) bool { return o.name.Zh == route.Orig.Zh })
		if existingOrigin < 0 {
			origins = append(origins, origin{name: route.Orig, serviceType: serviceType, firstStop: firstStop})
		} else if origins[existingOrigin].serviceType > serviceType {
			origins[existingOrigin] = origin{name: route.Orig, serviceType: serviceType, firstStop: firstStop}
		}

		existingDestination := slices.IndexFunc(destinations, func(d destination) bool { return d.name.Zh == route.Dest.Zh })
		if existingDestination < 0 {
			destinations = append(destinations, destination{name: route.Dest, serviceType: serviceType})
		} else if destinations[existingDestination].serviceType > serviceType {
			destinations[existingDestination] = destination{name: route.Dest, serviceType: serviceType}
		}

		return true
	})

	util.InPlaceFilter(&origins, func(o origin) bool {
		return !slices.Contains(mainRouteStops, o.firstStop)
	})
	slices.SortStableFunc(origins, func(a origin, b origin) int { return a.serviceType - b.serviceType })
	slices.SortStableFunc(destinations, func(a destination, b destination) int { return a.serviceType - b.serviceType })

	originNames := make([]transit.BilingualText, len(origins))
	for i, o := range origins {
		originNames[i] = o.name
	}
	destinationNames := make([]transit.BilingualText, len(destinations))
	for i, d := range destinations {
		destinationNames[i] = d.name
	}
	return originNames, destinationNames
}

// GetAllDestinationsByDirection returns the destinations of same numbered routes that call at stopID and
// share most of referenceRoute's path, along with every destination of the route number
func (e *Engine) GetAllDestinationsByDirection(routeNumber string, co transit.Operator, nlbID string, gmbRegion transit.GMBRegion, referenceRoute *transit.Route, stopID string) ([]transit.BilingualText, []transit.BilingualText) {
	var direction []transit.BilingualText
	var all []transit.BilingualText

	referenceStops := referenceRoute.Stops[co]

	e.Index.EachRoute(func(key string, route *transit.Route) bool {
		if routeNumber != route.RouteNumber {
			return true
		}
		routeStops, exists := route.Stops[co]
		if !exists {
			return true
		}

		matches := true
		if co == transit.OperatorNLB {
			matches = nlbID == route.NlbID.String()
		} else if co == transit.OperatorGMB {
			matches = gmbRegion == route.GMBRegion
		}

		if matches && slices.Contains(routeStops, stopID) && util.CommonElementPercentage(routeStops, referenceStops) > 0.5 {
			if !slices.Contains(direction, route.Dest) {
				direction = append(direction, route.Dest)
			}
		}
		if !slices.Contains(all, route.Dest) {
			all = append(all, route.Dest)
		}

		return true
	})

	return direction, all
}

var toPrefix = transit.BilingualText{Zh: "往", En: "To "}

// GetStopSpecialDestinations names the destination shown at stopID, covering MTR stations where
// trains in one bound split between termini. prependTo adds the "To " prefix.
func (e *Engine) GetStopSpecialDestinations(stopID string, co transit.Operator, route *transit.Route, prependTo bool) transit.BilingualText {
	if route.LrtCircular != nil {
		return *route.LrtCircular
	}

	destination := route.Dest
	up := strings.Contains(route.Bound[co], "UT")

	switch stopID {
	case "LHP":
		if up {
			destination = transit.BilingualText{Zh: "康城", En: "LOHAS Park"}
		} else {
			destination = transit.BilingualText{Zh: "北角/寶琳", En: "North Point/Po Lam"}
		}
	case "HAH", "POA":
		if up {
			destination = transit.BilingualText{Zh: "寶琳", En: "Po Lam"}
		} else {
			destination = transit.BilingualText{Zh: "北角/康城", En: "North Point/LOHAS Park"}
		}
	case "AIR", "AWE":
		if up {
			destination = transit.BilingualText{Zh: "博覽館", En: "AsiaWorld-Expo"}
		}
	}

	if prependTo {
		return transit.BilingualText{Zh: toPrefix.Zh + destination.Zh, En: toPrefix.En + destination.En}
	}
	return destination
}
