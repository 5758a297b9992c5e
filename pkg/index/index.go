package index

import (
	"time"

	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/transit"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/util"
)

// Index is an immutable lookup view over one dataset. It is replaced as a whole on refresh.
type Index struct {
	Container *transit.DataContainer

	routeKeys       []string
	stopIDs         []string
	holidays        map[string]bool
	busRouteNumbers []string
	routeKeyByRoute map[*transit.Route]string
	subsidiaries    map[string]transit.KMBSubsidiary
	routesByStop    map[string][]string
}

func Build(container *transit.DataContainer) *Index {
	dataSheet := &container.DataSheet

	index := &Index{
		Container:       container,
		routeKeys:       util.SortedKeys(dataSheet.RouteList),
		stopIDs:         util.SortedKeys(dataSheet.StopList),
		holidays:        dataSheet.HolidayDates(),
		routeKeyByRoute: make(map[*transit.Route]string, len(dataSheet.RouteList)),
		subsidiaries:    map[string]transit.KMBSubsidiary{},
		routesByStop:    map[string][]string{},
	}

	busRouteNumbers := map[string]bool{}
	for _, key := range index.routeKeys {
		route := dataSheet.RouteList[key]
		index.routeKeyByRoute[route] = key

		seen := map[string]bool{}
		for _, stopIDs := range route.Stops {
			for _, stopID := range stopIDs {
				if !seen[stopID] {
					seen[stopID] = true
					index.routesByStop[stopID] = append(index.routesByStop[stopID], key)
				}
			}
		}

		for _, co := range route.Co {
			if co.IsBus() {
				busRouteNumbers[route.RouteNumber] = true
				break
			}
		}
	}
	index.busRouteNumbers = util.SortedKeys(busRouteNumbers)

	for subsidiary, routeNumbers := range container.KMBSubsidiary {
		for _, routeNumber := range routeNumbers {
			index.subsidiaries[routeNumber] = subsidiary
		}
	}

	return index
}

func (i *Index) Route(key string) (*transit.Route, bool) {
	route, exists := i.Container.DataSheet.RouteList[key]
	return route, exists
}

// RouteKeys are the dataset route keys in ascending order
func (i *Index) RouteKeys() []string {
	return i.routeKeys
}

// EachRoute visits routes in ascending key order until fn returns false
func (i *Index) EachRoute(fn func(key string, route *transit.Route) bool) {
	for _, key := range i.routeKeys {
		if !fn(key, i.Container.DataSheet.RouteList[key]) {
			return
		}
	}
}

func (i *Index) RouteKey(route *transit.Route) (string, bool) {
	key, exists := i.routeKeyByRoute[route]
	return key, exists
}

// RouteKeysAtStop lists, in ascending order, the keys of routes that call at stopID on any operator
func (i *Index) RouteKeysAtStop(stopID string) []string {
	return i.routesByStop[stopID]
}

func (i *Index) Stop(stopID string) (*transit.Stop, bool) {
	stop, exists := i.Container.DataSheet.StopList[stopID]
	return stop, exists
}

func (i *Index) StopIDs() []string {
	return i.stopIDs
}

func (i *Index) StopMap(stopID string) []transit.StopMapEntry {
	return i.Container.DataSheet.StopMap[stopID]
}

func (i *Index) BusRouteNumbers() []string {
	return i.busRouteNumbers
}

func (i *Index) IsHoliday(t time.Time) bool {
	return transit.IsHoliday(i.holidays, t)
}

func (i *Index) KMBSubsidiary(routeNumber string) transit.KMBSubsidiary {
	if subsidiary, exists := i.subsidiaries[routeNumber]; exists {
		return subsidiary
	}
	return transit.KMBSubsidiaryKMB
}

func (i *Index) MtrBusStopAlias(stopID string) []string {
	return i.Container.MtrBusStopAlias[stopID]
}

func (i *Index) RouteCount() int {
	return len(i.routeKeys)
}

func (i *Index) StopCount() int {
	return len(i.stopIDs)
}
