package query

import (
	"fmt"
	"time"

	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/search"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/transit"
)

// ETA asks for the arrivals of Route at StopID, the StopIndex-th (1-based) stop of the route for Co
type ETA struct {
	StopID    string
	StopIndex int
	Co        transit.Operator
	Route     *transit.Route

	Language transit.Language
	Typhoon  transit.TyphoonInfo
	Now      time.Time

	Engine *search.Engine
}

func (q ETA) String() string {
	return fmt.Sprintf("%s,%d,%s,%s,%s", q.StopID, q.StopIndex, q.Route.RouteNumber, q.Co.Name(), q.Route.Bound[q.Co])
}

// ByBound identifies the route direction queried
func (q ETA) ByBound() string {
	return fmt.Sprintf("%s,%s,%s", q.Route.RouteNumber, q.Co.Name(), q.Route.Bound[q.Co])
}

func (q ETA) ByRoute() string {
	return fmt.Sprintf("%s,%s", q.Route.RouteNumber, q.Co.Name())
}
