package search

import (
	"time"

	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/index"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/transit"
)

// Engine answers route and stop queries against one dataset index
type Engine struct {
	Index *index.Index
	Now   func() time.Time
}

func New(idx *index.Index, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{Index: idx, Now: now}
}

func (e *Engine) RouteKey(route *transit.Route) (string, bool) {
	return e.Index.RouteKey(route)
}

// sameDirection reports whether route runs on co in the direction given by bound (the NLB route id for NLB),
// restricted to gmbRegion for GMB
func sameDirection(route *transit.Route, routeNumber string, bound string, co transit.Operator, gmbRegion transit.GMBRegion) bool {
	if routeNumber != route.RouteNumber || !route.HasOperator(co) {
		return false
	}
	if co == transit.OperatorNLB {
		return bound == route.NlbID.String()
	}
	if bound != route.Bound[co] {
		return false
	}
	if co == transit.OperatorGMB {
		return gmbRegion == route.GMBRegion
	}
	return true
}
