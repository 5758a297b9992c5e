package search

import (
	"testing"
	"time"

	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/index"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/transit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dataset = `{
	"dataSheet": {
		"holidays": [],
		"routeList": {
			"1+1+A+D": {"route": "1", "bound": {"kmb": "O"}, "co": ["kmb"], "serviceType": "1", "gtfsId": "100",
				"orig": {"zh": "甲", "en": "A"}, "dest": {"zh": "丁", "en": "D"},
				"stops": {"kmb": ["AAAAAAAAAAAAAAA1", "AAAAAAAAAAAAAAA2", "AAAAAAAAAAAAAAA3", "AAAAAAAAAAAAAAA4"]}},
			"1+2+B+E": {"route": "1", "bound": {"kmb": "O"}, "co": ["kmb"], "serviceType": "2", "gtfsId": "101",
				"orig": {"zh": "乙", "en": "B"}, "dest": {"zh": "戊", "en": "E"},
				"stops": {"kmb": ["AAAAAAAAAAAAAAA1", "AAAAAAAAAAAAAAAX", "AAAAAAAAAAAAAAA4"]}},
			"1+1+D+A": {"route": "1", "bound": {"kmb": "I"}, "co": ["kmb"], "serviceType": "1", "gtfsId": "100",
				"orig": {"zh": "丁", "en": "D"}, "dest": {"zh": "甲", "en": "A"},
				"stops": {"kmb": ["AAAAAAAAAAAAAAA4", "AAAAAAAAAAAAAAA1"]}},
			"1A+1+B+C": {"route": "1A", "bound": {"kmb": "O"}, "co": ["kmb"], "serviceType": "1",
				"orig": {"zh": "乙", "en": "B"}, "dest": {"zh": "丙", "en": "C"},
				"stops": {"kmb": ["AAAAAAAAAAAAAAA2", "AAAAAAAAAAAAAAA3"]}},
			"TWL+1+CEN+TST": {"route": "TWL", "bound": {"mtr": "UT"}, "co": ["mtr"], "serviceType": "1",
				"orig": {"zh": "中環", "en": "Central"}, "dest": {"zh": "尖沙咀", "en": "Tsim Sha Tsui"},
				"stops": {"mtr": ["CEN", "ADM", "TST"]}},
			"ISL+1+CEN+ADM": {"route": "ISL", "bound": {"mtr": "UT"}, "co": ["mtr"], "serviceType": "1",
				"orig": {"zh": "中環", "en": "Central"}, "dest": {"zh": "金鐘", "en": "Admiralty"},
				"stops": {"mtr": ["CEN", "ADM"]}},
			"TCL+1+HOK+HOK": {"route": "TCL", "bound": {"mtr": "UT"}, "co": ["mtr"], "serviceType": "1",
				"orig": {"zh": "香港", "en": "Hong Kong"}, "dest": {"zh": "香港", "en": "Hong Kong"},
				"stops": {"mtr": ["HOK"]}}
		},
		"stopList": {
			"AAAAAAAAAAAAAAA1": {"location": {"lat": 22.3000, "lng": 114.1700}, "name": {"zh": "一", "en": "One"}},
			"AAAAAAAAAAAAAAA2": {"location": {"lat": 22.3005, "lng": 114.1700}, "name": {"zh": "二", "en": "Two"}},
			"AAAAAAAAAAAAAAA3": {"location": {"lat": 22.3100, "lng": 114.1700}, "name": {"zh": "三", "en": "Three"}},
			"AAAAAAAAAAAAAAA4": {"location": {"lat": 22.3200, "lng": 114.1700}, "name": {"zh": "四", "en": "Four"}},
			"AAAAAAAAAAAAAAAX": {"location": {"lat": 22.3300, "lng": 114.1700}, "name": {"zh": "叉", "en": "Cross"}},
			"CEN": {"location": {"lat": 22.2820, "lng": 114.1580}, "name": {"zh": "中環", "en": "Central"}},
			"ADM": {"location": {"lat": 22.2790, "lng": 114.1650}, "name": {"zh": "金鐘", "en": "Admiralty"}},
			"TST": {"location": {"lat": 22.2970, "lng": 114.1720}, "name": {"zh": "尖沙咀", "en": "Tsim Sha Tsui"}},
			"HOK": {"location": {"lat": 22.2850, "lng": 114.1580}, "name": {"zh": "香港", "en": "Hong Kong"}}
		},
		"stopMap": {}
	},
	"mtrBusStopAlias": {},
	"kmbSubsidiary": {}
}`

// a wednesday afternoon
var fixedNow = time.Date(2024, 1, 3, 14, 0, 0, 0, time.FixedZone("HKT", 8*60*60))

func newTestEngine(t *testing.T) *Engine {
	container, err := transit.DecodeDataContainer([]byte(dataset))
	require.NoError(t, err)

	return New(index.Build(container), func() time.Time { return fixedNow })
}

func TestFindRoutesOneEntryPerDirection(t *testing.T) {
	engine := newTestEngine(t)

	results := engine.FindRoutes("1", true, nil, nil)
	require.Len(t, results, 2)

	keys := []string{results[0].RouteKey, results[1].RouteKey}
	assert.ElementsMatch(t, []string{"1+1+A+D", "1+1+D+A"}, keys)
	for _, result := range results {
		assert.Equal(t, transit.OperatorKMB, result.Co)
		assert.Equal(t, "1", result.Route.ServiceType.String())
	}
}

func TestFindRoutesPrefix(t *testing.T) {
	engine := newTestEngine(t)

	results := engine.FindRoutes("1", false, nil, nil)
	require.Len(t, results, 3)
	assert.Equal(t, "1A", results[2].Route.RouteNumber)

	filtered := engine.FindRoutes("1", false, func(route *transit.Route) bool {
		return route.Bound[transit.OperatorKMB] == "I"
	}, nil)
	require.Len(t, filtered, 1)
	assert.Equal(t, "1+1+D+A", filtered[0].RouteKey)
}

func TestFindRouteByKey(t *testing.T) {
	engine := newTestEngine(t)

	route, key, ok := engine.FindRouteByKey("1A+1+B+C", "")
	require.True(t, ok)
	assert.Equal(t, "1A+1+B+C", key)
	assert.Equal(t, "1A", route.RouteNumber)

	_, key, ok = engine.FindRouteByKey("1a+1+b+c", "1A")
	require.True(t, ok)
	assert.Equal(t, "1A+1+B+C", key)

	_, _, ok = engine.FindRouteByKey("anything", "999")
	assert.False(t, ok)
}

func TestGetPossibleNextChar(t *testing.T) {
	engine := newTestEngine(t)

	result := engine.GetPossibleNextChar("1")
	assert.True(t, result.HasExactMatch)
	assert.Equal(t, []string{"A"}, result.Characters)

	result = engine.GetPossibleNextChar("2")
	assert.False(t, result.HasExactMatch)
	assert.Empty(t, result.Characters)
}

func TestGetNearbyRoutes(t *testing.T) {
	engine := newTestEngine(t)

	result := engine.GetNearbyRoutes(22.3001, 114.1700, nil, false)

	assert.Equal(t, "AAAAAAAAAAAAAAA1", result.ClosestStopID)
	require.Len(t, result.Result, 3)
	assert.Equal(t, "1", result.Result[0].Route.RouteNumber)
	assert.Equal(t, "1", result.Result[1].Route.RouteNumber)
	assert.Equal(t, "1A", result.Result[2].Route.RouteNumber)
	assert.Equal(t, "AAAAAAAAAAAAAAA2", result.Result[2].StopInfo.StopID)

	excluded := engine.GetNearbyRoutes(22.3001, 114.1700, map[string]bool{"1": true}, false)
	require.Len(t, excluded.Result, 1)
	assert.Equal(t, "1A", excluded.Result[0].Route.RouteNumber)
}

func TestGetNearbyRoutesNothingClose(t *testing.T) {
	engine := newTestEngine(t)

	result := engine.GetNearbyRoutes(22.5, 114.0, nil, false)
	assert.Empty(t, result.Result)
	assert.NotEmpty(t, result.ClosestStopID)
}

func TestGetAllStopsMergesBranches(t *testing.T) {
	engine := newTestEngine(t)

	stops := engine.GetAllStops("1", "O", transit.OperatorKMB, "")
	require.Len(t, stops, 5)

	var ids []string
	for _, stop := range stops {
		ids = append(ids, stop.StopID)
	}
	assert.Equal(t, []string{"AAAAAAAAAAAAAAA1", "AAAAAAAAAAAAAAA2", "AAAAAAAAAAAAAAA3", "AAAAAAAAAAAAAAAX", "AAAAAAAAAAAAAAA4"}, ids)

	assert.Equal(t, []int{0, 1}, stops[0].BranchIDs)
	assert.Equal(t, []int{0}, stops[1].BranchIDs)
	assert.Equal(t, []int{1}, stops[3].BranchIDs)
	assert.Equal(t, []int{0, 1}, stops[4].BranchIDs)

	// shared stops keep the primary branch
	assert.Equal(t, 1, stops[0].ServiceType)
	assert.Equal(t, 2, stops[3].ServiceType)
}

func TestGetAllStopsUnknownDirection(t *testing.T) {
	engine := newTestEngine(t)

	assert.Empty(t, engine.GetAllStops("1", "X", transit.OperatorKMB, ""))
}

func TestGetAllOriginsAndDestinations(t *testing.T) {
	engine := newTestEngine(t)

	origins, destinations := engine.GetAllOriginsAndDestinations("1", "O", transit.OperatorKMB, "")

	// both origins start on the main branch
	assert.Empty(t, origins)
	assert.Equal(t, []transit.BilingualText{{Zh: "丁", En: "D"}, {Zh: "戊", En: "E"}}, destinations)
}

func TestGetAllDestinationsByDirection(t *testing.T) {
	engine := newTestEngine(t)

	reference, _ := engine.Index.Route("1+1+A+D")
	direction, all := engine.GetAllDestinationsByDirection("1", transit.OperatorKMB, "", "", reference, "AAAAAAAAAAAAAAA1")

	assert.ElementsMatch(t, []transit.BilingualText{{Zh: "丁", En: "D"}}, direction)
	assert.ElementsMatch(t, []transit.BilingualText{{Zh: "丁", En: "D"}, {Zh: "戊", En: "E"}, {Zh: "甲", En: "A"}}, all)
}

func TestGetStopSpecialDestinations(t *testing.T) {
	engine := newTestEngine(t)

	up := &transit.Route{Bound: map[transit.Operator]string{transit.OperatorMTR: "TKL-UT"}, Dest: transit.BilingualText{Zh: "終點", En: "End"}}
	down := &transit.Route{Bound: map[transit.Operator]string{transit.OperatorMTR: "TKL-DT"}, Dest: transit.BilingualText{Zh: "終點", En: "End"}}

	assert.Equal(t, "LOHAS Park", engine.GetStopSpecialDestinations("LHP", transit.OperatorMTR, up, false).En)
	assert.Equal(t, "North Point/Po Lam", engine.GetStopSpecialDestinations("LHP", transit.OperatorMTR, down, false).En)
	assert.Equal(t, "北角/康城", engine.GetStopSpecialDestinations("POA", transit.OperatorMTR, down, false).Zh)
	assert.Equal(t, "To AsiaWorld-Expo", engine.GetStopSpecialDestinations("AIR", transit.OperatorMTR, up, true).En)
	assert.Equal(t, "往終點", engine.GetStopSpecialDestinations("AIR", transit.OperatorMTR, down, true).Zh)

	circular := &transit.Route{LrtCircular: &transit.BilingualText{Zh: "循環", En: "Circular"}}
	assert.Equal(t, "Circular", engine.GetStopSpecialDestinations("LR001", transit.OperatorLRT, circular, true).En)
}

func TestMtrLinePosition(t *testing.T) {
	engine := newTestEngine(t)

	assert.True(t, engine.IsMtrStopOnOrAfter("TST", "ADM", "TWL", "UT"))
	assert.True(t, engine.IsMtrStopOnOrAfter("ADM", "ADM", "TWL", "UT"))
	assert.False(t, engine.IsMtrStopOnOrAfter("CEN", "ADM", "TWL", "UT"))
	assert.False(t, engine.IsMtrStopOnOrAfter("TST", "ADM", "TWL", "DT"))

	assert.True(t, engine.IsMtrStopEndOfLine("TST", "TWL", "UT"))
	assert.False(t, engine.IsMtrStopEndOfLine("ADM", "TWL", "UT"))
}

func TestIsLrtStopOnOrAfter(t *testing.T) {
	engine := newTestEngine(t)

	route, _ := engine.Index.Route("1+1+A+D")
	route = &transit.Route{Stops: map[transit.Operator][]string{transit.OperatorLRT: route.Stops[transit.OperatorKMB]}}

	assert.True(t, engine.IsLrtStopOnOrAfter("AAAAAAAAAAAAAAA2", "四", route))
	assert.False(t, engine.IsLrtStopOnOrAfter("AAAAAAAAAAAAAAA2", "一", route))
	assert.False(t, engine.IsLrtStopOnOrAfter("UNKNOWN", "四", route))
}

func TestGetMtrStationInterchange(t *testing.T) {
	engine := newTestEngine(t)

	interchange := engine.GetMtrStationInterchange("CEN", "TWL")
	assert.Equal(t, []string{"ISL"}, interchange.Lines)
	assert.Equal(t, []string{"TCL"}, interchange.OutOfStationLines)
	assert.True(t, interchange.IsOutOfStationPaid)
	assert.False(t, interchange.HasLightRail)

	interchange = engine.GetMtrStationInterchange("TST", "TWL")
	assert.Empty(t, interchange.Lines)
	assert.False(t, interchange.IsOutOfStationPaid)
}
