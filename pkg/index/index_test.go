package index

import (
	"testing"
	"time"

	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/transit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const document = `{
	"dataSheet": {
		"holidays": ["20240101", "2024-04-01"],
		"routeList": {
			"1+1+A+B": {"route": "1", "bound": {"kmb": "O"}, "co": ["kmb"], "serviceType": "1", "stops": {"kmb": ["AAAAAAAAAAAAAAA1"]}},
			"AEL+1+X+Y": {"route": "AEL", "bound": {"mtr": "UT"}, "co": ["mtr"], "serviceType": "1", "stops": {"mtr": ["HOK", "KOW"]}}
		},
		"stopList": {
			"AAAAAAAAAAAAAAA1": {"location": {"lat": 22.3, "lng": 114.1}, "name": {"zh": "站", "en": "Stop"}}
		},
		"stopMap": {}
	},
	"mtrBusStopAlias": {},
	"kmbSubsidiary": {"LWB": ["A41"]}
}`

func TestBuild(t *testing.T) {
	container, err := transit.DecodeDataContainer([]byte(document))
	require.NoError(t, err)

	idx := Build(container)

	assert.Equal(t, []string{"1+1+A+B", "AEL+1+X+Y"}, idx.RouteKeys())
	assert.Equal(t, []string{"1"}, idx.BusRouteNumbers())

	route, ok := idx.Route("1+1+A+B")
	require.True(t, ok)
	key, ok := idx.RouteKey(route)
	require.True(t, ok)
	assert.Equal(t, "1+1+A+B", key)

	assert.Equal(t, transit.KMBSubsidiaryLWB, idx.KMBSubsidiary("A41"))
	assert.Equal(t, transit.KMBSubsidiaryKMB, idx.KMBSubsidiary("1"))
}

func TestIsHoliday(t *testing.T) {
	container, err := transit.DecodeDataContainer([]byte(document))
	require.NoError(t, err)
	idx := Build(container)

	hongKong := time.FixedZone("HKT", 8*60*60)
	assert.True(t, idx.IsHoliday(time.Date(2024, 1, 1, 10, 0, 0, 0, hongKong)))
	assert.True(t, idx.IsHoliday(time.Date(2024, 4, 1, 10, 0, 0, 0, hongKong)))
	assert.False(t, idx.IsHoliday(time.Date(2024, 1, 2, 10, 0, 0, 0, hongKong)))
	// saturday
	assert.True(t, idx.IsHoliday(time.Date(2024, 1, 6, 10, 0, 0, 0, hongKong)))
}

func TestRouteKeysAtStop(t *testing.T) {
	container, err := transit.DecodeDataContainer([]byte(document))
	require.NoError(t, err)
	idx := Build(container)

	assert.Equal(t, []string{"1+1+A+B"}, idx.RouteKeysAtStop("AAAAAAAAAAAAAAA1"))
	assert.Equal(t, []string{"AEL+1+X+Y"}, idx.RouteKeysAtStop("KOW"))
	assert.Empty(t, idx.RouteKeysAtStop("NOPE"))
}
