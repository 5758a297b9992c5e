package registry

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/config"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/dataaggregator/source/kmb"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/dataimporter/manager"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/datastore"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/httpclient"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/transit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dataset = `{
	"dataSheet": {
		"holidays": [],
		"routeList": {
			"1+1+A+B": {"route": "1", "bound": {"kmb": "O"}, "co": ["kmb"], "serviceType": "1",
				"orig": {"zh": "甲", "en": "A"}, "dest": {"zh": "乙", "en": "B"},
				"stops": {"kmb": ["KMBSTOP000000001", "KMBSTOP000000002"]}},
			"1+2+A+C": {"route": "1", "bound": {"kmb": "O"}, "co": ["kmb"], "serviceType": "2",
				"orig": {"zh": "甲", "en": "A"}, "dest": {"zh": "丙", "en": "C"},
				"stops": {"kmb": ["KMBSTOP000000001", "KMBSTOP000000003"]}},
			"1A+1+A+B": {"route": "1A", "bound": {"kmb": "I"}, "co": ["kmb"], "serviceType": "1",
				"orig": {"zh": "甲", "en": "A"}, "dest": {"zh": "乙", "en": "B"},
				"stops": {"kmb": ["KMBSTOP000000002"]}}
		},
		"stopList": {
			"KMBSTOP000000001": {"location": {"lat": 22.3000, "lng": 114.1700}, "name": {"zh": "一", "en": "One"}},
			"KMBSTOP000000002": {"location": {"lat": 22.3005, "lng": 114.1700}, "name": {"zh": "二", "en": "Two"}},
			"KMBSTOP000000003": {"location": {"lat": 22.3010, "lng": 114.1700}, "name": {"zh": "三", "en": "Three"}}
		},
		"stopMap": {}
	},
	"mtrBusStopAlias": {},
	"kmbSubsidiary": {}
}`

var fixedNow = time.Date(2024, 1, 3, 14, 0, 0, 0, time.FixedZone("HKT", 8*60*60))

type fakeFetcher struct {
	responses map[string]string
}

func (f *fakeFetcher) Get(_ context.Context, url string) ([]byte, error) {
	body, exists := f.responses[url]
	if !exists {
		return nil, &httpclient.StatusError{URL: url, StatusCode: 404}
	}
	return []byte(body), nil
}

func (f *fakeFetcher) GetWithProgress(ctx context.Context, url string, _ int64, _ func(float64)) ([]byte, error) {
	return f.Get(ctx, url)
}

func (f *fakeFetcher) Post(ctx context.Context, url string, _ any) ([]byte, error) {
	return f.Get(ctx, url)
}

func arrivalAt(stopIndex int, minutes int) string {
	eta := fixedNow.Add(time.Duration(minutes) * time.Minute).Format(time.RFC3339)
	return fmt.Sprintf(`{"co": "KMB", "route": "1", "dir": "O", "seq": %d, "eta_seq": 1, "eta": "%s", "rmk_en": "", "rmk_tc": ""}`, stopIndex, eta)
}

func newTestRegistry(t *testing.T) *Registry {
	cfg := config.Default()
	cfg.Dataset.BaseURL = "https://example.invalid/data/"
	cfg.Dataset.Gzip = false
	cfg.Typhoon.Disabled = true

	dataSet := manager.DataSet{BaseURL: cfg.Dataset.BaseURL, VersionCode: cfg.Dataset.VersionCode}
	fetcher := &fakeFetcher{responses: map[string]string{
		dataSet.ChecksumURL():                           "abc",
		dataSet.DataURL():                               dataset,
		fmt.Sprintf(kmb.StopETAURL, "KMBSTOP000000001"): `{"data": [` + arrivalAt(1, 3) + `]}`,
		fmt.Sprintf(kmb.StopETAURL, "KMBSTOP000000002"): `{"data": [` + arrivalAt(2, 7) + `]}`,
	}}

	store, err := datastore.NewFileStore(t.TempDir())
	require.NoError(t, err)

	return NewWith(cfg, Options{
		Store:   store,
		Fetcher: fetcher,
		Now:     func() time.Time { return fixedNow },
	})
}

func TestQueryBeforeReadyIsConnectionError(t *testing.T) {
	registry := newTestRegistry(t)

	_, err := registry.Search("1", true)
	assert.ErrorIs(t, err, ErrNotReady)

	route := &transit.Route{RouteNumber: "1", Bound: map[transit.Operator]string{transit.OperatorKMB: "O"}}
	result := registry.QueryETA(context.Background(), "KMBSTOP000000001", 1, transit.OperatorKMB, route, transit.LanguageEnglish).Get()
	assert.True(t, result.IsConnectionError)
}

func TestSearchAndBranchMergedStops(t *testing.T) {
	registry := newTestRegistry(t)
	require.NoError(t, registry.EnsureDataReady(context.Background(), false))

	exact, err := registry.Search("1", true)
	require.NoError(t, err)
	require.Len(t, exact, 1)
	assert.Equal(t, "1+1+A+B", exact[0].RouteKey)

	prefix, err := registry.Search("1", false)
	require.NoError(t, err)
	assert.Len(t, prefix, 2)

	stops, err := registry.BranchMergedStops(exact[0].Route, transit.OperatorKMB)
	require.NoError(t, err)
	var stopIDs []string
	for _, stop := range stops {
		stopIDs = append(stopIDs, stop.StopID)
	}
	assert.Equal(t, []string{"KMBSTOP000000001", "KMBSTOP000000002", "KMBSTOP000000003"}, stopIDs)

	nearby, err := registry.NearbyRoutes(22.3001, 114.1700, nil, false)
	require.NoError(t, err)
	assert.Equal(t, "KMBSTOP000000001", nearby.ClosestStopID)
}

func TestFavouriteETAs(t *testing.T) {
	ctx := context.Background()
	registry := newTestRegistry(t)
	require.NoError(t, registry.EnsureDataReady(ctx, false))

	stops, err := registry.BranchMergedStops(registry.Manager.Index().Container.DataSheet.RouteList["1+1+A+B"], transit.OperatorKMB)
	require.NoError(t, err)
	for i, favouriteIndex := range []int{2, 1} {
		stop := stops[i]
		require.NoError(t, registry.SetFavourite(ctx, favouriteIndex, transit.FavouriteRouteStop{
			StopID:            stop.StopID,
			Co:                transit.OperatorKMB,
			Index:             i + 1,
			Stop:              stop.Stop,
			Route:             stop.Route,
			FavouriteStopMode: transit.FavouriteStopModeFixed,
		}))
	}

	results := registry.FavouriteETAs(ctx, transit.LanguageEnglish, time.Second)

	require.Len(t, results, 2)
	assert.Equal(t, 1, results[0].Index)
	assert.Equal(t, "KMBSTOP000000002", results[0].Favourite.StopID)
	assert.Equal(t, 7, results[0].Result.FirstLine().EtaRounded)
	assert.Equal(t, 2, results[1].Index)
	assert.Equal(t, 3, results[1].Result.FirstLine().EtaRounded)

	require.NoError(t, registry.ClearFavourite(ctx, 1))
	assert.Len(t, registry.FavouriteETAs(ctx, transit.LanguageEnglish, time.Second), 1)
}
