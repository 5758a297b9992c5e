package manager

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/datastore"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/httpclient"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/index"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/search"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/transit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseURL = "https://example.invalid/data/"

var testDataSet = DataSet{BaseURL: baseURL, VersionCode: 7}

type fakeFetcher struct {
	mutex     sync.Mutex
	responses map[string]string
	requests  map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{responses: map[string]string{}, requests: map[string]int{}}
}

func (f *fakeFetcher) set(url string, body string) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.responses[url] = body
}

func (f *fakeFetcher) count(url string) int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.requests[url]
}

func (f *fakeFetcher) Get(_ context.Context, url string) ([]byte, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.requests[url]++
	body, exists := f.responses[url]
	if !exists {
		return nil, &httpclient.StatusError{URL: url, StatusCode: 404}
	}
	return []byte(body), nil
}

func (f *fakeFetcher) GetWithProgress(ctx context.Context, url string, _ int64, progress func(float64)) ([]byte, error) {
	data, err := f.Get(ctx, url)
	if err == nil && progress != nil {
		progress(1)
	}
	return data, err
}

func (f *fakeFetcher) Post(ctx context.Context, url string, _ any) ([]byte, error) {
	return f.Get(ctx, url)
}

func stopID(prefix string, n int) string {
	return fmt.Sprintf("%s%012d", prefix, n)
}

// datasetJSON builds one KMB route "1" outbound calling at stops prefix0..prefixN
func datasetJSON(t *testing.T, prefix string, stops int) string {
	var stopIDs []string
	stopList := map[string]any{}
	for i := 1; i <= stops; i++ {
		id := stopID(prefix, i)
		stopIDs = append(stopIDs, id)
		stopList[id] = map[string]any{
			"location": map[string]float64{"lat": 22.3 + float64(i)/1000, "lng": 114.17},
			"name":     map[string]string{"zh": fmt.Sprintf("站%d", i), "en": fmt.Sprintf("Stop %d", i)},
		}
	}

	container := map[string]any{
		"dataSheet": map[string]any{
			"holidays": []string{},
			"routeList": map[string]any{
				"1+1+A+B": map[string]any{
					"route": "1", "bound": map[string]string{"kmb": "O"}, "co": []string{"kmb"}, "serviceType": "1",
					"orig": map[string]string{"zh": "甲", "en": "A"}, "dest": map[string]string{"zh": "乙", "en": "B"},
					"stops": map[string][]string{"kmb": stopIDs},
				},
			},
			"stopList": stopList,
			"stopMap":  map[string]any{},
		},
		"mtrBusStopAlias": map[string]any{},
		"kmbSubsidiary":   map[string]any{},
	}

	data, err := json.Marshal(container)
	require.NoError(t, err)
	return string(data)
}

func publish(fetcher *fakeFetcher, checksum string, dataset string) {
	fetcher.set(testDataSet.ChecksumURL(), checksum+"\n")
	fetcher.set(testDataSet.SizeURL(), fmt.Sprint(len(dataset)))
	fetcher.set(testDataSet.DataURL(), dataset)
}

func newTestManager(t *testing.T, store datastore.Store, fetcher *fakeFetcher) *Manager {
	manager := New(store, fetcher, testDataSet)
	manager.ChecksumTimeout = time.Second
	return manager
}

func newStore(t *testing.T) datastore.Store {
	store, err := datastore.NewFileStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestCheckUpdateDownloadsWithoutCache(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	fetcher := newFakeFetcher()
	publish(fetcher, "abc", datasetJSON(t, "STOP", 3))

	manager := newTestManager(t, store, fetcher)
	require.NoError(t, manager.EnsureDataReady(ctx, false))

	assert.Equal(t, Status{State: StateReady, Progress: 1}, manager.Status())
	require.NotNil(t, manager.Index())
	assert.Equal(t, 1, manager.Index().RouteCount())
	assert.Equal(t, 1, fetcher.count(testDataSet.DataURL()))

	checksum, err := store.Get(ctx, datastore.ChecksumFile)
	require.NoError(t, err)
	assert.Equal(t, "abc_7", string(checksum))

	exists, err := store.Exists(ctx, datastore.PreferencesFile)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCheckUpdateSuppressedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	fetcher := newFakeFetcher()
	publish(fetcher, "abc", datasetJSON(t, "STOP", 3))

	require.NoError(t, newTestManager(t, store, fetcher).EnsureDataReady(ctx, false))

	manager := newTestManager(t, store, fetcher)
	require.NoError(t, manager.EnsureDataReady(ctx, true))
	assert.Equal(t, StateReady, manager.Status().State)
	require.NoError(t, manager.CheckUpdate(ctx, true))
	assert.Equal(t, StateReady, manager.Status().State)

	assert.Equal(t, 1, fetcher.count(testDataSet.DataURL()))
	assert.Equal(t, 1, fetcher.count(testDataSet.ChecksumURL()))
}

func TestCheckUpdateSkipsDownloadForSameChecksum(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	fetcher := newFakeFetcher()
	publish(fetcher, "abc", datasetJSON(t, "STOP", 3))

	require.NoError(t, newTestManager(t, store, fetcher).EnsureDataReady(ctx, false))

	manager := newTestManager(t, store, fetcher)
	require.NoError(t, manager.EnsureDataReady(ctx, false))

	assert.Equal(t, StateReady, manager.Status().State)
	assert.Equal(t, 1, fetcher.count(testDataSet.DataURL()))
	assert.Equal(t, 2, fetcher.count(testDataSet.ChecksumURL()))
}

func TestCheckUpdateDownloadsNewChecksum(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	fetcher := newFakeFetcher()
	publish(fetcher, "abc", datasetJSON(t, "STOP", 3))

	manager := newTestManager(t, store, fetcher)
	require.NoError(t, manager.EnsureDataReady(ctx, false))
	first := manager.Index()

	publish(fetcher, "def", datasetJSON(t, "STOP", 4))
	require.NoError(t, manager.CheckUpdate(ctx, false))

	assert.Equal(t, 2, fetcher.count(testDataSet.DataURL()))
	assert.NotSame(t, first, manager.Index())
	assert.Equal(t, 4, manager.Index().StopCount())
}

func TestCheckUpdateWithoutConnectionOrCache(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	require.NoError(t, store.Put(ctx, datastore.ChecksumFile, []byte("stale")))

	manager := newTestManager(t, store, newFakeFetcher())
	manager.HasConnection = func(context.Context) bool { return false }

	err := manager.EnsureDataReady(ctx, false)
	assert.ErrorIs(t, err, ErrNoConnection)
	assert.Equal(t, StateError, manager.Status().State)

	exists, err := store.Exists(ctx, datastore.ChecksumFile)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCheckUpdateWithoutConnectionUsesCache(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	fetcher := newFakeFetcher()
	publish(fetcher, "abc", datasetJSON(t, "STOP", 3))
	require.NoError(t, newTestManager(t, store, fetcher).EnsureDataReady(ctx, false))

	manager := newTestManager(t, store, fetcher)
	manager.HasConnection = func(context.Context) bool { return false }

	require.NoError(t, manager.EnsureDataReady(ctx, false))
	assert.Equal(t, StateReady, manager.Status().State)
	assert.NotNil(t, manager.Engine())
}

func TestFailedDownloadDeletesChecksum(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	fetcher := newFakeFetcher()
	publish(fetcher, "abc", datasetJSON(t, "STOP", 3))

	manager := newTestManager(t, store, fetcher)
	require.NoError(t, manager.EnsureDataReady(ctx, false))
	previous := manager.Index()

	publish(fetcher, "def", "{not json")
	require.Error(t, manager.CheckUpdate(ctx, false))

	assert.Equal(t, StateError, manager.Status().State)
	assert.Same(t, previous, manager.Index())
	exists, err := store.Exists(ctx, datastore.ChecksumFile)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSubscribeSeesReady(t *testing.T) {
	ctx := context.Background()
	fetcher := newFakeFetcher()
	publish(fetcher, "abc", datasetJSON(t, "STOP", 3))

	manager := newTestManager(t, newStore(t), fetcher)
	updates, unsubscribe := manager.Subscribe()
	defer unsubscribe()

	require.NoError(t, manager.EnsureDataReady(ctx, false))

	var last Status
	for len(updates) > 0 {
		last = <-updates
	}
	assert.Equal(t, StateReady, last.State)
	assert.False(t, last.State.IsProcessing())
}

func favouriteOn(t *testing.T, engine *search.Engine, index int) transit.FavouriteRouteStop {
	stops := engine.GetAllStops("1", "O", transit.OperatorKMB, "")
	require.GreaterOrEqual(t, len(stops), index)
	stop := stops[index-1]
	return transit.FavouriteRouteStop{
		StopID:            stop.StopID,
		Co:                transit.OperatorKMB,
		Index:             index,
		Stop:              stop.Stop,
		Route:             stop.Route,
		FavouriteStopMode: transit.FavouriteStopModeFixed,
	}
}

func engineFor(t *testing.T, dataset string) *search.Engine {
	container, err := transit.DecodeDataContainer([]byte(dataset))
	require.NoError(t, err)
	return search.New(index.Build(container), nil)
}

func TestRepairFavouriteKeepsStopID(t *testing.T) {
	favourite := favouriteOn(t, engineFor(t, datasetJSON(t, "STOP", 10)), 5)

	repaired, outcome := RepairFavourite(engineFor(t, datasetJSON(t, "STOP", 6)), &favourite)

	require.Equal(t, RepairReplace, outcome)
	assert.Equal(t, stopID("STOP", 5), repaired.StopID)
	assert.Equal(t, 5, repaired.Index)
}

func TestRepairFavouriteClampsIndex(t *testing.T) {
	favourite := favouriteOn(t, engineFor(t, datasetJSON(t, "STOP", 10)), 9)

	repaired, outcome := RepairFavourite(engineFor(t, datasetJSON(t, "NEWS", 6)), &favourite)

	require.Equal(t, RepairReplace, outcome)
	assert.Equal(t, 6, repaired.Index)
	assert.Equal(t, stopID("NEWS", 6), repaired.StopID)
	assert.Equal(t, "站6", repaired.Stop.Name.Zh)
}

func TestRepairFavouriteDeletesVanishedRoute(t *testing.T) {
	favourite := favouriteOn(t, engineFor(t, datasetJSON(t, "STOP", 10)), 2)
	favourite.Route.Bound = map[transit.Operator]string{transit.OperatorKMB: "I"}

	_, outcome := RepairFavourite(engineFor(t, datasetJSON(t, "STOP", 10)), &favourite)

	assert.Equal(t, RepairDelete, outcome)
}

func TestRefreshRepairsStoredFavourites(t *testing.T) {
	ctx := context.Background()
	fetcher := newFakeFetcher()
	publish(fetcher, "abc", datasetJSON(t, "STOP", 10))

	manager := newTestManager(t, newStore(t), fetcher)
	require.NoError(t, manager.EnsureDataReady(ctx, false))

	require.NoError(t, manager.SetFavourite(ctx, 1, favouriteOn(t, manager.Engine(), 9)))
	require.NoError(t, manager.SetEtaTileConfiguration(ctx, 100, []int{1}))

	publish(fetcher, "def", datasetJSON(t, "NEWS", 6))
	require.NoError(t, manager.CheckUpdate(ctx, false))

	favourite := manager.Preferences().FavouriteRouteStops[1]
	require.NotNil(t, favourite)
	assert.Equal(t, 6, favourite.Index)
	assert.Equal(t, stopID("NEWS", 6), favourite.StopID)
	assert.Equal(t, []int{1}, manager.Preferences().EtaTileConfigurations[100])
}

func TestPreferenceOperations(t *testing.T) {
	ctx := context.Background()
	fetcher := newFakeFetcher()
	publish(fetcher, "abc", datasetJSON(t, "STOP", 3))

	manager := newTestManager(t, newStore(t), fetcher)
	require.NoError(t, manager.EnsureDataReady(ctx, false))

	favourite := favouriteOn(t, manager.Engine(), 2)
	require.NoError(t, manager.SetFavourite(ctx, 1, favourite))
	require.NoError(t, manager.SetFavourite(ctx, 2, favourite))
	require.NoError(t, manager.SetEtaTileConfiguration(ctx, 100, []int{1, 2}))
	require.NoError(t, manager.SetEtaTileConfiguration(ctx, 101, []int{1}))

	assert.True(t, manager.IsFavourite(favourite.StopID, transit.OperatorKMB, 2, favourite.Stop, favourite.Route))
	assert.False(t, manager.IsFavourite(favourite.StopID, transit.OperatorKMB, 3, favourite.Stop, favourite.Route))

	require.NoError(t, manager.ClearFavourite(ctx, 1))
	preferences := manager.Preferences()
	assert.NotContains(t, preferences.FavouriteRouteStops, 1)
	assert.Equal(t, []int{2}, preferences.EtaTileConfigurations[100])
	assert.NotContains(t, preferences.EtaTileConfigurations, 101)

	require.NoError(t, manager.ClearEtaTileConfiguration(ctx, 100))
	assert.Empty(t, manager.Preferences().EtaTileConfigurations)

	require.NoError(t, manager.AddLastLookupRoute(ctx, "1", transit.OperatorKMB, ""))
	require.NoError(t, manager.AddLastLookupRoute(ctx, "1A", transit.OperatorKMB, ""))
	require.NoError(t, manager.AddLastLookupRoute(ctx, "1", transit.OperatorKMB, ""))
	assert.Equal(t, "1", manager.Preferences().LastLookupRoutes[1].RouteNumber)
	assert.Error(t, manager.AddLastLookupRoute(ctx, "", transit.OperatorKMB, ""))

	require.NoError(t, manager.ClearLastLookupRoutes(ctx))
	assert.Empty(t, manager.Preferences().LastLookupRoutes)

	require.NoError(t, manager.SetLanguage(ctx, transit.LanguageEnglish))
	require.NoError(t, manager.SetRouteSortModePreference(ctx, "NORMAL", "RECENT"))
	assert.Equal(t, transit.LanguageEnglish, manager.Preferences().Language)
	assert.Equal(t, "RECENT", manager.Preferences().RouteSortModePreference["NORMAL"])

	copied := manager.Preferences()
	copied.FavouriteRouteStops[2].Index = 99
	assert.Equal(t, 2, manager.Preferences().FavouriteRouteStops[2].Index)
}
