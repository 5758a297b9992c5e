package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/api/routes"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/config"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/dataaggregator/source/kmb"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/dataimporter/manager"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/datastore"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/httpclient"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/registry"
	"github.com/alicebob/miniredis/v2"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dataset = `{
	"dataSheet": {
		"holidays": [],
		"routeList": {
			"1+1+A+B": {"route": "1", "bound": {"kmb": "O"}, "co": ["kmb"], "serviceType": "1",
				"orig": {"zh": "甲", "en": "A"}, "dest": {"zh": "乙", "en": "B"},
				"stops": {"kmb": ["KMBSTOP000000001", "KMBSTOP000000002", "KMBSTOP000000003"]}},
			"1+1+B+A": {"route": "1", "bound": {"kmb": "I"}, "co": ["kmb"], "serviceType": "1",
				"orig": {"zh": "乙", "en": "B"}, "dest": {"zh": "甲", "en": "A"},
				"stops": {"kmb": ["KMBSTOP000000003", "KMBSTOP000000001"]}}
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
	requests  map[string]int
}

func (f *fakeFetcher) Get(_ context.Context, url string) ([]byte, error) {
	f.requests[url]++
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

type testServer struct {
	app      *fiber.App
	registry *registry.Registry
	fetcher  *fakeFetcher
}

func newTestServer(t *testing.T, ready bool, options AppOptions) *testServer {
	cfg := config.Default()
	cfg.Dataset.BaseURL = "https://example.invalid/data/"
	cfg.Dataset.Gzip = false
	cfg.Typhoon.Disabled = true

	dataSet := manager.DataSet{BaseURL: cfg.Dataset.BaseURL, VersionCode: cfg.Dataset.VersionCode}
	eta := fixedNow.Add(4 * time.Minute).Format(time.RFC3339)
	fetcher := &fakeFetcher{
		requests: map[string]int{},
		responses: map[string]string{
			dataSet.ChecksumURL():                           "abc",
			dataSet.DataURL():                               dataset,
			fmt.Sprintf(kmb.StopETAURL, "KMBSTOP000000002"): `{"data": [{"co": "KMB", "route": "1", "dir": "O", "seq": 2, "eta_seq": 1, "eta": "` + eta + `", "rmk_en": "", "rmk_tc": ""}]}`,
		},
	}

	fileStore, err := datastore.NewFileStore(t.TempDir())
	require.NoError(t, err)

	r := registry.NewWith(cfg, registry.Options{
		Store:   fileStore,
		Fetcher: fetcher,
		Now:     func() time.Time { return fixedNow },
	})
	if ready {
		require.NoError(t, r.EnsureDataReady(context.Background(), false))
	}

	return &testServer{app: NewApp(r, options), registry: r, fetcher: fetcher}
}

func (s *testServer) do(t *testing.T, method string, target string, body string) (*http.Response, []byte) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func decode[T any](t *testing.T, data []byte) T {
	var value T
	require.NoError(t, json.Unmarshal(data, &value))
	return value
}

func TestNotReady(t *testing.T) {
	server := newTestServer(t, false, AppOptions{})

	resp, body := server.do(t, http.MethodGet, "/status", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "LOADING", decode[map[string]any](t, body)["state"])

	resp, body = server.do(t, http.MethodGet, "/routes/search?q=1", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, decode[map[string]any](t, body), "error")
}

func TestSearchReturnsBasicGroup(t *testing.T) {
	server := newTestServer(t, true, AppOptions{})

	resp, body := server.do(t, http.MethodGet, "/routes/search?q=1&exact=true", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	results := decode[[]map[string]any](t, body)
	require.Len(t, results, 2)
	route := results[0]["route"].(map[string]any)
	assert.Equal(t, "1", route["routeNumber"])
	assert.NotContains(t, route, "stops")

	resp, _ = server.do(t, http.MethodGet, "/routes/search", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetRouteAndStops(t *testing.T) {
	server := newTestServer(t, true, AppOptions{})

	resp, body := server.do(t, http.MethodGet, "/routes/1+1+A+B", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	route := decode[map[string]any](t, body)
	assert.Equal(t, "1+1+A+B", route["key"])
	assert.Contains(t, route, "stops")

	resp, body = server.do(t, http.MethodGet, "/routes/1+1+A+B/stops", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stops := decode[map[string]any](t, body)["stops"].([]any)
	require.Len(t, stops, 3)
	assert.Equal(t, "KMBSTOP000000002", stops[1].(map[string]any)["stopId"])

	resp, _ = server.do(t, http.MethodGet, "/routes/1+1+A+B/stops?co=ctb", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = server.do(t, http.MethodGet, "/routes/1+1+A+B/destinations?lang=en", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []any{"B"}, decode[map[string]any](t, body)["destinations"])
}

func TestETAUsesMicroCache(t *testing.T) {
	redisServer := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: redisServer.Addr()})
	etaCache := routes.NewETACache(redisstore.NewRedis(client, store.WithExpiration(time.Minute)))

	server := newTestServer(t, true, AppOptions{ETACache: etaCache})
	target := "/eta?route=1%2B1%2BA%2BB&co=kmb&stop=KMBSTOP000000002&index=2&lang=en"

	resp, body := server.do(t, http.MethodGet, target, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decode[map[string]any](t, body)
	assert.Equal(t, false, result["isConnectionError"])
	line := result["lines"].(map[string]any)["1"].(map[string]any)
	assert.EqualValues(t, 4, line["etaRounded"])

	resp, cached := server.do(t, http.MethodGet, target, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "HIT", resp.Header.Get("X-Cache"))
	assert.JSONEq(t, string(body), string(cached))
	assert.Equal(t, 1, server.fetcher.requests[fmt.Sprintf(kmb.StopETAURL, "KMBSTOP000000002")])

	resp, _ = server.do(t, http.MethodGet, "/eta?route=1%2B1%2BA%2BB&co=kmb", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFavourites(t *testing.T) {
	server := newTestServer(t, true, AppOptions{})

	resp, body := server.do(t, http.MethodPut, "/favourites/1", `{"routeKey": "1+1+A+B", "co": "kmb", "index": 2}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "KMBSTOP000000002", decode[map[string]any](t, body)["stopId"])

	resp, _ = server.do(t, http.MethodPut, "/favourites/2", `{"routeKey": "1+1+A+B", "co": "kmb", "index": 9}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = server.do(t, http.MethodPut, "/favourites/2", `{"routeKey": "1+1+A+B", "co": "kmb", "index": 0}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = server.do(t, http.MethodGet, "/favourites", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	favourites := decode[[]map[string]any](t, body)
	require.Len(t, favourites, 1)
	assert.Equal(t, "1+1+A+B", favourites[0]["routeKey"])

	resp, body = server.do(t, http.MethodGet, "/favourites/eta?lang=en", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	withETA := decode[[]map[string]any](t, body)
	require.Len(t, withETA, 1)
	assert.Equal(t, false, withETA[0]["eta"].(map[string]any)["isConnectionError"])

	resp, _ = server.do(t, http.MethodDelete, "/favourites/1", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, server.registry.Manager.Preferences().FavouriteRouteStops)
}

func TestFavouriteMutationsUseAuth(t *testing.T) {
	deny := func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "denied"})
	}
	server := newTestServer(t, true, AppOptions{Auth: deny})

	resp, _ := server.do(t, http.MethodDelete, "/favourites/1", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = server.do(t, http.MethodGet, "/favourites", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestVersion(t *testing.T) {
	server := newTestServer(t, false, AppOptions{})

	resp, body := server.do(t, http.MethodGet, "/version", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "v1", decode[map[string]any](t, body)["version"])
}
