package httpclient

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		w.Write([]byte(`{"data": [1, 2, 3]}`))
	}))
	defer server.Close()

	client := New("test-agent", time.Second)

	result, err := GetJSON[struct {
		Data []int `json:"data"`
	}](context.Background(), client, server.URL)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, result.Data)
}

func TestGzipWithProgress(t *testing.T) {
	var compressed bytes.Buffer
	writer := gzip.NewWriter(&compressed)
	writer.Write(bytes.Repeat([]byte("hkbuseta"), 4096))
	writer.Close()
	payload := compressed.Bytes()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer server.Close()

	client := New("", time.Second)

	var last float64
	data, err := client.GetWithProgress(context.Background(), server.URL+"/data.json.gz", int64(len(payload)), func(p float64) {
		assert.GreaterOrEqual(t, p, last)
		last = p
	})
	require.NoError(t, err)
	assert.Len(t, data, 8*4096)
	assert.Equal(t, 1.0, last)
}

func TestPostJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, http.MethodPost, r.Method)
		json.NewEncoder(w).Encode(map[string]string{"echo": body["routeName"]})
	}))
	defer server.Close()

	result, err := PostJSON[map[string]string](context.Background(), New("", time.Second), server.URL, map[string]string{"routeName": "K73"})
	require.NoError(t, err)
	assert.Equal(t, "K73", result["echo"])
}

func TestStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := New("", time.Second).Get(context.Background(), server.URL)
	var statusError *StatusError
	require.ErrorAs(t, err, &statusError)
	assert.Equal(t, http.StatusNotFound, statusError.StatusCode)
}

func TestRetryFetcher(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	fetcher := WithRetry(New("", time.Second), 10*time.Second)
	text, err := GetText(context.Background(), fetcher, server.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetryFetcherStopsOnClientError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, err := WithRetry(New("", time.Second), 10*time.Second).Get(context.Background(), server.URL)
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}
