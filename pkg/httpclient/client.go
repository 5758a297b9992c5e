package httpclient

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultUserAgent = "Mozilla/5.0"

// Fetcher is the transport used by the dataset manager and the ETA sources
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
	GetWithProgress(ctx context.Context, url string, length int64, progress func(float64)) ([]byte, error)
	Post(ctx context.Context, url string, body any) ([]byte, error)
}

type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.URL, e.StatusCode)
}

type Client struct {
	HTTP      *http.Client
	UserAgent string
	Timeout   time.Duration
}

func New(userAgent string, timeout time.Duration) *Client {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{
		HTTP:      &http.Client{},
		UserAgent: userAgent,
		Timeout:   timeout,
	}
}

func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	return c.GetWithProgress(ctx, url, -1, nil)
}

// GetWithProgress reports the fraction of length bytes received so far when length is positive
func (c *Client) GetWithProgress(ctx context.Context, url string, length int64, progress func(float64)) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, req, length, progress)
}

func (c *Client) Post(ctx context.Context, url string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(ctx, req, -1, nil)
}

func (c *Client) do(ctx context.Context, req *http.Request, length int64, progress func(float64)) ([]byte, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	req = req.WithContext(ctx)
	req.Header["user-agent"] = []string{c.UserAgent}
	req.Header.Set("Cache-Control", "no-cache")

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{URL: req.URL.String(), StatusCode: resp.StatusCode}
	}

	var reader io.Reader = resp.Body
	if progress != nil && length > 0 {
		reader = &progressReader{reader: reader, length: length, callback: progress}
	}

	if !resp.Uncompressed && (resp.Header.Get("Content-Encoding") == "gzip" || strings.HasSuffix(req.URL.Path, ".gz")) {
		gzipReader, err := gzip.NewReader(reader)
		if err != nil {
			return nil, err
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	return io.ReadAll(reader)
}

type progressReader struct {
	reader   io.Reader
	length   int64
	read     int64
	callback func(float64)
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.reader.Read(buf)
	if n > 0 {
		p.read += int64(n)
		p.callback(min(1, float64(p.read)/float64(p.length)))
	}
	return n, err
}

func GetText(ctx context.Context, fetcher Fetcher, url string) (string, error) {
	data, err := fetcher.Get(ctx, url)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func GetJSON[T any](ctx context.Context, fetcher Fetcher, url string) (T, error) {
	var value T

	data, err := fetcher.Get(ctx, url)
	if err != nil {
		return value, err
	}

	if err := json.Unmarshal(data, &value); err != nil {
		return value, fmt.Errorf("decode %s: %w", url, err)
	}
	return value, nil
}

func PostJSON[T any](ctx context.Context, fetcher Fetcher, url string, body any) (T, error) {
	var value T

	data, err := fetcher.Post(ctx, url, body)
	if err != nil {
		return value, err
	}

	if err := json.Unmarshal(data, &value); err != nil {
		return value, fmt.Errorf("decode %s: %w", url, err)
	}
	return value, nil
}
