package httpclient

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

// RetryFetcher retries failed requests with exponential backoff until MaxElapsed passes
type RetryFetcher struct {
	Fetcher    Fetcher
	MaxElapsed time.Duration
}

func WithRetry(fetcher Fetcher, maxElapsed time.Duration) *RetryFetcher {
	return &RetryFetcher{Fetcher: fetcher, MaxElapsed: maxElapsed}
}

func (r *RetryFetcher) Get(ctx context.Context, url string) ([]byte, error) {
	return r.retry(ctx, url, func() ([]byte, error) {
		return r.Fetcher.Get(ctx, url)
	})
}

func (r *RetryFetcher) GetWithProgress(ctx context.Context, url string, length int64, progress func(float64)) ([]byte, error) {
	return r.retry(ctx, url, func() ([]byte, error) {
		return r.Fetcher.GetWithProgress(ctx, url, length, progress)
	})
}

func (r *RetryFetcher) Post(ctx context.Context, url string, body any) ([]byte, error) {
	return r.retry(ctx, url, func() ([]byte, error) {
		return r.Fetcher.Post(ctx, url, body)
	})
}

func (r *RetryFetcher) retry(ctx context.Context, url string, operation func() ([]byte, error)) ([]byte, error) {
	retryBackoff := backoff.NewExponentialBackOff()
	retryBackoff.InitialInterval = 500 * time.Millisecond
	retryBackoff.MaxElapsedTime = r.MaxElapsed

	return backoff.RetryNotifyWithData(
		func() ([]byte, error) {
			data, err := operation()
			var statusError *StatusError
			if errors.As(err, &statusError) && statusError.StatusCode >= 400 && statusError.StatusCode < 500 {
				return nil, backoff.Permanent(err)
			}
			return data, err
		},
		backoff.WithContext(retryBackoff, ctx),
		func(err error, wait time.Duration) {
			log.Warn().Err(err).Str("url", url).Str("wait", wait.String()).Msg("Request failed, retrying")
		},
	)
}
