// Package fetch memoizes HTTP GET responses in a cache.
package fetch

import (
	"context"
	"io"
	"net/http"

	"github.com/jmgilman/go/errors"
	"go.uber.org/zap"

	"simplecache/internal/cache"
)

// Fetcher downloads URLs once per cache lifetime of the body.
type Fetcher struct {
	cache  *cache.Cache[string, []byte]
	client *http.Client
	logger *zap.Logger
}

// New returns a Fetcher. A nil client means http.DefaultClient.
func New(c *cache.Cache[string, []byte], client *http.Client, logger *zap.Logger) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{cache: c, client: client, logger: logger}
}

// Fetch returns the body of url, downloading it only on a cache miss.
// Failed downloads and non-2xx responses are not cached.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f.cache.GetOrLoad(ctx, url, f.download)
}

func (f *Fetcher) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidInput, "failed to build request")
	}

	f.logger.Debug("fetching", zap.String("url", url))
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeNetwork, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := errors.Newf(errors.CodeNetwork, "unexpected status %d", resp.StatusCode)
		return nil, errors.WithContext(err, "url", url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeNetwork, "failed to read body")
	}
	return body, nil
}
