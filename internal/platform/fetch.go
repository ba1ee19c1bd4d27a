package platform

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

const maxDrainBytes = 64 << 10

// HTTPFetcher implements Fetcher on top of net/http.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher builds a fetcher with its own transport. Keep-alives are
// disabled so every probe opens a fresh connection.
func NewHTTPFetcher() *HTTPFetcher {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		DisableKeepAlives:     true,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return NewHTTPFetcherWithClient(&http.Client{Transport: transport})
}

// NewHTTPFetcherWithClient wraps an existing client.
func NewHTTPFetcherWithClient(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{client: client}
}

// Fetch issues a GET for url. In no-cors mode the status is withheld and any
// completed exchange yields an opaque response.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string, opts FetchOptions) (Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Response{}, fmt.Errorf("build request: %w", err)
	}
	if opts.Cache == CacheNoStore {
		req.Header.Set("Cache-Control", "no-store")
		req.Header.Set("Pragma", "no-cache")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))

	if opts.Mode == ModeNoCORS {
		return Response{Type: ResponseOpaque}, nil
	}
	return Response{
		OK:     resp.StatusCode >= 200 && resp.StatusCode < 300,
		Status: resp.StatusCode,
		Type:   ResponseBasic,
	}, nil
}
