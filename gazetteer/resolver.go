// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package gazetteer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/chiangyiyang/line-chat-llm-tutorial/spatial"
	"github.com/chiangyiyang/line-chat-llm-tutorial/utils/httputils"
)

// Resolver wraps an external geocoding provider. Every call costs one unit
// of the caller's budget; implementations do not retry, batch or rate
// limit. Failures are *ResolutionError values.
type Resolver interface {
	// Suggest returns the provider's top-ranked canonical name for
	// queryKey, or false when there are no candidates.
	Suggest(ctx context.Context, queryKey string) (string, bool, error)

	// Geocode returns the coordinates of a canonical name, or false when
	// the provider yields no geometry.
	Geocode(ctx context.Context, name string) (spatial.Point, bool, error)
}

// Provider names accepted by NewResolver.
const (
	ProviderGoogle    = "google"
	ProviderNominatim = "nominatim"
)

// ResolverOptions configures the HTTP based resolvers.
type ResolverOptions struct {
	// APIKey authenticates against providers that need one.
	APIKey string

	// BaseURL overrides the provider endpoint, mostly for tests.
	BaseURL string

	// Language requested for the returned names, e.g. zh-TW.
	Language string

	// Region biases results to a country code, e.g. tw.
	Region string

	// UserAgent is the User-Agent header to use in HTTP requests
	UserAgent string

	// Timeout of a single HTTP request.
	Timeout time.Duration

	// Enables light tracing of HTTP requests and responses to TraceWriter
	TraceWriter io.Writer

	// Enables full HTTP body tracing
	TraceBody bool
}

// NewResolver builds the resolver for the named provider.
func NewResolver(provider string, opts ResolverOptions) (Resolver, error) {
	switch provider {
	case ProviderGoogle:
		if opts.APIKey == "" {
			return nil, errors.New("google provider requires an API key")
		}

		return NewGoogleMapsResolver(opts), nil
	case ProviderNominatim:
		return NewNominatimResolver(opts), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
}

func newHTTPClient(opts ResolverOptions) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          4,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       30 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
	}

	loggingTransport := &httputils.LoggingRoundTripper{
		Writer:       opts.TraceWriter,
		DumpBody:     opts.TraceBody,
		RedactParams: []string{"key"},
		Transport:    transport,
	}

	userAgent := "placecache/unknown"
	if opts.UserAgent != "" {
		userAgent = opts.UserAgent
	}

	headerTransport := &httputils.AppendRequestHeadersRoundTripper{
		Headers: map[string]string{
			"User-Agent": userAgent,
			"Accept":     "application/json",
		},
		Transport: loggingTransport,
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &http.Client{
		Timeout: timeout,
		CheckRedirect: func(_ *http.Request, _ []*http.Request) error {
			return http.ErrUseLastResponse
		},
		Transport: headerTransport,
	}
}

// getJSON performs a GET and decodes a JSON body into out. Every failure is
// returned as a *ResolutionError with Provider and Op left for the caller.
func getJSON(ctx context.Context, client *http.Client, endpoint string, params url.Values, out any) *ResolutionError {
	reqURL := endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return &ResolutionError{Type: ErrorTypeInvalidRequest, Message: "building request", Err: err}
	}

	resp, err := client.Do(req)
	if err != nil {
		return transportError(err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

		return ClassifyHTTPError(resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ResolutionError{Type: ErrorTypeUnknown, Message: "decoding response", Err: err}
	}

	return nil
}

func transportError(err error) *ResolutionError {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &ResolutionError{Type: ErrorTypeTimeout, Message: "request timeout", Err: err}
	}

	return &ResolutionError{Type: ErrorTypeNetworkError, Message: "request failed", Err: err}
}
