// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package gazetteer

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/chiangyiyang/line-chat-llm-tutorial/spatial"
)

const nominatimBaseURL = "https://nominatim.openstreetmap.org"

// NominatimResolver uses the OpenStreetMap Nominatim search endpoint for
// both steps. The public instance requires an identifying User-Agent and
// allows about one request per second.
type NominatimResolver struct {
	baseURL    string
	language   string
	region     string
	httpClient *http.Client
}

// NewNominatimResolver creates a new Nominatim resolver.
func NewNominatimResolver(opts ResolverOptions) *NominatimResolver {
	baseURL := nominatimBaseURL
	if opts.BaseURL != "" {
		baseURL = strings.TrimRight(opts.BaseURL, "/")
	}

	return &NominatimResolver{
		baseURL:    baseURL,
		language:   opts.Language,
		region:     strings.ToLower(opts.Region),
		httpClient: newHTTPClient(opts),
	}
}

type nominatimPlace struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
}

func (n *NominatimResolver) search(ctx context.Context, op, q string) ([]nominatimPlace, error) {
	params := url.Values{}
	params.Set("q", q)
	params.Set("format", "jsonv2")
	params.Set("limit", "1")

	if n.language != "" {
		params.Set("accept-language", n.language)
	}

	if n.region != "" {
		params.Set("countrycodes", n.region)
	}

	var places []nominatimPlace
	if err := getJSON(ctx, n.httpClient, n.baseURL+"/search", params, &places); err != nil {
		err.Provider = ProviderNominatim
		err.Op = op

		return nil, err
	}

	return places, nil
}

// Suggest returns the display name of the best match.
func (n *NominatimResolver) Suggest(ctx context.Context, queryKey string) (string, bool, error) {
	places, err := n.search(ctx, "suggest", queryKey)
	if err != nil {
		return "", false, err
	}

	if len(places) == 0 || places[0].DisplayName == "" {
		return "", false, nil
	}

	return places[0].DisplayName, true, nil
}

// Geocode returns the coordinates of the best match.
func (n *NominatimResolver) Geocode(ctx context.Context, name string) (spatial.Point, bool, error) {
	places, err := n.search(ctx, "geocode", name)
	if err != nil {
		return spatial.Point{}, false, err
	}

	if len(places) == 0 || places[0].Lat == "" || places[0].Lon == "" {
		return spatial.Point{}, false, nil
	}

	var p spatial.Point

	if p.Lat, err = spatial.ParseCoordinate(places[0].Lat); err != nil {
		return spatial.Point{}, false, &ResolutionError{
			Type:     ErrorTypeUnknown,
			Provider: ProviderNominatim,
			Op:       "geocode",
			Message:  "decoding latitude",
			Err:      err,
		}
	}

	if p.Lng, err = spatial.ParseCoordinate(places[0].Lon); err != nil {
		return spatial.Point{}, false, &ResolutionError{
			Type:     ErrorTypeUnknown,
			Provider: ProviderNominatim,
			Op:       "geocode",
			Message:  "decoding longitude",
			Err:      err,
		}
	}

	return p, true, nil
}
