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

const googleMapsBaseURL = "https://maps.googleapis.com"

// GoogleMapsResolver uses the Places Autocomplete API for suggestions and
// the Geocoding API for coordinates.
type GoogleMapsResolver struct {
	apiKey     string
	baseURL    string
	language   string
	region     string
	httpClient *http.Client
}

// NewGoogleMapsResolver creates a new Google Maps resolver.
func NewGoogleMapsResolver(opts ResolverOptions) *GoogleMapsResolver {
	baseURL := googleMapsBaseURL
	if opts.BaseURL != "" {
		baseURL = strings.TrimRight(opts.BaseURL, "/")
	}

	return &GoogleMapsResolver{
		apiKey:     opts.APIKey,
		baseURL:    baseURL,
		language:   opts.Language,
		region:     strings.ToLower(opts.Region),
		httpClient: newHTTPClient(opts),
	}
}

type autocompleteResponse struct {
	Predictions []struct {
		Description string `json:"description"`
		PlaceID     string `json:"place_id"`
	} `json:"predictions"`
	Status       string `json:"status"` // OK, ZERO_RESULTS, etc.
	ErrorMessage string `json:"error_message"`
}

type googleMapsResponse struct {
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
			LocationType string `json:"location_type"` // ROOFTOP, RANGE_INTERPOLATED, GEOMETRIC_CENTER, APPROXIMATE
		} `json:"geometry"`
		FormattedAddress string `json:"formatted_address"`
	} `json:"results"`
	Status       string `json:"status"` // OK, ZERO_RESULTS, etc.
	ErrorMessage string `json:"error_message"`
}

// Suggest returns the description of the first autocomplete prediction.
func (g *GoogleMapsResolver) Suggest(ctx context.Context, queryKey string) (string, bool, error) {
	params := url.Values{}
	params.Set("input", queryKey)
	params.Set("key", g.apiKey)

	if g.language != "" {
		params.Set("language", g.language)
	}

	if g.region != "" {
		params.Set("components", "country:"+g.region)
	}

	var resp autocompleteResponse
	if err := getJSON(ctx, g.httpClient, g.baseURL+"/maps/api/place/autocomplete/json", params, &resp); err != nil {
		return "", false, g.wrap("suggest", err)
	}

	if err := ClassifyGoogleStatus(resp.Status, resp.ErrorMessage); err != nil {
		return "", false, g.wrap("suggest", err)
	}

	if len(resp.Predictions) == 0 || resp.Predictions[0].Description == "" {
		return "", false, nil
	}

	return resp.Predictions[0].Description, true, nil
}

// Geocode returns the location of the first geocoding result.
func (g *GoogleMapsResolver) Geocode(ctx context.Context, name string) (spatial.Point, bool, error) {
	params := url.Values{}
	params.Set("address", name)
	params.Set("key", g.apiKey)

	if g.language != "" {
		params.Set("language", g.language)
	}

	if g.region != "" {
		params.Set("region", g.region)
	}

	var resp googleMapsResponse
	if err := getJSON(ctx, g.httpClient, g.baseURL+"/maps/api/geocode/json", params, &resp); err != nil {
		return spatial.Point{}, false, g.wrap("geocode", err)
	}

	if err := ClassifyGoogleStatus(resp.Status, resp.ErrorMessage); err != nil {
		return spatial.Point{}, false, g.wrap("geocode", err)
	}

	if len(resp.Results) == 0 {
		return spatial.Point{}, false, nil
	}

	loc := resp.Results[0].Geometry.Location

	return spatial.Point{Lat: loc.Lat, Lng: loc.Lng}, true, nil
}

func (g *GoogleMapsResolver) wrap(op string, err *ResolutionError) *ResolutionError {
	err.Provider = ProviderGoogle
	err.Op = op

	return err
}
