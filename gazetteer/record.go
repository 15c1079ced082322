// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package gazetteer resolves raw place names into canonical names and
// coordinates, remembering every successful resolution so the external
// provider is asked about a given name only once.
package gazetteer

import (
	"github.com/chiangyiyang/line-chat-llm-tutorial/spatial"
)

// Column names shared by the cache file and the enriched output.
const (
	ColumnRawName       = "地名"
	ColumnQueryKey      = "搜尋關鍵地名"
	ColumnSuggestedName = "建議地名"
	ColumnLatitude      = "緯度"
	ColumnLongitude     = "經度"
)

// Columns is the fixed column order of the cache file and the output.
var Columns = []string{
	ColumnRawName,
	ColumnQueryKey,
	ColumnSuggestedName,
	ColumnLatitude,
	ColumnLongitude,
}

// Record is a place name resolution as kept in the cache.
type Record struct {
	// RawName is the unmodified input place name, and the cache key.
	RawName string `json:"raw_name"`
	// QueryKey is the exact text sent to the provider.
	QueryKey string `json:"query_key"`
	// SuggestedName is the provider's canonical name for the place.
	SuggestedName string `json:"suggested_name"`
	// Point is nil when the provider returned no geometry.
	Point *spatial.Point `json:"point,omitempty"`
}

// Resolved reports whether the record carries a suggested name.
func (r *Record) Resolved() bool {
	return r.SuggestedName != ""
}

// Fields returns the record in Columns order. Absent coordinates are
// empty strings.
func (r *Record) Fields() []string {
	lat, lng := "", ""
	if r.Point != nil {
		lat = spatial.FormatCoordinate(r.Point.Lat)
		lng = spatial.FormatCoordinate(r.Point.Lng)
	}

	return []string{r.RawName, r.QueryKey, r.SuggestedName, lat, lng}
}

// QueryKey builds the text sent to the suggestion capability.
func QueryKey(prefix, rawName string) string {
	return prefix + rawName
}
