// Copyright 2025 The ChapaUY Authors
//
// SPDX-License-Identifier: Apache-2.0
package spatial

import (
	"database/sql/driver"
	"fmt"
	"math"
	"strconv"

	"github.com/uber/h3-go/v4"
)

const earthRadius = 6371e3 // meters

// MaxH3Resolution is the finest H3 resolution kept for a point.
const MaxH3Resolution = 8

// Point represents a geographical point with latitude and longitude.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// String returns a WKT representation of the Point.
func (p Point) String() string {
	return fmt.Sprintf("POINT(%s %s)", FormatCoordinate(p.Lng), FormatCoordinate(p.Lat))
}

// Value implements the driver.Valuer interface for database serialization.
func (p Point) Value() (driver.Value, error) {
	return p.String(), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (p *Point) Scan(value interface{}) error {
	if value == nil {
		p.Lat, p.Lng = 0, 0

		return nil
	}

	var s string

	switch v := value.(type) {
	case []byte:
		s = string(v)
	case string:
		s = v
	default:
		return fmt.Errorf("spatial: unsupported type for Point scan: %T", value)
	}

	// DuckDB renders "POINT (lng lat)", our own Value omits the space.
	if _, err := fmt.Sscanf(s, "POINT(%f %f)", &p.Lng, &p.Lat); err == nil {
		return nil
	}

	_, err := fmt.Sscanf(s, "POINT (%f %f)", &p.Lng, &p.Lat)

	return err
}

// Validate checks the point lies within the global coordinate ranges.
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("latitude must be between -90 and 90 (got %v)", p.Lat)
	}

	if math.IsNaN(p.Lng) || p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("longitude must be between -180 and 180 (got %v)", p.Lng)
	}

	return nil
}

// HaversineDistance calculates the distance between two points on Earth in meters.
func (p *Point) HaversineDistance(other *Point) float64 {
	lat1 := p.Lat * math.Pi / 180
	lat2 := other.Lat * math.Pi / 180
	dLat := (other.Lat - p.Lat) * math.Pi / 180
	dLng := (other.Lng - p.Lng) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}

// H3Cells returns the H3 cell containing p for resolutions 1..MaxH3Resolution.
// Index 0 of the result holds resolution 1.
func (p Point) H3Cells() ([]int64, error) {
	latLng := h3.NewLatLng(p.Lat, p.Lng)
	cells := make([]int64, 0, MaxH3Resolution)

	for res := 1; res <= MaxH3Resolution; res++ {
		cell, err := h3.LatLngToCell(latLng, res)
		if err != nil {
			return nil, fmt.Errorf("error converting to h3 cell at res %d: %w", res, err)
		}

		cells = append(cells, int64(cell))
	}

	return cells, nil
}

// FormatCoordinate renders a coordinate in its shortest round-trip form.
func FormatCoordinate(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ParseCoordinate parses a coordinate written by FormatCoordinate or by any
// tool emitting plain decimal numbers.
func ParseCoordinate(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid coordinate %q: %w", s, err)
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid coordinate %q", s)
	}

	return f, nil
}
