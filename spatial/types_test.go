// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package spatial

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointStringAndScan(t *testing.T) {
	p := Point{Lat: 23.1, Lng: 120.1}
	assert.Equal(t, "POINT(120.1 23.1)", p.String())

	var got Point
	require.NoError(t, got.Scan(p.String()))
	assert.Equal(t, p, got)

	var duck Point
	require.NoError(t, duck.Scan([]byte("POINT (121.5 25.05)")))
	assert.Equal(t, Point{Lat: 25.05, Lng: 121.5}, duck)

	var zero Point
	require.NoError(t, zero.Scan(nil))
	assert.Equal(t, Point{}, zero)

	assert.Error(t, zero.Scan(42))
}

func TestPointValidate(t *testing.T) {
	tests := []struct {
		name    string
		point   Point
		wantErr bool
	}{
		{"tainan", Point{Lat: 23.1, Lng: 120.1}, false},
		{"bounds", Point{Lat: -90, Lng: 180}, false},
		{"latitude too big", Point{Lat: 91, Lng: 0}, true},
		{"longitude too small", Point{Lat: 0, Lng: -181}, true},
		{"nan", Point{Lat: math.NaN(), Lng: 0}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.point.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestHaversineDistance(t *testing.T) {
	taipei := &Point{Lat: 25.0330, Lng: 121.5654}
	tainan := &Point{Lat: 22.9999, Lng: 120.2270}

	d := taipei.HaversineDistance(tainan)
	// roughly 260 km
	assert.InDelta(t, 260000, d, 10000)
	assert.InDelta(t, 0, taipei.HaversineDistance(taipei), 1e-6)
}

func TestH3Cells(t *testing.T) {
	cells, err := Point{Lat: 23.1, Lng: 120.1}.H3Cells()
	require.NoError(t, err)
	require.Len(t, cells, MaxH3Resolution)

	for i, c := range cells {
		assert.NotZero(t, c, "resolution %d", i+1)
	}

	assert.NotEqual(t, cells[0], cells[MaxH3Resolution-1])
}

func TestParseCoordinate(t *testing.T) {
	f, err := ParseCoordinate("23.1")
	require.NoError(t, err)
	assert.Equal(t, "23.1", FormatCoordinate(f))

	f, err = ParseCoordinate("-34.8822366")
	require.NoError(t, err)
	assert.Equal(t, "-34.8822366", FormatCoordinate(f))

	_, err = ParseCoordinate("north")
	assert.Error(t, err)

	_, err = ParseCoordinate("NaN")
	assert.Error(t, err)
}
