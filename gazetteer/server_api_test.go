// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package gazetteer

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chiangyiyang/line-chat-llm-tutorial/spatial"
)

// setupServerTest initializes a Gin router over a store holding sample
// records.
func setupServerTest(t *testing.T) *gin.Engine {
	t.Helper()

	gin.SetMode(gin.TestMode)

	store := NewStore(filepath.Join(t.TempDir(), "db.csv"))
	for _, rec := range []*Record{
		{RawName: "北門", QueryKey: "北門", SuggestedName: "台灣台南市北區北門路", Point: &spatial.Point{Lat: 23.0006, Lng: 120.2046}},
		{RawName: "北門路", QueryKey: "北門路", SuggestedName: "台灣台南市北區北門路一段", Point: &spatial.Point{Lat: 23.0007, Lng: 120.2047}},
		{RawName: "安平", QueryKey: "安平", SuggestedName: "台灣台南市安平區"},
	} {
		require.NoError(t, store.Append(rec))
	}

	router := gin.New()
	NewServer(store).register(router)

	return router
}

func get(t *testing.T, router http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, target, nil)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

func TestListPlaces(t *testing.T) {
	router := setupServerTest(t)

	w := get(t, router, "/api/places")
	require.Equal(t, http.StatusOK, w.Code)

	var page PlacePage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Records, 3)
	assert.Equal(t, "北門", page.Records[0].RawName)

	w = get(t, router, "/api/places?q="+url.QueryEscape("北門")+"&limit=1&offset=1")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Records, 1)
	assert.Equal(t, "北門路", page.Records[0].RawName)

	w = get(t, router, "/api/places?offset=10")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Empty(t, page.Records)

	w = get(t, router, "/api/places?limit="+strconv.Itoa(math.MaxInt)+"&offset=1")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Len(t, page.Records, 2)
}

func TestListPlacesInvalidParams(t *testing.T) {
	router := setupServerTest(t)

	for _, target := range []string{"/api/places?limit=abc", "/api/places?offset=-1"} {
		w := get(t, router, target)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
}

func TestGetPlace(t *testing.T) {
	router := setupServerTest(t)

	w := get(t, router, "/api/places/"+url.PathEscape("安平"))
	require.Equal(t, http.StatusOK, w.Code)

	var rec Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, "台灣台南市安平區", rec.SuggestedName)
	assert.Nil(t, rec.Point)

	w = get(t, router, "/api/places/"+url.PathEscape("不存在"))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetStats(t *testing.T) {
	router := setupServerTest(t)

	w := get(t, router, "/api/stats")
	require.Equal(t, http.StatusOK, w.Code)

	var st Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, Stats{Records: 3, WithPoint: 2, WithoutPoint: 1, DistinctNames: 3}, st)
}

func TestGetClusters(t *testing.T) {
	router := setupServerTest(t)

	w := get(t, router, "/api/clusters?threshold=50")
	require.Equal(t, http.StatusOK, w.Code)

	var clusters [][]*Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &clusters))
	require.Len(t, clusters, 1)
	assert.Len(t, clusters[0], 2)

	w = get(t, router, "/api/clusters?threshold=1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	w = get(t, router, "/api/clusters?threshold=-5")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
