// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package gazetteer

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const defaultClusterThreshold = 100.0 // meters

// Server exposes a loaded cache as a read-only JSON API.
type Server struct {
	store *Store
}

// NewServer creates a server over store. The store must not be modified
// while the server runs.
func NewServer(store *Store) *Server {
	return &Server{store: store}
}

// Handler returns the router serving the API.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	s.register(r)

	return r
}

func (s *Server) register(r gin.IRouter) {
	r.GET("/api/places", s.listPlaces)
	r.GET("/api/places/*name", s.getPlace)
	r.GET("/api/stats", s.getStats)
	r.GET("/api/clusters", s.getClusters)
}

// Run serves the API on addr until the listener fails.
func (s *Server) Run(addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	return srv.ListenAndServe()
}

// PlacePage is a page of cached records.
type PlacePage struct {
	Total   int       `json:"total"`
	Offset  int       `json:"offset"`
	Records []*Record `json:"records"`
}

// Stats summarizes the cache.
type Stats struct {
	Records        int `json:"records"`
	WithPoint      int `json:"with_point"`
	WithoutPoint   int `json:"without_point"`
	DistinctNames int `json:"distinct_suggested_names"`
}

// ComputeStats counts the records of store.
func ComputeStats(store *Store) Stats {
	st := Stats{}
	names := make(map[string]struct{})

	for _, r := range store.Records() {
		st.Records++

		if r.Point != nil {
			st.WithPoint++
		} else {
			st.WithoutPoint++
		}

		names[r.SuggestedName] = struct{}{}
	}

	st.DistinctNames = len(names)

	return st
}

func intQuery(ctx *gin.Context, name string, def int) (int, bool) {
	raw := ctx.Query(name)
	if raw == "" {
		return def, true
	}

	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name + " parameter"})

		return 0, false
	}

	return v, true
}

func (s *Server) listPlaces(ctx *gin.Context) {
	limit, ok := intQuery(ctx, "limit", 100)
	if !ok {
		return
	}

	offset, ok := intQuery(ctx, "offset", 0)
	if !ok {
		return
	}

	q := ctx.Query("q")

	var matched []*Record

	for _, r := range s.store.Records() {
		if q == "" || strings.Contains(r.RawName, q) || strings.Contains(r.SuggestedName, q) {
			matched = append(matched, r)
		}
	}

	page := PlacePage{Total: len(matched), Offset: offset, Records: []*Record{}}

	if offset < len(matched) {
		end := len(matched)
		if limit > 0 && limit < end-offset {
			end = offset + limit
		}

		page.Records = matched[offset:end]
	}

	ctx.JSON(http.StatusOK, page)
}

func (s *Server) getPlace(ctx *gin.Context) {
	// the wildcard keeps the leading slash
	name := strings.TrimPrefix(ctx.Param("name"), "/")
	if name == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "place name is required"})

		return
	}

	rec, ok := s.store.Lookup(name)
	if !ok {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "place not cached"})

		return
	}

	ctx.JSON(http.StatusOK, rec)
}

func (s *Server) getStats(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, ComputeStats(s.store))
}

func (s *Server) getClusters(ctx *gin.Context) {
	threshold := defaultClusterThreshold

	if raw := ctx.Query("threshold"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid threshold parameter"})

			return
		}

		threshold = v
	}

	clusters := ClusterRecords(s.store.Records(), threshold, false)
	if clusters == nil {
		clusters = [][]*Record{}
	}

	ctx.JSON(http.StatusOK, clusters)
}
