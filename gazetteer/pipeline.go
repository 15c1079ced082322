// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package gazetteer

import (
	"context"
	"fmt"
	"log"
	"strings"

	"golang.org/x/time/rate"
)

// State is the terminal state reached by one input row.
type State int

const (
	// StateSkipped the raw name is blank; nothing was looked up.
	StateSkipped State = iota
	// StateCacheHit the stored record was reused.
	StateCacheHit
	// StateSuggestFailed the suggest call failed.
	StateSuggestFailed
	// StateSuggestionEmpty the provider had no candidate.
	StateSuggestionEmpty
	// StateGeocodeFailed the geocode call failed.
	StateGeocodeFailed
	// StateGeocodeEmpty the suggestion has no geometry; it is cached
	// without coordinates.
	StateGeocodeEmpty
	// StateResolved a new record was cached.
	StateResolved
)

var stateNames = [...]string{
	StateSkipped:         "skipped",
	StateCacheHit:        "cache_hit",
	StateSuggestFailed:   "suggest_failed",
	StateSuggestionEmpty: "suggestion_empty",
	StateGeocodeFailed:   "geocode_failed",
	StateGeocodeEmpty:    "geocode_empty",
	StateResolved:        "resolved",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}

	return fmt.Sprintf("state(%d)", int(s))
}

// States lists every terminal state.
func States() []State {
	return []State{
		StateSkipped,
		StateCacheHit,
		StateSuggestFailed,
		StateSuggestionEmpty,
		StateGeocodeFailed,
		StateGeocodeEmpty,
		StateResolved,
	}
}

// Outcome is the result of processing one input row.
type Outcome struct {
	// Index of the row in the input.
	Index   int
	RawName string
	State   State
	// Record is the cached or newly appended record, nil when unresolved.
	Record *Record
	// Err explains Skipped and *Failed states.
	Err error
}

// Emitted reports whether the row belongs to the enriched output.
func (o *Outcome) Emitted() bool {
	return o.Record != nil && o.Record.Resolved()
}

// PipelineOptions tunes a Pipeline.
type PipelineOptions struct {
	// QueryPrefix is prepended to every raw name sent to Suggest.
	QueryPrefix string

	// PersistEach persists the store right after every append instead of
	// leaving it to the caller at the end of the run.
	PersistEach bool

	// RateLimit paces external calls, in calls per second. Zero disables.
	RateLimit float64

	// OnRow is called after every row.
	OnRow func(Outcome)
}

// Metrics tracks what happened during a run. It is not persisted.
type Metrics struct {
	Rows         int
	Skipped      int
	CacheHits    int
	CacheMisses  int
	Resolved     int
	Unresolved   int
	Failures     int
	Appended     int
	SuggestCalls int
	GeocodeCalls int
}

// ExternalCalls is the number of provider calls made.
func (m *Metrics) ExternalCalls() int {
	return m.SuggestCalls + m.GeocodeCalls
}

func (m *Metrics) count(o Outcome) {
	m.Rows++

	switch o.State {
	case StateSkipped:
		m.Skipped++
	case StateCacheHit:
		m.CacheHits++
	case StateSuggestFailed, StateGeocodeFailed:
		m.CacheMisses++
		m.Failures++
		m.Unresolved++
	case StateSuggestionEmpty:
		m.CacheMisses++
		m.Unresolved++
	case StateGeocodeEmpty, StateResolved:
		m.CacheMisses++
		m.Resolved++
		m.Appended++
	}
}

// Pipeline resolves input rows against a Store, calling the Resolver only
// for names the store does not know yet. It owns the store for the run.
type Pipeline struct {
	store    *Store
	resolver Resolver
	opts     PipelineOptions
	limiter  *rate.Limiter
	Metrics  Metrics
}

// NewPipeline creates a pipeline over store and resolver.
func NewPipeline(store *Store, resolver Resolver, opts PipelineOptions) *Pipeline {
	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	return &Pipeline{
		store:    store,
		resolver: resolver,
		opts:     opts,
		limiter:  limiter,
	}
}

// Run processes names in order and returns the records of the rows that
// made it to the output, one per emitted row, duplicates included.
//
// Provider failures only affect their own row. The returned error is
// non-nil when ctx is cancelled between rows (the records emitted so far
// are returned with it) or when PersistEach is set and a persist fails.
func (p *Pipeline) Run(ctx context.Context, names []string) ([]*Record, error) {
	var out []*Record

	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		o, err := p.Resolve(ctx, i, name)
		if err != nil {
			return out, err
		}

		if o.Emitted() {
			out = append(out, o.Record)
		}
	}

	return out, nil
}

// Resolve runs a single row through the state machine. The returned error
// is reserved for fatal conditions; per-row failures live in Outcome.Err.
func (p *Pipeline) Resolve(ctx context.Context, index int, rawName string) (Outcome, error) {
	o, err := p.resolve(ctx, index, rawName)

	p.Metrics.count(o)

	if p.opts.OnRow != nil {
		p.opts.OnRow(o)
	}

	return o, err
}

func (p *Pipeline) resolve(ctx context.Context, index int, rawName string) (Outcome, error) {
	o := Outcome{Index: index, RawName: rawName}

	if strings.TrimSpace(rawName) == "" {
		o.State = StateSkipped
		o.Err = ErrEmptyQuery

		return o, nil
	}

	if rec, ok := p.store.Lookup(rawName); ok {
		o.State = StateCacheHit
		o.Record = rec

		return o, nil
	}

	queryKey := QueryKey(p.opts.QueryPrefix, rawName)

	if err := p.wait(ctx); err != nil {
		o.State = StateSuggestFailed
		o.Err = err

		return o, nil
	}

	p.Metrics.SuggestCalls++

	suggested, ok, err := p.resolver.Suggest(ctx, queryKey)
	if err != nil {
		log.Printf("Suggest failed for %q - %v", rawName, err)

		o.State = StateSuggestFailed
		o.Err = err

		return o, nil
	}

	if !ok || suggested == "" {
		o.State = StateSuggestionEmpty

		return o, nil
	}

	if err := p.wait(ctx); err != nil {
		o.State = StateGeocodeFailed
		o.Err = err

		return o, nil
	}

	p.Metrics.GeocodeCalls++

	point, ok, err := p.resolver.Geocode(ctx, suggested)
	if err != nil {
		log.Printf("Geocode failed for %q (%s) - %v", rawName, suggested, err)

		o.State = StateGeocodeFailed
		o.Err = err

		return o, nil
	}

	rec := &Record{
		RawName:       rawName,
		QueryKey:      queryKey,
		SuggestedName: suggested,
	}

	o.State = StateGeocodeEmpty

	if ok {
		if err := point.Validate(); err != nil {
			log.Printf("Discarding coordinates for %q (%s) - %v", rawName, suggested, err)
		} else {
			rec.Point = &point
			o.State = StateResolved
		}
	}

	if err := p.store.Append(rec); err != nil {
		return o, fmt.Errorf("appending %q: %w", rawName, err)
	}

	o.Record = rec

	if p.opts.PersistEach {
		if err := p.store.Persist(); err != nil {
			return o, err
		}
	}

	return o, nil
}

func (p *Pipeline) wait(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}

	return p.limiter.Wait(ctx)
}
