// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package metrics publishes Prometheus counters for geocoding runs.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/chiangyiyang/line-chat-llm-tutorial/gazetteer"
	"github.com/chiangyiyang/line-chat-llm-tutorial/spatial"
)

// Operation identifies the provider call being instrumented.
type Operation string

const (
	// OperationSuggest records Resolver.Suggest calls.
	OperationSuggest Operation = "suggest"
	// OperationGeocode records Resolver.Geocode calls.
	OperationGeocode Operation = "geocode"
)

// CallResult captures the result of a provider call.
type CallResult string

const (
	// CallFound the provider returned a candidate.
	CallFound CallResult = "found"
	// CallEmpty the provider had nothing.
	CallEmpty CallResult = "empty"
	// CallRateLimited the provider throttled the call.
	CallRateLimited CallResult = "rate_limited"
	// CallQuotaExceeded the provider quota is exhausted.
	CallQuotaExceeded CallResult = "quota_exceeded"
	// CallTimeout the call timed out.
	CallTimeout CallResult = "timeout"
	// CallError the call failed for any other reason.
	CallError CallResult = "error"
)

// Recorder publishes Prometheus metrics for a run on its own registry.
type Recorder struct {
	registry *prometheus.Registry

	rows          *prometheus.CounterVec
	externalCalls *prometheus.CounterVec
	callLatency   *prometheus.HistogramVec
	cacheRecords  prometheus.Gauge
}

// NewRecorder constructs a Recorder. When reg is nil a dedicated registry
// is created.
func NewRecorder(reg *prometheus.Registry) *Recorder {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	rows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "placecache",
		Name:      "rows_total",
		Help:      "Input rows processed, by terminal state.",
	}, []string{"state"})

	externalCalls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "placecache",
		Name:      "external_calls_total",
		Help:      "Calls made to the resolution provider.",
	}, []string{"op", "result"})

	callLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "placecache",
		Name:      "external_call_duration_seconds",
		Help:      "Latency distribution of provider calls.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"op"})

	cacheRecords := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "placecache",
		Name:      "cache_records",
		Help:      "Records held by the cache at the end of the run.",
	})

	reg.MustRegister(rows, externalCalls, callLatency, cacheRecords)

	// every state shows up, even when zero
	for _, s := range gazetteer.States() {
		rows.WithLabelValues(s.String())
	}

	return &Recorder{
		registry:      reg,
		rows:          rows,
		externalCalls: externalCalls,
		callLatency:   callLatency,
		cacheRecords:  cacheRecords,
	}
}

// Gatherer returns the registry backing the recorder.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// ObserveRow counts a processed row. It fits PipelineOptions.OnRow.
func (r *Recorder) ObserveRow(o gazetteer.Outcome) {
	if r == nil {
		return
	}

	r.rows.WithLabelValues(o.State.String()).Inc()
}

// ObserveCall records a provider call.
func (r *Recorder) ObserveCall(op Operation, result CallResult, elapsed time.Duration) {
	if r == nil {
		return
	}

	r.externalCalls.WithLabelValues(string(op), string(result)).Inc()
	r.callLatency.WithLabelValues(string(op)).Observe(elapsed.Seconds())
}

// SetCacheRecords records the cache size.
func (r *Recorder) SetCacheRecords(n int) {
	if r == nil {
		return
	}

	r.cacheRecords.Set(float64(n))
}

// WriteTextfile writes the metrics in the node exporter textfile format.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}

// InstrumentResolver wraps next so every call is observed by r.
func InstrumentResolver(next gazetteer.Resolver, r *Recorder) gazetteer.Resolver {
	return &instrumentedResolver{next: next, recorder: r}
}

type instrumentedResolver struct {
	next     gazetteer.Resolver
	recorder *Recorder
}

func (i *instrumentedResolver) Suggest(ctx context.Context, queryKey string) (string, bool, error) {
	start := time.Now()
	name, ok, err := i.next.Suggest(ctx, queryKey)
	i.recorder.ObserveCall(OperationSuggest, callResult(ok, err), time.Since(start))

	return name, ok, err
}

func (i *instrumentedResolver) Geocode(ctx context.Context, name string) (spatial.Point, bool, error) {
	start := time.Now()
	p, ok, err := i.next.Geocode(ctx, name)
	i.recorder.ObserveCall(OperationGeocode, callResult(ok, err), time.Since(start))

	return p, ok, err
}

func callResult(ok bool, err error) CallResult {
	switch {
	case gazetteer.IsRateLimitError(err):
		return CallRateLimited
	case gazetteer.IsQuotaExceededError(err):
		return CallQuotaExceeded
	case gazetteer.IsTimeoutError(err):
		return CallTimeout
	case err != nil:
		return CallError
	case ok:
		return CallFound
	default:
		return CallEmpty
	}
}
