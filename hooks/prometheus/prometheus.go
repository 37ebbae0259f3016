// Package prometheus counts kvcache events with Prometheus counters.
// Keys never become label values.
package prometheus

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/unkn0wn-root/kvcache"
)

type Hooks struct {
	hits           prometheus.Counter
	misses         prometheus.Counter
	typeMismatches *prometheus.CounterVec
	fillsDropped   prometheus.Counter
	decodeFailures prometheus.Counter
	encodeFailures prometheus.Counter
	backendErrors  *prometheus.CounterVec
	backendSwaps   *prometheus.CounterVec
}

var _ kvcache.Hooks = (*Hooks)(nil)

// New registers the counters with reg.
func New(reg prometheus.Registerer) *Hooks {
	h := &Hooks{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kvcache_cache_hits_total",
			Help: "Reads answered from the cache, including cached absences",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kvcache_cache_misses_total",
			Help: "Reads that consulted the backend",
		}),
		typeMismatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kvcache_type_mismatches_total",
			Help: "Reads of a key holding a value of another type",
		}, []string{"want"}),
		fillsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kvcache_fills_dropped_total",
			Help: "Backend reads discarded because the key changed meanwhile",
		}),
		decodeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kvcache_decode_failures_total",
			Help: "Stored values that failed to decode",
		}),
		encodeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kvcache_encode_failures_total",
			Help: "Values that failed to encode and were deleted instead",
		}),
		backendErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kvcache_backend_errors_total",
			Help: "Backend calls that failed",
		}, []string{"op"}),
		backendSwaps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kvcache_backend_swaps_total",
			Help: "Custom backend set or cleared",
		}, []string{"custom"}),
	}

	reg.MustRegister(
		h.hits,
		h.misses,
		h.typeMismatches,
		h.fillsDropped,
		h.decodeFailures,
		h.encodeFailures,
		h.backendErrors,
		h.backendSwaps,
	)
	return h
}

func (h *Hooks) CacheHit(string)  { h.hits.Inc() }
func (h *Hooks) CacheMiss(string) { h.misses.Inc() }

func (h *Hooks) TypeMismatch(_, want string) {
	h.typeMismatches.WithLabelValues(want).Inc()
}

func (h *Hooks) FillDropped(string)         { h.fillsDropped.Inc() }
func (h *Hooks) DecodeFailed(string, error) { h.decodeFailures.Inc() }
func (h *Hooks) EncodeFailed(string, error) { h.encodeFailures.Inc() }

func (h *Hooks) BackendFailed(e *kvcache.BackendError) {
	h.backendErrors.WithLabelValues(e.Op).Inc()
}

func (h *Hooks) BackendSwapped(custom bool) {
	h.backendSwaps.WithLabelValues(strconv.FormatBool(custom)).Inc()
}
