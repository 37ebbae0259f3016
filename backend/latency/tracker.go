package latency

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/DataDog/sketches-go/ddsketch"
)

// Tracker keeps one DDSketch of durations, in milliseconds, per operation.
type Tracker struct {
	mu               sync.Mutex
	sketches         map[string]*ddsketch.DDSketch
	relativeAccuracy float64
}

// NewTracker creates a tracker. relativeAccuracy bounds the quantile error,
// e.g. 0.01 for 1%.
func NewTracker(relativeAccuracy float64) *Tracker {
	return &Tracker{
		sketches:         make(map[string]*ddsketch.DDSketch),
		relativeAccuracy: relativeAccuracy,
	}
}

func (t *Tracker) Record(op string, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	sk, ok := t.sketches[op]
	if !ok {
		var err error
		sk, err = ddsketch.LogUnboundedDenseDDSketch(t.relativeAccuracy)
		if err != nil {
			sk, _ = ddsketch.NewDefaultDDSketch(0.01)
		}
		t.sketches[op] = sk
	}
	_ = sk.Add(float64(d.Microseconds()) / 1000.0)
}

// Quantile returns the value in milliseconds at q (0..1) for op.
func (t *Tracker) Quantile(op string, q float64) (float64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	sk, ok := t.sketches[op]
	if !ok {
		return 0, fmt.Errorf("latency: no data for %q", op)
	}
	return sk.GetValueAtQuantile(q)
}

type Stats struct {
	Operation string
	Count     int64
	Min       float64
	P50       float64
	P90       float64
	P99       float64
	Max       float64
}

func (t *Tracker) Stats(op string) (Stats, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.statsLocked(op)
}

// AllStats returns stats for every recorded operation, sorted by name.
func (t *Tracker) AllStats() []Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	ops := make([]string, 0, len(t.sketches))
	for op := range t.sketches {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	out := make([]Stats, 0, len(ops))
	for _, op := range ops {
		if s, err := t.statsLocked(op); err == nil {
			out = append(out, s)
		}
	}
	return out
}

func (t *Tracker) statsLocked(op string) (Stats, error) {
	sk, ok := t.sketches[op]
	if !ok {
		return Stats{}, fmt.Errorf("latency: no data for %q", op)
	}
	n := sk.GetCount()
	if n == 0 {
		return Stats{Operation: op}, nil
	}
	lo, _ := sk.GetMinValue()
	p50, _ := sk.GetValueAtQuantile(0.50)
	p90, _ := sk.GetValueAtQuantile(0.90)
	p99, _ := sk.GetValueAtQuantile(0.99)
	hi, _ := sk.GetMaxValue()
	return Stats{
		Operation: op,
		Count:     int64(n),
		Min:       lo,
		P50:       p50,
		P90:       p90,
		P99:       p99,
		Max:       hi,
	}, nil
}

func (s Stats) String() string {
	if s.Count == 0 {
		return fmt.Sprintf("%s: no data", s.Operation)
	}
	return fmt.Sprintf("%s (n=%d): min=%.2fms p50=%.2fms p90=%.2fms p99=%.2fms max=%.2fms",
		s.Operation, s.Count, s.Min, s.P50, s.P90, s.P99, s.Max)
}
