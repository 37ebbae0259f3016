// Package latency wraps a Backend and records how long each call takes.
//
//	lb := latency.New(inner, latency.NewTracker(0.01))
//	store, _ := kvcache.New(kvcache.Options{Backend: lb})
//	...
//	for _, s := range lb.Tracker().AllStats() {
//		fmt.Println(s)
//	}
package latency

import (
	"context"
	"time"

	"github.com/unkn0wn-root/kvcache/backend"
)

// Operation names recorded by Backend.
const (
	OpGet    = "get"
	OpSet    = "set"
	OpRemove = "remove"
)

type Backend struct {
	inner backend.Backend
	t     *Tracker
}

var _ backend.Backend = (*Backend)(nil)

// New wraps inner. A nil tracker gets a 1% accuracy one.
func New(inner backend.Backend, t *Tracker) *Backend {
	if t == nil {
		t = NewTracker(0.01)
	}
	return &Backend{inner: inner, t: t}
}

func (b *Backend) Tracker() *Tracker { return b.t }

func timed[T any](ctx context.Context, b *Backend, key string, fn func(context.Context, string) (T, bool, error)) (T, bool, error) {
	start := time.Now()
	v, ok, err := fn(ctx, key)
	b.t.Record(OpGet, time.Since(start))
	return v, ok, err
}

func (b *Backend) record(op string, start time.Time, err error) error {
	b.t.Record(op, time.Since(start))
	return err
}

func (b *Backend) Int(ctx context.Context, key string) (int, bool, error) {
	return timed(ctx, b, key, b.inner.Int)
}

func (b *Backend) Float64(ctx context.Context, key string) (float64, bool, error) {
	return timed(ctx, b, key, b.inner.Float64)
}

func (b *Backend) Float32(ctx context.Context, key string) (float32, bool, error) {
	return timed(ctx, b, key, b.inner.Float32)
}

func (b *Backend) Bool(ctx context.Context, key string) (bool, bool, error) {
	return timed(ctx, b, key, b.inner.Bool)
}

func (b *Backend) String(ctx context.Context, key string) (string, bool, error) {
	return timed(ctx, b, key, b.inner.String)
}

func (b *Backend) Bytes(ctx context.Context, key string) ([]byte, bool, error) {
	return timed(ctx, b, key, b.inner.Bytes)
}

func (b *Backend) SetInt(ctx context.Context, key string, v int) error {
	start := time.Now()
	return b.record(OpSet, start, b.inner.SetInt(ctx, key, v))
}

func (b *Backend) SetFloat64(ctx context.Context, key string, v float64) error {
	start := time.Now()
	return b.record(OpSet, start, b.inner.SetFloat64(ctx, key, v))
}

func (b *Backend) SetFloat32(ctx context.Context, key string, v float32) error {
	start := time.Now()
	return b.record(OpSet, start, b.inner.SetFloat32(ctx, key, v))
}

func (b *Backend) SetBool(ctx context.Context, key string, v bool) error {
	start := time.Now()
	return b.record(OpSet, start, b.inner.SetBool(ctx, key, v))
}

func (b *Backend) SetString(ctx context.Context, key string, v string) error {
	start := time.Now()
	return b.record(OpSet, start, b.inner.SetString(ctx, key, v))
}

func (b *Backend) SetBytes(ctx context.Context, key string, v []byte) error {
	start := time.Now()
	return b.record(OpSet, start, b.inner.SetBytes(ctx, key, v))
}

func (b *Backend) Remove(ctx context.Context, key string) error {
	start := time.Now()
	return b.record(OpRemove, start, b.inner.Remove(ctx, key))
}

// Close closes the wrapped backend.
func (b *Backend) Close(ctx context.Context) error {
	return backend.Close(ctx, b.inner)
}
