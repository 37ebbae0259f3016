// Package asynchook moves Hooks work off the caller's goroutine.
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{HitEvery: 100})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	store, _ := kvcache.New(kvcache.Options{Name: "myapp", Hooks: hooks})
//
// Events are dropped, never blocked on, when the queue is full.
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/kvcache"
)

type Hooks struct {
	inner   kvcache.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

var _ kvcache.Hooks = (*Hooks)(nil)

func New(inner kvcache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Events after Close are
// dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped reports how many events were discarded.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default:
		h.dropped.Add(1)
	}
}

func (h *Hooks) CacheHit(k string)           { h.try(func() { h.inner.CacheHit(k) }) }
func (h *Hooks) CacheMiss(k string)          { h.try(func() { h.inner.CacheMiss(k) }) }
func (h *Hooks) TypeMismatch(k, want string) { h.try(func() { h.inner.TypeMismatch(k, want) }) }
func (h *Hooks) FillDropped(k string)        { h.try(func() { h.inner.FillDropped(k) }) }
func (h *Hooks) DecodeFailed(k string, err error) {
	h.try(func() { h.inner.DecodeFailed(k, err) })
}
func (h *Hooks) EncodeFailed(k string, err error) {
	h.try(func() { h.inner.EncodeFailed(k, err) })
}
func (h *Hooks) BackendFailed(err *kvcache.BackendError) {
	h.try(func() { h.inner.BackendFailed(err) })
}
func (h *Hooks) BackendSwapped(custom bool) { h.try(func() { h.inner.BackendSwapped(custom) }) }
