// Package async wraps a Backend with write-behind.
//
// Writes return once queued and run on a worker. Keys are sharded to
// workers by hash, so all operations on one key run in submission order:
// a read queued after a write observes that write. Different keys proceed
// in parallel. A full queue blocks the writer; writes are never dropped.
package async

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/unkn0wn-root/kvcache/backend"
)

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("async backend: closed")

// Backend operation names passed to Options.OnError.
const (
	OpSet    = "set"
	OpRemove = "remove"
)

type Options struct {
	// Shards is the number of workers. Default: GOMAXPROCS.
	Shards int
	// QueueLen is the per-shard queue capacity. Default: 256.
	QueueLen int
	// WriteTimeout bounds each background write; 0 means no limit.
	WriteTimeout time.Duration
	// OnError receives failures of background writes, which have no caller
	// left to return to.
	OnError func(op, key string, err error)
	// CloseInner closes the wrapped backend on Close.
	CloseInner bool
}

type Backend struct {
	inner  backend.Backend
	opts   Options
	shards []chan func()
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

var _ backend.Backend = (*Backend)(nil)

func New(inner backend.Backend, opts Options) *Backend {
	if opts.Shards <= 0 {
		opts.Shards = runtime.GOMAXPROCS(0)
	}
	if opts.QueueLen <= 0 {
		opts.QueueLen = 256
	}
	b := &Backend{inner: inner, opts: opts, shards: make([]chan func(), opts.Shards)}
	b.wg.Add(opts.Shards)
	for i := range b.shards {
		ch := make(chan func(), opts.QueueLen)
		b.shards[i] = ch
		go func() {
			defer b.wg.Done()
			for f := range ch {
				f()
			}
		}()
	}
	return b
}

func (b *Backend) shard(key string) chan func() {
	return b.shards[xxhash.Sum64String(key)%uint64(len(b.shards))]
}

func (b *Backend) enqueue(ctx context.Context, ch chan func(), f func()) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	select {
	case ch <- f:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Backend) write(ctx context.Context, op, key string, fn func(context.Context) error) error {
	wctx := context.WithoutCancel(ctx)
	return b.enqueue(ctx, b.shard(key), func() {
		c := wctx
		if b.opts.WriteTimeout > 0 {
			var cancel context.CancelFunc
			c, cancel = context.WithTimeout(wctx, b.opts.WriteTimeout)
			defer cancel()
		}
		if err := fn(c); err != nil && b.opts.OnError != nil {
			b.opts.OnError(op, key, err)
		}
	})
}

func read[T any](ctx context.Context, b *Backend, key string, fn func(context.Context, string) (T, bool, error)) (T, bool, error) {
	type result struct {
		v   T
		ok  bool
		err error
	}
	var zero T
	done := make(chan result, 1)
	err := b.enqueue(ctx, b.shard(key), func() {
		v, ok, err := fn(ctx, key)
		done <- result{v: v, ok: ok, err: err}
	})
	if err != nil {
		return zero, false, err
	}
	select {
	case r := <-done:
		return r.v, r.ok, r.err
	case <-ctx.Done():
		return zero, false, ctx.Err()
	}
}

func (b *Backend) Int(ctx context.Context, key string) (int, bool, error) {
	return read(ctx, b, key, b.inner.Int)
}

func (b *Backend) Float64(ctx context.Context, key string) (float64, bool, error) {
	return read(ctx, b, key, b.inner.Float64)
}

func (b *Backend) Float32(ctx context.Context, key string) (float32, bool, error) {
	return read(ctx, b, key, b.inner.Float32)
}

func (b *Backend) Bool(ctx context.Context, key string) (bool, bool, error) {
	return read(ctx, b, key, b.inner.Bool)
}

func (b *Backend) String(ctx context.Context, key string) (string, bool, error) {
	return read(ctx, b, key, b.inner.String)
}

func (b *Backend) Bytes(ctx context.Context, key string) ([]byte, bool, error) {
	return read(ctx, b, key, b.inner.Bytes)
}

func (b *Backend) SetInt(ctx context.Context, key string, v int) error {
	return b.write(ctx, OpSet, key, func(c context.Context) error { return b.inner.SetInt(c, key, v) })
}

func (b *Backend) SetFloat64(ctx context.Context, key string, v float64) error {
	return b.write(ctx, OpSet, key, func(c context.Context) error { return b.inner.SetFloat64(c, key, v) })
}

func (b *Backend) SetFloat32(ctx context.Context, key string, v float32) error {
	return b.write(ctx, OpSet, key, func(c context.Context) error { return b.inner.SetFloat32(c, key, v) })
}

func (b *Backend) SetBool(ctx context.Context, key string, v bool) error {
	return b.write(ctx, OpSet, key, func(c context.Context) error { return b.inner.SetBool(c, key, v) })
}

func (b *Backend) SetString(ctx context.Context, key string, v string) error {
	return b.write(ctx, OpSet, key, func(c context.Context) error { return b.inner.SetString(c, key, v) })
}

// SetBytes copies v before queueing it.
func (b *Backend) SetBytes(ctx context.Context, key string, v []byte) error {
	cp := append([]byte(nil), v...)
	return b.write(ctx, OpSet, key, func(c context.Context) error { return b.inner.SetBytes(c, key, cp) })
}

func (b *Backend) Remove(ctx context.Context, key string) error {
	return b.write(ctx, OpRemove, key, func(c context.Context) error { return b.inner.Remove(c, key) })
}

// Flush waits until every operation queued before the call has run.
func (b *Backend) Flush(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, ch := range b.shards {
		wg.Add(1)
		if err := b.enqueue(ctx, ch, wg.Done); err != nil {
			wg.Done()
			return err
		}
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending reports the number of queued operations.
func (b *Backend) Pending() int {
	n := 0
	for _, ch := range b.shards {
		n += len(ch)
	}
	return n
}

// Close stops accepting operations, drains the queues and stops the
// workers. If ctx ends first, the drain continues in the background and
// ctx's error is returned.
func (b *Backend) Close(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	for _, ch := range b.shards {
		close(ch)
	}
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if b.opts.CloseInner {
		return backend.Close(ctx, b.inner)
	}
	return nil
}
