package ristretto

import (
	"bytes"
	"context"
	"errors"
	"sync"

	"github.com/cespare/xxhash/v2"
	rc "github.com/dgraph-io/ristretto"

	"github.com/unkn0wn-root/kvcache/backend"
)

// Provider stores bytes in a Ristretto cache. Ristretto applies sets
// asynchronously; Set waits for the buffer to drain so a following Get sees
// the write. Ristretto may still drop a write under admission pressure, which
// is reported as ok=false. Writes to one key are serialized so that check
// never sees another writer's value.
type Provider struct {
	c     *rc.Cache
	locks [lockStripes]sync.Mutex
}

const lockStripes = 64

var _ backend.Provider = (*Provider)(nil)

type Config struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
}

func New(cfg Config) (*Provider, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto: invalid config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Provider{c: c}, nil
}

func NewBackend(cfg Config) (*backend.Typed, error) {
	p, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return backend.FromProvider(p), nil
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := p.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, _ := v.([]byte)
	if b == nil {
		// self-heal: drop unexpected entry shape
		p.c.Del(key)
		return nil, false, nil
	}
	return b, true, nil
}

// Set uses the payload length as cost.
func (p *Provider) Set(_ context.Context, key string, value []byte) (bool, error) {
	cp := append([]byte(nil), value...)
	mu := p.lock(key)
	mu.Lock()
	defer mu.Unlock()
	if !p.c.Set(key, cp, int64(len(cp))+1) {
		return false, nil
	}
	p.c.Wait()
	// a dropped update leaves the previous value in place
	got, ok := p.c.Get(key)
	if !ok {
		return false, nil
	}
	b, _ := got.([]byte)
	return bytes.Equal(b, cp), nil
}

func (p *Provider) Del(_ context.Context, key string) error {
	mu := p.lock(key)
	mu.Lock()
	p.c.Del(key)
	mu.Unlock()
	return nil
}

func (p *Provider) lock(key string) *sync.Mutex {
	return &p.locks[xxhash.Sum64String(key)%lockStripes]
}

func (p *Provider) Close(_ context.Context) error {
	p.c.Wait()
	p.c.Close()
	return nil
}

// Metrics exposes Ristretto's counters when Config.Metrics is set.
func (p *Provider) Metrics() *rc.Metrics { return p.c.Metrics }
