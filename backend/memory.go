package backend

import (
	"context"
	"sync"
)

// Memory is an in-process Provider backed by a map. Values are copied in and
// out so callers cannot mutate stored bytes.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ Provider = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// NewMemoryBackend is shorthand for FromProvider(NewMemory()).
func NewMemoryBackend() *Typed { return FromProvider(NewMemory()) }

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	v, ok := m.data[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) (bool, error) {
	cp := append([]byte(nil), value...)
	m.mu.Lock()
	m.data[key] = cp
	m.mu.Unlock()
	return true, nil
}

func (m *Memory) Del(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

// Len reports the number of stored keys.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

func (m *Memory) Close(context.Context) error { return nil }
