package kvcache

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/unkn0wn-root/kvcache/backend"
	"github.com/unkn0wn-root/kvcache/backend/file"
	"github.com/unkn0wn-root/kvcache/internal/coherent"
)

// Store is the cache plus the backend it fronts. Safe for concurrent use.
// Independent Stores share nothing.
type Store struct {
	cache *coherent.Cache
	log   Logger
	hooks Hooks

	mu      sync.RWMutex
	def     backend.Backend
	custom  backend.Backend
	ownsDef bool
}

// New builds a Store. Without Options.Backend it opens the built-in
// preferences file at Options.Path or file.DefaultPath(Options.Name).
func New(opts Options) (*Store, error) {
	s := &Store{
		cache:  coherent.New(),
		custom: opts.Custom,
	}
	s.log = coalesce[Logger](opts.Logger, NopLogger{})
	s.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})

	if opts.Backend != nil {
		s.def = opts.Backend
		return s, nil
	}

	path := opts.Path
	if path == "" {
		if opts.Name == "" {
			return nil, errors.New("kvcache: backend, path or name is required")
		}
		p, err := file.DefaultPath(opts.Name)
		if err != nil {
			return nil, fmt.Errorf("kvcache: %w", err)
		}
		path = p
	}

	ctx, cancel := context.WithTimeout(context.Background(), coalesce(opts.OpenTimeout, defaultOpenTimeout))
	defer cancel()
	b, err := file.OpenBackend(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("kvcache: open default backend: %w", err)
	}
	s.def = b
	s.ownsDef = true
	s.log.Debug("opened default backend", Fields{"path": path})
	return s, nil
}

// Close releases the default backend if the Store opened it. A custom
// backend is owned by the caller and left open.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ownsDef || s.def == nil {
		return nil
	}
	err := backend.Close(ctx, s.def)
	s.ownsDef = false
	return err
}

// Reset forgets everything the cache knows. The backend is untouched; the
// next read of every key goes to the backend again.
func (s *Store) Reset() {
	s.cache.Reset()
	s.log.Debug("cache reset", nil)
}

// UseCustom routes subsequent operations to b instead of the default
// backend; nil restores the default. Cached entries are kept.
func (s *Store) UseCustom(b backend.Backend) {
	s.mu.Lock()
	s.custom = b
	s.mu.Unlock()
	s.hooks.BackendSwapped(b != nil)
	s.log.Info("backend swapped", Fields{"custom": b != nil})
}

// Custom returns the custom backend, or nil when the default is in use.
func (s *Store) Custom() backend.Backend {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.custom
}

// Cached reports how many keys the cache has resolved (present or absent).
func (s *Store) Cached() int { return s.cache.Len() }

// Delete forgets key: the cache records it as absent, then the backend
// removes it.
func (s *Store) Delete(ctx context.Context, key string) {
	s.cache.RecordAbsent(key)
	if err := s.backend().Remove(ctx, key); err != nil {
		s.backendFailed(OpRemove, key, err)
	}
}

// backend resolves the backend for one operation.
func (s *Store) backend() backend.Backend {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.custom != nil {
		return s.custom
	}
	return s.def
}

func (s *Store) backendFailed(op, key string, err error) {
	be := &BackendError{Op: op, Key: key, Err: err}
	s.hooks.BackendFailed(be)
	s.log.Warn("backend call failed", Fields{"op": op, "key": key, "err": err})
}
