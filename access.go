package kvcache

import (
	"context"
	"errors"

	"github.com/unkn0wn-root/kvcache/backend"
	"github.com/unkn0wn-root/kvcache/internal/coherent"
)

// Get returns the value of key as t.
//
// A cached value or a cached absence answers without touching the backend.
// Otherwise the backend is read once and its answer, value or absence, is
// cached. Backend and decode failures read as absent; a value stored with
// another type reads as absent but is not cached as such.
func Get[T any](ctx context.Context, s *Store, t Type[T], key string) (T, bool) {
	var zero T
	v, ok, hit, tok := cached(s, t, key)
	if hit {
		s.hooks.CacheHit(key)
		return v, ok
	}
	s.hooks.CacheMiss(key)

	v, ok, err := t.get(ctx, s.backend(), key)
	if err != nil {
		var de *decodeError
		switch {
		case errors.Is(err, backend.ErrTypeMismatch):
			// leave the key unknown so readers of the stored type still hit the backend
			s.typeMismatch(key, t.name)
			return zero, false
		case errors.As(err, &de):
			s.hooks.DecodeFailed(key, de.err)
			s.log.Warn("stored value did not decode", Fields{"key": key, "type": t.name, "err": de.err})
		default:
			s.backendFailed(OpGet, key, err)
		}
		ok = false
	}

	var filled bool
	if ok {
		filled = s.cache.FillPresent(key, tok, t.copy(v))
	} else {
		filled = s.cache.FillAbsent(key, tok)
	}
	if filled {
		return v, ok
	}

	// a write beat us to the cache; it is newer than what we read
	s.hooks.FillDropped(key)
	s.log.Debug("dropped stale backend read", Fields{"key": key})
	switch st, cv, _ := s.cache.Lookup(key); st {
	case coherent.Present:
		if tv, match := cv.(T); match {
			return t.copy(tv), true
		}
	case coherent.Absent:
		return zero, false
	}
	return v, ok
}

// cached answers key from memory when it can (hit=true). Otherwise it returns
// the token a backend read of key must fill against, taken in the same
// observation that found the key unresolved.
func cached[T any](s *Store, t Type[T], key string) (v T, ok, hit bool, tok coherent.Token) {
	for {
		st, cv, cur := s.cache.Lookup(key)
		switch st {
		case coherent.Present:
			if tv, match := cv.(T); match {
				return t.copy(tv), true, true, cur
			}
			s.typeMismatch(key, t.name)
			next, done := s.cache.Invalidate(key, cur)
			if !done {
				// written since the lookup; look again
				continue
			}
			return v, false, false, next
		case coherent.Absent:
			return v, false, true, cur
		default:
			return v, false, false, cur
		}
	}
}

// GetOr returns the value of key, or def when there is none.
func GetOr[T any](ctx context.Context, s *Store, t Type[T], key string, def T) T {
	if v, ok := Get(ctx, s, t, key); ok {
		return v
	}
	return def
}

// Set caches v for key and writes it through to the backend. The cache is
// updated first, so concurrent readers see v before the backend write
// completes. Backend failures are reported to Hooks, not returned.
func Set[T any](ctx context.Context, s *Store, t Type[T], key string, v T) {
	write, err := t.put(v)
	if err != nil {
		s.hooks.EncodeFailed(key, err)
		s.log.Warn("value did not encode; deleting key", Fields{"key": key, "type": t.name, "err": err})
		s.Delete(ctx, key)
		return
	}
	s.cache.RecordPresent(key, t.copy(v))
	if err := write(ctx, s.backend(), key); err != nil {
		s.backendFailed(OpSet, key, err)
	}
}

// SetOptional is Set for a nullable value: nil deletes key.
func SetOptional[T any](ctx context.Context, s *Store, t Type[T], key string, v *T) {
	if v == nil {
		s.Delete(ctx, key)
		return
	}
	Set(ctx, s, t, key, *v)
}

func (s *Store) typeMismatch(key, want string) {
	s.hooks.TypeMismatch(key, want)
	s.log.Debug("value has another type", Fields{"key": key, "want": want})
}
