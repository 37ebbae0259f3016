package kvcache

import "context"

// Field binds one key, one type and a default value, e.g.
//
//	var launches = kvcache.NewField(store, kvcache.Int, "app.launches", 0)
//	launches.Set(ctx, launches.Get(ctx)+1)
type Field[T any] struct {
	s   *Store
	t   Type[T]
	key string
	def T
}

func NewField[T any](s *Store, t Type[T], key string, def T) Field[T] {
	return Field[T]{s: s, t: t, key: key, def: def}
}

func (f Field[T]) Key() string { return f.key }

// Get returns the stored value or the field's default.
func (f Field[T]) Get(ctx context.Context) T { return GetOr(ctx, f.s, f.t, f.key, f.def) }

// Lookup reports whether a value is stored, ignoring the default.
func (f Field[T]) Lookup(ctx context.Context) (T, bool) { return Get(ctx, f.s, f.t, f.key) }

func (f Field[T]) Set(ctx context.Context, v T) { Set(ctx, f.s, f.t, f.key, v) }

// SetOptional deletes the key when v is nil.
func (f Field[T]) SetOptional(ctx context.Context, v *T) { SetOptional(ctx, f.s, f.t, f.key, v) }

// Clear deletes the key; Get returns the default afterwards.
func (f Field[T]) Clear(ctx context.Context) { f.s.Delete(ctx, f.key) }
