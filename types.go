package kvcache

import (
	"context"
	"reflect"

	"github.com/unkn0wn-root/kvcache/backend"
	"github.com/unkn0wn-root/kvcache/codec"
)

// Type binds a Go type to the backend primitive that stores it. Use the
// predefined Int, Float64, Float32, Bool, String and Bytes, or Object for
// structured values.
type Type[T any] struct {
	name string
	get  func(ctx context.Context, b backend.Backend, key string) (T, bool, error)
	// put prepares the backend write; it fails only when encoding fails.
	put   func(v T) (writeFunc, error)
	clone func(T) T
}

type writeFunc func(ctx context.Context, b backend.Backend, key string) error

// Name returns the type's name as reported to Hooks.
func (t Type[T]) Name() string { return t.name }

var (
	Int     = primitive("int", backend.Backend.Int, backend.Backend.SetInt)
	Float64 = primitive("float64", backend.Backend.Float64, backend.Backend.SetFloat64)
	Float32 = primitive("float32", backend.Backend.Float32, backend.Backend.SetFloat32)
	Bool    = primitive("bool", backend.Backend.Bool, backend.Backend.SetBool)
	String  = primitive("string", backend.Backend.String, backend.Backend.SetString)
	// Bytes values are copied in and out of the cache.
	Bytes = primitive("bytes", backend.Backend.Bytes, backend.Backend.SetBytes).withClone(cloneBytes)
)

// Object stores V through the backend's Bytes primitive using c. A value that
// fails to decode reads as absent; a value that fails to encode is deleted.
//
// The cache holds the value passed to Set and hands the same value to every
// Get. When V has slice, map or pointer fields, callers must not mutate what
// they pass in or get back; use ObjectClone to have the cache copy instead.
func Object[V any](c codec.Codec[V]) Type[V] {
	return Type[V]{
		name: "object[" + reflect.TypeOf((*V)(nil)).Elem().String() + "]",
		get: func(ctx context.Context, b backend.Backend, key string) (V, bool, error) {
			var zero V
			raw, ok, err := b.Bytes(ctx, key)
			if err != nil || !ok {
				return zero, false, err
			}
			v, err := c.Decode(raw)
			if err != nil {
				return zero, false, &decodeError{err: err}
			}
			return v, true, nil
		},
		put: func(v V) (writeFunc, error) {
			raw, err := c.Encode(v)
			if err != nil {
				return nil, err
			}
			return func(ctx context.Context, b backend.Backend, key string) error {
				return b.SetBytes(ctx, key, raw)
			}, nil
		},
	}
}

// ObjectClone is Object with clone applied to every value going into or out of
// the cache, so callers own what they pass to Set and get from Get.
func ObjectClone[V any](c codec.Codec[V], clone func(V) V) Type[V] {
	return Object(c).withClone(clone)
}

// JSON is Object with codec.JSON.
func JSON[V any]() Type[V] { return Object[V](codec.JSON[V]{}) }

func primitive[T any](
	name string,
	get func(backend.Backend, context.Context, string) (T, bool, error),
	set func(backend.Backend, context.Context, string, T) error,
) Type[T] {
	return Type[T]{
		name: name,
		get: func(ctx context.Context, b backend.Backend, key string) (T, bool, error) {
			return get(b, ctx, key)
		},
		put: func(v T) (writeFunc, error) {
			return func(ctx context.Context, b backend.Backend, key string) error {
				return set(b, ctx, key, v)
			}, nil
		},
	}
}

func (t Type[T]) withClone(f func(T) T) Type[T] {
	t.clone = f
	return t
}

func (t Type[T]) copy(v T) T {
	if t.clone == nil {
		return v
	}
	return t.clone(v)
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte{}, b...)
}
