// Package backend defines what kvcache needs from a persistent store and
// builds typed backends on top of plain byte stores.
//
// A Backend exposes one getter and one setter per primitive kind plus Remove.
// Getters return (v, true, nil) on hit and (zero, false, nil) on miss. Any
// error is treated by kvcache as a miss; ErrTypeMismatch additionally tells the
// caller the key holds a value of a different kind.
//
// Most stores only move bytes. Implement Provider instead and wrap it with
// FromProvider; the adapter tags every value with its kind.
package backend

import (
	"context"
	"errors"
)

var (
	// ErrTypeMismatch is returned by typed getters when the stored value has
	// another kind than the one requested.
	ErrTypeMismatch = errors.New("backend: stored value has a different type")
	// ErrRejected is returned by setters when the store refused the write
	// (eviction or admission pressure).
	ErrRejected = errors.New("backend: write rejected by store")
)

// Backend is the capability contract of a kvcache store. Implementations must
// be safe for concurrent use.
type Backend interface {
	Int(ctx context.Context, key string) (int, bool, error)
	Float64(ctx context.Context, key string) (float64, bool, error)
	Float32(ctx context.Context, key string) (float32, bool, error)
	Bool(ctx context.Context, key string) (bool, bool, error)
	String(ctx context.Context, key string) (string, bool, error)
	Bytes(ctx context.Context, key string) ([]byte, bool, error)

	SetInt(ctx context.Context, key string, v int) error
	SetFloat64(ctx context.Context, key string, v float64) error
	SetFloat32(ctx context.Context, key string, v float32) error
	SetBool(ctx context.Context, key string, v bool) error
	SetString(ctx context.Context, key string, v string) error
	SetBytes(ctx context.Context, key string, v []byte) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
}

// Closer is implemented by backends that hold resources.
type Closer interface {
	Close(ctx context.Context) error
}

// Close closes b if it implements Closer.
func Close(ctx context.Context, b Backend) error {
	if c, ok := b.(Closer); ok {
		return c.Close(ctx)
	}
	return nil
}
