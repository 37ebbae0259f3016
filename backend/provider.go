package backend

import (
	"context"
	"errors"

	"github.com/unkn0wn-root/kvcache/internal/wire"
)

// Provider is a minimal byte store. Must be safe for concurrent use and
// byte-for-byte transparent: Get returns exactly the []byte previously passed
// to Set for the same key.
type Provider interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value. Returns ok=false when the store rejected the write
	// under pressure.
	Set(ctx context.Context, key string, value []byte) (ok bool, err error)

	// Del removes a key (best-effort). Deleting a missing key is not an error.
	Del(ctx context.Context, key string) error

	// Close releases resources.
	Close(ctx context.Context) error
}

// Typed turns a Provider into a Backend.
type Typed struct {
	p Provider
}

var _ Backend = (*Typed)(nil)

// FromProvider wraps p. Values are framed with their kind so that reading a
// key as the wrong type reports ErrTypeMismatch instead of garbage.
func FromProvider(p Provider) *Typed { return &Typed{p: p} }

// Provider returns the wrapped byte store.
func (t *Typed) Provider() Provider { return t.p }

func (t *Typed) Int(ctx context.Context, key string) (int, bool, error) {
	v, ok, err := get(ctx, t.p, key, wire.DecodeInt)
	return int(v), ok, err
}

func (t *Typed) Float64(ctx context.Context, key string) (float64, bool, error) {
	return get(ctx, t.p, key, wire.DecodeFloat64)
}

func (t *Typed) Float32(ctx context.Context, key string) (float32, bool, error) {
	return get(ctx, t.p, key, wire.DecodeFloat32)
}

func (t *Typed) Bool(ctx context.Context, key string) (bool, bool, error) {
	return get(ctx, t.p, key, wire.DecodeBool)
}

func (t *Typed) String(ctx context.Context, key string) (string, bool, error) {
	return get(ctx, t.p, key, wire.DecodeString)
}

func (t *Typed) Bytes(ctx context.Context, key string) ([]byte, bool, error) {
	return get(ctx, t.p, key, wire.DecodeBytes)
}

func (t *Typed) SetInt(ctx context.Context, key string, v int) error {
	return t.set(ctx, key, wire.EncodeInt(int64(v)))
}

func (t *Typed) SetFloat64(ctx context.Context, key string, v float64) error {
	return t.set(ctx, key, wire.EncodeFloat64(v))
}

func (t *Typed) SetFloat32(ctx context.Context, key string, v float32) error {
	return t.set(ctx, key, wire.EncodeFloat32(v))
}

func (t *Typed) SetBool(ctx context.Context, key string, v bool) error {
	return t.set(ctx, key, wire.EncodeBool(v))
}

func (t *Typed) SetString(ctx context.Context, key string, v string) error {
	return t.set(ctx, key, wire.EncodeString(v))
}

func (t *Typed) SetBytes(ctx context.Context, key string, v []byte) error {
	return t.set(ctx, key, wire.EncodeBytes(v))
}

func (t *Typed) Remove(ctx context.Context, key string) error {
	return t.p.Del(ctx, key)
}

func (t *Typed) Close(ctx context.Context) error {
	return t.p.Close(ctx)
}

func (t *Typed) set(ctx context.Context, key string, frame []byte) error {
	ok, err := t.p.Set(ctx, key, frame)
	if err != nil {
		return err
	}
	if !ok {
		return ErrRejected
	}
	return nil
}

func get[T any](ctx context.Context, p Provider, key string, decode func([]byte) (T, error)) (T, bool, error) {
	var zero T
	raw, ok, err := p.Get(ctx, key)
	if err != nil || !ok {
		return zero, false, err
	}
	v, err := decode(raw)
	if errors.Is(err, wire.ErrKind) {
		return zero, false, ErrTypeMismatch
	}
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}
