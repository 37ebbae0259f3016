// Package kvcache is a typed read-through / write-through cache in front of a
// persistent key-value backend.
//
// Reads consult an in-memory map first. A key the backend does not hold is
// remembered as absent, so repeated reads of a missing key never go back to the
// backend. Writes update the map before the backend, so concurrent readers see
// the new value immediately. A backend read that races a write is dropped
// instead of overwriting the newer value.
//
// Components:
//   - Store: the cache plus the currently selected backend (default or custom).
//   - Type[T]: typed accessors for int, float64, float32, bool, string, []byte
//     and structured values through a codec.Codec.
//   - backend.Backend: the storage contract. The default is a preferences file
//     under the user's config directory (backend/file).
//
// Usage:
//
//	s, _ := kvcache.New(kvcache.Options{Name: "com.example.app"})
//	kvcache.Set(ctx, s, kvcache.Int, "age", 10)
//	age := kvcache.GetOr(ctx, s, kvcache.Int, "age", 0)
//
// Reads never fail: a backend error, a value of another type or a value that
// does not decode all read as "no value". Writes never fail either; backend
// errors go to Hooks and the Logger.
package kvcache
