package kvcache

// Hooks are lightweight callbacks for cache and backend events.
// Implementations MUST be cheap and non-blocking; CacheHit and CacheMiss run
// on every read.
type Hooks interface {
	// Read answered from memory (value or confirmed absence).
	CacheHit(key string)
	// Read had to consult the backend.
	CacheMiss(key string)

	// The cached or stored value has a different type than the reader asked
	// for; want is the requested type name.
	TypeMismatch(key, want string)

	// A backend read result was discarded because the key was written,
	// deleted or the cache was reset while the read was in flight.
	FillDropped(key string)

	// Stored bytes did not decode; the read returned no value.
	DecodeFailed(key string, err error)
	// A structured value did not encode; the write became a delete.
	EncodeFailed(key string, err error)

	// A backend call failed and the error was swallowed.
	BackendFailed(err *BackendError)

	// The custom backend was set (custom=true) or cleared.
	BackendSwapped(custom bool)
}

// NopHooks is the default no-op.
type NopHooks struct{}

func (NopHooks) CacheHit(string)             {}
func (NopHooks) CacheMiss(string)            {}
func (NopHooks) TypeMismatch(string, string) {}
func (NopHooks) FillDropped(string)          {}
func (NopHooks) DecodeFailed(string, error)  {}
func (NopHooks) EncodeFailed(string, error)  {}
func (NopHooks) BackendFailed(*BackendError) {}
func (NopHooks) BackendSwapped(bool)         {}
