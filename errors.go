package kvcache

import "fmt"

// Backend operations reported in BackendError.Op.
const (
	OpGet    = "get"
	OpSet    = "set"
	OpRemove = "remove"
)

// BackendError describes a backend failure that the Store absorbed.
type BackendError struct {
	Op  string
	Key string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("kvcache: backend %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// decodeError marks a codec failure on the read path so it is reported as
// DecodeFailed rather than as a backend failure.
type decodeError struct{ err error }

func (e *decodeError) Error() string { return "kvcache: decode: " + e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }
