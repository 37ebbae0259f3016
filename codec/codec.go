// Package codec turns structured values into bytes for the Bytes primitive of
// a backend, and back.
//
// A failed Decode is treated by kvcache as a missing value; a failed Encode
// turns the write into a delete.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

// Func adapts a plain encode/decode function pair.
type Func[V any] struct {
	EncodeFunc func(V) ([]byte, error)
	DecodeFunc func([]byte) (V, error)
}

var _ Codec[int] = Func[int]{}

func (f Func[V]) Encode(v V) ([]byte, error) { return f.EncodeFunc(v) }
func (f Func[V]) Decode(b []byte) (V, error) { return f.DecodeFunc(b) }
