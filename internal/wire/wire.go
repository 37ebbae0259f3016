package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
)

const version byte = 1

// Kind tags the primitive stored in a frame.
type Kind byte

const (
	KindInt     Kind = 1
	KindFloat64 Kind = 2
	KindFloat32 Kind = 3
	KindBool    Kind = 4
	KindString  Kind = 5
	KindBytes   Kind = 6
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat64:
		return "float64"
	case KindFloat32:
		return "float32"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	default:
		return "invalid"
	}
}

var (
	ErrCorrupt = errors.New("kvcache: corrupt value")
	// ErrKind is returned by the typed decoders when the frame holds another kind.
	ErrKind = errors.New("kvcache: value kind mismatch")

	magic4 = [...]byte{'K', 'V', 'C', 'V'}
)

const hdr = 4 + 1 + 1 + 4

// Encode frames payload:
//
//	magic(4) | ver(1) | kind(1) | vlen(u32 be) | payload(vlen)
func Encode(k Kind, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(hdr + len(payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(byte(k))

	var u4 [4]byte
	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])

	buf.Write(payload)
	return buf.Bytes()
}

// Decode validates the frame strictly (trailing bytes are corruption) and
// returns its kind and payload. The payload aliases b.
func Decode(b []byte) (Kind, []byte, error) {
	if len(b) < hdr || !bytes.Equal(b[:4], magic4[:]) || b[4] != version {
		return 0, nil, ErrCorrupt
	}
	k := Kind(b[5])
	if k < KindInt || k > KindBytes {
		return 0, nil, ErrCorrupt
	}
	vlen := int(binary.BigEndian.Uint32(b[6:hdr]))
	if vlen != len(b)-hdr {
		return 0, nil, ErrCorrupt
	}
	return k, b[hdr:], nil
}

func EncodeInt(v int64) []byte {
	var u8 [8]byte
	binary.BigEndian.PutUint64(u8[:], uint64(v))
	return Encode(KindInt, u8[:])
}

func EncodeFloat64(v float64) []byte {
	var u8 [8]byte
	binary.BigEndian.PutUint64(u8[:], math.Float64bits(v))
	return Encode(KindFloat64, u8[:])
}

func EncodeFloat32(v float32) []byte {
	var u4 [4]byte
	binary.BigEndian.PutUint32(u4[:], math.Float32bits(v))
	return Encode(KindFloat32, u4[:])
}

func EncodeBool(v bool) []byte {
	if v {
		return Encode(KindBool, []byte{1})
	}
	return Encode(KindBool, []byte{0})
}

func EncodeString(v string) []byte { return Encode(KindString, []byte(v)) }

func EncodeBytes(v []byte) []byte { return Encode(KindBytes, v) }

func DecodeInt(b []byte) (int64, error) {
	p, err := expect(b, KindInt, 8)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(p)), nil
}

func DecodeFloat64(b []byte) (float64, error) {
	p, err := expect(b, KindFloat64, 8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(p)), nil
}

func DecodeFloat32(b []byte) (float32, error) {
	p, err := expect(b, KindFloat32, 4)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.BigEndian.Uint32(p)), nil
}

func DecodeBool(b []byte) (bool, error) {
	p, err := expect(b, KindBool, 1)
	if err != nil {
		return false, err
	}
	switch p[0] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, ErrCorrupt
	}
}

func DecodeString(b []byte) (string, error) {
	p, err := expect(b, KindString, -1)
	if err != nil {
		return "", err
	}
	return string(p), nil
}

// DecodeBytes returns a copy of the payload.
func DecodeBytes(b []byte) ([]byte, error) {
	p, err := expect(b, KindBytes, -1)
	if err != nil {
		return nil, err
	}
	return append([]byte{}, p...), nil
}

// size < 0 means any length
func expect(b []byte, want Kind, size int) ([]byte, error) {
	k, p, err := Decode(b)
	if err != nil {
		return nil, err
	}
	if k != want {
		return nil, ErrKind
	}
	if size >= 0 && len(p) != size {
		return nil, ErrCorrupt
	}
	return p, nil
}
