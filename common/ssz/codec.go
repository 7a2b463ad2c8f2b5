package ssz

import (
	"errors"
	"fmt"

	fastssz "github.com/ferranbt/fastssz"
)

const (
	OffsetSize = 4
	Uint64Size = 8
	Uint32Size = 4
)

// Decode errors. ErrSize and ErrOffset are shared with fastssz so callers that
// already match on those keep working.
var (
	ErrSize             = fastssz.ErrSize
	ErrOffset           = fastssz.ErrOffset
	ErrBitlistDelimiter = errors.New("bitlist missing delimiter bit")
	ErrAmbiguousList    = errors.New("list elements cannot be delimited")
)

// Object is the codec capability every consensus container implements: a
// canonical encoding, its inverse, and a hash tree root.
type Object interface {
	fastssz.Marshaler
	fastssz.Unmarshaler
	HashTreeRoot() ([32]byte, error)
}

// Encode returns the canonical encoding of obj.
func Encode(obj Object) ([]byte, error) {
	return obj.MarshalSSZ()
}

// Decode fills obj from its canonical encoding.
func Decode(buf []byte, obj Object) error {
	return obj.UnmarshalSSZ(buf)
}

// HashTreeRoot returns the Merkle root of obj.
func HashTreeRoot(obj Object) ([32]byte, error) {
	return obj.HashTreeRoot()
}

// Marshal allocates a buffer of obj.SizeSSZ() bytes and encodes into it.
func Marshal(obj fastssz.Marshaler) ([]byte, error) {
	return obj.MarshalSSZTo(make([]byte, 0, obj.SizeSSZ()))
}

func MarshalUint64(dst []byte, v uint64) []byte {
	return fastssz.MarshalUint64(dst, v)
}

func MarshalUint32(dst []byte, v uint32) []byte {
	return fastssz.MarshalUint32(dst, v)
}

func UnmarshalUint64(buf []byte) uint64 {
	return fastssz.UnmarshallUint64(buf)
}

func UnmarshalUint32(buf []byte) uint32 {
	return fastssz.UnmarshallUint32(buf)
}

// WriteOffset appends a 4-byte little-endian offset.
func WriteOffset(dst []byte, offset int) []byte {
	return fastssz.WriteOffset(dst, offset)
}

// ReadOffsets reads count consecutive offsets starting at buf[at:] and returns
// the payload boundaries: count+1 positions ending with len(buf). The first
// offset must equal fixedSize, offsets must not decrease, and none may point
// past the end of buf.
func ReadOffsets(buf []byte, at, count, fixedSize int) ([]int, error) {
	if len(buf) < fixedSize || at+count*OffsetSize > fixedSize {
		return nil, fmt.Errorf("%w: have %d bytes, fixed part is %d", ErrSize, len(buf), fixedSize)
	}
	bounds := make([]int, count+1)
	prev := fixedSize
	for i := 0; i < count; i++ {
		o := fastssz.ReadOffset(buf[at+i*OffsetSize:])
		if i == 0 && o != uint64(fixedSize) {
			return nil, fmt.Errorf("%w: first offset %d, want %d", ErrOffset, o, fixedSize)
		}
		if o < uint64(prev) || o > uint64(len(buf)) {
			return nil, fmt.Errorf("%w: offset %d out of range [%d, %d]", ErrOffset, o, prev, len(buf))
		}
		bounds[i] = int(o)
		prev = int(o)
	}
	bounds[count] = len(buf)
	return bounds, nil
}

// CheckSize fails unless buf is exactly want bytes long.
func CheckSize(buf []byte, want int) error {
	if len(buf) != want {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrSize, len(buf), want)
	}
	return nil
}

// CheckMinSize fails when buf is shorter than min bytes.
func CheckMinSize(buf []byte, min int) error {
	if len(buf) < min {
		return fmt.Errorf("%w: got %d bytes, want at least %d", ErrSize, len(buf), min)
	}
	return nil
}
