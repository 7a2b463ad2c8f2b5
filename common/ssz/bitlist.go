package ssz

import (
	"fmt"

	"github.com/prysmaticlabs/go-bitfield"
)

// PackedLen is the number of bytes needed to hold n data bits.
func PackedLen(n uint64) int {
	return int((n + 7) / 8)
}

// BitlistSize is the encoded size of a bitlist with n data bits: the data bits
// plus one delimiter bit, which lands in its own byte when n is a multiple of 8.
func BitlistSize(n uint64) int {
	return int(n/8) + 1
}

// MarshalBitlist appends the wire form of a bitlist: packed data bits (LSB first)
// followed by a single set delimiter bit at position n.
func MarshalBitlist(dst []byte, packed []byte, n uint64) []byte {
	start := len(dst)
	dst = append(dst, make([]byte, BitlistSize(n))...)
	copy(dst[start:], packed[:PackedLen(n)])
	dst[start+int(n/8)] |= 1 << (n % 8)
	return dst
}

// UnmarshalBitlist parses the wire form of a bitlist and returns the packed data
// bits without the delimiter, plus the logical bit count.
func UnmarshalBitlist(buf []byte) ([]byte, uint64, error) {
	if len(buf) == 0 {
		return nil, 0, fmt.Errorf("%w: empty encoding", ErrBitlistDelimiter)
	}
	if buf[len(buf)-1] == 0 {
		return nil, 0, fmt.Errorf("%w: trailing zero byte", ErrBitlistDelimiter)
	}
	n := bitfield.Bitlist(buf).Len()
	if n == 0 {
		return nil, 0, nil
	}
	packed := make([]byte, PackedLen(n))
	copy(packed, buf)
	if n%8 != 0 {
		packed[len(packed)-1] &^= 1 << (n % 8)
	}
	return packed, n, nil
}
