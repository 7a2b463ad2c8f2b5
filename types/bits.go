package types

import (
	"bytes"
	"fmt"
	"math/bits"

	"github.com/geanlabs/pqlean/common/ssz"
	"github.com/prysmaticlabs/go-bitfield"
)

// Bitlist is a variable-length bit sequence. The backing store holds the data
// bits packed LSB-first with no delimiter; n is the logical bit count that the
// wire encoding and the hash tree root both commit to.
type Bitlist struct {
	data []byte
	n    uint64
}

// NewBitlist builds a bitlist from explicit bit values.
func NewBitlist(values []bool) Bitlist {
	if len(values) == 0 {
		return Bitlist{}
	}
	b := Bitlist{data: make([]byte, ssz.PackedLen(uint64(len(values)))), n: uint64(len(values))}
	for i, v := range values {
		b.set(uint64(i), v)
	}
	return b
}

// BitlistFromPacked builds a bitlist of n bits from packed data bits. Bits at or
// beyond n are ignored.
func BitlistFromPacked(packed []byte, n uint64) (Bitlist, error) {
	if uint64(len(packed)) < (n+7)/8 {
		return Bitlist{}, fmt.Errorf("%w: %d bytes cannot hold %d bits", ErrLengthMismatch, len(packed), n)
	}
	if n == 0 {
		return Bitlist{}, nil
	}
	data := make([]byte, ssz.PackedLen(n))
	copy(data, packed)
	if n%8 != 0 {
		data[len(data)-1] &= byte(1<<(n%8)) - 1
	}
	return Bitlist{data: data, n: n}, nil
}

// BitlistFromBitfield converts a go-bitfield wire-form bitlist.
func BitlistFromBitfield(bf bitfield.Bitlist) (Bitlist, error) {
	packed, n, err := ssz.UnmarshalBitlist(bf)
	if err != nil {
		return Bitlist{}, err
	}
	return Bitlist{data: packed, n: n}, nil
}

func (b Bitlist) Len() uint64 { return b.n }

// BitAt reports bit i; bits past the end read as false.
func (b Bitlist) BitAt(i uint64) bool {
	if i >= b.n {
		return false
	}
	return b.data[i/8]&(1<<(i%8)) != 0
}

// SetBitAt sets bit i to v, growing the list to i+1 bits when needed. The
// backing array is replaced, never written in place, so copies of b are
// unaffected.
func (b *Bitlist) SetBitAt(i uint64, v bool) {
	n := b.n
	if i >= n {
		n = i + 1
	}
	data := make([]byte, ssz.PackedLen(n))
	copy(data, b.data)
	b.data, b.n = data, n
	b.set(i, v)
}

// Append adds one bit to the end of the list.
func (b *Bitlist) Append(v bool) {
	b.SetBitAt(b.n, v)
}

// set writes bit i < n into storage b owns exclusively.
func (b *Bitlist) set(i uint64, v bool) {
	if v {
		b.data[i/8] |= 1 << (i % 8)
	} else {
		b.data[i/8] &^= 1 << (i % 8)
	}
}

// indexBits builds a bitlist of max(indices)+1 bits with each index set.
func indexBits(indices []uint64) Bitlist {
	var top uint64
	for _, idx := range indices {
		top = max(top, idx)
	}
	b := Bitlist{data: make([]byte, ssz.PackedLen(top+1)), n: top + 1}
	for _, idx := range indices {
		b.set(idx, true)
	}
	return b
}

// Count returns the number of set bits.
func (b Bitlist) Count() uint64 {
	var c int
	for _, x := range b.data {
		c += bits.OnesCount8(x)
	}
	return uint64(c)
}

// Bits returns the bit values in order.
func (b Bitlist) Bits() []bool {
	out := make([]bool, b.n)
	for i := range out {
		out[i] = b.BitAt(uint64(i))
	}
	return out
}

// Indices returns the positions of set bits in increasing order.
func (b Bitlist) Indices() []uint64 {
	var out []uint64
	for i := uint64(0); i < b.n; i++ {
		if b.BitAt(i) {
			out = append(out, i)
		}
	}
	return out
}

// Packed returns a copy of the packed data bits, without the delimiter.
func (b Bitlist) Packed() []byte {
	return bytes.Clone(b.data)
}

func (b Bitlist) Equal(other Bitlist) bool {
	return b.n == other.n && bytes.Equal(b.data, other.data)
}

// Bitfield returns the wire form as a go-bitfield bitlist.
func (b Bitlist) Bitfield() bitfield.Bitlist {
	return bitfield.Bitlist(b.marshal(nil))
}

func (b Bitlist) String() string {
	buf := make([]byte, b.n)
	for i := range buf {
		buf[i] = '0'
		if b.BitAt(uint64(i)) {
			buf[i] = '1'
		}
	}
	return string(buf)
}

func (b Bitlist) sizeSSZ() int { return ssz.BitlistSize(b.n) }

func (b Bitlist) marshal(dst []byte) []byte {
	return ssz.MarshalBitlist(dst, b.data, b.n)
}

func (b *Bitlist) unmarshal(buf []byte) error {
	packed, n, err := ssz.UnmarshalBitlist(buf)
	if err != nil {
		return err
	}
	b.data, b.n = packed, n
	return nil
}

func (b Bitlist) root() [32]byte {
	return ssz.BitlistRoot(b.data, b.n)
}

// AggregationBits marks which validators took part in an aggregate, keyed by
// validator index.
type AggregationBits struct {
	Bitlist
}

// NewAggregationBits accepts any bit sequence, including an empty one.
func NewAggregationBits(values []bool) AggregationBits {
	return AggregationBits{NewBitlist(values)}
}

// AggregationBitsFromValidatorIndices sets one bit per distinct index. The
// result has max(indices)+1 bits.
func AggregationBitsFromValidatorIndices(indices []int64) (AggregationBits, error) {
	if len(indices) == 0 {
		return AggregationBits{}, fmt.Errorf("%w: no validator indices", ErrEmptySet)
	}
	unsigned := make([]uint64, len(indices))
	for i, idx := range indices {
		if idx < 0 {
			return AggregationBits{}, fmt.Errorf("%w: negative validator index %d", ErrInvalidArgument, idx)
		}
		unsigned[i] = uint64(idx)
	}
	return AggregationBitsFromUint64(unsigned)
}

// AggregationBitsFromUint64 is AggregationBitsFromValidatorIndices for unsigned ids.
func AggregationBitsFromUint64(indices []uint64) (AggregationBits, error) {
	if len(indices) == 0 {
		return AggregationBits{}, fmt.Errorf("%w: no validator indices", ErrEmptySet)
	}
	for _, idx := range indices {
		if idx > MaxJustifiedIndex {
			return AggregationBits{}, fmt.Errorf("%w: validator index %d", ErrArithmeticOverflow, idx)
		}
	}
	return AggregationBits{indexBits(indices)}, nil
}

// ToValidatorIndices returns the sorted set-bit positions.
func (a AggregationBits) ToValidatorIndices() ([]uint64, error) {
	out := a.Indices()
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no participants", ErrEmptySet)
	}
	return out, nil
}

func (a AggregationBits) Equal(other AggregationBits) bool {
	return a.Bitlist.Equal(other.Bitlist)
}

func (a AggregationBits) SizeSSZ() int { return a.sizeSSZ() }

func (a AggregationBits) MarshalSSZ() ([]byte, error) { return ssz.Marshal(a) }

func (a AggregationBits) MarshalSSZTo(dst []byte) ([]byte, error) {
	return a.marshal(dst), nil
}

func (a *AggregationBits) UnmarshalSSZ(buf []byte) error {
	return a.unmarshal(buf)
}

func (a AggregationBits) HashTreeRoot() ([32]byte, error) {
	return a.root(), nil
}
