package types

import (
	"fmt"

	"github.com/geanlabs/pqlean/common/ssz"
)

const (
	HashDigestVectorLength = 8
	RandomnessLength       = 7

	HashDigestVectorSize = HashDigestVectorLength * FieldElementSize
	RandomnessSize       = RandomnessLength * FieldElementSize
)

// HashDigestVector is one Poseidon digest as used by XMSS hash-tree openings.
type HashDigestVector [HashDigestVectorLength]FieldElement

// Randomness is the per-signature randomizer of an XMSS signature.
type Randomness [RandomnessLength]FieldElement

// HashDigestList is an unbounded list of digests.
type HashDigestList []HashDigestVector

// HashTreeOpening carries the sibling path of a leaf in an XMSS hash tree.
type HashTreeOpening struct {
	Siblings HashDigestList
}

func HashDigestVectorFromElements(elems []FieldElement) (HashDigestVector, error) {
	var v HashDigestVector
	if len(elems) != HashDigestVectorLength {
		return v, fmt.Errorf("%w: digest has %d elements, want %d", ErrLengthMismatch, len(elems), HashDigestVectorLength)
	}
	copy(v[:], elems)
	return v, nil
}

func RandomnessFromElements(elems []FieldElement) (Randomness, error) {
	var r Randomness
	if len(elems) != RandomnessLength {
		return r, fmt.Errorf("%w: randomness has %d elements, want %d", ErrLengthMismatch, len(elems), RandomnessLength)
	}
	copy(r[:], elems)
	return r, nil
}

func marshalFieldElements(dst []byte, elems []FieldElement) []byte {
	for _, e := range elems {
		dst = ssz.MarshalUint32(dst, uint32(e))
	}
	return dst
}

func unmarshalFieldElements(buf []byte, elems []FieldElement) {
	for i := range elems {
		elems[i] = FieldElement(ssz.UnmarshalUint32(buf[i*FieldElementSize:]))
	}
}

func (v HashDigestVector) SizeSSZ() int { return HashDigestVectorSize }

func (v HashDigestVector) MarshalSSZ() ([]byte, error) { return ssz.Marshal(v) }

func (v HashDigestVector) MarshalSSZTo(dst []byte) ([]byte, error) {
	return marshalFieldElements(dst, v[:]), nil
}

func (v *HashDigestVector) UnmarshalSSZ(buf []byte) error {
	if err := ssz.CheckSize(buf, HashDigestVectorSize); err != nil {
		return err
	}
	unmarshalFieldElements(buf, v[:])
	return nil
}

func (v HashDigestVector) HashTreeRoot() ([32]byte, error) {
	return ssz.VectorRoot(marshalFieldElements(nil, v[:])), nil
}

func (r Randomness) SizeSSZ() int { return RandomnessSize }

func (r Randomness) MarshalSSZ() ([]byte, error) { return ssz.Marshal(r) }

func (r Randomness) MarshalSSZTo(dst []byte) ([]byte, error) {
	return marshalFieldElements(dst, r[:]), nil
}

func (r *Randomness) UnmarshalSSZ(buf []byte) error {
	if err := ssz.CheckSize(buf, RandomnessSize); err != nil {
		return err
	}
	unmarshalFieldElements(buf, r[:])
	return nil
}

func (r Randomness) HashTreeRoot() ([32]byte, error) {
	return ssz.VectorRoot(marshalFieldElements(nil, r[:])), nil
}

func (l HashDigestList) SizeSSZ() int { return len(l) * HashDigestVectorSize }

func (l HashDigestList) MarshalSSZ() ([]byte, error) { return ssz.Marshal(l) }

func (l HashDigestList) MarshalSSZTo(dst []byte) ([]byte, error) {
	for _, v := range l {
		dst = marshalFieldElements(dst, v[:])
	}
	return dst, nil
}

func (l *HashDigestList) UnmarshalSSZ(buf []byte) error {
	if len(buf)%HashDigestVectorSize != 0 {
		return fmt.Errorf("%w: %d bytes is not a multiple of %d", ssz.ErrSize, len(buf), HashDigestVectorSize)
	}
	n := len(buf) / HashDigestVectorSize
	if n == 0 {
		*l = nil
		return nil
	}
	out := make(HashDigestList, n)
	for i := range out {
		unmarshalFieldElements(buf[i*HashDigestVectorSize:], out[i][:])
	}
	*l = out
	return nil
}

func (l HashDigestList) HashTreeRoot() ([32]byte, error) {
	roots := make([][32]byte, len(l))
	for i, v := range l {
		roots[i], _ = v.HashTreeRoot()
	}
	return ssz.ListRoot(roots), nil
}

// HashTreeOpening is a single-offset container around its sibling list.
const hashTreeOpeningFixedSize = ssz.OffsetSize

func (o HashTreeOpening) SizeSSZ() int {
	return hashTreeOpeningFixedSize + o.Siblings.SizeSSZ()
}

func (o HashTreeOpening) MarshalSSZ() ([]byte, error) { return ssz.Marshal(o) }

func (o HashTreeOpening) MarshalSSZTo(dst []byte) ([]byte, error) {
	dst = ssz.WriteOffset(dst, hashTreeOpeningFixedSize)
	return o.Siblings.MarshalSSZTo(dst)
}

func (o *HashTreeOpening) UnmarshalSSZ(buf []byte) error {
	bounds, err := ssz.ReadOffsets(buf, 0, 1, hashTreeOpeningFixedSize)
	if err != nil {
		return err
	}
	return o.Siblings.UnmarshalSSZ(buf[bounds[0]:bounds[1]])
}

func (o HashTreeOpening) HashTreeRoot() ([32]byte, error) {
	siblings, err := o.Siblings.HashTreeRoot()
	if err != nil {
		return [32]byte{}, err
	}
	return ssz.ContainerRoot(siblings), nil
}
