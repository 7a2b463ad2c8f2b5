// Package types defines the primitive and composite consensus values together
// with their canonical encoding and hash tree roots.
package types

import (
	"fmt"
)

// Primitive types.
type Slot uint64
type ValidatorIndex uint64
type Root [32]byte

// Pubkey is a 52-byte XMSS public key.
type Pubkey [52]byte

// Signature is a 3112-byte XMSS signature.
type Signature [3112]byte

// FieldElement is a raw little-endian 4-byte value. No range validation is applied.
type FieldElement uint32

const (
	RootSize         = 32
	PubkeySize       = 52
	SignatureSize    = 3112
	FieldElementSize = 4
)

// ZeroHash is the all-zero root.
var ZeroHash Root

// Protocol constants.
const (
	SecondsPerSlot     uint64 = 4
	IntervalsPerSlot   uint64 = 4
	SecondsPerInterval uint64 = SecondsPerSlot / IntervalsPerSlot
)

func RootFromBytes(b []byte) (Root, error) {
	var r Root
	if len(b) != RootSize {
		return r, fmt.Errorf("%w: root is %d bytes, want %d", ErrLengthMismatch, len(b), RootSize)
	}
	copy(r[:], b)
	return r, nil
}

func PubkeyFromBytes(b []byte) (Pubkey, error) {
	var pk Pubkey
	if len(b) != PubkeySize {
		return pk, fmt.Errorf("%w: pubkey is %d bytes, want %d", ErrLengthMismatch, len(b), PubkeySize)
	}
	copy(pk[:], b)
	return pk, nil
}

func SignatureFromBytes(b []byte) (Signature, error) {
	var sig Signature
	if len(b) != SignatureSize {
		return sig, fmt.Errorf("%w: signature is %d bytes, want %d", ErrLengthMismatch, len(b), SignatureSize)
	}
	copy(sig[:], b)
	return sig, nil
}

func (r Root) IsZero() bool { return r == Root{} }

// Short returns a short hex representation of the root (first 4 bytes).
func (r Root) Short() string {
	return fmt.Sprintf("%x", r[:4])
}

func (r Root) String() string {
	return fmt.Sprintf("0x%x", r[:])
}

// Compare compares two roots lexicographically.
// Returns 1 if r > other, -1 if r < other, 0 if equal.
func (r Root) Compare(other Root) int {
	for i := 0; i < RootSize; i++ {
		if r[i] > other[i] {
			return 1
		}
		if r[i] < other[i] {
			return -1
		}
	}
	return 0
}

func (pk Pubkey) IsZero() bool { return pk == Pubkey{} }

func (s Signature) IsZero() bool { return s == Signature{} }

// SlotToTime returns the unix time at which slot starts.
func SlotToTime(slot Slot, genesisTime uint64) uint64 {
	return genesisTime + uint64(slot)*SecondsPerSlot
}

// TimeToSlot returns the slot containing unix time t, clamped to 0 before genesis.
func TimeToSlot(t, genesisTime uint64) Slot {
	if t < genesisTime {
		return 0
	}
	return Slot((t - genesisTime) / SecondsPerSlot)
}
