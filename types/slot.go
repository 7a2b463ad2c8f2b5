package types

import (
	"fmt"
	"math"
)

// MaxJustifiedIndex is the largest index JustifiedIndexAfter can return. Indices
// address bitlists whose positions are signed 32-bit on other clients.
const MaxJustifiedIndex = math.MaxInt32

// isqrt returns the integer square root of n.
func isqrt(n uint64) uint64 {
	x := uint64(math.Sqrt(float64(n)))
	// float64 loses precision above 2^53; the root of any uint64 fits in 32 bits.
	if x > math.MaxUint32 {
		x = math.MaxUint32
	}
	for x*x > n {
		x--
	}
	for x < math.MaxUint32 && (x+1)*(x+1) <= n {
		x++
	}
	return x
}

// JustifiedIndexAfter maps s to its position in the justified-slots bitlist that
// starts right after finalized. ok is false when s is not after finalized.
func (s Slot) JustifiedIndexAfter(finalized Slot) (idx uint64, ok bool, err error) {
	if s <= finalized {
		return 0, false, nil
	}
	idx = uint64(s - finalized - 1)
	if idx > MaxJustifiedIndex {
		return 0, false, fmt.Errorf("%w: justified index %d", ErrArithmeticOverflow, idx)
	}
	return idx, true, nil
}

// IsJustifiableAfter checks if this slot is a valid justification candidate
// after the given finalized slot. A slot is justifiable if its distance (delta)
// from the finalized slot is <= 5, a perfect square, or a pronic number (x*(x+1)).
// Unjustifiable slots funnel votes toward fewer targets to help reach finalization.
func (s Slot) IsJustifiableAfter(finalized Slot) (bool, error) {
	if s < finalized {
		return false, fmt.Errorf("%w: candidate slot %d before finalized slot %d", ErrInvalidArgument, s, finalized)
	}
	delta := uint64(s - finalized)
	if delta > math.MaxInt64 {
		return false, fmt.Errorf("%w: slot distance %d", ErrArithmeticOverflow, delta)
	}
	if delta <= 5 {
		return true, nil
	}
	// Rule 2: perfect square.
	m := isqrt(delta)
	if m*m == delta {
		return true, nil
	}
	// Rule 3: 4*delta+1 is an odd perfect square exactly when delta = m*(m+1).
	return m*(m+1) == delta, nil
}
