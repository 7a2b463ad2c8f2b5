package ssz

import "fmt"

// NextEndFunc returns the smallest length greater than after at which a single
// element starting at rest[0] could end, or -1 when there is none.
type NextEndFunc func(rest []byte, after int) int

// SplitElements splits the concatenation of self-describing variable-size
// elements, which carries no outer offset table. The split must be unique: a
// buffer no split covers and a buffer two splits cover both fail with
// ErrAmbiguousList. Split counts are memoized per start position and capped
// at two, so each position is explored once.
func SplitElements(buf []byte, nextEnd NextEndFunc) ([][]byte, error) {
	if len(buf) == 0 {
		return nil, nil
	}
	ways := make(map[int]int)
	next := make(map[int]int)

	var count func(pos int) int
	count = func(pos int) int {
		if pos == len(buf) {
			return 1
		}
		if w, ok := ways[pos]; ok {
			return w
		}
		total := 0
		rest := buf[pos:]
		for n := nextEnd(rest, 0); n > 0 && n <= len(rest) && total < 2; n = nextEnd(rest, n) {
			if w := count(pos + n); w > 0 {
				total += w
				next[pos] = pos + n
			}
		}
		if total > 2 {
			total = 2
		}
		ways[pos] = total
		return total
	}

	switch count(0) {
	case 0:
		return nil, fmt.Errorf("%w: no split covers %d bytes", ErrAmbiguousList, len(buf))
	case 1:
	default:
		return nil, fmt.Errorf("%w: %d bytes split more than one way", ErrAmbiguousList, len(buf))
	}
	var out [][]byte
	for pos := 0; pos < len(buf); pos = next[pos] {
		out = append(out, buf[pos:next[pos]])
	}
	return out, nil
}
