package ssz

import (
	"bytes"
	stdsha256 "crypto/sha256"
	"encoding/binary"
	"errors"
	"testing"

	fastssz "github.com/ferranbt/fastssz"
	"github.com/prysmaticlabs/go-bitfield"
)

// naiveMerkleize is the textbook definition: pad to the next power of two with
// zero chunks, then hash pairs with crypto/sha256.
func naiveMerkleize(chunks [][32]byte) [32]byte {
	if len(chunks) == 0 {
		return [32]byte{}
	}
	width := 1
	for width < len(chunks) {
		width *= 2
	}
	layer := make([][32]byte, width)
	copy(layer, chunks)
	for len(layer) > 1 {
		next := make([][32]byte, len(layer)/2)
		for i := range next {
			next[i] = stdsha256.Sum256(append(layer[2*i][:], layer[2*i+1][:]...))
		}
		layer = next
	}
	return layer[0]
}

func TestHash(t *testing.T) {
	h := Hash([]byte("hello"))
	if h == ZeroHash {
		t.Error("hash should not be zero")
	}
	if h != stdsha256.Sum256([]byte("hello")) {
		t.Error("hash backend disagrees with crypto/sha256")
	}
}

func TestHashNodes(t *testing.T) {
	a := [32]byte{1}
	b := [32]byte{2}

	h := HashNodes(a, b)
	if h != stdsha256.Sum256(append(a[:], b[:]...)) {
		t.Error("HashNodes is not SHA256(left || right)")
	}
	if h == HashNodes(b, a) {
		t.Error("order should matter")
	}
}

func TestUint64Root(t *testing.T) {
	r := Uint64Root(100)
	if r[0] != 100 {
		t.Errorf("first byte = %d, want 100", r[0])
	}
	for i := 8; i < 32; i++ {
		if r[i] != 0 {
			t.Errorf("byte %d should be 0", i)
		}
	}
	big := Uint64Root(0x0102030405060708)
	if got := binary.LittleEndian.Uint64(big[:8]); got != 0x0102030405060708 {
		t.Errorf("Uint64Root round trip = %x", got)
	}
}

func TestUint32Root(t *testing.T) {
	r := Uint32Root(0xdeadbeef)
	want := [32]byte{0xef, 0xbe, 0xad, 0xde}
	if r != want {
		t.Errorf("Uint32Root = %x, want %x", r, want)
	}
}

func TestChunkify(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{"empty", 0, 1},
		{"one byte", 1, 1},
		{"exact chunk", 32, 1},
		{"chunk plus one", 33, 2},
		{"three chunks", 96, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := bytes.Repeat([]byte{0xaa}, tt.in)
			chunks := Chunkify(in)
			if len(chunks) != tt.want {
				t.Fatalf("len(Chunkify) = %d, want %d", len(chunks), tt.want)
			}
			last := chunks[len(chunks)-1]
			tail := tt.in % 32
			if tt.in > 0 && tail != 0 {
				for i := tail; i < 32; i++ {
					if last[i] != 0 {
						t.Fatalf("padding byte %d = %x, want 0", i, last[i])
					}
				}
			}
		})
	}
}

func TestMerkleize(t *testing.T) {
	chunk := [32]byte{1, 2, 3}
	if root := Merkleize([][32]byte{chunk}); root != chunk {
		t.Error("single chunk should be its own root")
	}

	a := [32]byte{1}
	b := [32]byte{2}
	if root := Merkleize([][32]byte{a, b}); root != HashNodes(a, b) {
		t.Error("two chunks should hash together")
	}

	if empty := Merkleize(nil); empty != ZeroHash {
		t.Error("empty should return ZeroHash")
	}
}

func TestMerkleizeMatchesExplicitPadding(t *testing.T) {
	for n := 1; n <= 67; n++ {
		chunks := make([][32]byte, n)
		for i := range chunks {
			chunks[i][0] = byte(i + 1)
			chunks[i][31] = byte(n)
		}
		if got, want := Merkleize(chunks), naiveMerkleize(chunks); got != want {
			t.Fatalf("Merkleize(%d chunks) = %x, want %x", n, got, want)
		}
	}
}

func TestMerkleizeDoesNotMutateInput(t *testing.T) {
	chunks := [][32]byte{{1}, {2}, {3}}
	Merkleize(chunks)
	if chunks[0] != [32]byte{1} || chunks[1] != [32]byte{2} || chunks[2] != [32]byte{3} {
		t.Error("Merkleize modified its input")
	}
}

func TestMixInLength(t *testing.T) {
	root := [32]byte{1}
	mixed := MixInLength(root, 42)
	if mixed == root {
		t.Error("mixing should change the root")
	}
	var lenChunk [32]byte
	lenChunk[0] = 42
	if mixed != HashNodes(root, lenChunk) {
		t.Error("MixInLength is not H(root || LE64(len))")
	}
}

func TestBytesRoot(t *testing.T) {
	blob := []byte{1, 2, 3, 4, 5}
	var chunk [32]byte
	copy(chunk[:], blob)
	if got, want := BytesRoot(blob), MixInLength(chunk, 5); got != want {
		t.Errorf("BytesRoot = %x, want %x", got, want)
	}
	if got, want := BytesRoot(nil), MixInLength(ZeroHash, 0); got != want {
		t.Errorf("BytesRoot(nil) = %x, want %x", got, want)
	}
}

func TestListRootPadsToActualCount(t *testing.T) {
	roots := [][32]byte{{1}, {2}, {3}}
	want := MixInLength(HashNodes(HashNodes(roots[0], roots[1]), HashNodes(roots[2], ZeroHash)), 3)
	if got := ListRoot(roots); got != want {
		t.Errorf("ListRoot = %x, want %x", got, want)
	}
	if got, want := ListRoot(nil), MixInLength(ZeroHash, 0); got != want {
		t.Errorf("ListRoot(nil) = %x, want %x", got, want)
	}
}

func TestContainerRootMatchesFastssz(t *testing.T) {
	root := [32]byte{0xff, 0xfe, 0xfd}
	slot := uint64(5)

	hh := fastssz.NewHasher()
	indx := hh.Index()
	hh.PutBytes(root[:])
	hh.PutUint64(slot)
	hh.Merkleize(indx)
	want, err := hh.HashRoot()
	if err != nil {
		t.Fatalf("fastssz HashRoot: %v", err)
	}

	if got := ContainerRoot(root, Uint64Root(slot)); got != want {
		t.Errorf("ContainerRoot = %x, want %x", got, want)
	}
}

func TestBitlistEncodingBoundary(t *testing.T) {
	tests := []struct {
		name   string
		packed []byte
		n      uint64
		want   []byte
	}{
		{"empty", nil, 0, []byte{0x01}},
		{"three bits", []byte{0x05}, 3, []byte{0x0d}},
		{"seven bits", []byte{0x7f}, 7, []byte{0xff}},
		{"eight bits gets own delimiter byte", []byte{0x2b}, 8, []byte{0x2b, 0x01}},
		{"nine bits", []byte{0xff, 0x01}, 9, []byte{0xff, 0x03}},
		{"sixteen bits", []byte{0x00, 0x80}, 16, []byte{0x00, 0x80, 0x01}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MarshalBitlist(nil, tt.packed, tt.n)
			if !bytes.Equal(got, tt.want) {
				t.Fatalf("MarshalBitlist = %x, want %x", got, tt.want)
			}
			if len(got) != BitlistSize(tt.n) {
				t.Errorf("BitlistSize(%d) = %d, encoded %d bytes", tt.n, BitlistSize(tt.n), len(got))
			}

			packed, n, err := UnmarshalBitlist(got)
			if err != nil {
				t.Fatalf("UnmarshalBitlist: %v", err)
			}
			if n != tt.n {
				t.Errorf("bit length = %d, want %d", n, tt.n)
			}
			if !bytes.Equal(packed, tt.packed) {
				t.Errorf("packed = %x, want %x", packed, tt.packed)
			}

			bl := bitfield.Bitlist(got)
			if bl.Len() != tt.n {
				t.Errorf("go-bitfield Len = %d, want %d", bl.Len(), tt.n)
			}
			for i := uint64(0); i < tt.n; i++ {
				want := tt.packed[i/8]&(1<<(i%8)) != 0
				if bl.BitAt(i) != want {
					t.Errorf("bit %d = %v, want %v", i, bl.BitAt(i), want)
				}
			}
		})
	}
}

func TestUnmarshalBitlistRejectsMissingDelimiter(t *testing.T) {
	for _, in := range [][]byte{nil, {0x00}, {0x01, 0x00}} {
		if _, _, err := UnmarshalBitlist(in); !errors.Is(err, ErrBitlistDelimiter) {
			t.Errorf("UnmarshalBitlist(%x) error = %v, want ErrBitlistDelimiter", in, err)
		}
	}
}

func TestBitlistRootVectors(t *testing.T) {
	// 8 bits: 1,1,0,1,0,1,0,0 packs to 0x2b.
	got := BitlistRoot([]byte{0x2b}, 8)
	want := MixInLength([32]byte{0x2b}, 8)
	if got != want {
		t.Errorf("BitlistRoot = %x, want %x", got, want)
	}
}

func TestReadOffsets(t *testing.T) {
	buf := WriteOffset(nil, 8)
	buf = WriteOffset(buf, 10)
	buf = append(buf, 0xaa, 0xbb, 0xcc)

	bounds, err := ReadOffsets(buf, 0, 2, 8)
	if err != nil {
		t.Fatalf("ReadOffsets: %v", err)
	}
	if want := []int{8, 10, 11}; len(bounds) != 3 || bounds[0] != want[0] || bounds[1] != want[1] || bounds[2] != want[2] {
		t.Errorf("bounds = %v, want %v", bounds, want)
	}

	tests := []struct {
		name string
		buf  []byte
	}{
		{"first offset wrong", append(WriteOffset(WriteOffset(nil, 9), 10), 0, 0, 0)},
		{"decreasing", append(WriteOffset(WriteOffset(nil, 8), 7), 0, 0, 0)},
		{"past end", append(WriteOffset(WriteOffset(nil, 8), 99), 0, 0, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadOffsets(tt.buf, 0, 2, 8); !errors.Is(err, ErrOffset) {
				t.Errorf("error = %v, want ErrOffset", err)
			}
		})
	}

	if _, err := ReadOffsets([]byte{1, 2}, 0, 1, 4); !errors.Is(err, ErrSize) {
		t.Errorf("short buffer error = %v, want ErrSize", err)
	}
}

// firstByteLength treats the first byte of each element as its length.
func firstByteLength(rest []byte, after int) int {
	if n := int(rest[0]); n > after {
		return n
	}
	return -1
}

// endsAtNonZero lets an element end after any non-zero byte.
func endsAtNonZero(rest []byte, after int) int {
	for i := after; i < len(rest); i++ {
		if rest[i] != 0 {
			return i + 1
		}
	}
	return -1
}

func TestSplitElements(t *testing.T) {
	buf := []byte{2, 0xaa, 3, 0xbb, 0xcc, 1}
	parts, err := SplitElements(buf, firstByteLength)
	if err != nil {
		t.Fatalf("SplitElements: %v", err)
	}
	if len(parts) != 3 {
		t.Fatalf("got %d parts, want 3", len(parts))
	}
	if !bytes.Equal(parts[1], []byte{3, 0xbb, 0xcc}) {
		t.Errorf("parts[1] = %x", parts[1])
	}

	if _, err := SplitElements([]byte{5, 1}, firstByteLength); !errors.Is(err, ErrAmbiguousList) {
		t.Errorf("error = %v, want ErrAmbiguousList", err)
	}

	if parts, err := SplitElements(nil, firstByteLength); err != nil || parts != nil {
		t.Errorf("SplitElements(nil) = %v, %v", parts, err)
	}
}

func TestSplitElementsRejectsSecondSplit(t *testing.T) {
	// Both {0 1}{0 0 2} and {0 1 0 0 2} cover the buffer.
	if parts, err := SplitElements([]byte{0, 1, 0, 0, 2}, endsAtNonZero); !errors.Is(err, ErrAmbiguousList) {
		t.Errorf("SplitElements = %x, %v, want ErrAmbiguousList", parts, err)
	}

	// A dead branch does not count as a second split.
	parts, err := SplitElements([]byte{0, 1, 0, 0}, endsAtNonZero)
	if !errors.Is(err, ErrAmbiguousList) {
		t.Errorf("trailing zeros: SplitElements = %x, %v, want ErrAmbiguousList", parts, err)
	}
	parts, err = SplitElements([]byte{0, 1}, endsAtNonZero)
	if err != nil || len(parts) != 1 {
		t.Errorf("SplitElements = %x, %v, want one part", parts, err)
	}
}

func TestSplitElementsBacktracks(t *testing.T) {
	// The shortest first element (1 byte) leaves a suffix starting with a zero
	// length, so the scan must fall back to the 3-byte leading element.
	next := func(rest []byte, after int) int {
		if rest[0] == 0 {
			return -1
		}
		for _, n := range []int{1, 3} {
			if n > after {
				return n
			}
		}
		return -1
	}
	parts, err := SplitElements([]byte{1, 0, 1, 1}, next)
	if err != nil {
		t.Fatalf("SplitElements: %v", err)
	}
	if len(parts) != 2 || len(parts[0]) != 3 || len(parts[1]) != 1 {
		t.Errorf("parts = %x", parts)
	}
}
