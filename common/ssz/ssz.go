// Package ssz implements the chunk-based Merkleization engine and the low-level
// encoding helpers shared by every consensus container.
package ssz

import (
	"encoding/binary"

	sha256 "github.com/minio/sha256-simd"
)

const BytesPerChunk = 32

// maxDepth bounds the zero-subtree ladder; a list can never exceed 2^64 chunks.
const maxDepth = 64

var ZeroHash [32]byte

// zeroHashes[d] is the root of a perfect subtree of depth d whose leaves are all zero chunks.
var zeroHashes [maxDepth + 1][32]byte

func init() {
	for d := 1; d <= maxDepth; d++ {
		zeroHashes[d] = HashNodes(zeroHashes[d-1], zeroHashes[d-1])
	}
}

func Hash(data []byte) [32]byte {
	return sha256.Sum256(data)
}

func HashNodes(a, b [32]byte) [32]byte {
	var buf [2 * BytesPerChunk]byte
	copy(buf[:BytesPerChunk], a[:])
	copy(buf[BytesPerChunk:], b[:])
	return sha256.Sum256(buf[:])
}

// Chunkify splits b into 32-byte chunks, zero-padding the last one.
// Empty input yields a single zero chunk.
func Chunkify(b []byte) [][32]byte {
	if len(b) == 0 {
		return [][32]byte{{}}
	}
	chunks := make([][32]byte, (len(b)+BytesPerChunk-1)/BytesPerChunk)
	for i := range chunks {
		copy(chunks[i][:], b[i*BytesPerChunk:])
	}
	return chunks
}

// Merkleize pads chunks with zero chunks up to the next power of two and hashes
// pairs until a single root remains. An empty input has the zero chunk as root.
//
// Odd layers are completed with the matching zero-subtree root instead of
// materialising the padding leaves; the result is identical.
func Merkleize(chunks [][32]byte) [32]byte {
	if len(chunks) == 0 {
		return ZeroHash
	}
	layer := make([][32]byte, len(chunks), len(chunks)+1)
	copy(layer, chunks)

	for depth := 0; len(layer) > 1; depth++ {
		if len(layer)%2 == 1 {
			layer = append(layer, zeroHashes[depth])
		}
		next := layer[:len(layer)/2]
		for i := range next {
			next[i] = HashNodes(layer[2*i], layer[2*i+1])
		}
		layer = next
	}
	return layer[0]
}

// MixInLength hashes root together with the little-endian length in its own chunk.
func MixInLength(root [32]byte, length uint64) [32]byte {
	var lenChunk [32]byte
	binary.LittleEndian.PutUint64(lenChunk[:8], length)
	return HashNodes(root, lenChunk)
}

func Uint64Root(v uint64) [32]byte {
	var buf [32]byte
	binary.LittleEndian.PutUint64(buf[:8], v)
	return buf
}

func Uint32Root(v uint32) [32]byte {
	var buf [32]byte
	binary.LittleEndian.PutUint32(buf[:4], v)
	return buf
}

// VectorRoot is the root of a fixed-length byte vector (public keys, signatures).
func VectorRoot(b []byte) [32]byte {
	return Merkleize(Chunkify(b))
}

// BytesRoot is the root of a variable-length byte list.
func BytesRoot(b []byte) [32]byte {
	return MixInLength(Merkleize(Chunkify(b)), uint64(len(b)))
}

// BitlistRoot is the root of a bitlist given its packed data bits (no delimiter)
// and its logical bit count.
func BitlistRoot(packed []byte, bitLen uint64) [32]byte {
	return MixInLength(Merkleize(Chunkify(packed)), bitLen)
}

// ListRoot is the root of a homogeneous list given each element's own root.
// The tree is padded to the next power of two of the element count.
func ListRoot(elementRoots [][32]byte) [32]byte {
	return MixInLength(Merkleize(elementRoots), uint64(len(elementRoots)))
}

// ContainerRoot merkleizes field roots in declaration order.
func ContainerRoot(fieldRoots ...[32]byte) [32]byte {
	return Merkleize(fieldRoots)
}
