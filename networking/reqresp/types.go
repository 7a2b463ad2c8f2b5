package reqresp

import (
	"fmt"

	"github.com/geanlabs/pqlean/common/ssz"
	"github.com/geanlabs/pqlean/types"
)

const (
	StatusSize                   = 2 * types.CheckpointSize
	blocksByRootRequestFixedSize = ssz.OffsetSize
)

var (
	_ ssz.Object = (*Status)(nil)
	_ ssz.Object = (*BlocksByRootRequest)(nil)
)

// Status is the handshake message exchanged upon connection.
// It allows nodes to verify compatibility and determine sync status.
type Status struct {
	Finalized types.Checkpoint
	Head      types.Checkpoint
}

func (s Status) SizeSSZ() int { return StatusSize }

func (s Status) MarshalSSZ() ([]byte, error) { return ssz.Marshal(s) }

func (s Status) MarshalSSZTo(dst []byte) ([]byte, error) {
	dst, err := s.Finalized.MarshalSSZTo(dst)
	if err != nil {
		return nil, err
	}
	return s.Head.MarshalSSZTo(dst)
}

func (s *Status) UnmarshalSSZ(buf []byte) error {
	if err := ssz.CheckSize(buf, StatusSize); err != nil {
		return err
	}
	if err := s.Finalized.UnmarshalSSZ(buf[:types.CheckpointSize]); err != nil {
		return err
	}
	return s.Head.UnmarshalSSZ(buf[types.CheckpointSize:])
}

func (s Status) HashTreeRoot() ([32]byte, error) {
	finalized, err := s.Finalized.HashTreeRoot()
	if err != nil {
		return [32]byte{}, err
	}
	head, err := s.Head.HashTreeRoot()
	if err != nil {
		return [32]byte{}, err
	}
	return ssz.ContainerRoot(finalized, head), nil
}

// BlocksByRootRequest is a request for blocks by their root hashes.
type BlocksByRootRequest struct {
	Roots []types.Root
}

func (r BlocksByRootRequest) SizeSSZ() int {
	return blocksByRootRequestFixedSize + len(r.Roots)*types.RootSize
}

func (r BlocksByRootRequest) MarshalSSZ() ([]byte, error) { return ssz.Marshal(r) }

func (r BlocksByRootRequest) MarshalSSZTo(dst []byte) ([]byte, error) {
	if len(r.Roots) > MaxRequestBlocks {
		return nil, fmt.Errorf("%w: %d roots, max %d", ssz.ErrSize, len(r.Roots), MaxRequestBlocks)
	}
	dst = ssz.WriteOffset(dst, blocksByRootRequestFixedSize)
	for _, root := range r.Roots {
		dst = append(dst, root[:]...)
	}
	return dst, nil
}

func (r *BlocksByRootRequest) UnmarshalSSZ(buf []byte) error {
	bounds, err := ssz.ReadOffsets(buf, 0, 1, blocksByRootRequestFixedSize)
	if err != nil {
		return err
	}
	payload := buf[bounds[0]:bounds[1]]
	if len(payload)%types.RootSize != 0 {
		return fmt.Errorf("%w: %d bytes is not a multiple of %d", ssz.ErrSize, len(payload), types.RootSize)
	}
	n := len(payload) / types.RootSize
	if n > MaxRequestBlocks {
		return fmt.Errorf("%w: %d roots, max %d", ssz.ErrSize, n, MaxRequestBlocks)
	}
	r.Roots = nil
	if n > 0 {
		r.Roots = make([]types.Root, n)
		for i := range r.Roots {
			copy(r.Roots[i][:], payload[i*types.RootSize:])
		}
	}
	return nil
}

func (r BlocksByRootRequest) HashTreeRoot() ([32]byte, error) {
	roots := make([][32]byte, len(r.Roots))
	for i, root := range r.Roots {
		roots[i] = root
	}
	return ssz.ContainerRoot(ssz.ListRoot(roots)), nil
}
