// Package reqresp implements request/response protocols (Status, BlocksByRoot).
package reqresp

import (
	"errors"

	"github.com/geanlabs/pqlean/storage"
	"github.com/geanlabs/pqlean/types"
)

const (
	StatusProtocolV1       = "/leanconsensus/req/status/1/ssz_snappy"
	BlocksByRootProtocolV1 = "/leanconsensus/req/blocks_by_root/1/ssz_snappy"
	MaxRequestBlocks       = 1024
)

var ErrInvalidStatus = errors.New("peer status conflicts with local chain")

// ChainReader provides read access to the chain store.
// Satisfied by *chaindb.DB.
type ChainReader interface {
	Head() (types.Checkpoint, error)
	Finalized() (types.Checkpoint, error)
	GetBlock(root types.Root) (*types.Block, error)
	GetSignedBlock(root types.Root) (*types.SignedBlockWithAttestation, error)
}

// Handler handles request/response protocol messages.
type Handler struct {
	chain ChainReader
}

// NewHandler creates a new request/response handler.
func NewHandler(chain ChainReader) *Handler {
	return &Handler{chain: chain}
}

// GetStatus returns the node's current status for the handshake protocol.
// Missing head or finalized records are reported as zero checkpoints.
func (h *Handler) GetStatus() (*Status, error) {
	head, err := h.chain.Head()
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	finalized, err := h.chain.Finalized()
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	return &Status{Finalized: finalized, Head: head}, nil
}

// HandleBlocksByRoot responds to a BlocksByRoot request with matching blocks,
// in request order, skipping unknown roots.
func (h *Handler) HandleBlocksByRoot(request *BlocksByRootRequest) ([]*types.SignedBlockWithAttestation, error) {
	var blocks []*types.SignedBlockWithAttestation

	for _, root := range request.Roots {
		if len(blocks) >= MaxRequestBlocks {
			break
		}

		signed, err := h.chain.GetSignedBlock(root)
		if err == nil {
			blocks = append(blocks, signed)
			continue
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return blocks, err
		}

		// Blocks stored without their envelope (genesis) are served with an
		// empty proposer attestation and signatures.
		block, err := h.chain.GetBlock(root)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return blocks, err
		}
		blocks = append(blocks, &types.SignedBlockWithAttestation{
			Message: types.BlockWithAttestation{Block: *block},
		})
	}

	return blocks, nil
}

// ValidatePeerStatus checks that a peer's status is consistent with our chain.
// If we have the peer's finalized block, its slot must match the claimed finalized slot.
func (h *Handler) ValidatePeerStatus(peerStatus *Status) error {
	if peerStatus.Finalized.Slot == 0 {
		return nil
	}
	block, err := h.chain.GetBlock(peerStatus.Finalized.Root)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if block.Slot != peerStatus.Finalized.Slot {
		return ErrInvalidStatus
	}
	return nil
}
