package networking

import (
	"context"
	"fmt"

	"github.com/geanlabs/pqlean/common/ssz"
	"github.com/geanlabs/pqlean/observability/metrics"
	"github.com/geanlabs/pqlean/types"
	"github.com/libp2p/go-libp2p/core/peer"
)

// BlockHandler processes incoming blocks from gossipsub.
type BlockHandler func(ctx context.Context, block *types.SignedBlockWithAttestation, from peer.ID) error

// AttestationHandler processes incoming single-validator attestations.
type AttestationHandler func(ctx context.Context, att *types.SignedAttestation, from peer.ID) error

// AggregateHandler processes incoming aggregated attestations.
type AggregateHandler func(ctx context.Context, agg *types.AggregatedAttestation, from peer.ID) error

// MessageHandlers holds handlers for different message types.
// A nil handler drops the decoded message.
type MessageHandlers struct {
	OnBlock       BlockHandler
	OnAttestation AttestationHandler
	OnAggregate   AggregateHandler
}

// decodeMessage decompresses a gossip payload into obj.
func decodeMessage(kind string, data []byte, obj ssz.Object) error {
	metrics.GossipMessagesTotal.WithLabelValues(kind).Inc()
	decoded, err := DecompressMessage(data)
	if err != nil {
		return fmt.Errorf("decompress %s: %w", kind, err)
	}
	if err := obj.UnmarshalSSZ(decoded); err != nil {
		return fmt.Errorf("unmarshal %s: %w", kind, err)
	}
	return nil
}

// EncodeMessage returns the gossip payload for obj: snappy over its encoding.
func EncodeMessage(obj ssz.Object) ([]byte, error) {
	data, err := obj.MarshalSSZ()
	if err != nil {
		return nil, err
	}
	return CompressMessage(data), nil
}

// HandleBlockMessage decodes and processes an incoming block message.
func (h *MessageHandlers) HandleBlockMessage(ctx context.Context, data []byte, from peer.ID) error {
	var block types.SignedBlockWithAttestation
	if err := decodeMessage(KindBlock, data, &block); err != nil {
		return err
	}
	if h.OnBlock != nil {
		return h.OnBlock(ctx, &block, from)
	}
	return nil
}

// HandleAttestationMessage decodes and processes an incoming attestation.
func (h *MessageHandlers) HandleAttestationMessage(ctx context.Context, data []byte, from peer.ID) error {
	var att types.SignedAttestation
	if err := decodeMessage(KindAttestation, data, &att); err != nil {
		return err
	}
	if h.OnAttestation != nil {
		return h.OnAttestation(ctx, &att, from)
	}
	return nil
}

// HandleAggregateMessage decodes and processes an incoming aggregate.
func (h *MessageHandlers) HandleAggregateMessage(ctx context.Context, data []byte, from peer.ID) error {
	var agg types.AggregatedAttestation
	if err := decodeMessage(KindAggregate, data, &agg); err != nil {
		return err
	}
	if h.OnAggregate != nil {
		return h.OnAggregate(ctx, &agg, from)
	}
	return nil
}
