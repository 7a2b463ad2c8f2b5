package types

import (
	"github.com/geanlabs/pqlean/common/ssz"
)

// Encoded sizes of fixed-size records and of the fixed parts of variable ones.
const (
	CheckpointSize        = RootSize + ssz.Uint64Size
	AttestationDataSize   = ssz.Uint64Size + 3*CheckpointSize
	AttestationSize       = ssz.Uint64Size + AttestationDataSize
	SignedAttestationSize = ssz.Uint64Size + AttestationDataSize + SignatureSize
	BlockHeaderSize       = 2*ssz.Uint64Size + 3*RootSize
	ValidatorSize         = PubkeySize + ssz.Uint64Size
	ConfigSize            = ssz.Uint64Size

	aggregatedAttestationFixedSize      = ssz.OffsetSize + AttestationDataSize
	blockBodyFixedSize                  = ssz.OffsetSize
	blockFixedSize                      = 2*ssz.Uint64Size + 2*RootSize + ssz.OffsetSize
	blockWithAttestationFixedSize       = ssz.OffsetSize + AttestationSize
	aggregatedSignatureProofFixedSize   = 2 * ssz.OffsetSize
	blockSignaturesFixedSize            = ssz.OffsetSize + SignatureSize
	signedBlockWithAttestationFixedSize = 2 * ssz.OffsetSize
	stateFixedSize                      = ConfigSize + ssz.Uint64Size + BlockHeaderSize + 2*CheckpointSize + 5*ssz.OffsetSize
)

var (
	_ ssz.Object = (*Checkpoint)(nil)
	_ ssz.Object = (*AttestationData)(nil)
	_ ssz.Object = (*Attestation)(nil)
	_ ssz.Object = (*SignedAttestation)(nil)
	_ ssz.Object = (*AggregationBits)(nil)
	_ ssz.Object = (*AggregatedAttestation)(nil)
	_ ssz.Object = (*BlockHeader)(nil)
	_ ssz.Object = (*BlockBody)(nil)
	_ ssz.Object = (*Block)(nil)
	_ ssz.Object = (*BlockWithAttestation)(nil)
	_ ssz.Object = (*AggregatedSignatureProof)(nil)
	_ ssz.Object = (*BlockSignatures)(nil)
	_ ssz.Object = (*SignedBlockWithAttestation)(nil)
	_ ssz.Object = (*Validator)(nil)
	_ ssz.Object = (*Config)(nil)
	_ ssz.Object = (*State)(nil)
	_ ssz.Object = (*HashDigestVector)(nil)
	_ ssz.Object = (*Randomness)(nil)
	_ ssz.Object = (*HashDigestList)(nil)
	_ ssz.Object = (*HashTreeOpening)(nil)
)

// Checkpoint

func (c Checkpoint) SizeSSZ() int { return CheckpointSize }

func (c Checkpoint) MarshalSSZ() ([]byte, error) { return ssz.Marshal(c) }

func (c Checkpoint) MarshalSSZTo(dst []byte) ([]byte, error) {
	dst = append(dst, c.Root[:]...)
	dst = ssz.MarshalUint64(dst, uint64(c.Slot))
	return dst, nil
}

// AttestationData

func (d AttestationData) SizeSSZ() int { return AttestationDataSize }

func (d AttestationData) MarshalSSZ() ([]byte, error) { return ssz.Marshal(d) }

func (d AttestationData) MarshalSSZTo(dst []byte) ([]byte, error) {
	dst = ssz.MarshalUint64(dst, uint64(d.Slot))
	dst, _ = d.Head.MarshalSSZTo(dst)
	dst, _ = d.Target.MarshalSSZTo(dst)
	dst, _ = d.Source.MarshalSSZTo(dst)
	return dst, nil
}

// Attestation

func (a Attestation) SizeSSZ() int { return AttestationSize }

func (a Attestation) MarshalSSZ() ([]byte, error) { return ssz.Marshal(a) }

func (a Attestation) MarshalSSZTo(dst []byte) ([]byte, error) {
	dst = ssz.MarshalUint64(dst, a.ValidatorID)
	return a.Data.MarshalSSZTo(dst)
}

// SignedAttestation

func (a SignedAttestation) SizeSSZ() int { return SignedAttestationSize }

func (a SignedAttestation) MarshalSSZ() ([]byte, error) { return ssz.Marshal(a) }

func (a SignedAttestation) MarshalSSZTo(dst []byte) ([]byte, error) {
	dst = ssz.MarshalUint64(dst, a.ValidatorID)
	dst, _ = a.Message.MarshalSSZTo(dst)
	dst = append(dst, a.Signature[:]...)
	return dst, nil
}

// AggregatedAttestation

func (a AggregatedAttestation) SizeSSZ() int {
	return aggregatedAttestationFixedSize + a.AggregationBits.SizeSSZ()
}

func (a AggregatedAttestation) MarshalSSZ() ([]byte, error) { return ssz.Marshal(a) }

func (a AggregatedAttestation) MarshalSSZTo(dst []byte) ([]byte, error) {
	dst = ssz.WriteOffset(dst, aggregatedAttestationFixedSize)
	dst, _ = a.Data.MarshalSSZTo(dst)
	return a.AggregationBits.MarshalSSZTo(dst)
}

// BlockHeader

func (h BlockHeader) SizeSSZ() int { return BlockHeaderSize }

func (h BlockHeader) MarshalSSZ() ([]byte, error) { return ssz.Marshal(h) }

func (h BlockHeader) MarshalSSZTo(dst []byte) ([]byte, error) {
	dst = ssz.MarshalUint64(dst, uint64(h.Slot))
	dst = ssz.MarshalUint64(dst, h.ProposerIndex)
	dst = append(dst, h.ParentRoot[:]...)
	dst = append(dst, h.StateRoot[:]...)
	dst = append(dst, h.BodyRoot[:]...)
	return dst, nil
}

// BlockBody

func (b BlockBody) SizeSSZ() int {
	size := blockBodyFixedSize
	for _, a := range b.Attestations {
		size += a.SizeSSZ()
	}
	return size
}

func (b BlockBody) MarshalSSZ() ([]byte, error) { return ssz.Marshal(b) }

func (b BlockBody) MarshalSSZTo(dst []byte) ([]byte, error) {
	dst = ssz.WriteOffset(dst, blockBodyFixedSize)
	for _, a := range b.Attestations {
		dst, _ = a.MarshalSSZTo(dst)
	}
	return dst, nil
}

// Block

func (b Block) SizeSSZ() int { return blockFixedSize + b.Body.SizeSSZ() }

func (b Block) MarshalSSZ() ([]byte, error) { return ssz.Marshal(b) }

func (b Block) MarshalSSZTo(dst []byte) ([]byte, error) {
	dst = ssz.MarshalUint64(dst, uint64(b.Slot))
	dst = ssz.MarshalUint64(dst, b.ProposerIndex)
	dst = append(dst, b.ParentRoot[:]...)
	dst = append(dst, b.StateRoot[:]...)
	dst = ssz.WriteOffset(dst, blockFixedSize)
	return b.Body.MarshalSSZTo(dst)
}

// BlockWithAttestation

func (b BlockWithAttestation) SizeSSZ() int {
	return blockWithAttestationFixedSize + b.Block.SizeSSZ()
}

func (b BlockWithAttestation) MarshalSSZ() ([]byte, error) { return ssz.Marshal(b) }

func (b BlockWithAttestation) MarshalSSZTo(dst []byte) ([]byte, error) {
	dst = ssz.WriteOffset(dst, blockWithAttestationFixedSize)
	dst, _ = b.ProposerAttestation.MarshalSSZTo(dst)
	return b.Block.MarshalSSZTo(dst)
}

// AggregatedSignatureProof

func (p AggregatedSignatureProof) SizeSSZ() int {
	return aggregatedSignatureProofFixedSize + p.Participants.SizeSSZ() + len(p.ProofData)
}

func (p AggregatedSignatureProof) MarshalSSZ() ([]byte, error) { return ssz.Marshal(p) }

func (p AggregatedSignatureProof) MarshalSSZTo(dst []byte) ([]byte, error) {
	dst = ssz.WriteOffset(dst, aggregatedSignatureProofFixedSize)
	dst = ssz.WriteOffset(dst, aggregatedSignatureProofFixedSize+p.Participants.SizeSSZ())
	dst, _ = p.Participants.MarshalSSZTo(dst)
	return append(dst, p.ProofData...), nil
}

// BlockSignatures

func (s BlockSignatures) SizeSSZ() int {
	size := blockSignaturesFixedSize
	for _, p := range s.AttestationSignatures {
		size += p.SizeSSZ()
	}
	return size
}

func (s BlockSignatures) MarshalSSZ() ([]byte, error) { return ssz.Marshal(s) }

func (s BlockSignatures) MarshalSSZTo(dst []byte) ([]byte, error) {
	dst = ssz.WriteOffset(dst, blockSignaturesFixedSize)
	dst = append(dst, s.ProposerSignature[:]...)
	for _, p := range s.AttestationSignatures {
		dst, _ = p.MarshalSSZTo(dst)
	}
	return dst, nil
}

// SignedBlockWithAttestation

func (s SignedBlockWithAttestation) SizeSSZ() int {
	return signedBlockWithAttestationFixedSize + s.Message.SizeSSZ() + s.Signature.SizeSSZ()
}

func (s SignedBlockWithAttestation) MarshalSSZ() ([]byte, error) { return ssz.Marshal(s) }

func (s SignedBlockWithAttestation) MarshalSSZTo(dst []byte) ([]byte, error) {
	dst = ssz.WriteOffset(dst, signedBlockWithAttestationFixedSize)
	dst = ssz.WriteOffset(dst, signedBlockWithAttestationFixedSize+s.Message.SizeSSZ())
	dst, _ = s.Message.MarshalSSZTo(dst)
	return s.Signature.MarshalSSZTo(dst)
}

// Validator

func (v Validator) SizeSSZ() int { return ValidatorSize }

func (v Validator) MarshalSSZ() ([]byte, error) { return ssz.Marshal(v) }

func (v Validator) MarshalSSZTo(dst []byte) ([]byte, error) {
	dst = append(dst, v.Pubkey[:]...)
	return ssz.MarshalUint64(dst, v.Index), nil
}

// Config

func (c Config) SizeSSZ() int { return ConfigSize }

func (c Config) MarshalSSZ() ([]byte, error) { return ssz.Marshal(c) }

func (c Config) MarshalSSZTo(dst []byte) ([]byte, error) {
	return ssz.MarshalUint64(dst, c.GenesisTime), nil
}

// State

func (s State) SizeSSZ() int {
	return stateFixedSize +
		len(s.HistoricalBlockHashes)*RootSize +
		s.JustifiedSlots.sizeSSZ() +
		len(s.Validators)*ValidatorSize +
		len(s.JustificationsRoots)*RootSize +
		s.JustificationsValidators.sizeSSZ()
}

func (s State) MarshalSSZ() ([]byte, error) { return ssz.Marshal(s) }

func (s State) MarshalSSZTo(dst []byte) ([]byte, error) {
	dst, _ = s.Config.MarshalSSZTo(dst)
	dst = ssz.MarshalUint64(dst, uint64(s.Slot))
	dst, _ = s.LatestBlockHeader.MarshalSSZTo(dst)
	dst, _ = s.LatestJustified.MarshalSSZTo(dst)
	dst, _ = s.LatestFinalized.MarshalSSZTo(dst)

	offset := stateFixedSize
	dst = ssz.WriteOffset(dst, offset)
	offset += len(s.HistoricalBlockHashes) * RootSize
	dst = ssz.WriteOffset(dst, offset)
	offset += s.JustifiedSlots.sizeSSZ()
	dst = ssz.WriteOffset(dst, offset)
	offset += len(s.Validators) * ValidatorSize
	dst = ssz.WriteOffset(dst, offset)
	offset += len(s.JustificationsRoots) * RootSize
	dst = ssz.WriteOffset(dst, offset)

	dst = marshalRoots(dst, s.HistoricalBlockHashes)
	dst = s.JustifiedSlots.marshal(dst)
	for _, v := range s.Validators {
		dst, _ = v.MarshalSSZTo(dst)
	}
	dst = marshalRoots(dst, s.JustificationsRoots)
	dst = s.JustificationsValidators.marshal(dst)
	return dst, nil
}

func marshalRoots(dst []byte, roots []Root) []byte {
	for _, r := range roots {
		dst = append(dst, r[:]...)
	}
	return dst
}
