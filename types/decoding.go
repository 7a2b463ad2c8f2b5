package types

import (
	"bytes"
	"fmt"

	"github.com/geanlabs/pqlean/common/ssz"
)

func (c *Checkpoint) UnmarshalSSZ(buf []byte) error {
	if err := ssz.CheckSize(buf, CheckpointSize); err != nil {
		return err
	}
	copy(c.Root[:], buf[:RootSize])
	c.Slot = Slot(ssz.UnmarshalUint64(buf[RootSize:]))
	return nil
}

func (d *AttestationData) UnmarshalSSZ(buf []byte) error {
	if err := ssz.CheckSize(buf, AttestationDataSize); err != nil {
		return err
	}
	d.Slot = Slot(ssz.UnmarshalUint64(buf))
	at := ssz.Uint64Size
	for _, cp := range []*Checkpoint{&d.Head, &d.Target, &d.Source} {
		if err := cp.UnmarshalSSZ(buf[at : at+CheckpointSize]); err != nil {
			return err
		}
		at += CheckpointSize
	}
	return nil
}

func (a *Attestation) UnmarshalSSZ(buf []byte) error {
	if err := ssz.CheckSize(buf, AttestationSize); err != nil {
		return err
	}
	a.ValidatorID = ssz.UnmarshalUint64(buf)
	return a.Data.UnmarshalSSZ(buf[ssz.Uint64Size:])
}

func (a *SignedAttestation) UnmarshalSSZ(buf []byte) error {
	if err := ssz.CheckSize(buf, SignedAttestationSize); err != nil {
		return err
	}
	a.ValidatorID = ssz.UnmarshalUint64(buf)
	at := ssz.Uint64Size
	if err := a.Message.UnmarshalSSZ(buf[at : at+AttestationDataSize]); err != nil {
		return err
	}
	at += AttestationDataSize
	copy(a.Signature[:], buf[at:])
	return nil
}

func (a *AggregatedAttestation) UnmarshalSSZ(buf []byte) error {
	bounds, err := ssz.ReadOffsets(buf, 0, 1, aggregatedAttestationFixedSize)
	if err != nil {
		return err
	}
	if err := a.Data.UnmarshalSSZ(buf[ssz.OffsetSize:aggregatedAttestationFixedSize]); err != nil {
		return err
	}
	if err := a.AggregationBits.UnmarshalSSZ(buf[bounds[0]:bounds[1]]); err != nil {
		return fmt.Errorf("aggregation bits: %w", err)
	}
	return nil
}

func (h *BlockHeader) UnmarshalSSZ(buf []byte) error {
	if err := ssz.CheckSize(buf, BlockHeaderSize); err != nil {
		return err
	}
	h.Slot = Slot(ssz.UnmarshalUint64(buf))
	h.ProposerIndex = ssz.UnmarshalUint64(buf[8:])
	copy(h.ParentRoot[:], buf[16:48])
	copy(h.StateRoot[:], buf[48:80])
	copy(h.BodyRoot[:], buf[80:112])
	return nil
}

func (b *BlockBody) UnmarshalSSZ(buf []byte) error {
	bounds, err := ssz.ReadOffsets(buf, 0, 1, blockBodyFixedSize)
	if err != nil {
		return err
	}
	atts, err := unmarshalAggregatedAttestations(buf[bounds[0]:bounds[1]])
	if err != nil {
		return fmt.Errorf("attestations: %w", err)
	}
	b.Attestations = atts
	return nil
}

func (b *Block) UnmarshalSSZ(buf []byte) error {
	bounds, err := ssz.ReadOffsets(buf, blockFixedSize-ssz.OffsetSize, 1, blockFixedSize)
	if err != nil {
		return err
	}
	b.Slot = Slot(ssz.UnmarshalUint64(buf))
	b.ProposerIndex = ssz.UnmarshalUint64(buf[8:])
	copy(b.ParentRoot[:], buf[16:48])
	copy(b.StateRoot[:], buf[48:80])
	if err := b.Body.UnmarshalSSZ(buf[bounds[0]:bounds[1]]); err != nil {
		return fmt.Errorf("body: %w", err)
	}
	return nil
}

func (b *BlockWithAttestation) UnmarshalSSZ(buf []byte) error {
	bounds, err := ssz.ReadOffsets(buf, 0, 1, blockWithAttestationFixedSize)
	if err != nil {
		return err
	}
	if err := b.ProposerAttestation.UnmarshalSSZ(buf[ssz.OffsetSize:blockWithAttestationFixedSize]); err != nil {
		return fmt.Errorf("proposer attestation: %w", err)
	}
	if err := b.Block.UnmarshalSSZ(buf[bounds[0]:bounds[1]]); err != nil {
		return fmt.Errorf("block: %w", err)
	}
	return nil
}

func (p *AggregatedSignatureProof) UnmarshalSSZ(buf []byte) error {
	bounds, err := ssz.ReadOffsets(buf, 0, 2, aggregatedSignatureProofFixedSize)
	if err != nil {
		return err
	}
	if err := p.Participants.UnmarshalSSZ(buf[bounds[0]:bounds[1]]); err != nil {
		return fmt.Errorf("participants: %w", err)
	}
	p.ProofData = nil
	if proof := buf[bounds[1]:bounds[2]]; len(proof) > 0 {
		p.ProofData = bytes.Clone(proof)
	}
	return nil
}

func (s *BlockSignatures) UnmarshalSSZ(buf []byte) error {
	bounds, err := ssz.ReadOffsets(buf, 0, 1, blockSignaturesFixedSize)
	if err != nil {
		return err
	}
	copy(s.ProposerSignature[:], buf[ssz.OffsetSize:blockSignaturesFixedSize])
	proofs, err := unmarshalSignatureProofs(buf[bounds[0]:bounds[1]])
	if err != nil {
		return fmt.Errorf("attestation signatures: %w", err)
	}
	s.AttestationSignatures = proofs
	return nil
}

func (s *SignedBlockWithAttestation) UnmarshalSSZ(buf []byte) error {
	bounds, err := ssz.ReadOffsets(buf, 0, 2, signedBlockWithAttestationFixedSize)
	if err != nil {
		return err
	}
	if err := s.Message.UnmarshalSSZ(buf[bounds[0]:bounds[1]]); err != nil {
		return fmt.Errorf("message: %w", err)
	}
	if err := s.Signature.UnmarshalSSZ(buf[bounds[1]:bounds[2]]); err != nil {
		return fmt.Errorf("signature: %w", err)
	}
	return nil
}

func (v *Validator) UnmarshalSSZ(buf []byte) error {
	if err := ssz.CheckSize(buf, ValidatorSize); err != nil {
		return err
	}
	copy(v.Pubkey[:], buf[:PubkeySize])
	v.Index = ssz.UnmarshalUint64(buf[PubkeySize:])
	return nil
}

func (c *Config) UnmarshalSSZ(buf []byte) error {
	if err := ssz.CheckSize(buf, ConfigSize); err != nil {
		return err
	}
	c.GenesisTime = ssz.UnmarshalUint64(buf)
	return nil
}

func (s *State) UnmarshalSSZ(buf []byte) error {
	bounds, err := ssz.ReadOffsets(buf, stateFixedSize-5*ssz.OffsetSize, 5, stateFixedSize)
	if err != nil {
		return err
	}
	at := 0
	if err := s.Config.UnmarshalSSZ(buf[at : at+ConfigSize]); err != nil {
		return err
	}
	at += ConfigSize
	s.Slot = Slot(ssz.UnmarshalUint64(buf[at:]))
	at += ssz.Uint64Size
	if err := s.LatestBlockHeader.UnmarshalSSZ(buf[at : at+BlockHeaderSize]); err != nil {
		return err
	}
	at += BlockHeaderSize
	if err := s.LatestJustified.UnmarshalSSZ(buf[at : at+CheckpointSize]); err != nil {
		return err
	}
	at += CheckpointSize
	if err := s.LatestFinalized.UnmarshalSSZ(buf[at : at+CheckpointSize]); err != nil {
		return err
	}

	if s.HistoricalBlockHashes, err = unmarshalRoots(buf[bounds[0]:bounds[1]]); err != nil {
		return fmt.Errorf("historical block hashes: %w", err)
	}
	if err := s.JustifiedSlots.unmarshal(buf[bounds[1]:bounds[2]]); err != nil {
		return fmt.Errorf("justified slots: %w", err)
	}
	if s.Validators, err = unmarshalValidators(buf[bounds[2]:bounds[3]]); err != nil {
		return fmt.Errorf("validators: %w", err)
	}
	if s.JustificationsRoots, err = unmarshalRoots(buf[bounds[3]:bounds[4]]); err != nil {
		return fmt.Errorf("justifications roots: %w", err)
	}
	if err := s.JustificationsValidators.unmarshal(buf[bounds[4]:bounds[5]]); err != nil {
		return fmt.Errorf("justifications validators: %w", err)
	}
	return nil
}

func unmarshalRoots(buf []byte) ([]Root, error) {
	if len(buf)%RootSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a multiple of %d", ssz.ErrSize, len(buf), RootSize)
	}
	if len(buf) == 0 {
		return nil, nil
	}
	out := make([]Root, len(buf)/RootSize)
	for i := range out {
		copy(out[i][:], buf[i*RootSize:])
	}
	return out, nil
}

func unmarshalValidators(buf []byte) ([]Validator, error) {
	if len(buf)%ValidatorSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a multiple of %d", ssz.ErrSize, len(buf), ValidatorSize)
	}
	if len(buf) == 0 {
		return nil, nil
	}
	out := make([]Validator, len(buf)/ValidatorSize)
	for i := range out {
		if err := out[i].UnmarshalSSZ(buf[i*ValidatorSize : (i+1)*ValidatorSize]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// hasOffset reports whether b starts with the 4-byte offset o.
func hasOffset(b []byte, o int) bool {
	return len(b) >= ssz.OffsetSize && ssz.UnmarshalUint32(b) == uint32(o)
}

// nextAggregatedAttestationEnd finds where an aggregated attestation starting at
// rest[0] may end: after a non-zero bitlist byte, at the end of the buffer or
// right before the next element's leading offset.
func nextAggregatedAttestationEnd(rest []byte, after int) int {
	if !hasOffset(rest, aggregatedAttestationFixedSize) {
		return -1
	}
	for e := max(after+1, aggregatedAttestationFixedSize+1); e <= len(rest); e++ {
		if rest[e-1] == 0 {
			continue
		}
		if e == len(rest) || hasOffset(rest[e:], aggregatedAttestationFixedSize) {
			return e
		}
	}
	return -1
}

// nextSignatureProofEnd finds where an aggregated signature proof starting at
// rest[0] may end. Its own second offset bounds the participants bitlist; the
// proof blob runs to the end of the buffer or to the next element's leading offset.
func nextSignatureProofEnd(rest []byte, after int) int {
	if len(rest) < aggregatedSignatureProofFixedSize || !hasOffset(rest, aggregatedSignatureProofFixedSize) {
		return -1
	}
	bitsEnd := int(ssz.UnmarshalUint32(rest[ssz.OffsetSize:]))
	if bitsEnd <= aggregatedSignatureProofFixedSize || bitsEnd > len(rest) || rest[bitsEnd-1] == 0 {
		return -1
	}
	for e := max(after+1, bitsEnd); e <= len(rest); e++ {
		if e == len(rest) || hasOffset(rest[e:], aggregatedSignatureProofFixedSize) {
			return e
		}
	}
	return -1
}

func unmarshalAggregatedAttestations(buf []byte) ([]AggregatedAttestation, error) {
	parts, err := ssz.SplitElements(buf, nextAggregatedAttestationEnd)
	if err != nil {
		return nil, err
	}
	if len(parts) == 0 {
		return nil, nil
	}
	out := make([]AggregatedAttestation, len(parts))
	for i, part := range parts {
		if err := out[i].UnmarshalSSZ(part); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
	}
	return out, nil
}

func unmarshalSignatureProofs(buf []byte) ([]AggregatedSignatureProof, error) {
	parts, err := ssz.SplitElements(buf, nextSignatureProofEnd)
	if err != nil {
		return nil, err
	}
	if len(parts) == 0 {
		return nil, nil
	}
	out := make([]AggregatedSignatureProof, len(parts))
	for i, part := range parts {
		if err := out[i].UnmarshalSSZ(part); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
	}
	return out, nil
}
