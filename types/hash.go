package types

import (
	"github.com/geanlabs/pqlean/common/ssz"
)

// HashTreeRoot of a root is the root itself.
func (r Root) HashTreeRoot() ([32]byte, error) { return r, nil }

func (pk Pubkey) HashTreeRoot() ([32]byte, error) { return ssz.VectorRoot(pk[:]), nil }

func (s Signature) HashTreeRoot() ([32]byte, error) { return ssz.VectorRoot(s[:]), nil }

func (s Slot) HashTreeRoot() ([32]byte, error) { return ssz.Uint64Root(uint64(s)), nil }

func (c Checkpoint) HashTreeRoot() ([32]byte, error) {
	return ssz.ContainerRoot(c.Root, ssz.Uint64Root(uint64(c.Slot))), nil
}

func (d AttestationData) HashTreeRoot() ([32]byte, error) {
	head, _ := d.Head.HashTreeRoot()
	target, _ := d.Target.HashTreeRoot()
	source, _ := d.Source.HashTreeRoot()
	return ssz.ContainerRoot(ssz.Uint64Root(uint64(d.Slot)), head, target, source), nil
}

func (a Attestation) HashTreeRoot() ([32]byte, error) {
	data, _ := a.Data.HashTreeRoot()
	return ssz.ContainerRoot(ssz.Uint64Root(a.ValidatorID), data), nil
}

func (a SignedAttestation) HashTreeRoot() ([32]byte, error) {
	msg, _ := a.Message.HashTreeRoot()
	sig, _ := a.Signature.HashTreeRoot()
	return ssz.ContainerRoot(ssz.Uint64Root(a.ValidatorID), msg, sig), nil
}

func (a AggregatedAttestation) HashTreeRoot() ([32]byte, error) {
	bits, _ := a.AggregationBits.HashTreeRoot()
	data, _ := a.Data.HashTreeRoot()
	return ssz.ContainerRoot(bits, data), nil
}

func (h BlockHeader) HashTreeRoot() ([32]byte, error) {
	return ssz.ContainerRoot(
		ssz.Uint64Root(uint64(h.Slot)),
		ssz.Uint64Root(h.ProposerIndex),
		h.ParentRoot,
		h.StateRoot,
		h.BodyRoot,
	), nil
}

func (b BlockBody) HashTreeRoot() ([32]byte, error) {
	roots := make([][32]byte, len(b.Attestations))
	for i, a := range b.Attestations {
		roots[i], _ = a.HashTreeRoot()
	}
	return ssz.ContainerRoot(ssz.ListRoot(roots)), nil
}

func (b Block) HashTreeRoot() ([32]byte, error) {
	body, err := b.Body.HashTreeRoot()
	if err != nil {
		return [32]byte{}, err
	}
	return ssz.ContainerRoot(
		ssz.Uint64Root(uint64(b.Slot)),
		ssz.Uint64Root(b.ProposerIndex),
		b.ParentRoot,
		b.StateRoot,
		body,
	), nil
}

func (b BlockWithAttestation) HashTreeRoot() ([32]byte, error) {
	block, err := b.Block.HashTreeRoot()
	if err != nil {
		return [32]byte{}, err
	}
	att, _ := b.ProposerAttestation.HashTreeRoot()
	return ssz.ContainerRoot(block, att), nil
}

func (p AggregatedSignatureProof) HashTreeRoot() ([32]byte, error) {
	participants, _ := p.Participants.HashTreeRoot()
	return ssz.ContainerRoot(participants, ssz.BytesRoot(p.ProofData)), nil
}

func (s BlockSignatures) HashTreeRoot() ([32]byte, error) {
	roots := make([][32]byte, len(s.AttestationSignatures))
	for i, p := range s.AttestationSignatures {
		roots[i], _ = p.HashTreeRoot()
	}
	sig, _ := s.ProposerSignature.HashTreeRoot()
	return ssz.ContainerRoot(ssz.ListRoot(roots), sig), nil
}

func (s SignedBlockWithAttestation) HashTreeRoot() ([32]byte, error) {
	msg, err := s.Message.HashTreeRoot()
	if err != nil {
		return [32]byte{}, err
	}
	sig, err := s.Signature.HashTreeRoot()
	if err != nil {
		return [32]byte{}, err
	}
	return ssz.ContainerRoot(msg, sig), nil
}

func (v Validator) HashTreeRoot() ([32]byte, error) {
	pk, _ := v.Pubkey.HashTreeRoot()
	return ssz.ContainerRoot(pk, ssz.Uint64Root(v.Index)), nil
}

func (c Config) HashTreeRoot() ([32]byte, error) {
	return ssz.ContainerRoot(ssz.Uint64Root(c.GenesisTime)), nil
}

func (s State) HashTreeRoot() ([32]byte, error) {
	config, _ := s.Config.HashTreeRoot()
	header, _ := s.LatestBlockHeader.HashTreeRoot()
	justified, _ := s.LatestJustified.HashTreeRoot()
	finalized, _ := s.LatestFinalized.HashTreeRoot()

	validators := make([][32]byte, len(s.Validators))
	for i, v := range s.Validators {
		validators[i], _ = v.HashTreeRoot()
	}

	return ssz.ContainerRoot(
		config,
		ssz.Uint64Root(uint64(s.Slot)),
		header,
		justified,
		finalized,
		rootsListRoot(s.HistoricalBlockHashes),
		s.JustifiedSlots.root(),
		ssz.ListRoot(validators),
		rootsListRoot(s.JustificationsRoots),
		s.JustificationsValidators.root(),
	), nil
}

func rootsListRoot(roots []Root) [32]byte {
	chunks := make([][32]byte, len(roots))
	for i, r := range roots {
		chunks[i] = r
	}
	return ssz.ListRoot(chunks)
}
