package node

import (
	"errors"
	"fmt"
	"math"

	"github.com/geanlabs/pqlean/crypto/xmss"
	"github.com/geanlabs/pqlean/types"
)

var (
	ErrUnknownValidator = errors.New("unknown validator")
	ErrBadSignature     = errors.New("signature does not verify")
)

// verifier checks gossip signatures against the genesis validator registry.
// With no signing service configured every message is accepted.
type verifier struct {
	svc   *xmss.Service
	chain *chain
}

func (v *verifier) enabled() bool { return v.svc != nil }

// signingEpoch maps a slot to the 32-bit XMSS epoch it was signed under.
func signingEpoch(slot types.Slot) (uint32, error) {
	if slot > math.MaxUint32 {
		return 0, fmt.Errorf("%w: slot %d has no signing epoch", types.ErrArithmeticOverflow, slot)
	}
	return uint32(slot), nil
}

func (v *verifier) pubkeys(bits types.AggregationBits) ([]types.Pubkey, error) {
	indices, err := bits.ToValidatorIndices()
	if err != nil {
		return nil, err
	}
	pks := make([]types.Pubkey, len(indices))
	for i, idx := range indices {
		val, ok := v.chain.validator(idx)
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrUnknownValidator, idx)
		}
		pks[i] = val.Pubkey
	}
	return pks, nil
}

// attestation verifies a single validator's vote.
func (v *verifier) attestation(att *types.SignedAttestation) error {
	if !v.enabled() {
		return nil
	}
	val, ok := v.chain.validator(att.ValidatorID)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownValidator, att.ValidatorID)
	}
	epoch, err := signingEpoch(att.Message.Slot)
	if err != nil {
		return err
	}
	msg, err := xmss.SigningRoot(&att.Message)
	if err != nil {
		return err
	}
	ok, err = v.svc.Verify(val.Pubkey, epoch, msg, att.Signature)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: validator %d slot %d", ErrBadSignature, att.ValidatorID, att.Message.Slot)
	}
	return nil
}

// block verifies the proposer signature over the proposer attestation and one
// aggregated proof per body attestation.
func (v *verifier) block(sb *types.SignedBlockWithAttestation) error {
	atts := sb.Message.Block.Body.Attestations
	proofs := sb.Signature.AttestationSignatures
	if len(atts) != len(proofs) {
		return fmt.Errorf("%w: %d attestations, %d proofs", types.ErrLengthMismatch, len(atts), len(proofs))
	}
	if !v.enabled() {
		return nil
	}

	proposer := sb.Message.ProposerAttestation
	if err := v.attestation(&types.SignedAttestation{
		ValidatorID: proposer.ValidatorID,
		Message:     proposer.Data,
		Signature:   sb.Signature.ProposerSignature,
	}); err != nil {
		return fmt.Errorf("proposer: %w", err)
	}

	for i := range atts {
		if !atts[i].AggregationBits.Equal(proofs[i].Participants) {
			return fmt.Errorf("attestation %d: participants differ from aggregation bits", i)
		}
		if err := v.aggregate(&atts[i], proofs[i].ProofData); err != nil {
			return fmt.Errorf("attestation %d: %w", i, err)
		}
	}
	return nil
}

func (v *verifier) aggregate(att *types.AggregatedAttestation, proof []byte) error {
	epoch, err := signingEpoch(att.Data.Slot)
	if err != nil {
		return err
	}
	pks, err := v.pubkeys(att.AggregationBits)
	if err != nil {
		return err
	}
	msg, err := xmss.SigningRoot(&att.Data)
	if err != nil {
		return err
	}
	ok, err := v.svc.VerifyAggregate(pks, msg, proof, epoch)
	if err != nil {
		return err
	}
	if !ok {
		return ErrBadSignature
	}
	return nil
}
