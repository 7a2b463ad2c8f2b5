package types

// Checkpoint is a (root, slot) pair identifying a block in the chain.
type Checkpoint struct {
	Root Root
	Slot Slot
}

// AttestationData is the vote that validators sign and that aggregates share.
type AttestationData struct {
	Slot   Slot
	Head   Checkpoint
	Target Checkpoint
	Source Checkpoint
}

// Attestation is a single validator's unsigned vote.
type Attestation struct {
	ValidatorID uint64
	Data        AttestationData
}

// SignedAttestation is the gossip envelope for a single validator's vote.
type SignedAttestation struct {
	ValidatorID uint64
	Message     AttestationData
	Signature   Signature
}

// AggregatedAttestation is one vote shared by every validator set in AggregationBits.
type AggregatedAttestation struct {
	AggregationBits AggregationBits
	Data            AttestationData
}

type BlockHeader struct {
	Slot          Slot
	ProposerIndex uint64
	ParentRoot    Root
	StateRoot     Root
	BodyRoot      Root
}

type BlockBody struct {
	Attestations []AggregatedAttestation
}

type Block struct {
	Slot          Slot
	ProposerIndex uint64
	ParentRoot    Root
	StateRoot     Root
	Body          BlockBody
}

// BlockWithAttestation bundles a block with its proposer's own attestation.
type BlockWithAttestation struct {
	Block               Block
	ProposerAttestation Attestation
}

// AggregatedSignatureProof is an aggregated XMSS proof over the participants' signatures.
type AggregatedSignatureProof struct {
	Participants AggregationBits
	ProofData    []byte
}

// BlockSignatures carries one proof per body attestation plus the proposer signature.
type BlockSignatures struct {
	AttestationSignatures []AggregatedSignatureProof
	ProposerSignature     Signature
}

type SignedBlockWithAttestation struct {
	Message   BlockWithAttestation
	Signature BlockSignatures
}

type Validator struct {
	Pubkey Pubkey
	Index  uint64
}

type Config struct {
	GenesisTime uint64
}

// State is the main consensus state object.
type State struct {
	Config            Config
	Slot              Slot
	LatestBlockHeader BlockHeader

	LatestJustified Checkpoint
	LatestFinalized Checkpoint

	HistoricalBlockHashes []Root
	JustifiedSlots        Bitlist
	Validators            []Validator

	JustificationsRoots      []Root
	JustificationsValidators Bitlist
}

// Header returns the header that commits to b, with the body replaced by its root.
func (b Block) Header() (BlockHeader, error) {
	bodyRoot, err := b.Body.HashTreeRoot()
	if err != nil {
		return BlockHeader{}, err
	}
	return BlockHeader{
		Slot:          b.Slot,
		ProposerIndex: b.ProposerIndex,
		ParentRoot:    b.ParentRoot,
		StateRoot:     b.StateRoot,
		BodyRoot:      bodyRoot,
	}, nil
}
