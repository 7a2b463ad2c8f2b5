package reqresp

import (
	"errors"
	"testing"

	"github.com/geanlabs/pqlean/storage/chaindb"
	"github.com/geanlabs/pqlean/storage/memory"
	"github.com/geanlabs/pqlean/types"
)

type testChain struct {
	db      *chaindb.DB
	genesis types.Root
	child   types.Root
}

// setupTestChain stores a bare genesis block and a signed child at slot 1.
func setupTestChain(t *testing.T) *testChain {
	t.Helper()
	db := chaindb.New(memory.New())

	genesis := types.Block{StateRoot: types.Root{0x01}}
	genesisRoot, err := db.PutBlock(&genesis)
	if err != nil {
		t.Fatalf("PutBlock failed: %v", err)
	}

	child := types.SignedBlockWithAttestation{
		Message: types.BlockWithAttestation{
			Block: types.Block{Slot: 1, ProposerIndex: 1, ParentRoot: genesisRoot},
			ProposerAttestation: types.Attestation{
				ValidatorID: 1,
				Data:        types.AttestationData{Slot: 1, Source: types.Checkpoint{Root: genesisRoot}},
			},
		},
	}
	child.Signature.ProposerSignature[0] = 0x42
	childRoot, err := db.PutSignedBlock(&child)
	if err != nil {
		t.Fatalf("PutSignedBlock failed: %v", err)
	}

	if err := db.PutHead(types.Checkpoint{Root: childRoot, Slot: 1}); err != nil {
		t.Fatal(err)
	}
	if err := db.PutFinalized(types.Checkpoint{Root: genesisRoot}); err != nil {
		t.Fatal(err)
	}
	return &testChain{db: db, genesis: genesisRoot, child: childRoot}
}

func TestGetStatus(t *testing.T) {
	chain := setupTestChain(t)
	handler := NewHandler(chain.db)

	status, err := handler.GetStatus()
	if err != nil {
		t.Fatalf("GetStatus failed: %v", err)
	}
	if status.Finalized.Root != chain.genesis || status.Finalized.Slot != 0 {
		t.Errorf("Finalized = %v, want genesis at slot 0", status.Finalized)
	}
	if status.Head.Root != chain.child || status.Head.Slot != 1 {
		t.Errorf("Head = %v, want child at slot 1", status.Head)
	}
}

func TestGetStatus_EmptyChain(t *testing.T) {
	handler := NewHandler(chaindb.New(memory.New()))

	status, err := handler.GetStatus()
	if err != nil {
		t.Fatalf("GetStatus failed: %v", err)
	}
	if *status != (Status{}) {
		t.Errorf("status = %+v, want zero", *status)
	}
}

func TestHandleBlocksByRoot(t *testing.T) {
	chain := setupTestChain(t)
	handler := NewHandler(chain.db)

	blocks, err := handler.HandleBlocksByRoot(&BlocksByRootRequest{
		Roots: []types.Root{chain.child, {1, 2, 3}, chain.genesis},
	})
	if err != nil {
		t.Fatalf("HandleBlocksByRoot failed: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("len(blocks) = %d, want 2", len(blocks))
	}

	if blocks[0].Message.Block.Slot != 1 {
		t.Errorf("blocks[0] slot = %d, want 1", blocks[0].Message.Block.Slot)
	}
	if blocks[0].Signature.ProposerSignature[0] != 0x42 {
		t.Error("signed block served without its signature")
	}

	if blocks[1].Message.Block.Slot != 0 {
		t.Errorf("blocks[1] slot = %d, want 0", blocks[1].Message.Block.Slot)
	}
	root, _ := blocks[1].Message.Block.HashTreeRoot()
	if root != chain.genesis {
		t.Error("genesis block root mismatch")
	}
	if !blocks[1].Signature.ProposerSignature.IsZero() {
		t.Error("bare block should be served with an empty signature")
	}
}

func TestHandleBlocksByRootUnknown(t *testing.T) {
	chain := setupTestChain(t)
	handler := NewHandler(chain.db)

	blocks, err := handler.HandleBlocksByRoot(&BlocksByRootRequest{Roots: []types.Root{{1, 2, 3}}})
	if err != nil {
		t.Fatalf("HandleBlocksByRoot failed: %v", err)
	}
	if len(blocks) != 0 {
		t.Errorf("Expected 0 blocks for unknown root, got %d", len(blocks))
	}
}

func TestValidatePeerStatus(t *testing.T) {
	chain := setupTestChain(t)
	handler := NewHandler(chain.db)

	tests := []struct {
		name    string
		status  Status
		wantErr error
	}{
		{"genesis", Status{Head: types.Checkpoint{Root: chain.child, Slot: 1}}, nil},
		{"matching finalized", Status{Finalized: types.Checkpoint{Root: chain.child, Slot: 1}}, nil},
		{"unknown finalized", Status{Finalized: types.Checkpoint{Root: types.Root{0xee}, Slot: 7}}, nil},
		{"wrong slot", Status{Finalized: types.Checkpoint{Root: chain.child, Slot: 2}}, ErrInvalidStatus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := handler.ValidatePeerStatus(&tt.status)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidatePeerStatus = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
