package chaindb

import (
	"errors"
	"reflect"
	"testing"

	"github.com/geanlabs/pqlean/storage"
	"github.com/geanlabs/pqlean/storage/memory"
	"github.com/geanlabs/pqlean/types"
)

func testBlock(t *testing.T, slot types.Slot) types.Block {
	t.Helper()
	bits, err := types.AggregationBitsFromValidatorIndices([]int64{0, 2})
	if err != nil {
		t.Fatal(err)
	}
	return types.Block{
		Slot:          slot,
		ProposerIndex: 1,
		ParentRoot:    types.Root{0xaa},
		StateRoot:     types.Root{0xbb},
		Body: types.BlockBody{Attestations: []types.AggregatedAttestation{{
			AggregationBits: bits,
			Data:            types.AttestationData{Slot: slot - 1, Head: types.Checkpoint{Root: types.Root{1}, Slot: slot - 1}},
		}}},
	}
}

func TestDB_Block(t *testing.T) {
	db := New(memory.New())
	block := testBlock(t, 5)

	root, err := db.PutBlock(&block)
	if err != nil {
		t.Fatalf("PutBlock() error = %v", err)
	}
	want, _ := block.HashTreeRoot()
	if root != want {
		t.Errorf("PutBlock() root = %x, want %x", root, want)
	}

	got, err := db.GetBlock(root)
	if err != nil {
		t.Fatalf("GetBlock() error = %v", err)
	}
	if !reflect.DeepEqual(*got, block) {
		t.Errorf("GetBlock() = %+v, want %+v", *got, block)
	}

	if _, err := db.GetBlock(types.Root{0xff}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("missing block error = %v, want ErrNotFound", err)
	}
}

func TestDB_SignedBlockSharesBlockKey(t *testing.T) {
	db := New(memory.New())
	sb := types.SignedBlockWithAttestation{
		Message: types.BlockWithAttestation{
			Block:               testBlock(t, 7),
			ProposerAttestation: types.Attestation{ValidatorID: 1},
		},
	}
	sb.Signature.ProposerSignature[0] = 0x42

	root, err := db.PutSignedBlock(&sb)
	if err != nil {
		t.Fatalf("PutSignedBlock() error = %v", err)
	}
	got, err := db.GetSignedBlock(root)
	if err != nil {
		t.Fatalf("GetSignedBlock() error = %v", err)
	}
	if !reflect.DeepEqual(*got, sb) {
		t.Error("GetSignedBlock() round trip mismatch")
	}
	if ok, _ := db.HasBlock(root); !ok {
		t.Error("HasBlock() = false for a stored signed block")
	}
	block, err := db.GetBlock(root)
	if err != nil || block.Slot != 7 {
		t.Errorf("GetBlock() = %v, %v", block, err)
	}
}

func TestDB_StateAndHead(t *testing.T) {
	db := New(memory.New())
	state := types.State{
		Config:                types.Config{GenesisTime: 1000},
		HistoricalBlockHashes: []types.Root{{1}},
		JustifiedSlots:        types.NewBitlist([]bool{true}),
		Validators:            []types.Validator{{Pubkey: types.Pubkey{3}, Index: 0}},
	}
	root, err := db.PutState(&state)
	if err != nil {
		t.Fatalf("PutState() error = %v", err)
	}
	got, err := db.GetState(root)
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if !reflect.DeepEqual(*got, state) {
		t.Errorf("GetState() = %+v, want %+v", *got, state)
	}

	if _, err := db.Head(); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Head() before PutHead error = %v, want ErrNotFound", err)
	}
	head := types.Checkpoint{Root: root, Slot: 3}
	if err := db.PutHead(head); err != nil {
		t.Fatal(err)
	}
	if got, err := db.Head(); err != nil || got != head {
		t.Errorf("Head() = %v, %v; want %v", got, err, head)
	}
}

func TestDB_DetectsRootMismatch(t *testing.T) {
	kv := memory.New()
	db := New(kv)
	block := testBlock(t, 5)
	root, err := db.PutBlock(&block)
	if err != nil {
		t.Fatal(err)
	}

	other := testBlock(t, 6)
	enc, _ := other.MarshalSSZ()
	if err := kv.Put(key(prefixBlock, root), enc); err != nil {
		t.Fatal(err)
	}
	if _, err := db.GetBlock(root); !errors.Is(err, ErrRootMismatch) {
		t.Errorf("GetBlock() error = %v, want ErrRootMismatch", err)
	}
}

func TestDB_Finalized(t *testing.T) {
	db := New(memory.New())

	if _, err := db.Finalized(); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Finalized() before PutFinalized error = %v, want ErrNotFound", err)
	}
	cp := types.Checkpoint{Root: types.Root{0x77}, Slot: 4}
	if err := db.PutFinalized(cp); err != nil {
		t.Fatalf("PutFinalized() error = %v", err)
	}
	if got, err := db.Finalized(); err != nil || got != cp {
		t.Errorf("Finalized() = %v, %v; want %v", got, err, cp)
	}
	if _, err := db.Head(); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Head() after PutFinalized error = %v, want ErrNotFound", err)
	}
}
