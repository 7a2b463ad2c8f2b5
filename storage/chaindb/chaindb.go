// Package chaindb persists consensus objects in a storage.KeyValue, keyed by
// their hash tree root and stored in canonical encoding.
package chaindb

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/geanlabs/pqlean/common/ssz"
	"github.com/geanlabs/pqlean/observability/metrics"
	"github.com/geanlabs/pqlean/storage"
	"github.com/geanlabs/pqlean/types"
)

const (
	prefixBlock       byte = 'b'
	prefixSignedBlock byte = 's'
	prefixState       byte = 't'
)

var (
	headKey      = []byte("head")
	finalizedKey = []byte("finalized")
)

// ErrRootMismatch means a stored value does not hash to the root it is keyed by.
var ErrRootMismatch = errors.New("chaindb: stored value does not match its root")

// DB stores blocks, signed blocks and states.
type DB struct {
	kv storage.KeyValue
}

func New(kv storage.KeyValue) *DB {
	return &DB{kv: kv}
}

func key(prefix byte, root types.Root) []byte {
	k := make([]byte, 1+types.RootSize)
	k[0] = prefix
	copy(k[1:], root[:])
	return k
}

func (db *DB) put(kind string, prefix byte, obj ssz.Object) (types.Root, error) {
	root, err := obj.HashTreeRoot()
	if err != nil {
		return types.Root{}, errors.Wrapf(err, "hash %s", kind)
	}
	enc, err := obj.MarshalSSZ()
	if err != nil {
		return types.Root{}, errors.Wrapf(err, "encode %s", kind)
	}
	if err := db.kv.Put(key(prefix, root), enc); err != nil {
		return types.Root{}, errors.Wrapf(err, "store %s %x", kind, root[:4])
	}
	metrics.StoreWritesTotal.WithLabelValues(kind).Inc()
	return root, nil
}

func (db *DB) get(kind string, prefix byte, root types.Root, obj ssz.Object) error {
	enc, err := db.kv.Get(key(prefix, root))
	if err != nil {
		return err
	}
	if err := obj.UnmarshalSSZ(enc); err != nil {
		return errors.Wrapf(err, "decode %s %x", kind, root[:4])
	}
	got, err := obj.HashTreeRoot()
	if err != nil {
		return errors.Wrapf(err, "hash %s", kind)
	}
	if got != root {
		return fmt.Errorf("%w: %s keyed %x hashes to %x", ErrRootMismatch, kind, root[:4], got[:4])
	}
	return nil
}

// PutBlock stores b and returns its root.
func (db *DB) PutBlock(b *types.Block) (types.Root, error) {
	return db.put("block", prefixBlock, b)
}

func (db *DB) GetBlock(root types.Root) (*types.Block, error) {
	var b types.Block
	if err := db.get("block", prefixBlock, root, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// PutSignedBlock stores a signed block under the root of its inner block, so a
// block and its signed envelope share a key.
func (db *DB) PutSignedBlock(sb *types.SignedBlockWithAttestation) (types.Root, error) {
	root, err := sb.Message.Block.HashTreeRoot()
	if err != nil {
		return types.Root{}, errors.Wrap(err, "hash signed block")
	}
	enc, err := sb.MarshalSSZ()
	if err != nil {
		return types.Root{}, errors.Wrap(err, "encode signed block")
	}
	blockEnc, err := sb.Message.Block.MarshalSSZ()
	if err != nil {
		return types.Root{}, errors.Wrap(err, "encode block")
	}
	err = db.kv.WriteBatch([]storage.Entry{
		{Key: key(prefixSignedBlock, root), Value: enc},
		{Key: key(prefixBlock, root), Value: blockEnc},
	})
	if err != nil {
		return types.Root{}, errors.Wrapf(err, "store signed block %x", root[:4])
	}
	metrics.StoreWritesTotal.WithLabelValues("signed_block").Inc()
	return root, nil
}

func (db *DB) GetSignedBlock(root types.Root) (*types.SignedBlockWithAttestation, error) {
	enc, err := db.kv.Get(key(prefixSignedBlock, root))
	if err != nil {
		return nil, err
	}
	var sb types.SignedBlockWithAttestation
	if err := sb.UnmarshalSSZ(enc); err != nil {
		return nil, errors.Wrapf(err, "decode signed block %x", root[:4])
	}
	got, err := sb.Message.Block.HashTreeRoot()
	if err != nil {
		return nil, errors.Wrap(err, "hash signed block")
	}
	if got != root {
		return nil, fmt.Errorf("%w: signed block keyed %x hashes to %x", ErrRootMismatch, root[:4], got[:4])
	}
	return &sb, nil
}

// HasBlock reports whether a block with root is stored.
func (db *DB) HasBlock(root types.Root) (bool, error) {
	return db.kv.Has(key(prefixBlock, root))
}

func (db *DB) PutState(s *types.State) (types.Root, error) {
	return db.put("state", prefixState, s)
}

func (db *DB) GetState(root types.Root) (*types.State, error) {
	var s types.State
	if err := db.get("state", prefixState, root, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// PutHead records the current head checkpoint.
func (db *DB) PutHead(head types.Checkpoint) error {
	if err := db.putCheckpoint(headKey, head); err != nil {
		return errors.Wrap(err, "head")
	}
	metrics.HeadSlot.Set(float64(head.Slot))
	return nil
}

// Head returns the last recorded head, or storage.ErrNotFound.
func (db *DB) Head() (types.Checkpoint, error) {
	return db.checkpoint(headKey)
}

// PutFinalized records the latest finalized checkpoint.
func (db *DB) PutFinalized(cp types.Checkpoint) error {
	return errors.Wrap(db.putCheckpoint(finalizedKey, cp), "finalized")
}

// Finalized returns the last recorded finalized checkpoint, or storage.ErrNotFound.
func (db *DB) Finalized() (types.Checkpoint, error) {
	return db.checkpoint(finalizedKey)
}

func (db *DB) putCheckpoint(k []byte, cp types.Checkpoint) error {
	enc, err := cp.MarshalSSZ()
	if err != nil {
		return errors.Wrap(err, "encode checkpoint")
	}
	return errors.Wrap(db.kv.Put(k, enc), "store checkpoint")
}

func (db *DB) checkpoint(k []byte) (types.Checkpoint, error) {
	var cp types.Checkpoint
	enc, err := db.kv.Get(k)
	if err != nil {
		return cp, err
	}
	if err := cp.UnmarshalSSZ(enc); err != nil {
		return cp, errors.Wrapf(err, "decode %s", k)
	}
	return cp, nil
}

func (db *DB) Close() error {
	return db.kv.Close()
}
