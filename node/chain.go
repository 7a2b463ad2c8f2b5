package node

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/geanlabs/pqlean/config"
	"github.com/geanlabs/pqlean/internal/genesis"
	"github.com/geanlabs/pqlean/observability/logging"
	"github.com/geanlabs/pqlean/storage"
	"github.com/geanlabs/pqlean/storage/chaindb"
	"github.com/geanlabs/pqlean/storage/memory"
	"github.com/geanlabs/pqlean/storage/pebble"
	"github.com/geanlabs/pqlean/types"
)

var ErrUnknownParent = errors.New("parent block not stored")

// openStorage opens the key-value engine selected by cfg.
func openStorage(cfg *config.NodeConfig, logger *slog.Logger) (storage.KeyValue, error) {
	switch cfg.Storage.Engine {
	case config.EngineMemory:
		return memory.New(), nil
	case config.EnginePebble:
		store, err := pebble.Open(pebble.Config{
			Path:        cfg.DBPath(),
			CacheSizeMB: cfg.Storage.CacheSizeMB,
			Logger:      logger,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage engine %q", cfg.Storage.Engine)
	}
}

// chain tracks the stored chain: genesis, head and the validator registry.
type chain struct {
	db     *chaindb.DB
	logger *slog.Logger

	genesisRoot types.Root
	genesisTime uint64
	validators  []types.Validator

	mu   sync.Mutex
	head types.Checkpoint
}

// initChain persists the genesis state and block, and resumes from a stored
// head when there is one.
func initChain(db *chaindb.DB, gen *genesis.GenesisConfig, logger *slog.Logger) (*chain, error) {
	state, err := gen.CreateState()
	if err != nil {
		return nil, fmt.Errorf("create genesis state: %w", err)
	}
	block, err := genesis.GenesisBlock(state)
	if err != nil {
		return nil, err
	}
	if _, err := db.PutState(state); err != nil {
		return nil, fmt.Errorf("store genesis state: %w", err)
	}
	root, err := db.PutBlock(&block)
	if err != nil {
		return nil, fmt.Errorf("store genesis block: %w", err)
	}

	c := &chain{
		db:          db,
		logger:      logger,
		genesisRoot: root,
		genesisTime: state.Config.GenesisTime,
		validators:  state.Validators,
	}

	head, err := db.Head()
	switch {
	case errors.Is(err, storage.ErrNotFound):
		head = types.Checkpoint{Root: root, Slot: 0}
		if err := db.PutHead(head); err != nil {
			return nil, err
		}
		if err := db.PutFinalized(head); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("read head: %w", err)
	default:
		logger.Info("resuming from stored head", "slot", head.Slot, "root", logging.ShortHash(head.Root))
	}
	c.head = head

	logger.Info("genesis ready",
		"root", logging.ShortHash(root),
		"genesis_time", c.genesisTime,
		"validators", len(c.validators),
	)
	return c, nil
}

func (c *chain) Head() types.Checkpoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.head
}

// importBlock stores a signed block whose parent is already stored and moves
// the head when the block is newer.
func (c *chain) importBlock(sb *types.SignedBlockWithAttestation) (types.Root, error) {
	block := &sb.Message.Block
	if block.Slot == 0 {
		return types.Root{}, fmt.Errorf("%w: block at genesis slot", types.ErrInvalidArgument)
	}
	known, err := c.db.HasBlock(block.ParentRoot)
	if err != nil {
		return types.Root{}, err
	}
	if !known {
		return types.Root{}, fmt.Errorf("%w: %s", ErrUnknownParent, logging.ShortHash(block.ParentRoot))
	}

	root, err := c.db.PutSignedBlock(sb)
	if err != nil {
		return types.Root{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if block.Slot > c.head.Slot {
		c.head = types.Checkpoint{Root: root, Slot: block.Slot}
		if err := c.db.PutHead(c.head); err != nil {
			return root, err
		}
	}
	return root, nil
}

// validator returns the registry entry for index.
func (c *chain) validator(index uint64) (types.Validator, bool) {
	if index >= uint64(len(c.validators)) {
		return types.Validator{}, false
	}
	return c.validators[index], true
}
