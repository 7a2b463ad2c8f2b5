package genesis

import (
	"fmt"

	"github.com/geanlabs/pqlean/types"
)

// GenerateGenesis creates the genesis state at slot 0.
//
// The genesis state has:
//   - slot = 0
//   - empty historical data (block hashes, justified slots, justification tracking)
//   - a latest block header committing to the empty body, with zeroed state and parent roots
//   - both checkpoints at slot 0 with the zero root
func GenerateGenesis(genesisTime uint64, validators []types.Validator) (*types.State, error) {
	bodyRoot, err := types.BlockBody{}.HashTreeRoot()
	if err != nil {
		return nil, fmt.Errorf("empty body root: %w", err)
	}

	return &types.State{
		Config: types.Config{GenesisTime: genesisTime},
		Slot:   0,
		LatestBlockHeader: types.BlockHeader{
			BodyRoot: bodyRoot,
		},
		LatestJustified: types.Checkpoint{},
		LatestFinalized: types.Checkpoint{},
		Validators:      validators,
	}, nil
}

// GenesisBlock returns the slot-0 block committing to state.
func GenesisBlock(state *types.State) (types.Block, error) {
	stateRoot, err := state.HashTreeRoot()
	if err != nil {
		return types.Block{}, fmt.Errorf("genesis state root: %w", err)
	}
	return types.Block{
		Slot:      state.Slot,
		StateRoot: stateRoot,
	}, nil
}
