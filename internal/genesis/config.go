// Package genesis loads the genesis configuration and builds the genesis state.
package genesis

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/geanlabs/pqlean/types"
)

// GenesisConfig holds the parameters needed to create a genesis state.
type GenesisConfig struct {
	GenesisTime       uint64
	GenesisValidators []types.Pubkey
}

// configJSON is the on-disk form: hex pubkeys, with or without 0x.
type configJSON struct {
	GenesisTime       uint64   `json:"GENESIS_TIME"`
	GenesisValidators []string `json:"GENESIS_VALIDATORS"`
}

// LoadFromFile loads a GenesisConfig from a JSON file.
func LoadFromFile(path string) (*GenesisConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading genesis file: %w", err)
	}
	return LoadFromJSON(data)
}

// LoadFromJSON loads a GenesisConfig from JSON bytes.
func LoadFromJSON(data []byte) (*GenesisConfig, error) {
	var raw configJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing genesis JSON: %w", err)
	}

	config := &GenesisConfig{
		GenesisTime:       raw.GenesisTime,
		GenesisValidators: make([]types.Pubkey, len(raw.GenesisValidators)),
	}
	for i, hexStr := range raw.GenesisValidators {
		pubkey, err := parseHexPubkey(hexStr)
		if err != nil {
			return nil, fmt.Errorf("parsing validator %d pubkey: %w", i, err)
		}
		config.GenesisValidators[i] = pubkey
	}
	return config, nil
}

// MarshalJSON writes the config back in its on-disk form.
func (c *GenesisConfig) MarshalJSON() ([]byte, error) {
	raw := configJSON{
		GenesisTime:       c.GenesisTime,
		GenesisValidators: make([]string, len(c.GenesisValidators)),
	}
	for i, pk := range c.GenesisValidators {
		raw.GenesisValidators[i] = "0x" + hex.EncodeToString(pk[:])
	}
	return json.Marshal(raw)
}

func parseHexPubkey(s string) (types.Pubkey, error) {
	decoded, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return types.Pubkey{}, fmt.Errorf("decoding hex: %w", err)
	}
	return types.PubkeyFromBytes(decoded)
}

// ToValidators converts genesis pubkeys to Validator records indexed in order.
func (c *GenesisConfig) ToValidators() []types.Validator {
	validators := make([]types.Validator, len(c.GenesisValidators))
	for i, pk := range c.GenesisValidators {
		validators[i] = types.Validator{
			Pubkey: pk,
			Index:  uint64(i),
		}
	}
	return validators
}

// CreateState generates the genesis state from this configuration.
func (c *GenesisConfig) CreateState() (*types.State, error) {
	if len(c.GenesisValidators) == 0 {
		return nil, fmt.Errorf("genesis needs validators: %w", types.ErrEmptySet)
	}
	return GenerateGenesis(c.GenesisTime, c.ToValidators())
}
