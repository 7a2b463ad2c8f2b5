// Package config loads node and validator configuration files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	EngineMemory = "memory"
	EnginePebble = "pebble"
)

// NodeConfig is the node configuration file (YAML).
type NodeConfig struct {
	DataDir             string           `yaml:"data_dir"`
	Network             string           `yaml:"network"`
	NodeName            string           `yaml:"node_name"`
	GenesisPath         string           `yaml:"genesis"`
	BootnodesPath       string           `yaml:"bootnodes"`
	ValidatorConfigPath string           `yaml:"validator_config"`
	ListenAddrs         []string         `yaml:"listen_addrs"`
	NodeKey             string           `yaml:"node_key"`
	Logging             LoggingConfig    `yaml:"logging"`
	Metrics             MetricsConfig    `yaml:"metrics"`
	Storage             StorageConfig    `yaml:"storage"`
	Validator           ValidatorRuntime `yaml:"validator"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

type StorageConfig struct {
	Engine      string `yaml:"engine"`
	CacheSizeMB int    `yaml:"cache_mb"`
}

type ValidatorRuntime struct {
	Enabled      bool   `yaml:"enabled"`
	KeystorePath string `yaml:"keystore"`
}

// Overrides are command line values; zero values leave the file setting alone.
type Overrides struct {
	DataDir             string
	Network             string
	NodeName            string
	GenesisPath         string
	BootnodesPath       string
	ValidatorConfigPath string
	ListenAddrs         []string
	LogLevel            string
	LogFormat           string
	MetricsEnabled      *bool
	MetricsAddress      string
	StorageEngine       string
}

func Default() *NodeConfig {
	return &NodeConfig{
		DataDir: "data",
		Network: "devnet0",
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Metrics: MetricsConfig{Address: "127.0.0.1:8080"},
		Storage: StorageConfig{Engine: EnginePebble, CacheSizeMB: 64},
		Validator: ValidatorRuntime{
			Enabled: true,
		},
	}
}

// Load reads a node configuration file on top of the defaults.
// An empty path yields the defaults.
func Load(path string) (*NodeConfig, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read node config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse node config: %w", err)
	}
	return cfg, nil
}

// Apply layers command line overrides over the loaded configuration.
func (c *NodeConfig) Apply(o Overrides) {
	setString(&c.DataDir, o.DataDir)
	setString(&c.Network, o.Network)
	setString(&c.NodeName, o.NodeName)
	setString(&c.GenesisPath, o.GenesisPath)
	setString(&c.BootnodesPath, o.BootnodesPath)
	setString(&c.ValidatorConfigPath, o.ValidatorConfigPath)
	setString(&c.Logging.Level, o.LogLevel)
	setString(&c.Logging.Format, o.LogFormat)
	setString(&c.Metrics.Address, o.MetricsAddress)
	setString(&c.Storage.Engine, o.StorageEngine)
	if len(o.ListenAddrs) > 0 {
		c.ListenAddrs = o.ListenAddrs
	}
	if o.MetricsEnabled != nil {
		c.Metrics.Enabled = *o.MetricsEnabled
	}
}

func setString(dst *string, v string) {
	if strings.TrimSpace(v) != "" {
		*dst = v
	}
}

// Validate checks the settings the node cannot start without.
func (c *NodeConfig) Validate() error {
	switch c.Storage.Engine {
	case EngineMemory, EnginePebble:
	default:
		return fmt.Errorf("unknown storage engine %q", c.Storage.Engine)
	}
	if c.Storage.Engine == EnginePebble && c.DataDir == "" {
		return fmt.Errorf("pebble storage needs a data dir")
	}
	if c.Metrics.Enabled && c.Metrics.Address == "" {
		return fmt.Errorf("metrics enabled without an address")
	}
	return nil
}

// DBPath is where the pebble store lives.
func (c *NodeConfig) DBPath() string {
	return filepath.Join(c.DataDir, "chaindb")
}
