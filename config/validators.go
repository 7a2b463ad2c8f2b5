package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValidatorConfig is the shared validator-config.yaml describing every node
// of a deployment.
type ValidatorConfig struct {
	Shuffle        string          `yaml:"shuffle"`
	DeploymentMode string          `yaml:"deployment_mode"`
	Config         ValidatorChain  `yaml:"config"`
	Validators     []ValidatorNode `yaml:"validators"`
}

type ValidatorChain struct {
	ActiveEpoch int    `yaml:"activeEpoch"`
	KeyType     string `yaml:"keyType"`
}

type ValidatorNode struct {
	Name        string    `yaml:"name"`
	Privkey     string    `yaml:"privkey"`
	EnrFields   EnrFields `yaml:"enrFields"`
	MetricsPort int       `yaml:"metricsPort"`
	Count       int       `yaml:"count"`
}

type EnrFields struct {
	IP   string `yaml:"ip"`
	QUIC int    `yaml:"quic"`
}

func LoadValidatorConfig(path string) (*ValidatorConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read validator config: %w", err)
	}
	var cfg ValidatorConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse validator config: %w", err)
	}
	for i := range cfg.Validators {
		if cfg.Validators[i].Count == 0 {
			cfg.Validators[i].Count = 1
		}
	}
	return &cfg, nil
}

// FindNode returns the entry named name, compared case-insensitively.
// An empty name selects the first entry.
func (c *ValidatorConfig) FindNode(name string) (*ValidatorNode, bool) {
	if len(c.Validators) == 0 {
		return nil, false
	}
	if strings.TrimSpace(name) == "" {
		return &c.Validators[0], true
	}
	for i := range c.Validators {
		if strings.EqualFold(c.Validators[i].Name, name) {
			return &c.Validators[i], true
		}
	}
	return nil, false
}

// ListenAddr is the QUIC multiaddr advertised by the node's ENR fields, or ""
// when the entry has no QUIC port.
func (n *ValidatorNode) ListenAddr() string {
	if n.EnrFields.QUIC == 0 {
		return ""
	}
	ip := n.EnrFields.IP
	if ip == "" {
		ip = "0.0.0.0"
	}
	return fmt.Sprintf("/ip4/%s/udp/%d/quic-v1", ip, n.EnrFields.QUIC)
}

// ValidatorRange returns the half-open range of validator indices owned by
// name, assigning indices to nodes in file order by their counts.
func (c *ValidatorConfig) ValidatorRange(name string) (start, end uint64, ok bool) {
	var next uint64
	for i := range c.Validators {
		n := &c.Validators[i]
		count := uint64(max(n.Count, 1))
		if strings.EqualFold(n.Name, name) {
			return next, next + count, true
		}
		next += count
	}
	return 0, 0, false
}
