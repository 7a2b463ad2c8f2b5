// Package node wires storage, genesis, networking and metrics into a running
// consensus node.
package node

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/geanlabs/pqlean/clock"
	"github.com/geanlabs/pqlean/config"
	"github.com/geanlabs/pqlean/crypto/xmss"
	"github.com/geanlabs/pqlean/internal/genesis"
	"github.com/geanlabs/pqlean/networking"
	"github.com/geanlabs/pqlean/networking/chainsync"
	"github.com/geanlabs/pqlean/networking/reqresp"
	"github.com/geanlabs/pqlean/observability/logging"
	"github.com/geanlabs/pqlean/observability/metrics"
	"github.com/geanlabs/pqlean/storage/chaindb"
	"github.com/geanlabs/pqlean/types"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/pkg/errors"
)

type Node struct {
	config  *config.NodeConfig
	chain   *chain
	verify  *verifier
	clock   *clock.SlotClock
	net     *networking.Service
	reqresp *reqresp.StreamHandler
	syncer  *chainsync.Syncer
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type Config struct {
	Node *config.NodeConfig
	// Genesis overrides Node.GenesisPath when set.
	Genesis *genesis.GenesisConfig
	// Signer verifies gossip signatures; nil accepts them unverified.
	Signer *xmss.Service
	Logger *slog.Logger
}

// New opens storage, persists genesis, and creates the host, gossip service
// and req/resp protocols. Nothing runs until Start.
func New(ctx context.Context, cfg Config) (*Node, error) {
	nodeCfg := cfg.Node
	if nodeCfg == nil {
		nodeCfg = config.Default()
	}
	if err := nodeCfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.New(nodeCfg.Logging.Level, nodeCfg.Logging.Format)
	}

	gen := cfg.Genesis
	if gen == nil {
		if nodeCfg.GenesisPath == "" {
			return nil, errors.New("no genesis configured")
		}
		var err error
		if gen, err = genesis.LoadFromFile(nodeCfg.GenesisPath); err != nil {
			return nil, err
		}
	}

	if err := applyValidatorConfig(nodeCfg, logger); err != nil {
		return nil, err
	}

	kv, err := openStorage(nodeCfg, logger)
	if err != nil {
		return nil, errors.Wrap(err, "open storage")
	}
	db := chaindb.New(kv)

	ch, err := initChain(db, gen, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	n := &Node{
		config: nodeCfg,
		chain:  ch,
		verify: &verifier{svc: cfg.Signer, chain: ch},
		clock:  clock.New(ch.genesisTime),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}

	if err := n.initNetwork(); err != nil {
		cancel()
		db.Close()
		return nil, err
	}
	return n, nil
}

// applyValidatorConfig fills the listen address, node key and metrics port
// from this node's entry in the validator config, unless already set.
func applyValidatorConfig(cfg *config.NodeConfig, logger *slog.Logger) error {
	if cfg.ValidatorConfigPath == "" {
		return nil
	}
	vc, err := config.LoadValidatorConfig(cfg.ValidatorConfigPath)
	if err != nil {
		return err
	}
	entry, ok := vc.FindNode(cfg.NodeName)
	if !ok {
		return fmt.Errorf("node %q not found in %s", cfg.NodeName, cfg.ValidatorConfigPath)
	}
	if len(cfg.ListenAddrs) == 0 {
		if addr := entry.ListenAddr(); addr != "" {
			cfg.ListenAddrs = []string{addr}
		}
	}
	if cfg.NodeKey == "" {
		cfg.NodeKey = entry.Privkey
	}
	if entry.MetricsPort > 0 && cfg.Metrics.Address == config.Default().Metrics.Address {
		cfg.Metrics.Address = fmt.Sprintf("0.0.0.0:%d", entry.MetricsPort)
	}
	if start, end, ok := vc.ValidatorRange(entry.Name); ok {
		logger.Info("validator config loaded", "node", entry.Name, "validators_from", start, "validators_to", end)
	}
	return nil
}

func (n *Node) initNetwork() error {
	var rawBootnodes []string
	if n.config.BootnodesPath != "" {
		var err error
		if rawBootnodes, err = config.LoadBootnodes(n.config.BootnodesPath); err != nil {
			return err
		}
	}
	bootnodes, skipped := networking.ParseBootnodes(rawBootnodes)
	for _, s := range skipped {
		n.logger.Warn("skipping bootnode", "addr", s)
	}

	hostCfg := networking.HostConfig{ListenAddrs: n.config.ListenAddrs}
	if n.config.NodeKey != "" {
		key, err := networking.DecodeNodeKey(n.config.NodeKey)
		if err != nil {
			return err
		}
		hostCfg.PrivateKey = key
	}
	host, err := networking.NewHost(n.ctx, hostCfg)
	if err != nil {
		return err
	}

	handlers := &networking.MessageHandlers{
		OnBlock:       n.handleBlock,
		OnAttestation: n.handleAttestation,
		OnAggregate:   n.handleAggregate,
	}
	svc, err := networking.NewService(n.ctx, networking.ServiceConfig{
		Host:      host,
		Network:   n.config.Network,
		Handlers:  handlers,
		Bootnodes: bootnodes,
		Logger:    n.logger,
	})
	if err != nil {
		host.Close()
		return err
	}
	n.net = svc

	status := reqresp.NewHandler(n.chain.db)
	n.reqresp = reqresp.NewStreamHandler(host, status, n.logger)
	n.reqresp.RegisterProtocols()

	n.syncer = chainsync.NewSyncer(n.ctx, chainsync.Config{
		Host:          host,
		Store:         syncStore{n: n},
		StreamHandler: n.reqresp,
		Status:        status,
		Logger:        n.logger,
	})
	return nil
}

// syncStore runs req/resp blocks through the same checks as gossip blocks.
type syncStore struct {
	n *Node
}

func (s syncStore) HasBlock(root types.Root) (bool, error) {
	return s.n.chain.db.HasBlock(root)
}

func (s syncStore) ImportBlock(sb *types.SignedBlockWithAttestation) (types.Root, error) {
	if err := s.n.verify.block(sb); err != nil {
		return types.Root{}, err
	}
	return s.n.chain.importBlock(sb)
}

// Start begins node operation.
func (n *Node) Start() {
	n.net.Start()
	n.syncer.Start()

	if n.config.Metrics.Enabled {
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			if err := metrics.Serve(n.ctx, n.config.Metrics.Address, n.logger); err != nil {
				n.logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	n.wg.Add(1)
	go n.slotLoop()

	head := n.chain.Head()
	n.logger.Info("node started",
		"network", n.config.Network,
		"genesis_time", n.chain.genesisTime,
		"head_slot", head.Slot,
		"head", logging.ShortHash(head.Root),
	)
}

// Stop gracefully shuts down the node.
func (n *Node) Stop() {
	n.cancel()
	n.syncer.Stop()
	n.wg.Wait()
	n.net.Stop()
	if err := n.chain.db.Close(); err != nil {
		n.logger.Error("close storage", "error", err)
	}
	n.logger.Info("node stopped")
}

func (n *Node) slotLoop() {
	defer n.wg.Done()

	for slot := range n.clock.SubscribeSlots(n.ctx) {
		head := n.chain.Head()
		n.logger.Info("slot",
			"slot", slot,
			"head_slot", head.Slot,
			"head", logging.ShortHash(head.Root),
			"peers", n.PeerCount(),
		)
	}
}

func (n *Node) handleBlock(_ context.Context, sb *types.SignedBlockWithAttestation, from peer.ID) error {
	if err := n.verify.block(sb); err != nil {
		return fmt.Errorf("verify block: %w", err)
	}
	root, err := n.chain.importBlock(sb)
	if errors.Is(err, ErrUnknownParent) {
		n.logger.Debug("block parent unknown, fetching", "slot", sb.Message.Block.Slot, "peer", from)
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			if err := n.syncer.OnUnknownParent(n.ctx, sb, from); err != nil {
				n.logger.Warn("parent fetch failed", "slot", sb.Message.Block.Slot, "peer", from, "error", err)
			}
		}()
		return nil
	}
	if err != nil {
		return fmt.Errorf("import block: %w", err)
	}
	block := &sb.Message.Block
	n.logger.Info("imported block",
		"slot", block.Slot,
		"proposer", block.ProposerIndex,
		"root", logging.ShortHash(root),
		"attestations", len(block.Body.Attestations),
		"peer", from,
	)
	return nil
}

func (n *Node) handleAttestation(_ context.Context, att *types.SignedAttestation, _ peer.ID) error {
	if err := n.verify.attestation(att); err != nil {
		return fmt.Errorf("verify attestation: %w", err)
	}
	n.logger.Debug("attestation",
		"slot", att.Message.Slot,
		"validator", att.ValidatorID,
		"head", logging.ShortHash(att.Message.Head.Root),
	)
	return nil
}

func (n *Node) handleAggregate(_ context.Context, agg *types.AggregatedAttestation, _ peer.ID) error {
	if _, err := n.verify.pubkeys(agg.AggregationBits); err != nil {
		return fmt.Errorf("aggregate participants: %w", err)
	}
	n.logger.Debug("aggregate",
		"slot", agg.Data.Slot,
		"participants", agg.AggregationBits.Count(),
	)
	return nil
}

// CurrentSlot returns the wall-clock slot.
func (n *Node) CurrentSlot() types.Slot {
	return n.clock.CurrentSlot()
}

func (n *Node) Head() types.Checkpoint {
	return n.chain.Head()
}

// PeerCount returns the number of connected peers.
func (n *Node) PeerCount() int {
	return n.net.PeerCount()
}

// Network exposes the gossip service for publishing.
func (n *Node) Network() *networking.Service {
	return n.net
}
