// Package chainsync catches the local chain up with its peers.
//
// The dialer of a new connection sends Status first. When the peer's head is
// ahead of ours, or a gossip block arrives whose parent we never stored, the
// syncer walks parent links back over BlocksByRoot until it reaches a stored
// block and imports what it fetched, oldest first.
//
// Requests retry with exponential backoff (1s, 2s, 4s, at most 3 retries).
package chainsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/multiformats/go-multiaddr"

	"github.com/geanlabs/pqlean/networking/reqresp"
	"github.com/geanlabs/pqlean/types"
)

// ChainStore is the part of the chain the syncer reads and extends.
type ChainStore interface {
	HasBlock(root types.Root) (bool, error)
	// ImportBlock verifies and stores a block whose parent is already stored.
	ImportBlock(sb *types.SignedBlockWithAttestation) (types.Root, error)
}

const (
	reqrespTimeout = 30 * time.Second
	maxSyncRetries = 3
	baseRetryDelay = 1 * time.Second

	// MaxFetchDepth bounds how many ancestors one walk may request.
	MaxFetchDepth = 256
)

var (
	ErrSyncInProgress = errors.New("sync already running")
	ErrMissingBlock   = errors.New("peer did not return the requested block")
	ErrChainTooLong   = errors.New("missing ancestry exceeds fetch depth")
)

type Syncer struct {
	host       host.Host
	store      ChainStore
	streams    *reqresp.StreamHandler
	status     *reqresp.Handler
	logger     *slog.Logger
	retryDelay time.Duration

	mu         sync.RWMutex
	peerStatus map[peer.ID]*reqresp.Status
	syncing    bool

	pendingMu sync.Mutex
	pending   map[types.Root]struct{}

	ctx    context.Context
	cancel context.CancelFunc
}

type Config struct {
	Host          host.Host
	Store         ChainStore
	StreamHandler *reqresp.StreamHandler
	Status        *reqresp.Handler
	Logger        *slog.Logger
	// RetryDelay is the first backoff step; zero means one second.
	RetryDelay time.Duration
}

func NewSyncer(ctx context.Context, cfg Config) *Syncer {
	ctx, cancel := context.WithCancel(ctx)

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = baseRetryDelay
	}

	return &Syncer{
		host:       cfg.Host,
		store:      cfg.Store,
		streams:    cfg.StreamHandler,
		status:     cfg.Status,
		logger:     logger,
		retryDelay: delay,
		peerStatus: make(map[peer.ID]*reqresp.Status),
		pending:    make(map[types.Root]struct{}),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start registers the connection notifier and greets peers that connected
// before the syncer was running.
func (s *Syncer) Start() {
	s.host.Network().Notify(&connectionNotifier{syncer: s})

	for _, pid := range s.host.Network().Peers() {
		go s.greet(pid)
	}
	s.logger.Info("syncer started")
}

func (s *Syncer) Stop() {
	s.cancel()
	s.logger.Info("syncer stopped")
}

func (s *Syncer) greet(pid peer.ID) {
	ctx, cancel := context.WithTimeout(s.ctx, reqrespTimeout)
	defer cancel()
	if err := s.InitiateStatusExchange(ctx, pid); err != nil {
		s.logger.Warn("status exchange failed", "peer", pid, "error", err)
	}
}

// InitiateStatusExchange sends our status, records the peer's, and syncs to
// the peer's head when it is ahead of ours.
func (s *Syncer) InitiateStatusExchange(ctx context.Context, pid peer.ID) error {
	ours, err := s.status.GetStatus()
	if err != nil {
		return fmt.Errorf("local status: %w", err)
	}

	theirs, err := s.streams.SendStatus(ctx, pid, ours)
	if err != nil {
		return fmt.Errorf("send status: %w", err)
	}
	s.logger.Debug("received peer status",
		"peer", pid,
		"head_slot", theirs.Head.Slot,
		"finalized_slot", theirs.Finalized.Slot,
	)

	if err := s.status.ValidatePeerStatus(theirs); err != nil {
		s.logger.Warn("invalid peer status, disconnecting", "peer", pid, "error", err)
		s.host.Network().ClosePeer(pid)
		return err
	}

	s.mu.Lock()
	s.peerStatus[pid] = theirs
	s.mu.Unlock()

	if theirs.Head.Slot <= ours.Head.Slot {
		return nil
	}
	s.logger.Info("peer ahead, syncing",
		"peer", pid,
		"peer_head_slot", theirs.Head.Slot,
		"our_head_slot", ours.Head.Slot,
	)
	n, err := s.SyncToRoot(ctx, pid, theirs.Head.Root)
	if err != nil {
		return err
	}
	s.logger.Info("sync complete", "peer", pid, "imported", n)
	return nil
}

// SyncToRoot fetches root and every missing ancestor from pid and imports them.
// Only one walk runs at a time.
func (s *Syncer) SyncToRoot(ctx context.Context, pid peer.ID, root types.Root) (int, error) {
	s.mu.Lock()
	if s.syncing {
		s.mu.Unlock()
		return 0, ErrSyncInProgress
	}
	s.syncing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.syncing = false
		s.mu.Unlock()
	}()

	return s.fetchChain(ctx, pid, root)
}

// OnUnknownParent fetches the missing ancestry of a gossip block, then imports
// the block itself. Concurrent calls for the same parent collapse into one.
func (s *Syncer) OnUnknownParent(ctx context.Context, sb *types.SignedBlockWithAttestation, from peer.ID) error {
	parent := sb.Message.Block.ParentRoot

	s.pendingMu.Lock()
	if _, busy := s.pending[parent]; busy {
		s.pendingMu.Unlock()
		return nil
	}
	s.pending[parent] = struct{}{}
	s.pendingMu.Unlock()

	defer func() {
		s.pendingMu.Lock()
		delete(s.pending, parent)
		s.pendingMu.Unlock()
	}()

	s.logger.Debug("requesting parent chain", "root", parent.Short(), "peer", from)
	if _, err := s.fetchChain(ctx, from, parent); err != nil {
		return fmt.Errorf("fetch parent chain: %w", err)
	}
	if _, err := s.store.ImportBlock(sb); err != nil {
		return fmt.Errorf("import block: %w", err)
	}
	return nil
}

// fetchChain walks parent links back from root until it reaches a stored
// block, then imports the collected blocks oldest first.
func (s *Syncer) fetchChain(ctx context.Context, pid peer.ID, root types.Root) (int, error) {
	var fetched []*types.SignedBlockWithAttestation
	for {
		known, err := s.store.HasBlock(root)
		if err != nil {
			return 0, err
		}
		if known {
			break
		}
		if len(fetched) == MaxFetchDepth {
			return 0, fmt.Errorf("%w: %d blocks", ErrChainTooLong, MaxFetchDepth)
		}

		blocks, err := s.requestBlocksWithRetry(ctx, pid, []types.Root{root})
		if err != nil {
			return 0, err
		}
		sb := findBlock(blocks, root)
		if sb == nil {
			return 0, fmt.Errorf("%w: %s", ErrMissingBlock, root.Short())
		}
		if sb.Message.Block.Slot == 0 {
			return 0, fmt.Errorf("%w: peer genesis %s differs from ours", ErrMissingBlock, root.Short())
		}
		fetched = append(fetched, sb)
		root = sb.Message.Block.ParentRoot
	}

	imported := 0
	for i := len(fetched) - 1; i >= 0; i-- {
		sb := fetched[i]
		if _, err := s.store.ImportBlock(sb); err != nil {
			return imported, fmt.Errorf("import slot %d: %w", sb.Message.Block.Slot, err)
		}
		imported++
		s.logger.Info("synced block",
			"slot", sb.Message.Block.Slot,
			"proposer", sb.Message.Block.ProposerIndex,
		)
	}
	return imported, nil
}

// findBlock returns the block in blocks whose root is root.
func findBlock(blocks []*types.SignedBlockWithAttestation, root types.Root) *types.SignedBlockWithAttestation {
	for _, sb := range blocks {
		r, err := sb.Message.Block.HashTreeRoot()
		if err == nil && types.Root(r) == root {
			return sb
		}
	}
	return nil
}

func (s *Syncer) requestBlocksWithRetry(ctx context.Context, pid peer.ID, roots []types.Root) ([]*types.SignedBlockWithAttestation, error) {
	var lastErr error
	for attempt := 0; attempt <= maxSyncRetries; attempt++ {
		if attempt > 0 {
			delay := s.retryDelay * time.Duration(1<<(attempt-1))
			s.logger.Debug("retrying block request", "peer", pid, "attempt", attempt+1, "delay", delay)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-s.ctx.Done():
				return nil, s.ctx.Err()
			case <-time.After(delay):
			}
		}

		blocks, err := s.streams.RequestBlocksByRoot(ctx, pid, roots)
		if err == nil {
			return blocks, nil
		}
		lastErr = err
		s.logger.Debug("block request failed", "peer", pid, "attempt", attempt+1, "error", err)
	}
	return nil, fmt.Errorf("after %d retries: %w", maxSyncRetries, lastErr)
}

// PeerStatus returns the last status pid sent us.
func (s *Syncer) PeerStatus(pid peer.ID) (*reqresp.Status, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.peerStatus[pid]
	return st, ok
}

func (s *Syncer) RemovePeer(pid peer.ID) {
	s.mu.Lock()
	delete(s.peerStatus, pid)
	s.mu.Unlock()
}

type connectionNotifier struct {
	syncer *Syncer
}

func (n *connectionNotifier) Listen(network.Network, multiaddr.Multiaddr)      {}
func (n *connectionNotifier) ListenClose(network.Network, multiaddr.Multiaddr) {}

// Connected greets outbound peers. Inbound peers send Status to us.
func (n *connectionNotifier) Connected(_ network.Network, conn network.Conn) {
	if conn.Stat().Direction != network.DirOutbound {
		return
	}
	go n.syncer.greet(conn.RemotePeer())
}

func (n *connectionNotifier) Disconnected(_ network.Network, conn network.Conn) {
	n.syncer.RemovePeer(conn.RemotePeer())
}

var _ network.Notifiee = (*connectionNotifier)(nil)
