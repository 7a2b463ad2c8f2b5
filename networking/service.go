package networking

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/geanlabs/pqlean/common/ssz"
	"github.com/geanlabs/pqlean/types"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
)

type messageFunc func(ctx context.Context, data []byte, from peer.ID) error

// subscription is one joined gossip topic and the handler fed by it.
type subscription struct {
	kind   string
	topic  *pubsub.Topic
	sub    *pubsub.Subscription
	handle messageFunc
}

type Service struct {
	host     host.Host
	pubsub   *pubsub.PubSub
	handlers *MessageHandlers
	logger   *slog.Logger
	topics   Topics

	subs map[string]*subscription

	// Bootnodes that failed initial connection, to be retried.
	mu              sync.Mutex
	failedBootnodes []peer.AddrInfo

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// ServiceConfig holds configuration for the networking service.
type ServiceConfig struct {
	Host      host.Host
	Network   string
	Handlers  *MessageHandlers
	Bootnodes []peer.AddrInfo
	Logger    *slog.Logger
}

// NewService joins and subscribes to the block, attestation and aggregate
// topics, then dials the bootnodes.
func NewService(ctx context.Context, cfg ServiceConfig) (*Service, error) {
	ctx, cancel := context.WithCancel(ctx)

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	handlers := cfg.Handlers
	if handlers == nil {
		handlers = &MessageHandlers{}
	}

	ps, err := NewGossipSub(ctx, cfg.Host)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create gossipsub: %w", err)
	}

	svc := &Service{
		host:     cfg.Host,
		pubsub:   ps,
		handlers: handlers,
		logger:   logger,
		topics:   NewTopics(cfg.Network),
		subs:     make(map[string]*subscription),
		ctx:      ctx,
		cancel:   cancel,
	}

	joins := []struct {
		kind   string
		name   string
		handle messageFunc
	}{
		{KindBlock, svc.topics.Block, handlers.HandleBlockMessage},
		{KindAttestation, svc.topics.Attestation, handlers.HandleAttestationMessage},
		{KindAggregate, svc.topics.Aggregate, handlers.HandleAggregateMessage},
	}
	for _, j := range joins {
		topic, err := ps.Join(j.name)
		if err != nil {
			svc.cancelSubs()
			cancel()
			return nil, fmt.Errorf("join %s topic: %w", j.kind, err)
		}
		sub, err := topic.Subscribe()
		if err != nil {
			svc.cancelSubs()
			cancel()
			return nil, fmt.Errorf("subscribe %s topic: %w", j.kind, err)
		}
		svc.subs[j.kind] = &subscription{kind: j.kind, topic: topic, sub: sub, handle: j.handle}
	}

	for _, pi := range cfg.Bootnodes {
		if err := cfg.Host.Connect(ctx, pi); err != nil {
			logger.Warn("failed to connect to bootnode", "peer", pi.ID, "error", err)
			svc.failedBootnodes = append(svc.failedBootnodes, pi)
		} else {
			logger.Info("connected to bootnode", "peer", pi.ID)
		}
	}

	return svc, nil
}

func (s *Service) Start() {
	for _, sub := range s.subs {
		s.wg.Add(1)
		go s.process(sub)
	}

	s.mu.Lock()
	retry := len(s.failedBootnodes) > 0
	s.mu.Unlock()
	if retry {
		s.wg.Add(1)
		go s.retryBootnodes()
	}

	s.logger.Info("networking service started",
		"peer_id", s.host.ID(),
		"addrs", s.host.Addrs(),
		"topics", len(s.subs),
	)
}

// Stop shuts down the networking service and closes the host.
func (s *Service) Stop() {
	s.cancel()
	s.cancelSubs()
	s.wg.Wait()
	s.host.Close()
	s.logger.Info("networking service stopped")
}

func (s *Service) cancelSubs() {
	for _, sub := range s.subs {
		sub.sub.Cancel()
	}
}

func (s *Service) Topics() Topics { return s.topics }

func (s *Service) publish(ctx context.Context, kind string, obj ssz.Object) error {
	sub, ok := s.subs[kind]
	if !ok {
		return fmt.Errorf("no %s topic", kind)
	}
	payload, err := EncodeMessage(obj)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", kind, err)
	}
	return sub.topic.Publish(ctx, payload)
}

// PublishBlock publishes a signed block to the network.
func (s *Service) PublishBlock(ctx context.Context, block *types.SignedBlockWithAttestation) error {
	return s.publish(ctx, KindBlock, block)
}

// PublishAttestation publishes a signed attestation to the network.
func (s *Service) PublishAttestation(ctx context.Context, att *types.SignedAttestation) error {
	return s.publish(ctx, KindAttestation, att)
}

// PublishAggregate publishes an aggregated attestation to the network.
func (s *Service) PublishAggregate(ctx context.Context, agg *types.AggregatedAttestation) error {
	return s.publish(ctx, KindAggregate, agg)
}

// PeerCount returns the number of connected peers.
func (s *Service) PeerCount() int {
	return len(s.host.Network().Peers())
}

const bootnodeRetryInterval = 30 * time.Second

// retryBootnodes periodically retries connecting to failed bootnodes.
func (s *Service) retryBootnodes() {
	defer s.wg.Done()

	ticker := time.NewTicker(bootnodeRetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			pending := s.failedBootnodes
			s.mu.Unlock()

			var remaining []peer.AddrInfo
			for _, pi := range pending {
				if err := s.host.Connect(s.ctx, pi); err != nil {
					s.logger.Debug("bootnode reconnect failed", "peer", pi.ID, "error", err)
					remaining = append(remaining, pi)
				} else {
					s.logger.Info("reconnected to bootnode", "peer", pi.ID)
				}
			}

			s.mu.Lock()
			s.failedBootnodes = remaining
			s.mu.Unlock()
			if len(remaining) == 0 {
				s.logger.Debug("all bootnodes connected, stopping retry")
				return
			}
		}
	}
}

// process feeds messages from one subscription to its handler.
func (s *Service) process(sub *subscription) {
	defer s.wg.Done()

	for {
		msg, err := sub.sub.Next(s.ctx)
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			s.logger.Error("subscription error", "topic", sub.kind, "error", err)
			continue
		}

		// Skip self-published messages
		if msg.ReceivedFrom == s.host.ID() {
			continue
		}

		if err := sub.handle(s.ctx, msg.Data, msg.ReceivedFrom); err != nil {
			s.logger.Warn("dropping gossip message", "topic", sub.kind, "peer", msg.ReceivedFrom, "error", err)
		}
	}
}
