package networking

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/multiformats/go-multiaddr"
)

const DefaultListenAddr = "/ip4/0.0.0.0/udp/9000/quic-v1"

// HostConfig holds configuration for creating a libp2p host.
type HostConfig struct {
	PrivateKey  crypto.PrivKey
	ListenAddrs []string
}

// NewHost creates a libp2p host. A fresh secp256k1 identity is generated when
// no key is configured, and QUIC on UDP 9000 is the default listen address.
func NewHost(ctx context.Context, cfg HostConfig) (host.Host, error) {
	privKey := cfg.PrivateKey
	if privKey == nil {
		var err error
		privKey, _, err = crypto.GenerateKeyPairWithReader(crypto.Secp256k1, 256, rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("generate key: %w", err)
		}
	}

	listenAddrs := cfg.ListenAddrs
	if len(listenAddrs) == 0 {
		listenAddrs = []string{DefaultListenAddr}
	}

	h, err := libp2p.New(
		libp2p.Identity(privKey),
		libp2p.ListenAddrStrings(listenAddrs...),
	)
	if err != nil {
		return nil, fmt.Errorf("create host: %w", err)
	}
	return h, nil
}

// ParseBootnodes parses ENR records and multiaddr strings carrying a /p2p peer
// id into peer.AddrInfo. Unparseable entries are returned in skipped. Addresses
// for the same peer are merged.
func ParseBootnodes(addrs []string) (peers []peer.AddrInfo, skipped []string) {
	index := make(map[peer.ID]int)
	for _, addr := range addrs {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		pi, err := parseBootnode(addr)
		if err != nil {
			skipped = append(skipped, addr)
			continue
		}
		if i, ok := index[pi.ID]; ok {
			peers[i].Addrs = append(peers[i].Addrs, pi.Addrs...)
			continue
		}
		index[pi.ID] = len(peers)
		peers = append(peers, *pi)
	}
	return peers, skipped
}

func parseBootnode(addr string) (*peer.AddrInfo, error) {
	if strings.HasPrefix(addr, "enr:") {
		return ENRToAddrInfo(addr)
	}
	ma, err := multiaddr.NewMultiaddr(addr)
	if err != nil {
		return nil, err
	}
	return peer.AddrInfoFromP2pAddr(ma)
}
