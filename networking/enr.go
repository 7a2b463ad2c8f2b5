package networking

import (
	"crypto/ecdsa"
	"fmt"
	"net"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/p2p/enode"
	"github.com/ethereum/go-ethereum/p2p/enr"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/multiformats/go-multiaddr"
)

// ENRToAddrInfo parses an ENR and returns the peer's QUIC dial address.
func ENRToAddrInfo(record string) (*peer.AddrInfo, error) {
	node, err := enode.Parse(enode.ValidSchemes, record)
	if err != nil {
		return nil, fmt.Errorf("parse enr: %w", err)
	}

	ip := node.IP()
	if ip == nil {
		return nil, fmt.Errorf("enr has no IP")
	}
	var quicPort enr.QUIC
	if err := node.Record().Load(&quicPort); err != nil {
		return nil, fmt.Errorf("enr has no quic port: %w", err)
	}
	pubkey := node.Pubkey()
	if pubkey == nil {
		return nil, fmt.Errorf("enr has no public key")
	}

	libp2pKey, err := crypto.UnmarshalSecp256k1PublicKey(ethcrypto.CompressPubkey(pubkey))
	if err != nil {
		return nil, fmt.Errorf("convert pubkey: %w", err)
	}
	pid, err := peer.IDFromPublicKey(libp2pKey)
	if err != nil {
		return nil, fmt.Errorf("derive peer id: %w", err)
	}

	proto := "ip4"
	if ip.To4() == nil {
		proto = "ip6"
	}
	addr, err := multiaddr.NewMultiaddr(fmt.Sprintf("/%s/%s/udp/%d/quic-v1", proto, ip, quicPort))
	if err != nil {
		return nil, fmt.Errorf("build multiaddr: %w", err)
	}
	return &peer.AddrInfo{ID: pid, Addrs: []multiaddr.Multiaddr{addr}}, nil
}

// NewENR signs a record advertising ip and a QUIC port under key.
func NewENR(key *ecdsa.PrivateKey, ip net.IP, quicPort int) (string, error) {
	db, err := enode.OpenDB("")
	if err != nil {
		return "", fmt.Errorf("open node db: %w", err)
	}
	defer db.Close()

	local := enode.NewLocalNode(db, key)
	local.SetStaticIP(ip)
	local.Set(enr.QUIC(quicPort))
	return local.Node().String(), nil
}

// DecodeNodeKey turns a hex secp256k1 private key (0x prefix optional) into a
// libp2p identity.
func DecodeNodeKey(hexKey string) (crypto.PrivKey, error) {
	key, err := ethcrypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("decode node key: %w", err)
	}
	return crypto.UnmarshalSecp256k1PrivateKey(ethcrypto.FromECDSA(key))
}
