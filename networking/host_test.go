package networking

import (
	"crypto/rand"
	"testing"

	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"
)

func testPeerID(t *testing.T) peer.ID {
	t.Helper()
	priv, _, err := crypto.GenerateEd25519Key(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateEd25519Key: %v", err)
	}
	id, err := peer.IDFromPrivateKey(priv)
	if err != nil {
		t.Fatalf("IDFromPrivateKey: %v", err)
	}
	return id
}

func TestParseBootnodes(t *testing.T) {
	a := testPeerID(t)
	b := testPeerID(t)

	addrs := []string{
		"/ip4/127.0.0.1/udp/9000/quic-v1/p2p/" + a.String(),
		"  ",
		"enr:-IW4QA0pljjdLfxS_EyUxNAxJSoGCwmOVNJauYWsTiYHyWG5Bky-7yCEktSvu_w-PWUrmzbc8vYL_Mx5pgsAix2OfOMBgmlkgnY0",
		"/ip4/10.0.0.2/udp/9001/quic-v1/p2p/" + b.String(),
		"/ip4/127.0.0.2/udp/9000/quic-v1/p2p/" + a.String(),
		"/ip4/127.0.0.1/udp/9000/quic-v1",
		"not a multiaddr",
	}

	peers, skipped := ParseBootnodes(addrs)
	if len(peers) != 2 {
		t.Fatalf("len(peers) = %d, want 2", len(peers))
	}
	if peers[0].ID != a || peers[1].ID != b {
		t.Errorf("peer order = %s,%s, want %s,%s", peers[0].ID, peers[1].ID, a, b)
	}
	if len(peers[0].Addrs) != 2 {
		t.Errorf("len(peers[0].Addrs) = %d, want 2", len(peers[0].Addrs))
	}
	if len(skipped) != 3 {
		t.Errorf("len(skipped) = %d, want 3: %v", len(skipped), skipped)
	}
}

func TestParseBootnodes_Empty(t *testing.T) {
	peers, skipped := ParseBootnodes(nil)
	if len(peers) != 0 || len(skipped) != 0 {
		t.Errorf("ParseBootnodes(nil) = %v, %v", peers, skipped)
	}
}
