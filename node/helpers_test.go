package node

import (
	"bytes"
	"io"
	"log/slog"
	"testing"

	"github.com/geanlabs/pqlean/common/ssz"
	"github.com/geanlabs/pqlean/crypto/xmss"
	"github.com/geanlabs/pqlean/internal/genesis"
	"github.com/geanlabs/pqlean/storage/chaindb"
	"github.com/geanlabs/pqlean/storage/memory"
	"github.com/geanlabs/pqlean/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testGenesis(validators int) *genesis.GenesisConfig {
	gen := &genesis.GenesisConfig{GenesisTime: 1000}
	for i := 0; i < validators; i++ {
		gen.GenesisValidators = append(gen.GenesisValidators, types.Pubkey{byte(i + 1)})
	}
	return gen
}

func newTestChain(t *testing.T, validators int) *chain {
	t.Helper()
	c, err := initChain(chaindb.New(memory.New()), testGenesis(validators), discardLogger())
	if err != nil {
		t.Fatalf("initChain: %v", err)
	}
	return c
}

// macBackend signs with SHA-256(pk || msg) tiled over the signature; an
// aggregate proof is the concatenation of per-key tags.
type macBackend struct{}

func mac(pk, msg []byte) []byte {
	h := ssz.Hash(append(bytes.Clone(pk), msg...))
	return h[:]
}

func (macBackend) GenerateKeyPair(uint32, uint32) ([]byte, []byte, error) {
	return nil, nil, nil
}

func (macBackend) Sign(sk []byte, _ uint32, msg []byte) ([]byte, error) {
	sig := make([]byte, types.SignatureSize)
	copy(sig, mac(sk, msg))
	return sig, nil
}

func (macBackend) Verify(pk []byte, _ uint32, msg, sig []byte) (bool, error) {
	return bytes.Equal(sig[:32], mac(pk, msg)), nil
}

func (macBackend) Aggregate(pks, _ [][]byte, msg []byte, _ uint32) ([]byte, error) {
	var proof []byte
	for _, pk := range pks {
		proof = append(proof, mac(pk, msg)...)
	}
	return proof, nil
}

func (b macBackend) VerifyAggregate(pks [][]byte, msg, agg []byte, epoch uint32) (bool, error) {
	want, _ := b.Aggregate(pks, nil, msg, epoch)
	return bytes.Equal(want, agg), nil
}

func testSigner() *xmss.Service {
	return xmss.NewService(macBackend{}, discardLogger())
}

func signAttestation(t *testing.T, svc *xmss.Service, pk types.Pubkey, data types.AttestationData) types.Signature {
	t.Helper()
	msg, err := xmss.SigningRoot(&data)
	if err != nil {
		t.Fatal(err)
	}
	sig, err := svc.Sign(pk[:], uint32(data.Slot), msg)
	if err != nil {
		t.Fatal(err)
	}
	return sig
}
