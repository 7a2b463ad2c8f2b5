// Package xmss adapts an opaque XMSS signing and aggregation backend to the
// consensus types: fixed 32-byte messages and fixed-width signatures.
package xmss

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/geanlabs/pqlean/common/ssz"
	"github.com/geanlabs/pqlean/observability/metrics"
	"github.com/geanlabs/pqlean/types"
)

// MessageLength is the only message size the backend signs.
const MessageLength = 32

// Backend is the native signature library. Implementations report failures as
// *CryptoError when they know the vendor code.
type Backend interface {
	GenerateKeyPair(activationEpoch, numActiveEpochs uint32) (pk, sk []byte, err error)
	Sign(sk []byte, epoch uint32, msg []byte) ([]byte, error)
	Verify(pk []byte, epoch uint32, msg, sig []byte) (bool, error)
	Aggregate(pks, sigs [][]byte, msg []byte, epoch uint32) ([]byte, error)
	VerifyAggregate(pks [][]byte, msg, agg []byte, epoch uint32) (bool, error)
}

// Service enforces the message and signature width contracts around a Backend.
type Service struct {
	backend Backend
	logger  *slog.Logger
}

func NewService(backend Backend, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{backend: backend, logger: logger}
}

func checkMessage(msg []byte) error {
	if len(msg) != MessageLength {
		return fmt.Errorf("%w: got %d bytes", ErrInvalidMessageLength, len(msg))
	}
	return nil
}

// GenerateKeyPair returns a key pair active for numActiveEpochs epochs from activationEpoch.
func (s *Service) GenerateKeyPair(activationEpoch, numActiveEpochs uint32) (types.Pubkey, []byte, error) {
	pk, sk, err := s.backend.GenerateKeyPair(activationEpoch, numActiveEpochs)
	if err != nil {
		return types.Pubkey{}, nil, asCryptoError("keygen", err)
	}
	pubkey, err := types.PubkeyFromBytes(pk)
	if err != nil {
		return types.Pubkey{}, nil, fmt.Errorf("xmss keygen: %w", err)
	}
	return pubkey, sk, nil
}

// Sign signs a 32-byte message for epoch.
func (s *Service) Sign(sk []byte, epoch uint32, msg []byte) (types.Signature, error) {
	if err := checkMessage(msg); err != nil {
		return types.Signature{}, err
	}
	raw, err := s.backend.Sign(sk, epoch, msg)
	if err != nil {
		return types.Signature{}, asCryptoError("sign", err)
	}
	sig, err := types.SignatureFromBytes(raw)
	if err != nil {
		return types.Signature{}, fmt.Errorf("xmss sign: %w", err)
	}
	return sig, nil
}

func (s *Service) Verify(pk types.Pubkey, epoch uint32, msg []byte, sig types.Signature) (bool, error) {
	if err := checkMessage(msg); err != nil {
		return false, err
	}
	ok, err := s.backend.Verify(pk[:], epoch, msg, sig[:])
	if err != nil {
		return false, asCryptoError("verify", err)
	}
	return ok, nil
}

// Aggregate combines one signature per public key into a single proof.
func (s *Service) Aggregate(pks []types.Pubkey, sigs []types.Signature, msg []byte, epoch uint32) ([]byte, error) {
	if err := checkMessage(msg); err != nil {
		return nil, err
	}
	if len(pks) != len(sigs) {
		return nil, fmt.Errorf("%w: %d keys, %d signatures", ErrCountMismatch, len(pks), len(sigs))
	}
	start := time.Now()
	proof, err := s.backend.Aggregate(pubkeyBytes(pks), signatureBytes(sigs), msg, epoch)
	if err != nil {
		s.logger.Warn("aggregation failed", "signers", len(pks), "epoch", epoch, "err", err)
		return nil, asCryptoError("aggregate", err)
	}
	metrics.ObserveAggregation(start)
	s.logger.Debug("aggregated signatures",
		"signers", len(pks),
		"epoch", epoch,
		"proof_bytes", len(proof),
		"took", time.Since(start),
	)
	return proof, nil
}

func (s *Service) VerifyAggregate(pks []types.Pubkey, msg, proof []byte, epoch uint32) (bool, error) {
	if err := checkMessage(msg); err != nil {
		return false, err
	}
	ok, err := s.backend.VerifyAggregate(pubkeyBytes(pks), msg, proof, epoch)
	if err != nil {
		return false, asCryptoError("verify aggregate", err)
	}
	return ok, nil
}

// SigningRoot is the 32-byte message a validator signs for obj.
func SigningRoot(obj ssz.Object) ([]byte, error) {
	root, err := obj.HashTreeRoot()
	if err != nil {
		return nil, fmt.Errorf("signing root: %w", err)
	}
	return root[:], nil
}

func pubkeyBytes(pks []types.Pubkey) [][]byte {
	out := make([][]byte, len(pks))
	for i := range pks {
		out[i] = pks[i][:]
	}
	return out
}

func signatureBytes(sigs []types.Signature) [][]byte {
	out := make([][]byte, len(sigs))
	for i := range sigs {
		out[i] = sigs[i][:]
	}
	return out
}
