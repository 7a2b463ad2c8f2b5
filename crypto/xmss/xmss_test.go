package xmss

import (
	"bytes"
	"errors"
	"testing"

	"github.com/geanlabs/pqlean/common/ssz"
	"github.com/geanlabs/pqlean/types"
)

// fakeBackend signs by tiling SHA-256(pk || epoch || msg) across a signature.
type fakeBackend struct {
	sigSize int
	failOp  string
	failErr error
}

func (f *fakeBackend) fail(op string) error {
	if f.failOp == op {
		return f.failErr
	}
	return nil
}

func (f *fakeBackend) GenerateKeyPair(activation, num uint32) ([]byte, []byte, error) {
	if err := f.fail("keygen"); err != nil {
		return nil, nil, err
	}
	pk := bytes.Repeat([]byte{byte(activation + num)}, types.PubkeySize)
	return pk, pk, nil
}

func (f *fakeBackend) tile(key []byte, epoch uint32, msg []byte) []byte {
	h := ssz.Hash(append(append(bytes.Clone(key), byte(epoch)), msg...))
	out := make([]byte, f.sigSize)
	for i := range out {
		out[i] = h[i%32]
	}
	return out
}

func (f *fakeBackend) Sign(sk []byte, epoch uint32, msg []byte) ([]byte, error) {
	if err := f.fail("sign"); err != nil {
		return nil, err
	}
	return f.tile(sk, epoch, msg), nil
}

func (f *fakeBackend) Verify(pk []byte, epoch uint32, msg, sig []byte) (bool, error) {
	if err := f.fail("verify"); err != nil {
		return false, err
	}
	return bytes.Equal(f.tile(pk, epoch, msg), sig), nil
}

func (f *fakeBackend) Aggregate(pks, sigs [][]byte, msg []byte, epoch uint32) ([]byte, error) {
	if err := f.fail("aggregate"); err != nil {
		return nil, err
	}
	var acc []byte
	for _, pk := range pks {
		acc = append(acc, pk...)
	}
	h := ssz.Hash(append(acc, msg...))
	return h[:], nil
}

func (f *fakeBackend) VerifyAggregate(pks [][]byte, msg, agg []byte, epoch uint32) (bool, error) {
	want, err := f.Aggregate(pks, nil, msg, epoch)
	if err != nil {
		return false, err
	}
	return bytes.Equal(want, agg), nil
}

func newTestService(f *fakeBackend) *Service {
	if f.sigSize == 0 {
		f.sigSize = types.SignatureSize
	}
	return NewService(f, nil)
}

func TestSignVerify(t *testing.T) {
	s := newTestService(&fakeBackend{})
	pk, sk, err := s.GenerateKeyPair(0, 8)
	if err != nil {
		t.Fatalf("GenerateKeyPair() error = %v", err)
	}

	msg, err := SigningRoot(&types.Checkpoint{Root: types.Root{1}, Slot: 3})
	if err != nil {
		t.Fatal(err)
	}
	sig, err := s.Sign(sk, 3, msg)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	ok, err := s.Verify(pk, 3, msg, sig)
	if err != nil || !ok {
		t.Errorf("Verify() = %v, %v; want true", ok, err)
	}
	ok, err = s.Verify(pk, 4, msg, sig)
	if err != nil || ok {
		t.Errorf("Verify() wrong epoch = %v, %v; want false", ok, err)
	}
}

func TestMessageLength(t *testing.T) {
	s := newTestService(&fakeBackend{})
	for _, n := range []int{0, 31, 33} {
		if _, err := s.Sign(nil, 0, make([]byte, n)); !errors.Is(err, ErrInvalidMessageLength) {
			t.Errorf("Sign(%d bytes) error = %v, want ErrInvalidMessageLength", n, err)
		}
		if _, err := s.VerifyAggregate(nil, make([]byte, n), nil, 0); !errors.Is(err, ErrInvalidMessageLength) {
			t.Errorf("VerifyAggregate(%d bytes) error = %v, want ErrInvalidMessageLength", n, err)
		}
	}
}

func TestSignRejectsWrongSignatureWidth(t *testing.T) {
	s := newTestService(&fakeBackend{sigSize: 3100})
	if _, err := s.Sign(nil, 0, make([]byte, MessageLength)); !errors.Is(err, types.ErrLengthMismatch) {
		t.Errorf("error = %v, want ErrLengthMismatch", err)
	}
}

func TestBackendFailuresMapToCryptoError(t *testing.T) {
	tests := []struct {
		name     string
		failErr  error
		wantCode Code
	}{
		{"vendor code kept", &CryptoError{Op: "native", Code: CodeSigningFailed}, CodeSigningFailed},
		{"unknown error", errors.New("boom"), CodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestService(&fakeBackend{failOp: "sign", failErr: tt.failErr})
			_, err := s.Sign(nil, 0, make([]byte, MessageLength))
			if !errors.Is(err, types.ErrCryptoOperationFailed) {
				t.Fatalf("error = %v, want ErrCryptoOperationFailed", err)
			}
			var ce *CryptoError
			if !errors.As(err, &ce) {
				t.Fatalf("error %v is not a *CryptoError", err)
			}
			if ce.Code != tt.wantCode || ce.Op != "sign" {
				t.Errorf("CryptoError = {%s %s}, want {sign %s}", ce.Op, ce.Code, tt.wantCode)
			}
		})
	}
}

func TestAggregate(t *testing.T) {
	s := newTestService(&fakeBackend{})
	msg := make([]byte, MessageLength)
	pks := []types.Pubkey{{1}, {2}}
	sigs := make([]types.Signature, 2)

	proof, err := s.Aggregate(pks, sigs, msg, 1)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	ok, err := s.VerifyAggregate(pks, msg, proof, 1)
	if err != nil || !ok {
		t.Errorf("VerifyAggregate() = %v, %v; want true", ok, err)
	}

	if _, err := s.Aggregate(pks, sigs[:1], msg, 1); !errors.Is(err, ErrCountMismatch) {
		t.Errorf("count mismatch error = %v, want ErrCountMismatch", err)
	}

	failing := newTestService(&fakeBackend{failOp: "aggregate", failErr: &CryptoError{Code: CodeAggregateFailed}})
	_, err = failing.Aggregate(pks, sigs, msg, 1)
	var ce *CryptoError
	if !errors.As(err, &ce) || ce.Code != CodeAggregateFailed {
		t.Errorf("error = %v, want aggregate failed code", err)
	}
}

func TestCodeString(t *testing.T) {
	if CodePanic.String() != "panic" || Code(42).String() != "code(42)" {
		t.Errorf("unexpected code names %q %q", CodePanic, Code(42))
	}
}
