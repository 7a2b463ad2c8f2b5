package xmss

import (
	"errors"
	"fmt"

	"github.com/geanlabs/pqlean/types"
)

// Code is the vendor status code reported by the native signature library.
type Code uint8

const (
	CodeOk               Code = 0
	CodeNullPointer      Code = 1
	CodeInvalidLength    Code = 2
	CodeDeserializeError Code = 3
	CodeSigningFailed    Code = 4
	CodeAggregateFailed  Code = 5
	CodeProofFailed      Code = 6
	CodeInternalError    Code = 7
	CodePanic            Code = 255
)

func (c Code) String() string {
	switch c {
	case CodeOk:
		return "ok"
	case CodeNullPointer:
		return "null pointer"
	case CodeInvalidLength:
		return "invalid length"
	case CodeDeserializeError:
		return "deserialize error"
	case CodeSigningFailed:
		return "signing failed"
	case CodeAggregateFailed:
		return "aggregate failed"
	case CodeProofFailed:
		return "proof failed"
	case CodeInternalError:
		return "internal error"
	case CodePanic:
		return "panic"
	default:
		return fmt.Sprintf("code(%d)", uint8(c))
	}
}

var (
	ErrInvalidMessageLength = errors.New("xmss: message must be 32 bytes")
	ErrCountMismatch        = errors.New("xmss: public key and signature counts differ")
)

// CryptoError is a failed call into the signature backend. It matches
// types.ErrCryptoOperationFailed under errors.Is.
type CryptoError struct {
	Op   string
	Code Code
}

func (e *CryptoError) Error() string {
	return fmt.Sprintf("xmss %s failed: %s", e.Op, e.Code)
}

func (e *CryptoError) Is(target error) bool {
	return target == types.ErrCryptoOperationFailed
}

// asCryptoError maps any backend failure onto a CryptoError for op. Backends
// that already return a CryptoError keep their code; anything else is an
// internal error.
func asCryptoError(op string, err error) error {
	var ce *CryptoError
	if errors.As(err, &ce) {
		return &CryptoError{Op: op, Code: ce.Code}
	}
	return &CryptoError{Op: op, Code: CodeInternalError}
}
