package types

import "errors"

var (
	ErrLengthMismatch        = errors.New("length mismatch")
	ErrEmptySet              = errors.New("empty set")
	ErrInvalidArgument       = errors.New("invalid argument")
	ErrArithmeticOverflow    = errors.New("arithmetic overflow")
	ErrCryptoOperationFailed = errors.New("crypto operation failed")
)
