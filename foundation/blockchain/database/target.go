package database

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// ErrMalformedTarget is returned when a stored difficulty entry can't be
// interpreted as a valid target.
var ErrMalformedTarget = errors.New("malformed difficulty target")

// MaxTarget is the easiest target a record can be produced against,
// 2^236 - 1. Every valid target is in the range [1, MaxTarget].
var MaxTarget = new(uint256.Int).Sub(
	new(uint256.Int).Lsh(uint256.NewInt(1), 236),
	uint256.NewInt(1),
)

// ParseTarget decodes a big-endian difficulty target and checks it is in
// the valid range.
func ParseTarget(b []byte) (*uint256.Int, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrMalformedTarget)
	}

	if len(b) > 32 {
		return nil, fmt.Errorf("%w: %d bytes exceeds 32", ErrMalformedTarget, len(b))
	}

	target := new(uint256.Int).SetBytes(b)
	if target.IsZero() {
		return nil, fmt.Errorf("%w: zero", ErrMalformedTarget)
	}

	if target.Gt(MaxTarget) {
		return nil, fmt.Errorf("%w: %s exceeds max target", ErrMalformedTarget, target.Hex())
	}

	return target, nil
}

// EncodeTarget returns the minimal big-endian form of the target.
func EncodeTarget(target *uint256.Int) []byte {
	return target.Bytes()
}

// ReadTarget retrieves and decodes the difficulty entry stored under the
// specified key. A missing entry is reported with ErrNotFound.
func ReadTarget(strg Storage, key []byte) (*uint256.Int, error) {
	b, err := strg.Get(key)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}

	target, err := ParseTarget(b)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", key, err)
	}

	return target, nil
}
