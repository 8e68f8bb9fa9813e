package domain

import (
	"errors"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// ZeroAddress is the base58 encoding of 32 zero bytes. It stands for
// "no bidder": the escrow ledger treats a refund to it as a no-op and the
// engine never hands it to the token contract.
const ZeroAddress = "11111111111111111111111111111111"

// ErrInvalidAddress is returned when an account identity fails validation.
var ErrInvalidAddress = errors.New("invalid account address")

// ValidateAddress checks that addr is a base58-encoded 32-byte ed25519
// public key on the curve. The zero address is accepted; callers that must
// exclude it check separately.
func ValidateAddress(addr string) error {
	decoded, err := base58.Decode(addr)
	if err != nil {
		return ErrInvalidAddress
	}
	if len(decoded) != 32 {
		return ErrInvalidAddress
	}
	if addr == ZeroAddress {
		return nil
	}
	if !isOnCurve(decoded) {
		return ErrInvalidAddress
	}
	return nil
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
