package chain

import (
	"errors"
	"math/big"

	"github.com/google/uuid"
)

// ErrFileIDOutOfRange is returned when an on-chain file identifier cannot
// be a 128-bit unsigned integer.
var ErrFileIDOutOfRange = errors.New("chain: file id out of uint128 range")

// maxFileID is 2^128, one past the largest encodable UUID.
var maxFileID = new(big.Int).Lsh(big.NewInt(1), 128)

// EncodeFileID maps a UUID to the unsigned big-endian 128-bit integer the
// smart contract stores: the UUID's 16 bytes interpreted as one number.
func EncodeFileID(id uuid.UUID) *big.Int {
	return new(big.Int).SetBytes(id[:])
}

// DecodeFileID is the exact inverse of EncodeFileID. Values that are nil,
// negative, or >= 2^128 are rejected. Smaller values are left-padded with
// zero bytes, which reproduces the UUID's leading zeros.
func DecodeFileID(v *big.Int) (uuid.UUID, error) {
	if v == nil || v.Sign() < 0 || v.Cmp(maxFileID) >= 0 {
		return uuid.Nil, ErrFileIDOutOfRange
	}

	var id uuid.UUID
	v.FillBytes(id[:])
	return id, nil
}
