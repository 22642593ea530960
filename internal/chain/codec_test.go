package chain

import (
	"math/big"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileIDRoundTrip(t *testing.T) {
	ids := []string{
		"d94197c2-7c45-4eb1-a0f1-871c3d9a5ec3",
		"00000000-0000-0000-0000-000000000001",
		"00010203-0405-0607-0809-0a0b0c0d0e0f",
		"ffffffff-ffff-ffff-ffff-ffffffffffff",
		"00000000-0000-0000-0000-000000000000",
	}

	for _, raw := range ids {
		id := uuid.MustParse(raw)
		decoded, err := DecodeFileID(EncodeFileID(id))
		require.NoError(t, err, raw)
		assert.Equal(t, id, decoded, raw)
	}
}

func TestEncodeFileIDIsBigEndian(t *testing.T) {
	id := uuid.MustParse("00000000-0000-0000-0000-0000000000ff")
	assert.Equal(t, int64(255), EncodeFileID(id).Int64())

	id = uuid.MustParse("ffffffff-ffff-ffff-ffff-ffffffffffff")
	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	assert.Zero(t, EncodeFileID(id).Cmp(max))
}

func TestDecodeFileIDRejectsOutOfRange(t *testing.T) {
	cases := map[string]*big.Int{
		"nil":      nil,
		"negative": big.NewInt(-1),
		"2^128":    new(big.Int).Lsh(big.NewInt(1), 128),
		"2^128+1":  new(big.Int).Add(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1)),
	}

	for name, v := range cases {
		_, err := DecodeFileID(v)
		assert.ErrorIs(t, err, ErrFileIDOutOfRange, name)
	}
}

func TestDecodeFileIDPadsLeadingZeros(t *testing.T) {
	decoded, err := DecodeFileID(big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, "00000000-0000-0000-0000-000000000001", decoded.String())
}
