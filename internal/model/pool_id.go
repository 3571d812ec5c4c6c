package model

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// PoolID is the opaque identifier a pool is addressed by.
type PoolID string

// DerivePoolID hashes the ordered asset pair and fee parameters.
// Swapping asset0 and asset1 yields a different pool.
func DerivePoolID(asset0, asset1 string, feeNumerator, feeDenominator uint64) PoolID {
	fee := make([]byte, 16)
	binary.BigEndian.PutUint64(fee[:8], feeNumerator)
	binary.BigEndian.PutUint64(fee[8:], feeDenominator)

	hash := crypto.Keccak256Hash(
		[]byte("pool"),
		lengthPrefixed(asset0),
		lengthPrefixed(asset1),
		fee,
	)
	return PoolID(strings.ToLower(hash.Hex()))
}

// ParsePoolID validates a hex pool identifier.
func ParsePoolID(input string) (PoolID, error) {
	input = strings.TrimSpace(input)
	data, err := hexutil.Decode(input)
	if err != nil {
		return "", fmt.Errorf("invalid pool id: %s", input)
	}
	if len(data) != common.HashLength {
		return "", fmt.Errorf("invalid pool id length: %s", input)
	}
	return PoolID(strings.ToLower(common.BytesToHash(data).Hex())), nil
}

// Short returns an abbreviated form for logs and metric labels.
func (id PoolID) Short() string {
	s := string(id)
	if len(s) <= 10 {
		return s
	}
	return s[:10]
}

func lengthPrefixed(s string) []byte {
	out := make([]byte, 4+len(s))
	binary.BigEndian.PutUint32(out, uint32(len(s)))
	copy(out[4:], s)
	return out
}
