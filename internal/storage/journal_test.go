package storage

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liquidityPool/internal/model"
)

func TestJournalRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "journal.jsonl")
	journal := NewJournal(path)

	require.NoError(t, journal.Append())
	require.NoError(t, ReadJournal(path, func(model.OperationEntry) error {
		t.Fatal("empty journal must have no entries")
		return nil
	}))

	state := model.PoolState{Reserve0: 135, Reserve1: 117, ClaimSupply: 125, FeeNumerator: 1, FeeDenominator: 10000}
	delta := model.OperationDelta{Reserve0In: 10, Reserve1Out: 8}
	require.NoError(t, journal.Append(model.OperationRecord{
		PoolID:    "0xabc",
		Kind:      model.OpSwap,
		Account:   "trader",
		Status:    model.StatusCommitted,
		Delta:     &delta,
		State:     &state,
		Version:   5,
		Timestamp: 1700000000,
		Data:      model.SwapData{AssetIn: model.Asset0, AmountIn: 10, AmountInAfterFee: 9, AmountOut: 8},
	}))
	require.NoError(t, journal.Append(model.OperationRecord{
		PoolID:     "0xabc",
		Kind:       model.OpSwap,
		Account:    "trader",
		Status:     model.StatusRejected,
		ErrorClass: "economic",
		Error:      "output amount less than minimum required",
		Timestamp:  1700000001,
	}))

	var entries []model.OperationEntry
	require.NoError(t, ReadJournal(path, func(e model.OperationEntry) error {
		entries = append(entries, e)
		return nil
	}))
	require.Len(t, entries, 2)

	assert.Equal(t, model.StatusCommitted, entries[0].Status)
	assert.Equal(t, &state, entries[0].State)
	assert.Equal(t, &delta, entries[0].Delta)
	var data model.SwapData
	require.NoError(t, json.Unmarshal(entries[0].Data, &data))
	assert.Equal(t, uint64(8), data.AmountOut)

	assert.Equal(t, "economic", entries[1].ErrorClass)
	assert.Nil(t, entries[1].Delta)
}

func TestDecodeJSONLReportsLine(t *testing.T) {
	input := "{\"kind\":\"swap\"}\n\n{not json}\n"
	var n int
	err := DecodeJSONL(strings.NewReader(input), func(model.OperationEntry) error {
		n++
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")
	assert.Equal(t, 1, n)
}
