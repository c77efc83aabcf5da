package btcutils

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/gaze-network/inscription-indexer/common/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBitcoinAmount(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
		wantErr  bool
	}{
		{input: "0", expected: 0},
		{input: "0.00001", expected: 1000},
		{input: "1", expected: 100_000_000},
		{input: " 0.1251 ", expected: 12_510_000},
		{input: "2.29980951", expected: 229_980_951},
		{input: "0.00000001", expected: 1},
		{input: "21000000", expected: 2_100_000_000_000_000},
		{input: "0.000000001", wantErr: true},
		{input: "-0.1", wantErr: true},
		{input: "21000000.00000001", wantErr: true},
		{input: "abc", wantErr: true},
		{input: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			sats, err := ParseBitcoinAmount(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, errs.InvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, sats)
		})
	}
}

func TestSatoshiToBitcoin(t *testing.T) {
	assert.Equal(t, "0.00001", SatoshiToBitcoin(1000).String())
	assert.Equal(t, "1", SatoshiToBitcoin(100_000_000).String())
}

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		net      *chaincfg.Params
		expected string
		wantErr  bool
	}{
		{
			name:     "p2wpkh upper case",
			input:    "BC1QW508D6QEJXTDG4Y5R3ZARVARY0C5XW7KV8F3T4",
			net:      &chaincfg.MainNetParams,
			expected: "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4",
		},
		{
			name:     "p2pkh",
			input:    "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa",
			net:      &chaincfg.MainNetParams,
			expected: "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa",
		},
		{
			name:    "wrong network",
			input:   "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4",
			net:     &chaincfg.TestNet3Params,
			wantErr: true,
		},
		{name: "garbage", input: "not-an-address", net: &chaincfg.MainNetParams, wantErr: true},
		{name: "empty", input: "", net: &chaincfg.MainNetParams, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual, err := NormalizeAddress(tt.input, tt.net)
			if tt.wantErr {
				assert.ErrorIs(t, err, errs.InvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, actual)
		})
	}
}
