package types

import (
	"encoding/json"
	"testing"

	"github.com/Cleverse/go-utilities/utils"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/gaze-network/inscription-indexer/common/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInscriptionIdFromString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected InscriptionId
		wantErr  bool
	}{
		{
			name:  "valid",
			input: "1111111111111111111111111111111111111111111111111111111111111111i0",
			expected: InscriptionId{
				TxHash: *utils.Must(chainhash.NewHashFromStr("1111111111111111111111111111111111111111111111111111111111111111")),
				Index:  0,
			},
		},
		{
			name:  "valid index",
			input: "1111111111111111111111111111111111111111111111111111111111111111i42",
			expected: InscriptionId{
				TxHash: *utils.Must(chainhash.NewHashFromStr("1111111111111111111111111111111111111111111111111111111111111111")),
				Index:  42,
			},
		},
		{name: "missing separator", input: "1111111111111111111111111111111111111111111111111111111111111111", wantErr: true},
		{name: "short txid", input: "1111i0", wantErr: true},
		{name: "invalid txid", input: "zz11111111111111111111111111111111111111111111111111111111111111i0", wantErr: true},
		{name: "invalid index", input: "1111111111111111111111111111111111111111111111111111111111111111ix", wantErr: true},
		{name: "negative index", input: "1111111111111111111111111111111111111111111111111111111111111111i-1", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual, err := NewInscriptionIdFromString(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, errs.InvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, actual)
			assert.Equal(t, tt.input, actual.String())
		})
	}
}

func TestInscriptionIdJSON(t *testing.T) {
	id := InscriptionId{TxHash: *utils.Must(chainhash.NewHashFromStr("2222222222222222222222222222222222222222222222222222222222222222")), Index: 3}
	data, err := json.Marshal(id)
	require.NoError(t, err)
	assert.Equal(t, `"2222222222222222222222222222222222222222222222222222222222222222i3"`, string(data))

	var decoded InscriptionId
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, id, decoded)

	assert.Error(t, json.Unmarshal([]byte(`3`), &decoded))
}

func TestSequence(t *testing.T) {
	t.Run("orders by height then reveal index", func(t *testing.T) {
		a := utils.Must(NewSequence(100, MaxRevealIndex))
		b := utils.Must(NewSequence(101, 0))
		c := utils.Must(NewSequence(101, 1))
		assert.Less(t, a, b)
		assert.Less(t, b, c)
	})
	t.Run("round trip", func(t *testing.T) {
		s := utils.Must(NewSequence(840000, 1234))
		assert.Equal(t, int64(840000), s.BlockHeight())
		assert.Equal(t, int64(1234), s.RevealIndex())
		assert.Equal(t, "840000:1234", s.String())
	})
	t.Run("out of range", func(t *testing.T) {
		_, err := NewSequence(-1, 0)
		assert.ErrorIs(t, err, errs.InvalidArgument)
		_, err = NewSequence(1, MaxRevealIndex+1)
		assert.ErrorIs(t, err, errs.InvalidArgument)
	})
}
