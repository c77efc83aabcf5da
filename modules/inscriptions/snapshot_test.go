package inscriptions

import (
	"context"
	"testing"

	"github.com/Cleverse/go-utilities/utils"
	"github.com/gaze-network/inscription-indexer/common/errs"
	"github.com/gaze-network/inscription-indexer/core/types"
	"github.com/gaze-network/inscription-indexer/modules/inscriptions/internal/entity"
	"github.com/gaze-network/inscription-indexer/modules/inscriptions/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockSnapshot(t *testing.T) {
	ctx := context.Background()
	seq := func(height, index int64) types.Sequence {
		return utils.Must(types.NewSequence(height, index))
	}

	store := newMemStore()
	stored := &entity.Bitmap{InscriptionId: testInscriptionId(testHeight+5, 0), BitmapNumber: 7, Sequence: seq(testHeight+5, 0)}
	_, err := store.UpsertBitmap(ctx, stored)
	require.NoError(t, err)

	snapshot := newBlockSnapshot(store)
	local := &entity.Bitmap{InscriptionId: testInscriptionId(testHeight, 3), BitmapNumber: 7, Sequence: seq(testHeight, 3)}
	later := &entity.Bitmap{InscriptionId: testInscriptionId(testHeight, 9), BitmapNumber: 7, Sequence: seq(testHeight, 9)}
	snapshot.add([]validator.Outcome{
		{Kind: validator.Accepted, Bitmap: later},
		{Kind: validator.Accepted, Bitmap: local},
		{Kind: validator.Rejected, Bitmap: &entity.Bitmap{BitmapNumber: 8, Sequence: seq(testHeight, 1)}},
	})

	tests := []struct {
		name     string
		number   int64
		before   types.Sequence
		expected *entity.Bitmap
	}{
		{name: "nothing before the first claim", number: 7, before: seq(testHeight, 3)},
		{name: "smallest local claim", number: 7, before: seq(testHeight, 4), expected: local},
		{name: "smallest claim across local and stored", number: 7, before: seq(testHeight+6, 0), expected: local},
		{name: "rejected outcomes are invisible", number: 8, before: seq(testHeight+1, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual, err := snapshot.GetBitmapByNumber(ctx, tt.number, tt.before)
			if tt.expected == nil {
				assert.ErrorIs(t, err, errs.NotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected.InscriptionId, actual.InscriptionId)
		})
	}

	t.Run("stored deploy before sequence", func(t *testing.T) {
		deploy := &entity.Deploy{Id: testInscriptionId(testHeight-1, 0), SourceId: testInscriptionId(testHeight-1, 0), Name: "x", Sequence: seq(testHeight-1, 0)}
		_, err := store.CreateDeploy(ctx, deploy)
		require.NoError(t, err)

		found, err := snapshot.GetDeployBySourceId(ctx, deploy.SourceId, seq(testHeight, 0))
		require.NoError(t, err)
		assert.Equal(t, deploy.Id, found.Id)

		_, err = snapshot.GetDeployBySourceId(ctx, deploy.SourceId, deploy.Sequence)
		assert.ErrorIs(t, err, errs.NotFound)
	})
}
