package usecase

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscription-indexer/common/errs"
	"github.com/gaze-network/inscription-indexer/modules/inscriptions/internal/entity"
)

type Status struct {
	// LatestBlockHeight is -1 until the first height is processed.
	LatestBlockHeight  int64
	ErrorBlockCount    int64
	// DeferredBlockCount is the number of completed heights waiting for a failed height below them.
	DeferredBlockCount int64
	ErrorBlocks        []*entity.ErrorBlock
}

// GetStatus reports the cursor position and up to limit heights waiting for a re-drive.
func (u *Usecase) GetStatus(ctx context.Context, limit int32) (*Status, error) {
	latest, err := u.inscriptionDg.GetLatestProcessedBlockHeight(ctx)
	if err != nil {
		if !errors.Is(err, errs.NotFound) {
			return nil, errors.Wrap(err, "failed to get latest processed block height")
		}
		latest = -1
	}
	count, err := u.inscriptionDg.CountErrorBlocks(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to count error blocks")
	}
	deferred, err := u.inscriptionDg.CountDeferredBlocks(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to count deferred blocks")
	}
	blocks, err := u.inscriptionDg.GetErrorBlocks(ctx, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get error blocks")
	}
	return &Status{
		LatestBlockHeight:  latest,
		ErrorBlockCount:    count,
		DeferredBlockCount: deferred,
		ErrorBlocks:        blocks,
	}, nil
}

func (u *Usecase) GetBlockProgress(ctx context.Context, height int64) (*entity.BlockProgress, error) {
	progress, err := u.inscriptionDg.GetBlockProgress(ctx, height)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get block progress")
	}
	return progress, nil
}
