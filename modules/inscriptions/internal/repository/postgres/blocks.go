package postgres

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscription-indexer/common/errs"
	"github.com/gaze-network/inscription-indexer/modules/inscriptions/internal/entity"
	"github.com/gaze-network/inscription-indexer/modules/inscriptions/internal/repository/postgres/gen"
	"github.com/samber/lo"
)

func (r *Repository) GetLatestProcessedBlockHeight(ctx context.Context) (int64, error) {
	height, err := r.queries.GetLatestProcessedBlockHeight(ctx)
	if err != nil {
		return 0, errors.Wrap(mapError(err), "error during query")
	}
	return height, nil
}

func (r *Repository) GetBlockProgress(ctx context.Context, height int64) (*entity.BlockProgress, error) {
	model, err := r.queries.GetBlockProgress(ctx, height)
	if err != nil {
		return nil, errors.Wrap(mapError(err), "error during query")
	}
	progress := mapBlockProgressModelToType(model)
	return &progress, nil
}

func (r *Repository) GetErrorBlocks(ctx context.Context, limit int32) ([]*entity.ErrorBlock, error) {
	models, err := r.queries.GetErrorBlocks(ctx, limit)
	if err != nil {
		return nil, errors.Wrap(mapError(err), "error during query")
	}
	return lo.Map(models, func(model gen.ErrorBlock, _ int) *entity.ErrorBlock {
		block := mapErrorBlockModelToType(model)
		return &block
	}), nil
}

func (r *Repository) CountErrorBlocks(ctx context.Context) (int64, error) {
	count, err := r.queries.CountErrorBlocks(ctx)
	if err != nil {
		return 0, errors.Wrap(mapError(err), "error during query")
	}
	return count, nil
}

func (r *Repository) BeginBlockAttempt(ctx context.Context, height int64) (*entity.BlockProgress, error) {
	model, err := r.queries.BeginBlockAttempt(ctx, height)
	if err != nil {
		return nil, errors.Wrap(mapError(err), "error during query")
	}
	progress := mapBlockProgressModelToType(model)
	return &progress, nil
}

func (r *Repository) SetBlockProgressStatus(ctx context.Context, height int64, status entity.BlockStatus, lastError string) error {
	if !status.IsValid() {
		return errors.Wrapf(errs.InvalidArgument, "invalid block status %q", status)
	}
	err := r.queries.SetBlockProgressStatus(ctx, gen.SetBlockProgressStatusParams{
		BlockHeight: height,
		Status:      string(status),
		LastError:   lastError,
	})
	if err != nil {
		return errors.Wrap(mapError(err), "error during exec")
	}
	return nil
}

func (r *Repository) UpsertErrorBlock(ctx context.Context, height int64, errorMessage string) error {
	err := r.queries.UpsertErrorBlock(ctx, gen.UpsertErrorBlockParams{
		BlockHeight:  height,
		ErrorMessage: errorMessage,
	})
	if err != nil {
		return errors.Wrap(mapError(err), "error during exec")
	}
	return nil
}

func (r *Repository) DeleteErrorBlock(ctx context.Context, height int64) error {
	if err := r.queries.DeleteErrorBlock(ctx, height); err != nil {
		return errors.Wrap(mapError(err), "error during exec")
	}
	return nil
}

func (r *Repository) CountErrorBlocksBelow(ctx context.Context, height int64) (int64, error) {
	count, err := r.queries.CountErrorBlocksBelow(ctx, height)
	if err != nil {
		return 0, errors.Wrap(mapError(err), "error during query")
	}
	return count, nil
}

func (r *Repository) GetReadyDeferredBlocks(ctx context.Context, limit int32) ([]*entity.DeferredBlock, error) {
	models, err := r.queries.GetReadyDeferredBlocks(ctx, limit)
	if err != nil {
		return nil, errors.Wrap(mapError(err), "error during query")
	}
	return lo.Map(models, func(model gen.DeferredBlock, _ int) *entity.DeferredBlock {
		block := mapDeferredBlockModelToType(model)
		return &block
	}), nil
}

func (r *Repository) CountDeferredBlocks(ctx context.Context) (int64, error) {
	count, err := r.queries.CountDeferredBlocks(ctx)
	if err != nil {
		return 0, errors.Wrap(mapError(err), "error during query")
	}
	return count, nil
}

func (r *Repository) UpsertDeferredBlock(ctx context.Context, height int64, awaitingErrorBlocks int32, reason string) error {
	err := r.queries.UpsertDeferredBlock(ctx, gen.UpsertDeferredBlockParams{
		BlockHeight:         height,
		AwaitingErrorBlocks: awaitingErrorBlocks,
		Reason:              reason,
	})
	if err != nil {
		return errors.Wrap(mapError(err), "error during exec")
	}
	return nil
}

func (r *Repository) DeleteDeferredBlock(ctx context.Context, height int64) error {
	if err := r.queries.DeleteDeferredBlock(ctx, height); err != nil {
		return errors.Wrap(mapError(err), "error during exec")
	}
	return nil
}
