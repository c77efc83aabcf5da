package postgres

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscription-indexer/core/types"
	"github.com/gaze-network/inscription-indexer/modules/inscriptions/internal/datagateway"
	"github.com/gaze-network/inscription-indexer/modules/inscriptions/internal/entity"
	"github.com/gaze-network/inscription-indexer/modules/inscriptions/internal/repository/postgres/gen"
)

var _ datagateway.InscriptionsDataGateway = (*Repository)(nil)

func (r *Repository) GetDeployBySourceId(ctx context.Context, sourceId types.InscriptionId) (*entity.Deploy, error) {
	model, err := r.queries.GetDeployBySourceId(ctx, sourceId.String())
	if err != nil {
		return nil, errors.Wrap(mapError(err), "error during query")
	}
	return mapDeploy(model)
}

func (r *Repository) GetDeployById(ctx context.Context, id types.InscriptionId) (*entity.Deploy, error) {
	model, err := r.queries.GetDeployById(ctx, id.String())
	if err != nil {
		return nil, errors.Wrap(mapError(err), "error during query")
	}
	return mapDeploy(model)
}

func (r *Repository) LockDeployBySourceId(ctx context.Context, sourceId types.InscriptionId) (*entity.Deploy, error) {
	model, err := r.queries.LockDeployBySourceId(ctx, sourceId.String())
	if err != nil {
		return nil, errors.Wrap(mapError(err), "error during query")
	}
	return mapDeploy(model)
}

func mapDeploy(model gen.Deploy) (*entity.Deploy, error) {
	deploy, err := mapDeployModelToType(model)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse deploy model")
	}
	return &deploy, nil
}

func (r *Repository) CreateDeploy(ctx context.Context, deploy *entity.Deploy) (bool, error) {
	rows, err := r.queries.CreateDeploy(ctx, mapDeployTypeToParams(*deploy))
	if err != nil {
		return false, errors.Wrap(mapError(err), "error during exec")
	}
	return rows > 0, nil
}

func (r *Repository) MintExists(ctx context.Context, id types.InscriptionId) (bool, error) {
	exists, err := r.queries.MintExists(ctx, id.String())
	if err != nil {
		return false, errors.Wrap(mapError(err), "error during query")
	}
	return exists, nil
}

func (r *Repository) CountMintsByDeployId(ctx context.Context, deployId types.InscriptionId) (int64, error) {
	count, err := r.queries.CountMintsByDeployId(ctx, deployId.String())
	if err != nil {
		return 0, errors.Wrap(mapError(err), "error during query")
	}
	return count, nil
}

func (r *Repository) CreateMint(ctx context.Context, mint *entity.Mint) error {
	if err := r.queries.CreateMint(ctx, mapMintTypeToParams(*mint)); err != nil {
		return errors.Wrap(mapError(err), "error during exec")
	}
	return nil
}

func (r *Repository) DeleteDeployById(ctx context.Context, id types.InscriptionId) error {
	if err := r.queries.DeleteDeployById(ctx, id.String()); err != nil {
		return errors.Wrap(mapError(err), "error during exec")
	}
	return nil
}

func (r *Repository) DeleteMintsByDeployId(ctx context.Context, deployId types.InscriptionId) ([]int64, error) {
	heights, err := r.queries.DeleteMintsByDeployId(ctx, deployId.String())
	if err != nil {
		return nil, errors.Wrap(mapError(err), "error during query")
	}
	return heights, nil
}

func (r *Repository) GetBitmapByNumber(ctx context.Context, number int64) (*entity.Bitmap, error) {
	model, err := r.queries.GetBitmapByNumber(ctx, number)
	if err != nil {
		return nil, errors.Wrap(mapError(err), "error during query")
	}
	return mapBitmap(model)
}

func (r *Repository) LockBitmapByNumber(ctx context.Context, number int64) (*entity.Bitmap, error) {
	model, err := r.queries.LockBitmapByNumber(ctx, number)
	if err != nil {
		return nil, errors.Wrap(mapError(err), "error during query")
	}
	return mapBitmap(model)
}

func mapBitmap(model gen.Bitmap) (*entity.Bitmap, error) {
	bitmap, err := mapBitmapModelToType(model)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse bitmap model")
	}
	return &bitmap, nil
}

func (r *Repository) UpsertBitmap(ctx context.Context, bitmap *entity.Bitmap) (bool, error) {
	rows, err := r.queries.UpsertBitmap(ctx, mapBitmapTypeToParams(*bitmap))
	if err != nil {
		return false, errors.Wrap(mapError(err), "error during exec")
	}
	return rows > 0, nil
}

func (r *Repository) DeleteParcelsByBitmapInscriptionId(ctx context.Context, bitmapInscriptionId types.InscriptionId) ([]int64, error) {
	heights, err := r.queries.DeleteParcelsByBitmapInscriptionId(ctx, bitmapInscriptionId.String())
	if err != nil {
		return nil, errors.Wrap(mapError(err), "error during query")
	}
	return heights, nil
}

func (r *Repository) CreateParcel(ctx context.Context, parcel *entity.Parcel) (bool, error) {
	rows, err := r.queries.CreateParcel(ctx, mapParcelTypeToParams(*parcel))
	if err != nil {
		return false, errors.Wrap(mapError(err), "error during exec")
	}
	return rows > 0, nil
}

func (r *Repository) GetParcelById(ctx context.Context, id types.InscriptionId) (*entity.Parcel, error) {
	model, err := r.queries.GetParcelById(ctx, id.String())
	if err != nil {
		return nil, errors.Wrap(mapError(err), "error during query")
	}
	parcel, err := mapParcelModelToType(model)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse parcel model")
	}
	return &parcel, nil
}
