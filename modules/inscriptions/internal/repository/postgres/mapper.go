package postgres

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscription-indexer/common"
	"github.com/gaze-network/inscription-indexer/core/types"
	"github.com/gaze-network/inscription-indexer/modules/inscriptions/internal/entity"
	"github.com/gaze-network/inscription-indexer/modules/inscriptions/internal/repository/postgres/gen"
	"github.com/jackc/pgx/v5/pgtype"
)

func timestampOf(t time.Time) pgtype.Timestamp {
	if t.IsZero() {
		return pgtype.Timestamp{}
	}
	return pgtype.Timestamp{Time: t.UTC(), Valid: true}
}

func timeOf(t pgtype.Timestamp) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time.UTC()
}

func mapIndexerStatesModelToType(src gen.IndexerState) entity.IndexerState {
	return entity.IndexerState{
		ClientVersion: src.ClientVersion,
		Network:       common.Network(src.Network),
		DBVersion:     src.DbVersion,
		CreatedAt:     timeOf(src.CreatedAt),
	}
}

func mapIndexerStatesTypeToParams(src entity.IndexerState) gen.CreateIndexerStateParams {
	return gen.CreateIndexerStateParams{
		ClientVersion: src.ClientVersion,
		Network:       string(src.Network),
		DbVersion:     src.DBVersion,
	}
}

func mapDeployModelToType(src gen.Deploy) (entity.Deploy, error) {
	id, err := types.NewInscriptionIdFromString(src.ID)
	if err != nil {
		return entity.Deploy{}, errors.Wrap(err, "invalid deploy id")
	}
	sourceId, err := types.NewInscriptionIdFromString(src.SourceID)
	if err != nil {
		return entity.Deploy{}, errors.Wrap(err, "invalid source id")
	}
	return entity.Deploy{
		Id:              id,
		SourceId:        sourceId,
		Name:            src.Name,
		Max:             src.Max,
		Price:           src.Price,
		DeployerAddress: src.DeployerAddress,
		BlockHeight:     src.BlockHeight,
		Sequence:        types.Sequence(src.Sequence),
		Timestamp:       timeOf(src.Timestamp),
	}, nil
}

func mapDeployTypeToParams(src entity.Deploy) gen.CreateDeployParams {
	return gen.CreateDeployParams{
		ID:              src.Id.String(),
		SourceID:        src.SourceId.String(),
		Name:            src.Name,
		Max:             src.Max,
		Price:           src.Price,
		DeployerAddress: src.DeployerAddress,
		BlockHeight:     src.BlockHeight,
		Sequence:        int64(src.Sequence),
		Timestamp:       timestampOf(src.Timestamp),
	}
}

func mapMintTypeToParams(src entity.Mint) gen.CreateMintParams {
	return gen.CreateMintParams{
		ID:            src.Id.String(),
		DeployID:      src.DeployId.String(),
		SourceID:      src.SourceId.String(),
		MintAddress:   src.MintAddress,
		TransactionID: src.TransactionId.String(),
		BlockHeight:   src.BlockHeight,
		Sequence:      int64(src.Sequence),
		Timestamp:     timestampOf(src.Timestamp),
	}
}

func mapBitmapModelToType(src gen.Bitmap) (entity.Bitmap, error) {
	id, err := types.NewInscriptionIdFromString(src.InscriptionID)
	if err != nil {
		return entity.Bitmap{}, errors.Wrap(err, "invalid bitmap inscription id")
	}
	return entity.Bitmap{
		InscriptionId: id,
		BitmapNumber:  src.BitmapNumber,
		Address:       src.Address,
		BlockHeight:   src.BlockHeight,
		Sequence:      types.Sequence(src.Sequence),
		Timestamp:     timeOf(src.Timestamp),
	}, nil
}

func mapBitmapTypeToParams(src entity.Bitmap) gen.UpsertBitmapParams {
	return gen.UpsertBitmapParams{
		InscriptionID: src.InscriptionId.String(),
		BitmapNumber:  src.BitmapNumber,
		Address:       src.Address,
		BlockHeight:   src.BlockHeight,
		Sequence:      int64(src.Sequence),
		Timestamp:     timestampOf(src.Timestamp),
	}
}

func mapParcelModelToType(src gen.Parcel) (entity.Parcel, error) {
	id, err := types.NewInscriptionIdFromString(src.InscriptionID)
	if err != nil {
		return entity.Parcel{}, errors.Wrap(err, "invalid parcel inscription id")
	}
	bitmapId, err := types.NewInscriptionIdFromString(src.BitmapInscriptionID)
	if err != nil {
		return entity.Parcel{}, errors.Wrap(err, "invalid bitmap inscription id")
	}
	return entity.Parcel{
		InscriptionId:       id,
		BitmapNumber:        src.BitmapNumber,
		BitmapInscriptionId: bitmapId,
		ParcelIndex:         src.ParcelIndex,
		Address:             src.Address,
		BlockHeight:         src.BlockHeight,
		Sequence:            types.Sequence(src.Sequence),
		Timestamp:           timeOf(src.Timestamp),
	}, nil
}

func mapParcelTypeToParams(src entity.Parcel) gen.CreateParcelParams {
	return gen.CreateParcelParams{
		InscriptionID:       src.InscriptionId.String(),
		BitmapNumber:        src.BitmapNumber,
		BitmapInscriptionID: src.BitmapInscriptionId.String(),
		ParcelIndex:         src.ParcelIndex,
		Address:             src.Address,
		BlockHeight:         src.BlockHeight,
		Sequence:            int64(src.Sequence),
		Timestamp:           timestampOf(src.Timestamp),
	}
}

func mapBlockProgressModelToType(src gen.BlockProgress) entity.BlockProgress {
	return entity.BlockProgress{
		BlockHeight:  src.BlockHeight,
		Status:       entity.BlockStatus(src.Status),
		AttemptCount: src.AttemptCount,
		LastError:    src.LastError,
		UpdatedAt:    timeOf(src.UpdatedAt),
	}
}

func mapErrorBlockModelToType(src gen.ErrorBlock) entity.ErrorBlock {
	return entity.ErrorBlock{
		BlockHeight:   src.BlockHeight,
		ErrorMessage:  src.ErrorMessage,
		FirstFailedAt: timeOf(src.FirstFailedAt),
		RetryCount:    src.RetryCount,
		UpdatedAt:     timeOf(src.UpdatedAt),
	}
}

func mapDeferredBlockModelToType(src gen.DeferredBlock) entity.DeferredBlock {
	return entity.DeferredBlock{
		BlockHeight:         src.BlockHeight,
		AwaitingErrorBlocks: src.AwaitingErrorBlocks,
		Reason:              src.Reason,
		CreatedAt:           timeOf(src.CreatedAt),
		UpdatedAt:           timeOf(src.UpdatedAt),
	}
}
