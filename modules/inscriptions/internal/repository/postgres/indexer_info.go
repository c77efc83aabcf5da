package postgres

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscription-indexer/modules/inscriptions/internal/datagateway"
	"github.com/gaze-network/inscription-indexer/modules/inscriptions/internal/entity"
)

var _ datagateway.IndexerInfoDataGateway = (*Repository)(nil)

func (r *Repository) GetLatestIndexerState(ctx context.Context) (entity.IndexerState, error) {
	model, err := r.queries.GetLatestIndexerState(ctx)
	if err != nil {
		return entity.IndexerState{}, errors.Wrap(mapError(err), "error during query")
	}
	return mapIndexerStatesModelToType(model), nil
}

func (r *Repository) CreateIndexerState(ctx context.Context, state entity.IndexerState) error {
	if err := r.queries.CreateIndexerState(ctx, mapIndexerStatesTypeToParams(state)); err != nil {
		return errors.Wrap(mapError(err), "error during exec")
	}
	return nil
}
