package datagateway

import (
	"context"

	"github.com/gaze-network/inscription-indexer/modules/inscriptions/internal/entity"
)

type IndexerInfoDataGateway interface {
	GetLatestIndexerState(ctx context.Context) (entity.IndexerState, error)
	CreateIndexerState(ctx context.Context, state entity.IndexerState) error
}
