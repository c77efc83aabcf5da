package inscriptions

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscription-indexer/common/errs"
	"github.com/gaze-network/inscription-indexer/core/types"
	"github.com/gaze-network/inscription-indexer/modules/inscriptions/internal/datagateway"
	"github.com/gaze-network/inscription-indexer/modules/inscriptions/internal/entity"
	"github.com/gaze-network/inscription-indexer/modules/inscriptions/internal/validator"
)

var _ validator.Snapshot = (*blockSnapshot)(nil)

// blockSnapshot overlays the accepted proposals of earlier validation phases of a block on top
// of the store. It is only mutated between phases, while no worker is reading it.
type blockSnapshot struct {
	store   datagateway.InscriptionsReaderDataGateway
	deploys map[types.InscriptionId]*entity.Deploy
	bitmaps map[int64]*entity.Bitmap
}

func newBlockSnapshot(store datagateway.InscriptionsReaderDataGateway) *blockSnapshot {
	return &blockSnapshot{
		store:   store,
		deploys: make(map[types.InscriptionId]*entity.Deploy),
		bitmaps: make(map[int64]*entity.Bitmap),
	}
}

// add keeps the smallest sequence proposal per source id and bitmap number.
func (s *blockSnapshot) add(outcomes []validator.Outcome) {
	for _, outcome := range outcomes {
		if outcome.Kind != validator.Accepted {
			continue
		}
		if deploy := outcome.Deploy; deploy != nil {
			if existing, ok := s.deploys[deploy.SourceId]; !ok || deploy.Sequence < existing.Sequence {
				s.deploys[deploy.SourceId] = deploy
			}
		}
		if bitmap := outcome.Bitmap; bitmap != nil {
			if existing, ok := s.bitmaps[bitmap.BitmapNumber]; !ok || bitmap.Sequence < existing.Sequence {
				s.bitmaps[bitmap.BitmapNumber] = bitmap
			}
		}
	}
}

func (s *blockSnapshot) GetDeployBySourceId(ctx context.Context, sourceId types.InscriptionId, before types.Sequence) (*entity.Deploy, error) {
	var found *entity.Deploy
	if local, ok := s.deploys[sourceId]; ok && local.Sequence < before {
		found = local
	}
	stored, err := s.store.GetDeployBySourceId(ctx, sourceId)
	if err != nil && !errors.Is(err, errs.NotFound) {
		return nil, errors.WithStack(err)
	}
	if stored != nil && stored.Sequence < before && (found == nil || stored.Sequence < found.Sequence) {
		found = stored
	}
	if found == nil {
		return nil, errors.Wrapf(errs.NotFound, "no deploy of %s before %s", sourceId, before)
	}
	return found, nil
}

func (s *blockSnapshot) GetBitmapByNumber(ctx context.Context, number int64, before types.Sequence) (*entity.Bitmap, error) {
	var found *entity.Bitmap
	if local, ok := s.bitmaps[number]; ok && local.Sequence < before {
		found = local
	}
	stored, err := s.store.GetBitmapByNumber(ctx, number)
	if err != nil && !errors.Is(err, errs.NotFound) {
		return nil, errors.WithStack(err)
	}
	if stored != nil && stored.Sequence < before && (found == nil || stored.Sequence < found.Sequence) {
		found = stored
	}
	if found == nil {
		return nil, errors.Wrapf(errs.NotFound, "no claim of bitmap %d before %s", number, before)
	}
	return found, nil
}
