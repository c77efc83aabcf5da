package inscriptions

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscription-indexer/common/errs"
	"github.com/gaze-network/inscription-indexer/modules/inscriptions/internal/datagateway"
	"github.com/gaze-network/inscription-indexer/modules/inscriptions/internal/entity"
	"github.com/gaze-network/inscription-indexer/modules/inscriptions/internal/protocol"
	"github.com/gaze-network/inscription-indexer/modules/inscriptions/internal/validator"
	"github.com/gaze-network/inscription-indexer/pkg/logger"
	"github.com/gaze-network/inscription-indexer/pkg/logger/slogx"
)

type blockStage string

const (
	stagePending    blockStage = "pending"
	stageFetching   blockStage = "fetching"
	stageValidating blockStage = "validating"
	stageCommitting blockStage = "committing"
	stageComplete   blockStage = "complete"
	stageFailed     blockStage = "failed"
)

func logStage(ctx context.Context, stage blockStage, args ...any) {
	args = append([]any{slogx.String("event", "block_stage"), slogx.String("stage", string(stage))}, args...)
	if stage == stageFailed {
		logger.WarnContext(ctx, "Block stage changed", args...)
		return
	}
	logger.DebugContext(ctx, "Block stage changed", args...)
}

// ProcessBlock runs one attempt of a height. The attempt commits everything or nothing.
func (p *Processor) ProcessBlock(ctx context.Context, height int64) (err error) {
	start := time.Now()
	ctx = logger.WithContext(ctx, slogx.Int64("height", height))
	defer func() {
		if err != nil {
			p.stats.blocks.WithLabelValues("error").Inc()
		}
	}()

	progress, err := p.inscriptionDg.BeginBlockAttempt(ctx, height)
	if err != nil {
		return errors.Wrap(err, "failed to begin block attempt")
	}
	defer func() {
		if err == nil {
			return
		}
		// the height stays pending until the caller records the failure
		if err := p.inscriptionDg.SetBlockProgressStatus(context.WithoutCancel(ctx), height, entity.BlockStatusPending, err.Error()); err != nil {
			logger.WarnContext(ctx, "failed to record attempt error", slogx.Error(err))
		}
	}()
	ctx = logger.WithContext(ctx, slogx.Int("attempt", int(progress.AttemptCount)))
	logStage(ctx, stagePending)

	logStage(ctx, stageFetching)
	inscriptions, err := p.inscriptionService.ListInscriptions(ctx, height)
	if err != nil {
		return errors.Wrap(err, "failed to list inscriptions")
	}

	logStage(ctx, stageValidating, slogx.Int("inscriptions", len(inscriptions)))
	outcomes, err := p.validateBlock(ctx, height, inscriptions)
	if err != nil {
		return errors.Wrap(err, "failed to validate block")
	}

	logStage(ctx, stageCommitting, slogx.Int("outcomes", len(outcomes)))
	committed, err := p.commitBlock(ctx, height, outcomes)
	if err != nil {
		return errors.Wrap(err, "failed to commit block")
	}

	p.recordOutcomes(ctx, committed)
	p.stats.blocks.WithLabelValues(string(entity.BlockStatusComplete)).Inc()
	p.stats.blockDuration.Observe(time.Since(start).Seconds())
	p.stats.latestHeight.Set(float64(height))
	if progress.AttemptCount > 1 {
		p.refreshErrorBlocks(ctx)
	}
	logStage(ctx, stageComplete)

	accepted := 0
	for _, outcome := range committed {
		if outcome.Kind == validator.Accepted {
			accepted++
		}
	}
	logger.InfoContext(ctx, "Processed block",
		slogx.String("event", "block_processed"),
		slogx.Int("inscriptions", len(inscriptions)),
		slogx.Int("accepted", accepted),
		slogx.Int("rejected", len(committed)-accepted),
		slogx.Duration("duration", time.Since(start)),
	)
	return nil
}

func (p *Processor) recordOutcomes(ctx context.Context, outcomes []validator.Outcome) {
	for _, outcome := range outcomes {
		p.stats.outcomes.WithLabelValues(outcome.CandidateKind.String(), outcome.Kind.String(), string(outcome.Reason)).Inc()
		if outcome.Kind == validator.Rejected {
			logger.DebugContext(ctx, "Rejected inscription",
				slogx.String("event", "inscription_rejected"),
				slogx.Stringer("inscription_id", outcome.InscriptionId),
				slogx.Stringer("kind", outcome.CandidateKind),
				slogx.String("reason", string(outcome.Reason)),
			)
		}
	}
}

// commitBlock persists the outcomes of a block in sequence order within one transaction.
// Persistence conflicts re-evaluate the whole block against fresh state.
func (p *Processor) commitBlock(ctx context.Context, height int64, outcomes []validator.Outcome) ([]validator.Outcome, error) {
	slices.SortFunc(outcomes, func(a, b validator.Outcome) int {
		return cmp.Compare(a.Sequence, b.Sequence)
	})

	var committed []validator.Outcome
	attempt := 0
	operation := func() error {
		attempt++
		var err error
		committed, err = p.commitOnce(ctx, height, outcomes)
		if err != nil && !errors.Is(err, errs.PersistenceConflict) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, _ time.Duration) {
		logger.WarnContext(ctx, "Persistence conflict while committing block, re-evaluating",
			slogx.String("event", "commit_conflict"),
			slogx.Int("commit_attempt", attempt),
			slogx.Error(err),
		)
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(&backoff.ZeroBackOff{}, maxCommitAttempts-1), ctx)
	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return nil, errors.WithStack(err)
	}
	return committed, nil
}

func (p *Processor) commitOnce(ctx context.Context, height int64, outcomes []validator.Outcome) ([]validator.Outcome, error) {
	tx, err := p.inscriptionDg.BeginInscriptionsTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil {
			logger.WarnContext(ctx, "failed to rollback transaction",
				slogx.Error(err),
				slogx.String("event", "rollback_block_commit"),
			)
		}
	}()

	committed := make([]validator.Outcome, 0, len(outcomes))
	var displaced []int64
	for _, outcome := range outcomes {
		if outcome.Kind != validator.Accepted {
			committed = append(committed, outcome)
			continue
		}
		result, heights, err := p.commitOutcome(ctx, tx, outcome)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to commit %s %s", outcome.CandidateKind, outcome.InscriptionId)
		}
		committed = append(committed, result)
		displaced = append(displaced, heights...)
	}

	if err := p.deferBlocks(ctx, tx, height, committed, displaced); err != nil {
		return nil, errors.WithStack(err)
	}
	if err := tx.SetBlockProgressStatus(ctx, height, entity.BlockStatusComplete, ""); err != nil {
		return nil, errors.Wrap(err, "failed to set block progress")
	}
	if err := tx.DeleteErrorBlock(ctx, height); err != nil {
		return nil, errors.Wrap(err, "failed to delete error block")
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "failed to commit transaction")
	}
	return committed, nil
}

const reasonDisplaced = "displaced"

// deferBlocks records the heights that must be processed again once a failed height below them
// recovers. A height is deferred when one of its rejections depends on records of earlier heights
// and some earlier height is still failed. Heights whose records were displaced by this commit are
// deferred until the commit is visible. Must run before the error block of height is deleted.
func (p *Processor) deferBlocks(ctx context.Context, tx datagateway.InscriptionsDataGatewayWithTx, height int64, outcomes []validator.Outcome, displaced []int64) error {
	reason := ""
	for _, outcome := range outcomes {
		if outcome.Kind == validator.Rejected && outcome.Reason.Revisable() {
			reason = string(outcome.Reason)
			break
		}
	}

	below := int64(0)
	if reason != "" {
		var err error
		below, err = tx.CountErrorBlocksBelow(ctx, height)
		if err != nil {
			return errors.Wrap(err, "failed to count error blocks")
		}
	}
	if below > 0 {
		if err := tx.UpsertDeferredBlock(ctx, height, int32(below), reason); err != nil {
			return errors.Wrap(err, "failed to defer block")
		}
		logger.InfoContext(ctx, "Deferred block until earlier failed blocks recover",
			slogx.String("event", "block_deferred"),
			slogx.String("reason", reason),
			slogx.Int64("awaiting_error_blocks", below),
		)
	} else if err := tx.DeleteDeferredBlock(ctx, height); err != nil {
		return errors.Wrap(err, "failed to delete deferred block")
	}

	slices.Sort(displaced)
	displaced = slices.Compact(displaced)
	for _, h := range displaced {
		if h == height {
			continue
		}
		count, err := tx.CountErrorBlocksBelow(ctx, h)
		if err != nil {
			return errors.Wrap(err, "failed to count error blocks")
		}
		// the error block of height counts until this commit deletes it
		if err := tx.UpsertDeferredBlock(ctx, h, int32(count), reasonDisplaced); err != nil {
			return errors.Wrapf(err, "failed to defer displaced block %d", h)
		}
	}
	if len(displaced) > 0 {
		logger.InfoContext(ctx, "Deferred blocks of displaced records",
			slogx.String("event", "block_deferred"),
			slogx.String("reason", reasonDisplaced),
			slogx.Any("heights", displaced),
		)
	}
	return nil
}

// commitOutcome adjudicates an accepted proposal against the store. Records that are already
// persisted are left untouched, so reprocessing a height is idempotent.
func (p *Processor) commitOutcome(ctx context.Context, tx datagateway.InscriptionsDataGatewayWithTx, outcome validator.Outcome) (validator.Outcome, []int64, error) {
	switch outcome.CandidateKind {
	case protocol.CandidateDeploy:
		return p.commitDeploy(ctx, tx, outcome)
	case protocol.CandidateMint:
		result, err := p.commitMint(ctx, tx, outcome)
		return result, nil, err
	case protocol.CandidateBitmap:
		return p.commitBitmap(ctx, tx, outcome)
	case protocol.CandidateParcel:
		result, err := p.commitParcel(ctx, tx, outcome)
		return result, nil, err
	default:
		return validator.Outcome{}, nil, errors.Wrapf(errs.InternalError, "unexpected candidate kind %s", outcome.CandidateKind)
	}
}

// commitDeploy returns the heights of the mints removed when an earlier deploy displaces a later
// one of the same source id.
func (p *Processor) commitDeploy(ctx context.Context, tx datagateway.InscriptionsDataGatewayWithTx, outcome validator.Outcome) (validator.Outcome, []int64, error) {
	deploy := outcome.Deploy
	created, err := tx.CreateDeploy(ctx, deploy)
	if err != nil {
		return validator.Outcome{}, nil, errors.Wrap(err, "failed to create deploy")
	}
	if created {
		return outcome, nil, nil
	}
	if _, err := tx.GetDeployById(ctx, deploy.Id); err == nil {
		return outcome, nil, nil
	} else if !errors.Is(err, errs.NotFound) {
		return validator.Outcome{}, nil, errors.Wrap(err, "failed to get deploy")
	}

	existing, err := tx.LockDeployBySourceId(ctx, deploy.SourceId)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			// the conflicting row is gone, let the block be re-evaluated
			return validator.Outcome{}, nil, errors.Wrap(errs.PersistenceConflict, "conflicting deploy disappeared")
		}
		return validator.Outcome{}, nil, errors.Wrap(err, "failed to lock deploy")
	}
	if existing.Sequence < deploy.Sequence {
		return outcome.Reject(validator.ReasonDuplicateSource), nil, nil
	}

	// a re-driven earlier deploy displaces the later one, and the mints counted against it
	heights, err := tx.DeleteMintsByDeployId(ctx, existing.Id)
	if err != nil {
		return validator.Outcome{}, nil, errors.Wrap(err, "failed to delete mints of displaced deploy")
	}
	if err := tx.DeleteDeployById(ctx, existing.Id); err != nil {
		return validator.Outcome{}, nil, errors.Wrap(err, "failed to delete displaced deploy")
	}
	created, err = tx.CreateDeploy(ctx, deploy)
	if err != nil {
		return validator.Outcome{}, nil, errors.Wrap(err, "failed to create deploy")
	}
	if !created {
		return validator.Outcome{}, nil, errors.Wrap(errs.PersistenceConflict, "deploy source id taken again")
	}
	logger.InfoContext(ctx, "Displaced later deploy",
		slogx.String("event", "deploy_displaced"),
		slogx.Stringer("source_id", deploy.SourceId),
		slogx.Stringer("displaced_inscription_id", existing.Id),
		slogx.Stringer("inscription_id", deploy.Id),
		slogx.Int("deleted_mints", len(heights)),
	)
	return outcome, heights, nil
}

func (p *Processor) commitMint(ctx context.Context, tx datagateway.InscriptionsDataGatewayWithTx, outcome validator.Outcome) (validator.Outcome, error) {
	mint := outcome.Mint
	exists, err := tx.MintExists(ctx, mint.Id)
	if err != nil {
		return validator.Outcome{}, errors.Wrap(err, "failed to check mint")
	}
	if exists {
		return outcome, nil
	}

	// the lock serializes the cap check and insert of concurrent commits
	deploy, err := tx.LockDeployBySourceId(ctx, mint.SourceId)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return outcome.Reject(validator.ReasonDeployNotFound), nil
		}
		return validator.Outcome{}, errors.Wrap(err, "failed to lock deploy")
	}
	if deploy.Sequence >= mint.Sequence {
		return outcome.Reject(validator.ReasonDeployNotFound), nil
	}
	if deploy.Id != mint.DeployId {
		return outcome.Reject(validator.ReasonDeployMismatch), nil
	}
	if !deploy.IsUnlimited() {
		count, err := tx.CountMintsByDeployId(ctx, deploy.Id)
		if err != nil {
			return validator.Outcome{}, errors.Wrap(err, "failed to count mints")
		}
		if count >= deploy.Max {
			return outcome.Reject(validator.ReasonCapacityExceeded), nil
		}
	}
	if err := tx.CreateMint(ctx, mint); err != nil {
		return validator.Outcome{}, errors.Wrap(err, "failed to create mint")
	}
	return outcome, nil
}

func (p *Processor) commitBitmap(ctx context.Context, tx datagateway.InscriptionsDataGatewayWithTx, outcome validator.Outcome) (validator.Outcome, []int64, error) {
	bitmap := outcome.Bitmap
	existing, err := tx.LockBitmapByNumber(ctx, bitmap.BitmapNumber)
	if err != nil && !errors.Is(err, errs.NotFound) {
		return validator.Outcome{}, nil, errors.Wrap(err, "failed to lock bitmap")
	}
	if existing != nil {
		if existing.InscriptionId == bitmap.InscriptionId {
			return outcome, nil, nil
		}
		if existing.Sequence < bitmap.Sequence {
			return outcome.Reject(validator.ReasonDuplicateBitmap), nil, nil
		}
	}

	stored, err := tx.UpsertBitmap(ctx, bitmap)
	if err != nil {
		return validator.Outcome{}, nil, errors.Wrap(err, "failed to upsert bitmap")
	}
	if !stored {
		return outcome.Reject(validator.ReasonDuplicateBitmap), nil, nil
	}
	if existing == nil {
		return outcome, nil, nil
	}

	// a re-driven earlier claim displaces the later one, and the parcels built on it
	heights, err := tx.DeleteParcelsByBitmapInscriptionId(ctx, existing.InscriptionId)
	if err != nil {
		return validator.Outcome{}, nil, errors.Wrap(err, "failed to delete parcels of displaced bitmap")
	}
	logger.InfoContext(ctx, "Displaced later bitmap claim",
		slogx.String("event", "bitmap_displaced"),
		slogx.Int64("bitmap_number", bitmap.BitmapNumber),
		slogx.Stringer("displaced_inscription_id", existing.InscriptionId),
		slogx.Stringer("inscription_id", bitmap.InscriptionId),
		slogx.Int("deleted_parcels", len(heights)),
	)
	return outcome, heights, nil
}

func (p *Processor) commitParcel(ctx context.Context, tx datagateway.InscriptionsDataGatewayWithTx, outcome validator.Outcome) (validator.Outcome, error) {
	parcel := outcome.Parcel
	bitmap, err := tx.LockBitmapByNumber(ctx, parcel.BitmapNumber)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return outcome.Reject(validator.ReasonBitmapNotFound), nil
		}
		return validator.Outcome{}, errors.Wrap(err, "failed to lock bitmap")
	}
	if bitmap.InscriptionId != parcel.BitmapInscriptionId || bitmap.Sequence >= parcel.Sequence {
		return outcome.Reject(validator.ReasonBitmapNotFound), nil
	}

	created, err := tx.CreateParcel(ctx, parcel)
	if err != nil {
		return validator.Outcome{}, errors.Wrap(err, "failed to create parcel")
	}
	if created {
		return outcome, nil
	}
	if _, err := tx.GetParcelById(ctx, parcel.InscriptionId); err != nil {
		if errors.Is(err, errs.NotFound) {
			return outcome.Reject(validator.ReasonDuplicateParcel), nil
		}
		return validator.Outcome{}, errors.Wrap(err, "failed to get parcel")
	}
	return outcome, nil
}
