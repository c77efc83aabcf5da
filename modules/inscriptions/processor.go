package inscriptions

import (
	"context"

	"github.com/Cleverse/go-utilities/utils"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscription-indexer/common"
	"github.com/gaze-network/inscription-indexer/common/errs"
	"github.com/gaze-network/inscription-indexer/core/datasources"
	"github.com/gaze-network/inscription-indexer/core/indexer"
	"github.com/gaze-network/inscription-indexer/modules/inscriptions/config"
	"github.com/gaze-network/inscription-indexer/modules/inscriptions/internal/datagateway"
	"github.com/gaze-network/inscription-indexer/modules/inscriptions/internal/entity"
	"github.com/gaze-network/inscription-indexer/modules/inscriptions/internal/validator"
	"github.com/gaze-network/inscription-indexer/pkg/logger"
	"github.com/gaze-network/inscription-indexer/pkg/logger/slogx"
	"github.com/samber/lo"
)

const (
	DefaultConcurrency = 10

	// maxCommitAttempts bounds the re-evaluation of a block commit after persistence conflicts.
	maxCommitAttempts = 3
)

// Make sure to implement the BlockProcessor interface
var _ indexer.BlockProcessor = (*Processor)(nil)

type Processor struct {
	inscriptionDg      datagateway.InscriptionsDataGateway
	indexerInfoDg      datagateway.IndexerInfoDataGateway
	inscriptionService datasources.InscriptionService
	validator          *validator.Validator
	network            common.Network
	concurrency        int
	startHeight        int64
	stats              *processorStats
	cleanupFuncs       []func(context.Context) error
}

func NewProcessor(
	inscriptionDg datagateway.InscriptionsDataGateway,
	indexerInfoDg datagateway.IndexerInfoDataGateway,
	inscriptionService datasources.InscriptionService,
	validator *validator.Validator,
	network common.Network,
	conf config.Config,
	cleanupFuncs []func(context.Context) error,
) (*Processor, error) {
	genesis, ok := genesisBlockHeight[network]
	if !ok {
		return nil, errors.Wrapf(errs.Unsupported, "%q network is not supported", network)
	}
	return &Processor{
		inscriptionDg:      inscriptionDg,
		indexerInfoDg:      indexerInfoDg,
		inscriptionService: inscriptionService,
		validator:          validator,
		network:            network,
		concurrency:        utils.Default(conf.Concurrency, DefaultConcurrency),
		startHeight:        max(genesis, conf.StartHeight),
		stats:              newProcessorStats(),
		cleanupFuncs:       cleanupFuncs,
	}, nil
}

// VerifyStates refuses a database built by another db version or for another network.
func (p *Processor) VerifyStates(ctx context.Context) error {
	indexerState, err := p.indexerInfoDg.GetLatestIndexerState(ctx)
	if err != nil && !errors.Is(err, errs.NotFound) {
		return errors.Wrap(err, "failed to get latest indexer state")
	}
	// if not found, create indexer state
	if errors.Is(err, errs.NotFound) {
		if err := p.indexerInfoDg.CreateIndexerState(ctx, entity.IndexerState{
			ClientVersion: ClientVersion,
			DBVersion:     DBVersion,
			Network:       p.network,
		}); err != nil {
			return errors.Wrap(err, "failed to set indexer state")
		}
		return nil
	}
	if indexerState.DBVersion != DBVersion {
		return errors.Wrapf(errs.ConflictSetting, "db version mismatch: current version is %d. Please upgrade to version %d", indexerState.DBVersion, DBVersion)
	}
	if indexerState.Network != p.network {
		return errors.Wrapf(errs.ConflictSetting, "network mismatch: latest indexed network is %q, configured network is %q. If you want to change the network, please reset the database", indexerState.Network, p.network)
	}
	return nil
}

func (p *Processor) Name() string {
	return "inscriptions"
}

// NextBlockHeight resumes after the highest completed or failed height. Failed heights are
// behind the cursor for good, the supervisor owns them.
func (p *Processor) NextBlockHeight(ctx context.Context) (int64, error) {
	latest, err := p.inscriptionDg.GetLatestProcessedBlockHeight(ctx)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return p.startHeight, nil
		}
		return 0, errors.Wrap(err, "failed to get latest processed block height")
	}
	return max(latest+1, p.startHeight), nil
}

func (p *Processor) RecordBlockFailure(ctx context.Context, height int64, cause error) error {
	message := "unknown error"
	if cause != nil {
		message = cause.Error()
	}

	tx, err := p.inscriptionDg.BeginInscriptionsTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil {
			logger.WarnContext(ctx, "failed to rollback transaction",
				slogx.Error(err),
				slogx.String("event", "rollback_block_failure"),
			)
		}
	}()

	if err := tx.SetBlockProgressStatus(ctx, height, entity.BlockStatusFailed, message); err != nil {
		return errors.Wrap(err, "failed to set block progress")
	}
	if err := tx.UpsertErrorBlock(ctx, height, message); err != nil {
		return errors.Wrap(err, "failed to upsert error block")
	}
	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}

	p.stats.blocks.WithLabelValues(string(entity.BlockStatusFailed)).Inc()
	logStage(ctx, stageFailed, slogx.String("last_error", message))
	p.refreshErrorBlocks(ctx)
	return nil
}

func (p *Processor) ListFailedBlocks(ctx context.Context, limit int) ([]indexer.FailedBlock, error) {
	blocks, err := p.inscriptionDg.GetErrorBlocks(ctx, int32(limit))
	if err != nil {
		return nil, errors.Wrap(err, "failed to get error blocks")
	}
	return lo.Map(blocks, func(block *entity.ErrorBlock, _ int) indexer.FailedBlock {
		return indexer.FailedBlock{
			Height:     block.BlockHeight,
			RetryCount: block.RetryCount,
			LastError:  block.ErrorMessage,
		}
	}), nil
}

// ListDeferredBlocks returns up to limit deferred heights whose awaited failed heights recovered.
func (p *Processor) ListDeferredBlocks(ctx context.Context, limit int) ([]int64, error) {
	blocks, err := p.inscriptionDg.GetReadyDeferredBlocks(ctx, int32(limit))
	if err != nil {
		return nil, errors.Wrap(err, "failed to get deferred blocks")
	}
	return lo.Map(blocks, func(block *entity.DeferredBlock, _ int) int64 {
		return block.BlockHeight
	}), nil
}

func (p *Processor) refreshErrorBlocks(ctx context.Context) {
	count, err := p.inscriptionDg.CountErrorBlocks(ctx)
	if err != nil {
		logger.WarnContext(ctx, "failed to count error blocks", slogx.Error(err))
		return
	}
	p.stats.errorBlocks.Set(float64(count))

	deferred, err := p.inscriptionDg.CountDeferredBlocks(ctx)
	if err != nil {
		logger.WarnContext(ctx, "failed to count deferred blocks", slogx.Error(err))
		return
	}
	p.stats.deferredBlocks.Set(float64(deferred))
}

func (p *Processor) Shutdown(ctx context.Context) error {
	var errs []error
	for _, cleanup := range p.cleanupFuncs {
		if err := cleanup(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.WithStack(errors.Join(errs...))
}
