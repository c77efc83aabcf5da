package datagateway

import (
	"context"

	"github.com/gaze-network/inscription-indexer/core/types"
	"github.com/gaze-network/inscription-indexer/modules/inscriptions/internal/entity"
)

type InscriptionsDataGateway interface {
	InscriptionsReaderDataGateway
	InscriptionsWriterDataGateway

	// BeginInscriptionsTx returns a new InscriptionsDataGateway with transaction enabled. All write operations performed in this datagateway must be committed to persist changes.
	BeginInscriptionsTx(ctx context.Context) (InscriptionsDataGatewayWithTx, error)
}

type InscriptionsDataGatewayWithTx interface {
	InscriptionsDataGateway
	Tx
}

// InscriptionsReaderDataGateway returns [errs.NotFound] for missing single records.
type InscriptionsReaderDataGateway interface {
	GetDeployBySourceId(ctx context.Context, sourceId types.InscriptionId) (*entity.Deploy, error)
	GetDeployById(ctx context.Context, id types.InscriptionId) (*entity.Deploy, error)
	MintExists(ctx context.Context, id types.InscriptionId) (bool, error)
	CountMintsByDeployId(ctx context.Context, deployId types.InscriptionId) (int64, error)
	GetBitmapByNumber(ctx context.Context, number int64) (*entity.Bitmap, error)
	GetParcelById(ctx context.Context, id types.InscriptionId) (*entity.Parcel, error)

	// GetLatestProcessedBlockHeight returns the highest height whose progress is complete or failed.
	GetLatestProcessedBlockHeight(ctx context.Context) (int64, error)
	GetBlockProgress(ctx context.Context, height int64) (*entity.BlockProgress, error)
	// GetErrorBlocks returns up to limit error blocks, least recently updated first.
	GetErrorBlocks(ctx context.Context, limit int32) ([]*entity.ErrorBlock, error)
	CountErrorBlocks(ctx context.Context) (int64, error)
	// CountErrorBlocksBelow returns the number of error blocks lower than height.
	CountErrorBlocksBelow(ctx context.Context, height int64) (int64, error)
	// GetReadyDeferredBlocks returns up to limit deferred blocks that have fewer error blocks below them
	// than when they were deferred, lowest height first.
	GetReadyDeferredBlocks(ctx context.Context, limit int32) ([]*entity.DeferredBlock, error)
	CountDeferredBlocks(ctx context.Context) (int64, error)
}

type InscriptionsWriterDataGateway interface {
	// CreateDeploy inserts the deploy unless its id or source id already exists. Returns whether a row was created.
	CreateDeploy(ctx context.Context, deploy *entity.Deploy) (bool, error)
	// LockDeployBySourceId returns the deploy of sourceId and holds a row lock until the transaction ends.
	LockDeployBySourceId(ctx context.Context, sourceId types.InscriptionId) (*entity.Deploy, error)
	CreateMint(ctx context.Context, mint *entity.Mint) error
	DeleteDeployById(ctx context.Context, id types.InscriptionId) error
	// DeleteMintsByDeployId returns the block heights of the deleted mints.
	DeleteMintsByDeployId(ctx context.Context, deployId types.InscriptionId) ([]int64, error)

	// LockBitmapByNumber returns the bitmap claim of number and holds a row lock until the transaction ends.
	LockBitmapByNumber(ctx context.Context, number int64) (*entity.Bitmap, error)
	// UpsertBitmap stores the claim if the number is unclaimed or claimed by a later sequence.
	// Returns whether the claim was stored.
	UpsertBitmap(ctx context.Context, bitmap *entity.Bitmap) (bool, error)
	// DeleteParcelsByBitmapInscriptionId returns the block heights of the deleted parcels.
	DeleteParcelsByBitmapInscriptionId(ctx context.Context, bitmapInscriptionId types.InscriptionId) ([]int64, error)
	// CreateParcel inserts the parcel unless its id or (bitmap number, parcel index) already exists. Returns whether a row was created.
	CreateParcel(ctx context.Context, parcel *entity.Parcel) (bool, error)

	// BeginBlockAttempt marks the block pending and increments its attempt count.
	BeginBlockAttempt(ctx context.Context, height int64) (*entity.BlockProgress, error)
	SetBlockProgressStatus(ctx context.Context, height int64, status entity.BlockStatus, lastError string) error
	// UpsertErrorBlock records a failure of the block, incrementing the retry count of an existing row.
	UpsertErrorBlock(ctx context.Context, height int64, errorMessage string) error
	DeleteErrorBlock(ctx context.Context, height int64) error
	UpsertDeferredBlock(ctx context.Context, height int64, awaitingErrorBlocks int32, reason string) error
	DeleteDeferredBlock(ctx context.Context, height int64) error
}
