//go:build integration

package postgres

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscription-indexer/common"
	"github.com/gaze-network/inscription-indexer/common/errs"
	"github.com/gaze-network/inscription-indexer/core/types"
	"github.com/gaze-network/inscription-indexer/modules/inscriptions/internal/entity"
	"github.com/gaze-network/inscription-indexer/modules/inscriptions/internal/repository/postgres/postgrestest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

var testDB *postgrestest.Database

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	db, err := postgrestest.Start(context.Background())
	if err != nil {
		log.Fatalf("failed to start postgres: %v", err)
	}
	testDB = db
	code := m.Run()
	if err := db.Close(); err != nil {
		log.Printf("failed to close postgres: %v", err)
	}
	os.Exit(code)
}

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	if testDB == nil {
		t.Skip("skipping integration test")
	}
	require.NoError(t, testDB.Truncate(context.Background()))
	return NewRepository(testDB.Pool)
}

func testId(height, index int64) types.InscriptionId {
	hash, err := chainhash.NewHashFromStr(fmt.Sprintf("%064x", height*10_000+index))
	if err != nil {
		panic(err)
	}
	return types.NewInscriptionId(*hash, 0)
}

func testSequence(t *testing.T, height, index int64) types.Sequence {
	t.Helper()
	sequence, err := types.NewSequence(height, index)
	require.NoError(t, err)
	return sequence
}

func testDeploy(t *testing.T, height, index, supply int64) *entity.Deploy {
	t.Helper()
	id := testId(height, index)
	return &entity.Deploy{
		Id:              id,
		SourceId:        id,
		Name:            "Test",
		Max:             supply,
		DeployerAddress: "bc1qdeployer",
		BlockHeight:     height,
		Sequence:        testSequence(t, height, index),
		Timestamp:       time.Unix(1_700_000_000, 0).UTC(),
	}
}

func testMint(t *testing.T, deploy *entity.Deploy, height, index int64) *entity.Mint {
	t.Helper()
	id := testId(height, index)
	return &entity.Mint{
		Id:            id,
		DeployId:      deploy.Id,
		SourceId:      deploy.SourceId,
		MintAddress:   "bc1qminter",
		TransactionId: id.TxHash,
		BlockHeight:   height,
		Sequence:      testSequence(t, height, index),
		Timestamp:     time.Unix(1_700_000_000, 0).UTC(),
	}
}

func testBitmap(t *testing.T, number, height, index int64) *entity.Bitmap {
	t.Helper()
	return &entity.Bitmap{
		InscriptionId: testId(height, index),
		BitmapNumber:  number,
		Address:       "bc1qclaimer",
		BlockHeight:   height,
		Sequence:      testSequence(t, height, index),
		Timestamp:     time.Unix(1_700_000_000, 0).UTC(),
	}
}

func testParcel(t *testing.T, bitmap *entity.Bitmap, parcelIndex, height, index int64) *entity.Parcel {
	t.Helper()
	return &entity.Parcel{
		InscriptionId:       testId(height, index),
		BitmapNumber:        bitmap.BitmapNumber,
		BitmapInscriptionId: bitmap.InscriptionId,
		ParcelIndex:         parcelIndex,
		Address:             bitmap.Address,
		BlockHeight:         height,
		Sequence:            testSequence(t, height, index),
		Timestamp:           time.Unix(1_700_000_000, 0).UTC(),
	}
}

func TestRepositoryDeploysAndMints(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	deploy := testDeploy(t, 800_000, 0, 2)
	created, err := repo.CreateDeploy(ctx, deploy)
	require.NoError(t, err)
	require.True(t, created)

	duplicate := testDeploy(t, 800_001, 0, 2)
	duplicate.SourceId = deploy.SourceId
	created, err = repo.CreateDeploy(ctx, duplicate)
	require.NoError(t, err)
	assert.False(t, created, "source id is unique")

	stored, err := repo.GetDeployBySourceId(ctx, deploy.SourceId)
	require.NoError(t, err)
	assert.Equal(t, deploy.Id, stored.Id)
	assert.Equal(t, deploy.Sequence, stored.Sequence)
	assert.True(t, deploy.Timestamp.Equal(stored.Timestamp))

	_, err = repo.GetDeployById(ctx, duplicate.Id)
	assert.ErrorIs(t, err, errs.NotFound)

	mint := testMint(t, deploy, 800_002, 0)
	require.NoError(t, repo.CreateMint(ctx, mint))
	err = repo.CreateMint(ctx, mint)
	assert.ErrorIs(t, err, errs.PersistenceConflict)

	exists, err := repo.MintExists(ctx, mint.Id)
	require.NoError(t, err)
	assert.True(t, exists)
	count, err := repo.CountMintsByDeployId(ctx, deploy.Id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	heights, err := repo.DeleteMintsByDeployId(ctx, deploy.Id)
	require.NoError(t, err)
	assert.Equal(t, []int64{800_002}, heights)
	require.NoError(t, repo.DeleteDeployById(ctx, deploy.Id))
	_, err = repo.GetDeployBySourceId(ctx, deploy.SourceId)
	assert.ErrorIs(t, err, errs.NotFound)
}

func TestRepositoryBitmapUpsertKeepsLowestSequence(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	later := testBitmap(t, 100, 800_001, 0)
	stored, err := repo.UpsertBitmap(ctx, later)
	require.NoError(t, err)
	require.True(t, stored)

	parcel := testParcel(t, later, 0, 800_002, 0)
	created, err := repo.CreateParcel(ctx, parcel)
	require.NoError(t, err)
	require.True(t, created)

	evenLater := testBitmap(t, 100, 800_003, 0)
	stored, err = repo.UpsertBitmap(ctx, evenLater)
	require.NoError(t, err)
	assert.False(t, stored, "a higher sequence never replaces the claim")

	earlier := testBitmap(t, 100, 800_000, 0)
	stored, err = repo.UpsertBitmap(ctx, earlier)
	require.NoError(t, err)
	assert.True(t, stored)

	bitmap, err := repo.GetBitmapByNumber(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, earlier.InscriptionId, bitmap.InscriptionId)

	heights, err := repo.DeleteParcelsByBitmapInscriptionId(ctx, later.InscriptionId)
	require.NoError(t, err)
	assert.Equal(t, []int64{800_002}, heights)
	_, err = repo.GetParcelById(ctx, parcel.InscriptionId)
	assert.ErrorIs(t, err, errs.NotFound)
}

func TestRepositoryParcelIndexIsUnique(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	bitmap := testBitmap(t, 100, 800_000, 0)
	_, err := repo.UpsertBitmap(ctx, bitmap)
	require.NoError(t, err)

	first := testParcel(t, bitmap, 3, 800_001, 0)
	created, err := repo.CreateParcel(ctx, first)
	require.NoError(t, err)
	require.True(t, created)

	second := testParcel(t, bitmap, 3, 800_001, 1)
	created, err = repo.CreateParcel(ctx, second)
	require.NoError(t, err)
	assert.False(t, created)

	created, err = repo.CreateParcel(ctx, first)
	require.NoError(t, err)
	assert.False(t, created)

	parcel, err := repo.GetParcelById(ctx, first.InscriptionId)
	require.NoError(t, err)
	assert.Equal(t, int64(3), parcel.ParcelIndex)
	assert.Equal(t, bitmap.InscriptionId, parcel.BitmapInscriptionId)
}

func TestRepositoryBlockLedger(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	_, err := repo.GetLatestProcessedBlockHeight(ctx)
	require.ErrorIs(t, err, errs.NotFound)

	progress, err := repo.BeginBlockAttempt(ctx, 800_000)
	require.NoError(t, err)
	assert.Equal(t, entity.BlockStatusPending, progress.Status)
	assert.Equal(t, int32(1), progress.AttemptCount)
	progress, err = repo.BeginBlockAttempt(ctx, 800_000)
	require.NoError(t, err)
	assert.Equal(t, int32(2), progress.AttemptCount)

	_, err = repo.GetLatestProcessedBlockHeight(ctx)
	require.ErrorIs(t, err, errs.NotFound, "pending heights are not processed")

	require.NoError(t, repo.SetBlockProgressStatus(ctx, 800_000, entity.BlockStatusComplete, ""))
	require.NoError(t, repo.SetBlockProgressStatus(ctx, 800_002, entity.BlockStatusFailed, "timeout"))
	_, err = repo.BeginBlockAttempt(ctx, 800_003)
	require.NoError(t, err)

	latest, err := repo.GetLatestProcessedBlockHeight(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(800_002), latest)

	stored, err := repo.GetBlockProgress(ctx, 800_002)
	require.NoError(t, err)
	assert.Equal(t, entity.BlockStatusFailed, stored.Status)
	assert.Equal(t, "timeout", stored.LastError)

	require.NoError(t, repo.UpsertErrorBlock(ctx, 800_002, "timeout"))
	require.NoError(t, repo.UpsertErrorBlock(ctx, 800_002, "still down"))
	blocks, err := repo.GetErrorBlocks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, "still down", blocks[0].ErrorMessage)
	assert.Equal(t, int32(1), blocks[0].RetryCount)

	require.NoError(t, repo.DeleteErrorBlock(ctx, 800_002))
	count, err := repo.CountErrorBlocks(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRepositoryDeferredBlocks(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	require.NoError(t, repo.UpsertErrorBlock(ctx, 800_000, "timeout"))
	require.NoError(t, repo.UpsertErrorBlock(ctx, 800_002, "timeout"))

	below, err := repo.CountErrorBlocksBelow(ctx, 800_003)
	require.NoError(t, err)
	assert.Equal(t, int64(2), below)

	require.NoError(t, repo.UpsertDeferredBlock(ctx, 800_001, 1, "deploy_not_found"))
	require.NoError(t, repo.UpsertDeferredBlock(ctx, 800_003, 2, "bitmap_not_found"))
	require.NoError(t, repo.UpsertDeferredBlock(ctx, 800_004, 0, "displaced"))

	ready, err := repo.GetReadyDeferredBlocks(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, ready, "no awaited height recovered")

	// one of the awaited heights recovers
	require.NoError(t, repo.DeleteErrorBlock(ctx, 800_002))
	ready, err = repo.GetReadyDeferredBlocks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, ready, 1)
	assert.Equal(t, int64(800_003), ready[0].BlockHeight)
	assert.Equal(t, "bitmap_not_found", ready[0].Reason)
	assert.Equal(t, int32(2), ready[0].AwaitingErrorBlocks)

	require.NoError(t, repo.DeleteErrorBlock(ctx, 800_000))
	ready, err = repo.GetReadyDeferredBlocks(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, ready, 3)
	ready, err = repo.GetReadyDeferredBlocks(ctx, 2)
	require.NoError(t, err)
	require.Len(t, ready, 2, "limit bounds the result")
	assert.Equal(t, int64(800_001), ready[0].BlockHeight)
	assert.Equal(t, int64(800_003), ready[1].BlockHeight)

	require.NoError(t, repo.DeleteDeferredBlock(ctx, 800_001))
	count, err := repo.CountDeferredBlocks(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestRepositoryTransaction(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	tx, err := repo.BeginInscriptionsTx(ctx)
	require.NoError(t, err)
	deploy := testDeploy(t, 800_000, 0, 0)
	_, err = tx.CreateDeploy(ctx, deploy)
	require.NoError(t, err)

	_, err = repo.GetDeployById(ctx, deploy.Id)
	assert.ErrorIs(t, err, errs.NotFound, "uncommitted rows are invisible outside the transaction")

	require.NoError(t, tx.Rollback(ctx))
	_, err = repo.GetDeployById(ctx, deploy.Id)
	assert.ErrorIs(t, err, errs.NotFound)

	tx, err = repo.BeginInscriptionsTx(ctx)
	require.NoError(t, err)
	_, err = tx.CreateDeploy(ctx, deploy)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))
	require.NoError(t, tx.Rollback(ctx), "rollback after commit is a no-op")

	_, err = repo.GetDeployById(ctx, deploy.Id)
	assert.NoError(t, err)
}

func TestRepositoryIndexerState(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	_, err := repo.GetLatestIndexerState(ctx)
	require.ErrorIs(t, err, errs.NotFound)

	require.NoError(t, repo.CreateIndexerState(ctx, entity.IndexerState{ClientVersion: "v0.0.1", DBVersion: 1, Network: common.NetworkMainnet}))
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, repo.CreateIndexerState(ctx, entity.IndexerState{ClientVersion: "v0.0.2", DBVersion: 1, Network: common.NetworkMainnet}))

	state, err := repo.GetLatestIndexerState(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v0.0.2", state.ClientVersion)
	assert.Equal(t, common.NetworkMainnet, state.Network)
}

// mintUnderCap runs the cap check of a block commit: lock the deploy, count its mints, insert.
func mintUnderCap(ctx context.Context, repo *Repository, mint *entity.Mint, ready *sync.WaitGroup) (bool, error) {
	tx, err := repo.BeginInscriptionsTx(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// every transaction takes its snapshot before any of them locks the deploy
	if _, err := tx.CountMintsByDeployId(ctx, mint.DeployId); err != nil {
		return false, err
	}
	ready.Done()
	ready.Wait()

	deploy, err := tx.LockDeployBySourceId(ctx, mint.SourceId)
	if err != nil {
		return false, err
	}
	count, err := tx.CountMintsByDeployId(ctx, deploy.Id)
	if err != nil {
		return false, err
	}
	if count >= deploy.Max {
		return false, nil
	}
	if err := tx.CreateMint(ctx, mint); err != nil {
		return false, err
	}
	return true, errors.WithStack(tx.Commit(ctx))
}

func TestRepositoryConcurrentMintsRespectCap(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	const (
		supply  = 3
		writers = 8
	)
	deploy := testDeploy(t, 800_000, 0, supply)
	_, err := repo.CreateDeploy(ctx, deploy)
	require.NoError(t, err)

	mints := make([]*entity.Mint, writers)
	for i := range mints {
		mints[i] = testMint(t, deploy, 800_001, int64(i))
	}

	var ready sync.WaitGroup
	ready.Add(writers)
	results := make([]bool, writers)
	var group errgroup.Group
	for i := 0; i < writers; i++ {
		i := i
		group.Go(func() error {
			minted, err := mintUnderCap(ctx, repo, mints[i], &ready)
			results[i] = minted
			return err
		})
	}
	require.NoError(t, group.Wait())

	minted := 0
	for _, ok := range results {
		if ok {
			minted++
		}
	}
	assert.Equal(t, supply, minted)
	count, err := repo.CountMintsByDeployId(ctx, deploy.Id)
	require.NoError(t, err)
	assert.Equal(t, int64(supply), count)
}
