package inscriptions

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscription-indexer/common/errs"
	"github.com/gaze-network/inscription-indexer/core/types"
	"github.com/gaze-network/inscription-indexer/modules/inscriptions/internal/datagateway"
	"github.com/gaze-network/inscription-indexer/modules/inscriptions/internal/entity"
	"github.com/samber/lo"
)

var (
	_ datagateway.InscriptionsDataGatewayWithTx = (*memStore)(nil)
	_ datagateway.IndexerInfoDataGateway        = (*memStore)(nil)
)

type memState struct {
	deploys     map[types.InscriptionId]entity.Deploy
	mints       map[types.InscriptionId]entity.Mint
	bitmaps     map[int64]entity.Bitmap
	parcels     map[types.InscriptionId]entity.Parcel
	progress    map[int64]entity.BlockProgress
	errorBlocks map[int64]entity.ErrorBlock
	deferred    map[int64]entity.DeferredBlock
	states      []entity.IndexerState
}

func newMemState() *memState {
	return &memState{
		deploys:     make(map[types.InscriptionId]entity.Deploy),
		mints:       make(map[types.InscriptionId]entity.Mint),
		bitmaps:     make(map[int64]entity.Bitmap),
		parcels:     make(map[types.InscriptionId]entity.Parcel),
		progress:    make(map[int64]entity.BlockProgress),
		errorBlocks: make(map[int64]entity.ErrorBlock),
		deferred:    make(map[int64]entity.DeferredBlock),
	}
}

func (s *memState) clone() *memState {
	return &memState{
		deploys:     lo.Assign(s.deploys),
		mints:       lo.Assign(s.mints),
		bitmaps:     lo.Assign(s.bitmaps),
		parcels:     lo.Assign(s.parcels),
		progress:    lo.Assign(s.progress),
		errorBlocks: lo.Assign(s.errorBlocks),
		deferred:    lo.Assign(s.deferred),
		states:      append([]entity.IndexerState(nil), s.states...),
	}
}

// memStore is an in-memory datagateway with the uniqueness rules of the schema. A transaction
// works on a private copy of the state that replaces the shared state on commit.
type memStore struct {
	mu     *sync.Mutex
	state  *memState
	parent *memStore

	// commitConflicts fails the next commits with a persistence conflict.
	commitConflicts int
	commits         int
	beginErr        error
}

func newMemStore() *memStore {
	return &memStore{
		mu:    &sync.Mutex{},
		state: newMemState(),
	}
}

func (m *memStore) root() *memStore {
	if m.parent != nil {
		return m.parent
	}
	return m
}

func (m *memStore) lock() func() {
	m.mu.Lock()
	return m.mu.Unlock
}

func (m *memStore) BeginInscriptionsTx(context.Context) (datagateway.InscriptionsDataGatewayWithTx, error) {
	if m.parent != nil {
		return nil, errors.New("Transaction already exists. Call Commit() or Rollback() first.")
	}
	defer m.lock()()
	if m.beginErr != nil {
		return nil, m.beginErr
	}
	return &memStore{
		mu:     &sync.Mutex{},
		state:  m.state.clone(),
		parent: m,
	}, nil
}

func (m *memStore) Commit(context.Context) error {
	if m.parent == nil || m.state == nil {
		return nil
	}
	root := m.parent
	defer root.lock()()
	if root.commitConflicts > 0 {
		root.commitConflicts--
		m.state = nil
		return errors.Wrap(errs.PersistenceConflict, "could not serialize access")
	}
	root.state = m.state
	root.commits++
	m.state = nil
	return nil
}

func (m *memStore) Rollback(context.Context) error {
	if m.parent != nil {
		m.state = nil
	}
	return nil
}

func (m *memStore) snapshot() *memState {
	defer m.lock()()
	return m.state.clone()
}

func (m *memStore) GetDeployBySourceId(_ context.Context, sourceId types.InscriptionId) (*entity.Deploy, error) {
	defer m.lock()()
	for _, deploy := range m.state.deploys {
		if deploy.SourceId == sourceId {
			return &deploy, nil
		}
	}
	return nil, errors.WithStack(errs.NotFound)
}

func (m *memStore) GetDeployById(_ context.Context, id types.InscriptionId) (*entity.Deploy, error) {
	defer m.lock()()
	deploy, ok := m.state.deploys[id]
	if !ok {
		return nil, errors.WithStack(errs.NotFound)
	}
	return &deploy, nil
}

func (m *memStore) MintExists(_ context.Context, id types.InscriptionId) (bool, error) {
	defer m.lock()()
	_, ok := m.state.mints[id]
	return ok, nil
}

func (m *memStore) CountMintsByDeployId(_ context.Context, deployId types.InscriptionId) (int64, error) {
	defer m.lock()()
	var count int64
	for _, mint := range m.state.mints {
		if mint.DeployId == deployId {
			count++
		}
	}
	return count, nil
}

func (m *memStore) GetBitmapByNumber(_ context.Context, number int64) (*entity.Bitmap, error) {
	defer m.lock()()
	bitmap, ok := m.state.bitmaps[number]
	if !ok {
		return nil, errors.WithStack(errs.NotFound)
	}
	return &bitmap, nil
}

func (m *memStore) GetParcelById(_ context.Context, id types.InscriptionId) (*entity.Parcel, error) {
	defer m.lock()()
	parcel, ok := m.state.parcels[id]
	if !ok {
		return nil, errors.WithStack(errs.NotFound)
	}
	return &parcel, nil
}

func (m *memStore) GetLatestProcessedBlockHeight(context.Context) (int64, error) {
	defer m.lock()()
	latest := int64(-1)
	for height, progress := range m.state.progress {
		if progress.Status != entity.BlockStatusPending && height > latest {
			latest = height
		}
	}
	if latest < 0 {
		return 0, errors.WithStack(errs.NotFound)
	}
	return latest, nil
}

func (m *memStore) GetBlockProgress(_ context.Context, height int64) (*entity.BlockProgress, error) {
	defer m.lock()()
	progress, ok := m.state.progress[height]
	if !ok {
		return nil, errors.WithStack(errs.NotFound)
	}
	return &progress, nil
}

func (m *memStore) GetErrorBlocks(_ context.Context, limit int32) ([]*entity.ErrorBlock, error) {
	defer m.lock()()
	blocks := make([]*entity.ErrorBlock, 0, len(m.state.errorBlocks))
	for _, block := range m.state.errorBlocks {
		block := block
		blocks = append(blocks, &block)
	}
	sort.Slice(blocks, func(i, j int) bool {
		if !blocks[i].UpdatedAt.Equal(blocks[j].UpdatedAt) {
			return blocks[i].UpdatedAt.Before(blocks[j].UpdatedAt)
		}
		return blocks[i].BlockHeight < blocks[j].BlockHeight
	})
	if int(limit) < len(blocks) {
		blocks = blocks[:limit]
	}
	return blocks, nil
}

func (m *memStore) CountErrorBlocks(context.Context) (int64, error) {
	defer m.lock()()
	return int64(len(m.state.errorBlocks)), nil
}

func (m *memStore) countErrorBlocksBelow(height int64) int64 {
	var count int64
	for h := range m.state.errorBlocks {
		if h < height {
			count++
		}
	}
	return count
}

func (m *memStore) CountErrorBlocksBelow(_ context.Context, height int64) (int64, error) {
	defer m.lock()()
	return m.countErrorBlocksBelow(height), nil
}

func (m *memStore) GetReadyDeferredBlocks(_ context.Context, limit int32) ([]*entity.DeferredBlock, error) {
	defer m.lock()()
	blocks := make([]*entity.DeferredBlock, 0, len(m.state.deferred))
	for _, block := range m.state.deferred {
		block := block
		if m.countErrorBlocksBelow(block.BlockHeight) < max(int64(block.AwaitingErrorBlocks), 1) {
			blocks = append(blocks, &block)
		}
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].BlockHeight < blocks[j].BlockHeight })
	if int(limit) < len(blocks) {
		blocks = blocks[:limit]
	}
	return blocks, nil
}

func (m *memStore) CountDeferredBlocks(context.Context) (int64, error) {
	defer m.lock()()
	return int64(len(m.state.deferred)), nil
}

func (m *memStore) CreateDeploy(_ context.Context, deploy *entity.Deploy) (bool, error) {
	defer m.lock()()
	if _, ok := m.state.deploys[deploy.Id]; ok {
		return false, nil
	}
	for _, existing := range m.state.deploys {
		if existing.SourceId == deploy.SourceId {
			return false, nil
		}
	}
	m.state.deploys[deploy.Id] = *deploy
	return true, nil
}

func (m *memStore) LockDeployBySourceId(ctx context.Context, sourceId types.InscriptionId) (*entity.Deploy, error) {
	return m.GetDeployBySourceId(ctx, sourceId)
}

func (m *memStore) CreateMint(_ context.Context, mint *entity.Mint) error {
	defer m.lock()()
	if _, ok := m.state.mints[mint.Id]; ok {
		return errors.Wrap(errs.PersistenceConflict, "duplicate mint")
	}
	if _, ok := m.state.deploys[mint.DeployId]; !ok {
		return errors.New("mint references unknown deploy")
	}
	m.state.mints[mint.Id] = *mint
	return nil
}

func (m *memStore) LockBitmapByNumber(ctx context.Context, number int64) (*entity.Bitmap, error) {
	return m.GetBitmapByNumber(ctx, number)
}

func (m *memStore) UpsertBitmap(_ context.Context, bitmap *entity.Bitmap) (bool, error) {
	defer m.lock()()
	if existing, ok := m.state.bitmaps[bitmap.BitmapNumber]; ok && existing.Sequence <= bitmap.Sequence {
		return false, nil
	}
	m.state.bitmaps[bitmap.BitmapNumber] = *bitmap
	return true, nil
}

func (m *memStore) DeleteParcelsByBitmapInscriptionId(_ context.Context, bitmapInscriptionId types.InscriptionId) ([]int64, error) {
	defer m.lock()()
	var heights []int64
	for id, parcel := range m.state.parcels {
		if parcel.BitmapInscriptionId == bitmapInscriptionId {
			delete(m.state.parcels, id)
			heights = append(heights, parcel.BlockHeight)
		}
	}
	return heights, nil
}

func (m *memStore) DeleteDeployById(_ context.Context, id types.InscriptionId) error {
	defer m.lock()()
	for _, mint := range m.state.mints {
		if mint.DeployId == id {
			return errors.New("deploy is referenced by mints")
		}
	}
	delete(m.state.deploys, id)
	return nil
}

func (m *memStore) DeleteMintsByDeployId(_ context.Context, deployId types.InscriptionId) ([]int64, error) {
	defer m.lock()()
	var heights []int64
	for id, mint := range m.state.mints {
		if mint.DeployId == deployId {
			delete(m.state.mints, id)
			heights = append(heights, mint.BlockHeight)
		}
	}
	return heights, nil
}

func (m *memStore) CreateParcel(_ context.Context, parcel *entity.Parcel) (bool, error) {
	defer m.lock()()
	if _, ok := m.state.parcels[parcel.InscriptionId]; ok {
		return false, nil
	}
	for _, existing := range m.state.parcels {
		if existing.BitmapNumber == parcel.BitmapNumber && existing.ParcelIndex == parcel.ParcelIndex {
			return false, nil
		}
	}
	m.state.parcels[parcel.InscriptionId] = *parcel
	return true, nil
}

// BeginBlockAttempt writes through to the shared state, like an autocommit statement.
func (m *memStore) BeginBlockAttempt(_ context.Context, height int64) (*entity.BlockProgress, error) {
	defer m.lock()()
	progress := m.state.progress[height]
	progress.BlockHeight = height
	progress.Status = entity.BlockStatusPending
	progress.AttemptCount++
	progress.UpdatedAt = time.Now()
	m.state.progress[height] = progress
	return &progress, nil
}

func (m *memStore) SetBlockProgressStatus(_ context.Context, height int64, status entity.BlockStatus, lastError string) error {
	if !status.IsValid() {
		return errors.Wrapf(errs.InvalidArgument, "invalid block status %q", status)
	}
	defer m.lock()()
	progress := m.state.progress[height]
	progress.BlockHeight = height
	progress.Status = status
	progress.LastError = lastError
	progress.UpdatedAt = time.Now()
	m.state.progress[height] = progress
	return nil
}

func (m *memStore) UpsertErrorBlock(_ context.Context, height int64, errorMessage string) error {
	defer m.lock()()
	now := time.Now()
	block, ok := m.state.errorBlocks[height]
	if !ok {
		block = entity.ErrorBlock{BlockHeight: height, FirstFailedAt: now}
	} else {
		block.RetryCount++
	}
	block.ErrorMessage = errorMessage
	block.UpdatedAt = now
	m.state.errorBlocks[height] = block
	return nil
}

func (m *memStore) DeleteErrorBlock(_ context.Context, height int64) error {
	defer m.lock()()
	delete(m.state.errorBlocks, height)
	return nil
}

func (m *memStore) UpsertDeferredBlock(_ context.Context, height int64, awaitingErrorBlocks int32, reason string) error {
	defer m.lock()()
	now := time.Now()
	block, ok := m.state.deferred[height]
	if !ok {
		block = entity.DeferredBlock{BlockHeight: height, CreatedAt: now}
	}
	block.AwaitingErrorBlocks = awaitingErrorBlocks
	block.Reason = reason
	block.UpdatedAt = now
	m.state.deferred[height] = block
	return nil
}

func (m *memStore) DeleteDeferredBlock(_ context.Context, height int64) error {
	defer m.lock()()
	delete(m.state.deferred, height)
	return nil
}

func (m *memStore) GetLatestIndexerState(context.Context) (entity.IndexerState, error) {
	defer m.lock()()
	if len(m.state.states) == 0 {
		return entity.IndexerState{}, errors.WithStack(errs.NotFound)
	}
	return m.state.states[len(m.state.states)-1], nil
}

func (m *memStore) CreateIndexerState(_ context.Context, state entity.IndexerState) error {
	defer m.lock()()
	state.CreatedAt = time.Now()
	m.state.states = append(m.state.states, state)
	return nil
}
