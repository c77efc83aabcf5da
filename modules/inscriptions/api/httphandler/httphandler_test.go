package httphandler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscription-indexer/common"
	"github.com/gaze-network/inscription-indexer/common/errs"
	"github.com/gaze-network/inscription-indexer/core/types"
	"github.com/gaze-network/inscription-indexer/modules/inscriptions/internal/datagateway"
	"github.com/gaze-network/inscription-indexer/modules/inscriptions/internal/entity"
	"github.com/gaze-network/inscription-indexer/modules/inscriptions/internal/usecase"
	"github.com/gaze-network/inscription-indexer/pkg/errorhandler"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ datagateway.InscriptionsReaderDataGateway = (*fakeReader)(nil)

type fakeReader struct {
	progress    map[int64]*entity.BlockProgress
	errorBlocks []*entity.ErrorBlock
	deferred    int64
	latest      int64
}

func (f *fakeReader) GetDeployBySourceId(context.Context, types.InscriptionId) (*entity.Deploy, error) {
	return nil, errors.WithStack(errs.NotFound)
}

func (f *fakeReader) GetDeployById(context.Context, types.InscriptionId) (*entity.Deploy, error) {
	return nil, errors.WithStack(errs.NotFound)
}

func (f *fakeReader) MintExists(context.Context, types.InscriptionId) (bool, error) {
	return false, nil
}

func (f *fakeReader) CountMintsByDeployId(context.Context, types.InscriptionId) (int64, error) {
	return 0, nil
}

func (f *fakeReader) GetBitmapByNumber(context.Context, int64) (*entity.Bitmap, error) {
	return nil, errors.WithStack(errs.NotFound)
}

func (f *fakeReader) GetParcelById(context.Context, types.InscriptionId) (*entity.Parcel, error) {
	return nil, errors.WithStack(errs.NotFound)
}

func (f *fakeReader) GetLatestProcessedBlockHeight(context.Context) (int64, error) {
	if f.latest < 0 {
		return 0, errors.WithStack(errs.NotFound)
	}
	return f.latest, nil
}

func (f *fakeReader) GetBlockProgress(_ context.Context, height int64) (*entity.BlockProgress, error) {
	if progress, ok := f.progress[height]; ok {
		return progress, nil
	}
	return nil, errors.WithStack(errs.NotFound)
}

func (f *fakeReader) GetErrorBlocks(_ context.Context, limit int32) ([]*entity.ErrorBlock, error) {
	return f.errorBlocks[:min(int(limit), len(f.errorBlocks))], nil
}

func (f *fakeReader) CountErrorBlocks(context.Context) (int64, error) {
	return int64(len(f.errorBlocks)), nil
}

func (f *fakeReader) CountErrorBlocksBelow(_ context.Context, height int64) (int64, error) {
	return int64(len(lo.Filter(f.errorBlocks, func(block *entity.ErrorBlock, _ int) bool {
		return block.BlockHeight < height
	}))), nil
}

func (f *fakeReader) GetReadyDeferredBlocks(context.Context, int32) ([]*entity.DeferredBlock, error) {
	return nil, nil
}

func (f *fakeReader) CountDeferredBlocks(context.Context) (int64, error) {
	return f.deferred, nil
}

func newTestApp(t *testing.T, reader *fakeReader) *fiber.App {
	t.Helper()
	app := fiber.New(fiber.Config{ErrorHandler: errorhandler.NewHTTPErrorHandler()})
	require.NoError(t, New(common.NetworkMainnet, usecase.New(reader)).Mount(app))
	return app
}

func doRequest(t *testing.T, app *fiber.App, path string, result any) (int, string) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	body := common.HttpResponse[json.RawMessage]{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	if body.Error != nil {
		return resp.StatusCode, *body.Error
	}
	require.NotNil(t, body.Result)
	require.NoError(t, json.Unmarshal(*body.Result, result))
	return resp.StatusCode, ""
}

func TestGetBlockProgress(t *testing.T) {
	updatedAt := time.Unix(1700000000, 0).UTC()
	app := newTestApp(t, &fakeReader{
		progress: map[int64]*entity.BlockProgress{
			800000: {BlockHeight: 800000, Status: entity.BlockStatusFailed, AttemptCount: 3, LastError: "timeout", UpdatedAt: updatedAt},
		},
	})

	var result getBlockProgressResult
	status, message := doRequest(t, app, "/v1/inscriptions/blocks/800000", &result)
	require.Equal(t, http.StatusOK, status, message)
	assert.EqualValues(t, 800000, result.BlockHeight)
	assert.Equal(t, string(entity.BlockStatusFailed), result.Status)
	assert.EqualValues(t, 3, result.AttemptCount)
	assert.Equal(t, "timeout", result.LastError)
	assert.True(t, updatedAt.Equal(result.UpdatedAt))

	status, message = doRequest(t, app, "/v1/inscriptions/blocks/800001", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "block not processed yet", message)

	status, message = doRequest(t, app, "/v1/inscriptions/blocks/-1", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, message, "validation error")
}

func TestGetStatus(t *testing.T) {
	now := time.Now()
	app := newTestApp(t, &fakeReader{
		latest:   800010,
		deferred: 4,
		errorBlocks: []*entity.ErrorBlock{
			{BlockHeight: 800003, ErrorMessage: "timeout", RetryCount: 2, FirstFailedAt: now, UpdatedAt: now},
			{BlockHeight: 800005, ErrorMessage: "timeout", FirstFailedAt: now, UpdatedAt: now},
		},
	})

	tests := []struct {
		name           string
		query          string
		expectedStatus int
		expectedBlocks int
	}{
		{name: "default limit", query: "", expectedStatus: http.StatusOK, expectedBlocks: 2},
		{name: "limited", query: "?limit=1", expectedStatus: http.StatusOK, expectedBlocks: 1},
		{name: "limit too large", query: "?limit=1000", expectedStatus: http.StatusBadRequest},
		{name: "negative limit", query: "?limit=-1", expectedStatus: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var result getStatusResult
			status, message := doRequest(t, app, "/v1/inscriptions/status"+tt.query, &result)
			require.Equal(t, tt.expectedStatus, status, message)
			if tt.expectedStatus != http.StatusOK {
				return
			}
			assert.Equal(t, common.NetworkMainnet.String(), result.Network)
			assert.EqualValues(t, 800010, result.LatestBlockHeight)
			assert.EqualValues(t, 2, result.ErrorBlockCount)
			assert.EqualValues(t, 4, result.DeferredBlockCount)
			assert.Len(t, result.ErrorBlocks, tt.expectedBlocks)
		})
	}
}
