package httphandler

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscription-indexer/common"
	"github.com/gaze-network/inscription-indexer/common/errs"
	"github.com/gaze-network/inscription-indexer/modules/inscriptions/internal/entity"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
)

const (
	defaultErrorBlocksLimit = 20
	maxErrorBlocksLimit     = 100
)

type getStatusRequest struct {
	Limit int32 `query:"limit"`
}

func (r *getStatusRequest) Validate() error {
	var errList []error
	if r.Limit < 0 {
		errList = append(errList, errors.New("'limit' must be non-negative"))
	}
	if r.Limit > maxErrorBlocksLimit {
		errList = append(errList, errors.Errorf("'limit' cannot exceed %d", maxErrorBlocksLimit))
	}
	return errs.WithPublicMessage(errors.Join(errList...), "validation error")
}

type errorBlock struct {
	BlockHeight   int64     `json:"blockHeight"`
	ErrorMessage  string    `json:"errorMessage"`
	RetryCount    int32     `json:"retryCount"`
	FirstFailedAt time.Time `json:"firstFailedAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type getStatusResult struct {
	Network            string       `json:"network"`
	LatestBlockHeight  int64        `json:"latestBlockHeight"`
	ErrorBlockCount    int64        `json:"errorBlockCount"`
	DeferredBlockCount int64        `json:"deferredBlockCount"`
	ErrorBlocks        []errorBlock `json:"errorBlocks"`
}

type getStatusResponse = common.HttpResponse[getStatusResult]

// GetStatus reports the cursor position and the backlog of failed heights.
func (h *HttpHandler) GetStatus(ctx *fiber.Ctx) (err error) {
	var req getStatusRequest
	if err := ctx.QueryParser(&req); err != nil {
		return errors.WithStack(err)
	}
	if err := req.Validate(); err != nil {
		return errors.WithStack(err)
	}
	if req.Limit == 0 {
		req.Limit = defaultErrorBlocksLimit
	}

	status, err := h.usecase.GetStatus(ctx.UserContext(), req.Limit)
	if err != nil {
		return errors.Wrap(err, "error during GetStatus")
	}

	resp := getStatusResponse{
		Result: &getStatusResult{
			Network:            h.network.String(),
			LatestBlockHeight:  status.LatestBlockHeight,
			ErrorBlockCount:    status.ErrorBlockCount,
			DeferredBlockCount: status.DeferredBlockCount,
			ErrorBlocks: lo.Map(status.ErrorBlocks, func(block *entity.ErrorBlock, _ int) errorBlock {
				return errorBlock{
					BlockHeight:   block.BlockHeight,
					ErrorMessage:  block.ErrorMessage,
					RetryCount:    block.RetryCount,
					FirstFailedAt: block.FirstFailedAt,
					UpdatedAt:     block.UpdatedAt,
				}
			}),
		},
	}
	return errors.WithStack(ctx.JSON(resp))
}
