package httphandler

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscription-indexer/common"
	"github.com/gaze-network/inscription-indexer/common/errs"
	"github.com/gofiber/fiber/v2"
)

type getBlockProgressRequest struct {
	Height int64 `params:"height"`
}

func (r getBlockProgressRequest) Validate() error {
	var errList []error
	if r.Height < 0 {
		errList = append(errList, errors.New("'height' must be non-negative"))
	}
	return errs.WithPublicMessage(errors.Join(errList...), "validation error")
}

type getBlockProgressResult struct {
	BlockHeight  int64     `json:"blockHeight"`
	Status       string    `json:"status"`
	AttemptCount int32     `json:"attemptCount"`
	LastError    string    `json:"lastError,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type getBlockProgressResponse = common.HttpResponse[getBlockProgressResult]

func (h *HttpHandler) GetBlockProgress(ctx *fiber.Ctx) (err error) {
	var req getBlockProgressRequest
	if err := ctx.ParamsParser(&req); err != nil {
		return errors.WithStack(err)
	}
	if err := req.Validate(); err != nil {
		return errors.WithStack(err)
	}

	progress, err := h.usecase.GetBlockProgress(ctx.UserContext(), req.Height)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return errs.NewPublicError("block not processed yet")
		}
		return errors.Wrap(err, "error during GetBlockProgress")
	}

	resp := getBlockProgressResponse{
		Result: &getBlockProgressResult{
			BlockHeight:  progress.BlockHeight,
			Status:       string(progress.Status),
			AttemptCount: progress.AttemptCount,
			LastError:    progress.LastError,
			UpdatedAt:    progress.UpdatedAt,
		},
	}
	return errors.WithStack(ctx.JSON(resp))
}
