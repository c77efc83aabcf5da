package errorhandler

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscription-indexer/common"
	"github.com/gaze-network/inscription-indexer/common/errs"
	"github.com/gaze-network/inscription-indexer/pkg/logger"
	"github.com/gaze-network/inscription-indexer/pkg/logger/slogx"
	"github.com/gofiber/fiber/v2"
)

// NewHTTPErrorHandler renders handler errors in the common response envelope. Only public
// messages reach the client, anything else is logged and answered with a generic message.
func NewHTTPErrorHandler() fiber.ErrorHandler {
	return func(ctx *fiber.Ctx, err error) error {
		if e := new(errs.PublicError); errors.As(err, &e) {
			return errors.WithStack(respond(ctx, http.StatusBadRequest, e.Message()))
		}
		if e := new(fiber.Error); errors.As(err, &e) {
			return errors.WithStack(respond(ctx, e.Code, e.Message))
		}
		if errors.Is(err, errs.Timeout) {
			return errors.WithStack(respond(ctx, http.StatusGatewayTimeout, http.StatusText(http.StatusGatewayTimeout)))
		}

		logger.ErrorContext(ctx.UserContext(), "Something went wrong, unhandled api error", err,
			slogx.String("event", "api_unhandled_error"),
			slogx.String("path", ctx.Path()),
		)
		return errors.WithStack(respond(ctx, http.StatusInternalServerError, "Internal Server Error"))
	}
}

func respond(ctx *fiber.Ctx, status int, message string) error {
	return ctx.Status(status).JSON(common.HttpResponse[any]{
		Error: &message,
	})
}
