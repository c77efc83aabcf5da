package requestlogger

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscription-indexer/pkg/logger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

type Config struct {
	WithRequestHeader    bool     `mapstructure:"request_header"`
	WithRequestQuery     bool     `mapstructure:"request_query"`
	Disable              bool     `mapstructure:"disable"` // Disable logger level `INFO`
	HiddenRequestHeaders []string `mapstructure:"hidden_request_headers"`
}

// New logs every completed request. Failed requests and server errors are always logged at
// [slog.LevelError], even when the logger is disabled.
func New(config Config) fiber.Handler {
	hiddenRequestHeaders := make(map[string]struct{}, len(config.HiddenRequestHeaders))
	for _, header := range config.HiddenRequestHeaders {
		hiddenRequestHeaders[strings.TrimSpace(strings.ToLower(header))] = struct{}{}
	}
	return func(c *fiber.Ctx) error {
		start := time.Now()
		if id, ok := c.Locals(requestid.ConfigDefault.ContextKey).(string); ok && id != "" {
			c.SetUserContext(logger.WithContext(c.UserContext(), slog.String("requestId", id)))
		}

		err := c.Next()

		latency := time.Since(start)
		status := c.Response().StatusCode()
		if err != nil {
			// the error handler runs after the middleware chain, resolve the final status here
			status = http.StatusInternalServerError
			if e := new(fiber.Error); errors.As(err, &e) {
				status = e.Code
			}
		}

		level := slog.LevelInfo
		if err != nil || status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		if config.Disable && level == slog.LevelInfo {
			return errors.WithStack(err)
		}

		requestAttributes := []any{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("route", c.Route().Path),
			slog.String("ip", c.IP()),
			slog.String("user-agent", string(c.Context().UserAgent())),
		}
		if config.WithRequestQuery {
			requestAttributes = append(requestAttributes, slog.String("query", string(c.Request().URI().QueryString())))
		}
		if config.WithRequestHeader {
			headers := make([]any, 0)
			for k, v := range c.GetReqHeaders() {
				if _, hidden := hiddenRequestHeaders[strings.ToLower(k)]; hidden {
					continue
				}
				headers = append(headers, slog.Any(k, v))
			}
			requestAttributes = append(requestAttributes, slog.Group("header", headers...))
		}

		attrs := []slog.Attr{
			slog.String("event", "api_request"),
			slog.Int64("latency", latency.Milliseconds()),
			slog.Group("request", requestAttributes...),
			slog.Group("response",
				slog.Int("status", status),
				slog.Int("length", len(c.Response().Body())),
			),
		}
		if err != nil {
			attrs = append(attrs, slog.Any("error", err))
		}
		logger.FromContext(c.UserContext()).LogAttrs(c.UserContext(), level, "Request Completed", attrs...)

		return errors.WithStack(err)
	}
}
