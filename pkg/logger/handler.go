package logger

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/cockroachdb/errors/errbase"
	"github.com/gaze-network/inscription-indexer/pkg/logger/slogx"
)

type (
	handleFunc func(context.Context, slog.Record) error
	middleware func(handleFunc) handleFunc
)

// chainHandler runs every record through a middleware chain before the wrapped handler.
type chainHandler struct {
	h           slog.Handler
	middlewares []middleware
}

func newChainHandler(h slog.Handler, middlewares ...middleware) *chainHandler {
	return &chainHandler{h: h, middlewares: middlewares}
}

func (c *chainHandler) Enabled(ctx context.Context, lvl slog.Level) bool {
	return c.h.Enabled(ctx, lvl)
}

func (c *chainHandler) Handle(ctx context.Context, rec slog.Record) error {
	h := c.h.Handle
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		h = c.middlewares[i](h)
	}
	return h(ctx, rec)
}

func (c *chainHandler) WithGroup(group string) slog.Handler {
	return &chainHandler{h: c.h.WithGroup(group), middlewares: c.middlewares}
}

func (c *chainHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &chainHandler{h: c.h.WithAttrs(attrs), middlewares: c.middlewares}
}

func recordError(rec slog.Record) (err error) {
	rec.Attrs(func(attr slog.Attr) bool {
		if attr.Key != slogx.ErrorKey {
			return true
		}
		e, ok := attr.Value.Any().(error)
		if ok && e != nil {
			err = e
			return false
		}
		return true
	})
	return err
}

// middlewareErrorVerbose adds the `%+v` rendering of a logged error, which includes wrap details.
func middlewareErrorVerbose() middleware {
	return func(next handleFunc) handleFunc {
		return func(ctx context.Context, rec slog.Record) error {
			if err := recordError(rec); err != nil {
				rec.AddAttrs(slog.String(slogx.ErrorVerboseKey, fmt.Sprintf("%+v", err)))
			}
			return next(ctx, rec)
		}
	}
}

// middlewareErrorStackTrace adds the stack trace captured by cockroachdb/errors.
func middlewareErrorStackTrace() middleware {
	return func(next handleFunc) handleFunc {
		return func(ctx context.Context, rec slog.Record) error {
			err := recordError(rec)
			var st errbase.StackTraceProvider
			if err != nil && asStackTraceProvider(err, &st) {
				rec.AddAttrs(slog.Any(slogx.ErrorStackTraceKey, traceLines(st.StackTrace())))
			}
			return next(ctx, rec)
		}
	}
}

func asStackTraceProvider(err error, target *errbase.StackTraceProvider) bool {
	for err != nil {
		if st, ok := err.(errbase.StackTraceProvider); ok {
			*target = st
			return true
		}
		err = errbase.UnwrapOnce(err)
	}
	return false
}

func traceLines(frames errbase.StackTrace) []string {
	lines := make([]string, 0, len(frames))

	// skip consecutive runtime frames at the bottom of the trace.
	skipping := true
	for i := len(frames) - 1; i >= 0; i-- {
		pc := uintptr(frames[i]) - 1
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			lines = append(lines, "unknown")
			skipping = false
			continue
		}

		name := fn.Name()
		if skipping && strings.HasPrefix(name, "runtime.") {
			continue
		}
		skipping = false

		file, line := fn.FileLine(pc)
		lines = append(lines, fmt.Sprintf("%s %s:%d", name, file, line))
	}
	return lines
}
