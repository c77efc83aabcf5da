package automaxprocs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/Cleverse/go-utilities/utils"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscription-indexer/pkg/logger"
	"github.com/gaze-network/inscription-indexer/pkg/logger/slogx"
	"go.uber.org/automaxprocs/maxprocs"
)

// Init sets GOMAXPROCS to the CPU quota of the Linux container, if any. An explicit
// GOMAXPROCS environment variable wins over the quota.
func Init() error {
	log := logger.With(
		slogx.String("package", "automaxprocs"),
		slogx.String("event", "set_gomaxprocs"),
		slogx.Int("prev_maxprocs", runtime.GOMAXPROCS(0)),
	)

	printf := func(format string, v ...any) {
		attrs := make([]slog.Attr, 0, 1)
		if val, ok := utils.Optional(v); ok {
			// maxprocs reports the environment value as a string
			if _, exists := os.LookupEnv("GOMAXPROCS"); exists {
				val = runtime.GOMAXPROCS(0)
			}
			if n, ok := val.(int); ok {
				attrs = append(attrs, slogx.Int("set_maxprocs", n))
			}
		}
		log.LogAttrs(context.Background(), slog.LevelInfo, fmt.Sprintf(format, v...), attrs...)
	}

	if _, err := maxprocs.Set(maxprocs.Logger(printf), maxprocs.Min(1)); err != nil {
		return errors.WithStack(err)
	}
	return nil
}
