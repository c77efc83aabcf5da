// nolint: sloglint
package logger

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"
)

// DefaultLevel is the minimum reporting level before [Init] is called.
const DefaultLevel = slog.LevelDebug

var (
	lvl = new(slog.LevelVar)

	logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level:       lvl,
		ReplaceAttr: levelAttrReplacer,
	}))
)

func init() {
	lvl.Set(DefaultLevel)
	slog.SetDefault(logger)
}

// Config is the logger configuration.
type Config struct {
	// Output is the logger output format.
	// Possible values:
	//  - Text (default)
	//  - JSON
	//  - GCP: JSON output for Cloud Logging.
	Output string `mapstructure:"output"`

	// Debug enables debug level, source locations and error stack traces.
	Debug bool `mapstructure:"debug"`
}

// Init initializes the global logger and the default slog logger.
func Init(cfg Config) error {
	var (
		handler slog.Handler
		options = &slog.HandlerOptions{
			Level:       lvl,
			ReplaceAttr: attrReplacerChain(levelAttrReplacer, durationAttrReplacer),
		}
		middlewares = []middleware{middlewareErrorVerbose()}
	)

	lvl.Set(slog.LevelInfo)
	if cfg.Debug {
		lvl.Set(slog.LevelDebug)
		options.AddSource = true
		middlewares = append(middlewares, middlewareErrorStackTrace())
	}

	switch strings.ToLower(cfg.Output) {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, options)
	case "gcp":
		handler = NewGCPHandler(options)
	case "", "text":
		handler = slog.NewTextHandler(os.Stdout, options)
	default:
		return &UnsupportedOutputError{Output: cfg.Output}
	}

	logger = slog.New(newChainHandler(handler, middlewares...))
	slog.SetDefault(logger)
	return nil
}

// UnsupportedOutputError is returned by [Init] for an unknown output format.
type UnsupportedOutputError struct {
	Output string
}

func (e *UnsupportedOutputError) Error() string {
	return "unsupported logger output: " + e.Output
}

// SetLevel sets the minimum reporting level and returns the previous one.
func SetLevel(level slog.Level) (old slog.Level) {
	old = lvl.Level()
	lvl.Set(level)
	return old
}

// With returns a Logger that includes the given attributes in each output operation.
func With(args ...any) *slog.Logger {
	return logger.With(args...)
}

// Debug logs at [slog.LevelDebug].
func Debug(msg string, args ...any) {
	log(context.Background(), logger, slog.LevelDebug, msg, args...)
}

// Info logs at [slog.LevelInfo].
func Info(msg string, args ...any) {
	log(context.Background(), logger, slog.LevelInfo, msg, args...)
}

// Warn logs at [slog.LevelWarn].
func Warn(msg string, args ...any) {
	log(context.Background(), logger, slog.LevelWarn, msg, args...)
}

// Error logs at [slog.LevelError].
func Error(msg string, args ...any) {
	log(context.Background(), logger, slog.LevelError, msg, args...)
}

// Panic logs at [LevelPanic] and then panics.
func Panic(msg string, args ...any) {
	log(context.Background(), logger, LevelPanic, msg, args...)
	panic(msg)
}

// log must always be called directly by an exported logging function,
// it uses a fixed call depth to obtain the pc.
func log(ctx context.Context, l *slog.Logger, level slog.Level, msg string, args ...any) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.Enabled(ctx, level) {
		return
	}

	var pcs [1]uintptr
	// skip [runtime.Callers, this function, this function's caller]
	runtime.Callers(3, pcs[:])

	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	r.Add(args...)
	_ = l.Handler().Handle(ctx, r)
}

func attrReplacerChain(replacers ...func([]string, slog.Attr) slog.Attr) func([]string, slog.Attr) slog.Attr {
	return func(groups []string, attr slog.Attr) slog.Attr {
		for _, replacer := range replacers {
			if replacer == nil {
				continue
			}
			attr = replacer(groups, attr)
		}
		return attr
	}
}

// durationAttrReplacer reports durations in milliseconds.
func durationAttrReplacer(_ []string, attr slog.Attr) slog.Attr {
	if attr.Value.Kind() == slog.KindDuration {
		return slog.Int64(attr.Key, attr.Value.Duration().Milliseconds())
	}
	return attr
}
