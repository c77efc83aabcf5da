package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscription-indexer/common/errs"
	"github.com/gaze-network/inscription-indexer/core/indexer"
	"github.com/gaze-network/inscription-indexer/internal/config"
	"github.com/gaze-network/inscription-indexer/modules/inscriptions"
	"github.com/gaze-network/inscription-indexer/pkg/automaxprocs"
	"github.com/gaze-network/inscription-indexer/pkg/errorhandler"
	"github.com/gaze-network/inscription-indexer/pkg/logger"
	"github.com/gaze-network/inscription-indexer/pkg/logger/slogx"
	"github.com/gaze-network/inscription-indexer/pkg/middleware/requestlogger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/favicon"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
)

const moduleName = "inscriptions"

// Register Modules
var Modules = do.Package(
	do.LazyNamed(moduleName, inscriptions.New),
)

func NewRunCommand() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Start inscription indexer service",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := automaxprocs.Init(); err != nil {
				logger.Error("Failed to set GOMAXPROCS", slogx.Error(err))
			}
			return runHandler(cmd, args)
		},
	}

	// Add local flags
	flags := runCmd.Flags()
	flags.Bool("api-only", false, "Run only API server")

	// Bind flags to configuration
	config.BindPFlag("api_only", flags.Lookup("api-only"))

	return runCmd
}

const (
	shutdownTimeout = 60 * time.Second
)

func runHandler(cmd *cobra.Command, _ []string) error {
	conf := config.Load()

	if !conf.Network.IsSupported() {
		return errors.Wrapf(errs.Unsupported, "%q network is not supported", conf.Network.String())
	}

	// Initialize application process context
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize worker context to separate worker's lifecycle from main process
	ctxWorker, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	ctxWorker = logger.WithContext(ctxWorker,
		slogx.Stringer("network", conf.Network),
		slogx.String("module", moduleName),
	)

	injector := do.New(Modules)
	do.ProvideValue(injector, conf)
	do.ProvideValue(injector, ctxWorker)

	// Initialize HTTP server
	do.Provide(injector, func(i do.Injector) (*fiber.App, error) {
		app := fiber.New(fiber.Config{
			AppName:      "Gaze Inscription Indexer",
			ErrorHandler: errorhandler.NewHTTPErrorHandler(),
		})
		app.
			Use(favicon.New()).
			Use(cors.New()).
			Use(requestid.New()).
			Use(requestlogger.New(conf.HTTPServer.Logger)).
			Use(fiberrecover.New(fiberrecover.Config{
				EnableStackTrace: true,
				StackTraceHandler: func(c *fiber.Ctx, e interface{}) {
					buf := make([]byte, 1024) // bufLen = 1024
					buf = buf[:runtime.Stack(buf, false)]
					logger.ErrorContext(c.UserContext(), "Something went wrong, panic in http handler", errors.Newf("panic: %v", e), slog.String("stacktrace", string(buf)))
				},
			})).
			Use(compress.New(compress.Config{
				Level: compress.LevelDefault,
			}))

		// Health check
		app.Get("/", func(c *fiber.Ctx) error {
			return errors.WithStack(c.SendStatus(http.StatusOK))
		})
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

		return app, nil
	})

	worker, err := do.InvokeNamed[indexer.IndexerWorker](injector, moduleName)
	if err != nil {
		return errors.Wrapf(err, "can't init module %q", moduleName)
	}

	if !conf.APIOnly {
		go func() {
			// stop main process if indexer stopped
			defer stop()

			logger.InfoContext(ctxWorker, "Starting Gaze Inscription Indexer")
			if err := worker.Run(ctxWorker); err != nil && !errors.Is(err, context.Canceled) {
				logger.ErrorContext(ctxWorker, "Something went wrong, error during running indexer", err)
			}
		}()
	}

	// Run API server
	httpServer := do.MustInvoke[*fiber.App](injector)
	go func() {
		// stop main process if API stopped
		defer stop()

		logger.InfoContext(ctx, "Started HTTP server", slog.Int("port", conf.HTTPServer.Port))
		if err := httpServer.Listen(fmt.Sprintf(":%d", conf.HTTPServer.Port)); err != nil {
			logger.ErrorContext(ctx, "Something went wrong, error during running HTTP server", err)
		}
	}()

	logger.InfoContext(ctxWorker, "Gaze Inscription Indexer started", slog.Bool("apiOnly", conf.APIOnly))

	// Wait for interrupt signal to gracefully stop the server
	<-ctx.Done()

	// Force shutdown if timeout exceeded or got signal again
	go func() {
		defer os.Exit(1)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		select {
		case <-ctx.Done():
			logger.WarnContext(ctx, "Received exit signal again. Force shutdown...")
		case <-time.After(shutdownTimeout + 15*time.Second):
			logger.WarnContext(ctx, "Shutdown timeout exceeded. Force shutdown...")
		}
	}()

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctxWorker), shutdownTimeout)
	defer cancel()

	logger.InfoContext(shutdownCtx, "Shutting down Gaze Inscription Indexer...")
	if err := worker.ShutdownWithContext(shutdownCtx); err != nil {
		logger.ErrorContext(shutdownCtx, "Failed while gracefully shutting down indexer", err)
	}
	stopWorker()

	if err := httpServer.ShutdownWithContext(shutdownCtx); err != nil {
		logger.ErrorContext(shutdownCtx, "Failed while gracefully shutting down HTTP server", err)
	}
	if err := injector.Shutdown(); err != nil {
		logger.ErrorContext(shutdownCtx, "Failed while shutting down services", err)
	}

	logger.InfoContext(shutdownCtx, "Gaze Inscription Indexer stopped")
	return nil
}
