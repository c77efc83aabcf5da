package cmd

import (
	"context"
	"log/slog"

	"github.com/gaze-network/inscription-indexer/internal/config"
	"github.com/gaze-network/inscription-indexer/pkg/logger"
	"github.com/gaze-network/inscription-indexer/pkg/logger/slogx"
	"github.com/spf13/cobra"
)

var cmd = &cobra.Command{
	Use:  "gaze-inscriptions",
	Long: `Indexer of deploy, mint, bitmap and parcel inscriptions on Bitcoin`,
}

func init() {
	var configFile string

	// Add global flags
	flags := cmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file, E.g.  `./config.yaml`")
	flags.String("network", "mainnet", "network to connect to, E.g. `mainnet` or `testnet`")

	// Bind flags to configuration
	config.BindPFlag("network", flags.Lookup("network"))

	// Initialize configuration and logger on start command
	cobra.OnInitialize(func() {
		config := config.Parse(configFile)

		if err := logger.Init(config.Logger); err != nil {
			logger.Panic("Failed to initialize logger", slogx.Error(err), slog.Any("config", config.Logger))
		}
	})
}

func Execute(ctx context.Context) {
	cmd.AddCommand(
		NewRunCommand(),
		NewMigrateCommand(),
		NewVersionCommand(),
	)

	if err := cmd.ExecuteContext(ctx); err != nil {
		logger.PanicContext(ctx, "Failed to execute root command", slogx.Error(err))
	}
}
