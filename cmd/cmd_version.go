package cmd

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscription-indexer/common/errs"
	"github.com/gaze-network/inscription-indexer/core/constants"
	"github.com/gaze-network/inscription-indexer/modules/inscriptions"
	"github.com/spf13/cobra"
)

var versions = map[string]string{
	"":             constants.Version,
	"inscriptions": inscriptions.ClientVersion,
}

type versionCmdOptions struct {
	Modules string
}

func NewVersionCommand() *cobra.Command {
	opts := &versionCmdOptions{}

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show indexer version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return versionHandler(opts, cmd, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.Modules, "module", "", `Show version of a specific module. E.g. "inscriptions"`)

	return cmd
}

func versionHandler(opts *versionCmdOptions, cmd *cobra.Command, _ []string) error {
	version, ok := versions[opts.Modules]
	if !ok {
		return errors.Wrapf(errs.Unsupported, "invalid module name %q", opts.Modules)
	}
	fmt.Fprintln(cmd.OutOrStdout(), version)
	return nil
}
