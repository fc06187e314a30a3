// Package orgs implements the organization commands: linking GRID or
// ROR identifiers to existing items and creating items from a ROR dump.
package orgs

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/factsync/cmd/application"
	"github.com/agentstation/factsync/internal/cmd/globals"
	"github.com/agentstation/factsync/internal/cmd/output"
	"github.com/agentstation/factsync/pkg/sync"
)

// NewCommand creates the orgs command with its subcommands.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "orgs",
		GroupID: "orgs",
		Short:   "Link and create organization items",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(NewLinkCommand(app))
	cmd.AddCommand(NewCreateCommand(app))
	return cmd
}

// run drives candidates through a sync run and prints the result.
// Organization runs never cite the NuDat release.
func run(cmd *cobra.Command, app application.Application, flags *globals.RunFlags, candidates []sync.Candidate) error {
	ctx := cmd.Context()

	client, err := app.Client(ctx)
	if err != nil {
		return err
	}
	opts, err := app.SyncOptions()
	if err != nil {
		return err
	}
	opts = append(opts, flags.Options(cmd)...)

	res, err := sync.NewDriver(client, opts...).Run(ctx, candidates)
	if res != nil {
		if ferr := output.FinishRun(cmd.OutOrStdout(), res, globals.Resolve(cmd, app.OutputFormat()), flags.Report); ferr != nil && err == nil {
			err = ferr
		}
	}
	return err
}
