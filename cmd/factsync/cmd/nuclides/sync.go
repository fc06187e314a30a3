package nuclides

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/factsync/cmd/application"
	"github.com/agentstation/factsync/internal/cmd/globals"
	"github.com/agentstation/factsync/internal/cmd/output"
	"github.com/agentstation/factsync/pkg/rowfile"
)

// NewSyncCommand creates the sync command.
func NewSyncCommand(app application.Application) *cobra.Command {
	var (
		flags    *globals.RunFlags
		elements *elementFlags
		save     bool
	)

	cmd := &cobra.Command{
		Use:     "sync",
		GroupID: "core",
		Short:   "Extract and apply every changed row in one run",
		Long: `Sync runs extract and apply back to back without intermediate files.
Only rows that differ from the knowledge-base state are reconciled.`,
		Example: `  factsync sync --dry-run
  factsync sync --min-z 20 --max-z 30 --save`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			opts, err := runOptions(cmd, app, flags)
			if err != nil {
				return err
			}
			p, err := pipeline(ctx, app, elements.options()...)
			if err != nil {
				return err
			}

			ext, res, err := p.Sync(ctx, opts...)
			if ext != nil && save {
				if werr := rowfile.WriteDir(app.DataDir(), ext.Changed()); werr != nil {
					app.Logger().Error().Err(werr).Msg("cannot save row files")
				}
			}
			if res != nil {
				if ferr := output.FinishRun(cmd.OutOrStdout(), res, globals.Resolve(cmd, app.OutputFormat()), flags.Report); ferr != nil && err == nil {
					err = ferr
				}
			}
			return err
		},
	}

	flags = globals.AddRunFlags(cmd)
	elements = addElementFlags(cmd)
	cmd.Flags().BoolVar(&save, "save", false, "Also write the changed rows to the data directory")

	return cmd
}
