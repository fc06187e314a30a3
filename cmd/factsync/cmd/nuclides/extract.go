package nuclides

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/factsync/cmd/application"
	"github.com/agentstation/factsync/internal/cmd/globals"
	"github.com/agentstation/factsync/internal/cmd/output"
	"github.com/agentstation/factsync/pkg/rowfile"
)

// NewExtractCommand creates the extract command.
func NewExtractCommand(app application.Application) *cobra.Command {
	var (
		dir      string
		all      bool
		elements *elementFlags
	)

	cmd := &cobra.Command{
		Use:     "extract",
		GroupID: "core",
		Short:   "Read NuDat and write the changed rows to CSV files",
		Long: `Extract fetches the NuDat page of every nuclide item in the knowledge
base, normalizes its measurements, and compares them with the facts the
items already hold. Rows that differ are written to one CSV file per kind:

  half_life_data.csv  decays_data.csv  spin_parity_data.csv  abundance_data.csv

The files can be reviewed and applied later with "factsync apply".`,
		Example: `  factsync extract                   # Write changed rows to the data directory
  factsync extract --all --dir out   # Write every row
  factsync extract --min-z 1 --max-z 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			logger := app.Logger()

			p, err := pipeline(ctx, app, elements.options()...)
			if err != nil {
				return err
			}
			ext, err := p.Extract(ctx)
			if err != nil {
				return err
			}

			rows := ext.Changed()
			if all {
				rows = ext.Rows
			}
			if dir == "" {
				dir = app.DataDir()
			}
			if err := rowfile.WriteDir(dir, rows); err != nil {
				return err
			}
			logger.Info().Str("dir", dir).Int("rows", rows.Len()).Msg("wrote row files")

			return output.FormatExtraction(cmd.OutOrStdout(), ext.Rows, ext.Changes, globals.Resolve(cmd, app.OutputFormat()))
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Directory for the row files (default is the configured data directory)")
	cmd.Flags().BoolVar(&all, "all", false, "Write every normalized row, not only changed ones")
	elements = addElementFlags(cmd)

	return cmd
}
