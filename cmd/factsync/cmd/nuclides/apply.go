package nuclides

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/factsync/cmd/application"
	"github.com/agentstation/factsync/internal/cmd/globals"
	"github.com/agentstation/factsync/internal/cmd/output"
	"github.com/agentstation/factsync/pkg/normalize"
	"github.com/agentstation/factsync/pkg/rowfile"
)

// NewApplyCommand creates the apply command.
func NewApplyCommand(app application.Application) *cobra.Command {
	var flags *globals.RunFlags

	cmd := &cobra.Command{
		Use:       "apply <kind> <file>",
		GroupID:   "core",
		Short:     "Reconcile one row file with the knowledge base",
		ValidArgs: kindNames(),
		Args:      cobra.ExactArgs(2),
		Long: `Apply reads a row file written by "factsync extract" and reconciles
each row with the knowledge base: missing claims are created, existing
claims get the dataset citation, and incomplete citations are replaced.

Rows are processed in a stable order. Use --start and --stop with the
ordinals from a previous run to resume it.`,
		Example: `  factsync apply half_life data/half_life_data.csv
  factsync apply decay data/decays_data.csv --dry-run
  factsync apply abundance data/abundance_data.csv --start 120 --max-mutations 500`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := app.Logger()

			kind, err := rowfile.ParseKind(args[0])
			if err != nil {
				return err
			}
			rows, rowErrs, err := rowfile.ReadFile(args[1], kind)
			if err != nil {
				return err
			}
			for _, e := range rowErrs {
				logger.Warn().Err(e).Str("file", args[1]).Msg("row skipped")
			}

			opts, err := runOptions(cmd, app, flags)
			if err != nil {
				return err
			}
			p, err := pipeline(ctx, app)
			if err != nil {
				return err
			}
			res, _, err := p.Apply(ctx, rows, opts...)
			if res != nil {
				if ferr := output.FinishRun(cmd.OutOrStdout(), res, globals.Resolve(cmd, app.OutputFormat()), flags.Report); ferr != nil && err == nil {
					err = ferr
				}
			}
			return err
		},
	}

	flags = globals.AddRunFlags(cmd)
	return cmd
}

func kindNames() []string {
	kinds := normalize.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return names
}
