package orgs

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/factsync/cmd/application"
	"github.com/agentstation/factsync/internal/cmd/globals"
	"github.com/agentstation/factsync/pkg/errors"
	"github.com/agentstation/factsync/pkg/kb"
	"github.com/agentstation/factsync/pkg/orgs"
)

// NewCreateCommand creates the orgs create command.
func NewCreateCommand(app application.Application) *cobra.Command {
	var (
		flags     *globals.RunFlags
		countries string
		types     string
		releaseID string
		scheme    string
	)

	cmd := &cobra.Command{
		Use:   "create <dump>",
		Short: "Create items for ROR or GRID records no item links to",
		Long: `Create loads a ROR or GRID JSON dump, asks the knowledge base which ids
are already linked, and creates an item for every other record with a
name. Each claim of a new item cites the dump release; ROR items also
cite the record's ROR id.

Country and organization type names are mapped to items through two
"name,item" CSV files; a record whose country or type has no entry is
reported and skipped.`,
		Example: `  factsync orgs create ror.json --release Q12345 --countries countries.csv --types types.csv
  factsync orgs create grid.json --dump grid --release Q23456`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := app.Logger()

			if releaseID == "" {
				return errors.NewValidationError("release", releaseID, "the dump release item is required")
			}
			load, query, variable, err := dumpScheme(scheme)
			if err != nil {
				return err
			}
			dump, err := load(args[0])
			if err != nil {
				return err
			}
			countryMap, err := orgs.LoadItemMapFile(countries, "country")
			if err != nil {
				return err
			}
			typeMap, err := orgs.LoadItemMapFile(types, "organization type")
			if err != nil {
				return err
			}

			client, err := app.Client(ctx)
			if err != nil {
				return err
			}
			linked, err := orgs.FetchLinked(ctx, client, query, variable)
			if err != nil {
				return err
			}
			logger.Info().Str("dump", scheme).Int("records", dump.Len()).Int("linked", len(linked)).Msg("loaded dump")

			b := orgs.Builder{
				Countries:  countryMap,
				Types:      typeMap,
				Release:    kb.EntityID(releaseID),
				Identifier: dump.Identifier(),
			}
			candidates, skipped := orgs.CreateCandidates(ctx, dump, linked, b)
			for _, e := range skipped {
				logger.Warn().Err(e).Msg("record skipped")
			}
			return run(cmd, app, flags, candidates)
		},
	}

	cmd.Flags().StringVar(&scheme, "dump", "ror", "Dump format: ror or grid")
	cmd.Flags().StringVar(&releaseID, "release", "", "Item of the dump release every claim cites")
	cmd.Flags().StringVar(&countries, "countries", "countries.csv", "Country name to item map")
	cmd.Flags().StringVar(&types, "types", "types.csv", "Organization type to item map")
	flags = globals.AddRunFlags(cmd)
	return cmd
}

func dumpScheme(name string) (func(string) (*orgs.Dump, error), string, string, error) {
	switch name {
	case "ror":
		return orgs.LoadDumpFile, orgs.RORLinkedQuery, "ror", nil
	case "grid":
		return orgs.LoadGRIDDumpFile, orgs.GRIDLinkedQuery, "grid", nil
	}
	return nil, "", "", errors.NewValidationError("dump", name, "must be ror or grid")
}
