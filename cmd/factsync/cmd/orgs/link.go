package orgs

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/agentstation/factsync/cmd/application"
	"github.com/agentstation/factsync/internal/cmd/globals"
	"github.com/agentstation/factsync/pkg/errors"
	"github.com/agentstation/factsync/pkg/kb"
	"github.com/agentstation/factsync/pkg/orgs"
)

// NewLinkCommand creates the orgs link command.
func NewLinkCommand(app application.Application) *cobra.Command {
	var (
		flags     *globals.RunFlags
		property  string
		releaseID string
	)

	cmd := &cobra.Command{
		Use:   "link <csv>",
		Short: "Add GRID or ROR identifiers to existing items",
		Long: `Link reads "id,item[,name]" rows and adds the identifier claim to each
item. Items that already hold the identifier only get the citation.

GRID links cite the GRID release publication unless --release names a
release item. ROR links cite the --release item, which is required, and
the linked ROR id.`,
		Example: `  factsync orgs link grid_links.csv
  factsync orgs link ror_links.csv --property ror --release Q12345`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prop, err := identifierProperty(property)
			if err != nil {
				return err
			}
			cite, err := linkCitation(prop, kb.EntityID(releaseID))
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return errors.WrapIO("open", args[0], err)
			}
			defer func() { _ = f.Close() }()

			links, skipped, err := orgs.ReadLinks(f)
			if err != nil {
				return err
			}
			for _, e := range skipped {
				app.Logger().Warn().Err(e).Str("file", args[0]).Msg("link skipped")
			}

			return run(cmd, app, flags, orgs.LinkCandidates(links, prop, cite))
		},
	}

	cmd.Flags().StringVar(&property, "property", "grid", "Identifier property: grid or ror")
	cmd.Flags().StringVar(&releaseID, "release", "", "Item of the dump release the links cite (required for ror)")
	flags = globals.AddRunFlags(cmd)
	return cmd
}

func identifierProperty(name string) (kb.PropertyID, error) {
	switch name {
	case "grid", string(kb.PropGRID):
		return kb.PropGRID, nil
	case "ror", string(kb.PropROR):
		return kb.PropROR, nil
	}
	return "", errors.NewValidationError("property", name, "must be grid or ror")
}

func linkCitation(prop kb.PropertyID, release kb.EntityID) (orgs.Citation, error) {
	switch {
	case release != "":
		return orgs.CiteRelease(release, prop), nil
	case prop == kb.PropROR:
		return nil, errors.NewValidationError("release", "", "the ROR release item is required")
	}
	return orgs.CitePublication(orgs.GRIDRelease), nil
}
