package orgs

import (
	"context"
	"fmt"

	"github.com/agentstation/factsync/pkg/kb"
	"github.com/agentstation/factsync/pkg/logging"
)

// Graph queries listing every item already carrying an identifier.
const (
	RORLinkedQuery  = `SELECT ?item ?ror WHERE { ?item p:P6782/ps:P6782 ?ror . }`
	GRIDLinkedQuery = `SELECT ?item ?grid WHERE { ?item wdt:P2427 ?grid . }`
)

// Linked maps identifiers to the items that carry them.
type Linked map[string]kb.EntityID

// FetchLinked runs query and folds its rows by the variable holding the
// identifier.
func FetchLinked(ctx context.Context, client kb.Client, query, variable string) (Linked, error) {
	rows, err := client.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("fetch linked %s ids: %w", variable, err)
	}
	linked := make(Linked, len(rows))
	for _, row := range rows {
		id := row[variable]
		if id == "" {
			continue
		}
		linked[id] = kb.EntityIDFromURI(row["item"])
	}
	logging.Ctx(ctx).Debug().Str("identifier", variable).Int("linked", len(linked)).Msg("fetched linked ids")
	return linked, nil
}

// Unlinked lists the dump's valid ids no item carries yet, in dump order.
func Unlinked(d *Dump, linked Linked) []string {
	var ids []string
	for _, id := range d.ValidIDs() {
		if _, ok := linked[id]; !ok {
			ids = append(ids, id)
		}
	}
	return ids
}
