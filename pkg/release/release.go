// Package release finds or creates the knowledge-base item for the
// dataset edition a run cites, so every provenance record of the run
// can point at it.
package release

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/agentstation/factsync/pkg/errors"
	"github.com/agentstation/factsync/pkg/kb"
	"github.com/agentstation/factsync/pkg/logging"
	"github.com/agentstation/factsync/pkg/provenance"
)

// Descriptor describes a dataset edition.
type Descriptor struct {
	Title       string
	Description string
	Edition     string
	EditionOf   kb.EntityID // the dataset item
	Published   time.Time
	DownloadURL string
	DOI         string
}

// Validate checks the fields needed to find or create the item.
func (d Descriptor) Validate() error {
	if d.EditionOf == "" {
		return errors.NewValidationError("edition_of", d.EditionOf, "dataset item is required")
	}
	if strings.TrimSpace(d.Edition) == "" {
		return errors.NewValidationError("edition", d.Edition, "edition is required")
	}
	return nil
}

// Release returns the provenance view of the edition with item as marker.
func (d Descriptor) Release(item kb.EntityID) provenance.Release {
	return provenance.Release{Item: item, Dataset: d.EditionOf, Edition: d.Edition, Title: d.Title}
}

// Query returns the graph query finding an existing edition item.
func (d Descriptor) Query() string {
	return fmt.Sprintf(`SELECT ?item WHERE { ?item wdt:%s wd:%s ; wdt:%s "%s" . }`,
		kb.PropEditionOf, d.EditionOf, kb.PropEditionNumber, escape(d.Edition))
}

// Draft builds the new edition item.
func (d Descriptor) Draft() kb.Draft {
	title := d.Title
	if title == "" {
		title = fmt.Sprintf("%s edition %s", d.EditionOf, d.Edition)
	}
	draft := kb.Draft{
		Labels: map[string]string{"en": title},
		Claims: []kb.Claim{
			{Property: kb.PropInstanceOf, Value: kb.Item(kb.ItemEdition)},
			{Property: kb.PropEditionOf, Value: kb.Item(d.EditionOf)},
			{Property: kb.PropEditionNumber, Value: kb.String(d.Edition)},
		},
	}
	if d.Description != "" {
		draft.Descriptions = map[string]string{"en": d.Description}
	}
	if !d.Published.IsZero() {
		draft.Claims = append(draft.Claims, kb.Claim{Property: kb.PropPublicationDate, Value: kb.Date(d.Published, kb.PrecisionDay)})
	}
	if d.DownloadURL != "" {
		draft.Claims = append(draft.Claims, kb.Claim{
			Property:   kb.PropFullWorkURL,
			Value:      kb.String(d.DownloadURL),
			Qualifiers: []kb.Snak{{Property: kb.PropOf, Value: kb.Item(kb.ItemDownload)}},
		})
	}
	if d.DOI != "" {
		draft.Claims = append(draft.Claims, kb.Claim{Property: kb.PropDOI, Value: kb.String(strings.ToUpper(d.DOI))})
	}
	return draft
}

// Find looks up the existing edition item.
func Find(ctx context.Context, client kb.Client, d Descriptor) (kb.EntityID, error) {
	if err := d.Validate(); err != nil {
		return "", err
	}
	rows, err := client.Query(ctx, d.Query())
	if err != nil {
		return "", err
	}
	for _, row := range rows {
		if item := kb.EntityIDFromURI(row["item"]); item != "" {
			return item, nil
		}
	}
	return "", errors.NewNotFoundError("release", string(d.EditionOf)+" "+d.Edition)
}

// Ensure returns the edition item, creating it when missing and create
// is set. Without create a missing item yields a release citing the
// dataset item directly.
func Ensure(ctx context.Context, client kb.Client, d Descriptor, create bool) (provenance.Release, error) {
	log := logging.Ctx(ctx)

	item, err := Find(ctx, client, d)
	switch {
	case err == nil:
		log.Info().Str("release", string(item)).Str("edition", d.Edition).Msg("using existing release item")
		return d.Release(item), nil
	case !errors.IsNotFound(err):
		return provenance.Release{}, err
	case !create:
		log.Warn().Str("edition", d.Edition).Msg("release item missing, citing dataset directly")
		return d.Release(""), nil
	}

	item, err = client.CreateEntity(kb.WithEditSummary(ctx, "Creating release item for edition "+d.Edition), d.Draft())
	if err != nil {
		return provenance.Release{}, errors.WrapMutation("create_entity", string(d.EditionOf), "release "+d.Edition, err)
	}
	log.Info().Str("release", string(item)).Str("edition", d.Edition).Msg("created release item")
	return d.Release(item), nil
}

func escape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
