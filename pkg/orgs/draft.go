package orgs

import (
	"context"
	"strings"
	"time"

	"github.com/agentstation/factsync/pkg/constants"
	"github.com/agentstation/factsync/pkg/kb"
	"github.com/agentstation/factsync/pkg/logging"
	"github.com/agentstation/factsync/pkg/sync"
)

const defaultLanguage = "en"

// Description builds the English description, e.g.
// "education organization in Providence, United States".
func Description(orgType, city, country string) string {
	var words []string
	if orgType != "Other" {
		words = append(words, strings.ToLower(orgType))
	}
	if orgType != "Company" && orgType != "Facility" {
		words = append(words, "organization")
	}
	words = append(words, "in")
	if city != "" {
		words = append(words, city+",")
	}
	words = append(words, country)
	return strings.Join(words, " ")
}

// Builder drafts knowledge-base items from ROR or GRID records.
type Builder struct {
	Countries *ItemMap
	Types     *ItemMap
	// Release is the dump edition item every claim cites.
	Release kb.EntityID
	// Identifier is the property record ids go under, PropROR when unset.
	Identifier kb.PropertyID
}

func (b Builder) identifier() kb.PropertyID {
	if b.Identifier == "" {
		return kb.PropROR
	}
	return b.Identifier
}

// Draft builds the new item for o. Every claim cites the release, and
// ROR drafts also cite the record's id. A missing type or country entry
// fails the record.
func (b Builder) Draft(o Org) (kb.Draft, error) {
	typeItem, err := b.Types.Lookup(o.Type())
	if err != nil {
		return kb.Draft{}, err
	}
	countryItem, err := b.Countries.Lookup(o.Country.Name)
	if err != nil {
		return kb.Draft{}, err
	}

	id := o.ShortID()
	var ref kb.Reference
	for _, f := range releaseFields(b.Release, b.identifier(), id) {
		ref.Snaks = append(ref.Snaks, kb.Snak{Property: f.Property, Value: f.Value})
	}
	cited := func(p kb.PropertyID, v kb.Value) kb.Claim {
		return kb.Claim{Property: p, Value: v, References: []kb.Reference{ref}}
	}

	draft := kb.Draft{
		Labels:       map[string]string{defaultLanguage: o.Name},
		Descriptions: map[string]string{defaultLanguage: Description(o.Type(), o.City(), o.Country.Name)},
		Aliases:      map[string][]string{},
		Claims: []kb.Claim{
			cited(kb.PropInstanceOf, kb.Item(typeItem)),
			cited(b.identifier(), kb.String(id)),
			cited(kb.PropCountry, kb.Item(countryItem)),
		},
	}
	if site := o.Website(); site != "" && len(site) < constants.MaxWebsiteLength {
		draft.Claims = append(draft.Claims, cited(kb.PropOfficialWebsite, kb.String(site)))
	}
	if o.Established != nil && *o.Established > constants.MinInceptionYear {
		year := time.Date(*o.Established, 1, 1, 0, 0, 0, 0, time.UTC)
		draft.Claims = append(draft.Claims, cited(kb.PropInception, kb.Date(year, kb.PrecisionYear)))
	}

	if aliases := o.AllAliases(); len(aliases) > 0 {
		draft.Aliases[defaultLanguage] = aliases
	}
	for _, l := range o.Labels {
		if l.Language == defaultLanguage {
			draft.Aliases[defaultLanguage] = append(draft.Aliases[defaultLanguage], l.Label)
			continue
		}
		draft.Labels[l.Language] = l.Label
	}
	return draft, nil
}

// CreateCandidates drafts an item for every valid record of d that no
// item links to yet. Records that cannot be drafted are reported.
func CreateCandidates(ctx context.Context, d *Dump, linked Linked, b Builder) ([]sync.Candidate, []error) {
	log := logging.Ctx(ctx)
	prop := b.identifier()
	name := identifierName(prop)
	var (
		out  []sync.Candidate
		errs []error
	)
	for _, id := range Unlinked(d, linked) {
		o, err := d.Lookup(id)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		draft, err := b.Draft(o)
		if err != nil {
			log.Warn().Err(err).Str(strings.ToLower(name), id).Msg("cannot draft organization")
			errs = append(errs, err)
			continue
		}
		out = append(out, sync.Candidate{
			Label:   o.Name,
			Draft:   &draft,
			Fact:    string(prop) + " " + id,
			Summary: "Creating item from " + name + " record",
		})
	}
	return out, errs
}
