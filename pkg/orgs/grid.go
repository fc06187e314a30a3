package orgs

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/agentstation/factsync/pkg/errors"
	"github.com/agentstation/factsync/pkg/kb"
	"github.com/agentstation/factsync/pkg/provenance"
	"github.com/agentstation/factsync/pkg/reconcile"
	"github.com/agentstation/factsync/pkg/sync"
)

// GRIDRelease is the GRID publication the identifier links cite.
var GRIDRelease = provenance.Publication{
	DOI:     "10.6084/m9.figshare.3409414",
	Edition: "2016-05-31",
	URL:     "https://figshare.com/articles/GRID_release_2016-05-31/3409414",
}

// Link ties an identifier to an existing item.
type Link struct {
	ID   string
	Item kb.EntityID
	Name string
}

// ReadLinks reads "id,item,name" rows.
func ReadLinks(r io.Reader) ([]Link, []error, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var (
		links   []Link
		skipped []error
		line    int
	)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return links, skipped, nil
		}
		line++
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				skipped = append(skipped, &errors.ParseError{Kind: "csv", Line: line, Message: err.Error(), Err: err})
				continue
			}
			return nil, nil, errors.WrapIO("read", "link file", err)
		}
		if len(rec) < 2 || strings.TrimSpace(rec[0]) == "" || strings.TrimSpace(rec[1]) == "" {
			skipped = append(skipped, &errors.ParseError{Kind: "csv", Line: line, Message: "want id,item[,name]"})
			continue
		}
		l := Link{ID: strings.TrimSpace(rec[0]), Item: kb.EntityID(strings.TrimSpace(rec[1]))}
		if len(rec) > 2 {
			l.Name = rec[2]
		}
		links = append(links, l)
	}
}

// Citation builds the provenance record a link's claim cites.
type Citation func(Link) provenance.Source

// CitePublication cites pub for every link.
func CitePublication(pub provenance.Publication) Citation {
	src := pub.Cite()
	return func(Link) provenance.Source { return src }
}

// CiteRelease cites the dump edition item release. ROR links also cite
// their own id, as drafted ROR items do.
func CiteRelease(release kb.EntityID, prop kb.PropertyID) Citation {
	return func(l Link) provenance.Source {
		return provenance.Source{Required: releaseFields(release, prop, l.ID)}
	}
}

func releaseFields(release kb.EntityID, prop kb.PropertyID, id string) []provenance.Field {
	fields := []provenance.Field{{Property: kb.PropStatedIn, Value: kb.Item(release)}}
	if prop == kb.PropROR {
		fields = append(fields, provenance.Field{Property: kb.PropROR, Value: kb.String(id)})
	}
	return fields
}

// LinkCandidates proposes the identifier claim for every link.
func LinkCandidates(links []Link, prop kb.PropertyID, cite Citation) []sync.Candidate {
	out := make([]sync.Candidate, 0, len(links))
	for _, l := range links {
		src := cite(l)
		out = append(out, sync.Candidate{
			Entity:   l.Item,
			Label:    l.Name,
			Proposal: reconcile.IdentifierProposal{Prop: prop, ID: l.ID},
			Source:   &src,
			Summary:  "Adding " + identifierName(prop) + " identifier",
		})
	}
	return out
}

func identifierName(p kb.PropertyID) string {
	switch p {
	case kb.PropGRID:
		return "GRID"
	case kb.PropROR:
		return "ROR"
	}
	return string(p)
}
