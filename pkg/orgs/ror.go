// Package orgs links research organizations to their GRID and ROR
// identifiers and drafts items for organizations the knowledge base
// does not hold yet.
package orgs

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/agentstation/factsync/pkg/errors"
	"github.com/agentstation/factsync/pkg/kb"
)

// Org is one organization record of a ROR or GRID data dump.
type Org struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Established *int      `json:"established"`
	Types       []string  `json:"types"`
	Links       []string  `json:"links"`
	Aliases     []string  `json:"aliases"`
	Acronyms    []string  `json:"acronyms"`
	Labels      []Label   `json:"labels"`
	Addresses   []Address `json:"addresses"`
	Country     Country   `json:"country"`
}

// Label is a name in another language.
type Label struct {
	Label    string `json:"label"`
	Language string `json:"iso639"`
}

// Address is a postal location of the organization. GRID records name
// the country here rather than at the top level.
type Address struct {
	City    string `json:"city"`
	Country string `json:"country"`
}

// Country is the organization's country.
type Country struct {
	Name string `json:"country_name"`
	Code string `json:"country_code"`
}

// ShortID is the identifier without the https://ror.org/ prefix. GRID
// ids carry no prefix and are returned as is.
func (o Org) ShortID() string {
	if i := strings.LastIndexByte(o.ID, '/'); i >= 0 {
		return o.ID[i+1:]
	}
	return o.ID
}

// Type is the last listed type, or "Other" when none is given.
func (o Org) Type() string {
	t := "Other"
	for _, label := range o.Types {
		t = label
	}
	return t
}

// Website is the last listed link, trimmed.
func (o Org) Website() string {
	var site string
	for _, link := range o.Links {
		site = strings.TrimSpace(link)
	}
	return site
}

// City is the city of the last listed address.
func (o Org) City() string {
	var city string
	for _, a := range o.Addresses {
		city = a.City
	}
	return city
}

// AllAliases lists aliases then acronyms.
func (o Org) AllAliases() []string {
	out := make([]string, 0, len(o.Aliases)+len(o.Acronyms))
	out = append(out, o.Aliases...)
	return append(out, o.Acronyms...)
}

// Dump is a loaded data dump, keyed by short id in file order.
type Dump struct {
	orgs       []Org
	byID       map[string]int
	identifier kb.PropertyID
}

func newDump(orgs []Org, identifier kb.PropertyID) *Dump {
	d := &Dump{orgs: orgs, byID: make(map[string]int, len(orgs)), identifier: identifier}
	for i, o := range orgs {
		d.byID[o.ShortID()] = i
	}
	return d
}

// LoadDump parses a ROR JSON dump, a top-level array of records.
func LoadDump(r io.Reader) (*Dump, error) {
	var orgs []Org
	if err := json.NewDecoder(r).Decode(&orgs); err != nil {
		return nil, errors.WrapParse("json", "ror dump", err)
	}
	return newDump(orgs, kb.PropROR), nil
}

// LoadGRIDDump parses a GRID JSON dump, an object whose "institutes"
// array holds the records. The country of the last address becomes the
// record's country.
func LoadGRIDDump(r io.Reader) (*Dump, error) {
	var doc struct {
		Institutes []Org `json:"institutes"`
	}
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.WrapParse("json", "grid dump", err)
	}
	for i := range doc.Institutes {
		o := &doc.Institutes[i]
		for _, a := range o.Addresses {
			if a.Country != "" {
				o.Country.Name = a.Country
			}
		}
	}
	return newDump(doc.Institutes, kb.PropGRID), nil
}

// LoadDumpFile reads a ROR dump from disk.
func LoadDumpFile(path string) (*Dump, error) {
	return loadFile(path, LoadDump)
}

// LoadGRIDDumpFile reads a GRID dump from disk.
func LoadGRIDDumpFile(path string) (*Dump, error) {
	return loadFile(path, LoadGRIDDump)
}

func loadFile(path string, load func(io.Reader) (*Dump, error)) (*Dump, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	defer f.Close()
	return load(f)
}

// Identifier is the property the dump's ids are recorded under.
func (d *Dump) Identifier() kb.PropertyID {
	return d.identifier
}

// Lookup returns the record for a short id.
func (d *Dump) Lookup(id string) (Org, error) {
	i, ok := d.byID[id]
	if !ok {
		return Org{}, errors.NewNotFoundError(strings.ToLower(identifierName(d.identifier))+" record", id)
	}
	return d.orgs[i], nil
}

// ValidIDs lists the short ids of records that carry a name.
func (d *Dump) ValidIDs() []string {
	ids := make([]string, 0, len(d.orgs))
	for _, o := range d.orgs {
		if o.Name != "" {
			ids = append(ids, o.ShortID())
		}
	}
	return ids
}

// Len is the number of records.
func (d *Dump) Len() int {
	return len(d.orgs)
}
