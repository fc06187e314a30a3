package orgs

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/agentstation/factsync/pkg/errors"
	"github.com/agentstation/factsync/pkg/kb"
)

// ItemMap maps a name to a knowledge-base item, such as a country name
// to its country item.
type ItemMap struct {
	resource string
	items    map[string]kb.EntityID
}

// LoadItemMap reads two-column "name,item" rows. resource names the map
// in not-found errors.
func LoadItemMap(r io.Reader, resource string) (*ItemMap, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 2
	cr.TrimLeadingSpace = true

	m := &ItemMap{resource: resource, items: make(map[string]kb.EntityID)}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return m, nil
		}
		if err != nil {
			return nil, errors.WrapParse("csv", resource+" map", err)
		}
		m.items[rec[0]] = kb.EntityID(strings.TrimSpace(rec[1]))
	}
}

// LoadItemMapFile reads a map from disk.
func LoadItemMapFile(path, resource string) (*ItemMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	defer f.Close()
	return LoadItemMap(f, resource)
}

// Lookup returns the item for name. A missing entry is never defaulted.
func (m *ItemMap) Lookup(name string) (kb.EntityID, error) {
	item, ok := m.items[name]
	if !ok || item == "" {
		return "", errors.NewNotFoundError(m.resource, name)
	}
	return item, nil
}

// Len is the number of entries.
func (m *ItemMap) Len() int {
	return len(m.items)
}
