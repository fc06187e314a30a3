package decay

import (
	"bytes"
	_ "embed"
	"io"
	"sync"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/factsync/pkg/errors"
)

//go:embed modes.yaml
var defaultModes []byte

// ItemMap resolves canonical mode codes to knowledge-base decay-mode items.
type ItemMap struct {
	items map[string]string
}

type itemFile struct {
	Modes map[string]string `yaml:"modes"`
}

// LoadItemMap reads a YAML mode map of the form "modes: {B-: Q...}".
// Keys may use source notation; they are canonicalized on load.
func LoadItemMap(r io.Reader) (*ItemMap, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.WrapIO("read", "decay mode map", err)
	}
	var f itemFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.WrapParse("yaml", "decay mode map", err)
	}

	m := &ItemMap{items: make(map[string]string, len(f.Modes))}
	for symbol, item := range f.Modes {
		code, ok := Code(symbol)
		if !ok {
			code = Canonical(symbol)
		}
		m.items[code] = item
	}
	return m, nil
}

var defaultItemMap = sync.OnceValues(func() (*ItemMap, error) {
	return LoadItemMap(bytes.NewReader(defaultModes))
})

// DefaultItemMap returns the embedded mode map.
func DefaultItemMap() *ItemMap {
	m, err := defaultItemMap()
	if err != nil {
		panic(err)
	}
	return m
}

// Item returns the item for a mode symbol or code.
func (m *ItemMap) Item(symbol string) (string, error) {
	code, ok := Code(symbol)
	if !ok {
		code = Canonical(symbol)
	}
	item, found := m.items[code]
	if !found {
		return "", errors.NewNotFoundError("decay mode", code)
	}
	return item, nil
}

// Len reports the number of mapped codes.
func (m *ItemMap) Len() int {
	return len(m.items)
}
