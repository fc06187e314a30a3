package provenance

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/factsync/pkg/kb"
)

// Entry records one mutation a run made, with the record it cited.
type Entry struct {
	Entity    kb.EntityID   `yaml:"entity"`
	Property  kb.PropertyID `yaml:"property"`
	Fact      string        `yaml:"fact"`
	Action    string        `yaml:"action"`
	ClaimID   string        `yaml:"claim_id,omitempty"`
	Cited     []string      `yaml:"cited,omitempty"`
	Timestamp time.Time     `yaml:"timestamp"`
}

// Map groups entries by entity.
type Map map[kb.EntityID][]Entry

// Tracker collects the entries of a run.
type Tracker interface {
	// Track records an entry.
	Track(entry Entry)
	// FindByEntity returns the entries for one entity.
	FindByEntity(entity kb.EntityID) []Entry
	// Map returns a copy of everything tracked.
	Map() Map
	// Len is the number of entries.
	Len() int
}

type tracker struct {
	mu      sync.Mutex
	entries Map
	count   int
}

// NewTracker creates an empty tracker.
func NewTracker() Tracker {
	return &tracker{entries: make(Map)}
}

func (t *tracker) Track(entry Entry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[entry.Entity] = append(t.entries[entry.Entity], entry)
	t.count++
}

func (t *tracker) FindByEntity(entity kb.EntityID) []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Entry(nil), t.entries[entity]...)
}

func (t *tracker) Map() Map {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(Map, len(t.entries))
	for k, v := range t.entries {
		out[k] = append([]Entry(nil), v...)
	}
	return out
}

func (t *tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// Describe renders a provenance record as "P248=Q1" pairs.
func Describe(ref kb.Reference) []string {
	out := make([]string, 0, len(ref.Snaks))
	for _, s := range ref.Snaks {
		out = append(out, fmt.Sprintf("%s=%s", s.Property, s.Value.Display()))
	}
	return out
}

// WriteReport writes tracked entries as YAML, entities in id order.
func WriteReport(w io.Writer, m Map) error {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)

	var report []Entry
	for _, id := range ids {
		report = append(report, m[kb.EntityID(id)]...)
	}

	data, err := yaml.MarshalWithOptions(report, yaml.Indent(2))
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
