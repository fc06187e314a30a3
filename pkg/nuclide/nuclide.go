// Package nuclide identifies nuclides by proton count, neutron count and
// isomer index, and holds the state the knowledge base already records
// for them.
package nuclide

import (
	"fmt"
	"sort"

	"github.com/agentstation/factsync/pkg/errors"
	"github.com/agentstation/factsync/pkg/kb"
	"github.com/agentstation/factsync/pkg/units"
)

// Key is the natural key of a nuclide. Isomer 0 is the ground state.
type Key struct {
	Z      int
	N      int
	Isomer int
}

// String renders the key as "Z_N", with an "m<i>" suffix for isomers.
func (k Key) String() string {
	if k.Isomer > 0 {
		return fmt.Sprintf("%d_%d_m%d", k.Z, k.N, k.Isomer)
	}
	return fmt.Sprintf("%d_%d", k.Z, k.N)
}

// Ground returns the ground-state key of the same nucleus.
func (k Key) Ground() Key {
	return Key{Z: k.Z, N: k.N}
}

// Mass is the nucleon count.
func (k Key) Mass() int {
	return k.Z + k.N
}

// Nuclide is a knowledge-base item for one nuclide with the facts
// already recorded on it. Absent facts are nil.
type Nuclide struct {
	Item  kb.EntityID
	Label string
	Key   Key

	HalfLife     *float64
	HalfLifeUnit units.ID
	DecayModes   []kb.EntityID
	Spin         *float64
	Parity       *float64
	Abundance    *float64
}

// HalfLifeSeconds converts the recorded half-life to seconds.
func (n Nuclide) HalfLifeSeconds(t *units.Table) *float64 {
	if n.HalfLife == nil {
		return nil
	}
	s, err := t.Seconds(*n.HalfLife, n.HalfLifeUnit)
	if err != nil {
		return nil
	}
	return &s
}

// HasDecayMode reports whether the decay-mode item is already recorded.
func (n Nuclide) HasDecayMode(item kb.EntityID) bool {
	for _, m := range n.DecayModes {
		if m == item {
			return true
		}
	}
	return false
}

// Index finds nuclide items by key. Product lookups use ground states only.
type Index struct {
	all    []Nuclide
	ground map[Key]kb.EntityID
}

// NewIndex builds an index; nuclides are sorted by Z, N and isomer.
func NewIndex(nuclides []Nuclide) *Index {
	all := append([]Nuclide(nil), nuclides...)
	sort.SliceStable(all, func(i, j int) bool {
		a, b := all[i].Key, all[j].Key
		if a.Z != b.Z {
			return a.Z < b.Z
		}
		if a.N != b.N {
			return a.N < b.N
		}
		return a.Isomer < b.Isomer
	})

	idx := &Index{all: all, ground: make(map[Key]kb.EntityID)}
	for _, n := range all {
		if n.Key.Isomer != 0 {
			continue
		}
		if _, dup := idx.ground[n.Key]; !dup {
			idx.ground[n.Key] = n.Item
		}
	}
	return idx
}

// Lookup returns the ground-state item for (z, n).
func (idx *Index) Lookup(z, n int) (kb.EntityID, error) {
	item, ok := idx.ground[Key{Z: z, N: n}]
	if !ok {
		return "", errors.NewNotFoundError("nuclide", Key{Z: z, N: n}.String())
	}
	return item, nil
}

// All returns every indexed nuclide in key order.
func (idx *Index) All() []Nuclide {
	return idx.all
}

// Len reports the number of indexed nuclides.
func (idx *Index) Len() int {
	return len(idx.all)
}
