// Package memory provides an in-memory kb.Client. It backs tests and
// lets a run be rehearsed against a snapshot without touching the
// remote knowledge base.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/agentstation/factsync/pkg/errors"
	"github.com/agentstation/factsync/pkg/kb"
)

// Mutation is one recorded write.
type Mutation struct {
	Op      string
	Entity  kb.EntityID
	ClaimID string
}

// QueryFunc answers graph queries.
type QueryFunc func(sparql string) ([]kb.Binding, error)

// Store is a thread-safe in-memory knowledge base.
type Store struct {
	mu        sync.RWMutex
	entities  map[kb.EntityID]*kb.Entity
	owner     map[string]kb.EntityID // claim id -> entity
	mutations []Mutation
	query     QueryFunc
	seq       int
	nextItem  int
	failOn    map[string]error
}

// Option configures a Store.
type Option func(*Store)

// WithQuery installs a graph query handler.
func WithQuery(fn QueryFunc) Option {
	return func(s *Store) { s.query = fn }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		entities: make(map[kb.EntityID]*kb.Entity),
		owner:    make(map[string]kb.EntityID),
		nextItem: 1000000,
		failOn:   make(map[string]error),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put adds or replaces an entity. Claims without ids or hashes get them.
func (s *Store) Put(e kb.Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := &kb.Entity{
		ID:           e.ID,
		Labels:       e.Labels,
		Descriptions: e.Descriptions,
		Claims:       make(map[kb.PropertyID][]kb.Claim),
	}
	for p, claims := range e.Claims {
		for _, c := range claims {
			c.Property = p
			s.prepare(e.ID, &c)
			stored.Claims[p] = append(stored.Claims[p], c)
		}
	}
	s.entities[e.ID] = stored
}

// FailOn makes the named operation ("create_claim", "add_reference", ...)
// return err until cleared with a nil err.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failOn, op)
		return
	}
	s.failOn[op] = err
}

// Mutations returns the recorded writes in order.
func (s *Store) Mutations() []Mutation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Mutation(nil), s.mutations...)
}

// Reset clears the mutation log.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mutations = nil
}

func (s *Store) hash() string {
	s.seq++
	return fmt.Sprintf("h%06d", s.seq)
}

func (s *Store) prepare(entity kb.EntityID, c *kb.Claim) {
	if c.ID == "" {
		s.seq++
		c.ID = fmt.Sprintf("%s$%06d", entity, s.seq)
	}
	s.owner[c.ID] = entity
	c.Qualifiers = append([]kb.Snak(nil), c.Qualifiers...)
	for i := range c.Qualifiers {
		if c.Qualifiers[i].Hash == "" {
			c.Qualifiers[i].Hash = s.hash()
		}
	}
	refs := make([]kb.Reference, len(c.References))
	for i, r := range c.References {
		r.Snaks = append([]kb.Snak(nil), r.Snaks...)
		if r.Hash == "" {
			r.Hash = s.hash()
		}
		refs[i] = r
	}
	c.References = refs
}

func (s *Store) record(op string, entity kb.EntityID, claimID string) error {
	if err := s.failOn[op]; err != nil {
		return err
	}
	s.mutations = append(s.mutations, Mutation{Op: op, Entity: entity, ClaimID: claimID})
	return nil
}

// claim finds a stored claim by id for in-place edits.
func (s *Store) claim(claimID string) (*kb.Claim, kb.EntityID, error) {
	entity, ok := s.owner[claimID]
	if !ok {
		return nil, "", errors.NewNotFoundError("claim", claimID)
	}
	e := s.entities[entity]
	for p, claims := range e.Claims {
		for i := range claims {
			if claims[i].ID == claimID {
				return &e.Claims[p][i], entity, nil
			}
		}
	}
	return nil, "", errors.NewNotFoundError("claim", claimID)
}

// GetEntity implements kb.Client.
func (s *Store) GetEntity(_ context.Context, id kb.EntityID) (*kb.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entities[id]
	if !ok {
		return nil, errors.NewNotFoundError("entity", string(id))
	}
	return clone(e), nil
}

// CreateClaim implements kb.Client.
func (s *Store) CreateClaim(_ context.Context, entity kb.EntityID, claim kb.Claim) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entities[entity]
	if !ok {
		return "", errors.NewNotFoundError("entity", string(entity))
	}
	claim.ID = ""
	s.prepare(entity, &claim)
	if err := s.record("create_claim", entity, claim.ID); err != nil {
		delete(s.owner, claim.ID)
		return "", err
	}
	e.Claims[claim.Property] = append(e.Claims[claim.Property], claim)
	return claim.ID, nil
}

// SetQualifier implements kb.Client.
func (s *Store) SetQualifier(_ context.Context, claimID, hash string, qualifier kb.Snak) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, entity, err := s.claim(claimID)
	if err != nil {
		return err
	}
	if err := s.record("set_qualifier", entity, claimID); err != nil {
		return err
	}
	qualifier.Hash = s.hash()
	if hash == "" {
		c.Qualifiers = append(c.Qualifiers, qualifier)
		return nil
	}
	for i := range c.Qualifiers {
		if c.Qualifiers[i].Hash == hash {
			c.Qualifiers[i] = qualifier
			return nil
		}
	}
	return errors.NewNotFoundError("qualifier", hash)
}

// RemoveQualifiers implements kb.Client.
func (s *Store) RemoveQualifiers(_ context.Context, claimID string, hashes ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, entity, err := s.claim(claimID)
	if err != nil {
		return err
	}
	if err := s.record("remove_qualifiers", entity, claimID); err != nil {
		return err
	}
	drop := setOf(hashes)
	kept := c.Qualifiers[:0]
	for _, q := range c.Qualifiers {
		if !drop[q.Hash] {
			kept = append(kept, q)
		}
	}
	c.Qualifiers = kept
	return nil
}

// AddReference implements kb.Client.
func (s *Store) AddReference(_ context.Context, claimID string, ref kb.Reference) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, entity, err := s.claim(claimID)
	if err != nil {
		return err
	}
	if err := s.record("add_reference", entity, claimID); err != nil {
		return err
	}
	ref.Hash = s.hash()
	ref.Snaks = append([]kb.Snak(nil), ref.Snaks...)
	c.References = append(c.References, ref)
	return nil
}

// ReplaceReference implements kb.Client.
func (s *Store) ReplaceReference(_ context.Context, claimID, hash string, ref kb.Reference) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, entity, err := s.claim(claimID)
	if err != nil {
		return err
	}
	for i := range c.References {
		if c.References[i].Hash != hash {
			continue
		}
		if err := s.record("replace_reference", entity, claimID); err != nil {
			return err
		}
		ref.Hash = s.hash()
		ref.Snaks = append([]kb.Snak(nil), ref.Snaks...)
		c.References[i] = ref
		return nil
	}
	return errors.NewNotFoundError("reference", hash)
}

// RemoveReferences implements kb.Client.
func (s *Store) RemoveReferences(_ context.Context, claimID string, hashes ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, entity, err := s.claim(claimID)
	if err != nil {
		return err
	}
	if err := s.record("remove_references", entity, claimID); err != nil {
		return err
	}
	drop := setOf(hashes)
	kept := c.References[:0]
	for _, r := range c.References {
		if !drop[r.Hash] {
			kept = append(kept, r)
		}
	}
	c.References = kept
	return nil
}

// CreateEntity implements kb.Client.
func (s *Store) CreateEntity(_ context.Context, draft kb.Draft) (kb.EntityID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextItem++
	id := kb.EntityID(fmt.Sprintf("Q%d", s.nextItem))
	if err := s.record("create_entity", id, ""); err != nil {
		return "", err
	}
	e := &kb.Entity{
		ID:           id,
		Labels:       draft.Labels,
		Descriptions: draft.Descriptions,
		Claims:       make(map[kb.PropertyID][]kb.Claim),
	}
	for _, c := range draft.Claims {
		c.ID = ""
		s.prepare(id, &c)
		e.Claims[c.Property] = append(e.Claims[c.Property], c)
	}
	s.entities[id] = e
	return id, nil
}

// Query implements kb.Client.
func (s *Store) Query(_ context.Context, sparql string) ([]kb.Binding, error) {
	s.mu.RLock()
	fn := s.query
	s.mu.RUnlock()
	if fn == nil {
		return nil, errors.NewNotFoundError("query handler", strings.TrimSpace(firstLine(sparql)))
	}
	return fn(sparql)
}

// Entities returns every stored entity id.
func (s *Store) Entities() []kb.EntityID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]kb.EntityID, 0, len(s.entities))
	for id := range s.entities {
		ids = append(ids, id)
	}
	return ids
}

func clone(e *kb.Entity) *kb.Entity {
	out := &kb.Entity{
		ID:           e.ID,
		Labels:       e.Labels,
		Descriptions: e.Descriptions,
		Claims:       make(map[kb.PropertyID][]kb.Claim, len(e.Claims)),
	}
	for p, claims := range e.Claims {
		cs := make([]kb.Claim, len(claims))
		for i, c := range claims {
			c.Qualifiers = append([]kb.Snak(nil), c.Qualifiers...)
			refs := make([]kb.Reference, len(c.References))
			for j, r := range c.References {
				r.Snaks = append([]kb.Snak(nil), r.Snaks...)
				refs[j] = r
			}
			c.References = refs
			cs[i] = c
		}
		out.Claims[p] = cs
	}
	return out
}

func setOf(items []string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
