// Package reconcile decides, fact by fact, whether the knowledge base
// already holds an equivalent and attributed claim, and applies the
// create, update and source-attachment mutations when it does not.
package reconcile

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/agentstation/factsync/pkg/errors"
	"github.com/agentstation/factsync/pkg/kb"
	"github.com/agentstation/factsync/pkg/logging"
	"github.com/agentstation/factsync/pkg/provenance"
)

// Throttle delays mutating calls. *rate.Limiter satisfies it.
type Throttle interface {
	Wait(ctx context.Context) error
}

// Engine plans and applies reconciliation against a knowledge base.
type Engine struct {
	client   kb.Client
	tol      Tolerance
	throttle Throttle
	tracker  provenance.Tracker
	logger   *zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithTolerance overrides the matching tolerance.
func WithTolerance(tol Tolerance) Option {
	return func(e *Engine) { e.tol = tol }
}

// WithDelay inserts a fixed pause between mutating calls.
func WithDelay(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.throttle = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

// WithThrottle installs a custom throttle.
func WithThrottle(t Throttle) Option {
	return func(e *Engine) { e.throttle = t }
}

// WithTracker records every applied mutation.
func WithTracker(t provenance.Tracker) Option {
	return func(e *Engine) { e.tracker = t }
}

// WithLogger sets the engine logger.
func WithLogger(l *zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an engine over client.
func NewEngine(client kb.Client, opts ...Option) *Engine {
	e := &Engine{
		client: client,
		tol:    DefaultTolerance(),
		logger: logging.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Plan fetches the entity's claims and decides what p needs:
//
//   - no matching claim: CreateClaim, then AttachSource with the full record;
//   - a matching claim without attribution: AttachSource, or ReplaceSource
//     of an incomplete record when p asks for wholesale replacement;
//   - a matching, attributed claim: NoOp.
//
// A branching fraction outside the stored bounds adds UpdateQualifier.
func (e *Engine) Plan(ctx context.Context, entity kb.EntityID, p Proposal, src provenance.Source) (*Plan, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	ent, err := e.client.GetEntity(ctx, entity)
	if err != nil {
		return nil, err
	}
	return e.decide(ent, p, src), nil
}

func (e *Engine) decide(ent *kb.Entity, p Proposal, src provenance.Source) *Plan {
	plan := &Plan{Entity: ent.ID, Property: p.Property(), Fact: p.Key()}
	record := src.Record()

	claim, found := p.Match(ent.ClaimsFor(p.Property()), e.tol)
	if !found {
		newClaim := p.Claim()
		plan.add(Decision{Kind: CreateClaim, Claim: &newClaim})
		plan.add(Decision{Kind: AttachSource, Reference: &record})
		return plan
	}

	if rp, ok := p.(RelationProposal); ok {
		if f, ok := rp.Fraction(); ok {
			if d := UpdateBranchingFraction(claim, f); d != nil {
				plan.add(*d)
			}
		}
	}

	if !SourceIsAttributed(claim, src) {
		replaced := false
		if rp, ok := p.(RelationProposal); ok && rp.ReplaceWholesale {
			for _, ref := range claim.References {
				if src.Incomplete(ref) {
					plan.add(Decision{Kind: ReplaceSource, ClaimID: claim.ID, ReferenceHash: ref.Hash, Reference: &record})
					replaced = true
					break
				}
			}
		}
		if !replaced {
			plan.add(Decision{Kind: AttachSource, ClaimID: claim.ID, Reference: &record})
		}
	}

	if len(plan.Decisions) == 0 {
		plan.add(Decision{Kind: NoOp, ClaimID: claim.ID})
	}
	return plan
}

// PlanEntity plans the creation of a new entity.
func (e *Engine) PlanEntity(key string, draft kb.Draft) *Plan {
	return &Plan{Fact: key, Decisions: []Decision{{Kind: CreateEntity, Draft: &draft}}}
}

// Applied describes the outcome of applying a plan.
type Applied struct {
	Mutations int
	ClaimID   string
	Entity    kb.EntityID
}

// Apply performs the plan's mutations in order, waiting on the throttle
// before each. It stops at the first failure and reports how many
// mutations had been applied.
func (e *Engine) Apply(ctx context.Context, plan *Plan) (Applied, error) {
	out := Applied{Entity: plan.Entity}
	log := e.logger.With().Str("entity", string(plan.Entity)).Str("fact", plan.Fact).Logger()

	for _, d := range plan.Decisions {
		if !d.Kind.Mutates() {
			continue
		}
		if e.throttle != nil {
			if err := e.throttle.Wait(ctx); err != nil {
				return out, errors.Join(errors.ErrCanceled, err)
			}
		}

		claimID := d.ClaimID
		if claimID == "" {
			claimID = out.ClaimID
		}

		var err error
		switch d.Kind {
		case CreateClaim:
			claimID, err = e.client.CreateClaim(ctx, plan.Entity, *d.Claim)
			out.ClaimID = claimID
		case AttachSource:
			err = e.client.AddReference(ctx, claimID, *d.Reference)
		case ReplaceSource:
			err = e.client.ReplaceReference(ctx, claimID, d.ReferenceHash, *d.Reference)
		case UpdateQualifier:
			err = e.client.SetQualifier(ctx, claimID, d.QualifierHash, *d.Qualifier)
		case CreateEntity:
			out.Entity, err = e.client.CreateEntity(ctx, *d.Draft)
			plan.Entity = out.Entity
		}
		if err != nil {
			return out, errors.WrapMutation(string(d.Kind), string(plan.Entity), plan.Fact, err)
		}

		out.Mutations++
		log.Debug().Str("decision", string(d.Kind)).Str("claim", claimID).Msg("applied")
		if e.tracker != nil {
			entry := provenance.Entry{
				Entity:   plan.Entity,
				Property: plan.Property,
				Fact:     plan.Fact,
				Action:   string(d.Kind),
				ClaimID:  claimID,
			}
			if d.Reference != nil {
				entry.Cited = provenance.Describe(*d.Reference)
			}
			e.tracker.Track(entry)
		}
	}
	return out, nil
}

// Reconcile plans and applies p in one step.
func (e *Engine) Reconcile(ctx context.Context, entity kb.EntityID, p Proposal, src provenance.Source) (*Plan, error) {
	plan, err := e.Plan(ctx, entity, p, src)
	if err != nil {
		return nil, err
	}
	if _, err := e.Apply(ctx, plan); err != nil {
		return plan, err
	}
	return plan, nil
}
