package sync

import (
	"context"
	"fmt"
	"sort"

	"github.com/agentstation/factsync/pkg/errors"
	"github.com/agentstation/factsync/pkg/kb"
	"github.com/agentstation/factsync/pkg/logging"
	"github.com/agentstation/factsync/pkg/provenance"
	"github.com/agentstation/factsync/pkg/reconcile"
	"github.com/agentstation/factsync/pkg/release"
)

// Candidate is one fact to reconcile on one entity, or a new entity to
// create when Draft is set.
type Candidate struct {
	Entity    kb.EntityID
	Label     string
	Proposal  reconcile.Proposal
	SourceURL string
	// Source overrides the release citation, for facts that cite a
	// publication rather than a dataset edition.
	Source *provenance.Source
	// Draft and Fact describe an entity to create.
	Draft *kb.Draft
	Fact  string
	// Summary is the edit summary of the candidate's mutations.
	Summary string
}

// Key is the natural key of the candidate.
func (c Candidate) Key() string {
	if c.Proposal != nil {
		return c.Proposal.Key()
	}
	return c.Fact
}

func (c Candidate) property() kb.PropertyID {
	if c.Proposal != nil {
		return c.Proposal.Property()
	}
	return ""
}

// Sort orders candidates by entity, property and natural key.
func Sort(cs []Candidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		a, b := cs[i], cs[j]
		if a.Entity != b.Entity {
			return a.Entity < b.Entity
		}
		if pa, pb := a.property(), b.property(); pa != pb {
			return pa < pb
		}
		return a.Key() < b.Key()
	})
}

// Driver runs candidates through the reconciliation engine.
type Driver struct {
	client  kb.Client
	opts    *Options
	tracker provenance.Tracker
}

// NewDriver creates a driver over client.
func NewDriver(client kb.Client, opts ...Option) *Driver {
	return &Driver{
		client:  client,
		opts:    Defaults().Apply(opts...),
		tracker: provenance.NewTracker(),
	}
}

// Tracker returns the record of every mutation the driver applied.
func (d *Driver) Tracker() provenance.Tracker {
	return d.tracker
}

// Run walks the candidates once in sorted order. Failures are collected
// and the run continues unless FailFast is set. The run stops before any
// plan that would take the mutation count past the cap.
func (d *Driver) Run(ctx context.Context, candidates []Candidate) (result *Result, err error) {
	if err := d.opts.Validate(); err != nil {
		return nil, err
	}
	if d.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opts.Timeout)
		defer cancel()
	}
	log := logging.Ctx(ctx)
	result = newResult(d.opts.DryRun)
	defer func() {
		if result != nil {
			result.Provenance = d.tracker.Map()
		}
	}()

	rel := provenance.Release{Dataset: kb.ItemNuDat}
	if d.opts.Release != nil {
		rel, err = release.Ensure(ctx, d.client, *d.opts.Release, !d.opts.DryRun)
		if err != nil {
			return nil, err
		}
	}
	result.Release = rel.Item
	if result.Release == "" {
		result.Release = rel.Dataset
	}

	engine := reconcile.NewEngine(d.client,
		reconcile.WithDelay(d.opts.Delay),
		reconcile.WithTracker(d.tracker),
		reconcile.WithLogger(log),
	)

	sorted := append([]Candidate(nil), candidates...)
	Sort(sorted)
	result.Candidates = len(sorted)

	for i, c := range sorted {
		ordinal := i + 1
		if !d.opts.inWindow(ordinal) {
			result.Skipped++
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, errors.Join(errors.ErrCanceled, err)
		}

		rctx := logging.WithFact(logging.WithEntity(ctx, string(c.Entity)), c.Key())
		if c.Summary != "" {
			rctx = kb.WithEditSummary(rctx, c.Summary)
		}

		plan, err := d.plan(rctx, engine, c, rel)
		if err != nil {
			if d.fail(rctx, result, ordinal, c, err) {
				return result, err
			}
			continue
		}

		if d.opts.MaxMutations > 0 && result.Mutations+plan.Mutations() > d.opts.MaxMutations {
			result.Capped = true
			result.ResumeOrdinal = ordinal
			if plan.Mutations() > d.opts.MaxMutations {
				return result, errors.NewValidationError("max_mutations", d.opts.MaxMutations,
					fmt.Sprintf("record #%d needs %d mutations on its own", ordinal, plan.Mutations()))
			}
			logging.Ctx(rctx).Warn().Int("ordinal", ordinal).Int("mutations", result.Mutations).
				Msg("mutation cap reached, resume from this ordinal")
			break
		}

		result.Processed++
		result.LastOrdinal = ordinal
		result.count(plan)

		if d.opts.DryRun {
			result.Plans = append(result.Plans, plan)
			result.Mutations += plan.Mutations()
			logging.Ctx(rctx).Info().Int("ordinal", ordinal).Msg(plan.String())
			continue
		}

		applied, err := engine.Apply(rctx, plan)
		result.Mutations += applied.Mutations
		if err != nil {
			if d.fail(rctx, result, ordinal, c, err) {
				return result, err
			}
			continue
		}
		if plan.Mutations() > 0 {
			logging.Ctx(rctx).Info().Int("ordinal", ordinal).Msg(plan.String())
		}
	}

	log.Info().
		Int("processed", result.Processed).
		Int("mutations", result.Mutations).
		Int("failures", len(result.Failures)).
		Bool("capped", result.Capped).
		Msg("run complete")
	return result, nil
}

func (d *Driver) plan(ctx context.Context, engine *reconcile.Engine, c Candidate, rel provenance.Release) (*reconcile.Plan, error) {
	if c.Draft != nil {
		return engine.PlanEntity(c.Key(), *c.Draft), nil
	}
	if c.Proposal == nil {
		return nil, errors.NewValidationError("proposal", nil, "candidate has neither a proposal nor a draft")
	}
	src := rel.Cite(c.SourceURL, d.opts.RetrievedAt)
	if c.Source != nil {
		src = *c.Source
	}
	return engine.Plan(ctx, c.Entity, c.Proposal, src)
}

// fail records a failed candidate and reports whether the run must stop.
func (d *Driver) fail(ctx context.Context, result *Result, ordinal int, c Candidate, err error) bool {
	logging.Ctx(ctx).Error().Err(err).Int("ordinal", ordinal).Msg("record failed")
	result.Failures = append(result.Failures, Failure{Ordinal: ordinal, Entity: c.Entity, Fact: c.Key(), Err: err})
	return d.opts.FailFast
}
