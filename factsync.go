// Package factsync synchronizes nuclear data from the NuDat tables into
// a Wikibase knowledge base. A Pipeline extracts measurements for every
// known nuclide, normalizes and diffs them against the recorded state,
// and reconciles what changed, citing the dataset release.
package factsync

import (
	"context"

	"github.com/agentstation/factsync/pkg/decay"
	"github.com/agentstation/factsync/pkg/differ"
	"github.com/agentstation/factsync/pkg/errors"
	"github.com/agentstation/factsync/pkg/kb"
	"github.com/agentstation/factsync/pkg/logging"
	"github.com/agentstation/factsync/pkg/normalize"
	"github.com/agentstation/factsync/pkg/nuclide"
	"github.com/agentstation/factsync/pkg/nudat"
	"github.com/agentstation/factsync/pkg/sync"
	"github.com/agentstation/factsync/pkg/units"
)

// Fetcher returns the raw measurements of one nuclide. *nudat.Source
// satisfies it.
type Fetcher interface {
	Measurements(ctx context.Context, key nuclide.Key) ([]nudat.Raw, error)
}

// Pipeline runs extraction and reconciliation against one knowledge base.
type Pipeline struct {
	client kb.Client
	source Fetcher
	units  *units.Table
	modes  *decay.ItemMap
	filter func(nuclide.Key) bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithSource replaces the NuDat source.
func WithSource(f Fetcher) Option {
	return func(p *Pipeline) { p.source = f }
}

// WithItemMap replaces the decay-mode item map.
func WithItemMap(m *decay.ItemMap) Option {
	return func(p *Pipeline) { p.modes = m }
}

// WithUnits replaces the unit table.
func WithUnits(t *units.Table) Option {
	return func(p *Pipeline) { p.units = t }
}

// WithFilter restricts extraction to the nuclides keep accepts.
func WithFilter(keep func(nuclide.Key) bool) Option {
	return func(p *Pipeline) { p.filter = keep }
}

// WithElements restricts extraction to atomic numbers in [minZ, maxZ].
// A zero bound is open.
func WithElements(minZ, maxZ int) Option {
	return WithFilter(func(k nuclide.Key) bool {
		return (minZ == 0 || k.Z >= minZ) && (maxZ == 0 || k.Z <= maxZ)
	})
}

// New creates a pipeline over client.
func New(client kb.Client, opts ...Option) *Pipeline {
	p := &Pipeline{
		client: client,
		units:  units.Default(),
		modes:  decay.DefaultItemMap(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.source == nil {
		p.source = nudat.NewSource()
	}
	return p
}

// FetchFailure is a nuclide whose source document could not be read.
type FetchFailure struct {
	Key nuclide.Key
	Err error
}

// Extraction is the outcome of reading the source for every nuclide.
type Extraction struct {
	Index   *nuclide.Index
	Rows    normalize.Batch // every normalized row
	Changes *differ.Changeset
	Skipped []normalize.Skipped
	Failed  []FetchFailure
}

// Changed returns the rows that differ from the recorded state.
func (e *Extraction) Changed() normalize.Batch {
	if e.Changes == nil {
		return e.Rows
	}
	return e.Changes.Changed
}

// Extract loads the nuclide items, reads and normalizes the source for
// each, and diffs the rows against what the items already record. A
// nuclide that cannot be fetched is reported and the run continues.
func (p *Pipeline) Extract(ctx context.Context) (*Extraction, error) {
	log := logging.Ctx(ctx)

	index, err := nuclide.NewProvider(p.client).Fetch(ctx)
	if err != nil {
		return nil, err
	}
	norm := normalize.New(p.units, index)
	out := &Extraction{Index: index}

	for _, nuc := range index.All() {
		if p.filter != nil && !p.filter(nuc.Key) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return out, errors.Join(errors.ErrCanceled, err)
		}
		raws, err := p.source.Measurements(ctx, nuc.Key)
		if err != nil {
			if errors.IsCanceled(err) {
				return out, err
			}
			log.Warn().Err(err).Str("nuclide", nuc.Key.String()).Msg("fetch failed")
			out.Failed = append(out.Failed, FetchFailure{Key: nuc.Key, Err: err})
			continue
		}
		batch, skipped := norm.Nuclide(ctx, nuc, raws)
		out.Rows.Merge(batch)
		out.Skipped = append(out.Skipped, skipped...)
	}

	out.Changes = differ.New(differ.WithItemMap(p.modes)).Batch(index, out.Rows)
	log.Info().
		Int("rows", out.Rows.Len()).
		Int("changed", out.Changes.Changed.Len()).
		Int("skipped", len(out.Skipped)).
		Int("failed", len(out.Failed)).
		Msg("extraction complete")
	return out, nil
}

// Apply reconciles rows with the knowledge base. Rows that cannot become
// proposals are returned alongside the result.
func (p *Pipeline) Apply(ctx context.Context, rows normalize.Batch, opts ...sync.Option) (*sync.Result, []error, error) {
	candidates, errs := sync.FromBatch(rows, p.modes)
	for _, err := range errs {
		logging.Ctx(ctx).Warn().Err(err).Msg("row skipped")
	}
	res, err := sync.NewDriver(p.client, opts...).Run(ctx, candidates)
	return res, errs, err
}

// Sync extracts and applies the changed rows in one pass.
func (p *Pipeline) Sync(ctx context.Context, opts ...sync.Option) (*Extraction, *sync.Result, error) {
	ext, err := p.Extract(ctx)
	if err != nil {
		return ext, nil, err
	}
	res, _, err := p.Apply(ctx, ext.Changed(), opts...)
	return ext, res, err
}
