package differ

import "github.com/agentstation/factsync/pkg/decay"

// Option is a functional option for configuring Differ.
type Option func(*differ)

// WithHalfLifeTolerance sets the relative tolerance for half-lives
// compared in seconds.
func WithHalfLifeTolerance(tol float64) Option {
	return func(d *differ) { d.halfLifeTol = tol }
}

// WithAbundanceTolerance sets the absolute tolerance for abundances.
func WithAbundanceTolerance(tol float64) Option {
	return func(d *differ) { d.abundanceTol = tol }
}

// WithItemMap sets the decay-mode items used for membership checks.
func WithItemMap(m *decay.ItemMap) Option {
	return func(d *differ) { d.modes = m }
}

// WithTracking enables recording of field changes in the changeset.
func WithTracking(enabled bool) Option {
	return func(d *differ) { d.tracking = enabled }
}
