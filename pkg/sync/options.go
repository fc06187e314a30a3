// Package sync drives a synchronization run: it orders candidate facts,
// establishes the release marker, and plans and applies each fact within
// the run's resume window and mutation cap.
package sync

import (
	"time"

	"github.com/agentstation/factsync/pkg/constants"
	"github.com/agentstation/factsync/pkg/errors"
	"github.com/agentstation/factsync/pkg/release"
)

// Options controls a synchronization run.
type Options struct {
	// Orchestration control
	DryRun   bool          // Plan without applying
	FailFast bool          // Stop on the first failed record instead of continuing
	Timeout  time.Duration // Timeout for the entire run

	// Resume window: 1-based inclusive ordinals over the sorted candidates.
	// Zero means unbounded.
	Start int
	Stop  int

	// Safety valves
	MaxMutations int           // Hard cap on mutating calls per run, zero for none
	Delay        time.Duration // Pause between mutating calls

	// Provenance
	Release     *release.Descriptor // Edition marker cited by every new record
	RetrievedAt time.Time           // Retrieval date written with new records
}

// Apply applies the given options to the sync options.
func (s *Options) Apply(opts ...Option) *Options {
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Defaults returns the default sync options.
func Defaults() *Options {
	return &Options{
		MaxMutations: constants.DefaultMaxMutations,
		Delay:        constants.DefaultMutationDelay,
		RetrievedAt:  time.Now().UTC(),
	}
}

// Option is a function that configures sync Options.
type Option func(*Options)

// Validate checks if the sync options are valid.
func (s *Options) Validate() error {
	if s.Timeout < 0 {
		return &errors.ValidationError{Field: "Timeout", Value: s.Timeout, Message: "timeout must be non-negative"}
	}
	if s.Start < 0 || s.Stop < 0 {
		return &errors.ValidationError{Field: "Start", Value: s.Start, Message: "ordinals must be non-negative"}
	}
	if s.Stop > 0 && s.Start > s.Stop {
		return &errors.ValidationError{Field: "Stop", Value: s.Stop, Message: "stop must not precede start"}
	}
	if s.MaxMutations < 0 {
		return &errors.ValidationError{Field: "MaxMutations", Value: s.MaxMutations, Message: "cap must be non-negative"}
	}
	if s.Release != nil {
		return s.Release.Validate()
	}
	return nil
}

// inWindow reports whether the 1-based ordinal is inside [Start, Stop].
func (s *Options) inWindow(ordinal int) bool {
	if s.Start > 0 && ordinal < s.Start {
		return false
	}
	return s.Stop == 0 || ordinal <= s.Stop
}

// WithDryRun configures dry run mode.
func WithDryRun(dryRun bool) Option {
	return func(opts *Options) {
		opts.DryRun = dryRun
	}
}

// WithFailFast configures fail-fast behavior.
func WithFailFast(failFast bool) Option {
	return func(opts *Options) {
		opts.FailFast = failFast
	}
}

// WithTimeout configures the run timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(opts *Options) {
		opts.Timeout = timeout
	}
}

// WithRange configures the resume window.
func WithRange(start, stop int) Option {
	return func(opts *Options) {
		opts.Start = start
		opts.Stop = stop
	}
}

// WithMaxMutations configures the mutation cap.
func WithMaxMutations(n int) Option {
	return func(opts *Options) {
		opts.MaxMutations = n
	}
}

// WithDelay configures the pause between mutating calls.
func WithDelay(d time.Duration) Option {
	return func(opts *Options) {
		opts.Delay = d
	}
}

// WithRelease configures the edition marker.
func WithRelease(d release.Descriptor) Option {
	return func(opts *Options) {
		opts.Release = &d
	}
}

// WithRetrievedAt configures the retrieval date.
func WithRetrievedAt(t time.Time) Option {
	return func(opts *Options) {
		opts.RetrievedAt = t
	}
}
