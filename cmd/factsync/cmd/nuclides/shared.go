// Package nuclides implements the commands that move NuDat measurements
// into the knowledge base: extract, apply and sync.
package nuclides

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/agentstation/factsync"
	"github.com/agentstation/factsync/cmd/application"
	"github.com/agentstation/factsync/internal/cmd/globals"
	"github.com/agentstation/factsync/pkg/sync"
)

// pipeline builds the extraction pipeline from configuration.
func pipeline(ctx context.Context, app application.Application, extra ...factsync.Option) (*factsync.Pipeline, error) {
	client, err := app.Client(ctx)
	if err != nil {
		return nil, err
	}
	opts, err := app.PipelineOptions()
	if err != nil {
		return nil, err
	}
	return factsync.New(client, append(opts, extra...)...), nil
}

// runOptions merges configured run options, the release and the
// command's flag overrides, in that order.
func runOptions(cmd *cobra.Command, app application.Application, flags *globals.RunFlags) ([]sync.Option, error) {
	opts, err := app.SyncOptions()
	if err != nil {
		return nil, err
	}
	rel, err := app.Release()
	if err != nil {
		return nil, err
	}
	if rel != nil {
		opts = append(opts, sync.WithRelease(*rel))
	}
	return append(opts, flags.Options(cmd)...), nil
}

// elementFlags restricts extraction to a range of atomic numbers.
type elementFlags struct {
	MinZ int
	MaxZ int
}

func addElementFlags(cmd *cobra.Command) *elementFlags {
	f := &elementFlags{}
	cmd.Flags().IntVar(&f.MinZ, "min-z", 0, "Lowest atomic number to extract")
	cmd.Flags().IntVar(&f.MaxZ, "max-z", 0, "Highest atomic number to extract")
	return f
}

func (f *elementFlags) options() []factsync.Option {
	if f.MinZ == 0 && f.MaxZ == 0 {
		return nil
	}
	return []factsync.Option{factsync.WithElements(f.MinZ, f.MaxZ)}
}
