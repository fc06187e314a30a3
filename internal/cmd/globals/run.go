package globals

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/factsync/pkg/sync"
)

// RunFlags holds the per-command overrides of a reconciliation run.
type RunFlags struct {
	DryRun       bool
	FailFast     bool
	Start        int
	Stop         int
	MaxMutations int
	Report       string
}

// AddRunFlags adds run flags to a command.
func AddRunFlags(cmd *cobra.Command) *RunFlags {
	flags := &RunFlags{}
	cmd.Flags().BoolVar(&flags.DryRun, "dry-run", false,
		"Plan decisions without editing the knowledge base")
	cmd.Flags().BoolVar(&flags.FailFast, "fail-fast", false,
		"Stop at the first failed record")
	cmd.Flags().IntVar(&flags.Start, "start", 0,
		"First record ordinal to process (1-based)")
	cmd.Flags().IntVar(&flags.Stop, "stop", 0,
		"Last record ordinal to process, inclusive")
	cmd.Flags().IntVar(&flags.MaxMutations, "max-mutations", 0,
		"Cap on mutating calls for this run")
	cmd.Flags().StringVar(&flags.Report, "report", "",
		"Write the provenance records applied by the run to this YAML file")
	return flags
}

// Options returns sync options for the flags set on cmd, so unset
// flags keep the configured values.
func (f *RunFlags) Options(cmd *cobra.Command) []sync.Option {
	var opts []sync.Option
	if cmd.Flags().Changed("dry-run") {
		opts = append(opts, sync.WithDryRun(f.DryRun))
	}
	if cmd.Flags().Changed("fail-fast") {
		opts = append(opts, sync.WithFailFast(f.FailFast))
	}
	if cmd.Flags().Changed("start") || cmd.Flags().Changed("stop") {
		opts = append(opts, sync.WithRange(f.Start, f.Stop))
	}
	if cmd.Flags().Changed("max-mutations") {
		opts = append(opts, sync.WithMaxMutations(f.MaxMutations))
	}
	return opts
}

// Resolve returns the global flags of cmd, falling back to format when
// no output format was given on the command line.
func Resolve(cmd *cobra.Command, format string) *Flags {
	flags := Parse(cmd)
	if flags.Output == "" {
		flags.Output = format
	}
	return flags
}
