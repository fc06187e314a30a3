package app

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/factsync/cmd/factsync/cmd/nuclides"
	"github.com/agentstation/factsync/cmd/factsync/cmd/orgs"
)

// registerCommands registers all subcommands with the root command.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(nuclides.NewExtractCommand(a))
	rootCmd.AddCommand(nuclides.NewApplyCommand(a))
	rootCmd.AddCommand(nuclides.NewSyncCommand(a))

	rootCmd.AddCommand(orgs.NewCommand(a))

	rootCmd.AddCommand(a.newVersionCommand())
}

// newVersionCommand creates the version command.
func (a *App) newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("factsync %s\n", a.version)
			if a.config.Verbose {
				cmd.Printf("  commit:   %s\n", a.commit)
				cmd.Printf("  built:    %s\n", a.date)
				cmd.Printf("  built by: %s\n", a.builtBy)
			}
		},
	}
}
