// Package application defines what factsync commands need from the
// running application, so each command can be built against a mock.
//
//	func NewCommand(app application.Application) *cobra.Command {
//	    return &cobra.Command{
//	        RunE: func(cmd *cobra.Command, args []string) error {
//	            client, err := app.Client(cmd.Context())
//	            if err != nil {
//	                return err
//	            }
//	            // ... use client
//	            return nil
//	        },
//	    }
//	}
package application

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/agentstation/factsync"
	"github.com/agentstation/factsync/pkg/kb"
	"github.com/agentstation/factsync/pkg/release"
	"github.com/agentstation/factsync/pkg/sync"
)

// Application provides the dependencies commands use.
type Application interface {
	// Client returns the knowledge-base client, logged in when
	// credentials are configured.
	Client(ctx context.Context) (kb.Client, error)

	// PipelineOptions returns the extraction options from configuration.
	PipelineOptions() ([]factsync.Option, error)

	// SyncOptions returns the run options from configuration: window,
	// cap, throttle and dry run.
	SyncOptions() ([]sync.Option, error)

	// Release describes the NuDat edition nuclide runs cite. It is nil
	// when none is configured.
	Release() (*release.Descriptor, error)

	// DataDir is where extracted row files are written.
	DataDir() string

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (json, yaml, table, etc).
	OutputFormat() string

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}
