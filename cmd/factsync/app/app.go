// Package app provides the application context and dependency management
// for the factsync CLI: configuration, logging, and the lazily created
// knowledge-base client shared by every command.
package app

import (
	"context"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/factsync"
	"github.com/agentstation/factsync/cmd/application"
	"github.com/agentstation/factsync/internal/wikibase"
	"github.com/agentstation/factsync/pkg/decay"
	"github.com/agentstation/factsync/pkg/errors"
	"github.com/agentstation/factsync/pkg/kb"
	"github.com/agentstation/factsync/pkg/logging"
	"github.com/agentstation/factsync/pkg/nudat"
	"github.com/agentstation/factsync/pkg/release"
	pkgsync "github.com/agentstation/factsync/pkg/sync"
)

// App represents the factsync application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger

	// Client is created on first use and logged in once.
	mu     sync.Mutex
	client kb.Client
}

// Ensure App implements application.Application at compile time.
var _ application.Application = (*App)(nil)

// New creates a new App instance with the given version information.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	config, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}
	return app, nil
}

// Version returns the version information.
func (a *App) Version() string { return a.version }

// Commit returns the git commit hash.
func (a *App) Commit() string { return a.commit }

// Date returns the build date.
func (a *App) Date() string { return a.date }

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string { return a.builtBy }

// Config returns the application configuration.
func (a *App) Config() *Config { return a.config }

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger { return a.logger }

// OutputFormat returns the configured output format.
func (a *App) OutputFormat() string { return a.config.Format }

// DataDir is where extracted row files are written.
func (a *App) DataDir() string { return a.config.DataDir }

// Client returns the Wikibase client, creating it on first use. With
// credentials configured the bot logs in before the client is returned.
func (a *App) Client(ctx context.Context) (kb.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client != nil {
		return a.client, nil
	}

	c := wikibase.New(
		wikibase.WithAPIURL(a.config.APIURL),
		wikibase.WithSPARQLURL(a.config.SPARQLURL),
		wikibase.WithUserAgent(a.config.UserAgent),
		wikibase.WithMaxLag(a.config.MaxLag),
		wikibase.WithCredentials(a.config.Username, a.config.Password),
	)
	if a.config.Username != "" {
		if err := c.Login(logging.WithLogger(ctx, a.logger)); err != nil {
			return nil, err
		}
		a.logger.Info().Str("user", a.config.Username).Msg("logged in")
	} else {
		a.logger.Warn().Msg("no bot credentials configured, edits will be refused")
	}
	a.client = c
	return c, nil
}

// PipelineOptions returns the NuDat source and the decay-mode map.
func (a *App) PipelineOptions() ([]factsync.Option, error) {
	srcOpts := []nudat.Option{
		nudat.WithBaseURL(a.config.SourceURL),
		nudat.WithDelay(a.config.FetchDelay),
		nudat.WithUserAgent(a.config.UserAgent),
	}
	if a.config.NoRobots {
		srcOpts = append(srcOpts, nudat.WithoutRobots())
	}
	opts := []factsync.Option{factsync.WithSource(nudat.NewSource(srcOpts...))}

	if a.config.ModesFile != "" {
		m, err := loadModes(a.config.ModesFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, factsync.WithItemMap(m))
	}
	return opts, nil
}

func loadModes(path string) (*decay.ItemMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	defer func() { _ = f.Close() }()
	return decay.LoadItemMap(f)
}

// SyncOptions returns the run settings from configuration.
func (a *App) SyncOptions() ([]pkgsync.Option, error) {
	opts := []pkgsync.Option{
		pkgsync.WithDryRun(a.config.DryRun),
		pkgsync.WithMaxMutations(a.config.MaxMutations),
		pkgsync.WithDelay(a.config.Delay),
		pkgsync.WithRange(a.config.Start, a.config.Stop),
		pkgsync.WithTimeout(a.config.Timeout),
	}
	retrieved, err := parseDate(a.config.RetrievedAt)
	if err != nil {
		return nil, errors.NewConfigError("retrieved_at", "want YYYY-MM-DD", err)
	}
	if !retrieved.IsZero() {
		opts = append(opts, pkgsync.WithRetrievedAt(retrieved))
	}
	return opts, nil
}

// Release returns the configured NuDat edition.
func (a *App) Release() (*release.Descriptor, error) {
	d := a.config.Release()
	if d == nil {
		return nil, nil
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// Shutdown releases application resources. The client holds no
// background work, so there is nothing to stop yet.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.client = nil
	return nil
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithClient sets the knowledge-base client (useful for testing).
func WithClient(client kb.Client) Option {
	return func(a *App) error {
		a.client = client
		return nil
	}
}
