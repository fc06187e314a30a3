package app

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/factsync/pkg/constants"
	"github.com/agentstation/factsync/pkg/errors"
	"github.com/agentstation/factsync/pkg/kb"
	"github.com/agentstation/factsync/pkg/release"
)

// envPrefix namespaces every environment variable factsync reads.
const envPrefix = "FACTSYNC"

// Config holds the application configuration loaded from various sources
// including config files, environment variables, and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// Knowledge base
	APIURL    string
	SPARQLURL string
	Username  string
	Password  string
	UserAgent string
	MaxLag    int

	// Tabular source
	SourceURL  string
	FetchDelay time.Duration
	NoRobots   bool

	// Run
	Delay        time.Duration
	MaxMutations int
	Start        int
	Stop         int
	DryRun       bool
	Timeout      time.Duration
	RetrievedAt  string // YYYY-MM-DD, empty for today
	DataDir      string
	ModesFile    string

	// Release descriptor of the NuDat edition
	ReleaseTitle       string
	ReleaseDescription string
	ReleaseEdition     string
	ReleaseEditionOf   string
	ReleasePublished   string // YYYY-MM-DD
	ReleaseURL         string
	ReleaseDOI         string

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables (FACTSYNC_*)
// 3. .env files
// 4. Config file (~/.factsync.yaml)
// 5. Defaults
func LoadConfig() (*Config, error) {
	return loadConfig(viper.New())
}

func loadConfig(v *viper.Viper) (*Config, error) {
	loadEnvFiles()

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if configFile := v.GetString("config"); configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".factsync")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.NewConfigError("config file", "cannot read "+v.ConfigFileUsed(), err)
		}
	}

	config := &Config{
		Verbose: v.GetBool("verbose"),
		Quiet:   v.GetBool("quiet"),
		NoColor: v.GetBool("no-color"),
		Format:  v.GetString("format"),

		ConfigFile: v.ConfigFileUsed(),

		APIURL:    v.GetString("api_url"),
		SPARQLURL: v.GetString("sparql_url"),
		Username:  v.GetString("username"),
		Password:  v.GetString("password"),
		UserAgent: v.GetString("user_agent"),
		MaxLag:    v.GetInt("max_lag"),

		SourceURL:  v.GetString("source_url"),
		FetchDelay: v.GetDuration("fetch_delay"),
		NoRobots:   v.GetBool("no_robots"),

		Delay:        v.GetDuration("delay"),
		MaxMutations: v.GetInt("max_mutations"),
		Start:        v.GetInt("start"),
		Stop:         v.GetInt("stop"),
		DryRun:       v.GetBool("dry_run"),
		Timeout:      v.GetDuration("timeout"),
		RetrievedAt:  v.GetString("retrieved_at"),
		DataDir:      v.GetString("data_dir"),
		ModesFile:    v.GetString("modes_file"),

		ReleaseTitle:       v.GetString("release.title"),
		ReleaseDescription: v.GetString("release.description"),
		ReleaseEdition:     v.GetString("release.edition"),
		ReleaseEditionOf:   v.GetString("release.edition_of"),
		ReleasePublished:   v.GetString("release.published"),
		ReleaseURL:         v.GetString("release.url"),
		ReleaseDOI:         v.GetString("release.doi"),

		// Logging keeps the unprefixed variables pkg/logging also reads.
		LogLevel:  getEnvOrDefault("LOG_LEVEL", v.GetString("log_level")),
		LogFormat: getEnvOrDefault("LOG_FORMAT", v.GetString("log_format")),
		LogOutput: getEnvOrDefault("LOG_OUTPUT", v.GetString("log_output")),
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_url", constants.DefaultAPIURL)
	v.SetDefault("sparql_url", constants.DefaultSPARQLURL)
	v.SetDefault("user_agent", constants.DefaultUserAgent)
	v.SetDefault("max_lag", 5)
	v.SetDefault("source_url", constants.DefaultSourceURL)
	v.SetDefault("fetch_delay", constants.DefaultFetchDelay)
	v.SetDefault("delay", constants.DefaultMutationDelay)
	v.SetDefault("max_mutations", constants.DefaultMaxMutations)
	v.SetDefault("timeout", constants.CommandTimeout)
	v.SetDefault("data_dir", "data")
	v.SetDefault("release.edition_of", string(kb.ItemNuDat))
	v.SetDefault("log_format", "auto")
	v.SetDefault("log_output", "stderr")
}

// Validate checks values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if c.MaxMutations < 0 {
		return errors.NewConfigError("max_mutations", "must be non-negative", nil)
	}
	if c.Start < 0 || c.Stop < 0 || (c.Stop > 0 && c.Start > c.Stop) {
		return errors.NewConfigError("start/stop", "want 0 <= start <= stop", nil)
	}
	if c.Delay < 0 || c.FetchDelay < 0 {
		return errors.NewConfigError("delay", "must be non-negative", nil)
	}
	if _, err := parseDate(c.RetrievedAt); err != nil {
		return errors.NewConfigError("retrieved_at", "want YYYY-MM-DD", err)
	}
	if _, err := parseDate(c.ReleasePublished); err != nil {
		return errors.NewConfigError("release.published", "want YYYY-MM-DD", err)
	}
	return nil
}

// Release returns the release descriptor, or nil when no edition is
// configured.
func (c *Config) Release() *release.Descriptor {
	if strings.TrimSpace(c.ReleaseEdition) == "" {
		return nil
	}
	published, _ := parseDate(c.ReleasePublished)
	return &release.Descriptor{
		Title:       c.ReleaseTitle,
		Description: c.ReleaseDescription,
		Edition:     c.ReleaseEdition,
		EditionOf:   kb.EntityID(c.ReleaseEditionOf),
		Published:   published,
		DownloadURL: c.ReleaseURL,
		DOI:         c.ReleaseDOI,
	}
}

// UpdateFromFlags updates config values from parsed command flags.
// This should be called after cobra parses flags to ensure flag
// values take precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.DateOnly, s)
}

// loadEnvFiles loads environment variables from .env files.
// .env.local is read first so its values win; godotenv never overrides
// variables that are already set.
func loadEnvFiles() {
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}

// getEnvOrDefault returns the environment variable value or the default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
