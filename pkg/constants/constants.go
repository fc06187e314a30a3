// Package constants provides shared constants used throughout factsync.
// This includes timeouts, limits, file permissions, and the default
// throttling and tolerance values of a synchronization run.
package constants

import "time"

// Timeout constants
const (
	// DefaultHTTPTimeout is the standard timeout for HTTP requests
	DefaultHTTPTimeout = 30 * time.Second

	// QueryTimeout bounds a single read-only graph query
	QueryTimeout = 2 * time.Minute

	// CommandTimeout is the default timeout for CLI commands
	CommandTimeout = 6 * time.Hour
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644

	// SecureFilePermissions is for files holding credentials (rw-------)
	SecureFilePermissions = 0600
)

// Run limits
const (
	// DefaultMaxMutations caps the mutating calls of one run.
	DefaultMaxMutations = 2000

	// DefaultMutationDelay is the fixed pause between mutating calls.
	DefaultMutationDelay = 1 * time.Second

	// DefaultFetchDelay is the pause between tabular source requests.
	DefaultFetchDelay = 500 * time.Millisecond

	// MaxDocumentBytes caps a single fetched source document.
	MaxDocumentBytes = 8 << 20

	// MaxWebsiteLength is the longest official website URL we will write.
	MaxWebsiteLength = 500

	// MinInceptionYear rejects implausible founding years.
	MinInceptionYear = 900
)

// Comparison tolerances
const (
	// ClaimTolerance is the absolute tolerance for claim value and bound matching.
	ClaimTolerance = 1e-10

	// ClaimRelativeTolerance absorbs float rounding on large magnitudes.
	ClaimRelativeTolerance = 1e-9

	// ChangeTolerance is the relative (half-life) or absolute (abundance)
	// tolerance below which a source value counts as unchanged.
	ChangeTolerance = 1e-6
)

// Default endpoints and identity
const (
	// DefaultAPIURL is the Wikibase Action API endpoint
	DefaultAPIURL = "https://www.wikidata.org/w/api.php"

	// DefaultSPARQLURL is the read-only graph query endpoint
	DefaultSPARQLURL = "https://query.wikidata.org/sparql"

	// DefaultSourceURL is the NuDat nuclide page endpoint
	DefaultSourceURL = "https://www.nndc.bnl.gov/nudat2/reCenter.jsp"

	// DefaultUserAgent identifies the bot to remote services
	DefaultUserAgent = "factsync/1.0 (https://github.com/agentstation/factsync)"
)

// Intermediate file names
const (
	HalfLifeFile   = "half_life_data.csv"
	DecayFile      = "decays_data.csv"
	SpinParityFile = "spin_parity_data.csv"
	AbundanceFile  = "abundance_data.csv"
)
