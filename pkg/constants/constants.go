// Package constants provides shared constants for the tmr-formulator application.
package constants

// Unit constants
const (
	// GramsPerKg converts kilograms to grams
	GramsPerKg = 1000.0

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatJSON is the JSON output format
	OutputFormatJSON = "json"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// ExampleConfigFile is the example configuration file name
	ExampleConfigFile = "config.yaml.example"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"

	// EnvPrefix prefixes environment overrides, e.g. TMR_SOLVER_TIMEOUT
	EnvPrefix = "TMR"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the API
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum upload size for YAML configs (256 KB)
	DefaultMaxUploadSizeBytes int64 = 256 * 1024
)

// Solver defaults
const (
	// DefaultSolveTimeoutSeconds bounds a single LP solve
	DefaultSolveTimeoutSeconds = 10

	// ConstraintTolerance is the relative tolerance for constraint checks
	ConstraintTolerance = 1e-6
)

// NoFeasibleRationMessage is shown instead of a ration table when the
// constraints cannot be met.
const NoFeasibleRationMessage = "no feasible ration found"
