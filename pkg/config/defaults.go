package config

// Default configuration values.
const (
	DefaultWorkers        = 0
	DefaultCommitsDir     = "commits"
	DefaultValidateMaster = true
	DefaultBackend        = "npm-is-json-schema-subset"
	DefaultSelfCheck      = false
	DefaultToolsDir       = "tools"
	DefaultOutputDir      = "."
	DefaultOutputFormat   = "table"
	DefaultCompress       = false
	DefaultLogLevel       = "info"
	DefaultLogJSON        = false
	DefaultOTLPInsecure   = false
	DefaultEnvironment    = ""
)

// DefaultLanguages is empty: the lineage keeps every path under the tracked
// prefixes whatever language its name suggests.
var DefaultLanguages = []string{}
