// Package config provides tool-level configuration for taxsieve.
//
// This package has no I/O dependencies (no file operations, no network calls).
// Validation functions may write user-facing warnings via gn.Warn().
//
// Tool-level settings describe the environment taxsieve runs in: external
// binaries, the taxonomy cache location, logging, and parallelism. Per-run
// science settings (assembly paths, taxon, descriptors, clustering) live in
// the run document handled by pkg/screen and never appear here.
//
// # Configuration Sources
//
// Precedence (highest to lowest): CLI flags > env vars > config.yaml > defaults
//
// # Design Principles
//
// - Default config (from New()) is always valid - no validation needed
// - All mutations go through Option functions - the only way to modify Config
// - Invalid options are rejected with gn.Warn() - config remains in valid state
// - ToOptions() converts persistent fields (those in config.yaml)
// - Environment variables match ToOptions() fields exactly
//
// # Persistent vs Runtime Fields
//
// Persistent fields (in ToOptions, config.yaml, and env vars):
//   - Tools: diamond, bowtie2, bowtie2_build, samtools, bedtools
//   - Aligner: sensitivity, evalue, top_percent
//   - Log: level, format, destination
//   - General: jobs_number, taxonomy_dir
//
// Runtime-only fields (CLI flags only):
//   - HomeDir (set once at startup)
//
// # Environment Variables
//
// Use TAXSIEVE_ prefix with underscores for nesting:
//
//	TAXSIEVE_TOOLS_DIAMOND=/opt/diamond/diamond
//	TAXSIEVE_ALIGNER_SENSITIVITY=very-sensitive
//	TAXSIEVE_LOG_LEVEL=info
//	TAXSIEVE_JOBS_NUMBER=8
package config

import (
	"runtime"
)

// Config represents the complete taxsieve tool configuration.
type Config struct {
	// Tools contains names or paths of the external binaries taxsieve shells
	// out to for coverage preparation and protein alignment.
	Tools ToolsConfig `mapstructure:"tools" yaml:"tools"`

	// Aligner contains settings passed to diamond blastp.
	Aligner AlignerConfig `mapstructure:"aligner" yaml:"aligner"`

	Log LogConfig `mapstructure:"log" yaml:"log"`

	// JobsNumber is the number of concurrent workers for parallel operations.
	// Default value is set according to the number of available threads.
	JobsNumber int `mapstructure:"jobs_number" yaml:"jobs_number"`

	// TaxonomyDir holds the NCBI taxdump files and the SQLite cache built
	// from them. Empty means ~/.cache/taxsieve/taxonomy.
	TaxonomyDir string `mapstructure:"taxonomy_dir" yaml:"taxonomy_dir"`

	// HomeDir determines where config, cache and logs directories reside.
	// It must be set by CLI during init, there is no default value for it.
	HomeDir string
}

// ToolsConfig names the external executables. Each value is either a bare
// name resolved via PATH or an absolute path.
type ToolsConfig struct {
	// Diamond aligns extracted proteins against the reference database.
	Diamond string `mapstructure:"diamond" yaml:"diamond"`

	// Bowtie2 maps read sets when coverage comes from raw reads.
	Bowtie2 string `mapstructure:"bowtie2" yaml:"bowtie2"`

	// Bowtie2Build indexes the assembly before mapping.
	Bowtie2Build string `mapstructure:"bowtie2_build" yaml:"bowtie2_build"`

	// Samtools sorts and indexes the mapping output.
	Samtools string `mapstructure:"samtools" yaml:"samtools"`

	// Bedtools converts sorted mappings to per-base coverage.
	Bedtools string `mapstructure:"bedtools" yaml:"bedtools"`
}

// AlignerConfig contains diamond blastp parameters.
type AlignerConfig struct {
	// Sensitivity selects the diamond sensitivity mode.
	// Valid values: "default", "fast", "mid-sensitive", "sensitive",
	// "more-sensitive", "very-sensitive", "ultra-sensitive".
	Sensitivity string `mapstructure:"sensitivity" yaml:"sensitivity"`

	// EValue is the maximum expect value for reported alignments.
	EValue float64 `mapstructure:"evalue" yaml:"evalue"`

	// TopPercent keeps alignments within this percentage of the best
	// bitscore per query (diamond --top).
	TopPercent int `mapstructure:"top_percent" yaml:"top_percent"`
}

// LogConfig provides typical settings for application logs.
type LogConfig struct {
	// Format can be 'json', 'text' or 'tint' (user-facing and colored).
	Format string `mapstructure:"format"      yaml:"format"`
	// Level of logging -- 'error', 'warn', 'info', 'debug'
	Level string `mapstructure:"level"       yaml:"level"`
	// Destination can be a log file (to default place), STDERR or STDOUT
	Destination string `mapstructure:"destination" yaml:"destination"`
}

// New creates a Config with sensible default values.
// The returned config is always valid and ready to use.
// Default values can be overridden using Option functions via Update().
func New() *Config {
	res := &Config{
		Tools: ToolsConfig{
			Diamond:      "diamond",
			Bowtie2:      "bowtie2",
			Bowtie2Build: "bowtie2-build",
			Samtools:     "samtools",
			Bedtools:     "bedtools",
		},
		Aligner: AlignerConfig{
			Sensitivity: "sensitive",
			EValue:      1e-5,
			TopPercent:  10,
		},
		Log: LogConfig{
			Format: "json",
			Level:  "info",
			// for now file is rewritten every time the log starts
			Destination: "file",
		},
		JobsNumber: runtime.NumCPU(), // Default to number of CPU threads
	}

	return res
}
