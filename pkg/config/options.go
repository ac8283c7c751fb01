package config

import (
	"strings"
)

// Option is a function that modifies a Config.
// Options validate inputs and reject invalid values with warnings.
type Option func(*Config)

// OptToolDiamond sets the diamond executable name or path.
func OptToolDiamond(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Diamond Path", s) {
			c.Tools.Diamond = s
		}
	}
}

// OptToolBowtie2 sets the bowtie2 executable name or path.
func OptToolBowtie2(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Bowtie2 Path", s) {
			c.Tools.Bowtie2 = s
		}
	}
}

// OptToolBowtie2Build sets the bowtie2-build executable name or path.
func OptToolBowtie2Build(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Bowtie2-build Path", s) {
			c.Tools.Bowtie2Build = s
		}
	}
}

// OptToolSamtools sets the samtools executable name or path.
func OptToolSamtools(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Samtools Path", s) {
			c.Tools.Samtools = s
		}
	}
}

// OptToolBedtools sets the bedtools executable name or path.
func OptToolBedtools(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Bedtools Path", s) {
			c.Tools.Bedtools = s
		}
	}
}

// OptAlignerSensitivity sets the diamond sensitivity mode.
// Valid values: "default", "fast", "mid-sensitive", "sensitive",
// "more-sensitive", "very-sensitive", "ultra-sensitive".
func OptAlignerSensitivity(s string) Option {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return func(c *Config) {
		if isValidEnum("Aligner.Sensitivity", s) {
			c.Aligner.Sensitivity = s
		}
	}
}

// OptAlignerEValue sets the maximum expect value for reported alignments.
func OptAlignerEValue(f float64) Option {
	return func(c *Config) {
		if isValidFloat("Aligner EValue", f) {
			c.Aligner.EValue = f
		}
	}
}

// OptAlignerTopPercent keeps alignments within the given percentage of the
// best bitscore per query.
func OptAlignerTopPercent(i int) Option {
	return func(c *Config) {
		if isValidInt("Aligner Top Percent", i) && i <= 100 {
			c.Aligner.TopPercent = i
		}
	}
}

// OptLogLevel sets the logging level.
// Valid values: "debug", "info", "warn", "error".
func OptLogLevel(s string) Option {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return func(c *Config) {
		if isValidEnum("Log.Level", s) {
			c.Log.Level = s
		}
	}
}

// OptLogFormat sets the log output format.
// Valid values: "json", "text", "tint".
func OptLogFormat(s string) Option {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return func(c *Config) {
		if isValidEnum("Log.Format", s) {
			c.Log.Format = s
		}
	}
}

// OptLogDestination sets where logs are written.
// Valid values: "file", "stdin", "stdout".
func OptLogDestination(s string) Option {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return func(c *Config) {
		if isValidEnum("Log.Destination", s) {
			c.Log.Destination = s
		}
	}
}

// OptJobsNumber sets the number of concurrent workers for parallel operations.
// Default is runtime.NumCPU().
func OptJobsNumber(i int) Option {
	return func(c *Config) {
		if isValidInt("Jobs Number", i) {
			c.JobsNumber = i
		}
	}
}

// OptTaxonomyDir sets the directory holding taxdump files and the SQLite
// cache built from them.
func OptTaxonomyDir(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Taxonomy Directory", s) {
			c.TaxonomyDir = s
		}
	}
}

// OptHomeDir sets the home directory for config, cache, and log locations.
// Set once at startup from os.UserHomeDir().
// Runtime-only field - not in ToOptions().
func OptHomeDir(s string) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString("Home Directory", s) {
			c.HomeDir = s
		}
	}
}
