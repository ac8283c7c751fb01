package config

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/gnames/gn"
)

// Update applies a slice of Option functions to the Config.
// This is the only way to modify a Config after creation.
// Invalid options are rejected with warnings - config remains in valid state.
func (c *Config) Update(opts []Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// ToOptions converts the Config to a slice of Option functions.
// Only includes persistent fields appropriate for config.yaml.
// Excludes runtime-only fields (HomeDir).
// Used for round-tripping config.yaml ↔ Config conversions.
func (c *Config) ToOptions() []Option {
	var res []Option
	var s string
	var i int
	s = c.Tools.Diamond
	if s != "" {
		res = append(res, OptToolDiamond(s))
	}
	s = c.Tools.Bowtie2
	if s != "" {
		res = append(res, OptToolBowtie2(s))
	}
	s = c.Tools.Bowtie2Build
	if s != "" {
		res = append(res, OptToolBowtie2Build(s))
	}
	s = c.Tools.Samtools
	if s != "" {
		res = append(res, OptToolSamtools(s))
	}
	s = c.Tools.Bedtools
	if s != "" {
		res = append(res, OptToolBedtools(s))
	}

	s = c.Aligner.Sensitivity
	if s != "" {
		res = append(res, OptAlignerSensitivity(s))
	}
	if c.Aligner.EValue > 0 {
		res = append(res, OptAlignerEValue(c.Aligner.EValue))
	}
	i = c.Aligner.TopPercent
	if i > 0 {
		res = append(res, OptAlignerTopPercent(i))
	}

	s = c.Log.Format
	if s != "" {
		res = append(res, OptLogFormat(s))
	}
	s = c.Log.Level
	if s != "" {
		res = append(res, OptLogLevel(s))
	}
	s = c.Log.Destination
	if s != "" {
		res = append(res, OptLogDestination(s))
	}

	i = c.JobsNumber
	if i > 0 {
		res = append(res, OptJobsNumber(i))
	}
	s = c.TaxonomyDir
	if s != "" {
		res = append(res, OptTaxonomyDir(s))
	}
	return res
}

func isValidString(name, s string) bool {
	res := s != ""
	if !res {
		gn.Warn("<em>%s</em> cannot be empty, ignoring", name)
	}
	return res
}

func isValidInt(name string, i int) bool {
	res := i > 0
	if !res {
		gn.Warn("<em>%s</em> has to be positive number, ignoring %d", name, i)
	}
	return res
}

func isValidFloat(name string, f float64) bool {
	res := f > 0
	if !res {
		gn.Warn("<em>%s</em> has to be positive, ignoring %v", name, f)
	}
	return res
}

func isValidEnum(name, val string) bool {
	s := struct{}{}
	data := map[string]map[string]struct{}{
		"Aligner.Sensitivity": {"default": s, "fast": s, "mid-sensitive": s,
			"sensitive": s, "more-sensitive": s, "very-sensitive": s,
			"ultra-sensitive": s},
		"Log.Level":       {"debug": s, "info": s, "warn": s, "error": s},
		"Log.Format":      {"json": s, "text": s, "tint": s},
		"Log.Destination": {"file": s, "stdin": s, "stdout": s},
	}
	vals := slices.Sorted(maps.Keys(data[name]))
	var lines []string
	for _, v := range vals {
		line := fmt.Sprintf("  * %s", v)
		lines = append(lines, line)
	}
	if _, ok := data[name][val]; ok {
		return true
	}
	gn.Warn(
		"<em>%s</em> does not support '%s' as a value. "+
			"Valid values are: \n%s\nIgnoring...",
		name, val, strings.Join(lines, "\n"),
	)
	return false
}
