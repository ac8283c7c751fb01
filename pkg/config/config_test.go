package config_test

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taxsieve/taxsieve/pkg/config"
)

func TestDirs(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that uses file system in short mode")
	}

	tempHome := t.TempDir()

	tests := []struct {
		msg string
		fn  func(string) string
		res string
	}{
		{
			msg: "config dir",
			fn:  config.ConfigDir,
			res: filepath.Join(tempHome, ".config", "taxsieve"),
		},
		{
			msg: "cache dir",
			fn:  config.CacheDir,
			res: filepath.Join(tempHome, ".cache", "taxsieve"),
		},
		{
			msg: "log dir",
			fn:  config.LogDir,
			res: filepath.Join(tempHome, ".local", "share", "taxsieve", "logs"),
		},
		{
			msg: "taxonomy cache dir",
			fn:  config.TaxonomyCacheDir,
			res: filepath.Join(tempHome, ".cache", "taxsieve", "taxonomy"),
		},
	}

	for _, v := range tests {
		res := v.fn(tempHome)
		assert.Equal(t, v.res, res, v.msg)
	}
}

func TestNew(t *testing.T) {
	cfg := config.New()

	t.Run("creates valid default config", func(t *testing.T) {
		require.NotNil(t, cfg)

		// Tool defaults resolve via PATH
		assert.Equal(t, "diamond", cfg.Tools.Diamond)
		assert.Equal(t, "bowtie2", cfg.Tools.Bowtie2)
		assert.Equal(t, "bowtie2-build", cfg.Tools.Bowtie2Build)
		assert.Equal(t, "samtools", cfg.Tools.Samtools)
		assert.Equal(t, "bedtools", cfg.Tools.Bedtools)

		// Aligner defaults
		assert.Equal(t, "sensitive", cfg.Aligner.Sensitivity)
		assert.InDelta(t, 1e-5, cfg.Aligner.EValue, 1e-12)
		assert.Equal(t, 10, cfg.Aligner.TopPercent)

		// Log defaults
		assert.Equal(t, "json", cfg.Log.Format)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.Equal(t, "file", cfg.Log.Destination)

		// JobsNumber defaults to CPU count
		assert.Equal(t, runtime.NumCPU(), cfg.JobsNumber)

		// TaxonomyDir is resolved lazily by the CLI
		assert.Empty(t, cfg.TaxonomyDir)
	})
}

func TestOptionToolDiamond(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "sets valid path",
			input:    "/opt/diamond/diamond",
			expected: "/opt/diamond/diamond",
		},
		{
			name:     "trims whitespace",
			input:    "  /opt/diamond/diamond  ",
			expected: "/opt/diamond/diamond",
		},
		{
			name:     "ignores empty string",
			input:    "",
			expected: "diamond", // Should keep default
		},
		{
			name:     "ignores whitespace-only",
			input:    "   ",
			expected: "diamond", // Should keep default
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New()
			opt := config.OptToolDiamond(tt.input)
			cfg.Update([]config.Option{opt})
			assert.Equal(t, tt.expected, cfg.Tools.Diamond)
		})
	}
}

func TestOptionAlignerSensitivity(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "sets valid mode",
			input:    "very-sensitive",
			expected: "very-sensitive",
		},
		{
			name:     "lowercases input",
			input:    "ULTRA-SENSITIVE",
			expected: "ultra-sensitive",
		},
		{
			name:     "ignores unknown mode",
			input:    "turbo",
			expected: "sensitive", // Should keep default
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New()
			opt := config.OptAlignerSensitivity(tt.input)
			cfg.Update([]config.Option{opt})
			assert.Equal(t, tt.expected, cfg.Aligner.Sensitivity)
		})
	}
}

func TestOptionAlignerEValue(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected float64
	}{
		{
			name:     "sets valid cutoff",
			input:    1e-25,
			expected: 1e-25,
		},
		{
			name:     "ignores zero",
			input:    0,
			expected: 1e-5, // Should keep default
		},
		{
			name:     "ignores negative",
			input:    -1,
			expected: 1e-5, // Should keep default
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New()
			opt := config.OptAlignerEValue(tt.input)
			cfg.Update([]config.Option{opt})
			assert.InDelta(t, tt.expected, cfg.Aligner.EValue, 1e-30)
		})
	}
}

func TestOptionAlignerTopPercent(t *testing.T) {
	tests := []struct {
		name     string
		input    int
		expected int
	}{
		{
			name:     "sets valid percentage",
			input:    25,
			expected: 25,
		},
		{
			name:     "ignores zero",
			input:    0,
			expected: 10, // Should keep default
		},
		{
			name:     "ignores over 100",
			input:    150,
			expected: 10, // Should keep default
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New()
			opt := config.OptAlignerTopPercent(tt.input)
			cfg.Update([]config.Option{opt})
			assert.Equal(t, tt.expected, cfg.Aligner.TopPercent)
		})
	}
}

func TestOptionLogLevel(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "sets valid level",
			input:    "debug",
			expected: "debug",
		},
		{
			name:     "lowercases input",
			input:    "WARN",
			expected: "warn",
		},
		{
			name:     "ignores unknown level",
			input:    "verbose",
			expected: "info", // Should keep default
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New()
			opt := config.OptLogLevel(tt.input)
			cfg.Update([]config.Option{opt})
			assert.Equal(t, tt.expected, cfg.Log.Level)
		})
	}
}

func TestOptionJobsNumber(t *testing.T) {
	tests := []struct {
		name     string
		input    int
		expected int
	}{
		{
			name:     "sets valid count",
			input:    4,
			expected: 4,
		},
		{
			name:     "ignores zero",
			input:    0,
			expected: runtime.NumCPU(), // Should keep default
		},
		{
			name:     "ignores negative",
			input:    -2,
			expected: runtime.NumCPU(), // Should keep default
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New()
			opt := config.OptJobsNumber(tt.input)
			cfg.Update([]config.Option{opt})
			assert.Equal(t, tt.expected, cfg.JobsNumber)
		})
	}
}

func TestToOptionsRoundTrip(t *testing.T) {
	cfg := config.New()
	cfg.Update([]config.Option{
		config.OptToolDiamond("/opt/diamond"),
		config.OptAlignerSensitivity("fast"),
		config.OptAlignerEValue(1e-10),
		config.OptLogLevel("debug"),
		config.OptJobsNumber(3),
		config.OptTaxonomyDir("/data/taxonomy"),
	})

	fresh := config.New()
	fresh.Update(cfg.ToOptions())

	assert.Equal(t, cfg.Tools, fresh.Tools)
	assert.Equal(t, cfg.Aligner, fresh.Aligner)
	assert.Equal(t, cfg.Log, fresh.Log)
	assert.Equal(t, cfg.JobsNumber, fresh.JobsNumber)
	assert.Equal(t, cfg.TaxonomyDir, fresh.TaxonomyDir)
}

func TestHomeDirIsRuntimeOnly(t *testing.T) {
	cfg := config.New()
	cfg.Update([]config.Option{config.OptHomeDir("/home/someone")})
	assert.Equal(t, "/home/someone", cfg.HomeDir)

	fresh := config.New()
	fresh.Update(cfg.ToOptions())
	assert.Empty(t, fresh.HomeDir)
}
