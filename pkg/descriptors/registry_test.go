package descriptors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInputVariablesExpansion(t *testing.T) {
	tests := []struct {
		name    string
		vars    []string
		numSets int
		want    []string
	}{
		{
			"plain contig descriptors keep order",
			[]string{"c_len", "c_num_of_genes", "c_gc_cont"},
			1,
			[]string{"c_len", "c_num_of_genes", "c_gc_cont"},
		},
		{
			"per-set descriptors expand in place",
			[]string{"c_name", "c_cov", "c_pearson_r_o"},
			2,
			[]string{"c_name", "c_cov_1", "c_cov_2", "c_pearson_r_o"},
		},
		{
			"gene descriptors with three sets",
			[]string{"g_name", "g_covdev_c", "g_len"},
			3,
			[]string{"g_name", "g_covdev_c_1", "g_covdev_c_2", "g_covdev_c_3", "g_len"},
		},
		{
			"explicit set suffix",
			[]string{"g_cov_2", "g_cov_1"},
			2,
			[]string{"g_cov_2", "g_cov_1"},
		},
		{
			"reversed order is preserved",
			[]string{"c_gcdev", "c_covsd", "c_len"},
			1,
			[]string{"c_gcdev", "c_covsd_1", "c_len"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := ParseInputVariables(tt.vars, tt.numSets)
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Names())
		})
	}
}

func TestParseInputVariablesErrors(t *testing.T) {
	tests := []struct {
		name    string
		vars    []string
		numSets int
	}{
		{"unknown name", []string{"c_len", "c_bogus"}, 1},
		{"empty selection", nil, 1},
		{"duplicate base", []string{"c_len", "c_len"}, 1},
		{"duplicate via suffix", []string{"c_cov", "c_cov_1"}, 1},
		{"suffix beyond configured sets", []string{"g_cov_3"}, 2},
		{"coverage descriptor without sets", []string{"c_cov"}, 0},
		{"suffix on non-set descriptor", []string{"c_len_1"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseInputVariables(tt.vars, tt.numSets)
			assert.Error(t, err)
		})
	}
}

func TestSchemaQueries(t *testing.T) {
	s, err := ParseInputVariables([]string{"c_name", "c_len", "g_cov"}, 2)
	require.NoError(t, err)

	assert.True(t, s.HasScope(ScopeContig))
	assert.True(t, s.HasScope(ScopeGene))
	assert.True(t, s.NeedsCoverage())

	cols := s.MatrixColumns()
	require.Len(t, cols, 3, "key column stays out of the matrix")
	assert.Equal(t, "c_len", cols[0].Name)
	assert.Equal(t, 2, cols[2].Set)

	dry, err := ParseInputVariables([]string{"c_len", "c_gc_cont"}, 0)
	require.NoError(t, err)
	assert.False(t, dry.NeedsCoverage())
	assert.False(t, dry.HasScope(ScopeGene))
}

func TestRegistryNamesAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, d := range Registry() {
		assert.False(t, seen[d.Name], "duplicate registry name %q", d.Name)
		seen[d.Name] = true
	}
}
