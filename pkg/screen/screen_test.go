package screen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/taxsieve/taxsieve/pkg/assign"
)

const fullDoc = `
fasta_path: /data/assembly.fasta
gff_path: /data/genes.gff3
output_path: /data/out
taxon_id: 7227
database_path: /db/proteins.dmnd
assignment_mode: exhaustive
taxon_exclude: TRUE
input_variables: c_name,c_cov,g_cov,c_gc_cont
num_groups_plot: 12
merging_labels:
  - Fungi
  - Bacteria
pbc_path_1: /cov/one.pbc
bam_path_2: /cov/two.bam
read_paths_3: /reads/r1.fq, /reads/r2.fq
insert_size_3: 200
`

func parseDoc(t *testing.T, doc string) *Config {
	t.Helper()
	var cfg Config
	require.NoError(t, yaml.Unmarshal([]byte(doc), &cfg))
	return &cfg
}

func TestUnmarshalFullDocument(t *testing.T) {
	cfg := parseDoc(t, fullDoc)

	assert.Equal(t, "/data/assembly.fasta", cfg.FastaPath)
	assert.Equal(t, 7227, cfg.TaxonID)
	assert.Equal(t, "exhaustive", cfg.AssignmentMode)
	assert.True(t, cfg.TaxonExcluded())
	assert.Equal(t, []string{"Fungi", "Bacteria"}, cfg.MergingLabels)

	require.Len(t, cfg.Coverage, 3)
	assert.Equal(t, SourcePBC, cfg.Coverage[0].Source())
	assert.Equal(t, "/cov/one.pbc", cfg.Coverage[0].PBCPath)
	assert.Equal(t, SourceBAM, cfg.Coverage[1].Source())
	assert.Equal(t, SourceReads, cfg.Coverage[2].Source())
	assert.Equal(t, []string{"/reads/r1.fq", "/reads/r2.fq"}, cfg.Coverage[2].ReadPaths)
	assert.Equal(t, 200, cfg.Coverage[2].InsertSize)

	require.NoError(t, cfg.Validate())
}

func TestReadPathsAsSequence(t *testing.T) {
	cfg := parseDoc(t, `
fasta_path: a.fasta
gff_path: a.gff
output_path: out
taxon_id: 9606
database_path: db.dmnd
read_paths_1:
  - /reads/fwd.fq
  - /reads/rev.fq
`)
	require.Len(t, cfg.Coverage, 1)
	assert.Equal(t, []string{"/reads/fwd.fq", "/reads/rev.fq"}, cfg.Coverage[0].ReadPaths)
	require.NoError(t, cfg.Validate())
}

func TestValidateMissingKeys(t *testing.T) {
	cfg := parseDoc(t, `
fasta_path: a.fasta
taxon_id: 0
`)
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gff_path")
	assert.Contains(t, err.Error(), "taxon_id")
	assert.Contains(t, err.Error(), "database_path")
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := `
fasta_path: a.fasta
gff_path: a.gff
output_path: out
taxon_id: 9606
database_path: db.dmnd
`
	tests := []struct {
		name string
		add  string
	}{
		{"bad mode", "assignment_mode: fast\n"},
		{"bad method", "cluster_method: kmeans\n"},
		{"bad phase policy", "use_phase: maybe\n"},
		{"bad format", "output_format: xlsx\n"},
		{"bad group count", "num_groups_plot: none\n"},
		{"zero group count", "num_groups_plot: 0\n"},
		{"quorum above one", "quorum_fraction: 1.5\n"},
		{"empty coverage set", "insert_size_1: 150\n"},
		{"too many read files", "read_paths_1: a.fq,b.fq,c.fq\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := parseDoc(t, base+tt.add)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestCoverageIndexesMustBeContiguous(t *testing.T) {
	var cfg Config
	err := yaml.Unmarshal([]byte(`
fasta_path: a.fasta
pbc_path_1: one.pbc
pbc_path_3: three.pbc
`), &cfg)
	assert.Error(t, err)
}

func TestDefaults(t *testing.T) {
	cfg := parseDoc(t, `
fasta_path: a.fasta
gff_path: a.gff
output_path: out
taxon_id: 9606
database_path: db.dmnd
`)

	assert.True(t, cfg.TaxonExcluded())
	assert.True(t, cfg.ShouldExtractProteins())
	assert.Equal(t, PhaseAuto, cfg.Phase())
	assert.Equal(t, "csv", cfg.Format())
	assert.Equal(t, "NA", cfg.SentinelString())
	assert.Equal(t, DefaultMaxDivergence, cfg.MaxDivergence())

	// Without coverage sets the default schema drops coverage
	// descriptors instead of failing later in the pipeline.
	assert.Equal(t, CoverageFreeInputVariables(), cfg.Variables())

	target, all, err := cfg.GroupTarget()
	require.NoError(t, err)
	assert.False(t, all)
	assert.Equal(t, DefaultGroupTarget, target)
}

func TestDefaultVariablesWithCoverage(t *testing.T) {
	cfg := parseDoc(t, `
fasta_path: a.fasta
gff_path: a.gff
output_path: out
taxon_id: 9606
database_path: db.dmnd
pbc_path_1: one.pbc
`)

	assert.Equal(t, DefaultInputVariables(), cfg.Variables())
}

func TestExplicitSwitches(t *testing.T) {
	cfg := parseDoc(t, `
fasta_path: a.fasta
gff_path: a.gff
output_path: out
taxon_id: 9606
database_path: db.dmnd
taxon_exclude: FALSE
extract_proteins: FALSE
proteins_path: prots.faa
use_phase: never
num_groups_plot: all
max_taxon_divergence: 0
input_variables: " c_len , c_cov_1 "
pbc_path_1: one.pbc
`)

	assert.False(t, cfg.TaxonExcluded())
	assert.False(t, cfg.ShouldExtractProteins())
	assert.Equal(t, PhaseNever, cfg.Phase())
	assert.Equal(t, 0, cfg.MaxDivergence())
	assert.Equal(t, []string{"c_len", "c_cov_1"}, cfg.Variables())

	_, all, err := cfg.GroupTarget()
	require.NoError(t, err)
	assert.True(t, all)
}

func TestParsePhaseMode(t *testing.T) {
	assert := assert.New(t)
	tests := []struct {
		in   string
		want PhaseMode
	}{
		{"", PhaseAuto},
		{"auto", PhaseAuto},
		{"Always", PhaseAlways},
		{" never ", PhaseNever},
	}
	for _, v := range tests {
		got, err := ParsePhaseMode(v.in)
		require.NoError(t, err, v.in)
		assert.Equal(v.want, got, v.in)
	}

	_, err := ParsePhaseMode("maybe")
	assert.ErrorContains(err, "use_phase")
}

func TestProteinsPathSkipsExtraction(t *testing.T) {
	cfg := parseDoc(t, `
fasta_path: a.fasta
gff_path: a.gff
output_path: out
taxon_id: 9606
database_path: db.dmnd
proteins_path: prots.faa
`)
	assert.False(t, cfg.ShouldExtractProteins())
}

func TestAssignOptionsWiring(t *testing.T) {
	cfg := parseDoc(t, `
fasta_path: a.fasta
gff_path: a.gff
output_path: out
taxon_id: 7227
database_path: db.dmnd
assignment_mode: quick
quorum_fraction: 0.8
`)

	opt := cfg.AssignOptions()
	assert.Equal(t, assign.ModeQuick, opt.Mode)
	assert.Equal(t, 7227, opt.ExcludeTaxon)
	assert.InDelta(t, 0.8, opt.Quorum, 1e-12)

	f := false
	cfg.TaxonExclude = &f
	assert.Equal(t, 0, cfg.AssignOptions().ExcludeTaxon)
}

func TestFingerprint(t *testing.T) {
	a := parseDoc(t, fullDoc)
	b := parseDoc(t, fullDoc)
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	b.TaxonID = 9606
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}
