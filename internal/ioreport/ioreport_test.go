package ioreport

import (
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gnames/gn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taxsieve/taxsieve/pkg/assign"
	"github.com/taxsieve/taxsieve/pkg/descriptors"
	"github.com/taxsieve/taxsieve/pkg/errcode"
	"github.com/taxsieve/taxsieve/pkg/multivar"
	"github.com/taxsieve/taxsieve/pkg/taxmerge"
)

func testSchema(t *testing.T, vars ...string) descriptors.Schema {
	t.Helper()
	schema, err := descriptors.ParseInputVariables(vars, 0)
	require.NoError(t, err)
	return schema
}

func testContigs() []descriptors.ContigResult {
	return []descriptors.ContigResult{
		{
			ID: "c1",
			Values: descriptors.Values{
				"c_len": 1000, "c_gc_cont": 0.41,
			},
			Genes: []descriptors.GeneResult{
				{
					ID: "g1", ContigID: "c1",
					Values: descriptors.Values{"g_len": 300},
				},
				{
					ID: "g2", ContigID: "c1",
					Values: descriptors.Values{"g_len": math.NaN()},
				},
			},
		},
		{
			ID: "c2",
			Values: descriptors.Values{
				"c_len": 500, "c_gc_cont": math.NaN(),
			},
		},
	}
}

func readTable(t *testing.T, path string, comma rune) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = comma
	rows, err := r.ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriteContigTable(t *testing.T) {
	assert := assert.New(t)
	schema := testSchema(t, "c_name", "c_len", "c_gc_cont", "g_name", "g_len")
	path := filepath.Join(t.TempDir(), "contigs.csv")

	err := WriteContigTable(path, "csv", schema, testContigs(), "NA")
	require.NoError(t, err)

	rows := readTable(t, path, ',')
	require.Len(t, rows, 3)
	assert.Equal([]string{"c_name", "c_len", "c_gc_cont"}, rows[0])
	assert.Equal([]string{"c1", "1000", "0.41"}, rows[1])
	assert.Equal([]string{"c2", "500", "NA"}, rows[2])
}

func TestWriteGeneTable(t *testing.T) {
	assert := assert.New(t)
	schema := testSchema(t, "c_name", "c_len", "c_gc_cont", "g_name", "g_len")
	path := filepath.Join(t.TempDir(), "genes.csv")

	err := WriteGeneTable(path, "csv", schema, testContigs(), "NA")
	require.NoError(t, err)

	rows := readTable(t, path, ',')
	require.Len(t, rows, 3)
	assert.Equal(
		[]string{"c_name", "c_len", "c_gc_cont", "g_name", "g_len"},
		rows[0],
	)
	assert.Equal([]string{"c1", "1000", "0.41", "g1", "300"}, rows[1])
	assert.Equal([]string{"c1", "1000", "0.41", "g2", "NA"}, rows[2])
}

func TestKeyColumnsPrepended(t *testing.T) {
	assert := assert.New(t)
	schema := testSchema(t, "c_len", "g_len")
	dir := t.TempDir()

	contigPath := filepath.Join(dir, "contigs.csv")
	require.NoError(t,
		WriteContigTable(contigPath, "csv", schema, testContigs(), "NA"))
	assert.Equal([]string{"c_name", "c_len"},
		readTable(t, contigPath, ',')[0])

	genePath := filepath.Join(dir, "genes.csv")
	require.NoError(t,
		WriteGeneTable(genePath, "csv", schema, testContigs(), "NA"))
	assert.Equal([]string{"g_name", "c_name", "c_len", "g_len"},
		readTable(t, genePath, ',')[0])
}

func TestWriteTSV(t *testing.T) {
	schema := testSchema(t, "c_name", "c_len")
	path := filepath.Join(t.TempDir(), "contigs.tsv")

	err := WriteContigTable(path, "tsv", schema, testContigs(), "NA")
	require.NoError(t, err)

	bs, err := os.ReadFile(path)
	require.NoError(t, err)
	first := strings.SplitN(string(bs), "\n", 2)[0]
	assert.Equal(t, "c_name\tc_len", first)
}

func TestWriteCallTable(t *testing.T) {
	assert := assert.New(t)
	path := filepath.Join(t.TempDir(), "calls.csv")
	calls := []Call{
		{
			ContigID: "c1", Cluster: "main", TaxonID: 9606,
			TaxonName: "Homo sapiens", Divergence: 0, Group: "Hominidae",
			Scores: []float64{1.5, -0.25},
		},
		{
			ContigID: "c2", Cluster: "group_2", Outlier: true,
			TaxonID: 562, TaxonName: "Escherichia coli",
			Divergence: 4, Group: "Bacteria", Candidate: true,
			Scores: []float64{-3, 0.5},
		},
		{
			ContigID: "c3", Cluster: "noise", Outlier: true,
			TaxonName: taxmerge.Unassigned, Divergence: -1,
			Group: taxmerge.Unassigned,
			Scores: []float64{1.5, -0.25},
		},
	}

	err := WriteCallTable(path, "csv", calls, "NA")
	require.NoError(t, err)

	rows := readTable(t, path, ',')
	require.Len(t, rows, 4)
	assert.Equal([]string{
		"contig", "cluster", "outlier", "taxon_id", "taxon",
		"divergence", "group", "candidate", "pc_1", "pc_2",
	}, rows[0])
	assert.Equal([]string{
		"c1", "main", "FALSE", "9606", "Homo sapiens",
		"0", "Hominidae", "FALSE", "1.5", "-0.25",
	}, rows[1])
	assert.Equal([]string{
		"c2", "group_2", "TRUE", "562", "Escherichia coli",
		"4", "Bacteria", "TRUE", "-3", "0.5",
	}, rows[2])
	assert.Equal([]string{
		"c3", "noise", "TRUE", "NA", "unassigned",
		"NA", "unassigned", "FALSE", "1.5", "-0.25",
	}, rows[3])
}

func TestWriteGroupTable(t *testing.T) {
	assert := assert.New(t)
	path := filepath.Join(t.TempDir(), "groups.csv")
	groups := []taxmerge.Group{
		{TaxonID: 9604, Label: "Hominidae", Count: 12},
		{TaxonID: 2, Label: "Bacteria", Count: 3},
		{Label: taxmerge.Unassigned, Count: 1},
	}

	err := WriteGroupTable(path, "csv", groups, "NA")
	require.NoError(t, err)

	rows := readTable(t, path, ',')
	require.Len(t, rows, 4)
	assert.Equal([]string{"group", "taxon_id", "contigs"}, rows[0])
	assert.Equal([]string{"Hominidae", "9604", "12"}, rows[1])
	assert.Equal([]string{"unassigned", "NA", "1"}, rows[3])
}

func TestWriteSummary(t *testing.T) {
	assert := assert.New(t)
	path := filepath.Join(t.TempDir(), "summary.txt")
	s := Summary{
		Contigs:    3,
		Genes:      120,
		Assigned:   100,
		Outliers:   1,
		Candidates: 1,
		Groups:     2,
		Method:     "dbscan",
		Components: 3,
		Elapsed:    "12 sec",
	}

	err := WriteSummary(path, s)
	require.NoError(t, err)

	bs, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(bs)
	assert.Contains(out, "contigs:")
	assert.Contains(out, "120")
	assert.Contains(out, "contamination candidates:")
	assert.Contains(out, "dbscan")
	assert.Contains(out, "12 sec")
}

func TestSnapshotRoundTrip(t *testing.T) {
	assert := assert.New(t)
	path := filepath.Join(t.TempDir(), "screen.gob")

	snap := &Snapshot{
		Fingerprint: "abc-123",
		Schema:      testSchema(t, "c_name", "c_len", "c_gc_cont"),
		Contigs:     testContigs(),
		Assignments: map[string]assign.Assignment{
			"g1": {QueryID: "g1", TaxonID: 9606, Name: "Homo sapiens",
				Rank: "species", Hits: 4, Used: 3, BestScore: 250},
		},
		Taxa: []Taxon{
			{ContigID: "c1", TaxonID: 9606, Name: "Homo sapiens"},
			{ContigID: "c2", Divergence: -1},
		},
		Analysis: &multivar.Result{
			Columns:    []string{"c_len", "c_gc_cont"},
			Components: 1,
			Explained:  []float64{0.97},
			Scores:     [][]float64{{1.2}, {-1.2}},
			Clusters:   []int{0, -1},
			Labels:     []string{"main", "noise"},
			Outlier:    []bool{false, true},
		},
	}

	require.NoError(t, SaveSnapshot(path, snap))

	got, err := LoadSnapshot(path, "abc-123")
	require.NoError(t, err)
	assert.Equal("abc-123", got.Fingerprint)
	assert.Equal(snap.Schema.Names(), got.Schema.Names())
	require.Len(t, got.Contigs, 2)
	assert.Equal("c1", got.Contigs[0].ID)
	assert.True(math.IsNaN(got.Contigs[1].Values["c_gc_cont"]))
	assert.Equal(9606, got.Assignments["g1"].TaxonID)
	assert.Equal(-1, got.Taxa[1].Divergence)
	require.NotNil(t, got.Analysis)
	assert.Equal([]string{"main", "noise"}, got.Analysis.Labels)

	// Drifted fingerprint only warns.
	got, err = LoadSnapshot(path, "other-fingerprint")
	require.NoError(t, err)
	assert.Equal("abc-123", got.Fingerprint)
}

func TestLoadSnapshotMissing(t *testing.T) {
	_, err := LoadSnapshot(filepath.Join(t.TempDir(), "absent.gob"), "")
	require.Error(t, err)
	gnErr, ok := err.(*gn.Error)
	require.True(t, ok)
	assert.Equal(t, errcode.ScreenSnapshotError, gnErr.Code)
}

func TestWriteTableError(t *testing.T) {
	schema := testSchema(t, "c_name", "c_len")
	path := filepath.Join(t.TempDir(), "no-such-dir", "contigs.csv")

	err := WriteContigTable(path, "csv", schema, testContigs(), "NA")
	require.Error(t, err)
	gnErr, ok := err.(*gn.Error)
	require.True(t, ok)
	assert.Equal(t, errcode.ScreenReportError, gnErr.Code)
	assert.Equal(t, []string{path}, gnErr.Vars)
}

func TestPaths(t *testing.T) {
	assert := assert.New(t)
	p := NewPaths("/tmp/out", "tsv")
	assert.Equal("/tmp/out/contig_descriptors.tsv", p.ContigTable())
	assert.Equal("/tmp/out/gene_descriptors.tsv", p.GeneTable())
	assert.Equal("/tmp/out/contig_calls.tsv", p.CallTable())
	assert.Equal("/tmp/out/taxon_groups.tsv", p.GroupTable())
	assert.Equal("/tmp/out/summary.txt", p.SummaryFile())
	assert.Equal("/tmp/out/screen.gob", p.SnapshotFile())
}
