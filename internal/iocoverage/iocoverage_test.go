package iocoverage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/gnames/gn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taxsieve/taxsieve/internal/iogff"
	"github.com/taxsieve/taxsieve/pkg/config"
	"github.com/taxsieve/taxsieve/pkg/errcode"
	"github.com/taxsieve/taxsieve/pkg/screen"
)

// writeScript drops an executable stand-in for an external tool.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755))
	return path
}

const fakeBedtoolsBody = `printf 'c1\t1\t2\nc1\t2\t4\n'
`

const fakeSamtoolsBody = `out=""
prev=""
for a in "$@"; do
  if [ "$prev" = "-o" ]; then out="$a"; fi
  prev="$a"
done
cat - > "$out"
`

const fakeBowtie2Body = `printf 'fake-sam\n'
`

const fakeBowtie2BuildBody = `echo run >> "$0.count"
for a in "$@"; do last="$a"; done
: > "$last.1.bt2"
`

func TestEnsurePBCExisting(t *testing.T) {
	dir := t.TempDir()
	pbc := filepath.Join(dir, "given.pbc")
	require.NoError(t, os.WriteFile(pbc, []byte("c1\t1\t1\n"), 0644))

	set := screen.CoverageSet{Index: 1, PBCPath: pbc}
	got, err := EnsurePBC(context.Background(), config.New(), set, "", dir)
	require.NoError(t, err)
	assert.Equal(t, pbc, got)
}

func TestEnsurePBCMissingInput(t *testing.T) {
	dir := t.TempDir()
	set := screen.CoverageSet{
		Index:   1,
		PBCPath: filepath.Join(dir, "nope.pbc"),
	}

	_, err := EnsurePBC(context.Background(), config.New(), set, "", dir)
	require.Error(t, err)
	gnErr, ok := err.(*gn.Error)
	require.True(t, ok)
	assert.Equal(t, errcode.CoverageReadError, gnErr.Code)
}

func TestEnsurePBCFromBAM(t *testing.T) {
	dir := t.TempDir()
	bam := filepath.Join(dir, "aln.bam")
	require.NoError(t, os.WriteFile(bam, []byte("bam"), 0644))

	cfg := config.New()
	cfg.Tools.Bedtools = writeScript(t, dir, "bedtools", fakeBedtoolsBody)

	set := screen.CoverageSet{Index: 1, BAMPath: bam}
	pbc, err := EnsurePBC(context.Background(), cfg, set, "", dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "coverage_1.pbc"), pbc)

	bs, err := os.ReadFile(pbc)
	require.NoError(t, err)
	assert.Equal(t, "c1\t1\t2\nc1\t2\t4\n", string(bs))
}

func TestEnsurePBCFromReads(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()

	cfg := config.New()
	cfg.Tools.Bedtools = writeScript(t, dir, "bedtools", fakeBedtoolsBody)
	cfg.Tools.Bowtie2 = writeScript(t, dir, "bowtie2", fakeBowtie2Body)
	cfg.Tools.Bowtie2Build = writeScript(
		t, dir, "bowtie2-build", fakeBowtie2BuildBody,
	)
	cfg.Tools.Samtools = writeScript(t, dir, "samtools", fakeSamtoolsBody)

	set := screen.CoverageSet{
		Index:      1,
		ReadPaths:  []string{"r_1.fq", "r_2.fq"},
		InsertSize: 300,
	}
	pbc, err := EnsurePBC(
		context.Background(), cfg, set, "assembly.fasta", dir,
	)
	require.NoError(t, err)

	// the mapped and sorted alignment went through the fake samtools
	bs, err := os.ReadFile(filepath.Join(dir, "coverage_1.bam"))
	require.NoError(t, err)
	assert.Equal("fake-sam\n", string(bs))

	bs, err = os.ReadFile(pbc)
	require.NoError(t, err)
	assert.Equal("c1\t1\t2\nc1\t2\t4\n", string(bs))

	// a second read-based set reuses the assembly index
	set2 := screen.CoverageSet{Index: 2, ReadPaths: []string{"r.fq"}}
	_, err = EnsurePBC(
		context.Background(), cfg, set2, "assembly.fasta", dir,
	)
	require.NoError(t, err)

	count, err := os.ReadFile(cfg.Tools.Bowtie2Build + ".count")
	require.NoError(t, err)
	assert.Equal("run\n", string(count))
}

func TestEnsurePBCMissingTool(t *testing.T) {
	dir := t.TempDir()
	bam := filepath.Join(dir, "aln.bam")
	require.NoError(t, os.WriteFile(bam, []byte("bam"), 0644))

	cfg := config.New()
	cfg.Tools.Bedtools = "no-such-bedtools-anywhere"

	set := screen.CoverageSet{Index: 1, BAMPath: bam}
	_, err := EnsurePBC(context.Background(), cfg, set, "", dir)
	require.Error(t, err)
	gnErr, ok := err.(*gn.Error)
	require.True(t, ok)
	assert.Equal(t, errcode.ToolNotFoundError, gnErr.Code)
}

func TestCollect(t *testing.T) {
	dir := t.TempDir()
	bam := filepath.Join(dir, "aln.bam")
	require.NoError(t, os.WriteFile(bam, []byte("bam"), 0644))

	cfg := config.New()
	cfg.Tools.Bedtools = writeScript(t, dir, "bedtools", fakeBedtoolsBody)

	genes := []iogff.Gene{{ID: "g1", ContigID: "c1", Start: 1, End: 2}}

	profs, err := Collect(
		context.Background(),
		cfg,
		[]screen.CoverageSet{{Index: 1, BAMPath: bam}},
		"", dir,
		genes,
	)
	require.NoError(t, err)
	require.Len(t, profs, 1)

	c1 := profs[0].Contigs["c1"]
	assert.Equal(t, int64(2), c1.N)
	assert.InDelta(t, 3.0, c1.Mean, 1e-12)
	g1 := profs[0].Genes["g1"]
	assert.Equal(t, int64(2), g1.N)
}
