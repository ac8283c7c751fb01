// Package iocoverage turns each configured coverage set into per-base
// coverage summaries for contigs and genes.
//
// A set resolves to a per-base coverage table by the cheapest route
// available: an existing table is read as is, a sorted read alignment
// goes through bedtools genomecov, and raw reads are first mapped with
// bowtie2 and samtools. Summaries are accumulated in one streaming
// pass, so whole-genome tables never sit in memory.
package iocoverage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/taxsieve/taxsieve/internal/iogff"
	"github.com/taxsieve/taxsieve/internal/iotools"
	"github.com/taxsieve/taxsieve/pkg/config"
	"github.com/taxsieve/taxsieve/pkg/descriptors"
	"github.com/taxsieve/taxsieve/pkg/screen"
)

// insertSpread widens a configured insert size into the -I/-X bounds
// passed to bowtie2.
const insertSpread = 200

// Profile holds one coverage set's summaries keyed by contig and gene
// id. Records from contigs absent in the table are simply missing, a
// lookup then yields an undefined Summary.
type Profile struct {
	Contigs map[string]descriptors.Summary
	Genes   map[string]descriptors.Summary
}

// Collect resolves and reads every coverage set, in configuration
// order. Intermediate alignments and tables land in workDir.
func Collect(
	ctx context.Context,
	cfg config.Config,
	sets []screen.CoverageSet,
	fastaPath, workDir string,
	genes []iogff.Gene,
) ([]Profile, error) {
	profs := make([]Profile, len(sets))
	for i, set := range sets {
		slog.Info("Preparing coverage set",
			"set", set.Index,
			"source", set.Source().String(),
		)
		pbc, err := EnsurePBC(ctx, cfg, set, fastaPath, workDir)
		if err != nil {
			return nil, err
		}
		profs[i], err = ReadPBC(ctx, pbc, genes)
		if err != nil {
			return nil, err
		}
	}
	return profs, nil
}

// EnsurePBC returns the path of the set's per-base coverage table,
// deriving it from an alignment or raw reads when needed.
func EnsurePBC(
	ctx context.Context,
	cfg config.Config,
	set screen.CoverageSet,
	fastaPath, workDir string,
) (string, error) {
	switch set.Source() {
	case screen.SourcePBC:
		if _, err := os.Stat(set.PBCPath); err != nil {
			return "", MissingFileError(set.PBCPath, err)
		}
		return set.PBCPath, nil
	case screen.SourceBAM:
		return genomecov(ctx, cfg, set.BAMPath, set.Index, workDir)
	case screen.SourceReads:
		bam, err := mapReads(ctx, cfg, set, fastaPath, workDir)
		if err != nil {
			return "", err
		}
		return genomecov(ctx, cfg, bam, set.Index, workDir)
	}
	return "", NoSourceError(set.Index)
}

// genomecov streams `bedtools genomecov -ibam -d` output into the
// set's per-base coverage table.
func genomecov(
	ctx context.Context,
	cfg config.Config,
	bamPath string,
	setIdx int,
	workDir string,
) (string, error) {
	bedtools, err := iotools.Find(cfg.Tools.Bedtools)
	if err != nil {
		return "", err
	}

	pbc := filepath.Join(workDir, fmt.Sprintf("coverage_%d.pbc", setIdx))
	f, err := os.Create(pbc)
	if err != nil {
		return "", WriteError(pbc, err)
	}
	defer f.Close()

	slog.Info("Deriving per-base coverage",
		"set", setIdx,
		"bam", filepath.Base(bamPath),
	)
	cmd := exec.CommandContext(ctx, bedtools, "genomecov", "-ibam", bamPath, "-d")
	cmd.Stdout = f
	if err = iotools.Run(cmd); err != nil {
		return "", err
	}
	return pbc, nil
}

// mapReads aligns a read set against the assembly and leaves a sorted
// BAM in workDir.
func mapReads(
	ctx context.Context,
	cfg config.Config,
	set screen.CoverageSet,
	fastaPath, workDir string,
) (string, error) {
	bowtie2, err := iotools.Find(cfg.Tools.Bowtie2)
	if err != nil {
		return "", err
	}
	samtools, err := iotools.Find(cfg.Tools.Samtools)
	if err != nil {
		return "", err
	}
	idx, err := buildIndex(ctx, cfg, fastaPath, workDir)
	if err != nil {
		return "", err
	}

	jobs := strconv.Itoa(cfg.JobsNumber)
	args := []string{"--sensitive", "-a", "-p", jobs, "-x", idx}
	if len(set.ReadPaths) == 2 {
		if set.InsertSize > 0 {
			lo := set.InsertSize - insertSpread
			if lo < 0 {
				lo = 0
			}
			args = append(args,
				"-I", strconv.Itoa(lo),
				"-X", strconv.Itoa(set.InsertSize+insertSpread),
			)
		}
		args = append(args, "-1", set.ReadPaths[0], "-2", set.ReadPaths[1])
	} else {
		args = append(args, "-U", set.ReadPaths[0])
	}

	bam := filepath.Join(workDir, fmt.Sprintf("coverage_%d.bam", set.Index))
	slog.Info("Mapping reads",
		"set", set.Index,
		"files", len(set.ReadPaths),
	)
	align := exec.CommandContext(ctx, bowtie2, args...)
	sort := exec.CommandContext(ctx, samtools,
		"sort", "-@", jobs, "-O", "bam", "-o", bam, "-",
	)
	if err = iotools.Pipeline(align, sort); err != nil {
		return "", err
	}
	return bam, nil
}

// buildIndex creates the bowtie2 index once per work directory, read
// based sets after the first reuse it.
func buildIndex(
	ctx context.Context,
	cfg config.Config,
	fastaPath, workDir string,
) (string, error) {
	prefix := filepath.Join(workDir, "assembly_index")
	if _, err := os.Stat(prefix + ".1.bt2"); err == nil {
		slog.Debug("Reusing assembly index", "prefix", prefix)
		return prefix, nil
	}

	build, err := iotools.Find(cfg.Tools.Bowtie2Build)
	if err != nil {
		return "", err
	}
	slog.Info("Indexing assembly for read mapping")
	cmd := exec.CommandContext(ctx, build,
		"--threads", strconv.Itoa(cfg.JobsNumber), fastaPath, prefix,
	)
	if err = iotools.Run(cmd); err != nil {
		return "", err
	}
	return prefix, nil
}
