// Package ioaligner drives diamond blastp and parses its tabular hit
// output.
//
// Queries are the extracted gene proteins, the reference is a diamond
// database built with taxon ids. A precomputed hit table can stand in
// for the diamond run, which keeps repeated screens of one assembly
// cheap.
package ioaligner

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/cheggaaa/pb/v3"
	"github.com/dustin/go-humanize"

	"github.com/taxsieve/taxsieve/internal/iotools"
	"github.com/taxsieve/taxsieve/pkg/assign"
	"github.com/taxsieve/taxsieve/pkg/config"
)

// outColumns is the diamond output format shared by the runner and the
// parser. The taxon column comes last because diamond renders it as a
// semicolon list for merged reference entries.
var outColumns = []string{
	"qseqid", "sseqid", "pident", "bitscore", "evalue", "staxids",
}

// Ensure returns the path of the alignment hit table, running diamond
// when no precomputed table is configured.
func Ensure(
	ctx context.Context,
	cfg config.Config,
	hitTablePath, proteinsPath, dbPath, workDir string,
) (string, error) {
	if hitTablePath != "" {
		if _, err := os.Stat(hitTablePath); err != nil {
			return "", MissingTableError(hitTablePath, err)
		}
		slog.Info("Using precomputed hit table", "path", hitTablePath)
		return hitTablePath, nil
	}

	out := filepath.Join(workDir, "hits.tsv")
	if err := RunDiamond(ctx, cfg, proteinsPath, dbPath, out); err != nil {
		return "", err
	}
	return out, nil
}

// RunDiamond aligns the protein queries against the reference database
// and writes the tabular hit output to outPath.
func RunDiamond(
	ctx context.Context,
	cfg config.Config,
	proteinsPath, dbPath, outPath string,
) error {
	diamond, err := iotools.Find(cfg.Tools.Diamond)
	if err != nil {
		return err
	}

	args := []string{
		"blastp",
		"-q", proteinsPath,
		"-d", dbPath,
		"-o", outPath,
		"--threads", strconv.Itoa(cfg.JobsNumber),
		"-e", fmt.Sprintf("%g", cfg.Aligner.EValue),
		"--top", strconv.Itoa(cfg.Aligner.TopPercent),
	}
	if flag := sensitivityFlag(cfg.Aligner.Sensitivity); flag != "" {
		args = append(args, flag)
	}
	args = append(args, "--outfmt", "6")
	args = append(args, outColumns...)

	slog.Info("Aligning proteins against the reference database",
		"db", filepath.Base(dbPath),
		"sensitivity", cfg.Aligner.Sensitivity,
	)
	return iotools.Run(exec.CommandContext(ctx, diamond, args...))
}

// sensitivityFlag maps a configured sensitivity name to the diamond
// flag, "default" meaning no flag at all.
func sensitivityFlag(s string) string {
	switch s {
	case "", "default":
		return ""
	}
	return "--" + s
}

// ReadHits parses a diamond tabular hit file into per-query hit lists,
// each sorted by descending bitscore. Multi-valued taxon columns keep
// their first id, absent taxa parse to zero and are counted as unknown
// during resolution.
func ReadHits(
	ctx context.Context,
	path string,
) (map[string][]assign.Hit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ReadError(path, err)
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return nil, ReadError(path, err)
	}

	bar := pb.Full.Start64(st.Size())
	bar.Set(pb.Bytes, true)
	bar.Set("prefix", "Reading hits: ")
	bar.Set(pb.CleanOnFinish, true)
	defer bar.Finish()

	sc := bufio.NewScanner(bar.NewProxyReader(f))
	sc.Buffer(make([]byte, 0, 256*1024), 1024*1024)

	hits := make(map[string][]assign.Hit)
	var n int
	for sc.Scan() {
		n++
		if n%100_000 == 0 {
			if err = ctx.Err(); err != nil {
				return nil, err
			}
		}
		line := sc.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		cols := strings.Split(line, "\t")
		if len(cols) < len(outColumns) {
			return nil, ParseError(path, n, fmt.Sprintf(
				"expected %d tab-separated columns", len(outColumns),
			))
		}

		h := assign.Hit{QueryID: cols[0], SubjectID: cols[1]}
		if h.Identity, err = strconv.ParseFloat(cols[2], 64); err != nil {
			return nil, ParseError(path, n, "identity is not a number")
		}
		if h.Bitscore, err = strconv.ParseFloat(cols[3], 64); err != nil {
			return nil, ParseError(path, n, "bitscore is not a number")
		}
		if h.EValue, err = strconv.ParseFloat(cols[4], 64); err != nil {
			return nil, ParseError(path, n, "evalue is not a number")
		}
		h.TaxonID = parseTaxid(cols[5])

		hits[h.QueryID] = append(hits[h.QueryID], h)
	}
	if err = sc.Err(); err != nil {
		return nil, ReadError(path, err)
	}

	for _, hs := range hits {
		sort.SliceStable(hs, func(i, j int) bool {
			if hs[i].Bitscore != hs[j].Bitscore {
				return hs[i].Bitscore > hs[j].Bitscore
			}
			return hs[i].SubjectID < hs[j].SubjectID
		})
	}

	slog.Info("Hit table loaded",
		"path", filepath.Base(path),
		"queries", humanize.Comma(int64(len(hits))),
		"hits", humanize.Comma(int64(n)),
	)
	return hits, nil
}

// parseTaxid reads the first id out of a staxids column. Diamond leaves
// the column empty or as "N/A" for subjects without taxon mapping.
func parseTaxid(s string) int {
	first, _, _ := strings.Cut(s, ";")
	id, err := strconv.Atoi(strings.TrimSpace(first))
	if err != nil || id < 0 {
		return 0
	}
	return id
}
