package iocoverage

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/cheggaaa/pb/v3"
	"github.com/dustin/go-humanize"

	"github.com/taxsieve/taxsieve/internal/iogff"
	"github.com/taxsieve/taxsieve/pkg/descriptors"
)

// ReadPBC streams a per-base coverage table, three tab-separated
// columns of contig, 1-based position and depth, into contig and gene
// summaries. Rows must be grouped by contig and position-sorted within
// each contig, the order bedtools genomecov emits.
func ReadPBC(
	ctx context.Context,
	path string,
	genes []iogff.Gene,
) (Profile, error) {
	prof := Profile{
		Contigs: make(map[string]descriptors.Summary),
		Genes:   make(map[string]descriptors.Summary),
	}

	f, err := os.Open(path)
	if err != nil {
		return Profile{}, ReadError(path, err)
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return Profile{}, ReadError(path, err)
	}

	bar := pb.Full.Start64(st.Size())
	bar.Set(pb.Bytes, true)
	bar.Set("prefix", "Reading coverage: ")
	bar.Set(pb.CleanOnFinish, true)
	defer bar.Finish()

	sc := bufio.NewScanner(bar.NewProxyReader(f))
	sc.Buffer(make([]byte, 0, 256*1024), 1024*1024)

	byContig := groupGenes(genes)
	seen := make(map[string]bool)
	var cur *contigState
	var n int

	for sc.Scan() {
		n++
		if n%1_000_000 == 0 {
			if err = ctx.Err(); err != nil {
				return Profile{}, err
			}
		}
		line := sc.Text()
		if line == "" {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) != 3 {
			return Profile{}, ParseError(path, n, "expected 3 tab-separated columns")
		}
		pos, err := strconv.Atoi(cols[1])
		if err != nil {
			return Profile{}, ParseError(path, n, "position is not a number")
		}
		depth, err := strconv.ParseFloat(cols[2], 64)
		if err != nil {
			return Profile{}, ParseError(path, n, "coverage is not a number")
		}

		if cur == nil || cur.id != cols[0] {
			prof.flush(cur)
			if seen[cols[0]] {
				return Profile{}, ParseError(path, n, fmt.Sprintf(
					"rows for contig %s are not contiguous", cols[0],
				))
			}
			seen[cols[0]] = true
			cur = &contigState{id: cols[0], genes: byContig[cols[0]]}
		}
		if err = cur.add(pos, depth); err != nil {
			return Profile{}, ParseError(path, n, err.Error())
		}
	}
	if err = sc.Err(); err != nil {
		return Profile{}, ReadError(path, err)
	}
	prof.flush(cur)

	slog.Info("Coverage profile loaded",
		"path", filepath.Base(path),
		"contigs", humanize.Comma(int64(len(prof.Contigs))),
		"bases", humanize.Comma(int64(n)),
	)
	return prof, nil
}

func (p *Profile) flush(c *contigState) {
	if c == nil {
		return
	}
	p.Contigs[c.id] = c.acc.Summary()
	for _, g := range c.genes {
		p.Genes[g.id] = g.acc.Summary()
	}
}

type geneSpan struct {
	id         string
	start, end int
	acc        descriptors.Accum
}

// contigState sweeps one contig's position-sorted rows over its genes,
// genes are activated when the sweep reaches their start and retired
// past their end. Overlapping genes stay active together.
type contigState struct {
	id      string
	acc     descriptors.Accum
	genes   []*geneSpan
	next    int
	active  []*geneSpan
	lastPos int
}

func (c *contigState) add(pos int, depth float64) error {
	if pos <= c.lastPos {
		return fmt.Errorf(
			"position %d after %d, rows are not sorted", pos, c.lastPos,
		)
	}
	c.lastPos = pos
	c.acc.Add(depth)

	for c.next < len(c.genes) && c.genes[c.next].start <= pos {
		c.active = append(c.active, c.genes[c.next])
		c.next++
	}
	kept := c.active[:0]
	for _, g := range c.active {
		if g.end < pos {
			continue
		}
		g.acc.Add(depth)
		kept = append(kept, g)
	}
	c.active = kept
	return nil
}

func groupGenes(genes []iogff.Gene) map[string][]*geneSpan {
	byContig := make(map[string][]*geneSpan)
	for _, g := range genes {
		byContig[g.ContigID] = append(byContig[g.ContigID], &geneSpan{
			id:    g.ID,
			start: g.Start,
			end:   g.End,
		})
	}
	for _, gs := range byContig {
		sort.Slice(gs, func(i, j int) bool { return gs[i].start < gs[j].start })
	}
	return byContig
}
