// Package iogff reads gene models from a GFF3 annotation.
//
// Only the feature types needed downstream are used: gene rows give the
// span entering the descriptor table, and the CDS layout of the longest
// transcript of each gene drives protein extraction. Rows may appear in
// any order; linking happens after the whole file is read.
package iogff

import (
	"bufio"
	"context"
	"log/slog"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/cheggaaa/pb/v3"
)

// Segment is one CDS piece of a transcript. Coordinates are 1-based and
// inclusive. Phase counts bases to skip before the first complete codon.
type Segment struct {
	Start int
	End   int
	Phase int
}

// Gene is a gene model. CDS holds the layout of the longest coding
// transcript sorted by start, empty for non-coding genes. TranslTable
// is the genetic code named by a transl_table attribute on the CDS
// rows, zero when the annotation has none.
type Gene struct {
	ID          string
	ContigID    string
	Start       int
	End         int
	Strand      int8
	TranslTable int
	CDS         []Segment
}

// Length returns the gene span in bases.
func (g Gene) Length() int { return g.End - g.Start + 1 }

// CodingLength returns the summed CDS length in bases.
func (g Gene) CodingLength() int {
	var n int
	for _, s := range g.CDS {
		n += s.End - s.Start + 1
	}
	return n
}

type geneRow struct {
	id     string
	contig string
	start  int
	end    int
	strand int8
	order  int
}

type transcriptRow struct {
	id     string
	parent string
}

type cdsRow struct {
	parents     []string
	seg         Segment
	translTable int
}

// Read parses the GFF3 file at path and returns gene models in file order.
func Read(ctx context.Context, path string) ([]Gene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ReadError(path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, ReadError(path, err)
	}

	bar := pb.Full.Start64(info.Size())
	bar.Set("prefix", "Reading annotation: ")
	bar.Set(pb.Bytes, true)
	bar.Set(pb.CleanOnFinish, true)
	defer bar.Finish()

	genes := make(map[string]*geneRow)
	transcripts := make(map[string]*transcriptRow)
	var cdss []cdsRow
	var unstranded, nonCoding int

	sc := bufio.NewScanner(bar.NewProxyReader(f))
	sc.Buffer(make([]byte, 0, 256*1024), 4*1024*1024)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		if lineNo%10_000 == 0 {
			if err = ctx.Err(); err != nil {
				return nil, err
			}
		}

		line := sc.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			// The optional FASTA section ends the feature table.
			if line == "##FASTA" {
				break
			}
			continue
		}

		cols := strings.Split(line, "\t")
		if len(cols) != 9 {
			return nil, ParseError(path, lineNo, "expected 9 columns")
		}

		typ := cols[2]
		switch typ {
		case "gene", "mRNA", "transcript", "CDS":
		default:
			continue
		}

		start, err := strconv.Atoi(cols[3])
		if err != nil {
			return nil, ParseError(path, lineNo, "start is not a number")
		}
		end, err := strconv.Atoi(cols[4])
		if err != nil {
			return nil, ParseError(path, lineNo, "end is not a number")
		}
		if start > end {
			return nil, ParseError(path, lineNo, "start is after end")
		}

		attrs := parseAttributes(cols[8])

		switch typ {
		case "gene":
			id := attrs["ID"]
			if id == "" {
				return nil, ParseError(path, lineNo, "gene without ID")
			}
			biotype := attrs["biotype"]
			if biotype == "" {
				biotype = attrs["gene_biotype"]
			}
			if biotype != "" && biotype != "protein_coding" {
				nonCoding++
				continue
			}
			if _, ok := genes[id]; ok {
				return nil, DuplicateGeneError(path, id)
			}
			strand := int8(1)
			switch cols[6] {
			case "+":
			case "-":
				strand = -1
			default:
				unstranded++
			}
			genes[id] = &geneRow{
				id:     id,
				contig: cols[0],
				start:  start,
				end:    end,
				strand: strand,
				order:  len(genes),
			}
		case "mRNA", "transcript":
			id := attrs["ID"]
			if id == "" {
				return nil, ParseError(path, lineNo,
					"transcript without ID")
			}
			transcripts[id] = &transcriptRow{
				id:     id,
				parent: firstParent(attrs["Parent"]),
			}
		case "CDS":
			parent := attrs["Parent"]
			if parent == "" {
				continue
			}
			phase := 0
			if p, err := strconv.Atoi(cols[7]); err == nil {
				phase = p
			}
			table := 0
			if t, err := strconv.Atoi(attrs["transl_table"]); err == nil {
				table = t
			}
			cdss = append(cdss, cdsRow{
				parents:     strings.Split(parent, ","),
				seg:         Segment{Start: start, End: end, Phase: phase},
				translTable: table,
			})
		}
	}
	if err = sc.Err(); err != nil {
		return nil, ReadError(path, err)
	}

	models, orphans := link(genes, transcripts, cdss)

	if unstranded > 0 {
		slog.Warn("Genes without strand treated as forward",
			"count", unstranded)
	}
	if nonCoding > 0 {
		slog.Info("Non-protein-coding genes skipped",
			"count", nonCoding)
	}
	if orphans > 0 {
		slog.Warn("CDS rows without a known gene skipped",
			"count", orphans)
	}
	slog.Info("Annotation read",
		"path", path,
		"genes", len(models),
		"transcripts", len(transcripts),
		"cds_rows", len(cdss),
	)
	return models, nil
}

// carrierCDS is the CDS layout collected under one carrier id; a carrier
// is a transcript or, for annotations without mRNA rows, the gene itself.
type carrierCDS struct {
	segs  []Segment
	table int
}

func (c *carrierCDS) attach(seg Segment, table int) {
	c.segs = append(c.segs, seg)
	if c.table == 0 {
		c.table = table
	}
}

// link attaches CDS rows to genes through their transcripts and keeps the
// longest coding transcript per gene.
func link(
	genes map[string]*geneRow,
	transcripts map[string]*transcriptRow,
	cdss []cdsRow,
) ([]Gene, int) {
	perCarrier := make(map[string]*carrierCDS)
	var orphans int
	for _, c := range cdss {
		attached := false
		for _, p := range c.parents {
			_, isTranscript := transcripts[p]
			_, isGene := genes[p]
			if !isTranscript && !isGene {
				continue
			}
			carrier := perCarrier[p]
			if carrier == nil {
				carrier = &carrierCDS{}
				perCarrier[p] = carrier
			}
			carrier.attach(c.seg, c.translTable)
			attached = true
		}
		if !attached {
			orphans++
		}
	}

	// Candidate CDS sets per gene, remembering the carrier so ties
	// resolve the same way on every run.
	type candidate struct {
		carrier string
		segs    []Segment
		table   int
	}
	perGene := make(map[string][]candidate)
	for id, c := range perCarrier {
		geneID := id
		if tr, ok := transcripts[id]; ok {
			geneID = tr.parent
		}
		if _, ok := genes[geneID]; !ok {
			orphans += len(c.segs)
			continue
		}
		perGene[geneID] = append(perGene[geneID],
			candidate{carrier: id, segs: c.segs, table: c.table})
	}

	models := make([]Gene, 0, len(genes))
	for id, g := range genes {
		gene := Gene{
			ID:       id,
			ContigID: g.contig,
			Start:    g.start,
			End:      g.end,
			Strand:   g.strand,
		}
		if cands := perGene[id]; len(cands) > 0 {
			sort.Slice(cands, func(i, j int) bool {
				li, lj := segsLen(cands[i].segs), segsLen(cands[j].segs)
				if li != lj {
					return li > lj
				}
				return cands[i].carrier < cands[j].carrier
			})
			gene.CDS = cands[0].segs
			gene.TranslTable = cands[0].table
			sort.Slice(gene.CDS, func(i, j int) bool {
				return gene.CDS[i].Start < gene.CDS[j].Start
			})
		}
		models = append(models, gene)
	}

	sort.Slice(models, func(i, j int) bool {
		return genes[models[i].ID].order < genes[models[j].ID].order
	})
	return models, orphans
}

func segsLen(segs []Segment) int {
	var n int
	for _, s := range segs {
		n += s.End - s.Start + 1
	}
	return n
}

// parseAttributes splits a GFF3 column 9 into a key/value map. Values are
// percent-decoded; undecodable values are kept verbatim.
func parseAttributes(s string) map[string]string {
	attrs := make(map[string]string)
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		if dec, err := url.PathUnescape(v); err == nil {
			v = dec
		}
		attrs[k] = v
	}
	return attrs
}

func firstParent(s string) string {
	if i := strings.IndexByte(s, ','); i >= 0 {
		return s[:i]
	}
	return s
}
