// Package ioreport renders screening results into the run's output
// directory: descriptor tables for contigs and genes, the per-contig
// call table, the display group table and a short run summary. Tables
// follow the parsed descriptor schema, so column order matches the
// run document. A gob snapshot of the computed state lets plots mode
// rebuild displays without recomputing descriptors or assignments.
package ioreport

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/taxsieve/taxsieve/pkg/descriptors"
	"github.com/taxsieve/taxsieve/pkg/taxmerge"
)

// Paths names every artifact below the run's output directory.
type Paths struct {
	Dir string
	Ext string
}

// NewPaths builds artifact paths for an output directory and a table
// format, csv or tsv.
func NewPaths(dir, format string) Paths {
	return Paths{Dir: dir, Ext: format}
}

// ContigTable is the per-contig descriptor table.
func (p Paths) ContigTable() string {
	return filepath.Join(p.Dir, "contig_descriptors."+p.Ext)
}

// GeneTable is the per-gene descriptor table.
func (p Paths) GeneTable() string {
	return filepath.Join(p.Dir, "gene_descriptors."+p.Ext)
}

// CallTable is the per-contig cluster and taxon call table.
func (p Paths) CallTable() string {
	return filepath.Join(p.Dir, "contig_calls."+p.Ext)
}

// GroupTable is the display group table.
func (p Paths) GroupTable() string {
	return filepath.Join(p.Dir, "taxon_groups."+p.Ext)
}

// SummaryFile is the human-readable run summary.
func (p Paths) SummaryFile() string {
	return filepath.Join(p.Dir, "summary.txt")
}

// SnapshotFile is the gob snapshot read back by plots mode.
func (p Paths) SnapshotFile() string {
	return filepath.Join(p.Dir, "screen.gob")
}

// WriteContigTable renders one row per contig with the schema's
// contig-scope columns in schema order. A missing identifier column is
// prepended.
func WriteContigTable(
	path, format string,
	schema descriptors.Schema,
	contigs []descriptors.ContigResult,
	sentinel string,
) error {
	cols := contigColumns(schema)
	rows := make([][]string, 0, len(contigs))
	for _, c := range contigs {
		row := make([]string, len(cols))
		for i, col := range cols {
			if col.Key {
				row[i] = c.ID
				continue
			}
			row[i] = cell(c.Values, col.Name, sentinel)
		}
		rows = append(rows, row)
	}

	if err := writeTable(path, format, columnNames(cols), rows); err != nil {
		return err
	}
	slog.Info("Contig descriptor table written",
		"path", path, "contigs", len(contigs))
	return nil
}

// WriteGeneTable renders one row per gene carrying the full schema:
// gene-scope cells come from the gene, contig-scope cells from its
// contig. Missing identifier columns are prepended.
func WriteGeneTable(
	path, format string,
	schema descriptors.Schema,
	contigs []descriptors.ContigResult,
	sentinel string,
) error {
	cols := geneColumns(schema)
	var rows [][]string
	for _, c := range contigs {
		for _, g := range c.Genes {
			row := make([]string, len(cols))
			for i, col := range cols {
				switch {
				case col.Key && col.Scope == descriptors.ScopeGene:
					row[i] = g.ID
				case col.Key:
					row[i] = c.ID
				case col.Scope == descriptors.ScopeGene:
					row[i] = cell(g.Values, col.Name, sentinel)
				default:
					row[i] = cell(c.Values, col.Name, sentinel)
				}
			}
			rows = append(rows, row)
		}
	}

	if err := writeTable(path, format, columnNames(cols), rows); err != nil {
		return err
	}
	slog.Info("Gene descriptor table written",
		"path", path, "genes", len(rows))
	return nil
}

// Call is one contig's outcome: its cluster, its resolved taxon, the
// contamination verdict and the contig's principal component scores.
type Call struct {
	ContigID   string
	Cluster    string
	Outlier    bool
	TaxonID    int
	TaxonName  string
	Divergence int
	Group      string
	Candidate  bool
	Scores     []float64
}

// WriteCallTable renders the per-contig call table. Unassigned contigs
// show the sentinel in the taxon id and divergence columns; component
// score columns follow the fixed ones, one per retained component.
func WriteCallTable(
	path, format string,
	calls []Call,
	sentinel string,
) error {
	var components int
	for _, c := range calls {
		if len(c.Scores) > components {
			components = len(c.Scores)
		}
	}

	header := []string{
		"contig", "cluster", "outlier", "taxon_id", "taxon",
		"divergence", "group", "candidate",
	}
	for i := 1; i <= components; i++ {
		header = append(header, "pc_"+strconv.Itoa(i))
	}

	rows := make([][]string, 0, len(calls))
	for _, c := range calls {
		id, div := sentinel, sentinel
		if c.TaxonID != 0 {
			id = strconv.Itoa(c.TaxonID)
			div = strconv.Itoa(c.Divergence)
		}
		row := []string{
			c.ContigID, c.Cluster, boolCell(c.Outlier),
			id, c.TaxonName, div, c.Group, boolCell(c.Candidate),
		}
		for i := 0; i < components; i++ {
			if i < len(c.Scores) {
				row = append(row,
					strconv.FormatFloat(c.Scores[i], 'g', -1, 64))
				continue
			}
			row = append(row, sentinel)
		}
		rows = append(rows, row)
	}

	if err := writeTable(path, format, header, rows); err != nil {
		return err
	}
	slog.Info("Call table written", "path", path, "contigs", len(calls))
	return nil
}

// WriteGroupTable renders the display groups by descending size.
func WriteGroupTable(
	path, format string,
	groups []taxmerge.Group,
	sentinel string,
) error {
	header := []string{"group", "taxon_id", "contigs"}
	rows := make([][]string, 0, len(groups))
	for _, g := range groups {
		id := sentinel
		if g.TaxonID != 0 {
			id = strconv.Itoa(g.TaxonID)
		}
		rows = append(rows, []string{g.Label, id, strconv.Itoa(g.Count)})
	}

	if err := writeTable(path, format, header, rows); err != nil {
		return err
	}
	slog.Info("Group table written", "path", path, "groups", len(groups))
	return nil
}

// Summary collects the headline numbers of a finished run.
type Summary struct {
	Contigs    int
	Genes      int
	Assigned   int
	Outliers   int
	Candidates int
	Groups     int
	Method     string
	Components int
	Elapsed    string
}

// WriteSummary stores the run summary as plain text.
func WriteSummary(path string, s Summary) error {
	f, err := os.Create(path)
	if err != nil {
		return WriteError(path, err)
	}
	defer f.Close()

	lines := []struct {
		label string
		value string
	}{
		{"contigs", strconv.Itoa(s.Contigs)},
		{"genes", strconv.Itoa(s.Genes)},
		{"genes assigned", strconv.Itoa(s.Assigned)},
		{"outlier contigs", strconv.Itoa(s.Outliers)},
		{"contamination candidates", strconv.Itoa(s.Candidates)},
		{"display groups", strconv.Itoa(s.Groups)},
		{"cluster method", s.Method},
		{"principal components", strconv.Itoa(s.Components)},
		{"elapsed", s.Elapsed},
	}

	fmt.Fprintln(f, "Assembly screening summary")
	fmt.Fprintln(f, "--------------------------")
	for _, l := range lines {
		if l.value == "" {
			continue
		}
		if _, err = fmt.Fprintf(f, "%-26s %s\n", l.label+":", l.value); err != nil {
			return WriteError(path, err)
		}
	}

	slog.Info("Summary written", "path", path)
	return nil
}

func writeTable(path, format string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return WriteError(path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if format == "tsv" {
		w.Comma = '\t'
	}

	if err = w.Write(header); err != nil {
		return WriteError(path, err)
	}
	for _, row := range rows {
		if err = w.Write(row); err != nil {
			return WriteError(path, err)
		}
	}
	w.Flush()
	if err = w.Error(); err != nil {
		return WriteError(path, err)
	}
	return nil
}

func contigColumns(schema descriptors.Schema) []descriptors.Column {
	cols := make([]descriptors.Column, 0, len(schema.Columns)+1)
	hasKey := false
	for _, c := range schema.Columns {
		if c.Scope != descriptors.ScopeContig {
			continue
		}
		if c.Key {
			hasKey = true
		}
		cols = append(cols, c)
	}
	if !hasKey {
		cols = append([]descriptors.Column{contigKey()}, cols...)
	}
	return cols
}

func geneColumns(schema descriptors.Schema) []descriptors.Column {
	var hasGeneKey, hasContigKey bool
	for _, c := range schema.Columns {
		if !c.Key {
			continue
		}
		if c.Scope == descriptors.ScopeGene {
			hasGeneKey = true
		} else {
			hasContigKey = true
		}
	}

	var cols []descriptors.Column
	if !hasGeneKey {
		cols = append(cols, descriptors.Column{
			Name: "g_name", Base: "g_name",
			Scope: descriptors.ScopeGene, Key: true,
		})
	}
	if !hasContigKey {
		cols = append(cols, contigKey())
	}
	return append(cols, schema.Columns...)
}

func contigKey() descriptors.Column {
	return descriptors.Column{
		Name: "c_name", Base: "c_name",
		Scope: descriptors.ScopeContig, Key: true,
	}
}

func columnNames(cols []descriptors.Column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

func cell(v descriptors.Values, name, sentinel string) string {
	x, ok := v[name]
	if !ok || math.IsNaN(x) {
		return sentinel
	}
	return strconv.FormatFloat(x, 'g', -1, 64)
}

func boolCell(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}
