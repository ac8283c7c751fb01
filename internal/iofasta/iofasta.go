// Package iofasta reads the assembly FASTA into memory.
//
// Downstream stages need random access to contig sequences (gene GC,
// protein extraction) as well as per-contig length and GC summaries, so
// the whole assembly is kept resident for the duration of a run.
package iofasta

import (
	"context"
	"log/slog"
	"os"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"
	"github.com/cheggaaa/pb/v3"
	"github.com/dustin/go-humanize"
)

// Assembly holds every contig of an assembly FASTA, preserving file order.
type Assembly struct {
	ids  []string
	seqs map[string]*linear.Seq
}

// Read parses the assembly FASTA at path. Ambiguity codes pass through
// unvalidated and are ignored by the GC helpers.
func Read(ctx context.Context, path string) (*Assembly, error) {
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
	bar.Set("prefix", "Reading assembly: ")
	bar.Set(pb.Bytes, true)
	bar.Set(pb.CleanOnFinish, true)
	defer bar.Finish()

	asm := &Assembly{seqs: make(map[string]*linear.Seq)}

	template := linear.NewSeq("", nil, alphabet.DNA)
	sc := seqio.NewScanner(fasta.NewReader(bar.NewProxyReader(f), template))
	for sc.Next() {
		if err = ctx.Err(); err != nil {
			return nil, err
		}
		s := sc.Seq().(*linear.Seq)
		id := s.Name()
		if id == "" {
			return nil, EmptyIDError(path, len(asm.ids)+1)
		}
		if _, ok := asm.seqs[id]; ok {
			return nil, DuplicateIDError(path, id)
		}
		asm.ids = append(asm.ids, id)
		asm.seqs[id] = s
	}
	if err = sc.Error(); err != nil {
		return nil, ReadError(path, err)
	}
	if len(asm.ids) == 0 {
		return nil, EmptyAssemblyError(path)
	}

	slog.Info("Assembly read",
		"path", path,
		"contigs", len(asm.ids),
		"bases", humanize.Comma(asm.TotalLength()),
	)
	return asm, nil
}

// Len returns the number of contigs.
func (a *Assembly) Len() int { return len(a.ids) }

// IDs returns contig identifiers in file order.
func (a *Assembly) IDs() []string { return a.ids }

// Seq returns the sequence of a contig.
func (a *Assembly) Seq(id string) (*linear.Seq, bool) {
	s, ok := a.seqs[id]
	return s, ok
}

// Length returns the number of bases in a contig, or 0 for unknown ids.
func (a *Assembly) Length(id string) int {
	s, ok := a.seqs[id]
	if !ok {
		return 0
	}
	return s.Len()
}

// TotalLength returns the number of bases across all contigs.
func (a *Assembly) TotalLength() int64 {
	var n int64
	for _, id := range a.ids {
		n += int64(a.seqs[id].Len())
	}
	return n
}

// GC returns the GC fraction of a contig. NaN-free: contigs made entirely
// of ambiguous bases yield 0.
func (a *Assembly) GC(id string) float64 {
	s, ok := a.seqs[id]
	if !ok {
		return 0
	}
	return GCFraction(s.Seq)
}

// GCRange returns the GC fraction of a 1-based inclusive span of a contig.
// Spans reaching outside the contig are clamped.
func (a *Assembly) GCRange(id string, start, end int) float64 {
	s, ok := a.seqs[id]
	if !ok {
		return 0
	}
	start, end = clampSpan(start, end, s.Len())
	if start > end {
		return 0
	}
	return GCFraction(s.Seq[start-1 : end])
}

// Letters returns a copy of a 1-based inclusive span of a contig.
func (a *Assembly) Letters(id string, start, end int) []alphabet.Letter {
	s, ok := a.seqs[id]
	if !ok {
		return nil
	}
	start, end = clampSpan(start, end, s.Len())
	if start > end {
		return nil
	}
	out := make([]alphabet.Letter, end-start+1)
	copy(out, s.Seq[start-1:end])
	return out
}

func clampSpan(start, end, n int) (int, int) {
	if start < 1 {
		start = 1
	}
	if end > n {
		end = n
	}
	return start, end
}

// GCFraction computes G+C over A+C+G+T, ignoring ambiguity codes.
func GCFraction(letters []alphabet.Letter) float64 {
	var gc, at int
	for _, l := range letters {
		switch l {
		case 'G', 'C', 'g', 'c':
			gc++
		case 'A', 'T', 'a', 't':
			at++
		}
	}
	if gc+at == 0 {
		return 0
	}
	return float64(gc) / float64(gc+at)
}
