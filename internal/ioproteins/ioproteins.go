// Package ioproteins builds protein sequences from gene models.
//
// For every coding gene the CDS segments of its longest transcript are
// cut from the assembly, stitched in transcript orientation and
// translated with the genetic code named by the annotation. Splicing
// runs twice, with and without the annotated CDS phases, and one
// variant set is kept for the whole assembly, decided by the run's
// phase policy. The result feeds the aligner, with gene ids doubling
// as protein ids.
package ioproteins

import (
	"context"
	"log/slog"
	"os"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"
	"github.com/cheggaaa/pb/v3"

	"github.com/taxsieve/taxsieve/internal/iofasta"
	"github.com/taxsieve/taxsieve/internal/iogff"
	"github.com/taxsieve/taxsieve/pkg/screen"
)

// Protein is a translated gene product without a trailing stop.
type Protein struct {
	GeneID   string
	ContigID string
	Seq      []alphabet.Letter
}

// Extract translates every coding gene. Non-coding genes are skipped,
// genes whose chosen splice translates to nothing are counted and
// skipped. The phase policy is settled once for the whole gene set
// before any protein is kept.
func Extract(
	ctx context.Context,
	asm *iofasta.Assembly,
	genes []iogff.Gene,
	mode screen.PhaseMode,
) ([]Protein, error) {
	bar := pb.Full.Start(len(genes))
	bar.Set("prefix", "Extracting proteins: ")
	bar.Set(pb.CleanOnFinish, true)
	defer bar.Finish()

	type candidate struct {
		geneID   string
		contigID string
		phased   variant
		plain    variant
	}
	var cands []candidate
	var phasedSum, plainSum tally
	for i, g := range genes {
		if i%200 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		bar.Increment()

		if len(g.CDS) == 0 {
			continue
		}
		if _, ok := asm.Seq(g.ContigID); !ok {
			return nil, UnknownContigError(g.ID, g.ContigID)
		}
		c := candidate{
			geneID:   g.ID,
			contigID: g.ContigID,
			phased:   build(asm, g, true),
			plain:    build(asm, g, false),
		}
		phasedSum.add(c.phased)
		plainSum.add(c.plain)
		cands = append(cands, c)
	}

	usePhase := decidePhase(mode, phasedSum, plainSum)
	slog.Info("CDS phase use decided",
		"use_phase", usePhase,
		"phased_penalty", phasedSum.penalty(),
		"plain_penalty", plainSum.penalty(),
	)

	var prots []Protein
	var empty, padded, withStops int
	for _, c := range cands {
		v := c.plain
		if usePhase {
			v = c.phased
		}
		prot := trimStop(v.prot)
		if len(prot) == 0 {
			empty++
			continue
		}
		if v.outOfFrame > 0 {
			padded++
		}
		if v.stops > 0 {
			withStops++
		}
		prots = append(prots, Protein{
			GeneID:   c.geneID,
			ContigID: c.contigID,
			Seq:      prot,
		})
	}

	if empty > 0 {
		slog.Warn("Coding genes without translatable sequence skipped",
			"count", empty)
	}
	if padded > 0 {
		slog.Warn("Coding sequences padded to a codon boundary",
			"count", padded)
	}
	if withStops > 0 {
		slog.Warn("Proteins with internal stop codons kept",
			"count", withStops)
	}
	slog.Info("Proteins extracted",
		"genes", len(genes),
		"proteins", len(prots),
	)
	return prots, nil
}

// variant is one candidate splice of a gene with its translation
// penalties.
type variant struct {
	prot       []alphabet.Letter
	stops      int
	outOfFrame int
}

// tally sums translation penalties over one variant set.
type tally struct {
	stops      int
	outOfFrame int
}

func (t *tally) add(v variant) {
	t.stops += v.stops
	t.outOfFrame += v.outOfFrame
}

func (t tally) penalty() int { return t.stops + t.outOfFrame }

// decidePhase picks between the phase-aware and the raw variant sets.
// Auto mode compares assembly-wide penalty totals; the lower total
// wins, equal totals fall back to internal stop counts alone, and a
// full tie keeps the annotated phases.
func decidePhase(mode screen.PhaseMode, phased, plain tally) bool {
	switch mode {
	case screen.PhaseAlways:
		return true
	case screen.PhaseNever:
		return false
	}
	switch {
	case phased.penalty() > plain.penalty():
		return false
	case phased.penalty() < plain.penalty():
		return true
	case phased.stops > plain.stops:
		return false
	}
	return true
}

// build splices and translates one variant of a gene.
func build(asm *iofasta.Assembly, g iogff.Gene, phased bool) variant {
	dna, didPad := padToCodon(splice(asm, g, phased))
	v := variant{prot: Translate(dna, g.TranslTable)}
	if didPad {
		v.outOfFrame = 1
	}
	v.stops = internalStops(v.prot)
	return v
}

// splice cuts the CDS of a gene and stitches it in transcript
// orientation. On the minus strand segments are walked from the far end
// of the contig and each enters reverse complemented. With phased set,
// every segment loses its phase bases at the transcript 5' side;
// segments shorter than their phase contribute nothing.
func splice(
	asm *iofasta.Assembly,
	g iogff.Gene,
	phased bool,
) []alphabet.Letter {
	var dna []alphabet.Letter
	if g.Strand >= 0 {
		for _, s := range g.CDS {
			start := s.Start
			if phased {
				start += s.Phase
			}
			dna = append(dna,
				asm.Letters(g.ContigID, start, s.End)...)
		}
		return dna
	}

	for i := len(g.CDS) - 1; i >= 0; i-- {
		s := g.CDS[i]
		end := s.End
		if phased {
			end -= s.Phase
		}
		seg := asm.Letters(g.ContigID, s.Start, end)
		dna = append(dna, ReverseComplement(seg)...)
	}
	return dna
}

// padToCodon pads a coding sequence with N up to a codon boundary. The
// second return reports whether padding happened.
func padToCodon(dna []alphabet.Letter) ([]alphabet.Letter, bool) {
	r := len(dna) % 3
	if r == 0 {
		return dna, false
	}
	for i := r; i < 3; i++ {
		dna = append(dna, 'N')
	}
	return dna, true
}

// ReverseComplement returns the reverse complement of a DNA fragment.
// Letters without a complement pass through unchanged.
func ReverseComplement(dna []alphabet.Letter) []alphabet.Letter {
	out := make([]alphabet.Letter, len(dna))
	for i, l := range dna {
		c, ok := alphabet.DNA.Complement(l)
		if !ok {
			c = l
		}
		out[len(dna)-1-i] = c
	}
	return out
}

// Translate converts a coding sequence to protein using the NCBI
// genetic code named by table. Tables 1 and 11 share the standard codon
// assignments, table 4 reads TGA as tryptophan, anything else falls
// back to the standard code. Incomplete trailing codons are dropped and
// codons with ambiguity become 'X'. Stop codons stay in the output.
func Translate(dna []alphabet.Letter, table int) []alphabet.Letter {
	code := codeFor(table)
	n := len(dna) / 3
	if n == 0 {
		return nil
	}

	prot := make([]alphabet.Letter, 0, n)
	var codon [3]byte
	for i := 0; i < n; i++ {
		for j := 0; j < 3; j++ {
			codon[j] = upper(byte(dna[i*3+j]))
		}
		aa, ok := code[codon]
		if !ok {
			aa = 'X'
		}
		prot = append(prot, alphabet.Letter(aa))
	}
	return prot
}

func codeFor(table int) map[[3]byte]byte {
	if table == 4 {
		return moldCode
	}
	return standardCode
}

// internalStops counts stop codons before the last residue.
func internalStops(prot []alphabet.Letter) int {
	var n int
	for i := 0; i < len(prot)-1; i++ {
		if prot[i] == '*' {
			n++
		}
	}
	return n
}

// trimStop removes a single trailing stop.
func trimStop(prot []alphabet.Letter) []alphabet.Letter {
	if n := len(prot); n > 0 && prot[n-1] == '*' {
		return prot[:n-1]
	}
	return prot
}

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 'a' + 'A'
	}
	return b
}

// Write stores proteins as FASTA with gene ids as headers.
func Write(path string, prots []Protein) error {
	f, err := os.Create(path)
	if err != nil {
		return WriteError(path, err)
	}
	defer f.Close()

	w := fasta.NewWriter(f, 60)
	for _, p := range prots {
		s := linear.NewSeq(p.GeneID, p.Seq, alphabet.Protein)
		if _, err = w.Write(s); err != nil {
			return WriteError(path, err)
		}
	}

	slog.Info("Proteins written", "path", path, "proteins", len(prots))
	return nil
}

// standardCode is translation table 1.
var standardCode = map[[3]byte]byte{
	{'T', 'T', 'T'}: 'F', {'T', 'T', 'C'}: 'F',
	{'T', 'T', 'A'}: 'L', {'T', 'T', 'G'}: 'L',
	{'C', 'T', 'T'}: 'L', {'C', 'T', 'C'}: 'L',
	{'C', 'T', 'A'}: 'L', {'C', 'T', 'G'}: 'L',
	{'A', 'T', 'T'}: 'I', {'A', 'T', 'C'}: 'I',
	{'A', 'T', 'A'}: 'I', {'A', 'T', 'G'}: 'M',
	{'G', 'T', 'T'}: 'V', {'G', 'T', 'C'}: 'V',
	{'G', 'T', 'A'}: 'V', {'G', 'T', 'G'}: 'V',
	{'T', 'C', 'T'}: 'S', {'T', 'C', 'C'}: 'S',
	{'T', 'C', 'A'}: 'S', {'T', 'C', 'G'}: 'S',
	{'C', 'C', 'T'}: 'P', {'C', 'C', 'C'}: 'P',
	{'C', 'C', 'A'}: 'P', {'C', 'C', 'G'}: 'P',
	{'A', 'C', 'T'}: 'T', {'A', 'C', 'C'}: 'T',
	{'A', 'C', 'A'}: 'T', {'A', 'C', 'G'}: 'T',
	{'G', 'C', 'T'}: 'A', {'G', 'C', 'C'}: 'A',
	{'G', 'C', 'A'}: 'A', {'G', 'C', 'G'}: 'A',
	{'T', 'A', 'T'}: 'Y', {'T', 'A', 'C'}: 'Y',
	{'T', 'A', 'A'}: '*', {'T', 'A', 'G'}: '*',
	{'C', 'A', 'T'}: 'H', {'C', 'A', 'C'}: 'H',
	{'C', 'A', 'A'}: 'Q', {'C', 'A', 'G'}: 'Q',
	{'A', 'A', 'T'}: 'N', {'A', 'A', 'C'}: 'N',
	{'A', 'A', 'A'}: 'K', {'A', 'A', 'G'}: 'K',
	{'G', 'A', 'T'}: 'D', {'G', 'A', 'C'}: 'D',
	{'G', 'A', 'A'}: 'E', {'G', 'A', 'G'}: 'E',
	{'T', 'G', 'T'}: 'C', {'T', 'G', 'C'}: 'C',
	{'T', 'G', 'A'}: '*', {'T', 'G', 'G'}: 'W',
	{'C', 'G', 'T'}: 'R', {'C', 'G', 'C'}: 'R',
	{'C', 'G', 'A'}: 'R', {'C', 'G', 'G'}: 'R',
	{'A', 'G', 'T'}: 'S', {'A', 'G', 'C'}: 'S',
	{'A', 'G', 'A'}: 'R', {'A', 'G', 'G'}: 'R',
	{'G', 'G', 'T'}: 'G', {'G', 'G', 'C'}: 'G',
	{'G', 'G', 'A'}: 'G', {'G', 'G', 'G'}: 'G',
}

// moldCode is translation table 4: TGA codes tryptophan.
var moldCode = func() map[[3]byte]byte {
	m := make(map[[3]byte]byte, len(standardCode))
	for k, v := range standardCode {
		m[k] = v
	}
	m[[3]byte{'T', 'G', 'A'}] = 'W'
	return m
}()
