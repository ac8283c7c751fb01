// Package assign resolves protein alignment hits to taxa.
//
// Each query gene carries a set of hits against a reference database;
// the resolver reduces them to a single taxon, either by lineage voting
// over all strong hits (exhaustive mode) or from the top-scoring hits
// alone (quick mode). Hits falling inside the query organism's own
// lineage can be excluded so that self-matches do not mask contaminants.
package assign

import (
	"fmt"

	"github.com/taxsieve/taxsieve/pkg/taxtree"
)

// Mode selects the resolution strategy.
type Mode int

const (
	// ModeExhaustive votes over every hit within the score cutoff and
	// returns the deepest taxon supported by a quorum of them.
	ModeExhaustive Mode = iota
	// ModeQuick looks only at hits within a narrow window below the best
	// bitscore and returns their taxon, or the LCA when they disagree.
	ModeQuick
)

func (m Mode) String() string {
	switch m {
	case ModeExhaustive:
		return "exhaustive"
	case ModeQuick:
		return "quick"
	}
	return "unknown"
}

// ParseMode converts a mode name from a run document into a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "exhaustive":
		return ModeExhaustive, nil
	case "quick":
		return ModeQuick, nil
	}
	return 0, fmt.Errorf("unknown assignment mode %q", s)
}

// Default tuning constants. They follow the original screening protocol
// and can be overridden per run.
const (
	DefaultCutoffFraction = 0.75
	DefaultQuorum         = 0.66
	DefaultScoreWindow    = 0.05
)

// Hit is a single alignment of a query gene against a reference protein.
type Hit struct {
	QueryID   string
	SubjectID string
	TaxonID   int
	Identity  float64
	Bitscore  float64
	EValue    float64
}

// Options tunes hit resolution. Zero fractions fall back to the package
// defaults.
type Options struct {
	Mode Mode

	// ExcludeTaxon drops hits whose subject belongs to this taxon's
	// subtree before resolution. Zero disables exclusion.
	ExcludeTaxon int

	// CutoffFraction keeps hits scoring at least this fraction of the
	// best bitscore as voters in exhaustive mode.
	CutoffFraction float64

	// Quorum is the fraction of voters whose lineages must contain a
	// taxon for it to win in exhaustive mode.
	Quorum float64

	// ScoreWindow is the relative bitscore window below the best hit
	// considered in quick mode.
	ScoreWindow float64
}

func (o Options) withDefaults() Options {
	if o.CutoffFraction <= 0 {
		o.CutoffFraction = DefaultCutoffFraction
	}
	if o.Quorum <= 0 {
		o.Quorum = DefaultQuorum
	}
	if o.ScoreWindow <= 0 {
		o.ScoreWindow = DefaultScoreWindow
	}
	return o
}

// Assignment is the resolution result for one query gene. TaxonID zero
// means the gene stays unassigned: it had no hits, or nothing survived
// exclusion.
type Assignment struct {
	QueryID string
	TaxonID int
	Name    string
	Rank    string

	// Hits counts alignments surviving exclusion, Used the subset that
	// took part in the final vote. UnknownTaxa counts hits dropped
	// because their subject taxon is absent from the tree.
	Hits        int
	Used        int
	UnknownTaxa int
	BestScore   float64
}

// Assigned reports whether the gene resolved to a taxon.
func (a Assignment) Assigned() bool { return a.TaxonID != 0 }

// Resolve reduces one gene's hits to a taxon assignment. With a single
// surviving hit both modes return that hit's taxon. The tree is only
// read, so Resolve is safe to call from concurrent workers.
func Resolve(
	queryID string,
	hits []Hit,
	tree *taxtree.Tree,
	opt Options,
) (Assignment, error) {
	opt = opt.withDefaults()
	res := Assignment{QueryID: queryID}

	if opt.ExcludeTaxon != 0 && !tree.Has(opt.ExcludeTaxon) {
		return res, fmt.Errorf(
			"%w: exclusion taxon %d", taxtree.ErrUnknownTaxon, opt.ExcludeTaxon,
		)
	}

	kept := make([]Hit, 0, len(hits))
	for _, h := range hits {
		if h.TaxonID == 0 || !tree.Has(h.TaxonID) {
			res.UnknownTaxa++
			continue
		}
		if opt.ExcludeTaxon != 0 {
			own, err := tree.IsAncestor(opt.ExcludeTaxon, h.TaxonID)
			if err != nil {
				return res, err
			}
			if own {
				continue
			}
		}
		kept = append(kept, h)
	}

	res.Hits = len(kept)
	if len(kept) == 0 {
		return res, nil
	}

	best := kept[0].Bitscore
	for _, h := range kept[1:] {
		if h.Bitscore > best {
			best = h.Bitscore
		}
	}
	res.BestScore = best

	var (
		taxon taxtree.Node
		used  int
		err   error
	)
	switch opt.Mode {
	case ModeQuick:
		taxon, used, err = resolveQuick(kept, best, tree, opt)
	default:
		taxon, used, err = resolveExhaustive(kept, best, tree, opt)
	}
	if err != nil {
		return res, err
	}

	res.TaxonID = taxon.ID
	res.Name = taxon.Name
	res.Rank = taxon.Rank
	res.Used = used
	return res, nil
}

// resolveExhaustive counts, for every hit above the score cutoff, all
// taxa on the hit's lineage, then picks the deepest taxon reaching the
// quorum. Support grows monotonically towards the root, so a quorum
// winner always exists; several equally deep winners collapse to their
// LCA.
func resolveExhaustive(
	hits []Hit,
	best float64,
	tree *taxtree.Tree,
	opt Options,
) (taxtree.Node, int, error) {
	cutoff := opt.CutoffFraction * best

	support := make(map[int]int)
	var voters int
	for _, h := range hits {
		if h.Bitscore < cutoff {
			continue
		}
		voters++
		lin, err := tree.Lineage(h.TaxonID)
		if err != nil {
			return taxtree.Node{}, 0, err
		}
		for _, n := range lin {
			support[n.ID]++
		}
	}

	need := opt.Quorum * float64(voters)
	var (
		winners  []int
		maxDepth = -1
	)
	for id, cnt := range support {
		if float64(cnt) < need {
			continue
		}
		d, err := tree.Depth(id)
		if err != nil {
			return taxtree.Node{}, 0, err
		}
		switch {
		case d > maxDepth:
			maxDepth = d
			winners = winners[:0]
			winners = append(winners, id)
		case d == maxDepth:
			winners = append(winners, id)
		}
	}

	node, err := foldLCA(winners, tree)
	if err != nil {
		return taxtree.Node{}, 0, err
	}
	return node, voters, nil
}

// resolveQuick considers hits within the score window below the best
// bitscore. A single taxon wins outright; disagreement resolves to the
// LCA of all windowed taxa.
func resolveQuick(
	hits []Hit,
	best float64,
	tree *taxtree.Tree,
	opt Options,
) (taxtree.Node, int, error) {
	floor := (1 - opt.ScoreWindow) * best

	seen := make(map[int]bool)
	var (
		taxa []int
		used int
	)
	for _, h := range hits {
		if h.Bitscore < floor {
			continue
		}
		used++
		if !seen[h.TaxonID] {
			seen[h.TaxonID] = true
			taxa = append(taxa, h.TaxonID)
		}
	}

	node, err := foldLCA(taxa, tree)
	if err != nil {
		return taxtree.Node{}, 0, err
	}
	return node, used, nil
}

func foldLCA(ids []int, tree *taxtree.Tree) (taxtree.Node, error) {
	if len(ids) == 0 {
		return taxtree.Node{}, fmt.Errorf("no taxa to resolve")
	}
	node, err := tree.Node(ids[0])
	if err != nil {
		return taxtree.Node{}, err
	}
	for _, id := range ids[1:] {
		node, err = tree.LCA(node.ID, id)
		if err != nil {
			return taxtree.Node{}, err
		}
	}
	return node, nil
}
