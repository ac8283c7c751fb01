// Package taxmerge collapses the long tail of resolved taxa into a
// bounded set of display groups. Rare groups are walked up the taxonomy,
// merging into their ancestors, until the distinct-group target is met
// or nothing can move. Merging is pure presentation: the per-contig
// assignments and cluster labels underneath stay untouched.
package taxmerge

import (
	"fmt"
	"sort"

	"github.com/taxsieve/taxsieve/pkg/taxtree"
)

// Unassigned is the display label of contigs without a resolved taxon.
// The unassigned group never takes part in merging and does not count
// towards the group target.
const Unassigned = "unassigned"

// DefaultRankFloor stops automatic merging once a group reaches this
// rank.
const DefaultRankFloor = "superkingdom"

// Options controls the merge.
type Options struct {
	// Target is the wanted number of distinct display groups, not
	// counting the unassigned bucket. All disables merging entirely
	// (num_groups_plot: "all").
	Target int
	All    bool

	// RankFloor freezes groups that reached this rank.
	RankFloor string

	// Directives are manual merge targets by taxon name: every group
	// whose lineage contains a directive taxon is relabeled to it and
	// frozen before automatic merging starts.
	Directives []string
}

// Group is one final display group.
type Group struct {
	TaxonID int
	Label   string
	Count   int
}

// Result maps the input back to display labels.
type Result struct {
	// Labels is aligned with the input taxa.
	Labels []string

	// Groups lists the distinct display groups by descending count,
	// the unassigned bucket last when present.
	Groups []Group

	// Steps counts single-level promotions performed.
	Steps int
}

// group tracks one display group during merging.
type group struct {
	cur     int  // current taxon id the group is displayed as
	count   int  // contigs carried
	frozen  bool // directive target or rank floor reached
	members []int
}

// Merge reduces the distinct taxa of the per-contig input to at most
// opt.Target display groups. taxa holds one resolved taxon id per
// contig, zero for unassigned.
func Merge(taxa []int, tree *taxtree.Tree, opt Options) (*Result, error) {
	if opt.RankFloor == "" {
		opt.RankFloor = DefaultRankFloor
	}
	if !opt.All && opt.Target < 1 {
		return nil, fmt.Errorf("display group target must be at least 1, got %d", opt.Target)
	}

	counts := make(map[int]int)
	var unassigned int
	for _, id := range taxa {
		if id == 0 {
			unassigned++
			continue
		}
		if !tree.Has(id) {
			return nil, fmt.Errorf("%w: id %d", taxtree.ErrUnknownTaxon, id)
		}
		counts[id]++
	}

	groups := make(map[int]*group, len(counts))
	for id, n := range counts {
		groups[id] = &group{cur: id, count: n, members: []int{id}}
	}

	res := &Result{}
	if !opt.All {
		if err := applyDirectives(groups, tree, opt.Directives); err != nil {
			return nil, err
		}
		steps, err := autoMerge(groups, tree, opt)
		if err != nil {
			return nil, err
		}
		res.Steps = steps
	}

	// original taxon id -> display node
	display := make(map[int]int, len(counts))
	for _, g := range groups {
		for _, m := range g.members {
			display[m] = g.cur
		}
	}

	res.Labels = make([]string, len(taxa))
	for i, id := range taxa {
		if id == 0 {
			res.Labels[i] = Unassigned
			continue
		}
		name, err := tree.NameOf(display[id])
		if err != nil {
			return nil, err
		}
		res.Labels[i] = name
	}

	for _, g := range groups {
		name, err := tree.NameOf(g.cur)
		if err != nil {
			return nil, err
		}
		res.Groups = append(res.Groups, Group{
			TaxonID: g.cur,
			Label:   name,
			Count:   g.count,
		})
	}
	sort.Slice(res.Groups, func(i, j int) bool {
		if res.Groups[i].Count != res.Groups[j].Count {
			return res.Groups[i].Count > res.Groups[j].Count
		}
		return res.Groups[i].Label < res.Groups[j].Label
	})
	if unassigned > 0 {
		res.Groups = append(res.Groups, Group{Label: Unassigned, Count: unassigned})
	}

	return res, nil
}

// applyDirectives relabels every group whose lineage contains a
// directive taxon to that taxon and freezes it.
func applyDirectives(
	groups map[int]*group,
	tree *taxtree.Tree,
	directives []string,
) error {
	for _, raw := range directives {
		node, ok := tree.ByName(raw)
		if !ok {
			return fmt.Errorf("merge directive %q matches no taxon", raw)
		}

		for id, g := range groups {
			within, err := tree.IsAncestor(node.ID, g.cur)
			if err != nil {
				return err
			}
			if !within {
				continue
			}
			g.cur = node.ID
			g.frozen = true
			mergeSameTarget(groups, id)
		}
	}
	return nil
}

// autoMerge promotes the least-frequent movable group one taxonomy
// level per step until the target is met or every group is stuck.
func autoMerge(groups map[int]*group, tree *taxtree.Tree, opt Options) (int, error) {
	// bounded by every group walking its full lineage to the root
	maxSteps := 0
	for _, g := range groups {
		d, err := tree.Depth(g.cur)
		if err != nil {
			return 0, err
		}
		maxSteps += d + 1
	}

	var steps int
	for steps < maxSteps && distinct(groups) > opt.Target {
		id, ok := pickMergeCandidate(groups, tree, opt.RankFloor)
		if !ok {
			break
		}

		g := groups[id]
		parent, err := tree.Parent(g.cur)
		if err != nil {
			return steps, err
		}
		g.cur = parent.ID
		steps++
		mergeSameTarget(groups, id)
	}
	return steps, nil
}

// pickMergeCandidate returns the key of the least-frequent group that
// can still move up: not frozen, not at the rank floor, not at the
// root. Ties prefer the deeper node, then the smaller taxon id, keeping
// the walk deterministic.
func pickMergeCandidate(
	groups map[int]*group,
	tree *taxtree.Tree,
	floor string,
) (int, bool) {
	var (
		bestID    int
		bestDepth int
		found     bool
	)
	for id, g := range groups {
		if g.frozen {
			continue
		}
		rank, err := tree.RankOf(g.cur)
		if err != nil {
			continue
		}
		if rank == floor || g.cur == tree.Root().ID {
			g.frozen = true
			continue
		}
		d, err := tree.Depth(g.cur)
		if err != nil {
			continue
		}

		if !found {
			bestID, bestDepth, found = id, d, true
			continue
		}
		best := groups[bestID]
		switch {
		case g.count < best.count:
			bestID, bestDepth = id, d
		case g.count == best.count && d > bestDepth:
			bestID, bestDepth = id, d
		case g.count == best.count && d == bestDepth && id < bestID:
			bestID, bestDepth = id, d
		}
	}
	return bestID, found
}

// mergeSameTarget folds any other group that now shares the moved
// group's display node into it.
func mergeSameTarget(groups map[int]*group, moved int) {
	g := groups[moved]
	for id, other := range groups {
		if id == moved || other.cur != g.cur {
			continue
		}
		g.count += other.count
		g.members = append(g.members, other.members...)
		g.frozen = g.frozen || other.frozen
		delete(groups, id)
	}
}

func distinct(groups map[int]*group) int {
	return len(groups)
}
