// Package taxtree provides an immutable, in-memory taxonomy tree with
// lineage, ancestry, rank and lowest-common-ancestor queries.
//
// A Tree is built once from a flat node list and is safe for any number
// of concurrent readers afterwards.
package taxtree

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformed reports a node list that cannot form a single rooted
	// tree: duplicate ids, missing parents, zero or several roots, or a
	// circular parent chain.
	ErrMalformed = errors.New("malformed taxonomy")

	// ErrUnknownTaxon reports a query for a taxon id absent from the tree.
	ErrUnknownTaxon = errors.New("unknown taxon")
)

// Node is a single taxon. A node whose ParentID equals its own ID, or is
// zero, is the root.
type Node struct {
	ID       int
	ParentID int
	Name     string
	Rank     string
}

// Tree is a read-only taxonomy. Nodes live in a contiguous arena; parent
// links and depths are resolved at construction time, so every query is
// a pointer chase without map lookups past the entry node.
type Tree struct {
	nodes  []Node
	parent []int32
	depth  []int32
	index  map[int]int32
	byName map[string]int32
	root   int32
}

// New builds a Tree from a flat node list. It verifies that ids are
// unique and positive, that every parent exists, that exactly one root
// is present, and that no parent chain is circular.
func New(nodes []Node) (*Tree, error) {
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: empty node list", ErrMalformed)
	}

	t := &Tree{
		nodes:  make([]Node, len(nodes)),
		parent: make([]int32, len(nodes)),
		depth:  make([]int32, len(nodes)),
		index:  make(map[int]int32, len(nodes)),
		root:   -1,
	}
	copy(t.nodes, nodes)

	for i, n := range t.nodes {
		if n.ID <= 0 {
			return nil, fmt.Errorf("%w: invalid taxon id %d", ErrMalformed, n.ID)
		}
		if _, ok := t.index[n.ID]; ok {
			return nil, fmt.Errorf("%w: duplicate taxon id %d", ErrMalformed, n.ID)
		}
		t.index[n.ID] = int32(i)
	}

	for i, n := range t.nodes {
		if n.ParentID == n.ID || n.ParentID == 0 {
			if t.root >= 0 {
				return nil, fmt.Errorf(
					"%w: taxa %d and %d both claim root",
					ErrMalformed, t.nodes[t.root].ID, n.ID,
				)
			}
			t.root = int32(i)
			t.parent[i] = int32(i)
			continue
		}
		pi, ok := t.index[n.ParentID]
		if !ok {
			return nil, fmt.Errorf(
				"%w: taxon %d references missing parent %d",
				ErrMalformed, n.ID, n.ParentID,
			)
		}
		t.parent[i] = pi
	}
	if t.root < 0 {
		return nil, fmt.Errorf("%w: no root node", ErrMalformed)
	}

	for i := range t.depth {
		t.depth[i] = -1
	}
	t.depth[t.root] = 0
	for i := range t.nodes {
		if err := t.resolveDepth(int32(i)); err != nil {
			return nil, err
		}
	}

	// name lookup; on homonyms the first node keeps the name
	t.byName = make(map[string]int32, len(t.nodes))
	for i, n := range t.nodes {
		key := strings.ToLower(n.Name)
		if key == "" {
			continue
		}
		if _, ok := t.byName[key]; !ok {
			t.byName[key] = int32(i)
		}
	}

	return t, nil
}

// resolveDepth walks up the parent chain until a node with a known depth
// is found, then assigns depths back down the collected path. A visited
// set guards against circular chains.
func (t *Tree) resolveDepth(i int32) error {
	var path []int32
	visited := make(map[int32]bool)

	cur := i
	for t.depth[cur] < 0 {
		if visited[cur] {
			return fmt.Errorf(
				"%w: circular parent chain at taxon %d",
				ErrMalformed, t.nodes[cur].ID,
			)
		}
		visited[cur] = true
		path = append(path, cur)
		cur = t.parent[cur]
	}

	d := t.depth[cur]
	for j := len(path) - 1; j >= 0; j-- {
		d++
		t.depth[path[j]] = d
	}

	return nil
}

func (t *Tree) at(id int) (int32, error) {
	i, ok := t.index[id]
	if !ok {
		return 0, fmt.Errorf("%w: id %d", ErrUnknownTaxon, id)
	}
	return i, nil
}

// Len returns the number of taxa in the tree.
func (t *Tree) Len() int { return len(t.nodes) }

// Root returns the root node.
func (t *Tree) Root() Node { return t.nodes[t.root] }

// Has reports whether the taxon id exists in the tree.
func (t *Tree) Has(id int) bool {
	_, ok := t.index[id]
	return ok
}

// Node returns the node for the given taxon id.
func (t *Tree) Node(id int) (Node, error) {
	i, err := t.at(id)
	if err != nil {
		return Node{}, err
	}
	return t.nodes[i], nil
}

// NameOf returns the taxon's name.
func (t *Tree) NameOf(id int) (string, error) {
	n, err := t.Node(id)
	return n.Name, err
}

// RankOf returns the taxon's rank as stored, normally lower-case.
func (t *Tree) RankOf(id int) (string, error) {
	n, err := t.Node(id)
	return n.Rank, err
}

// Depth returns the taxon's distance from the root. The root has depth 0.
func (t *Tree) Depth(id int) (int, error) {
	i, err := t.at(id)
	if err != nil {
		return 0, err
	}
	return int(t.depth[i]), nil
}

// Parent returns the taxon's parent node. The root is its own parent.
func (t *Tree) Parent(id int) (Node, error) {
	i, err := t.at(id)
	if err != nil {
		return Node{}, err
	}
	return t.nodes[t.parent[i]], nil
}

// Lineage returns the path from the taxon to the root, the taxon itself
// first and the root last. It never repeats a node.
func (t *Tree) Lineage(id int) ([]Node, error) {
	i, err := t.at(id)
	if err != nil {
		return nil, err
	}

	res := make([]Node, 0, t.depth[i]+1)
	for {
		res = append(res, t.nodes[i])
		if i == t.root {
			return res, nil
		}
		i = t.parent[i]
	}
}

// IsAncestor reports whether anc lies on desc's lineage. A taxon counts
// as its own ancestor, so IsAncestor(x, x) is true.
func (t *Tree) IsAncestor(anc, desc int) (bool, error) {
	ai, err := t.at(anc)
	if err != nil {
		return false, err
	}
	di, err := t.at(desc)
	if err != nil {
		return false, err
	}

	for t.depth[di] > t.depth[ai] {
		di = t.parent[di]
	}
	return ai == di, nil
}

// LCA returns the lowest common ancestor of two taxa. LCA(x, x) is x,
// and the result does not depend on argument order.
func (t *Tree) LCA(a, b int) (Node, error) {
	ai, err := t.at(a)
	if err != nil {
		return Node{}, err
	}
	bi, err := t.at(b)
	if err != nil {
		return Node{}, err
	}
	return t.nodes[t.lca(ai, bi)], nil
}

// lca equalizes depths, then advances both cursors in lock step until
// they meet. Termination is guaranteed because both paths end at root.
func (t *Tree) lca(ai, bi int32) int32 {
	for t.depth[ai] > t.depth[bi] {
		ai = t.parent[ai]
	}
	for t.depth[bi] > t.depth[ai] {
		bi = t.parent[bi]
	}
	for ai != bi {
		ai = t.parent[ai]
		bi = t.parent[bi]
	}
	return ai
}

// Divergence counts the query-lineage steps below the lowest common
// ancestor of query and other. It is 0 when other is the query itself or
// one of its descendants, and grows as the two taxa are further apart on
// the query's side of the tree.
func (t *Tree) Divergence(query, other int) (int, error) {
	qi, err := t.at(query)
	if err != nil {
		return 0, err
	}
	oi, err := t.at(other)
	if err != nil {
		return 0, err
	}
	return int(t.depth[qi] - t.depth[t.lca(qi, oi)]), nil
}

// ByName finds a taxon by its name, case-insensitively. For homonyms
// the node listed first wins.
func (t *Tree) ByName(name string) (Node, bool) {
	i, ok := t.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Node{}, false
	}
	return t.nodes[i], true
}

// AncestorAtRank walks the taxon's lineage towards the root and returns
// the first node whose rank matches, or ok=false when the lineage has no
// node of that rank. The match is case-insensitive.
func (t *Tree) AncestorAtRank(id int, rank string) (Node, bool, error) {
	i, err := t.at(id)
	if err != nil {
		return Node{}, false, err
	}

	rank = strings.ToLower(rank)
	for {
		if strings.ToLower(t.nodes[i].Rank) == rank {
			return t.nodes[i], true, nil
		}
		if i == t.root {
			return Node{}, false, nil
		}
		i = t.parent[i]
	}
}
