package taxtree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testNodes is a pruned slice of the NCBI taxonomy around insects,
// fungi and enterobacteria.
func testNodes() []Node {
	return []Node{
		{ID: 1, ParentID: 1, Name: "root", Rank: "no rank"},
		{ID: 131567, ParentID: 1, Name: "cellular organisms", Rank: "no rank"},
		{ID: 2759, ParentID: 131567, Name: "Eukaryota", Rank: "superkingdom"},
		{ID: 33154, ParentID: 2759, Name: "Opisthokonta", Rank: "clade"},
		{ID: 33208, ParentID: 33154, Name: "Metazoa", Rank: "kingdom"},
		{ID: 6656, ParentID: 33208, Name: "Arthropoda", Rank: "phylum"},
		{ID: 50557, ParentID: 6656, Name: "Insecta", Rank: "class"},
		{ID: 7215, ParentID: 50557, Name: "Drosophila", Rank: "genus"},
		{ID: 7227, ParentID: 7215, Name: "Drosophila melanogaster", Rank: "species"},
		{ID: 4751, ParentID: 33154, Name: "Fungi", Rank: "kingdom"},
		{ID: 2, ParentID: 131567, Name: "Bacteria", Rank: "superkingdom"},
		{ID: 1224, ParentID: 2, Name: "Pseudomonadota", Rank: "phylum"},
		{ID: 561, ParentID: 1224, Name: "Escherichia", Rank: "genus"},
		{ID: 562, ParentID: 561, Name: "Escherichia coli", Rank: "species"},
	}
}

func testTree(t *testing.T) *Tree {
	t.Helper()
	tree, err := New(testNodes())
	require.NoError(t, err)
	return tree
}

func TestNewRejectsMalformedInput(t *testing.T) {
	tests := []struct {
		name  string
		nodes []Node
	}{
		{"empty input", nil},
		{
			"duplicate id",
			[]Node{
				{ID: 1, ParentID: 1},
				{ID: 7, ParentID: 1},
				{ID: 7, ParentID: 1},
			},
		},
		{
			"missing parent",
			[]Node{
				{ID: 1, ParentID: 1},
				{ID: 7, ParentID: 99},
			},
		},
		{
			"two roots",
			[]Node{
				{ID: 1, ParentID: 1},
				{ID: 2, ParentID: 2},
			},
		},
		{
			"no root",
			[]Node{
				{ID: 1, ParentID: 2},
				{ID: 2, ParentID: 1},
			},
		},
		{
			"cycle below root",
			[]Node{
				{ID: 1, ParentID: 1},
				{ID: 2, ParentID: 3},
				{ID: 3, ParentID: 2},
			},
		},
		{
			"non-positive id",
			[]Node{
				{ID: 1, ParentID: 1},
				{ID: -4, ParentID: 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := New(tt.nodes)
			assert.Nil(t, tree)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestLineage(t *testing.T) {
	tree := testTree(t)

	tests := []struct {
		name string
		id   int
		ids  []int
	}{
		{"root", 1, []int{1}},
		{"superkingdom", 2, []int{2, 131567, 1}},
		{
			"species", 7227,
			[]int{7227, 7215, 50557, 6656, 33208, 33154, 2759, 131567, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lin, err := tree.Lineage(tt.id)
			require.NoError(t, err)

			ids := make([]int, len(lin))
			seen := make(map[int]bool)
			for i, n := range lin {
				ids[i] = n.ID
				assert.False(t, seen[n.ID], "lineage repeats taxon %d", n.ID)
				seen[n.ID] = true
			}
			assert.Equal(t, tt.ids, ids)
			assert.Equal(t, tt.id, lin[0].ID)
			assert.Equal(t, 1, lin[len(lin)-1].ID)
		})
	}

	_, err := tree.Lineage(424242)
	assert.ErrorIs(t, err, ErrUnknownTaxon)
}

func TestIsAncestor(t *testing.T) {
	tree := testTree(t)

	tests := []struct {
		name     string
		anc, des int
		want     bool
	}{
		{"self", 7227, 7227, true},
		{"direct parent", 7215, 7227, true},
		{"deep ancestor", 2759, 7227, true},
		{"root over everything", 1, 562, true},
		{"reversed arguments", 7227, 7215, false},
		{"separate kingdoms", 4751, 7227, false},
		{"separate superkingdoms", 2, 7227, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tree.IsAncestor(tt.anc, tt.des)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLCA(t *testing.T) {
	tree := testTree(t)

	tests := []struct {
		name string
		a, b int
		want int
	}{
		{"identity", 7227, 7227, 7227},
		{"ancestor and descendant", 6656, 7227, 6656},
		{"fly and fungus", 7227, 4751, 33154},
		{"fly and coli", 7227, 562, 131567},
		{"two bacteria", 561, 1224, 1224},
		{"root involved", 1, 7227, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tree.LCA(tt.a, tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.ID)

			// argument order must not matter
			rev, err := tree.LCA(tt.b, tt.a)
			require.NoError(t, err)
			assert.Equal(t, got.ID, rev.ID)
		})
	}

	_, err := tree.LCA(7227, 424242)
	assert.ErrorIs(t, err, ErrUnknownTaxon)
}

func TestDivergence(t *testing.T) {
	tree := testTree(t)

	tests := []struct {
		name         string
		query, other int
		want         int
	}{
		{"same taxon", 7227, 7227, 0},
		{"descendant of query", 7215, 7227, 0},
		{"parent of query", 7227, 7215, 1},
		{"fungus from fly", 7227, 4751, 5},
		{"coli from fly", 7227, 562, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tree.Divergence(tt.query, tt.other)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRankAndNameQueries(t *testing.T) {
	tree := testTree(t)

	rank, err := tree.RankOf(7215)
	require.NoError(t, err)
	assert.Equal(t, "genus", rank)

	name, err := tree.NameOf(562)
	require.NoError(t, err)
	assert.Equal(t, "Escherichia coli", name)

	depth, err := tree.Depth(1)
	require.NoError(t, err)
	assert.Equal(t, 0, depth)

	parent, err := tree.Parent(1)
	require.NoError(t, err)
	assert.Equal(t, 1, parent.ID, "root is its own parent")

	assert.True(t, tree.Has(2759))
	assert.False(t, tree.Has(424242))
	assert.Equal(t, len(testNodes()), tree.Len())
	assert.Equal(t, 1, tree.Root().ID)

	_, err = tree.RankOf(424242)
	assert.ErrorIs(t, err, ErrUnknownTaxon)
}

func TestByName(t *testing.T) {
	tree := testTree(t)

	n, ok := tree.ByName("Drosophila")
	require.True(t, ok)
	assert.Equal(t, 7215, n.ID)

	n, ok = tree.ByName("  fungi ")
	require.True(t, ok)
	assert.Equal(t, 4751, n.ID)

	_, ok = tree.ByName("No such taxon")
	assert.False(t, ok)
}

func TestAncestorAtRank(t *testing.T) {
	tree := testTree(t)

	tests := []struct {
		name   string
		id     int
		rank   string
		wantID int
		ok     bool
	}{
		{"own rank", 7227, "species", 7227, true},
		{"genus of species", 7227, "genus", 7215, true},
		{"phylum of species", 7227, "phylum", 6656, true},
		{"case insensitive", 7227, "Superkingdom", 2759, true},
		{"rank not on lineage", 2, "genus", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, ok, err := tree.AncestorAtRank(tt.id, tt.rank)
			require.NoError(t, err)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.wantID, node.ID)
			}
		})
	}
}
