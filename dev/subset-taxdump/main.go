// subset-taxdump extracts subtrees from an NCBI taxdump.
//
// Screening always loads a taxonomy, and the full NCBI dump holds
// around 2.7 million taxa. This tool keeps one or more subtrees plus
// their lineages up to the root, producing a small nodes.dmp and
// names.dmp pair that still forms a valid tree. The subsets are used
// as test fixtures and for quick local runs.
//
// Only names of class "scientific name" survive the subset, which is
// all the screen reads anyway.
//
// Usage:
//
//	go run . <taxdump-dir> <output-dir> <taxon-id> [<taxon-id>...]
//
// Examples:
//
//	go run . ~/taxdump testdata/taxdump 7215
//	go run . ~/taxdump testdata/taxdump 7215 561 5820
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/taxsieve/taxsieve/internal/iotaxonomy"
	"github.com/taxsieve/taxsieve/pkg/taxtree"
)

func main() {
	if len(os.Args) < 4 {
		fmt.Fprintf(os.Stderr, "Usage: %s <taxdump-dir> <output-dir> <taxon-id> [<taxon-id>...]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Arguments:\n")
		fmt.Fprintf(os.Stderr, "  taxdump-dir  directory with nodes.dmp and names.dmp\n")
		fmt.Fprintf(os.Stderr, "  output-dir   directory for the subset dump pair\n")
		fmt.Fprintf(os.Stderr, "  taxon-id     root of a subtree to keep, repeatable\n\n")
		fmt.Fprintf(os.Stderr, "Examples:\n")
		fmt.Fprintf(os.Stderr, "  %s ~/taxdump testdata/taxdump 7215\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s ~/taxdump testdata/taxdump 7215 561 5820\n", os.Args[0])
		os.Exit(1)
	}

	srcDir := os.Args[1]
	outDir := os.Args[2]

	var roots []int
	for _, arg := range os.Args[3:] {
		id, err := strconv.Atoi(arg)
		if err != nil || id < 1 {
			fmt.Fprintf(os.Stderr, "Bad taxon id %q\n", arg)
			os.Exit(1)
		}
		roots = append(roots, id)
	}

	// Setup logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx := context.Background()

	logger.Info("starting taxdump subset extraction",
		"source", srcDir,
		"subtrees", len(roots),
		"output", outDir,
	)

	if err := createSubset(ctx, logger, srcDir, outDir, roots); err != nil {
		logger.Error("subset extraction failed", "error", err)
		os.Exit(1)
	}

	logger.Info("subset extraction complete", "output", outDir)
}

// createSubset loads the full dump, marks the requested subtrees and
// their ancestor chains, and writes the kept nodes as a dump pair.
func createSubset(
	ctx context.Context,
	logger *slog.Logger,
	srcDir, outDir string,
	roots []int,
) error {
	nodesPath := filepath.Join(srcDir, "nodes.dmp")
	namesPath := filepath.Join(srcDir, "names.dmp")

	nodes, err := iotaxonomy.LoadDump(ctx, nodesPath, namesPath)
	if err != nil {
		return fmt.Errorf("failed to load taxdump: %w", err)
	}

	tree, err := taxtree.New(nodes)
	if err != nil {
		return fmt.Errorf("taxdump is not a valid tree: %w", err)
	}

	// Map key = taxon id, value dropped - we just care about presence.
	// Ancestor chains keep the subset connected all the way to the root.
	keep := make(map[int]bool)
	for _, root := range roots {
		lineage, err := tree.Lineage(root)
		if err != nil {
			return fmt.Errorf("unknown subtree root %d: %w", root, err)
		}
		for _, n := range lineage {
			keep[n.ID] = true
		}
	}
	logger.Info("ancestor chains marked", "kept", len(keep))

	for _, n := range nodes {
		if keep[n.ID] {
			continue
		}
		for _, root := range roots {
			inSubtree, err := tree.IsAncestor(root, n.ID)
			if err != nil {
				return fmt.Errorf("subtree check failed for %d: %w", n.ID, err)
			}
			if inSubtree {
				keep[n.ID] = true
				break
			}
		}
	}
	logger.Info("subtrees marked", "kept", len(keep), "of", len(nodes))

	kept, err := writeSubset(outDir, nodes, keep)
	if err != nil {
		return err
	}

	logger.Info("subset written",
		"taxa", kept,
		"nodes_dmp", filepath.Join(outDir, "nodes.dmp"),
		"names_dmp", filepath.Join(outDir, "names.dmp"),
	)
	return nil
}

// writeSubset writes kept nodes in the dump format the screen reads:
// fields separated by "\t|\t", rows closed with "\t|". Source order is
// preserved so diffs against other subsets stay stable.
func writeSubset(
	outDir string,
	nodes []taxtree.Node,
	keep map[int]bool,
) (int, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create output directory: %w", err)
	}

	nodesFile, err := os.Create(filepath.Join(outDir, "nodes.dmp"))
	if err != nil {
		return 0, fmt.Errorf("failed to create nodes.dmp: %w", err)
	}
	defer nodesFile.Close()

	namesFile, err := os.Create(filepath.Join(outDir, "names.dmp"))
	if err != nil {
		return 0, fmt.Errorf("failed to create names.dmp: %w", err)
	}
	defer namesFile.Close()

	nodesW := bufio.NewWriter(nodesFile)
	namesW := bufio.NewWriter(namesFile)

	var count int
	for _, n := range nodes {
		if !keep[n.ID] {
			continue
		}
		fmt.Fprintf(nodesW, "%d\t|\t%d\t|\t%s\t|\t\t|\n",
			n.ID, n.ParentID, n.Rank)
		if n.Name != "" {
			fmt.Fprintf(namesW, "%d\t|\t%s\t|\t\t|\tscientific name\t|\n",
				n.ID, n.Name)
		}
		count++
	}

	if err = nodesW.Flush(); err != nil {
		return count, fmt.Errorf("failed to write nodes.dmp: %w", err)
	}
	if err = namesW.Flush(); err != nil {
		return count, fmt.Errorf("failed to write names.dmp: %w", err)
	}
	return count, nil
}
