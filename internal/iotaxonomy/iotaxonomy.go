// Package iotaxonomy loads the NCBI taxonomy into a taxtree.Tree.
//
// Two sources are supported: the nodes.dmp/names.dmp pair from an NCBI
// taxdump archive, and a SQLite cache built from a previous load. Parsing
// the dump pair takes a while for the full taxonomy, so Load refreshes the
// cache whenever dump files are given and reads the cache otherwise.
package iotaxonomy

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cheggaaa/pb/v3"
	"github.com/dustin/go-humanize"

	"github.com/taxsieve/taxsieve/pkg/taxtree"
)

// Options selects the taxonomy source.
type Options struct {
	// NodesPath and NamesPath point to nodes.dmp and names.dmp from an
	// NCBI taxdump archive. Both must be set together.
	NodesPath string
	NamesPath string

	// CacheDir is the directory holding the SQLite cache. When dump paths
	// are given the cache is rebuilt there; otherwise it is the source.
	CacheDir string
}

// Load builds the taxonomy tree from the configured source.
func Load(ctx context.Context, opt Options) (*taxtree.Tree, error) {
	var nodes []taxtree.Node
	var err error

	switch {
	case opt.NodesPath != "" && opt.NamesPath != "":
		nodes, err = LoadDump(ctx, opt.NodesPath, opt.NamesPath)
		if err != nil {
			return nil, err
		}
		if opt.CacheDir != "" {
			if err = SaveCache(ctx, CachePath(opt.CacheDir), nodes); err != nil {
				return nil, err
			}
		}
	case opt.NodesPath != "" || opt.NamesPath != "":
		return nil, DumpPairError(opt.NodesPath, opt.NamesPath)
	default:
		nodes, err = LoadCache(ctx, CachePath(opt.CacheDir))
		if err != nil {
			return nil, err
		}
	}

	tree, err := taxtree.New(nodes)
	if err != nil {
		return nil, MalformedError(err)
	}

	slog.Info("Taxonomy loaded",
		"taxa", tree.Len(),
		"root", tree.Root(),
	)
	return tree, nil
}

// LoadDump parses a nodes.dmp/names.dmp pair into taxonomy nodes.
// Only names of class "scientific name" are kept.
func LoadDump(
	ctx context.Context,
	nodesPath, namesPath string,
) ([]taxtree.Node, error) {
	nodes, index, err := readNodes(ctx, nodesPath)
	if err != nil {
		return nil, err
	}

	named, err := readNames(ctx, namesPath, nodes, index)
	if err != nil {
		return nil, err
	}

	slog.Info("Taxdump parsed",
		"nodes", humanize.Comma(int64(len(nodes))),
		"named", humanize.Comma(int64(named)),
	)
	return nodes, nil
}

// readNodes streams nodes.dmp. Each row carries the taxon id, the parent
// id and the rank in its first three fields.
func readNodes(
	ctx context.Context,
	path string,
) ([]taxtree.Node, map[int]int, error) {
	f, info, err := openDump(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	bar := pb.Full.Start64(info.Size())
	bar.Set("prefix", "Reading nodes: ")
	bar.Set(pb.Bytes, true)
	bar.Set(pb.CleanOnFinish, true)
	defer bar.Finish()

	var nodes []taxtree.Node
	index := make(map[int]int)

	sc := newDumpScanner(bar.NewProxyReader(f))
	lineNo := 0
	for sc.Scan() {
		lineNo++
		if lineNo%50_000 == 0 {
			if err = ctx.Err(); err != nil {
				return nil, nil, err
			}
		}

		fields := splitDumpLine(sc.Text())
		if len(fields) < 3 {
			return nil, nil, DumpParseError(path, lineNo,
				"expected at least 3 fields")
		}

		id, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, nil, DumpParseError(path, lineNo,
				"taxon id is not a number")
		}
		parentID, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, nil, DumpParseError(path, lineNo,
				"parent id is not a number")
		}

		index[id] = len(nodes)
		nodes = append(nodes, taxtree.Node{
			ID:       id,
			ParentID: parentID,
			Rank:     fields[2],
		})
	}
	if err = sc.Err(); err != nil {
		return nil, nil, DumpReadError(path, err)
	}

	return nodes, index, nil
}

// readNames streams names.dmp and attaches scientific names to the nodes
// collected from nodes.dmp. Rows for unknown taxa are skipped.
func readNames(
	ctx context.Context,
	path string,
	nodes []taxtree.Node,
	index map[int]int,
) (int, error) {
	f, info, err := openDump(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	bar := pb.Full.Start64(info.Size())
	bar.Set("prefix", "Reading names: ")
	bar.Set(pb.Bytes, true)
	bar.Set(pb.CleanOnFinish, true)
	defer bar.Finish()

	var named int
	sc := newDumpScanner(bar.NewProxyReader(f))
	lineNo := 0
	for sc.Scan() {
		lineNo++
		if lineNo%50_000 == 0 {
			if err = ctx.Err(); err != nil {
				return 0, err
			}
		}

		fields := splitDumpLine(sc.Text())
		if len(fields) < 4 {
			return 0, DumpParseError(path, lineNo,
				"expected at least 4 fields")
		}
		if fields[3] != "scientific name" {
			continue
		}

		id, err := strconv.Atoi(fields[0])
		if err != nil {
			return 0, DumpParseError(path, lineNo,
				"taxon id is not a number")
		}

		i, ok := index[id]
		if !ok {
			continue
		}
		if nodes[i].Name == "" {
			nodes[i].Name = fields[1]
			named++
		}
	}
	if err = sc.Err(); err != nil {
		return 0, DumpReadError(path, err)
	}

	return named, nil
}

func openDump(path string) (*os.File, os.FileInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, DumpReadError(path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, DumpReadError(path, err)
	}
	return f, info, nil
}

func newDumpScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 256*1024), 1024*1024)
	return sc
}

// splitDumpLine breaks a taxdump row into fields. Rows use "\t|\t" as the
// separator and end with "\t|".
func splitDumpLine(line string) []string {
	line = strings.TrimSuffix(line, "\t|")
	fields := strings.Split(line, "\t|\t")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields
}

// CachePath returns the SQLite cache location inside dir.
func CachePath(dir string) string {
	return filepath.Join(dir, "taxonomy.sqlite")
}
