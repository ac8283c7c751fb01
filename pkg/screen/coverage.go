package screen

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// CoverageSource tells how a coverage set's per-base table is obtained.
type CoverageSource int

const (
	// SourceNone marks a set without any usable source.
	SourceNone CoverageSource = iota
	// SourcePBC reads a precomputed per-base coverage table.
	SourcePBC
	// SourceBAM derives the table from a sorted read alignment.
	SourceBAM
	// SourceReads maps raw reads first, then derives the table.
	SourceReads
)

func (s CoverageSource) String() string {
	switch s {
	case SourcePBC:
		return "pbc"
	case SourceBAM:
		return "bam"
	case SourceReads:
		return "reads"
	}
	return "none"
}

// CoverageSet is one suffix-indexed coverage input. Exactly one source
// kind is used per set, the cheapest available: an existing per-base
// table beats an alignment, an alignment beats raw reads.
type CoverageSet struct {
	Index      int
	PBCPath    string
	BAMPath    string
	ReadPaths  []string
	InsertSize int
}

// Source picks the set's effective source kind.
func (s CoverageSet) Source() CoverageSource {
	switch {
	case s.PBCPath != "":
		return SourcePBC
	case s.BAMPath != "":
		return SourceBAM
	case len(s.ReadPaths) > 0:
		return SourceReads
	}
	return SourceNone
}

func (s CoverageSet) validate() error {
	if s.Source() == SourceNone {
		return fmt.Errorf(
			"coverage set %d has no source; give pbc_path_%d, bam_path_%d or read_paths_%d",
			s.Index, s.Index, s.Index, s.Index,
		)
	}
	if len(s.ReadPaths) > 2 {
		return fmt.Errorf(
			"read_paths_%d lists %d files, at most a read pair is supported",
			s.Index, len(s.ReadPaths),
		)
	}
	if s.InsertSize < 0 {
		return fmt.Errorf("insert_size_%d must not be negative", s.Index)
	}
	return nil
}

// parseCoverageKeys collects the suffix-indexed coverage keys from a
// flat run document. Set indexes must be contiguous starting at 1.
func parseCoverageKeys(raw map[string]yaml.Node) ([]CoverageSet, error) {
	sets := make(map[int]*CoverageSet)

	at := func(idx int) *CoverageSet {
		if s, ok := sets[idx]; ok {
			return s
		}
		s := &CoverageSet{Index: idx}
		sets[idx] = s
		return s
	}

	for key, node := range raw {
		base, idx, ok := splitIndexedKey(key)
		if !ok {
			continue
		}
		switch base {
		case "pbc_path":
			if err := node.Decode(&at(idx).PBCPath); err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
		case "bam_path":
			if err := node.Decode(&at(idx).BAMPath); err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
		case "read_paths":
			paths, err := decodePathList(node)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			at(idx).ReadPaths = paths
		case "insert_size":
			if err := node.Decode(&at(idx).InsertSize); err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
		}
	}

	res := make([]CoverageSet, 0, len(sets))
	for _, s := range sets {
		res = append(res, *s)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Index < res[j].Index })

	for i, s := range res {
		if s.Index != i+1 {
			return nil, fmt.Errorf(
				"coverage set indexes must be contiguous from 1, missing set %d", i+1,
			)
		}
	}
	return res, nil
}

// splitIndexedKey splits "pbc_path_2" into ("pbc_path", 2).
func splitIndexedKey(key string) (base string, idx int, ok bool) {
	i := strings.LastIndex(key, "_")
	if i <= 0 || i == len(key)-1 {
		return "", 0, false
	}
	idx, err := strconv.Atoi(key[i+1:])
	if err != nil || idx < 1 {
		return "", 0, false
	}
	base = key[:i]
	switch base {
	case "pbc_path", "bam_path", "read_paths", "insert_size":
		return base, idx, true
	}
	return "", 0, false
}

// decodePathList accepts either a YAML sequence of paths or one
// comma-separated scalar.
func decodePathList(node yaml.Node) ([]string, error) {
	var list []string
	if err := node.Decode(&list); err == nil {
		return trimAll(list), nil
	}

	var s string
	if err := node.Decode(&s); err != nil {
		return nil, err
	}
	return trimAll(strings.Split(s, ",")), nil
}

func trimAll(xs []string) []string {
	res := make([]string, 0, len(xs))
	for _, x := range xs {
		if t := strings.TrimSpace(x); t != "" {
			res = append(res, t)
		}
	}
	return res
}
