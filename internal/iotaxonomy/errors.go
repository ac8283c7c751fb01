package iotaxonomy

import (
	"fmt"

	"github.com/gnames/gn"
	"github.com/taxsieve/taxsieve/pkg/errcode"
)

// DumpReadError creates an error for when a taxdump file cannot be read.
func DumpReadError(path string, err error) error {
	msg := "Cannot read taxonomy dump <em>%s</em>"
	vars := []any{path}
	return &gn.Error{
		Code: errcode.TaxonomyDumpError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("cannot read taxdump %s: %w", path, err),
	}
}

// DumpParseError creates an error for a malformed taxdump row.
func DumpParseError(path string, line int, reason string) error {
	msg := "Taxonomy dump <em>%s</em> is malformed at line %d: %s"
	vars := []any{path, line, reason}
	return &gn.Error{
		Code: errcode.TaxonomyDumpError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf("malformed taxdump row %s:%d: %s",
			path, line, reason),
	}
}

// DumpPairError creates an error for when only one of the two dump files
// is configured.
func DumpPairError(nodesPath, namesPath string) error {
	msg := `Taxonomy dump files must be given together

<em>taxdump_nodes:</em> %q
<em>taxdump_names:</em> %q

<em>How to fix:</em>
  1. Set both taxdump_nodes and taxdump_names in the run document
  2. Or drop both to use the taxonomy cache`

	vars := []any{nodesPath, namesPath}
	return &gn.Error{
		Code: errcode.TaxonomyDumpError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf(
			"incomplete taxdump pair: nodes=%q names=%q",
			nodesPath, namesPath),
	}
}

// MalformedError creates an error for when the parsed taxonomy breaks
// tree invariants (unknown parents, cycles, several roots).
func MalformedError(err error) error {
	msg := "Taxonomy data is inconsistent: %v"
	vars := []any{err}
	return &gn.Error{
		Code: errcode.TaxonomyMalformedError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("inconsistent taxonomy: %w", err),
	}
}

// CacheOpenError creates an error for when the SQLite cache cannot be
// opened.
func CacheOpenError(path string, err error) error {
	msg := "Cannot open taxonomy cache <em>%s</em>"
	vars := []any{path}
	return &gn.Error{
		Code: errcode.TaxonomyCacheError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("cannot open taxonomy cache %s: %w", path, err),
	}
}

// CacheReadError creates an error for when the SQLite cache cannot be
// queried.
func CacheReadError(path string, err error) error {
	msg := "Cannot read taxonomy cache <em>%s</em>"
	vars := []any{path}
	return &gn.Error{
		Code: errcode.TaxonomyCacheError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("cannot read taxonomy cache %s: %w", path, err),
	}
}

// CacheWriteError creates an error for when the SQLite cache cannot be
// written.
func CacheWriteError(path string, err error) error {
	msg := "Cannot write taxonomy cache <em>%s</em>"
	vars := []any{path}
	return &gn.Error{
		Code: errcode.TaxonomyCacheError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("cannot write taxonomy cache %s: %w", path, err),
	}
}

// CacheMissingError creates an error for when no usable cache exists and
// no dump files were configured.
func CacheMissingError(path string) error {
	msg := `No taxonomy cache found

<em>Expected location:</em> %s

<em>How to fix:</em>
  1. Download taxdump.tar.gz from the NCBI FTP site and unpack it
  2. Set taxdump_nodes and taxdump_names in the run document
  3. The cache is rebuilt automatically on the next run`

	vars := []any{path}
	return &gn.Error{
		Code: errcode.TaxonomyCacheError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("taxonomy cache missing: %s", path),
	}
}
