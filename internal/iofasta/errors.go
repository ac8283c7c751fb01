package iofasta

import (
	"fmt"

	"github.com/gnames/gn"
	"github.com/taxsieve/taxsieve/pkg/errcode"
)

// ReadError creates an error for when the assembly FASTA cannot be read.
func ReadError(path string, err error) error {
	msg := "Cannot read assembly <em>%s</em>"
	vars := []any{path}
	return &gn.Error{
		Code: errcode.AssemblyReadError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("cannot read assembly %s: %w", path, err),
	}
}

// EmptyAssemblyError creates an error for a FASTA without sequences.
func EmptyAssemblyError(path string) error {
	msg := "Assembly <em>%s</em> contains no sequences"
	vars := []any{path}
	return &gn.Error{
		Code: errcode.AssemblyReadError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("empty assembly: %s", path),
	}
}

// EmptyIDError creates an error for a record without an identifier.
func EmptyIDError(path string, record int) error {
	msg := "Record %d of <em>%s</em> has no identifier"
	vars := []any{record, path}
	return &gn.Error{
		Code: errcode.AssemblyReadError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("record %d of %s has no identifier", record, path),
	}
}

// DuplicateIDError creates an error for repeated contig identifiers.
func DuplicateIDError(path, id string) error {
	msg := "Assembly <em>%s</em> contains contig <em>%s</em> more than once"
	vars := []any{path, id}
	return &gn.Error{
		Code: errcode.AssemblyReadError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("duplicate contig id %q in %s", id, path),
	}
}
