package iogff

import (
	"fmt"

	"github.com/gnames/gn"
	"github.com/taxsieve/taxsieve/pkg/errcode"
)

// ReadError creates an error for when the annotation cannot be read.
func ReadError(path string, err error) error {
	msg := "Cannot read annotation <em>%s</em>"
	vars := []any{path}
	return &gn.Error{
		Code: errcode.AnnotationReadError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("cannot read annotation %s: %w", path, err),
	}
}

// ParseError creates an error for a malformed annotation row.
func ParseError(path string, line int, reason string) error {
	msg := "Annotation <em>%s</em> is malformed at line %d: %s"
	vars := []any{path, line, reason}
	return &gn.Error{
		Code: errcode.AnnotationReadError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf("malformed annotation row %s:%d: %s",
			path, line, reason),
	}
}

// DuplicateGeneError creates an error for repeated gene identifiers.
func DuplicateGeneError(path, id string) error {
	msg := "Annotation <em>%s</em> contains gene <em>%s</em> more than once"
	vars := []any{path, id}
	return &gn.Error{
		Code: errcode.AnnotationReadError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("duplicate gene id %q in %s", id, path),
	}
}
