package ioaligner

import (
	"fmt"

	"github.com/gnames/gn"

	"github.com/taxsieve/taxsieve/pkg/errcode"
)

// ReadError happens when a hit table cannot be read.
func ReadError(path string, err error) error {
	return &gn.Error{
		Code: errcode.AlignerParseError,
		Msg:  fmt.Sprintf("Cannot read hit table <em>%s</em>", path),
		Vars: []string{path},
		Err:  err,
	}
}

// ParseError happens when a hit table row cannot be understood.
func ParseError(path string, line int, reason string) error {
	return &gn.Error{
		Code: errcode.AlignerParseError,
		Msg: fmt.Sprintf(
			"Wrong format in hit table <em>%s</em>, line %d: %s",
			path, line, reason,
		),
		Vars: []string{path},
		Err:  fmt.Errorf("ioaligner: %s:%d: %s", path, line, reason),
	}
}

// MissingTableError happens when a configured precomputed hit table
// does not exist.
func MissingTableError(path string, err error) error {
	return &gn.Error{
		Code: errcode.AlignerParseError,
		Msg: fmt.Sprintf(
			"Cannot find the configured hit table <em>%s</em>", path,
		),
		Vars: []string{path},
		Err:  err,
	}
}
