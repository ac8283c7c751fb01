package iocoverage

import (
	"fmt"

	"github.com/gnames/gn"

	"github.com/taxsieve/taxsieve/pkg/errcode"
)

// ReadError happens when a per-base coverage table cannot be read.
func ReadError(path string, err error) error {
	return &gn.Error{
		Code: errcode.CoverageReadError,
		Msg: fmt.Sprintf(
			"Cannot read per-base coverage table <em>%s</em>", path,
		),
		Vars: []string{path},
		Err:  err,
	}
}

// ParseError happens when a coverage table row cannot be understood.
func ParseError(path string, line int, reason string) error {
	return &gn.Error{
		Code: errcode.CoverageReadError,
		Msg: fmt.Sprintf(
			"Wrong format in coverage table <em>%s</em>, line %d: %s",
			path, line, reason,
		),
		Vars: []string{path},
		Err:  fmt.Errorf("iocoverage: %s:%d: %s", path, line, reason),
	}
}

// MissingFileError happens when a configured coverage input does not
// exist.
func MissingFileError(path string, err error) error {
	return &gn.Error{
		Code: errcode.CoverageReadError,
		Msg: fmt.Sprintf(
			"Cannot find the configured coverage file <em>%s</em>", path,
		),
		Vars: []string{path},
		Err:  err,
	}
}

// WriteError happens when a derived coverage table cannot be created.
func WriteError(path string, err error) error {
	return &gn.Error{
		Code: errcode.CoverageReadError,
		Msg: fmt.Sprintf(
			"Cannot write per-base coverage table <em>%s</em>", path,
		),
		Vars: []string{path},
		Err:  err,
	}
}

// NoSourceError happens when a coverage set reaches the resolver with
// no usable source, validation normally rejects this earlier.
func NoSourceError(setIdx int) error {
	return &gn.Error{
		Code: errcode.CoverageReadError,
		Msg: fmt.Sprintf(
			"Coverage set %d has no usable source", setIdx,
		),
		Vars: []string{fmt.Sprintf("%d", setIdx)},
		Err:  fmt.Errorf("iocoverage: set %d has no source", setIdx),
	}
}
