package ioreport

import (
	"fmt"

	"github.com/gnames/gn"

	"github.com/taxsieve/taxsieve/pkg/errcode"
)

// WriteError happens when a result table cannot be created.
func WriteError(path string, err error) error {
	return &gn.Error{
		Code: errcode.ScreenReportError,
		Msg: fmt.Sprintf(
			"Cannot write result table <em>%s</em>", path,
		),
		Vars: []string{path},
		Err:  err,
	}
}

// SnapshotWriteError happens when the run snapshot cannot be stored.
func SnapshotWriteError(path string, err error) error {
	return &gn.Error{
		Code: errcode.ScreenSnapshotError,
		Msg: fmt.Sprintf(
			"Cannot write run snapshot <em>%s</em>", path,
		),
		Vars: []string{path},
		Err:  err,
	}
}

// SnapshotReadError happens when plots mode cannot read a snapshot
// back, usually because no screening run wrote one yet.
func SnapshotReadError(path string, err error) error {
	return &gn.Error{
		Code: errcode.ScreenSnapshotError,
		Msg: fmt.Sprintf(
			"Cannot read run snapshot <em>%s</em>, "+
				"run a full screening first", path,
		),
		Vars: []string{path},
		Err:  err,
	}
}
