package iotools

import (
	"fmt"

	"github.com/gnames/gn"

	"github.com/taxsieve/taxsieve/pkg/errcode"
)

// NotFoundError happens when a required external tool is not on PATH
// and no explicit path is configured.
func NotFoundError(tool string, err error) error {
	return &gn.Error{
		Code: errcode.ToolNotFoundError,
		Msg: fmt.Sprintf(
			"Cannot find <em>%s</em>.\n"+
				"Make sure it is installed and on PATH, or set its full "+
				"path in the <em>tools</em> section of the configuration "+
				"file.",
			tool,
		),
		Vars: []string{tool},
		Err:  err,
	}
}

// ExecError happens when an external tool exits with a failure. The
// tail of its output is attached for diagnosis.
func ExecError(tool string, output []byte, err error) error {
	return &gn.Error{
		Code: errcode.ToolExecError,
		Msg:  fmt.Sprintf("Running <em>%s</em> failed", tool),
		Vars: []string{tool},
		Err:  fmt.Errorf("%s: %w: %s", tool, err, tail(output, 2000)),
	}
}

// BadVersionError happens when a tool's version output cannot be
// understood.
func BadVersionError(tool, version string) error {
	return &gn.Error{
		Code: errcode.ToolExecError,
		Msg: fmt.Sprintf(
			"Cannot parse the version <em>%s</em> reported by <em>%s</em>",
			version, tool,
		),
		Vars: []string{tool, version},
		Err:  fmt.Errorf("%s: unparsable version %q", tool, version),
	}
}

// TooOldError happens when an installed tool predates the oldest
// version the screen can work with.
func TooOldError(tool, version, min string) error {
	return &gn.Error{
		Code: errcode.ToolExecError,
		Msg: fmt.Sprintf(
			"<em>%s</em> %s is too old, version %s or newer is required",
			tool, version, min,
		),
		Vars: []string{tool, version, min},
		Err:  fmt.Errorf("%s %s is older than %s", tool, version, min),
	}
}

func tail(bs []byte, n int) string {
	if len(bs) > n {
		bs = bs[len(bs)-n:]
	}
	return string(bs)
}
