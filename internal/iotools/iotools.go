// Package iotools runs the external bioinformatics tools the screen
// depends on: diamond, bowtie2, samtools and bedtools. Tools are
// located on PATH or through explicit paths from the configuration, and
// their stderr is folded into errors so failures stay diagnosable.
package iotools

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/gnames/gnlib"
)

// Find locates a tool binary. The name can be a bare command resolved
// on PATH or an explicit path from the configuration file.
func Find(tool string) (string, error) {
	path, err := exec.LookPath(tool)
	if err != nil {
		return "", NotFoundError(tool, err)
	}
	return path, nil
}

// Run executes a prepared command and waits for it. Stderr, and stdout
// unless already redirected, are captured and reported on failure.
func Run(cmd *exec.Cmd) error {
	var out bytes.Buffer
	if cmd.Stdout == nil {
		cmd.Stdout = &out
	}
	cmd.Stderr = &out

	slog.Debug("Running external tool",
		"cmd", strings.Join(cmd.Args, " "))
	if err := cmd.Run(); err != nil {
		return ExecError(cmdName(cmd), out.Bytes(), err)
	}
	return nil
}

// Pipeline connects commands stdout to stdin, starts them all and waits
// for each. The first failure wins, but every command is still waited
// on so nothing is left running.
func Pipeline(cmds ...*exec.Cmd) error {
	outs := make([]bytes.Buffer, len(cmds))
	for i, cmd := range cmds {
		cmd.Stderr = &outs[i]
		if i < len(cmds)-1 {
			pipe, err := cmd.StdoutPipe()
			if err != nil {
				return ExecError(cmdName(cmd), nil, err)
			}
			cmds[i+1].Stdin = pipe
		}
		slog.Debug("Running external tool",
			"cmd", strings.Join(cmd.Args, " "))
	}

	for i, cmd := range cmds {
		if err := cmd.Start(); err != nil {
			return ExecError(cmdName(cmd), outs[i].Bytes(), err)
		}
	}

	var res error
	for i, cmd := range cmds {
		if err := cmd.Wait(); err != nil && res == nil {
			res = ExecError(cmdName(cmd), outs[i].Bytes(), err)
		}
	}
	return res
}

// Version runs a tool's version invocation and returns the first
// output line. Tools that report the version on stderr are covered too.
func Version(ctx context.Context, path string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, path, args...).CombinedOutput()
	if err != nil {
		return "", ExecError(filepath.Base(path), out, err)
	}
	line, _, _ := strings.Cut(string(out), "\n")
	return strings.TrimSpace(line), nil
}

// CheckMinVersion compares a tool's reported version with a minimal
// required one. Version strings are accepted with or without the
// leading 'v'.
func CheckMinVersion(tool, version, min string) error {
	v := normalizeVersion(version)
	if !gnlib.IsVersion(v) {
		return BadVersionError(tool, version)
	}
	if gnlib.CmpVersion(v, normalizeVersion(min)) < 0 {
		return TooOldError(tool, version, min)
	}
	return nil
}

// ParseVersion pulls the first dotted version number out of a tool's
// version line, "diamond version 2.1.8" giving "2.1.8".
func ParseVersion(line string) string {
	for _, f := range strings.Fields(line) {
		f = strings.Trim(f, "v,;()")
		if gnlib.IsVersion(normalizeVersion(f)) {
			return f
		}
	}
	return ""
}

func normalizeVersion(v string) string {
	v = strings.TrimSpace(v)
	if v != "" && v[0] != 'v' {
		v = "v" + v
	}
	return v
}

func cmdName(cmd *exec.Cmd) string {
	if len(cmd.Args) > 0 {
		return filepath.Base(cmd.Args[0])
	}
	return filepath.Base(cmd.Path)
}
