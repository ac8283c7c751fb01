package iotools

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"testing"

	"github.com/gnames/gn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taxsieve/taxsieve/pkg/errcode"
)

func TestFind(t *testing.T) {
	path, err := Find("sh")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "/sh"))

	_, err = Find("no-such-tool-for-sure")
	require.Error(t, err)
	gnErr, ok := err.(*gn.Error)
	require.True(t, ok)
	assert.Equal(t, errcode.ToolNotFoundError, gnErr.Code)
	assert.Equal(t, []string{"no-such-tool-for-sure"}, gnErr.Vars)
}

func TestRun(t *testing.T) {
	err := Run(exec.Command("sh", "-c", "echo ok"))
	require.NoError(t, err)

	err = Run(exec.Command("sh", "-c", "echo boom >&2; exit 3"))
	require.Error(t, err)
	gnErr, ok := err.(*gn.Error)
	require.True(t, ok)
	assert.Equal(t, errcode.ToolExecError, gnErr.Code)
	assert.Contains(t, gnErr.Err.Error(), "boom")
}

func TestRunKeepsRedirectedStdout(t *testing.T) {
	var out bytes.Buffer
	cmd := exec.Command("sh", "-c", "echo payload")
	cmd.Stdout = &out

	require.NoError(t, Run(cmd))
	assert.Equal(t, "payload\n", out.String())
}

func TestPipeline(t *testing.T) {
	var out bytes.Buffer
	first := exec.Command("sh", "-c", `printf "b\na\n"`)
	second := exec.Command("sort")
	second.Stdout = &out

	require.NoError(t, Pipeline(first, second))
	assert.Equal(t, "a\nb\n", out.String())
}

func TestPipelineFailure(t *testing.T) {
	first := exec.Command("sh", "-c", "echo bad >&2; exit 7")
	second := exec.Command("cat")

	err := Pipeline(first, second)
	require.Error(t, err)
	gnErr, ok := err.(*gn.Error)
	require.True(t, ok)
	assert.Equal(t, errcode.ToolExecError, gnErr.Code)
	assert.Equal(t, []string{"sh"}, gnErr.Vars)
	assert.Contains(t, gnErr.Err.Error(), "bad")
}

func TestVersion(t *testing.T) {
	line, err := Version(
		context.Background(),
		"sh", "-c", "echo diamond version 2.1.8; echo extra",
	)
	require.NoError(t, err)
	assert.Equal(t, "diamond version 2.1.8", line)
}

func TestParseVersion(t *testing.T) {
	assert := assert.New(t)
	tests := []struct {
		msg, line, version string
	}{
		{"diamond", "diamond version 2.1.8", "2.1.8"},
		{"bedtools", "bedtools v2.30.0", "2.30.0"},
		{"bowtie2", "bowtie2-align-s version 2.4.5", "2.4.5"},
		{"samtools", "samtools 1.16.1", "1.16.1"},
		{"no version", "no dotted number here", ""},
		{"empty", "", ""},
	}

	for _, v := range tests {
		assert.Equal(v.version, ParseVersion(v.line), v.msg)
	}
}

func TestCheckMinVersion(t *testing.T) {
	assert := assert.New(t)

	assert.Nil(CheckMinVersion("diamond", "2.1.8", "v2.0.15"))
	assert.Nil(CheckMinVersion("diamond", "v2.0.15", "v2.0.15"))

	err := CheckMinVersion("diamond", "2.0.14", "v2.0.15")
	require.Error(t, err)
	gnErr, ok := err.(*gn.Error)
	require.True(t, ok)
	assert.Equal(errcode.ToolExecError, gnErr.Code)
	assert.Equal([]string{"diamond", "2.0.14", "v2.0.15"}, gnErr.Vars)

	err = CheckMinVersion("diamond", "garbage", "v2.0.15")
	require.Error(t, err)
	gnErr, ok = err.(*gn.Error)
	require.True(t, ok)
	assert.Equal([]string{"diamond", "garbage"}, gnErr.Vars)
}
