package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGetRunCmd_Exists verifies getRunCmd returns
// a valid command.
func TestGetRunCmd_Exists(t *testing.T) {
	cmd := getRunCmd()
	require.NotNil(t, cmd,
		"Run command should exist")
	assert.Equal(t, "run", cmd.Name(),
		"Command name should be run")
}

// TestGetRunCmd_ShortDescription verifies short
// description.
func TestGetRunCmd_ShortDescription(t *testing.T) {
	cmd := getRunCmd()

	assert.NotEmpty(t, cmd.Short,
		"Short description should not be empty")
	assert.Contains(t, cmd.Short, "run document",
		"Short description should mention the run document")
}

// TestGetRunCmd_LongDescription verifies long
// description.
func TestGetRunCmd_LongDescription(t *testing.T) {
	cmd := getRunCmd()

	assert.NotEmpty(t, cmd.Long,
		"Long description should not be empty")
	assert.Contains(t, cmd.Long, "diamond",
		"Long description should mention diamond")
	assert.Contains(t, cmd.Long, "taxonomy",
		"Long description should mention the taxonomy")
	assert.Contains(t, cmd.Long, "update_plots",
		"Long description should mention the display-only mode")
	assert.Contains(t, cmd.Long, "Examples",
		"Long description should include examples")
}

// TestGetRunCmd_HasRunE verifies run function is set.
func TestGetRunCmd_HasRunE(t *testing.T) {
	cmd := getRunCmd()

	assert.NotNil(t, cmd.RunE,
		"RunE should be set")
}

// TestGetRunCmd_JobsFlag verifies the jobs override flag.
func TestGetRunCmd_JobsFlag(t *testing.T) {
	cmd := getRunCmd()

	flag := cmd.Flags().Lookup("jobs")
	require.NotNil(t, flag, "jobs flag should exist")
	assert.Equal(t, "j", flag.Shorthand,
		"jobs flag should have -j shorthand")
}

// TestGetRunCmd_RequiresRunDoc verifies the run document
// argument is mandatory. Argument validation happens before
// bootstrap, so no configuration is touched.
func TestGetRunCmd_RequiresRunDoc(t *testing.T) {
	root := getRootCmd()

	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"run"})

	err := root.Execute()
	require.Error(t, err,
		"run without a run document should fail")
	assert.Contains(t, err.Error(), "arg",
		"Error should point at the missing argument")
}

// TestGetRunCmd_IndependentInstances verifies each
// call returns independent instance.
func TestGetRunCmd_IndependentInstances(t *testing.T) {
	cmd1 := getRunCmd()
	cmd2 := getRunCmd()

	// Should be different instances
	assert.NotSame(t, cmd1, cmd2,
		"Each call should return new instance")

	// Modifying one shouldn't affect the other
	cmd1.Short = "test1"
	cmd2.Short = "test2"

	assert.Equal(t, "test1", cmd1.Short)
	assert.Equal(t, "test2", cmd2.Short)
}
