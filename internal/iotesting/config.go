// Package iotesting provides shared helpers for tests that need a full
// application configuration without touching the user's real home
// directory.
package iotesting

import (
	"path/filepath"
	"testing"

	"github.com/taxsieve/taxsieve/pkg/config"
)

// TestConfig returns an application configuration rooted in a throwaway
// home directory. The taxonomy cache, work files and logs of a test run
// all land under paths that vanish with the test.
func TestConfig(t *testing.T) *config.Config {
	t.Helper()

	home := t.TempDir()
	cfg := config.New()
	cfg.HomeDir = home
	cfg.TaxonomyDir = filepath.Join(home, "taxonomy")
	cfg.JobsNumber = 2
	return cfg
}
