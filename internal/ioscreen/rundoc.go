package ioscreen

import (
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/taxsieve/taxsieve/pkg/screen"
)

// LoadRun reads the run document at path and validates its internal
// consistency. Artifact existence is checked later by the pipeline.
func LoadRun(path string) (*screen.Config, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, RunReadError(path, err)
	}

	var run screen.Config
	if err = yaml.Unmarshal(bs, &run); err != nil {
		return nil, RunParseError(path, err)
	}
	if err = run.Validate(); err != nil {
		return nil, RunInvalidError(path, err)
	}

	slog.Info("Run document loaded",
		"path", path,
		"taxon_id", run.TaxonID,
		"coverage_sets", len(run.Coverage),
	)
	return &run, nil
}
