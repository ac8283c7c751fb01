// Package lifecycle defines the contracts between the CLI and the
// pipeline implementations under internal/.
package lifecycle

import (
	"context"
)

// Screener runs assembly screenings described by run documents.
// Implementations read the document, drive every pipeline stage and
// write results below the document's output path.
type Screener interface {
	// Screen executes the full screening pipeline for the run document
	// at runPath: taxonomy, inputs, proteins, alignment, descriptors,
	// analysis and reports.
	Screen(ctx context.Context, runPath string) error

	// Plot rebuilds display tables from the snapshot of an earlier
	// run, honoring changed display options without recomputing the
	// heavy stages.
	Plot(ctx context.Context, runPath string) error

	// Check validates the run document at runPath and verifies that the
	// input artifacts it references exist, without any processing.
	Check(ctx context.Context, runPath string) error
}
