// Package taxsieve holds metadata shared by the command-line layer.
package taxsieve

var (
	// Version is set by build flags.
	Version = "v0.0.0"

	// Build is the build timestamp, set by build flags.
	Build = "n/a"
)
