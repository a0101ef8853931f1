// Package version records build-time identity for the unicov binary.
package version

// Set via -ldflags at build time.
var (
	// Version is the release version of the binary.
	Version = "dev"

	// Commit is the Git hash the binary was built from.
	Commit = "<unknown>"

	// Date is the build timestamp.
	Date = "<unknown>"
)
