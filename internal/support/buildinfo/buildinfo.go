// Package buildinfo exposes build-time version information.
package buildinfo

// Version is the release identifier, set via -ldflags at build time.
var Version = "dev"
