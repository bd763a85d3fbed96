// Package version exposes the version of the wheelsmith binary, stamped at
// build time via -ldflags.
package version

var Version = "0.1.0-dev"
