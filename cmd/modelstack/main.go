// Package main is the entry point for the modelstack binary.
package main

import (
	"os"

	"github.com/modelstack/modelstack/cmd/modelstack/cmd"
)

// Build metadata injected via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, date)
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
