// Package main provides the entry point for the essd CLI and watcher daemon.
package main

import (
	"os"

	"github.com/veracity-dev/ess/cmd/essd/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
