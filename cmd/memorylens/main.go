// Package main provides the MemoryLens client.
//
// Usage:
//
//	memorylens [flags] <command> [args]
//
// Commands:
//
//	run       - Start the tray (or --headless console) and a recognition session
//	register  - Register a face for a name
//	people    - List registered people
//	memories  - List the memories stored for a person
//	devices   - List microphones
//	version   - Print version information
package main

import (
	"fmt"
	"os"

	"github.com/petems/memorylens/cmd/memorylens/commands"
)

var (
	// Version is set via ldflags at build time
	Version = "dev"
	// Commit is set via ldflags at build time
	Commit = "unknown"
)

func main() {
	if err := commands.Execute(Version, Commit); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
