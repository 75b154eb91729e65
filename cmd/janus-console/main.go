// Command janus-console runs the console backend: a thin HTTP service that
// bridges the operator UI to a Janus federated-learning gateway, plus a few
// one-shot subcommands for scripted use.
package main

import (
	"fmt"
	"os"

	"github.com/bluelx/janus-console/pkg/config"
)

// Version information - set via ldflags during build
var (
	version   = "1.0.0-dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		args = []string{"serve"}
	}

	var err error
	switch args[0] {
	case "serve":
		err = runServeCommand(args[1:])
	case "export":
		err = runExportCommand(args[1:])
	case "upload":
		err = runUploadCommand(args[1:])
	case "ping":
		err = runPingCommand(args[1:])
	case "version", "--version", "-v":
		fmt.Printf("janus-console %s (%s, built %s)\n", version, commit, buildDate)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", args[0])
		printUsage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`janus-console - web console backend for a Janus federated-learning node

Usage:
  janus-console [command] [flags]

Commands:
  serve     run the HTTP server (default)
  export    export a remote dataset to a local table file
  upload    upload a file to the platform object store
  ping      check gateway connectivity
  version   print version information

Run 'janus-console <command> -h' for command flags.
`)
}

// loadConfig loads from an explicit path when given, otherwise from the
// default locations plus environment overrides.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}
