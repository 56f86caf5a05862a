// Copyright 2026 The Capstan Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/capstan-release/capstan/lib/process"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		process.Fatal(err)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		printUsage(os.Stderr)
		return fmt.Errorf("subcommand required")
	}

	switch args[0] {
	case "process":
		return runProcess(args[1:])
	case "check-config":
		return runCheckConfig(args[1:])
	case "version":
		return runVersion(args[1:])
	case "help", "--help", "-h":
		printUsage(os.Stdout)
		return nil
	default:
		printUsage(os.Stderr)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func printUsage(w *os.File) {
	fmt.Fprint(w, `usage: capstan <command> [flags]

Commands:
  process       process a pull request event from a JSON file
  check-config  load and validate the configuration
  version       print build information

Run 'capstan <command> --help' for command flags.
`)
}
