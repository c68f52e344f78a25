// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// kas is a setup tool for bitbake-based build environments. It reads
// a chain of project config files, checks out the repositories they
// declare (resolving includes that live inside those repositories),
// applies configured patches, and writes the build tool's
// configuration files.
//
// Usage:
//
//	kas checkout [flags] <config>[:<config>...]
//	kas dump [flags] <config>[:<config>...]
//
// The config argument is a colon-separated list of YAML or JSON
// files, merged in order with later files taking precedence.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/term"
)

const version = "0.9.0"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		printUsage(os.Stderr)
		return fmt.Errorf("no command given")
	}

	switch args[0] {
	case "checkout":
		return runCheckout(args[1:])
	case "dump":
		return runDump(args[1:])
	case "--version", "version":
		fmt.Println("kas " + version)
		return nil
	case "-h", "--help", "help":
		printUsage(os.Stdout)
		return nil
	}
	printUsage(os.Stderr)
	return fmt.Errorf("unknown command %q", args[0])
}

func printUsage(out *os.File) {
	fmt.Fprintf(out, `kas — checkout tool for bitbake-based projects

Usage:
  kas checkout [flags] <config>[:<config>...]   check out repositories and write build config
  kas dump [flags] <config>[:<config>...]       resolve the configuration and print it as YAML
  kas version                                   print the version

Run "kas <command> --help" for command flags.
`)
}

// newLogger creates the process logger. When stderr is a terminal,
// slog.TextHandler gives human-readable output; when piped or
// redirected (CI, scripts), slog.JSONHandler gives machine-parseable
// lines.
func newLogger(level slog.Level) *slog.Logger {
	options := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if term.IsTerminal(int(os.Stderr.Fd())) {
		handler = slog.NewTextHandler(os.Stderr, options)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, options)
	}
	return slog.New(handler)
}

// parseLevel maps a --log-level value to a slog level.
func parseLevel(name string) (slog.Level, error) {
	switch name {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q (expected debug, info, warn or error)", name)
}
