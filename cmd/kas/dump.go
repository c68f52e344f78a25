// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/kas/lib/setup"
)

// runDump resolves the configuration to its fixed point — fetching
// missing repositories exactly like checkout does, since includes may
// live inside them — and prints the merged tree as YAML on stdout.
func runDump(args []string) error {
	var values checkoutFlags
	flags := newCheckoutFlagSet("dump", &values)
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return fmt.Errorf("dump needs exactly one config file list argument")
	}

	setupContext, fetcher, logger, err := prepare(flags.Arg(0), &values)
	if err != nil {
		return err
	}
	logger.Info("kas started", "version", version, "command", "dump")

	steps := []setup.Step{
		&setup.SetupDir{},
		&setup.InitSetupRepos{},
		setup.NewLoop("repo_setup_loop", &setup.SetupReposStep{Fetcher: fetcher}),
	}
	if err := setup.Run(context.Background(), setupContext, steps); err != nil {
		return err
	}

	encoder := yaml.NewEncoder(os.Stdout)
	encoder.SetIndent(2)
	defer encoder.Close()
	return encoder.Encode(setupContext.Config.Tree())
}
