// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/kas/lib/config"
	"github.com/bureau-foundation/kas/lib/repos"
	"github.com/bureau-foundation/kas/lib/setup"
)

// checkoutFlags holds the parsed flag values shared by the checkout
// and dump commands.
type checkoutFlags struct {
	target        []string
	task          string
	workDir       string
	buildDir      string
	update        bool
	forceCheckout bool
	logLevel      string
}

func newCheckoutFlagSet(name string, values *checkoutFlags) *pflag.FlagSet {
	flags := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flags.StringSliceVar(&values.target, "target", nil,
		"build target(s), overriding KAS_TARGET and the config file")
	flags.StringVar(&values.task, "task", "",
		"build task, overriding KAS_TASK and the config file")
	flags.StringVar(&values.workDir, "work-dir", "",
		"directory repositories are checked out under (default: $KAS_WORK_DIR or the current directory)")
	flags.StringVar(&values.buildDir, "build-dir", "",
		"build directory (default: $KAS_BUILD_DIR or <work-dir>/build)")
	flags.BoolVar(&values.update, "update", false,
		"fetch and re-check out repositories that are already present")
	flags.BoolVar(&values.forceCheckout, "force-checkout", false,
		"re-check out declared revisions even when the configuration is unchanged")
	flags.StringVar(&values.logLevel, "log-level", "info",
		"log level: debug, info, warn or error")
	return flags
}

func runCheckout(args []string) error {
	var values checkoutFlags
	flags := newCheckoutFlagSet("checkout", &values)
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return fmt.Errorf("checkout needs exactly one config file list argument")
	}

	setupContext, fetcher, logger, err := prepare(flags.Arg(0), &values)
	if err != nil {
		return err
	}
	logger.Info("kas started", "version", version, "command", "checkout")

	if err := setup.Run(context.Background(), setupContext, setup.CheckoutSteps(fetcher)); err != nil {
		return err
	}

	script, err := setupContext.Config.InitScript()
	if err != nil {
		return err
	}
	logger.Info("checkout complete",
		"build_dir", setupContext.BuildDir, "init_script", script)
	return nil
}

// prepare builds the configuration, fetcher, and setup context shared
// by the checkout and dump commands.
func prepare(fileList string, values *checkoutFlags) (*setup.Context, *repos.Fetcher, *slog.Logger, error) {
	level, err := parseLevel(values.logLevel)
	if err != nil {
		return nil, nil, nil, err
	}
	logger := newLogger(level)

	workDir := values.workDir
	if workDir == "" {
		workDir = os.Getenv("KAS_WORK_DIR")
	}
	buildDir := values.buildDir
	if buildDir == "" {
		buildDir = os.Getenv("KAS_BUILD_DIR")
	}

	projectConfig, err := config.New(fileList, config.Options{
		Target:  values.target,
		Task:    values.task,
		WorkDir: workDir,
		RootFor: repos.RootPath,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	setupContext := &setup.Context{
		WorkDir:       projectConfig.WorkDir(),
		BuildDir:      buildDir,
		Update:        values.update,
		ForceCheckout: values.forceCheckout,
		Config:        projectConfig,
		Logger:        logger,
	}
	fetcher := &repos.Fetcher{Logger: logger, Update: values.update}
	return setupContext, fetcher, logger, nil
}
