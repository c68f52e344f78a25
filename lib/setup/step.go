// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package setup

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/kas/lib/config"
)

// Step is one unit of the checkout sequence. Steps receive the shared
// setup Context by pointer and communicate through it.
type Step interface {
	Name() string
	Execute(ctx context.Context, setup *Context) error
}

// Fetcher makes the given repositories available on disk at their
// declared revisions, best-effort: a repository that cannot be
// fetched is logged, not returned as an error, because the
// convergence loop verifies outcomes by re-resolving. lib/repos
// provides the production implementation.
type Fetcher interface {
	EnsurePresent(ctx context.Context, repos []*config.RepoHandle) error
}

// Run executes steps in order against one shared Context, logging
// each step by name. The first error aborts the sequence.
func Run(ctx context.Context, setup *Context, steps []Step) error {
	for _, step := range steps {
		setup.Logger.Info("execute", "step", step.Name())
		if err := step.Execute(ctx, setup); err != nil {
			return fmt.Errorf("%s: %w", step.Name(), err)
		}
	}
	return nil
}

// CheckoutSteps returns the standard checkout sequence: prepare
// directories, resolve configuration to a fixed point (fetching
// missing repositories as discovered), finish checkouts, apply
// patches, compute the build environment, and write the build tool
// configuration.
func CheckoutSteps(fetcher Fetcher) []Step {
	return []Step{
		&SetupDir{},
		&InitSetupRepos{},
		NewLoop("repo_setup_loop", &SetupReposStep{Fetcher: fetcher}),
		&FinishSetupRepos{Fetcher: fetcher},
		&ReposApplyPatches{},
		&SetupEnviron{},
		&WriteBBConfig{},
	}
}
