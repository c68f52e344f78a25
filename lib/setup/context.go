// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package setup

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bureau-foundation/kas/lib/config"
	"github.com/bureau-foundation/kas/lib/statefile"
)

// Context is the mutable state threaded through every step of one
// checkout. It is created per invocation and owned by the step runner
// for its duration; nothing in this package keeps ambient process
// state, so concurrent invocations with separate Contexts are safe.
type Context struct {
	// WorkDir is the directory repositories are checked out under.
	WorkDir string

	// BuildDir is the build tool's directory; its conf/ subdirectory
	// receives the generated configuration.
	BuildDir string

	// StatePath is where the checkout state snapshot lives. Filled
	// with a default under BuildDir by SetupDir when empty.
	StatePath string

	// Update forces re-fetch and re-checkout of repositories that
	// are already present at their declared revision.
	Update bool

	// ForceCheckout re-checks out declared revisions even when the
	// state snapshot says the configuration is unchanged.
	ForceCheckout bool

	// Config is the layered configuration being resolved.
	Config *config.Config

	// Missing holds the repo names the most recent resolution pass
	// could not find on disk, sorted.
	Missing []string

	// PreviousMissing is the missing set of the pass before the most
	// recent fetch attempt. nil is the first-pass sentinel: no fetch
	// has been attempted yet, so non-convergence cannot be declared.
	PreviousMissing []string

	// State is the snapshot from the previous run, or nil.
	State *statefile.State

	// SkipCheckout is set once the run determines the previous
	// checkout can be reused as-is (snapshot matches, no update
	// requested). Later steps with on-disk side effects honor it.
	SkipCheckout bool

	// Environ is the environment computed for the downstream build
	// shell, filled by SetupEnviron.
	Environ map[string]string

	// Logger receives step progress.
	Logger *slog.Logger
}

// availableRepoPaths maps every configured repository that currently
// exists on disk to its checkout path. Resolution passes consume this
// snapshot; it is re-derived before each pass because a fetch may
// have added repositories since the last one.
func availableRepoPaths(setup *Context) (map[string]string, error) {
	handles, err := setup.Config.Repos()
	if err != nil {
		return nil, err
	}
	available := make(map[string]string, len(handles))
	for _, handle := range handles {
		if _, err := os.Stat(handle.Path); err == nil {
			available[handle.Name] = handle.Path
		}
	}
	return available, nil
}

// defaultStatePath places the snapshot next to the generated build
// configuration.
func defaultStatePath(buildDir string) string {
	return filepath.Join(buildDir, ".checkout-state")
}
