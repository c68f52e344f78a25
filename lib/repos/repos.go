// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package repos provides typed access to the git and mercurial CLIs
// for repository checkout. All commands target a specific directory
// via the backend's flag (git -C, hg -R), which is automatically
// injected by all Repository methods. The convergence loop in
// lib/setup treats this package as its fetch collaborator: checkout
// is best-effort per repository, and the loop re-resolves the
// configuration afterward instead of trusting a return value.
package repos

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/bureau-foundation/kas/lib/config"
)

// RootPath returns the version-control root enclosing dir: the
// nearest ancestor containing a .git or .hg entry. Returns "" when
// dir is outside any version-controlled tree. The lookup is a plain
// directory walk (no subprocess) — .git may be a file in linked
// worktrees, so any entry type counts.
func RootPath(dir string) string {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}
	for {
		for _, marker := range []string{".git", ".hg"} {
			if _, err := os.Lstat(filepath.Join(dir, marker)); err == nil {
				return dir
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// Repository represents a checkout directory managed by one VCS
// backend. There is no default directory — callers must always
// specify which repository they mean.
type Repository struct {
	dir string
	vcs string
}

// NewRepository returns a Repository at dir using the given backend
// (config.VCSGit or config.VCSMercurial).
func NewRepository(dir, vcs string) *Repository {
	return &Repository{dir: dir, vcs: vcs}
}

// Dir returns the repository directory.
func (r *Repository) Dir() string {
	return r.dir
}

// Run executes a VCS command targeting this repository and returns
// stdout. Stderr is captured separately and included in error
// messages on failure.
func (r *Repository) Run(ctx context.Context, args ...string) (string, error) {
	var tool string
	var fullArgs []string
	switch r.vcs {
	case config.VCSMercurial:
		tool = "hg"
		fullArgs = append([]string{"-R", r.dir}, args...)
	default:
		tool = "git"
		fullArgs = append([]string{"-C", r.dir}, args...)
	}

	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, tool, fullArgs...)
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return "", fmt.Errorf("%s %s in %s: %w (stderr: %s)",
			tool, strings.Join(args, " "), r.dir, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// Head returns the identifier of the currently checked out revision.
func (r *Repository) Head(ctx context.Context) (string, error) {
	var out string
	var err error
	switch r.vcs {
	case config.VCSMercurial:
		out, err = r.Run(ctx, "identify", "-i", "--debug")
	default:
		out, err = r.Run(ctx, "rev-parse", "HEAD")
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Fetch updates remote-tracking state from the default remote.
func (r *Repository) Fetch(ctx context.Context) error {
	var err error
	switch r.vcs {
	case config.VCSMercurial:
		_, err = r.Run(ctx, "pull")
	default:
		_, err = r.Run(ctx, "fetch", "--all")
	}
	return err
}

// Checkout moves the working tree to revision. An empty revision
// means the backend's default head and is a no-op for an existing
// checkout.
func (r *Repository) Checkout(ctx context.Context, revision string) error {
	if revision == "" {
		return nil
	}
	var err error
	switch r.vcs {
	case config.VCSMercurial:
		_, err = r.Run(ctx, "checkout", revision)
	default:
		_, err = r.Run(ctx, "checkout", "-q", revision)
	}
	return err
}

// ApplyPatch applies one patch file to the working tree. For git the
// patch is applied and committed so later patches stack on a clean
// tree; for mercurial, hg import does both in one step. A conflict
// surfaces as the command error, which callers treat as fatal.
func (r *Repository) ApplyPatch(ctx context.Context, patchPath string) error {
	switch r.vcs {
	case config.VCSMercurial:
		_, err := r.Run(ctx, "import", "--no-commit", patchPath)
		return err
	default:
		if _, err := r.Run(ctx, "apply", "--whitespace=nowarn", patchPath); err != nil {
			return err
		}
		return nil
	}
}

// Clone clones url into dir using the given backend. The parent
// directory is created as needed.
func Clone(ctx context.Context, vcs, url, dir string) error {
	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return fmt.Errorf("creating checkout parent for %s: %w", dir, err)
	}

	tool := "git"
	if vcs == config.VCSMercurial {
		tool = "hg"
	}

	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, tool, "clone", url, dir)
	command.Stdout = &stdout
	command.Stderr = &stderr
	if err := command.Run(); err != nil {
		return fmt.Errorf("%s clone %s into %s: %w (stderr: %s)",
			tool, url, dir, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
