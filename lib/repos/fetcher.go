// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package repos

import (
	"context"
	"log/slog"
	"os"

	"github.com/bureau-foundation/kas/lib/config"
)

// Fetcher makes configured repositories available on disk. It is the
// fetch collaborator of the convergence loop: EnsurePresent is
// best-effort per repository, logging failures instead of aborting,
// because the loop detects an unfetchable repository by re-resolving
// and seeing the missing set fail to shrink — that path produces the
// operator-facing error with the exact repo names.
type Fetcher struct {
	// Logger receives per-repository progress and failures.
	Logger *slog.Logger

	// Update forces already-present repositories to fetch their
	// remote and re-check out the declared revision. Without it,
	// present repositories are left untouched (offline mode).
	Update bool
}

// EnsurePresent clones every absent remote repository and checks out
// its declared revision. Local repositories (no URL) are only
// verified to exist; in Update mode, present remote repositories are
// fetched and moved to their declared revision as well.
//
// Only context cancellation is returned as an error.
func (f *Fetcher) EnsurePresent(ctx context.Context, handles []*config.RepoHandle) error {
	for _, handle := range handles {
		if err := ctx.Err(); err != nil {
			return err
		}

		if handle.IsLocal() {
			if _, err := os.Stat(handle.Path); err != nil {
				f.Logger.Warn("local repository missing", "repo", handle.Name, "path", handle.Path)
			}
			continue
		}

		_, statErr := os.Stat(handle.Path)
		present := statErr == nil

		switch {
		case !present:
			f.Logger.Info("cloning repository", "repo", handle.Name, "url", handle.URL, "path", handle.Path)
			if err := Clone(ctx, handle.VCS, handle.URL, handle.Path); err != nil {
				f.Logger.Error("clone failed", "repo", handle.Name, "error", err)
				continue
			}
		case f.Update:
			f.Logger.Info("updating repository", "repo", handle.Name, "path", handle.Path)
			if err := NewRepository(handle.Path, handle.VCS).Fetch(ctx); err != nil {
				f.Logger.Error("fetch failed", "repo", handle.Name, "error", err)
				continue
			}
		default:
			// Present and not updating: leave the checkout alone.
			continue
		}

		if err := NewRepository(handle.Path, handle.VCS).Checkout(ctx, handle.Revision()); err != nil {
			f.Logger.Error("checkout failed", "repo", handle.Name,
				"revision", handle.Revision(), "error", err)
		}
	}
	return ctx.Err()
}
