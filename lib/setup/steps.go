// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package setup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bureau-foundation/kas/lib/config"
	"github.com/bureau-foundation/kas/lib/repos"
	"github.com/bureau-foundation/kas/lib/statefile"
)

// SetupDir prepares the work and build directories and loads the
// previous checkout state snapshot when one exists.
type SetupDir struct{}

func (s *SetupDir) Name() string { return "setup_dir" }

func (s *SetupDir) Execute(ctx context.Context, setup *Context) error {
	if err := os.MkdirAll(setup.WorkDir, 0o755); err != nil {
		return fmt.Errorf("creating work directory: %w", err)
	}
	if setup.BuildDir == "" {
		setup.BuildDir = filepath.Join(setup.WorkDir, "build")
	}
	if err := os.MkdirAll(filepath.Join(setup.BuildDir, "conf"), 0o755); err != nil {
		return fmt.Errorf("creating build directory: %w", err)
	}
	if setup.StatePath == "" {
		setup.StatePath = defaultStatePath(setup.BuildDir)
	}

	state, err := statefile.Read(setup.StatePath)
	switch {
	case err == nil:
		setup.State = state
	case errors.Is(err, fs.ErrNotExist):
		// First checkout in this build directory.
	default:
		// A corrupt snapshot only costs a fresh checkout.
		setup.Logger.Warn("ignoring unreadable checkout state", "path", setup.StatePath, "error", err)
	}
	return nil
}

// InitSetupRepos runs the initial resolution pass and seeds the
// convergence state: the current missing set, and no previous set
// (nothing has been fetched yet).
type InitSetupRepos struct{}

func (s *InitSetupRepos) Name() string { return "init_setup_repos" }

func (s *InitSetupRepos) Execute(ctx context.Context, setup *Context) error {
	available, err := availableRepoPaths(setup)
	if err != nil {
		return err
	}
	missing, err := setup.Config.FindMissingRepos(available)
	if err != nil {
		return err
	}
	setup.Missing = missing
	setup.PreviousMissing = nil
	if len(missing) > 0 {
		setup.Logger.Info("includes reference repositories not yet on disk", "repos", missing)
	}
	return nil
}

// SetupReposStep is the convergence loop body: fetch the currently
// missing repositories, re-resolve, and compare. It stops iterating
// when the missing set is empty, and fails when a completed fetch
// attempt left the missing set identical or larger — the signature of
// an unfetchable repository or an include chain that can never
// resolve.
type SetupReposStep struct {
	Fetcher Fetcher
}

func (s *SetupReposStep) Name() string { return "setup_repos" }

func (s *SetupReposStep) ExecuteOnce(ctx context.Context, setup *Context) (bool, error) {
	if len(setup.Missing) == 0 {
		return false, nil
	}
	if setup.PreviousMissing != nil && containsAll(setup.Missing, setup.PreviousMissing) {
		return false, fmt.Errorf("configuration did not converge: repositories still missing after fetch attempt: %s",
			strings.Join(setup.Missing, ", "))
	}

	// Fetch the missing repos that the (partially merged) config
	// declares. A missing name with no repos entry cannot be fetched;
	// it stays in the missing set and the comparison above turns it
	// into a diagnosable failure on the next iteration.
	table, err := setup.Config.ReposTable()
	if err != nil {
		return false, err
	}
	var handles []*config.RepoHandle
	for _, name := range setup.Missing {
		if _, declared := table[name]; !declared {
			setup.Logger.Warn("include references undeclared repository", "repo", name)
			continue
		}
		handle, err := setup.Config.Repo(name)
		if err != nil {
			return false, err
		}
		handles = append(handles, handle)
	}
	if err := s.Fetcher.EnsurePresent(ctx, handles); err != nil {
		return false, err
	}

	available, err := availableRepoPaths(setup)
	if err != nil {
		return false, err
	}
	missing, err := setup.Config.FindMissingRepos(available)
	if err != nil {
		return false, err
	}
	setup.PreviousMissing = setup.Missing
	setup.Missing = missing
	setup.Logger.Info("resolution pass complete", "still_missing", missing)
	return true, nil
}

// containsAll reports whether every name in subset is present in set.
// Both slices are sorted missing sets.
func containsAll(set, subset []string) bool {
	members := make(map[string]bool, len(set))
	for _, name := range set {
		members[name] = true
	}
	for _, name := range subset {
		if !members[name] {
			return false
		}
	}
	return true
}

// FinishSetupRepos brings every configured repository to its declared
// revision once the configuration has converged, then records the new
// checkout state snapshot. When the previous snapshot still matches
// the resolved config files and no update was requested, the on-disk
// checkouts are reused untouched.
type FinishSetupRepos struct {
	Fetcher Fetcher
}

func (s *FinishSetupRepos) Name() string { return "finish_setup_repos" }

func (s *FinishSetupRepos) Execute(ctx context.Context, setup *Context) error {
	handles, err := setup.Config.Repos()
	if err != nil {
		return err
	}

	if setup.State != nil && !setup.Update && !setup.ForceCheckout &&
		setup.State.ConfigUnchanged(setup.Config.ResolvedFiles()) {
		setup.SkipCheckout = true
		setup.Logger.Info("configuration unchanged since last checkout, reusing repositories")
		return nil
	}

	if err := s.Fetcher.EnsurePresent(ctx, handles); err != nil {
		return err
	}

	state := &statefile.State{
		Repos:        map[string]statefile.RepoState{},
		Fingerprints: map[string]statefile.Fingerprint{},
	}
	for _, handle := range handles {
		revision := handle.Revision()
		if !handle.IsLocal() {
			// Record what is actually checked out, not what was
			// asked for. Best-effort: an unreadable repo simply goes
			// unrecorded and gets checked out again next run.
			if head, err := repos.NewRepository(handle.Path, handle.VCS).Head(ctx); err == nil {
				revision = head
			} else {
				setup.Logger.Debug("cannot read checked out revision", "repo", handle.Name, "error", err)
			}
		}
		state.Repos[handle.Name] = statefile.RepoState{URL: handle.URL, Revision: revision}
	}
	for _, file := range setup.Config.ResolvedFiles() {
		fingerprint, err := statefile.FingerprintFile(file)
		if err != nil {
			return err
		}
		state.Fingerprints[file] = fingerprint
	}
	if err := statefile.Write(setup.StatePath, state); err != nil {
		return err
	}
	setup.State = state
	return nil
}

// ReposApplyPatches applies every configured patch in sorted patch-ID
// order. Patch files live inside configured repositories; a patch
// referencing an undeclared repository, a missing patch file, or a
// conflict is fatal.
type ReposApplyPatches struct{}

func (s *ReposApplyPatches) Name() string { return "repos_apply_patches" }

func (s *ReposApplyPatches) Execute(ctx context.Context, setup *Context) error {
	if setup.SkipCheckout {
		// The working trees were not re-checked out, so the patches
		// from the previous run are still applied.
		return nil
	}

	handles, err := setup.Config.Repos()
	if err != nil {
		return err
	}
	pathByName := make(map[string]string, len(handles))
	for _, handle := range handles {
		pathByName[handle.Name] = handle.Path
	}

	for _, handle := range handles {
		repository := repos.NewRepository(handle.Path, handle.VCS)
		for _, patch := range handle.Patches {
			base, ok := pathByName[patch.Repo]
			if !ok {
				return fmt.Errorf("patch %s of repo %s references undeclared repository %q",
					patch.ID, handle.Name, patch.Repo)
			}
			patchPath := filepath.Join(base, patch.Path)
			files, err := patchFiles(patchPath)
			if err != nil {
				return fmt.Errorf("patch %s of repo %s: %w", patch.ID, handle.Name, err)
			}
			for _, file := range files {
				setup.Logger.Info("applying patch", "repo", handle.Name, "patch", patch.ID, "file", file)
				if err := repository.ApplyPatch(ctx, file); err != nil {
					return fmt.Errorf("patch %s of repo %s: %w", patch.ID, handle.Name, err)
				}
			}
		}
	}
	return nil
}

// patchFiles expands one patch entry path into the patch files to
// apply, in order. A directory is treated as a quilt patchset: its
// series file lists the patches, one per line, comments and blanks
// ignored.
func patchFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("patch path %s does not exist", path)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	series, err := os.ReadFile(filepath.Join(path, "series"))
	if err != nil {
		return nil, fmt.Errorf("patchset directory %s has no readable series file: %w", path, err)
	}
	var files []string
	for _, line := range strings.Split(string(series), "\n") {
		entry := strings.TrimSpace(line)
		if entry == "" || strings.HasPrefix(entry, "#") {
			continue
		}
		// Quilt allows per-line options after the patch name.
		files = append(files, filepath.Join(path, strings.Fields(entry)[0]))
	}
	return files, nil
}
