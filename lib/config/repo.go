// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"path/filepath"
	"sort"
	"strings"
)

// VCS backends a repo entry may declare.
const (
	VCSGit       = "git"
	VCSMercurial = "hg"
)

// layerDisabled holds the values that exclude a layer entry from the
// build. Later config files can set one of these to switch off a
// layer that an earlier file enabled.
var layerDisabled = map[string]bool{
	"disabled": true, "excluded": true, "n": true,
	"no": true, "0": true, "false": true,
}

// RepoHandle is one fully resolved repository: the merged field set
// produced by layering defaults.repos, the repo's own entry, and
// overrides.repos.<name> (override wins), with the checkout path and
// layer directories already made absolute.
//
// Handles are derived views. They are rebuilt from the current merged
// tree on every [Config.Repos] or [Config.Repo] call and must not be
// cached across resolution passes — a later pass may have discovered
// config fragments that change any field.
type RepoHandle struct {
	// Name is the repo's key in the repos table.
	Name string

	// URL is the remote location. Empty for local repositories,
	// including the top repository the config chain itself lives in.
	URL string

	// VCS is the version-control backend, VCSGit or VCSMercurial.
	VCS string

	// Commit is the exact revision to check out, when pinned.
	Commit string

	// Branch is the upstream branch to track when Commit is unset.
	Branch string

	// Refspec is the legacy revision field, used when neither Commit
	// nor Branch is given.
	Refspec string

	// Path is the absolute checkout directory.
	Path string

	// Layers are the enabled layer subpaths relative to Path, sorted.
	// "." denotes the repository root itself.
	Layers []string

	// Patches are the patches to apply after checkout, sorted by ID.
	Patches []Patch
}

// Patch is one patch entry: a file (or quilt series directory) inside
// the repository named by Repo, applied to the owning RepoHandle.
type Patch struct {
	ID   string
	Repo string
	Path string
}

// IsLocal reports whether the repository has no remote and is used in
// place rather than fetched.
func (r *RepoHandle) IsLocal() bool {
	return r.URL == ""
}

// Revision returns the revision to check out: Commit when pinned,
// else Branch, else Refspec. Empty means the backend's default head.
func (r *RepoHandle) Revision() string {
	if r.Commit != "" {
		return r.Commit
	}
	if r.Branch != "" {
		return r.Branch
	}
	return r.Refspec
}

// LayerDirs returns the absolute directories this repository
// contributes to the layer search path, in sorted layer order.
func (r *RepoHandle) LayerDirs() []string {
	dirs := make([]string, 0, len(r.Layers))
	for _, layer := range r.Layers {
		if layer == "." {
			dirs = append(dirs, r.Path)
			continue
		}
		dirs = append(dirs, filepath.Join(r.Path, layer))
	}
	return dirs
}

// resolveRepo builds the handle for one repos-table key. entry is the
// repo's own config value (nil for a bare "name:" entry, which means
// the repository holding the config chain). defaults and overrides
// are the defaults.repos and overrides.repos.<name> sub-tables.
func resolveRepo(name string, entry, defaults, overrides map[string]any, topRepoPath, workDir string) (*RepoHandle, error) {
	keyPath := "repos." + name

	// Patch defaults layer per patch field, not through the generic
	// merge: defaults.repos.patches.repo is a fallback for every
	// patch's repo field, and merging it wholesale would make "repo"
	// look like a patch ID.
	defaultPatchRepo := ""
	layered := make(map[string]any, len(defaults))
	for key, value := range defaults {
		if key == "patches" {
			patchDefaults, err := asMapping(value, "defaults.repos.patches")
			if err != nil {
				return nil, err
			}
			repo, err := asString(patchDefaults["repo"], "defaults.repos.patches.repo")
			if err != nil {
				return nil, err
			}
			defaultPatchRepo = repo
			continue
		}
		layered[key] = value
	}
	layered = mergeTree(mergeTree(layered, entry), overrides)

	handle := &RepoHandle{Name: name}
	var err error
	if handle.URL, err = asString(layered["url"], keyPath+".url"); err != nil {
		return nil, err
	}
	if handle.Commit, err = asString(layered["commit"], keyPath+".commit"); err != nil {
		return nil, err
	}
	if handle.Branch, err = asString(layered["branch"], keyPath+".branch"); err != nil {
		return nil, err
	}
	if handle.Refspec, err = asString(layered["refspec"], keyPath+".refspec"); err != nil {
		return nil, err
	}

	vcs, err := asString(layered["type"], keyPath+".type")
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(vcs) {
	case "", VCSGit:
		handle.VCS = VCSGit
	case VCSMercurial, "mercurial":
		handle.VCS = VCSMercurial
	default:
		return nil, keyErrorf(keyPath+".type", "unknown repo type %q (expected git or hg)", vcs)
	}

	dirName, err := asString(layered["name"], keyPath+".name")
	if err != nil {
		return nil, err
	}
	if dirName == "" {
		dirName = name
	}

	declaredPath, err := asString(layered["path"], keyPath+".path")
	if err != nil {
		return nil, err
	}
	switch {
	case handle.URL == "" && declaredPath == "":
		// The repository the config chain itself lives in.
		handle.Path = topRepoPath
	case declaredPath == "":
		handle.Path = filepath.Join(workDir, dirName)
	case filepath.IsAbs(declaredPath):
		handle.Path = declaredPath
	default:
		handle.Path = filepath.Join(workDir, declaredPath)
	}

	if handle.Layers, err = resolveLayers(layered["layers"], keyPath+".layers"); err != nil {
		return nil, err
	}
	if handle.Patches, err = resolvePatches(layered["patches"], keyPath+".patches", defaultPatchRepo); err != nil {
		return nil, err
	}
	return handle, nil
}

// resolveLayers turns the layers sub-table into the sorted list of
// enabled subpaths. A missing or empty table means the repository
// root itself is the single layer.
func resolveLayers(v any, key string) ([]string, error) {
	table, err := asMapping(v, key)
	if err != nil {
		return nil, err
	}
	if len(table) == 0 {
		return []string{"."}, nil
	}

	var layers []string
	for _, layer := range sortedKeys(table) {
		flag, err := scalarString(table[layer], key+"."+layer)
		if err != nil {
			return nil, err
		}
		if layerDisabled[strings.ToLower(flag)] {
			continue
		}
		layers = append(layers, layer)
	}
	return layers, nil
}

// resolvePatches turns the patches sub-table into patch entries in
// sorted ID order, which is also their application order.
func resolvePatches(v any, key, defaultRepo string) ([]Patch, error) {
	table, err := asMapping(v, key)
	if err != nil {
		return nil, err
	}

	patches := make([]Patch, 0, len(table))
	for _, id := range sortedKeys(table) {
		entry, err := asMapping(table[id], key+"."+id)
		if err != nil {
			return nil, err
		}
		patch := Patch{ID: id, Repo: defaultRepo}
		if path, err := asString(entry["path"], key+"."+id+".path"); err != nil {
			return nil, err
		} else if path == "" {
			return nil, keyErrorf(key+"."+id, "patch entry needs a path")
		} else {
			patch.Path = path
		}
		if repo, err := asString(entry["repo"], key+"."+id+".repo"); err != nil {
			return nil, err
		} else if repo != "" {
			patch.Repo = repo
		}
		if patch.Repo == "" {
			return nil, keyErrorf(key+"."+id, "patch entry needs a repo (or defaults.repos.patches.repo)")
		}
		patches = append(patches, patch)
	}
	sort.Slice(patches, func(i, j int) bool { return patches[i].ID < patches[j].ID })
	return patches, nil
}
