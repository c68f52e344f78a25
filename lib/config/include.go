// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Config format versions this implementation understands. Every file
// in the include tree declares its version in header.version; a file
// outside the range is a structural error, not something to guess at.
const (
	minFormatVersion = 1
	maxFormatVersion = 14
)

// Resolution is the outcome of one include-resolution pass: the
// best-effort merged tree, the repositories that include directives
// referenced but that were not available on disk, and every file that
// contributed to the merge (in merge order). Missing is sorted and
// deduplicated; two passes over identical inputs produce identical
// Resolutions.
type Resolution struct {
	Tree    map[string]any
	Missing []string
	Files   []string
}

// includeHandler expands the include chains of a FileSet against a
// snapshot of the repositories currently checked out.
type includeHandler struct {
	fileSet *FileSet
}

// resolve parses every file in the set, recursively expands
// header.includes, and merges the results in order: a file's includes
// merge first (in declaration order), then the file itself on top, so
// every file overrides everything it includes. available maps repo
// names to their checkout paths; an include naming a repo absent from
// it is recorded as missing and skipped, never raised.
func (h *includeHandler) resolve(available map[string]string) (*Resolution, error) {
	resolution := &Resolution{Tree: map[string]any{}}
	missing := map[string]bool{}

	var trees []map[string]any
	for _, file := range h.fileSet.Files() {
		visited := map[string]bool{}
		expanded, err := h.expand(file, h.fileSet.TopRepoPath(), available, visited, missing, resolution)
		if err != nil {
			return nil, err
		}
		trees = append(trees, expanded...)
	}

	resolution.Tree = mergeAll(trees)
	for name := range missing {
		resolution.Missing = append(resolution.Missing, name)
	}
	sort.Strings(resolution.Missing)
	return resolution, nil
}

// expand parses one file and returns its contribution to the merge:
// the expanded trees of its includes followed by the file's own tree.
// ownerRoot is the root directory of the repository the file belongs
// to; plain string includes resolve relative to it. visited holds the
// files on the current expansion path for cycle detection and is
// unwound on return, so a fragment may be included from two sibling
// branches without tripping it.
func (h *includeHandler) expand(file, ownerRoot string, available map[string]string, visited, missing map[string]bool, resolution *Resolution) ([]map[string]any, error) {
	if visited[file] {
		return nil, fileErrorf(file, "include cycle: file transitively includes itself")
	}
	visited[file] = true
	defer delete(visited, file)

	tree, err := parseFile(file)
	if err != nil {
		return nil, err
	}

	includes, err := headerIncludes(file, tree)
	if err != nil {
		return nil, err
	}

	var trees []map[string]any
	for _, include := range includes {
		if include.repo == "" {
			// A plain path, relative to the owning repository.
			target := include.file
			if !filepath.IsAbs(target) {
				target = filepath.Join(ownerRoot, target)
			}
			if _, err := os.Stat(target); err != nil {
				return nil, fileErrorf(file, "include %q does not exist at %s", include.file, target)
			}
			expanded, err := h.expand(target, ownerRoot, available, visited, missing, resolution)
			if err != nil {
				return nil, err
			}
			trees = append(trees, expanded...)
			continue
		}

		repoPath, ok := available[include.repo]
		if !ok {
			// The referenced repository is not on disk yet. This is
			// the normal multi-pass case: record it and resolve the
			// rest, the caller fetches and re-runs.
			missing[include.repo] = true
			continue
		}
		target := filepath.Join(repoPath, include.file)
		if _, err := os.Stat(target); err != nil {
			// The repository is present, so a missing file inside it
			// is a config mistake, not an ordering problem.
			return nil, fileErrorf(file, "include %q not found in repository %q (checked out at %s)",
				include.file, include.repo, repoPath)
		}
		expanded, err := h.expand(target, repoPath, available, visited, missing, resolution)
		if err != nil {
			return nil, err
		}
		trees = append(trees, expanded...)
	}

	resolution.Files = append(resolution.Files, file)
	return append(trees, tree), nil
}

// headerInclude is one parsed entry of header.includes: either a
// plain file path (repo empty) or a file inside a named repository.
type headerInclude struct {
	repo string
	file string
}

// headerIncludes validates a file's header and returns its include
// directives in declaration order. Every config file must carry
// header.version within the supported format range.
func headerIncludes(file string, tree map[string]any) ([]headerInclude, error) {
	rawHeader, ok := tree["header"]
	if !ok {
		return nil, fileErrorf(file, "missing header (every config file needs header.version)")
	}
	header, err := asMapping(rawHeader, "header")
	if err != nil {
		return nil, withFile(err, file)
	}

	version, err := asInt(header["version"], "header.version")
	if err != nil {
		return nil, withFile(err, file)
	}
	if version < minFormatVersion || version > maxFormatVersion {
		return nil, &Error{File: file, Key: "header.version",
			Msg: fmt.Sprintf("unsupported config format version %d (supported: %d to %d)",
				version, minFormatVersion, maxFormatVersion)}
	}

	rawIncludes, ok := header["includes"]
	if !ok {
		return nil, nil
	}
	list, ok := rawIncludes.([]any)
	if !ok {
		return nil, &Error{File: file, Key: "header.includes",
			Msg: fmt.Sprintf("expected a sequence, got %s", shapeName(rawIncludes))}
	}

	includes := make([]headerInclude, 0, len(list))
	for i, entry := range list {
		key := fmt.Sprintf("header.includes[%d]", i)
		switch value := entry.(type) {
		case string:
			includes = append(includes, headerInclude{file: value})
		case map[string]any:
			repo, err := asString(value["repo"], key+".repo")
			if err != nil {
				return nil, withFile(err, file)
			}
			path, err := asString(value["file"], key+".file")
			if err != nil {
				return nil, withFile(err, file)
			}
			if repo == "" || path == "" {
				return nil, &Error{File: file, Key: key,
					Msg: "a mapping include needs both repo and file"}
			}
			includes = append(includes, headerInclude{repo: repo, file: path})
		default:
			return nil, &Error{File: file, Key: key,
				Msg: fmt.Sprintf("expected a string or a {repo, file} mapping, got %s", shapeName(entry))}
		}
	}
	return includes, nil
}
