// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"path/filepath"
	"strings"
)

// RootLookup reports the version-control root enclosing dir, or ""
// when dir is outside any version-controlled tree. lib/repos provides
// the production implementation; tests substitute a map lookup.
type RootLookup func(dir string) string

// FileSet is the ordered chain of top-level config files named on the
// command line. Order is merge precedence: later files override
// earlier ones at every key path.
//
// All files must live inside the same version-control root (the "top
// repository", which anchors relative include paths), or all must
// live outside version control. Mixing the two — or spanning two
// roots — is a construction-time error: the chain would have no
// single anchor for includes and relative repo paths.
type FileSet struct {
	files       []string
	topRepoPath string
}

// NewFileSet builds a FileSet from a colon-separated list of file
// paths. Relative paths are made absolute against the current
// directory. allowOutsideVCS relaxes only the versioned/unversioned
// mix; two distinct version-control roots are always fatal.
func NewFileSet(fileList string, rootFor RootLookup, allowOutsideVCS bool) (*FileSet, error) {
	var files []string
	for _, path := range strings.Split(fileList, ":") {
		if path == "" {
			continue
		}
		absolute, err := filepath.Abs(path)
		if err != nil {
			return nil, errorf("resolving config file path %q: %v", path, err)
		}
		files = append(files, absolute)
	}
	if len(files) == 0 {
		return nil, errorf("no config files given")
	}

	roots := make([]string, len(files))
	distinct := map[string]bool{}
	for i, file := range files {
		roots[i] = rootFor(filepath.Dir(file))
		distinct[roots[i]] = true
	}

	switch {
	case len(distinct) == 1:
		// All in one root, or all outside version control.
	case len(distinct) == 2 && distinct[""] && allowOutsideVCS:
		// Versioned/unversioned mix, explicitly permitted.
	case distinct[""]:
		return nil, errorf("all concatenated config files must belong to the same repository or all must be outside of version control (%s)",
			strings.Join(files, ", "))
	default:
		return nil, errorf("concatenated config files span more than one repository (%s)",
			strings.Join(files, ", "))
	}

	// The top repository path anchors relative includes and repo
	// paths. Outside version control it falls back to the first
	// file's directory.
	top := ""
	for _, root := range roots {
		if root != "" {
			top = root
			break
		}
	}
	if top == "" {
		top = filepath.Dir(files[0])
	}

	return &FileSet{files: files, topRepoPath: top}, nil
}

// Files returns the file chain in merge order.
func (s *FileSet) Files() []string {
	return s.files
}

// TopRepoPath returns the version-control root shared by the chain,
// or the first file's directory when the chain is unversioned.
func (s *FileSet) TopRepoPath() string {
	return s.topRepoPath
}
