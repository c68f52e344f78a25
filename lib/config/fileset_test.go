// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"path/filepath"
	"strings"
	"testing"
)

// rootsByPrefix builds a RootLookup that assigns a root to every
// directory underneath it, mimicking version-control roots without
// touching git.
func rootsByPrefix(roots ...string) RootLookup {
	return func(dir string) string {
		for _, root := range roots {
			if dir == root || strings.HasPrefix(dir, root+string(filepath.Separator)) {
				return root
			}
		}
		return ""
	}
}

func TestNewFileSet_SingleRoot(t *testing.T) {
	root := t.TempDir()
	lookup := rootsByPrefix(root)

	fileSet, err := NewFileSet(
		filepath.Join(root, "kas.yml")+":"+filepath.Join(root, "extra", "debug.yml"),
		lookup, false)
	if err != nil {
		t.Fatalf("NewFileSet: %v", err)
	}
	if fileSet.TopRepoPath() != root {
		t.Errorf("expected top repo path %s, got %s", root, fileSet.TopRepoPath())
	}
	if len(fileSet.Files()) != 2 {
		t.Errorf("expected 2 files, got %v", fileSet.Files())
	}
}

func TestNewFileSet_TwoRootsIsFatal(t *testing.T) {
	rootA := t.TempDir()
	rootB := t.TempDir()
	lookup := rootsByPrefix(rootA, rootB)

	_, err := NewFileSet(
		filepath.Join(rootA, "kas.yml")+":"+filepath.Join(rootB, "kas.yml"),
		lookup, false)
	if err == nil {
		t.Fatal("expected files from two repositories to fail construction")
	}
}

func TestNewFileSet_MixedMembershipIsFatal(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	lookup := rootsByPrefix(root)

	_, err := NewFileSet(
		filepath.Join(root, "kas.yml")+":"+filepath.Join(outside, "kas.yml"),
		lookup, false)
	if err == nil {
		t.Fatal("expected a versioned/unversioned mix to fail construction")
	}
}

func TestNewFileSet_MixedMembershipAllowed(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	lookup := rootsByPrefix(root)

	fileSet, err := NewFileSet(
		filepath.Join(root, "kas.yml")+":"+filepath.Join(outside, "kas.yml"),
		lookup, true)
	if err != nil {
		t.Fatalf("expected the mix to pass with AllowOutsideVCS: %v", err)
	}
	if fileSet.TopRepoPath() != root {
		t.Errorf("expected the versioned root as top repo path, got %s", fileSet.TopRepoPath())
	}
}

func TestNewFileSet_AllOutsideVCS(t *testing.T) {
	outside := t.TempDir()
	lookup := rootsByPrefix( /* no roots */ )

	fileSet, err := NewFileSet(filepath.Join(outside, "kas.yml"), lookup, false)
	if err != nil {
		t.Fatalf("all files outside version control must be accepted: %v", err)
	}
	if fileSet.TopRepoPath() != outside {
		t.Errorf("expected fallback to the first file's directory, got %s", fileSet.TopRepoPath())
	}
}

func TestNewFileSet_EmptyListIsFatal(t *testing.T) {
	if _, err := NewFileSet("", rootsByPrefix(), false); err == nil {
		t.Fatal("expected an empty file list to fail")
	}
}
