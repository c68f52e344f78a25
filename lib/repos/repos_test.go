// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package repos

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bureau-foundation/kas/lib/config"
	"github.com/bureau-foundation/kas/lib/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRootPath(t *testing.T) {
	dir := testutil.ScratchRepo(t, map[string]string{"README": "hello\n"})
	nested := filepath.Join(dir, "meta", "recipes")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	if got := RootPath(nested); got != dir {
		t.Errorf("expected root %s for nested dir, got %s", dir, got)
	}
	if got := RootPath(dir); got != dir {
		t.Errorf("expected the root itself to resolve, got %s", got)
	}
}

func TestRootPath_OutsideVCS(t *testing.T) {
	// A temp dir may live under a versioned ancestor, so only assert
	// that the answer is never the temp dir itself.
	dir := t.TempDir()
	if got := RootPath(dir); got == dir {
		t.Errorf("a plain temp dir must not be its own VCS root, got %s", got)
	}
}

func TestRepository_Head(t *testing.T) {
	dir := testutil.ScratchRepo(t, map[string]string{"README": "hello\n"})
	repo := NewRepository(dir, config.VCSGit)

	head, err := repo.Head(context.Background())
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	expected := testutil.Git(t, dir, "rev-parse", "HEAD")
	if head != expected {
		t.Errorf("expected head %s, got %s", expected, head)
	}
}

func TestRepository_CheckoutRevision(t *testing.T) {
	dir := testutil.ScratchRepo(t, map[string]string{"README": "hello\n"})
	first := testutil.Git(t, dir, "rev-parse", "HEAD")

	testutil.WriteTree(t, dir, "README", "updated\n")
	testutil.Git(t, dir, "add", "README")
	testutil.Git(t, dir, "commit", "--quiet", "-m", "update")

	repo := NewRepository(dir, config.VCSGit)
	if err := repo.Checkout(context.Background(), first); err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	head, err := repo.Head(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if head != first {
		t.Errorf("expected checkout at %s, got %s", first, head)
	}

	content, err := os.ReadFile(filepath.Join(dir, "README"))
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "hello\n" {
		t.Errorf("working tree not moved: %q", content)
	}
}

func TestRepository_CheckoutEmptyRevisionIsNoop(t *testing.T) {
	repo := NewRepository(filepath.Join(t.TempDir(), "not-a-repo"), config.VCSGit)
	if err := repo.Checkout(context.Background(), ""); err != nil {
		t.Errorf("empty revision must be a no-op even without a repository: %v", err)
	}
}

func TestRepository_RunErrorIncludesStderr(t *testing.T) {
	testutil.RequireGit(t)
	repo := NewRepository(t.TempDir(), config.VCSGit)

	_, err := repo.Run(context.Background(), "rev-parse", "HEAD")
	if err == nil {
		t.Fatal("expected rev-parse outside a repository to fail")
	}
	if !strings.Contains(err.Error(), "stderr") {
		t.Errorf("error should carry captured stderr: %v", err)
	}
}

func TestClone(t *testing.T) {
	source := testutil.ScratchRepo(t, map[string]string{"README": "hello\n"})
	target := filepath.Join(t.TempDir(), "layers", "clone")

	if err := Clone(context.Background(), config.VCSGit, source, target); err != nil {
		t.Fatalf("Clone: %v", err)
	}
	if _, err := os.Stat(filepath.Join(target, "README")); err != nil {
		t.Errorf("clone missing working tree content: %v", err)
	}
}

func TestRepository_ApplyPatch(t *testing.T) {
	dir := testutil.ScratchRepo(t, map[string]string{"README": "hello\n"})

	patch := testutil.WriteTree(t, t.TempDir(), "readme.patch", `--- a/README
+++ b/README
@@ -1 +1,2 @@
 hello
+patched
`)

	repo := NewRepository(dir, config.VCSGit)
	if err := repo.ApplyPatch(context.Background(), patch); err != nil {
		t.Fatalf("ApplyPatch: %v", err)
	}
	content, err := os.ReadFile(filepath.Join(dir, "README"))
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "hello\npatched\n" {
		t.Errorf("patch not applied: %q", content)
	}
}

func TestFetcher_ClonesAbsentRepo(t *testing.T) {
	source := testutil.ScratchRepo(t, map[string]string{"kas/include.yml": "header:\n  version: 14\n"})
	workDir := t.TempDir()

	handle := &config.RepoHandle{
		Name: "meta-extra",
		URL:  source,
		VCS:  config.VCSGit,
		Path: filepath.Join(workDir, "meta-extra"),
	}
	fetcher := &Fetcher{Logger: discardLogger()}
	if err := fetcher.EnsurePresent(context.Background(), []*config.RepoHandle{handle}); err != nil {
		t.Fatalf("EnsurePresent: %v", err)
	}
	if _, err := os.Stat(filepath.Join(handle.Path, "kas", "include.yml")); err != nil {
		t.Errorf("expected the repository cloned into place: %v", err)
	}
}

func TestFetcher_UnreachableRemoteIsNotFatal(t *testing.T) {
	testutil.RequireGit(t)
	handle := &config.RepoHandle{
		Name: "meta-gone",
		URL:  filepath.Join(t.TempDir(), "no-such-remote"),
		VCS:  config.VCSGit,
		Path: filepath.Join(t.TempDir(), "meta-gone"),
	}
	fetcher := &Fetcher{Logger: discardLogger()}
	if err := fetcher.EnsurePresent(context.Background(), []*config.RepoHandle{handle}); err != nil {
		t.Errorf("a failed clone must be logged, not returned: %v", err)
	}
}
