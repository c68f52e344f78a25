// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Built-in fallbacks, used when neither an explicit override, the
// corresponding KAS_* environment variable, nor the config file
// provides a value.
const (
	DefaultTarget  = "core-image-minimal"
	DefaultTask    = "build"
	DefaultMachine = "qemux86-64"
	DefaultDistro  = "poky"
)

// Options configures construction of a [Config].
type Options struct {
	// Target overrides the build target list. Takes precedence over
	// both KAS_TARGET and the config file.
	Target []string

	// Task overrides the build task, ahead of KAS_TASK and the
	// config file.
	Task string

	// WorkDir is the directory repositories are checked out under.
	// Defaults to the current directory.
	WorkDir string

	// AllowOutsideVCS permits a config chain that mixes files inside
	// and outside version control.
	AllowOutsideVCS bool

	// RootFor locates the version-control root enclosing a
	// directory. Required; lib/repos provides the production lookup.
	RootFor RootLookup
}

// Config is the resolver and query surface for one project
// configuration. It is constructed once per invocation; the merged
// tree it serves is replaced on every [Config.FindMissingRepos] call
// as the convergence loop discovers more fragments.
type Config struct {
	fileSet *FileSet
	handler *includeHandler
	workDir string

	overrideTarget []string
	overrideTask   string

	tree       map[string]any
	resolution *Resolution
}

// New builds a Config from a colon-separated config file list. The
// file chain is validated immediately (single version-control root);
// no file content is parsed until the first resolution pass.
func New(fileList string, opts Options) (*Config, error) {
	if opts.RootFor == nil {
		return nil, errorf("config.New: Options.RootFor is required")
	}
	fileSet, err := NewFileSet(fileList, opts.RootFor, opts.AllowOutsideVCS)
	if err != nil {
		return nil, err
	}

	workDir := opts.WorkDir
	if workDir == "" {
		if workDir, err = os.Getwd(); err != nil {
			return nil, err
		}
	}
	if workDir, err = filepath.Abs(workDir); err != nil {
		return nil, err
	}

	return &Config{
		fileSet:        fileSet,
		handler:        &includeHandler{fileSet: fileSet},
		workDir:        workDir,
		overrideTarget: opts.Target,
		overrideTask:   opts.Task,
		tree:           map[string]any{},
	}, nil
}

// FindMissingRepos runs one include-resolution pass against the given
// snapshot of checked-out repositories (name to path) and returns the
// sorted names of repositories that includes still need. The merged
// tree served by the query methods is replaced by the pass's
// best-effort result, so partially resolved values are visible
// between passes.
func (c *Config) FindMissingRepos(available map[string]string) ([]string, error) {
	resolution, err := c.handler.resolve(available)
	if err != nil {
		return nil, err
	}
	c.tree = resolution.Tree
	c.resolution = resolution
	return append([]string(nil), resolution.Missing...), nil
}

// Tree returns the current merged configuration tree.
func (c *Config) Tree() map[string]any {
	return c.tree
}

// TopRepoPath returns the version-control root holding the top-level
// config files.
func (c *Config) TopRepoPath() string {
	return c.fileSet.TopRepoPath()
}

// WorkDir returns the directory repositories are checked out under.
func (c *Config) WorkDir() string {
	return c.workDir
}

// ResolvedFiles returns every config file merged by the most recent
// resolution pass, in merge order. The checkout state snapshot
// fingerprints exactly these files.
func (c *Config) ResolvedFiles() []string {
	if c.resolution == nil {
		return nil
	}
	return append([]string(nil), c.resolution.Files...)
}

// BuildSystem returns the configured build system, normalized to
// "openembedded" or "isar", or "" when the config does not pin one.
func (c *Config) BuildSystem() (string, error) {
	value, err := asString(c.tree["build_system"], "build_system")
	if err != nil {
		return "", err
	}
	switch strings.ToLower(value) {
	case "":
		return "", nil
	case "openembedded", "oe":
		return "openembedded", nil
	case "isar":
		return "isar", nil
	}
	return "", keyErrorf("build_system", "unknown build system %q (expected openembedded, oe or isar)", value)
}

// InitScript returns the name of the build environment entry script
// for the configured build system. Unset defaults to openembedded.
func (c *Config) InitScript() (string, error) {
	system, err := c.BuildSystem()
	if err != nil {
		return "", err
	}
	if system == "isar" {
		return "isar-init-build-env", nil
	}
	return "oe-init-build-env", nil
}

// Targets returns the build target list: the construction-time
// override, else KAS_TARGET split on spaces, else the config target
// key (scalar or sequence), else core-image-minimal.
func (c *Config) Targets() ([]string, error) {
	if len(c.overrideTarget) > 0 {
		return append([]string(nil), c.overrideTarget...), nil
	}
	if fromEnv := strings.Fields(os.Getenv("KAS_TARGET")); len(fromEnv) > 0 {
		return fromEnv, nil
	}
	targets, err := asStringList(c.tree["target"], "target")
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return []string{DefaultTarget}, nil
	}
	return targets, nil
}

// Task returns the build task: override, KAS_TASK, config, "build".
func (c *Config) Task() (string, error) {
	if c.overrideTask != "" {
		return c.overrideTask, nil
	}
	if task := os.Getenv("KAS_TASK"); task != "" {
		return task, nil
	}
	task, err := asString(c.tree["task"], "task")
	if err != nil {
		return "", err
	}
	if task == "" {
		return DefaultTask, nil
	}
	return task, nil
}

// Machine returns the MACHINE value: KAS_MACHINE, config, qemux86-64.
func (c *Config) Machine() (string, error) {
	return c.envThenConfig("KAS_MACHINE", "machine", DefaultMachine)
}

// Distro returns the DISTRO value: KAS_DISTRO, config, poky.
func (c *Config) Distro() (string, error) {
	return c.envThenConfig("KAS_DISTRO", "distro", DefaultDistro)
}

func (c *Config) envThenConfig(envName, key, fallback string) (string, error) {
	if value := os.Getenv(envName); value != "" {
		return value, nil
	}
	value, err := asString(c.tree[key], key)
	if err != nil {
		return "", err
	}
	if value == "" {
		return fallback, nil
	}
	return value, nil
}

// Environment returns the variables declared in the env sub-table.
// Each value is taken from the real process environment when set
// there, falling back to the config-declared default (a null default
// yields ""). The returned map's keys are exactly the declared names,
// which also feed BB_ENV_EXTRAWHITE.
func (c *Config) Environment() (map[string]string, error) {
	table, err := asMapping(c.tree["env"], "env")
	if err != nil {
		return nil, err
	}
	environment := make(map[string]string, len(table))
	for _, name := range sortedKeys(table) {
		if fromEnv, ok := os.LookupEnv(name); ok {
			environment[name] = fromEnv
			continue
		}
		value, err := scalarString(table[name], "env."+name)
		if err != nil {
			return nil, err
		}
		environment[name] = value
	}
	return environment, nil
}

// LocalConfHeader renders the local_conf_header sub-table.
func (c *Config) LocalConfHeader() (string, error) {
	return c.confHeader("local_conf_header")
}

// BBLayersConfHeader renders the bblayers_conf_header sub-table.
func (c *Config) BBLayersConfHeader() (string, error) {
	return c.confHeader("bblayers_conf_header")
}

// confHeader concatenates "# {key}\n{value}\n" for every entry of the
// named header table, sorted by key for reproducible output.
func (c *Config) confHeader(key string) (string, error) {
	table, err := asMapping(c.tree[key], key)
	if err != nil {
		return "", err
	}
	var header strings.Builder
	for _, name := range sortedKeys(table) {
		value, err := scalarString(table[name], key+"."+name)
		if err != nil {
			return "", err
		}
		header.WriteString("# ")
		header.WriteString(name)
		header.WriteString("\n")
		header.WriteString(value)
		header.WriteString("\n")
	}
	return header.String(), nil
}

// Multiconfig returns the space-joined multiconfig names extracted
// from targets of the form "multiconfig:NAME:..." or "mc:NAME:...".
// Duplicates are removed and the result is sorted, so the value is
// stable regardless of target order.
func (c *Config) Multiconfig() (string, error) {
	targets, err := c.Targets()
	if err != nil {
		return "", err
	}
	seen := map[string]bool{}
	var names []string
	for _, target := range targets {
		if !strings.HasPrefix(target, "multiconfig:") && !strings.HasPrefix(target, "mc:") {
			continue
		}
		fields := strings.Split(target, ":")
		if len(fields) < 2 || fields[1] == "" {
			continue
		}
		if !seen[fields[1]] {
			seen[fields[1]] = true
			names = append(names, fields[1])
		}
	}
	sort.Strings(names)
	return strings.Join(names, " "), nil
}

// ReposTable returns the raw repos sub-table of the merged tree.
func (c *Config) ReposTable() (map[string]any, error) {
	return asMapping(c.tree["repos"], "repos")
}

// Repos resolves every entry of the repos table into handles, sorted
// by name. Handles are re-derived from the current merged tree on
// every call; resolution may have re-run since the last one.
func (c *Config) Repos() ([]*RepoHandle, error) {
	table, err := c.ReposTable()
	if err != nil {
		return nil, err
	}
	handles := make([]*RepoHandle, 0, len(table))
	for _, name := range sortedKeys(table) {
		handle, err := c.Repo(name)
		if err != nil {
			return nil, err
		}
		handles = append(handles, handle)
	}
	return handles, nil
}

// Repo resolves the handle for one repos-table key, layering
// defaults.repos, the repo's own entry, and overrides.repos.<name>.
func (c *Config) Repo(name string) (*RepoHandle, error) {
	table, err := c.ReposTable()
	if err != nil {
		return nil, err
	}
	raw, ok := table[name]
	if !ok {
		return nil, keyErrorf("repos."+name, "repository is not declared")
	}
	entry, err := asMapping(raw, "repos."+name)
	if err != nil {
		return nil, err
	}

	defaultsTable, err := asMapping(c.tree["defaults"], "defaults")
	if err != nil {
		return nil, err
	}
	defaults, err := asMapping(defaultsTable["repos"], "defaults.repos")
	if err != nil {
		return nil, err
	}

	overridesTable, err := asMapping(c.tree["overrides"], "overrides")
	if err != nil {
		return nil, err
	}
	overrideRepos, err := asMapping(overridesTable["repos"], "overrides.repos")
	if err != nil {
		return nil, err
	}
	overrides, err := asMapping(overrideRepos[name], "overrides.repos."+name)
	if err != nil {
		return nil, err
	}

	return resolveRepo(name, entry, defaults, overrides, c.fileSet.TopRepoPath(), c.workDir)
}
