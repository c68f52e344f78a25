// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config resolves the layered project configuration that
// drives a checkout: an ordered chain of YAML or JSON files whose
// header may include further files, some of which live inside
// repositories that the configuration itself declares.
//
// Resolution is therefore incremental. [Config.FindMissingRepos]
// parses and merges everything reachable with the repositories
// currently on disk and reports the names of repositories that
// include directives still need. The caller checks those out and
// resolves again until the missing set is empty (the convergence
// loop lives in lib/setup, not here).
//
// Merge precedence is file order: later files win at every key path,
// with mapping values deep-merged rather than replaced. Per-repo
// fields layer as defaults.repos < the repo's own entry <
// overrides.repos.<name>.
//
// The query surface ([Config.Targets], [Config.Machine], ...) applies
// the fixed KAS_* environment variable precedence on every call, so
// values always reflect the current merged tree even when resolution
// re-runs mid-session.
package config
