// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package setup drives a checkout as an ordered sequence of steps
// sharing one mutable [Context]. Most steps act once; the repository
// setup loop is itself a step ([Loop]) that repeats its sub-steps
// until the configuration converges.
//
// Convergence works by comparison, not by trusting the fetcher: each
// pass records which repositories the include resolver still could
// not find, the fetcher attempts to check them out, and resolution
// runs again. An empty missing set means done. A missing set that is
// identical to (or a superset of) the previous pass's — after a fetch
// attempt — means a repository cannot be fetched or an include chain
// can never resolve, and the run fails naming exactly those
// repositories. The first pass has no previous set and can never
// fail this way.
package setup
