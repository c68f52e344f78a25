// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
)

// Error is a structural configuration error: a mistake in the config
// files themselves (mixed version-control membership, a malformed or
// cyclic include, a missing file inside a repository that is present
// on disk, a sub-table of the wrong shape). Structural errors are
// fatal and never retried — unlike a repository that merely has not
// been checked out yet, which is reported through the missing-repo
// set and not as an error.
type Error struct {
	// File is the config file the error was detected in, when known.
	File string

	// Key is the key path inside the file, when known (e.g.
	// "repos.meta-custom.layers").
	Key string

	// Msg describes the problem.
	Msg string
}

func (e *Error) Error() string {
	switch {
	case e.File != "" && e.Key != "":
		return fmt.Sprintf("%s: %s: %s", e.File, e.Key, e.Msg)
	case e.File != "":
		return fmt.Sprintf("%s: %s", e.File, e.Msg)
	case e.Key != "":
		return fmt.Sprintf("%s: %s", e.Key, e.Msg)
	}
	return e.Msg
}

// withFile attributes err to a config file when it is a structural
// *Error that does not already carry one. Other errors pass through.
func withFile(err error, file string) error {
	var structural *Error
	if errors.As(err, &structural) && structural.File == "" {
		structural.File = file
	}
	return err
}

// errorf builds an *Error with a formatted message and no location.
func errorf(format string, args ...any) *Error {
	return &Error{Msg: fmt.Sprintf(format, args...)}
}

// fileErrorf builds an *Error attributed to a config file.
func fileErrorf(file, format string, args ...any) *Error {
	return &Error{File: file, Msg: fmt.Sprintf(format, args...)}
}

// keyErrorf builds an *Error attributed to a key path.
func keyErrorf(key, format string, args ...any) *Error {
	return &Error{Key: key, Msg: fmt.Sprintf(format, args...)}
}
