// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package statefile

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func sampleState(t *testing.T, dir string) *State {
	t.Helper()
	configFile := filepath.Join(dir, "kas.yml")
	if err := os.WriteFile(configFile, []byte("machine: qemux86-64\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	fingerprint, err := FingerprintFile(configFile)
	if err != nil {
		t.Fatal(err)
	}
	return &State{
		Repos: map[string]RepoState{
			"meta-a": {URL: "https://example.com/a.git", Revision: "0123abc"},
			"poky":   {Revision: "deadbeef"},
		},
		Fingerprints: map[string]Fingerprint{configFile: fingerprint},
	}
}

func TestWriteRead_Roundtrip(t *testing.T) {
	dir := t.TempDir()
	state := sampleState(t, dir)
	path := filepath.Join(dir, ".checkout-state")

	if err := Write(path, state); err != nil {
		t.Fatalf("Write: %v", err)
	}
	loaded, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !reflect.DeepEqual(state, loaded) {
		t.Errorf("roundtrip mismatch:\nwrote %+v\nread  %+v", state, loaded)
	}
}

func TestWrite_DeterministicBytes(t *testing.T) {
	dir := t.TempDir()
	state := sampleState(t, dir)
	pathA := filepath.Join(dir, "a")
	pathB := filepath.Join(dir, "b")

	if err := Write(pathA, state); err != nil {
		t.Fatal(err)
	}
	if err := Write(pathB, state); err != nil {
		t.Fatal(err)
	}

	bytesA, err := os.ReadFile(pathA)
	if err != nil {
		t.Fatal(err)
	}
	bytesB, err := os.ReadFile(pathB)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(bytesA, bytesB) {
		t.Error("identical state must serialize to identical bytes")
	}
}

func TestRead_MissingFileSurfacesNotExist(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "no-such-state"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected fs.ErrNotExist, got %v", err)
	}
}

func TestConfigUnchanged(t *testing.T) {
	dir := t.TempDir()
	state := sampleState(t, dir)
	configFile := filepath.Join(dir, "kas.yml")

	if !state.ConfigUnchanged([]string{configFile}) {
		t.Error("unchanged file set must validate")
	}

	// Content edit invalidates.
	if err := os.WriteFile(configFile, []byte("machine: qemuarm64\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if state.ConfigUnchanged([]string{configFile}) {
		t.Error("edited config content must invalidate the snapshot")
	}

	// An extra file not in the snapshot invalidates even if the
	// recorded file matches again.
	if err := os.WriteFile(configFile, []byte("machine: qemux86-64\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	extra := filepath.Join(dir, "extra.yml")
	if err := os.WriteFile(extra, []byte("distro: poky\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if state.ConfigUnchanged([]string{configFile, extra}) {
		t.Error("a file outside the recorded set must invalidate the snapshot")
	}

	// A recorded file dropping out of the set invalidates too.
	if state.ConfigUnchanged(nil) {
		t.Error("an empty file set must not validate against a non-empty snapshot")
	}
}
