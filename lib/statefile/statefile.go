// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package statefile persists the outcome of a checkout: which
// revision every repository ended up at, and a fingerprint of every
// config file that contributed to resolution. The next run reads the
// snapshot back to decide whether present repositories can be trusted
// as-is (offline mode) or the configuration changed underneath them.
//
// Snapshots are CBOR in Core Deterministic Encoding, zstd-compressed:
// the same checkout state always produces identical bytes, so the
// file is diff- and cache-friendly.
package statefile

import (
	"bytes"
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"
)

// Fingerprint is a 32-byte BLAKE3 digest of one config file's
// content.
type Fingerprint [32]byte

// State is one checkout snapshot.
type State struct {
	// Repos maps repo name to its checkout outcome.
	Repos map[string]RepoState `cbor:"repos"`

	// Fingerprints maps each contributing config file path to its
	// content digest at resolution time.
	Fingerprints map[string]Fingerprint `cbor:"fingerprints"`
}

// RepoState records where one repository ended up.
type RepoState struct {
	URL      string `cbor:"url,omitempty"`
	Revision string `cbor:"revision"`
}

// encMode is the CBOR encoder configured with Core Deterministic
// Encoding (RFC 8949 §4.2): sorted map keys, smallest integer
// encoding, no indefinite-length items.
var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("statefile: CBOR encoder initialization failed: " + err.Error())
	}
}

// FingerprintFile digests one config file's content.
func FingerprintFile(path string) (Fingerprint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("fingerprinting %s: %w", path, err)
	}
	return blake3.Sum256(data), nil
}

// ConfigUnchanged reports whether files are exactly the files
// recorded in the snapshot, with unchanged content. Any added,
// removed, or edited file invalidates the snapshot.
func (s *State) ConfigUnchanged(files []string) bool {
	seen := map[string]bool{}
	for _, file := range files {
		recorded, ok := s.Fingerprints[file]
		if !ok {
			return false
		}
		current, err := FingerprintFile(file)
		if err != nil || current != recorded {
			return false
		}
		seen[file] = true
	}
	return len(seen) == len(s.Fingerprints)
}

// Write serializes the snapshot to path atomically (write to a
// temporary file in the same directory, then rename).
func Write(path string, state *State) error {
	encoded, err := encMode.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding checkout state: %w", err)
	}

	var compressed bytes.Buffer
	writer, err := zstd.NewWriter(&compressed, zstd.WithEncoderConcurrency(1))
	if err != nil {
		return fmt.Errorf("creating zstd writer: %w", err)
	}
	if _, err := writer.Write(encoded); err != nil {
		writer.Close()
		return fmt.Errorf("compressing checkout state: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("compressing checkout state: %w", err)
	}

	temporary := path + ".tmp"
	if err := os.WriteFile(temporary, compressed.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing checkout state: %w", err)
	}
	if err := os.Rename(temporary, path); err != nil {
		return fmt.Errorf("writing checkout state: %w", err)
	}
	return nil
}

// Read loads a snapshot from path. A missing file surfaces as the
// underlying fs.ErrNotExist so callers can treat it as "no previous
// checkout".
func Read(path string) (*State, error) {
	compressed, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	reader, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("creating zstd reader: %w", err)
	}
	defer reader.Close()

	decoded, err := reader.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompressing checkout state %s: %w", path, err)
	}

	var state State
	if err := cbor.Unmarshal(decoded, &state); err != nil {
		return nil, fmt.Errorf("decoding checkout state %s: %w", path, err)
	}
	return &state, nil
}
