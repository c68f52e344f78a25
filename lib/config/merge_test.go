// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"reflect"
	"testing"
)

func TestMergeTree_LaterWins(t *testing.T) {
	base := map[string]any{
		"machine": "qemux86-64",
		"task":    "build",
	}
	overlay := map[string]any{
		"machine": "raspberrypi4",
	}

	merged := mergeTree(base, overlay)

	if merged["machine"] != "raspberrypi4" {
		t.Errorf("expected overlay to win for machine, got %v", merged["machine"])
	}
	if merged["task"] != "build" {
		t.Errorf("expected untouched key to survive, got %v", merged["task"])
	}
}

func TestMergeTree_DeepMergePreservesSiblings(t *testing.T) {
	base := map[string]any{
		"repos": map[string]any{
			"meta-a": map[string]any{"branch": "main", "url": "https://example.com/a.git"},
			"meta-b": map[string]any{"branch": "main"},
		},
	}
	overlay := map[string]any{
		"repos": map[string]any{
			"meta-a": map[string]any{"branch": "release"},
		},
	}

	merged := mergeTree(base, overlay)

	repos := merged["repos"].(map[string]any)
	metaA := repos["meta-a"].(map[string]any)
	if metaA["branch"] != "release" {
		t.Errorf("expected overlay branch, got %v", metaA["branch"])
	}
	if metaA["url"] != "https://example.com/a.git" {
		t.Errorf("expected sibling url preserved, got %v", metaA["url"])
	}
	if _, ok := repos["meta-b"]; !ok {
		t.Error("expected untouched repo meta-b preserved")
	}
}

func TestMergeTree_NonMappingReplacesWholesale(t *testing.T) {
	base := map[string]any{
		"target": []any{"core-image-minimal", "core-image-sato"},
	}
	overlay := map[string]any{
		"target": []any{"core-image-base"},
	}

	merged := mergeTree(base, overlay)

	if !reflect.DeepEqual(merged["target"], []any{"core-image-base"}) {
		t.Errorf("expected sequence replaced wholesale, got %v", merged["target"])
	}
}

func TestMergeTree_InputsNotMutated(t *testing.T) {
	base := map[string]any{
		"defaults": map[string]any{"repos": map[string]any{"branch": "main"}},
	}
	overlay := map[string]any{
		"defaults": map[string]any{"repos": map[string]any{"branch": "release"}},
	}

	mergeTree(base, overlay)

	branch := base["defaults"].(map[string]any)["repos"].(map[string]any)["branch"]
	if branch != "main" {
		t.Errorf("base tree was mutated: branch = %v", branch)
	}
}
