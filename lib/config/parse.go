// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// parseFile reads and decodes one config file into a loosely-typed
// tree. The format is chosen by extension: .yml/.yaml decode as YAML,
// .json as JSON extended with // comments, /* block comments */ and
// trailing commas. Any other extension is a structural error — the
// format must be explicit, not sniffed.
func parseFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var tree map[string]any
	switch filepath.Ext(path) {
	case ".yml", ".yaml":
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return nil, fileErrorf(path, "parsing YAML: %v", err)
		}
	case ".json":
		if err := json.Unmarshal(jsonc.ToJSON(data), &tree); err != nil {
			return nil, fileErrorf(path, "parsing JSON: %v", err)
		}
	default:
		return nil, fileErrorf(path, "unsupported config format %q (expected .yml, .yaml or .json)", filepath.Ext(path))
	}

	if tree == nil {
		tree = map[string]any{}
	}
	return normalizeTree(tree), nil
}

// normalizeTree rewrites nested map[any]any mappings (which older
// YAML decoders and some value paths produce) into map[string]any so
// the rest of the package sees one mapping shape. Non-string keys are
// rendered with %v; config keys are strings in practice and merge
// semantics treat them as such.
func normalizeTree(tree map[string]any) map[string]any {
	normalized := make(map[string]any, len(tree))
	for key, value := range tree {
		normalized[key] = normalizeValue(value)
	}
	return normalized
}

func normalizeValue(v any) any {
	switch value := v.(type) {
	case map[string]any:
		return normalizeTree(value)
	case map[any]any:
		normalized := make(map[string]any, len(value))
		for key, item := range value {
			normalized[fmt.Sprintf("%v", key)] = normalizeValue(item)
		}
		return normalized
	case []any:
		normalized := make([]any, len(value))
		for i, item := range value {
			normalized[i] = normalizeValue(item)
		}
		return normalized
	}
	return v
}
