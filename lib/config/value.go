// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"sort"
	"strconv"
)

// The merged configuration is a loosely-typed tree as produced by the
// YAML and JSON decoders: map[string]any mappings, []any sequences,
// and scalar leaves. The helpers below validate the shape of a value
// at the point where a sub-table is first consumed and turn a
// mismatch into a structural *Error carrying the key path, so the
// rest of the package never type-asserts blindly.

// asMapping returns v as a mapping. A nil value (absent key or
// explicit null) is an empty mapping, which is how null repo entries
// and empty sub-tables are spelled in config files.
func asMapping(v any, key string) (map[string]any, error) {
	switch m := v.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return m, nil
	}
	return nil, keyErrorf(key, "expected a mapping, got %s", shapeName(v))
}

// asString returns v as a string scalar. Absent values yield "".
func asString(v any, key string) (string, error) {
	switch s := v.(type) {
	case nil:
		return "", nil
	case string:
		return s, nil
	}
	return "", keyErrorf(key, "expected a string, got %s", shapeName(v))
}

// asStringList returns v as a list of strings, accepting both a
// single scalar and a sequence of scalars. This is the shape of the
// target key, which config files write either way.
func asStringList(v any, key string) ([]string, error) {
	switch l := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{l}, nil
	case []any:
		values := make([]string, 0, len(l))
		for i, item := range l {
			s, ok := item.(string)
			if !ok {
				return nil, keyErrorf(fmt.Sprintf("%s[%d]", key, i),
					"expected a string, got %s", shapeName(item))
			}
			values = append(values, s)
		}
		return values, nil
	}
	return nil, keyErrorf(key, "expected a string or a sequence of strings, got %s", shapeName(v))
}

// asInt returns v as an integer. YAML decodes integers as int, JSON
// as float64, and quoted values arrive as strings; all three forms
// are accepted so the header version key parses regardless of the
// file format it came from.
func asInt(v any, key string) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, keyErrorf(key, "expected an integer, got %v", n)
		}
		return int(n), nil
	case string:
		parsed, err := strconv.Atoi(n)
		if err != nil {
			return 0, keyErrorf(key, "expected an integer, got %q", n)
		}
		return parsed, nil
	}
	return 0, keyErrorf(key, "expected an integer, got %s", shapeName(v))
}

// scalarString renders a scalar leaf for output contexts (env values,
// conf header content, layer enable flags). Mappings and sequences
// are not scalars.
func scalarString(v any, key string) (string, error) {
	switch s := v.(type) {
	case nil:
		return "", nil
	case string:
		return s, nil
	case bool:
		return strconv.FormatBool(s), nil
	case int:
		return strconv.Itoa(s), nil
	case int64:
		return strconv.FormatInt(s, 10), nil
	case float64:
		return strconv.FormatFloat(s, 'g', -1, 64), nil
	}
	return "", keyErrorf(key, "expected a scalar, got %s", shapeName(v))
}

// shapeName names a decoded value's shape for error messages.
func shapeName(v any) string {
	switch v.(type) {
	case map[string]any:
		return "a mapping"
	case []any:
		return "a sequence"
	case nil:
		return "null"
	}
	return fmt.Sprintf("%T", v)
}

// sortedKeys returns the keys of m in lexicographic order. Every
// iteration over a config mapping goes through this so that output
// and error reporting never depend on Go map order.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
