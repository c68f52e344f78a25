// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

// mergeTree merges overlay into base and returns a fresh mapping.
// Where both sides hold a mapping at the same key the two are merged
// recursively, so sibling keys that the overlay does not touch
// survive from the base. Any other combination is replaced wholesale
// by the overlay value — sequences and scalars do not merge.
//
// Neither input is mutated; resolution may merge the same parsed
// trees repeatedly across convergence passes and must not see values
// bleed between passes.
func mergeTree(base, overlay map[string]any) map[string]any {
	merged := make(map[string]any, len(base)+len(overlay))
	for key, value := range base {
		merged[key] = value
	}
	for key, value := range overlay {
		baseMap, baseOK := merged[key].(map[string]any)
		overlayMap, overlayOK := value.(map[string]any)
		if baseOK && overlayOK {
			merged[key] = mergeTree(baseMap, overlayMap)
			continue
		}
		merged[key] = value
	}
	return merged
}

// mergeAll folds mergeTree over trees in order, later trees winning.
func mergeAll(trees []map[string]any) map[string]any {
	merged := map[string]any{}
	for _, tree := range trees {
		merged = mergeTree(merged, tree)
	}
	return merged
}
