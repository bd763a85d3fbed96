package config

import (
	"maps"
	"slices"
)

// Merge deep-merges the given tables, later documents winning on scalar
// conflicts and nested tables merged recursively. This is how a dedicated
// hatch.toml overlays the `tool.hatch` table of pyproject.toml.
func Merge(docs []map[string]any) map[string]any {
	result := make(map[string]any)
	for _, doc := range docs {
		for _, key := range slices.Sorted(maps.Keys(doc)) { // Sort keys to keep merges deterministic.
			value := doc[key]
			if existing, ok := result[key]; ok {
				if existingMap, ok1 := existing.(map[string]any); ok1 {
					if valueMap, ok2 := value.(map[string]any); ok2 {
						result[key] = Merge([]map[string]any{existingMap, valueMap})
						continue
					}
				}
			}
			result[key] = value
		}
	}
	return result
}
