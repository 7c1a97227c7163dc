package utils

import (
	"encoding/json"
)

/**
 * Convert a result struct to a generic field mapping
 * @param {interface{}} v - Struct value with json tags
 * @returns {map[string]interface{}} Returns the struct's fields as a map
 * @description
 * - Round-trips through JSON so the dispatcher can return plain field
 *   mappings while the services keep typed results
 * - A value that cannot marshal yields an error mapping instead of a panic
 */
func StructToMap(v interface{}) map[string]interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		return map[string]interface{}{"error": err.Error()}
	}
	out := make(map[string]interface{})
	if err := json.Unmarshal(data, &out); err != nil {
		return map[string]interface{}{"error": err.Error()}
	}
	return out
}
