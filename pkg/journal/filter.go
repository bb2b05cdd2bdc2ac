// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package journal

import "strings"

// FilterOut returns a deep copy of data without the values whose dotted path
// matches one of the patterns. Nested objects are walked, so "cpu.*.idle"
// removes only the idle counters.
// Supports wildcard patterns:
//   - "prefix*" matches paths starting with "prefix"
//   - "*suffix" matches paths ending with "suffix"
//   - "*contains*" matches paths containing "contains"
//   - "exact" matches paths exactly
func FilterOut(data map[string]any, patterns []string) map[string]any {
	if len(patterns) == 0 {
		return CloneMap(data)
	}
	return filterOut(data, "", patterns)
}

func filterOut(node map[string]any, prefix string, patterns []string) map[string]any {
	result := make(map[string]any, len(node))

	for key, value := range node {
		path := joinPath(prefix, key)
		if matchesAny(path, patterns) {
			continue
		}
		if child, ok := asMap(value); ok {
			result[key] = filterOut(child, path, patterns)
			continue
		}
		result[key] = Clone(value)
	}

	return result
}

// FilterIn returns a deep copy of data with only the values whose dotted path
// matches one of the patterns. A matching object is kept whole; objects that
// do not match are walked and kept only if something below them matched.
// This is the complement of FilterOut and supports the same patterns.
func FilterIn(data map[string]any, patterns []string) map[string]any {
	if len(patterns) == 0 {
		return map[string]any{}
	}
	return filterIn(data, "", patterns)
}

func filterIn(node map[string]any, prefix string, patterns []string) map[string]any {
	result := make(map[string]any)

	for key, value := range node {
		path := joinPath(prefix, key)
		if matchesAny(path, patterns) {
			result[key] = Clone(value)
			continue
		}
		if child, ok := asMap(value); ok {
			if kept := filterIn(child, path, patterns); len(kept) > 0 {
				result[key] = kept
			}
		}
	}

	return result
}

// Select applies include then exclude patterns. An empty include keeps everything.
func Select(data map[string]any, include, exclude []string) map[string]any {
	out := data
	if len(include) > 0 {
		out = FilterIn(out, include)
	}
	return FilterOut(out, exclude)
}

func matchesAny(path string, patterns []string) bool {
	for _, p := range patterns {
		if matchesPattern(path, p) {
			return true
		}
	}
	return false
}

// matchesPattern checks if a path matches a wildcard pattern.
// Supports multiple wildcard segments, e.g., "a*b*c" matches "aXbYc".
func matchesPattern(key, pattern string) bool {
	// No wildcard - exact match
	if !strings.Contains(pattern, "*") {
		return key == pattern
	}

	segments := strings.Split(pattern, "*")

	pos := 0
	for i, segment := range segments {
		if segment == "" {
			continue
		}

		// First segment must be at the start (unless pattern starts with *)
		if i == 0 {
			if !strings.HasPrefix(key, segment) {
				return false
			}
			pos = len(segment)
			continue
		}

		// Last segment must be at the end (unless pattern ends with *)
		if i == len(segments)-1 {
			return len(key)-pos >= len(segment) && strings.HasSuffix(key[pos:], segment)
		}

		idx := strings.Index(key[pos:], segment)
		if idx == -1 {
			return false
		}
		pos += idx + len(segment)
	}

	return true
}
