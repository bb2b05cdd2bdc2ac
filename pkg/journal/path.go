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

import (
	"fmt"
	"strings"
)

// PathSeparator separates segments of a dotted journal path.
const PathSeparator = "."

func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, PathSeparator)
}

func lookup(m map[string]any, path string) (any, bool) {
	segments := splitPath(path)
	if len(segments) == 0 {
		return nil, false
	}

	var cur any = m
	for _, seg := range segments {
		node, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = node[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func setPath(m map[string]any, path string, value any) error {
	segments := splitPath(path)
	if len(segments) == 0 {
		return fmt.Errorf("empty journal path")
	}

	node := m
	for i, seg := range segments[:len(segments)-1] {
		next, ok := node[seg]
		if !ok {
			child := map[string]any{}
			node[seg] = child
			node = child
			continue
		}
		child, ok := asMap(next)
		if !ok {
			return fmt.Errorf("journal path %q: segment %q is a %T, not an object",
				path, strings.Join(segments[:i+1], PathSeparator), next)
		}
		node = child
	}
	node[segments[len(segments)-1]] = value
	return nil
}

func deletePath(m map[string]any, path string) bool {
	segments := splitPath(path)
	if len(segments) == 0 {
		return false
	}

	node := m
	for _, seg := range segments[:len(segments)-1] {
		child, ok := asMap(node[seg])
		if !ok {
			return false
		}
		node = child
	}
	last := segments[len(segments)-1]
	if _, ok := node[last]; !ok {
		return false
	}
	delete(node, last)
	return true
}

func asMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case Journal:
		return t, true
	default:
		return nil, false
	}
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + PathSeparator + key
}
